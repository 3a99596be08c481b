package subgraph

import (
	"context"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulSpaurgen/interface-v2/conf"
	"github.com/PaulSpaurgen/interface-v2/constants"
)

func newIndexer(t *testing.T, handler func(req graphQLRequest) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status, body := handler(req)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func urlsFor(srv *httptest.Server) conf.SubgraphUrls {
	return conf.SubgraphUrls{Oyster: srv.URL, Pond: srv.URL, MPond: srv.URL}
}

func TestQuerySendsVariables(t *testing.T) {
	srv := newIndexer(t, func(req graphQLRequest) (int, string) {
		assert.Equal(t, "0xabc", req.Variables["address"])
		return http.StatusOK, `{"data":{"users":[{"balance":"12345"}]}}`
	})
	c := NewClient(urlsFor(srv))
	assert.Equal(t, "12345", c.GetPondBalance(context.Background(), "0xABC").String())
}

func TestGettersFallBackToDefaults(t *testing.T) {
	failures := 0
	cases := map[string]func(graphQLRequest) (int, string){
		"server error":  func(graphQLRequest) (int, string) { return http.StatusInternalServerError, "boom" },
		"malformed":     func(graphQLRequest) (int, string) { return http.StatusOK, "{not json" },
		"graphql error": func(graphQLRequest) (int, string) { return http.StatusOK, `{"errors":[{"message":"bad"}]}` },
		"null data":     func(graphQLRequest) (int, string) { return http.StatusOK, `{"data":null}` },
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newIndexer(t, handler)
			c := NewClient(urlsFor(srv), WithFailureHook(func(string) { failures++ }))
			ctx := context.Background()

			assert.Equal(t, int64(0), c.GetPondBalance(ctx, "0x1").Int64())
			assert.Equal(t, int64(0), c.GetMpondBalance(ctx, "0x1").Int64())
			assert.Equal(t, int64(0), c.GetAllowance(ctx, "0x1", "0x2").Int64())
			assert.Nil(t, c.GetProviderDetails(ctx, "0x1"))
			jobs := c.GetOysterJobs(ctx, "0x1", 0)
			assert.NotNil(t, jobs)
			assert.Empty(t, jobs)
		})
	}
	assert.Equal(t, 4*5, failures)
}

func TestMissingFieldsAreNoData(t *testing.T) {
	srv := newIndexer(t, func(graphQLRequest) (int, string) {
		return http.StatusOK, `{"data":{}}`
	})
	c := NewClient(urlsFor(srv))
	ctx := context.Background()
	assert.Equal(t, int64(0), c.GetMpondBalance(ctx, "0x1").Int64())
	assert.Nil(t, c.GetProviderDetails(ctx, "0x1"))
	assert.Empty(t, c.GetMerchantJobs(ctx, "0x1", 0))
}

func TestUnreachableIndexer(t *testing.T) {
	c := NewClient(conf.SubgraphUrls{Oyster: "http://127.0.0.1:1"})
	assert.Empty(t, c.GetOysterJobs(context.Background(), "0x1", 0))
}

func TestGetProviderDetails(t *testing.T) {
	srv := newIndexer(t, func(graphQLRequest) (int, string) {
		return http.StatusOK, `{"data":{"providers":[{"id":"0xme","cp":"http://cp:8080","live":true}]}}`
	})
	p := NewClient(urlsFor(srv)).GetProviderDetails(context.Background(), "0xME")
	require.NotNil(t, p)
	assert.Equal(t, "http://cp:8080", p.CP)
	assert.True(t, p.Live)
}

func TestGetOysterJobs(t *testing.T) {
	srv := newIndexer(t, func(req graphQLRequest) (int, string) {
		assert.Equal(t, "0xowner", req.Variables["owner"])
		return http.StatusOK, `{"data":{"jobs":[{
			"id":"0x01","owner":"0xowner","provider":"0xprov",
			"metadata":"{\"instance\":\"c6a.xlarge\",\"region\":\"ap-south-1\",\"vcpu\":4,\"memory\":8192,\"url\":\"https://e\"}",
			"rate":"2000","balance":"10000","totalDeposit":"12000","refund":"0",
			"lastSettled":"1000","createdAt":"900",
			"depositHistory":[{"id":"d1","amount":"12000","timestamp":"900","isWithdrawal":false,"txHash":"0xh"}],
			"settlementHistory":[{"id":"s1","amount":"2000","timestamp":"1000","txHash":"0xs"}]
		},{"id":""}]}}`
	})
	c := NewClient(urlsFor(srv), WithRateScalingFactor(big.NewInt(1000)))
	jobs := c.GetOysterJobs(context.Background(), "0xOwner", 1500)
	require.Len(t, jobs, 1)
	job := jobs[0]
	assert.Equal(t, "c6a.xlarge", job.Instance)
	assert.Equal(t, int64(4), *job.Vcpu)
	assert.Equal(t, "2", job.DownScaledRate.String())
	// 500s at 2 per second accrued since the last settlement
	assert.Equal(t, "1000", job.AmountToBeSettled.String())
	assert.Equal(t, "9000", job.Balance.String())
	assert.Equal(t, int64(4500), job.DurationLeft)
	assert.Equal(t, int64(6000), job.EndEpochTime)
	assert.Equal(t, int64(600), job.DurationRun)
	assert.Equal(t, "3000", job.AmountUsed.String())
	assert.Equal(t, constants.StatusRunning, job.Status)
	assert.True(t, job.Live)
	require.Len(t, job.DepositHistory, 1)
	assert.Equal(t, constants.TxStatusDeposit, job.DepositHistory[0].TransactionStatus)
	require.Len(t, job.SettlementHistory, 1)
}

func TestTransformJobStatuses(t *testing.T) {
	factor := big.NewInt(1)
	stopped := TransformJob(JobRow{ID: "1", Rate: "0", Balance: "0", TotalDeposit: "100", Refund: "40", LastSettled: "50", CreatedAt: "10"}, factor, 100)
	assert.Equal(t, constants.StatusStopped, stopped.Status)
	assert.False(t, stopped.Live)
	assert.Equal(t, int64(50), stopped.EndEpochTime)
	assert.Equal(t, int64(40), stopped.DurationRun)
	assert.Equal(t, "60", stopped.AmountUsed.String())

	completed := TransformJob(JobRow{ID: "2", Rate: "1", Balance: "30", TotalDeposit: "30", LastSettled: "50", CreatedAt: "50"}, factor, 100)
	assert.Equal(t, constants.StatusCompleted, completed.Status)
	assert.Equal(t, int64(80), completed.EndEpochTime)
	assert.Equal(t, int64(0), completed.DurationLeft)
	assert.Equal(t, "30", completed.AmountToBeSettled.String())

	malformed := TransformJob(JobRow{ID: "3", Rate: "x", Balance: "", Metadata: "{"}, factor, 100)
	assert.Equal(t, int64(0), malformed.Balance.Int64())
	assert.Equal(t, "", malformed.Instance)
	assert.Nil(t, malformed.Vcpu)
}

func TestFetchersReportFailures(t *testing.T) {
	failures := 0
	srv := newIndexer(t, func(graphQLRequest) (int, string) { return http.StatusInternalServerError, "boom" })
	c := NewClient(urlsFor(srv), WithFailureHook(func(string) { failures++ }))
	ctx := context.Background()

	_, err := c.FetchOysterJobs(ctx, "0x1", 0)
	assert.Error(t, err)
	_, err = c.FetchMerchantJobs(ctx, "0x1", 0)
	assert.Error(t, err)
	_, err = c.FetchProviderDetails(ctx, "0x1")
	assert.Error(t, err)
	_, err = c.FetchAllowance(ctx, "0x1", "0x2")
	assert.Error(t, err)
	assert.Equal(t, 0, failures)
}

func TestFetchProviderDetailsUnregistered(t *testing.T) {
	srv := newIndexer(t, func(graphQLRequest) (int, string) {
		return http.StatusOK, `{"data":{"providers":[]}}`
	})
	p, err := NewClient(urlsFor(srv)).FetchProviderDetails(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestTransformJobHugeBalance(t *testing.T) {
	row := JobRow{ID: "1", Rate: "1", Balance: "100000000000000000000000000000", TotalDeposit: "100000000000000000000000000000", LastSettled: "100", CreatedAt: "100"}
	job := TransformJob(row, big.NewInt(1), 100)
	assert.Equal(t, constants.StatusRunning, job.Status)
	assert.Equal(t, int64(math.MaxInt64), job.DurationLeft)
	assert.Equal(t, int64(math.MaxInt64), job.EndEpochTime)
}
