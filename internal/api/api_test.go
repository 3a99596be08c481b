package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulSpaurgen/interface-v2/conf"
	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/contract"
	"github.com/PaulSpaurgen/interface-v2/internal/metrics"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/services"
	"github.com/PaulSpaurgen/interface-v2/internal/store"
	"github.com/PaulSpaurgen/interface-v2/util"
)

var usdc = conf.TokenMetadata{Decimals: 6, Precision: 2, Symbol: "USDC"}

// fakeController implements the calls the handlers under test reach. Any other call
// panics on the nil embedded interface.
type fakeController struct {
	contract.Controller
	openRate    *big.Int
	openBalance *big.Int
	reviseRate  *big.Int
}

func (f *fakeController) Address() string { return "0xowner" }

func (f *fakeController) CreateJob(ctx context.Context, metadata string, provider string, rate *big.Int, balance *big.Int) (contract.JobOpenResult, error) {
	f.openRate, f.openBalance = rate, balance
	return contract.JobOpenResult{Tx: models.Transaction{ID: "0xtx", Hash: "0xtx"}, JobID: "0xnew"}, nil
}

func (f *fakeController) AddFunds(ctx context.Context, jobID string, amount *big.Int) (models.Transaction, error) {
	return models.Transaction{ID: "0xdep", Hash: "0xdep"}, nil
}

func (f *fakeController) InitiateRateRevise(ctx context.Context, jobID string, newRate *big.Int) (models.Transaction, error) {
	f.reviseRate = newRate
	return models.Transaction{ID: "0xrev", Hash: "0xrev"}, nil
}

func (f *fakeController) RegisterProvider(ctx context.Context, cpURL string) (models.Transaction, error) {
	return models.Transaction{ID: "0xreg", Hash: "0xreg"}, nil
}

func (f *fakeController) UnregisterProvider(ctx context.Context) (models.Transaction, error) {
	return models.Transaction{ID: "0xunreg", Hash: "0xunreg"}, nil
}

func int64p(v int64) *int64 { return &v }

func fixtureState() models.State {
	state := models.DefaultState()
	state.Allowance = big.NewInt(100000000)
	state.JobsData = []models.Job{
		{
			ID: "0x1", Instance: "c6a.xlarge", Region: "us-east-1", Status: "running", Live: true,
			Provider: models.Provider{Name: "Alpha", Address: "0xaaa"},
			Rate:     big.NewInt(1000000), DownScaledRate: big.NewInt(1000),
			Balance: big.NewInt(5000000), TotalDeposit: big.NewInt(5000000), DurationLeft: 5000,
		},
		{
			ID: "0x2", Instance: "m5.large", Region: "eu-west-1", Status: "stopped",
			Provider: models.Provider{Name: "Beta", Address: "0xbbb"},
			Rate:     big.NewInt(0), DownScaledRate: big.NewInt(0),
			Balance: big.NewInt(2000000), TotalDeposit: big.NewInt(2000000),
		},
	}
	state.AllMarketplaceData = []models.MarketplaceListing{
		{ID: "a", Provider: models.Provider{Name: "Alpha", Address: "0xaaa"}, Instance: "c6a.xlarge", Region: "us-east-1", RegionName: "US East (N. Virginia)", Rate: big.NewInt(100), Vcpu: int64p(4), Memory: int64p(8192)},
		{ID: "b", Provider: models.Provider{Name: "Beta", Address: "0xbbb"}, Instance: "c6a.xlarge", Region: "us-east-2", RegionName: "US East (Ohio)", Rate: big.NewInt(50), Vcpu: int64p(4), Memory: int64p(8192)},
		{ID: "c", Provider: models.Provider{Name: "Alpha", Address: "0xaaa"}, Instance: "m5.large", Region: "eu-west-1", RegionName: "Europe (Ireland)", Rate: big.NewInt(70), Vcpu: int64p(2), Memory: int64p(4096)},
	}
	return state
}

func newTestServer(withService bool) (*gin.Engine, *store.Store, *fakeController) {
	gin.SetMode(gin.TestMode)
	st := store.New(fixtureState(),
		store.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
		store.WithRateScalingFactor(big.NewInt(1000)),
	)
	fake := &fakeController{}
	opts := []Option{WithMetrics(metrics.New("test", nil))}
	if withService {
		opts = append(opts, WithService(services.NewOysterService(st, fake)))
	}
	return NewServer(st, usdc, opts...).Engine("*"), st, fake
}

type response struct {
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	PageInfo *util.PageInfo  `json:"page_info"`
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (int, response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func ids(t *testing.T, data json.RawMessage) []string {
	t.Helper()
	var items []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestListJobs(t *testing.T) {
	r, _, _ := newTestServer(false)

	code, resp := do(t, r, http.MethodGet, "/api/v1/oyster/jobs?sort=balance&order=desc", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"0x1", "0x2"}, ids(t, resp.Data))

	_, resp = do(t, r, http.MethodGet, "/api/v1/oyster/jobs?sort=balance", nil)
	assert.Equal(t, []string{"0x2", "0x1"}, ids(t, resp.Data))

	_, resp = do(t, r, http.MethodGet, "/api/v1/oyster/jobs?search=BETA", nil)
	assert.Equal(t, []string{"0x2"}, ids(t, resp.Data))

	_, resp = do(t, r, http.MethodGet, "/api/v1/oyster/jobs?page=2&page_size=1", nil)
	assert.Equal(t, []string{"0x2"}, ids(t, resp.Data))
	require.NotNil(t, resp.PageInfo)
	assert.Equal(t, "2", resp.PageInfo.TotalRecordCount)

	code, resp = do(t, r, http.MethodGet, "/api/v1/oyster/jobs?sort=nope", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, util.ParamError, resp.Code)
}

func TestGetJob(t *testing.T) {
	r, _, _ := newTestServer(false)

	code, resp := do(t, r, http.MethodGet, "/api/v1/oyster/jobs/0x1", nil)
	require.Equal(t, http.StatusOK, code)
	var view struct {
		Balance        string `json:"balance_display"`
		RatePerHour    string `json:"rate_per_hour"`
		StatusVariant  string `json:"status_variant"`
		RevisePhase    string `json:"revise_phase"`
		DurationText   string `json:"duration_left_text"`
		DownScaledRate int64  `json:"down_scaled_rate"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, "5", view.Balance)
	assert.Equal(t, "3.6", view.RatePerHour)
	assert.Equal(t, "success", view.StatusVariant)
	assert.Equal(t, "none", view.RevisePhase)
	assert.Equal(t, int64(1000), view.DownScaledRate)
	assert.NotEmpty(t, view.DurationText)

	code, _ = do(t, r, http.MethodGet, "/api/v1/oyster/jobs/0x404", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListMarketplace(t *testing.T) {
	r, _, _ := newTestServer(false)

	cases := map[string][]string{
		"?region=us-east":                      {"a", "b"},
		"?region=us-east-1&exact=true":         {"a"},
		"?region=us-east&exact=true":           {},
		"?provider=All&sort=rate":              {"b", "c", "a"},
		"?provider=alpha&sort=rate&order=desc": {"a", "c"},
		"?vcpu=4&search=ohio":                  {},
		"?vcpu=4&search=0xbbb":                 {"b"},
		"?strict=true&rate=0.0001":             {"a"},
		"?strict=true&region=us-east":          {},
	}
	for query, want := range cases {
		code, resp := do(t, r, http.MethodGet, "/api/v1/oyster/marketplace"+query, nil)
		require.Equal(t, http.StatusOK, code, query)
		assert.Equal(t, want, ids(t, resp.Data), query)
	}

	code, _ := do(t, r, http.MethodGet, "/api/v1/oyster/marketplace?order=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMarketplaceFilters(t *testing.T) {
	r, _, _ := newTestServer(false)

	code, resp := do(t, r, http.MethodGet, "/api/v1/oyster/marketplace/filters?instance=c6a.xlarge&exact=true&keep=instance", nil)
	require.Equal(t, http.StatusOK, code)
	var filters struct {
		Instances []string `json:"instance"`
		Vcpus     []string `json:"vcpu"`
		Regions   []struct {
			Code string `json:"code"`
		} `json:"region"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &filters))
	assert.Equal(t, []string{"All", "c6a.xlarge", "m5.large"}, filters.Instances)
	assert.Equal(t, []string{"All", "4"}, filters.Vcpus)
	require.Len(t, filters.Regions, 3)
	assert.Equal(t, "us-east-2", filters.Regions[2].Code)

	code, _ = do(t, r, http.MethodGet, "/api/v1/oyster/marketplace/filters?keep=colour", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestProviderOffer(t *testing.T) {
	r, _, _ := newTestServer(false)
	code, resp := do(t, r, http.MethodGet, "/api/v1/oyster/marketplace/providers/0xaaa?instance=c6a.xlarge&region=us-east-1", nil)
	require.Equal(t, http.StatusOK, code)
	var offer struct {
		Instances []string `json:"instance"`
		Rate      string   `json:"rate"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &offer))
	assert.Equal(t, []string{"c6a.xlarge", "m5.large"}, offer.Instances)
	assert.Equal(t, "100", offer.Rate)
}

func TestActionsWithoutWallet(t *testing.T) {
	r, _, _ := newTestServer(false)
	code, resp := do(t, r, http.MethodPost, "/api/v1/oyster/jobs/0x1/stop", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, util.WalletNotConfigured, resp.Code)
}

func TestDeposit(t *testing.T) {
	r, st, _ := newTestServer(true)

	code, _ := do(t, r, http.MethodPost, "/api/v1/oyster/jobs/0x1/deposit", map[string]string{"amount": "1.5"})
	require.Equal(t, http.StatusOK, code)
	job, _ := st.Snapshot().FindJob("0x1")
	assert.Equal(t, "6500000", job.Balance.String())
	assert.Equal(t, int64(6500), job.DurationLeft)
	assert.Equal(t, "0xdep", job.DepositHistory[0].TxHash)

	code, _ = do(t, r, http.MethodPost, "/api/v1/oyster/jobs/0x1/deposit", map[string]string{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/oyster/jobs/0x1/deposit", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/oyster/jobs/0x404/deposit", map[string]string{"amount": "1"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRevise(t *testing.T) {
	r, st, fake := newTestServer(true)

	code, resp := do(t, r, http.MethodPost, "/api/v1/oyster/jobs/0x1/revise", map[string]string{"rate": "0.36"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "100000", fake.reviseRate.String())
	job, _ := st.Snapshot().FindJob("0x1")
	require.NotNil(t, job.ReviseRate)
	assert.Equal(t, int64(1700000000)+st.RateReviseWaitingTime(), job.ReviseRate.UpdatesAt)

	code, resp = do(t, r, http.MethodPost, "/api/v1/oyster/jobs/0x1/revise", map[string]string{"rate": "1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, util.RevisePending, resp.Code)
}

func TestCreateJob(t *testing.T) {
	r, st, fake := newTestServer(true)

	code, resp := do(t, r, http.MethodPost, "/api/v1/oyster/jobs", map[string]string{
		"provider": "0xAAA",
		"instance": "c6a.xlarge",
		"region":   "us-east-1",
		"duration": "2",
		"url":      "https://enclave",
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "100000", fake.openRate.String())
	assert.Equal(t, "720000", fake.openBalance.String())

	state := st.Snapshot()
	assert.Equal(t, "0xnew", state.JobsData[0].ID)
	assert.Equal(t, "100", state.JobsData[0].DownScaledRate.String())
	assert.Equal(t, int64(7200), state.JobsData[0].DurationLeft)
	assert.Equal(t, int64(4), *state.JobsData[0].Vcpu)
	assert.Equal(t, "https://enclave", state.JobsData[0].EnclaveURL)

	code, _ = do(t, r, http.MethodPost, "/api/v1/oyster/jobs", map[string]string{
		"provider": "0xbbb", "instance": "m5.large", "region": "eu-west-1", "duration": "1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMetricsRoute(t *testing.T) {
	r, _, _ := newTestServer(false)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStateStream(t *testing.T) {
	r, st, _ := newTestServer(false)
	ts := httptest.NewServer(r)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/oyster/state/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first models.State
	require.NoError(t, conn.ReadJSON(&first))
	assert.Len(t, first.JobsData, 2)

	st.UpdateJobIP("0x1", "10.0.0.7")
	var next models.State
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "10.0.0.7", next.JobsData[0].IP)
}

func TestProviderRegistration(t *testing.T) {
	r, st, _ := newTestServer(true)

	code, _ := do(t, r, http.MethodPost, "/api/v1/oyster/provider", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := do(t, r, http.MethodPost, "/api/v1/oyster/provider", map[string]string{"cp": "http://cp.example"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	provider := st.Snapshot().ProviderData
	assert.True(t, provider.Registered)
	assert.Equal(t, "http://cp.example", provider.Data.CP)

	code, _ = do(t, r, http.MethodDelete, "/api/v1/oyster/provider", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, st.Snapshot().ProviderData.Registered)
}

func TestReviseTimerEnd(t *testing.T) {
	r, st, _ := newTestServer(true)

	code, _ := do(t, r, http.MethodPost, "/api/v1/oyster/jobs/0x404/revise/timer-end", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, r, http.MethodPost, "/api/v1/oyster/jobs/0x1/revise/timer-end", nil)
	require.Equal(t, http.StatusOK, code)
	job, _ := st.Snapshot().FindJob("0x1")
	require.NotNil(t, job.ReviseRate)
	assert.Equal(t, constants.StopStatusCompleted, job.ReviseRate.StopStatus)
}
