package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulSpaurgen/interface-v2/internal/store"
)

func TestObserverCounts(t *testing.T) {
	m := New("test", nil)
	var _ store.Observer = m

	m.Applied(store.CategoryJobs)
	m.Applied(store.CategoryJobs)
	m.StaleDropped(store.CategoryMarketplace)
	m.IndexerFailure("jobs")
	m.OperatorFailure("job_status")
	m.Transaction("jobDeposit", nil)
	m.Transaction("jobDeposit", errors.New("reverted"))
	m.ObserveRound(120 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreUpdates.WithLabelValues("jobs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleDrops.WithLabelValues("marketplace")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexerFailures.WithLabelValues("jobs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperatorFailures.WithLabelValues("job_status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("jobDeposit", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncRounds))
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("test", nil)
	m.Applied(store.CategoryAllowance)

	r := gin.New()
	r.GET("/metrics", m.Handler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `oyster_store_updates_total{category="allowance",server="test"} 1`)
}
