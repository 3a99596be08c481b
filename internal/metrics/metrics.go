package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PaulSpaurgen/interface-v2/internal/store"
)

// Metrics holds the collectors of an oyster node. It implements store.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	StoreUpdates     *prometheus.CounterVec
	StaleDrops       *prometheus.CounterVec
	IndexerFailures  *prometheus.CounterVec
	OperatorFailures *prometheus.CounterVec
	SyncRounds       prometheus.Counter
	SyncDuration     prometheus.Histogram
	Transactions     *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(serverName string, reg *prometheus.Registry) *Metrics {
	if serverName == "" {
		panic("server name must be provided")
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	labels := prometheus.Labels{"server": serverName}

	m := &Metrics{
		gatherer: reg,
		StoreUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "oyster_store_updates_total",
			Help:        "Total number of updates applied to the store",
			ConstLabels: labels,
		}, []string{"category"}),
		StaleDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "oyster_store_stale_drops_total",
			Help:        "Total number of refresh results dropped because a newer one was issued",
			ConstLabels: labels,
		}, []string{"category"}),
		IndexerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "oyster_indexer_failures_total",
			Help:        "Total number of indexer queries that fell back to a default",
			ConstLabels: labels,
		}, []string{"query"}),
		OperatorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "oyster_operator_failures_total",
			Help:        "Total number of operator api requests that fell back to a default",
			ConstLabels: labels,
		}, []string{"endpoint"}),
		SyncRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "oyster_sync_rounds_total",
			Help:        "Total number of refresh rounds",
			ConstLabels: labels,
		}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "oyster_sync_duration_seconds",
			Help:        "Duration of a refresh round",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "oyster_transactions_total",
			Help:        "Total number of contract transactions by action and result",
			ConstLabels: labels,
		}, []string{"action", "result"}),
	}

	reg.MustRegister(m.StoreUpdates, m.StaleDrops, m.IndexerFailures, m.OperatorFailures,
		m.SyncRounds, m.SyncDuration, m.Transactions)
	return m
}

func (m *Metrics) Applied(category store.Category) {
	m.StoreUpdates.WithLabelValues(string(category)).Inc()
}

func (m *Metrics) StaleDropped(category store.Category) {
	m.StaleDrops.WithLabelValues(string(category)).Inc()
}

// IndexerFailure is meant for subgraph.WithFailureHook.
func (m *Metrics) IndexerFailure(query string) {
	m.IndexerFailures.WithLabelValues(query).Inc()
}

// OperatorFailure is meant for market.WithFailureHook.
func (m *Metrics) OperatorFailure(endpoint string) {
	m.OperatorFailures.WithLabelValues(endpoint).Inc()
}

// ObserveRound is meant for syncer.WithRoundHook.
func (m *Metrics) ObserveRound(d time.Duration) {
	m.SyncRounds.Inc()
	m.SyncDuration.Observe(d.Seconds())
}

func (m *Metrics) Transaction(action string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Transactions.WithLabelValues(action, result).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
