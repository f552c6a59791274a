package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/universal-inbox/universal-inbox/internal/core"
)

// Ensure Metrics implements Recorder interface at compile time
var _ core.Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the sync core
type Metrics struct {
	SyncRunsTotal         *prometheus.CounterVec
	SyncRunDuration       *prometheus.HistogramVec
	ItemUpsertsTotal      *prometheus.CounterVec
	StaleItemsSweptTotal  *prometheus.CounterVec
	ConnectionTransitions *prometheus.CounterVec
	BrokerRequestsTotal   *prometheus.CounterVec
	BrokerRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics with the given registerer.
// Pass prometheus.DefaultRegisterer for production use.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SyncRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "universal_inbox_sync_runs_total",
			Help: "Total number of sync passes by provider and result",
		}, []string{"provider", "result"}),

		SyncRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "universal_inbox_sync_run_duration_seconds",
			Help:    "Duration of sync passes",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),

		ItemUpsertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "universal_inbox_item_upserts_total",
			Help: "Cascade writes that actually modified state, by provider and layer",
		}, []string{"provider", "layer"}),

		StaleItemsSweptTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "universal_inbox_stale_items_swept_total",
			Help: "Items marked done because they disappeared upstream",
		}, []string{"provider"}),

		ConnectionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "universal_inbox_connection_transitions_total",
			Help: "Integration connection status transitions",
		}, []string{"provider", "from", "to"}),

		BrokerRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "universal_inbox_broker_requests_total",
			Help: "OAuth broker requests by operation and success",
		}, []string{"operation", "success"}),

		BrokerRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "universal_inbox_broker_request_duration_seconds",
			Help:    "OAuth broker request round-trip time",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) RecordSyncRun(provider, result string, duration time.Duration) {
	m.SyncRunsTotal.WithLabelValues(provider, result).Inc()
	m.SyncRunDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordItemUpsert(provider, layer string) {
	m.ItemUpsertsTotal.WithLabelValues(provider, layer).Inc()
}

func (m *Metrics) RecordStaleSweep(provider string, count int) {
	m.StaleItemsSweptTotal.WithLabelValues(provider).Add(float64(count))
}

func (m *Metrics) RecordConnectionTransition(provider, from, to string) {
	m.ConnectionTransitions.WithLabelValues(provider, from, to).Inc()
}

func (m *Metrics) RecordBrokerRequest(operation string, success bool, duration time.Duration) {
	m.BrokerRequestsTotal.WithLabelValues(operation, strconv.FormatBool(success)).Inc()
	m.BrokerRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Noop is a Recorder that discards everything. Used in tests and when
// metrics are disabled.
type Noop struct{}

var _ core.Recorder = Noop{}

func (Noop) RecordSyncRun(string, string, time.Duration)       {}
func (Noop) RecordItemUpsert(string, string)                   {}
func (Noop) RecordStaleSweep(string, int)                      {}
func (Noop) RecordConnectionTransition(string, string, string) {}
func (Noop) RecordBrokerRequest(string, bool, time.Duration)   {}
