package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "meterloader"

// File statuses used as the status label of FilesProcessed.
const (
	StatusLoaded  = "loaded"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

type Metrics struct {
	FilesProcessed   *prometheus.CounterVec
	RowsInserted     prometheus.Counter
	RowsFailed       prometheus.Counter
	MetersCreated    prometheus.Counter
	ResolveCacheHits prometheus.Counter
	ResolveRetries   prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the loader metrics with reg. reg must also be a
// prometheus.Gatherer for Push to work; *prometheus.Registry is both.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Data files processed, by outcome.",
		}, []string{"status"}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_inserted_total",
			Help:      "Readings inserted into MeterData.",
		}),
		RowsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_failed_total",
			Help:      "Rows that could not be parsed, resolved or inserted.",
		}),
		MetersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meters_created_total",
			Help:      "Meters added to the registry by this process.",
		}),
		ResolveCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_cache_hits_total",
			Help:      "Meter names resolved from the local cache.",
		}),
		ResolveRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_lost_races_total",
			Help:      "Registry inserts that lost to a concurrent insert of the same name.",
		}),
	}
	reg.MustRegister(m.FilesProcessed, m.RowsInserted, m.RowsFailed, m.MetersCreated, m.ResolveCacheHits, m.ResolveRetries)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// NewNop returns metrics registered on a private registry, for tests and
// callers that do not export them.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Push sends the current values to a Pushgateway under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m.gatherer == nil {
		return fmt.Errorf("metrics registry cannot be gathered")
	}
	if err := push.New(url, job).Gatherer(m.gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
