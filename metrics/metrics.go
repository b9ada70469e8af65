// Package metrics provides Prometheus instrumentation for replays.
//
// Each Metrics owns its registry, so the web server can expose the counters
// of its own reloads without touching the global default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/taxlots/history"
	"github.com/robinvdvleuten/taxlots/lots"
)

// Metrics implements gains.Observer.
type Metrics struct {
	registry *prometheus.Registry

	// RecordsTotal counts processed records, partitioned by kind.
	RecordsTotal *prometheus.CounterVec
	// SkippedTotal counts skipped records, partitioned by reason.
	SkippedTotal *prometheus.CounterVec
	// DisposalsTotal counts disposals, partitioned by asset.
	DisposalsTotal *prometheus.CounterVec
	// LotsConsumed observes how many lots each disposal touched.
	LotsConsumed prometheus.Histogram
	// RealizedGain is the running realized gain or loss per asset in dollars.
	RealizedGain *prometheus.GaugeVec
	// Reloads counts web server reloads, partitioned by result.
	Reloads *prometheus.CounterVec
}

// New registers the replay metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taxlots_records_total",
			Help: "Ledger records processed by kind",
		}, []string{"kind"}),
		SkippedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taxlots_records_skipped_total",
			Help: "Ledger records skipped by reason",
		}, []string{"reason"}),
		DisposalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taxlots_disposals_total",
			Help: "Disposals matched against lots",
		}, []string{"asset"}),
		LotsConsumed: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxlots_lots_consumed",
			Help:    "Number of lots consumed per disposal",
			Buckets: []float64{1, 2, 3, 5, 10, 25, 50},
		}),
		RealizedGain: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taxlots_realized_gain_dollars",
			Help: "Realized gain or loss of the last replay by asset",
		}, []string{"asset"}),
		Reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taxlots_reloads_total",
			Help: "Report reloads by result",
		}, []string{"result"}),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Reset clears the realized gain gauge.
func (m *Metrics) Reset() {
	m.RealizedGain.Reset()
}

func (m *Metrics) RecordProcessed(kind history.Kind) {
	m.RecordsTotal.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) RecordSkipped(reason string) {
	m.SkippedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) Disposed(asset string, d *lots.Disposal) {
	m.countDisposal(asset, d)
	m.RealizedGain.WithLabelValues(asset).Add(d.GainOrLoss.InexactFloat64())
}

func (m *Metrics) countDisposal(asset string, d *lots.Disposal) {
	m.DisposalsTotal.WithLabelValues(asset).Inc()
	m.LotsConsumed.Observe(float64(len(d.Consumed)))
}

// Replay observes a single replay. Counters move as records arrive, while
// the realized gain gauge is only replaced by Commit, so a replay that fails
// halfway leaves the previous values in place.
type Replay struct {
	m     *Metrics
	gains map[string]decimal.Decimal
}

// NewReplay starts observing a replay.
func (m *Metrics) NewReplay() *Replay {
	return &Replay{m: m, gains: map[string]decimal.Decimal{}}
}

func (r *Replay) RecordProcessed(kind history.Kind) {
	r.m.RecordProcessed(kind)
}

func (r *Replay) RecordSkipped(reason string) {
	r.m.RecordSkipped(reason)
}

func (r *Replay) Disposed(asset string, d *lots.Disposal) {
	r.m.countDisposal(asset, d)
	r.gains[asset] = r.gains[asset].Add(d.GainOrLoss)
}

// Commit replaces the realized gain gauge with the totals of this replay.
func (r *Replay) Commit() {
	r.m.RealizedGain.Reset()
	for asset, gain := range r.gains {
		r.m.RealizedGain.WithLabelValues(asset).Set(gain.InexactFloat64())
	}
}

// Handler returns the Prometheus HTTP handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
