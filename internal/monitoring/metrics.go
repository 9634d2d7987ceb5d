package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cell status label values.
const (
	StatusComputed = "computed"
	StatusFailed   = "failed"
)

// Metrics holds the counters of one evaluation run on a private registry, so
// that runs and tests do not share state.
type Metrics struct {
	Registry *prometheus.Registry

	// Rows counts evaluated input rows.
	Rows prometheus.Counter
	// Cells counts (row, formula) outcomes by status.
	Cells *prometheus.CounterVec
	// Failures counts failed cells by formula.
	Failures *prometheus.CounterVec
	// ExcludedFormulas is the number of formulas that could not be described.
	ExcludedFormulas prometheus.Gauge
	// StageDuration tracks the wall time of each pipeline stage.
	StageDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Rows: f.NewCounter(prometheus.CounterOpts{
			Name: "stemvolume_rows_total",
			Help: "Input rows evaluated",
		}),
		Cells: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stemvolume_cells_total",
			Help: "Evaluated (row, formula) cells by status",
		}, []string{"status"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stemvolume_formula_failures_total",
			Help: "Failed cells by formula",
		}, []string{"formula"}),
		ExcludedFormulas: f.NewGauge(prometheus.GaugeOpts{
			Name: "stemvolume_excluded_formulas",
			Help: "Formulas excluded from evaluation by configuration errors",
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stemvolume_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4min
		}, []string{"stage"}),
	}
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
