package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourorg/wallet-credit-score/internal/circuitbreaker"
	"github.com/yourorg/wallet-credit-score/internal/model"
)

// Metrics holds the Prometheus collectors of a batch run. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	wallets       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	scoreValue    *prometheus.HistogramVec
	circuitState  prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		wallets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_score_wallets_total",
				Help: "Total number of wallets scored",
			},
			[]string{"mode", "status"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_score_fetch_duration_seconds",
				Help:    "Subgraph fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		scoreValue: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_score_value",
				Help:    "Distribution of computed scores",
				Buckets: prometheus.LinearBuckets(100, 100, 10),
			},
			[]string{"mode"},
		),
		circuitState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wallet_score_circuit_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
		),
	}

	m.registry.MustRegister(
		m.wallets,
		m.fetchDuration,
		m.scoreValue,
		m.circuitState,
	)
	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes the metrics in the Prometheus text format, suitable for
// the node_exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func (m *Metrics) observeRecord(mode model.Source, r model.ScoreRecord) {
	if m == nil {
		return
	}
	m.wallets.WithLabelValues(string(mode), string(r.Status)).Inc()
	if r.Status != model.StatusFetchFailed {
		m.scoreValue.WithLabelValues(string(mode)).Observe(float64(r.Score))
	}
}

func (m *Metrics) observeFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fetchDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) setCircuitState(s circuitbreaker.State) {
	if m == nil {
		return
	}
	m.circuitState.Set(float64(s))
}
