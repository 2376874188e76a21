package vctrain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/unixpickle/anyvc"
)

// Metrics exports training progress to Prometheus.
type Metrics struct {
	Loss      prometheus.Gauge
	SubLosses *prometheus.GaugeVec
	AlphasBar *prometheus.GaugeVec
	Steps     prometheus.Counter
}

// NewMetrics creates and registers the training metrics.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Loss: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loss",
			Help:      "Total loss of the last training batch",
		}),
		SubLosses: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sub_loss",
			Help:      "Named terms of the loss for the last training batch",
		}, []string{"name"}),
		AlphasBar: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alphas_bar",
			Help:      "Signal retained at the boundaries of the noise schedule",
		}, []string{"boundary"}),
		Steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Number of optimization steps taken",
		}),
	}
}

// Observe records the result of a training step.
func (m *Metrics) Observe(r *anyvc.Result) {
	m.Loss.Set(anyvc.VectorFloats(r.Loss.Output())[0])
	for name, value := range r.Losses {
		m.SubLosses.WithLabelValues(name).Set(value)
	}
	if alphas := r.Diagnostics.AlphasBar; len(alphas) > 0 {
		m.AlphasBar.WithLabelValues("first").Set(alphas[0])
		m.AlphasBar.WithLabelValues("last").Set(alphas[len(alphas)-1])
	}
	m.Steps.Inc()
}
