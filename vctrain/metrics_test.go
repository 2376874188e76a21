package vctrain

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserve(t *testing.T) {
	trainer, _ := testTrainer(t)
	batch, err := trainer.Fetch(testSamples(4))
	require.NoError(t, err)
	trainer.Gradient(batch)

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "anyvc")
	m.Observe(trainer.LastResult)
	m.Observe(trainer.LastResult)

	result := trainer.LastResult
	assert.InDelta(t, trainer.LastCost, testutil.ToFloat64(m.Loss), 1e-6)
	for name, value := range result.Losses {
		assert.InDelta(t, value, testutil.ToFloat64(m.SubLosses.WithLabelValues(name)), 1e-9)
	}
	alphas := result.Diagnostics.AlphasBar
	assert.Equal(t, alphas[0], testutil.ToFloat64(m.AlphasBar.WithLabelValues("first")))
	assert.Equal(t, alphas[len(alphas)-1],
		testutil.ToFloat64(m.AlphasBar.WithLabelValues("last")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Steps))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}
