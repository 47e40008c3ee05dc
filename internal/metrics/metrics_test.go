package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOracleCall("openai", "role_extraction", 200*time.Millisecond, nil)
	m.ObserveOracleCall("openai", "role_extraction", time.Second, errors.New("timeout"))
	m.IncrementFallback("role_extraction")
	m.ObserveTurn("banking", "disclosed", 8.7, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleFallbacks.WithLabelValues("role_extraction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnOutcome.WithLabelValues("banking", "disclosed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.OracleLatency))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOracleCall("openai", "x", time.Second, nil)
		m.IncrementFallback("x")
		m.ObserveTurn("banking", "refused", 0, time.Second)
	})
}
