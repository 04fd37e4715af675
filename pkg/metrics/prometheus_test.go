package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordCycle("success", 120*time.Millisecond)
	r.RecordCycle("success", 80*time.Millisecond)
	r.RecordCycle("failure", time.Second)
	r.RecordEndpoint("strategy", "ok")
	r.RecordEndpoint("strategy", "unauthorized")
	r.RecordDecode("regime", "malformed")
	r.RecordSinkError("kafka")
	r.SetActiveOrchestrators(3)
	r.SetBreakerState("news", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.cycles.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.endpoints.WithLabelValues("strategy", "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decodes.WithLabelValues("regime", "malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sinkErrors.WithLabelValues("kafka")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.orchestrators))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.breakerState.WithLabelValues("news")))

	n, err := testutil.GatherAndCount(reg, "signaldesk_poll_cycle_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
