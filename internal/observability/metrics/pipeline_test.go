package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDecision(t *testing.T) {
	m := newPipelineMetrics()

	m.ObserveDecision("approved", "automatic", 0.5)
	m.ObserveDecision("approved", "automatic", 0.7)
	m.ObserveDecision("rejected", "manual", 0.1)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.decisions.WithLabelValues("approved", "automatic")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.decisions.WithLabelValues("rejected", "manual")))
}

func TestQueueAndCheckCounters(t *testing.T) {
	m := newPipelineMetrics()

	m.SetQueueDepth(7)
	m.QueueDropped()
	m.QueueDropped()
	m.CheckError("duplicate_image")
	m.ObserveOCR(0.2, true)

	assert.Equal(t, float64(7), testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.queueDropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.checkErrors.WithLabelValues("duplicate_image")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ocrFailures))
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *PipelineMetrics
	m.ObserveDecision("approved", "automatic", 0)
	m.ObserveFraudScore(10)
	m.SetQueueDepth(1)
	m.QueueDropped()
	m.CheckError("x")
	m.ObserveOCR(0, false)
}
