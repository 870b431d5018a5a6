package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics captures verification pipeline health signals.
type PipelineMetrics struct {
	decisions          *prometheus.CounterVec
	processingDuration prometheus.Histogram
	ocrDuration        prometheus.Histogram
	ocrFailures        prometheus.Counter
	fraudScore         prometheus.Histogram
	checkErrors        *prometheus.CounterVec
	queueDepth         prometheus.Gauge
	queueDropped       prometheus.Counter
}

func NewPipelineMetrics() *PipelineMetrics {
	m := newPipelineMetrics()
	m.mustRegister(prometheus.DefaultRegisterer)
	return m
}

func newPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_pipeline_decisions_total",
			Help: "Verification decisions by resulting status and method.",
		}, []string{"status", "method"}),
		processingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verify_pipeline_duration_seconds",
			Help:    "Wall time of a full pipeline run.",
			Buckets: prometheus.DefBuckets,
		}),
		ocrDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verify_ocr_duration_seconds",
			Help:    "Wall time of OCR extraction calls.",
			Buckets: prometheus.DefBuckets,
		}),
		ocrFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verify_ocr_failures_total",
			Help: "OCR extraction failures, including timeouts.",
		}),
		fraudScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verify_fraud_score",
			Help:    "Distribution of computed fraud scores.",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		checkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_fraud_check_errors_total",
			Help: "Fraud check failures by check name.",
		}, []string{"check"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "verify_worker_queue_depth",
			Help: "Jobs currently buffered in the verification queue.",
		}),
		queueDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verify_worker_queue_dropped_total",
			Help: "Jobs rejected because the verification queue was full.",
		}),
	}
}

func (m *PipelineMetrics) mustRegister(r prometheus.Registerer) {
	r.MustRegister(
		m.decisions,
		m.processingDuration,
		m.ocrDuration,
		m.ocrFailures,
		m.fraudScore,
		m.checkErrors,
		m.queueDepth,
		m.queueDropped,
	)
}

func (m *PipelineMetrics) ObserveDecision(status, method string, seconds float64) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(status, method).Inc()
	m.processingDuration.Observe(seconds)
}

func (m *PipelineMetrics) ObserveOCR(seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.ocrDuration.Observe(seconds)
	if failed {
		m.ocrFailures.Inc()
	}
}

func (m *PipelineMetrics) ObserveFraudScore(score int) {
	if m == nil {
		return
	}
	m.fraudScore.Observe(float64(score))
}

func (m *PipelineMetrics) CheckError(check string) {
	if m == nil {
		return
	}
	m.checkErrors.WithLabelValues(check).Inc()
}

func (m *PipelineMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *PipelineMetrics) QueueDropped() {
	if m == nil {
		return
	}
	m.queueDropped.Inc()
}
