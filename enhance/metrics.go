package enhance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ResultLabel classifies how a stage invocation ended.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultError    ResultLabel = "error"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder receives pipeline measurements. Implementations must be safe for
// concurrent use; EnhanceAll runs pages in parallel.
type Recorder interface {
	// ObserveStageDuration records how long one stage took on one body.
	ObserveStageDuration(stage string, d time.Duration)

	// ObserveEnhanceDuration records the whole pipeline's time on one body.
	ObserveEnhanceDuration(d time.Duration)

	// IncStageResult counts a stage invocation by outcome.
	IncStageResult(stage string, result ResultLabel)

	// IncBodiesEnhanced counts a body that made it through every stage.
	IncBodiesEnhanced()
}

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

// NoopRecorder discards all measurements.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveEnhanceDuration(time.Duration)       {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBodiesEnhanced()                         {}

// PrometheusRecorder exports pipeline measurements as Prometheus metrics.
// All methods are safe to call on a nil receiver, so callers can thread an
// optional recorder without guarding every call site.
type PrometheusRecorder struct {
	stageDuration   *prometheus.HistogramVec
	enhanceDuration prometheus.Histogram
	stageResults    *prometheus.CounterVec
	bodiesEnhanced  prometheus.Counter
}

// NewPrometheusRecorder registers the pipeline metrics with reg and returns
// the recorder. A nil reg falls back to the default registerer. Registration
// panics on collision, same as prometheus.MustRegister.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bodywork",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in one enhancer stage on one body.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		enhanceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bodywork",
			Name:      "enhance_duration_seconds",
			Help:      "Time spent running the full pipeline on one body.",
			Buckets:   prometheus.DefBuckets,
		}),
		stageResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bodywork",
			Name:      "stage_results_total",
			Help:      "Stage invocations by outcome.",
		}, []string{"stage", "result"}),
		bodiesEnhanced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bodywork",
			Name:      "bodies_enhanced_total",
			Help:      "Bodies that completed every stage.",
		}),
	}
	reg.MustRegister(r.stageDuration, r.enhanceDuration, r.stageResults, r.bodiesEnhanced)
	return r
}

func (r *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *PrometheusRecorder) ObserveEnhanceDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.enhanceDuration.Observe(d.Seconds())
}

func (r *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if r == nil {
		return
	}
	r.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (r *PrometheusRecorder) IncBodiesEnhanced() {
	if r == nil {
		return
	}
	r.bodiesEnhanced.Inc()
}
