package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of one normalization attempt.
const (
	OutcomePassthrough  = "passthrough"
	OutcomeReencoded    = "reencoded"
	OutcomeTooLarge     = "too_large"
	OutcomeDecodeFailed = "decode_failed"
)

// Collector groups the capture metrics. A nil *Collector records nothing, so
// services can run without metrics wired.
type Collector struct {
	responsesRecorded *prometheus.CounterVec
	responsesRejected *prometheus.CounterVec
	missingMetadata   prometheus.Counter
	sinkFailures      prometheus.Counter
	imagesNormalized  *prometheus.CounterVec
	normalizeDuration prometheus.Histogram
}

func New(namespace string) *Collector {
	return &Collector{
		responsesRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_recorded_total",
				Help:      "Total number of accepted interaction responses",
			},
			[]string{"interaction_kind", "value_kind"},
		),
		responsesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_rejected_total",
				Help:      "Total number of rejected candidate values",
			},
			[]string{"reason"},
		),
		missingMetadata: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_question_metadata_total",
			Help:      "Judged responses recorded without question metadata",
		}),
		sinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Responses the sink failed to accept",
		}),
		imagesNormalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "images_normalized_total",
				Help:      "Image normalization attempts by outcome",
			},
			[]string{"outcome"},
		),
		normalizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_normalize_duration_seconds",
			Help:      "Duration of image normalization",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.responsesRecorded.Describe(ch)
	c.responsesRejected.Describe(ch)
	c.missingMetadata.Describe(ch)
	c.sinkFailures.Describe(ch)
	c.imagesNormalized.Describe(ch)
	c.normalizeDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.responsesRecorded.Collect(ch)
	c.responsesRejected.Collect(ch)
	c.missingMetadata.Collect(ch)
	c.sinkFailures.Collect(ch)
	c.imagesNormalized.Collect(ch)
	c.normalizeDuration.Collect(ch)
}

func (c *Collector) ResponseRecorded(interactionKind, valueKind string) {
	if c == nil {
		return
	}
	c.responsesRecorded.WithLabelValues(interactionKind, valueKind).Inc()
}

func (c *Collector) ResponseRejected(reason string) {
	if c == nil {
		return
	}
	c.responsesRejected.WithLabelValues(reason).Inc()
}

func (c *Collector) MissingMetadata() {
	if c == nil {
		return
	}
	c.missingMetadata.Inc()
}

func (c *Collector) SinkFailed() {
	if c == nil {
		return
	}
	c.sinkFailures.Inc()
}

func (c *Collector) ImageNormalized(outcome string, took time.Duration) {
	if c == nil {
		return
	}
	c.imagesNormalized.WithLabelValues(outcome).Inc()
	c.normalizeDuration.Observe(took.Seconds())
}
