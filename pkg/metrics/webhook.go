package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records outcomes for gateway webhook processing.
type WebhookMetrics struct {
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handle_duration_seconds",
		Help:    "Duration of webhook event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook events received, labeled by outcome.",
	}, []string{"event", "outcome"})
	reg.MustRegister(duration, events)
	return &WebhookMetrics{
		duration: duration,
		events:   events,
	}
}

// ObserveDuration records how long handling the named event took.
func (w *WebhookMetrics) ObserveDuration(event string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(event)).Observe(duration.Seconds())
}

// IncProcessed counts an event whose handler ran to completion.
func (w *WebhookMetrics) IncProcessed(event string) {
	w.inc(event, "processed")
}

// IncSkipped counts an event that was deduplicated or had no handler.
func (w *WebhookMetrics) IncSkipped(event string) {
	w.inc(event, "skipped")
}

// IncFailed counts an event whose handler returned an error.
func (w *WebhookMetrics) IncFailed(event string) {
	w.inc(event, "failed")
}

func (w *WebhookMetrics) inc(event, outcome string) {
	if w == nil || w.events == nil {
		return
	}
	w.events.WithLabelValues(normalizeLabel(event), outcome).Inc()
}

func normalizeLabel(event string) string {
	if event == "" {
		return "unknown"
	}
	return event
}
