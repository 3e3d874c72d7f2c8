package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "testplan"

type Metrics struct {
	TicketFetches      *prometheus.CounterVec
	GenerationAttempts *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	TemplateUploads    *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

var (
	once   sync.Once
	global *Metrics
)

// Global returns the process-wide collectors, registering them on first use.
func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			TicketFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jira_fetches_total",
				Help:      "Ticket fetches against JIRA by outcome",
			}, []string{"outcome"}),
			GenerationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_attempts_total",
				Help:      "Provider generation attempts by provider and outcome",
			}, []string{"provider", "outcome"}),
			GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Wall-clock time of successful generations",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			}, []string{"provider"}),
			TemplateUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "template_uploads_total",
				Help:      "Template uploads by outcome",
			}, []string{"outcome"}),
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status class",
			}, []string{"route", "status"}),
		}
		prometheus.MustRegister(
			global.TicketFetches,
			global.GenerationAttempts,
			global.GenerationDuration,
			global.TemplateUploads,
			global.HTTPRequests,
		)
	})
	return global
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
