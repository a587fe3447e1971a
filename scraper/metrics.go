package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper. One instance may
// be shared by parallel sessions.
type Metrics struct {
	Registry               *prometheus.Registry
	DriverCallsTotal       *prometheus.CounterVec
	DriverCallDuration     *prometheus.HistogramVec
	ScrollRoundsTotal      prometheus.Counter
	ReviewsExtractedTotal  prometheus.Counter
	DuplicatesTotal        prometheus.Counter
	ExtractionErrorsTotal  prometheus.Counter
	StallsTotal            prometheus.Counter
	RetriesTotal           prometheus.Counter
	ErrorsTotal            *prometheus.CounterVec
	SessionsCompletedTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	driverCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_driver_calls_total",
			Help: "Total page driver calls issued by the scroll loop.",
		},
		[]string{"op"},
	)
	driverDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_driver_call_duration_seconds",
			Help:    "Page driver call latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	scrollRounds := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_scroll_rounds_total",
			Help: "Total scroll-and-wait rounds.",
		},
	)
	reviews := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_reviews_extracted_total",
			Help: "Total number of new reviews appended to the sink.",
		},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_duplicates_total",
			Help: "Total number of already-seen reviews skipped.",
		},
	)
	extractionErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_extraction_errors_total",
			Help: "Total number of list items that could not be extracted.",
		},
	)
	stalls := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_stalls_total",
			Help: "Total scroll rounds that produced no new items.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of driver call retries scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)
	sessions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_sessions_completed_total",
			Help: "Finished sessions by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(driverCalls, driverDuration, scrollRounds, reviews, duplicates,
		extractionErrors, stalls, retries, errorsTotal, sessions)

	return &Metrics{
		Registry:               registry,
		DriverCallsTotal:       driverCalls,
		DriverCallDuration:     driverDuration,
		ScrollRoundsTotal:      scrollRounds,
		ReviewsExtractedTotal:  reviews,
		DuplicatesTotal:        duplicates,
		ExtractionErrorsTotal:  extractionErrors,
		StallsTotal:            stalls,
		RetriesTotal:           retries,
		ErrorsTotal:            errorsTotal,
		SessionsCompletedTotal: sessions,
	}
}

// ObserveDriverCall records one driver call and its latency.
func (m *Metrics) ObserveDriverCall(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.DriverCallsTotal.WithLabelValues(op).Inc()
	m.DriverCallDuration.WithLabelValues(op).Observe(d.Seconds())
}

// IncScrollRounds increments the scroll rounds counter.
func (m *Metrics) IncScrollRounds() {
	if m == nil {
		return
	}
	m.ScrollRoundsTotal.Inc()
}

// IncItems increments the reviews extracted counter.
func (m *Metrics) IncItems() {
	if m == nil {
		return
	}
	m.ReviewsExtractedTotal.Inc()
}

// IncDuplicates increments the duplicates counter.
func (m *Metrics) IncDuplicates() {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Inc()
}

// IncExtractionErrors increments the extraction errors counter.
func (m *Metrics) IncExtractionErrors() {
	if m == nil {
		return
	}
	m.ExtractionErrorsTotal.Inc()
}

// IncStalls increments the stalls counter.
func (m *Metrics) IncStalls() {
	if m == nil {
		return
	}
	m.StallsTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncSession records a finished session outcome.
func (m *Metrics) IncSession(outcome string) {
	if m == nil {
		return
	}
	m.SessionsCompletedTotal.WithLabelValues(outcome).Inc()
}
