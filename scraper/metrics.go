package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry       *prometheus.Registry
	RunsTotal      *prometheus.CounterVec
	PagesTotal     *prometheus.CounterVec
	PageDuration   prometheus.Histogram
	LinksHarvested prometheus.Counter
	RecordsTotal   prometheus.Counter
	ErrorsTotal    *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_runs_total",
			Help: "Scraping runs by site and outcome.",
		},
		[]string{"site", "outcome"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Product pages processed by outcome.",
		},
		[]string{"outcome"},
	)
	pageDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_page_duration_seconds",
			Help:    "Time from opening a product page to its parsed record.",
			Buckets: []float64{1, 2.5, 5, 7.5, 10, 15, 30, 60},
		},
	)
	links := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_links_harvested_total",
			Help: "Product links accepted from search results.",
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Product records produced.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(runs, pages, pageDuration, links, records, errorsTotal)

	return &Metrics{
		Registry:       registry,
		RunsTotal:      runs,
		PagesTotal:     pages,
		PageDuration:   pageDuration,
		LinksHarvested: links,
		RecordsTotal:   records,
		ErrorsTotal:    errorsTotal,
	}
}

// IncRun counts a finished run.
func (m *Metrics) IncRun(site, outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(site, outcome).Inc()
}

// IncPage counts a processed product page.
func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records a product page duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.PageDuration.Observe(d.Seconds())
}

// AddLinks adds harvested links.
func (m *Metrics) AddLinks(n int) {
	if m == nil {
		return
	}
	m.LinksHarvested.Add(float64(n))
}

// IncRecords increments the records counter.
func (m *Metrics) IncRecords() {
	if m == nil {
		return
	}
	m.RecordsTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
