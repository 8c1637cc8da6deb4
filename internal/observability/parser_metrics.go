package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ParserCollector exposes RDF parse metrics. It satisfies rdf.Metrics.
type ParserCollector struct {
	gatherer prometheus.Gatherer

	Records       prometheus.Counter
	Comments      prometheus.Counter
	Warnings      *prometheus.CounterVec
	Includes      prometheus.Counter
	UnitLookups   *prometheus.CounterVec
	ParseDuration *prometheus.HistogramVec
	Reloads       *prometheus.CounterVec
}

// NewParserCollector registers parser metrics against the provided registerer.
func NewParserCollector(reg prometheus.Registerer) (*ParserCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	records, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rdf_records_total",
		Help: "Records produced by RDF parses.",
	}), "rdf_records_total")
	if err != nil {
		return nil, err
	}
	comments, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rdf_comments_total",
		Help: "Comment lines seen by RDF parses.",
	}), "rdf_comments_total")
	if err != nil {
		return nil, err
	}
	warnings, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rdf_warnings_total",
		Help: "Per-line RDF warnings, labeled by kind.",
	}, []string{"kind"}), "rdf_warnings_total")
	if err != nil {
		return nil, err
	}
	includes, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rdf_includes_total",
		Help: "Sources opened through INCLUDE.",
	}), "rdf_includes_total")
	if err != nil {
		return nil, err
	}
	lookups, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rdf_unit_lookups_total",
		Help: "Unit conversions attempted while parsing, labeled by result (hit, miss, non_numeric).",
	}, []string{"result"}), "rdf_unit_lookups_total")
	if err != nil {
		return nil, err
	}
	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rdf_parse_duration_seconds",
		Help:    "Duration of complete RDF parses, includes and all, labeled by outcome.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"outcome"}), "rdf_parse_duration_seconds")
	if err != nil {
		return nil, err
	}
	reloads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rdf_reloads_total",
		Help: "Configuration reloads triggered by file changes, labeled by outcome.",
	}, []string{"outcome"}), "rdf_reloads_total")
	if err != nil {
		return nil, err
	}

	return &ParserCollector{
		gatherer:      gatherer,
		Records:       records,
		Comments:      comments,
		Warnings:      warnings,
		Includes:      includes,
		UnitLookups:   lookups,
		ParseDuration: durations,
		Reloads:       reloads,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ParserCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a /metrics handler over the collector's gatherer.
func (c *ParserCollector) Handler() http.Handler {
	return handlerFor(c.Gatherer())
}

func (c *ParserCollector) ObserveRecord() {
	if c == nil || c.Records == nil {
		return
	}
	c.Records.Inc()
}

func (c *ParserCollector) ObserveComment() {
	if c == nil || c.Comments == nil {
		return
	}
	c.Comments.Inc()
}

// ObserveWarning counts a per-line warning of the given kind.
func (c *ParserCollector) ObserveWarning(kind string) {
	if c == nil || c.Warnings == nil {
		return
	}
	c.Warnings.WithLabelValues(kind).Inc()
}

func (c *ParserCollector) ObserveInclude() {
	if c == nil || c.Includes == nil {
		return
	}
	c.Includes.Inc()
}

// ObserveUnitLookup counts a unit conversion by result.
func (c *ParserCollector) ObserveUnitLookup(result string) {
	if c == nil || c.UnitLookups == nil {
		return
	}
	c.UnitLookups.WithLabelValues(result).Inc()
}

// ObserveParse records the duration of a finished parse.
func (c *ParserCollector) ObserveParse(d time.Duration, err error) {
	if c == nil || c.ParseDuration == nil {
		return
	}
	c.ParseDuration.WithLabelValues(outcome(err)).Observe(d.Seconds())
}

// ObserveReload counts a reload attempt.
func (c *ParserCollector) ObserveReload(err error) {
	if c == nil || c.Reloads == nil {
		return
	}
	c.Reloads.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
