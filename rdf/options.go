package rdf

import (
	"time"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/units"
)

// Metrics receives parse-level observations. internal/observability's
// ParserCollector implements it.
type Metrics interface {
	ObserveRecord()
	ObserveComment()
	ObserveWarning(kind string)
	ObserveInclude()
	ObserveUnitLookup(result string)
	ObserveParse(d time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRecord()                    {}
func (nopMetrics) ObserveComment()                   {}
func (nopMetrics) ObserveWarning(string)             {}
func (nopMetrics) ObserveInclude()                   {}
func (nopMetrics) ObserveUnitLookup(string)          {}
func (nopMetrics) ObserveParse(time.Duration, error) {}

type options struct {
	glossary     *units.Glossary
	log          logging.Logger
	metrics      Metrics
	wrap         string
	baseDir      string
	foldKeywords bool
}

// Option configures a Parser.
type Option func(*options)

// WithGlossary sets the unit glossary. UNIT verbs register into it. The
// default is units.Default().
func WithGlossary(g *units.Glossary) Option {
	return func(o *options) {
		if g != nil {
			o.glossary = g
		}
	}
}

// WithLogger sets the logger for parse diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithWrap sets the line-continuation character. An empty string disables
// continuation.
func WithWrap(wrap string) Option {
	return func(o *options) { o.wrap = wrap }
}

// WithBaseDir sets the directory relative INCLUDE paths of an in-memory
// source resolve against. Files always resolve against their own directory.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// WithCaseInsensitiveKeywords matches verb keywords regardless of case.
func WithCaseInsensitiveKeywords() Option {
	return func(o *options) { o.foldKeywords = true }
}

func buildOptions(opts []Option) options {
	o := options{
		metrics: nopMetrics{},
		wrap:    DefaultWrap,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.glossary == nil {
		o.glossary = units.Default()
	}
	if o.log == nil {
		o.log = logging.NewFromEnv()
	}
	return o
}
