// Package rdf reads and writes RDF configuration files: line-oriented
// "KEY (units) {dimensions} [element] = value # comment" records with line
// continuation, recursive INCLUDE, include-scoped PREFIX/SUFFIX and UNIT
// definitions feeding a unit glossary.
//
// A parse streams entries through a Grammar that owns all mutable state for
// that parse; ParseFile and friends fold the stream into an ordered Mapping.
package rdf

import (
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/groundproc/internal/logging"
)

const tracerName = "github.com/signalsfoundry/groundproc/rdf"

// StringSource names in-memory sources in diagnostics.
const StringSource = "<string>"

// Parser holds the options shared by every parse it runs. Each parse gets its
// own Grammar, so a Parser may be used from several goroutines.
type Parser struct {
	opts options
}

// NewParser builds a Parser.
func NewParser(opts ...Option) *Parser {
	return &Parser{opts: buildOptions(opts)}
}

// Entries streams the entries of the file at path and everything it
// includes. A fatal error is yielded once as the final element.
func (p *Parser) Entries(ctx context.Context, path string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		root, err := p.rootFile(path)
		if err != nil {
			yield(nil, err)
			return
		}
		if _, err := p.walk(ctx, root, func(e Entry) bool { return yield(e, nil) }); err != nil {
			yield(nil, err)
		}
	}
}

// ReaderEntries streams the entries of r, named name in diagnostics.
func (p *Parser) ReaderEntries(ctx context.Context, name string, r io.Reader) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if _, err := p.walk(ctx, p.rootReader(name, r), func(e Entry) bool { return yield(e, nil) }); err != nil {
			yield(nil, err)
		}
	}
}

// ParseFile parses the file at path into a mapping.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Mapping, error) {
	root, err := p.rootFile(path)
	if err != nil {
		return nil, err
	}
	return p.build(ctx, root)
}

// ParseString parses text. Relative INCLUDE paths resolve against the
// WithBaseDir directory, or the working directory.
func (p *Parser) ParseString(ctx context.Context, text string) (*Mapping, error) {
	return p.build(ctx, p.rootReader(StringSource, strings.NewReader(text)))
}

// ParseReader parses r, naming it name in diagnostics.
func (p *Parser) ParseReader(ctx context.Context, name string, r io.Reader) (*Mapping, error) {
	return p.build(ctx, p.rootReader(name, r))
}

func (p *Parser) rootFile(path string) (*frame, error) {
	f, err := openFile(path, canonicalPath(path), p.opts.wrap)
	if err != nil {
		return nil, &SourceError{Chain: []string{path}, Err: err}
	}
	return f, nil
}

func (p *Parser) rootReader(name string, r io.Reader) *frame {
	dir := p.opts.baseDir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	if name == "" {
		name = StringSource
	}
	return &frame{name: name, dir: filepath.Clean(dir), lines: newUnwrapper(r, p.opts.wrap)}
}

func (p *Parser) build(ctx context.Context, root *frame) (*Mapping, error) {
	m := New()
	sources, err := p.walk(ctx, root, func(e Entry) bool {
		if r, ok := e.(Record); ok {
			m.Set(r.Key, r.Field)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	m.sources = sources
	return m, nil
}

// walk runs one traversal inside an "rdf.parse" span.
func (p *Parser) walk(ctx context.Context, root *frame, emit func(Entry) bool) (sources []string, err error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rdf.parse")
	span.SetAttributes(attribute.String("rdf.source", root.name))
	ctx, log := logging.WithParseLogger(ctx, p.opts.log)

	defer func() {
		p.opts.metrics.ObserveParse(time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error(ctx, "parse failed", logging.String("source", root.name), logging.Err(err))
		} else {
			log.Debug(ctx, "parse complete",
				logging.String("source", root.name),
				logging.Int("sources", len(sources)),
				logging.Any("duration", time.Since(start)),
			)
		}
		span.End()
	}()

	o := p.opts
	o.log = log
	t := &traversal{
		opts:    o,
		grammar: newGrammar(o),
		log:     log,
		span:    span,
	}
	err = t.run(ctx, root, emit)
	return t.sources, err
}

// ParseFile parses the file at path with a one-off Parser.
func ParseFile(ctx context.Context, path string, opts ...Option) (*Mapping, error) {
	return NewParser(opts...).ParseFile(ctx, path)
}

// ParseString parses text with a one-off Parser.
func ParseString(ctx context.Context, text string, opts ...Option) (*Mapping, error) {
	return NewParser(opts...).ParseString(ctx, text)
}

// ParseReader parses r with a one-off Parser.
func ParseReader(ctx context.Context, name string, r io.Reader, opts ...Option) (*Mapping, error) {
	return NewParser(opts...).ParseReader(ctx, name, r)
}
