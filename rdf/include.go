package rdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/groundproc/internal/logging"
)

// SourceError is a fatal parse error together with the chain of sources that
// were open when it occurred, outermost first.
type SourceError struct {
	Chain []string
	Err   error
}

func (e *SourceError) Error() string {
	if len(e.Chain) <= 1 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (include chain: %s)", e.Err, strings.Join(e.Chain, " -> "))
}

func (e *SourceError) Unwrap() error { return e.Err }

// frame is one open source on the traversal stack.
type frame struct {
	name   string // display name used in positions
	path   string // canonical path, "" for in-memory sources
	dir    string // directory relative includes resolve against
	lines  *unwrapper
	closer io.Closer
}

func (f *frame) close() {
	if f.closer != nil {
		_ = f.closer.Close()
		f.closer = nil
	}
}

// traversal walks a root source and every source it includes, depth first,
// with an explicit stack of open frames.
type traversal struct {
	opts    options
	grammar *Grammar
	stack   []*frame
	sources []string
	log     logging.Logger
	span    trace.Span
}

func (t *traversal) chain() []string {
	out := make([]string, len(t.stack))
	for i, f := range t.stack {
		out[i] = f.name
	}
	return out
}

func (t *traversal) fail(err error) error {
	return &SourceError{Chain: t.chain(), Err: err}
}

func (t *traversal) closeAll() {
	for _, f := range t.stack {
		f.close()
	}
	t.stack = nil
}

// run drives the traversal, handing every entry to emit. A false return from
// emit stops the walk without error.
func (t *traversal) run(ctx context.Context, root *frame, emit func(Entry) bool) error {
	defer t.closeAll()
	t.push(root)

	for len(t.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		top := t.stack[len(t.stack)-1]
		text, line, ok, err := top.lines.next()
		if err != nil {
			return t.fail(fmt.Errorf("%w %s: %w", ErrReadSource, top.name, err))
		}
		if !ok {
			t.pop()
			if len(t.stack) > 0 {
				if err := t.grammar.ascend(); err != nil {
					return t.fail(err)
				}
			}
			continue
		}

		step, err := t.grammar.Process(ctx, Position{Source: top.name, Line: line}, text)
		if err != nil {
			return t.fail(err)
		}
		if step.Include != "" {
			child, err := t.open(top, step.Include)
			if err != nil {
				return t.fail(&LineError{Pos: Position{Source: top.name, Line: line}, Text: strings.TrimSpace(text), Err: err})
			}
			t.push(child)
			t.grammar.descend()
			t.opts.metrics.ObserveInclude()
			t.span.AddEvent("rdf.include", trace.WithAttributes(
				attribute.String("rdf.path", child.name),
				attribute.Int("rdf.depth", t.grammar.Depth()),
			))
			t.log.Debug(ctx, "including source",
				logging.String("path", child.name),
				logging.Int("depth", t.grammar.Depth()),
			)
			continue
		}
		if step.Entry != nil && !emit(step.Entry) {
			return nil
		}
	}
	return nil
}

func (t *traversal) push(f *frame) {
	t.stack = append(t.stack, f)
	if f.path != "" && !slices.Contains(t.sources, f.path) {
		t.sources = append(t.sources, f.path)
	}
}

func (t *traversal) pop() {
	top := t.stack[len(t.stack)-1]
	top.close()
	t.stack = t.stack[:len(t.stack)-1]
}

// open resolves an INCLUDE target against the including frame and opens it.
// Re-entering a source that is still open is an include cycle.
func (t *traversal) open(parent *frame, target string) (*frame, error) {
	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(parent.dir, path)
	}
	canonical := canonicalPath(path)
	for _, f := range t.stack {
		if f.path != "" && f.path == canonical {
			return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, strings.Join(append(t.chain(), path), " -> "))
		}
	}
	return openFile(path, canonical, t.opts.wrap)
}

func openFile(path, canonical, wrap string) (*frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpenSource, path, err)
	}
	if info, err := fh.Stat(); err == nil && info.IsDir() {
		_ = fh.Close()
		return nil, fmt.Errorf("%w %s: is a directory", ErrOpenSource, path)
	}
	return &frame{
		name:   filepath.Clean(path),
		path:   canonical,
		dir:    filepath.Dir(path),
		lines:  newUnwrapper(fh, wrap),
		closer: fh,
	}, nil
}

func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
