package rdf

import (
	"context"
	"strings"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/units"
)

// Grammar is the mutable state of one parse: the current glyphs, the include
// depth and the affix stacks. It is owned by a single traversal and carried
// through every included source.
type Grammar struct {
	operator Glyph
	comment  Glyph
	depth    int
	prefix   *Affix
	suffix   *Affix

	glossary     *units.Glossary
	log          logging.Logger
	metrics      Metrics
	foldKeywords bool
}

func newGrammar(o options) *Grammar {
	return &Grammar{
		operator:     mustGlyph(DefaultOperator),
		comment:      mustGlyph(DefaultComment),
		prefix:       NewAffix(PrefixKind),
		suffix:       NewAffix(SuffixKind),
		glossary:     o.glossary,
		log:          o.log,
		metrics:      o.metrics,
		foldKeywords: o.foldKeywords,
	}
}

func (g *Grammar) Operator() Glyph { return g.operator }
func (g *Grammar) Comment() Glyph  { return g.comment }
func (g *Grammar) Depth() int      { return g.depth }
func (g *Grammar) Prefix() *Affix  { return g.prefix }
func (g *Grammar) Suffix() *Affix  { return g.suffix }

// Step is the outcome of processing one logical line.
type Step struct {
	// Entry is the record or comment produced, if any.
	Entry Entry
	// Include is the path named by an INCLUDE verb.
	Include string
}

// sentence is a logical line split with the glyphs in force when it was read.
type sentence struct {
	text    string
	body    string // text left of the comment glyph
	comment string
	left    string // body left of the operator
	right   string
	hasOp   bool
}

func (g *Grammar) split(text string) sentence {
	s := sentence{text: strings.TrimSpace(text)}
	s.body, s.comment = g.comment.Split(text)
	s.hasOp = g.operator.In(s.body)
	s.left, s.right = g.operator.Split(s.body)
	return s
}

func (g *Grammar) isKeyword(left string, v Verb) bool {
	if g.foldKeywords {
		return strings.EqualFold(left, string(v))
	}
	return left == string(v)
}

// Process classifies one logical line and applies the first matching lexicon
// entry. Per-line warnings are logged here and swallowed; the returned error
// is always fatal.
func (g *Grammar) Process(ctx context.Context, pos Position, text string) (Step, error) {
	if strings.TrimSpace(text) == "" {
		return Step{}, nil
	}
	s := g.split(text)
	for _, w := range lexicon {
		if !w.is(g, s) {
			continue
		}
		step, err := w.do(g, ctx, pos, s)
		if err == nil {
			return step, nil
		}
		lerr := &LineError{Pos: pos, Text: s.text, Err: err}
		if IsWarning(err) {
			g.warn(ctx, lerr)
			return Step{}, nil
		}
		return Step{}, lerr
	}
	return Step{}, nil
}

// descend enters an included source.
func (g *Grammar) descend() {
	g.depth++
	g.prefix.Descend()
	g.suffix.Descend()
}

// ascend leaves an included source, discarding its affixes.
func (g *Grammar) ascend() error {
	if err := g.prefix.Ascend(); err != nil {
		return err
	}
	if err := g.suffix.Ascend(); err != nil {
		return err
	}
	g.depth--
	return nil
}

func (g *Grammar) warn(ctx context.Context, lerr *LineError) {
	kind := warningKind(lerr.Err)
	g.metrics.ObserveWarning(kind)
	g.log.Warn(ctx, lerr.Err.Error(),
		logging.String("source", lerr.Pos.Source),
		logging.Int("line", lerr.Pos.Line),
		logging.String("kind", kind),
		logging.String("text", lerr.Text),
	)
}
