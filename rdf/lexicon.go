package rdf

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/units"
)

// Verb is a keyword that changes parser state instead of producing a record.
type Verb string

const (
	VerbInclude  Verb = "INCLUDE"
	VerbOperator Verb = "OPERATOR"
	VerbComment  Verb = "COMMENT"
	VerbPrefix   Verb = "PREFIX"
	VerbSuffix   Verb = "SUFFIX"
	VerbUnit     Verb = "UNIT"
)

// Verbs lists every verb in dispatch order.
var Verbs = []Verb{VerbInclude, VerbOperator, VerbComment, VerbPrefix, VerbSuffix, VerbUnit}

type handler func(g *Grammar, ctx context.Context, pos Position, s sentence) (Step, error)

// word is one lexicon entry: a predicate over a classified line and the
// handler run when it matches.
type word struct {
	name string
	is   func(g *Grammar, s sentence) bool
	do   handler
}

func verb(v Verb, do handler) word {
	return word{
		name: string(v),
		is: func(g *Grammar, s sentence) bool {
			return s.hasOp && g.isKeyword(s.left, v)
		},
		do: do,
	}
}

// lexicon is scanned in order; the first match handles the line. Verbs come
// before nouns so a keyword line is never read as a record.
var lexicon = []word{
	verb(VerbInclude, (*Grammar).include),
	verb(VerbOperator, (*Grammar).setOperator),
	verb(VerbComment, (*Grammar).setComment),
	verb(VerbPrefix, (*Grammar).setPrefix),
	verb(VerbSuffix, (*Grammar).setSuffix),
	verb(VerbUnit, (*Grammar).defineUnit),
	{name: "record", is: func(_ *Grammar, s sentence) bool { return s.hasOp }, do: (*Grammar).record},
	{name: "comment", is: func(_ *Grammar, s sentence) bool { return true }, do: (*Grammar).commentLine},
}

func (g *Grammar) include(_ context.Context, _ Position, s sentence) (Step, error) {
	if s.right == "" {
		return Step{}, fmt.Errorf("%s: %w", VerbInclude, ErrNullCommand)
	}
	return Step{Include: s.right}, nil
}

func (g *Grammar) setOperator(_ context.Context, _ Position, s sentence) (Step, error) {
	gl, err := NewGlyph(s.right)
	if err != nil {
		return Step{}, fmt.Errorf("%s: %w", VerbOperator, err)
	}
	g.operator = gl
	return Step{}, nil
}

func (g *Grammar) setComment(_ context.Context, _ Position, s sentence) (Step, error) {
	gl, err := NewGlyph(s.right)
	if err != nil {
		return Step{}, fmt.Errorf("%s: %w", VerbComment, err)
	}
	g.comment = gl
	return Step{}, nil
}

func (g *Grammar) setPrefix(_ context.Context, _ Position, s sentence) (Step, error) {
	return Step{}, g.prefix.Set(g.depth, s.right)
}

func (g *Grammar) setSuffix(_ context.Context, _ Position, s sentence) (Step, error) {
	return Step{}, g.suffix.Set(g.depth, s.right)
}

func (g *Grammar) defineUnit(ctx context.Context, pos Position, s sentence) (Step, error) {
	def, err := ParseUnitDefinition(s.right)
	if err != nil {
		return Step{}, err
	}
	u, err := g.glossary.Register(def.Symbol, def.Multiplier, def.Adder, def.Base)
	var redef *units.RedefinedUnitError
	switch {
	case errors.As(err, &redef):
		g.warn(ctx, &LineError{Pos: pos, Text: s.text, Err: err})
	case err != nil:
		return Step{}, fmt.Errorf("%w: %w", ErrBadUnitVerb, err)
	}
	g.log.Debug(ctx, "unit defined",
		logging.String("symbol", u.Symbol),
		logging.Float("multiplier", u.Multiplier),
		logging.Float("adder", u.Adder),
		logging.String("base", u.Base),
	)
	return Step{}, nil
}

func (g *Grammar) record(ctx context.Context, pos Position, s sentence) (Step, error) {
	key, symbol, dims, elem, err := ParseLeft(s.left, g.operator, g.comment)
	if err != nil {
		return Step{}, err
	}
	if key == "" {
		return Step{}, ErrEmptyKey
	}

	value, symbol := g.convert(ctx, pos, s, s.right, symbol)
	f := Field{
		Value:      value,
		Units:      symbol,
		Dimensions: dims,
		Element:    elem,
		Comment:    s.comment,
	}
	key = g.prefix.Compose(g.suffix.Compose(key))
	g.metrics.ObserveRecord()
	return Step{Entry: Record{Key: key, Field: f}}, nil
}

func (g *Grammar) commentLine(_ context.Context, _ Position, s sentence) (Step, error) {
	text := s.comment
	if s.body != "" {
		text = strings.TrimSpace(s.text)
	}
	g.metrics.ObserveComment()
	return Step{Entry: Comment{Text: text}}, nil
}

// convert scales every whitespace-separated number in value to symbol's base
// unit. Unknown symbols and non-numeric values are reported and returned as
// given.
func (g *Grammar) convert(ctx context.Context, pos Position, s sentence, value, symbol string) (string, string) {
	if symbol == "" {
		return value, symbol
	}

	u, err := g.glossary.Resolve(symbol)
	if err != nil {
		g.metrics.ObserveUnitLookup("miss")
		var uerr *units.UnrecognizedUnitError
		if !errors.As(err, &uerr) || !uerr.Suppressed {
			g.warn(ctx, &LineError{Pos: pos, Text: s.text, Err: err})
		}
		return value, symbol
	}

	parts := strings.Fields(value)
	for i, p := range parts {
		x, err := strconv.ParseFloat(p, 64)
		if err != nil {
			g.metrics.ObserveUnitLookup("non_numeric")
			g.warn(ctx, &LineError{Pos: pos, Text: s.text, Err: fmt.Errorf("%w: %q", ErrNonNumeric, p)})
			return value, symbol
		}
		parts[i] = formatFloat(u.Convert(x))
	}
	g.metrics.ObserveUnitLookup("hit")
	if len(parts) == 0 {
		return value, u.Base
	}
	return strings.Join(parts, " "), u.Base
}

// UnitDefinition is the argument list of a UNIT verb.
type UnitDefinition struct {
	Symbol     string
	Multiplier float64
	Adder      float64
	Base       string
}

var unitArgNames = []string{"name", "multiplier", "adder", "base"}

// unitArgAliases maps accepted keyword spellings onto unitArgNames. "symbol"
// names the base unit, as in (degF, 0.5556, -17.78, symbol=degC).
var unitArgAliases = map[string]string{
	"name":         "name",
	"abbreviation": "name",
	"unit":         "name",
	"multiplier":   "multiplier",
	"adder":        "adder",
	"offset":       "adder",
	"base":         "base",
	"symbol":       "base",
}

// ParseUnitDefinition parses "(symbol, multiplier[, adder][, base])" where
// any argument after the first may instead be given as keyword=value.
func ParseUnitDefinition(text string) (UnitDefinition, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "("), ")"))
	if s == "" {
		return UnitDefinition{}, fmt.Errorf("%w: no arguments", ErrBadUnitVerb)
	}

	args := strings.Split(s, ",")
	vals := make(map[string]string, len(unitArgNames))
	positional := 0
	sawKeyword := false
	for i, a := range args {
		a = strings.TrimSpace(a)
		if a == "" {
			if i == len(args)-1 {
				continue
			}
			return UnitDefinition{}, fmt.Errorf("%w: empty argument %d", ErrBadUnitVerb, i+1)
		}
		if k, v, ok := strings.Cut(a, "="); ok {
			name, known := unitArgAliases[strings.ToLower(strings.TrimSpace(k))]
			if !known {
				return UnitDefinition{}, fmt.Errorf("%w: unknown argument %q", ErrBadUnitVerb, strings.TrimSpace(k))
			}
			if _, dup := vals[name]; dup {
				return UnitDefinition{}, fmt.Errorf("%w: %s given twice", ErrBadUnitVerb, name)
			}
			vals[name] = unquote(strings.TrimSpace(v))
			sawKeyword = true
			continue
		}
		if sawKeyword {
			return UnitDefinition{}, fmt.Errorf("%w: positional argument after keyword", ErrBadUnitVerb)
		}
		if positional >= len(unitArgNames) {
			return UnitDefinition{}, fmt.Errorf("%w: too many arguments", ErrBadUnitVerb)
		}
		vals[unitArgNames[positional]] = unquote(a)
		positional++
	}

	def := UnitDefinition{Symbol: vals["name"], Base: vals["base"]}
	if def.Symbol == "" {
		return UnitDefinition{}, fmt.Errorf("%w: missing symbol", ErrBadUnitVerb)
	}
	m, ok := vals["multiplier"]
	if !ok {
		return UnitDefinition{}, fmt.Errorf("%w: missing multiplier for %q", ErrBadUnitVerb, def.Symbol)
	}
	var err error
	if def.Multiplier, err = strconv.ParseFloat(m, 64); err != nil {
		return UnitDefinition{}, fmt.Errorf("%w: multiplier %q", ErrBadUnitVerb, m)
	}
	if a, ok := vals["adder"]; ok && a != "" {
		if def.Adder, err = strconv.ParseFloat(a, 64); err != nil {
			return UnitDefinition{}, fmt.Errorf("%w: adder %q", ErrBadUnitVerb, a)
		}
	}
	return def, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
