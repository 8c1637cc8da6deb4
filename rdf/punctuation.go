package rdf

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default glyphs.
const (
	DefaultOperator = "="
	DefaultComment  = "#"
	DefaultWrap     = "/"
)

// Glyph is a single-character delimiter: the operator or the comment marker.
type Glyph struct {
	s string
}

// NewGlyph validates s as a glyph.
func NewGlyph(s string) (Glyph, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Glyph{}, ErrNullCommand
	}
	if utf8.RuneCountInString(s) != 1 {
		return Glyph{}, fmt.Errorf("%w: %q", ErrBadGlyph, s)
	}
	return Glyph{s: s}, nil
}

func mustGlyph(s string) Glyph {
	g, err := NewGlyph(s)
	if err != nil {
		panic(err)
	}
	return g
}

func (g Glyph) String() string { return g.s }

// IsZero reports whether g was never set.
func (g Glyph) IsZero() bool { return g.s == "" }

// In reports whether line contains g.
func (g Glyph) In(line string) bool {
	return g.s != "" && strings.Contains(line, g.s)
}

// Split cuts line at the first g. Both sides are trimmed; right is empty when
// g does not occur.
func (g Glyph) Split(line string) (left, right string) {
	return SplitOnGlyph(line, g.s)
}

// SplitOnGlyph cuts line at the first glyph. Both sides are trimmed; right is
// empty when glyph does not occur.
func SplitOnGlyph(line, glyph string) (left, right string) {
	if glyph == "" {
		return strings.TrimSpace(line), ""
	}
	left, right, _ = strings.Cut(line, glyph)
	return strings.TrimSpace(left), strings.TrimSpace(right)
}

// Bracket is an ordered open/close delimiter pair.
type Bracket struct {
	Name  string
	Open  string
	Close string
}

// The three annotation brackets of a record's key field.
var (
	Units      = Bracket{Name: "units", Open: "(", Close: ")"}
	Dimensions = Bracket{Name: "dimensions", Open: "{", Close: "}"}
	Element    = Bracket{Name: "element", Open: "[", Close: "]"}
)

func (b Bracket) String() string { return b.Open + b.Close }

// Extract returns the text enclosed by b in line. ok is false when neither
// delimiter occurs. A line may hold at most one well-ordered pair, and the
// enclosed text may not contain any of the reserved glyphs.
func (b Bracket) Extract(line string, reserved ...Glyph) (contents string, ok bool, err error) {
	nOpen := strings.Count(line, b.Open)
	nClose := strings.Count(line, b.Close)

	if nOpen == 0 || nClose == 0 {
		if nOpen+nClose > 0 {
			return "", false, fmt.Errorf("%w: %s", ErrUnmatchedBrackets, b)
		}
		return "", false, nil
	}
	if nOpen > 1 || nClose > 1 {
		return "", false, fmt.Errorf("%w: %s", ErrRunOnSentence, b)
	}

	start := strings.Index(line, b.Open) + len(b.Open)
	stop := strings.Index(line, b.Close)
	if stop < start {
		return "", false, fmt.Errorf("%w: %s", ErrBackwardBrackets, b)
	}

	contents = line[start:stop]
	for _, g := range reserved {
		if g.In(contents) {
			return "", false, fmt.Errorf("%w: %q in %s", ErrReservedCharacter, g.s, b)
		}
	}
	return strings.TrimSpace(contents), true, nil
}

// Insert renders contents inside b, padded with a space on either side, or
// the empty string when contents is empty.
func (b Bracket) Insert(contents string) string {
	if contents == "" {
		return ""
	}
	return " " + b.Open + contents + b.Close + " "
}

// wrap renders contents inside b without padding.
func (b Bracket) wrap(contents string) string {
	if contents == "" {
		return ""
	}
	return b.Open + contents + b.Close
}

// Strip removes a well-ordered pair of b, and what it encloses, from line.
// Lines without such a pair are returned trimmed but otherwise unchanged.
func (b Bracket) Strip(line string) string {
	start := strings.Index(line, b.Open)
	stop := strings.Index(line, b.Close)
	if start < 0 || stop < 0 || stop < start {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(line[:start] + line[stop+len(b.Close):])
}

// ParseLeft splits the key field of a record (everything left of the
// operator) into the bare key and its bracketed annotations. The brackets may
// appear in any order.
func ParseLeft(left string, reserved ...Glyph) (key, units, dimensions, element string, err error) {
	if units, _, err = Units.Extract(left, reserved...); err != nil {
		return "", "", "", "", err
	}
	if dimensions, _, err = Dimensions.Extract(left, reserved...); err != nil {
		return "", "", "", "", err
	}
	if element, _, err = Element.Extract(left, reserved...); err != nil {
		return "", "", "", "", err
	}
	key = Element.Strip(Dimensions.Strip(Units.Strip(left)))
	return key, units, dimensions, element, nil
}

// writeBrackets renders the non-empty annotations in units, dimensions,
// element order.
func writeBrackets(units, dimensions, element string) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{
		Units.wrap(units),
		Dimensions.wrap(dimensions),
		Element.wrap(element),
	} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
