package rdf

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/groundproc/units"
)

// Per-line grammar warnings. A line failing with one of these produces no
// entry; the parse continues.
var (
	ErrUnmatchedBrackets = errors.New("unmatched brackets")
	ErrRunOnSentence     = errors.New("run-on sentence")
	ErrBackwardBrackets  = errors.New("backward brackets")
	ErrReservedCharacter = errors.New("reserved character inside brackets")
	ErrEmptyKey          = errors.New("empty key")
)

// Advisory conditions: logged, the record is kept.
var (
	ErrNonNumeric = errors.New("non-numeric value under a unit")
)

// Fatal errors: the whole parse is abandoned.
var (
	ErrNullCommand  = errors.New("null command")
	ErrBadGlyph     = errors.New("glyph must be a single character")
	ErrBadUnitVerb  = errors.New("malformed UNIT definition")
	ErrOpenSource   = errors.New("cannot open source")
	ErrReadSource   = errors.New("cannot read source")
	ErrIncludeCycle = errors.New("include cycle")
	ErrAffixDepth   = errors.New("affix depth mismatch")
)

// Mapping lookups and writes.
var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrMissingKeys     = errors.New("missing required keys")
	ErrOddPairs        = errors.New("odd number of key/value arguments")
	ErrDurationRange   = errors.New("duration out of range")
	ErrUnwritableValue = errors.New("value cannot be written")
)

// Position locates a logical line in its source.
type Position struct {
	Source string
	Line   int
}

func (p Position) String() string {
	if p.Line <= 0 {
		return p.Source
	}
	return fmt.Sprintf("%s:%d", p.Source, p.Line)
}

// LineError ties a grammar error to the line that raised it.
type LineError struct {
	Pos  Position
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s: %v: %q", e.Pos, e.Err, e.Text)
}

func (e *LineError) Unwrap() error { return e.Err }

// IsWarning reports whether err is a per-line condition that should not abort
// a parse.
func IsWarning(err error) bool {
	return errors.Is(err, ErrUnmatchedBrackets) ||
		errors.Is(err, ErrRunOnSentence) ||
		errors.Is(err, ErrBackwardBrackets) ||
		errors.Is(err, ErrReservedCharacter) ||
		errors.Is(err, ErrEmptyKey) ||
		errors.Is(err, ErrNonNumeric) ||
		errors.Is(err, units.ErrUnrecognizedUnit)
}

// warningKind is the metrics/log label for a per-line warning.
func warningKind(err error) string {
	switch {
	case errors.Is(err, ErrUnmatchedBrackets):
		return "unmatched_brackets"
	case errors.Is(err, ErrRunOnSentence):
		return "run_on_sentence"
	case errors.Is(err, ErrBackwardBrackets):
		return "backward_brackets"
	case errors.Is(err, ErrReservedCharacter):
		return "reserved_character"
	case errors.Is(err, ErrEmptyKey):
		return "empty_key"
	case errors.Is(err, ErrNonNumeric):
		return "non_numeric"
	case errors.Is(err, units.ErrUnrecognizedUnit):
		return "unrecognized_unit"
	case errors.Is(err, units.ErrRedefinedUnit):
		return "redefined_unit"
	default:
		return "other"
	}
}
