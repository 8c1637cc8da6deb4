package rdf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field is a record value together with its annotations. Units holds the
// unit symbol the value is expressed in, after any conversion.
type Field struct {
	Value      string
	Units      string
	Dimensions string
	Element    string
	Comment    string
}

// FieldOption annotates a Field built by NewField.
type FieldOption func(*Field)

func WithUnits(u string) FieldOption      { return func(f *Field) { f.Units = u } }
func WithDimensions(d string) FieldOption { return func(f *Field) { f.Dimensions = d } }
func WithElement(e string) FieldOption    { return func(f *Field) { f.Element = e } }
func WithComment(c string) FieldOption    { return func(f *Field) { f.Comment = c } }

// NewField builds a Field from v. A Field (or *Field) is returned unchanged
// and the options are ignored, so wrapping is idempotent.
func NewField(v any, opts ...FieldOption) Field {
	switch x := v.(type) {
	case Field:
		return x
	case *Field:
		if x != nil {
			return *x
		}
		v = ""
	}
	f := Field{Value: FormatValue(v)}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// FormatValue renders v the way a record stores it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case float64:
		return formatFloat(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = formatFloat(f)
		}
		return strings.Join(parts, " ")
	case []int:
		parts := make([]string, len(x))
		for i, n := range x {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(x, " ")
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (f Field) String() string { return f.Value }

// Float parses the value as a single number.
func (f Field) Float() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(f.Value), 64)
}

// Int parses the value as a base-10 integer. Values written as floats with no
// fractional part are accepted.
func (f Field) Int() (int64, error) {
	s := strings.TrimSpace(f.Value)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if x != float64(int64(x)) {
		return 0, fmt.Errorf("value %q is not integral", f.Value)
	}
	return int64(x), nil
}

// Bool accepts the strconv.ParseBool forms plus yes/no and on/off.
func (f Field) Bool() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(f.Value)) {
	case "yes", "on", "y":
		return true, nil
	case "no", "off", "n":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(f.Value))
}

// Strings splits the value on whitespace.
func (f Field) Strings() []string {
	return strings.Fields(f.Value)
}

// Floats parses each whitespace-separated element of the value.
func (f Field) Floats() ([]float64, error) {
	parts := f.Strings()
	out := make([]float64, len(parts))
	for i, p := range parts {
		x, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = x
	}
	return out, nil
}

// Duration reads the value as a count of seconds, the base time unit. Values
// that do not fit a time.Duration fail with ErrDurationRange.
func (f Field) Duration() (time.Duration, error) {
	x, err := f.Float()
	if err != nil {
		return 0, err
	}
	ns := x * float64(time.Second)
	if math.IsNaN(ns) || math.Abs(ns) >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s s", ErrDurationRange, f.Value)
	}
	return time.Duration(ns), nil
}

// left renders the annotations that sit left of the operator.
func (f Field) left() string {
	return writeBrackets(f.Units, f.Dimensions, f.Element)
}
