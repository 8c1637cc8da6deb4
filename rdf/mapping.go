package rdf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Mapping is an insertion-ordered key -> Field table. Assigning an existing
// key replaces its Field but keeps the key's original position.
//
// A Mapping is not safe for concurrent mutation; the store package shares
// mappings read-only.
type Mapping struct {
	keys    []string
	fields  map[string]Field
	sources []string
}

// New returns an empty mapping.
func New() *Mapping {
	return &Mapping{fields: make(map[string]Field)}
}

// Build folds an entry stream into a mapping. Comments are dropped. The first
// error from the stream aborts the build.
func Build(entries iter.Seq2[Entry, error]) (*Mapping, error) {
	m := New()
	for e, err := range entries {
		if err != nil {
			return nil, err
		}
		if r, ok := e.(Record); ok && r.HasData() {
			m.Set(r.Key, r.Field)
		}
	}
	return m, nil
}

// FromRecords builds a mapping from records in order.
func FromRecords(records ...Record) *Mapping {
	m := New()
	for _, r := range records {
		m.Set(r.Key, r.Field)
	}
	return m
}

// FromMap builds a mapping from a Go map. Keys are inserted in sorted order.
func FromMap[V any](in map[string]V) *Mapping {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := New()
	for _, k := range keys {
		m.Set(k, in[k])
	}
	return m
}

// FromPairs builds a mapping from alternating string keys and values.
func FromPairs(kv ...any) (*Mapping, error) {
	if len(kv)%2 != 0 {
		return nil, ErrOddPairs
	}
	m := New()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("key %d: expected string, got %T", i/2, kv[i])
		}
		m.Set(k, kv[i+1])
	}
	return m, nil
}

func normKey(k string) string { return strings.TrimSpace(k) }

// Len returns the number of keys.
func (m *Mapping) Len() int { return len(m.keys) }

// Keys returns the keys in order.
func (m *Mapping) Keys() []string { return slices.Clone(m.keys) }

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.fields[normKey(key)]
	return ok
}

// Field returns the field stored under key.
func (m *Mapping) Field(key string) (Field, bool) {
	f, ok := m.fields[normKey(key)]
	return f, ok
}

// Value returns the raw value stored under key.
func (m *Mapping) Value(key string) (string, bool) {
	f, ok := m.fields[normKey(key)]
	return f.Value, ok
}

// Set stores v under key. v is wrapped with NewField, so a Field keeps its
// annotations and anything else becomes an unannotated value.
func (m *Mapping) Set(key string, v any, opts ...FieldOption) {
	if m.fields == nil {
		m.fields = make(map[string]Field)
	}
	key = normKey(key)
	if _, exists := m.fields[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = NewField(v, opts...)
}

// Delete removes key and reports whether it was present.
func (m *Mapping) Delete(key string) bool {
	key = normKey(key)
	if _, ok := m.fields[key]; !ok {
		return false
	}
	delete(m.fields, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
	return true
}

// All iterates over keys and fields in order.
func (m *Mapping) All() iter.Seq2[string, Field] {
	return func(yield func(string, Field) bool) {
		for _, k := range m.keys {
			if !yield(k, m.fields[k]) {
				return
			}
		}
	}
}

// Records returns the mapping as a record slice.
func (m *Mapping) Records() []Record {
	out := make([]Record, 0, len(m.keys))
	for k, f := range m.All() {
		out = append(out, Record{Key: k, Field: f})
	}
	return out
}

// Copy returns an independent copy.
func (m *Mapping) Copy() *Mapping {
	c := &Mapping{
		keys:    slices.Clone(m.keys),
		fields:  make(map[string]Field, len(m.fields)),
		sources: slices.Clone(m.sources),
	}
	for k, f := range m.fields {
		c.fields[k] = f
	}
	return c
}

// Concat returns m followed by other. Keys present in both take other's field
// but keep m's position.
func (m *Mapping) Concat(other *Mapping) *Mapping {
	c := m.Copy()
	c.Merge(other)
	return c
}

// Merge assigns every record of other into m.
func (m *Mapping) Merge(other *Mapping) {
	if other == nil {
		return
	}
	for k, f := range other.All() {
		m.Set(k, f)
	}
	for _, s := range other.sources {
		if !slices.Contains(m.sources, s) {
			m.sources = append(m.sources, s)
		}
	}
}

// Filter returns the records for which keep reports true, in order.
func (m *Mapping) Filter(keep func(key string, f Field) bool) *Mapping {
	out := New()
	for k, f := range m.All() {
		if keep(k, f) {
			out.Set(k, f)
		}
	}
	return out
}

// Map returns a plain key -> value map.
func (m *Mapping) Map() map[string]string {
	return Cast(m, func(f Field) string { return f.Value })
}

// Cast converts every field with caster into a plain map.
func Cast[V any](m *Mapping, caster func(Field) V) map[string]V {
	out := make(map[string]V, len(m.keys))
	for k, f := range m.All() {
		out[k] = caster(f)
	}
	return out
}

// Equal reports whether m and other hold the same keys with the same values,
// regardless of order and annotations.
func (m *Mapping) Equal(other *Mapping) bool {
	if m.Len() != other.Len() {
		return false
	}
	for k, f := range m.All() {
		v, ok := other.Value(k)
		if !ok || v != f.Value {
			return false
		}
	}
	return true
}

// Sources lists the files read to build the mapping, top-level first.
func (m *Mapping) Sources() []string { return slices.Clone(m.sources) }

// Require returns ErrMissingKeys naming every absent key.
func (m *Mapping) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if !m.Has(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingKeys, strings.Join(missing, ", "))
	}
	return nil
}

func (m *Mapping) lookup(key string) (Field, error) {
	f, ok := m.Field(key)
	if !ok {
		return Field{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return f, nil
}

// Text returns the value stored under key.
func (m *Mapping) Text(key string) (string, error) {
	f, err := m.lookup(key)
	return f.Value, err
}

// Float parses the value stored under key.
func (m *Mapping) Float(key string) (float64, error) {
	f, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	x, err := f.Float()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return x, nil
}

// Int parses the value stored under key.
func (m *Mapping) Int(key string) (int64, error) {
	f, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	n, err := f.Int()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// Bool parses the value stored under key.
func (m *Mapping) Bool(key string) (bool, error) {
	f, err := m.lookup(key)
	if err != nil {
		return false, err
	}
	b, err := f.Bool()
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// Floats parses the vector stored under key.
func (m *Mapping) Floats(key string) ([]float64, error) {
	f, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	xs, err := f.Floats()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return xs, nil
}

// Strings splits the value stored under key on whitespace.
func (m *Mapping) Strings(key string) ([]string, error) {
	f, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	return f.Strings(), nil
}

// Duration reads the value stored under key as seconds.
func (m *Mapping) Duration(key string) (time.Duration, error) {
	f, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	d, err := f.Duration()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// String renders the mapping in RDF syntax with the operator aligned on the
// widest key column. It is empty when the mapping cannot be written.
func (m *Mapping) String() string {
	var buf bytes.Buffer
	_, _ = m.WriteTo(&buf)
	return buf.String()
}

// WriteTo writes the mapping in RDF syntax. Nothing is written when a key or
// value would not read back as written.
func (m *Mapping) WriteTo(w io.Writer) (int64, error) {
	if err := m.checkWritable(); err != nil {
		return 0, err
	}
	lefts := make([]string, len(m.keys))
	width := 0
	for i, k := range m.keys {
		left := k
		if b := m.fields[k].left(); b != "" {
			left += " " + b
		}
		lefts[i] = left
		width = max(width, utf8.RuneCountInString(left))
	}

	bw := bufio.NewWriter(w)
	var n int64
	for i, k := range m.keys {
		f := m.fields[k]
		line := lefts[i] + strings.Repeat(" ", width-utf8.RuneCountInString(lefts[i])) +
			" " + DefaultOperator + " " + writeValue(f.Value)
		switch {
		case f.Comment != "":
			line += " " + DefaultComment + " " + f.Comment
		case f.Value == "":
			line = strings.TrimRight(line, " ")
		}
		c, err := bw.WriteString(line + "\n")
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

func (m *Mapping) checkWritable() error {
	for _, k := range m.keys {
		f := m.fields[k]
		switch {
		case strings.ContainsAny(k, "\r\n"+DefaultOperator+DefaultComment):
			return fmt.Errorf("%w: key %q", ErrUnwritableValue, k)
		case strings.ContainsAny(f.Value, "\r\n"+DefaultComment):
			return fmt.Errorf("%w: %s = %q", ErrUnwritableValue, k, f.Value)
		case strings.ContainsAny(f.Comment, "\r\n"):
			return fmt.Errorf("%w: comment of %s %q", ErrUnwritableValue, k, f.Comment)
		}
	}
	return nil
}

// writeValue keeps a trailing wrap character from joining the next line on
// re-read.
func writeValue(v string) string {
	if strings.HasSuffix(v, DefaultWrap) {
		return v + " "
	}
	return v
}

// WriteFile writes the mapping to path.
func (m *Mapping) WriteFile(path string) error {
	if err := m.checkWritable(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := m.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
