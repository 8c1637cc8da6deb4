package rdf

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/units"
)

func testOptions(extra ...Option) []Option {
	opts := []Option{
		WithLogger(logging.Noop()),
		WithGlossary(units.NewStandard(logging.Noop())),
	}
	return append(opts, extra...)
}

func parse(t *testing.T, text string, extra ...Option) *Mapping {
	t.Helper()
	m, err := ParseString(context.Background(), text, testOptions(extra...)...)
	if err != nil {
		t.Fatalf("ParseString error: %v", err)
	}
	return m
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func wantValue(t *testing.T, m *Mapping, key, want string) {
	t.Helper()
	got, ok := m.Value(key)
	if !ok {
		t.Fatalf("key %q missing; have %v", key, m.Keys())
	}
	if got != want {
		t.Fatalf("%s = %q, want %q", key, got, want)
	}
}

func wantKeys(t *testing.T, m *Mapping, want ...string) {
	t.Helper()
	got := m.Keys()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %v, want %v", got, want)
	}
}

type countingMetrics struct {
	records, comments, includes, parses int
	warnings                            map[string]int
	lookups                             map[string]int
	lastErr                             error
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{warnings: map[string]int{}, lookups: map[string]int{}}
}

func (c *countingMetrics) ObserveRecord()             { c.records++ }
func (c *countingMetrics) ObserveComment()            { c.comments++ }
func (c *countingMetrics) ObserveWarning(kind string) { c.warnings[kind]++ }
func (c *countingMetrics) ObserveInclude()            { c.includes++ }
func (c *countingMetrics) ObserveUnitLookup(r string) { c.lookups[r]++ }
func (c *countingMetrics) ObserveParse(_ time.Duration, err error) {
	c.parses++
	c.lastErr = err
}

func TestParseRecordWithUnitsAndComment(t *testing.T) {
	m := parse(t, "A = 1\nB (km) {1} [x] = 2 # two\n")

	wantKeys(t, m, "A", "B")
	wantValue(t, m, "A", "1")
	f, _ := m.Field("B")
	want := Field{Value: "2000", Units: "m", Dimensions: "1", Element: "x", Comment: "two"}
	if f != want {
		t.Fatalf("B = %#v, want %#v", f, want)
	}
}

func TestParseLastWriteWins(t *testing.T) {
	m := parse(t, "A = 1\nB = 2\nA = 3\n")
	wantKeys(t, m, "A", "B")
	wantValue(t, m, "A", "3")
}

func TestParseBracketErrorsDropOnlyTheLine(t *testing.T) {
	metrics := newCountingMetrics()
	m := parse(t, "GOOD = 1\nBAD (m {dim] = 1\nTWICE (m) (s) = 2\nALSO = 2\n", WithMetrics(metrics))

	wantKeys(t, m, "GOOD", "ALSO")
	if metrics.warnings["unmatched_brackets"] != 1 || metrics.warnings["run_on_sentence"] != 1 {
		t.Fatalf("warnings = %v", metrics.warnings)
	}
}

func TestParseCommentsAndBlankLines(t *testing.T) {
	p := NewParser(testOptions()...)
	var records, comments int
	for e, err := range p.ReaderEntries(context.Background(), "mem", strings.NewReader("# header\n\n   \nA = 1\nloose words\n")) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		switch v := e.(type) {
		case Record:
			records++
		case Comment:
			comments++
			if v.HasData() {
				t.Fatalf("comment claims data")
			}
		}
	}
	if records != 1 || comments != 2 {
		t.Fatalf("records=%d comments=%d, want 1/2", records, comments)
	}
}

func TestParseLineContinuation(t *testing.T) {
	m := parse(t, "LIST = 1 2 /\n3 4\nTAIL = x/")
	wantValue(t, m, "LIST", "1 2 3 4")
	wantValue(t, m, "TAIL", "x")
}

func TestParseWrapDisabled(t *testing.T) {
	m := parse(t, "PATH = /data/\n", WithWrap(""))
	wantValue(t, m, "PATH", "/data/")
}

func TestParseOperatorAndCommentVerbs(t *testing.T) {
	m := parse(t, "OPERATOR = :\nA : 1\nB = 2\nOPERATOR : =\nCOMMENT = !\nC = 3 ! note\nD = 4 # kept\n")

	wantKeys(t, m, "A", "C", "D")
	wantValue(t, m, "A", "1")
	f, _ := m.Field("C")
	if f.Value != "3" || f.Comment != "note" {
		t.Fatalf("C = %#v", f)
	}
	wantValue(t, m, "D", "4 # kept")
}

func TestParseNullAndBadGlyphAreFatal(t *testing.T) {
	cases := map[string]error{
		"OPERATOR =\n":    ErrNullCommand,
		"COMMENT =\n":     ErrNullCommand,
		"OPERATOR = :=\n": ErrBadGlyph,
	}
	for text, want := range cases {
		m, err := ParseString(context.Background(), "A = 1\n"+text+"B = 2\n", testOptions()...)
		if !errors.Is(err, want) {
			t.Fatalf("%q: error = %v, want %v", text, err, want)
		}
		if m != nil {
			t.Fatalf("%q: fatal parse returned a mapping", text)
		}
		var lerr *LineError
		if !errors.As(err, &lerr) || lerr.Pos.Line != 2 {
			t.Fatalf("%q: expected *LineError at line 2, got %v", text, err)
		}
	}
}

func TestParseKeywordsAreCaseSensitiveByDefault(t *testing.T) {
	m := parse(t, "prefix = p_\nA = 1\n")
	wantKeys(t, m, "prefix", "A")

	m = parse(t, "prefix = p_\nA = 1\n", WithCaseInsensitiveKeywords())
	wantKeys(t, m, "p_A")
}

func TestParseUnitVerb(t *testing.T) {
	g := units.NewStandard(logging.Noop())
	m := parse(t, "UNIT = (furlong, 201.168, symbol=m)\nLEN (furlong) = 2\n", WithGlossary(g))

	f, _ := m.Field("LEN")
	x, err := f.Float()
	if err != nil || math.Abs(x-402.336) > 1e-9 || f.Units != "m" {
		t.Fatalf("LEN = %#v (%v)", f, err)
	}
	if _, ok := g.Lookup("furlong"); !ok {
		t.Fatalf("UNIT verb did not register into the glossary")
	}
}

func TestParseUnitVerbMalformed(t *testing.T) {
	for _, text := range []string{
		"UNIT = (furlong)",
		"UNIT = (furlong, lots)",
		"UNIT = (furlong, 2, base=m, 3)",
		"UNIT = ()",
		"UNIT = (furlong, 201.168)",
	} {
		if _, err := ParseString(context.Background(), text, testOptions()...); !errors.Is(err, ErrBadUnitVerb) {
			t.Fatalf("%q: error = %v, want ErrBadUnitVerb", text, err)
		}
	}
}

func TestParseUnitVerbRoundTrip(t *testing.T) {
	g := units.NewGlossary()
	m := parse(t, "UNIT = (furlong, 201.168, base=m)\nUNIT = (m, 1)\nL (furlong) = 2\n", WithGlossary(g))
	again := parse(t, m.String(), WithGlossary(g))
	if !m.Equal(again) {
		t.Fatalf("round trip changed the mapping:\n%s\nvs\n%s", m, again)
	}
	if x, err := again.Float("L"); err != nil || math.Abs(x-402.336) > 1e-9 {
		t.Fatalf("L = %v, %v", x, err)
	}
}

func TestParseUnitOverwriteIsAdvisory(t *testing.T) {
	metrics := newCountingMetrics()
	m := parse(t, "UNIT = (km, 999)\nD (km) = 1\n", WithMetrics(metrics))
	wantValue(t, m, "D", "999")
	if metrics.warnings["redefined_unit"] != 1 {
		t.Fatalf("warnings = %v", metrics.warnings)
	}
}

func TestParseUnknownUnitWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Writer: &buf, Format: "json"})
	m := parse(t, "X (zz) = 1\nY (zz) = 2\n", WithLogger(log))

	f, _ := m.Field("Y")
	if f.Value != "2" || f.Units != "zz" {
		t.Fatalf("Y = %#v, want unconverted", f)
	}
	if n := strings.Count(buf.String(), "unrecognized unit"); n != 1 {
		t.Fatalf("unrecognized unit logged %d times, want 1:\n%s", n, buf.String())
	}
}

func TestParseNonNumericUnderUnit(t *testing.T) {
	metrics := newCountingMetrics()
	m := parse(t, "X (km) = abc\n", WithMetrics(metrics))
	f, _ := m.Field("X")
	if f.Value != "abc" || f.Units != "km" {
		t.Fatalf("X = %#v", f)
	}
	if metrics.warnings["non_numeric"] != 1 {
		t.Fatalf("warnings = %v", metrics.warnings)
	}
}

func TestParseVectorConversion(t *testing.T) {
	m := parse(t, "V (km) = 1 2 3\n")
	wantValue(t, m, "V", "1000 2000 3000")
	xs, err := m.Floats("V")
	if err != nil || len(xs) != 3 || xs[2] != 3000 {
		t.Fatalf("Floats = %v, %v", xs, err)
	}
}

func TestParseIncludeAffixScoping(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sub.rdf", "PREFIX = sub_\nC = 3\nSUFFIX = _x\nD = 4\n")
	main := writeFile(t, dir, "main.rdf", "PREFIX = top_\nA = 1\nINCLUDE = sub.rdf\nB = 2\n")

	metrics := newCountingMetrics()
	m, err := ParseFile(context.Background(), main, testOptions(WithMetrics(metrics))...)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	wantKeys(t, m, "top_A", "top_sub_C", "top_sub_D_x", "top_B")
	if metrics.includes != 1 || metrics.parses != 1 || metrics.records != 4 {
		t.Fatalf("metrics = %+v", metrics)
	}
}

func TestParseIncludeResolvesAgainstIncludingFile(t *testing.T) {
	dir := t.TempDir()
	two := writeFile(t, dir, "inc/two.rdf", "TWO = 2\n")
	one := writeFile(t, dir, "inc/one.rdf", "ONE = 1\nINCLUDE = two.rdf\n")
	main := writeFile(t, dir, "main.rdf", "INCLUDE = inc/one.rdf\nMAIN = 0\n")

	m, err := ParseFile(context.Background(), main, testOptions()...)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	wantKeys(t, m, "ONE", "TWO", "MAIN")

	want := []string{canonicalPath(main), canonicalPath(one), canonicalPath(two)}
	if got := m.Sources(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Sources = %v, want %v", got, want)
	}
}

func TestParseStringIncludeUsesBaseDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.rdf", "EXTRA = yes\n")

	m := parse(t, "INCLUDE = extra.rdf\n", WithBaseDir(dir))
	b, err := m.Bool("EXTRA")
	if err != nil || !b {
		t.Fatalf("EXTRA = %v, %v", b, err)
	}
}

func TestParseIncludeMissingIsFatal(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.rdf", "A = 1\nINCLUDE = nowhere.rdf\n")

	_, err := ParseFile(context.Background(), main, testOptions()...)
	if !errors.Is(err, ErrOpenSource) {
		t.Fatalf("expected ErrOpenSource, got %v", err)
	}
	var serr *SourceError
	if !errors.As(err, &serr) || len(serr.Chain) != 1 {
		t.Fatalf("expected *SourceError with one open source, got %v", err)
	}
}

func TestParseTopLevelMissingIsFatal(t *testing.T) {
	_, err := ParseFile(context.Background(), filepath.Join(t.TempDir(), "absent.rdf"), testOptions()...)
	if !errors.Is(err, ErrOpenSource) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrOpenSource wrapping ErrNotExist, got %v", err)
	}
}

func TestParseIncludeCycleIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.rdf", "B = 1\nINCLUDE = a.rdf\n")
	a := writeFile(t, dir, "a.rdf", "A = 1\nINCLUDE = b.rdf\n")

	_, err := ParseFile(context.Background(), a, testOptions()...)
	if !errors.Is(err, ErrIncludeCycle) {
		t.Fatalf("expected ErrIncludeCycle, got %v", err)
	}
}

func TestParseSameFileIncludedTwiceIsNotACycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.rdf", "C = 1\n")
	main := writeFile(t, dir, "main.rdf", "PREFIX = a_\nINCLUDE = common.rdf\nPREFIX = b_\nINCLUDE = common.rdf\n")

	m, err := ParseFile(context.Background(), main, testOptions()...)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	wantKeys(t, m, "a_C", "b_C")
}

func TestTraversalRestoresDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.rdf", "PREFIX = c_\nSUFFIX = _c\nC = 3\n")
	writeFile(t, dir, "b.rdf", "PREFIX = b_\nINCLUDE = c.rdf\nB = 2\n")
	main := writeFile(t, dir, "a.rdf", "INCLUDE = b.rdf\nA = 1\n")

	p := NewParser(testOptions()...)
	root, err := p.rootFile(main)
	if err != nil {
		t.Fatalf("rootFile error: %v", err)
	}
	tr := &traversal{
		opts:    p.opts,
		grammar: newGrammar(p.opts),
		log:     logging.Noop(),
		span:    trace.SpanFromContext(context.Background()),
	}
	var keys []string
	err = tr.run(context.Background(), root, func(e Entry) bool {
		if r, ok := e.(Record); ok {
			keys = append(keys, r.Key)
		}
		if tr.grammar.Prefix().Len() != tr.grammar.Depth()+1 || tr.grammar.Suffix().Len() != tr.grammar.Depth()+1 {
			t.Fatalf("affix stacks out of step with depth %d", tr.grammar.Depth())
		}
		return true
	})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if strings.Join(keys, ",") != "b_c_C_c,b_B,A" {
		t.Fatalf("keys = %v", keys)
	}
	if tr.grammar.Depth() != 0 || tr.grammar.Prefix().Len() != 1 || tr.grammar.Suffix().Len() != 1 {
		t.Fatalf("depth %d prefix %d suffix %d after traversal", tr.grammar.Depth(), tr.grammar.Prefix().Len(), tr.grammar.Suffix().Len())
	}
	if len(tr.stack) != 0 {
		t.Fatalf("%d frames left open", len(tr.stack))
	}
}

func TestEntriesStopEarly(t *testing.T) {
	p := NewParser(testOptions()...)
	n := 0
	for range p.ReaderEntries(context.Background(), "mem", strings.NewReader("A = 1\nB = 2\nC = 3\n")) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("consumed %d entries, want 2", n)
	}
}

func TestEntriesYieldFatalError(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.rdf", "A = 1\nOPERATOR =\n")

	var got error
	var records int
	for e, err := range NewParser(testOptions()...).Entries(context.Background(), main) {
		if err != nil {
			got = err
			continue
		}
		if e.HasData() {
			records++
		}
	}
	if records != 1 || !errors.Is(got, ErrNullCommand) {
		t.Fatalf("records=%d err=%v", records, got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	src := strings.Join([]string{
		"# round trip",
		"NAME = ground station",
		"RANGE (km) {1} = 12",
		"VEC (m) [xyz] = 1 2 3 # position",
		"EMPTY =",
		"PREFIX = p_",
		"INNER = 5",
	}, "\n")
	m := parse(t, src)
	m.Set("PATH", "/data/out/")

	again := parse(t, m.String())
	if !again.Equal(m) {
		t.Fatalf("round trip mismatch:\n%s\nvs\n%s", m, again)
	}
	wantKeys(t, again, m.Keys()...)
	wantValue(t, again, "PATH", "/data/out/")
	wantValue(t, again, "RANGE", "12000")
}

func TestFieldWrappingIsIdempotent(t *testing.T) {
	f := NewField(12.5, WithUnits("m"), WithComment("c"))
	if f.Value != "12.5" {
		t.Fatalf("Value = %q", f.Value)
	}
	if g := NewField(f); g != f {
		t.Fatalf("NewField(Field) = %#v, want %#v", g, f)
	}
	if g := NewField(f, WithUnits("km")); g != f {
		t.Fatalf("options applied to an existing Field: %#v", g)
	}
	if g := NewField(&f); g != f {
		t.Fatalf("NewField(*Field) = %#v", g)
	}
}
