package rdf

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestMappingSetKeepsFirstPosition(t *testing.T) {
	m := New()
	m.Set("A", 1)
	m.Set("B", 2.5)
	m.Set(" A ", "again")

	wantKeys(t, m, "A", "B")
	wantValue(t, m, "A", "again")
	wantValue(t, m, "B", "2.5")
}

func TestMappingDelete(t *testing.T) {
	m, err := FromPairs("A", 1, "B", 2, "C", 3)
	if err != nil {
		t.Fatalf("FromPairs error: %v", err)
	}
	if !m.Delete("B") {
		t.Fatalf("Delete(B) = false")
	}
	if m.Delete("B") {
		t.Fatalf("second Delete(B) = true")
	}
	wantKeys(t, m, "A", "C")
}

func TestFromPairsErrors(t *testing.T) {
	if _, err := FromPairs("A"); !errors.Is(err, ErrOddPairs) {
		t.Fatalf("expected ErrOddPairs, got %v", err)
	}
	if _, err := FromPairs(1, "A"); err == nil {
		t.Fatalf("expected non-string key to fail")
	}
}

func TestFromMapIsSorted(t *testing.T) {
	m := FromMap(map[string]float64{"Z": 1, "A": 2, "M": 3})
	wantKeys(t, m, "A", "M", "Z")
}

func TestMappingConcatRightWins(t *testing.T) {
	left, _ := FromPairs("A", 1, "B", 2)
	right, _ := FromPairs("C", 3, "A", 10)

	got := left.Concat(right)
	wantKeys(t, got, "A", "B", "C")
	wantValue(t, got, "A", "10")

	wantValue(t, left, "A", "1")
	if left.Len() != 2 {
		t.Fatalf("Concat modified its receiver")
	}
}

func TestMappingFilterAndCast(t *testing.T) {
	m := parse(t, "R1 (km) = 1\nNAME = x\nR2 (m) = 5\n")
	ranged := m.Filter(func(_ string, f Field) bool { return f.Units == "m" })
	wantKeys(t, ranged, "R1", "R2")

	lens := Cast(m, func(f Field) int { return len(f.Value) })
	if lens["R1"] != 4 || lens["NAME"] != 1 {
		t.Fatalf("Cast = %v", lens)
	}
	if plain := m.Map(); plain["R2"] != "5" || len(plain) != 3 {
		t.Fatalf("Map = %v", plain)
	}
}

func TestMappingRequire(t *testing.T) {
	m, _ := FromPairs("A", 1)
	if err := m.Require("A"); err != nil {
		t.Fatalf("Require(A) error: %v", err)
	}
	err := m.Require("A", "B", "C")
	if !errors.Is(err, ErrMissingKeys) || !strings.Contains(err.Error(), "B, C") {
		t.Fatalf("Require error = %v", err)
	}
}

func TestMappingTypedAccessors(t *testing.T) {
	m := parse(t, "N = 42\nF = 2.5e3\nB = off\nV = 1 2.5 -3\nS = a b c\nT (min) = 2\nI = 7.0\n")

	if n, err := m.Int("N"); err != nil || n != 42 {
		t.Fatalf("Int(N) = %v, %v", n, err)
	}
	if n, err := m.Int("I"); err != nil || n != 7 {
		t.Fatalf("Int(I) = %v, %v", n, err)
	}
	if _, err := m.Int("F"); err != nil {
		t.Fatalf("Int(F) should accept an integral float: %v", err)
	}
	if f, err := m.Float("F"); err != nil || f != 2500 {
		t.Fatalf("Float(F) = %v, %v", f, err)
	}
	if b, err := m.Bool("B"); err != nil || b {
		t.Fatalf("Bool(B) = %v, %v", b, err)
	}
	if v, err := m.Floats("V"); err != nil || len(v) != 3 || v[2] != -3 {
		t.Fatalf("Floats(V) = %v, %v", v, err)
	}
	if s, err := m.Strings("S"); err != nil || len(s) != 3 {
		t.Fatalf("Strings(S) = %v, %v", s, err)
	}
	if d, err := m.Duration("T"); err != nil || d != 2*time.Minute {
		t.Fatalf("Duration(T) = %v, %v", d, err)
	}
	if _, err := m.Float("S"); err == nil {
		t.Fatalf("Float(S) should fail")
	}
	if _, err := m.Text("MISSING"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMappingWriteAlignsOperator(t *testing.T) {
	m := New()
	m.Set("A", "1")
	m.Set("LONGKEY", Field{Value: "2", Units: "m", Comment: "note"})
	m.Set("E", "")

	want := "A           = 1\n" +
		"LONGKEY (m) = 2 # note\n" +
		"E           =\n"
	if got := m.String(); got != want {
		t.Fatalf("String() =\n%q\nwant\n%q", got, want)
	}
}

func TestMappingWriteFile(t *testing.T) {
	m, _ := FromPairs("A", 1, "B", "two words")
	path := filepath.Join(t.TempDir(), "out.rdf")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != m.String() {
		t.Fatalf("file content %q, want %q", data, m.String())
	}
}

func TestMappingJSON(t *testing.T) {
	m := New()
	m.Set("Z", "1")
	m.Set("B", Field{Value: "2", Units: "m"})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if want := `{"Z":"1","B":{"value":"2","units":"m"}}`; string(data) != want {
		t.Fatalf("json = %s, want %s", data, want)
	}

	back := New()
	if err := json.Unmarshal(data, back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	wantKeys(t, back, "Z", "B")
	if f, _ := back.Field("B"); f.Units != "m" {
		t.Fatalf("B = %#v", f)
	}
}

func TestMappingYAML(t *testing.T) {
	m := New()
	m.Set("Z", "1")
	m.Set("B", Field{Value: "2", Units: "m", Element: "x"})

	data, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if strings.Index(string(data), "Z:") > strings.Index(string(data), "B:") {
		t.Fatalf("yaml lost key order:\n%s", data)
	}

	back := New()
	if err := yaml.Unmarshal(data, back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	wantKeys(t, back, "Z", "B")
	wantValue(t, back, "Z", "1")
	if f, _ := back.Field("B"); f.Units != "m" || f.Element != "x" {
		t.Fatalf("B = %#v", f)
	}
}

func TestMappingYAMLSequence(t *testing.T) {
	back := New()
	if err := yaml.Unmarshal([]byte("V: [1, 2, 3]\nN: 4\n"), back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	wantValue(t, back, "V", "1 2 3")
	wantValue(t, back, "N", "4")
}

func TestRecordString(t *testing.T) {
	r := Record{Key: "K", Field: Field{Value: "v", Units: "s", Dimensions: "2"}}
	if got := r.String(); got != "K (s) {2} = v" {
		t.Fatalf("Record.String() = %q", got)
	}
}

func TestRecordPromotesField(t *testing.T) {
	m := parse(t, "RANGE (km) {1} [x] = 2 # slant\n")
	recs := m.Records()
	if len(recs) != 1 {
		t.Fatalf("records = %v", recs)
	}
	r := recs[0]
	if r.Key != "RANGE" || r.Value != "2000" || r.Units != "m" || r.Dimensions != "1" || r.Element != "x" || r.Comment != "slant" {
		t.Fatalf("record = %+v", r)
	}
	if f, err := r.Float(); err != nil || f != 2000 {
		t.Fatalf("Float() = %v, %v", f, err)
	}
}

func TestFieldDurationRange(t *testing.T) {
	for _, v := range []string{"1e12", "-1e12", "+Inf", "NaN"} {
		if d, err := NewField(v).Duration(); !errors.Is(err, ErrDurationRange) {
			t.Fatalf("Duration(%s) = %v, %v; want ErrDurationRange", v, d, err)
		}
	}
	if d, err := NewField("1e9").Duration(); err != nil || d != 1e9*time.Second {
		t.Fatalf("Duration(1e9) = %v, %v", d, err)
	}
	m, _ := FromPairs("SPAN", "1e12")
	if _, err := m.Duration("SPAN"); !errors.Is(err, ErrDurationRange) {
		t.Fatalf("Mapping.Duration error = %v", err)
	}
}

func TestMappingWriteRejectsUnreadableValues(t *testing.T) {
	for _, m := range []*Mapping{
		FromMap(map[string]string{"A": "x # y"}),
		FromMap(map[string]string{"B": "line1\nline2"}),
		FromMap(map[string]string{"C = D": "1"}),
		FromRecords(Record{Key: "E", Field: Field{Value: "1", Comment: "two\nlines"}}),
	} {
		var buf strings.Builder
		if _, err := m.WriteTo(&buf); !errors.Is(err, ErrUnwritableValue) {
			t.Fatalf("WriteTo(%v) error = %v, want ErrUnwritableValue", m.Keys(), err)
		}
		if buf.Len() != 0 {
			t.Fatalf("partial output %q", buf.String())
		}
	}

	path := filepath.Join(t.TempDir(), "bad.rdf")
	if err := FromMap(map[string]string{"A": "x # y"}).WriteFile(path); !errors.Is(err, ErrUnwritableValue) {
		t.Fatalf("WriteFile error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("WriteFile created %s for an unwritable mapping", path)
	}
}
