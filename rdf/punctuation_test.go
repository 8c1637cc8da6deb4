package rdf

import (
	"errors"
	"testing"
)

func TestSplitOnGlyph(t *testing.T) {
	cases := []struct {
		line, glyph string
		left, right string
	}{
		{"KEY = value", "=", "KEY", "value"},
		{"  KEY=value=more ", "=", "KEY", "value=more"},
		{"no operator here", "=", "no operator here", ""},
		{"A = 1 # note", "#", "A = 1", "note"},
		{"", "=", "", ""},
	}
	for _, tc := range cases {
		left, right := SplitOnGlyph(tc.line, tc.glyph)
		if left != tc.left || right != tc.right {
			t.Fatalf("SplitOnGlyph(%q, %q) = %q, %q; want %q, %q", tc.line, tc.glyph, left, right, tc.left, tc.right)
		}
	}
}

func TestNewGlyph(t *testing.T) {
	if g, err := NewGlyph(" ; "); err != nil || g.String() != ";" {
		t.Fatalf("NewGlyph(;) = %q, %v", g, err)
	}
	if _, err := NewGlyph(""); !errors.Is(err, ErrNullCommand) {
		t.Fatalf("expected ErrNullCommand, got %v", err)
	}
	if _, err := NewGlyph(":="); !errors.Is(err, ErrBadGlyph) {
		t.Fatalf("expected ErrBadGlyph, got %v", err)
	}
}

func TestBracketExtract(t *testing.T) {
	cases := []struct {
		name     string
		line     string
		contents string
		ok       bool
		err      error
	}{
		{"present", "KEY (km) ", "km", true, nil},
		{"padded", "KEY ( km )", "km", true, nil},
		{"absent", "KEY", "", false, nil},
		{"empty pair", "KEY ()", "", true, nil},
		{"open only", "KEY (km", "", false, ErrUnmatchedBrackets},
		{"close only", "KEY km)", "", false, ErrUnmatchedBrackets},
		{"twice", "KEY (km) (m)", "", false, ErrRunOnSentence},
		{"backward", "KEY )km(", "", false, ErrBackwardBrackets},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := Units.Extract(tc.line)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("Extract(%q) error = %v, want %v", tc.line, err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract(%q) error: %v", tc.line, err)
			}
			if got != tc.contents || ok != tc.ok {
				t.Fatalf("Extract(%q) = %q, %v; want %q, %v", tc.line, got, ok, tc.contents, tc.ok)
			}
		})
	}
}

func TestBracketExtractReserved(t *testing.T) {
	_, _, err := Element.Extract("KEY [a#b]", mustGlyph("="), mustGlyph("#"))
	if !errors.Is(err, ErrReservedCharacter) {
		t.Fatalf("expected ErrReservedCharacter, got %v", err)
	}
	if !IsWarning(err) {
		t.Fatalf("reserved character should be a per-line warning")
	}
}

func TestBracketInsert(t *testing.T) {
	if got := Units.Insert("km"); got != " (km) " {
		t.Fatalf("Insert(km) = %q", got)
	}
	if got := Dimensions.Insert(""); got != "" {
		t.Fatalf("Insert(\"\") = %q, want empty", got)
	}
}

func TestParseLeft(t *testing.T) {
	cases := []struct {
		left                      string
		key, units, dims, element string
	}{
		{"RANGE (km) {3} [x]", "RANGE", "km", "3", "x"},
		{"RANGE [x] (km)", "RANGE", "km", "", "x"},
		{"RANGE {3}", "RANGE", "", "3", ""},
		{"  RANGE  ", "RANGE", "", "", ""},
	}
	for _, tc := range cases {
		key, units, dims, elem, err := ParseLeft(tc.left)
		if err != nil {
			t.Fatalf("ParseLeft(%q) error: %v", tc.left, err)
		}
		if key != tc.key || units != tc.units || dims != tc.dims || elem != tc.element {
			t.Fatalf("ParseLeft(%q) = %q %q %q %q", tc.left, key, units, dims, elem)
		}
	}

	if _, _, _, _, err := ParseLeft("key (m {dim]"); !errors.Is(err, ErrUnmatchedBrackets) {
		t.Fatalf("expected ErrUnmatchedBrackets, got %v", err)
	}
}
