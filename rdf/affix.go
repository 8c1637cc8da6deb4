package rdf

import (
	"fmt"
	"strings"
)

// AffixKind selects which side of a key an Affix attaches to.
type AffixKind int

const (
	PrefixKind AffixKind = iota
	SuffixKind
)

func (k AffixKind) String() string {
	if k == SuffixKind {
		return "suffix"
	}
	return "prefix"
}

// Affix is a depth-indexed stack of key decorations. Entry i belongs to
// include depth i; composing a key joins every entry from depth 0 upwards.
type Affix struct {
	kind    AffixKind
	entries []string
}

// NewAffix returns an affix holding the single depth-0 entry "".
func NewAffix(kind AffixKind) *Affix {
	return &Affix{kind: kind, entries: []string{""}}
}

func (a *Affix) Kind() AffixKind { return a.kind }

// Depth is the index of the innermost entry.
func (a *Affix) Depth() int { return len(a.entries) - 1 }

// Len is the number of entries, always Depth()+1.
func (a *Affix) Len() int { return len(a.entries) }

// Descend opens an empty entry for a new include level.
func (a *Affix) Descend() {
	a.entries = append(a.entries, "")
}

// Ascend discards the innermost entry. The depth-0 entry is never removed.
func (a *Affix) Ascend() error {
	if len(a.entries) <= 1 {
		return fmt.Errorf("%w: %s ascend past depth 0", ErrAffixDepth, a.kind)
	}
	a.entries = a.entries[:len(a.entries)-1]
	return nil
}

// Set replaces the innermost entry; depth must be the current depth.
func (a *Affix) Set(depth int, value string) error {
	if depth != a.Depth() {
		return fmt.Errorf("%w: %s set at depth %d, current %d", ErrAffixDepth, a.kind, depth, a.Depth())
	}
	a.entries[depth] = value
	return nil
}

// Joined concatenates every entry from depth 0 upwards.
func (a *Affix) Joined() string {
	return strings.Join(a.entries, "")
}

// Compose decorates key with the joined affix.
func (a *Affix) Compose(key string) string {
	if a.kind == SuffixKind {
		return key + a.Joined()
	}
	return a.Joined() + key
}

// Entries returns a copy of the stack.
func (a *Affix) Entries() []string {
	return append([]string(nil), a.entries...)
}
