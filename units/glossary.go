// Package units holds the unit-conversion glossary used to normalise
// annotated configuration values to a base system of units.
//
// A Unit converts a value expressed in its Symbol to the Base symbol with
//
//	out = Multiplier*in + Adder
//
// The Glossary maps symbols to units. Default returns a process-wide glossary
// populated once with SI-prefixed and binary-prefixed variants of the standard
// physical quantities.
package units

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnrecognizedUnit = errors.New("unrecognized unit")
	ErrRedefinedUnit    = errors.New("unit redefined")
	ErrEmptySymbol      = errors.New("empty unit symbol")
	ErrBaseRequired     = errors.New("base required")
)

// Unit is a single conversion descriptor.
type Unit struct {
	Symbol     string
	Multiplier float64
	Adder      float64
	Base       string
}

// Convert applies the unit's linear conversion to x.
func (u Unit) Convert(x float64) float64 {
	return u.Multiplier*x + u.Adder
}

// UnrecognizedUnitError is returned by Convert for a symbol missing from the
// glossary. Suppressed is set for every miss of a symbol after the first, so
// callers can warn once per symbol.
type UnrecognizedUnitError struct {
	Symbol     string
	Suggestion string
	Suppressed bool
}

func (e *UnrecognizedUnitError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unrecognized unit %q (did you mean %q?)", e.Symbol, e.Suggestion)
	}
	return fmt.Sprintf("unrecognized unit %q", e.Symbol)
}

func (e *UnrecognizedUnitError) Unwrap() error { return ErrUnrecognizedUnit }

// RedefinedUnitError is advisory: the new definition has been stored.
type RedefinedUnitError struct {
	Previous Unit
	Current  Unit
}

func (e *RedefinedUnitError) Error() string {
	return fmt.Sprintf("overwriting unit %q (base %q -> %q)", e.Current.Symbol, e.Previous.Base, e.Current.Base)
}

func (e *RedefinedUnitError) Unwrap() error { return ErrRedefinedUnit }

// Glossary is a concurrency-safe symbol -> Unit table.
type Glossary struct {
	mu     sync.RWMutex
	units  map[string]Unit
	order  []string
	missed map[string]struct{}
}

// NewGlossary returns an empty glossary.
func NewGlossary() *Glossary {
	return &Glossary{
		units:  make(map[string]Unit),
		missed: make(map[string]struct{}),
	}
}

// Register stores a unit under symbol. An empty base reuses the base of an
// existing definition of symbol. A new symbol without a base becomes its own
// base and must then be the identity conversion, otherwise converted values
// would keep a symbol they are no longer expressed in.
//
// Overwriting an existing symbol succeeds and returns a *RedefinedUnitError
// alongside the stored unit.
func (g *Glossary) Register(symbol string, multiplier, adder float64, base string) (Unit, error) {
	if symbol == "" {
		return Unit{}, ErrEmptySymbol
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	prev, exists := g.units[symbol]
	if base == "" {
		switch {
		case exists:
			base = prev.Base
		case multiplier != 1 || adder != 0:
			return Unit{}, fmt.Errorf("%w for %s", ErrBaseRequired, symbol)
		default:
			base = symbol
		}
	}
	u := Unit{Symbol: symbol, Multiplier: multiplier, Adder: adder, Base: base}
	g.units[symbol] = u
	delete(g.missed, symbol)

	if exists {
		return u, &RedefinedUnitError{Previous: prev, Current: u}
	}
	g.order = append(g.order, symbol)
	return u, nil
}

// Lookup returns the unit registered for symbol.
func (g *Glossary) Lookup(symbol string) (Unit, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	u, ok := g.units[symbol]
	return u, ok
}

// Resolve returns the unit registered for symbol. A miss returns an
// *UnrecognizedUnitError and is remembered, so later misses of the same
// symbol come back Suppressed.
func (g *Glossary) Resolve(symbol string) (Unit, error) {
	g.mu.RLock()
	u, ok := g.units[symbol]
	g.mu.RUnlock()
	if ok {
		return u, nil
	}

	g.mu.Lock()
	_, seen := g.missed[symbol]
	g.missed[symbol] = struct{}{}
	g.mu.Unlock()

	return Unit{}, &UnrecognizedUnitError{
		Symbol:     symbol,
		Suggestion: g.Suggest(symbol),
		Suppressed: seen,
	}
}

// Convert converts value from symbol to the symbol's base unit. On a miss the
// value and symbol are returned unchanged together with the Resolve error.
func (g *Glossary) Convert(value float64, symbol string) (float64, string, error) {
	u, err := g.Resolve(symbol)
	if err != nil {
		return value, symbol, err
	}
	return u.Convert(value), u.Base, nil
}

// Symbols returns every registered symbol in registration order.
func (g *Glossary) Symbols() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.order...)
}

// Units returns every registered unit grouped by base and ordered by
// multiplier within a base.
func (g *Glossary) Units() []Unit {
	g.mu.RLock()
	out := make([]Unit, 0, len(g.units))
	for _, sym := range g.order {
		out = append(out, g.units[sym])
	}
	g.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Base != out[j].Base {
			return out[i].Base < out[j].Base
		}
		return out[i].Multiplier < out[j].Multiplier
	})
	return out
}

// Len returns the number of registered symbols.
func (g *Glossary) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.units)
}
