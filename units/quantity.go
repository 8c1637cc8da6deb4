package units

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/signalsfoundry/groundproc/internal/logging"
)

// Family selects which prefixes a quantity is registered with.
type Family int

const (
	// Plain quantities register only their base symbol.
	Plain Family = iota
	// Metric quantities register every MetricPrefixes variant.
	Metric
	// Binary quantities register the base plus JEDEC and IEC variants.
	Binary
)

func (f Family) String() string {
	switch f {
	case Metric:
		return "metric"
	case Binary:
		return "binary"
	default:
		return "plain"
	}
}

// Quantity describes one physical quantity and how its prefixed symbols are
// derived.
type Quantity struct {
	Name   string
	Symbol string // base symbol
	Family Family
	Power  int // dimensional exponent of the prefixed stem, 1 when zero

	// Stem is the symbol prefixes attach to when it differs from Symbol, with
	// StemScale converting one Stem into Symbol (mass is prefixed on the gram).
	Stem      string
	StemScale float64
}

// Standard is the built-in quantity table.
var Standard = []Quantity{
	// SI base units
	{Name: "length", Symbol: "m", Family: Metric},
	{Name: "mass", Symbol: "kg", Family: Metric, Stem: "g", StemScale: 1e-3},
	{Name: "time", Symbol: "s", Family: Metric},
	{Name: "electric current", Symbol: "amp", Family: Metric},
	{Name: "temperature", Symbol: "K", Family: Metric},
	{Name: "amount of substance", Symbol: "mol", Family: Metric},
	{Name: "luminous intensity", Symbol: "cd", Family: Metric},

	// special coherent derived
	{Name: "plane angle", Symbol: "rad", Family: Metric},
	{Name: "solid angle", Symbol: "sr", Family: Metric},
	{Name: "pressure", Symbol: "Pa", Family: Metric},
	{Name: "frequency", Symbol: "Hz", Family: Metric},
	{Name: "force", Symbol: "N", Family: Metric},
	{Name: "energy", Symbol: "J", Family: Metric},
	{Name: "power", Symbol: "W", Family: Metric},
	{Name: "charge", Symbol: "C", Family: Metric},
	{Name: "emf", Symbol: "V", Family: Metric},
	{Name: "capacitance", Symbol: "F", Family: Metric},
	{Name: "electrical resistance", Symbol: "ohm", Family: Metric},
	{Name: "electrical conductance", Symbol: "S", Family: Metric},
	{Name: "magnetic flux", Symbol: "Wb", Family: Metric},
	{Name: "magnetic flux density", Symbol: "T", Family: Metric},
	{Name: "inductance", Symbol: "H", Family: Metric},
	{Name: "celsius temperature", Symbol: "degC", Family: Metric},
	{Name: "luminous flux", Symbol: "lm", Family: Metric},
	{Name: "illuminance", Symbol: "lx", Family: Metric},
	{Name: "activity", Symbol: "Bq", Family: Metric},
	{Name: "absorbed dose", Symbol: "Gy", Family: Metric},
	{Name: "dose equivalent", Symbol: "Sv", Family: Metric},
	{Name: "catalytic activity", Symbol: "kat", Family: Metric},

	// coherent derived
	{Name: "area", Symbol: "m**2", Family: Metric, Power: 2},
	{Name: "volume", Symbol: "m**3", Family: Metric, Power: 3},
	{Name: "velocity", Symbol: "m/s", Family: Metric},
	{Name: "dynamic viscosity", Symbol: "Pa*s", Family: Metric},
	{Name: "moment of force", Symbol: "N*m", Family: Metric},
	{Name: "wave number", Symbol: "m**-1", Family: Metric, Power: -1},
	{Name: "acceleration", Symbol: "m/s**2", Family: Metric},
	{Name: "density", Symbol: "kg/m**3", Family: Metric},
	{Name: "specific volume", Symbol: "m**3/kg", Family: Metric},
	{Name: "current density", Symbol: "A/m**2", Family: Metric},
	{Name: "magnetic field strength", Symbol: "A/m", Family: Metric},
	{Name: "luminance", Symbol: "cd/m**2", Family: Metric},
	{Name: "concentration", Symbol: "mol/m**3", Family: Metric},

	// accepted
	{Name: "decibel power", Symbol: "dbW", Family: Plain},
	{Name: "data volume (bits)", Symbol: "bits", Family: Binary},
	{Name: "data rate (bits)", Symbol: "bits/s", Family: Binary},
	{Name: "data volume (bytes)", Symbol: "byte", Family: Binary},
	{Name: "data rate (bytes)", Symbol: "byte/s", Family: Binary},
}

// Accepted lists non-SI units normalised onto SI bases.
var Accepted = []Unit{
	{Symbol: "min", Multiplier: 60, Base: "s"},
	{Symbol: "h", Multiplier: 3600, Base: "s"},
	{Symbol: "day", Multiplier: 86400, Base: "s"},
	{Symbol: "ft", Multiplier: 0.3048, Base: "m"},
	{Symbol: "nmi", Multiplier: 1852, Base: "m"},
	{Symbol: "deg", Multiplier: math.Pi / 180, Base: "rad"},
	{Symbol: "arcmin", Multiplier: math.Pi / (180 * 60), Base: "rad"},
	{Symbol: "arcsec", Multiplier: math.Pi / (180 * 3600), Base: "rad"},
	{Symbol: "degF", Multiplier: 5.0 / 9.0, Adder: -160.0 / 9.0, Base: "degC"},
}

// Collision reports a symbol registered by more than one quantity.
type Collision struct {
	Symbol   string
	Quantity string
	Previous Unit
	Current  Unit
}

// Populate registers every variant of qs into g in a deterministic order and
// returns the collisions it detected. Later registrations win.
func Populate(g *Glossary, qs []Quantity) []Collision {
	var collisions []Collision
	add := func(q Quantity, symbol string, multiplier float64) {
		_, err := g.Register(symbol, multiplier, 0, q.Symbol)
		var redef *RedefinedUnitError
		if errors.As(err, &redef) {
			collisions = append(collisions, Collision{
				Symbol:   symbol,
				Quantity: q.Name,
				Previous: redef.Previous,
				Current:  redef.Current,
			})
		}
	}

	for _, q := range qs {
		stem, scale := q.Stem, q.StemScale
		if stem == "" {
			stem, scale = q.Symbol, 1
		}
		power := q.Power
		if power == 0 {
			power = 1
		}

		switch q.Family {
		case Metric:
			for _, p := range MetricPrefixes {
				add(q, p.Symbol+stem, p.Factor(power)*scale)
			}
		case Binary:
			add(q, Unit2.Symbol+stem, Unit2.Factor(power)*scale)
			for _, p := range JEDECPrefixes {
				add(q, p.Symbol+stem, p.Factor(power)*scale)
			}
			for _, p := range IECPrefixes {
				add(q, p.Symbol+stem, p.Factor(power)*scale)
			}
		default:
			add(q, q.Symbol, 1)
		}
	}
	return collisions
}

// NewStandard builds a glossary holding Standard and Accepted. Collisions are
// logged as warnings.
func NewStandard(log logging.Logger) *Glossary {
	return build(log, Standard, Accepted)
}

func build(log logging.Logger, qs []Quantity, accepted []Unit) *Glossary {
	if log == nil {
		log = logging.Noop()
	}
	g := NewGlossary()
	collisions := Populate(g, qs)
	for _, u := range accepted {
		if _, err := g.Register(u.Symbol, u.Multiplier, u.Adder, u.Base); err != nil {
			var redef *RedefinedUnitError
			if errors.As(err, &redef) {
				collisions = append(collisions, Collision{Symbol: u.Symbol, Quantity: "accepted", Previous: redef.Previous, Current: redef.Current})
			}
		}
	}
	for _, c := range collisions {
		log.Warn(context.Background(), "unit symbol collision",
			logging.String("symbol", c.Symbol),
			logging.String("quantity", c.Quantity),
			logging.String("previous_base", c.Previous.Base),
			logging.String("base", c.Current.Base),
		)
	}
	return g
}

var (
	defaultOnce     sync.Once
	defaultGlossary *Glossary
)

// Default returns the process-wide glossary, built on first use.
func Default() *Glossary {
	defaultOnce.Do(func() {
		defaultGlossary = NewStandard(logging.NewFromEnv())
	})
	return defaultGlossary
}
