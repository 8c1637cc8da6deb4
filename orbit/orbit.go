// Package orbit propagates a two-line element set described by an RDF
// configuration into an Earth-fixed ephemeris.
package orbit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/groundproc/rdf"
)

// Configuration keys read by ConfigFromMapping.
const (
	KeyName    = "SATELLITE"
	KeyLine1   = "TLE_LINE1"
	KeyLine2   = "TLE_LINE2"
	KeyGravity = "GRAVITY"
	KeyStart   = "START"
	KeyStep    = "STEP"
	KeySpan    = "SPAN"
)

const (
	DefaultStep = time.Minute
	DefaultSpan = 90 * time.Minute
	MaxStates   = 1_000_000

	kmToM     = 1000.0
	earthRate = 7.292115e-5 // rad/s
)

var (
	ErrBadTLE     = errors.New("malformed TLE")
	ErrBadGravity = errors.New("unknown gravity model")
	ErrBadWindow  = errors.New("invalid propagation window")
)

var startLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Config drives a propagation.
type Config struct {
	Name    string
	Line1   string
	Line2   string
	Gravity satellite.Gravity
	Start   time.Time
	Step    time.Duration
	Span    time.Duration
}

// ConfigFromMapping reads TLE_LINE1, TLE_LINE2, START and the optional
// SATELLITE, GRAVITY, STEP and SPAN keys. STEP and SPAN are expected in
// seconds, which the glossary converts to whatever unit they were written in.
func ConfigFromMapping(m *rdf.Mapping) (Config, error) {
	if err := m.Require(KeyLine1, KeyLine2, KeyStart); err != nil {
		return Config{}, err
	}
	cfg := Config{Step: DefaultStep, Span: DefaultSpan, Gravity: satellite.GravityWGS72}
	cfg.Name, _ = m.Value(KeyName)
	cfg.Line1, _ = m.Value(KeyLine1)
	cfg.Line2, _ = m.Value(KeyLine2)

	if g, ok := m.Value(KeyGravity); ok {
		gravity, err := ParseGravity(g)
		if err != nil {
			return Config{}, err
		}
		cfg.Gravity = gravity
	}

	raw, _ := m.Value(KeyStart)
	start, err := ParseStart(raw)
	if err != nil {
		return Config{}, err
	}
	cfg.Start = start

	if m.Has(KeyStep) {
		if cfg.Step, err = m.Duration(KeyStep); err != nil {
			return Config{}, err
		}
	}
	if m.Has(KeySpan) {
		if cfg.Span, err = m.Duration(KeySpan); err != nil {
			return Config{}, err
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks the TLE shape and the propagation window.
func (c Config) Validate() error {
	if err := checkTLELine(c.Line1, '1'); err != nil {
		return err
	}
	if err := checkTLELine(c.Line2, '2'); err != nil {
		return err
	}
	if c.Start.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrBadWindow)
	}
	if c.Step < time.Second {
		return fmt.Errorf("%w: step %s is shorter than one second", ErrBadWindow, c.Step)
	}
	if c.Span < 0 {
		return fmt.Errorf("%w: negative span %s", ErrBadWindow, c.Span)
	}
	if c.Span/c.Step >= MaxStates {
		return fmt.Errorf("%w: span %s at step %s exceeds %d states", ErrBadWindow, c.Span, c.Step, MaxStates)
	}
	return nil
}

func checkTLELine(line string, number byte) error {
	if len(line) < 69 || line[0] != number || line[1] != ' ' {
		return fmt.Errorf("%w: line %c %q", ErrBadTLE, number, line)
	}
	return nil
}

// ParseGravity maps a gravity model name to the go-satellite constant.
func ParseGravity(name string) (satellite.Gravity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "wgs72":
		return satellite.GravityWGS72, nil
	case "wgs72old":
		return satellite.GravityWGS72Old, nil
	case "wgs84":
		return satellite.GravityWGS84, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadGravity, name)
	}
}

// ParseStart accepts RFC 3339 and a few space-separated UTC layouts.
func ParseStart(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable start %q", ErrBadWindow, raw)
}

// Vector is a Cartesian triple.
type Vector struct {
	X, Y, Z float64
}

// Norm returns the vector length.
func (v Vector) Norm() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// State is the satellite state at one epoch. Position is ECEF metres,
// velocity ECEF metres per second, altitude metres, angles degrees.
type State struct {
	Time      time.Time
	Position  Vector
	Velocity  Vector
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// Propagator wraps an SGP4 satellite.
type Propagator struct {
	sat satellite.Satellite
}

// NewPropagator constructs a propagator from TLE lines.
func NewPropagator(line1, line2 string, gravity satellite.Gravity) (*Propagator, error) {
	if err := checkTLELine(line1, '1'); err != nil {
		return nil, err
	}
	if err := checkTLELine(line2, '2'); err != nil {
		return nil, err
	}
	return &Propagator{sat: satellite.TLEToSat(line1, line2, gravity)}, nil
}

// At propagates to t. go-satellite works in kilometres; states are in metres.
func (p *Propagator) At(t time.Time) State {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, velECI := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)

	pos := satellite.ECIToECEF(posECI, gmst)
	vel := satellite.ECIToECEF(velECI, gmst)
	altitude, _, latlong := satellite.ECIToLLA(posECI, gmst)

	position := Vector{X: pos.X * kmToM, Y: pos.Y * kmToM, Z: pos.Z * kmToM}
	// Remove the frame rotation from the rotated inertial velocity.
	velocity := Vector{
		X: (vel.X + earthRate*pos.Y) * kmToM,
		Y: (vel.Y - earthRate*pos.X) * kmToM,
		Z: vel.Z * kmToM,
	}
	return State{
		Time:      t,
		Position:  position,
		Velocity:  velocity,
		Latitude:  latlong.Latitude * 180 / math.Pi,
		Longitude: normaliseLongitude(latlong.Longitude * 180 / math.Pi),
		Altitude:  altitude * kmToM,
	}
}

func normaliseLongitude(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}

// Ephemeris is a sequence of states at a fixed step.
type Ephemeris struct {
	Name    string
	Gravity satellite.Gravity
	Start   time.Time
	Step    time.Duration
	States  []State
}

// Propagate evaluates cfg from Start to Start+Span inclusive.
func Propagate(ctx context.Context, cfg Config) (*Ephemeris, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := NewPropagator(cfg.Line1, cfg.Line2, cfg.Gravity)
	if err != nil {
		return nil, err
	}

	n := int(cfg.Span/cfg.Step) + 1
	eph := &Ephemeris{
		Name:    cfg.Name,
		Gravity: cfg.Gravity,
		Start:   cfg.Start.UTC(),
		Step:    cfg.Step,
		States:  make([]State, 0, n),
	}
	for i := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		eph.States = append(eph.States, p.At(eph.Start.Add(time.Duration(i)*cfg.Step)))
	}
	return eph, nil
}

// Mapping renders the ephemeris as RDF records, one vector-valued record per
// state component, so it can be written back with WriteFile.
func (e *Ephemeris) Mapping() *rdf.Mapping {
	n := len(e.States)
	offsets := make([]float64, n)
	columns := make([][]float64, 9)
	for i := range columns {
		columns[i] = make([]float64, n)
	}
	for i, s := range e.States {
		offsets[i] = s.Time.Sub(e.Start).Seconds()
		for j, v := range []float64{
			s.Position.X, s.Position.Y, s.Position.Z,
			s.Velocity.X, s.Velocity.Y, s.Velocity.Z,
			s.Latitude, s.Longitude, s.Altitude,
		} {
			columns[j][i] = v
		}
	}

	m := rdf.New()
	if e.Name != "" {
		m.Set(KeyName, e.Name)
	}
	m.Set(KeyGravity, string(e.Gravity))
	m.Set(KeyStart, e.Start.Format(time.RFC3339))
	m.Set(KeyStep, e.Step.Seconds(), rdf.WithUnits("s"))
	m.Set("COUNT", n)
	m.Set("FRAME", "ECEF")
	m.Set("TIME", offsets, rdf.WithUnits("s"), rdf.WithDimensions(fmt.Sprint(n)), rdf.WithComment("offset from START"))
	for j, name := range []string{"X", "Y", "Z"} {
		m.Set(name, columns[j], rdf.WithUnits("m"), rdf.WithDimensions(fmt.Sprint(n)))
	}
	for j, name := range []string{"VX", "VY", "VZ"} {
		m.Set(name, columns[3+j], rdf.WithUnits("m/s"), rdf.WithDimensions(fmt.Sprint(n)))
	}
	m.Set("LATITUDE", columns[6], rdf.WithUnits("deg"), rdf.WithDimensions(fmt.Sprint(n)))
	m.Set("LONGITUDE", columns[7], rdf.WithUnits("deg"), rdf.WithDimensions(fmt.Sprint(n)))
	m.Set("ALTITUDE", columns[8], rdf.WithUnits("m"), rdf.WithDimensions(fmt.Sprint(n)))
	return m
}
