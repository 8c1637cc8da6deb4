package orbit

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/rdf"
	"github.com/signalsfoundry/groundproc/units"
)

// ISS sample TLE.
const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func parseConfig(t *testing.T, text string) *rdf.Mapping {
	t.Helper()
	m, err := rdf.ParseString(context.Background(), text,
		rdf.WithGlossary(units.NewStandard(logging.Noop())),
		rdf.WithLogger(logging.Noop()),
	)
	if err != nil {
		t.Fatalf("ParseString error: %v", err)
	}
	return m
}

func issConfig(step, span string) string {
	return "SATELLITE = ISS\n" +
		"TLE_LINE1 = " + issLine1 + "\n" +
		"TLE_LINE2 = " + issLine2 + "\n" +
		"GRAVITY = wgs84\n" +
		"START = 2021-10-02T14:00:00Z\n" +
		step + "\n" + span + "\n"
}

func TestConfigFromMappingConvertsUnits(t *testing.T) {
	m := parseConfig(t, issConfig("STEP (min) = 1", "SPAN (h) = 0.5"))

	cfg, err := ConfigFromMapping(m)
	if err != nil {
		t.Fatalf("ConfigFromMapping error: %v", err)
	}
	if cfg.Step != time.Minute || cfg.Span != 30*time.Minute {
		t.Fatalf("step/span = %s/%s, want 1m/30m", cfg.Step, cfg.Span)
	}
	if cfg.Gravity != satellite.GravityWGS84 || cfg.Name != "ISS" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if want := time.Date(2021, 10, 2, 14, 0, 0, 0, time.UTC); !cfg.Start.Equal(want) {
		t.Fatalf("start = %s, want %s", cfg.Start, want)
	}
}

func TestConfigFromMappingDefaults(t *testing.T) {
	m := parseConfig(t, "TLE_LINE1 = "+issLine1+"\nTLE_LINE2 = "+issLine2+"\nSTART = 2021-10-02 14:00:00\n")
	cfg, err := ConfigFromMapping(m)
	if err != nil {
		t.Fatalf("ConfigFromMapping error: %v", err)
	}
	if cfg.Step != DefaultStep || cfg.Span != DefaultSpan || cfg.Gravity != satellite.GravityWGS72 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestConfigFromMappingErrors(t *testing.T) {
	cases := []struct {
		name string
		text string
		want error
	}{
		{"missing keys", "TLE_LINE1 = " + issLine1 + "\n", rdf.ErrMissingKeys},
		{"short line", "TLE_LINE1 = 1 25544U\nTLE_LINE2 = " + issLine2 + "\nSTART = 2021-10-02\n", ErrBadTLE},
		{"swapped lines", "TLE_LINE1 = " + issLine2 + "\nTLE_LINE2 = " + issLine1 + "\nSTART = 2021-10-02\n", ErrBadTLE},
		{"bad gravity", "TLE_LINE1 = " + issLine1 + "\nTLE_LINE2 = " + issLine2 + "\nSTART = 2021-10-02\nGRAVITY = egm96\n", ErrBadGravity},
		{"bad start", "TLE_LINE1 = " + issLine1 + "\nTLE_LINE2 = " + issLine2 + "\nSTART = yesterday\n", ErrBadWindow},
		{"tiny step", "TLE_LINE1 = " + issLine1 + "\nTLE_LINE2 = " + issLine2 + "\nSTART = 2021-10-02\nSTEP (ms) = 10\n", ErrBadWindow},
		{"overflowing span", "TLE_LINE1 = " + issLine1 + "\nTLE_LINE2 = " + issLine2 + "\nSTART = 2021-10-02\nSPAN = 1e12\n", rdf.ErrDurationRange},
		{"too many states", "TLE_LINE1 = " + issLine1 + "\nTLE_LINE2 = " + issLine2 + "\nSTART = 2021-10-02\nSTEP = 1\nSPAN (day) = 365\n", ErrBadWindow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ConfigFromMapping(parseConfig(t, tc.text))
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

// We don't assert exact orbital values (those belong to go-satellite);
// we check the states are physically plausible for the ISS.
func TestPropagateISS(t *testing.T) {
	cfg, err := ConfigFromMapping(parseConfig(t, issConfig("STEP (s) = 60", "SPAN (min) = 10")))
	if err != nil {
		t.Fatalf("ConfigFromMapping error: %v", err)
	}

	eph, err := Propagate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Propagate error: %v", err)
	}
	if len(eph.States) != 11 {
		t.Fatalf("states = %d, want 11", len(eph.States))
	}

	for i, s := range eph.States {
		if r := s.Position.Norm(); r < 6.6e6 || r > 6.9e6 {
			t.Fatalf("state %d radius = %.0f m, outside LEO band", i, r)
		}
		if v := s.Velocity.Norm(); v < 6.5e3 || v > 8e3 {
			t.Fatalf("state %d speed = %.0f m/s, want about 7.3 km/s", i, v)
		}
		if s.Altitude < 300e3 || s.Altitude > 500e3 {
			t.Fatalf("state %d altitude = %.0f m", i, s.Altitude)
		}
		if math.Abs(s.Latitude) > 52 {
			t.Fatalf("state %d latitude %.2f exceeds inclination", i, s.Latitude)
		}
	}
	if eph.States[0].Position == eph.States[1].Position {
		t.Fatalf("expected orbital position to change over time")
	}
}

func TestPropagateHonoursContext(t *testing.T) {
	cfg, err := ConfigFromMapping(parseConfig(t, issConfig("STEP (s) = 1", "SPAN (h) = 1")))
	if err != nil {
		t.Fatalf("ConfigFromMapping error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Propagate(ctx, cfg); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEphemerisMappingRoundTrip(t *testing.T) {
	cfg, err := ConfigFromMapping(parseConfig(t, issConfig("STEP (s) = 120", "SPAN (s) = 600")))
	if err != nil {
		t.Fatalf("ConfigFromMapping error: %v", err)
	}
	eph, err := Propagate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Propagate error: %v", err)
	}

	out := eph.Mapping()
	if n, err := out.Int("COUNT"); err != nil || n != 6 {
		t.Fatalf("COUNT = %v, %v", n, err)
	}
	if f, _ := out.Field("X"); f.Units != "m" || f.Dimensions != "6" {
		t.Fatalf("X field = %+v", f)
	}

	path := filepath.Join(t.TempDir(), "ephem.rdf")
	if err := out.WriteFile(path); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	back, err := rdf.ParseFile(context.Background(), path,
		rdf.WithGlossary(units.NewStandard(logging.Noop())),
		rdf.WithLogger(logging.Noop()),
	)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	xs, err := back.Floats("X")
	if err != nil || len(xs) != 6 {
		t.Fatalf("X = %v, %v", xs, err)
	}
	if math.Abs(xs[0]-eph.States[0].Position.X) > 1e-6*math.Abs(eph.States[0].Position.X) {
		t.Fatalf("X[0] = %v, want %v", xs[0], eph.States[0].Position.X)
	}
	if start, _ := back.Value(KeyStart); !strings.HasPrefix(start, "2021-10-02T14:00:00") {
		t.Fatalf("START = %q", start)
	}
}
