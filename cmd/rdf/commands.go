package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/orbit"
	"github.com/signalsfoundry/groundproc/rdf"
	"github.com/signalsfoundry/groundproc/rdfpb"
	"github.com/signalsfoundry/groundproc/units"
)

// tally counts parser events for the check summary.
type tally struct {
	records, comments, warnings, includes int
}

func (t *tally) ObserveRecord()                    { t.records++ }
func (t *tally) ObserveComment()                   { t.comments++ }
func (t *tally) ObserveWarning(string)             { t.warnings++ }
func (t *tally) ObserveInclude()                   { t.includes++ }
func (t *tally) ObserveUnitLookup(string)          {}
func (t *tally) ObserveParse(time.Duration, error) {}

func (a *app) check(ctx context.Context, args []string) error {
	fs := a.flags("check")
	strict := fs.Bool("strict", false, "treat warnings as failures")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	failed := 0
	for _, path := range fs.Args() {
		t := &tally{}
		// Each file gets a fresh glossary so its unit misses are reported.
		g := units.NewStandard(logging.Noop())
		m, err := a.parserWith(g, t).ParseFile(ctx, path)
		if err != nil {
			failed++
			fmt.Fprintf(a.stdout, "%s: FAIL %v\n", path, err)
			continue
		}
		status := "ok"
		if t.warnings > 0 {
			status = "warn"
			if *strict {
				failed++
			}
		}
		fmt.Fprintf(a.stdout, "%s: %s (%d records, %d comments, %d warnings, %d sources)\n",
			path, status, m.Len(), t.comments, t.warnings, len(m.Sources()))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, fs.NArg())
	}
	return nil
}

func (a *app) dump(ctx context.Context, args []string) error {
	fs := a.flags("dump")
	format := fs.String("format", "rdf", "output format: rdf, json, yaml or proto")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	m, err := a.parser(nil).ParseFile(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	switch strings.ToLower(*format) {
	case "rdf":
		_, err = m.WriteTo(a.stdout)
		return err
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	case "proto":
		data, err := rdfpb.Marshal(m)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.stdout, string(data))
		return err
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}

func (a *app) get(ctx context.Context, args []string) error {
	fs := a.flags("get")
	verbose := fs.Bool("v", false, "print whole records rather than bare values")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errUsage
	}

	m, err := a.parser(nil).ParseFile(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	keys := fs.Args()[1:]
	if err := m.Require(keys...); err != nil {
		return err
	}
	for _, key := range keys {
		f, _ := m.Field(key)
		if *verbose {
			fmt.Fprintln(a.stdout, rdf.Record{Key: key, Field: f})
			continue
		}
		fmt.Fprintln(a.stdout, f.Value)
	}
	return nil
}

func (a *app) units(_ context.Context, args []string) error {
	fs := a.flags("units")
	filter := fs.String("filter", "", "only list symbols or bases containing this text")
	convert := fs.Bool("convert", false, "convert VALUE SYMBOL to its base unit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *convert {
		if fs.NArg() != 2 {
			return errUsage
		}
		value, err := strconv.ParseFloat(fs.Arg(0), 64)
		if err != nil {
			return fmt.Errorf("value %q: %w", fs.Arg(0), err)
		}
		out, base, err := a.glossary.Convert(value, fs.Arg(1))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s %s\n", strconv.FormatFloat(out, 'g', -1, 64), base)
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tMULTIPLIER\tADDER\tBASE")
	needle := strings.ToLower(*filter)
	for _, u := range a.glossary.Units() {
		if needle != "" && !strings.Contains(strings.ToLower(u.Symbol), needle) && !strings.Contains(strings.ToLower(u.Base), needle) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%g\t%g\t%s\n", u.Symbol, u.Multiplier, u.Adder, u.Base)
	}
	return tw.Flush()
}

func (a *app) ephem(ctx context.Context, args []string) error {
	fs := a.flags("ephem")
	out := fs.String("o", "", "write the ephemeris to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	m, err := a.parser(nil).ParseFile(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	cfg, err := orbit.ConfigFromMapping(m)
	if err != nil {
		return err
	}
	eph, err := orbit.Propagate(ctx, cfg)
	if err != nil {
		return err
	}

	result := eph.Mapping()
	if *out == "" {
		_, err = result.WriteTo(a.stdout)
		return err
	}
	return result.WriteFile(*out)
}
