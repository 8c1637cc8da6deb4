// Command rdf checks, converts and serves RDF configuration files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/rdf"
	"github.com/signalsfoundry/groundproc/units"
)

const usage = `usage: rdf [-config FILE] <command> [flags] [args]

commands:
  check FILE...                 parse files and report warnings
  dump [-format F] FILE         print a parsed file as rdf, json, yaml or proto
  get [-v] FILE KEY...          print the values of keys
  units [-filter S] [-convert V SYMBOL]
                                list the unit glossary or convert a value
  ephem [-o OUT] CONFIG         propagate the TLE described by CONFIG
  serve [-grpc-addr A] [-metrics-addr A] FILE...
                                serve files over gRPC, reloading on change
`

// errUsage makes run exit with status 2.
var errUsage = errors.New("usage")

type app struct {
	settings Settings
	log      logging.Logger
	glossary *units.Glossary
	stdout   io.Writer
	stderr   io.Writer
}

type command func(a *app, ctx context.Context, args []string) error

var commands = map[string]command{
	"check": (*app).check,
	"dump":  (*app).dump,
	"get":   (*app).get,
	"units": (*app).units,
	"ephem": (*app).ephem,
	"serve": (*app).serve,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rdf", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "settings file (default groundproc.* in . or ~/.config/groundproc)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "rdf: unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	settings, err := loadSettings(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "rdf: settings: %v\n", err)
		return 1
	}
	log := newLogger(settings, stderr)
	a := &app{
		settings: settings,
		log:      log,
		glossary: units.NewStandard(log),
		stdout:   stdout,
		stderr:   stderr,
	}

	if err := cmd(a, ctx, fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fs.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "rdf %s: %v\n", fs.Arg(0), err)
		return 1
	}
	return 0
}

func (a *app) parser(metrics rdf.Metrics) *rdf.Parser {
	return a.parserWith(a.glossary, metrics)
}

// parserWith builds a parser over g. UNIT definitions and remembered unit
// misses stay in g.
func (a *app) parserWith(g *units.Glossary, metrics rdf.Metrics) *rdf.Parser {
	opts := []rdf.Option{
		rdf.WithGlossary(g),
		rdf.WithLogger(a.log),
		rdf.WithWrap(a.settings.Wrap),
		rdf.WithBaseDir(a.settings.BaseDir),
	}
	if a.settings.CaseInsensitive {
		opts = append(opts, rdf.WithCaseInsensitiveKeywords())
	}
	if metrics != nil {
		opts = append(opts, rdf.WithMetrics(metrics))
	}
	return rdf.NewParser(opts...)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}
