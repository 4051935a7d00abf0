// Command flock runs flocksphere: Vicsek flocking on the surface of a sphere.
//
// Usage
//
// The flock command takes a subcommand and one optional argument:
//  flock [-v] generate|simulate|analyze [config_file]
// The argument is the path to a config file, in TOML (.toml) or in
// gcfg INI format (.gcfg, .ini) with a single [flock] section.
// Missing parameters keep their default values.
//
// Subcommands
//
// generate writes Entries random initial states to the ensemble directory.
//
// simulate runs one simulation from a stored ensemble entry, a text table
// or a freshly generated state, and writes its frames to the simulation
// directory as JSON, CSV or HDF5.
//
// analyze reads the frames of a run back and writes the order parameter
// and cluster series, with their summaries, to the analysis directory.
//
// Data directory
//
// Files are named {tag}-{id}.{ext} under DataDir/ensemble,
// DataDir/simulation and DataDir/analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
)

const usage = `Usage: flock [-v] generate|simulate|analyze [config_file]

The first argument is the subcommand to run. The second one is optional
and is the path to a TOML (.toml) or gcfg (.gcfg, .ini) config file.
If no config file is specified, default parameters are used.
`

var commands = map[string]func(context.Context, *Config) error{
	"generate": generate,
	"simulate": simulate,
	"analyze":  analyze,
}

func main() {
	verbose := flag.Bool("v", false, "log what is read and written")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	args := flag.Args()
	if len(args) == 0 || len(args) > 2 {
		Fatal(fmt.Errorf("%d arguments provided (1 required, 1 optional)\n\n%s", len(args), usage))
	}
	cmd, ok := commands[args[0]]
	if !ok {
		Fatal(fmt.Errorf("unknown command %q\n\n%s", args[0], usage))
	}

	conf := new(Config)
	*conf = *DefaultConf
	if len(args) == 2 {
		var err error
		if conf, err = ParseConfig(args[1]); err != nil {
			Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd(ctx, conf); err != nil {
		Fatal(err)
	}
}

// Fatal prints an error on the standard error and exits with a non-zero status.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}
