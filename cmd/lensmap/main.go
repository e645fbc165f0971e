// Command lensmap analyses weak-lensing convergence and shear maps stored
// as FITS images.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Printf("lensmap: %v", err)
		stop()
		os.Exit(1)
	}
}

// run dispatches a subcommand. It is main without the process exit so the
// commands can be driven from tests.
func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage(out)
		return fmt.Errorf("missing command")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "analyze":
		return runAnalyze(ctx, rest, out)
	case "shear":
		return runShear(ctx, rest, out)
	case "synth":
		return runSynth(rest, out)
	case "runs":
		return runRuns(rest, out)
	case "migrate":
		return runMigrate(rest, out)
	case "version":
		return runVersion(out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		printUsage(out)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `lensmap - weak-lensing map statistics

Usage: lensmap <command> [options]

Commands:
  analyze    Analyse a convergence map (power spectrum, PDF, Minkowski, peaks)
  shear      E/B-decompose a shear map and analyse its Kaiser-Squires convergence
  synth      Write synthetic test maps (gaussian, simplex, shear-e, shear-b)
  runs       List stored analysis runs
  migrate    Manage the results database schema
  version    Show version information
  help       Show this help message

Examples:
  lensmap synth -kind gaussian -n 256 -side 3.5 -out kappa.fits
  lensmap analyze -plots out/ -report out/index.html -db runs.db kappa.fits
  lensmap analyze -mask mask.fits kappa.fits
  lensmap shear -keep-fourier -plots out/ g1.fits g2.fits
  lensmap runs -db runs.db
  lensmap migrate -db runs.db status`)
}
