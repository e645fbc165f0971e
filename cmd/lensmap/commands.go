package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/lensmap/internal/config"
	"github.com/banshee-data/lensmap/internal/db"
	"github.com/banshee-data/lensmap/internal/fitsmap"
	"github.com/banshee-data/lensmap/internal/lensing"
	"github.com/banshee-data/lensmap/internal/lensing/spectral"
	"github.com/banshee-data/lensmap/internal/pipeline"
	"github.com/banshee-data/lensmap/internal/synth"
	"github.com/banshee-data/lensmap/internal/units"
	"github.com/banshee-data/lensmap/internal/version"
)

const defaultDBPath = "lensmap.db"

// outputFlags are the config overrides shared by analyze and shear.
type outputFlags struct {
	configPath  string
	plotDir     string
	reportPath  string
	dbPath      string
	keepFourier bool
	raw         bool
}

func (o *outputFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "Analysis config JSON (default: "+config.DefaultConfigPath+" when present)")
	fs.StringVar(&o.plotDir, "plots", "", "Directory for PNG plots")
	fs.StringVar(&o.reportPath, "report", "", "Path of the HTML report")
	fs.StringVar(&o.dbPath, "db", "", "Store the run in this SQLite database")
	fs.BoolVar(&o.keepFourier, "keep-fourier", false, "Keep the E/B Fourier grids and plot them (shear only)")
	fs.BoolVar(&o.raw, "raw", false, "Use raw map values instead of units of the standard deviation")
}

// load reads the config file and applies the flags that were set.
func (o *outputFlags) load(fs *flag.FlagSet) (*config.AnalysisConfig, error) {
	cfg := config.EmptyAnalysisConfig()
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			path = config.DefaultConfigPath
		}
	}
	if path != "" {
		loaded, err := config.LoadAnalysisConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "plots":
			cfg.PlotDir = &o.plotDir
		case "report":
			cfg.ReportPath = &o.reportPath
		case "db":
			cfg.DBPath = &o.dbPath
		case "keep-fourier":
			cfg.KeepFourier = &o.keepFourier
		case "raw":
			normalize := !o.raw
			cfg.Normalize = &normalize
		}
	})
	return cfg, cfg.Validate()
}

func runAnalyze(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	var o outputFlags
	o.register(fs)
	maskPath := fs.String("mask", "", "Mask FITS map multiplied into the convergence map")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("analyze needs exactly one convergence FITS file")
	}
	cfg, err := o.load(fs)
	if err != nil {
		return err
	}

	m, err := fitsmap.LoadConvergence(fs.Arg(0))
	if err != nil {
		return err
	}
	opts := pipeline.Options{Source: fs.Arg(0)}
	if *maskPath != "" {
		if opts.Mask, err = fitsmap.LoadConvergence(*maskPath); err != nil {
			return fmt.Errorf("mask: %w", err)
		}
	}

	res, err := pipeline.AnalyzeConvergence(ctx, cfg, m, opts)
	if err != nil {
		return err
	}
	printResult(out, res)
	return nil
}

func runShear(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("shear", flag.ContinueOnError)
	var o outputFlags
	o.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("shear needs the two shear component FITS files")
	}
	cfg, err := o.load(fs)
	if err != nil {
		return err
	}

	s, err := fitsmap.LoadShear(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	res, err := pipeline.AnalyzeShear(ctx, cfg, s, pipeline.Options{Source: fs.Arg(0) + "," + fs.Arg(1)})
	if err != nil {
		return err
	}
	printResult(out, res)
	return nil
}

func printResult(out io.Writer, res *pipeline.Result) {
	fmt.Fprintf(out, "run %s (%s, %dx%d pixels, %g deg)\n", res.RunID, res.Kind, res.Pixels, res.Pixels, res.SideDeg)
	for _, s := range res.Series() {
		fmt.Fprintf(out, "  %-22s %d bins\n", s.Statistic, len(s.X))
	}
	for _, p := range res.Plots {
		fmt.Fprintf(out, "  plot   %s\n", p)
	}
	if res.Report != "" {
		fmt.Fprintf(out, "  report %s\n", res.Report)
	}
}

func runSynth(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	kind := fs.String("kind", "gaussian", "Map kind: gaussian, simplex, shear-e or shear-b")
	n := fs.Int("n", 128, "Pixels per side")
	side := fs.Float64("side", 3.5, "Side angle")
	unit := fs.String("units", units.Degree, "Unit of -side: "+units.GetValidUnitsString())
	seed := fs.Uint64("seed", 1, "Random seed")
	amplitude := fs.Float64("amplitude", 1e-9, "Power spectrum amplitude at the pivot multipole")
	pivot := fs.Float64("pivot", 1000, "Pivot multipole")
	index := fs.Float64("index", -1, "Power spectrum slope")
	scale := fs.Float64("scale", 0.05, "Peak amplitude of simplex maps")
	octaves := fs.Int("octaves", 4, "Simplex octaves")
	frequency := fs.Float64("frequency", 2, "Simplex base frequency (periods across the map)")
	persistence := fs.Float64("persistence", 0.5, "Simplex amplitude falloff per octave")
	outPath := fs.String("out", "", "Output FITS path (convergence kinds)")
	out1 := fs.String("out1", "", "Output FITS path of the first shear component")
	out2 := fs.String("out2", "", "Output FITS path of the second shear component")
	if err := fs.Parse(args); err != nil {
		return err
	}

	angle := units.Angle{Value: *side, Unit: *unit}
	power := synth.PowerLaw(*amplitude, *pivot, *index)

	switch *kind {
	case "gaussian", "simplex":
		if *outPath == "" {
			return fmt.Errorf("synth %s: -out is required", *kind)
		}
		var (
			m   *lensing.ConvergenceMap
			err error
		)
		if *kind == "gaussian" {
			g, gerr := synth.Gaussian(*n, angle, power, *seed)
			if gerr != nil {
				return gerr
			}
			m, err = lensing.NewConvergenceMap(g, angle)
		} else {
			g, gerr := synth.Simplex(*n, int64(*seed), *octaves, *frequency, *persistence)
			if gerr != nil {
				return gerr
			}
			m, err = lensing.NewConvergenceMap(g.Scale(*scale), angle)
		}
		if err != nil {
			return err
		}
		if err := fitsmap.SaveConvergence(*outPath, m); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s (%dx%d, %s)\n", *outPath, *n, *n, angle)

	case "shear-e", "shear-b":
		if *out1 == "" || *out2 == "" {
			return fmt.Errorf("synth %s: -out1 and -out2 are required", *kind)
		}
		modes, err := synth.Modes(*n, angle, power, *seed)
		if err != nil {
			return err
		}
		e, b := modes, spectral.NewHalfPlane(*n)
		if *kind == "shear-b" {
			e, b = b, e
		}
		s, err := lensing.FromEBModes(e, b, angle)
		if err != nil {
			return err
		}
		if err := fitsmap.SaveShear(*out1, *out2, s); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s and %s (%dx%d, %s)\n", *out1, *out2, *n, *n, angle)

	default:
		return fmt.Errorf("unknown synth kind %q (valid: gaussian, simplex, shear-e, shear-b)", *kind)
	}
	return nil
}

func runRuns(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite database path")
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	runID := fs.String("run", "", "Show the stored statistics of one run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*dbPath); err != nil {
		return fmt.Errorf("database %s: %w", *dbPath, err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if *runID != "" {
		return printRun(out, database, *runID)
	}

	runs, err := database.Runs(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs stored")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %-11s  %4dpx  %8.4g deg  %s  %s\n",
			r.ID, r.Kind, r.Pixels, r.SideDeg, r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), r.Source)
	}
	return nil
}

func printRun(out io.Writer, database *db.DB, runID string) error {
	r, err := database.GetRun(runID)
	if err != nil {
		return err
	}
	stats, err := database.Statistics(runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run %s (%s, %dx%d pixels, %g deg, normalized=%t)\n", r.ID, r.Kind, r.Pixels, r.Pixels, r.SideDeg, r.Normalized)
	fmt.Fprintf(out, "source: %s\n", r.Source)
	for _, name := range stats {
		s, err := database.Series(runID, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-22s %d bins\n", name, len(s.X))
	}
	return nil
}

func runMigrate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite database path")
	fs.Usage = func() { db.PrintMigrateHelp(out) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	return db.RunMigrateCommand(fs.Args(), *dbPath, out)
}

func runVersion(out io.Writer) error {
	fmt.Fprintln(out, version.String())
	return nil
}
