// Package pipeline runs a complete map analysis: the binned statistics,
// computed concurrently, followed by the optional plot, report and database
// outputs named in the analysis config.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/lensmap/internal/config"
	"github.com/banshee-data/lensmap/internal/db"
	"github.com/banshee-data/lensmap/internal/lensing"
	"github.com/banshee-data/lensmap/internal/lensing/morph"
	"github.com/banshee-data/lensmap/internal/lensing/spectral"
	"github.com/banshee-data/lensmap/internal/monitoring"
)

// Run kinds.
const (
	KindConvergence = "convergence"
	KindShear       = "shear"
)

// Options carries the per-run inputs that do not belong in the config file.
type Options struct {
	// Source describes the input, e.g. the FITS path. Stored with the run.
	Source string
	// Mask, when set, is multiplied into the convergence map. The masked
	// power spectrum and the spectrum of the mask itself are reported next
	// to the unmasked one.
	Mask *lensing.ConvergenceMap
}

// Result holds every series computed by a run.
type Result struct {
	RunID      string
	Kind       string
	Pixels     int
	SideDeg    float64
	Normalized bool

	// Map is the analysed convergence map; for shear runs it is the
	// Kaiser-Squires reconstruction.
	Map *lensing.ConvergenceMap
	// Mask and Masked (Map times Mask) are set when a mask was given.
	Mask   *lensing.ConvergenceMap
	Masked *lensing.ConvergenceMap

	Spectrum       spectral.Spectrum
	MaskedSpectrum *spectral.Spectrum
	MaskSpectrum   *spectral.Spectrum
	PDF            morph.PDF
	Minkowski      morph.Minkowski
	Peaks          morph.PeakCounts

	// EB is set for shear runs only.
	EB *spectral.EBSpectra

	Plots  []string
	Report string
}

// binning is the expanded form of the config ranges.
type binning struct {
	multipoles  []float64
	pdf         []float64
	minkowski   []float64
	peaks       []float64
	norm        bool
	keepFourier bool
}

func prepare(cfg *config.AnalysisConfig) (*config.AnalysisConfig, binning, error) {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, binning{}, err
	}
	var b binning
	var err error
	if b.multipoles, err = cfg.GetMultipoleEdges().Edges(); err != nil {
		return nil, binning{}, fmt.Errorf("multipole edges: %w", err)
	}
	if b.pdf, err = cfg.GetPDFThresholds().Edges(); err != nil {
		return nil, binning{}, fmt.Errorf("pdf thresholds: %w", err)
	}
	if b.minkowski, err = cfg.GetMinkowskiThresholds().Edges(); err != nil {
		return nil, binning{}, fmt.Errorf("minkowski thresholds: %w", err)
	}
	if b.peaks, err = cfg.GetPeakThresholds().Edges(); err != nil {
		return nil, binning{}, fmt.Errorf("peak thresholds: %w", err)
	}
	b.norm = cfg.GetNormalize()
	b.keepFourier = cfg.GetKeepFourier()
	return cfg, b, nil
}

// stage runs fn as a logged analysis stage, skipping it once ctx is done.
func stage(ctx context.Context, name string, fn func() error) func() error {
	return func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		done := monitoring.Stage(name)
		err := fn()
		done(err)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}

// convergenceStats fills the convergence statistics of res from m. Each
// statistic writes its own field, so the stages run in parallel.
func convergenceStats(ctx context.Context, limit int, b binning, m, mask *lensing.ConvergenceMap, res *Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	g.Go(stage(gctx, "power spectrum", func() (err error) {
		res.Spectrum, err = m.PowerSpectrum(b.multipoles)
		return err
	}))
	g.Go(stage(gctx, "pdf", func() (err error) {
		res.PDF, err = m.PDF(b.pdf, b.norm)
		return err
	}))
	g.Go(stage(gctx, "minkowski functionals", func() (err error) {
		res.Minkowski, err = m.MinkowskiFunctionals(b.minkowski, b.norm)
		return err
	}))
	g.Go(stage(gctx, "peak counts", func() (err error) {
		res.Peaks, err = m.PeakCount(b.peaks, b.norm)
		return err
	}))
	if mask != nil {
		res.Mask = mask
		g.Go(stage(gctx, "masked power spectrum", func() error {
			masked, err := m.Mul(mask)
			if err != nil {
				return err
			}
			s, err := masked.PowerSpectrum(b.multipoles)
			if err != nil {
				return err
			}
			res.Masked, res.MaskedSpectrum = masked, &s
			return nil
		}))
		g.Go(stage(gctx, "mask power spectrum", func() error {
			s, err := mask.PowerSpectrum(b.multipoles)
			if err != nil {
				return err
			}
			res.MaskSpectrum = &s
			return nil
		}))
	}
	return g.Wait()
}

// AnalyzeConvergence computes the power spectrum, PDF, Minkowski functionals
// and peak counts of m, then writes whichever outputs cfg enables.
func AnalyzeConvergence(ctx context.Context, cfg *config.AnalysisConfig, m *lensing.ConvergenceMap, opts Options) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("analyze convergence: nil map")
	}
	cfg, b, err := prepare(cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:      db.NewRunID(),
		Kind:       KindConvergence,
		Pixels:     m.Size(),
		SideDeg:    m.SideAngleDeg(),
		Normalized: b.norm,
		Map:        m,
	}
	monitoring.Logf("run %s: %s map %dx%d over %g deg", res.RunID, res.Kind, res.Pixels, res.Pixels, res.SideDeg)

	if err := convergenceStats(ctx, cfg.GetMaxConcurrency(), b, m, opts.Mask, res); err != nil {
		return nil, err
	}
	if err := writeOutputs(ctx, cfg, res, nil, opts); err != nil {
		return res, err
	}
	return res, nil
}

// AnalyzeShear decomposes s into E and B modes, reconstructs the convergence
// with Kaiser-Squires and analyses the reconstruction as a convergence map.
func AnalyzeShear(ctx context.Context, cfg *config.AnalysisConfig, s *lensing.ShearMap, opts Options) (*Result, error) {
	if s == nil {
		return nil, fmt.Errorf("analyze shear: nil map")
	}
	cfg, b, err := prepare(cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:      db.NewRunID(),
		Kind:       KindShear,
		Pixels:     s.Size(),
		SideDeg:    s.SideAngleDeg(),
		Normalized: b.norm,
	}
	monitoring.Logf("run %s: %s map %dx%d over %g deg", res.RunID, res.Kind, res.Pixels, res.Pixels, res.SideDeg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(stage(gctx, "e/b decomposition", func() error {
		eb, err := s.Decompose(b.multipoles, b.keepFourier)
		if err != nil {
			return err
		}
		res.EB = &eb
		return nil
	}))
	g.Go(stage(gctx, "kaiser-squires", func() (err error) {
		res.Map, err = s.Convergence()
		return err
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := convergenceStats(ctx, cfg.GetMaxConcurrency(), b, res.Map, opts.Mask, res); err != nil {
		return nil, err
	}
	if err := writeOutputs(ctx, cfg, res, s, opts); err != nil {
		return res, err
	}
	return res, nil
}
