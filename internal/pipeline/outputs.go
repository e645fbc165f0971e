package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/lensmap/internal/config"
	"github.com/banshee-data/lensmap/internal/db"
	"github.com/banshee-data/lensmap/internal/lensing"
	"github.com/banshee-data/lensmap/internal/plotting"
	"github.com/banshee-data/lensmap/internal/report"
)

// Statistic names used for stored series.
const (
	StatPowerSpectrum       = "power_spectrum"
	StatMaskedPowerSpectrum = "masked_power_spectrum"
	StatMaskPowerSpectrum   = "mask_power_spectrum"
	StatPDF                 = "pdf"
	StatMinkowskiV0         = "minkowski_v0"
	StatMinkowskiV1         = "minkowski_v1"
	StatMinkowskiV2         = "minkowski_v2"
	StatPeakCounts          = "peak_counts"
	StatEE                  = "ee"
	StatBB                  = "bb"
	StatEB                  = "eb"
)

// NamedSeries is one statistic of a result as x/y pairs.
type NamedSeries struct {
	Statistic string
	X, Y      []float64
}

// Series lists every statistic the result holds, in a stable order.
func (r *Result) Series() []NamedSeries {
	out := []NamedSeries{{StatPowerSpectrum, r.Spectrum.L, r.Spectrum.P}}
	if r.MaskedSpectrum != nil {
		out = append(out, NamedSeries{StatMaskedPowerSpectrum, r.MaskedSpectrum.L, r.MaskedSpectrum.P})
	}
	if r.MaskSpectrum != nil {
		out = append(out, NamedSeries{StatMaskPowerSpectrum, r.MaskSpectrum.L, r.MaskSpectrum.P})
	}
	if r.EB != nil {
		out = append(out,
			NamedSeries{StatEE, r.EB.L, r.EB.EE},
			NamedSeries{StatBB, r.EB.L, r.EB.BB},
			NamedSeries{StatEB, r.EB.L, r.EB.EB},
		)
	}
	return append(out,
		NamedSeries{StatPDF, r.PDF.Nu, r.PDF.Density},
		NamedSeries{StatMinkowskiV0, r.Minkowski.Nu, r.Minkowski.V0},
		NamedSeries{StatMinkowskiV1, r.Minkowski.Nu, r.Minkowski.V1},
		NamedSeries{StatMinkowskiV2, r.Minkowski.Nu, r.Minkowski.V2},
		NamedSeries{StatPeakCounts, r.Peaks.Nu, r.Peaks.Counts},
	)
}

func writeOutputs(ctx context.Context, cfg *config.AnalysisConfig, res *Result, shear *lensing.ShearMap, opts Options) error {
	if dir := cfg.GetPlotDir(); dir != "" {
		if err := stage(ctx, "plots", func() (err error) {
			res.Plots, err = writePlots(dir, cfg, res, shear)
			return err
		})(); err != nil {
			return err
		}
	}
	if path := cfg.GetReportPath(); path != "" {
		if err := stage(ctx, "report", func() error {
			return writeReport(path, res)
		})(); err != nil {
			return err
		}
		res.Report = path
	}
	if path := cfg.GetDBPath(); path != "" {
		if err := stage(ctx, "persist", func() error {
			return persist(path, cfg, res, opts.Source)
		})(); err != nil {
			return err
		}
	}
	return nil
}

func writePlots(dir string, cfg *config.AnalysisConfig, res *Result, shear *lensing.ShearMap) ([]string, error) {
	var written []string
	out := func(name string, err error) error {
		if err != nil {
			return err
		}
		written = append(written, filepath.Join(dir, name))
		return nil
	}
	path := func(name string) string { return filepath.Join(dir, name) }
	kappa := res.Map.Kappa()

	if err := out("kappa.png", plotting.Image(path("kappa.png"), "Convergence", kappa, res.SideDeg)); err != nil {
		return written, err
	}
	if res.Mask != nil {
		if err := out("mask.png", plotting.Image(path("mask.png"), "Mask", res.Mask.Kappa(), res.SideDeg)); err != nil {
			return written, err
		}
	}
	if res.Masked != nil {
		if err := out("masked.png", plotting.Image(path("masked.png"), "Masked convergence", res.Masked.Kappa(), res.SideDeg)); err != nil {
			return written, err
		}
	}

	spectra := []plotting.Curve{{Label: "kappa", X: res.Spectrum.L, Y: res.Spectrum.P}}
	if res.MaskedSpectrum != nil {
		spectra = append(spectra, plotting.Curve{Label: "masked", X: res.MaskedSpectrum.L, Y: res.MaskedSpectrum.P})
	}
	if res.MaskSpectrum != nil {
		spectra = append(spectra, plotting.Curve{Label: "mask", X: res.MaskSpectrum.L, Y: res.MaskSpectrum.P})
	}
	if err := out("power_spectrum.png", plotting.Spectrum(path("power_spectrum.png"), "Power spectrum", spectra...)); err != nil {
		return written, err
	}
	if err := out("pdf.png", plotting.Curves(path("pdf.png"), "PDF", "nu", "p(nu)",
		plotting.Curve{Label: "pdf", X: res.PDF.Nu, Y: res.PDF.Density})); err != nil {
		return written, err
	}
	if err := out("minkowski.png", plotting.MinkowskiPanels(path("minkowski.png"), res.Minkowski)); err != nil {
		return written, err
	}
	if err := out("peaks.png", plotting.Curves(path("peaks.png"), "Peak counts", "nu", "N",
		plotting.Curve{Label: "peaks", X: res.Peaks.Nu, Y: res.Peaks.Counts})); err != nil {
		return written, err
	}

	if shear == nil {
		return written, nil
	}
	eb := res.EB
	if err := out("eb_spectra.png", plotting.Spectrum(path("eb_spectra.png"), "E/B power spectra",
		plotting.Curve{Label: "EE", X: eb.L, Y: eb.EE},
		plotting.Curve{Label: "BB", X: eb.L, Y: eb.BB},
		plotting.Curve{Label: "EB", X: eb.L, Y: eb.EB},
	)); err != nil {
		return written, err
	}
	if err := out("sticks.png", plotting.Sticks(path("sticks.png"), "Shear", shear, kappa,
		cfg.GetStickPixelStep(), cfg.GetStickMultiplier())); err != nil {
		return written, err
	}
	if eb.E != nil && eb.B != nil {
		w := cfg.GetFourierRegion()
		region := plotting.Region{LxMin: w.LxMin, LxMax: w.LxMax, LyMin: w.LyMin, LyMax: w.LyMax}
		for _, comp := range []plotting.FourierComponent{plotting.ComponentEE, plotting.ComponentBB, plotting.ComponentEB} {
			name := "fourier_" + string(comp) + ".png"
			title := fmt.Sprintf("Fourier %s", comp)
			if err := out(name, plotting.FourierComponents(path(name), title, eb.E, eb.B, comp, res.SideDeg, region)); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func reportSections(res *Result) []report.Section {
	subtitle := fmt.Sprintf("%dx%d pixels, %g deg", res.Pixels, res.Pixels, res.SideDeg)
	nu := "nu"
	if !res.Normalized {
		nu = "kappa"
	}

	spectra := []report.Series{{Name: "kappa", X: res.Spectrum.L, Y: res.Spectrum.P}}
	if res.MaskedSpectrum != nil {
		spectra = append(spectra, report.Series{Name: "masked", X: res.MaskedSpectrum.L, Y: res.MaskedSpectrum.P})
	}
	if res.MaskSpectrum != nil {
		spectra = append(spectra, report.Series{Name: "mask", X: res.MaskSpectrum.L, Y: res.MaskSpectrum.P})
	}
	sections := []report.Section{{
		Title: "Power spectrum", Subtitle: subtitle, XLabel: "l", YLabel: "P(l)", LogY: true, Series: spectra,
	}}
	if res.EB != nil {
		sections = append(sections, report.Section{
			Title: "E/B power spectra", Subtitle: subtitle, XLabel: "l", YLabel: "P(l)", LogY: true,
			Series: []report.Series{
				{Name: "EE", X: res.EB.L, Y: res.EB.EE},
				{Name: "BB", X: res.EB.L, Y: res.EB.BB},
				{Name: "EB", X: res.EB.L, Y: res.EB.EB},
			},
		})
	}
	mf := res.Minkowski
	return append(sections,
		report.Section{Title: "PDF", XLabel: nu, YLabel: "p", Series: []report.Series{{Name: "pdf", X: res.PDF.Nu, Y: res.PDF.Density}}},
		report.Section{Title: "Minkowski V0", XLabel: nu, Series: []report.Series{{Name: "V0", X: mf.Nu, Y: mf.V0}}},
		report.Section{Title: "Minkowski V1", XLabel: nu, Series: []report.Series{{Name: "V1", X: mf.Nu, Y: mf.V1}}},
		report.Section{Title: "Minkowski V2", XLabel: nu, Series: []report.Series{{Name: "V2", X: mf.Nu, Y: mf.V2}}},
		report.Section{Title: "Peak counts", XLabel: nu, YLabel: "N", Series: []report.Series{{Name: "peaks", X: res.Peaks.Nu, Y: res.Peaks.Counts}}},
	)
}

func writeReport(path string, res *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	title := fmt.Sprintf("lensmap %s run %s", res.Kind, res.RunID)
	if err := report.WriteHTML(f, title, reportSections(res)); err != nil {
		return err
	}
	return f.Close()
}

func persist(path string, cfg *config.AnalysisConfig, res *Result, source string) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	database, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer database.Close()

	if _, err := database.RecordRun(db.Run{
		ID:         res.RunID,
		Kind:       res.Kind,
		Source:     source,
		Pixels:     res.Pixels,
		SideDeg:    res.SideDeg,
		Normalized: res.Normalized,
		ConfigJSON: string(cfgJSON),
	}); err != nil {
		return err
	}
	for _, s := range res.Series() {
		if err := database.RecordSeries(res.RunID, s.Statistic, db.Series{X: s.X, Y: s.Y}); err != nil {
			return err
		}
	}
	return nil
}
