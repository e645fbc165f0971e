package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// Range describes evenly spaced bin edges: start, start+step, ... below stop.
type Range struct {
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
	Step  float64 `json:"step"`
}

// Edges expands the range. At least two edges are required to form a bin.
func (r Range) Edges() ([]float64, error) {
	edges, err := grid.Arange(r.Start, r.Stop, r.Step)
	if err != nil {
		return nil, err
	}
	if len(edges) < 2 {
		return nil, fmt.Errorf("%w: range %g..%g step %g yields %d edge(s)", grid.ErrInvalidBinning, r.Start, r.Stop, r.Step, len(edges))
	}
	return edges, nil
}

// Window bounds a rectangular region of the (ℓx, ℓy) Fourier plane.
type Window struct {
	LxMin float64 `json:"lx_min"`
	LxMax float64 `json:"lx_max"`
	LyMin float64 `json:"ly_min"`
	LyMax float64 `json:"ly_max"`
}

func (w Window) validate() error {
	for _, v := range []float64{w.LxMin, w.LxMax, w.LyMin, w.LyMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounds must be finite")
		}
	}
	if w.LxMin >= w.LxMax || w.LyMin >= w.LyMax {
		return fmt.Errorf("lx_min/ly_min must be below lx_max/ly_max")
	}
	return nil
}

// AnalysisConfig holds the parameters of a map analysis run. Fields left
// out of the JSON fall back to the defaults returned by the Get* methods, so
// partial configs are safe.
type AnalysisConfig struct {
	// Binning
	MultipoleEdges      *Range `json:"multipole_edges,omitempty"`
	PDFThresholds       *Range `json:"pdf_thresholds,omitempty"`
	MinkowskiThresholds *Range `json:"minkowski_thresholds,omitempty"`
	PeakThresholds      *Range `json:"peak_thresholds,omitempty"`

	// Estimator flags
	Normalize   *bool `json:"normalize,omitempty"`
	KeepFourier *bool `json:"keep_fourier,omitempty"`

	// Fourier-plane plots (shear with keep_fourier)
	FourierRegion *Window `json:"fourier_region,omitempty"`

	// Outputs; empty disables the output
	PlotDir    *string `json:"plot_dir,omitempty"`
	ReportPath *string `json:"report_path,omitempty"`
	DBPath     *string `json:"db_path,omitempty"`

	// Shear stick plot
	StickPixelStep  *int     `json:"stick_pixel_step,omitempty"`
	StickMultiplier *float64 `json:"stick_multiplier,omitempty"`

	MaxConcurrency *int `json:"max_concurrency,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns a config with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field set to its
// default value.
func DefaultAnalysisConfig() *AnalysisConfig {
	c := EmptyAnalysisConfig()
	multipoles, pdf, mf, peaks := c.GetMultipoleEdges(), c.GetPDFThresholds(), c.GetMinkowskiThresholds(), c.GetPeakThresholds()
	region := c.GetFourierRegion()
	return &AnalysisConfig{
		MultipoleEdges:      &multipoles,
		PDFThresholds:       &pdf,
		MinkowskiThresholds: &mf,
		PeakThresholds:      &peaks,
		Normalize:           ptrBool(c.GetNormalize()),
		KeepFourier:         ptrBool(c.GetKeepFourier()),
		FourierRegion:       &region,
		PlotDir:             ptrString(c.GetPlotDir()),
		ReportPath:          ptrString(c.GetReportPath()),
		DBPath:              ptrString(c.GetDBPath()),
		StickPixelStep:      ptrInt(c.GetStickPixelStep()),
		StickMultiplier:     ptrFloat64(c.GetStickMultiplier()),
		MaxConcurrency:      ptrInt(c.GetMaxConcurrency()),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repository
// root. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/lensing/spectral/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *AnalysisConfig) Validate() error {
	ranges := []struct {
		name string
		r    *Range
	}{
		{"multipole_edges", c.MultipoleEdges},
		{"pdf_thresholds", c.PDFThresholds},
		{"minkowski_thresholds", c.MinkowskiThresholds},
		{"peak_thresholds", c.PeakThresholds},
	}
	for _, rr := range ranges {
		if rr.r == nil {
			continue
		}
		if _, err := rr.r.Edges(); err != nil {
			return fmt.Errorf("%s: %w", rr.name, err)
		}
	}

	if c.MultipoleEdges != nil && c.MultipoleEdges.Start < 0 {
		return fmt.Errorf("multipole_edges must start at a non-negative multipole, got %g", c.MultipoleEdges.Start)
	}

	if c.FourierRegion != nil {
		if err := c.FourierRegion.validate(); err != nil {
			return fmt.Errorf("fourier_region: %w", err)
		}
	}

	if c.StickPixelStep != nil && *c.StickPixelStep < 1 {
		return fmt.Errorf("stick_pixel_step must be at least 1, got %d", *c.StickPixelStep)
	}

	if c.StickMultiplier != nil && *c.StickMultiplier <= 0 {
		return fmt.Errorf("stick_multiplier must be positive, got %g", *c.StickMultiplier)
	}

	if c.MaxConcurrency != nil && *c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", *c.MaxConcurrency)
	}

	return nil
}

// GetMultipoleEdges returns the multipole_edges range or the default.
func (c *AnalysisConfig) GetMultipoleEdges() Range {
	if c.MultipoleEdges == nil {
		return Range{Start: 200, Stop: 50000, Step: 200}
	}
	return *c.MultipoleEdges
}

// GetPDFThresholds returns the pdf_thresholds range or the default.
func (c *AnalysisConfig) GetPDFThresholds() Range {
	if c.PDFThresholds == nil {
		return Range{Start: -2, Stop: 2, Step: 0.2}
	}
	return *c.PDFThresholds
}

// GetMinkowskiThresholds returns the minkowski_thresholds range or the default.
func (c *AnalysisConfig) GetMinkowskiThresholds() Range {
	if c.MinkowskiThresholds == nil {
		return Range{Start: -2, Stop: 2, Step: 0.2}
	}
	return *c.MinkowskiThresholds
}

// GetPeakThresholds returns the peak_thresholds range or the default.
func (c *AnalysisConfig) GetPeakThresholds() Range {
	if c.PeakThresholds == nil {
		return Range{Start: -1, Stop: 5, Step: 0.2}
	}
	return *c.PeakThresholds
}

// GetNormalize returns the normalize value or the default.
func (c *AnalysisConfig) GetNormalize() bool {
	if c.Normalize == nil {
		return true
	}
	return *c.Normalize
}

// GetKeepFourier returns the keep_fourier value or the default.
func (c *AnalysisConfig) GetKeepFourier() bool {
	if c.KeepFourier == nil {
		return false
	}
	return *c.KeepFourier
}

// GetFourierRegion returns the fourier_region window or the default.
func (c *AnalysisConfig) GetFourierRegion() Window {
	if c.FourierRegion == nil {
		return Window{LxMin: -10000, LxMax: 10000, LyMin: -10000, LyMax: 10000}
	}
	return *c.FourierRegion
}

// GetPlotDir returns the plot_dir value or the default (no plots).
func (c *AnalysisConfig) GetPlotDir() string {
	if c.PlotDir == nil {
		return ""
	}
	return *c.PlotDir
}

// GetReportPath returns the report_path value or the default (no report).
func (c *AnalysisConfig) GetReportPath() string {
	if c.ReportPath == nil {
		return ""
	}
	return *c.ReportPath
}

// GetDBPath returns the db_path value or the default (results not stored).
func (c *AnalysisConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetStickPixelStep returns the stick_pixel_step value or the default.
func (c *AnalysisConfig) GetStickPixelStep() int {
	if c.StickPixelStep == nil {
		return 8
	}
	return *c.StickPixelStep
}

// GetStickMultiplier returns the stick_multiplier value or the default.
func (c *AnalysisConfig) GetStickMultiplier() float64 {
	if c.StickMultiplier == nil {
		return 10
	}
	return *c.StickMultiplier
}

// GetMaxConcurrency returns the max_concurrency value or the default.
func (c *AnalysisConfig) GetMaxConcurrency() int {
	if c.MaxConcurrency == nil {
		return 4
	}
	return *c.MaxConcurrency
}
