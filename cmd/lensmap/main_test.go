package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lensmap/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestRunDispatch(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "lensmap "))

	out, err = runCmd(t, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "Commands:")

	_, err = runCmd(t)
	assert.Error(t, err)

	_, err = runCmd(t, "bogus")
	assert.ErrorContains(t, err, "unknown command")

	_, err = runCmd(t, "synth", "-h")
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestSynthErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing out", []string{"synth", "-kind", "gaussian"}},
		{"missing shear outputs", []string{"synth", "-kind", "shear-e", "-out1", "a.fits"}},
		{"unknown kind", []string{"synth", "-kind", "checkerboard", "-out", "x.fits"}},
		{"bad unit", []string{"synth", "-units", "furlong", "-out", filepath.Join(t.TempDir(), "x.fits")}},
		{"tiny map", []string{"synth", "-n", "1", "-out", filepath.Join(t.TempDir(), "x.fits")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestAnalyzeWorkflow(t *testing.T) {
	dir := t.TempDir()
	kappa := filepath.Join(dir, "kappa.fits")
	mask := filepath.Join(dir, "mask.fits")
	dbPath := filepath.Join(dir, "runs.db")

	out, err := runCmd(t, "synth", "-kind", "gaussian", "-n", "32", "-side", "4", "-seed", "3", "-out", kappa)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+kappa)

	_, err = runCmd(t, "synth", "-kind", "simplex", "-n", "32", "-side", "4", "-out", mask)
	require.NoError(t, err)

	out, err = runCmd(t, "analyze",
		"-plots", filepath.Join(dir, "plots"),
		"-report", filepath.Join(dir, "index.html"),
		"-db", dbPath,
		"-mask", mask,
		kappa)
	require.NoError(t, err)
	assert.Contains(t, out, "masked_power_spectrum")
	assert.Contains(t, out, filepath.Join(dir, "plots", "minkowski.png"))
	assert.FileExists(t, filepath.Join(dir, "index.html"))

	runID := strings.Fields(out)[1]

	out, err = runCmd(t, "runs", "-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "convergence")

	out, err = runCmd(t, "runs", "-db", dbPath, "-run", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "peak_counts")
	assert.Contains(t, out, "source: "+kappa)

	out, err = runCmd(t, "migrate", "-db", dbPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 2")

	_, err = runCmd(t, "analyze")
	assert.Error(t, err)
	_, err = runCmd(t, "analyze", filepath.Join(dir, "missing.fits"))
	assert.Error(t, err)
	_, err = runCmd(t, "runs", "-db", filepath.Join(dir, "missing.db"))
	assert.Error(t, err)
}

func TestShearWorkflow(t *testing.T) {
	dir := t.TempDir()
	g1 := filepath.Join(dir, "g1.fits")
	g2 := filepath.Join(dir, "g2.fits")

	out, err := runCmd(t, "synth", "-kind", "shear-b", "-n", "32", "-side", "240", "-units", "arcmin", "-out1", g1, "-out2", g2)
	require.NoError(t, err)
	assert.Contains(t, out, g2)

	out, err = runCmd(t, "shear", "-keep-fourier", "-raw", "-plots", dir, g1, g2)
	require.NoError(t, err)
	assert.Contains(t, out, "(shear, 32x32 pixels, ")
	for _, name := range []string{"ee", "bb", "eb"} {
		assert.Contains(t, out, name+" ")
	}
	assert.FileExists(t, filepath.Join(dir, "sticks.png"))
	assert.FileExists(t, filepath.Join(dir, "fourier_BB.png"))

	_, err = runCmd(t, "shear", g1)
	assert.Error(t, err)
}

func TestConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"normalize": true, "plot_dir": "from-file", "max_concurrency": 3}`), 0644))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var o outputFlags
	o.register(fs)
	require.NoError(t, fs.Parse([]string{"-config", cfgPath, "-raw", "-report", "r.html"}))

	cfg, err := o.load(fs)
	require.NoError(t, err)
	assert.False(t, cfg.GetNormalize())
	assert.Equal(t, "from-file", cfg.GetPlotDir())
	assert.Equal(t, "r.html", cfg.GetReportPath())
	assert.Equal(t, 3, cfg.GetMaxConcurrency())
	assert.Equal(t, "", cfg.GetDBPath())

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	o = outputFlags{}
	o.register(fs)
	require.NoError(t, fs.Parse([]string{"-config", filepath.Join(dir, "missing.json")}))
	_, err = o.load(fs)
	assert.Error(t, err)
}
