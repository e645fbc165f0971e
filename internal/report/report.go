// Package report renders analysis results as a single interactive HTML page
// of go-echarts line charts.
package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Series is one named line of a section.
type Series struct {
	Name string
	X, Y []float64
}

// Section is one chart on the page. All series in a section share the x
// values of the first series.
type Section struct {
	Title    string
	Subtitle string
	XLabel   string
	YLabel   string
	LogY     bool
	Series   []Series
}

// missing is how echarts marks a gap in a line.
const missing = "-"

func xLabels(x []float64) []string {
	out := make([]string, len(x))
	for i, v := range x {
		out[i] = strconv.FormatFloat(v, 'g', 4, 64)
	}
	return out
}

// lineData converts y to chart points. Non-finite values, and non-positive
// ones on a log axis, become gaps.
func lineData(y []float64, logY bool) []opts.LineData {
	out := make([]opts.LineData, len(y))
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) || (logY && v <= 0) {
			out[i] = opts.LineData{Value: missing}
			continue
		}
		out[i] = opts.LineData{Value: v}
	}
	return out
}

func (s Section) chart(pageTitle string) (*charts.Line, error) {
	if len(s.Series) == 0 {
		return nil, fmt.Errorf("section %q has no series", s.Title)
	}
	x := s.Series[0].X
	for _, sr := range s.Series {
		if len(sr.X) != len(x) || len(sr.Y) != len(x) {
			return nil, fmt.Errorf("section %q: series %q has %d x and %d y values, want %d",
				s.Title, sr.Name, len(sr.X), len(sr.Y), len(x))
		}
	}

	yAxis := opts.YAxis{Name: s.YLabel, NameLocation: "middle", NameGap: 50}
	if s.LogY {
		yAxis.Type = "log"
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Title, Subtitle: s.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: s.XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(yAxis),
	)
	line.SetXAxis(xLabels(x))
	for _, sr := range s.Series {
		line.AddSeries(sr.Name, lineData(sr.Y, s.LogY))
	}
	return line, nil
}

// WriteHTML renders every section as a chart on one page.
func WriteHTML(w io.Writer, title string, sections []Section) error {
	if len(sections) == 0 {
		return fmt.Errorf("report %q: no sections", title)
	}
	page := components.NewPage()
	page.SetPageTitle(title)
	for _, s := range sections {
		c, err := s.chart(title)
		if err != nil {
			return err
		}
		page.AddCharts(c)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
