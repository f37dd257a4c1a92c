package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

var seriesColors = map[string]string{
	"CV":              "#2ca02c",
	"Job Description": "#1f77b4",
}

// DefaultAssetsHost is where go-echarts loads echarts.min.js from.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Radar implements domain.RadarRenderer with go-echarts.
type Radar struct {
	RangeMax   float64
	Width      string
	Height     string
	AssetsHost string // empty keeps the go-echarts CDN
}

// NewRadar returns a renderer whose radial axis spans [0, rangeMax].
func NewRadar(rangeMax float64) *Radar {
	if rangeMax <= 0 {
		rangeMax = 5
	}
	return &Radar{RangeMax: rangeMax, Width: "100%", Height: "480px"}
}

func (r *Radar) build(chart domain.RadarChart) *charts.Radar {
	rangeMax := chart.RangeMax
	if rangeMax <= 0 {
		rangeMax = r.RangeMax
	}
	axes := chart.Axes()
	indicators := make([]*opts.Indicator, 0, len(axes))
	for _, a := range axes {
		indicators = append(indicators, &opts.Indicator{Name: a, Min: 0, Max: float32(rangeMax)})
	}

	ini := opts.Initialization{Width: r.Width, Height: r.Height, PageTitle: "Skills Warrior radar"}
	if r.AssetsHost != "" {
		ini.AssetsHost = r.AssetsHost
	}
	c := charts.NewRadar()
	c.SetGlobalOptions(
		charts.WithInitializationOpts(ini),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Orient: "horizontal", Top: "bottom"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithRadarComponentOpts(opts.RadarComponent{
			Indicator:   indicators,
			Shape:       "polygon",
			SplitNumber: splits(rangeMax),
		}),
	)
	for _, s := range chart.Series {
		data := []opts.RadarData{{Name: s.Name, Value: s.R}}
		c.AddSeries(s.Name, data,
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.3), Color: seriesColors[s.Name]}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: seriesColors[s.Name]}),
		)
	}
	return c
}

// RenderHTML writes a standalone HTML page with the chart.
func (r *Radar) RenderHTML(w io.Writer, chart domain.RadarChart) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("op=render.Radar: %w: %v", domain.ErrInternal, rec)
		}
	}()
	if err := r.build(chart).Render(w); err != nil {
		return fmt.Errorf("op=render.Radar: %w", err)
	}
	return nil
}

// Snippet is a chart fragment for embedding into another page.
type Snippet struct {
	Element template.HTML
	Script  template.HTML
}

// RenderSnippet returns the chart container and its init script.
func (r *Radar) RenderSnippet(chart domain.RadarChart) (s Snippet, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("op=render.Radar: %w: %v", domain.ErrInternal, rec)
		}
	}()
	sn := r.build(chart).RenderSnippet()
	return Snippet{Element: template.HTML(sn.Element), Script: template.HTML(sn.Script)}, nil
}

// ScriptURL is the echarts bundle a page must load before a snippet script runs.
func (r *Radar) ScriptURL() string {
	host := r.AssetsHost
	if host == "" {
		host = DefaultAssetsHost
	}
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}
	return host + "echarts.min.js"
}

// splits draws one ring per unit for small ranges.
func splits(rangeMax float64) int {
	if rangeMax > 10 || rangeMax != float64(int(rangeMax)) {
		return 0
	}
	return int(rangeMax)
}
