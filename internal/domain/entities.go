// Package domain holds the core types, ports and error taxonomy of the matcher.
package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnsupportedMedia    = errors.New("unsupported media type")
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInternal            = errors.New("internal error")
)

// ScoreMethod selects the similarity algorithm.
type ScoreMethod string

const (
	// MethodOverlap scores |cv ∩ jd| / |jd| over distinct keywords.
	MethodOverlap ScoreMethod = "overlap"
	// MethodCosine scores the cosine of bag-of-words count vectors.
	MethodCosine ScoreMethod = "cosine"
)

// Valid reports whether m is a known method.
func (m ScoreMethod) Valid() bool { return m == MethodOverlap || m == MethodCosine }

// Verdict is the outcome of comparing a score with the user threshold.
type Verdict string

const (
	VerdictMatch          Verdict = "match"
	VerdictBelowThreshold Verdict = "below_threshold"
)

// Color returns the display colour used for the verdict.
func (v Verdict) Color() string {
	if v == VerdictMatch {
		return "green"
	}
	return "red"
}

// SourceKind tells where a piece of text came from.
type SourceKind string

const (
	SourceText     SourceKind = "text"
	SourceURL      SourceKind = "url"
	SourceDocument SourceKind = "document"
)

// Palette names a word-cloud colour ramp.
type Palette string

const (
	PaletteGreens Palette = "greens"
	PaletteBlues  Palette = "blues"
)

// Valid reports whether p is a known palette.
func (p Palette) Valid() bool { return p == PaletteGreens || p == PaletteBlues }

// RadarSeries is one trace of the polar chart.
type RadarSeries struct {
	Name  string    `json:"name"`
	Theta []string  `json:"theta"`
	R     []float64 `json:"r"`
}

// RadarChart groups the CV and job description traces with the radial range.
type RadarChart struct {
	Series   []RadarSeries `json:"series"`
	RangeMax float64       `json:"range_max"`
}

// Axes returns the shared axis labels, or nil when the chart is empty.
func (c RadarChart) Axes() []string {
	if len(c.Series) == 0 {
		return nil
	}
	return c.Series[0].Theta
}

// Analysis is the outcome of one CV / job description comparison.
// Invariants: 0 <= Score <= 100; Verdict == match iff Score >= Threshold.
type Analysis struct {
	ID          string
	Method      ScoreMethod
	Score       float64
	Display     string
	Threshold   float64
	Verdict     Verdict
	Scores      map[ScoreMethod]float64
	CVKeywords  Keywords
	JobKeywords Keywords
	Common      Keywords
	Radar       RadarChart
	CVSource    SourceKind
	JobSource   SourceKind
	CreatedAt   time.Time
}

// Ports

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, fileName string, data []byte) (string, error)
}

// PageFetcher downloads a URL and returns its readable text.
type PageFetcher interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// PageCache stores fetched page text by key.
type PageCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Limiter blocks until a token for key is available or ctx ends.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// WordcloudRenderer draws keyword frequencies into a PNG.
type WordcloudRenderer interface {
	Render(ctx context.Context, kw Keywords, palette Palette) ([]byte, error)
}

// RadarRenderer writes a self-contained HTML chart.
type RadarRenderer interface {
	RenderHTML(w io.Writer, chart RadarChart) error
}
