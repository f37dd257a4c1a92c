package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	obsmetrics "github.com/fairyhunter13/skills-warrior/internal/adapter/observability"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/observability"
	"github.com/fairyhunter13/skills-warrior/internal/similarity"
	"github.com/fairyhunter13/skills-warrior/internal/textproc"
)

// Radar series names.
const (
	SeriesCV  = "CV"
	SeriesJob = "Job Description"
)

// PageSource fetches linked job descriptions and tells links from pasted text.
type PageSource interface {
	domain.PageFetcher
	IsURL(text string) bool
}

// AnalyzeOptions carries the defaults applied to incomplete requests.
type AnalyzeOptions struct {
	DefaultThreshold float64
	DefaultMethod    domain.ScoreMethod
	RadarRangeMax    float64
	RadarMaxAxes     int
}

// AnalyzeInput is one comparison request. A nil Threshold or empty Method
// falls back to the configured defaults.
type AnalyzeInput struct {
	CVText         string
	JobDescription string
	Threshold      *float64
	Method         domain.ScoreMethod
}

// Clouds holds the rendered PNGs; a side is nil when it had no keywords.
type Clouds struct {
	CV             []byte
	JobDescription []byte
}

// AnalyzeService runs the matching pipeline.
type AnalyzeService struct {
	Analyzer *textproc.Analyzer
	Pages    PageSource // nil treats every input as pasted text
	Clouds   domain.WordcloudRenderer
	Charts   domain.RadarRenderer
	Opts     AnalyzeOptions
	now      func() time.Time
}

// NewAnalyzeService constructs an AnalyzeService with its dependencies.
func NewAnalyzeService(a *textproc.Analyzer, pages PageSource, clouds domain.WordcloudRenderer, charts domain.RadarRenderer, opts AnalyzeOptions) AnalyzeService {
	if a == nil {
		a = textproc.NewAnalyzer(textproc.DefaultStopwords())
	}
	if !opts.DefaultMethod.Valid() {
		opts.DefaultMethod = domain.MethodCosine
	}
	if opts.RadarRangeMax <= 0 {
		opts.RadarRangeMax = 5
	}
	return AnalyzeService{Analyzer: a, Pages: pages, Clouds: clouds, Charts: charts, Opts: opts, now: time.Now}
}

type resolved struct {
	text string
	kind domain.SourceKind
}

// resolve fetches text when the input is a link.
func (s AnalyzeService) resolve(ctx context.Context, input string) (resolved, error) {
	input = strings.TrimSpace(input)
	if s.Pages != nil && s.Pages.IsURL(input) {
		text, err := s.Pages.FetchText(ctx, input)
		if err != nil {
			return resolved{}, err
		}
		return resolved{text: text, kind: domain.SourceURL}, nil
	}
	return resolved{text: input, kind: domain.SourceText}, nil
}

func (s AnalyzeService) resolveBoth(ctx context.Context, cv, jd string) (resolved, resolved, error) {
	var rcv, rjd resolved
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if rcv, err = s.resolve(gctx, cv); err != nil {
			return fmt.Errorf("cv: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if rjd, err = s.resolve(gctx, jd); err != nil {
			return fmt.Errorf("job description: %w", err)
		}
		return nil
	})
	err := g.Wait()
	return rcv, rjd, err
}

// Analyze compares the CV with the job description.
func (s AnalyzeService) Analyze(ctx context.Context, in AnalyzeInput) (domain.Analysis, error) {
	ctx, span := otel.Tracer("usecase.analyze").Start(ctx, "AnalyzeService.Analyze")
	defer span.End()

	if strings.TrimSpace(in.CVText) == "" || strings.TrimSpace(in.JobDescription) == "" {
		return domain.Analysis{}, fmt.Errorf("op=analyze: %w: cv_text and job_description are required", domain.ErrInvalidArgument)
	}
	method := in.Method
	if method == "" {
		method = s.Opts.DefaultMethod
	}
	if !method.Valid() {
		return domain.Analysis{}, fmt.Errorf("op=analyze: %w: unknown method %q", domain.ErrInvalidArgument, in.Method)
	}
	threshold := s.Opts.DefaultThreshold
	if in.Threshold != nil {
		threshold = *in.Threshold
	}
	threshold = similarity.ClampThreshold(threshold)

	cv, jd, err := s.resolveBoth(ctx, in.CVText, in.JobDescription)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("op=analyze: %w", err)
	}
	if strings.TrimSpace(jd.text) == "" {
		return domain.Analysis{}, fmt.Errorf("op=analyze: %w: job description has no text", domain.ErrInvalidArgument)
	}

	cvKW := s.Analyzer.Keywords(cv.text)
	jdKW := s.Analyzer.Keywords(jd.text)
	common := cvKW.Intersect(jdKW)

	scores := map[domain.ScoreMethod]float64{
		domain.MethodOverlap: similarity.Overlap(cvKW, jdKW),
		domain.MethodCosine:  similarity.CosineText(cv.text, jd.text),
	}
	score := scores[method]
	verdict := similarity.Judge(score, threshold)

	a := domain.Analysis{
		ID:          uuid.NewString(),
		Method:      method,
		Score:       score,
		Display:     similarity.Format(method, score),
		Threshold:   threshold,
		Verdict:     verdict,
		Scores:      scores,
		CVKeywords:  cvKW,
		JobKeywords: jdKW,
		Common:      common,
		Radar:       BuildRadar(common, jdKW, s.Opts.RadarMaxAxes, s.Opts.RadarRangeMax),
		CVSource:    cv.kind,
		JobSource:   jd.kind,
		CreatedAt:   s.now().UTC(),
	}

	span.SetAttributes(
		attribute.String("analysis.id", a.ID),
		attribute.String("analysis.method", string(method)),
		attribute.Float64("analysis.score", score),
		attribute.String("analysis.verdict", string(verdict)),
	)
	obsmetrics.ObserveAnalysis(string(method), string(verdict), score)
	observability.LoggerFromContext(ctx).Info("analysis completed",
		slog.String("analysis_id", a.ID),
		slog.String("method", string(method)),
		slog.Float64("score", score),
		slog.Float64("threshold", threshold),
		slog.String("verdict", string(verdict)),
		slog.Int("cv_keywords", cvKW.Len()),
		slog.Int("jd_keywords", jdKW.Len()),
		slog.Int("common_keywords", common.Len()),
		slog.String("jd_source", string(jd.kind)),
	)
	return a, nil
}

// BuildRadar lays the common keywords out as radar axes. CV values are the
// common counts and job description values the job description counts. When
// there are more than maxAxes terms the ones most frequent in the job
// description are kept, in their original order.
func BuildRadar(common, jd domain.Keywords, maxAxes int, rangeMax float64) domain.RadarChart {
	terms := common.Terms()
	if maxAxes > 0 && len(terms) > maxAxes {
		idx := make([]int, len(terms))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return jd.Count(terms[idx[a]]) > jd.Count(terms[idx[b]]) })
		idx = idx[:maxAxes]
		sort.Ints(idx)
		kept := make([]string, len(idx))
		for i, j := range idx {
			kept[i] = terms[j]
		}
		terms = kept
	}

	cvR := make([]float64, len(terms))
	jdR := make([]float64, len(terms))
	for i, t := range terms {
		cvR[i] = float64(common.Count(t))
		jdR[i] = float64(jd.Count(t))
	}
	return domain.RadarChart{
		RangeMax: rangeMax,
		Series: []domain.RadarSeries{
			{Name: SeriesCV, Theta: terms, R: cvR},
			{Name: SeriesJob, Theta: append([]string(nil), terms...), R: jdR},
		},
	}
}

// Wordcloud renders the keywords of one text, which may be a link.
func (s AnalyzeService) Wordcloud(ctx context.Context, text string, palette domain.Palette) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("op=analyze.wordcloud: %w: text required", domain.ErrInvalidArgument)
	}
	if !palette.Valid() {
		return nil, fmt.Errorf("op=analyze.wordcloud: %w: unknown palette %q", domain.ErrInvalidArgument, palette)
	}
	r, err := s.resolve(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("op=analyze.wordcloud: %w", err)
	}
	img, err := s.Clouds.Render(ctx, s.Analyzer.Keywords(r.text), palette)
	if err != nil {
		return nil, fmt.Errorf("op=analyze.wordcloud: %w", err)
	}
	return img, nil
}

// Wordclouds renders the CV cloud in greens and the job description cloud in
// blues concurrently. Empty sides are skipped.
func (s AnalyzeService) Wordclouds(ctx context.Context, cvText, jobDescription string) (Clouds, error) {
	cv, jd, err := s.resolveBoth(ctx, cvText, jobDescription)
	if err != nil {
		return Clouds{}, fmt.Errorf("op=analyze.wordclouds: %w", err)
	}
	out, err := s.renderClouds(ctx, s.Analyzer.Keywords(cv.text), s.Analyzer.Keywords(jd.text))
	if err != nil {
		return Clouds{}, fmt.Errorf("op=analyze.wordclouds: %w", err)
	}
	return out, nil
}

// AnalysisClouds renders the clouds of a finished analysis without resolving
// its inputs again.
func (s AnalyzeService) AnalysisClouds(ctx context.Context, a domain.Analysis) (Clouds, error) {
	out, err := s.renderClouds(ctx, a.CVKeywords, a.JobKeywords)
	if err != nil {
		return Clouds{}, fmt.Errorf("op=analyze.clouds: %w", err)
	}
	return out, nil
}

func (s AnalyzeService) renderClouds(ctx context.Context, cvKW, jdKW domain.Keywords) (Clouds, error) {
	var out Clouds
	g, gctx := errgroup.WithContext(ctx)
	render := func(kw domain.Keywords, palette domain.Palette, dst *[]byte) {
		if kw.Len() == 0 {
			return
		}
		g.Go(func() error {
			img, err := s.Clouds.Render(gctx, kw, palette)
			if err != nil {
				return err
			}
			*dst = img
			return nil
		})
	}
	render(cvKW, domain.PaletteGreens, &out.CV)
	render(jdKW, domain.PaletteBlues, &out.JobDescription)
	if err := g.Wait(); err != nil {
		return Clouds{}, err
	}
	return out, nil
}

// Radar writes the analysis radar as a standalone HTML page.
func (s AnalyzeService) Radar(_ context.Context, a domain.Analysis, w io.Writer) error {
	if err := s.Charts.RenderHTML(w, a.Radar); err != nil {
		return fmt.Errorf("op=analyze.radar: %w", err)
	}
	return nil
}
