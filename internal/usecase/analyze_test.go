package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/similarity"
	"github.com/fairyhunter13/skills-warrior/internal/usecase"
)

const (
	cvText = "Go developer with Kubernetes and Docker experience"
	jdText = "We need Go and Kubernetes engineer"
)

func newService(pages usecase.PageSource, clouds domain.WordcloudRenderer) usecase.AnalyzeService {
	return usecase.NewAnalyzeService(nil, pages, clouds, fakeCharts{}, usecase.AnalyzeOptions{
		DefaultThreshold: 50,
		DefaultMethod:    domain.MethodCosine,
		RadarMaxAxes:     25,
	})
}

func ptr(f float64) *float64 { return &f }

func TestAnalyze_Overlap(t *testing.T) {
	t.Parallel()
	svc := newService(nil, nil)

	a, err := svc.Analyze(context.Background(), usecase.AnalyzeInput{
		CVText: cvText, JobDescription: jdText, Method: domain.MethodOverlap,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, domain.MethodOverlap, a.Method)
	assert.InDelta(t, 50.0, a.Score, 1e-9)
	assert.Equal(t, "50.00%", a.Display)
	assert.Equal(t, 50.0, a.Threshold)
	assert.Equal(t, domain.VerdictMatch, a.Verdict)
	assert.Equal(t, []string{"go", "kubernetes"}, a.Common.Terms())
	assert.Equal(t, domain.SourceText, a.JobSource)
	assert.False(t, a.CreatedAt.IsZero())

	assert.Equal(t, []string{"go", "kubernetes"}, a.Radar.Axes())
	require.Len(t, a.Radar.Series, 2)
	assert.Equal(t, usecase.SeriesCV, a.Radar.Series[0].Name)
	assert.Equal(t, usecase.SeriesJob, a.Radar.Series[1].Name)
	assert.Equal(t, 5.0, a.Radar.RangeMax)
}

func TestAnalyze_CosineDefaultAndThreshold(t *testing.T) {
	t.Parallel()
	svc := newService(nil, nil)

	a, err := svc.Analyze(context.Background(), usecase.AnalyzeInput{
		CVText: cvText, JobDescription: jdText, Threshold: ptr(99),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodCosine, a.Method)
	want := similarity.CosineText(cvText, jdText)
	assert.InDelta(t, want, a.Score, 1e-9)
	assert.Equal(t, fmt.Sprintf("%.0f%%", want), a.Display)
	assert.Equal(t, domain.VerdictBelowThreshold, a.Verdict)
	assert.Contains(t, a.Scores, domain.MethodOverlap)

	a, err = svc.Analyze(context.Background(), usecase.AnalyzeInput{
		CVText: cvText, JobDescription: jdText, Threshold: ptr(-20),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.Threshold)
	assert.Equal(t, domain.VerdictMatch, a.Verdict)
}

func TestAnalyze_InvalidInput(t *testing.T) {
	t.Parallel()
	svc := newService(nil, nil)
	cases := []usecase.AnalyzeInput{
		{CVText: "", JobDescription: jdText},
		{CVText: cvText, JobDescription: "   "},
		{CVText: cvText, JobDescription: jdText, Method: "jaccard"},
	}
	for _, in := range cases {
		_, err := svc.Analyze(context.Background(), in)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
}

func TestAnalyze_ResolvesLinks(t *testing.T) {
	t.Parallel()
	pages := &fakePages{pages: map[string]string{"https://jobs.example.com/1": jdText}}
	svc := newService(pages, nil)

	a, err := svc.Analyze(context.Background(), usecase.AnalyzeInput{
		CVText: cvText, JobDescription: "https://jobs.example.com/1", Method: domain.MethodOverlap,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceURL, a.JobSource)
	assert.Equal(t, domain.SourceText, a.CVSource)
	assert.InDelta(t, 50.0, a.Score, 1e-9)

	pages.err = fmt.Errorf("wrapped: %w", domain.ErrNotFound)
	_, err = svc.Analyze(context.Background(), usecase.AnalyzeInput{
		CVText: cvText, JobDescription: "https://jobs.example.com/1",
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "job description")
}

func TestBuildRadar_CapsAxes(t *testing.T) {
	t.Parallel()
	common := domain.NewKeywords("go", "rust", "java", "sql")
	jd := domain.NewKeywords("sql", "sql", "sql", "go", "rust", "rust", "java")

	c := usecase.BuildRadar(common, jd, 2, 5)
	assert.Equal(t, []string{"rust", "sql"}, c.Axes())
	assert.Equal(t, []float64{1, 1}, c.Series[0].R)
	assert.Equal(t, []float64{2, 3}, c.Series[1].R)

	c = usecase.BuildRadar(common, jd, 0, 5)
	assert.Len(t, c.Axes(), 4)

	c = usecase.BuildRadar(domain.Keywords{}, jd, 25, 5)
	assert.Empty(t, c.Axes())
	require.Len(t, c.Series, 2)
}

func TestWordclouds(t *testing.T) {
	t.Parallel()
	clouds := &fakeClouds{}
	svc := newService(nil, clouds)

	out, err := svc.Wordclouds(context.Background(), cvText, jdText)
	require.NoError(t, err)
	assert.Equal(t, "greens:5", string(out.CV))
	assert.Equal(t, "blues:4", string(out.JobDescription))

	out, err = svc.Wordclouds(context.Background(), "", jdText)
	require.NoError(t, err)
	assert.Nil(t, out.CV)
	assert.NotNil(t, out.JobDescription)

	clouds.err = errors.New("draw failed")
	_, err = svc.Wordclouds(context.Background(), cvText, jdText)
	require.Error(t, err)
}

func TestWordcloud_Single(t *testing.T) {
	t.Parallel()
	svc := newService(nil, &fakeClouds{})
	img, err := svc.Wordcloud(context.Background(), jdText, domain.PaletteBlues)
	require.NoError(t, err)
	assert.Equal(t, "blues:4", string(img))

	_, err = svc.Wordcloud(context.Background(), " ", domain.PaletteBlues)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.Wordcloud(context.Background(), jdText, "purple")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRadar(t *testing.T) {
	t.Parallel()
	svc := newService(nil, nil)
	a, err := svc.Analyze(context.Background(), usecase.AnalyzeInput{CVText: cvText, JobDescription: jdText})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Radar(context.Background(), a, &buf))
	assert.Equal(t, "<radar axes=2>", buf.String())
}

func TestAnalysisClouds_UsesAnalysisKeywords(t *testing.T) {
	t.Parallel()
	pages := &fakePages{pages: map[string]string{"https://jobs.example/1": jdText}}
	svc := newService(pages, &fakeClouds{})
	a, err := svc.Analyze(context.Background(), usecase.AnalyzeInput{CVText: cvText, JobDescription: "https://jobs.example/1"})
	require.NoError(t, err)

	// a failing fetch proves the link is not resolved a second time
	pages.err = errors.New("offline")
	out, err := svc.AnalysisClouds(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "greens:5", string(out.CV))
	assert.Equal(t, "blues:4", string(out.JobDescription))
}
