package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/skills-warrior/internal/adapter/render"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/textextractor"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/textextractor/docparse"
	"github.com/fairyhunter13/skills-warrior/internal/config"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/usecase"
)

const (
	cvSample = "Go developer with Kubernetes and Docker experience"
	jdSample = "We need Go and Kubernetes engineer"
)

type stubClouds struct{ err error }

func (s stubClouds) Render(_ context.Context, kw domain.Keywords, p domain.Palette) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("PNG:" + string(p)), nil
}

type stubPages struct {
	pages map[string]string
	err   error
}

func (s stubPages) IsURL(text string) bool { return strings.HasPrefix(text, "https://") }

func (s stubPages) FetchText(_ context.Context, rawURL string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.pages[rawURL], nil
}

func testServer(t *testing.T, pages usecase.PageSource, checks ...ReadinessCheck) *Server {
	t.Helper()
	cfg := config.Config{MaxUploadMB: 1, RadarRangeMax: 5, DefaultThreshold: 50, DefaultScoreMethod: "cosine"}
	charts := render.NewRadar(5)
	extract := usecase.NewExtractService(textextractor.NewChain(docparse.New(), nil))
	analyze := usecase.NewAnalyzeService(nil, pages, stubClouds{}, charts, usecase.AnalyzeOptions{
		DefaultThreshold: 50,
		DefaultMethod:    domain.MethodCosine,
		RadarMaxAxes:     25,
	})
	return NewServer(cfg, extract, analyze, charts, checks...)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

var errBoom = errors.New("boom")
