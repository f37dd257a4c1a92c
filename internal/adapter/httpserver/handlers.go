package httpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/skills-warrior/internal/adapter/render"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/textextractor"
	"github.com/fairyhunter13/skills-warrior/internal/config"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/usecase"
)

// ReadinessCheck is one dependency checked by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg     config.Config
	Extract usecase.ExtractService
	Analyze usecase.AnalyzeService
	Charts  *render.Radar
	Checks  []ReadinessCheck
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, extract usecase.ExtractService, analyze usecase.AnalyzeService, charts *render.Radar, checks ...ReadinessCheck) *Server {
	if charts == nil {
		charts = render.NewRadar(cfg.RadarRangeMax)
	}
	return &Server{Cfg: cfg, Extract: extract, Analyze: analyze, Charts: charts, Checks: checks}
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.Cfg.MaxUploadMB
	if mb <= 0 {
		mb = 10
	}
	return mb << 20
}

// sniffAllowed lists, per extension, the detected types an upload may carry.
var sniffAllowed = map[string][]string{
	".pdf":  {"application/pdf"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".doc":  {"application/msword", "application/x-ole-storage", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".txt":  {"text/plain"},
	".odt":  {"application/vnd.oasis.opendocument.text", "application/zip"},
	".rtf":  {"text/rtf", "text/plain"},
}

// checkUpload enforces the extension allowlist and matches the sniffed
// content against it.
func (s *Server) checkUpload(filename string, data []byte) error {
	if !textextractor.AllowedExt(filename, s.Cfg.TikaEnabled()) {
		return fmt.Errorf("%w: extension of %q is not accepted (allowed: %s)",
			domain.ErrUnsupportedMedia, filename, textextractor.AcceptAttr(s.Cfg.TikaEnabled()))
	}
	m := mimetype.Detect(data)
	for cur := m; cur != nil; cur = cur.Parent() {
		for _, want := range sniffAllowed[strings.ToLower(filepath.Ext(filename))] {
			if cur.Is(want) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: content of %q looks like %s", domain.ErrUnsupportedMedia, filename, m.String())
}

// ExtractHandler reads an uploaded document, either as multipart field "file"
// or as JSON {"filename","contents"} with a data URI.
func (s *Server) ExtractHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsOrReject(w, r, "application/json") {
			return
		}
		var (
			name string
			data []byte
		)
		if strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			var ok bool
			if name, data, ok = s.readMultipartFile(w, r, "file"); !ok {
				return
			}
		} else {
			var req extractRequest
			// base64 inflates by 4/3, plus room for the envelope
			if !decodeJSON(w, r, &req, s.maxUploadBytes()*4/3+(64<<10)) {
				return
			}
			uri, err := domain.DecodeDataURI(req.Contents)
			if err != nil {
				writeError(w, r, err, map[string]string{"field": "contents"})
				return
			}
			if int64(len(uri.Data)) > s.maxUploadBytes() {
				writeTooLarge(w, s.Cfg.MaxUploadMB)
				return
			}
			name, data = req.Filename, uri.Data
		}
		if len(data) == 0 {
			writeError(w, r, fmt.Errorf("%w: empty file", domain.ErrInvalidArgument), map[string]string{"field": "file"})
			return
		}
		if err := s.checkUpload(name, data); err != nil {
			writeError(w, r, err, map[string]string{"filename": name})
			return
		}
		out, err := s.Extract.FromUpload(r.Context(), name, data)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// readMultipartFile parses a capped multipart body and returns one file
// field. It writes the error response itself on failure.
func (s *Server) readMultipartFile(w http.ResponseWriter, r *http.Request, field string) (string, []byte, bool) {
	maxBytes := s.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(strings.ToLower(err.Error()), "too large") {
			writeTooLarge(w, s.Cfg.MaxUploadMB)
			return "", nil, false
		}
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
		return "", nil, false
	}
	f, h, err := r.FormFile(field)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %s file required", domain.ErrInvalidArgument, field), map[string]string{"field": field})
		return "", nil, false
	}
	defer func() { _ = f.Close() }()
	if h.Size > maxBytes {
		writeTooLarge(w, s.Cfg.MaxUploadMB)
		return "", nil, false
	}
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidArgument, field, err), nil)
		return "", nil, false
	}
	return h.Filename, data, true
}

func (req analyzeRequest) input() usecase.AnalyzeInput {
	return usecase.AnalyzeInput{
		CVText:         req.CVText,
		JobDescription: req.JobDescription,
		Threshold:      req.Threshold,
		Method:         domain.ScoreMethod(strings.ToLower(req.Method)),
	}
}

// AnalyzeHandler compares a CV with a job description.
func (s *Server) AnalyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsOrReject(w, r, "application/json") {
			return
		}
		var req analyzeRequest
		if !decodeJSON(w, r, &req, 0) {
			return
		}
		a, err := s.Analyze.Analyze(r.Context(), req.input())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, usecase.BuildAnalysisResponse(a))
	}
}

// WordcloudHandler renders the keyword cloud of one text as PNG.
func (s *Server) WordcloudHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsOrReject(w, r, "image/png") {
			return
		}
		var req wordcloudRequest
		if !decodeJSON(w, r, &req, 0) {
			return
		}
		palette := domain.Palette(strings.ToLower(req.Palette))
		if palette == "" {
			palette = domain.PaletteGreens
		}
		img, err := s.Analyze.Wordcloud(r.Context(), req.Text, palette)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img)
	}
}

// RadarHandler analyzes the request and answers with the radar chart page.
func (s *Server) RadarHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsOrReject(w, r, "text/html") {
			return
		}
		var req analyzeRequest
		if !decodeJSON(w, r, &req, 0) {
			return
		}
		a, err := s.Analyze.Analyze(r.Context(), req.input())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var buf bytes.Buffer
		if err := s.Analyze.Radar(r.Context(), a, &buf); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Analysis-Id", a.ID)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
}

// ReadyzHandler checks every configured dependency.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(s.Checks))
		ok := true
		for _, c := range s.Checks {
			if c.Check == nil {
				continue
			}
			if err := c.Check(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: c.Name, OK: false, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: c.Name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
