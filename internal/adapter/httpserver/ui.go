package httpserver

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/fairyhunter13/skills-warrior/internal/adapter/render"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/textextractor"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/usecase"
)

//go:embed templates/*
var templateFiles embed.FS

var pageTemplates = template.Must(template.New("ui").ParseFS(templateFiles, "templates/*.html"))

type formValues struct {
	CVText         string
	JobDescription string
	Threshold      string
	Method         string
}

type resultView struct {
	Display   string
	Verdict   string
	Color     string
	Threshold string
	Method    string
	Common    []domain.KeywordCount
	HasRadar  bool
	Radar     render.Snippet
	CVCloud   template.URL
	JobCloud  template.URL
}

type pageData struct {
	Accept         string
	Methods        []string
	Form           formValues
	Error          string
	Result         *resultView
	ChartScriptURL string
}

func (s *Server) newPage() pageData {
	method := string(s.Analyze.Opts.DefaultMethod)
	if method == "" {
		method = string(domain.MethodCosine)
	}
	return pageData{
		Accept:         textextractor.AcceptAttr(s.Cfg.TikaEnabled()),
		Methods:        []string{string(domain.MethodCosine), string(domain.MethodOverlap)},
		Form:           formValues{Threshold: formatPercent(s.Analyze.Opts.DefaultThreshold), Method: method},
		ChartScriptURL: s.Charts.ScriptURL(),
	}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		LoggerFrom(r).Error("render page failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// UIHandler serves the empty form.
func (s *Server) UIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, http.StatusOK, s.newPage())
	}
}

// UIAnalyzeHandler runs the form submission and renders the page with the
// score, radar chart and word clouds. Failures are shown inline with the
// status the JSON API would use.
func (s *Server) UIAnalyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := s.newPage()
		fail := func(err error) {
			status, _ := statusFor(err)
			if status == http.StatusInternalServerError {
				LoggerFrom(r).Error("ui analysis failed", slog.Any("error", err))
				page.Error = "Something went wrong, please try again."
			} else {
				page.Error = userMessage(err)
			}
			s.renderPage(w, r, status, page)
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes()+(2<<20))
		if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				page.Error = fmt.Sprintf("The upload is larger than %d MB.", s.Cfg.MaxUploadMB)
				s.renderPage(w, r, http.StatusRequestEntityTooLarge, page)
				return
			}
			fail(fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
			return
		}
		page.Form.CVText = r.FormValue("cv_text")
		page.Form.JobDescription = r.FormValue("job_description")
		if v := strings.TrimSpace(r.FormValue("threshold")); v != "" {
			page.Form.Threshold = v
		}
		if v := strings.TrimSpace(r.FormValue("method")); v != "" {
			page.Form.Method = strings.ToLower(v)
		}

		if text, ok, err := s.uploadedCV(r); err != nil {
			fail(err)
			return
		} else if ok {
			page.Form.CVText = text
		}

		threshold, err := strconv.ParseFloat(page.Form.Threshold, 64)
		if err != nil {
			fail(fmt.Errorf("%w: threshold must be a number", domain.ErrInvalidArgument))
			return
		}
		a, err := s.Analyze.Analyze(r.Context(), usecase.AnalyzeInput{
			CVText:         page.Form.CVText,
			JobDescription: page.Form.JobDescription,
			Threshold:      &threshold,
			Method:         domain.ScoreMethod(page.Form.Method),
		})
		if err != nil {
			fail(err)
			return
		}

		res := &resultView{
			Display:   a.Display,
			Verdict:   verdictText(a.Verdict),
			Color:     a.Verdict.Color(),
			Threshold: formatPercent(a.Threshold),
			Method:    string(a.Method),
			Common:    a.Common.Top(0),
		}
		if len(a.Radar.Axes()) > 0 {
			sn, err := s.Charts.RenderSnippet(a.Radar)
			if err != nil {
				fail(err)
				return
			}
			res.Radar, res.HasRadar = sn, true
		}
		clouds, err := s.Analyze.AnalysisClouds(r.Context(), a)
		if err != nil {
			fail(err)
			return
		}
		res.CVCloud = pngDataURL(clouds.CV)
		res.JobCloud = pngDataURL(clouds.JobDescription)
		page.Result = res
		s.renderPage(w, r, http.StatusOK, page)
	}
}

// uploadedCV extracts the optional cv_file field.
func (s *Server) uploadedCV(r *http.Request) (string, bool, error) {
	if r.MultipartForm == nil {
		return "", false, nil
	}
	f, h, err := r.FormFile("cv_file")
	if err != nil || h.Filename == "" {
		return "", false, nil
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(io.LimitReader(f, s.maxUploadBytes()+1))
	if err != nil {
		return "", false, fmt.Errorf("%w: read cv_file: %v", domain.ErrInvalidArgument, err)
	}
	if len(data) == 0 {
		return "", false, nil
	}
	if err := s.checkUpload(h.Filename, data); err != nil {
		return "", false, err
	}
	out, err := s.Extract.FromUpload(r.Context(), h.Filename, data)
	if err != nil {
		return "", false, err
	}
	return out.Text, true, nil
}

func pngDataURL(img []byte) template.URL {
	if len(img) == 0 {
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(img)) //nolint:gosec // generated PNG
}

func verdictText(v domain.Verdict) string {
	if v == domain.VerdictMatch {
		return "Match"
	}
	return "Below threshold"
}

func formatPercent(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// userMessage strips the op= chain down to the readable tail.
func userMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, "op="); i >= 0 {
		if j := strings.Index(msg[i:], ": "); j >= 0 {
			msg = msg[i+j+2:]
		}
	}
	if msg == "" {
		return "Request failed."
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
