// Package tika provides Apache Tika integration for text extraction.
//
// It covers the legacy and office formats the local parser cannot read
// (.doc, .odt, .rtf) and is only used when TIKA_URL is configured.
package tika

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/observability"
	"github.com/fairyhunter13/skills-warrior/pkg/textx"
)

const defaultBaseURL = "http://localhost:9998"

// maxResponseBytes caps the plain-text body read from Tika.
const maxResponseBytes = 16 << 20

// Client is a minimal Apache Tika HTTP client implementing domain.TextExtractor.
// It performs PUT /tika with Accept: text/plain to retrieve extracted text.
// See: https://tika.apache.org/server/ for API details.
type Client struct {
	baseURL    string
	httpClient *http.Client
	obs        *observability.ObservedClient
}

// New constructs a Tika client with an adaptive per-call timeout.
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		obs: observability.NewObservedClient(
			observability.ConnectionTypeTika,
			baseURL,
			15*time.Second, // base timeout
			5*time.Second,  // min timeout
			60*time.Second, // max timeout
		),
	}
}

// Extract uploads data to the Tika server and returns the plain text.
func (c *Client) Extract(ctx context.Context, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty document", domain.ErrInvalidArgument)
	}
	var result string
	err := c.obs.Execute(ctx, "extract", func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPut, c.baseURL+"/tika", bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "text/plain")
		// Content-Type best-effort from extension
		if ct := contentTypeFromExt(filepath.Ext(fileName)); ct != "" {
			req.Header.Set("Content-Type", ct)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if err := statusError(resp.StatusCode); err != nil {
			return err
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return err
		}
		result = textx.CollapseSpaces(string(b))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("op=tika.Extract: %w", classify(err))
	}
	return result, nil
}

// Ping checks that the server answers GET /tika. Pings count towards
// Healthy like extractions do.
func (c *Client) Ping(ctx context.Context) error {
	err := c.obs.Execute(ctx, "ping", func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+"/tika", nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("op=tika.Ping: %w", classify(err))
	}
	return nil
}

// Healthy reports false after a streak of failed calls, for a cooldown.
func (c *Client) Healthy() bool { return c.obs.IsHealthy() }

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnsupportedMediaType || code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: tika status %d", domain.ErrUnsupportedMedia, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: tika status %d", domain.ErrRateLimited, code)
	case code >= 500:
		return fmt.Errorf("%w: tika status %d", domain.ErrUpstreamUnavailable, code)
	default:
		return fmt.Errorf("%w: tika status %d", domain.ErrInvalidArgument, code)
	}
}

// classify maps transport failures onto the domain taxonomy, leaving typed errors alone.
func classify(err error) error {
	for _, sentinel := range []error{domain.ErrUnsupportedMedia, domain.ErrRateLimited, domain.ErrUpstreamUnavailable, domain.ErrInvalidArgument} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}

func contentTypeFromExt(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".odt":
		return "application/vnd.oasis.opendocument.text"
	case ".rtf":
		return "application/rtf"
	case ".txt":
		return "text/plain"
	default:
		if ext != "" {
			return mime.TypeByExtension(ext)
		}
	}
	return ""
}
