// Package webpage downloads job postings and turns them into plain text.
package webpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html/charset"

	obsmetrics "github.com/fairyhunter13/skills-warrior/internal/adapter/observability"
	"github.com/fairyhunter13/skills-warrior/internal/config"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/observability"
)

// Fetcher implements domain.PageFetcher.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	selector  string
	retry     config.FetchRetryConfig

	limiter   domain.Limiter   // optional per-host politeness
	cache     domain.PageCache // optional
	cacheTTL  time.Duration
	cacheName string
	docs      domain.TextExtractor // optional, for PDF/DOCX links
}

// Deps are the optional collaborators of a Fetcher.
type Deps struct {
	Limiter domain.Limiter
	Cache   domain.PageCache
	Docs    domain.TextExtractor
}

// New builds a fetcher from configuration.
func New(cfg config.Config, deps Deps) *Fetcher {
	maxBytes := cfg.FetchMaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(newTransport(cfg.FetchAllowPrivate)),
		},
		userAgent: cfg.FetchUserAgent,
		maxBytes:  maxBytes,
		selector:  cfg.JDContentSelector,
		retry:     cfg.GetFetchRetryConfig(),
		limiter:   deps.Limiter,
		cache:     deps.Cache,
		cacheTTL:  cfg.PageCacheTTL,
		cacheName: cfg.CacheBackendName(),
		docs:      deps.Docs,
	}
}

// FetchText downloads rawURL and returns its readable text. Cached pages are
// served without touching the network.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return "", fmt.Errorf("op=webpage.FetchText: %w", err)
	}
	key := u.String()
	lg := observability.LoggerFromContext(ctx).With(slog.String("url", key))

	ctx, span := otel.Tracer("skills-warrior/webpage").Start(ctx, "webpage.FetchText")
	defer span.End()
	span.SetAttributes(attribute.String("url.host", u.Host))

	if f.cache != nil {
		text, ok, err := f.cache.Get(ctx, key)
		if err != nil {
			lg.Warn("page cache get failed", slog.Any("error", err))
		}
		obsmetrics.ObserveCacheLookup(f.cacheName, ok)
		if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return text, nil
		}
	}

	start := time.Now()
	body, contentType, err := f.download(ctx, u)
	if err == nil {
		var text string
		text, err = f.toText(ctx, body, contentType)
		if err == nil && strings.TrimSpace(text) == "" {
			err = fmt.Errorf("%w: no readable text", domain.ErrNotFound)
		}
		obsmetrics.ObservePageFetch(u.Host, time.Since(start), err)
		if err == nil {
			f.store(ctx, lg, key, text)
			lg.Debug("page fetched", slog.Int("bytes", len(body)), slog.Int("chars", len(text)), slog.Duration("duration", time.Since(start)))
			return text, nil
		}
	} else {
		obsmetrics.ObservePageFetch(u.Host, time.Since(start), err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	lg.Warn("page fetch failed", slog.Any("error", err))
	return "", fmt.Errorf("op=webpage.FetchText: %w", err)
}

func (f *Fetcher) store(ctx context.Context, lg *slog.Logger, key, text string) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Set(ctx, key, text, f.cacheTTL); err != nil {
		lg.Warn("page cache set failed", slog.Any("error", err))
	}
}

// download GETs u with exponential backoff on network errors, 429 and 5xx.
// Every attempt waits for the per-host limiter.
func (f *Fetcher) download(ctx context.Context, u *url.URL) ([]byte, string, error) {
	var (
		body        []byte
		contentType string
	)
	op := func() error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, u.Host); err != nil {
				return backoff.Permanent(fmt.Errorf("%w: waiting for %s: %v", domain.ErrRateLimited, u.Host, err))
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,text/plain;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := f.client.Do(req)
		if err != nil {
			if errors.Is(err, errBlockedAddress) {
				return backoff.Permanent(fmt.Errorf("%w: %s is not a public address", domain.ErrInvalidArgument, u.Hostname()))
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if err := statusError(resp.StatusCode); err != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			if retryable(resp.StatusCode) {
				return err
			}
			return backoff.Permanent(err)
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
		if err != nil {
			return err
		}
		if int64(len(b)) > f.maxBytes {
			observability.LoggerFromContext(ctx).Warn("page truncated at size cap",
				slog.String("url", u.String()), slog.Int64("max_bytes", f.maxBytes))
			b = b[:f.maxBytes]
		}
		body, contentType = b, resp.Header.Get("Content-Type")
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = f.retry.InitialInterval
	expo.MaxInterval = f.retry.MaxInterval
	expo.MaxElapsedTime = f.retry.MaxElapsedTime
	if f.retry.Multiplier > 0 {
		expo.Multiplier = f.retry.Multiplier
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(expo, f.retry.MaxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		observability.LoggerFromContext(ctx).Info("retrying page fetch",
			slog.String("url", u.String()), slog.Any("error", err), slog.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return nil, "", classify(err)
	}
	return body, contentType, nil
}

// toText picks an extractor from the declared and sniffed content type.
func (f *Fetcher) toText(ctx context.Context, body []byte, contentType string) (string, error) {
	declared, _, _ := mime.ParseMediaType(contentType)
	sniffed := mimetype.Detect(body)

	switch {
	case declared == "text/html" || declared == "application/xhtml+xml" || sniffed.Is("text/html"):
		r, err := charset.NewReader(bytes.NewReader(body), contentType)
		if err != nil {
			return "", fmt.Errorf("%w: charset: %v", domain.ErrUnsupportedMedia, err)
		}
		return ExtractHTMLText(r, f.selector)
	case sniffed.Is("application/pdf") || sniffed.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		if f.docs == nil {
			return "", fmt.Errorf("%w: %s document links are not supported", domain.ErrUnsupportedMedia, sniffed.String())
		}
		return f.docs.Extract(ctx, "page"+sniffed.Extension(), body)
	case declared == "text/plain" || (declared == "" && isText(sniffed)):
		r, err := charset.NewReader(bytes.NewReader(body), contentType)
		if err != nil {
			return "", fmt.Errorf("%w: charset: %v", domain.ErrUnsupportedMedia, err)
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, sniffed.String())
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("%w: status %d", domain.ErrNotFound, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", domain.ErrRateLimited, code)
	default:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, code)
	}
}

// classify maps transport failures onto the domain taxonomy.
func classify(err error) error {
	for _, sentinel := range []error{domain.ErrNotFound, domain.ErrRateLimited, domain.ErrUpstreamUnavailable, domain.ErrInvalidArgument} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	var ne interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}
