package webpage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/skills-warrior/internal/adapter/webpage"
	"github.com/fairyhunter13/skills-warrior/internal/config"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string]string{}
	}
	c.data[key] = value
	return nil
}

type countingLimiter struct{ calls atomic.Int32 }

func (l *countingLimiter) Wait(context.Context, string) error {
	l.calls.Add(1)
	return nil
}

type fakeDocs struct{ name string }

func (d *fakeDocs) Extract(_ context.Context, fileName string, _ []byte) (string, error) {
	d.name = fileName
	return "kubernetes terraform", nil
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:            "test",
		FetchAllowPrivate: true,
		FetchTimeout:      2 * time.Second,
		FetchMaxBytes:     1 << 20,
		FetchMaxRetries:   2,
		FetchUserAgent:    "sw-test",
		PageCacheTTL:      time.Minute,
	}
}

func serve(t *testing.T, h http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchText_HTMLParagraphs(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sw-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><nav><p>Menu</p></nav>
<script>var x = "ignored";</script>
<p>We need a  Go engineer.</p><div><p>Kubernetes is a plus.</p></div></body></html>`))
	})
	limiter := &countingLimiter{}
	f := webpage.New(testConfig(), webpage.Deps{Limiter: limiter})

	got, err := f.FetchText(context.Background(), srv.URL+"/job#apply")
	require.NoError(t, err)
	assert.Equal(t, "Menu We need a Go engineer. Kubernetes is a plus.", got)
	assert.Equal(t, int32(1), limiter.calls.Load())
}

func TestFetchText_Selector(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>Cookie banner</p><section class="jd"><p>Rust</p><p>Postgres</p></section></body></html>`))
	})
	cfg := testConfig()
	cfg.JDContentSelector = ".jd"
	got, err := webpage.New(cfg, webpage.Deps{}).FetchText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Rust Postgres", got)
}

func TestFetchText_Charset(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<html><body><p>caf\xe9 barista</p></body></html>"))
	})
	got, err := webpage.New(testConfig(), webpage.Deps{}).FetchText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "café barista", got)
}

func TestFetchText_RetriesServerErrors(t *testing.T) {
	var n atomic.Int32
	srv, hits := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		if n.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("golang docker"))
	})
	limiter := &countingLimiter{}
	got, err := webpage.New(testConfig(), webpage.Deps{Limiter: limiter}).FetchText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "golang docker", got)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(2), limiter.calls.Load(), "each attempt waits for the host budget")
}

func TestFetchText_StatusMapping(t *testing.T) {
	cases := []struct {
		name  string
		code  int
		want  error
		calls int32
	}{
		{"not found is permanent", http.StatusNotFound, domain.ErrNotFound, 1},
		{"gone is permanent", http.StatusGone, domain.ErrNotFound, 1},
		{"forbidden is permanent", http.StatusForbidden, domain.ErrUpstreamUnavailable, 1},
		{"429 exhausts retries", http.StatusTooManyRequests, domain.ErrRateLimited, 3},
		{"5xx exhausts retries", http.StatusBadGateway, domain.ErrUpstreamUnavailable, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, hits := serve(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.code)
			})
			_, err := webpage.New(testConfig(), webpage.Deps{}).FetchText(context.Background(), srv.URL)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.calls, hits.Load())
		})
	}
}

func TestFetchText_CacheHit(t *testing.T) {
	srv, hits := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("python airflow"))
	})
	cache := &mapCache{}
	f := webpage.New(testConfig(), webpage.Deps{Cache: cache})

	for i := 0; i < 3; i++ {
		got, err := f.FetchText(context.Background(), srv.URL+"/p")
		require.NoError(t, err)
		assert.Equal(t, "python airflow", got)
	}
	assert.Equal(t, int32(1), hits.Load())
	_, ok, _ := cache.Get(context.Background(), srv.URL+"/p")
	assert.True(t, ok)
}

func TestFetchText_SizeCap(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	})
	cfg := testConfig()
	cfg.FetchMaxBytes = 10
	got, err := webpage.New(cfg, webpage.Deps{}).FetchText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 10), got)
}

func TestFetchText_DocumentLink(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("%PDF-1.4\n%fake\n"))
	})
	docs := &fakeDocs{}
	got, err := webpage.New(testConfig(), webpage.Deps{Docs: docs}).FetchText(context.Background(), srv.URL+"/jd.pdf")
	require.NoError(t, err)
	assert.Equal(t, "kubernetes terraform", got)
	assert.Equal(t, "page.pdf", docs.name)

	_, err = webpage.New(testConfig(), webpage.Deps{}).FetchText(context.Background(), srv.URL+"/jd.pdf")
	require.ErrorIs(t, err, domain.ErrUnsupportedMedia)
}

func TestFetchText_Rejections(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body>   </body></html>"))
		default:
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte{0x00, 0x01, 0x02, 0x03})
		}
	})
	f := webpage.New(testConfig(), webpage.Deps{})

	_, err := f.FetchText(context.Background(), srv.URL+"/empty")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.FetchText(context.Background(), srv.URL+"/bin")
	require.ErrorIs(t, err, domain.ErrUnsupportedMedia)

	_, err = f.FetchText(context.Background(), "ftp://example.com/jd")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestFetchText_Timeout(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	cfg := testConfig()
	cfg.FetchTimeout = 50 * time.Millisecond
	cfg.FetchMaxRetries = 0
	_, err := webpage.New(cfg, webpage.Deps{}).FetchText(context.Background(), srv.URL)
	require.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}

func TestFetchText_RefusesPrivateAddresses(t *testing.T) {
	srv, hits := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("secret admin token"))
	})
	cfg := testConfig()
	cfg.FetchAllowPrivate = false
	f := webpage.New(cfg, webpage.Deps{})

	for _, link := range []string{
		srv.URL + "/admin",
		"http://127.0.0.1/",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]:8080/",
	} {
		_, err := f.FetchText(context.Background(), link)
		require.ErrorIs(t, err, domain.ErrInvalidArgument, link)
	}
	assert.Equal(t, int32(0), hits.Load())
}

func TestFetchText_RefusesNamesResolvingToLoopback(t *testing.T) {
	internal, hits := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("internal billing"))
	})
	cfg := testConfig()
	cfg.FetchAllowPrivate = false
	_, err := webpage.New(cfg, webpage.Deps{}).FetchText(context.Background(), "http://localhost:"+strings.TrimPrefix(internal.URL, "http://127.0.0.1:"))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, int32(0), hits.Load())
}
