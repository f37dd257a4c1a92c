package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/skills-warrior/internal/adapter/cache"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/render"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/textextractor"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/textextractor/docparse"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/webpage"
	"github.com/fairyhunter13/skills-warrior/internal/config"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/service/ratelimiter"
	"github.com/fairyhunter13/skills-warrior/internal/textproc"
	"github.com/fairyhunter13/skills-warrior/internal/usecase"
)

// Services is the wired application shared by the server and the CLI.
type Services struct {
	Extract usecase.ExtractService
	Analyze usecase.AnalyzeService
	Charts  *render.Radar
	Pages   *webpage.Fetcher
	Cache   cache.Backend
	Tika    *tika.Client // nil unless TIKA_URL is set
	Limiter domain.Limiter
}

// NewServices builds every adapter named by cfg. Close releases what it opened.
func NewServices(ctx context.Context, cfg config.Config) (*Services, error) {
	lexicon, err := config.LoadLexicon(cfg.LexiconFile)
	if err != nil {
		return nil, fmt.Errorf("op=app.NewServices: %w", err)
	}
	analyzer := textproc.NewAnalyzer(textproc.DefaultStopwords().With(lexicon.Stopwords...))

	backend, err := cache.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("op=app.NewServices: %w", err)
	}

	s := &Services{Cache: backend}
	var remote domain.TextExtractor
	if cfg.TikaEnabled() {
		s.Tika = tika.New(cfg.TikaURL)
		remote = s.Tika
	}
	docs := textextractor.NewChain(docparse.New(), remote)

	s.Limiter = buildLimiter(cfg, backend)
	s.Pages = webpage.New(cfg, webpage.Deps{Limiter: s.Limiter, Cache: backend.Cache, Docs: docs})

	clouds, err := render.NewWordcloud(render.WordcloudOptions{
		Width:    cfg.WordcloudWidth,
		Height:   cfg.WordcloudHeight,
		MinFont:  cfg.WordcloudMinFont,
		MaxFont:  cfg.WordcloudMaxFont,
		MaxWords: cfg.WordcloudMaxWords,
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("op=app.NewServices: %w", err)
	}
	s.Charts = render.NewRadar(cfg.RadarRangeMax)

	s.Extract = usecase.NewExtractService(docs)
	s.Analyze = usecase.NewAnalyzeService(analyzer, s.Pages, clouds, s.Charts, usecase.AnalyzeOptions{
		DefaultThreshold: cfg.DefaultThreshold,
		DefaultMethod:    domain.ScoreMethod(cfg.DefaultScoreMethod),
		RadarRangeMax:    cfg.RadarRangeMax,
		RadarMaxAxes:     cfg.RadarMaxAxes,
	})

	slog.Info("services wired",
		slog.String("cache_backend", backend.Name),
		slog.Bool("tika", s.Tika != nil),
		slog.Int("stopwords", analyzer.Stopwords().Len()),
		slog.Int("lexicon_stopwords", len(lexicon.Stopwords)),
	)
	return s, nil
}

// buildLimiter shares the per-host budget through Redis when the cache lives
// there, and keeps it in process otherwise.
func buildLimiter(cfg config.Config, backend cache.Backend) domain.Limiter {
	if cfg.FetchRatePerHost <= 0 {
		return nil
	}
	if backend.Redis != nil {
		burst := int64(cfg.FetchBurst)
		if burst <= 0 {
			burst = 1
		}
		return ratelimiter.NewRedisLuaLimiter(backend.Redis, ratelimiter.BucketConfig{
			Capacity:   burst,
			RefillRate: cfg.FetchRatePerHost,
		})
	}
	return ratelimiter.NewLocalLimiter(cfg.FetchRatePerHost, cfg.FetchBurst)
}

// StartCleanup purges expired cache entries every interval until ctx ends.
// Backends that expire keys themselves are skipped.
func (s *Services) StartCleanup(ctx context.Context, interval time.Duration) bool {
	if s.Cache.Purger == nil || interval <= 0 {
		return false
	}
	svc := cache.NewCleanupService(s.Cache.Purger, s.Cache.Name)
	go svc.RunPeriodic(ctx, interval)
	return true
}

// Close releases the cache connection.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	return s.Cache.Close()
}
