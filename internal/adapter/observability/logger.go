package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/fairyhunter13/skills-warrior/internal/config"
)

// SetupLogger configures a JSON slog logger with environment fields.
func SetupLogger(cfg config.Config) *slog.Logger {
	return NewLogger(os.Stdout, cfg)
}

// NewLogger builds the service logger on top of w. The CLI passes stderr so stdout stays clean.
func NewLogger(w io.Writer, cfg config.Config) *slog.Logger {
	// In dev, show debug level; in prod, default to info
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	return NewLeveledLogger(w, cfg, level)
}

// NewLeveledLogger is NewLogger with an explicit minimum level.
func NewLeveledLogger(w io.Writer, cfg config.Config, level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
}
