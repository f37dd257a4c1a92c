// Package cli implements the skillswarrior command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/skills-warrior/internal/adapter/observability"
	"github.com/fairyhunter13/skills-warrior/internal/app"
	"github.com/fairyhunter13/skills-warrior/internal/config"
)

type rootOptions struct {
	verbose bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var opts rootOptions
	root := &cobra.Command{
		Use:   "skillswarrior",
		Short: "Match a CV against a job description",
		Long: `Skills Warrior extracts keywords from a CV and a job description,
scores how well they overlap and draws word clouds and a radar chart.

Inputs may be a file (.pdf, .docx, .doc, .txt), a job posting URL or plain text.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")
	root.AddCommand(newAnalyzeCmd(&opts), newExtractCmd(&opts), newWordcloudCmd(&opts))
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and wires the services. Logs go to stderr so
// that stdout only carries results.
func setup(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*app.Services, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(observability.NewLeveledLogger(cmd.ErrOrStderr(), cfg, level))
	observability.InitMetrics()

	svcs, err := app.NewServices(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return svcs, cfg, nil
}

// readInput turns an argument into text. Existing files are extracted, "-"
// reads stdin, anything else is returned as is so that links are fetched by
// the pipeline.
func readInput(ctx context.Context, cmd *cobra.Command, svcs *app.Services, arg string) (string, error) {
	if arg == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	if st, err := os.Stat(arg); err == nil && !st.IsDir() {
		data, err := os.ReadFile(arg) // #nosec G304 -- user-selected input file
		if err != nil {
			return "", err
		}
		out, err := svcs.Extract.FromUpload(ctx, filepath.Base(arg), data)
		if err != nil {
			return "", err
		}
		return out.Text, nil
	}
	return strings.TrimSpace(arg), nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- output artefact
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
