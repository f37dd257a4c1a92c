package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/usecase"
)

type analyzeOptions struct {
	cv        string
	jd        string
	threshold float64
	method    string
	asJSON    bool
	radarOut  string
	cvCloud   string
	jdCloud   string
	top       int
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score a CV against a job description",
		Long: `Extract keywords from both documents and print the match percentage.

Each of --cv and --jd accepts a file path, a URL (job description only) or
literal text. Use "-" to read one of them from stdin.`,
		Example: `  skillswarrior analyze --cv resume.pdf --jd https://example.com/jobs/42
  skillswarrior analyze --cv resume.docx --jd posting.txt --threshold 60 --radar radar.html`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, root, &opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.cv, "cv", "", "CV file or text")
	f.StringVar(&opts.jd, "jd", "", "Job description file, URL or text")
	f.Float64VarP(&opts.threshold, "threshold", "t", 0, "Match threshold in percent (default from config)")
	f.StringVarP(&opts.method, "method", "m", "", "Scoring method: overlap or cosine (default from config)")
	f.BoolVar(&opts.asJSON, "json", false, "Print the analysis as JSON")
	f.StringVar(&opts.radarOut, "radar", "", "Write the skills radar chart to this HTML file")
	f.StringVar(&opts.cvCloud, "cv-cloud", "", "Write the CV word cloud to this PNG file")
	f.StringVar(&opts.jdCloud, "jd-cloud", "", "Write the job description word cloud to this PNG file")
	f.IntVar(&opts.top, "top", 15, "Number of common keywords to list")
	_ = cmd.MarkFlagRequired("cv")
	_ = cmd.MarkFlagRequired("jd")
	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions) error {
	if opts.cv == "-" && opts.jd == "-" {
		return fmt.Errorf("%w: only one of --cv and --jd can read stdin", domain.ErrInvalidArgument)
	}
	ctx := cmd.Context()
	svcs, _, err := setup(ctx, cmd, root)
	if err != nil {
		return err
	}
	defer func() { _ = svcs.Close() }()

	cvText, err := readInput(ctx, cmd, svcs, opts.cv)
	if err != nil {
		return fmt.Errorf("cv: %w", err)
	}
	jdText, err := readInput(ctx, cmd, svcs, opts.jd)
	if err != nil {
		return fmt.Errorf("job description: %w", err)
	}

	in := usecase.AnalyzeInput{
		CVText:         cvText,
		JobDescription: jdText,
		Method:         domain.ScoreMethod(strings.ToLower(strings.TrimSpace(opts.method))),
	}
	if cmd.Flags().Changed("threshold") {
		t := opts.threshold
		in.Threshold = &t
	}
	a, err := svcs.Analyze.Analyze(ctx, in)
	if err != nil {
		return err
	}

	if opts.radarOut != "" {
		var buf bytes.Buffer
		if err := svcs.Analyze.Radar(ctx, a, &buf); err != nil {
			return err
		}
		if err := writeFile(opts.radarOut, buf.Bytes()); err != nil {
			return err
		}
	}
	if opts.cvCloud != "" || opts.jdCloud != "" {
		clouds, err := svcs.Analyze.AnalysisClouds(ctx, a)
		if err != nil {
			return err
		}
		if err := writeCloud(cmd.ErrOrStderr(), opts.cvCloud, clouds.CV, "CV"); err != nil {
			return err
		}
		if err := writeCloud(cmd.ErrOrStderr(), opts.jdCloud, clouds.JobDescription, "job description"); err != nil {
			return err
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(usecase.BuildAnalysisResponse(a))
	}
	printAnalysis(cmd.OutOrStdout(), a, opts.top)
	return nil
}

func writeCloud(stderr io.Writer, path string, png []byte, side string) error {
	if path == "" {
		return nil
	}
	if png == nil {
		fmt.Fprintf(stderr, "%s has no keywords, skipping %s\n", side, path)
		return nil
	}
	return writeFile(path, png)
}

func printAnalysis(w io.Writer, a domain.Analysis, top int) {
	paint := color.RedString
	mark := color.RedString("✗")
	if a.Verdict == domain.VerdictMatch {
		paint = color.GreenString
		mark = color.GreenString("✓")
	}
	fmt.Fprintln(w, color.New(color.Bold, color.Underline).Sprint("Percentage Match"))
	fmt.Fprintf(w, "%s %s  (%s, threshold %.0f%%)\n", mark, paint(a.Display), a.Method, a.Threshold)
	for _, m := range []domain.ScoreMethod{domain.MethodOverlap, domain.MethodCosine} {
		if v, ok := a.Scores[m]; ok && m != a.Method {
			fmt.Fprintf(w, "  %s: %.2f%%\n", m, v)
		}
	}
	fmt.Fprintln(w)

	common := a.Common.Top(top)
	fmt.Fprintln(w, color.New(color.Bold).Sprintf("Common keywords (%d of %d)", len(common), a.Common.Len()))
	if len(common) == 0 {
		fmt.Fprintln(w, color.YellowString("  none"))
	}
	for _, kc := range common {
		fmt.Fprintf(w, "  %-24s %d\n", kc.Term, kc.Count)
	}

	missing := missingKeywords(a, top)
	if len(missing) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, color.New(color.Bold).Sprint("Missing from CV"))
		for _, kc := range missing {
			fmt.Fprintf(w, "  %s %s\n", color.YellowString("-"), kc.Term)
		}
	}
}

// missingKeywords lists the most frequent job keywords absent from the CV.
func missingKeywords(a domain.Analysis, n int) []domain.KeywordCount {
	var out []domain.KeywordCount
	for _, kc := range a.JobKeywords.Top(0) {
		if a.CVKeywords.Count(kc.Term) > 0 {
			continue
		}
		out = append(out, kc)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}
