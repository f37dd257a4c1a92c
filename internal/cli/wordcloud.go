package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

func newWordcloudCmd(root *rootOptions) *cobra.Command {
	var (
		out     string
		palette string
	)
	cmd := &cobra.Command{
		Use:   "wordcloud <file|url|text>",
		Short: "Render a keyword word cloud as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := domain.Palette(palette)
			if !p.Valid() {
				return fmt.Errorf("%w: palette must be greens or blues", domain.ErrInvalidArgument)
			}
			ctx := cmd.Context()
			svcs, _, err := setup(ctx, cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = svcs.Close() }()

			text, err := readInput(ctx, cmd, svcs, args[0])
			if err != nil {
				return err
			}
			png, err := svcs.Analyze.Wordcloud(ctx, text, p)
			if err != nil {
				return err
			}
			if err := writeFile(out, png); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(png))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "wordcloud.png", "PNG file to write")
	cmd.Flags().StringVar(&palette, "palette", string(domain.PaletteGreens), "Colour ramp: greens or blues")
	return cmd
}
