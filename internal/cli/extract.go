package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/usecase"
)

func newExtractCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "extract <file|url>",
		Short: "Print the plain text of a document or job posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svcs, _, err := setup(ctx, cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = svcs.Close() }()

			arg := args[0]
			var out usecase.Extracted
			switch {
			case svcs.Pages != nil && svcs.Pages.IsURL(arg):
				text, err := svcs.Pages.FetchText(ctx, arg)
				if err != nil {
					return err
				}
				out = usecase.Extracted{Filename: arg, Text: text, Chars: len([]rune(text))}
			default:
				data, err := os.ReadFile(arg) // #nosec G304 -- user-selected input file
				if err != nil {
					return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
				}
				out, err = svcs.Extract.FromUpload(ctx, filepath.Base(arg), data)
				if err != nil {
					return err
				}
			}

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Text)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print filename, text and character count as JSON")
	return cmd
}
