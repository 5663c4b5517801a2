package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tpln/gateway/internal/assets"
)

func (a *app) newAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage built front-end assets",
	}

	var opts assets.Options
	rewrite := &cobra.Command{
		Use:   "rewrite",
		Short: "Point the admin page at the newest built script and stylesheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := assets.UpdateAdminHTML(opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, c := range []struct {
				label  string
				file   string
				change assets.Change
			}{
				{"script", res.Script, res.Changes.Script},
				{"style", res.Style, res.Changes.Style},
			} {
				switch {
				case c.change.Changed():
					fmt.Fprintf(w, "%s %s: %s -> %s\n", okMark("✓"), c.label, c.change.From, c.change.To)
				case c.change.From == "":
					fmt.Fprintf(w, "%s %s: no reference in template\n", warnMark("!"), c.label)
				default:
					fmt.Fprintf(w, "%s %s: already %s\n", okMark("·"), c.label, c.file)
				}
			}
			fmt.Fprintf(w, "Wrote %s\n", res.OutputPath)
			return nil
		},
	}
	rewrite.Flags().StringVar(&opts.DistDir, "dist", "dist", "Build output directory")
	rewrite.Flags().StringVar(&opts.TemplatePath, "template", "public/admin.html", "Admin page template")
	rewrite.Flags().StringVar(&opts.OutputPath, "out", "", "Output path (default <dist>/admin.html)")

	var file string
	refs := &cobra.Command{
		Use:   "refs",
		Short: "List the /assets/ references of an HTML page",
		RunE: func(cmd *cobra.Command, args []string) error {
			html, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			found, err := assets.References(string(html))
			if err != nil {
				return err
			}
			for _, ref := range found {
				fmt.Fprintln(cmd.OutOrStdout(), ref)
			}
			return nil
		},
	}
	refs.Flags().StringVar(&file, "file", "public/admin.html", "HTML page to inspect")

	cmd.AddCommand(rewrite, refs)
	return cmd
}
