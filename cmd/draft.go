package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gaurav-Gosain/commentlink/config"
	"github.com/Gaurav-Gosain/commentlink/output"
	"github.com/Gaurav-Gosain/commentlink/page"
	"github.com/Gaurav-Gosain/commentlink/tui"
)

type draftFlags struct {
	File     string
	Plain    bool
	WordWrap int
}

func newDraftCmd(g *globalFlags) *cobra.Command {
	f := &draftFlags{}

	cmd := &cobra.Command{
		Use:   "draft <page-url>",
		Short: "Show the new-issue draft for a page without searching",
		Example: `  # Draft from a live page
  commentlink draft https://blog.example.com/posts/walrus.html

  # Draft from a built file that will be served at the URL
  commentlink draft https://blog.example.com/posts/walrus.html --file output/posts/walrus.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c, g)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			p, err := draftPage(c, cfg, f, args[0])
			if err != nil {
				return err
			}

			b, _ := newBinder(cfg, newLogger(cfg))
			plain := f.Plain || !tui.IsTerminal(c.OutOrStdout())
			return output.RenderDraft(c.OutOrStdout(), b.Draft(p), f.WordWrap, plain)
		},
	}

	cmd.Flags().StringVar(&f.File, "file", "", "Read page metadata from a local HTML file instead of fetching")
	cmd.Flags().BoolVar(&f.Plain, "plain", false, "Print raw markdown")
	cmd.Flags().IntVarP(&f.WordWrap, "word-wrap", "w", 80, "Word wrap width for terminal rendering")

	return cmd
}

func draftPage(c *cobra.Command, cfg *config.Config, f *draftFlags, pageURL string) (page.Page, error) {
	if f.File != "" {
		return page.ReadFile(f.File, pageURL)
	}

	results, err := page.Collect(c.Context(), page.Options{
		URLs:    []string{pageURL},
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return page.Page{}, err
	}
	if len(results) == 0 {
		return page.Page{}, fmt.Errorf("no result for %s", pageURL)
	}
	if results[0].Err != nil {
		return page.Page{}, results[0].Err
	}
	return results[0].Page, nil
}
