package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Gaurav-Gosain/commentlink/binder"
	"github.com/Gaurav-Gosain/commentlink/config"
	"github.com/Gaurav-Gosain/commentlink/output"
	"github.com/Gaurav-Gosain/commentlink/page"
)

type scanFlags struct {
	BaseURL        string
	ContainerID    string
	Inject         bool
	Format         string
	WordWrap       int
	SearchInterval time.Duration
}

func newScanCmd(g *globalFlags) *cobra.Command {
	f := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan <site-dir>",
		Short: "Resolve the comment thread of every page in a built site",
		Long: "Walks a built static site, resolves the issue for each .html page one search at a time,\n" +
			"and prints the fragments or, with --inject, writes them into each page's container element.",
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c, g)
			if err != nil {
				return err
			}
			if c.Flags().Changed("container") {
				cfg.ContainerID = f.ContainerID
			}
			if c.Flags().Changed("search-interval") {
				cfg.SearchInterval = f.SearchInterval
			}
			if c.Flags().Changed("format") {
				cfg.Format = f.Format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runScan(c, cfg, f, args[0])
		},
	}

	cmd.Flags().StringVarP(&f.BaseURL, "base-url", "b", "", "Public URL the site is served at (required)")
	cmd.Flags().StringVar(&f.ContainerID, "container", config.DefaultContainerID, "Id of the element that receives the fragment")
	cmd.Flags().BoolVar(&f.Inject, "inject", false, "Write fragments into the site's HTML files")
	cmd.Flags().StringVarP(&f.Format, "format", "f", config.FormatTerminal, "Output format when not injecting: terminal, html or markdown")
	cmd.Flags().IntVarP(&f.WordWrap, "word-wrap", "w", 80, "Word wrap width for terminal rendering")
	cmd.Flags().DurationVar(&f.SearchInterval, "search-interval", config.DefaultSearchInterval, "Minimum time between search requests")
	_ = cmd.MarkFlagRequired("base-url")

	return cmd
}

func runScan(c *cobra.Command, cfg *config.Config, f *scanFlags, root string) error {
	ctx := c.Context()
	logger := newLogger(cfg)

	files, err := page.WalkSite(root, f.BaseURL)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .html files found under %s", root)
	}

	pages := make([]page.Page, 0, len(files))
	for _, sf := range files {
		p, err := page.ReadFile(sf.Path, sf.URL)
		if err != nil {
			logger.Error("Skipping page", "path", sf.Path, "err", err)
			continue
		}
		pages = append(pages, p)
	}

	b, client := newBinder(cfg, logger)

	opts := binder.RunOptions{}
	if cfg.SearchInterval > 0 {
		opts.Limiter = rate.NewLimiter(rate.Every(cfg.SearchInterval), 1)
	}

	results, err := bindPages(ctx, cfg, b, pages, opts, logger)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	logQuota(logger, client)

	if !f.Inject {
		return output.Print(c.OutOrStdout(), results, cfg.Format, f.WordWrap)
	}

	injected := 0
	for _, r := range results {
		if r.Err != nil {
			logger.Error("Not injecting", "identity", r.Page.Identity, "err", r.Err)
			continue
		}
		if err := binder.InjectFile(r.Page.Path, cfg.ContainerID, r.Fragment.HTML); err != nil {
			logger.Error("Injection failed", "path", r.Page.Path, "err", err)
			continue
		}
		injected++
	}
	fmt.Fprintf(c.ErrOrStderr(), "Injected %d of %d pages\n", injected, len(results))
	return nil
}
