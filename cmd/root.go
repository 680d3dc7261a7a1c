package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"charm.land/log/v2"
	"github.com/spf13/cobra"

	"github.com/Gaurav-Gosain/commentlink/binder"
	"github.com/Gaurav-Gosain/commentlink/config"
	"github.com/Gaurav-Gosain/commentlink/issues"
	"github.com/Gaurav-Gosain/commentlink/output"
	"github.com/Gaurav-Gosain/commentlink/page"
	"github.com/Gaurav-Gosain/commentlink/tui"
)

// globalFlags are shared by every command and override the config file.
type globalFlags struct {
	ConfigPath string
	Owner      string
	Repo       string
	APIBase    string
	Token      string
	Timeout    time.Duration
	Verbose    bool
	NoProgress bool
}

type rootFlags struct {
	Format      string
	OutputDir   string
	WordWrap    int
	Parallelism int
}

func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "commentlink [page-urls...]",
		Short: "Find or offer to create the GitHub issue that holds a page's comments",
		Long: "Resolves the GitHub issue used as the comment thread for each page, keyed by the page path,\n" +
			"and prints the manual-commenting fragment: a link to the existing issue or a prefilled new one.",
		Example: `  # Resolve one page
  commentlink https://blog.example.com/posts/walrus.html

  # Print the HTML fragments for a list of pages
  cat urls.txt | commentlink --format html

  # Inject fragments into a built site
  commentlink scan ./output --base-url https://blog.example.com --inject`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c, g)
			if err != nil {
				return err
			}
			if c.Flags().Changed("format") {
				cfg.Format = f.Format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(c.Context(), c.InOrStdin(), c.OutOrStdout(), cfg, f, args)
		},
		// Allow positional args (URLs) even though fang adds subcommands.
		Args:             cobra.ArbitraryArgs,
		TraverseChildren: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.ConfigPath, "config", "c", "", "Config file (default: "+config.DefaultPath()+")")
	pf.StringVar(&g.Owner, "owner", "", "Repository owner (default: "+config.DefaultOwner+")")
	pf.StringVar(&g.Repo, "repo", "", "Repository name (default: "+config.DefaultRepo+")")
	pf.StringVar(&g.APIBase, "api-base", "", "GitHub API base URL (default: "+config.DefaultAPIBase+")")
	pf.StringVar(&g.Token, "token", "", "GitHub token for higher rate limits (default: $GITHUB_TOKEN)")
	pf.DurationVar(&g.Timeout, "timeout", 0, "HTTP timeout (default: "+config.DefaultTimeout.String()+")")
	pf.BoolVarP(&g.Verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&g.NoProgress, "no-progress", false, "Log progress instead of showing the progress display")

	cmd.Flags().StringVarP(&f.Format, "format", "f", config.FormatTerminal, "Output format: terminal, html or markdown")
	cmd.Flags().StringVarP(&f.OutputDir, "output-dir", "o", "", "Save .html fragments to directory")
	cmd.Flags().IntVarP(&f.WordWrap, "word-wrap", "w", 80, "Word wrap width for terminal rendering")
	cmd.Flags().IntVarP(&f.Parallelism, "parallelism", "p", 4, "Number of parallel page fetches")

	cmd.AddCommand(newScanCmd(g))
	cmd.AddCommand(newDraftCmd(g))

	return cmd
}

// loadConfig reads the config file and applies the global flags that
// were set explicitly.
func loadConfig(c *cobra.Command, g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}

	flags := c.Flags()
	if flags.Changed("owner") {
		cfg.Owner = g.Owner
	}
	if flags.Changed("repo") {
		cfg.Repo = g.Repo
	}
	if flags.Changed("api-base") {
		cfg.APIBase = g.APIBase
	}
	if flags.Changed("timeout") {
		cfg.Timeout = g.Timeout
	}
	cfg.Token = g.Token
	if cfg.Token == "" {
		cfg.Token = os.Getenv("GITHUB_TOKEN")
	}
	cfg.Verbose = g.Verbose
	cfg.NoProgress = g.NoProgress
	return cfg, nil
}

func newLogger(cfg *config.Config) *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.InfoLevel)
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newBinder wires the API client, resolver and binder for cfg.
func newBinder(cfg *config.Config, logger *log.Logger) (*binder.Binder, *issues.Client) {
	client := issues.NewClient(issues.Options{
		APIBase: cfg.APIBase,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	resolver := issues.NewResolver(client, issues.Repo{Owner: cfg.Owner, Name: cfg.Repo})
	return binder.New(resolver, cfg.TrackerHost), client
}

func run(ctx context.Context, in io.Reader, w io.Writer, cfg *config.Config, f *rootFlags, args []string) error {
	urls := collectURLs(args, in)
	if len(urls) == 0 {
		return fmt.Errorf("no page URLs provided; pass them as arguments or pipe via stdin")
	}

	logger := newLogger(cfg)
	b, client := newBinder(cfg, logger)

	collected, err := page.Collect(ctx, page.Options{
		URLs:        urls,
		Parallelism: f.Parallelism,
		Timeout:     cfg.Timeout,
		OnEvent: func(e page.Event) {
			switch e.Type {
			case "fetching":
				logger.Debug("Fetching page", "url", e.URL)
			case "error":
				logger.Error("Failed to fetch page", "url", e.URL, "err", e.Err)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("fetching pages failed: %w", err)
	}

	pages := make([]page.Page, 0, len(collected))
	for _, r := range collected {
		if r.Err == nil {
			pages = append(pages, r.Page)
		}
	}
	if len(pages) == 0 {
		return fmt.Errorf("none of the %d pages could be fetched", len(collected))
	}

	results, err := bindPages(ctx, cfg, b, pages, binder.RunOptions{}, logger)
	if err != nil {
		return fmt.Errorf("resolution failed: %w", err)
	}
	logQuota(logger, client)

	if f.OutputDir != "" {
		return output.WriteFiles(results, f.OutputDir)
	}
	return output.Print(w, results, cfg.Format, f.WordWrap)
}

func bindPages(ctx context.Context, cfg *config.Config, b *binder.Binder, pages []page.Page, opts binder.RunOptions, logger *log.Logger) ([]binder.Result, error) {
	if cfg.NoProgress {
		return tui.RunWithLogs(ctx, b, pages, opts, logger)
	}
	return tui.RunWithProgress(ctx, b, pages, opts, logger)
}

// logQuota reports the last observed search quota.
func logQuota(logger *log.Logger, client *issues.Client) {
	_, search := client.RateLimits().Snapshot()
	if search.Limit == math.MaxInt64 {
		return
	}
	logger.Debug("Search quota", "remaining", search.Remaining, "limit", search.Limit, "reset", search.ResetTime().Format(time.Kitchen))
}

// collectURLs returns args followed by one URL per line of in, unless
// in is an interactive terminal.
func collectURLs(args []string, in io.Reader) []string {
	urls := make([]string, 0, len(args))
	urls = append(urls, args...)

	if in == nil || tui.IsTerminal(in) {
		return urls
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			urls = append(urls, line)
		}
	}

	return urls
}
