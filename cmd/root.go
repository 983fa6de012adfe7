package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaeles-project/sitesearch/core"
	"github.com/jaeles-project/sitesearch/internal/config"
	"github.com/jaeles-project/sitesearch/internal/logging"
	"github.com/spf13/cobra"
)

const verboseHelp = `Verbose mode. Controls the output on stderr
	0 - print output only in case of errors
	1 - print matches, the result count and the list of failed URLs (if any)
	2 - print every checked sitemap and URL`

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   core.CLIName + " [flags] <sitemap_url> <search_str>",
		Short: "Search for text in a website",
		Long: fmt.Sprintf("Search for text in a website, using the site's XML sitemap to find URLs - %s\n"+
			"Writes CSV compatible lines (<url>,<count>) to the standard output.", core.VERSION),
		Args: cobra.MaximumNArgs(2),
		RunE: runRoot,
	}
	registerGlobalFlags(cmd)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, runtime, err := config.NewLoader(cmd).Load(args)
	if err != nil {
		return err
	}
	if runtime.ShowVersion {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", core.VERSION)
		fmt.Fprintln(cmd.OutOrStdout(), renderExamples())
		return nil
	}

	logging.Configure(core.Logger, logging.Options{Verbosity: cfg.Verbosity, Output: cmd.ErrOrStderr()})

	out := core.NewOutput(cmd.OutOrStdout(), runtime.JSONOutput)
	if runtime.OutputFile != "" {
		if out, err = core.NewOutputPath(cmd.OutOrStdout(), runtime.OutputFile, runtime.JSONOutput); err != nil {
			return err
		}
	}
	defer out.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	stats := core.NewSearchStats()
	startTime := time.Now()
	go watch(ctx, cancel, sigChan, stats, startTime, runtime.StatsEvery)

	searcher := core.NewSearcher(core.Options{
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		Logger:      core.Logger,
		Stats:       stats,
		Unique:      cfg.Unique,
		Session: core.SessionConfig{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
			Proxy:     cfg.Proxy,
			Cookie:    cfg.Cookie,
			Headers:   cfg.Headers,
			TextOnly:  cfg.TextOnly,
		},
	})

	results := searcher.Search(ctx, cfg.SitemapURL, cfg.SearchString)
	found := 0
	for results.Next() {
		out.Write(results.Result())
		found++
	}
	err = results.Err()
	cancel()

	summarize(stats, found, time.Since(startTime).Round(time.Millisecond))

	if errors.Is(err, context.Canceled) {
		core.Logger.Warn("Search interrupted")
		return nil
	}
	return err
}

// watch cancels the search on SIGINT/SIGTERM and logs progress every interval.
func watch(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal, stats *core.SearchStats, startTime time.Time, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case sig := <-sigChan:
			// A second interrupt falls through to the default handler.
			signal.Stop(sigChan)
			core.Logger.Warnf("Received signal %s, shutting down (repeat to force quit)...", sig)
			cancel()
			return
		case <-ctx.Done():
			return
		case <-tick:
			elapsed := time.Since(startTime).Round(time.Second)
			core.Logger.Infof("Stats [%s]: Sitemaps: %d, Pages: %d, Matches: %d, Errors: %d, RPS: %.2f",
				elapsed, stats.GetSitemaps(), stats.GetPagesSearched(), stats.GetMatches(), stats.GetErrors(), stats.GetRPS(elapsed))
		}
	}
}

func summarize(stats *core.SearchStats, found int, elapsed time.Duration) {
	core.Logger.Infof("Search finished in %s", elapsed)
	core.Logger.Infof("Found the search string in %d page(s)", found)
	core.Logger.Infof("Final Stats: Sitemaps: %d, Pages searched: %d, Errors: %d, Average RPS: %.2f",
		stats.GetSitemaps(), stats.GetPagesSearched(), stats.GetErrors(), stats.GetRPS(elapsed))

	failed := stats.FailedURLs()
	if len(failed) == 0 {
		return
	}
	core.Logger.Infof("Failed URLs (%d):", len(failed))
	for _, u := range failed {
		core.Logger.Infof("  %s", u)
	}
}

func registerGlobalFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntP("verbose", "v", 0, verboseHelp)
	flags.IntP("concurrency", "c", core.DefaultConcurrency, "How many concurrent connections to make to the server")
	flags.IntP("timeout", "m", core.DefaultTimeout, "Request timeout (second)")
	flags.StringP("user-agent", "u", "web", "User Agent to use\n\tweb: random web user-agent\n\tmobi: random mobile user-agent\n\tor you can set your special user-agent")
	flags.StringP("proxy", "p", "", "Proxy for sitemap and page requests (Ex: http://127.0.0.1:8080)")
	flags.StringP("cookie", "", "", "Cookie to use (testA=a; testB=b)")
	flags.StringArrayP("header", "H", []string{}, "Header to use (Use multiple flag to set multiple header)")
	flags.Bool("text-only", false, "Count matches in the visible text of HTML pages only")
	flags.Bool("unique", false, "Search each page URL only once, even if several sitemaps list it")

	flags.StringP("output", "o", "", "Also append results to this file")
	flags.Bool("json", false, "Enable JSON output")
	flags.Int("stats-interval", 10, "Log progress every N seconds at verbose level 1 (0 disables)")
	flags.Bool("version", false, "Check version")

	flags.SortFlags = false
}

func renderExamples() string {
	h := "\nExamples Command:\n"
	h += `sitesearch "https://target.com/sitemap.xml" "Copyright 2019"` + "\n"
	h += `sitesearch -c 10 -v 1 "https://target.com/sitemap_index.xml" "beta"` + "\n"
	h += `sitesearch --json -o results.txt ./sitemap.xml.gz "price"` + "\n"
	return h
}
