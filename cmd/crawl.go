package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/daWurzl/PTC/internal/crawler"
	"github.com/daWurzl/PTC/internal/extract"
	"github.com/daWurzl/PTC/internal/logging"
	"github.com/daWurzl/PTC/internal/proxy"
	"github.com/daWurzl/PTC/internal/writer"
)

// newCrawlCmd creates and configures the 'crawl' subcommand, which runs one
// full crawl over the configured seeds and persists the matches.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the configured seed pages once",
		Long: `Fetches every configured seed page, subject to robots.txt policy and
per-domain crawl delays, and writes all criteria matches to the configured
output file.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New(logging.Options{
		Development: viper.GetBool("log.development"),
		FilePath:    viper.GetString("log.file"),
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := crawler.LoadConfig(activeViper())
	if err != nil {
		return fmt.Errorf("load crawler config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := runCrawl(ctx, cfg, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawler: %w", err)
	}

	if werr := writeResults(cfg, results); werr != nil {
		return werr
	}
	logger.Info("Results written",
		zap.String("path", cfg.OutputPath),
		zap.Int("records", len(results)),
	)
	return nil
}

func runCrawl(ctx context.Context, cfg crawler.Config, logger *zap.Logger) ([]crawler.MatchRecord, error) {
	metrics := crawler.NewMetrics(prometheus.NewRegistry())
	identity := proxy.NewManager(cfg.UserAgents, cfg.Proxies, time.Now().UnixNano())

	matcher, err := extract.NewCriteriaMatcher(cfg.Criteria)
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}

	static, err := crawler.NewStaticFetcher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init static fetcher: %w", err)
	}

	rendered := buildRenderedFetcher(cfg, metrics, logger)
	defer rendered.Close()

	executor := crawler.NewFetchExecutor(
		static,
		renderedOrNil(rendered),
		crawler.NewBackoffPolicy(cfg.MaxAttempts, cfg.BackoffBase, cfg.BackoffCap),
		identity,
		cfg.RetryAfterDefault,
		metrics,
		logger,
	)
	robots := crawler.NewRobotsCache(cfg.RobotsTimeout, cfg.DefaultCrawlDelay, cfg.RobotsMaxDomains, metrics, logger)

	engine := crawler.NewEngine(
		cfg,
		robots,
		crawler.NewDomainLimiter(),
		crawler.NewStrategyDispatcher(cfg.RenderDomains),
		executor,
		matcher,
		identity,
		metrics,
		logger,
	)
	return engine.Run(ctx)
}

// buildRenderedFetcher starts the headless browser only when some domain is
// actually routed to it. A browser that is disabled or fails to start
// degrades to the static path; it never aborts the run.
func buildRenderedFetcher(cfg crawler.Config, metrics *crawler.Metrics, logger *zap.Logger) *crawler.RenderedFetcher {
	if len(cfg.RenderDomains) == 0 {
		return nil
	}
	rendered, err := crawler.NewRenderedFetcher(cfg, metrics, logger)
	switch {
	case err == nil:
		return rendered
	case errors.Is(err, crawler.ErrRendererDisabled):
		logger.Warn("Renderer disabled; render-listed domains will use the static path")
	default:
		logger.Warn("Headless browser unavailable; render-listed domains will use the static path",
			zap.Error(err))
	}
	return nil
}

// renderedOrNil keeps the executor's Fetcher interface nil when the
// renderer is absent; a typed nil would defeat the fallback check.
func renderedOrNil(rendered *crawler.RenderedFetcher) crawler.Fetcher {
	if rendered == nil {
		return nil
	}
	return rendered
}

func writeResults(cfg crawler.Config, results []crawler.MatchRecord) error {
	switch cfg.OutputFormat {
	case "json":
		if err := writer.WriteJSON(cfg.OutputPath, results); err != nil {
			return fmt.Errorf("write json results: %w", err)
		}
	default:
		if err := writer.WriteCSV(cfg.OutputPath, results, writer.Locale(cfg.OutputLocale)); err != nil {
			return fmt.Errorf("write csv results: %w", err)
		}
	}
	return nil
}
