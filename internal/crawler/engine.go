package crawler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine drives the per-URL pipelines under a bounded worker pool and
// collects matched records as pipelines complete. It owns the run's result
// list and error counter; nothing in the pipeline mutates shared state
// outside the engine's boundary.
type Engine struct {
	cfg        Config
	robots     *RobotsCache
	limiter    *DomainLimiter
	dispatcher *StrategyDispatcher
	executor   *FetchExecutor
	matcher    Matcher
	identity   Identity
	metrics    *Metrics
	logger     *zap.Logger

	mu      sync.Mutex
	results []MatchRecord
	errs    int
	blocked int
}

// NewEngine wires the orchestrator from its components.
func NewEngine(
	cfg Config,
	robots *RobotsCache,
	limiter *DomainLimiter,
	dispatcher *StrategyDispatcher,
	executor *FetchExecutor,
	matcher Matcher,
	identity Identity,
	metrics *Metrics,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:        cfg,
		robots:     robots,
		limiter:    limiter,
		dispatcher: dispatcher,
		executor:   executor,
		matcher:    matcher,
		identity:   identity,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run submits every seed at once, executes at most Concurrency pipelines
// simultaneously, and returns the matched records in completion order. A
// URL that fails terminally yields no record and never aborts the run; the
// only error returned is the context's.
func (e *Engine) Run(ctx context.Context) ([]MatchRecord, error) {
	runID := uuid.NewString()
	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("Crawl started",
		zap.Int("seeds", len(e.cfg.Seeds)),
		zap.Int("concurrency", e.cfg.Concurrency),
	)

	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, seed := range e.cfg.Seeds {
		wg.Add(1)
		go func(seed string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			e.crawlOne(ctx, seed, logger)
		}(seed)
	}
	wg.Wait()

	e.mu.Lock()
	results := make([]MatchRecord, len(e.results))
	copy(results, e.results)
	errs, blocked := e.errs, e.blocked
	e.mu.Unlock()

	logger.Info("Crawl finished",
		zap.Int("matches", len(results)),
		zap.Int("errors", errs),
		zap.Int("blocked", blocked),
	)
	return results, ctx.Err()
}

// crawlOne runs a single URL's pipeline: robots check, crawl delay, fetch,
// match, record. Steps are strictly sequential; the outcome only touches
// engine state through the serialized record/count helpers.
func (e *Engine) crawlOne(ctx context.Context, rawURL string, logger *zap.Logger) {
	userAgent := e.identity.UserAgent()

	domain, err := DomainOf(rawURL)
	if err != nil {
		logger.Warn("Skipping malformed seed", zap.String("url", rawURL), zap.Error(err))
		e.countError()
		return
	}

	if !e.robots.Allowed(rawURL, userAgent) {
		e.metrics.IncRobotsBlocked()
		e.countBlocked()
		logger.Info("Blocked by robots policy", zap.String("url", rawURL))
		return
	}

	delay := e.robots.CrawlDelay(rawURL, userAgent)
	if err := e.limiter.Wait(ctx, domain, delay); err != nil {
		e.countError()
		return
	}

	task := FetchTask{
		URL:      rawURL,
		Strategy: e.dispatcher.Choose(rawURL),
	}
	page, err := e.executor.Fetch(ctx, task)
	if err != nil {
		e.countError()
		logger.Warn("Fetch failed terminally",
			zap.String("url", rawURL),
			zap.String("strategy", string(task.Strategy)),
			zap.Error(err),
		)
		return
	}

	matched, title := e.matcher.Match(page.Body)
	if !matched {
		logger.Debug("No criteria match", zap.String("url", rawURL))
		return
	}
	e.metrics.IncMatches()
	e.record(MatchRecord{Title: title, URL: rawURL})
	logger.Info("Criteria match",
		zap.String("title", title),
		zap.String("url", rawURL),
		zap.Bool("rendered", page.Rendered),
	)
}

func (e *Engine) record(rec MatchRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = append(e.results, rec)
}

func (e *Engine) countError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs++
}

func (e *Engine) countBlocked() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blocked++
}

// ErrorCount reports how many URLs have failed terminally so far.
func (e *Engine) ErrorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errs
}
