package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrRendererDisabled indicates rendering has been disabled via configuration.
var ErrRendererDisabled = errors.New("renderer disabled")

// RenderedFetcher retrieves pages through headless Chrome. One browser
// process is shared across the run; each fetch opens its own tab context and
// closes it on every path. A semaphore smaller than the main worker pool
// bounds concurrent renders, since each render costs far more than a static
// fetch.
type RenderedFetcher struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	metrics         *Metrics
	sem             chan struct{}
	timeout         time.Duration
	waitSelector    string
}

// NewRenderedFetcher starts the shared browser. The engine owns the
// returned fetcher and must call Close during teardown.
func NewRenderedFetcher(cfg Config, metrics *Metrics, logger *zap.Logger) (*RenderedFetcher, error) {
	if cfg.RenderConcurrency <= 0 {
		return nil, ErrRendererDisabled
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	waitSelector := cfg.RenderWaitSelector
	if waitSelector == "" {
		waitSelector = "body"
	}
	return &RenderedFetcher{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		metrics:         metrics,
		sem:             make(chan struct{}, cfg.RenderConcurrency),
		timeout:         cfg.RequestTimeout,
		waitSelector:    waitSelector,
	}, nil
}

// Close tears down the shared browser and its allocator.
func (f *RenderedFetcher) Close() {
	if f == nil {
		return
	}
	f.browserCancel()
	f.allocatorCancel()
}

// Fetch navigates to rawURL in a fresh tab, waits for the page to settle,
// and captures the rendered document. proxyURL is unused; the shared
// browser keeps one network identity per run.
func (f *RenderedFetcher) Fetch(ctx context.Context, rawURL, userAgent, _ string) (Page, error) {
	if f == nil {
		return Page{}, newFetchError(KindRender, rawURL, ErrRendererDisabled)
	}

	release, err := f.acquireSlot(ctx)
	if err != nil {
		return Page{}, err
	}
	defer release()

	start := time.Now()
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	f.recordResponse(tabCtx, meta)

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady(f.waitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return Page{}, newFetchError(KindRender, rawURL, fmt.Errorf("chromedp run: %w", err))
	}

	if kind := classifyStatus(meta.statusCode); kind != "" {
		return Page{}, newFetchError(kind, rawURL, fmt.Errorf("rendered status %d", meta.statusCode))
	}

	f.metrics.IncRenders()
	return Page{
		URL:        rawURL,
		FinalURL:   meta.finalURL(rawURL),
		StatusCode: meta.statusCode,
		Headers:    meta.headers,
		Body:       []byte(html),
		Rendered:   true,
		Duration:   time.Since(start),
	}, nil
}

func (f *RenderedFetcher) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case f.sem <- struct{}{}:
		return func() { <-f.sem }, nil
	case <-ctx.Done():
		return nil, newFetchError(KindRender, "", fmt.Errorf("acquire render slot: %w", ctx.Err()))
	}
}

type responseMeta struct {
	once       sync.Once
	statusCode int
	headers    http.Header
	url        string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{
		headers: make(http.Header),
	}
}

func (m *responseMeta) finalURL(raw string) string {
	if m.url == "" {
		return raw
	}
	return m.url
}

func (f *RenderedFetcher) recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.once.Do(func() {
			meta.statusCode = int(resp.Response.Status)
			meta.url = resp.Response.URL
			for k, v := range resp.Response.Headers {
				meta.headers.Add(k, fmt.Sprint(v))
			}
		})
	})
}

// forwardCancel propagates cancellation of the caller's context into the
// chromedp task context, which is not derived from it.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
