package crawler

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// robotsBodyLimit caps how much of a robots.txt document is read.
const robotsBodyLimit = 1 << 20

// RobotsCache fetches, parses, and memoizes per-domain robots.txt rules and
// crawl delays. A policy is loaded at most once per domain per run; when the
// document cannot be retrieved or parsed the cached policy allows all paths
// with the default delay (fail-open).
type RobotsCache struct {
	client       *http.Client
	defaultDelay time.Duration
	maxDomains   int
	logger       *zap.Logger
	metrics      *Metrics

	group    singleflight.Group
	mu       sync.Mutex
	policies map[Domain]*robotsPolicy
	order    []Domain
}

type robotsPolicy struct {
	// data is nil for the fail-open default policy.
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// NewRobotsCache builds a cache holding at most maxDomains policies,
// evicting oldest-inserted-first beyond that.
func NewRobotsCache(timeout, defaultDelay time.Duration, maxDomains int, metrics *Metrics, logger *zap.Logger) *RobotsCache {
	if defaultDelay <= 0 {
		defaultDelay = time.Second
	}
	if maxDomains <= 0 {
		maxDomains = 256
	}
	return &RobotsCache{
		client:       &http.Client{Timeout: timeout},
		defaultDelay: defaultDelay,
		maxDomains:   maxDomains,
		logger:       logger,
		metrics:      metrics,
		policies:     make(map[Domain]*robotsPolicy),
	}
}

// Allowed reports whether userAgent may fetch rawURL under the domain's
// robots policy. The first caller for an uncached domain performs the load;
// concurrent callers share it.
func (c *RobotsCache) Allowed(rawURL, userAgent string) bool {
	domain, err := DomainOf(rawURL)
	if err != nil {
		return false
	}
	policy := c.policy(domain, userAgent)
	if policy.data == nil {
		return true
	}
	group := policy.data.FindGroup(userAgent)
	if group == nil {
		return true
	}
	return group.Test(pathOf(rawURL))
}

// CrawlDelay returns the crawl-delay for rawURL's domain, falling back to
// the wildcard agent group and then the configured default.
func (c *RobotsCache) CrawlDelay(rawURL, userAgent string) time.Duration {
	domain, err := DomainOf(rawURL)
	if err != nil {
		return c.defaultDelay
	}
	policy := c.policy(domain, userAgent)
	if policy.data == nil {
		return c.defaultDelay
	}
	if group := policy.data.FindGroup(userAgent); group != nil && group.CrawlDelay > 0 {
		return group.CrawlDelay
	}
	return c.defaultDelay
}

// policy returns the cached policy for domain, loading it single-flight on
// first reference.
func (c *RobotsCache) policy(domain Domain, userAgent string) *robotsPolicy {
	c.mu.Lock()
	if p, ok := c.policies[domain]; ok {
		c.mu.Unlock()
		return p
	}
	c.mu.Unlock()

	p, _, _ := c.group.Do(string(domain), func() (any, error) {
		policy := c.load(domain, userAgent)
		c.store(domain, policy)
		return policy, nil
	})
	return p.(*robotsPolicy)
}

func (c *RobotsCache) load(domain Domain, userAgent string) *robotsPolicy {
	policy := &robotsPolicy{fetchedAt: time.Now().UTC()}

	req, err := http.NewRequest(http.MethodGet, string(domain)+"/robots.txt", nil)
	if err != nil {
		c.degrade(domain, fmt.Errorf("new robots request: %w", err))
		return policy
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		c.degrade(domain, fmt.Errorf("fetch robots: %w", err))
		return policy
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsBodyLimit))
	if err != nil {
		c.degrade(domain, fmt.Errorf("read robots body: %w", err))
		return policy
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		c.degrade(domain, fmt.Errorf("parse robots: %w", err))
		return policy
	}
	policy.data = data
	return policy
}

// degrade logs a robots load failure; the caller caches the fail-open
// default so the domain is not re-fetched within the run.
func (c *RobotsCache) degrade(domain Domain, err error) {
	c.metrics.IncRobotsLoadError()
	c.logger.Warn("Robots load failed; allowing with default delay",
		zap.String("domain", string(domain)),
		zap.Error(newFetchError(KindRobotsLoad, string(domain), err)),
	)
}

func (c *RobotsCache) store(domain Domain, policy *robotsPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.policies[domain]; ok {
		return
	}
	c.policies[domain] = policy
	c.order = append(c.order, domain)
	for len(c.order) > c.maxDomains {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.policies, oldest)
		c.logger.Debug("Evicted robots policy", zap.String("domain", string(oldest)))
	}
}

// pathOf yields the path robots rules are tested against. The query is
// part of the match target, so query-only rules like "/*?druck=" work.
func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
