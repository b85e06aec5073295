package crawler

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob that influences a crawl run. Values originate
// from Viper so runs can be configured via file, env vars, or flags, but the
// struct itself is decoupled from Viper for testability.
type Config struct {
	Seeds              []string
	Criteria           []string
	UserAgents         []string
	Proxies            []string
	Concurrency        int
	RenderConcurrency  int
	RequestTimeout     time.Duration
	RobotsTimeout      time.Duration
	RobotsMaxDomains   int
	DefaultCrawlDelay  time.Duration
	MaxAttempts        int
	BackoffBase        time.Duration
	BackoffCap         time.Duration
	RetryAfterDefault  time.Duration
	RenderDomains      []string
	RenderWaitSelector string
	OutputPath         string
	OutputFormat       string
	OutputLocale       string
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Seeds:              v.GetStringSlice("crawler.seeds"),
		Criteria:           dedupeStrings(v.GetStringSlice("crawler.criteria")),
		UserAgents:         v.GetStringSlice("crawler.user_agents"),
		Proxies:            v.GetStringSlice("crawler.proxies"),
		Concurrency:        v.GetInt("crawler.concurrency"),
		RenderConcurrency:  v.GetInt("render.concurrency"),
		RequestTimeout:     v.GetDuration("crawler.request_timeout"),
		RobotsTimeout:      v.GetDuration("robots.timeout"),
		RobotsMaxDomains:   v.GetInt("robots.max_domains"),
		DefaultCrawlDelay:  v.GetDuration("robots.default_delay"),
		MaxAttempts:        v.GetInt("crawler.max_attempts"),
		BackoffBase:        v.GetDuration("crawler.backoff_base"),
		BackoffCap:         v.GetDuration("crawler.backoff_cap"),
		RetryAfterDefault:  v.GetDuration("crawler.retry_after_default"),
		RenderDomains:      v.GetStringSlice("render.domains"),
		RenderWaitSelector: v.GetString("render.wait_selector"),
		OutputPath:         v.GetString("output.path"),
		OutputFormat:       v.GetString("output.format"),
		OutputLocale:       v.GetString("output.locale"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if len(c.Seeds) == 0 {
		return fmt.Errorf("crawler.seeds must include at least one URL")
	}
	if len(c.Criteria) == 0 {
		return fmt.Errorf("crawler.criteria must include at least one term")
	}
	if len(c.UserAgents) == 0 {
		return fmt.Errorf("crawler.user_agents must include at least one agent")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.RenderConcurrency < 0 {
		return fmt.Errorf("render.concurrency must be >= 0")
	}
	if c.RenderConcurrency > c.Concurrency {
		return fmt.Errorf("render.concurrency must not exceed crawler.concurrency")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.RobotsTimeout <= 0 {
		return fmt.Errorf("robots.timeout must be > 0")
	}
	if c.RobotsMaxDomains <= 0 {
		return fmt.Errorf("robots.max_domains must be > 0")
	}
	if c.DefaultCrawlDelay < 0 {
		return fmt.Errorf("robots.default_delay must be >= 0")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("crawler.max_attempts must be > 0")
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("crawler.backoff_base must be > 0")
	}
	if c.BackoffCap < c.BackoffBase {
		return fmt.Errorf("crawler.backoff_cap must be >= crawler.backoff_base")
	}
	switch c.OutputFormat {
	case "", "csv", "json":
	default:
		return fmt.Errorf("output.format must be csv or json, got %q", c.OutputFormat)
	}
	return nil
}

func dedupeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{})
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
