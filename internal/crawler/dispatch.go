package crawler

import (
	"strings"
)

// StrategyDispatcher decides per URL whether the static or the rendered
// fetch path is used. Pure and total: unparseable URLs fall back to the
// static path, where the fetch itself will surface the real error.
type StrategyDispatcher struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewStrategyDispatcher builds a dispatcher from configured host patterns.
// A pattern is either an exact host ("portal.example.de") or a suffix
// wildcard ("*.example.de" or ".example.de").
func NewStrategyDispatcher(patterns []string) *StrategyDispatcher {
	d := &StrategyDispatcher{
		exact: make(map[string]struct{}),
	}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(value, "*."):
			d.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			d.addSuffix(strings.TrimPrefix(value, "."))
		default:
			d.exact[value] = struct{}{}
		}
	}
	return d
}

func (d *StrategyDispatcher) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range d.suffixes {
		if existing == suffix {
			return
		}
	}
	d.suffixes = append(d.suffixes, suffix)
}

// Choose returns the fetch strategy for rawURL.
func (d *StrategyDispatcher) Choose(rawURL string) Strategy {
	domain, err := DomainOf(rawURL)
	if err != nil {
		return StrategyStatic
	}
	host := domain.Host()
	if _, ok := d.exact[host]; ok {
		return StrategyRendered
	}
	for _, suffix := range d.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return StrategyRendered
		}
	}
	return StrategyStatic
}
