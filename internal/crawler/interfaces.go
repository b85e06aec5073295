package crawler

import "context"

// Fetcher retrieves one page through a single attempt; retry lives in the
// executor, not in implementations.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, userAgent, proxyURL string) (Page, error)
}

// Identity supplies the user agent and optional proxy used for a fetch
// attempt.
type Identity interface {
	UserAgent() string
	Proxy() string
}

// Matcher evaluates fetched page text against the criteria set. Pure: no
// I/O, no shared state.
type Matcher interface {
	Match(html []byte) (matched bool, title string)
}
