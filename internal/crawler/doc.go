// Package crawler implements the polite crawl pipeline: robots policy
// caching, per-domain rate limiting, static and rendered fetch paths with
// retry, and the bounded-concurrency engine that drives them.
package crawler
