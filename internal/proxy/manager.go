// Package proxy rotates user agents and optional outbound proxies across
// fetch attempts.
package proxy

import (
	"math/rand"
	"sync"
)

// Manager hands out a uniformly random user agent per request and rotates
// proxies sequentially. Safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	userAgents []string
	proxies    []string
	proxyIndex int
	rng        *rand.Rand
}

// NewManager builds a manager. userAgents must be non-empty; proxies may be
// empty, in which case Proxy always returns "".
func NewManager(userAgents, proxies []string, seed int64) *Manager {
	return &Manager{
		userAgents: userAgents,
		proxies:    proxies,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// UserAgent returns a random agent from the pool.
func (m *Manager) UserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.userAgents) == 0 {
		return ""
	}
	return m.userAgents[m.rng.Intn(len(m.userAgents))]
}

// Proxy returns the next proxy URL in rotation, or "" when none are
// configured.
func (m *Manager) Proxy() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.proxies) == 0 {
		return ""
	}
	p := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return p
}
