package proxy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManagerUserAgentFromPool(t *testing.T) {
	agents := []string{"agent-a", "agent-b", "agent-c"}
	m := NewManager(agents, nil, 42)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		ua := m.UserAgent()
		require.Contains(t, agents, ua)
		seen[ua] = struct{}{}
	}
	require.Greater(t, len(seen), 1, "selection should vary across calls")
}

func TestManagerProxyRotation(t *testing.T) {
	proxies := []string{"http://p1:8000", "http://p2:8000"}
	m := NewManager([]string{"agent"}, proxies, 1)

	require.Equal(t, "http://p1:8000", m.Proxy())
	require.Equal(t, "http://p2:8000", m.Proxy())
	require.Equal(t, "http://p1:8000", m.Proxy())
}

func TestManagerNoProxies(t *testing.T) {
	m := NewManager([]string{"agent"}, nil, 1)
	require.Empty(t, m.Proxy())
}

func TestManagerEmptyAgents(t *testing.T) {
	m := NewManager(nil, nil, 1)
	require.Empty(t, m.UserAgent())
}
