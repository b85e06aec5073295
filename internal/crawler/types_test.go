package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDomainOf(t *testing.T) {
	tests := []struct {
		raw     string
		want    Domain
		wantErr bool
	}{
		{"https://www.example.de/path?q=1", "https://www.example.de", false},
		{"HTTPS://WWW.Example.DE/", "https://www.example.de", false},
		{"http://host:8080/x", "http://host:8080", false},
		{"example.de/no-scheme", "", true},
		{"::", "", true},
	}
	for _, tt := range tests {
		domain, err := DomainOf(tt.raw)
		if tt.wantErr {
			require.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		require.Equal(t, tt.want, domain)
	}
}

func TestDomainHost(t *testing.T) {
	require.Equal(t, "www.example.de", Domain("https://www.example.de").Host())
	require.Equal(t, "host", Domain("http://host:8080").Host())
	require.Equal(t, "::1", Domain("http://[::1]:8080").Host())
}
