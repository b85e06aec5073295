package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daWurzl/PTC/internal/crawler"
)

// No browser may be launched when nothing routes to the rendered path;
// otherwise a host without Chrome could not run a static-only crawl.
func TestBuildRenderedFetcherSkipsWithoutRenderDomains(t *testing.T) {
	cfg := crawler.Config{
		RenderConcurrency: 2,
		RenderDomains:     nil,
	}
	rendered := buildRenderedFetcher(cfg, nil, zap.NewNop())
	require.Nil(t, rendered)
	require.NotPanics(t, func() { rendered.Close() })
}

func TestRenderedOrNil(t *testing.T) {
	require.Nil(t, renderedOrNil(nil))
	require.NotNil(t, renderedOrNil(&crawler.RenderedFetcher{}))
}
