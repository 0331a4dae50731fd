package pools

import (
	"net/http"

	"github.com/hxuan190/quote-engine/internal/config"
)

// NewFromConfig assembles the cached remote-then-local fetcher.
func NewFromConfig(endpoints *config.EndpointsConfig, quoting *config.QuotingConfig, httpClient *http.Client) *Cached {
	local := NewLocal()
	for protocol, byChain := range endpoints.SubgraphURLs {
		for chainID, url := range byChain {
			local.Register(NewSubgraph(protocol, chainID, url, httpClient))
		}
	}
	var remote Fetcher
	if endpoints.PoolAPIURL != "" {
		remote = NewRemote(endpoints.PoolAPIURL, httpClient)
	}
	return NewCached(NewFallback(remote, local, quoting.PoolFallbackTimeout), quoting.TTLFor)
}
