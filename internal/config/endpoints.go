package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/andrew-solarstorm/go-packages/common"

	"github.com/hxuan190/quote-engine/internal/domain"
)

type EndpointsConfig struct {
	PoolAPIURL    string
	RoutingAPIURL string
	XAPIURL       string
	BridgeAPIURL  string
	CMSConfigURL  string
	// SubgraphURLs is keyed by protocol then chain; read from
	// SUBGRAPH_URL_<PROTOCOL>_<chainId>.
	SubgraphURLs map[domain.Protocol]map[domain.ChainID]string
}

func (c *EndpointsConfig) Key() string {
	return ENDPOINTS_CONFIG_KEY
}

func (c *EndpointsConfig) Load() error {
	c.PoolAPIURL = common.GetEnvOrDefault("POOL_API_URL", "https://pools.example-dex.io")
	c.RoutingAPIURL = common.GetEnvOrDefault("ROUTING_API_URL", "https://routing.example-dex.io")
	c.XAPIURL = common.GetEnvOrDefault("X_API_URL", "https://x.example-dex.io/quote")
	c.BridgeAPIURL = common.GetEnvOrDefault("BRIDGE_API_URL", "https://bridge.example-dex.io")
	c.CMSConfigURL = common.GetEnvOrDefault("CMS_CONFIG_URL", "https://cms.example-dex.io")
	c.SubgraphURLs = parseSubgraphURLs(os.Environ())
	return c.Validate()
}

func (c *EndpointsConfig) Validate() error {
	if c.PoolAPIURL == "" || c.BridgeAPIURL == "" {
		return errors.New("invalid endpoints config")
	}
	return nil
}

func parseSubgraphURLs(environ []string) map[domain.Protocol]map[domain.ChainID]string {
	out := make(map[domain.Protocol]map[domain.ChainID]string)
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || val == "" || !strings.HasPrefix(key, "SUBGRAPH_URL_") {
			continue
		}
		rest := strings.TrimPrefix(key, "SUBGRAPH_URL_")
		idx := strings.LastIndex(rest, "_")
		if idx <= 0 {
			continue
		}
		var chainID uint64
		if _, err := fmt.Sscanf(rest[idx+1:], "%d", &chainID); err != nil {
			continue
		}
		proto := domain.Protocol(rest[:idx])
		if out[proto] == nil {
			out[proto] = make(map[domain.ChainID]string)
		}
		out[proto][domain.ChainID(chainID)] = val
	}
	return out
}
