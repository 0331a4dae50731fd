package strategy

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

const routingConfigPath = "/cms-config/tokens-routing-config.json"

// Route is one configured strategy with its tier.
type Route struct {
	Key      Key            `json:"key"`
	Priority int            `json:"priority"`
	IsShadow bool           `json:"isShadow,omitempty"`
	Override map[string]any `json:"overrides,omitempty"`
}

// RoutingConfig holds per-token strategy overrides keyed by chain then token
// address (lowercase on EVM chains).
type RoutingConfig map[domain.ChainID]map[string][]Route

// TokenKey normalizes a currency to its RoutingConfig key. Natives use their
// wrapped token.
func TokenKey(c domain.Currency) string {
	w := common.Wrapped(c)
	if w.ChainID.IsSolana() {
		return w.Address
	}
	return strings.ToLower(w.Address)
}

// Lookup returns the routes configured for either side of the pair, input
// first.
func (rc RoutingConfig) Lookup(input, output domain.Currency) ([]Route, bool) {
	byToken, ok := rc[input.ChainID]
	if !ok {
		return nil, false
	}
	if routes, ok := byToken[TokenKey(input)]; ok && len(routes) > 0 {
		return routes, true
	}
	if routes, ok := byToken[TokenKey(output)]; ok && len(routes) > 0 {
		return routes, true
	}
	return nil, false
}

// ParseRoutingConfig decodes the CMS document. Non-numeric chain keys are
// skipped.
func ParseRoutingConfig(data []byte) (RoutingConfig, error) {
	var raw map[string]map[string][]Route
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(RoutingConfig, len(raw))
	for chainKey, tokens := range raw {
		id, err := strconv.ParseUint(chainKey, 10, 64)
		if err != nil {
			continue
		}
		chainID := domain.ChainID(id)
		byToken := make(map[string][]Route, len(tokens))
		for addr, routes := range tokens {
			if !chainID.IsSolana() {
				addr = strings.ToLower(addr)
			}
			byToken[addr] = routes
		}
		out[chainID] = byToken
	}
	return out, nil
}

// SnapshotStore keeps the last routing config fetched successfully.
type SnapshotStore interface {
	SaveRoutingConfig(cfg RoutingConfig) error
	LoadRoutingConfig() (RoutingConfig, error)
}

// ConfigLoader fetches the routing config once and caches it. A failed fetch
// falls back to the stored snapshot, then to an empty config; it never fails.
type ConfigLoader struct {
	url        string
	httpClient *http.Client
	store      SnapshotStore

	mu     sync.RWMutex
	loaded bool
	cfg    RoutingConfig
	group  singleflight.Group
}

// NewConfigLoader reads from baseURL; an empty baseURL disables fetching.
func NewConfigLoader(baseURL string, httpClient *http.Client, store SnapshotStore) *ConfigLoader {
	l := &ConfigLoader{httpClient: httpClient, store: store}
	if baseURL != "" {
		l.url = strings.TrimRight(baseURL, "/") + routingConfigPath
	}
	return l
}

// NewStaticConfigLoader serves cfg without fetching.
func NewStaticConfigLoader(cfg RoutingConfig) *ConfigLoader {
	return &ConfigLoader{loaded: true, cfg: cfg}
}

func (l *ConfigLoader) Load(ctx context.Context) RoutingConfig {
	l.mu.RLock()
	if l.loaded {
		cfg := l.cfg
		l.mu.RUnlock()
		return cfg
	}
	l.mu.RUnlock()

	v, _, _ := l.group.Do("load", func() (any, error) {
		cfg := l.fetch(context.WithoutCancel(ctx))
		l.mu.Lock()
		l.cfg, l.loaded = cfg, true
		l.mu.Unlock()
		return cfg, nil
	})
	return v.(RoutingConfig)
}

// Invalidate forces the next Load to fetch again.
func (l *ConfigLoader) Invalidate() {
	l.mu.Lock()
	if l.url != "" {
		l.loaded = false
	}
	l.mu.Unlock()
}

func (l *ConfigLoader) fetch(ctx context.Context) RoutingConfig {
	if l.url == "" {
		return l.fallback()
	}
	data, err := common.DoRaw(ctx, l.httpClient, http.MethodGet, l.url, nil)
	if err != nil {
		log.Warn().Err(err).Str("url", l.url).Msg("[strategy] routing config fetch failed")
		return l.fallback()
	}
	cfg, err := ParseRoutingConfig(data)
	if err != nil {
		log.Warn().Err(err).Msg("[strategy] routing config malformed")
		return l.fallback()
	}
	if l.store != nil {
		if err := l.store.SaveRoutingConfig(cfg); err != nil {
			log.Warn().Err(err).Msg("[strategy] failed to persist routing config snapshot")
		}
	}
	log.Info().Int("chains", len(cfg)).Msg("[strategy] routing config loaded")
	return cfg
}

func (l *ConfigLoader) fallback() RoutingConfig {
	if l.store != nil {
		cfg, err := l.store.LoadRoutingConfig()
		if err == nil && cfg != nil {
			log.Info().Int("chains", len(cfg)).Msg("[strategy] using routing config snapshot")
			return cfg
		}
	}
	return RoutingConfig{}
}
