package engine

import (
	"context"
	"fmt"
	"time"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/quote-engine/internal/adapters/persistence"
	"github.com/hxuan190/quote-engine/internal/bridge"
	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/config"
	"github.com/hxuan190/quote-engine/internal/crosschain"
	"github.com/hxuan190/quote-engine/internal/events"
	"github.com/hxuan190/quote-engine/internal/pools"
	"github.com/hxuan190/quote-engine/internal/selector"
	"github.com/hxuan190/quote-engine/internal/services"
	"github.com/hxuan190/quote-engine/internal/strategy"
	"github.com/hxuan190/quote-engine/internal/worker"
	"github.com/hxuan190/quote-engine/internal/xapi"
)

const ENGINE_SERVICE = "engine-service"

const warmupTimeout = 10 * time.Second

type Service struct {
	container.BaseDIInstance
	logger *services.ServiceLogger

	engine    *Engine
	pools     *pools.Cached
	loader    *strategy.ConfigLoader
	store     *persistence.Storage
	bridge    *bridge.Client
	tracker   *bridge.Tracker
	publisher events.Publisher
	unbacked  []string
}

func (svc *Service) ID() string {
	return ENGINE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	quoting := c.GetConfig(config.QUOTING_CONFIG_KEY).(*config.QuotingConfig)
	endpoints := c.GetConfig(config.ENDPOINTS_CONFIG_KEY).(*config.EndpointsConfig)
	persist := c.GetConfig(config.PERSISTENCE_CONFIG_KEY).(*config.PersistenceConfig)
	eventsCfg := c.GetConfig(config.EVENTS_CONFIG_KEY).(*config.EventsConfig)

	httpClient := common.NewHTTPClient(quoting.CrossChainTimeout)
	svc.pools = pools.NewFromConfig(endpoints, quoting, httpClient)

	var snapshots strategy.SnapshotStore
	if persist.Enabled {
		store, err := persistence.NewStorage(persist.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open routing config storage: %w", err)
		}
		svc.store = store
		snapshots = store
	}
	svc.loader = strategy.NewConfigLoader(endpoints.CMSConfigURL, httpClient, snapshots)

	svc.unbacked = unbackedStrategies(endpoints)
	local := worker.NewLocal(nil)
	var offchain strategy.OffchainTradeFinder
	if endpoints.RoutingAPIURL != "" {
		offchain = worker.NewOffchain(endpoints.RoutingAPIURL, httpClient)
	}
	var x strategy.XQuoter
	if endpoints.XAPIURL != "" {
		x = xapi.NewClient(endpoints.XAPIURL, httpClient)
	}
	registry := strategy.NewRegistry(
		strategy.NewSingleHopLight(svc.pools, local),
		strategy.NewRoutingSDK(svc.pools, offchain),
		strategy.NewXAPI(x),
		strategy.NewFullMultiHop(svc.pools, local),
	)
	sel := selector.New(strategy.NewResolver(registry, svc.loader), quoting)

	svc.bridge = bridge.NewClient(endpoints.BridgeAPIURL, httpClient)
	cross := crosschain.NewQuoter(svc.bridge, svc.bridge, crosschain.SelectorSwaps{Selector: sel}, nil)
	svc.engine = New(quoting, sel, cross)

	svc.publisher = events.Noop{}
	if eventsCfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(eventsCfg.NATSURL, eventsCfg.SubjectPrefix)
		if err != nil {
			svc.logger.Warn().Err(err).Str("url", eventsCfg.NATSURL).Msg("failed to connect to nats, order events disabled")
		} else {
			svc.publisher = pub
		}
	}
	svc.tracker = bridge.NewTracker(svc.bridge, svc.publisher, bridge.DefaultPollInterval)
	return nil
}

// Start warms the routing config in the background; quoting works without it.
func (svc *Service) Start() error {
	if len(svc.unbacked) > 0 {
		svc.logger.Warn().Strs("strategies", svc.unbacked).Msg("default strategies without an upstream API will not quote")
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
		defer cancel()
		cfg := svc.loader.Load(ctx)
		svc.logger.Info().Int("chains", len(cfg)).Msg("routing config loaded")
	}()
	return nil
}

// unbackedStrategies lists the default strategies whose API endpoint is unset.
func unbackedStrategies(endpoints *config.EndpointsConfig) []string {
	var out []string
	for _, r := range strategy.DefaultRoutes {
		switch {
		case r.Key == strategy.KeyRoutingSDK && endpoints.RoutingAPIURL == "",
			r.Key == strategy.KeyXAPI && endpoints.XAPIURL == "":
			out = append(out, string(r.Key))
		}
	}
	return out
}

func (svc *Service) Stop() error {
	svc.pools.Stop()
	if err := svc.publisher.Close(); err != nil {
		svc.logger.Error().Err(err).Msg("failed to close event publisher")
	}
	if svc.store != nil {
		return svc.store.Close()
	}
	return nil
}

func (svc *Service) Engine() *Engine {
	return svc.engine
}

func (svc *Service) Pools() pools.Fetcher {
	return svc.pools
}

func (svc *Service) Bridge() *bridge.Client {
	return svc.bridge
}

func (svc *Service) Tracker() *bridge.Tracker {
	return svc.tracker
}

// ReloadRoutingConfig drops the cached routing config and fetches it again.
func (svc *Service) ReloadRoutingConfig(ctx context.Context) strategy.RoutingConfig {
	svc.loader.Invalidate()
	return svc.loader.Load(ctx)
}
