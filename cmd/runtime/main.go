package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/config"
	"github.com/hxuan190/quote-engine/internal/engine"
	"github.com/hxuan190/quote-engine/internal/http"
)

// @title Quote Engine API
// @version 1.0
// @description Multi-chain DEX quote routing and cross-chain order composition.
// @description
// @description ## - Features
// @description - **Tiered Strategies**: Per-token strategy tiers with shadow runs, loaded from the routing config
// @description - **Cross-Chain Orders**: Bridge-only, bridge-to-swap, swap-to-bridge and swap-bridge-swap patterns
// @description - **Quote Streams**: WebSocket sessions with pending, placeholder and terminal states
// @description - **Order Tracking**: Bridge status reduced across every step of a submitted order
// @description
// @description ## - Usage Tips
// @description - Amounts are in smallest token units
// @description - Use `native` as the token address for a chain's coin
// @description - Default slippage is 50 bps (0.5%)
// @description - Quotes expire after 30 seconds
// @BasePath /
// @schemes https http
// @tag.name quote
// @tag.description Same-chain and cross-chain quotes
// @tag.name bridge
// @tag.description Calldata and status of cross-chain orders
// @tag.name pools
// @tag.description Candidate pools of a pair
// @tag.name admin
// @tag.description Operational endpoints

func main() {
	common.InitRuntime()

	// a missing .env is fine, the environment may carry everything
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Msg("failed to load env")
		return
	}

	general := &config.GeneralConfig{}
	if err := general.Load(); err != nil {
		log.Error().Err(err).Msg("invalid general config")
		return
	}
	zerolog.SetGlobalLevel(general.ZerologLevel())
	if general.Env == config.DevEnv {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// di container config
	conf := container.NewConf(
		general,
		&config.QuotingConfig{},
		&config.EndpointsConfig{},
		&config.PersistenceConfig{},
		&config.EventsConfig{},
	)

	dic, err := container.New(
		conf,

		&engine.Service{},
		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run blocks until SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
