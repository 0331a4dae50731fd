package http

import (
	"errors"
	"fmt"
	gohttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/config"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/engine"
	"github.com/hxuan190/quote-engine/internal/http/httputil"
	"github.com/hxuan190/quote-engine/internal/worker"
)

type QuoteHandler struct {
	engine  *engine.Engine
	quoting *config.QuotingConfig
	// reload is nil when the routing config cannot be refreshed.
	reload func(c *gin.Context) int
}

func NewQuoteHandler(e *engine.Engine, quoting *config.QuotingConfig, reload func(c *gin.Context) int) *QuoteHandler {
	return &QuoteHandler{engine: e, quoting: quoting, reload: reload}
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
	pub.GET("/stream", h.stream)
	pub.GET("/:hash", h.getLatest)
	admin.POST("/routing-config/reload", h.reloadRoutingConfig)
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

// QuoteRequest describes a quote. Tokens are addresses, or "native" for the
// chain's coin. Decimals are only needed for tokens the engine does not list.
type QuoteRequest struct {
	InputChainID   uint64 `form:"inputChainId" json:"inputChainId" example:"1"`
	InputToken     string `form:"inputToken" json:"inputToken" example:"native"`
	InputDecimals  uint8  `form:"inputDecimals" json:"inputDecimals"`
	OutputChainID  uint64 `form:"outputChainId" json:"outputChainId" example:"1"`
	OutputToken    string `form:"outputToken" json:"outputToken" example:"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"`
	OutputDecimals uint8  `form:"outputDecimals" json:"outputDecimals"`

	// Amount in smallest units of the input (exact input) or output (exact output)
	Amount    string `form:"amount" json:"amount" example:"1000000000000000000"`
	TradeType string `form:"tradeType" json:"tradeType" enums:"EXACT_INPUT,EXACT_OUTPUT" example:"EXACT_INPUT"`

	// Slippage tolerance in basis points; defaults to the engine setting
	SlippageBps *uint32 `form:"slippageBps" json:"slippageBps" example:"50"`
	Account     string  `form:"account" json:"account"`

	MaxHops   int `form:"maxHops" json:"maxHops" example:"2"`
	MaxSplits int `form:"maxSplits" json:"maxSplits" example:"2"`
	// Comma separated subset of V2,V3,STABLE,INFINITY_CL; empty enables all
	Protocols string `form:"protocols" json:"protocols" example:"V2,V3"`
	X         bool   `form:"x" json:"x"`

	BlockNumber     uint64 `form:"blockNumber" json:"blockNumber"`
	DestBlockNumber uint64 `form:"destBlockNumber" json:"destBlockNumber"`
}

func resolveToken(chainID uint64, token string, decimals uint8, side string) (domain.Currency, error) {
	if chainID == 0 {
		return domain.Currency{}, fmt.Errorf("%sChainId is required", side)
	}
	c, err := common.ResolveCurrency(domain.ChainID(chainID), token, decimals)
	if err != nil {
		return domain.Currency{}, fmt.Errorf("invalid %sToken: %w", side, err)
	}
	if !c.IsNative && c.Symbol == "" && decimals == 0 {
		return domain.Currency{}, fmt.Errorf("%sDecimals is required for unlisted token %s", side, c.Address)
	}
	return c, nil
}

// toParams validates r and fills defaults.
func (r *QuoteRequest) toParams(quoting *config.QuotingConfig) (domain.QuoteQuery, error) {
	in, err := resolveToken(r.InputChainID, r.InputToken, r.InputDecimals, "input")
	if err != nil {
		return domain.QuoteQuery{}, err
	}
	out, err := resolveToken(r.OutputChainID, r.OutputToken, r.OutputDecimals, "output")
	if err != nil {
		return domain.QuoteQuery{}, err
	}
	amount, err := domain.ParseAmount(r.Amount)
	if err != nil || amount.IsZero() {
		return domain.QuoteQuery{}, errors.New("invalid amount: must be a positive integer")
	}

	p := domain.QuoteQuery{
		Input:           &in,
		Output:          &out,
		Amount:          amount,
		TradeType:       domain.ParseTradeType(r.TradeType),
		MaxHops:         r.MaxHops,
		MaxSplits:       r.MaxSplits,
		SlippageBps:     quoting.DefaultSlippageBps,
		Account:         r.Account,
		X:               r.X,
		BlockNumber:     r.BlockNumber,
		DestBlockNumber: r.DestBlockNumber,
	}
	if r.SlippageBps != nil {
		if *r.SlippageBps >= domain.BpsDenominator {
			return domain.QuoteQuery{}, errors.New("invalid slippageBps")
		}
		p.SlippageBps = *r.SlippageBps
	}
	if p.MaxHops <= 0 || p.MaxHops > worker.MaxHops {
		p.MaxHops = worker.MaxHops
	}
	if p.MaxSplits <= 0 {
		p.MaxSplits = 2
	}
	if err := setProtocols(&p, r.Protocols); err != nil {
		return domain.QuoteQuery{}, err
	}
	return p, nil
}

func setProtocols(p *domain.QuoteQuery, list string) error {
	if strings.TrimSpace(list) == "" {
		p.V2, p.V3, p.Stable, p.Infinity = true, true, true, true
		return nil
	}
	for _, name := range strings.Split(list, ",") {
		switch domain.Protocol(strings.ToUpper(strings.TrimSpace(name))) {
		case domain.ProtocolV2:
			p.V2 = true
		case domain.ProtocolV3:
			p.V3 = true
		case domain.ProtocolStable:
			p.Stable = true
		case domain.ProtocolInfinity:
			p.Infinity = true
		default:
			return fmt.Errorf("unknown protocol %q", name)
		}
	}
	return nil
}

func writeQuote(c *gin.Context, q *domain.QuoteQuery, res engine.Result) {
	resp := newQuoteResponse(q, res)
	if !res.IsFail() {
		httputil.HandleSuccess(c, resp)
		return
	}
	he := common.ToHTTPError(res.Error())
	c.JSON(he.StatusCode, httputil.Response{Success: false, Data: resp, Error: he.Message, Code: he.Code})
}

// @Summary Get quote
// @Description Resolve the best quote for a same-chain swap or a cross-chain order.
// @Description Same-chain queries run the configured strategy tiers; cross-chain queries compose
// @Description bridge and swap legs. The response state is one of nothing, just or fail.
// @Tags quote
// @Produce json
// @Param inputChainId query int true "Input chain id" example(1)
// @Param inputToken query string true "Input token address or native" example("native")
// @Param outputChainId query int true "Output chain id" example(1)
// @Param outputToken query string true "Output token address or native"
// @Param amount query string true "Amount in smallest units" example("1000000000000000000")
// @Param tradeType query string false "EXACT_INPUT or EXACT_OUTPUT" Enums(EXACT_INPUT, EXACT_OUTPUT)
// @Param slippageBps query int false "Slippage tolerance in basis points"
// @Param protocols query string false "Comma separated protocols"
// @Param x query bool false "Include X quotes"
// @Success 200 {object} QuoteResponse
// @Failure 400 {object} httputil.Response "Invalid request parameters"
// @Failure 422 {object} httputil.Response "No valid route"
// @Failure 504 {object} httputil.Response "Routing timed out"
// @Router /api/v1/quote [get]
func (h *QuoteHandler) getQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid query parameters: "+err.Error())
		return
	}
	p, err := req.toParams(h.quoting)
	if err != nil {
		httputil.HandleBadRequest(c, err.Error())
		return
	}

	q := h.engine.Build(p)
	res, err := h.engine.Resolve(c.Request.Context(), q)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	writeQuote(c, q, res)
}

// @Summary Get the last resolved quote of a fingerprint
// @Tags quote
// @Produce json
// @Param hash path string true "Query fingerprint"
// @Success 200 {object} QuoteResponse
// @Failure 404 {object} httputil.Response
// @Router /api/v1/quote/{hash} [get]
func (h *QuoteHandler) getLatest(c *gin.Context) {
	hash := c.Param("hash")
	q, ok := h.engine.Lookup(hash)
	if !ok {
		httputil.HandleNotFound(c, "unknown quote")
		return
	}
	order, ok := h.engine.Latest(hash)
	if !ok {
		httputil.HandleNotFound(c, "quote not resolved")
		return
	}
	httputil.HandleSuccess(c, QuoteResponse{Hash: hash, State: "just", Order: newOrderView(order, q.SlippageBps)})
}

// @Summary Reload routing config
// @Tags admin
// @Produce json
// @Success 200 {object} httputil.Response
// @Router /api/v1/admin/quote/routing-config/reload [post]
func (h *QuoteHandler) reloadRoutingConfig(c *gin.Context) {
	if h.reload == nil {
		httputil.Error(c, gohttp.StatusServiceUnavailable, "routing config reload unavailable")
		return
	}
	httputil.HandleSuccess(c, gin.H{"chains": h.reload(c)})
}
