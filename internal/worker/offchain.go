package worker

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/holiman/uint256"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/pools"
)

type serializedCurrency struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address,omitempty"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	IsNative bool   `json:"isNative,omitempty"`
}

func serializeCurrency(c domain.Currency) serializedCurrency {
	return serializedCurrency{ChainID: uint64(c.ChainID), Address: c.Address, Symbol: c.Symbol, Decimals: c.Decimals, IsNative: c.IsNative}
}

func (s serializedCurrency) toDomain() domain.Currency {
	if s.IsNative {
		return domain.Native(domain.ChainID(s.ChainID), s.Symbol, s.Decimals)
	}
	return domain.Token(domain.ChainID(s.ChainID), s.Address, s.Symbol, s.Decimals)
}

type bestTradeBody struct {
	TradeType  string                 `json:"tradeType"`
	Amount     string                 `json:"amount"`
	Currency   serializedCurrency     `json:"currency"`
	QuoteToken serializedCurrency     `json:"quoteCurrency"`
	Candidates []pools.SerializedPool `json:"candidatePools"`
	MaxHops    int                    `json:"maxHops"`
	MaxSplits  int                    `json:"maxSplits"`
	GasPrice   string                 `json:"gasPriceWei,omitempty"`
}

type serializedHop struct {
	Pool           string `json:"pool"`
	AmountIn       string `json:"amountIn"`
	AmountOut      string `json:"amountOut"`
	PriceImpactBps uint16 `json:"priceImpactBps"`
}

type serializedRoute struct {
	Percent uint8                `json:"percent"`
	Path    []serializedCurrency `json:"path"`
	Hops    []serializedHop      `json:"hops"`
}

type serializedTrade struct {
	InputAmount    string            `json:"inputAmount"`
	OutputAmount   string            `json:"outputAmount"`
	PriceImpactBps uint16            `json:"priceImpactBps"`
	GasCost        string            `json:"gasCostInQuoteToken,omitempty"`
	Routes         []serializedRoute `json:"routes"`
}

type bestTradeResponse struct {
	Trade *serializedTrade `json:"trade"`
}

// Offchain delegates the best-trade search to the routing API.
type Offchain struct {
	baseURL    string
	httpClient *http.Client
}

func NewOffchain(baseURL string, httpClient *http.Client) *Offchain {
	return &Offchain{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// GetBestTradeOffchain posts the candidate pools and returns the API's trade.
// A null trade is domain.ErrNoValidRoute.
func (o *Offchain) GetBestTradeOffchain(ctx context.Context, req Request) (*domain.Trade, error) {
	if req.Amount == nil || req.Amount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}
	body := bestTradeBody{
		TradeType:  req.TradeType.String(),
		Amount:     req.Amount.Dec(),
		Currency:   serializeCurrency(req.Input),
		QuoteToken: serializeCurrency(req.Output),
		MaxHops:    req.MaxHops,
		MaxSplits:  req.MaxSplits,
	}
	if req.TradeType == domain.ExactOutput {
		body.Currency, body.QuoteToken = serializeCurrency(req.Output), serializeCurrency(req.Input)
	}
	for _, p := range req.Pools {
		body.Candidates = append(body.Candidates, pools.Serialize(p))
	}
	if req.GasPriceInOutput != nil {
		body.GasPrice = req.GasPriceInOutput.Dec()
	}

	var resp bestTradeResponse
	if err := common.DoJSON(ctx, o.httpClient, http.MethodPost, o.baseURL+"/v1/best-trade", body, &resp); err != nil {
		return nil, err
	}
	if resp.Trade == nil {
		return nil, domain.ErrNoValidRoute
	}
	return resp.Trade.toDomain(req)
}

func (s *serializedTrade) toDomain(req Request) (*domain.Trade, error) {
	byAddr := make(map[string]*domain.Pool, len(req.Pools))
	for _, p := range req.Pools {
		byAddr[strings.ToLower(p.Address)] = p
	}

	in, err := domain.ParseAmount(s.InputAmount)
	if err != nil {
		return nil, fmt.Errorf("routing api input amount: %w", err)
	}
	out, err := domain.ParseAmount(s.OutputAmount)
	if err != nil {
		return nil, fmt.Errorf("routing api output amount: %w", err)
	}

	t := &domain.Trade{
		TradeType:      req.TradeType,
		Input:          req.Input,
		Output:         req.Output,
		InputAmount:    in,
		OutputAmount:   out,
		PriceImpactBps: s.PriceImpactBps,
	}
	if s.GasCost != "" {
		if t.GasCost, err = domain.ParseAmount(s.GasCost); err != nil {
			return nil, fmt.Errorf("routing api gas cost: %w", err)
		}
	}

	for _, r := range s.Routes {
		if len(r.Path) != len(r.Hops)+1 {
			return nil, fmt.Errorf("%w: route path does not match hops", domain.ErrNoValidRoute)
		}
		route := domain.Route{Percent: r.Percent}
		for i, h := range r.Hops {
			pool, ok := byAddr[strings.ToLower(h.Pool)]
			if !ok {
				return nil, fmt.Errorf("%w: unknown pool %s", domain.ErrInvalidPool, h.Pool)
			}
			hin, err := domain.ParseAmount(h.AmountIn)
			if err != nil {
				return nil, err
			}
			hout, err := domain.ParseAmount(h.AmountOut)
			if err != nil {
				return nil, err
			}
			route.Hops = append(route.Hops, domain.HopQuote{
				Pool:           pool,
				Input:          r.Path[i].toDomain(),
				Output:         r.Path[i+1].toDomain(),
				AmountIn:       hin,
				AmountOut:      hout,
				FeeAmount:      new(uint256.Int),
				PriceImpactBps: h.PriceImpactBps,
			})
		}
		if len(route.Hops) > 0 {
			route.AmountIn = route.Hops[0].AmountIn
			route.AmountOut = route.Hops[len(route.Hops)-1].AmountOut
		}
		t.Routes = append(t.Routes, route)
	}
	if len(t.Routes) == 0 {
		return nil, domain.ErrNoValidRoute
	}
	return t, nil
}
