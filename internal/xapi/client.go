// Package xapi quotes orders on the external order-flow network.
package xapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

const routingX = "X"

type currencyDTO struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
}

func toCurrencyDTO(c domain.Currency) currencyDTO {
	addr := c.Address
	if c.IsNative {
		addr = common.Wrapped(c).Address
	}
	return currencyDTO{ChainID: uint64(c.ChainID), Address: addr, Decimals: c.Decimals, Symbol: c.Symbol}
}

type ammOptions struct {
	Protocols []domain.Protocol `json:"protocols"`
	MaxHops   int               `json:"maxHops"`
	MaxSplits int               `json:"maxSplits"`
}

type xOptions struct {
	UseSyntheticQuotes bool   `json:"useSyntheticQuotes"`
	Swapper            string `json:"swapper"`
}

type quoteRequest struct {
	Amount        string      `json:"amount"`
	BaseCurrency  currencyDTO `json:"baseCurrency"`
	QuoteCurrency currencyDTO `json:"quoteCurrency"`
	TradeType     string      `json:"tradeType"`
	Slippage      float64     `json:"slippage"`
	AMM           ammOptions  `json:"amm"`
	X             xOptions    `json:"x"`
}

type quoteLeg struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type quoteBody struct {
	QuoteID        string   `json:"quoteId"`
	Filler         string   `json:"filler"`
	Deadline       int64    `json:"deadline"`
	Input          quoteLeg `json:"input"`
	Output         quoteLeg `json:"output"`
	PriceImpactBps uint16   `json:"priceImpactBps"`
	Synthetic      bool     `json:"synthetic"`
}

type quoteResponse struct {
	Routing string     `json:"routing"`
	Quote   *quoteBody `json:"quote"`
}

// Client talks to the X quoting endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	// Synthetic enables indicative quotes when no filler responds.
	Synthetic bool
}

func NewClient(url string, httpClient *http.Client) *Client {
	return &Client{url: url, httpClient: httpClient, Synthetic: true}
}

// Quote asks the network to fill q. A response routed elsewhere than X is
// domain.ErrNoValidRoute.
func (c *Client) Quote(ctx context.Context, q *domain.QuoteQuery) (*domain.XOrder, error) {
	if !q.Complete() {
		return nil, domain.ErrIncompleteTask
	}
	if q.IsCrossChain() {
		return nil, fmt.Errorf("%w: x orders are same-chain only", domain.ErrNoValidRoute)
	}
	base, quote := *q.Input, *q.Output
	if q.TradeType == domain.ExactOutput {
		base, quote = quote, base
	}
	req := quoteRequest{
		Amount:        q.Amount.Dec(),
		BaseCurrency:  toCurrencyDTO(base),
		QuoteCurrency: toCurrencyDTO(quote),
		TradeType:     q.TradeType.String(),
		Slippage:      float64(q.SlippageBps) / 100,
		AMM:           ammOptions{Protocols: q.Protocols(), MaxHops: q.MaxHops, MaxSplits: q.MaxSplits},
		X:             xOptions{UseSyntheticQuotes: c.Synthetic, Swapper: q.Account},
	}

	var resp quoteResponse
	if err := common.DoJSON(ctx, c.httpClient, http.MethodPost, c.url, req, &resp); err != nil {
		return nil, err
	}
	if !strings.EqualFold(resp.Routing, routingX) || resp.Quote == nil {
		return nil, domain.ErrNoValidRoute
	}
	return resp.Quote.toOrder(q)
}

func (b *quoteBody) toOrder(q *domain.QuoteQuery) (*domain.XOrder, error) {
	in, err := domain.ParseAmount(b.Input.Amount)
	if err != nil {
		return nil, fmt.Errorf("x quote input: %w", err)
	}
	out, err := domain.ParseAmount(b.Output.Amount)
	if err != nil {
		return nil, fmt.Errorf("x quote output: %w", err)
	}
	if in.IsZero() || out.IsZero() {
		return nil, errors.Join(domain.ErrNoValidRoute, domain.ErrInvalidAmount)
	}
	return &domain.XOrder{
		Trade: &domain.Trade{
			TradeType:      q.TradeType,
			Input:          *q.Input,
			Output:         *q.Output,
			InputAmount:    in,
			OutputAmount:   out,
			PriceImpactBps: b.PriceImpactBps,
			Source:         "x",
		},
		QuoteID:   b.QuoteID,
		Filler:    b.Filler,
		Deadline:  time.Unix(b.Deadline, 0).UTC(),
		Synthetic: b.Synthetic,
	}, nil
}
