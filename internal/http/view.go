package http

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/engine"
	"github.com/hxuan190/quote-engine/internal/loadable"
	"github.com/hxuan190/quote-engine/internal/worker"
)

// CurrencyView identifies a token in responses
type CurrencyView struct {
	ChainID  uint64 `json:"chainId" example:"1"`
	Address  string `json:"address" example:"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"`
	Symbol   string `json:"symbol,omitempty" example:"USDC"`
	Decimals uint8  `json:"decimals" example:"6"`
	IsNative bool   `json:"isNative,omitempty"`
}

func currencyView(c domain.Currency) CurrencyView {
	addr := c.Address
	if c.IsNative {
		addr = "native"
	}
	return CurrencyView{ChainID: uint64(c.ChainID), Address: addr, Symbol: c.Symbol, Decimals: c.Decimals, IsNative: c.IsNative}
}

// HopView describes one pool of a route
type HopView struct {
	PoolAddress string `json:"poolAddress"`
	Protocol    string `json:"protocol" example:"V3"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	AmountIn    string `json:"amountIn"`
	AmountOut   string `json:"amountOut"`
}

// RouteView is one path of a possibly split trade
type RouteView struct {
	Percent uint8     `json:"percent" example:"100"`
	Hops    []HopView `json:"hops"`
}

// CommandView is one step of a cross-chain order
type CommandView struct {
	Type      string       `json:"type" enums:"SWAP,BRIDGE"`
	ChainID   uint64       `json:"chainId"`
	Input     CurrencyView `json:"input"`
	Output    CurrencyView `json:"output"`
	AmountIn  string       `json:"amountIn"`
	AmountOut string       `json:"amountOut"`
}

// OrderView is the serialized form of any order kind
type OrderView struct {
	Type   string       `json:"type" enums:"CLASSIC,X,BRIDGE"`
	Source string       `json:"source,omitempty" example:"full-multi-hop"`
	Input  CurrencyView `json:"input"`
	Output CurrencyView `json:"output"`

	// Raw amounts in smallest units
	AmountIn  string `json:"amountIn" example:"1000000000000000000"`
	AmountOut string `json:"amountOut" example:"1800000000"`
	// Amounts scaled by token decimals
	AmountInFormatted  string `json:"amountInFormatted" example:"1"`
	AmountOutFormatted string `json:"amountOutFormatted" example:"1800"`

	// Minimum output (exact input) or maximum input (exact output) after slippage
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SlippageBps          uint32 `json:"slippageBps" example:"50"`

	PriceImpactBps      uint16 `json:"priceImpactBps" example:"25"`
	PriceImpactPercent  string `json:"priceImpactPercent" example:"0.25"`
	PriceImpactSeverity string `json:"priceImpactSeverity" enums:"none,low,moderate,high,extreme"`
	PriceImpactWarning  string `json:"priceImpactWarning,omitempty"`
	GasCost             string `json:"gasCost,omitempty"`

	Routes []RouteView `json:"routes,omitempty"`

	Pattern             string        `json:"pattern,omitempty" enums:"BRIDGE_ONLY,BRIDGE_TO_SWAP,SWAP_TO_BRIDGE,SWAP_TO_BRIDGE_TO_SWAP"`
	Commands            []CommandView `json:"commands,omitempty"`
	ExpectedFillTimeSec int           `json:"expectedFillTimeSec,omitempty"`

	// X orders only
	QuoteID   string `json:"quoteId,omitempty"`
	Filler    string `json:"filler,omitempty"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// QuoteResponse is one state of a quote
type QuoteResponse struct {
	Hash        string     `json:"hash"`
	State       string     `json:"state" enums:"nothing,pending,just,fail"`
	Placeholder bool       `json:"placeholder,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorCode   string     `json:"errorCode,omitempty"`
	Order       *OrderView `json:"order,omitempty"`
}

// formatUnits scales a raw amount by decimals.
func formatUnits(v *uint256.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	d, err := decimal.NewFromString(v.Dec())
	if err != nil {
		return "0"
	}
	return d.Shift(-int32(decimals)).String()
}

func threshold(o domain.Order, slippageBps uint32) *uint256.Int {
	if b, ok := o.(*domain.BridgeOrder); ok {
		return b.MinAmountOut
	}
	if o.TradeType() == domain.ExactOutput {
		return domain.MaximumAmountIn(o.InputAmount(), slippageBps)
	}
	return domain.MinimumAmountOut(o.OutputAmount(), slippageBps)
}

func routeViews(t *domain.Trade) []RouteView {
	if t == nil {
		return nil
	}
	out := make([]RouteView, 0, len(t.Routes))
	for _, r := range t.Routes {
		rv := RouteView{Percent: r.Percent, Hops: make([]HopView, 0, len(r.Hops))}
		for _, h := range r.Hops {
			hv := HopView{
				Input:     h.Input.String(),
				Output:    h.Output.String(),
				AmountIn:  domain.FormatAmount(h.AmountIn),
				AmountOut: domain.FormatAmount(h.AmountOut),
			}
			if h.Pool != nil {
				hv.PoolAddress = h.Pool.Address
				hv.Protocol = string(h.Pool.Protocol)
			}
			rv.Hops = append(rv.Hops, hv)
		}
		out = append(out, rv)
	}
	return out
}

func newOrderView(o domain.Order, slippageBps uint32) *OrderView {
	if o == nil {
		return nil
	}
	in, out := o.InputCurrency(), o.OutputCurrency()
	impact := o.PriceImpactBps()
	v := &OrderView{
		Type:                 o.Kind().String(),
		Input:                currencyView(in),
		Output:               currencyView(out),
		AmountIn:             domain.FormatAmount(o.InputAmount()),
		AmountOut:            domain.FormatAmount(o.OutputAmount()),
		AmountInFormatted:    formatUnits(o.InputAmount(), in.Decimals),
		AmountOutFormatted:   formatUnits(o.OutputAmount(), out.Decimals),
		OtherAmountThreshold: domain.FormatAmount(threshold(o, slippageBps)),
		SlippageBps:          slippageBps,
		PriceImpactBps:       impact,
		PriceImpactPercent:   decimal.New(int64(impact), -2).StringFixed(2),
		PriceImpactSeverity:  worker.GetPriceImpactSeverity(impact).String(),
		PriceImpactWarning:   worker.GetPriceImpactWarning(impact),
	}
	if gas := o.GasCost(); gas != nil {
		v.GasCost = domain.FormatAmount(gas)
	}

	switch order := o.(type) {
	case *domain.ClassicOrder:
		v.Source = order.Trade.Source
		v.Routes = routeViews(order.Trade)
	case *domain.XOrder:
		v.Source = order.Trade.Source
		v.QuoteID = order.QuoteID
		v.Filler = order.Filler
		v.Synthetic = order.Synthetic
	case *domain.BridgeOrder:
		v.Pattern = string(order.Pattern)
		v.SlippageBps = order.SlippageBps
		v.ExpectedFillTimeSec = order.ExpectedFillTimeSec
		for _, cmd := range order.Commands {
			v.Commands = append(v.Commands, CommandView{
				Type:      string(cmd.Type),
				ChainID:   uint64(cmd.ChainID),
				Input:     currencyView(cmd.Input),
				Output:    currencyView(cmd.Output),
				AmountIn:  domain.FormatAmount(cmd.AmountIn),
				AmountOut: domain.FormatAmount(cmd.AmountOut),
			})
		}
	}
	return v
}

func newQuoteResponse(q *domain.QuoteQuery, res engine.Result) QuoteResponse {
	resp := QuoteResponse{
		Hash:        q.Hash,
		State:       res.Kind().String(),
		Placeholder: res.HasFlag(loadable.FlagPlaceholder),
	}
	if order, ok := res.Value(); ok {
		resp.Order = newOrderView(order, q.SlippageBps)
	}
	if err := res.Error(); err != nil {
		he := common.ToHTTPError(err)
		resp.Error, resp.ErrorCode = he.Message, he.Code
	}
	return resp
}
