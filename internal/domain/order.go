package domain

import (
	"time"

	"github.com/holiman/uint256"
)

type OrderKind uint8

const (
	OrderClassic OrderKind = iota
	OrderX
	OrderBridge
)

func (k OrderKind) String() string {
	switch k {
	case OrderClassic:
		return "CLASSIC"
	case OrderX:
		return "X"
	case OrderBridge:
		return "BRIDGE"
	default:
		return "UNKNOWN"
	}
}

// Order is the sum of ClassicOrder, XOrder and BridgeOrder. Consumers switch on
// the concrete type; the sealed method keeps the set closed.
type Order interface {
	Kind() OrderKind
	TradeType() TradeType
	InputCurrency() Currency
	OutputCurrency() Currency
	InputAmount() *uint256.Int
	OutputAmount() *uint256.Int
	PriceImpactBps() uint16
	// GasCost is denominated in output currency units; nil if unknown.
	GasCost() *uint256.Int

	sealed()
}

// ClassicOrder settles through AMM pools in one transaction.
type ClassicOrder struct {
	Trade *Trade
}

func (o *ClassicOrder) Kind() OrderKind            { return OrderClassic }
func (o *ClassicOrder) TradeType() TradeType       { return o.Trade.TradeType }
func (o *ClassicOrder) InputCurrency() Currency    { return o.Trade.Input }
func (o *ClassicOrder) OutputCurrency() Currency   { return o.Trade.Output }
func (o *ClassicOrder) InputAmount() *uint256.Int  { return o.Trade.InputAmount }
func (o *ClassicOrder) OutputAmount() *uint256.Int { return o.Trade.OutputAmount }
func (o *ClassicOrder) PriceImpactBps() uint16     { return o.Trade.PriceImpactBps }
func (o *ClassicOrder) GasCost() *uint256.Int      { return o.Trade.GasCost }
func (o *ClassicOrder) sealed()                    {}

// XOrder is filled off-chain by the external order-flow network.
type XOrder struct {
	Trade    *Trade
	QuoteID  string
	Filler   string
	Deadline time.Time
	// Synthetic quotes are indicative only and carry no filler commitment.
	Synthetic bool
}

func (o *XOrder) Kind() OrderKind            { return OrderX }
func (o *XOrder) TradeType() TradeType       { return o.Trade.TradeType }
func (o *XOrder) InputCurrency() Currency    { return o.Trade.Input }
func (o *XOrder) OutputCurrency() Currency   { return o.Trade.Output }
func (o *XOrder) InputAmount() *uint256.Int  { return o.Trade.InputAmount }
func (o *XOrder) OutputAmount() *uint256.Int { return o.Trade.OutputAmount }
func (o *XOrder) PriceImpactBps() uint16     { return o.Trade.PriceImpactBps }
func (o *XOrder) GasCost() *uint256.Int      { return nil }
func (o *XOrder) sealed()                    {}

// BridgeOrder is a composed cross-chain plan.
type BridgeOrder struct {
	Pattern  PatternType
	Input    Currency
	Output   Currency
	AmountIn *uint256.Int
	// ExpectedAmountOut is the display amount computed without slippage.
	ExpectedAmountOut *uint256.Int
	// MinAmountOut is what the last command guarantees after slippage.
	MinAmountOut        *uint256.Int
	Commands            []Command
	ExpectedFillTimeSec int
	SlippageBps         uint32
	ImpactBps           uint16
}

func (o *BridgeOrder) Kind() OrderKind            { return OrderBridge }
func (o *BridgeOrder) TradeType() TradeType       { return ExactInput }
func (o *BridgeOrder) InputCurrency() Currency    { return o.Input }
func (o *BridgeOrder) OutputCurrency() Currency   { return o.Output }
func (o *BridgeOrder) InputAmount() *uint256.Int  { return o.AmountIn }
func (o *BridgeOrder) OutputAmount() *uint256.Int { return o.ExpectedAmountOut }
func (o *BridgeOrder) PriceImpactBps() uint16     { return o.ImpactBps }
func (o *BridgeOrder) GasCost() *uint256.Int      { return nil }
func (o *BridgeOrder) sealed()                    {}

// TradeOf returns the AMM trade behind an order, nil for bridge orders.
func TradeOf(o Order) *Trade {
	switch v := o.(type) {
	case *ClassicOrder:
		return v.Trade
	case *XOrder:
		return v.Trade
	case *BridgeOrder:
		return nil
	default:
		return nil
	}
}

func IsBridgeOrder(o Order) bool {
	_, ok := o.(*BridgeOrder)
	return ok
}
