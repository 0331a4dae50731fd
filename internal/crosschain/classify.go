// Package crosschain composes swap and bridge quotes into cross-chain orders.
package crosschain

import (
	"github.com/hxuan190/quote-engine/internal/domain"
)

// Support is the route coverage of a currency pair.
type Support struct {
	Origin      bool
	Destination bool
	// Direct is set when one route carries base straight to quote.
	Direct bool
}

func support(routes []domain.BridgeRoute, base, quote domain.Currency) Support {
	var s Support
	for _, r := range routes {
		o := matches(base, r.OriginChainID, r.OriginToken)
		d := matches(quote, r.DestinationChainID, r.DestinationToken)
		s.Origin = s.Origin || o
		s.Destination = s.Destination || d
		s.Direct = s.Direct || (o && d)
	}
	return s
}

// Classify picks the composition pattern for base -> quote over routes.
func Classify(routes []domain.BridgeRoute, base, quote domain.Currency) domain.PatternType {
	s := support(routes, base, quote)
	switch {
	case s.Origin && s.Direct:
		return domain.PatternBridgeOnly
	case s.Origin:
		return domain.PatternBridgeToSwap
	case s.Destination:
		return domain.PatternSwapToBridge
	default:
		return domain.PatternSwapToBridgeToSwap
	}
}
