package domain

import (
	"time"

	"github.com/holiman/uint256"
)

type TradeType uint8

const (
	ExactInput TradeType = iota
	ExactOutput
)

func (t TradeType) String() string {
	if t == ExactOutput {
		return "EXACT_OUTPUT"
	}
	return "EXACT_INPUT"
}

func ParseTradeType(s string) TradeType {
	switch s {
	case "EXACT_OUTPUT", "ExactOut", "exactOut", "1":
		return ExactOutput
	default:
		return ExactInput
	}
}

// QuoteQuery describes one quote request. It is immutable once produced by the
// query builder; a change of inputs produces a new query with a new hash.
type QuoteQuery struct {
	Input     *Currency
	Output    *Currency
	Amount    *uint256.Int // amount of Input for ExactInput, of Output for ExactOutput
	TradeType TradeType

	MaxHops   int
	MaxSplits int

	V2       bool
	V3       bool
	Stable   bool
	Infinity bool
	X        bool

	SlippageBps uint32
	Account     string

	BlockNumber     uint64
	DestBlockNumber uint64
	GasLimit        uint64

	Disabled bool
	Nonce    uint64

	Hash            string
	PlaceholderHash string
	CreateTime      time.Time
}

// Complete reports whether the fields every strategy relies on are present.
func (q *QuoteQuery) Complete() bool {
	return q != nil && q.Input != nil && q.Output != nil && q.Amount != nil && !q.Amount.IsZero()
}

func (q *QuoteQuery) IsCrossChain() bool {
	return q.Input != nil && q.Output != nil && q.Input.ChainID != q.Output.ChainID
}

func (q *QuoteQuery) ChainID() ChainID {
	if q.Input == nil {
		return 0
	}
	return q.Input.ChainID
}

// Protocols lists the enabled AMM protocols.
func (q *QuoteQuery) Protocols() []Protocol {
	out := make([]Protocol, 0, 4)
	if q.V2 {
		out = append(out, ProtocolV2)
	}
	if q.V3 {
		out = append(out, ProtocolV3)
	}
	if q.Stable {
		out = append(out, ProtocolStable)
	}
	if q.Infinity {
		out = append(out, ProtocolInfinity)
	}
	return out
}

// With returns a shallow copy with fields overwritten by fn. Hash fields are
// cleared because the copy no longer matches them.
func (q *QuoteQuery) With(fn func(*QuoteQuery)) QuoteQuery {
	cp := *q
	fn(&cp)
	cp.Hash = ""
	cp.PlaceholderHash = ""
	cp.CreateTime = time.Time{}
	return cp
}
