package domain

import (
	"github.com/holiman/uint256"
)

type CommandType string

const (
	CommandSwap   CommandType = "SWAP"
	CommandBridge CommandType = "BRIDGE"
)

// Command is one step of a composed cross-chain execution plan.
type Command struct {
	Type      CommandType
	ChainID   ChainID
	Input     Currency
	Output    Currency
	AmountIn  *uint256.Int
	AmountOut *uint256.Int

	// Set for SWAP commands.
	Trade *Trade
	// Set for BRIDGE commands.
	Bridge *BridgeQuote
}

func SwapCommand(t *Trade) Command {
	return Command{
		Type:      CommandSwap,
		ChainID:   t.Input.ChainID,
		Input:     t.Input,
		Output:    t.Output,
		AmountIn:  t.InputAmount,
		AmountOut: t.OutputAmount,
		Trade:     t,
	}
}

func BridgeCommand(q *BridgeQuote) Command {
	return Command{
		Type:      CommandBridge,
		ChainID:   q.Input.ChainID,
		Input:     q.Input,
		Output:    q.Output,
		AmountIn:  q.InputAmount,
		AmountOut: q.OutputAmount,
		Bridge:    q,
	}
}

func (c Command) IsBridge() bool {
	return c.Type == CommandBridge
}
