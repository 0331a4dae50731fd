package domain

import (
	"github.com/holiman/uint256"
)

type PatternType string

const (
	PatternBridgeOnly         PatternType = "BRIDGE_ONLY"
	PatternBridgeToSwap       PatternType = "BRIDGE_TO_SWAP"
	PatternSwapToBridge       PatternType = "SWAP_TO_BRIDGE"
	PatternSwapToBridgeToSwap PatternType = "SWAP_TO_BRIDGE_TO_SWAP"
)

// BridgeRoute is one supported origin token -> destination token lane.
type BridgeRoute struct {
	OriginChainID          ChainID `json:"originChainId"`
	DestinationChainID     ChainID `json:"destinationChainId"`
	OriginToken            string  `json:"originToken"`
	DestinationToken       string  `json:"destinationToken"`
	DestinationTokenSymbol string  `json:"destinationTokenSymbol"`
}

// BridgeQuote is the pre-quote metadata returned for one bridge transfer.
type BridgeQuote struct {
	Supported           bool
	Reason              string
	Input               Currency
	Output              Currency
	InputAmount         *uint256.Int
	OutputAmount        *uint256.Int
	Fee                 *uint256.Int
	TransactionData     string
	ExpectedFillTimeSec int
}

type BridgeStatus string

const (
	StatusPending        BridgeStatus = "PENDING"
	StatusBridgePending  BridgeStatus = "BRIDGE_PENDING"
	StatusSuccess        BridgeStatus = "SUCCESS"
	StatusPartialSuccess BridgeStatus = "PARTIAL_SUCCESS"
	StatusFailed         BridgeStatus = "FAILED"
)

func (s BridgeStatus) IsPending() bool {
	return s == StatusPending || s == StatusBridgePending
}

func (s BridgeStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusPartialSuccess || s == StatusFailed
}

// StepStatus is the reported status of one command of a submitted order.
type StepStatus struct {
	Command CommandType  `json:"command"`
	Status  BridgeStatus `json:"status"`
	ChainID ChainID      `json:"chainId,omitempty"`
	TxHash  string       `json:"txHash,omitempty"`
}

// BridgeStatusReport is the raw status payload of a submitted order.
type BridgeStatusReport struct {
	Status      BridgeStatus `json:"status"`
	Steps       []StepStatus `json:"data"`
	InputToken  string       `json:"inputToken"`
	OutputToken string       `json:"outputToken"`
}
