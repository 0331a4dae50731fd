package domain

// CalldataRequest asks the bridge for an executable transaction of a composed
// order.
type CalldataRequest struct {
	Account     string
	Recipient   string
	SlippageBps uint32
	Order       *BridgeOrder
}

type TransactionData struct {
	Router   string `json:"router"`
	Calldata string `json:"calldata"`
	Value    string `json:"value,omitempty"`
}

type CalldataResponse struct {
	TransactionData TransactionData `json:"transactionData"`
	GasFee          string          `json:"gasFee"`
}
