// Package bridge talks to the cross-chain bridge API and tracks submitted
// bridge orders.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/holiman/uint256"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// Client is the bridge API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type routeDTO struct {
	OriginChainID          uint64 `json:"originChainId"`
	DestinationChainID     uint64 `json:"destinationChainId"`
	OriginToken            string `json:"originToken"`
	DestinationToken       string `json:"destinationToken"`
	DestinationTokenSymbol string `json:"destinationTokenSymbol"`
}

type routesResponse struct {
	Routes []routeDTO `json:"routes"`
}

// Routes lists the bridge lanes between two chains. Empty token filters list
// every lane.
func (c *Client) Routes(ctx context.Context, origin, destination domain.ChainID, originToken, destinationToken string) ([]domain.BridgeRoute, error) {
	params := url.Values{}
	params.Set("originChainId", origin.String())
	params.Set("destinationChainId", destination.String())
	if originToken != "" {
		params.Set("originToken", originToken)
	}
	if destinationToken != "" {
		params.Set("destinationToken", destinationToken)
	}

	var resp routesResponse
	if err := common.DoJSON(ctx, c.httpClient, http.MethodGet, c.baseURL+"/bridge/v1/routes?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	routes := make([]domain.BridgeRoute, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		routes = append(routes, domain.BridgeRoute{
			OriginChainID:          domain.ChainID(r.OriginChainID),
			DestinationChainID:     domain.ChainID(r.DestinationChainID),
			OriginToken:            r.OriginToken,
			DestinationToken:       r.DestinationToken,
			DestinationTokenSymbol: r.DestinationTokenSymbol,
		})
	}
	return routes, nil
}

// MetadataRequest asks for a pre-quote of one bridge transfer. Commands are
// the post-bridge steps whose execution cost the bridge must account for.
type MetadataRequest struct {
	Input     domain.Currency
	Output    domain.Currency
	Amount    *uint256.Int
	Recipient string
	Commands  []domain.Command
}

type metadataBody struct {
	RecipientOnDestChain string       `json:"recipientOnDestChain,omitempty"`
	Commands             []commandDTO `json:"commands,omitempty"`
}

type metadataResponse struct {
	Supported             bool   `json:"supported"`
	Reason                string `json:"reason,omitempty"`
	BridgeTransactionData string `json:"bridgeTransactionData"`
	ExpectedFillTimeSec   int    `json:"expectedFillTimeSec"`
	OutputAmount          string `json:"outputAmount"`
	BridgeFee             string `json:"bridgeFee"`
}

// Metadata returns the bridge quote for req. An unsupported transfer is a
// *domain.BridgeTradeError.
func (c *Client) Metadata(ctx context.Context, req MetadataRequest) (*domain.BridgeQuote, error) {
	if req.Amount == nil {
		return nil, domain.ErrInvalidAmount
	}
	params := url.Values{}
	params.Set("inputToken", WireAddress(req.Input))
	params.Set("originChainId", req.Input.ChainID.String())
	params.Set("outputToken", WireAddress(req.Output))
	params.Set("destinationChainId", req.Output.ChainID.String())
	params.Set("amount", req.Amount.Dec())

	body := metadataBody{RecipientOnDestChain: req.Recipient}
	for _, cmd := range req.Commands {
		body.Commands = append(body.Commands, toCommandDTO(cmd))
	}

	var resp metadataResponse
	if err := common.DoJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/bridge/v1/metadata?"+params.Encode(), body, &resp); err != nil {
		return nil, err
	}
	if !resp.Supported {
		reason := resp.Reason
		if reason == "" {
			reason = "Bridge route not supported"
		}
		return nil, domain.NewBridgeTradeError(reason)
	}

	out, err := domain.ParseAmount(resp.OutputAmount)
	if err != nil {
		return nil, fmt.Errorf("bridge metadata output amount: %w", err)
	}
	fee := new(uint256.Int)
	if resp.BridgeFee != "" {
		if fee, err = domain.ParseAmount(resp.BridgeFee); err != nil {
			return nil, fmt.Errorf("bridge metadata fee: %w", err)
		}
	}
	return &domain.BridgeQuote{
		Supported:           true,
		Input:               req.Input,
		Output:              req.Output,
		InputAmount:         req.Amount.Clone(),
		OutputAmount:        out,
		Fee:                 fee,
		TransactionData:     resp.BridgeTransactionData,
		ExpectedFillTimeSec: resp.ExpectedFillTimeSec,
	}, nil
}

type calldataBody struct {
	Account     string       `json:"account"`
	Recipient   string       `json:"recipient,omitempty"`
	SlippageBps uint32       `json:"slippageBps"`
	Commands    []commandDTO `json:"commands"`
}

// Calldata builds the executable transaction of a composed order.
func (c *Client) Calldata(ctx context.Context, req domain.CalldataRequest) (*domain.CalldataResponse, error) {
	if req.Order == nil || len(req.Order.Commands) == 0 {
		return nil, domain.NewBridgeTradeError("order has no commands")
	}
	body := calldataBody{
		Account:     req.Account,
		Recipient:   req.Recipient,
		SlippageBps: req.SlippageBps,
	}
	for _, cmd := range req.Order.Commands {
		body.Commands = append(body.Commands, toCommandDTO(cmd))
	}

	var resp domain.CalldataResponse
	if err := common.DoJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/bridge/v1/calldata", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches the raw status payload of a submitted order.
func (c *Client) Status(ctx context.Context, chainName, txHash string) (*domain.BridgeStatusReport, error) {
	u := fmt.Sprintf("%s/bridge/v1/status/%s?txHash=%s", c.baseURL, url.PathEscape(chainName), url.QueryEscape(txHash))
	var resp domain.BridgeStatusReport
	if err := common.DoJSON(ctx, c.httpClient, http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type commandDTO struct {
	Type        string   `json:"type"`
	ChainID     uint64   `json:"chainId"`
	InputToken  string   `json:"inputToken"`
	OutputToken string   `json:"outputToken"`
	AmountIn    string   `json:"amountIn"`
	AmountOut   string   `json:"amountOut"`
	Pools       []string `json:"pools,omitempty"`
	Calldata    string   `json:"calldata,omitempty"`
}

func toCommandDTO(cmd domain.Command) commandDTO {
	dto := commandDTO{
		Type:        string(cmd.Type),
		ChainID:     uint64(cmd.ChainID),
		InputToken:  WireAddress(cmd.Input),
		OutputToken: WireAddress(cmd.Output),
		AmountIn:    domain.FormatAmount(cmd.AmountIn),
		AmountOut:   domain.FormatAmount(cmd.AmountOut),
	}
	if cmd.Trade != nil {
		for _, r := range cmd.Trade.Routes {
			for _, h := range r.Hops {
				dto.Pools = append(dto.Pools, h.Pool.Address)
			}
		}
	}
	if cmd.Bridge != nil {
		dto.Calldata = cmd.Bridge.TransactionData
	}
	return dto
}

// WireAddress is the token address the bridge API expects; native coins are
// the zero address on EVM chains and the wrapped mint on Solana.
func WireAddress(c domain.Currency) string {
	if !c.IsNative {
		return c.Address
	}
	if c.ChainID.IsSolana() {
		return common.Wrapped(c).Address
	}
	return zeroAddress
}
