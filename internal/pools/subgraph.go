package pools

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

// ProtocolSource serves the pools of one protocol on one chain.
type ProtocolSource interface {
	Protocol() domain.Protocol
	ChainID() domain.ChainID
	Pools(ctx context.Context, a, b domain.Currency, mode domain.FetchMode) ([]*domain.Pool, error)
}

const lightFields = `id feeTier token0 { id symbol decimals } token1 { id symbol decimals }`
const fullFields = lightFields + ` reserve0 reserve1 liquidity sqrtPrice tick amp`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type subgraphToken struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

type subgraphPool struct {
	ID        string        `json:"id"`
	FeeTier   string        `json:"feeTier"`
	Token0    subgraphToken `json:"token0"`
	Token1    subgraphToken `json:"token1"`
	Reserve0  string        `json:"reserve0"`
	Reserve1  string        `json:"reserve1"`
	Liquidity string        `json:"liquidity"`
	SqrtPrice string        `json:"sqrtPrice"`
	Tick      *int32        `json:"tick"`
	Amp       string        `json:"amp"`
}

type graphQLResponse struct {
	Data struct {
		Pools []subgraphPool `json:"pools"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Subgraph is a ProtocolSource backed by a GraphQL indexer.
type Subgraph struct {
	protocol   domain.Protocol
	chainID    domain.ChainID
	url        string
	httpClient *http.Client
}

func NewSubgraph(protocol domain.Protocol, chainID domain.ChainID, url string, httpClient *http.Client) *Subgraph {
	return &Subgraph{protocol: protocol, chainID: chainID, url: url, httpClient: httpClient}
}

func (s *Subgraph) Protocol() domain.Protocol { return s.protocol }
func (s *Subgraph) ChainID() domain.ChainID   { return s.chainID }

func (s *Subgraph) Pools(ctx context.Context, a, b domain.Currency, mode domain.FetchMode) ([]*domain.Pool, error) {
	fields := fullFields
	if mode == domain.ModeLight {
		fields = lightFields
	}
	tokens := []string{
		strings.ToLower(common.Wrapped(a).Address),
		strings.ToLower(common.Wrapped(b).Address),
	}
	req := graphQLRequest{
		Query:     fmt.Sprintf(`query pools($tokens: [String!]) { pools(first: 50, where: { token0_in: $tokens, token1_in: $tokens }) { %s } }`, fields),
		Variables: map[string]any{"tokens": tokens},
	}

	var resp graphQLResponse
	if err := common.DoJSON(ctx, s.httpClient, http.MethodPost, s.url, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, &domain.NetworkError{Op: "graphql", URL: s.url, Err: fmt.Errorf("%s", resp.Errors[0].Message)}
	}

	out := make([]*domain.Pool, 0, len(resp.Data.Pools))
	for _, gp := range resp.Data.Pools {
		sp := SerializedPool{
			Address:      gp.ID,
			Protocol:     s.protocol,
			Token0:       SerializedToken{Address: gp.Token0.ID, Symbol: gp.Token0.Symbol, Decimals: uint8(parseUint32(gp.Token0.Decimals))},
			Token1:       SerializedToken{Address: gp.Token1.ID, Symbol: gp.Token1.Symbol, Decimals: uint8(parseUint32(gp.Token1.Decimals))},
			Fee:          parseUint32(gp.FeeTier),
			Reserve0:     gp.Reserve0,
			Reserve1:     gp.Reserve1,
			Liquidity:    gp.Liquidity,
			SqrtPriceX96: gp.SqrtPrice,
			Amplifier:    parseUint32(gp.Amp),
		}
		if gp.Tick != nil {
			sp.Tick = *gp.Tick
		}
		p, err := sp.ToDomain(s.chainID)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
