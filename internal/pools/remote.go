package pools

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

type candidatesResponse struct {
	LastUpdated int64            `json:"lastUpdated"`
	Data        []SerializedPool `json:"data"`
}

// Remote fetches candidates from the pool aggregation API.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemote(baseURL string, httpClient *http.Client) *Remote {
	return &Remote{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (r *Remote) Fetch(ctx context.Context, a, b domain.Currency, chainID domain.ChainID, _ uint64, opts Options) ([]*domain.Pool, error) {
	opts = opts.withDefaults()
	protos := make([]string, len(opts.Protocols))
	for i, p := range opts.Protocols {
		protos[i] = string(p)
	}

	params := url.Values{}
	params.Set("addressA", common.Wrapped(a).Address)
	params.Set("addressB", common.Wrapped(b).Address)
	params.Set("chainId", strconv.FormatUint(uint64(chainID), 10))
	params.Set("protocol", strings.Join(protos, ","))
	params.Set("type", string(opts.Mode))

	var resp candidatesResponse
	if err := common.DoJSON(ctx, r.httpClient, http.MethodGet, r.baseURL+"/pools/candidates?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]*domain.Pool, 0, len(resp.Data))
	for _, sp := range resp.Data {
		p, err := sp.ToDomain(chainID)
		if err != nil {
			log.Debug().Err(err).Str("pool", sp.Address).Msg("[pools] skipping malformed remote pool")
			continue
		}
		if !hasProtocol(opts, p.Protocol) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
