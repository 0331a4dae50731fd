// Package pools fetches candidate liquidity pools for a currency pair.
package pools

import (
	"context"
	"sort"
	"strings"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

type Options struct {
	Protocols []domain.Protocol
	Mode      domain.FetchMode
}

func (o Options) withDefaults() Options {
	if len(o.Protocols) == 0 {
		o.Protocols = domain.AllProtocols
	}
	if o.Mode == "" {
		o.Mode = domain.ModeFull
	}
	return o
}

// Fetcher returns the pools of one pair. A pair without pools is an empty
// slice, not an error; transport failures are *domain.NetworkError.
type Fetcher interface {
	Fetch(ctx context.Context, a, b domain.Currency, chainID domain.ChainID, blockNumber uint64, opts Options) ([]*domain.Pool, error)
}

type FetcherFunc func(ctx context.Context, a, b domain.Currency, chainID domain.ChainID, blockNumber uint64, opts Options) ([]*domain.Pool, error)

func (f FetcherFunc) Fetch(ctx context.Context, a, b domain.Currency, chainID domain.ChainID, blockNumber uint64, opts Options) ([]*domain.Pool, error) {
	return f(ctx, a, b, chainID, blockNumber, opts)
}

// CacheKey identifies a fetch independent of pair order and block number.
func CacheKey(a, b domain.Currency, chainID domain.ChainID, opts Options) string {
	opts = opts.withDefaults()
	ka, kb := common.Wrapped(a).Key(), common.Wrapped(b).Key()
	if kb < ka {
		ka, kb = kb, ka
	}
	protos := make([]string, len(opts.Protocols))
	for i, p := range opts.Protocols {
		protos[i] = string(p)
	}
	sort.Strings(protos)

	var sb strings.Builder
	sb.WriteString(chainID.String())
	sb.WriteByte('|')
	sb.WriteString(ka)
	sb.WriteByte('|')
	sb.WriteString(kb)
	sb.WriteByte('|')
	sb.WriteString(strings.Join(protos, ","))
	sb.WriteByte('|')
	sb.WriteString(string(opts.Mode))
	return sb.String()
}

// Dedupe merges pools reported more than once, keeping the first seen.
func Dedupe(in []*domain.Pool) []*domain.Pool {
	seen := make(map[string]struct{}, len(in))
	out := make([]*domain.Pool, 0, len(in))
	for _, p := range in {
		if p == nil {
			continue
		}
		k := p.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

func hasProtocol(opts Options, p domain.Protocol) bool {
	for _, q := range opts.Protocols {
		if q == p {
			return true
		}
	}
	return false
}
