package pools

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

const maxPairFetches = 8

// Pair is an unordered currency pair.
type Pair [2]domain.Currency

// CandidatePairs lists the direct pair plus every pair through the chain's
// base tokens: (in,base), (base,out) and (base,base'). Natives are replaced by
// their wrapped token and duplicates are dropped.
func CandidatePairs(in, out domain.Currency) []Pair {
	in, out = common.Wrapped(in), common.Wrapped(out)
	bases := common.BaseTokens(in.ChainID)

	seen := make(map[string]struct{})
	var pairs []Pair
	add := func(a, b domain.Currency) {
		if a.Equal(b) {
			return
		}
		if b.SortsBefore(a) {
			a, b = b, a
		}
		k := a.Key() + "|" + b.Key()
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		pairs = append(pairs, Pair{a, b})
	}

	add(in, out)
	for _, base := range bases {
		add(in, base)
		add(base, out)
	}
	for i, x := range bases {
		for _, y := range bases[i+1:] {
			add(x, y)
		}
	}
	return pairs
}

// FetchCandidates fetches every candidate pair concurrently and merges the
// pools. A failing pair is skipped; the call fails only when all pairs fail.
func FetchCandidates(ctx context.Context, f Fetcher, in, out domain.Currency, blockNumber uint64, opts Options) ([]*domain.Pool, error) {
	pairs := CandidatePairs(in, out)
	results := make([][]*domain.Pool, len(pairs))
	errs := make([]error, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPairFetches)
	for i, pair := range pairs {
		g.Go(func() error {
			pools, err := f.Fetch(gctx, pair[0], pair[1], in.ChainID, blockNumber, opts)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = pools
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []*domain.Pool
	failed := 0
	for i := range pairs {
		if errs[i] != nil {
			failed++
			log.Debug().Err(errs[i]).Str("pair", pairs[i][0].String()+"/"+pairs[i][1].String()).Msg("[pools] candidate pair fetch failed")
			continue
		}
		all = append(all, results[i]...)
	}
	if failed == len(pairs) && failed > 0 {
		return nil, errors.Join(errs...)
	}
	return Dedupe(all), nil
}
