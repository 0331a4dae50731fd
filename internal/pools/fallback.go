package pools

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

const (
	sourceRemote = "remote"
	sourceLocal  = "local"
)

// Fallback prefers the remote aggregation endpoint. When it errors or stays
// silent past the fallback timeout, the local sources are raced against it and
// the first successful answer wins; the loser is cancelled. Testnets only use
// the local sources.
type Fallback struct {
	remote  Fetcher
	local   Fetcher
	timeout time.Duration
}

func NewFallback(remote, local Fetcher, timeout time.Duration) *Fallback {
	return &Fallback{remote: remote, local: local, timeout: timeout}
}

type fetchResult struct {
	source string
	pools  []*domain.Pool
	err    error
}

func (f *Fallback) Fetch(ctx context.Context, a, b domain.Currency, chainID domain.ChainID, blockNumber uint64, opts Options) ([]*domain.Pool, error) {
	if common.IsTestnet(chainID) || f.remote == nil {
		pools, err := f.local.Fetch(ctx, a, b, chainID, blockNumber, opts)
		if err == nil {
			metrics.PoolSourceWins.WithLabelValues(sourceLocal).Inc()
		}
		return pools, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan fetchResult, 2)
	run := func(source string, fetcher Fetcher) {
		pools, err := fetcher.Fetch(ctx, a, b, chainID, blockNumber, opts)
		results <- fetchResult{source: source, pools: pools, err: err}
	}
	go run(sourceRemote, f.remote)

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	inflight := 1
	localStarted := false
	startLocal := func() {
		if localStarted {
			return
		}
		localStarted = true
		inflight++
		go run(sourceLocal, f.local)
	}

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			log.Warn().Uint64("chainId", uint64(chainID)).Dur("after", f.timeout).Msg("[pools] remote endpoint slow, racing local sources")
			startLocal()
		case res := <-results:
			inflight--
			if res.err == nil {
				metrics.PoolSourceWins.WithLabelValues(res.source).Inc()
				return res.pools, nil
			}
			metrics.PoolFetchErrors.WithLabelValues(res.source).Inc()
			lastErr = res.err
			if res.source == sourceRemote {
				log.Warn().Err(res.err).Uint64("chainId", uint64(chainID)).Msg("[pools] remote endpoint failed, using local sources")
				startLocal()
			}
			if inflight == 0 {
				return nil, lastErr
			}
		}
	}
}
