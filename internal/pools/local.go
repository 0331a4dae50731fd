package pools

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

type sourceKey struct {
	protocol domain.Protocol
	chainID  domain.ChainID
}

// Local aggregates per-protocol sources. A failing source contributes no
// pools; the fetch fails only when every queried source failed.
type Local struct {
	mu      sync.RWMutex
	sources map[sourceKey]ProtocolSource
}

func NewLocal(sources ...ProtocolSource) *Local {
	l := &Local{sources: make(map[sourceKey]ProtocolSource)}
	for _, s := range sources {
		l.Register(s)
	}
	return l
}

func (l *Local) Register(s ProtocolSource) {
	l.mu.Lock()
	l.sources[sourceKey{s.Protocol(), s.ChainID()}] = s
	l.mu.Unlock()
}

func (l *Local) Fetch(ctx context.Context, a, b domain.Currency, chainID domain.ChainID, _ uint64, opts Options) ([]*domain.Pool, error) {
	opts = opts.withDefaults()

	l.mu.RLock()
	var selected []ProtocolSource
	for _, p := range opts.Protocols {
		if s, ok := l.sources[sourceKey{p, chainID}]; ok {
			selected = append(selected, s)
		}
	}
	l.mu.RUnlock()
	if len(selected) == 0 {
		return []*domain.Pool{}, nil
	}

	results := make([][]*domain.Pool, len(selected))
	errs := make([]error, len(selected))
	var g errgroup.Group
	for i, s := range selected {
		g.Go(func() error {
			pools, err := s.Pools(ctx, a, b, opts.Mode)
			if err != nil {
				metrics.PoolFetchErrors.WithLabelValues("local_" + string(s.Protocol())).Inc()
				log.Warn().Err(err).Str("protocol", string(s.Protocol())).Uint64("chainId", uint64(chainID)).Msg("[pools] local source failed")
				errs[i] = err
				return nil
			}
			results[i] = pools
			return nil
		})
	}
	_ = g.Wait()

	var all []*domain.Pool
	failed := 0
	for i := range selected {
		if errs[i] != nil {
			failed++
			continue
		}
		all = append(all, results[i]...)
	}
	if failed == len(selected) {
		return nil, errors.Join(errs...)
	}
	return Dedupe(all), nil
}
