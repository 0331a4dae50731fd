package strategy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/pools"
	"github.com/hxuan190/quote-engine/internal/worker"
)

var (
	eth  = domain.Native(domain.ChainEthereum, "ETH", 18)
	usdc = domain.Token(domain.ChainEthereum, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "USDC", 6)
	pepe = domain.Token(domain.ChainEthereum, "0x6982508145454Ce325dDbE47a25d4ec3d2311933", "PEPE", 18)
)

const routingDoc = `{
  "1": {
    "0x6982508145454Ce325dDbE47a25d4ec3d2311933": [
      {"key": "full-multi-hop", "priority": 1, "overrides": {"maxHops": 1, "v2": false}},
      {"key": "x-api", "priority": 2, "isShadow": true}
    ]
  },
  "mainnet": {}
}`

func query(in, out domain.Currency) *domain.QuoteQuery {
	return &domain.QuoteQuery{
		Input: &in, Output: &out, Amount: uint256.NewInt(1e18),
		MaxHops: 2, MaxSplits: 2, V2: true, V3: true,
	}
}

func nopStrategy(key Key) Strategy {
	return Func{Name: key, Fn: func(context.Context, *domain.QuoteQuery) (domain.Order, error) { return nil, nil }}
}

func defaultRegistry() *Registry {
	return NewRegistry(nopStrategy(KeySingleHopLight), nopStrategy(KeyRoutingSDK), nopStrategy(KeyXAPI), nopStrategy(KeyFullMultiHop))
}

type memStore struct {
	saved RoutingConfig
	err   error
}

func (m *memStore) SaveRoutingConfig(cfg RoutingConfig) error {
	m.saved = cfg
	return nil
}

func (m *memStore) LoadRoutingConfig() (RoutingConfig, error) {
	return m.saved, m.err
}

func TestParseRoutingConfig(t *testing.T) {
	cfg, err := ParseRoutingConfig([]byte(routingDoc))
	require.NoError(t, err)
	require.Len(t, cfg, 1)

	routes, ok := cfg.Lookup(pepe, usdc)
	require.True(t, ok)
	assert.Equal(t, KeyFullMultiHop, routes[0].Key)

	routes, ok = cfg.Lookup(usdc, pepe)
	require.True(t, ok, "output side matches too")
	assert.Len(t, routes, 2)

	_, ok = cfg.Lookup(eth, usdc)
	assert.False(t, ok)
}

func TestConfigLoaderFetchesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/cms-config/tokens-routing-config.json", r.URL.Path)
		_, _ = w.Write([]byte(routingDoc))
	}))
	defer srv.Close()

	store := &memStore{}
	l := NewConfigLoader(srv.URL, common.NewHTTPClient(time.Second), store)
	cfg := l.Load(context.Background())
	_ = l.Load(context.Background())

	assert.Equal(t, int32(1), hits.Load())
	want, err := ParseRoutingConfig([]byte(routingDoc))
	require.NoError(t, err)
	assert.Equal(t, want, cfg, "served document is parsed as is")
	assert.Equal(t, cfg, store.saved, "successful fetch is persisted")

	l.Invalidate()
	_ = l.Load(context.Background())
	assert.Equal(t, int32(2), hits.Load())
}

func TestConfigLoaderFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	snapshot, err := ParseRoutingConfig([]byte(routingDoc))
	require.NoError(t, err)

	withSnapshot := NewConfigLoader(srv.URL, common.NewHTTPClient(time.Second), &memStore{saved: snapshot})
	assert.Equal(t, snapshot, withSnapshot.Load(context.Background()))

	broken := NewConfigLoader(srv.URL, common.NewHTTPClient(time.Second), &memStore{err: errors.New("disk")})
	assert.Empty(t, broken.Load(context.Background()))

	bare := NewConfigLoader(srv.URL, common.NewHTTPClient(time.Second), nil)
	assert.NotNil(t, bare.Load(context.Background()))
	assert.Empty(t, bare.Load(context.Background()))
}

func TestConfigLoaderMalformedFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"1": [`))
	}))
	defer srv.Close()

	snapshot, err := ParseRoutingConfig([]byte(routingDoc))
	require.NoError(t, err)
	store := &memStore{saved: snapshot}
	l := NewConfigLoader(srv.URL, common.NewHTTPClient(time.Second), store)
	assert.Equal(t, snapshot, l.Load(context.Background()))
	assert.Equal(t, snapshot, store.saved, "snapshot not overwritten")
}

func TestResolveDefaults(t *testing.T) {
	r := NewResolver(defaultRegistry(), nil)
	bound, err := r.Resolve(context.Background(), query(eth, usdc))
	require.NoError(t, err)

	tiers := Tiers(bound)
	require.Len(t, tiers, 2)
	assert.Len(t, tiers[0], 3)
	assert.Equal(t, KeyFullMultiHop, tiers[1][0].Key())
}

func TestResolveOverrides(t *testing.T) {
	cfg, err := ParseRoutingConfig([]byte(routingDoc))
	require.NoError(t, err)
	r := NewResolver(defaultRegistry(), NewStaticConfigLoader(cfg))

	q := query(usdc, pepe)
	bound, err := r.Resolve(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, bound, 2)

	assert.Equal(t, KeyFullMultiHop, bound[0].Key())
	adjusted := bound[0].Query(q)
	assert.Equal(t, 1, adjusted.MaxHops)
	assert.False(t, adjusted.V2)
	assert.True(t, adjusted.V3)
	assert.Equal(t, 2, q.MaxHops, "original query untouched")

	assert.True(t, bound[1].IsShadow)
	assert.Same(t, q, bound[1].Query(q))
}

func TestResolveUnknownKeyIsMisconfiguration(t *testing.T) {
	cfg := RoutingConfig{domain.ChainEthereum: {TokenKey(usdc): {{Key: "split-everything", Priority: 1}}}}
	r := NewResolver(defaultRegistry(), NewStaticConfigLoader(cfg))
	_, err := r.Resolve(context.Background(), query(usdc, pepe))
	assert.True(t, domain.IsMisconfiguration(err))

	cfg = RoutingConfig{domain.ChainEthereum: {TokenKey(usdc): {{Key: KeyXAPI, Priority: 1, Override: map[string]any{"turbo": true}}}}}
	r = NewResolver(defaultRegistry(), NewStaticConfigLoader(cfg))
	_, err = r.Resolve(context.Background(), query(usdc, pepe))
	assert.True(t, domain.IsMisconfiguration(err))
}

func TestTokenKeyUsesWrappedNative(t *testing.T) {
	assert.Equal(t, TokenKey(common.Wrapped(eth)), TokenKey(eth))
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", TokenKey(usdc))
}

type fakeFinder struct {
	req   worker.Request
	trade *domain.Trade
	err   error
}

func (f *fakeFinder) GetBestTrade(_ context.Context, req worker.Request) (*domain.Trade, error) {
	f.req = req
	return f.trade, f.err
}

func (f *fakeFinder) GetBestTradeOffchain(_ context.Context, req worker.Request) (*domain.Trade, error) {
	f.req = req
	return f.trade, f.err
}

func testPool(a, b domain.Currency) *domain.Pool {
	return &domain.Pool{Address: "0xpool", Protocol: domain.ProtocolV2, ChainID: a.ChainID, Token0: a, Token1: b, Fee: 3000}
}

func TestSingleHopLight(t *testing.T) {
	var modes []domain.FetchMode
	fetcher := pools.FetcherFunc(func(_ context.Context, a, b domain.Currency, _ domain.ChainID, _ uint64, opts pools.Options) ([]*domain.Pool, error) {
		modes = append(modes, opts.Mode)
		return []*domain.Pool{testPool(a, b)}, nil
	})
	finder := &fakeFinder{trade: &domain.Trade{OutputAmount: uint256.NewInt(1800e6)}}

	order, err := NewSingleHopLight(fetcher, finder).Quote(context.Background(), query(eth, usdc))
	require.NoError(t, err)
	assert.Equal(t, []domain.FetchMode{domain.ModeLight, domain.ModeFull}, modes)
	assert.Equal(t, 1, finder.req.MaxHops)
	assert.Equal(t, 1, finder.req.MaxSplits)
	assert.Equal(t, string(KeySingleHopLight), domain.TradeOf(order).Source)
}

func TestSingleHopLightNoDirectPool(t *testing.T) {
	calls := 0
	fetcher := pools.FetcherFunc(func(context.Context, domain.Currency, domain.Currency, domain.ChainID, uint64, pools.Options) ([]*domain.Pool, error) {
		calls++
		return nil, nil
	})
	_, err := NewSingleHopLight(fetcher, &fakeFinder{}).Quote(context.Background(), query(eth, pepe))
	assert.ErrorIs(t, err, domain.ErrNoPoolFound)
	assert.Equal(t, 1, calls, "full fetch skipped")
}

func TestAMMStrategiesSkipWhenProtocolsDisabled(t *testing.T) {
	q := query(eth, usdc)
	q.V2, q.V3 = false, false
	fetcher := pools.FetcherFunc(func(context.Context, domain.Currency, domain.Currency, domain.ChainID, uint64, pools.Options) ([]*domain.Pool, error) {
		t.Fatal("no fetch expected")
		return nil, nil
	})
	for _, s := range []Strategy{NewSingleHopLight(fetcher, &fakeFinder{}), NewFullMultiHop(fetcher, &fakeFinder{}), NewRoutingSDK(fetcher, &fakeFinder{})} {
		order, err := s.Quote(context.Background(), q)
		assert.NoError(t, err, s.Key())
		assert.Nil(t, order, s.Key())
	}
}

func TestFullMultiHopUsesCandidatePairs(t *testing.T) {
	var pairs atomic.Int32
	fetcher := pools.FetcherFunc(func(_ context.Context, a, b domain.Currency, _ domain.ChainID, _ uint64, _ pools.Options) ([]*domain.Pool, error) {
		pairs.Add(1)
		return []*domain.Pool{testPool(a, b)}, nil
	})
	finder := &fakeFinder{trade: &domain.Trade{OutputAmount: uint256.NewInt(1)}}
	order, err := NewFullMultiHop(fetcher, finder).Quote(context.Background(), query(eth, pepe))
	require.NoError(t, err)
	assert.Greater(t, pairs.Load(), int32(1))
	assert.Equal(t, 2, finder.req.MaxHops)
	assert.Equal(t, string(KeyFullMultiHop), domain.TradeOf(order).Source)
}

func TestRoutingSDKWithoutAPIDoesNotApply(t *testing.T) {
	order, err := NewRoutingSDK(nil, nil).Quote(context.Background(), query(eth, usdc))
	assert.NoError(t, err)
	assert.Nil(t, order)
}

type fakeX struct{ order *domain.XOrder }

func (f fakeX) Quote(context.Context, *domain.QuoteQuery) (*domain.XOrder, error) {
	return f.order, nil
}

func TestXAPIRequiresFlag(t *testing.T) {
	s := NewXAPI(fakeX{order: &domain.XOrder{Trade: &domain.Trade{}}})
	q := query(eth, usdc)

	order, err := s.Quote(context.Background(), q)
	require.NoError(t, err)
	assert.Nil(t, order)

	q.X = true
	order, err = s.Quote(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderX, order.Kind())
	assert.Equal(t, string(KeyXAPI), domain.TradeOf(order).Source)
}
