package crosschain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/quote-engine/internal/bridge"
	"github.com/hxuan190/quote-engine/internal/domain"
)

var (
	usdcEth = domain.Token(domain.ChainEthereum, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "USDC", 6)
	usdtEth = domain.Token(domain.ChainEthereum, "0xdAC17F958D2ee523a2206206994597C13D831ec7", "USDT", 6)
	pepeEth = domain.Token(domain.ChainEthereum, "0x6982508145454Ce325dDbE47a25d4ec3d2311933", "PEPE", 18)
	usdcBsc = domain.Token(domain.ChainBSC, "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", "USDC", 18)
	usdtBsc = domain.Token(domain.ChainBSC, "0x55d398326f99059fF775485246999027B3197955", "USDT", 18)
	cakeBsc = domain.Token(domain.ChainBSC, "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82", "CAKE", 18)
)

func lane(from, to domain.Currency) domain.BridgeRoute {
	return domain.BridgeRoute{
		OriginChainID: from.ChainID, DestinationChainID: to.ChainID,
		OriginToken: from.Address, DestinationToken: to.Address, DestinationTokenSymbol: to.Symbol,
	}
}

type fakeRoutes struct {
	routes []domain.BridgeRoute
	err    error
}

func (f fakeRoutes) Routes(context.Context, domain.ChainID, domain.ChainID, string, string) ([]domain.BridgeRoute, error) {
	return f.routes, f.err
}

// fakeBridge keeps 99.9% of the input and charges 1000 units per attached
// command.
type fakeBridge struct {
	mu    sync.Mutex
	calls []bridge.MetadataRequest
}

func (f *fakeBridge) Metadata(_ context.Context, req bridge.MetadataRequest) (*domain.BridgeQuote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	out := domain.ScaleDecimals(req.Amount, req.Input.Decimals, req.Output.Decimals)
	out.Mul(out, uint256.NewInt(999)).Div(out, uint256.NewInt(1000))
	out.Sub(out, uint256.NewInt(uint64(1000*len(req.Commands))))
	return &domain.BridgeQuote{
		Supported: true, Input: req.Input, Output: req.Output,
		InputAmount: req.Amount, OutputAmount: out, Fee: new(uint256.Int), ExpectedFillTimeSec: 30,
	}, nil
}

func (f *fakeBridge) withCommands() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c.Commands) > 0 {
			n++
		}
	}
	return n
}

// fakeSwaps prices in -> out at a fixed rate of whole units.
type fakeSwaps struct {
	rates map[string][2]uint64
}

func (f fakeSwaps) SwapQuote(_ context.Context, _ *domain.QuoteQuery, in, out domain.Currency, amount *uint256.Int) (*domain.Trade, error) {
	r, ok := f.rates[in.Key()+">"+out.Key()]
	if !ok {
		return nil, domain.ErrNoValidRoute
	}
	v := domain.ScaleDecimals(amount, in.Decimals, out.Decimals)
	v.Mul(v, uint256.NewInt(r[0])).Div(v, uint256.NewInt(r[1]))
	return &domain.Trade{
		TradeType: domain.ExactInput, Input: in, Output: out,
		InputAmount: amount, OutputAmount: v, PriceImpactBps: 10,
	}, nil
}

func rate(in, out domain.Currency, num, den uint64) (string, [2]uint64) {
	return in.Key() + ">" + out.Key(), [2]uint64{num, den}
}

func rates(entries ...func() (string, [2]uint64)) map[string][2]uint64 {
	m := make(map[string][2]uint64)
	for _, e := range entries {
		k, v := e()
		m[k] = v
	}
	return m
}

func r(in, out domain.Currency, num, den uint64) func() (string, [2]uint64) {
	return func() (string, [2]uint64) { return rate(in, out, num, den) }
}

var tokens = NewTokenMap(usdcEth, usdtEth, pepeEth, usdcBsc, usdtBsc, cakeBsc)

func crossQuery(in, out domain.Currency, amount *uint256.Int) *domain.QuoteQuery {
	return &domain.QuoteQuery{Input: &in, Output: &out, Amount: amount, SlippageBps: 100, Account: "0xabc", Hash: "0xq"}
}

func TestClassify(t *testing.T) {
	routes := []domain.BridgeRoute{lane(usdcEth, usdcBsc)}
	assert.Equal(t, domain.PatternBridgeOnly, Classify(routes, usdcEth, usdcBsc))
	assert.Equal(t, domain.PatternBridgeToSwap, Classify(routes, usdcEth, cakeBsc))
	assert.Equal(t, domain.PatternSwapToBridge, Classify(routes, pepeEth, usdcBsc))
	assert.Equal(t, domain.PatternSwapToBridgeToSwap, Classify(routes, pepeEth, cakeBsc))

	// origin and destination supported by different lanes
	split := []domain.BridgeRoute{lane(usdcEth, usdtBsc), lane(usdtEth, usdcBsc)}
	assert.Equal(t, domain.PatternBridgeToSwap, Classify(split, usdcEth, usdcBsc))
}

func TestClassifyNativeMatchesZeroAddress(t *testing.T) {
	eth := domain.Native(domain.ChainEthereum, "ETH", 18)
	bnb := domain.Native(domain.ChainBSC, "BNB", 18)
	routes := []domain.BridgeRoute{{
		OriginChainID: domain.ChainEthereum, DestinationChainID: domain.ChainBSC,
		OriginToken: zeroAddress, DestinationToken: zeroAddress,
	}}
	assert.Equal(t, domain.PatternBridgeOnly, Classify(routes, eth, bnb))
}

func TestNoRoutesFails(t *testing.T) {
	q := NewQuoter(fakeRoutes{}, &fakeBridge{}, fakeSwaps{}, tokens)
	_, err := q.Quote(context.Background(), crossQuery(usdcEth, usdcBsc, uint256.NewInt(1e6)))
	var bte *domain.BridgeTradeError
	require.ErrorAs(t, err, &bte)
	assert.Equal(t, "No available routes", bte.Reason)
}

func TestRouteDiscoveryErrorPropagates(t *testing.T) {
	boom := errors.New("routes down")
	q := NewQuoter(fakeRoutes{err: boom}, &fakeBridge{}, fakeSwaps{}, tokens)
	_, err := q.Quote(context.Background(), crossQuery(usdcEth, usdcBsc, uint256.NewInt(1e6)))
	assert.ErrorIs(t, err, boom)
}

func TestSameChainRejected(t *testing.T) {
	_, err := NewQuoteContext([]domain.BridgeRoute{lane(usdcEth, usdcBsc)}, crossQuery(usdcEth, usdtEth, uint256.NewInt(1)), tokens, nil, nil)
	var bte *domain.BridgeTradeError
	assert.ErrorAs(t, err, &bte)
}

func TestBridgeOnly(t *testing.T) {
	b := &fakeBridge{}
	q := NewQuoter(fakeRoutes{routes: []domain.BridgeRoute{lane(usdcEth, usdcBsc)}}, b, fakeSwaps{}, tokens)
	order, err := q.Quote(context.Background(), crossQuery(usdcEth, usdcBsc, uint256.NewInt(1_000_000)))
	require.NoError(t, err)

	assert.Equal(t, domain.PatternBridgeOnly, order.Pattern)
	require.Len(t, order.Commands, 1)
	want := uint256.NewInt(999_000_000_000_000_000)
	assert.Equal(t, want, order.ExpectedAmountOut)
	assert.Equal(t, want, order.MinAmountOut, "bridge output is not slippage adjusted")
	assert.Equal(t, 30, order.ExpectedFillTimeSec)
	assert.Len(t, b.calls, 1)
}

func TestBridgeToSwap(t *testing.T) {
	b := &fakeBridge{}
	swaps := fakeSwaps{rates: rates(r(usdcBsc, cakeBsc, 1, 2))}
	q := NewQuoter(fakeRoutes{routes: []domain.BridgeRoute{lane(usdcEth, usdcBsc)}}, b, swaps, tokens)
	order, err := q.Quote(context.Background(), crossQuery(usdcEth, cakeBsc, uint256.NewInt(1_000_000)))
	require.NoError(t, err)

	assert.Equal(t, domain.PatternBridgeToSwap, order.Pattern)
	require.Len(t, order.Commands, 2)
	assert.True(t, order.Commands[0].IsBridge())
	assert.Equal(t, 1, b.withCommands(), "bridge re-quoted with the destination swap attached")

	bridged := uint256.NewInt(999_000_000_000_000_000 - 1000)
	expected := new(uint256.Int).Div(bridged, uint256.NewInt(2))
	assert.Equal(t, expected, order.ExpectedAmountOut)
	assert.Equal(t, domain.MinimumAmountOut(expected, 100), order.MinAmountOut)
	assert.Equal(t, order.MinAmountOut, order.Commands[1].AmountOut)
}

func TestSwapToBridge(t *testing.T) {
	b := &fakeBridge{}
	swaps := fakeSwaps{rates: rates(r(pepeEth, usdcEth, 1, 1_000_000))}
	q := NewQuoter(fakeRoutes{routes: []domain.BridgeRoute{lane(usdcEth, usdcBsc)}}, b, swaps, tokens)
	amount := new(uint256.Int).Mul(uint256.NewInt(1_000_000), uint256.NewInt(1e18))
	order, err := q.Quote(context.Background(), crossQuery(pepeEth, usdcBsc, amount))
	require.NoError(t, err)

	assert.Equal(t, domain.PatternSwapToBridge, order.Pattern)
	require.Len(t, order.Commands, 2)
	require.Len(t, b.calls, 2, "bridge quoted on theoretical and minimum swap output")
	assert.NotEqual(t, b.calls[0].Amount, b.calls[1].Amount)

	assert.Equal(t, uint256.NewInt(999_000_000_000_000_000), order.ExpectedAmountOut)
	assert.True(t, order.MinAmountOut.Lt(order.ExpectedAmountOut))
	assert.Equal(t, uint256.NewInt(990_000), order.Commands[0].AmountOut, "swap output rewritten to its minimum")
}

func TestSwapToBridgeToSwapPicksBestLane(t *testing.T) {
	b := &fakeBridge{}
	swaps := fakeSwaps{rates: rates(
		r(pepeEth, usdcEth, 1, 1_000_000),
		r(pepeEth, usdtEth, 1, 1_000_000),
		r(usdcBsc, cakeBsc, 1, 2),
		r(usdtBsc, cakeBsc, 1, 1),
	)}
	routes := []domain.BridgeRoute{lane(usdcEth, usdcBsc), lane(usdtEth, usdtBsc)}
	q := NewQuoter(fakeRoutes{routes: routes}, b, swaps, tokens)
	amount := new(uint256.Int).Mul(uint256.NewInt(1_000_000), uint256.NewInt(1e18))
	order, err := q.Quote(context.Background(), crossQuery(pepeEth, cakeBsc, amount))
	require.NoError(t, err)

	assert.Equal(t, domain.PatternSwapToBridgeToSwap, order.Pattern)
	require.Len(t, order.Commands, 3)
	assert.True(t, order.Commands[1].IsBridge())
	assert.True(t, order.Commands[1].Input.Equal(usdtEth), "USDT lane yields more CAKE")
	assert.True(t, order.Commands[2].Output.Equal(cakeBsc))
	assert.True(t, order.MinAmountOut.Lt(order.ExpectedAmountOut))
}

func TestSwapToBridgeToSwapFailures(t *testing.T) {
	routes := []domain.BridgeRoute{lane(usdcEth, usdcBsc)}
	amount := uint256.NewInt(1e18)

	q := NewQuoter(fakeRoutes{routes: routes}, &fakeBridge{}, fakeSwaps{}, tokens)
	_, err := q.Quote(context.Background(), crossQuery(pepeEth, cakeBsc, amount))
	assert.ErrorIs(t, err, domain.ErrNoValidRoute, "no origin swap")

	swaps := fakeSwaps{rates: rates(r(pepeEth, usdcEth, 1, 1))}
	q = NewQuoter(fakeRoutes{routes: routes}, &fakeBridge{}, swaps, tokens)
	_, err = q.Quote(context.Background(), crossQuery(pepeEth, cakeBsc, amount))
	var bte *domain.BridgeTradeError
	assert.ErrorAs(t, err, &bte, "no destination swap")
}

// swapErrs fails every leg that starts on chain with err and prices the
// rest with next.
type swapErrs struct {
	next  fakeSwaps
	chain domain.ChainID
	err   error
}

func (f swapErrs) SwapQuote(ctx context.Context, q *domain.QuoteQuery, in, out domain.Currency, amount *uint256.Int) (*domain.Trade, error) {
	if in.ChainID == f.chain {
		return nil, f.err
	}
	return f.next.SwapQuote(ctx, q, in, out, amount)
}

func TestSwapToBridgeToSwapErrorPrecedence(t *testing.T) {
	routes := []domain.BridgeRoute{lane(usdcEth, usdcBsc), lane(usdtEth, usdtBsc)}
	amount := uint256.NewInt(1e18)
	originOK := fakeSwaps{rates: rates(r(pepeEth, usdcEth, 1, 1), r(pepeEth, usdtEth, 1, 1))}
	timeout := domain.NewTimeoutError("strategy", time.Second)

	cases := []struct {
		name  string
		swaps SwapQuoter
		check func(t *testing.T, err error)
	}{
		{
			name:  "origin misconfiguration",
			swaps: swapErrs{chain: pepeEth.ChainID, err: domain.Misconfigured("unknown strategy %q", "nope")},
			check: func(t *testing.T, err error) { assert.True(t, domain.IsMisconfiguration(err)) },
		},
		{
			name:  "destination misconfiguration",
			swaps: swapErrs{next: originOK, chain: cakeBsc.ChainID, err: domain.Misconfigured("unknown strategy %q", "nope")},
			check: func(t *testing.T, err error) { assert.True(t, domain.IsMisconfiguration(err)) },
		},
		{
			name:  "origin timeout",
			swaps: swapErrs{chain: pepeEth.ChainID, err: timeout},
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsTimeout(err))
				assert.NotErrorIs(t, err, domain.ErrNoValidRoute)
			},
		},
		{
			name:  "destination timeout",
			swaps: swapErrs{next: originOK, chain: cakeBsc.ChainID, err: timeout},
			check: func(t *testing.T, err error) {
				var bte *domain.BridgeTradeError
				require.ErrorAs(t, err, &bte)
				assert.True(t, domain.IsTimeout(err))
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := NewQuoter(fakeRoutes{routes: routes}, &fakeBridge{}, tc.swaps, tokens)
			_, err := q.Quote(context.Background(), crossQuery(pepeEth, cakeBsc, amount))
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestMissingTokenMapping(t *testing.T) {
	unknown := domain.Token(domain.ChainBSC, "0x1111111111111111111111111111111111111111", "???", 18)
	routes := []domain.BridgeRoute{lane(usdcEth, unknown)}
	q := NewQuoter(fakeRoutes{routes: routes}, &fakeBridge{}, fakeSwaps{}, tokens)
	_, err := q.Quote(context.Background(), crossQuery(usdcEth, cakeBsc, uint256.NewInt(1)))
	var bte *domain.BridgeTradeError
	require.ErrorAs(t, err, &bte)
	assert.Contains(t, bte.Reason, "Missing token mapping")
}

func TestConstructFinalQuoteRequiresOneBridge(t *testing.T) {
	bq := &domain.BridgeQuote{Input: usdcEth, Output: usdcBsc, InputAmount: uint256.NewInt(1), OutputAmount: uint256.NewInt(1)}
	cmds := []domain.Command{domain.BridgeCommand(bq), domain.BridgeCommand(bq)}
	_, err := ConstructFinalQuote(cmds, cmds, 50)
	assert.True(t, domain.IsMisconfiguration(err))

	swap := domain.SwapCommand(&domain.Trade{Input: usdcEth, Output: usdtEth, InputAmount: uint256.NewInt(1), OutputAmount: uint256.NewInt(1)})
	_, err = ConstructFinalQuote([]domain.Command{swap}, []domain.Command{swap}, 50)
	assert.True(t, domain.IsMisconfiguration(err))
}
