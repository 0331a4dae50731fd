package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/strategy"
)

func openStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "db", "quote-engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadWithoutSnapshot(t *testing.T) {
	s := openStorage(t)
	cfg, err := s.LoadRoutingConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)

	at, err := s.SavedAt()
	require.NoError(t, err)
	assert.True(t, at.IsZero())
}

func TestRoutingConfigRoundTrip(t *testing.T) {
	s := openStorage(t)
	cfg := strategy.RoutingConfig{
		domain.ChainBSC: {
			"0xabc": {
				{Key: strategy.KeyFullMultiHop, Priority: 1, Override: map[string]any{"maxHops": float64(3)}},
				{Key: strategy.KeyXAPI, Priority: 2, IsShadow: true},
			},
		},
	}
	require.NoError(t, s.SaveRoutingConfig(cfg))

	got, err := s.LoadRoutingConfig()
	require.NoError(t, err)
	require.Contains(t, got, domain.ChainBSC)
	routes := got[domain.ChainBSC]["0xabc"]
	require.Len(t, routes, 2)
	assert.Equal(t, strategy.KeyFullMultiHop, routes[0].Key)
	assert.Equal(t, float64(3), routes[0].Override["maxHops"])
	assert.True(t, routes[1].IsShadow)

	at, err := s.SavedAt()
	require.NoError(t, err)
	assert.False(t, at.IsZero())
}

func TestStaleChainsDropped(t *testing.T) {
	s := openStorage(t)
	require.NoError(t, s.SaveRoutingConfig(strategy.RoutingConfig{
		domain.ChainBSC:      {"0xa": {{Key: strategy.KeyXAPI, Priority: 1}}},
		domain.ChainEthereum: {"0xb": {{Key: strategy.KeyXAPI, Priority: 1}}},
	}))
	require.NoError(t, s.SaveRoutingConfig(strategy.RoutingConfig{
		domain.ChainEthereum: {"0xb": {{Key: strategy.KeyFullMultiHop, Priority: 1}}},
	}))

	got, err := s.LoadRoutingConfig()
	require.NoError(t, err)
	assert.NotContains(t, got, domain.ChainBSC)
	assert.Equal(t, strategy.KeyFullMultiHop, got[domain.ChainEthereum]["0xb"][0].Key)
}
