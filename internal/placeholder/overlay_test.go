package placeholder

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/loadable"
)

func order(out uint64) domain.Order {
	return &domain.ClassicOrder{Trade: &domain.Trade{OutputAmount: uint256.NewInt(out), InputAmount: uint256.NewInt(1)}}
}

func TestPendingGetsPlaceholder(t *testing.T) {
	o := New(8)
	q := &domain.QuoteQuery{Hash: "0x1", PlaceholderHash: "0xp"}

	first := o.Apply(q, loadable.Pending[domain.Order]())
	assert.False(t, first.HasValue(), "nothing stored yet")

	just := loadable.Just(order(42))
	assert.Equal(t, just, o.Apply(q, just))

	revalidating := &domain.QuoteQuery{Hash: "0x2", PlaceholderHash: "0xp"}
	res := o.Apply(revalidating, loadable.Pending[domain.Order]())
	require.True(t, res.IsPending())
	v, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, uint64(42), v.OutputAmount().Uint64())
	assert.True(t, res.HasFlag(loadable.FlagPlaceholder))
	h, _ := res.GetExtra(loadable.ExtraPlaceholderHash)
	assert.Equal(t, "0xp", h)
}

func TestOtherBucketsAndVariantsUntouched(t *testing.T) {
	o := New(8)
	o.Apply(&domain.QuoteQuery{PlaceholderHash: "0xp"}, loadable.Just(order(1)))

	other := o.Apply(&domain.QuoteQuery{PlaceholderHash: "0xq"}, loadable.Pending[domain.Order]())
	assert.False(t, other.HasValue())

	fail := o.Apply(&domain.QuoteQuery{PlaceholderHash: "0xp"}, loadable.Fail[domain.Order](domain.ErrNoValidRoute))
	assert.True(t, fail.IsFail())
	assert.False(t, fail.HasFlag(loadable.FlagPlaceholder))

	o.Forget("0xp")
	assert.Equal(t, 0, o.Len())
}
