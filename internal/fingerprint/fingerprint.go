// Package fingerprint derives stable content hashes from quote queries.
//
// A fingerprint covers only the fields that change which routes are valid:
// currencies, amount, trade type, hop/split limits, protocol flags, account,
// the disabled toggle and the revalidation nonce. Slippage, gas limit, block
// numbers, timestamps and the hash fields themselves are excluded.
package fingerprint

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// DefaultPlaceholderWindow is the bucket width of placeholder hashes.
const DefaultPlaceholderWindow = 120 * time.Second

// Query returns the 0x-prefixed keccak-256 fingerprint of q.
func Query(q *domain.QuoteQuery) string {
	fields := canonicalFields(q)
	fields["nonce"] = strconv.FormatUint(q.Nonce, 10)
	return hash(fields)
}

// Placeholder returns the time-bucketed placeholder hash of q at createTime.
// The nonce is left out so a revalidation within one window keeps showing
// the previous order.
func Placeholder(q *domain.QuoteQuery, createTime time.Time, window time.Duration) string {
	if window <= 0 {
		window = DefaultPlaceholderWindow
	}
	fields := canonicalFields(q)
	fields["bucket"] = strconv.FormatInt(createTime.UnixMilli()/window.Milliseconds(), 10)
	return hash(fields)
}

func canonicalFields(q *domain.QuoteQuery) map[string]string {
	f := map[string]string{
		"tradeType": q.TradeType.String(),
		"maxHops":   strconv.Itoa(q.MaxHops),
		"maxSplits": strconv.Itoa(q.MaxSplits),
		"v2":        strconv.FormatBool(q.V2),
		"v3":        strconv.FormatBool(q.V3),
		"stable":    strconv.FormatBool(q.Stable),
		"infinity":  strconv.FormatBool(q.Infinity),
		"x":         strconv.FormatBool(q.X),
		"account":   strings.ToLower(q.Account),
		"disabled":  strconv.FormatBool(q.Disabled),
		"amount":    "",
	}
	if q.Amount != nil {
		f["amount"] = q.Amount.Dec()
	}

	in, out := currencyKey(q.Input), currencyKey(q.Output)
	if q.IsCrossChain() {
		f["origin"] = in
		f["destination"] = out
		return f
	}
	// Same-chain pairs are unordered; the direction is kept separately so
	// A->B and B->A still differ.
	if in <= out {
		f["pair"] = in + "|" + out
		f["direction"] = "0"
	} else {
		f["pair"] = out + "|" + in
		f["direction"] = "1"
	}
	return f
}

func currencyKey(c *domain.Currency) string {
	if c == nil {
		return "-"
	}
	return c.Key()
}

func hash(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
		b.WriteByte(';')
	}
	return crypto.Keccak256Hash([]byte(b.String())).Hex()
}
