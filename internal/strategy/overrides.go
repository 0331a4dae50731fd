package strategy

import (
	"github.com/hxuan190/quote-engine/internal/domain"
)

// overrides are per-route query adjustments. Unset fields keep the query's
// value.
type overrides struct {
	maxHops   *int
	maxSplits *int
	flags     map[string]bool
}

func (o overrides) empty() bool {
	return o.maxHops == nil && o.maxSplits == nil && len(o.flags) == 0
}

func (o overrides) apply(q *domain.QuoteQuery) {
	if o.maxHops != nil {
		q.MaxHops = *o.maxHops
	}
	if o.maxSplits != nil {
		q.MaxSplits = *o.maxSplits
	}
	for name, v := range o.flags {
		switch name {
		case "v2":
			q.V2 = v
		case "v3":
			q.V3 = v
		case "stable":
			q.Stable = v
		case "infinity":
			q.Infinity = v
		case "x":
			q.X = v
		}
	}
}

func parseOverrides(raw map[string]any) (overrides, error) {
	var o overrides
	for name, v := range raw {
		switch name {
		case "maxHops", "maxSplits":
			f, ok := v.(float64)
			if !ok || f < 0 {
				return o, domain.Misconfigured("override %q must be a non-negative number", name)
			}
			n := int(f)
			if name == "maxHops" {
				o.maxHops = &n
			} else {
				o.maxSplits = &n
			}
		case "v2", "v3", "stable", "infinity", "x":
			b, ok := v.(bool)
			if !ok {
				return o, domain.Misconfigured("override %q must be a boolean", name)
			}
			if o.flags == nil {
				o.flags = make(map[string]bool)
			}
			o.flags[name] = b
		default:
			return o, domain.Misconfigured("unknown strategy override %q", name)
		}
	}
	return o, nil
}
