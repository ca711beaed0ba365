package models

// Rate holds per-million-token prices for one model.
type Rate struct {
	InputUSD      float64
	OutputUSD     float64
	CacheWriteUSD float64
	CacheReadUSD  float64
}

// Cost converts token counts into USD at this rate.
func (r Rate) Cost(t TokenCounts) float64 {
	const mtok = 1_000_000
	return float64(t.Input)/mtok*r.InputUSD +
		float64(t.Output)/mtok*r.OutputUSD +
		float64(t.CacheWrite)/mtok*r.CacheWriteUSD +
		float64(t.CacheRead)/mtok*r.CacheReadUSD
}

// RateTable maps model identifiers to per-unit prices. It is read-only
// after load and only consulted when the source does not already supply a
// computed cost.
type RateTable struct {
	Rates    map[string]Rate
	Fallback Rate
}

// Lookup returns the rate for a model, falling back to the table default
// for unknown identifiers.
func (rt RateTable) Lookup(model string) Rate {
	if r, ok := rt.Rates[model]; ok {
		return r
	}
	return rt.Fallback
}

// Cost prices a model's token counts.
func (rt RateTable) Cost(model string, t TokenCounts) float64 {
	return rt.Lookup(model).Cost(t)
}

// DefaultRateTable returns the built-in price list. Prices are USD per
// million tokens and track the published API rates.
func DefaultRateTable() RateTable {
	sonnet := Rate{InputUSD: 3.00, OutputUSD: 15.00, CacheWriteUSD: 3.75, CacheReadUSD: 0.30}
	haiku := Rate{InputUSD: 0.80, OutputUSD: 4.00, CacheWriteUSD: 1.00, CacheReadUSD: 0.08}
	opus := Rate{InputUSD: 15.00, OutputUSD: 75.00, CacheWriteUSD: 18.75, CacheReadUSD: 1.50}

	return RateTable{
		Rates: map[string]Rate{
			"claude-sonnet-4-6":          sonnet,
			"claude-sonnet-4-5":          sonnet,
			"claude-sonnet-4-5-20250929": sonnet,
			"claude-haiku-4-5":           haiku,
			"claude-haiku-4-5-20251001":  haiku,
			"claude-opus-4-6":            opus,
		},
		Fallback: sonnet,
	}
}
