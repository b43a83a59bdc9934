package value

type MatchMethod string

const (
	MatchMethodKeyExact       MatchMethod = "key_exact"
	MatchMethodSetNumberExact MatchMethod = "set_number_exact"
)

// Score is the mapping confidence assigned to a tier.
func (m MatchMethod) Score() float64 {
	switch m {
	case MatchMethodKeyExact:
		return 1.00
	case MatchMethodSetNumberExact:
		return 0.98
	default:
		return 0
	}
}

type UnmatchedReason string

const (
	UnmatchedNoKey        UnmatchedReason = "no_key"
	UnmatchedNoMarketItem UnmatchedReason = "no_market_item"
	UnmatchedAmbiguousKey UnmatchedReason = "ambiguous_key"
)
