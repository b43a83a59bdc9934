package value

// Liquidity buckets the number of recent sales for an item.
type Liquidity string

const (
	LiquidityNone   Liquidity = "none"
	LiquidityLow    Liquidity = "low"
	LiquidityMedium Liquidity = "medium"
	LiquidityHigh   Liquidity = "high"
)

func LiquidityFromSales(sales int) Liquidity {
	switch {
	case sales >= 10:
		return LiquidityHigh
	case sales >= 3:
		return LiquidityMedium
	case sales >= 1:
		return LiquidityLow
	default:
		return LiquidityNone
	}
}

// IsThin reports whether price moves on this tier need a human look.
func (l Liquidity) IsThin() bool {
	return l == LiquidityNone || l == LiquidityLow || l == ""
}

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

func ConfidenceFromSamples(samples int) Confidence {
	switch {
	case samples >= 10:
		return ConfidenceHigh
	case samples >= 5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
