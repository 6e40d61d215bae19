// Package scoring computes the composite value-investing score of a stock.
// All functions are deterministic and perform no I/O.
package scoring

// Weights are the relative importance of each component in the composite.
// They need not sum to 1: the composite divides by the sum of the weights of
// the components that are actually present.
type Weights struct {
	PERatio    float64
	ROE        float64
	Analyst    float64
	RSI        float64
	MACD       float64
	Volatility float64
	Beta       float64
	Sentiment  float64
}

// Default component weights. Fundamentals dominate; technicals and
// sentiment are tie-breakers. Low volatility and beta together carry as much
// weight as the analyst consensus.
const (
	DefaultWeightPERatio    = 0.25
	DefaultWeightROE        = 0.25
	DefaultWeightAnalyst    = 0.20
	DefaultWeightRSI        = 0.06
	DefaultWeightMACD       = 0.06
	DefaultWeightVolatility = 0.07
	DefaultWeightBeta       = 0.06
	DefaultWeightSentiment  = 0.05
)

// DefaultWeights returns the documented default weighting
func DefaultWeights() Weights {
	return Weights{
		PERatio:    DefaultWeightPERatio,
		ROE:        DefaultWeightROE,
		Analyst:    DefaultWeightAnalyst,
		RSI:        DefaultWeightRSI,
		MACD:       DefaultWeightMACD,
		Volatility: DefaultWeightVolatility,
		Beta:       DefaultWeightBeta,
		Sentiment:  DefaultWeightSentiment,
	}
}

// Thresholds shape the per-component mappings onto [0, 1]
type Thresholds struct {
	// PE at or below PETarget scores 1, falls linearly to PEFairScore at
	// PEFair, then to 0 at PEMax.
	PETarget    float64
	PEFair      float64
	PEFairScore float64
	PEMax       float64

	// ROE (percent) at or above ROECap scores 1
	ROECap float64

	// RSI at or below RSIOversold scores 1, at or above RSIOverbought scores 0
	RSIOversold   float64
	RSIOverbought float64

	// MACDSensitivity scales MACD relative to price before squashing with tanh
	MACDSensitivity float64

	// Annualized volatility (fraction) at or below VolatilityLow scores 1,
	// at or above VolatilityHigh scores 0
	VolatilityLow  float64
	VolatilityHigh float64

	// Beta scores 1 at BetaTarget and 0 once it is BetaTolerance away
	BetaTarget    float64
	BetaTolerance float64
}

// Default mapping thresholds
const (
	DefaultPETarget        = 10.0
	DefaultPEFair          = 30.0
	DefaultPEFairScore     = 0.2
	DefaultPEMax           = 50.0
	DefaultROECap          = 30.0
	DefaultRSIOversold     = 30.0
	DefaultRSIOverbought   = 70.0
	DefaultMACDSensitivity = 50.0
	DefaultVolatilityLow   = 0.15
	DefaultVolatilityHigh  = 0.60
	DefaultBetaTarget      = 0.8
	DefaultBetaTolerance   = 1.2
)

// DefaultThresholds returns the documented default thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		PETarget:        DefaultPETarget,
		PEFair:          DefaultPEFair,
		PEFairScore:     DefaultPEFairScore,
		PEMax:           DefaultPEMax,
		ROECap:          DefaultROECap,
		RSIOversold:     DefaultRSIOversold,
		RSIOverbought:   DefaultRSIOverbought,
		MACDSensitivity: DefaultMACDSensitivity,
		VolatilityLow:   DefaultVolatilityLow,
		VolatilityHigh:  DefaultVolatilityHigh,
		BetaTarget:      DefaultBetaTarget,
		BetaTolerance:   DefaultBetaTolerance,
	}
}
