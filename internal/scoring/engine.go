package scoring

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// ScorePrecision is the number of decimal places kept on the composite
const ScorePrecision = 4

// Result is the composite score and the sub-scores it was built from
type Result struct {
	Total     decimal.Decimal
	Breakdown models.ScoreBreakdown
}

// Engine scores market metrics and analyst ratings
type Engine struct {
	Weights    Weights
	Thresholds Thresholds
}

// NewEngine creates an engine with the default weights and thresholds
func NewEngine() *Engine {
	return &Engine{
		Weights:    DefaultWeights(),
		Thresholds: DefaultThresholds(),
	}
}

// component is one weighted term of the composite. ok is false when the
// input metric is absent, in which case the term is left out entirely.
type component struct {
	name   string
	weight float64
	score  float64
	ok     bool
}

// Score computes the weighted average of every present component. With no
// present components the total is zero and coverage is zero.
func (e *Engine) Score(m *models.MarketMetrics, r models.RatingCounts) Result {
	if m == nil {
		m = &models.MarketMetrics{}
	}
	w, t := e.Weights, e.Thresholds

	pe, peOK := t.peScore(m.PERatio, m.EPS)
	roe, roeOK := t.roeScore(m.ROE)
	analyst, analystOK := analystScore(r)
	rsi, rsiOK := t.rsiScore(m.RSI)
	macd, macdOK := t.macdScore(m.MACD, m.CurrentPrice)
	vol, volOK := t.volatilityScore(m.Volatility)
	beta, betaOK := t.betaScore(m.Beta)
	sentiment, sentimentOK := sentimentScore(m.SentimentScore)

	components := []component{
		{models.ComponentPE, w.PERatio, pe, peOK},
		{models.ComponentROE, w.ROE, roe, roeOK},
		{models.ComponentAnalyst, w.Analyst, analyst, analystOK},
		{models.ComponentRSI, w.RSI, rsi, rsiOK},
		{models.ComponentMACD, w.MACD, macd, macdOK},
		{models.ComponentVolatility, w.Volatility, vol, volOK},
		{models.ComponentBeta, w.Beta, beta, betaOK},
		{models.ComponentSentiment, w.Sentiment, sentiment, sentimentOK},
	}

	var numerator, denominator, allWeight float64
	breakdown := models.ScoreBreakdown{Components: make(map[string]float64)}
	for _, c := range components {
		if c.weight <= 0 || !isFinite(c.weight) {
			continue
		}
		allWeight += c.weight
		if !c.ok || !isFinite(c.score) {
			continue
		}
		numerator += c.weight * c.score
		denominator += c.weight
		breakdown.Components[c.name] = round(c.score, ScorePrecision)
	}

	total := 0.0
	if denominator > 0 {
		total = numerator / denominator
	}
	if allWeight > 0 {
		breakdown.Coverage = round(denominator/allWeight, ScorePrecision)
	}

	return Result{
		Total:     decimal.NewFromFloat(total).Round(ScorePrecision),
		Breakdown: breakdown,
	}
}

// peScore: lower is better. A negative PE, or an undefined PE for a company
// with non-positive earnings, is a loss-maker and scores 0.
func (t Thresholds) peScore(pe, eps decimal.NullDecimal) (float64, bool) {
	if !pe.Valid {
		if eps.Valid && !eps.Decimal.IsPositive() {
			return 0, true
		}
		return 0, false
	}
	v := pe.Decimal.InexactFloat64()
	switch {
	case v <= 0:
		return 0, true
	case v <= t.PETarget:
		return 1, true
	case v <= t.PEFair:
		return lerp(v, t.PETarget, t.PEFair, 1, t.PEFairScore), true
	case v < t.PEMax:
		return lerp(v, t.PEFair, t.PEMax, t.PEFairScore, 0), true
	default:
		return 0, true
	}
}

// roeScore: higher is better, capped so outliers do not dominate
func (t Thresholds) roeScore(roe decimal.NullDecimal) (float64, bool) {
	if !roe.Valid {
		return 0, false
	}
	if t.ROECap <= 0 {
		return 0, true
	}
	return clamp01(roe.Decimal.InexactFloat64() / t.ROECap), true
}

func analystScore(r models.RatingCounts) (float64, bool) {
	net, ok := r.NetBullishness()
	if !ok {
		return 0, false
	}
	return clamp01((net + 1) / 2), true
}

// rsiScore: oversold is a buying opportunity
func (t Thresholds) rsiScore(rsi decimal.NullDecimal) (float64, bool) {
	if !rsi.Valid {
		return 0, false
	}
	v := rsi.Decimal.InexactFloat64()
	switch {
	case v <= t.RSIOversold:
		return 1, true
	case v >= t.RSIOverbought:
		return 0, true
	default:
		return lerp(v, t.RSIOversold, t.RSIOverbought, 1, 0), true
	}
}

// macdScore: positive momentum relative to price scores above 0.5. Without
// a price the MACD is taken as-is.
func (t Thresholds) macdScore(macd, price decimal.NullDecimal) (float64, bool) {
	if !macd.Valid {
		return 0, false
	}
	v := macd.Decimal.InexactFloat64()
	if price.Valid && price.Decimal.IsPositive() {
		v = v / price.Decimal.InexactFloat64() * t.MACDSensitivity
	}
	return clamp01(0.5 + 0.5*math.Tanh(v)), true
}

// volatilityScore: calm stocks are preferred
func (t Thresholds) volatilityScore(vol decimal.NullDecimal) (float64, bool) {
	if !vol.Valid {
		return 0, false
	}
	v := vol.Decimal.InexactFloat64()
	switch {
	case v <= t.VolatilityLow:
		return 1, true
	case v >= t.VolatilityHigh:
		return 0, true
	default:
		return lerp(v, t.VolatilityLow, t.VolatilityHigh, 1, 0), true
	}
}

// betaScore penalizes deviation from a stable, slightly defensive beta
func (t Thresholds) betaScore(beta decimal.NullDecimal) (float64, bool) {
	if !beta.Valid {
		return 0, false
	}
	if t.BetaTolerance <= 0 {
		return 0, true
	}
	deviation := math.Abs(beta.Decimal.InexactFloat64() - t.BetaTarget)
	return clamp01(1 - deviation/t.BetaTolerance), true
}

// sentimentScore maps [-1, 1] onto [0, 1]
func sentimentScore(s decimal.NullDecimal) (float64, bool) {
	if !s.Valid {
		return 0, false
	}
	return clamp01((s.Decimal.InexactFloat64() + 1) / 2), true
}

func lerp(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		return y1
	}
	return clamp01(y0 + (x-x0)*(y1-y0)/(x1-x0))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
