package discount

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// mlPrediction is the stand-in model output.
type mlPrediction struct {
	RecommendedPercent decimal.Decimal
	Confidence         float64
}

// predict is a deterministic heuristic substitute for the ML service:
// peak hours win over large orders, which win over low-value orders.
func predict(c Context) (mlPrediction, bool) {
	hour := c.OrderTime.Hour()
	if (hour >= 11 && hour < 14) || (hour >= 18 && hour < 21) {
		return mlPrediction{RecommendedPercent: decimal.NewFromInt(12), Confidence: 0.78}, true
	}

	totalItems := c.TotalQuantity()
	if totalItems > 8 {
		return mlPrediction{RecommendedPercent: decimal.NewFromInt(15), Confidence: 0.65}, true
	}

	if totalItems > 0 {
		avgPrice := c.TotalAmount.Div(decimal.NewFromInt(int64(totalItems)))
		if avgPrice.LessThan(decimal.NewFromInt(200)) {
			return mlPrediction{RecommendedPercent: decimal.NewFromInt(8), Confidence: 0.55}, true
		}
	}

	return mlPrediction{}, false
}

// evaluateML runs the model stand-in and clamps its recommendation into
// the rule's discount range. Predictions below the rule's confidence
// threshold yield no recommendation.
func evaluateML(rule Rule, c Context) (Recommendation, bool) {
	p, ok := predict(c)
	if !ok || p.Confidence < rule.MinConfidence {
		return Recommendation{}, false
	}

	percent := p.RecommendedPercent
	if percent.LessThan(rule.DiscountRange[0]) {
		percent = rule.DiscountRange[0]
	}
	if percent.GreaterThan(rule.DiscountRange[1]) {
		percent = rule.DiscountRange[1]
	}

	return Recommendation{
		RuleID:          rule.ID(),
		RuleType:        RuleMLRecommended,
		RuleName:        rule.Name,
		DiscountPercent: percent,
		DiscountAmount:  percentOf(c.TotalAmount, percent),
		Confidence:      p.Confidence,
		Reasoning: fmt.Sprintf("ML-based recommendation (v%s, confidence: %.1f%%)",
			rule.ModelVersion, p.Confidence*100),
		Applied:    false,
		ShadowMode: rule.ShadowMode,
	}, true
}
