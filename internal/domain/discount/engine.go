package discount

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTenant is the rule-set key used when a tenant has no rules of
// its own.
const DefaultTenant = "default"

var hundred = decimal.NewFromInt(100)

// Engine evaluates discount rules against order contexts. Rule sets are
// held per tenant; mutation through RegisterRules/AddRule/UpdateRule/
// DisableRule is safe against concurrent Evaluate calls.
type Engine struct {
	mu    sync.RWMutex
	rules map[string][]Rule

	lg *zap.Logger
}

// NewEngine creates an Engine seeded with the default rule set.
func NewEngine(lg *zap.Logger) *Engine {
	e := &Engine{
		rules: make(map[string][]Rule),
		lg:    lg,
	}
	e.rules[DefaultTenant] = DefaultRules()
	return e
}

// RegisterRules replaces the rule set for a tenant.
func (e *Engine) RegisterRules(tenantID string, rules []Rule) {
	e.mu.Lock()
	e.rules[tenantID] = append([]Rule(nil), rules...)
	e.mu.Unlock()

	e.lg.Info("Registered discount rules",
		zap.String("tenant_id", tenantID),
		zap.Int("count", len(rules)),
	)
}

// AddRule appends a rule to a tenant's rule set, creating the set when
// it does not exist yet.
func (e *Engine) AddRule(tenantID string, rule Rule) {
	e.mu.Lock()
	e.rules[tenantID] = append(e.tenantRulesLocked(tenantID, false), rule)
	e.mu.Unlock()

	e.lg.Info("Added discount rule",
		zap.String("tenant_id", tenantID),
		zap.String("rule", rule.Name),
	)
}

// UpdateRule replaces the rule at the given index. It reports whether the
// index addressed an existing rule.
func (e *Engine) UpdateRule(tenantID string, index int, rule Rule) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules := e.rules[tenantID]
	if index < 0 || index >= len(rules) {
		return false
	}

	// Replace the whole slice so concurrent readers holding the previous
	// one never observe a partial write.
	next := append([]Rule(nil), rules...)
	next[index] = rule
	e.rules[tenantID] = next
	return true
}

// DisableRule marks the rule at the given index inactive. It reports
// whether the index addressed an existing rule.
func (e *Engine) DisableRule(tenantID string, index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules := e.rules[tenantID]
	if index < 0 || index >= len(rules) {
		return false
	}

	next := append([]Rule(nil), rules...)
	next[index].Active = false
	e.rules[tenantID] = next
	return true
}

// TenantRules returns a copy of the tenant's rule set, falling back to the
// default set when the tenant has none.
func (e *Engine) TenantRules(tenantID string) []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Rule(nil), e.tenantRulesLocked(tenantID, true)...)
}

func (e *Engine) tenantRulesLocked(tenantID string, fallback bool) []Rule {
	if rules, ok := e.rules[tenantID]; ok {
		return rules
	}
	if fallback {
		return e.rules[DefaultTenant]
	}
	return nil
}

// Evaluate runs every active rule in the tenant's rule set against the
// context and selects at most one discount to apply. Shadow-mode ML
// recommendations are collected separately and never influence the
// applied discount. Evaluation is pure: the same rule set and context
// always produce the same result.
func (e *Engine) Evaluate(c Context) Result {
	tenantID := c.TenantID
	if tenantID == "" {
		tenantID = DefaultTenant
	}
	rules := e.TenantRules(tenantID)

	var recommendations, shadow []Recommendation
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		rec, ok := evaluateRule(rule, c)
		if !ok {
			continue
		}
		if rule.Type == RuleMLRecommended && rule.ShadowMode {
			shadow = append(shadow, rec)
		} else {
			recommendations = append(recommendations, rec)
		}
	}

	selected := selectBest(recommendations)

	result := Result{
		OrderID:                 c.OrderID,
		TenantID:                tenantID,
		Recommendations:         recommendations,
		TotalDiscountAmount:     decimal.Zero,
		FinalAmount:             c.TotalAmount,
		MLShadowRecommendations: shadow,
		Timestamp:               c.OrderTime,
	}
	if selected >= 0 {
		best := &result.Recommendations[selected]
		best.Applied = true
		result.AppliedDiscount = &Applied{
			RuleID:   best.RuleID,
			RuleName: best.RuleName,
			Percent:  best.DiscountPercent,
			Amount:   best.DiscountAmount,
		}
		result.TotalDiscountAmount = best.DiscountAmount
		result.FinalAmount = c.TotalAmount.Sub(best.DiscountAmount)

		e.lg.Debug("Selected discount",
			zap.String("tenant_id", tenantID),
			zap.String("order_id", c.OrderID),
			zap.String("rule", best.RuleName),
			zap.String("percent", best.DiscountPercent.String()),
		)
	}
	return result
}

// selectBest returns the index of the winning recommendation: highest
// percent first, confidence breaks ties (absent confidence counts as
// zero). Returns -1 when there are no candidates. The sort is stable so
// equal rules keep registration order.
func selectBest(recs []Recommendation) int {
	if len(recs) == 0 {
		return -1
	}
	indices := make([]int, len(recs))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ra, rb := recs[indices[a]], recs[indices[b]]
		if !ra.DiscountPercent.Equal(rb.DiscountPercent) {
			return ra.DiscountPercent.GreaterThan(rb.DiscountPercent)
		}
		return ra.Confidence > rb.Confidence
	})
	return indices[0]
}

func evaluateRule(rule Rule, c Context) (Recommendation, bool) {
	switch rule.Type {
	case RuleTimeBased:
		return evaluateTimeBased(rule, c)
	case RuleVolumeBased:
		return evaluateVolumeBased(rule, c)
	case RuleItemSpecific:
		return evaluateItemSpecific(rule, c)
	case RuleCustomerSegment:
		return evaluateCustomerSegment(rule, c)
	case RuleMLRecommended:
		return evaluateML(rule, c)
	default:
		return Recommendation{}, false
	}
}

func evaluateTimeBased(rule Rule, c Context) (Recommendation, bool) {
	hour := c.OrderTime.Hour()
	if hour < rule.StartHour || hour >= rule.EndHour {
		return Recommendation{}, false
	}
	day := c.OrderTime.Weekday()
	matched := false
	for _, d := range rule.DaysOfWeek {
		if d == day {
			matched = true
			break
		}
	}
	if !matched {
		return Recommendation{}, false
	}

	return Recommendation{
		RuleID:          rule.ID(),
		RuleType:        RuleTimeBased,
		RuleName:        rule.Name,
		DiscountPercent: rule.DiscountPercent,
		DiscountAmount:  percentOf(c.TotalAmount, rule.DiscountPercent),
		Reasoning:       fmt.Sprintf("%s: %d:00-%d:00 discount applicable", rule.Name, rule.StartHour, rule.EndHour),
	}, true
}

func evaluateVolumeBased(rule Rule, c Context) (Recommendation, bool) {
	total := c.TotalQuantity()
	if total < rule.MinItems {
		return Recommendation{}, false
	}
	if rule.MaxItems > 0 && total > rule.MaxItems {
		return Recommendation{}, false
	}

	return Recommendation{
		RuleID:          rule.ID(),
		RuleType:        RuleVolumeBased,
		RuleName:        rule.Name,
		DiscountPercent: rule.DiscountPercent,
		DiscountAmount:  percentOf(c.TotalAmount, rule.DiscountPercent),
		Reasoning:       fmt.Sprintf("%s: %d items ordered", rule.Name, total),
	}, true
}

// evaluateItemSpecific discounts only the subtotal of the lines matching
// the rule's menu item set, not the whole order.
func evaluateItemSpecific(rule Rule, c Context) (Recommendation, bool) {
	ids := make(map[string]struct{}, len(rule.MenuItemIDs))
	for _, id := range rule.MenuItemIDs {
		ids[id] = struct{}{}
	}

	matchingQty := 0
	matchingSubtotal := decimal.Zero
	for _, item := range c.Items {
		if _, ok := ids[item.MenuItemID]; !ok {
			continue
		}
		matchingQty += item.Quantity
		matchingSubtotal = matchingSubtotal.Add(
			item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		)
	}
	if matchingQty < rule.MinQuantity {
		return Recommendation{}, false
	}

	return Recommendation{
		RuleID:          rule.ID(),
		RuleType:        RuleItemSpecific,
		RuleName:        rule.Name,
		DiscountPercent: rule.DiscountPercent,
		DiscountAmount:  percentOf(matchingSubtotal, rule.DiscountPercent),
		Reasoning:       fmt.Sprintf("%s: %d qualifying items", rule.Name, matchingQty),
	}, true
}

func evaluateCustomerSegment(rule Rule, c Context) (Recommendation, bool) {
	if c.CustomerType == "" {
		return Recommendation{}, false
	}
	matched := false
	for _, t := range rule.CustomerTypes {
		if t == c.CustomerType {
			matched = true
			break
		}
	}
	if !matched {
		return Recommendation{}, false
	}

	return Recommendation{
		RuleID:          rule.ID(),
		RuleType:        RuleCustomerSegment,
		RuleName:        rule.Name,
		DiscountPercent: rule.DiscountPercent,
		DiscountAmount:  percentOf(c.TotalAmount, rule.DiscountPercent),
		Reasoning:       fmt.Sprintf("%s: %s customer", rule.Name, c.CustomerType),
	}, true
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}
