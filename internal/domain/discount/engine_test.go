package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// tuesdayNoon is 12:00 on a Tuesday, inside the Lunch Special window.
var tuesdayNoon = time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(zap.NewNop())
}

func lunchContext() Context {
	return Context{
		TenantID: "tenant-1",
		OrderID:  "order-1",
		Items: []LineItem{
			{MenuItemID: "m1", Quantity: 3, UnitPrice: decimal.NewFromInt(250)},
			{MenuItemID: "m2", Quantity: 2, UnitPrice: decimal.NewFromInt(350)},
		},
		TotalAmount: decimal.NewFromInt(1450),
		OrderTime:   tuesdayNoon,
	}
}

func TestEvaluate_LunchSpecialBeatsVolume(t *testing.T) {
	e := newTestEngine(t)

	result := e.Evaluate(lunchContext())

	// 5 items match Medium Order (10%), lunch hour matches Lunch Special
	// (15%); the higher percent wins.
	require.NotNil(t, result.AppliedDiscount)
	assert.Equal(t, "Lunch Special", result.AppliedDiscount.RuleName)
	assert.True(t, decimal.NewFromInt(15).Equal(result.AppliedDiscount.Percent))
	assert.True(t, decimal.RequireFromString("217.5").Equal(result.AppliedDiscount.Amount),
		"got %s", result.AppliedDiscount.Amount)
	assert.True(t, decimal.RequireFromString("1232.5").Equal(result.FinalAmount))
}

func TestEvaluate_AtMostOneApplied(t *testing.T) {
	e := newTestEngine(t)

	result := e.Evaluate(lunchContext())

	applied := 0
	for _, rec := range result.Recommendations {
		if rec.Applied {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := newTestEngine(t)
	ctx := lunchContext()

	first := e.Evaluate(ctx)
	for range 5 {
		again := e.Evaluate(ctx)
		require.NotNil(t, again.AppliedDiscount)
		assert.Equal(t, first.AppliedDiscount.RuleID, again.AppliedDiscount.RuleID)
		assert.True(t, first.AppliedDiscount.Amount.Equal(again.AppliedDiscount.Amount))
	}
}

func TestEvaluate_ShadowModeNeverApplied(t *testing.T) {
	e := newTestEngine(t)

	result := e.Evaluate(lunchContext())

	// Lunch hour is a peak hour, so the shadow ML rule produces a
	// recommendation. It must stay out of the applied pricing path.
	require.NotEmpty(t, result.MLShadowRecommendations)
	for _, rec := range result.MLShadowRecommendations {
		assert.False(t, rec.Applied)
		assert.True(t, rec.ShadowMode)
	}
	assert.Equal(t, "Lunch Special", result.AppliedDiscount.RuleName)
	assert.True(t, decimal.RequireFromString("1232.5").Equal(result.FinalAmount))
}

func TestEvaluate_NoMatchYieldsNoDiscount(t *testing.T) {
	e := newTestEngine(t)

	// 03:00 Sunday, 1 expensive item: no time, volume, or ML rule matches.
	result := e.Evaluate(Context{
		TenantID:    "tenant-1",
		OrderID:     "order-2",
		Items:       []LineItem{{MenuItemID: "m1", Quantity: 1, UnitPrice: decimal.NewFromInt(900)}},
		TotalAmount: decimal.NewFromInt(900),
		OrderTime:   time.Date(2025, time.March, 2, 3, 0, 0, 0, time.UTC),
	})

	assert.Nil(t, result.AppliedDiscount)
	assert.True(t, decimal.Zero.Equal(result.TotalDiscountAmount))
	assert.True(t, decimal.NewFromInt(900).Equal(result.FinalAmount))
}

func TestEvaluate_InactiveRulesSkipped(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterRules("tenant-1", []Rule{
		{
			Type:            RuleVolumeBased,
			Name:            "Disabled Deal",
			MinItems:        1,
			DiscountPercent: decimal.NewFromInt(50),
			Active:          false,
		},
	})

	result := e.Evaluate(lunchContext())
	assert.Nil(t, result.AppliedDiscount)
	assert.Empty(t, result.Recommendations)
}

func TestEvaluate_TenantFallbackToDefault(t *testing.T) {
	e := newTestEngine(t)

	// No rules registered for this tenant: default set applies.
	ctx := lunchContext()
	ctx.TenantID = "unknown-tenant"

	result := e.Evaluate(ctx)
	require.NotNil(t, result.AppliedDiscount)
	assert.Equal(t, "Lunch Special", result.AppliedDiscount.RuleName)
}

func TestEvaluate_ItemSpecificDiscountsMatchingLinesOnly(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterRules("tenant-1", []Rule{
		{
			Type:            RuleItemSpecific,
			Name:            "Pizza Promo",
			MenuItemIDs:     []string{"pizza"},
			MinQuantity:     2,
			DiscountPercent: decimal.NewFromInt(20),
			Active:          true,
		},
	})

	result := e.Evaluate(Context{
		TenantID: "tenant-1",
		OrderID:  "order-3",
		Items: []LineItem{
			{MenuItemID: "pizza", Quantity: 2, UnitPrice: decimal.NewFromInt(300)},
			{MenuItemID: "soda", Quantity: 4, UnitPrice: decimal.NewFromInt(50)},
		},
		TotalAmount: decimal.NewFromInt(800),
		OrderTime:   time.Date(2025, time.March, 2, 3, 0, 0, 0, time.UTC),
	})

	// 20% of the matching 600, not of the 800 order total.
	require.NotNil(t, result.AppliedDiscount)
	assert.True(t, decimal.NewFromInt(120).Equal(result.AppliedDiscount.Amount),
		"got %s", result.AppliedDiscount.Amount)
}

func TestEvaluate_ItemSpecificBelowMinQuantity(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterRules("tenant-1", []Rule{
		{
			Type:            RuleItemSpecific,
			Name:            "Pizza Promo",
			MenuItemIDs:     []string{"pizza"},
			MinQuantity:     3,
			DiscountPercent: decimal.NewFromInt(20),
			Active:          true,
		},
	})

	result := e.Evaluate(Context{
		TenantID:    "tenant-1",
		Items:       []LineItem{{MenuItemID: "pizza", Quantity: 2, UnitPrice: decimal.NewFromInt(300)}},
		TotalAmount: decimal.NewFromInt(600),
		OrderTime:   time.Date(2025, time.March, 2, 3, 0, 0, 0, time.UTC),
	})

	assert.Nil(t, result.AppliedDiscount)
}

func TestEvaluate_CustomerSegment(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterRules("tenant-1", []Rule{
		{
			Type:            RuleCustomerSegment,
			Name:            "VIP Perk",
			CustomerTypes:   []CustomerType{CustomerVIP},
			DiscountPercent: decimal.NewFromInt(25),
			Active:          true,
		},
	})

	ctx := Context{
		TenantID:    "tenant-1",
		Items:       []LineItem{{MenuItemID: "m1", Quantity: 1, UnitPrice: decimal.NewFromInt(400)}},
		TotalAmount: decimal.NewFromInt(400),
		OrderTime:   time.Date(2025, time.March, 2, 3, 0, 0, 0, time.UTC),
	}

	result := e.Evaluate(ctx)
	assert.Nil(t, result.AppliedDiscount, "no customer type: rule must not match")

	ctx.CustomerType = CustomerVIP
	result = e.Evaluate(ctx)
	require.NotNil(t, result.AppliedDiscount)
	assert.True(t, decimal.NewFromInt(100).Equal(result.AppliedDiscount.Amount))
}

func TestEvaluate_VolumeUpperBound(t *testing.T) {
	e := newTestEngine(t)

	// 12 items: Medium Order (5-9) must not match, Bulk (10+) must.
	result := e.Evaluate(Context{
		TenantID: "tenant-1",
		Items: []LineItem{
			{MenuItemID: "m1", Quantity: 12, UnitPrice: decimal.NewFromInt(450)},
		},
		TotalAmount: decimal.NewFromInt(5400),
		OrderTime:   time.Date(2025, time.March, 2, 3, 0, 0, 0, time.UTC),
	})

	require.NotNil(t, result.AppliedDiscount)
	assert.Equal(t, "Bulk Order Discount", result.AppliedDiscount.RuleName)
	for _, rec := range result.Recommendations {
		assert.NotEqual(t, "Medium Order Discount", rec.RuleName)
	}
}

func TestEvaluate_MLAppliedWhenNotShadow(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterRules("tenant-1", []Rule{
		{
			Type:          RuleMLRecommended,
			Name:          "Live ML Discount",
			ShadowMode:    false,
			MinConfidence: 0.6,
			DiscountRange: [2]decimal.Decimal{decimal.NewFromInt(5), decimal.NewFromInt(10)},
			Active:        true,
			ModelVersion:  "2.1",
		},
	})

	// Peak hour prediction recommends 12% at 0.78 confidence; the rule's
	// range clamps it down to 10%.
	result := e.Evaluate(lunchContext())
	require.NotNil(t, result.AppliedDiscount)
	assert.True(t, decimal.NewFromInt(10).Equal(result.AppliedDiscount.Percent))
	assert.True(t, decimal.NewFromInt(145).Equal(result.AppliedDiscount.Amount))
}

func TestEvaluate_MLConfidenceGate(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterRules("tenant-1", []Rule{
		{
			Type:          RuleMLRecommended,
			Name:          "Picky ML Discount",
			MinConfidence: 0.9,
			DiscountRange: [2]decimal.Decimal{decimal.NewFromInt(5), decimal.NewFromInt(25)},
			Active:        true,
			ModelVersion:  "1.0",
		},
	})

	// Peak-hour confidence is 0.78, below the 0.9 threshold.
	result := e.Evaluate(lunchContext())
	assert.Nil(t, result.AppliedDiscount)
}

func TestEvaluate_TieBreakByConfidence(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterRules("tenant-1", []Rule{
		{
			Type:            RuleVolumeBased,
			Name:            "Plain Volume",
			MinItems:        1,
			DiscountPercent: decimal.NewFromInt(12),
			Active:          true,
		},
		{
			Type:          RuleMLRecommended,
			Name:          "Confident ML",
			MinConfidence: 0.5,
			DiscountRange: [2]decimal.Decimal{decimal.NewFromInt(12), decimal.NewFromInt(12)},
			Active:        true,
			ModelVersion:  "1.0",
		},
	})

	// Both produce 12%; the ML rule carries confidence 0.78 and the plain
	// volume rule none, so the ML rule wins the tie.
	result := e.Evaluate(lunchContext())
	require.NotNil(t, result.AppliedDiscount)
	assert.Equal(t, "Confident ML", result.AppliedDiscount.RuleName)
}

func TestDisableRule(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterRules("tenant-1", []Rule{
		{
			Type:            RuleVolumeBased,
			Name:            "Everything Off",
			MinItems:        1,
			DiscountPercent: decimal.NewFromInt(30),
			Active:          true,
		},
	})

	require.True(t, e.DisableRule("tenant-1", 0))
	assert.False(t, e.DisableRule("tenant-1", 7))

	result := e.Evaluate(lunchContext())
	assert.Nil(t, result.AppliedDiscount)
}

func TestUpdateRule(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterRules("tenant-1", []Rule{
		{
			Type:            RuleVolumeBased,
			Name:            "Small Deal",
			MinItems:        1,
			DiscountPercent: decimal.NewFromInt(5),
			Active:          true,
		},
	})

	require.True(t, e.UpdateRule("tenant-1", 0, Rule{
		Type:            RuleVolumeBased,
		Name:            "Bigger Deal",
		MinItems:        1,
		DiscountPercent: decimal.NewFromInt(40),
		Active:          true,
	}))
	assert.False(t, e.UpdateRule("tenant-1", 3, Rule{}))

	result := e.Evaluate(lunchContext())
	require.NotNil(t, result.AppliedDiscount)
	assert.Equal(t, "Bigger Deal", result.AppliedDiscount.RuleName)
}

func TestRuleID(t *testing.T) {
	rule := Rule{Type: RuleTimeBased, Name: "Lunch Special"}
	assert.Equal(t, "time-lunch-special", rule.ID())
}
