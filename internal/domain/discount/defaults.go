package discount

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRules returns the rule set used by tenants without rules of
// their own.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type:            RuleTimeBased,
			Name:            "Lunch Special",
			StartHour:       11,
			EndHour:         14,
			DiscountPercent: decimal.NewFromInt(15),
			DaysOfWeek: []time.Weekday{
				time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
			},
			Active: true,
		},
		{
			Type:            RuleTimeBased,
			Name:            "Dinner Special",
			StartHour:       18,
			EndHour:         21,
			DiscountPercent: decimal.NewFromInt(10),
			DaysOfWeek: []time.Weekday{
				time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
			},
			Active: true,
		},
		{
			Type:            RuleVolumeBased,
			Name:            "Bulk Order Discount",
			MinItems:        10,
			DiscountPercent: decimal.NewFromInt(20),
			Active:          true,
		},
		{
			Type:            RuleVolumeBased,
			Name:            "Medium Order Discount",
			MinItems:        5,
			MaxItems:        9,
			DiscountPercent: decimal.NewFromInt(10),
			Active:          true,
		},
		{
			Type:          RuleMLRecommended,
			Name:          "ML-Based Dynamic Discount",
			ShadowMode:    true,
			MinConfidence: 0.65,
			DiscountRange: [2]decimal.Decimal{decimal.NewFromInt(5), decimal.NewFromInt(25)},
			Active:        true,
			ModelVersion:  "1.0",
		},
	}
}
