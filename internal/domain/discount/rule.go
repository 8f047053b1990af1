package discount

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// RuleType enumerates the supported discount rule strategies.
type RuleType string

const (
	// RuleTimeBased matches orders placed inside an hour window on given weekdays.
	RuleTimeBased RuleType = "TIME_BASED"
	// RuleVolumeBased matches orders by total item quantity.
	RuleVolumeBased RuleType = "VOLUME_BASED"
	// RuleItemSpecific matches orders containing enough of specific menu items.
	RuleItemSpecific RuleType = "ITEM_SPECIFIC"
	// RuleCustomerSegment matches orders by customer type.
	RuleCustomerSegment RuleType = "CUSTOMER_SEGMENT"
	// RuleMLRecommended wraps a model recommendation, usually in shadow mode.
	RuleMLRecommended RuleType = "ML_RECOMMENDED"
)

// ParseRuleType validates a client-supplied rule type.
func ParseRuleType(s string) (RuleType, error) {
	switch RuleType(s) {
	case RuleTimeBased, RuleVolumeBased, RuleItemSpecific, RuleCustomerSegment, RuleMLRecommended:
		return RuleType(s), nil
	}
	return "", errors.Errorf("unknown rule type %q", s)
}

// CustomerType classifies a customer for segment rules.
type CustomerType string

const (
	CustomerNew    CustomerType = "new"
	CustomerRepeat CustomerType = "repeat"
	CustomerVIP    CustomerType = "vip"
)

// Rule defines a single discount rule. The Type field selects which of the
// variant parameter groups is meaningful; the rest are ignored during
// evaluation.
type Rule struct {
	Type            RuleType
	Name            string
	DiscountPercent decimal.Decimal
	Active          bool

	// Time-based parameters. Hours are 0-23; DaysOfWeek uses time.Weekday
	// numbering (Sunday = 0).
	StartHour  int
	EndHour    int
	DaysOfWeek []time.Weekday

	// Volume-based parameters. MaxItems zero means no upper bound.
	MinItems int
	MaxItems int

	// Item-specific parameters.
	MenuItemIDs []string
	MinQuantity int

	// Customer-segment parameters.
	CustomerTypes []CustomerType

	// ML parameters. DiscountRange clamps the model's recommended percent.
	ShadowMode    bool
	MinConfidence float64
	DiscountRange [2]decimal.Decimal
	ModelVersion  string
}

// ID derives a stable rule identifier from the rule type and name,
// e.g. "time-lunch-special".
func (r Rule) ID() string {
	prefix := map[RuleType]string{
		RuleTimeBased:       "time",
		RuleVolumeBased:     "volume",
		RuleItemSpecific:    "item",
		RuleCustomerSegment: "segment",
		RuleMLRecommended:   "ml",
	}[r.Type]

	return prefix + "-" + strings.ReplaceAll(strings.ToLower(r.Name), " ", "-")
}

// LineItem is one order line as seen by the rule engine.
type LineItem struct {
	MenuItemID string
	Quantity   int
	UnitPrice  decimal.Decimal
}

// Context carries everything a rule may inspect about an order. It is
// request-scoped and never persisted.
type Context struct {
	TenantID      string
	OrderID       string
	CustomerID    string
	CustomerType  CustomerType
	Items         []LineItem
	TotalAmount   decimal.Decimal
	OrderTime     time.Time
	PaymentMethod string
}

// TotalQuantity returns the sum of quantities across all lines.
func (c Context) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Recommendation is the outcome of evaluating one rule against one context.
type Recommendation struct {
	RuleID          string
	RuleType        RuleType
	RuleName        string
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	Confidence      float64
	Reasoning       string
	Applied         bool
	ShadowMode      bool
}

// Applied identifies the single discount selected for an order.
type Applied struct {
	RuleID   string
	RuleName string
	Percent  decimal.Decimal
	Amount   decimal.Decimal
}

// Result is the full outcome of evaluating a tenant's rule set.
type Result struct {
	OrderID                 string
	TenantID                string
	Recommendations         []Recommendation
	AppliedDiscount         *Applied
	TotalDiscountAmount     decimal.Decimal
	FinalAmount             decimal.Decimal
	MLShadowRecommendations []Recommendation
	Timestamp               time.Time
}
