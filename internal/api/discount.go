package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tably/ordercore/internal/domain/discount"
)

type evaluateDiscountRequest struct {
	OrderID      string              `json:"orderId,omitempty"`
	CustomerID   string              `json:"customerId,omitempty"`
	CustomerType string              `json:"customerType,omitempty"`
	Items        []discountLineInput `json:"items"`
	OrderTime    *time.Time          `json:"orderTime,omitempty"`
}

type discountLineInput struct {
	MenuItemID string  `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
}

// evaluateDiscounts runs the rule engine without creating an order,
// used by clients to preview the discount a cart would get.
func (h *Handler) evaluateDiscounts(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req evaluateDiscountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items must not be empty")
		return
	}

	total := decimal.Zero
	items := make([]discount.LineItem, len(req.Items))
	for i, item := range req.Items {
		price := decimal.NewFromFloat(item.UnitPrice)
		items[i] = discount.LineItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  price,
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	orderTime := time.Now()
	if req.OrderTime != nil {
		orderTime = *req.OrderTime
	}

	result := h.discounts.Evaluate(discount.Context{
		TenantID:     tenantID,
		OrderID:      req.OrderID,
		CustomerID:   req.CustomerID,
		CustomerType: discount.CustomerType(req.CustomerType),
		Items:        items,
		TotalAmount:  total,
		OrderTime:    orderTime,
	})
	writeJSON(w, http.StatusOK, toDiscountResult(result))
}

type recommendationResponse struct {
	RuleID          string          `json:"ruleId"`
	RuleType        string          `json:"ruleType"`
	RuleName        string          `json:"ruleName"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	Confidence      float64         `json:"confidence"`
	Reasoning       string          `json:"reasoning,omitempty"`
	Applied         bool            `json:"applied"`
	ShadowMode      bool            `json:"shadowMode,omitempty"`
}

type discountResultResponse struct {
	OrderID                 string                   `json:"orderId,omitempty"`
	TenantID                string                   `json:"tenantId"`
	Recommendations         []recommendationResponse `json:"recommendations"`
	AppliedRuleID           string                   `json:"appliedRuleId,omitempty"`
	TotalDiscountAmount     decimal.Decimal          `json:"totalDiscountAmount"`
	FinalAmount             decimal.Decimal          `json:"finalAmount"`
	MLShadowRecommendations []recommendationResponse `json:"mlShadowRecommendations,omitempty"`
	Timestamp               time.Time                `json:"timestamp"`
}

func toDiscountResult(result discount.Result) discountResultResponse {
	resp := discountResultResponse{
		OrderID:                 result.OrderID,
		TenantID:                result.TenantID,
		Recommendations:         toRecommendations(result.Recommendations),
		TotalDiscountAmount:     result.TotalDiscountAmount,
		FinalAmount:             result.FinalAmount,
		MLShadowRecommendations: toRecommendations(result.MLShadowRecommendations),
		Timestamp:               result.Timestamp,
	}
	if result.AppliedDiscount != nil {
		resp.AppliedRuleID = result.AppliedDiscount.RuleID
	}
	return resp
}

func toRecommendations(recs []discount.Recommendation) []recommendationResponse {
	out := make([]recommendationResponse, len(recs))
	for i, rec := range recs {
		out[i] = recommendationResponse{
			RuleID:          rec.RuleID,
			RuleType:        string(rec.RuleType),
			RuleName:        rec.RuleName,
			DiscountPercent: rec.DiscountPercent,
			DiscountAmount:  rec.DiscountAmount,
			Confidence:      rec.Confidence,
			Reasoning:       rec.Reasoning,
			Applied:         rec.Applied,
			ShadowMode:      rec.ShadowMode,
		}
	}
	return out
}

type ruleRequest struct {
	Type            string    `json:"type"`
	Name            string    `json:"name"`
	DiscountPercent float64   `json:"discountPercent"`
	Active          *bool     `json:"active,omitempty"`
	StartHour       int       `json:"startHour,omitempty"`
	EndHour         int       `json:"endHour,omitempty"`
	DaysOfWeek      []int     `json:"daysOfWeek,omitempty"`
	MinItems        int       `json:"minItems,omitempty"`
	MaxItems        int       `json:"maxItems,omitempty"`
	MenuItemIDs     []string  `json:"menuItemIds,omitempty"`
	MinQuantity     int       `json:"minQuantity,omitempty"`
	CustomerTypes   []string  `json:"customerTypes,omitempty"`
	ShadowMode      bool      `json:"shadowMode,omitempty"`
	MinConfidence   float64   `json:"minConfidence,omitempty"`
	DiscountRange   []float64 `json:"discountRange,omitempty"`
	ModelVersion    string    `json:"modelVersion,omitempty"`
}

func (req ruleRequest) toRule() (discount.Rule, error) {
	ruleType, err := discount.ParseRuleType(req.Type)
	if err != nil {
		return discount.Rule{}, err
	}

	rule := discount.Rule{
		Type:            ruleType,
		Name:            req.Name,
		DiscountPercent: decimal.NewFromFloat(req.DiscountPercent),
		Active:          true,
		StartHour:       req.StartHour,
		EndHour:         req.EndHour,
		MinItems:        req.MinItems,
		MaxItems:        req.MaxItems,
		MenuItemIDs:     req.MenuItemIDs,
		MinQuantity:     req.MinQuantity,
		ShadowMode:      req.ShadowMode,
		MinConfidence:   req.MinConfidence,
		ModelVersion:    req.ModelVersion,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	for _, d := range req.DaysOfWeek {
		rule.DaysOfWeek = append(rule.DaysOfWeek, time.Weekday(d))
	}
	for _, t := range req.CustomerTypes {
		rule.CustomerTypes = append(rule.CustomerTypes, discount.CustomerType(t))
	}
	if len(req.DiscountRange) == 2 {
		rule.DiscountRange = [2]decimal.Decimal{
			decimal.NewFromFloat(req.DiscountRange[0]),
			decimal.NewFromFloat(req.DiscountRange[1]),
		}
	}
	return rule, nil
}

type ruleResponse struct {
	Index int           `json:"index"`
	ID    string        `json:"id"`
	Rule  discount.Rule `json:"rule"`
}

func (h *Handler) listDiscountRules(w http.ResponseWriter, r *http.Request, tenantID string) {
	rules := h.discounts.TenantRules(tenantID)
	out := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		out[i] = ruleResponse{Index: i, ID: rule.ID(), Rule: rule}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": out})
}

func (h *Handler) addDiscountRule(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req ruleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rule, err := req.toRule()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.discounts.AddRule(tenantID, rule)
	writeJSON(w, http.StatusCreated, map[string]string{"id": rule.ID()})
}

func (h *Handler) updateDiscountRule(w http.ResponseWriter, r *http.Request, tenantID string) {
	index, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "rule index must be numeric")
		return
	}
	var req ruleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rule, err := req.toRule()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.discounts.UpdateRule(tenantID, index, rule) {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": rule.ID()})
}

func (h *Handler) disableDiscountRule(w http.ResponseWriter, r *http.Request, tenantID string) {
	index, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "rule index must be numeric")
		return
	}
	if !h.discounts.DisableRule(tenantID, index) {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
