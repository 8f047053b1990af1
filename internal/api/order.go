package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tably/ordercore/internal/domain/order"
)

type orderLineRequest struct {
	MenuItemID          string   `json:"menuItemId"`
	Quantity            int      `json:"quantity"`
	PriceAtOrder        *float64 `json:"priceAtOrder,omitempty"`
	SpecialInstructions string   `json:"specialInstructions,omitempty"`
}

type createOrderRequest struct {
	TableNumber    int                `json:"tableNumber"`
	CustomerID     string             `json:"customerId,omitempty"`
	Items          []orderLineRequest `json:"items"`
	PaymentMethod  string             `json:"paymentMethod,omitempty"`
	DeliveryCharge float64            `json:"deliveryCharge,omitempty"`
	Notes          string             `json:"notes,omitempty"`
}

type orderLineResponse struct {
	ID              string          `json:"id"`
	MenuItemID      string          `json:"menuItemId"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	SpecialRequests string          `json:"specialRequests,omitempty"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	TenantID       string              `json:"tenantId"`
	TableNumber    int                 `json:"tableNumber"`
	CustomerID     string              `json:"customerId"`
	Status         string              `json:"status"`
	Items          []orderLineResponse `json:"items"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	DiscountRuleID string              `json:"discountRuleId,omitempty"`
	DiscountReason string              `json:"discountReason,omitempty"`
	TaxAmount      decimal.Decimal     `json:"taxAmount"`
	DeliveryCharge decimal.Decimal     `json:"deliveryCharge"`
	Total          decimal.Decimal     `json:"total"`
	Notes          string              `json:"notes,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderLineResponse, len(o.Lines))
	for i, line := range o.Lines {
		items[i] = orderLineResponse{
			ID:              line.ID,
			MenuItemID:      line.MenuItemID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			Subtotal:        line.Subtotal,
			SpecialRequests: line.SpecialRequests,
		}
	}
	return orderResponse{
		ID:             o.ID,
		TenantID:       o.TenantID,
		TableNumber:    o.TableNumber,
		CustomerID:     o.CustomerID,
		Status:         string(o.Status),
		Items:          items,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		DiscountRuleID: o.DiscountRuleID,
		DiscountReason: o.DiscountReason,
		TaxAmount:      o.TaxAmount,
		DeliveryCharge: o.DeliveryCharge,
		Total:          o.Total,
		Notes:          o.Notes,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	lines := make([]order.LineInput, len(req.Items))
	for i, item := range req.Items {
		line := order.LineInput{
			MenuItemID:          item.MenuItemID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		}
		if item.PriceAtOrder != nil {
			price := decimal.NewFromFloat(*item.PriceAtOrder)
			line.PriceAtOrder = &price
		}
		lines[i] = line
	}

	o, err := h.orders.Create(r.Context(), tenantID, order.CreateRequest{
		TableNumber:    req.TableNumber,
		CustomerID:     req.CustomerID,
		Lines:          lines,
		PaymentMethod:  req.PaymentMethod,
		DeliveryCharge: decimal.NewFromFloat(req.DeliveryCharge),
		Notes:          req.Notes,
	})
	if err != nil {
		if o != nil {
			// Persisted but event publication failed: the order exists,
			// report it with 202 so the client does not retry a create.
			writeJSON(w, http.StatusAccepted, toOrderResponse(o))
			return
		}
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, tenantID string) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if o.TenantID != tenantID {
		writeError(w, http.StatusForbidden, "order belongs to another tenant")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, tenantID string) {
	q := r.URL.Query()
	f := order.ListFilter{
		CustomerID: q.Get("customerId"),
	}
	if s := q.Get("status"); s != "" {
		status, ok := order.ParseStatus(s)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		f.Status = status
	}
	if s := q.Get("tableNumber"); s != "" {
		f.TableNumber, _ = strconv.Atoi(s)
	}
	if s := q.Get("dateFrom"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dateFrom")
			return
		}
		f.DateFrom = t
	}
	if s := q.Get("dateTo"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dateTo")
			return
		}
		f.DateTo = t
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	orders, total, err := h.orders.List(r.Context(), tenantID, f)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": out,
		"total":  total,
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status, ok := order.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), tenantID, status, req.Notes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req cancelOrderRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.Cancel(r.Context(), r.PathValue("id"), tenantID, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
