package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tably/ordercore/internal/domain/payment"
)

type paymentResponse struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"orderId"`
	TenantID          string          `json:"tenantId"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method"`
	Status            string          `json:"status"`
	RazorpayOrderID   string          `json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string          `json:"razorpayPaymentId,omitempty"`
	AmountReceived    decimal.Decimal `json:"amountReceived"`
	ChangeGiven       decimal.Decimal `json:"changeGiven"`
	ConfirmedBy       string          `json:"confirmedBy,omitempty"`
	ConfirmedAt       *time.Time      `json:"confirmedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func toPaymentResponse(p *payment.Payment) paymentResponse {
	return paymentResponse{
		ID:                p.ID,
		OrderID:           p.OrderID,
		TenantID:          p.TenantID,
		Amount:            p.Amount,
		Method:            string(p.Method),
		Status:            string(p.Status),
		RazorpayOrderID:   p.RazorpayOrderID,
		RazorpayPaymentID: p.RazorpayPaymentID,
		AmountReceived:    p.AmountReceived,
		ChangeGiven:       p.ChangeGiven,
		ConfirmedBy:       p.ConfirmedBy,
		ConfirmedAt:       p.ConfirmedAt,
		CreatedAt:         p.CreatedAt,
	}
}

type createPaymentRequest struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
	Method  string  `json:"method"`
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req createPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}
	method, err := payment.ParseMethod(req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.payments.Create(r.Context(), req.OrderID, tenantID, decimal.NewFromFloat(req.Amount), method)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(p))
}

type confirmCashRequest struct {
	AmountReceived float64 `json:"amountReceived"`
	ConfirmedBy    string  `json:"confirmedBy,omitempty"`
}

func (h *Handler) confirmCashPayment(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req confirmCashRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AmountReceived <= 0 {
		writeError(w, http.StatusBadRequest, "amountReceived must be positive")
		return
	}

	p, err := h.payments.ConfirmCash(r.Context(), r.PathValue("id"), tenantID,
		decimal.NewFromFloat(req.AmountReceived), req.ConfirmedBy)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

func (h *Handler) verifyRazorpayPayment(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req verifyPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.payments.VerifyRazorpay(r.Context(), r.PathValue("id"), tenantID,
		req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request, tenantID string) {
	p, err := h.payments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if p.TenantID != tenantID {
		writeError(w, http.StatusForbidden, "payment belongs to another tenant")
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request, _ string) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	payments, total, err := h.payments.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]paymentResponse, len(payments))
	for i := range payments {
		out[i] = toPaymentResponse(&payments[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payments": out,
		"total":    total,
	})
}

func (h *Handler) paymentStats(w http.ResponseWriter, r *http.Request, _ string) {
	q := r.URL.Query()

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from")
			return
		}
		from = t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to")
			return
		}
		to = t
	}

	stats, err := h.payments.StatsBetween(r.Context(), from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
