// Package api exposes the HTTP surface: order lifecycle, payment
// confirmation, discount rule administration, and inventory management.
// Handlers translate between JSON and the domain services; business
// rules live in the services.
package api

import (
	"net/http"

	"github.com/tably/ordercore/internal/domain/discount"
	"github.com/tably/ordercore/internal/domain/inventory"
	"github.com/tably/ordercore/internal/domain/order"
	"github.com/tably/ordercore/internal/domain/payment"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	orders    *order.Service
	payments  *payment.Service
	discounts *discount.Engine
	stock     *inventory.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	payments *payment.Service,
	discounts *discount.Engine,
	stock *inventory.Service,
) *Handler {
	return &Handler{
		orders:    orders,
		payments:  payments,
		discounts: discounts,
		stock:     stock,
	}
}

// Routes registers all endpoints on a fresh mux. Every route except the
// health probes requires the X-Tenant-ID header.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/orders", h.requireTenant(h.createOrder))
	mux.HandleFunc("GET /api/orders", h.requireTenant(h.listOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.requireTenant(h.getOrder))
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.requireTenant(h.updateOrderStatus))
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.requireTenant(h.cancelOrder))

	mux.HandleFunc("POST /api/payments", h.requireTenant(h.createPayment))
	mux.HandleFunc("GET /api/payments", h.requireTenant(h.listPayments))
	mux.HandleFunc("GET /api/payments/stats", h.requireTenant(h.paymentStats))
	mux.HandleFunc("GET /api/payments/{id}", h.requireTenant(h.getPayment))
	mux.HandleFunc("POST /api/orders/{id}/payment/cash", h.requireTenant(h.confirmCashPayment))
	mux.HandleFunc("POST /api/orders/{id}/payment/verify", h.requireTenant(h.verifyRazorpayPayment))

	mux.HandleFunc("POST /api/discounts/evaluate", h.requireTenant(h.evaluateDiscounts))
	mux.HandleFunc("GET /api/discounts/rules", h.requireTenant(h.listDiscountRules))
	mux.HandleFunc("POST /api/discounts/rules", h.requireTenant(h.addDiscountRule))
	mux.HandleFunc("PUT /api/discounts/rules/{id}", h.requireTenant(h.updateDiscountRule))
	mux.HandleFunc("DELETE /api/discounts/rules/{id}", h.requireTenant(h.disableDiscountRule))

	mux.HandleFunc("POST /api/inventory", h.requireTenant(h.createInventoryItem))
	mux.HandleFunc("GET /api/inventory", h.requireTenant(h.listInventory))
	mux.HandleFunc("GET /api/inventory/alerts", h.requireTenant(h.inventoryAlerts))
	mux.HandleFunc("GET /api/inventory/stats", h.requireTenant(h.inventoryStats))
	mux.HandleFunc("GET /api/inventory/{id}", h.requireTenant(h.getInventoryItem))
	mux.HandleFunc("PUT /api/inventory/{id}", h.requireTenant(h.updateInventoryItem))
	mux.HandleFunc("DELETE /api/inventory/{id}", h.requireTenant(h.deleteInventoryItem))

	return mux
}

// tenantHandler is a handler that additionally receives the calling
// tenant's id.
type tenantHandler func(w http.ResponseWriter, r *http.Request, tenantID string)

// requireTenant rejects requests without an X-Tenant-ID header. Tenant
// existence is checked by the services against storage; the header only
// scopes the request.
func (h *Handler) requireTenant(next tenantHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get("X-Tenant-ID")
		if tenantID == "" {
			writeError(w, http.StatusBadRequest, "missing X-Tenant-ID header")
			return
		}
		next(w, r, tenantID)
	}
}
