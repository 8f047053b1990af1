package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tably/ordercore/internal/domain/customer"
	"github.com/tably/ordercore/internal/domain/discount"
	"github.com/tably/ordercore/internal/domain/inventory"
	"github.com/tably/ordercore/internal/domain/menu"
	"github.com/tably/ordercore/internal/domain/order"
	"github.com/tably/ordercore/internal/domain/payment"
	"github.com/tably/ordercore/internal/event"
)

type stubTenantRepo struct{ known map[string]bool }

func (s *stubTenantRepo) Exists(_ context.Context, id string) (bool, error) {
	return s.known[id], nil
}

type stubMenuRepo struct{ items map[string]menu.Item }

func (s *stubMenuRepo) GetByIDs(_ context.Context, tenantID string, ids []string) ([]menu.Item, error) {
	var out []menu.Item
	for _, id := range ids {
		if item, ok := s.items[id]; ok && item.TenantID == tenantID && !item.IsDeleted {
			out = append(out, item)
		}
	}
	return out, nil
}

type stubCustomerRepo struct{ byID map[string]*customer.Customer }

func (s *stubCustomerRepo) Get(_ context.Context, id string) (*customer.Customer, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

func (s *stubCustomerRepo) Create(_ context.Context, c *customer.Customer) error {
	s.byID[c.ID] = c
	return nil
}

type stubOrderRepo struct{ byID map[string]*order.Order }

func (s *stubOrderRepo) Create(_ context.Context, o *order.Order) error {
	cp := *o
	s.byID[o.ID] = &cp
	return nil
}

func (s *stubOrderRepo) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := s.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubOrderRepo) UpdateStatus(_ context.Context, id string, status order.Status, notes string) error {
	o, ok := s.byID[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	if notes != "" {
		o.Notes = notes
	}
	return nil
}

func (s *stubOrderRepo) List(_ context.Context, tenantID string, f order.ListFilter) ([]order.Order, int, error) {
	var out []order.Order
	for _, o := range s.byID {
		if o.TenantID != tenantID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

type stubPaymentRepo struct{ byOrder map[string]*payment.Payment }

func (s *stubPaymentRepo) Create(_ context.Context, p *payment.Payment) error {
	if _, ok := s.byOrder[p.OrderID]; ok {
		return payment.ErrAlreadyExists
	}
	cp := *p
	s.byOrder[p.OrderID] = &cp
	return nil
}

func (s *stubPaymentRepo) Get(_ context.Context, id string) (*payment.Payment, error) {
	for _, p := range s.byOrder {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, payment.ErrNotFound
}

func (s *stubPaymentRepo) GetByOrder(_ context.Context, orderID string) (*payment.Payment, error) {
	p, ok := s.byOrder[orderID]
	if !ok {
		return nil, payment.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubPaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	cp := *p
	s.byOrder[p.OrderID] = &cp
	return nil
}

func (s *stubPaymentRepo) List(_ context.Context, limit, offset int) ([]payment.Payment, int, error) {
	var out []payment.Payment
	for _, p := range s.byOrder {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (s *stubPaymentRepo) CompletedBetween(_ context.Context, from, to time.Time) ([]payment.Payment, error) {
	return nil, nil
}

type stubInventoryRepo struct{ byID map[string]*inventory.Item }

func (s *stubInventoryRepo) Create(_ context.Context, item *inventory.Item) error {
	cp := *item
	s.byID[item.ID] = &cp
	return nil
}

func (s *stubInventoryRepo) Get(_ context.Context, id string) (*inventory.Item, error) {
	item, ok := s.byID[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *stubInventoryRepo) GetByMenuItem(_ context.Context, tenantID, menuItemID string) (*inventory.Item, error) {
	for _, item := range s.byID {
		if item.TenantID == tenantID && item.MenuItemID == menuItemID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, inventory.ErrNotFound
}

func (s *stubInventoryRepo) Update(_ context.Context, item *inventory.Item) error {
	cp := *item
	s.byID[item.ID] = &cp
	return nil
}

func (s *stubInventoryRepo) Delete(_ context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

func (s *stubInventoryRepo) ListByTenant(_ context.Context, tenantID string) ([]inventory.Item, error) {
	var out []inventory.Item
	for _, item := range s.byID {
		if item.TenantID == tenantID {
			out = append(out, *item)
		}
	}
	return out, nil
}

type apiFixture struct {
	mux    *http.ServeMux
	orders *stubOrderRepo
	stock  *stubInventoryRepo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	lg := zap.NewNop()
	bus := event.NewMemoryBus()

	tenants := &stubTenantRepo{known: map[string]bool{"tenant-1": true}}
	menuRepo := &stubMenuRepo{items: map[string]menu.Item{
		"dish-1": {ID: "dish-1", TenantID: "tenant-1", Name: "Paneer Tikka", Price: decimal.NewFromInt(250)},
		"dish-2": {ID: "dish-2", TenantID: "tenant-1", Name: "Dal Makhani", Price: decimal.NewFromInt(350)},
	}}
	customers := &stubCustomerRepo{byID: map[string]*customer.Customer{
		"cust-1": {ID: "cust-1", Name: "Asha", Type: customer.TypeVIP},
	}}
	orders := &stubOrderRepo{byID: make(map[string]*order.Order)}
	payments := &stubPaymentRepo{byOrder: make(map[string]*payment.Payment)}
	stock := &stubInventoryRepo{byID: make(map[string]*inventory.Item)}

	engine := discount.NewEngine(lg)
	orderSvc := order.NewService(tenants, menuRepo, customers, orders, engine, bus, lg)
	gateway := payment.NewRazorpayGateway("rzp_test", "secret", true)
	paymentSvc := payment.NewService(payments, orders, gateway, bus, lg)
	stockSvc := inventory.NewService(stock, bus, lg)

	h := NewHandler(orderSvc, paymentSvc, engine, stockSvc)
	return &apiFixture{mux: h.Routes(), orders: orders, stock: stock}
}

func (f *apiFixture) do(t *testing.T, method, path, tenant, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrder_Success(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/orders", "tenant-1", `{
		"tableNumber": 4,
		"items": [{"menuItemId": "dish-1", "quantity": 2}]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "tenant-1", resp.TenantID)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(500)))
	require.Len(t, resp.Items, 1)
	assert.True(t, resp.Items[0].UnitPrice.Equal(decimal.NewFromInt(250)))
}

func TestCreateOrder_MissingTenantHeader(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/orders", "", `{"items":[{"menuItemId":"dish-1","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_UnknownTenant(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/orders", "ghost", `{"items":[{"menuItemId":"dish-1","quantity":1}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/orders", "tenant-1", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_UnknownMenuItem(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/orders", "tenant-1", `{"items":[{"menuItemId":"ghost","quantity":1}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/orders", "tenant-1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder_TenantIsolation(t *testing.T) {
	f := newAPIFixture(t)
	f.orders.byID["ord-1"] = &order.Order{ID: "ord-1", TenantID: "other-tenant", Status: order.StatusPending}

	rec := f.do(t, http.MethodGet, "/api/orders/ord-1", "tenant-1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/orders/missing", "tenant-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatus_InvalidTransitionConflict(t *testing.T) {
	f := newAPIFixture(t)
	f.orders.byID["ord-1"] = &order.Order{ID: "ord-1", TenantID: "tenant-1", Status: order.StatusPending}

	rec := f.do(t, http.MethodPatch, "/api/orders/ord-1/status", "tenant-1", `{"status":"SERVED"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateStatus_Success(t *testing.T) {
	f := newAPIFixture(t)
	f.orders.byID["ord-1"] = &order.Order{ID: "ord-1", TenantID: "tenant-1", Status: order.StatusPending}

	rec := f.do(t, http.MethodPatch, "/api/orders/ord-1/status", "tenant-1", `{"status":"PREPARING"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PREPARING", resp.Status)
}

func TestUpdateStatus_UnknownStatusRejected(t *testing.T) {
	f := newAPIFixture(t)
	f.orders.byID["ord-1"] = &order.Order{ID: "ord-1", TenantID: "tenant-1", Status: order.StatusPending}

	rec := f.do(t, http.MethodPatch, "/api/orders/ord-1/status", "tenant-1", `{"status":"COOKING"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, order.StatusPending, f.orders.byID["ord-1"].Status)
}

func TestListOrders_UnknownStatusFilterRejected(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/orders?status=bogus", "tenant-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestCancelOrder(t *testing.T) {
	f := newAPIFixture(t)
	f.orders.byID["ord-1"] = &order.Order{ID: "ord-1", TenantID: "tenant-1", Status: order.StatusReady}

	rec := f.do(t, http.MethodPost, "/api/orders/ord-1/cancel", "tenant-1", `{"reason":"guest left"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
}

func TestConfirmCashPayment(t *testing.T) {
	f := newAPIFixture(t)
	f.orders.byID["ord-1"] = &order.Order{
		ID:       "ord-1",
		TenantID: "tenant-1",
		Status:   order.StatusAwaitingCashPayment,
		Total:    decimal.NewFromInt(460),
	}

	rec := f.do(t, http.MethodPost, "/api/orders/ord-1/payment/cash", "tenant-1",
		`{"amountReceived": 500, "confirmedBy": "staff-7"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp paymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "COMPLETED", resp.Status)
	assert.True(t, resp.ChangeGiven.Equal(decimal.NewFromInt(40)))
}

func TestConfirmCashPayment_UnknownOrder(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/orders/missing/payment/cash", "tenant-1", `{"amountReceived": 100}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvaluateDiscounts_Preview(t *testing.T) {
	f := newAPIFixture(t)

	// Tuesday noon falls inside the default lunch special window.
	rec := f.do(t, http.MethodPost, "/api/discounts/evaluate", "tenant-1", `{
		"items": [
			{"menuItemId": "dish-1", "quantity": 3, "unitPrice": 250},
			{"menuItemId": "dish-2", "quantity": 2, "unitPrice": 350}
		],
		"orderTime": "2025-03-04T12:00:00Z"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp discountResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AppliedRuleID)
	assert.True(t, resp.TotalDiscountAmount.Equal(decimal.RequireFromString("217.5")))
	assert.True(t, resp.FinalAmount.Equal(decimal.RequireFromString("1232.5")))
}

func TestDiscountRulesAdmin(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/discounts/rules", "tenant-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Rules []ruleResponse `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	defaults := len(listResp.Rules)
	require.NotZero(t, defaults)

	rec = f.do(t, http.MethodPost, "/api/discounts/rules", "tenant-1", `{
		"type": "VOLUME_BASED",
		"name": "Party Pack",
		"discountPercent": 25,
		"minItems": 20
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/discounts/rules", "tenant-1", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.Len(t, listResp.Rules, defaults+1)

	rec = f.do(t, http.MethodDelete, "/api/discounts/rules/0", "tenant-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/discounts/rules/99", "tenant-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddDiscountRule_UnknownType(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/discounts/rules", "tenant-1", `{"type":"MAGIC","name":"x","discountPercent":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/inventory", "tenant-1", `{
		"id": "itm-1", "name": "Paneer", "unit": "kg", "quantity": 8, "reorderLevel": 10
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created inventoryItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, inventory.AlertUrgent, created.Alert)

	rec = f.do(t, http.MethodGet, "/api/inventory/alerts", "tenant-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts struct {
		Alerts []inventoryItemResponse `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts.Alerts, 1)

	rec = f.do(t, http.MethodGet, "/api/inventory/stats", "tenant-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats inventory.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalItems)
	assert.Equal(t, 1, stats.UrgentCount)

	rec = f.do(t, http.MethodDelete, "/api/inventory/itm-1", "tenant-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestInventory_TenantIsolation(t *testing.T) {
	f := newAPIFixture(t)
	f.stock.byID["itm-1"] = &inventory.Item{ID: "itm-1", TenantID: "other-tenant", Name: "Rice", Quantity: decimal.NewFromInt(5)}

	rec := f.do(t, http.MethodGet, "/api/inventory/itm-1", "tenant-1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
