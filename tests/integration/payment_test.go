//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"
)

func TestCashPayment_Underpaid(t *testing.T) {
	order := placeOrder(t, orderRequest{
		TableNumber: 10,
		Items:       []orderItemRequest{{MenuItemID: "dish-5", Quantity: 1}},
	})

	resp := doPost(t, "/api/orders/"+order.ID+"/payment/cash", map[string]any{
		"amountReceived": -5,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCashPayment_UnknownOrder(t *testing.T) {
	resp := doPost(t, "/api/orders/no-such-order/payment/cash", map[string]any{
		"amountReceived": 100,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// TestCashPayment_CompletesOrderAndDeductsStock walks the whole async
// pipeline: cash confirmation emits payment.completed, the orchestrator
// consumer moves the served order to COMPLETED, which emits
// order.completed, and the inventory consumer deducts the linked stock.
func TestCashPayment_CompletesOrderAndDeductsStock(t *testing.T) {
	const qty = 2

	chickenBefore := inventoryQuantity(t, "inv-chicken")

	order := placeOrder(t, orderRequest{
		TableNumber: 11,
		Items:       []orderItemRequest{{MenuItemID: "dish-2", Quantity: qty}},
	})

	for _, status := range []string{"PREPARING", "READY", "SERVED"} {
		resp := doPatch(t, "/api/orders/"+order.ID+"/status", map[string]string{"status": status})
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s: got %d", status, resp.StatusCode)
		}
	}

	resp := doPost(t, "/api/orders/"+order.ID+"/payment/cash", map[string]any{
		"amountReceived": order.Total + 100,
		"confirmedBy":    "till-1",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm cash: expected 200, got %d", resp.StatusCode)
	}

	pay := decodeJSON[paymentResponse](t, resp)
	if pay.Status != "COMPLETED" {
		t.Fatalf("payment status: got %q, want COMPLETED", pay.Status)
	}
	if abs(pay.ChangeGiven-100) > 0.01 {
		t.Errorf("change: got %v, want 100", pay.ChangeGiven)
	}

	// The rest happens through the outbox and the broker.
	waitFor(t, 30*time.Second, "order completed", func() bool {
		resp := doGet(t, "/api/orders/"+order.ID)
		defer resp.Body.Close()
		return decodeJSON[orderResponse](t, resp).Status == "COMPLETED"
	})

	waitFor(t, 30*time.Second, "stock deducted", func() bool {
		return abs(inventoryQuantity(t, "inv-chicken")-(chickenBefore-qty)) < 0.001
	})
}

func inventoryQuantity(t *testing.T, id string) float64 {
	t.Helper()

	resp := doGet(t, "/api/inventory/"+id)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get inventory %s: got %d", id, resp.StatusCode)
	}
	return decodeJSON[inventoryItemResponse](t, resp).Quantity
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
