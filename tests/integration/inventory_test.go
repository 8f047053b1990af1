//go:build integration

package integration

import (
	"net/http"
	"testing"
)

type inventoryStatsResponse struct {
	TotalItems    int     `json:"totalItems"`
	TotalQuantity float64 `json:"totalQuantity"`
	UrgentCount   int     `json:"urgentCount"`
	WarningCount  int     `json:"warningCount"`
	OutOfStock    int     `json:"outOfStock"`
}

func TestInventory_List(t *testing.T) {
	resp := doGet(t, "/api/inventory")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[inventoryListResponse](t, resp)
	if len(list.Items) < 5 {
		t.Fatalf("expected at least 5 seeded items, got %d", len(list.Items))
	}
}

func TestInventory_NoTenant(t *testing.T) {
	resp := doGetNoTenant(t, "/api/inventory")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestInventory_AlertLifecycle(t *testing.T) {
	// Create an item sitting below its reorder level.
	resp := doPost(t, "/api/inventory", map[string]any{
		"id":           "inv-test-saffron",
		"name":         "Saffron",
		"unit":         "g",
		"quantity":     3,
		"reorderLevel": 10,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[inventoryItemResponse](t, resp)
	resp.Body.Close()

	if created.Alert != "URGENT" {
		t.Errorf("alert: got %q, want URGENT", created.Alert)
	}

	// It must show up in the alerts feed.
	resp = doGet(t, "/api/inventory/alerts")
	alerts := decodeJSON[struct {
		Alerts []inventoryItemResponse `json:"alerts"`
	}](t, resp)
	resp.Body.Close()

	found := false
	for _, a := range alerts.Alerts {
		if a.ID == "inv-test-saffron" {
			found = true
		}
	}
	if !found {
		t.Error("created item missing from alerts feed")
	}

	// Restocking clears the alert.
	resp = doRequest(t, http.MethodPut, "/api/inventory/inv-test-saffron", map[string]any{
		"name":         "Saffron",
		"unit":         "g",
		"quantity":     50,
		"reorderLevel": 10,
	}, testTenant)
	updated := decodeJSON[inventoryItemResponse](t, resp)
	resp.Body.Close()

	if updated.Alert != "" {
		t.Errorf("alert after restock: got %q, want none", updated.Alert)
	}

	resp = doRequest(t, http.MethodDelete, "/api/inventory/inv-test-saffron", nil, testTenant)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
}

func TestInventory_Stats(t *testing.T) {
	resp := doGet(t, "/api/inventory/stats")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	stats := decodeJSON[inventoryStatsResponse](t, resp)
	if stats.TotalItems < 5 {
		t.Errorf("totalItems: got %d, want at least 5", stats.TotalItems)
	}
	if stats.TotalQuantity <= 0 {
		t.Errorf("totalQuantity: got %v, want positive", stats.TotalQuantity)
	}
}
