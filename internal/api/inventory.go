package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tably/ordercore/internal/domain/inventory"
)

type inventoryItemRequest struct {
	ID           string  `json:"id,omitempty"`
	MenuItemID   string  `json:"menuItemId,omitempty"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit,omitempty"`
	Quantity     float64 `json:"quantity"`
	ReorderLevel float64 `json:"reorderLevel"`
}

type inventoryItemResponse struct {
	inventory.Item
	Alert inventory.AlertLevel `json:"alert,omitempty"`
}

func toInventoryResponse(item inventory.Item) inventoryItemResponse {
	return inventoryItemResponse{Item: item, Alert: item.Alert()}
}

func (h *Handler) createInventoryItem(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req inventoryItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Quantity < 0 || req.ReorderLevel < 0 {
		writeError(w, http.StatusBadRequest, "quantity and reorderLevel must not be negative")
		return
	}

	item, err := h.stock.Create(r.Context(), &inventory.Item{
		ID:           req.ID,
		TenantID:     tenantID,
		MenuItemID:   req.MenuItemID,
		Name:         req.Name,
		Unit:         req.Unit,
		Quantity:     decimal.NewFromFloat(req.Quantity),
		ReorderLevel: decimal.NewFromFloat(req.ReorderLevel),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryResponse(*item))
}

func (h *Handler) getInventoryItem(w http.ResponseWriter, r *http.Request, tenantID string) {
	item, err := h.stock.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if item.TenantID != tenantID {
		writeError(w, http.StatusForbidden, "inventory item belongs to another tenant")
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(*item))
}

func (h *Handler) updateInventoryItem(w http.ResponseWriter, r *http.Request, tenantID string) {
	item, err := h.stock.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if item.TenantID != tenantID {
		writeError(w, http.StatusForbidden, "inventory item belongs to another tenant")
		return
	}

	var req inventoryItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity < 0 || req.ReorderLevel < 0 {
		writeError(w, http.StatusBadRequest, "quantity and reorderLevel must not be negative")
		return
	}

	item.MenuItemID = req.MenuItemID
	if req.Name != "" {
		item.Name = req.Name
	}
	item.Unit = req.Unit
	item.Quantity = decimal.NewFromFloat(req.Quantity)
	item.ReorderLevel = decimal.NewFromFloat(req.ReorderLevel)

	updated, err := h.stock.Update(r.Context(), item)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(*updated))
}

func (h *Handler) deleteInventoryItem(w http.ResponseWriter, r *http.Request, tenantID string) {
	item, err := h.stock.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if item.TenantID != tenantID {
		writeError(w, http.StatusForbidden, "inventory item belongs to another tenant")
		return
	}
	if err := h.stock.Delete(r.Context(), item.ID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request, tenantID string) {
	items, err := h.stock.List(r.Context(), tenantID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]inventoryItemResponse, len(items))
	for i, item := range items {
		out[i] = toInventoryResponse(item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) inventoryAlerts(w http.ResponseWriter, r *http.Request, tenantID string) {
	items, err := h.stock.ReorderAlerts(r.Context(), tenantID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]inventoryItemResponse, len(items))
	for i, item := range items {
		out[i] = toInventoryResponse(item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": out})
}

func (h *Handler) inventoryStats(w http.ResponseWriter, r *http.Request, tenantID string) {
	stats, err := h.stock.StatsFor(r.Context(), tenantID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
