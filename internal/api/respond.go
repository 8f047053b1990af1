package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tably/ordercore/internal/domain/inventory"
	"github.com/tably/ordercore/internal/domain/order"
	"github.com/tably/ordercore/internal/domain/payment"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondError maps domain errors onto the HTTP error taxonomy:
// validation failures are 400, unknown references 422, missing
// resources 404, cross-tenant access 403, and state conflicts 409.
// Anything unmapped is a 500 with the detail kept out of the response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyLines):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrUnknownTenant),
		errors.Is(err, order.ErrUnknownCustomer):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, payment.ErrNotFound):
		writeError(w, http.StatusNotFound, "payment not found")
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, "inventory item not found")
	case errors.Is(err, payment.ErrFinal):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payment.ErrBadSignature):
		writeError(w, http.StatusBadRequest, "payment signature verification failed")
	default:
		respondTypedError(w, r, err)
	}
}

func respondTypedError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr *order.InvalidQuantityError
		umErr *order.UnknownMenuItemError
		tmErr *order.TenantMismatchError
		itErr *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &iqErr):
		writeError(w, http.StatusBadRequest, iqErr.Error())
	case errors.As(err, &umErr):
		writeError(w, http.StatusUnprocessableEntity, umErr.Error())
	case errors.As(err, &tmErr):
		writeError(w, http.StatusForbidden, tmErr.Error())
	case errors.As(err, &itErr):
		writeError(w, http.StatusConflict, itErr.Error())
	default:
		zctx.From(r.Context()).Error("Unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody parses the JSON request body into v, limiting request size
// so a hostile body cannot exhaust memory.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
