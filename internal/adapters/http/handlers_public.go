package http

import (
	"net/http"
	"strings"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
)

func (h *Handler) publicMenu(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetPublicMenu(r.Context(), principal(r))
	if err != nil {
		writeMappedError(r.Context(), w, "public_menu", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// placeOrder answers 201 for a new order and 200 when the Idempotency-Key replays one.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req application.PlaceOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "place_order", err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	res, err := h.service.PlaceOrder(r.Context(), principal(r), req, key)
	if err != nil {
		writeMappedError(r.Context(), w, "place_order", err)
		return
	}
	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		writeSuccess(w, http.StatusOK, res.Order)
		return
	}
	writeSuccess(w, http.StatusCreated, res.Order)
}

func (h *Handler) listTableOrders(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListTableOrders(r.Context(), principal(r))
	if err != nil {
		writeMappedError(r.Context(), w, "list_table_orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"orders": items})
}

func (h *Handler) getCustomerOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "get_customer_order", "order_id")
	if !ok {
		return
	}
	res, err := h.service.GetCustomerOrder(r.Context(), principal(r), orderID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_customer_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
