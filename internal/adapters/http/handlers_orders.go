package http

import (
	"net/http"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "list_orders", "restaurant_id")
	if !ok {
		return
	}
	qs := r.URL.Query()
	q := application.OrderQuery{
		Statuses:        splitCSV(qs.Get("status")),
		TableID:         qs.Get("table_id"),
		ActiveOnly:      parseBool(qs.Get("active")),
		IncludeArchived: parseBool(qs.Get("include_archived")),
		Limit:           parseIntDefault(qs.Get("limit"), 0),
		Offset:          parseIntDefault(qs.Get("offset"), 0),
	}
	items, err := h.service.ListOrders(r.Context(), principal(r), restaurantID, q)
	if err != nil {
		writeMappedError(r.Context(), w, "list_orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"orders": items})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "get_order", "restaurant_id")
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "get_order", "order_id")
	if !ok {
		return
	}
	res, err := h.service.GetOrder(r.Context(), principal(r), restaurantID, orderID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "transition_order", "restaurant_id")
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "transition_order", "order_id")
	if !ok {
		return
	}
	var req application.TransitionOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "transition_order", err)
		return
	}
	res, err := h.service.TransitionOrder(r.Context(), principal(r), restaurantID, orderID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "transition_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) archiveOrder(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "archive_order", "restaurant_id")
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "archive_order", "order_id")
	if !ok {
		return
	}
	res, err := h.service.ArchiveOrder(r.Context(), principal(r), restaurantID, orderID)
	if err != nil {
		writeMappedError(r.Context(), w, "archive_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "delete_order", "restaurant_id")
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "delete_order", "order_id")
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(r.Context(), principal(r), restaurantID, orderID); err != nil {
		writeMappedError(r.Context(), w, "delete_order", err)
		return
	}
	writeMessage(w, http.StatusOK, "Order deleted")
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "list_audit", "restaurant_id")
	if !ok {
		return
	}
	qs := r.URL.Query()
	q := application.AuditQuery{
		EntityType: qs.Get("entity_type"),
		EntityID:   qs.Get("entity_id"),
		ActorID:    qs.Get("actor_id"),
		Limit:      parseIntDefault(qs.Get("limit"), 0),
		Offset:     parseIntDefault(qs.Get("offset"), 0),
	}
	items, err := h.service.ListAudit(r.Context(), principal(r), restaurantID, q)
	if err != nil {
		writeMappedError(r.Context(), w, "list_audit", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"entries": items})
}
