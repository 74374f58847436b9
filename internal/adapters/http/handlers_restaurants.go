package http

import (
	"net/http"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
)

func listQuery(r *http.Request) application.ListQuery {
	q := r.URL.Query()
	return application.ListQuery{
		Limit:           parseIntDefault(q.Get("limit"), 0),
		Offset:          parseIntDefault(q.Get("offset"), 0),
		IncludeArchived: parseBool(q.Get("include_archived")),
	}
}

func (h *Handler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	var req application.CreateRestaurantRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_restaurant", err)
		return
	}
	res, err := h.service.CreateRestaurant(r.Context(), principal(r), req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_restaurant", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListRestaurants(r.Context(), principal(r), listQuery(r))
	if err != nil {
		writeMappedError(r.Context(), w, "list_restaurants", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"restaurants": items})
}

func (h *Handler) getRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "get_restaurant", "restaurant_id")
	if !ok {
		return
	}
	res, err := h.service.GetRestaurant(r.Context(), principal(r), restaurantID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_restaurant", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) updateRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "update_restaurant", "restaurant_id")
	if !ok {
		return
	}
	var req application.UpdateRestaurantRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_restaurant", err)
		return
	}
	res, err := h.service.UpdateRestaurant(r.Context(), principal(r), restaurantID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_restaurant", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) archiveRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "archive_restaurant", "restaurant_id")
	if !ok {
		return
	}
	if err := h.service.ArchiveRestaurant(r.Context(), principal(r), restaurantID); err != nil {
		writeMappedError(r.Context(), w, "archive_restaurant", err)
		return
	}
	writeMessage(w, http.StatusOK, "Restaurant archived")
}

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "list_staff", "restaurant_id")
	if !ok {
		return
	}
	items, err := h.service.ListStaff(r.Context(), principal(r), restaurantID, listQuery(r))
	if err != nil {
		writeMappedError(r.Context(), w, "list_staff", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"staff": items})
}

func (h *Handler) createStaff(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "create_staff", "restaurant_id")
	if !ok {
		return
	}
	var req application.CreateStaffRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_staff", err)
		return
	}
	res, err := h.service.CreateStaff(r.Context(), principal(r), restaurantID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_staff", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) updateStaff(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "update_staff", "restaurant_id")
	if !ok {
		return
	}
	staffID, ok := pathUUID(w, r, "update_staff", "staff_id")
	if !ok {
		return
	}
	var req application.UpdateStaffRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_staff", err)
		return
	}
	res, err := h.service.UpdateStaff(r.Context(), principal(r), restaurantID, staffID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_staff", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deactivateStaff(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "deactivate_staff", "restaurant_id")
	if !ok {
		return
	}
	staffID, ok := pathUUID(w, r, "deactivate_staff", "staff_id")
	if !ok {
		return
	}
	if err := h.service.DeactivateStaff(r.Context(), principal(r), restaurantID, staffID); err != nil {
		writeMappedError(r.Context(), w, "deactivate_staff", err)
		return
	}
	writeMessage(w, http.StatusOK, "Staff member deactivated")
}
