package http

import (
	"net/http"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
)

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "list_categories", "restaurant_id")
	if !ok {
		return
	}
	items, err := h.service.ListCategories(r.Context(), principal(r), restaurantID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_categories", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"categories": items})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "create_category", "restaurant_id")
	if !ok {
		return
	}
	var req application.CreateCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_category", err)
		return
	}
	res, err := h.service.CreateCategory(r.Context(), principal(r), restaurantID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_category", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "update_category", "restaurant_id")
	if !ok {
		return
	}
	categoryID, ok := pathUUID(w, r, "update_category", "category_id")
	if !ok {
		return
	}
	var req application.UpdateCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_category", err)
		return
	}
	res, err := h.service.UpdateCategory(r.Context(), principal(r), restaurantID, categoryID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_category", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "delete_category", "restaurant_id")
	if !ok {
		return
	}
	categoryID, ok := pathUUID(w, r, "delete_category", "category_id")
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), principal(r), restaurantID, categoryID); err != nil {
		writeMappedError(r.Context(), w, "delete_category", err)
		return
	}
	writeMessage(w, http.StatusOK, "Category deleted")
}

func (h *Handler) reorderCategories(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "reorder_categories", "restaurant_id")
	if !ok {
		return
	}
	var req application.ReorderCategoriesRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "reorder_categories", err)
		return
	}
	items, err := h.service.ReorderCategories(r.Context(), principal(r), restaurantID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "reorder_categories", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"categories": items})
}

func (h *Handler) listMenuItems(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "list_menu_items", "restaurant_id")
	if !ok {
		return
	}
	q := application.MenuItemQuery{
		CategoryID:      r.URL.Query().Get("category_id"),
		IncludeArchived: parseBool(r.URL.Query().Get("include_archived")),
	}
	items, err := h.service.ListMenuItems(r.Context(), principal(r), restaurantID, q)
	if err != nil {
		writeMappedError(r.Context(), w, "list_menu_items", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"menu_items": items})
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "get_menu_item", "restaurant_id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "get_menu_item", "item_id")
	if !ok {
		return
	}
	res, err := h.service.GetMenuItem(r.Context(), principal(r), restaurantID, itemID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_menu_item", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "create_menu_item", "restaurant_id")
	if !ok {
		return
	}
	var req application.CreateMenuItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_menu_item", err)
		return
	}
	res, err := h.service.CreateMenuItem(r.Context(), principal(r), restaurantID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_menu_item", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "update_menu_item", "restaurant_id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "update_menu_item", "item_id")
	if !ok {
		return
	}
	var req application.UpdateMenuItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_menu_item", err)
		return
	}
	res, err := h.service.UpdateMenuItem(r.Context(), principal(r), restaurantID, itemID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_menu_item", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) setMenuItemAvailability(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "set_menu_item_availability", "restaurant_id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "set_menu_item_availability", "item_id")
	if !ok {
		return
	}
	var req application.SetAvailabilityRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "set_menu_item_availability", err)
		return
	}
	res, err := h.service.SetMenuItemAvailability(r.Context(), principal(r), restaurantID, itemID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "set_menu_item_availability", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "delete_menu_item", "restaurant_id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "delete_menu_item", "item_id")
	if !ok {
		return
	}
	archived, err := h.service.DeleteMenuItem(r.Context(), principal(r), restaurantID, itemID)
	if err != nil {
		writeMappedError(r.Context(), w, "delete_menu_item", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"item_id":  itemID,
		"archived": archived,
	})
}

func (h *Handler) staffMenu(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "staff_menu", "restaurant_id")
	if !ok {
		return
	}
	res, err := h.service.GetMenu(r.Context(), principal(r), restaurantID)
	if err != nil {
		writeMappedError(r.Context(), w, "staff_menu", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
