package http

import (
	"net/http"
	"strconv"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
)

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "list_tables", "restaurant_id")
	if !ok {
		return
	}
	items, err := h.service.ListTables(r.Context(), principal(r), restaurantID, parseBool(r.URL.Query().Get("include_archived")))
	if err != nil {
		writeMappedError(r.Context(), w, "list_tables", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"tables": items})
}

func (h *Handler) createTable(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "create_table", "restaurant_id")
	if !ok {
		return
	}
	var req application.CreateTableRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_table", err)
		return
	}
	res, err := h.service.CreateTable(r.Context(), principal(r), restaurantID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_table", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) updateTable(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "update_table", "restaurant_id")
	if !ok {
		return
	}
	tableID, ok := pathUUID(w, r, "update_table", "table_id")
	if !ok {
		return
	}
	var req application.UpdateTableRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_table", err)
		return
	}
	res, err := h.service.UpdateTable(r.Context(), principal(r), restaurantID, tableID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_table", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteTable(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "delete_table", "restaurant_id")
	if !ok {
		return
	}
	tableID, ok := pathUUID(w, r, "delete_table", "table_id")
	if !ok {
		return
	}
	if err := h.service.DeleteTable(r.Context(), principal(r), restaurantID, tableID); err != nil {
		writeMappedError(r.Context(), w, "delete_table", err)
		return
	}
	writeMessage(w, http.StatusOK, "Table archived")
}

func (h *Handler) regenerateTableCode(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "regenerate_table_code", "restaurant_id")
	if !ok {
		return
	}
	tableID, ok := pathUUID(w, r, "regenerate_table_code", "table_id")
	if !ok {
		return
	}
	res, err := h.service.RegenerateTableCode(r.Context(), principal(r), restaurantID, tableID)
	if err != nil {
		writeMappedError(r.Context(), w, "regenerate_table_code", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) rotateTableCodes(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "rotate_table_codes", "restaurant_id")
	if !ok {
		return
	}
	items, err := h.service.RotateTableCodes(r.Context(), principal(r), restaurantID)
	if err != nil {
		writeMappedError(r.Context(), w, "rotate_table_codes", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"tables": items})
}

func (h *Handler) tableQRCode(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "table_qr_code", "restaurant_id")
	if !ok {
		return
	}
	tableID, ok := pathUUID(w, r, "table_qr_code", "table_id")
	if !ok {
		return
	}
	png, err := h.service.TableQRCode(r.Context(), principal(r), restaurantID, tableID)
	if err != nil {
		writeMappedError(r.Context(), w, "table_qr_code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
