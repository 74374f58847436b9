package http

import (
	"net/http"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
)

func (h *Handler) listModifierTemplates(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "list_modifier_templates", "restaurant_id")
	if !ok {
		return
	}
	items, err := h.service.ListModifierTemplates(r.Context(), principal(r), restaurantID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_modifier_templates", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"modifier_templates": items})
}

func (h *Handler) getModifierTemplate(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "get_modifier_template", "restaurant_id")
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "get_modifier_template", "template_id")
	if !ok {
		return
	}
	res, err := h.service.GetModifierTemplate(r.Context(), principal(r), restaurantID, templateID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_modifier_template", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) createModifierTemplate(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "create_modifier_template", "restaurant_id")
	if !ok {
		return
	}
	var req application.ModifierTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_modifier_template", err)
		return
	}
	res, err := h.service.CreateModifierTemplate(r.Context(), principal(r), restaurantID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_modifier_template", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) updateModifierTemplate(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "update_modifier_template", "restaurant_id")
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "update_modifier_template", "template_id")
	if !ok {
		return
	}
	var req application.ModifierTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_modifier_template", err)
		return
	}
	res, err := h.service.UpdateModifierTemplate(r.Context(), principal(r), restaurantID, templateID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_modifier_template", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteModifierTemplate(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "delete_modifier_template", "restaurant_id")
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "delete_modifier_template", "template_id")
	if !ok {
		return
	}
	if err := h.service.DeleteModifierTemplate(r.Context(), principal(r), restaurantID, templateID); err != nil {
		writeMappedError(r.Context(), w, "delete_modifier_template", err)
		return
	}
	writeMessage(w, http.StatusOK, "Modifier template deleted")
}

func (h *Handler) listItemModifiers(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "list_item_modifiers", "restaurant_id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "list_item_modifiers", "item_id")
	if !ok {
		return
	}
	groups, err := h.service.ListItemModifiers(r.Context(), principal(r), restaurantID, itemID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_item_modifiers", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"modifier_groups": groups})
}

// attachModifier links a template to an item, replacing any existing override set.
func (h *Handler) attachModifier(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "attach_modifier", "restaurant_id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "attach_modifier", "item_id")
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "attach_modifier", "template_id")
	if !ok {
		return
	}
	var req application.AttachModifierRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "attach_modifier", err)
		return
	}
	group, err := h.service.AttachModifier(r.Context(), principal(r), restaurantID, itemID, templateID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "attach_modifier", err)
		return
	}
	writeSuccess(w, http.StatusOK, group)
}

func (h *Handler) detachModifier(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "detach_modifier", "restaurant_id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "detach_modifier", "item_id")
	if !ok {
		return
	}
	templateID, ok := pathUUID(w, r, "detach_modifier", "template_id")
	if !ok {
		return
	}
	if err := h.service.DetachModifier(r.Context(), principal(r), restaurantID, itemID, templateID); err != nil {
		writeMappedError(r.Context(), w, "detach_modifier", err)
		return
	}
	writeMessage(w, http.StatusOK, "Modifier detached")
}
