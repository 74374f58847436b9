package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
)

func (s *Service) ListModifierTemplates(ctx context.Context, p Principal, restaurantID uuid.UUID) ([]ModifierTemplateView, error) {
	if err := authorize(p, domain.PermMenuRead, restaurantID); err != nil {
		return nil, err
	}
	templates, err := s.templates.List(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	out := make([]ModifierTemplateView, 0, len(templates))
	for _, t := range templates {
		out = append(out, toModifierTemplateView(t))
	}
	return out, nil
}

func (s *Service) GetModifierTemplate(ctx context.Context, p Principal, restaurantID, templateID uuid.UUID) (ModifierTemplateView, error) {
	if err := authorize(p, domain.PermMenuRead, restaurantID); err != nil {
		return ModifierTemplateView{}, err
	}
	t, err := s.templates.GetByID(ctx, restaurantID, templateID)
	if err != nil {
		return ModifierTemplateView{}, err
	}
	return toModifierTemplateView(t), nil
}

// buildTemplate converts a request into a template. Option ids listed in keep are reused
// when the request references them; everything else receives a fresh id.
func buildTemplate(base domain.ModifierTemplate, req ModifierTemplateRequest, keep map[uuid.UUID]struct{}) (domain.ModifierTemplate, error) {
	selection, ok := domain.ParseSelectionType(req.SelectionType)
	if !ok {
		return domain.ModifierTemplate{}, fieldError("selection_type", "must be one of SINGLE MULTIPLE")
	}
	base.Name = strings.TrimSpace(req.Name)
	base.SelectionType = selection
	base.MinSelect = req.MinSelect
	base.MaxSelect = req.MaxSelect
	base.Required = req.Required
	base.Options = make([]domain.ModifierOption, 0, len(req.Options))
	for i, o := range req.Options {
		id := uuid.New()
		if strings.TrimSpace(o.ID) != "" {
			parsed, err := parseUUIDField(fmt.Sprintf("options[%d].id", i), o.ID)
			if err != nil {
				return domain.ModifierTemplate{}, err
			}
			if _, ok := keep[parsed]; !ok {
				return domain.ModifierTemplate{}, fieldError(fmt.Sprintf("options[%d].id", i), "is not an option of this template")
			}
			id = parsed
		}
		base.Options = append(base.Options, domain.ModifierOption{
			ID:              id,
			Name:            strings.TrimSpace(o.Name),
			PriceDeltaCents: o.PriceDeltaCents,
			IsDefault:       o.IsDefault,
			IsAvailable:     o.IsAvailable == nil || *o.IsAvailable,
			SortOrder:       o.SortOrder,
		})
	}
	if err := domain.ValidateModifierTemplate(base); err != nil {
		return domain.ModifierTemplate{}, err
	}
	return base, nil
}

func (s *Service) CreateModifierTemplate(ctx context.Context, p Principal, restaurantID uuid.UUID, req ModifierTemplateRequest) (ModifierTemplateView, error) {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return ModifierTemplateView{}, err
	}
	if err := validateRequest(req); err != nil {
		return ModifierTemplateView{}, err
	}
	if _, err := s.requireOpenRestaurant(ctx, restaurantID); err != nil {
		return ModifierTemplateView{}, err
	}
	now := s.nowFn()
	t, err := buildTemplate(domain.ModifierTemplate{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, req, nil)
	if err != nil {
		return ModifierTemplateView{}, err
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return ModifierTemplateView{}, err
	}
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "modifier_template.created", "modifier_template", t.ID.String(),
		map[string]any{"name": t.Name, "options": len(t.Options)})
	return toModifierTemplateView(t), nil
}

// UpdateModifierTemplate replaces the template definition and its option set.
func (s *Service) UpdateModifierTemplate(ctx context.Context, p Principal, restaurantID, templateID uuid.UUID, req ModifierTemplateRequest) (ModifierTemplateView, error) {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return ModifierTemplateView{}, err
	}
	if err := validateRequest(req); err != nil {
		return ModifierTemplateView{}, err
	}
	current, err := s.templates.GetByID(ctx, restaurantID, templateID)
	if err != nil {
		return ModifierTemplateView{}, err
	}
	keep := make(map[uuid.UUID]struct{}, len(current.Options))
	for _, o := range current.Options {
		keep[o.ID] = struct{}{}
	}
	current.UpdatedAt = s.nowFn()
	t, err := buildTemplate(current, req, keep)
	if err != nil {
		return ModifierTemplateView{}, err
	}
	if err := s.templates.Update(ctx, t); err != nil {
		return ModifierTemplateView{}, err
	}
	// every item using the template renders differently now
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "modifier_template.updated", "modifier_template", t.ID.String(),
		map[string]any{"name": t.Name, "options": len(t.Options)})
	return toModifierTemplateView(t), nil
}

func (s *Service) DeleteModifierTemplate(ctx context.Context, p Principal, restaurantID, templateID uuid.UUID) error {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return err
	}
	if _, err := s.templates.GetByID(ctx, restaurantID, templateID); err != nil {
		return err
	}
	attached, err := s.itemModifiers.CountByTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if attached > 0 {
		return fmt.Errorf("%w: template is attached to %d menu item(s)", domain.ErrConflict, attached)
	}
	if err := s.templates.Delete(ctx, restaurantID, templateID); err != nil {
		return err
	}
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "modifier_template.deleted", "modifier_template", templateID.String(), nil)
	return nil
}

// ListItemModifiers returns the resolved modifier groups of one menu item.
func (s *Service) ListItemModifiers(ctx context.Context, p Principal, restaurantID, itemID uuid.UUID) ([]domain.ResolvedModifierGroup, error) {
	if err := authorize(p, domain.PermMenuRead, restaurantID); err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, restaurantID, itemID)
	if err != nil {
		return nil, err
	}
	groups, err := s.resolveGroupsForItems(ctx, restaurantID, []domain.MenuItem{item})
	if err != nil {
		return nil, err
	}
	if groups[itemID] == nil {
		return []domain.ResolvedModifierGroup{}, nil
	}
	return groups[itemID], nil
}

// AttachModifier links a template to a menu item, replacing any previous overrides.
func (s *Service) AttachModifier(ctx context.Context, p Principal, restaurantID, itemID, templateID uuid.UUID, req AttachModifierRequest) (domain.ResolvedModifierGroup, error) {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return domain.ResolvedModifierGroup{}, err
	}
	if err := validateRequest(req); err != nil {
		return domain.ResolvedModifierGroup{}, err
	}
	item, err := s.items.GetByID(ctx, restaurantID, itemID)
	if err != nil {
		return domain.ResolvedModifierGroup{}, err
	}
	if item.ArchivedAt != nil {
		return domain.ResolvedModifierGroup{}, fmt.Errorf("%w: menu item is archived", domain.ErrConflict)
	}
	template, err := s.templates.GetByID(ctx, restaurantID, templateID)
	if err != nil {
		return domain.ResolvedModifierGroup{}, err
	}
	if req.MinSelectOverride != nil && req.MaxSelectOverride != nil && *req.MaxSelectOverride > 0 && *req.MinSelectOverride > *req.MaxSelectOverride {
		return domain.ResolvedModifierGroup{}, fieldError("min_select_override", "must be <= max_select_override")
	}

	options := make(map[uuid.UUID]struct{}, len(template.Options))
	for _, o := range template.Options {
		options[o.ID] = struct{}{}
	}
	overrides := make([]domain.OptionOverride, 0, len(req.OptionOverrides))
	seen := make(map[uuid.UUID]struct{}, len(req.OptionOverrides))
	for i, ov := range req.OptionOverrides {
		field := fmt.Sprintf("option_overrides[%d].option_id", i)
		id, err := parseUUIDField(field, ov.OptionID)
		if err != nil {
			return domain.ResolvedModifierGroup{}, err
		}
		if _, ok := options[id]; !ok {
			return domain.ResolvedModifierGroup{}, fieldError(field, "is not an option of this template")
		}
		if _, dup := seen[id]; dup {
			return domain.ResolvedModifierGroup{}, fieldError(field, "is duplicated")
		}
		seen[id] = struct{}{}
		overrides = append(overrides, domain.OptionOverride{
			OptionID:        id,
			PriceDeltaCents: ov.PriceDeltaCents,
			Hidden:          ov.Hidden,
			IsDefault:       ov.IsDefault,
		})
	}

	now := s.nowFn()
	modifier := domain.MenuItemModifier{
		ID:                uuid.New(),
		MenuItemID:        itemID,
		TemplateID:        templateID,
		SortOrder:         req.SortOrder,
		NameOverride:      trimPtr(req.NameOverride),
		MinSelectOverride: req.MinSelectOverride,
		MaxSelectOverride: req.MaxSelectOverride,
		RequiredOverride:  req.RequiredOverride,
		OptionOverrides:   overrides,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.itemModifiers.Upsert(ctx, modifier); err != nil {
		return domain.ResolvedModifierGroup{}, err
	}
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "menu_item.modifier_attached", "menu_item", itemID.String(),
		map[string]any{"template_id": templateID.String(), "overrides": len(overrides)})
	return domain.ResolveModifierGroup(template, &modifier), nil
}

func (s *Service) DetachModifier(ctx context.Context, p Principal, restaurantID, itemID, templateID uuid.UUID) error {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return err
	}
	if _, err := s.items.GetByID(ctx, restaurantID, itemID); err != nil {
		return err
	}
	if err := s.itemModifiers.Delete(ctx, itemID, templateID); err != nil {
		return err
	}
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "menu_item.modifier_detached", "menu_item", itemID.String(),
		map[string]any{"template_id": templateID.String()})
	return nil
}

// resolveGroupsForItems loads attachments and templates for items and returns resolved
// groups per item, ordered by attachment sort order. Groups with no visible options are skipped.
func (s *Service) resolveGroupsForItems(ctx context.Context, restaurantID uuid.UUID, items []domain.MenuItem) (map[uuid.UUID][]domain.ResolvedModifierGroup, error) {
	out := make(map[uuid.UUID][]domain.ResolvedModifierGroup, len(items))
	if len(items) == 0 {
		return out, nil
	}
	itemIDs := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ID)
	}
	attachments, err := s.itemModifiers.ListByItems(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	if len(attachments) == 0 {
		return out, nil
	}
	templateIDs := make([]uuid.UUID, 0, len(attachments))
	seen := map[uuid.UUID]struct{}{}
	for _, a := range attachments {
		if _, ok := seen[a.TemplateID]; ok {
			continue
		}
		seen[a.TemplateID] = struct{}{}
		templateIDs = append(templateIDs, a.TemplateID)
	}
	templates, err := s.templates.GetMany(ctx, restaurantID, templateIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.ModifierTemplate, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	for i := range attachments {
		a := attachments[i]
		t, ok := byID[a.TemplateID]
		if !ok {
			continue
		}
		g := domain.ResolveModifierGroup(t, &a)
		if len(g.Options) == 0 {
			continue
		}
		out[a.MenuItemID] = append(out[a.MenuItemID], g)
	}
	for id := range out {
		groups := out[id]
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].SortOrder < groups[j].SortOrder })
	}
	return out, nil
}
