package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

func (s *Service) ListCategories(ctx context.Context, p Principal, restaurantID uuid.UUID) ([]CategoryView, error) {
	if err := authorize(p, domain.PermMenuRead, restaurantID); err != nil {
		return nil, err
	}
	categories, err := s.categories.List(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryView(c))
	}
	return out, nil
}

func (s *Service) CreateCategory(ctx context.Context, p Principal, restaurantID uuid.UUID, req CreateCategoryRequest) (CategoryView, error) {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return CategoryView{}, err
	}
	if err := validateRequest(req); err != nil {
		return CategoryView{}, err
	}
	if _, err := s.requireOpenRestaurant(ctx, restaurantID); err != nil {
		return CategoryView{}, err
	}
	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	} else {
		existing, err := s.categories.List(ctx, restaurantID)
		if err != nil {
			return CategoryView{}, err
		}
		sortOrder = len(existing)
	}
	now := s.nowFn()
	category := domain.MenuCategory{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		SortOrder:    sortOrder,
		IsActive:     req.IsActive == nil || *req.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return CategoryView{}, err
	}
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "category.created", "menu_category", category.ID.String(), map[string]any{"name": category.Name})
	return toCategoryView(category), nil
}

func (s *Service) UpdateCategory(ctx context.Context, p Principal, restaurantID, categoryID uuid.UUID, req UpdateCategoryRequest) (CategoryView, error) {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return CategoryView{}, err
	}
	if err := validateRequest(req); err != nil {
		return CategoryView{}, err
	}
	category, err := s.categories.GetByID(ctx, restaurantID, categoryID)
	if err != nil {
		return CategoryView{}, err
	}
	changed := map[string]any{}
	if v := trimPtr(req.Name); v != nil {
		category.Name = *v
		changed["name"] = *v
	}
	if v := trimPtr(req.Description); v != nil {
		category.Description = *v
		changed["description"] = *v
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
		changed["sort_order"] = *req.SortOrder
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
		changed["is_active"] = *req.IsActive
	}
	category.UpdatedAt = s.nowFn()
	if err := s.categories.Update(ctx, category); err != nil {
		return CategoryView{}, err
	}
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "category.updated", "menu_category", categoryID.String(), changed)
	return toCategoryView(category), nil
}

// DeleteCategory is refused while non-archived items still point at the category.
func (s *Service) DeleteCategory(ctx context.Context, p Principal, restaurantID, categoryID uuid.UUID) error {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return err
	}
	if _, err := s.categories.GetByID(ctx, restaurantID, categoryID); err != nil {
		return err
	}
	count, err := s.items.CountActiveByCategory(ctx, restaurantID, categoryID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: category still has %d menu item(s)", domain.ErrConflict, count)
	}
	if err := s.categories.Delete(ctx, restaurantID, categoryID); err != nil {
		return err
	}
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "category.deleted", "menu_category", categoryID.String(), nil)
	return nil
}

// ReorderCategories assigns sort order by position. Every id must belong to the restaurant.
func (s *Service) ReorderCategories(ctx context.Context, p Principal, restaurantID uuid.UUID, req ReorderCategoriesRequest) ([]CategoryView, error) {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	existing, err := s.categories.List(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	known := make(map[uuid.UUID]struct{}, len(existing))
	for _, c := range existing {
		known[c.ID] = struct{}{}
	}
	ids := make([]uuid.UUID, 0, len(req.CategoryIDs))
	seen := make(map[uuid.UUID]struct{}, len(req.CategoryIDs))
	for i, raw := range req.CategoryIDs {
		id, err := parseUUIDField(fmt.Sprintf("category_ids[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		if _, ok := known[id]; !ok {
			return nil, fieldError(fmt.Sprintf("category_ids[%d]", i), "is not a category of this restaurant")
		}
		if _, dup := seen[id]; dup {
			return nil, fieldError(fmt.Sprintf("category_ids[%d]", i), "is duplicated")
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if err := s.categories.Reorder(ctx, restaurantID, ids, s.nowFn()); err != nil {
		return nil, err
	}
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "category.reordered", "menu_category", restaurantID.String(), map[string]any{"count": len(ids)})
	return s.ListCategories(ctx, p, restaurantID)
}

func (s *Service) ListMenuItems(ctx context.Context, p Principal, restaurantID uuid.UUID, q MenuItemQuery) ([]MenuItemView, error) {
	if err := authorize(p, domain.PermMenuRead, restaurantID); err != nil {
		return nil, err
	}
	filter := ports.MenuItemFilter{IncludeArchived: q.IncludeArchived}
	if strings.TrimSpace(q.CategoryID) != "" {
		id, err := parseUUIDField("category_id", q.CategoryID)
		if err != nil {
			return nil, err
		}
		filter.CategoryID = &id
	}
	items, err := s.items.List(ctx, restaurantID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]MenuItemView, 0, len(items))
	for _, it := range items {
		out = append(out, toMenuItemView(it))
	}
	return out, nil
}

func (s *Service) GetMenuItem(ctx context.Context, p Principal, restaurantID, itemID uuid.UUID) (MenuItemView, error) {
	if err := authorize(p, domain.PermMenuRead, restaurantID); err != nil {
		return MenuItemView{}, err
	}
	item, err := s.items.GetByID(ctx, restaurantID, itemID)
	if err != nil {
		return MenuItemView{}, err
	}
	return toMenuItemView(item), nil
}

func (s *Service) CreateMenuItem(ctx context.Context, p Principal, restaurantID uuid.UUID, req CreateMenuItemRequest) (MenuItemView, error) {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return MenuItemView{}, err
	}
	if err := validateRequest(req); err != nil {
		return MenuItemView{}, err
	}
	categoryID, err := parseUUIDField("category_id", req.CategoryID)
	if err != nil {
		return MenuItemView{}, err
	}
	if _, err := s.categories.GetByID(ctx, restaurantID, categoryID); err != nil {
		return MenuItemView{}, fieldError("category_id", "is not a category of this restaurant")
	}
	now := s.nowFn()
	item := domain.MenuItem{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		CategoryID:   categoryID,
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		PriceCents:   req.PriceCents,
		ImageURL:     strings.TrimSpace(req.ImageURL),
		IsAvailable:  req.IsAvailable == nil || *req.IsAvailable,
		SortOrder:    req.SortOrder,
		Tags:         normalizeTags(req.Tags),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return MenuItemView{}, err
	}
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "menu_item.created", "menu_item", item.ID.String(),
		map[string]any{"name": item.Name, "price_cents": item.PriceCents})
	return toMenuItemView(item), nil
}

func (s *Service) UpdateMenuItem(ctx context.Context, p Principal, restaurantID, itemID uuid.UUID, req UpdateMenuItemRequest) (MenuItemView, error) {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return MenuItemView{}, err
	}
	if err := validateRequest(req); err != nil {
		return MenuItemView{}, err
	}
	item, err := s.items.GetByID(ctx, restaurantID, itemID)
	if err != nil {
		return MenuItemView{}, err
	}
	if item.ArchivedAt != nil {
		return MenuItemView{}, fmt.Errorf("%w: menu item is archived", domain.ErrConflict)
	}
	changed := map[string]any{}
	if req.CategoryID != nil {
		categoryID, err := parseUUIDField("category_id", *req.CategoryID)
		if err != nil {
			return MenuItemView{}, err
		}
		if _, err := s.categories.GetByID(ctx, restaurantID, categoryID); err != nil {
			return MenuItemView{}, fieldError("category_id", "is not a category of this restaurant")
		}
		item.CategoryID = categoryID
		changed["category_id"] = categoryID
	}
	if v := trimPtr(req.Name); v != nil {
		item.Name = *v
		changed["name"] = *v
	}
	if v := trimPtr(req.Description); v != nil {
		item.Description = *v
	}
	if req.PriceCents != nil {
		changed["price_cents"] = map[string]int64{"from": item.PriceCents, "to": *req.PriceCents}
		item.PriceCents = *req.PriceCents
	}
	if v := trimPtr(req.ImageURL); v != nil {
		item.ImageURL = *v
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
		changed["is_available"] = *req.IsAvailable
	}
	if req.SortOrder != nil {
		item.SortOrder = *req.SortOrder
	}
	if req.Tags != nil {
		item.Tags = normalizeTags(*req.Tags)
	}
	item.UpdatedAt = s.nowFn()
	if err := s.items.Update(ctx, item); err != nil {
		return MenuItemView{}, err
	}
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "menu_item.updated", "menu_item", itemID.String(), changed)
	return toMenuItemView(item), nil
}

func (s *Service) SetMenuItemAvailability(ctx context.Context, p Principal, restaurantID, itemID uuid.UUID, req SetAvailabilityRequest) (MenuItemView, error) {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return MenuItemView{}, err
	}
	if err := validateRequest(req); err != nil {
		return MenuItemView{}, err
	}
	item, err := s.items.GetByID(ctx, restaurantID, itemID)
	if err != nil {
		return MenuItemView{}, err
	}
	if item.ArchivedAt != nil {
		return MenuItemView{}, fmt.Errorf("%w: menu item is archived", domain.ErrConflict)
	}
	now := s.nowFn()
	if err := s.items.SetAvailability(ctx, restaurantID, itemID, *req.IsAvailable, now); err != nil {
		return MenuItemView{}, err
	}
	item.IsAvailable = *req.IsAvailable
	item.UpdatedAt = now
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "menu_item.availability_changed", "menu_item", itemID.String(),
		map[string]any{"is_available": item.IsAvailable})
	return toMenuItemView(item), nil
}

// DeleteMenuItem archives items referenced by past orders so order history keeps resolving,
// and hard-deletes the rest. It reports whether the item was archived.
func (s *Service) DeleteMenuItem(ctx context.Context, p Principal, restaurantID, itemID uuid.UUID) (bool, error) {
	if err := authorize(p, domain.PermMenuWrite, restaurantID); err != nil {
		return false, err
	}
	item, err := s.items.GetByID(ctx, restaurantID, itemID)
	if err != nil {
		return false, err
	}
	referenced, err := s.orders.ExistsForMenuItem(ctx, itemID)
	if err != nil {
		return false, err
	}
	action := "menu_item.deleted"
	if referenced {
		if item.ArchivedAt == nil {
			if err := s.items.Archive(ctx, restaurantID, itemID, s.nowFn()); err != nil {
				return false, err
			}
		}
		action = "menu_item.archived"
	} else if err := s.items.Delete(ctx, restaurantID, itemID); err != nil {
		return false, err
	}
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), action, "menu_item", itemID.String(), map[string]any{"name": item.Name})
	return referenced, nil
}

// GetMenu returns the staff preview of the public menu.
func (s *Service) GetMenu(ctx context.Context, p Principal, restaurantID uuid.UUID) (MenuView, error) {
	if err := authorize(p, domain.PermMenuRead, restaurantID); err != nil {
		return MenuView{}, err
	}
	return s.menu(ctx, restaurantID)
}

// GetPublicMenu returns the menu of the restaurant a customer session is bound to.
func (s *Service) GetPublicMenu(ctx context.Context, p Principal) (MenuView, error) {
	restaurantID, _, err := customerScope(p)
	if err != nil {
		return MenuView{}, err
	}
	return s.menu(ctx, restaurantID)
}

func (s *Service) menu(ctx context.Context, restaurantID uuid.UUID) (MenuView, error) {
	if s.menuCache != nil {
		raw, ok, err := s.menuCache.Get(ctx, restaurantID)
		if err != nil {
			slog.Default().WarnContext(ctx, "menu cache read failed",
				"module", "application",
				"layer", "application",
				"operation", "get_menu",
				"outcome", "degraded",
				"restaurant_id", restaurantID,
				"error", err,
			)
		}
		if ok {
			var cached MenuView
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	view, err := s.buildMenu(ctx, restaurantID)
	if err != nil {
		return MenuView{}, err
	}
	if s.menuCache != nil {
		raw, _ := json.Marshal(view)
		if err := s.menuCache.Set(ctx, restaurantID, raw, s.cfg.MenuCacheTTL); err != nil {
			slog.Default().WarnContext(ctx, "menu cache write failed",
				"module", "application",
				"layer", "application",
				"operation", "get_menu",
				"outcome", "degraded",
				"restaurant_id", restaurantID,
				"error", err,
			)
		}
	}
	return view, nil
}

// buildMenu assembles active categories, orderable items and their resolved modifier groups.
func (s *Service) buildMenu(ctx context.Context, restaurantID uuid.UUID) (MenuView, error) {
	restaurant, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return MenuView{}, err
	}
	if restaurant.ArchivedAt != nil {
		return MenuView{}, domain.ErrNotFound
	}
	categories, err := s.categories.List(ctx, restaurantID)
	if err != nil {
		return MenuView{}, err
	}
	items, err := s.items.List(ctx, restaurantID, ports.MenuItemFilter{AvailableOnly: true})
	if err != nil {
		return MenuView{}, err
	}
	groups, err := s.resolveGroupsForItems(ctx, restaurantID, items)
	if err != nil {
		return MenuView{}, err
	}

	byCategory := make(map[uuid.UUID][]MenuEntryView, len(categories))
	for _, it := range items {
		if !it.Orderable() {
			continue
		}
		g := groups[it.ID]
		if g == nil {
			g = []domain.ResolvedModifierGroup{}
		}
		byCategory[it.CategoryID] = append(byCategory[it.CategoryID], MenuEntryView{
			MenuItemView:   toMenuItemView(it),
			ModifierGroups: g,
		})
	}

	sort.SliceStable(categories, func(i, j int) bool { return categories[i].SortOrder < categories[j].SortOrder })
	sections := make([]MenuSectionView, 0, len(categories))
	for _, c := range categories {
		entries := byCategory[c.ID]
		if !c.IsActive || len(entries) == 0 {
			continue
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].SortOrder < entries[j].SortOrder })
		sections = append(sections, MenuSectionView{CategoryView: toCategoryView(c), Items: entries})
	}
	return MenuView{
		Restaurant:  toPublicRestaurantView(restaurant),
		Categories:  sections,
		GeneratedAt: s.nowFn(),
	}, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		n := strings.ToLower(strings.TrimSpace(t))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
