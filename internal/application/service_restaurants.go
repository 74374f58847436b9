package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

// CreateRestaurant provisions a tenant and, optionally, its first owner in one transaction.
func (s *Service) CreateRestaurant(ctx context.Context, p Principal, req CreateRestaurantRequest) (RestaurantView, error) {
	if err := authorizeGlobal(p, domain.PermRestaurantManage); err != nil {
		return RestaurantView{}, err
	}
	if err := validateRequest(req); err != nil {
		return RestaurantView{}, err
	}
	slugInput := req.Slug
	if strings.TrimSpace(slugInput) == "" {
		slugInput = domain.Slugify(req.Name)
	}
	slug, err := domain.NormalizeSlug(slugInput)
	if err != nil {
		return RestaurantView{}, err
	}
	currency, err := domain.NormalizeCurrency(req.Currency)
	if err != nil {
		return RestaurantView{}, err
	}
	if err := domain.ValidateTimezone(req.Timezone); err != nil {
		return RestaurantView{}, err
	}

	now := s.nowFn()
	restaurant := domain.Restaurant{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(req.Name),
		Slug:            slug,
		Timezone:        req.Timezone,
		Currency:        currency,
		Address:         strings.TrimSpace(req.Address),
		Phone:           strings.TrimSpace(req.Phone),
		OrderingEnabled: req.OrderingEnabled == nil || *req.OrderingEnabled,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var owner *domain.Staff
	if req.Owner != nil {
		email, err := domain.NormalizeEmail(req.Owner.Email)
		if err != nil {
			return RestaurantView{}, err
		}
		if err := domain.ValidatePassword(req.Owner.Password); err != nil {
			return RestaurantView{}, err
		}
		hash, err := s.hasher.Hash(req.Owner.Password)
		if err != nil {
			return RestaurantView{}, fmt.Errorf("hash password: %w", err)
		}
		rid := restaurant.ID
		owner = &domain.Staff{
			ID:           uuid.New(),
			RestaurantID: &rid,
			Email:        email,
			Name:         strings.TrimSpace(req.Owner.Name),
			PasswordHash: hash,
			Role:         domain.RoleOwner,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	if err := s.restaurants.Create(ctx, restaurant, owner); err != nil {
		return RestaurantView{}, err
	}
	meta := map[string]any{"slug": slug}
	if owner != nil {
		meta["owner_id"] = owner.ID.String()
	}
	s.recordAudit(ctx, p, restaurantRef(restaurant.ID), "restaurant.created", "restaurant", restaurant.ID.String(), meta)
	return toRestaurantView(restaurant), nil
}

// ListRestaurants returns every tenant for SUPER_ADMIN and only the caller's own otherwise.
func (s *Service) ListRestaurants(ctx context.Context, p Principal, q ListQuery) ([]RestaurantView, error) {
	if !p.IsStaff() {
		return nil, domain.ErrForbidden
	}
	limit, offset := s.page(q.Limit, q.Offset)
	filter := ports.RestaurantFilter{
		Page:            ports.Page{Limit: limit, Offset: offset},
		IncludeArchived: q.IncludeArchived,
	}
	if p.Role != domain.RoleSuperAdmin {
		if p.RestaurantID == nil {
			return []RestaurantView{}, nil
		}
		filter.RestaurantIDs = []uuid.UUID{*p.RestaurantID}
	}
	items, err := s.restaurants.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]RestaurantView, 0, len(items))
	for _, r := range items {
		out = append(out, toRestaurantView(r))
	}
	return out, nil
}

func (s *Service) GetRestaurant(ctx context.Context, p Principal, restaurantID uuid.UUID) (RestaurantView, error) {
	if err := authorize(p, domain.PermRestaurantRead, restaurantID); err != nil {
		return RestaurantView{}, err
	}
	r, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return RestaurantView{}, err
	}
	return toRestaurantView(r), nil
}

func (s *Service) UpdateRestaurant(ctx context.Context, p Principal, restaurantID uuid.UUID, req UpdateRestaurantRequest) (RestaurantView, error) {
	if err := authorize(p, domain.PermRestaurantWrite, restaurantID); err != nil {
		return RestaurantView{}, err
	}
	if err := validateRequest(req); err != nil {
		return RestaurantView{}, err
	}
	r, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return RestaurantView{}, err
	}
	if r.ArchivedAt != nil {
		return RestaurantView{}, fmt.Errorf("%w: restaurant is archived", domain.ErrConflict)
	}
	changed := map[string]any{}
	if v := trimPtr(req.Name); v != nil {
		r.Name = *v
		changed["name"] = *v
	}
	if req.Timezone != nil {
		if err := domain.ValidateTimezone(*req.Timezone); err != nil {
			return RestaurantView{}, err
		}
		r.Timezone = *req.Timezone
		changed["timezone"] = *req.Timezone
	}
	if req.Currency != nil {
		c, err := domain.NormalizeCurrency(*req.Currency)
		if err != nil {
			return RestaurantView{}, err
		}
		r.Currency = c
		changed["currency"] = c
	}
	if v := trimPtr(req.Address); v != nil {
		r.Address = *v
		changed["address"] = *v
	}
	if v := trimPtr(req.Phone); v != nil {
		r.Phone = *v
		changed["phone"] = *v
	}
	if req.OrderingEnabled != nil {
		r.OrderingEnabled = *req.OrderingEnabled
		changed["ordering_enabled"] = *req.OrderingEnabled
	}
	if req.IsActive != nil {
		if p.Role != domain.RoleSuperAdmin {
			return RestaurantView{}, fmt.Errorf("%w: only platform administrators can change activation", domain.ErrForbidden)
		}
		r.IsActive = *req.IsActive
		changed["is_active"] = *req.IsActive
	}
	r.UpdatedAt = s.nowFn()
	if err := s.restaurants.Update(ctx, r); err != nil {
		return RestaurantView{}, err
	}
	s.invalidateMenu(ctx, r.ID)
	s.recordAudit(ctx, p, restaurantRef(r.ID), "restaurant.updated", "restaurant", r.ID.String(), changed)
	return toRestaurantView(r), nil
}

func (s *Service) ArchiveRestaurant(ctx context.Context, p Principal, restaurantID uuid.UUID) error {
	if err := authorizeGlobal(p, domain.PermRestaurantManage); err != nil {
		return err
	}
	r, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return err
	}
	if r.ArchivedAt != nil {
		return nil
	}
	if err := s.restaurants.Archive(ctx, restaurantID, s.nowFn()); err != nil {
		return err
	}
	s.invalidateMenu(ctx, restaurantID)
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "restaurant.archived", "restaurant", restaurantID.String(), nil)
	return nil
}

// requireOpenRestaurant loads a restaurant that can still be edited.
func (s *Service) requireOpenRestaurant(ctx context.Context, restaurantID uuid.UUID) (domain.Restaurant, error) {
	r, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return domain.Restaurant{}, err
	}
	if r.ArchivedAt != nil {
		return domain.Restaurant{}, fmt.Errorf("%w: restaurant is archived", domain.ErrConflict)
	}
	return r, nil
}
