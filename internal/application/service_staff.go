package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

func (s *Service) ListStaff(ctx context.Context, p Principal, restaurantID uuid.UUID, q ListQuery) ([]StaffView, error) {
	if err := authorize(p, domain.PermStaffRead, restaurantID); err != nil {
		return nil, err
	}
	limit, offset := s.page(q.Limit, q.Offset)
	items, err := s.staff.ListByRestaurant(ctx, restaurantID, ports.Page{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	out := make([]StaffView, 0, len(items))
	for _, st := range items {
		out = append(out, toStaffView(st))
	}
	return out, nil
}

func (s *Service) CreateStaff(ctx context.Context, p Principal, restaurantID uuid.UUID, req CreateStaffRequest) (StaffView, error) {
	if err := authorize(p, domain.PermStaffWrite, restaurantID); err != nil {
		return StaffView{}, err
	}
	if err := validateRequest(req); err != nil {
		return StaffView{}, err
	}
	role, _ := domain.ParseRole(req.Role)
	if !p.Role.CanManageRole(role) {
		return StaffView{}, fmt.Errorf("%w: %s cannot create %s accounts", domain.ErrForbidden, p.Role, role)
	}
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return StaffView{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return StaffView{}, err
	}
	if _, err := s.requireOpenRestaurant(ctx, restaurantID); err != nil {
		return StaffView{}, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return StaffView{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.nowFn()
	rid := restaurantID
	staff := domain.Staff{
		ID:           uuid.New(),
		RestaurantID: &rid,
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return StaffView{}, err
	}
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "staff.created", "staff", staff.ID.String(), map[string]any{"role": role, "email": email})
	return toStaffView(staff), nil
}

// loadManagedStaff returns a staff member of restaurantID the caller is allowed to manage.
func (s *Service) loadManagedStaff(ctx context.Context, p Principal, restaurantID, staffID uuid.UUID) (domain.Staff, error) {
	if err := authorize(p, domain.PermStaffWrite, restaurantID); err != nil {
		return domain.Staff{}, err
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return domain.Staff{}, err
	}
	if !staff.BelongsTo(restaurantID) {
		return domain.Staff{}, domain.ErrNotFound
	}
	if staff.ID == p.SubjectID {
		return domain.Staff{}, fmt.Errorf("%w: use the account endpoints to change your own profile", domain.ErrForbidden)
	}
	if !p.Role.CanManageRole(staff.Role) {
		return domain.Staff{}, fmt.Errorf("%w: %s cannot manage %s accounts", domain.ErrForbidden, p.Role, staff.Role)
	}
	return staff, nil
}

func (s *Service) UpdateStaff(ctx context.Context, p Principal, restaurantID, staffID uuid.UUID, req UpdateStaffRequest) (StaffView, error) {
	if err := validateRequest(req); err != nil {
		return StaffView{}, err
	}
	staff, err := s.loadManagedStaff(ctx, p, restaurantID, staffID)
	if err != nil {
		return StaffView{}, err
	}
	changed := map[string]any{}
	if v := trimPtr(req.Name); v != nil {
		staff.Name = *v
		changed["name"] = *v
	}
	if req.Role != nil {
		role, _ := domain.ParseRole(*req.Role)
		if !p.Role.CanManageRole(role) {
			return StaffView{}, fmt.Errorf("%w: %s cannot assign %s", domain.ErrForbidden, p.Role, role)
		}
		staff.Role = role
		changed["role"] = role
	}
	if req.IsActive != nil {
		staff.IsActive = *req.IsActive
		changed["is_active"] = *req.IsActive
	}
	staff.UpdatedAt = s.nowFn()
	if err := s.staff.Update(ctx, staff); err != nil {
		return StaffView{}, err
	}
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "staff.updated", "staff", staff.ID.String(), changed)
	return toStaffView(staff), nil
}

// DeactivateStaff disables an account. Staff rows are kept for the audit trail.
func (s *Service) DeactivateStaff(ctx context.Context, p Principal, restaurantID, staffID uuid.UUID) error {
	staff, err := s.loadManagedStaff(ctx, p, restaurantID, staffID)
	if err != nil {
		return err
	}
	if !staff.IsActive {
		return nil
	}
	staff.IsActive = false
	staff.UpdatedAt = s.nowFn()
	if err := s.staff.Update(ctx, staff); err != nil {
		return err
	}
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "staff.deactivated", "staff", staff.ID.String(), nil)
	return nil
}
