package application

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

// authorize checks that a staff principal holds perm inside restaurantID.
// SUPER_ADMIN is not tied to a restaurant and passes the scope check.
func authorize(p Principal, perm domain.Permission, restaurantID uuid.UUID) error {
	if !p.IsStaff() {
		return fmt.Errorf("%w: staff credentials required", domain.ErrForbidden)
	}
	if !p.Role.HasPermission(perm) {
		return fmt.Errorf("%w: role %s lacks %s", domain.ErrForbidden, p.Role, perm)
	}
	if p.Role == domain.RoleSuperAdmin {
		return nil
	}
	if p.RestaurantID == nil || *p.RestaurantID != restaurantID {
		return fmt.Errorf("%w: restaurant outside caller scope", domain.ErrForbidden)
	}
	return nil
}

// authorizeGlobal checks a permission that is not tied to one restaurant.
func authorizeGlobal(p Principal, perm domain.Permission) error {
	if !p.IsStaff() || !p.Role.HasPermission(perm) {
		return fmt.Errorf("%w: %s required", domain.ErrForbidden, perm)
	}
	return nil
}

// customerScope returns the restaurant and table a customer session is bound to.
func customerScope(p Principal) (uuid.UUID, uuid.UUID, error) {
	if !p.IsCustomer() || p.Kind != ports.TokenKindCustomer || p.RestaurantID == nil || p.TableID == nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: table session required", domain.ErrForbidden)
	}
	return *p.RestaurantID, *p.TableID, nil
}

func actorID(p Principal) *uuid.UUID {
	if p.SubjectID == uuid.Nil || !p.IsStaff() {
		return nil
	}
	id := p.SubjectID
	return &id
}
