package postgres

import (
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
	"gorm.io/gorm"
)

const defaultPageLimit = 50

type Repositories struct {
	Restaurants   ports.RestaurantRepository
	Staff         ports.StaffRepository
	Tables        ports.TableRepository
	Categories    ports.CategoryRepository
	MenuItems     ports.MenuItemRepository
	Templates     ports.ModifierTemplateRepository
	ItemModifiers ports.ItemModifierRepository
	Orders        ports.OrderRepository
	Audit         ports.AuditRepository
	Outbox        ports.OutboxRepository
	Idempotency   ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Restaurants:   &restaurantRepository{db: db},
		Staff:         &staffRepository{db: db},
		Tables:        &tableRepository{db: db},
		Categories:    &categoryRepository{db: db},
		MenuItems:     &menuItemRepository{db: db},
		Templates:     &templateRepository{db: db},
		ItemModifiers: &itemModifierRepository{db: db},
		Orders:        &orderRepository{db: db},
		Audit:         &auditRepository{db: db},
		Outbox:        &outboxRepository{db: db},
		Idempotency:   &idempotencyRepository{db: db},
	}
}

func applyPage(query *gorm.DB, page ports.Page) *gorm.DB {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	query = query.Limit(limit)
	if page.Offset > 0 {
		query = query.Offset(page.Offset)
	}
	return query
}

// expectRows maps an UPDATE/DELETE that touched nothing to domain.ErrNotFound.
func expectRows(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
