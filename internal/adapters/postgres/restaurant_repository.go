package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
	"gorm.io/gorm"
)

type restaurantRepository struct {
	db *gorm.DB
}

func (r *restaurantRepository) Create(ctx context.Context, restaurant domain.Restaurant, owner *domain.Staff) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toRestaurantModel(restaurant)
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		if owner == nil {
			return nil
		}
		staff := toStaffModel(*owner)
		if err := tx.Create(&staff).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return nil
	})
}

func (r *restaurantRepository) GetByID(ctx context.Context, restaurantID uuid.UUID) (domain.Restaurant, error) {
	var rec restaurantModel
	if err := r.db.WithContext(ctx).Where("id = ?", restaurantID).Take(&rec).Error; err != nil {
		return domain.Restaurant{}, mapNotFound(err)
	}
	return toDomainRestaurant(rec), nil
}

func (r *restaurantRepository) List(ctx context.Context, filter ports.RestaurantFilter) ([]domain.Restaurant, error) {
	query := r.db.WithContext(ctx).Model(&restaurantModel{})
	if len(filter.RestaurantIDs) > 0 {
		query = query.Where("id IN ?", filter.RestaurantIDs)
	}
	if !filter.IncludeArchived {
		query = query.Where("archived_at IS NULL")
	}
	var rows []restaurantModel
	if err := applyPage(query.Order("name ASC"), filter.Page).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Restaurant, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainRestaurant(row))
	}
	return out, nil
}

func (r *restaurantRepository) Update(ctx context.Context, restaurant domain.Restaurant) error {
	res := r.db.WithContext(ctx).
		Model(&restaurantModel{}).
		Where("id = ?", restaurant.ID).
		Updates(map[string]any{
			"name":             restaurant.Name,
			"slug":             restaurant.Slug,
			"timezone":         restaurant.Timezone,
			"currency":         restaurant.Currency,
			"address":          restaurant.Address,
			"phone":            restaurant.Phone,
			"ordering_enabled": restaurant.OrderingEnabled,
			"is_active":        restaurant.IsActive,
			"updated_at":       restaurant.UpdatedAt,
		})
	if res.Error != nil && isUniqueViolation(res.Error) {
		return domain.ErrConflict
	}
	return expectRows(res)
}

func (r *restaurantRepository) Archive(ctx context.Context, restaurantID uuid.UUID, at time.Time) error {
	return expectRows(r.db.WithContext(ctx).
		Model(&restaurantModel{}).
		Where("id = ?", restaurantID).
		Updates(map[string]any{
			"archived_at":      at,
			"ordering_enabled": false,
			"updated_at":       at,
		}))
}
