package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"gorm.io/gorm"
)

type tableRepository struct {
	db *gorm.DB
}

func (r *tableRepository) Create(ctx context.Context, table domain.Table) error {
	rec := toTableModel(table)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *tableRepository) GetByID(ctx context.Context, restaurantID, tableID uuid.UUID) (domain.Table, error) {
	var rec tableModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", tableID, restaurantID).
		Take(&rec).Error; err != nil {
		return domain.Table{}, mapNotFound(err)
	}
	return toDomainTable(rec), nil
}

func (r *tableRepository) GetByCode(ctx context.Context, code string) (domain.Table, error) {
	var rec tableModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Where("archived_at IS NULL").
		Take(&rec).Error; err != nil {
		return domain.Table{}, mapNotFound(err)
	}
	return toDomainTable(rec), nil
}

func (r *tableRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, includeArchived bool) ([]domain.Table, error) {
	query := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if !includeArchived {
		query = query.Where("archived_at IS NULL")
	}
	var rows []tableModel
	if err := query.Order("label ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Table, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainTable(row))
	}
	return out, nil
}

func (r *tableRepository) Update(ctx context.Context, table domain.Table) error {
	return expectRows(r.db.WithContext(ctx).
		Model(&tableModel{}).
		Where("id = ? AND restaurant_id = ?", table.ID, table.RestaurantID).
		Updates(map[string]any{
			"label":      table.Label,
			"seats":      table.Seats,
			"is_active":  table.IsActive,
			"updated_at": table.UpdatedAt,
		}))
}

func (r *tableRepository) UpdateCode(ctx context.Context, restaurantID, tableID uuid.UUID, code string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&tableModel{}).
		Where("id = ? AND restaurant_id = ?", tableID, restaurantID).
		Updates(map[string]any{
			"code":            code,
			"code_rotated_at": at,
			"updated_at":      at,
		})
	if res.Error != nil && isUniqueViolation(res.Error) {
		return domain.ErrConflict
	}
	return expectRows(res)
}

func (r *tableRepository) Archive(ctx context.Context, restaurantID, tableID uuid.UUID, at time.Time) error {
	return expectRows(r.db.WithContext(ctx).
		Model(&tableModel{}).
		Where("id = ? AND restaurant_id = ?", tableID, restaurantID).
		Updates(map[string]any{
			"archived_at": at,
			"is_active":   false,
			"updated_at":  at,
		}))
}
