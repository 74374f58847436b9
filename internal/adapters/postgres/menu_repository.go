package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
	"gorm.io/gorm"
)

type categoryRepository struct {
	db *gorm.DB
}

func (r *categoryRepository) Create(ctx context.Context, category domain.MenuCategory) error {
	rec := toCategoryModel(category)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *categoryRepository) GetByID(ctx context.Context, restaurantID, categoryID uuid.UUID) (domain.MenuCategory, error) {
	var rec categoryModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", categoryID, restaurantID).
		Take(&rec).Error; err != nil {
		return domain.MenuCategory{}, mapNotFound(err)
	}
	return toDomainCategory(rec), nil
}

func (r *categoryRepository) List(ctx context.Context, restaurantID uuid.UUID) ([]domain.MenuCategory, error) {
	var rows []categoryModel
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("sort_order ASC, name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.MenuCategory, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainCategory(row))
	}
	return out, nil
}

func (r *categoryRepository) Update(ctx context.Context, category domain.MenuCategory) error {
	return expectRows(r.db.WithContext(ctx).
		Model(&categoryModel{}).
		Where("id = ? AND restaurant_id = ?", category.ID, category.RestaurantID).
		Updates(map[string]any{
			"name":        category.Name,
			"description": category.Description,
			"sort_order":  category.SortOrder,
			"is_active":   category.IsActive,
			"updated_at":  category.UpdatedAt,
		}))
}

func (r *categoryRepository) Delete(ctx context.Context, restaurantID, categoryID uuid.UUID) error {
	return expectRows(r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", categoryID, restaurantID).
		Delete(&categoryModel{}))
}

func (r *categoryRepository) Reorder(ctx context.Context, restaurantID uuid.UUID, categoryIDs []uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range categoryIDs {
			if err := expectRows(tx.Model(&categoryModel{}).
				Where("id = ? AND restaurant_id = ?", id, restaurantID).
				Updates(map[string]any{
					"sort_order": i,
					"updated_at": at,
				})); err != nil {
				return err
			}
		}
		return nil
	})
}

type menuItemRepository struct {
	db *gorm.DB
}

func (r *menuItemRepository) Create(ctx context.Context, item domain.MenuItem) error {
	rec := toMenuItemModel(item)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *menuItemRepository) GetByID(ctx context.Context, restaurantID, itemID uuid.UUID) (domain.MenuItem, error) {
	var rec menuItemModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", itemID, restaurantID).
		Take(&rec).Error; err != nil {
		return domain.MenuItem{}, mapNotFound(err)
	}
	return toDomainMenuItem(rec), nil
}

func (r *menuItemRepository) GetMany(ctx context.Context, restaurantID uuid.UUID, itemIDs []uuid.UUID) ([]domain.MenuItem, error) {
	if len(itemIDs) == 0 {
		return []domain.MenuItem{}, nil
	}
	var rows []menuItemModel
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Where("id IN ?", itemIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.MenuItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainMenuItem(row))
	}
	return out, nil
}

func (r *menuItemRepository) List(ctx context.Context, restaurantID uuid.UUID, filter ports.MenuItemFilter) ([]domain.MenuItem, error) {
	query := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if !filter.IncludeArchived {
		query = query.Where("archived_at IS NULL")
	}
	if filter.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}
	var rows []menuItemModel
	if err := query.Order("sort_order ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.MenuItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainMenuItem(row))
	}
	return out, nil
}

func (r *menuItemRepository) Update(ctx context.Context, item domain.MenuItem) error {
	rec := toMenuItemModel(item)
	return expectRows(r.db.WithContext(ctx).
		Model(&menuItemModel{}).
		Where("id = ? AND restaurant_id = ?", item.ID, item.RestaurantID).
		Updates(map[string]any{
			"category_id":  rec.CategoryID,
			"name":         rec.Name,
			"description":  rec.Description,
			"price_cents":  rec.PriceCents,
			"image_url":    rec.ImageURL,
			"is_available": rec.IsAvailable,
			"sort_order":   rec.SortOrder,
			"tags":         rec.Tags,
			"updated_at":   rec.UpdatedAt,
		}))
}

func (r *menuItemRepository) SetAvailability(ctx context.Context, restaurantID, itemID uuid.UUID, available bool, at time.Time) error {
	return expectRows(r.db.WithContext(ctx).
		Model(&menuItemModel{}).
		Where("id = ? AND restaurant_id = ?", itemID, restaurantID).
		Updates(map[string]any{
			"is_available": available,
			"updated_at":   at,
		}))
}

func (r *menuItemRepository) Archive(ctx context.Context, restaurantID, itemID uuid.UUID, at time.Time) error {
	return expectRows(r.db.WithContext(ctx).
		Model(&menuItemModel{}).
		Where("id = ? AND restaurant_id = ?", itemID, restaurantID).
		Updates(map[string]any{
			"archived_at":  at,
			"is_available": false,
			"updated_at":   at,
		}))
}

// Delete removes the item; attached modifiers go with it via ON DELETE CASCADE.
func (r *menuItemRepository) Delete(ctx context.Context, restaurantID, itemID uuid.UUID) error {
	return expectRows(r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", itemID, restaurantID).
		Delete(&menuItemModel{}))
}

func (r *menuItemRepository) CountActiveByCategory(ctx context.Context, restaurantID, categoryID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&menuItemModel{}).
		Where("restaurant_id = ? AND category_id = ?", restaurantID, categoryID).
		Where("archived_at IS NULL").
		Count(&n).Error
	return n, err
}
