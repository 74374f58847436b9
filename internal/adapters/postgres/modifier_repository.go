package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type templateRepository struct {
	db *gorm.DB
}

func (r *templateRepository) Create(ctx context.Context, template domain.ModifierTemplate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toTemplateModel(template)
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		options := toOptionModels(template.ID, template.Options)
		if len(options) == 0 {
			return nil
		}
		return tx.Create(&options).Error
	})
}

func (r *templateRepository) GetByID(ctx context.Context, restaurantID, templateID uuid.UUID) (domain.ModifierTemplate, error) {
	var rec templateModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", templateID, restaurantID).
		Take(&rec).Error; err != nil {
		return domain.ModifierTemplate{}, mapNotFound(err)
	}
	out, err := r.withOptions(ctx, []templateModel{rec})
	if err != nil {
		return domain.ModifierTemplate{}, err
	}
	return out[0], nil
}

func (r *templateRepository) GetMany(ctx context.Context, restaurantID uuid.UUID, templateIDs []uuid.UUID) ([]domain.ModifierTemplate, error) {
	if len(templateIDs) == 0 {
		return []domain.ModifierTemplate{}, nil
	}
	var rows []templateModel
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Where("id IN ?", templateIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withOptions(ctx, rows)
}

func (r *templateRepository) List(ctx context.Context, restaurantID uuid.UUID) ([]domain.ModifierTemplate, error) {
	var rows []templateModel
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withOptions(ctx, rows)
}

func (r *templateRepository) withOptions(ctx context.Context, rows []templateModel) ([]domain.ModifierTemplate, error) {
	out := make([]domain.ModifierTemplate, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var options []optionModel
	if err := r.db.WithContext(ctx).
		Where("template_id IN ?", ids).
		Order("sort_order ASC, name ASC").
		Find(&options).Error; err != nil {
		return nil, err
	}
	byTemplate := make(map[uuid.UUID][]optionModel, len(rows))
	for _, o := range options {
		byTemplate[o.TemplateID] = append(byTemplate[o.TemplateID], o)
	}
	for _, row := range rows {
		out = append(out, toDomainTemplate(row, byTemplate[row.ID]))
	}
	return out, nil
}

// Update rewrites the option set. Options keep their ids so existing item overrides
// and historic order snapshots stay meaningful; dropped options are deleted.
func (r *templateRepository) Update(ctx context.Context, template domain.ModifierTemplate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toTemplateModel(template)
		if err := expectRows(tx.Model(&templateModel{}).
			Where("id = ? AND restaurant_id = ?", template.ID, template.RestaurantID).
			Updates(map[string]any{
				"name":           rec.Name,
				"selection_type": rec.SelectionType,
				"min_select":     rec.MinSelect,
				"max_select":     rec.MaxSelect,
				"required":       rec.Required,
				"updated_at":     rec.UpdatedAt,
			})); err != nil {
			return err
		}
		options := toOptionModels(template.ID, template.Options)
		keep := make([]uuid.UUID, 0, len(options))
		for _, o := range options {
			keep = append(keep, o.ID)
		}
		del := tx.Where("template_id = ?", template.ID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		if err := del.Delete(&optionModel{}).Error; err != nil {
			return err
		}
		if len(options) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "price_delta_cents", "is_default", "is_available", "sort_order"}),
		}).Create(&options).Error
	})
}

func (r *templateRepository) Delete(ctx context.Context, restaurantID, templateID uuid.UUID) error {
	return expectRows(r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", templateID, restaurantID).
		Delete(&templateModel{}))
}

type itemModifierRepository struct {
	db *gorm.DB
}

func (r *itemModifierRepository) ListByItems(ctx context.Context, itemIDs []uuid.UUID) ([]domain.MenuItemModifier, error) {
	if len(itemIDs) == 0 {
		return []domain.MenuItemModifier{}, nil
	}
	var rows []itemModifierModel
	if err := r.db.WithContext(ctx).
		Where("menu_item_id IN ?", itemIDs).
		Order("sort_order ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.MenuItemModifier, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainItemModifier(row))
	}
	return out, nil
}

func (r *itemModifierRepository) Get(ctx context.Context, itemID, templateID uuid.UUID) (domain.MenuItemModifier, error) {
	var rec itemModifierModel
	if err := r.db.WithContext(ctx).
		Where("menu_item_id = ? AND template_id = ?", itemID, templateID).
		Take(&rec).Error; err != nil {
		return domain.MenuItemModifier{}, mapNotFound(err)
	}
	return toDomainItemModifier(rec), nil
}

// Upsert attaches a template to an item or replaces the overrides of an existing attachment.
func (r *itemModifierRepository) Upsert(ctx context.Context, modifier domain.MenuItemModifier) error {
	rec := toItemModifierModel(modifier)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "menu_item_id"}, {Name: "template_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sort_order",
			"name_override",
			"min_select_override",
			"max_select_override",
			"required_override",
			"option_overrides",
			"updated_at",
		}),
	}).Create(&rec).Error
}

func (r *itemModifierRepository) Delete(ctx context.Context, itemID, templateID uuid.UUID) error {
	return expectRows(r.db.WithContext(ctx).
		Where("menu_item_id = ? AND template_id = ?", itemID, templateID).
		Delete(&itemModifierModel{}))
}

func (r *itemModifierRepository) CountByTemplate(ctx context.Context, templateID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&itemModifierModel{}).
		Where("template_id = ?", templateID).
		Count(&n).Error
	return n, err
}
