package postgres

import (
	"context"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

func (r *auditRepository) Insert(ctx context.Context, entry domain.AuditEntry) error {
	rec := toAuditModel(entry)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *auditRepository) List(ctx context.Context, filter ports.AuditFilter) ([]domain.AuditEntry, error) {
	query := r.db.WithContext(ctx).Model(&auditModel{})
	if filter.RestaurantID != nil {
		query = query.Where("restaurant_id = ?", *filter.RestaurantID)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	var rows []auditModel
	if err := applyPage(query.Order("created_at DESC"), filter.Page).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainAudit(row))
	}
	return out, nil
}
