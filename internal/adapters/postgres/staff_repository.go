package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
	"gorm.io/gorm"
)

type staffRepository struct {
	db *gorm.DB
}

func (r *staffRepository) Create(ctx context.Context, staff domain.Staff) error {
	rec := toStaffModel(staff)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, staffID uuid.UUID) (domain.Staff, error) {
	var rec staffModel
	if err := r.db.WithContext(ctx).Where("id = ?", staffID).Take(&rec).Error; err != nil {
		return domain.Staff{}, mapNotFound(err)
	}
	return toDomainStaff(rec), nil
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (domain.Staff, error) {
	var rec staffModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		return domain.Staff{}, mapNotFound(err)
	}
	return toDomainStaff(rec), nil
}

func (r *staffRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, page ports.Page) ([]domain.Staff, error) {
	var rows []staffModel
	query := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("email ASC")
	if err := applyPage(query, page).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Staff, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainStaff(row))
	}
	return out, nil
}

func (r *staffRepository) Update(ctx context.Context, staff domain.Staff) error {
	res := r.db.WithContext(ctx).
		Model(&staffModel{}).
		Where("id = ?", staff.ID).
		Updates(map[string]any{
			"email":      staff.Email,
			"name":       staff.Name,
			"role":       string(staff.Role),
			"is_active":  staff.IsActive,
			"updated_at": staff.UpdatedAt,
		})
	if res.Error != nil && isUniqueViolation(res.Error) {
		return domain.ErrConflict
	}
	return expectRows(res)
}

func (r *staffRepository) UpdatePassword(ctx context.Context, staffID uuid.UUID, passwordHash string, at time.Time) error {
	return expectRows(r.db.WithContext(ctx).
		Model(&staffModel{}).
		Where("id = ?", staffID).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    at,
		}))
}

func (r *staffRepository) TouchLogin(ctx context.Context, staffID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&staffModel{}).
		Where("id = ?", staffID).
		Update("last_login_at", at).Error
}
