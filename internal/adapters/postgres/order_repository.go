package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
	"gorm.io/gorm"
)

const nextOrderNumberSQL = `
INSERT INTO restaurant_order_counters (restaurant_id, last_number)
VALUES (?, 1)
ON CONFLICT (restaurant_id) DO UPDATE SET last_number = restaurant_order_counters.last_number + 1
RETURNING last_number`

type orderRepository struct {
	db *gorm.DB
}

func activeStatuses() []string {
	return []string{
		string(domain.OrderPending),
		string(domain.OrderConfirmed),
		string(domain.OrderPreparing),
		string(domain.OrderReady),
		string(domain.OrderServed),
	}
}

func terminalStatuses() []string {
	return []string{string(domain.OrderCompleted), string(domain.OrderCancelled)}
}

func (r *orderRepository) CreateWithOutboxTx(ctx context.Context, order domain.Order, event ports.OutboxEvent) (domain.Order, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var number int64
		if err := tx.Raw(nextOrderNumberSQL, order.RestaurantID).Scan(&number).Error; err != nil {
			return err
		}
		order.OrderNumber = number

		rec := toOrderModel(order)
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		items := toOrderItemModels(order.ID, order.Items)
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		outbox := toOutboxModel(event)
		return tx.Create(&outbox).Error
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, restaurantID, orderID uuid.UUID) (domain.Order, error) {
	var rec orderModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", orderID, restaurantID).
		Take(&rec).Error; err != nil {
		return domain.Order{}, mapNotFound(err)
	}
	out, err := r.withItems(ctx, []orderModel{rec})
	if err != nil {
		return domain.Order{}, err
	}
	return out[0], nil
}

func (r *orderRepository) List(ctx context.Context, filter ports.OrderFilter) ([]domain.Order, error) {
	query := r.db.WithContext(ctx).Where("restaurant_id = ?", filter.RestaurantID)
	if filter.TableID != nil {
		query = query.Where("table_id = ?", *filter.TableID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.ActiveOnly {
		query = query.Where("status IN ?", activeStatuses())
	}
	if !filter.IncludeArchived {
		query = query.Where("archived_at IS NULL")
	}
	if filter.PlacedAfter != nil {
		query = query.Where("placed_at >= ?", *filter.PlacedAfter)
	}
	var rows []orderModel
	if err := applyPage(query.Order("order_number DESC"), filter.Page).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withItems(ctx, rows)
}

func (r *orderRepository) withItems(ctx context.Context, rows []orderModel) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var items []orderItemModel
	if err := r.db.WithContext(ctx).
		Where("order_id IN ?", ids).
		Order("position ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	byOrder := make(map[uuid.UUID][]orderItemModel, len(rows))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for _, row := range rows {
		out = append(out, toDomainOrder(row, byOrder[row.ID]))
	}
	return out, nil
}

// UpdateStatusWithOutboxTx compares and swaps the status so concurrent transitions
// cannot both succeed.
func (r *orderRepository) UpdateStatusWithOutboxTx(ctx context.Context, restaurantID, orderID uuid.UUID, from, to domain.OrderStatus, at time.Time, event ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&orderModel{}).
			Where("id = ? AND restaurant_id = ?", orderID, restaurantID).
			Where("status = ?", string(from)).
			Updates(map[string]any{
				"status":     string(to),
				"updated_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&orderModel{}).
				Where("id = ? AND restaurant_id = ?", orderID, restaurantID).
				Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrConflict
		}
		outbox := toOutboxModel(event)
		return tx.Create(&outbox).Error
	})
}

func (r *orderRepository) Archive(ctx context.Context, restaurantID, orderID uuid.UUID, at time.Time) error {
	return expectRows(r.db.WithContext(ctx).
		Model(&orderModel{}).
		Where("id = ? AND restaurant_id = ?", orderID, restaurantID).
		Updates(map[string]any{
			"archived_at": at,
			"updated_at":  at,
		}))
}

func (r *orderRepository) Delete(ctx context.Context, restaurantID, orderID uuid.UUID) error {
	return expectRows(r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", orderID, restaurantID).
		Delete(&orderModel{}))
}

func (r *orderRepository) CountActiveByTable(ctx context.Context, restaurantID, tableID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&orderModel{}).
		Where("restaurant_id = ? AND table_id = ?", restaurantID, tableID).
		Where("status IN ?", activeStatuses()).
		Count(&n).Error
	return n, err
}

func (r *orderRepository) ExistsForMenuItem(ctx context.Context, menuItemID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&orderItemModel{}).
		Where("menu_item_id = ?", menuItemID).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// ArchiveTerminalBefore archives at most limit finished orders last touched before cutoff.
func (r *orderRepository) ArchiveTerminalBefore(ctx context.Context, cutoff, at time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}
	subquery := r.db.Model(&orderModel{}).
		Select("id").
		Where("archived_at IS NULL").
		Where("status IN ?", terminalStatuses()).
		Where("updated_at < ?", cutoff).
		Order("updated_at ASC").
		Limit(limit)
	res := r.db.WithContext(ctx).
		Model(&orderModel{}).
		Where("id IN (?)", subquery).
		Update("archived_at", at)
	return res.RowsAffected, res.Error
}
