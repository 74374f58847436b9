package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

func (s *Service) ListAudit(ctx context.Context, p Principal, restaurantID uuid.UUID, q AuditQuery) ([]AuditView, error) {
	if err := authorize(p, domain.PermAuditRead, restaurantID); err != nil {
		return nil, err
	}
	limit, offset := s.page(q.Limit, q.Offset)
	filter := ports.AuditFilter{
		Page:         ports.Page{Limit: limit, Offset: offset},
		RestaurantID: restaurantRef(restaurantID),
		EntityType:   strings.TrimSpace(q.EntityType),
		EntityID:     strings.TrimSpace(q.EntityID),
	}
	if strings.TrimSpace(q.ActorID) != "" {
		id, err := parseUUIDField("actor_id", q.ActorID)
		if err != nil {
			return nil, err
		}
		filter.ActorID = &id
	}
	entries, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]AuditView, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAuditView(e))
	}
	return out, nil
}

// ArchiveStaleOrders archives terminal orders last touched before now-olderThan.
func (s *Service) ArchiveStaleOrders(ctx context.Context, olderThan time.Duration, batchSize int) (int64, error) {
	if olderThan <= 0 {
		olderThan = 24 * time.Hour
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	now := s.nowFn()
	archived, err := s.orders.ArchiveTerminalBefore(ctx, now.Add(-olderThan), now, batchSize)
	if err != nil {
		return 0, err
	}
	if archived > 0 {
		slog.Default().InfoContext(ctx, "stale orders archived",
			"module", "application",
			"layer", "application",
			"operation", "archive_stale_orders",
			"outcome", "success",
			"archived_count", archived,
		)
	}
	return archived, nil
}

func (s *Service) PurgeExpiredIdempotency(ctx context.Context) (int64, error) {
	purged, err := s.idempotency.PurgeExpired(ctx, s.nowFn())
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		slog.Default().InfoContext(ctx, "expired idempotency keys purged",
			"module", "application",
			"layer", "application",
			"operation", "purge_idempotency",
			"outcome", "success",
			"purged_count", purged,
		)
	}
	return purged, nil
}
