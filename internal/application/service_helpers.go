package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

const (
	eventTypeOrderPlaced        = "order.placed"
	eventTypeOrderStatusChanged = "order.status_changed"
)

// hashRequest computes a deterministic request fingerprint for idempotency conflict detection.
func hashRequest(req any) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// newOutboxEvent wraps data in the mesh event envelope.
func (s *Service) newOutboxEvent(eventType, partitionKey string, data any, at time.Time) ports.OutboxEvent {
	eventID := uuid.New()
	payload, _ := json.Marshal(map[string]any{
		"event_id":       eventID.String(),
		"event_type":     eventType,
		"occurred_at":    at.Format(time.RFC3339Nano),
		"source_service": s.cfg.ServiceID,
		"partition_key":  partitionKey,
		"data":           data,
	})
	return ports.OutboxEvent{
		EventID:      eventID,
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		OccurredAt:   at,
	}
}

// recordAudit writes an audit entry. Failures are logged and never fail the caller's mutation.
func (s *Service) recordAudit(ctx context.Context, p Principal, restaurantID *uuid.UUID, action, entityType, entityID string, metadata map[string]any) {
	var raw json.RawMessage
	if len(metadata) > 0 {
		raw, _ = json.Marshal(metadata)
	}
	role := p.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	entry := domain.AuditEntry{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		ActorID:      actorID(p),
		ActorRole:    role,
		Action:       action,
		EntityType:   entityType,
		EntityID:     entityID,
		Metadata:     raw,
		CreatedAt:    s.nowFn(),
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		slog.Default().WarnContext(ctx, "failed to persist audit entry",
			"module", "application",
			"layer", "application",
			"operation", "record_audit",
			"outcome", "failure",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// invalidateMenu drops the cached public menu after any menu mutation.
func (s *Service) invalidateMenu(ctx context.Context, restaurantID uuid.UUID) {
	if s.menuCache == nil {
		return
	}
	if err := s.menuCache.Invalidate(ctx, restaurantID); err != nil {
		slog.Default().WarnContext(ctx, "menu cache invalidation failed",
			"module", "application",
			"layer", "application",
			"operation", "invalidate_menu",
			"outcome", "failure",
			"restaurant_id", restaurantID,
			"error", err,
		)
	}
}

func (s *Service) tableOrderURL(code string) string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.PublicBaseURL), "/")
	return base + "/t/" + code
}

func restaurantRef(id uuid.UUID) *uuid.UUID {
	return &id
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
