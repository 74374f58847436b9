package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
)

// Page bounds list queries. Zero Limit means adapter default.
type Page struct {
	Limit  int
	Offset int
}

type RestaurantFilter struct {
	Page
	IncludeArchived bool
	// RestaurantIDs narrows the result for principals scoped to a single restaurant.
	RestaurantIDs []uuid.UUID
}

// RestaurantRepository persists tenants. Create stores the optional initial owner in the
// same transaction so a restaurant is never left without someone able to manage it.
type RestaurantRepository interface {
	Create(ctx context.Context, restaurant domain.Restaurant, owner *domain.Staff) error
	GetByID(ctx context.Context, restaurantID uuid.UUID) (domain.Restaurant, error)
	List(ctx context.Context, filter RestaurantFilter) ([]domain.Restaurant, error)
	Update(ctx context.Context, restaurant domain.Restaurant) error
	Archive(ctx context.Context, restaurantID uuid.UUID, at time.Time) error
}

type StaffRepository interface {
	Create(ctx context.Context, staff domain.Staff) error
	GetByID(ctx context.Context, staffID uuid.UUID) (domain.Staff, error)
	GetByEmail(ctx context.Context, email string) (domain.Staff, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, page Page) ([]domain.Staff, error)
	Update(ctx context.Context, staff domain.Staff) error
	UpdatePassword(ctx context.Context, staffID uuid.UUID, passwordHash string, at time.Time) error
	TouchLogin(ctx context.Context, staffID uuid.UUID, at time.Time) error
}

// TableRepository maps unique-code collisions to domain.ErrConflict so callers can retry.
type TableRepository interface {
	Create(ctx context.Context, table domain.Table) error
	GetByID(ctx context.Context, restaurantID, tableID uuid.UUID) (domain.Table, error)
	GetByCode(ctx context.Context, code string) (domain.Table, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, includeArchived bool) ([]domain.Table, error)
	Update(ctx context.Context, table domain.Table) error
	UpdateCode(ctx context.Context, restaurantID, tableID uuid.UUID, code string, at time.Time) error
	Archive(ctx context.Context, restaurantID, tableID uuid.UUID, at time.Time) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category domain.MenuCategory) error
	GetByID(ctx context.Context, restaurantID, categoryID uuid.UUID) (domain.MenuCategory, error)
	List(ctx context.Context, restaurantID uuid.UUID) ([]domain.MenuCategory, error)
	Update(ctx context.Context, category domain.MenuCategory) error
	Delete(ctx context.Context, restaurantID, categoryID uuid.UUID) error
	// Reorder assigns SortOrder by position in categoryIDs.
	Reorder(ctx context.Context, restaurantID uuid.UUID, categoryIDs []uuid.UUID, at time.Time) error
}

type MenuItemFilter struct {
	CategoryID      *uuid.UUID
	IncludeArchived bool
	AvailableOnly   bool
}

type MenuItemRepository interface {
	Create(ctx context.Context, item domain.MenuItem) error
	GetByID(ctx context.Context, restaurantID, itemID uuid.UUID) (domain.MenuItem, error)
	GetMany(ctx context.Context, restaurantID uuid.UUID, itemIDs []uuid.UUID) ([]domain.MenuItem, error)
	List(ctx context.Context, restaurantID uuid.UUID, filter MenuItemFilter) ([]domain.MenuItem, error)
	Update(ctx context.Context, item domain.MenuItem) error
	SetAvailability(ctx context.Context, restaurantID, itemID uuid.UUID, available bool, at time.Time) error
	Archive(ctx context.Context, restaurantID, itemID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, restaurantID, itemID uuid.UUID) error
	CountActiveByCategory(ctx context.Context, restaurantID, categoryID uuid.UUID) (int64, error)
}

type ModifierTemplateRepository interface {
	Create(ctx context.Context, template domain.ModifierTemplate) error
	GetByID(ctx context.Context, restaurantID, templateID uuid.UUID) (domain.ModifierTemplate, error)
	GetMany(ctx context.Context, restaurantID uuid.UUID, templateIDs []uuid.UUID) ([]domain.ModifierTemplate, error)
	List(ctx context.Context, restaurantID uuid.UUID) ([]domain.ModifierTemplate, error)
	// Update replaces the option set; option ids present in the input are preserved.
	Update(ctx context.Context, template domain.ModifierTemplate) error
	Delete(ctx context.Context, restaurantID, templateID uuid.UUID) error
}

type ItemModifierRepository interface {
	ListByItems(ctx context.Context, itemIDs []uuid.UUID) ([]domain.MenuItemModifier, error)
	Get(ctx context.Context, itemID, templateID uuid.UUID) (domain.MenuItemModifier, error)
	Upsert(ctx context.Context, modifier domain.MenuItemModifier) error
	Delete(ctx context.Context, itemID, templateID uuid.UUID) error
	CountByTemplate(ctx context.Context, templateID uuid.UUID) (int64, error)
}

type OrderFilter struct {
	Page
	RestaurantID    uuid.UUID
	TableID         *uuid.UUID
	Statuses        []domain.OrderStatus
	ActiveOnly      bool
	IncludeArchived bool
	PlacedAfter     *time.Time
}

// OrderRepository owns order persistence. Mutating methods that emit integration events
// take the outbox event so order state and the event commit together.
type OrderRepository interface {
	// CreateWithOutboxTx allocates the next per-restaurant order number and stores the
	// order, its items and the event atomically. The returned order carries the number.
	CreateWithOutboxTx(ctx context.Context, order domain.Order, event OutboxEvent) (domain.Order, error)
	GetByID(ctx context.Context, restaurantID, orderID uuid.UUID) (domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	// UpdateStatusWithOutboxTx fails with domain.ErrConflict when the stored status is no longer from.
	UpdateStatusWithOutboxTx(ctx context.Context, restaurantID, orderID uuid.UUID, from, to domain.OrderStatus, at time.Time, event OutboxEvent) error
	Archive(ctx context.Context, restaurantID, orderID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, restaurantID, orderID uuid.UUID) error
	CountActiveByTable(ctx context.Context, restaurantID, tableID uuid.UUID) (int64, error)
	ExistsForMenuItem(ctx context.Context, menuItemID uuid.UUID) (bool, error)
	ArchiveTerminalBefore(ctx context.Context, cutoff, at time.Time, limit int) (int64, error)
}

type AuditFilter struct {
	Page
	RestaurantID *uuid.UUID
	EntityType   string
	EntityID     string
	ActorID      *uuid.UUID
}

type AuditRepository interface {
	Insert(ctx context.Context, entry domain.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// IdempotencyRecord tracks a previously accepted mutating request so replays return the
// stored response instead of executing twice.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	IdempotencyPending   = "PENDING"
	IdempotencyCompleted = "COMPLETED"
)

type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
	Release(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
