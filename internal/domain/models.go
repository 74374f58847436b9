package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Restaurant struct {
	ID              uuid.UUID
	Name            string
	Slug            string
	Timezone        string
	Currency        string
	Address         string
	Phone           string
	OrderingEnabled bool
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ArchivedAt      *time.Time
}

// AcceptsOrders is true when customers may start table sessions and place orders.
func (r Restaurant) AcceptsOrders() bool {
	return r.IsActive && r.ArchivedAt == nil && r.OrderingEnabled
}

type Staff struct {
	ID           uuid.UUID
	RestaurantID *uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelongsTo reports whether the staff member is scoped to restaurantID.
func (s Staff) BelongsTo(restaurantID uuid.UUID) bool {
	return s.RestaurantID != nil && *s.RestaurantID == restaurantID
}

type Table struct {
	ID            uuid.UUID
	RestaurantID  uuid.UUID
	Label         string
	Seats         int
	Code          string
	IsActive      bool
	CodeRotatedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ArchivedAt    *time.Time
}

type MenuCategory struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Description  string
	SortOrder    int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MenuItem struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	CategoryID   uuid.UUID
	Name         string
	Description  string
	PriceCents   int64
	ImageURL     string
	IsAvailable  bool
	SortOrder    int
	Tags         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ArchivedAt   *time.Time
}

// Orderable is true when the item can be added to a new order.
func (m MenuItem) Orderable() bool {
	return m.IsAvailable && m.ArchivedAt == nil
}

type AuditEntry struct {
	ID           uuid.UUID
	RestaurantID *uuid.UUID
	ActorID      *uuid.UUID
	ActorRole    Role
	Action       string
	EntityType   string
	EntityID     string
	Metadata     json.RawMessage
	CreatedAt    time.Time
}
