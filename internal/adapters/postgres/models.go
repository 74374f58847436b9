package postgres

import (
	"time"

	"github.com/google/uuid"
)

type restaurantModel struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name            string     `gorm:"column:name"`
	Slug            string     `gorm:"column:slug"`
	Timezone        string     `gorm:"column:timezone"`
	Currency        string     `gorm:"column:currency"`
	Address         string     `gorm:"column:address"`
	Phone           string     `gorm:"column:phone"`
	OrderingEnabled bool       `gorm:"column:ordering_enabled"`
	IsActive        bool       `gorm:"column:is_active"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
	ArchivedAt      *time.Time `gorm:"column:archived_at"`
}

func (restaurantModel) TableName() string { return "restaurants" }

type staffModel struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID *uuid.UUID `gorm:"column:restaurant_id;type:uuid"`
	Email        string     `gorm:"column:email"`
	Name         string     `gorm:"column:name"`
	PasswordHash string     `gorm:"column:password_hash"`
	Role         string     `gorm:"column:role"`
	IsActive     bool       `gorm:"column:is_active"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (staffModel) TableName() string { return "staff" }

type tableModel struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID  uuid.UUID  `gorm:"column:restaurant_id;type:uuid"`
	Label         string     `gorm:"column:label"`
	Seats         int        `gorm:"column:seats"`
	Code          string     `gorm:"column:code"`
	IsActive      bool       `gorm:"column:is_active"`
	CodeRotatedAt time.Time  `gorm:"column:code_rotated_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
	ArchivedAt    *time.Time `gorm:"column:archived_at"`
}

func (tableModel) TableName() string { return "restaurant_tables" }

type categoryModel struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID uuid.UUID `gorm:"column:restaurant_id;type:uuid"`
	Name         string    `gorm:"column:name"`
	Description  string    `gorm:"column:description"`
	SortOrder    int       `gorm:"column:sort_order"`
	IsActive     bool      `gorm:"column:is_active"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (categoryModel) TableName() string { return "menu_categories" }

type menuItemModel struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID uuid.UUID  `gorm:"column:restaurant_id;type:uuid"`
	CategoryID   uuid.UUID  `gorm:"column:category_id;type:uuid"`
	Name         string     `gorm:"column:name"`
	Description  string     `gorm:"column:description"`
	PriceCents   int64      `gorm:"column:price_cents"`
	ImageURL     string     `gorm:"column:image_url"`
	IsAvailable  bool       `gorm:"column:is_available"`
	SortOrder    int        `gorm:"column:sort_order"`
	Tags         string     `gorm:"column:tags;type:jsonb"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
	ArchivedAt   *time.Time `gorm:"column:archived_at"`
}

func (menuItemModel) TableName() string { return "menu_items" }

type templateModel struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID  uuid.UUID `gorm:"column:restaurant_id;type:uuid"`
	Name          string    `gorm:"column:name"`
	SelectionType string    `gorm:"column:selection_type"`
	MinSelect     int       `gorm:"column:min_select"`
	MaxSelect     int       `gorm:"column:max_select"`
	Required      bool      `gorm:"column:required"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (templateModel) TableName() string { return "modifier_templates" }

type optionModel struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TemplateID      uuid.UUID `gorm:"column:template_id;type:uuid"`
	Name            string    `gorm:"column:name"`
	PriceDeltaCents int64     `gorm:"column:price_delta_cents"`
	IsDefault       bool      `gorm:"column:is_default"`
	IsAvailable     bool      `gorm:"column:is_available"`
	SortOrder       int       `gorm:"column:sort_order"`
}

func (optionModel) TableName() string { return "modifier_options" }

type itemModifierModel struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	MenuItemID        uuid.UUID `gorm:"column:menu_item_id;type:uuid"`
	TemplateID        uuid.UUID `gorm:"column:template_id;type:uuid"`
	SortOrder         int       `gorm:"column:sort_order"`
	NameOverride      *string   `gorm:"column:name_override"`
	MinSelectOverride *int      `gorm:"column:min_select_override"`
	MaxSelectOverride *int      `gorm:"column:max_select_override"`
	RequiredOverride  *bool     `gorm:"column:required_override"`
	OptionOverrides   string    `gorm:"column:option_overrides;type:jsonb"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (itemModifierModel) TableName() string { return "menu_item_modifiers" }

type orderModel struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID  uuid.UUID  `gorm:"column:restaurant_id;type:uuid"`
	TableID       uuid.UUID  `gorm:"column:table_id;type:uuid"`
	OrderNumber   int64      `gorm:"column:order_number"`
	Status        string     `gorm:"column:status"`
	CustomerName  string     `gorm:"column:customer_name"`
	Notes         string     `gorm:"column:notes"`
	SubtotalCents int64      `gorm:"column:subtotal_cents"`
	TotalCents    int64      `gorm:"column:total_cents"`
	Fingerprint   string     `gorm:"column:fingerprint"`
	PlacedAt      time.Time  `gorm:"column:placed_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
	ArchivedAt    *time.Time `gorm:"column:archived_at"`
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid"`
	Position       int       `gorm:"column:position"`
	MenuItemID     uuid.UUID `gorm:"column:menu_item_id;type:uuid"`
	Name           string    `gorm:"column:name"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents"`
	Quantity       int       `gorm:"column:quantity"`
	LineTotalCents int64     `gorm:"column:line_total_cents"`
	Notes          string    `gorm:"column:notes"`
	Modifiers      string    `gorm:"column:modifiers;type:jsonb"`
}

func (orderItemModel) TableName() string { return "order_items" }

type auditModel struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID *uuid.UUID `gorm:"column:restaurant_id;type:uuid"`
	ActorID      *uuid.UUID `gorm:"column:actor_id;type:uuid"`
	ActorRole    string     `gorm:"column:actor_role"`
	Action       string     `gorm:"column:action"`
	EntityType   string     `gorm:"column:entity_type"`
	EntityID     string     `gorm:"column:entity_id"`
	Metadata     string     `gorm:"column:metadata;type:jsonb"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
}

func (auditModel) TableName() string { return "audit_log" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "ordering_outbox" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "ordering_idempotency" }
