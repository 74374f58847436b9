package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
)

type Config struct {
	ServiceID            string
	AccessTokenTTL       time.Duration
	CustomerSessionTTL   time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	DuplicateOrderWindow time.Duration
	IdempotencyTTL       time.Duration
	TableCodeLength      int
	TableCodeMaxAttempts int
	PublicBaseURL        string
	QRSize               int
	MenuCacheTTL         time.Duration
	DefaultPageSize      int
	MaxPageSize          int
}

func (c Config) withDefaults() Config {
	if c.ServiceID == "" {
		c.ServiceID = "M60-Restaurant-Ordering-Service"
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = 12 * time.Hour
	}
	if c.CustomerSessionTTL <= 0 {
		c.CustomerSessionTTL = 4 * time.Hour
	}
	if c.FailedLoginThreshold <= 0 {
		c.FailedLoginThreshold = 5
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 15 * time.Minute
	}
	if c.DuplicateOrderWindow <= 0 {
		c.DuplicateOrderWindow = 10 * time.Second
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = 24 * time.Hour
	}
	if c.TableCodeLength < 4 {
		c.TableCodeLength = 6
	}
	if c.TableCodeMaxAttempts <= 0 {
		c.TableCodeMaxAttempts = 8
	}
	if c.QRSize <= 0 {
		c.QRSize = 512
	}
	if c.MenuCacheTTL <= 0 {
		c.MenuCacheTTL = 5 * time.Minute
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 50
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 200
	}
	return c
}

// Principal is the authenticated caller derived from a bearer token.
type Principal struct {
	SubjectID    uuid.UUID
	Kind         string
	Role         domain.Role
	Email        string
	RestaurantID *uuid.UUID
	TableID      *uuid.UUID
	IssuedAt     time.Time
}

func (p Principal) IsCustomer() bool { return p.Role == domain.RoleCustomer }

func (p Principal) IsStaff() bool { return p.Role.IsStaff() }

// SystemPrincipal is used by operator tooling and scheduled jobs.
func SystemPrincipal() Principal {
	return Principal{Kind: "system", Role: domain.RoleSuperAdmin}
}

type LoginRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,max=128"`
	IPAddress string `json:"-"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	Staff     StaffView `json:"staff"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=10,max=128"`
}

type TableSessionResponse struct {
	Token      string               `json:"token"`
	ExpiresIn  int64                `json:"expires_in"`
	Restaurant PublicRestaurantView `json:"restaurant"`
	Table      PublicTableView      `json:"table"`
}

type CreateOwnerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=10,max=128"`
}

type CreateRestaurantRequest struct {
	Name            string              `json:"name" validate:"required,max=120"`
	Slug            string              `json:"slug" validate:"omitempty,min=3,max=64"`
	Timezone        string              `json:"timezone" validate:"required,max=64"`
	Currency        string              `json:"currency" validate:"required,len=3,alpha"`
	Address         string              `json:"address" validate:"max=300"`
	Phone           string              `json:"phone" validate:"omitempty,max=32"`
	OrderingEnabled *bool               `json:"ordering_enabled"`
	Owner           *CreateOwnerRequest `json:"owner" validate:"omitempty"`
}

type UpdateRestaurantRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=120"`
	Timezone        *string `json:"timezone" validate:"omitempty,max=64"`
	Currency        *string `json:"currency" validate:"omitempty,len=3,alpha"`
	Address         *string `json:"address" validate:"omitempty,max=300"`
	Phone           *string `json:"phone" validate:"omitempty,max=32"`
	OrderingEnabled *bool   `json:"ordering_enabled"`
	IsActive        *bool   `json:"is_active"`
}

type CreateStaffRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=10,max=128"`
	Role     string `json:"role" validate:"required,oneof=OWNER MANAGER WAITER KITCHEN"`
}

type UpdateStaffRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	Role     *string `json:"role" validate:"omitempty,oneof=OWNER MANAGER WAITER KITCHEN"`
	IsActive *bool   `json:"is_active"`
}

type CreateTableRequest struct {
	Label string `json:"label" validate:"required,max=40"`
	Seats int    `json:"seats" validate:"omitempty,min=1,max=50"`
}

type UpdateTableRequest struct {
	Label    *string `json:"label" validate:"omitempty,min=1,max=40"`
	Seats    *int    `json:"seats" validate:"omitempty,min=1,max=50"`
	IsActive *bool   `json:"is_active"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description" validate:"max=500"`
	SortOrder   *int   `json:"sort_order" validate:"omitempty,min=0"`
	IsActive    *bool  `json:"is_active"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=80"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,min=0"`
	IsActive    *bool   `json:"is_active"`
}

type ReorderCategoriesRequest struct {
	CategoryIDs []string `json:"category_ids" validate:"required,min=1,max=500,dive,uuid"`
}

type CreateMenuItemRequest struct {
	CategoryID  string   `json:"category_id" validate:"required,uuid"`
	Name        string   `json:"name" validate:"required,max=120"`
	Description string   `json:"description" validate:"max=1000"`
	PriceCents  int64    `json:"price_cents" validate:"min=0,max=10000000"`
	ImageURL    string   `json:"image_url" validate:"omitempty,url,max=500"`
	IsAvailable *bool    `json:"is_available"`
	SortOrder   int      `json:"sort_order" validate:"min=0"`
	Tags        []string `json:"tags" validate:"max=20,dive,min=1,max=30"`
}

type UpdateMenuItemRequest struct {
	CategoryID  *string   `json:"category_id" validate:"omitempty,uuid"`
	Name        *string   `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string   `json:"description" validate:"omitempty,max=1000"`
	PriceCents  *int64    `json:"price_cents" validate:"omitempty,min=0,max=10000000"`
	ImageURL    *string   `json:"image_url" validate:"omitempty,max=500"`
	IsAvailable *bool     `json:"is_available"`
	SortOrder   *int      `json:"sort_order" validate:"omitempty,min=0"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,min=1,max=30"`
}

type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

type MenuItemQuery struct {
	CategoryID      string
	IncludeArchived bool
}

type ModifierOptionInput struct {
	ID              string `json:"id" validate:"omitempty,uuid"`
	Name            string `json:"name" validate:"required,max=60"`
	PriceDeltaCents int64  `json:"price_delta_cents" validate:"min=-1000000,max=1000000"`
	IsDefault       bool   `json:"is_default"`
	IsAvailable     *bool  `json:"is_available"`
	SortOrder       int    `json:"sort_order" validate:"min=0"`
}

type ModifierTemplateRequest struct {
	Name          string                `json:"name" validate:"required,max=80"`
	SelectionType string                `json:"selection_type" validate:"omitempty,oneof=SINGLE MULTIPLE"`
	MinSelect     int                   `json:"min_select" validate:"min=0,max=50"`
	MaxSelect     int                   `json:"max_select" validate:"min=0,max=50"`
	Required      bool                  `json:"required"`
	Options       []ModifierOptionInput `json:"options" validate:"required,min=1,max=50,dive"`
}

type OptionOverrideInput struct {
	OptionID        string `json:"option_id" validate:"required,uuid"`
	PriceDeltaCents *int64 `json:"price_delta_cents" validate:"omitempty,min=-1000000,max=1000000"`
	Hidden          bool   `json:"hidden"`
	IsDefault       *bool  `json:"is_default"`
}

type AttachModifierRequest struct {
	SortOrder         int                   `json:"sort_order" validate:"min=0"`
	NameOverride      *string               `json:"name_override" validate:"omitempty,min=1,max=80"`
	MinSelectOverride *int                  `json:"min_select_override" validate:"omitempty,min=0,max=50"`
	MaxSelectOverride *int                  `json:"max_select_override" validate:"omitempty,min=0,max=50"`
	RequiredOverride  *bool                 `json:"required_override"`
	OptionOverrides   []OptionOverrideInput `json:"option_overrides" validate:"max=50,dive"`
}

type OrderLineRequest struct {
	MenuItemID string   `json:"menu_item_id" validate:"required,uuid"`
	Quantity   int      `json:"quantity" validate:"required,min=1,max=50"`
	OptionIDs  []string `json:"option_ids" validate:"max=50,dive,uuid"`
	Notes      string   `json:"notes" validate:"max=500"`
}

type PlaceOrderRequest struct {
	CustomerName string             `json:"customer_name" validate:"max=80"`
	Notes        string             `json:"notes" validate:"max=500"`
	Items        []OrderLineRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

type PlaceOrderResult struct {
	Order    OrderView
	Replayed bool
}

type TransitionOrderRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=200"`
}

type OrderQuery struct {
	Statuses        []string
	TableID         string
	ActiveOnly      bool
	IncludeArchived bool
	Limit           int
	Offset          int
}

type AuditQuery struct {
	EntityType string
	EntityID   string
	ActorID    string
	Limit      int
	Offset     int
}

type ListQuery struct {
	Limit           int
	Offset          int
	IncludeArchived bool
}
