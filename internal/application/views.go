package application

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
)

type RestaurantView struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	Timezone        string     `json:"timezone"`
	Currency        string     `json:"currency"`
	Address         string     `json:"address,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	OrderingEnabled bool       `json:"ordering_enabled"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
}

type PublicRestaurantView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Currency string    `json:"currency"`
	Timezone string    `json:"timezone"`
}

type StaffView struct {
	ID           uuid.UUID   `json:"id"`
	RestaurantID *uuid.UUID  `json:"restaurant_id,omitempty"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         domain.Role `json:"role"`
	IsActive     bool        `json:"is_active"`
	LastLoginAt  *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

type TableView struct {
	ID            uuid.UUID  `json:"id"`
	RestaurantID  uuid.UUID  `json:"restaurant_id"`
	Label         string     `json:"label"`
	Seats         int        `json:"seats"`
	Code          string     `json:"code"`
	OrderURL      string     `json:"order_url"`
	IsActive      bool       `json:"is_active"`
	CodeRotatedAt time.Time  `json:"code_rotated_at"`
	CreatedAt     time.Time  `json:"created_at"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
}

type PublicTableView struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
}

type CategoryView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
}

type MenuItemView struct {
	ID          uuid.UUID  `json:"id"`
	CategoryID  uuid.UUID  `json:"category_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	PriceCents  int64      `json:"price_cents"`
	ImageURL    string     `json:"image_url,omitempty"`
	IsAvailable bool       `json:"is_available"`
	SortOrder   int        `json:"sort_order"`
	Tags        []string   `json:"tags"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

type ModifierOptionView struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	PriceDeltaCents int64     `json:"price_delta_cents"`
	IsDefault       bool      `json:"is_default"`
	IsAvailable     bool      `json:"is_available"`
	SortOrder       int       `json:"sort_order"`
}

type ModifierTemplateView struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name"`
	SelectionType domain.SelectionType `json:"selection_type"`
	MinSelect     int                  `json:"min_select"`
	MaxSelect     int                  `json:"max_select"`
	Required      bool                 `json:"required"`
	Options       []ModifierOptionView `json:"options"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type MenuEntryView struct {
	MenuItemView
	ModifierGroups []domain.ResolvedModifierGroup `json:"modifier_groups"`
}

type MenuSectionView struct {
	CategoryView
	Items []MenuEntryView `json:"items"`
}

type MenuView struct {
	Restaurant  PublicRestaurantView `json:"restaurant"`
	Categories  []MenuSectionView    `json:"categories"`
	GeneratedAt time.Time            `json:"generated_at"`
}

type OrderItemModifierView struct {
	GroupName       string    `json:"group_name"`
	OptionID        uuid.UUID `json:"option_id"`
	OptionName      string    `json:"option_name"`
	PriceDeltaCents int64     `json:"price_delta_cents"`
}

type OrderItemView struct {
	ID             uuid.UUID               `json:"id"`
	MenuItemID     uuid.UUID               `json:"menu_item_id"`
	Name           string                  `json:"name"`
	UnitPriceCents int64                   `json:"unit_price_cents"`
	Quantity       int                     `json:"quantity"`
	Modifiers      []OrderItemModifierView `json:"modifiers"`
	LineTotalCents int64                   `json:"line_total_cents"`
	Notes          string                  `json:"notes,omitempty"`
}

type OrderView struct {
	ID            uuid.UUID            `json:"id"`
	RestaurantID  uuid.UUID            `json:"restaurant_id"`
	TableID       uuid.UUID            `json:"table_id"`
	OrderNumber   int64                `json:"order_number"`
	Status        domain.OrderStatus   `json:"status"`
	NextStatuses  []domain.OrderStatus `json:"next_statuses"`
	CustomerName  string               `json:"customer_name,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	Items         []OrderItemView      `json:"items"`
	SubtotalCents int64                `json:"subtotal_cents"`
	TotalCents    int64                `json:"total_cents"`
	PlacedAt      time.Time            `json:"placed_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	ArchivedAt    *time.Time           `json:"archived_at,omitempty"`
}

type AuditView struct {
	ID           uuid.UUID       `json:"id"`
	RestaurantID *uuid.UUID      `json:"restaurant_id,omitempty"`
	ActorID      *uuid.UUID      `json:"actor_id,omitempty"`
	ActorRole    domain.Role     `json:"actor_role"`
	Action       string          `json:"action"`
	EntityType   string          `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toRestaurantView(r domain.Restaurant) RestaurantView {
	return RestaurantView{
		ID:              r.ID,
		Name:            r.Name,
		Slug:            r.Slug,
		Timezone:        r.Timezone,
		Currency:        r.Currency,
		Address:         r.Address,
		Phone:           r.Phone,
		OrderingEnabled: r.OrderingEnabled,
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		ArchivedAt:      r.ArchivedAt,
	}
}

func toPublicRestaurantView(r domain.Restaurant) PublicRestaurantView {
	return PublicRestaurantView{ID: r.ID, Name: r.Name, Slug: r.Slug, Currency: r.Currency, Timezone: r.Timezone}
}

func toStaffView(s domain.Staff) StaffView {
	return StaffView{
		ID:           s.ID,
		RestaurantID: s.RestaurantID,
		Email:        s.Email,
		Name:         s.Name,
		Role:         s.Role,
		IsActive:     s.IsActive,
		LastLoginAt:  s.LastLoginAt,
		CreatedAt:    s.CreatedAt,
	}
}

func (s *Service) toTableView(t domain.Table) TableView {
	return TableView{
		ID:            t.ID,
		RestaurantID:  t.RestaurantID,
		Label:         t.Label,
		Seats:         t.Seats,
		Code:          t.Code,
		OrderURL:      s.tableOrderURL(t.Code),
		IsActive:      t.IsActive,
		CodeRotatedAt: t.CodeRotatedAt,
		CreatedAt:     t.CreatedAt,
		ArchivedAt:    t.ArchivedAt,
	}
}

func toCategoryView(c domain.MenuCategory) CategoryView {
	return CategoryView{ID: c.ID, Name: c.Name, Description: c.Description, SortOrder: c.SortOrder, IsActive: c.IsActive}
}

func toMenuItemView(m domain.MenuItem) MenuItemView {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return MenuItemView{
		ID:          m.ID,
		CategoryID:  m.CategoryID,
		Name:        m.Name,
		Description: m.Description,
		PriceCents:  m.PriceCents,
		ImageURL:    m.ImageURL,
		IsAvailable: m.IsAvailable,
		SortOrder:   m.SortOrder,
		Tags:        tags,
		UpdatedAt:   m.UpdatedAt,
		ArchivedAt:  m.ArchivedAt,
	}
}

func toModifierTemplateView(t domain.ModifierTemplate) ModifierTemplateView {
	options := make([]ModifierOptionView, 0, len(t.Options))
	for _, o := range t.Options {
		options = append(options, ModifierOptionView{
			ID:              o.ID,
			Name:            o.Name,
			PriceDeltaCents: o.PriceDeltaCents,
			IsDefault:       o.IsDefault,
			IsAvailable:     o.IsAvailable,
			SortOrder:       o.SortOrder,
		})
	}
	return ModifierTemplateView{
		ID:            t.ID,
		Name:          t.Name,
		SelectionType: t.SelectionType,
		MinSelect:     t.MinSelect,
		MaxSelect:     t.MaxSelect,
		Required:      t.Required,
		Options:       options,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toOrderView(o domain.Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, it := range o.Items {
		mods := make([]OrderItemModifierView, 0, len(it.Modifiers))
		for _, m := range it.Modifiers {
			mods = append(mods, OrderItemModifierView{
				GroupName:       m.GroupName,
				OptionID:        m.OptionID,
				OptionName:      m.OptionName,
				PriceDeltaCents: m.PriceDeltaCents,
			})
		}
		items = append(items, OrderItemView{
			ID:             it.ID,
			MenuItemID:     it.MenuItemID,
			Name:           it.Name,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
			Modifiers:      mods,
			LineTotalCents: it.LineTotalCents,
			Notes:          it.Notes,
		})
	}
	return OrderView{
		ID:            o.ID,
		RestaurantID:  o.RestaurantID,
		TableID:       o.TableID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		NextStatuses:  domain.NextStatuses(o.Status),
		CustomerName:  o.CustomerName,
		Notes:         o.Notes,
		Items:         items,
		SubtotalCents: o.SubtotalCents,
		TotalCents:    o.TotalCents,
		PlacedAt:      o.PlacedAt,
		UpdatedAt:     o.UpdatedAt,
		ArchivedAt:    o.ArchivedAt,
	}
}

func toAuditView(e domain.AuditEntry) AuditView {
	return AuditView{
		ID:           e.ID,
		RestaurantID: e.RestaurantID,
		ActorID:      e.ActorID,
		ActorRole:    e.ActorRole,
		Action:       e.Action,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt,
	}
}
