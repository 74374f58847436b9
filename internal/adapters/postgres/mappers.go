package postgres

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"gorm.io/gorm"
)

func toRestaurantModel(r domain.Restaurant) restaurantModel {
	return restaurantModel{
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

func toDomainRestaurant(row restaurantModel) domain.Restaurant {
	return domain.Restaurant{
		ID:              row.ID,
		Name:            row.Name,
		Slug:            row.Slug,
		Timezone:        row.Timezone,
		Currency:        row.Currency,
		Address:         row.Address,
		Phone:           row.Phone,
		OrderingEnabled: row.OrderingEnabled,
		IsActive:        row.IsActive,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		ArchivedAt:      row.ArchivedAt,
	}
}

func toStaffModel(s domain.Staff) staffModel {
	return staffModel{
		ID:           s.ID,
		RestaurantID: s.RestaurantID,
		Email:        s.Email,
		Name:         s.Name,
		PasswordHash: s.PasswordHash,
		Role:         string(s.Role),
		IsActive:     s.IsActive,
		LastLoginAt:  s.LastLoginAt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toDomainStaff(row staffModel) domain.Staff {
	return domain.Staff{
		ID:           row.ID,
		RestaurantID: row.RestaurantID,
		Email:        row.Email,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		Role:         domain.Role(row.Role),
		IsActive:     row.IsActive,
		LastLoginAt:  row.LastLoginAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toTableModel(t domain.Table) tableModel {
	return tableModel{
		ID:            t.ID,
		RestaurantID:  t.RestaurantID,
		Label:         t.Label,
		Seats:         t.Seats,
		Code:          t.Code,
		IsActive:      t.IsActive,
		CodeRotatedAt: t.CodeRotatedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ArchivedAt:    t.ArchivedAt,
	}
}

func toDomainTable(row tableModel) domain.Table {
	return domain.Table{
		ID:            row.ID,
		RestaurantID:  row.RestaurantID,
		Label:         row.Label,
		Seats:         row.Seats,
		Code:          row.Code,
		IsActive:      row.IsActive,
		CodeRotatedAt: row.CodeRotatedAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		ArchivedAt:    row.ArchivedAt,
	}
}

func toCategoryModel(c domain.MenuCategory) categoryModel {
	return categoryModel{
		ID:           c.ID,
		RestaurantID: c.RestaurantID,
		Name:         c.Name,
		Description:  c.Description,
		SortOrder:    c.SortOrder,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toDomainCategory(row categoryModel) domain.MenuCategory {
	return domain.MenuCategory{
		ID:           row.ID,
		RestaurantID: row.RestaurantID,
		Name:         row.Name,
		Description:  row.Description,
		SortOrder:    row.SortOrder,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toMenuItemModel(m domain.MenuItem) menuItemModel {
	return menuItemModel{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		CategoryID:   m.CategoryID,
		Name:         m.Name,
		Description:  m.Description,
		PriceCents:   m.PriceCents,
		ImageURL:     m.ImageURL,
		IsAvailable:  m.IsAvailable,
		SortOrder:    m.SortOrder,
		Tags:         encodeJSON(m.Tags, "[]"),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		ArchivedAt:   m.ArchivedAt,
	}
}

func toDomainMenuItem(row menuItemModel) domain.MenuItem {
	var tags []string
	_ = json.Unmarshal([]byte(row.Tags), &tags)
	return domain.MenuItem{
		ID:           row.ID,
		RestaurantID: row.RestaurantID,
		CategoryID:   row.CategoryID,
		Name:         row.Name,
		Description:  row.Description,
		PriceCents:   row.PriceCents,
		ImageURL:     row.ImageURL,
		IsAvailable:  row.IsAvailable,
		SortOrder:    row.SortOrder,
		Tags:         tags,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		ArchivedAt:   row.ArchivedAt,
	}
}

func toTemplateModel(t domain.ModifierTemplate) templateModel {
	return templateModel{
		ID:            t.ID,
		RestaurantID:  t.RestaurantID,
		Name:          t.Name,
		SelectionType: string(t.SelectionType),
		MinSelect:     t.MinSelect,
		MaxSelect:     t.MaxSelect,
		Required:      t.Required,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toOptionModels(templateID uuid.UUID, options []domain.ModifierOption) []optionModel {
	out := make([]optionModel, 0, len(options))
	for _, o := range options {
		id := o.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		out = append(out, optionModel{
			ID:              id,
			TemplateID:      templateID,
			Name:            o.Name,
			PriceDeltaCents: o.PriceDeltaCents,
			IsDefault:       o.IsDefault,
			IsAvailable:     o.IsAvailable,
			SortOrder:       o.SortOrder,
		})
	}
	return out
}

func toDomainTemplate(row templateModel, options []optionModel) domain.ModifierTemplate {
	t := domain.ModifierTemplate{
		ID:            row.ID,
		RestaurantID:  row.RestaurantID,
		Name:          row.Name,
		SelectionType: domain.SelectionType(row.SelectionType),
		MinSelect:     row.MinSelect,
		MaxSelect:     row.MaxSelect,
		Required:      row.Required,
		Options:       make([]domain.ModifierOption, 0, len(options)),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	for _, o := range options {
		t.Options = append(t.Options, domain.ModifierOption{
			ID:              o.ID,
			Name:            o.Name,
			PriceDeltaCents: o.PriceDeltaCents,
			IsDefault:       o.IsDefault,
			IsAvailable:     o.IsAvailable,
			SortOrder:       o.SortOrder,
		})
	}
	return t
}

type optionOverrideRow struct {
	OptionID        uuid.UUID `json:"option_id"`
	PriceDeltaCents *int64    `json:"price_delta_cents,omitempty"`
	Hidden          bool      `json:"hidden,omitempty"`
	IsDefault       *bool     `json:"is_default,omitempty"`
}

func toItemModifierModel(m domain.MenuItemModifier) itemModifierModel {
	rows := make([]optionOverrideRow, 0, len(m.OptionOverrides))
	for _, o := range m.OptionOverrides {
		rows = append(rows, optionOverrideRow(o))
	}
	return itemModifierModel{
		ID:                m.ID,
		MenuItemID:        m.MenuItemID,
		TemplateID:        m.TemplateID,
		SortOrder:         m.SortOrder,
		NameOverride:      m.NameOverride,
		MinSelectOverride: m.MinSelectOverride,
		MaxSelectOverride: m.MaxSelectOverride,
		RequiredOverride:  m.RequiredOverride,
		OptionOverrides:   encodeJSON(rows, "[]"),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toDomainItemModifier(row itemModifierModel) domain.MenuItemModifier {
	var rows []optionOverrideRow
	_ = json.Unmarshal([]byte(row.OptionOverrides), &rows)
	overrides := make([]domain.OptionOverride, 0, len(rows))
	for _, o := range rows {
		overrides = append(overrides, domain.OptionOverride(o))
	}
	return domain.MenuItemModifier{
		ID:                row.ID,
		MenuItemID:        row.MenuItemID,
		TemplateID:        row.TemplateID,
		SortOrder:         row.SortOrder,
		NameOverride:      row.NameOverride,
		MinSelectOverride: row.MinSelectOverride,
		MaxSelectOverride: row.MaxSelectOverride,
		RequiredOverride:  row.RequiredOverride,
		OptionOverrides:   overrides,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

type orderModifierRow struct {
	TemplateID      uuid.UUID `json:"template_id"`
	GroupName       string    `json:"group_name"`
	OptionID        uuid.UUID `json:"option_id"`
	OptionName      string    `json:"option_name"`
	PriceDeltaCents int64     `json:"price_delta_cents"`
}

func toOrderModel(o domain.Order) orderModel {
	return orderModel{
		ID:            o.ID,
		RestaurantID:  o.RestaurantID,
		TableID:       o.TableID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		CustomerName:  o.CustomerName,
		Notes:         o.Notes,
		SubtotalCents: o.SubtotalCents,
		TotalCents:    o.TotalCents,
		Fingerprint:   o.Fingerprint,
		PlacedAt:      o.PlacedAt,
		UpdatedAt:     o.UpdatedAt,
		ArchivedAt:    o.ArchivedAt,
	}
}

func toOrderItemModels(orderID uuid.UUID, items []domain.OrderItem) []orderItemModel {
	out := make([]orderItemModel, 0, len(items))
	for i, it := range items {
		mods := make([]orderModifierRow, 0, len(it.Modifiers))
		for _, m := range it.Modifiers {
			mods = append(mods, orderModifierRow(m))
		}
		id := it.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		out = append(out, orderItemModel{
			ID:             id,
			OrderID:        orderID,
			Position:       i,
			MenuItemID:     it.MenuItemID,
			Name:           it.Name,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
			LineTotalCents: it.LineTotalCents,
			Notes:          it.Notes,
			Modifiers:      encodeJSON(mods, "[]"),
		})
	}
	return out
}

func toDomainOrder(row orderModel, items []orderItemModel) domain.Order {
	o := domain.Order{
		ID:            row.ID,
		RestaurantID:  row.RestaurantID,
		TableID:       row.TableID,
		OrderNumber:   row.OrderNumber,
		Status:        domain.OrderStatus(row.Status),
		CustomerName:  row.CustomerName,
		Notes:         row.Notes,
		Items:         make([]domain.OrderItem, 0, len(items)),
		SubtotalCents: row.SubtotalCents,
		TotalCents:    row.TotalCents,
		Fingerprint:   row.Fingerprint,
		PlacedAt:      row.PlacedAt,
		UpdatedAt:     row.UpdatedAt,
		ArchivedAt:    row.ArchivedAt,
	}
	for _, it := range items {
		var mods []orderModifierRow
		_ = json.Unmarshal([]byte(it.Modifiers), &mods)
		item := domain.OrderItem{
			ID:             it.ID,
			MenuItemID:     it.MenuItemID,
			Name:           it.Name,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
			LineTotalCents: it.LineTotalCents,
			Notes:          it.Notes,
			Modifiers:      make([]domain.OrderItemModifier, 0, len(mods)),
		}
		for _, m := range mods {
			item.Modifiers = append(item.Modifiers, domain.OrderItemModifier(m))
		}
		o.Items = append(o.Items, item)
	}
	return o
}

func toAuditModel(e domain.AuditEntry) auditModel {
	metadata := "{}"
	if len(e.Metadata) > 0 {
		metadata = string(e.Metadata)
	}
	return auditModel{
		ID:           e.ID,
		RestaurantID: e.RestaurantID,
		ActorID:      e.ActorID,
		ActorRole:    string(e.ActorRole),
		Action:       e.Action,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Metadata:     metadata,
		CreatedAt:    e.CreatedAt,
	}
}

func toDomainAudit(row auditModel) domain.AuditEntry {
	return domain.AuditEntry{
		ID:           row.ID,
		RestaurantID: row.RestaurantID,
		ActorID:      row.ActorID,
		ActorRole:    domain.Role(row.ActorRole),
		Action:       row.Action,
		EntityType:   row.EntityType,
		EntityID:     row.EntityID,
		Metadata:     json.RawMessage(row.Metadata),
		CreatedAt:    row.CreatedAt,
	}
}

func encodeJSON(v any, empty string) string {
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return empty
	}
	return string(raw)
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
