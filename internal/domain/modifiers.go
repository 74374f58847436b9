package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SelectionType string

const (
	SelectionSingle   SelectionType = "SINGLE"
	SelectionMultiple SelectionType = "MULTIPLE"
)

func ParseSelectionType(raw string) (SelectionType, bool) {
	switch st := SelectionType(strings.ToUpper(strings.TrimSpace(raw))); st {
	case SelectionSingle, SelectionMultiple:
		return st, true
	case "":
		return SelectionSingle, true
	default:
		return "", false
	}
}

type ModifierOption struct {
	ID              uuid.UUID
	Name            string
	PriceDeltaCents int64
	IsDefault       bool
	IsAvailable     bool
	SortOrder       int
}

// ModifierTemplate is a restaurant-wide option group that menu items attach to.
type ModifierTemplate struct {
	ID            uuid.UUID
	RestaurantID  uuid.UUID
	Name          string
	SelectionType SelectionType
	MinSelect     int
	MaxSelect     int
	Required      bool
	Options       []ModifierOption
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OptionOverride struct {
	OptionID        uuid.UUID
	PriceDeltaCents *int64
	Hidden          bool
	IsDefault       *bool
}

// MenuItemModifier attaches a template to one menu item, optionally overriding parts of it.
type MenuItemModifier struct {
	ID                uuid.UUID
	MenuItemID        uuid.UUID
	TemplateID        uuid.UUID
	SortOrder         int
	NameOverride      *string
	MinSelectOverride *int
	MaxSelectOverride *int
	RequiredOverride  *bool
	OptionOverrides   []OptionOverride
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ResolvedModifierOption struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	PriceDeltaCents int64     `json:"price_delta_cents"`
	IsDefault       bool      `json:"is_default"`
	SortOrder       int       `json:"sort_order"`
}

type ResolvedModifierGroup struct {
	TemplateID    uuid.UUID                `json:"template_id"`
	Name          string                   `json:"name"`
	SelectionType SelectionType            `json:"selection_type"`
	MinSelect     int                      `json:"min_select"`
	MaxSelect     int                      `json:"max_select"`
	Required      bool                     `json:"required"`
	SortOrder     int                      `json:"sort_order"`
	Options       []ResolvedModifierOption `json:"options"`
}

// ValidateModifierTemplate checks a template before it is persisted.
func ValidateModifierTemplate(t ModifierTemplate) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, ok := ParseSelectionType(string(t.SelectionType)); !ok {
		return fmt.Errorf("%w: selection_type must be SINGLE or MULTIPLE", ErrInvalidInput)
	}
	if t.MinSelect < 0 || t.MaxSelect < 0 {
		return fmt.Errorf("%w: min_select and max_select must be >= 0", ErrInvalidInput)
	}
	if t.MaxSelect > 0 && t.MinSelect > t.MaxSelect {
		return fmt.Errorf("%w: min_select must be <= max_select", ErrInvalidInput)
	}
	if len(t.Options) == 0 {
		return fmt.Errorf("%w: at least one option is required", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(t.Options))
	for i, o := range t.Options {
		name := strings.ToLower(strings.TrimSpace(o.Name))
		if name == "" {
			return fmt.Errorf("%w: options[%d].name is required", ErrInvalidInput, i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate option name %q", ErrInvalidInput, o.Name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ResolveModifierGroup merges a template with the per-item override. A nil override
// resolves the template as-is.
func ResolveModifierGroup(t ModifierTemplate, o *MenuItemModifier) ResolvedModifierGroup {
	group := ResolvedModifierGroup{
		TemplateID:    t.ID,
		Name:          t.Name,
		SelectionType: t.SelectionType,
		MinSelect:     t.MinSelect,
		MaxSelect:     t.MaxSelect,
		Required:      t.Required,
	}
	if group.SelectionType == "" {
		group.SelectionType = SelectionSingle
	}

	overrides := map[uuid.UUID]OptionOverride{}
	if o != nil {
		group.SortOrder = o.SortOrder
		if o.NameOverride != nil && strings.TrimSpace(*o.NameOverride) != "" {
			group.Name = strings.TrimSpace(*o.NameOverride)
		}
		if o.MinSelectOverride != nil {
			group.MinSelect = *o.MinSelectOverride
		}
		if o.MaxSelectOverride != nil {
			group.MaxSelect = *o.MaxSelectOverride
		}
		if o.RequiredOverride != nil {
			group.Required = *o.RequiredOverride
		}
		for _, ov := range o.OptionOverrides {
			overrides[ov.OptionID] = ov
		}
	}

	group.Options = make([]ResolvedModifierOption, 0, len(t.Options))
	for _, opt := range t.Options {
		ov, hasOverride := overrides[opt.ID]
		if !opt.IsAvailable || (hasOverride && ov.Hidden) {
			continue
		}
		resolved := ResolvedModifierOption{
			ID:              opt.ID,
			Name:            opt.Name,
			PriceDeltaCents: opt.PriceDeltaCents,
			IsDefault:       opt.IsDefault,
			SortOrder:       opt.SortOrder,
		}
		if hasOverride {
			if ov.PriceDeltaCents != nil {
				resolved.PriceDeltaCents = *ov.PriceDeltaCents
			}
			if ov.IsDefault != nil {
				resolved.IsDefault = *ov.IsDefault
			}
		}
		group.Options = append(group.Options, resolved)
	}
	sort.SliceStable(group.Options, func(i, j int) bool {
		return group.Options[i].SortOrder < group.Options[j].SortOrder
	})

	visible := len(group.Options)
	if group.SelectionType == SelectionSingle {
		group.MaxSelect = 1
	}
	if group.MaxSelect <= 0 || group.MaxSelect > visible {
		group.MaxSelect = visible
	}
	if group.MinSelect < 0 {
		group.MinSelect = 0
	}
	if group.Required && group.MinSelect < 1 {
		group.MinSelect = 1
	}
	if group.MinSelect > group.MaxSelect {
		group.MinSelect = group.MaxSelect
	}
	if group.SelectionType == SelectionSingle {
		// only one default survives for single-choice groups
		seenDefault := false
		for i := range group.Options {
			if group.Options[i].IsDefault {
				if seenDefault {
					group.Options[i].IsDefault = false
				}
				seenDefault = true
			}
		}
	}
	return group
}

// DefaultSelection returns the option ids marked default, capped at MaxSelect.
func (g ResolvedModifierGroup) DefaultSelection() []uuid.UUID {
	out := make([]uuid.UUID, 0)
	for _, opt := range g.Options {
		if opt.IsDefault && len(out) < g.MaxSelect {
			out = append(out, opt.ID)
		}
	}
	return out
}

// ValidateSelection checks chosen option ids against a resolved group and returns
// the matching options in group order.
func ValidateSelection(g ResolvedModifierGroup, optionIDs []uuid.UUID) ([]ResolvedModifierOption, error) {
	index := make(map[uuid.UUID]int, len(g.Options))
	for i, opt := range g.Options {
		index[opt.ID] = i
	}
	picked := make(map[uuid.UUID]struct{}, len(optionIDs))
	for _, id := range optionIDs {
		if _, ok := index[id]; !ok {
			return nil, fmt.Errorf("%w: option %s is not available in %q", ErrInvalidInput, id, g.Name)
		}
		if _, dup := picked[id]; dup {
			return nil, fmt.Errorf("%w: option %s selected more than once", ErrInvalidInput, id)
		}
		picked[id] = struct{}{}
	}
	if len(picked) < g.MinSelect {
		return nil, fmt.Errorf("%w: %q requires at least %d selection(s)", ErrInvalidInput, g.Name, g.MinSelect)
	}
	if len(picked) > g.MaxSelect {
		return nil, fmt.Errorf("%w: %q allows at most %d selection(s)", ErrInvalidInput, g.Name, g.MaxSelect)
	}
	out := make([]ResolvedModifierOption, 0, len(picked))
	for _, opt := range g.Options {
		if _, ok := picked[opt.ID]; ok {
			out = append(out, opt)
		}
	}
	return out, nil
}
