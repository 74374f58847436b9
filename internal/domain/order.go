package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderReady     OrderStatus = "READY"
	OrderServed    OrderStatus = "SERVED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

const (
	MaxOrderLines    = 100
	MaxLineQuantity  = 50
	maxOrderNotesLen = 500
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderServed},
	OrderServed:    {OrderCompleted},
	OrderCompleted: nil,
	OrderCancelled: nil,
}

// ParseOrderStatus normalises input into a known status.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := orderTransitions[s]; ok {
		return s, true
	}
	return "", false
}

// CanTransition reports whether the lifecycle allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s OrderStatus) []OrderStatus {
	out := make([]OrderStatus, len(orderTransitions[s]))
	copy(out, orderTransitions[s])
	return out
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// IsActive is true while the kitchen or floor still has work on the order.
func (s OrderStatus) IsActive() bool {
	_, known := orderTransitions[s]
	return known && !s.IsTerminal()
}

func (s OrderStatus) CanArchive() bool { return s.IsTerminal() }

func (s OrderStatus) CanDelete() bool { return s == OrderCancelled }

// RoleCanSetStatus gates transitions by floor role. Managers and above may apply any valid transition.
func RoleCanSetStatus(role Role, from, to OrderStatus) bool {
	switch role {
	case RoleSuperAdmin, RoleOwner, RoleManager:
		return true
	case RoleKitchen:
		return to == OrderPreparing || to == OrderReady
	case RoleWaiter:
		switch to {
		case OrderConfirmed, OrderServed, OrderCompleted:
			return true
		case OrderCancelled:
			return from == OrderPending
		}
	}
	return false
}

type OrderItemModifier struct {
	TemplateID      uuid.UUID
	GroupName       string
	OptionID        uuid.UUID
	OptionName      string
	PriceDeltaCents int64
}

type OrderItem struct {
	ID             uuid.UUID
	MenuItemID     uuid.UUID
	Name           string
	UnitPriceCents int64
	Quantity       int
	Modifiers      []OrderItemModifier
	LineTotalCents int64
	Notes          string
}

type Order struct {
	ID            uuid.UUID
	RestaurantID  uuid.UUID
	TableID       uuid.UUID
	OrderNumber   int64
	Status        OrderStatus
	CustomerName  string
	Notes         string
	Items         []OrderItem
	SubtotalCents int64
	TotalCents    int64
	Fingerprint   string
	PlacedAt      time.Time
	UpdatedAt     time.Time
	ArchivedAt    *time.Time
}

// PriceLine computes the line total from the snapshot unit price and modifier deltas.
func PriceLine(unitPriceCents int64, modifiers []OrderItemModifier, quantity int) int64 {
	unit := unitPriceCents
	for _, m := range modifiers {
		unit += m.PriceDeltaCents
	}
	if unit < 0 {
		unit = 0
	}
	return unit * int64(quantity)
}

// ValidateOrderShape checks line counts, quantities and note lengths before pricing.
func ValidateOrderShape(lines []OrderLineInput, notes string) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	if len(lines) > MaxOrderLines {
		return fmt.Errorf("%w: order may contain at most %d lines", ErrInvalidInput, MaxOrderLines)
	}
	if len(notes) > maxOrderNotesLen {
		return fmt.Errorf("%w: notes must be <= %d chars", ErrInvalidInput, maxOrderNotesLen)
	}
	for i, l := range lines {
		if l.Quantity < 1 || l.Quantity > MaxLineQuantity {
			return fmt.Errorf("%w: items[%d].quantity must be between 1 and %d", ErrInvalidInput, i, MaxLineQuantity)
		}
		if len(l.Notes) > maxOrderNotesLen {
			return fmt.Errorf("%w: items[%d].notes too long", ErrInvalidInput, i)
		}
	}
	return nil
}

// OrderLineInput is the customer's request for one line, before resolution against the menu.
type OrderLineInput struct {
	MenuItemID uuid.UUID
	Quantity   int
	OptionIDs  []uuid.UUID
	Notes      string
}

// OrderFingerprint derives a stable hash of a basket for one table so that double
// submissions are detectable regardless of line or option ordering.
func OrderFingerprint(tableID uuid.UUID, lines []OrderLineInput) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		opts := make([]string, 0, len(l.OptionIDs))
		for _, o := range l.OptionIDs {
			opts = append(opts, o.String())
		}
		sort.Strings(opts)
		parts = append(parts, l.MenuItemID.String()+"x"+strconv.Itoa(l.Quantity)+"["+strings.Join(opts, ",")+"]"+strings.TrimSpace(l.Notes))
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(tableID.String() + "|" + strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:])
}
