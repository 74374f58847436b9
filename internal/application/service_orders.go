package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

// PlaceOrder prices a customer basket against the live menu and stores it with an
// order.placed outbox event. Identical baskets from the same table inside the dedup
// window are rejected; a repeated Idempotency-Key replays the stored order instead.
func (s *Service) PlaceOrder(ctx context.Context, p Principal, req PlaceOrderRequest, idempotencyKey string) (PlaceOrderResult, error) {
	restaurantID, tableID, err := customerScope(p)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if err := validateRequest(req); err != nil {
		return PlaceOrderResult{}, err
	}
	lines, err := parseOrderLines(req.Items)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if err := domain.ValidateOrderShape(lines, req.Notes); err != nil {
		return PlaceOrderResult{}, err
	}

	restaurant, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if !restaurant.AcceptsOrders() {
		return PlaceOrderResult{}, fmt.Errorf("%w: restaurant is not accepting orders", domain.ErrOrderingDisabled)
	}
	table, err := s.tables.GetByID(ctx, restaurantID, tableID)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if !table.IsActive || table.ArchivedAt != nil {
		return PlaceOrderResult{}, fmt.Errorf("%w: table is not accepting orders", domain.ErrOrderingDisabled)
	}

	idemKey := ""
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		idemKey = "order:" + tableID.String() + ":" + key
		replay, err := s.reserveIdempotency(ctx, idemKey, hashRequest(req))
		if err != nil {
			return PlaceOrderResult{}, err
		}
		if replay != nil {
			return PlaceOrderResult{Order: *replay, Replayed: true}, nil
		}
	}
	releaseIdem := func() {
		if idemKey != "" {
			_ = s.idempotency.Release(ctx, idemKey)
		}
	}

	fingerprint := domain.OrderFingerprint(tableID, lines)
	claimed := false
	if s.dedup != nil {
		ok, err := s.dedup.Claim(ctx, "order:"+fingerprint, s.cfg.DuplicateOrderWindow)
		switch {
		case err != nil:
			// ordering must keep working when the dedup store is down
			slog.Default().WarnContext(ctx, "order dedup unavailable",
				"module", "application",
				"layer", "application",
				"operation", "place_order",
				"outcome", "degraded",
				"restaurant_id", restaurantID,
				"error", err,
			)
		case !ok:
			releaseIdem()
			s.metrics.DuplicateOrderSuppressed(restaurantID.String())
			slog.Default().InfoContext(ctx, "duplicate order suppressed",
				"module", "application",
				"layer", "application",
				"operation", "place_order",
				"outcome", "rejected",
				"restaurant_id", restaurantID,
				"table_id", tableID,
			)
			return PlaceOrderResult{}, fmt.Errorf("%w: an identical order was just placed for this table", domain.ErrDuplicateOrder)
		default:
			claimed = true
		}
	}
	fail := func(err error) (PlaceOrderResult, error) {
		if claimed {
			_ = s.dedup.Release(ctx, "order:"+fingerprint)
		}
		releaseIdem()
		return PlaceOrderResult{}, err
	}

	items, err := s.priceLines(ctx, restaurantID, lines)
	if err != nil {
		return fail(err)
	}
	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotalCents
	}

	now := s.nowFn()
	order := domain.Order{
		ID:            uuid.New(),
		RestaurantID:  restaurantID,
		TableID:       tableID,
		Status:        domain.OrderPending,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		Notes:         strings.TrimSpace(req.Notes),
		Items:         items,
		SubtotalCents: subtotal,
		TotalCents:    subtotal,
		Fingerprint:   fingerprint,
		PlacedAt:      now,
		UpdatedAt:     now,
	}
	event := s.newOutboxEvent(eventTypeOrderPlaced, restaurantID.String(), map[string]any{
		"order_id":      order.ID.String(),
		"restaurant_id": restaurantID.String(),
		"table_id":      tableID.String(),
		"table_label":   table.Label,
		"status":        order.Status,
		"total_cents":   order.TotalCents,
		"currency":      restaurant.Currency,
		"item_count":    len(items),
	}, now)

	stored, err := s.orders.CreateWithOutboxTx(ctx, order, event)
	if err != nil {
		return fail(err)
	}
	view := toOrderView(stored)

	if idemKey != "" {
		body, _ := json.Marshal(view)
		if err := s.idempotency.Complete(ctx, idemKey, 201, body, s.nowFn()); err != nil {
			slog.Default().WarnContext(ctx, "failed to complete idempotency record",
				"module", "application",
				"layer", "application",
				"operation", "place_order",
				"outcome", "degraded",
				"error", err,
			)
		}
	}
	s.metrics.OrderPlaced(restaurantID.String())
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "order.placed", "order", stored.ID.String(), map[string]any{
		"order_number": stored.OrderNumber,
		"table_id":     tableID.String(),
		"total_cents":  stored.TotalCents,
	})
	return PlaceOrderResult{Order: view}, nil
}

// reserveIdempotency returns the stored order when key was already completed with the same body.
func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) (*OrderView, error) {
	rec, err := s.idempotency.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if rec != nil && rec.ExpiresAt.After(s.nowFn()) {
		if rec.RequestHash != requestHash {
			return nil, fmt.Errorf("%w: key reused with a different request", domain.ErrIdempotencyConflict)
		}
		if rec.Status != ports.IdempotencyCompleted {
			return nil, fmt.Errorf("%w: request still in progress", domain.ErrIdempotencyConflict)
		}
		var view OrderView
		if err := json.Unmarshal(rec.ResponseBody, &view); err != nil {
			return nil, fmt.Errorf("decode idempotent response: %w", err)
		}
		return &view, nil
	}
	if err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIdempotencyConflict, err)
	}
	return nil, nil
}

func parseOrderLines(in []OrderLineRequest) ([]domain.OrderLineInput, error) {
	lines := make([]domain.OrderLineInput, 0, len(in))
	for i, l := range in {
		itemID, err := parseUUIDField(fmt.Sprintf("items[%d].menu_item_id", i), l.MenuItemID)
		if err != nil {
			return nil, err
		}
		opts := make([]uuid.UUID, 0, len(l.OptionIDs))
		for j, raw := range l.OptionIDs {
			id, err := parseUUIDField(fmt.Sprintf("items[%d].option_ids[%d]", i, j), raw)
			if err != nil {
				return nil, err
			}
			opts = append(opts, id)
		}
		lines = append(lines, domain.OrderLineInput{
			MenuItemID: itemID,
			Quantity:   l.Quantity,
			OptionIDs:  opts,
			Notes:      strings.TrimSpace(l.Notes),
		})
	}
	return lines, nil
}

// priceLines snapshots names and prices from the menu and validates modifier choices.
// Client-supplied prices are never consulted.
func (s *Service) priceLines(ctx context.Context, restaurantID uuid.UUID, lines []domain.OrderLineInput) ([]domain.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := map[uuid.UUID]struct{}{}
	for _, l := range lines {
		if _, ok := seen[l.MenuItemID]; ok {
			continue
		}
		seen[l.MenuItemID] = struct{}{}
		ids = append(ids, l.MenuItemID)
	}
	menuItems, err := s.items.GetMany(ctx, restaurantID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.MenuItem, len(menuItems))
	for _, m := range menuItems {
		byID[m.ID] = m
	}
	categories, err := s.categories.List(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	// items under an inactive category are hidden from the menu and must not be orderable by id
	activeCategory := make(map[uuid.UUID]bool, len(categories))
	for _, c := range categories {
		activeCategory[c.ID] = c.IsActive
	}
	groups, err := s.resolveGroupsForItems(ctx, restaurantID, menuItems)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OrderItem, 0, len(lines))
	for i, l := range lines {
		item, ok := byID[l.MenuItemID]
		if !ok {
			return nil, fieldError(fmt.Sprintf("items[%d].menu_item_id", i), "is not on this menu")
		}
		if !item.Orderable() || !activeCategory[item.CategoryID] {
			return nil, fieldError(fmt.Sprintf("items[%d].menu_item_id", i), "is currently unavailable")
		}
		modifiers, err := selectModifiers(groups[item.ID], l.OptionIDs)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		out = append(out, domain.OrderItem{
			ID:             uuid.New(),
			MenuItemID:     item.ID,
			Name:           item.Name,
			UnitPriceCents: item.PriceCents,
			Quantity:       l.Quantity,
			Modifiers:      modifiers,
			LineTotalCents: domain.PriceLine(item.PriceCents, modifiers, l.Quantity),
			Notes:          l.Notes,
		})
	}
	return out, nil
}

// selectModifiers distributes chosen option ids across the item's groups. A group with
// no explicit choice falls back to its defaults before validation.
func selectModifiers(groups []domain.ResolvedModifierGroup, optionIDs []uuid.UUID) ([]domain.OrderItemModifier, error) {
	owner := map[uuid.UUID]int{}
	for gi, g := range groups {
		for _, o := range g.Options {
			owner[o.ID] = gi
		}
	}
	chosen := make([][]uuid.UUID, len(groups))
	for _, id := range optionIDs {
		gi, ok := owner[id]
		if !ok {
			return nil, fmt.Errorf("%w: option %s is not available for this item", domain.ErrInvalidInput, id)
		}
		chosen[gi] = append(chosen[gi], id)
	}
	out := make([]domain.OrderItemModifier, 0, len(optionIDs))
	for gi, g := range groups {
		ids := chosen[gi]
		if len(ids) == 0 {
			ids = g.DefaultSelection()
		}
		picked, err := domain.ValidateSelection(g, ids)
		if err != nil {
			return nil, err
		}
		for _, o := range picked {
			out = append(out, domain.OrderItemModifier{
				TemplateID:      g.TemplateID,
				GroupName:       g.Name,
				OptionID:        o.ID,
				OptionName:      o.Name,
				PriceDeltaCents: o.PriceDeltaCents,
			})
		}
	}
	return out, nil
}

func (s *Service) ListOrders(ctx context.Context, p Principal, restaurantID uuid.UUID, q OrderQuery) ([]OrderView, error) {
	if err := authorize(p, domain.PermOrderRead, restaurantID); err != nil {
		return nil, err
	}
	limit, offset := s.page(q.Limit, q.Offset)
	filter := ports.OrderFilter{
		Page:            ports.Page{Limit: limit, Offset: offset},
		RestaurantID:    restaurantID,
		ActiveOnly:      q.ActiveOnly,
		IncludeArchived: q.IncludeArchived,
	}
	for _, raw := range q.Statuses {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			st, ok := domain.ParseOrderStatus(part)
			if !ok {
				return nil, fieldError("status", "is not a known order status")
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	if strings.TrimSpace(q.TableID) != "" {
		id, err := parseUUIDField("table_id", q.TableID)
		if err != nil {
			return nil, err
		}
		filter.TableID = &id
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toOrderViews(orders), nil
}

func (s *Service) GetOrder(ctx context.Context, p Principal, restaurantID, orderID uuid.UUID) (OrderView, error) {
	if err := authorize(p, domain.PermOrderRead, restaurantID); err != nil {
		return OrderView{}, err
	}
	o, err := s.orders.GetByID(ctx, restaurantID, orderID)
	if err != nil {
		return OrderView{}, err
	}
	return toOrderView(o), nil
}

// GetCustomerOrder returns an order only when it belongs to the caller's table.
func (s *Service) GetCustomerOrder(ctx context.Context, p Principal, orderID uuid.UUID) (OrderView, error) {
	restaurantID, tableID, err := customerScope(p)
	if err != nil {
		return OrderView{}, err
	}
	o, err := s.orders.GetByID(ctx, restaurantID, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if o.TableID != tableID {
		return OrderView{}, domain.ErrNotFound
	}
	return toOrderView(o), nil
}

// ListTableOrders lists the orders placed at the caller's table during the current session.
func (s *Service) ListTableOrders(ctx context.Context, p Principal) ([]OrderView, error) {
	restaurantID, tableID, err := customerScope(p)
	if err != nil {
		return nil, err
	}
	filter := ports.OrderFilter{
		Page:         ports.Page{Limit: s.cfg.DefaultPageSize},
		RestaurantID: restaurantID,
		TableID:      &tableID,
	}
	if !p.IssuedAt.IsZero() {
		since := p.IssuedAt
		filter.PlacedAfter = &since
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toOrderViews(orders), nil
}

// TransitionOrder moves an order along its lifecycle, gated by the caller's role.
func (s *Service) TransitionOrder(ctx context.Context, p Principal, restaurantID, orderID uuid.UUID, req TransitionOrderRequest) (OrderView, error) {
	if err := authorize(p, domain.PermOrderUpdate, restaurantID); err != nil {
		return OrderView{}, err
	}
	if err := validateRequest(req); err != nil {
		return OrderView{}, err
	}
	to, ok := domain.ParseOrderStatus(req.Status)
	if !ok {
		return OrderView{}, fieldError("status", "is not a known order status")
	}
	order, err := s.orders.GetByID(ctx, restaurantID, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if order.ArchivedAt != nil {
		return OrderView{}, fmt.Errorf("%w: order is archived", domain.ErrInvalidTransition)
	}
	from := order.Status
	if !domain.CanTransition(from, to) {
		return OrderView{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	if !domain.RoleCanSetStatus(p.Role, from, to) {
		return OrderView{}, fmt.Errorf("%w: %s cannot move orders to %s", domain.ErrForbidden, p.Role, to)
	}

	now := s.nowFn()
	event := s.newOutboxEvent(eventTypeOrderStatusChanged, restaurantID.String(), map[string]any{
		"order_id":      order.ID.String(),
		"restaurant_id": restaurantID.String(),
		"table_id":      order.TableID.String(),
		"order_number":  order.OrderNumber,
		"from_status":   from,
		"to_status":     to,
		"changed_by":    p.SubjectID.String(),
		"reason":        req.Reason,
	}, now)
	if err := s.orders.UpdateStatusWithOutboxTx(ctx, restaurantID, orderID, from, to, now, event); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return OrderView{}, fmt.Errorf("%w: order changed concurrently", domain.ErrInvalidTransition)
		}
		return OrderView{}, err
	}
	order.Status = to
	order.UpdatedAt = now
	s.metrics.OrderTransitioned(string(to))
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "order.status_changed", "order", orderID.String(), map[string]any{
		"from": from, "to": to, "reason": req.Reason,
	})
	return toOrderView(order), nil
}

// ArchiveOrder hides a finished order from the live board. Only terminal orders qualify.
func (s *Service) ArchiveOrder(ctx context.Context, p Principal, restaurantID, orderID uuid.UUID) (OrderView, error) {
	if err := authorize(p, domain.PermOrderArchive, restaurantID); err != nil {
		return OrderView{}, err
	}
	order, err := s.orders.GetByID(ctx, restaurantID, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if !order.Status.CanArchive() {
		return OrderView{}, fmt.Errorf("%w: status is %s", domain.ErrOrderNotArchivable, order.Status)
	}
	if order.ArchivedAt != nil {
		return toOrderView(order), nil
	}
	now := s.nowFn()
	if err := s.orders.Archive(ctx, restaurantID, orderID, now); err != nil {
		return OrderView{}, err
	}
	order.ArchivedAt = &now
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "order.archived", "order", orderID.String(), map[string]any{"status": order.Status})
	return toOrderView(order), nil
}

// DeleteOrder permanently removes a cancelled order.
func (s *Service) DeleteOrder(ctx context.Context, p Principal, restaurantID, orderID uuid.UUID) error {
	if err := authorize(p, domain.PermOrderArchive, restaurantID); err != nil {
		return err
	}
	order, err := s.orders.GetByID(ctx, restaurantID, orderID)
	if err != nil {
		return err
	}
	if !order.Status.CanDelete() {
		return fmt.Errorf("%w: status is %s", domain.ErrOrderNotDeletable, order.Status)
	}
	if err := s.orders.Delete(ctx, restaurantID, orderID); err != nil {
		return err
	}
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "order.deleted", "order", orderID.String(), map[string]any{
		"order_number": order.OrderNumber,
		"total_cents":  order.TotalCents,
	})
	return nil
}

func toOrderViews(orders []domain.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	return out
}
