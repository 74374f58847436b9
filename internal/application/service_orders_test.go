package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application/apptest"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
)

func optionID(t *testing.T, tpl application.ModifierTemplateView, name string) string {
	t.Helper()
	for _, o := range tpl.Options {
		if o.Name == name {
			return o.ID.String()
		}
	}
	t.Fatalf("option %q not found in %s", name, tpl.Name)
	return ""
}

func basket(f apptest.Fixture, large string) application.PlaceOrderRequest {
	return application.PlaceOrderRequest{
		CustomerName: "Ada",
		Items: []application.OrderLineRequest{
			{MenuItemID: f.Burger.ID.String(), Quantity: 2},
			{MenuItemID: f.Drink.ID.String(), Quantity: 1, OptionIDs: []string{large}},
			{MenuItemID: f.Drink.ID.String(), Quantity: 1},
		},
	}
}

func TestPlaceOrderPricesServerSide(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	res, err := h.Service.PlaceOrder(ctx, f.Customer, basket(f, optionID(t, f.Size, "Large")), "")
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	o := res.Order
	if res.Replayed {
		t.Fatalf("first placement must not be a replay")
	}
	if o.Status != domain.OrderPending || o.OrderNumber != 1 {
		t.Fatalf("unexpected order header: status=%s number=%d", o.Status, o.OrderNumber)
	}
	// 2x1250 + (400+150) + 400 with the default Small size
	if o.TotalCents != 3450 || o.SubtotalCents != 3450 {
		t.Fatalf("expected total 3450, got %d", o.TotalCents)
	}
	if len(o.Items) != 3 || len(o.Items[2].Modifiers) != 1 || o.Items[2].Modifiers[0].OptionName != "Small" {
		t.Fatalf("default modifier not applied: %+v", o.Items)
	}
	if len(o.NextStatuses) != 2 {
		t.Fatalf("pending order should expose two next statuses, got %v", o.NextStatuses)
	}
	if types := h.Store.OutboxTypes(); len(types) != 1 || types[0] != "order.placed" {
		t.Fatalf("expected one order.placed event, got %v", types)
	}
	if h.Metrics.Placed != 1 {
		t.Fatalf("expected placed metric, got %d", h.Metrics.Placed)
	}

	mine, err := h.Service.ListTableOrders(ctx, f.Customer)
	if err != nil {
		t.Fatalf("list table orders failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != o.ID {
		t.Fatalf("customer should see own order, got %d", len(mine))
	}
}

func TestPlaceOrderSuppressesDuplicateBasket(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	req := basket(f, optionID(t, f.Size, "Large"))

	if _, err := h.Service.PlaceOrder(ctx, f.Customer, req, ""); err != nil {
		t.Fatalf("first order failed: %v", err)
	}
	if _, err := h.Service.PlaceOrder(ctx, f.Customer, req, ""); !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Fatalf("expected duplicate order, got %v", err)
	}
	if h.Metrics.Suppressed != 1 {
		t.Fatalf("expected suppressed metric, got %d", h.Metrics.Suppressed)
	}

	// a different basket from the same table goes through
	other := application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: f.Burger.ID.String(), Quantity: 1}}}
	if _, err := h.Service.PlaceOrder(ctx, f.Customer, other, ""); err != nil {
		t.Fatalf("different basket rejected: %v", err)
	}

	h.Dedup.Expire()
	res, err := h.Service.PlaceOrder(ctx, f.Customer, req, "")
	if err != nil {
		t.Fatalf("order after window failed: %v", err)
	}
	if res.Order.OrderNumber != 3 {
		t.Fatalf("expected order number 3, got %d", res.Order.OrderNumber)
	}
}

func TestPlaceOrderIdempotencyKeyReplays(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	req := basket(f, optionID(t, f.Size, "Large"))

	first, err := h.Service.PlaceOrder(ctx, f.Customer, req, "idem-1")
	if err != nil {
		t.Fatalf("first order failed: %v", err)
	}
	second, err := h.Service.PlaceOrder(ctx, f.Customer, req, "idem-1")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed || second.Order.ID != first.Order.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Order.ID, second)
	}
	changed := req
	changed.Notes = "no onions"
	if _, err := h.Service.PlaceOrder(ctx, f.Customer, changed, "idem-1"); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
	if n := len(h.Store.OutboxTypes()); n != 1 {
		t.Fatalf("replay must not enqueue events, got %d", n)
	}
}

func TestPlaceOrderFailsOpenWhenDedupUnavailable(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	h.Dedup.Err = errors.New("redis down")
	req := basket(f, optionID(t, f.Size, "Large"))

	for i := 0; i < 2; i++ {
		if _, err := h.Service.PlaceOrder(ctx, f.Customer, req, ""); err != nil {
			t.Fatalf("attempt %d should succeed without dedup: %v", i, err)
		}
	}
}

func TestPlaceOrderRejectsInvalidBaskets(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	small, large := optionID(t, f.Size, "Small"), optionID(t, f.Size, "Large")

	cases := []struct {
		name string
		req  application.PlaceOrderRequest
		want error
	}{
		{
			name: "empty basket",
			req:  application.PlaceOrderRequest{},
			want: domain.ErrInvalidInput,
		},
		{
			name: "unknown item",
			req:  application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: uuid.NewString(), Quantity: 1}}},
			want: domain.ErrInvalidInput,
		},
		{
			name: "quantity too high",
			req:  application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: f.Burger.ID.String(), Quantity: 51}}},
			want: domain.ErrInvalidInput,
		},
		{
			name: "two options in single group",
			req: application.PlaceOrderRequest{Items: []application.OrderLineRequest{
				{MenuItemID: f.Drink.ID.String(), Quantity: 1, OptionIDs: []string{small, large}},
			}},
			want: domain.ErrInvalidInput,
		},
		{
			name: "option from another item",
			req: application.PlaceOrderRequest{Items: []application.OrderLineRequest{
				{MenuItemID: f.Burger.ID.String(), Quantity: 1, OptionIDs: []string{large}},
			}},
			want: domain.ErrInvalidInput,
		},
	}
	for _, tc := range cases {
		if _, err := h.Service.PlaceOrder(ctx, f.Customer, tc.req, ""); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if n := len(h.Store.OutboxTypes()); n != 0 {
		t.Fatalf("rejected baskets must not enqueue events, got %d", n)
	}

	off := false
	if _, err := h.Service.SetMenuItemAvailability(ctx, f.Owner, f.Restaurant.ID, f.Burger.ID, application.SetAvailabilityRequest{IsAvailable: &off}); err != nil {
		t.Fatalf("set availability failed: %v", err)
	}
	req := application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: f.Burger.ID.String(), Quantity: 1}}}
	if _, err := h.Service.PlaceOrder(ctx, f.Customer, req, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unavailable item must be rejected, got %v", err)
	}
	if _, err := h.Service.PlaceOrder(ctx, f.Owner, req, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("staff cannot place customer orders, got %v", err)
	}
}

func TestPlaceOrderRejectsItemsInInactiveCategory(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	inactive := false
	if _, err := h.Service.UpdateCategory(ctx, f.Owner, f.Restaurant.ID, f.Category.ID, application.UpdateCategoryRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate category failed: %v", err)
	}
	menu, err := h.Service.GetPublicMenu(ctx, f.Customer)
	if err != nil {
		t.Fatalf("menu failed: %v", err)
	}
	for _, section := range menu.Categories {
		if section.ID == f.Category.ID {
			t.Fatalf("inactive category still on the menu")
		}
	}

	req := application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: f.Burger.ID.String(), Quantity: 1}}}
	_, err = h.Service.PlaceOrder(ctx, f.Customer, req, "")
	var verr *application.ValidationError
	if !errors.As(err, &verr) || verr.Fields["items[0].menu_item_id"] != "is currently unavailable" {
		t.Fatalf("expected unavailable item error, got %v", err)
	}
	if n := len(h.Store.OutboxTypes()); n != 0 {
		t.Fatalf("rejected order must not enqueue events, got %d", n)
	}
}

func TestPlaceOrderRejectedWhenOrderingDisabled(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	closed := false
	if _, err := h.Service.UpdateRestaurant(ctx, f.Owner, f.Restaurant.ID, application.UpdateRestaurantRequest{OrderingEnabled: &closed}); err != nil {
		t.Fatalf("disable ordering failed: %v", err)
	}
	req := application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: f.Burger.ID.String(), Quantity: 1}}}
	if _, err := h.Service.PlaceOrder(ctx, f.Customer, req, ""); !errors.Is(err, domain.ErrOrderingDisabled) {
		t.Fatalf("expected ordering disabled, got %v", err)
	}
}

func TestOrderLifecycleRoleGates(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	waiter, err := h.AddStaff(ctx, f.Restaurant.ID, domain.RoleWaiter, "waiter@bistro.test")
	if err != nil {
		t.Fatalf("add waiter failed: %v", err)
	}
	kitchen, err := h.AddStaff(ctx, f.Restaurant.ID, domain.RoleKitchen, "kitchen@bistro.test")
	if err != nil {
		t.Fatalf("add kitchen failed: %v", err)
	}
	res, err := h.Service.PlaceOrder(ctx, f.Customer, basket(f, optionID(t, f.Size, "Large")), "")
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	id := res.Order.ID

	steps := []struct {
		who  application.Principal
		to   domain.OrderStatus
		want error
	}{
		{kitchen, domain.OrderConfirmed, domain.ErrForbidden},
		{waiter, domain.OrderReady, domain.ErrInvalidTransition},
		{waiter, domain.OrderConfirmed, nil},
		{waiter, domain.OrderCancelled, domain.ErrForbidden},
		{kitchen, domain.OrderPreparing, nil},
		{kitchen, domain.OrderReady, nil},
		{kitchen, domain.OrderServed, domain.ErrForbidden},
		{waiter, domain.OrderServed, nil},
		{waiter, domain.OrderCompleted, nil},
		{f.Owner, domain.OrderCancelled, domain.ErrInvalidTransition},
	}
	for i, st := range steps {
		_, err := h.Service.TransitionOrder(ctx, st.who, f.Restaurant.ID, id, application.TransitionOrderRequest{Status: string(st.to)})
		if st.want == nil && err != nil {
			t.Fatalf("step %d (%s -> %s) failed: %v", i, st.who.Role, st.to, err)
		}
		if st.want != nil && !errors.Is(err, st.want) {
			t.Fatalf("step %d (%s -> %s): expected %v, got %v", i, st.who.Role, st.to, st.want, err)
		}
	}

	got, err := h.Service.GetOrder(ctx, waiter, f.Restaurant.ID, id)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if got.Status != domain.OrderCompleted || len(got.NextStatuses) != 0 {
		t.Fatalf("expected completed terminal order, got %s %v", got.Status, got.NextStatuses)
	}
	if h.Metrics.Transitions["COMPLETED"] != 1 {
		t.Fatalf("expected completed transition metric")
	}
	if n := len(h.Store.OutboxTypes()); n != 6 {
		t.Fatalf("expected placed plus five status events, got %d", n)
	}
}

func TestArchiveAndDeleteGuards(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	place := func(qty int) uuid.UUID {
		t.Helper()
		req := application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: f.Burger.ID.String(), Quantity: qty}}}
		res, err := h.Service.PlaceOrder(ctx, f.Customer, req, "")
		if err != nil {
			t.Fatalf("place order failed: %v", err)
		}
		return res.Order.ID
	}
	pending, cancelled := place(1), place(2)

	if _, err := h.Service.ArchiveOrder(ctx, f.Owner, f.Restaurant.ID, pending); !errors.Is(err, domain.ErrOrderNotArchivable) {
		t.Fatalf("expected not archivable, got %v", err)
	}
	if err := h.Service.DeleteOrder(ctx, f.Owner, f.Restaurant.ID, pending); !errors.Is(err, domain.ErrOrderNotDeletable) {
		t.Fatalf("expected not deletable, got %v", err)
	}
	if _, err := h.Service.TransitionOrder(ctx, f.Owner, f.Restaurant.ID, cancelled, application.TransitionOrderRequest{Status: "CANCELLED", Reason: "guest left"}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	archived, err := h.Service.ArchiveOrder(ctx, f.Owner, f.Restaurant.ID, cancelled)
	if err != nil {
		t.Fatalf("archive cancelled failed: %v", err)
	}
	if archived.ArchivedAt == nil {
		t.Fatalf("archived order should carry archived_at")
	}
	active, err := h.Service.ListOrders(ctx, f.Owner, f.Restaurant.ID, application.OrderQuery{})
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != pending {
		t.Fatalf("archived order should be hidden by default, got %d orders", len(active))
	}
	if _, err := h.Service.TransitionOrder(ctx, f.Owner, f.Restaurant.ID, cancelled, application.TransitionOrderRequest{Status: "PENDING"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("archived orders cannot move, got %v", err)
	}
	if err := h.Service.DeleteOrder(ctx, f.Owner, f.Restaurant.ID, cancelled); err != nil {
		t.Fatalf("delete cancelled failed: %v", err)
	}
	if _, err := h.Service.GetOrder(ctx, f.Owner, f.Restaurant.ID, cancelled); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted order should be gone, got %v", err)
	}
}

func TestListOrdersFilters(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	for qty := 1; qty <= 3; qty++ {
		req := application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: f.Burger.ID.String(), Quantity: qty}}}
		res, err := h.Service.PlaceOrder(ctx, f.Customer, req, "")
		if err != nil {
			t.Fatalf("place order failed: %v", err)
		}
		if qty == 3 {
			if _, err := h.Service.TransitionOrder(ctx, f.Owner, f.Restaurant.ID, res.Order.ID, application.TransitionOrderRequest{Status: "CONFIRMED"}); err != nil {
				t.Fatalf("confirm failed: %v", err)
			}
		}
	}

	confirmed, err := h.Service.ListOrders(ctx, f.Owner, f.Restaurant.ID, application.OrderQuery{Statuses: []string{"CONFIRMED"}})
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if len(confirmed) != 1 || confirmed[0].OrderNumber != 3 {
		t.Fatalf("expected only order 3 confirmed, got %d", len(confirmed))
	}
	both, err := h.Service.ListOrders(ctx, f.Owner, f.Restaurant.ID, application.OrderQuery{Statuses: []string{"pending,confirmed"}, TableID: f.Table.ID.String()})
	if err != nil {
		t.Fatalf("list by statuses failed: %v", err)
	}
	if len(both) != 3 || both[0].OrderNumber != 3 {
		t.Fatalf("expected three orders newest first, got %d", len(both))
	}
	if _, err := h.Service.ListOrders(ctx, f.Owner, f.Restaurant.ID, application.OrderQuery{Statuses: []string{"EATEN"}}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown status must be rejected, got %v", err)
	}
}

func TestCustomerCannotReadOtherTablesOrders(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	res, err := h.Service.PlaceOrder(ctx, f.Customer, basket(f, optionID(t, f.Size, "Large")), "")
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if _, err := h.Service.GetCustomerOrder(ctx, f.Customer, res.Order.ID); err != nil {
		t.Fatalf("own order should be readable: %v", err)
	}

	t2, err := h.Service.CreateTable(ctx, f.Owner, f.Restaurant.ID, application.CreateTableRequest{Label: "T2"})
	if err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	neighbour, err := h.CustomerFor(ctx, t2.Code)
	if err != nil {
		t.Fatalf("neighbour session failed: %v", err)
	}
	if _, err := h.Service.GetCustomerOrder(ctx, neighbour, res.Order.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for other table, got %v", err)
	}

	other, err := h.Seed(ctx, "elsewhere")
	if err != nil {
		t.Fatalf("seed second restaurant failed: %v", err)
	}
	if _, err := h.Service.GetCustomerOrder(ctx, other.Customer, res.Order.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found across restaurants, got %v", err)
	}
	if _, err := h.Service.GetOrder(ctx, other.Owner, f.Restaurant.ID, res.Order.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for other owner, got %v", err)
	}
}

func TestArchiveStaleOrders(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	req := application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: f.Burger.ID.String(), Quantity: 1}}}
	res, err := h.Service.PlaceOrder(ctx, f.Customer, req, "idem-stale")
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if _, err := h.Service.TransitionOrder(ctx, f.Owner, f.Restaurant.ID, res.Order.ID, application.TransitionOrderRequest{Status: "CANCELLED"}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if n, err := h.Service.ArchiveStaleOrders(ctx, 24*time.Hour, 0); err != nil || n != 0 {
		t.Fatalf("fresh orders must stay, got %d %v", n, err)
	}
	h.Advance(25 * time.Hour)
	if n, err := h.Service.ArchiveStaleOrders(ctx, 24*time.Hour, 0); err != nil || n != 1 {
		t.Fatalf("expected one archived order, got %d %v", n, err)
	}
	if n, err := h.Service.PurgeExpiredIdempotency(ctx); err != nil || n != 1 {
		t.Fatalf("expected one purged idempotency key, got %d %v", n, err)
	}
}
