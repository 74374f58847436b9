package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
)

func TestPublicMenuResolvesModifiersAndCaches(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	menu, err := h.Service.GetPublicMenu(ctx, f.Customer)
	if err != nil {
		t.Fatalf("get menu failed: %v", err)
	}
	if len(menu.Categories) != 1 || len(menu.Categories[0].Items) != 2 {
		t.Fatalf("unexpected menu shape: %+v", menu.Categories)
	}
	drink := menu.Categories[0].Items[1]
	if drink.Name != "Lemonade" || len(drink.ModifierGroups) != 1 {
		t.Fatalf("expected lemonade with one group, got %+v", drink)
	}
	size := drink.ModifierGroups[0]
	if size.MaxSelect != 1 || size.MinSelect != 1 || len(size.Options) != 2 || !size.Options[0].IsDefault {
		t.Fatalf("unexpected resolved size group: %+v", size)
	}
	if !h.MenuCache.Cached(f.Restaurant.ID) {
		t.Fatalf("menu should be cached after first read")
	}
	if _, err := h.Service.GetPublicMenu(ctx, f.Customer); err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if h.MenuCache.Sets != 1 {
		t.Fatalf("second read should hit the cache, sets=%d", h.MenuCache.Sets)
	}

	if _, err := h.Service.CreateMenuItem(ctx, f.Owner, f.Restaurant.ID, application.CreateMenuItemRequest{
		CategoryID: f.Category.ID.String(),
		Name:       "Fries",
		PriceCents: 350,
		Tags:       []string{" Vegan ", "vegan", "GF"},
	}); err != nil {
		t.Fatalf("create item failed: %v", err)
	}
	if h.MenuCache.Cached(f.Restaurant.ID) {
		t.Fatalf("menu mutation must invalidate the cache")
	}
	menu, err = h.Service.GetMenu(ctx, f.Owner, f.Restaurant.ID)
	if err != nil {
		t.Fatalf("staff menu failed: %v", err)
	}
	var tags []string
	for _, it := range menu.Categories[0].Items {
		if it.Name == "Fries" {
			tags = it.Tags
		}
	}
	if strings.Join(tags, ",") != "vegan,gf" {
		t.Fatalf("expected normalized tags on fries, got %v", tags)
	}
}

func TestMenuHidesUnavailableAndOverriddenOptions(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	large := f.Size.Options[1].ID.String()
	price := int64(200)
	name := "Cup size"
	group, err := h.Service.AttachModifier(ctx, f.Owner, f.Restaurant.ID, f.Drink.ID, f.Size.ID, application.AttachModifierRequest{
		NameOverride: &name,
		OptionOverrides: []application.OptionOverrideInput{
			{OptionID: large, PriceDeltaCents: &price},
		},
	})
	if err != nil {
		t.Fatalf("re-attach with overrides failed: %v", err)
	}
	if group.Name != "Cup size" || group.Options[1].PriceDeltaCents != 200 {
		t.Fatalf("overrides not applied: %+v", group)
	}

	req := application.PlaceOrderRequest{Items: []application.OrderLineRequest{
		{MenuItemID: f.Drink.ID.String(), Quantity: 2, OptionIDs: []string{large}},
	}}
	res, err := h.Service.PlaceOrder(ctx, f.Customer, req, "")
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if res.Order.TotalCents != 1200 {
		t.Fatalf("expected (400+200)*2, got %d", res.Order.TotalCents)
	}

	_, err = h.Service.AttachModifier(ctx, f.Owner, f.Restaurant.ID, f.Drink.ID, f.Size.ID, application.AttachModifierRequest{
		OptionOverrides: []application.OptionOverrideInput{{OptionID: f.Burger.ID.String()}},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("override for foreign option must be rejected, got %v", err)
	}

	off := false
	if _, err := h.Service.SetMenuItemAvailability(ctx, f.Owner, f.Restaurant.ID, f.Drink.ID, application.SetAvailabilityRequest{IsAvailable: &off}); err != nil {
		t.Fatalf("set availability failed: %v", err)
	}
	menu, err := h.Service.GetPublicMenu(ctx, f.Customer)
	if err != nil {
		t.Fatalf("get menu failed: %v", err)
	}
	if len(menu.Categories[0].Items) != 1 || menu.Categories[0].Items[0].Name != "Burger" {
		t.Fatalf("unavailable item should be hidden: %+v", menu.Categories[0].Items)
	}
}

func TestModifierTemplateGuards(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	if err := h.Service.DeleteModifierTemplate(ctx, f.Owner, f.Restaurant.ID, f.Size.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("attached template must not be deleted, got %v", err)
	}
	_, err := h.Service.CreateModifierTemplate(ctx, f.Owner, f.Restaurant.ID, application.ModifierTemplateRequest{
		Name: "Dupes",
		Options: []application.ModifierOptionInput{
			{Name: "Ice"},
			{Name: "ice"},
		},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("duplicate option names must be rejected, got %v", err)
	}

	updated, err := h.Service.UpdateModifierTemplate(ctx, f.Owner, f.Restaurant.ID, f.Size.ID, application.ModifierTemplateRequest{
		Name:          "Size",
		SelectionType: "SINGLE",
		Required:      true,
		Options: []application.ModifierOptionInput{
			{ID: f.Size.Options[0].ID.String(), Name: "Small", IsDefault: true},
			{ID: f.Size.Options[1].ID.String(), Name: "Large", PriceDeltaCents: 175, SortOrder: 1},
			{Name: "Huge", PriceDeltaCents: 300, SortOrder: 2},
		},
	})
	if err != nil {
		t.Fatalf("update template failed: %v", err)
	}
	if len(updated.Options) != 3 || updated.Options[1].ID != f.Size.Options[1].ID {
		t.Fatalf("existing option ids must survive updates: %+v", updated.Options)
	}

	if err := h.Service.DetachModifier(ctx, f.Owner, f.Restaurant.ID, f.Drink.ID, f.Size.ID); err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	if err := h.Service.DeleteModifierTemplate(ctx, f.Owner, f.Restaurant.ID, f.Size.ID); err != nil {
		t.Fatalf("delete detached template failed: %v", err)
	}

	waiter, err := h.AddStaff(ctx, f.Restaurant.ID, domain.RoleWaiter, "waiter@bistro.test")
	if err != nil {
		t.Fatalf("add waiter failed: %v", err)
	}
	if _, err := h.Service.CreateModifierTemplate(ctx, waiter, f.Restaurant.ID, application.ModifierTemplateRequest{
		Name:    "Sauce",
		Options: []application.ModifierOptionInput{{Name: "Mayo"}},
	}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("waiter must not edit the menu, got %v", err)
	}
}

func TestDeleteMenuItemArchivesWhenReferenced(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	req := application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: f.Burger.ID.String(), Quantity: 1}}}
	if _, err := h.Service.PlaceOrder(ctx, f.Customer, req, ""); err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	archived, err := h.Service.DeleteMenuItem(ctx, f.Owner, f.Restaurant.ID, f.Burger.ID)
	if err != nil || !archived {
		t.Fatalf("referenced item should be archived, got archived=%v err=%v", archived, err)
	}
	if _, err := h.Service.GetMenuItem(ctx, f.Owner, f.Restaurant.ID, f.Burger.ID); err != nil {
		t.Fatalf("archived item should still resolve: %v", err)
	}
	archived, err = h.Service.DeleteMenuItem(ctx, f.Owner, f.Restaurant.ID, f.Drink.ID)
	if err != nil || archived {
		t.Fatalf("unreferenced item should be hard deleted, got archived=%v err=%v", archived, err)
	}
	if _, err := h.Service.GetMenuItem(ctx, f.Owner, f.Restaurant.ID, f.Drink.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted item should be gone, got %v", err)
	}
	if err := h.Service.DeleteCategory(ctx, f.Owner, f.Restaurant.ID, f.Category.ID); err != nil {
		t.Fatalf("category with only archived items should delete: %v", err)
	}
}

func TestCategoryGuardsAndReorder(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	if err := h.Service.DeleteCategory(ctx, f.Owner, f.Restaurant.ID, f.Category.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("category with items must not be deleted, got %v", err)
	}
	drinks, err := h.Service.CreateCategory(ctx, f.Owner, f.Restaurant.ID, application.CreateCategoryRequest{Name: "Drinks"})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	if drinks.SortOrder != 1 {
		t.Fatalf("new category should be appended, got sort order %d", drinks.SortOrder)
	}
	ordered, err := h.Service.ReorderCategories(ctx, f.Owner, f.Restaurant.ID, application.ReorderCategoriesRequest{
		CategoryIDs: []string{drinks.ID.String(), f.Category.ID.String()},
	})
	if err != nil {
		t.Fatalf("reorder failed: %v", err)
	}
	if len(ordered) != 2 || ordered[0].ID != drinks.ID {
		t.Fatalf("expected drinks first, got %+v", ordered)
	}
}

func TestTableCodesRetryOnCollision(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	h.Codes.Queue(f.Table.Code, f.Table.Code, "QRSTUV")
	table, err := h.Service.CreateTable(ctx, f.Owner, f.Restaurant.ID, application.CreateTableRequest{Label: "Patio"})
	if err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	if table.Code != "QRSTUV" || table.Seats != 2 {
		t.Fatalf("expected retried code and default seats, got %+v", table)
	}
	if table.OrderURL != "https://order.example.test/t/QRSTUV" {
		t.Fatalf("unexpected order url %q", table.OrderURL)
	}

	h.Codes.Always = f.Table.Code
	if _, err := h.Service.CreateTable(ctx, f.Owner, f.Restaurant.ID, application.CreateTableRequest{Label: "Bar"}); !errors.Is(err, domain.ErrCodeSpaceExhausted) {
		t.Fatalf("expected code space exhausted, got %v", err)
	}
}

func TestRegenerateTableCodeInvalidatesOldCode(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	view, err := h.Service.RegenerateTableCode(ctx, f.Owner, f.Restaurant.ID, f.Table.ID)
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if view.Code == f.Table.Code {
		t.Fatalf("code should change")
	}
	if _, err := h.Service.StartTableSession(ctx, f.Table.Code); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("old code must stop working, got %v", err)
	}
	if _, err := h.Service.StartTableSession(ctx, view.Code); err != nil {
		t.Fatalf("new code should work: %v", err)
	}

	png, err := h.Service.TableQRCode(ctx, f.Owner, f.Restaurant.ID, f.Table.ID)
	if err != nil {
		t.Fatalf("qr failed: %v", err)
	}
	if string(png) != "png:512:https://order.example.test/t/"+view.Code {
		t.Fatalf("unexpected qr payload %q", png)
	}

	rotated, err := h.Service.RotateTableCodes(ctx, f.Owner, f.Restaurant.ID)
	if err != nil || len(rotated) != 1 || rotated[0].Code == view.Code {
		t.Fatalf("rotate failed: %v %+v", err, rotated)
	}
}

func TestDeleteTableRefusedWithOpenOrders(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	req := application.PlaceOrderRequest{Items: []application.OrderLineRequest{{MenuItemID: f.Burger.ID.String(), Quantity: 1}}}
	res, err := h.Service.PlaceOrder(ctx, f.Customer, req, "")
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := h.Service.DeleteTable(ctx, f.Owner, f.Restaurant.ID, f.Table.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict with open order, got %v", err)
	}
	if _, err := h.Service.TransitionOrder(ctx, f.Owner, f.Restaurant.ID, res.Order.ID, application.TransitionOrderRequest{Status: "CANCELLED"}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := h.Service.DeleteTable(ctx, f.Owner, f.Restaurant.ID, f.Table.ID); err != nil {
		t.Fatalf("delete table failed: %v", err)
	}
	tables, err := h.Service.ListTables(ctx, f.Owner, f.Restaurant.ID, false)
	if err != nil || len(tables) != 0 {
		t.Fatalf("archived table should be hidden, got %d %v", len(tables), err)
	}
	if _, err := h.Service.StartTableSession(ctx, f.Table.Code); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("archived table code must not open sessions, got %v", err)
	}
}

func TestAuditTrailIsScopedToRestaurant(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	entries, err := h.Service.ListAudit(ctx, f.Owner, f.Restaurant.ID, application.AuditQuery{
		EntityType: "menu_item",
		EntityID:   f.Drink.ID.String(),
	})
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	// created, then modifier attached; newest first
	if len(entries) != 2 || entries[0].Action != "menu_item.modifier_attached" {
		t.Fatalf("unexpected drink audit trail: %+v", entries)
	}
	waiter, err := h.AddStaff(ctx, f.Restaurant.ID, domain.RoleWaiter, "waiter@bistro.test")
	if err != nil {
		t.Fatalf("add waiter failed: %v", err)
	}
	if _, err := h.Service.ListAudit(ctx, waiter, f.Restaurant.ID, application.AuditQuery{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("waiter must not read audit, got %v", err)
	}
}
