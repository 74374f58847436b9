package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
)

func TestCreateRestaurantRequiresSuperAdminAndUniqueSlug(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	admin := application.SystemPrincipal()
	req := application.CreateRestaurantRequest{
		Name:     "Harbor Grill!",
		Timezone: "Europe/Lisbon",
		Currency: "eur",
	}

	if _, err := h.Service.CreateRestaurant(ctx, f.Owner, req); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected owner to be forbidden, got %v", err)
	}

	created, err := h.Service.CreateRestaurant(ctx, admin, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Slug != "harbor-grill" || created.Currency != "EUR" || !created.OrderingEnabled {
		t.Fatalf("unexpected restaurant: %+v", created)
	}

	dup := req
	dup.Slug = "bistro"
	if _, err := h.Service.CreateRestaurant(ctx, admin, dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected slug conflict, got %v", err)
	}

	bad := req
	bad.Slug = "harbor-two"
	bad.Timezone = "Mars/Olympus"
	if _, err := h.Service.CreateRestaurant(ctx, admin, bad); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid timezone, got %v", err)
	}

	bad = req
	bad.Slug = "harbor-three"
	bad.Currency = "EURO"
	_, err = h.Service.CreateRestaurant(ctx, admin, bad)
	var verr *application.ValidationError
	if !errors.As(err, &verr) || verr.Fields["currency"] == "" {
		t.Fatalf("expected currency field error, got %v", err)
	}
}

func TestArchiveRestaurantClosesOrdering(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()
	admin := application.SystemPrincipal()

	if err := h.Service.ArchiveRestaurant(ctx, f.Owner, f.Restaurant.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected owner archive to be forbidden, got %v", err)
	}
	if err := h.Service.ArchiveRestaurant(ctx, admin, f.Restaurant.ID); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if err := h.Service.ArchiveRestaurant(ctx, admin, f.Restaurant.ID); err != nil {
		t.Fatalf("second archive should be a no-op, got %v", err)
	}

	if _, err := h.Service.StartTableSession(ctx, f.Table.Code); !errors.Is(err, domain.ErrOrderingDisabled) {
		t.Fatalf("expected ordering disabled, got %v", err)
	}

	live, err := h.Service.ListRestaurants(ctx, admin, application.ListQuery{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("archived restaurant still listed: %+v", live)
	}
	all, err := h.Service.ListRestaurants(ctx, admin, application.ListQuery{IncludeArchived: true})
	if err != nil {
		t.Fatalf("list archived failed: %v", err)
	}
	if len(all) != 1 || all[0].ArchivedAt == nil {
		t.Fatalf("expected archived restaurant, got %+v", all)
	}
}

func TestBootstrapSuperAdmin(t *testing.T) {
	t.Parallel()

	h, _ := newSeeded(t)
	ctx := context.Background()

	admin, err := h.Service.BootstrapSuperAdmin(ctx, " Root@Example.test ", "Root", "platform-pass-1")
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if admin.Role != domain.RoleSuperAdmin || admin.RestaurantID != nil || admin.Email != "root@example.test" {
		t.Fatalf("unexpected admin: %+v", admin)
	}

	res, err := h.Service.Login(ctx, application.LoginRequest{Email: "root@example.test", Password: "platform-pass-1"})
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if res.Staff.ID != admin.ID {
		t.Fatalf("login returned a different account: %+v", res.Staff)
	}

	if _, err := h.Service.BootstrapSuperAdmin(ctx, "root@example.test", "Root", "platform-pass-1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate admin conflict, got %v", err)
	}
	if _, err := h.Service.BootstrapSuperAdmin(ctx, "other@example.test", "Other", "short"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected weak password rejection, got %v", err)
	}
}

func TestRotateTableCodesReissuesEveryTable(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	second, err := h.Service.CreateTable(ctx, f.Owner, f.Restaurant.ID, application.CreateTableRequest{Label: "T2", Seats: 2})
	if err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	previous := map[string]string{f.Table.ID.String(): f.Table.Code, second.ID.String(): second.Code}

	kitchen, err := h.AddStaff(ctx, f.Restaurant.ID, domain.RoleKitchen, "cook@bistro.test")
	if err != nil {
		t.Fatalf("add kitchen staff failed: %v", err)
	}
	if _, err := h.Service.RotateTableCodes(ctx, kitchen, f.Restaurant.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected kitchen to be forbidden, got %v", err)
	}

	rotated, err := h.Service.RotateTableCodes(ctx, application.SystemPrincipal(), f.Restaurant.ID)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if len(rotated) != 2 {
		t.Fatalf("expected two tables rotated, got %d", len(rotated))
	}
	for _, tv := range rotated {
		old := previous[tv.ID.String()]
		if old == "" || tv.Code == old {
			t.Fatalf("table %s kept code %q", tv.Label, tv.Code)
		}
		if _, err := h.Service.StartTableSession(ctx, old); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("old code %q still opens a session: %v", old, err)
		}
		if _, err := h.Service.StartTableSession(ctx, tv.Code); err != nil {
			t.Fatalf("new code %q rejected: %v", tv.Code, err)
		}
	}
}
