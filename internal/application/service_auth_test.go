package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application/apptest"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
)

func newSeeded(t *testing.T) (*apptest.Harness, apptest.Fixture) {
	t.Helper()
	h := apptest.NewHarness(application.Config{})
	f, err := h.Seed(context.Background(), "bistro")
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return h, f
}

func TestLoginIssuesTokenAndRecordsAudit(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	res, err := h.Service.Login(ctx, application.LoginRequest{
		Email:     "OWNER@bistro.test",
		Password:  apptest.OwnerPassword,
		IPAddress: "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token == "" || res.ExpiresIn != int64((12*time.Hour).Seconds()) {
		t.Fatalf("unexpected login response: %+v", res)
	}
	if res.Staff.Role != domain.RoleOwner || res.Staff.LastLoginAt == nil {
		t.Fatalf("unexpected staff view: %+v", res.Staff)
	}

	p, err := h.Service.ValidateToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("validate token failed: %v", err)
	}
	if p.SubjectID != f.Owner.SubjectID || p.RestaurantID == nil || *p.RestaurantID != f.Restaurant.ID {
		t.Fatalf("unexpected principal: %+v", p)
	}

	found := false
	for _, a := range h.Store.AuditActions() {
		if a == "auth.login" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected auth.login audit entry")
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	h, _ := newSeeded(t)
	ctx := context.Background()
	bad := application.LoginRequest{Email: "owner@bistro.test", Password: "wrong-pass-999"}

	for i := 1; i < 5; i++ {
		if _, err := h.Service.Login(ctx, bad); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}
	if _, err := h.Service.Login(ctx, bad); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected lockout on threshold, got %v", err)
	}
	good := application.LoginRequest{Email: "owner@bistro.test", Password: apptest.OwnerPassword}
	if _, err := h.Service.Login(ctx, good); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected lockout to hold for correct password, got %v", err)
	}

	h.Advance(16 * time.Minute)
	if _, err := h.Service.Login(ctx, good); err != nil {
		t.Fatalf("expected login after lockout window, got %v", err)
	}
}

func TestLoginRejectsUnknownEmailAndMalformedInput(t *testing.T) {
	t.Parallel()

	h, _ := newSeeded(t)
	ctx := context.Background()

	if _, err := h.Service.Login(ctx, application.LoginRequest{Email: "ghost@bistro.test", Password: "whatever-123"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
	_, err := h.Service.Login(ctx, application.LoginRequest{Email: "not-an-email", Password: "x"})
	var verr *application.ValidationError
	if !errors.As(err, &verr) || verr.Fields["email"] == "" {
		t.Fatalf("expected field error on email, got %v", err)
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("validation error should unwrap to ErrInvalidInput")
	}
}

func TestDeactivatedStaffTokenIsRejected(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	waiter, err := h.AddStaff(ctx, f.Restaurant.ID, domain.RoleWaiter, "waiter@bistro.test")
	if err != nil {
		t.Fatalf("add waiter failed: %v", err)
	}
	res, err := h.Service.Login(ctx, application.LoginRequest{Email: "waiter@bistro.test", Password: "staff-pass-123"})
	if err != nil {
		t.Fatalf("waiter login failed: %v", err)
	}
	if err := h.Service.DeactivateStaff(ctx, f.Owner, f.Restaurant.ID, waiter.SubjectID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := h.Service.ValidateToken(ctx, res.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for deactivated staff, got %v", err)
	}
	if _, err := h.Service.ValidateToken(ctx, "garbage"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown token, got %v", err)
	}
}

func TestStaffTokenRejectedAfterRestaurantArchived(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	res, err := h.Service.Login(ctx, application.LoginRequest{Email: "owner@bistro.test", Password: apptest.OwnerPassword})
	if err != nil {
		t.Fatalf("owner login failed: %v", err)
	}
	if err := h.Service.ArchiveRestaurant(ctx, application.SystemPrincipal(), f.Restaurant.ID); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if _, err := h.Service.ValidateToken(ctx, res.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for archived restaurant staff, got %v", err)
	}

	admin, err := h.Service.BootstrapSuperAdmin(ctx, "root@example.test", "Root", "platform-pass-1")
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	adminRes, err := h.Service.Login(ctx, application.LoginRequest{Email: "root@example.test", Password: "platform-pass-1"})
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if p, err := h.Service.ValidateToken(ctx, adminRes.Token); err != nil || p.SubjectID != admin.ID {
		t.Fatalf("platform admin token should stay valid, got %+v %v", p, err)
	}
}

func TestLoginDeniedWhenLockoutStoreUnavailable(t *testing.T) {
	t.Parallel()

	h, _ := newSeeded(t)
	ctx := context.Background()
	h.Lockouts.Err = errors.New("redis unavailable")

	good := application.LoginRequest{Email: "owner@bistro.test", Password: apptest.OwnerPassword}
	if _, err := h.Service.Login(ctx, good); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected login to be denied, got %v", err)
	}
	for _, a := range h.Store.AuditActions() {
		if a == "auth.login" {
			t.Fatalf("denied login must not be audited as a success")
		}
	}
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	err := h.Service.ChangePassword(ctx, f.Owner, application.ChangePasswordRequest{
		CurrentPassword: "not-the-password",
		NewPassword:     "brand-new-pass-42",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := h.Service.ChangePassword(ctx, f.Owner, application.ChangePasswordRequest{
		CurrentPassword: apptest.OwnerPassword,
		NewPassword:     "brand-new-pass-42",
	}); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, err := h.Service.Login(ctx, application.LoginRequest{Email: "owner@bistro.test", Password: "brand-new-pass-42"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestTableSessionRequiresOpenRestaurant(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	session, err := h.Service.StartTableSession(ctx, " "+f.Table.Code+" ")
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	if session.Table.ID != f.Table.ID || session.Restaurant.ID != f.Restaurant.ID {
		t.Fatalf("session bound to wrong scope: %+v", session)
	}
	if session.ExpiresIn != int64((4 * time.Hour).Seconds()) {
		t.Fatalf("unexpected customer session ttl %d", session.ExpiresIn)
	}

	closed := false
	if _, err := h.Service.UpdateRestaurant(ctx, f.Owner, f.Restaurant.ID, application.UpdateRestaurantRequest{OrderingEnabled: &closed}); err != nil {
		t.Fatalf("disable ordering failed: %v", err)
	}
	if _, err := h.Service.StartTableSession(ctx, f.Table.Code); !errors.Is(err, domain.ErrOrderingDisabled) {
		t.Fatalf("expected ordering disabled, got %v", err)
	}
	if _, err := h.Service.StartTableSession(ctx, "ZZZZ99"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown code, got %v", err)
	}
}

func TestStaffRoleHierarchy(t *testing.T) {
	t.Parallel()

	h, f := newSeeded(t)
	ctx := context.Background()

	manager, err := h.AddStaff(ctx, f.Restaurant.ID, domain.RoleManager, "manager@bistro.test")
	if err != nil {
		t.Fatalf("add manager failed: %v", err)
	}
	_, err = h.Service.CreateStaff(ctx, manager, f.Restaurant.ID, application.CreateStaffRequest{
		Email: "new-owner@bistro.test", Name: "Nope", Password: "long-enough-1", Role: "OWNER",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("manager must not create owners, got %v", err)
	}
	cook, err := h.Service.CreateStaff(ctx, manager, f.Restaurant.ID, application.CreateStaffRequest{
		Email: "cook@bistro.test", Name: "Cook", Password: "long-enough-1", Role: "KITCHEN",
	})
	if err != nil {
		t.Fatalf("manager should create kitchen staff: %v", err)
	}
	if err := h.Service.DeactivateStaff(ctx, manager, f.Restaurant.ID, f.Owner.SubjectID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("manager must not deactivate owner, got %v", err)
	}
	if err := h.Service.DeactivateStaff(ctx, manager, f.Restaurant.ID, manager.SubjectID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("self deactivation must be refused, got %v", err)
	}
	if err := h.Service.DeactivateStaff(ctx, manager, f.Restaurant.ID, cook.ID); err != nil {
		t.Fatalf("deactivate cook failed: %v", err)
	}
	if _, err := h.Service.CreateStaff(ctx, f.Owner, f.Restaurant.ID, application.CreateStaffRequest{
		Email: "cook@bistro.test", Name: "Again", Password: "long-enough-1", Role: "WAITER",
	}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestTenantIsolation(t *testing.T) {
	t.Parallel()

	h := apptest.NewHarness(application.Config{})
	ctx := context.Background()
	a, err := h.Seed(ctx, "alpha")
	if err != nil {
		t.Fatalf("seed alpha failed: %v", err)
	}
	b, err := h.Seed(ctx, "bravo")
	if err != nil {
		t.Fatalf("seed bravo failed: %v", err)
	}

	if _, err := h.Service.GetRestaurant(ctx, b.Owner, a.Restaurant.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden across tenants, got %v", err)
	}
	if _, err := h.Service.ListTables(ctx, b.Owner, a.Restaurant.ID, false); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden listing other tenant tables, got %v", err)
	}
	list, err := h.Service.ListRestaurants(ctx, b.Owner, application.ListQuery{})
	if err != nil {
		t.Fatalf("list restaurants failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != b.Restaurant.ID {
		t.Fatalf("owner should only see own restaurant, got %+v", list)
	}
	all, err := h.Service.ListRestaurants(ctx, application.SystemPrincipal(), application.ListQuery{})
	if err != nil {
		t.Fatalf("list as super admin failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("super admin should see both restaurants, got %d", len(all))
	}
	if _, err := h.Service.GetMenu(ctx, a.Customer, a.Restaurant.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("customer must not use staff endpoints, got %v", err)
	}
}
