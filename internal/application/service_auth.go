package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

// Login verifies staff credentials under a per-email lockout and issues an access token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	if err := validateRequest(req); err != nil {
		return LoginResponse{}, err
	}
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, err
	}

	lockKey := "login:" + email
	lockState, err := s.lockouts.Get(ctx, lockKey)
	if err != nil {
		slog.Default().ErrorContext(ctx, "failed to read lockout state",
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "failure",
			"error_code", "LOCKOUT_STATE_UNAVAILABLE",
			"error", err,
		)
		return LoginResponse{}, domain.ErrAccountLocked
	}
	if lockState.LockedUntil != nil && lockState.LockedUntil.After(s.nowFn()) {
		slog.Default().WarnContext(ctx, "account lockout active",
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "blocked",
			"email", email,
			"locked_until", lockState.LockedUntil,
		)
		return LoginResponse{}, domain.ErrAccountLocked
	}

	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return LoginResponse{}, err
		}
		return LoginResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(staff.PasswordHash, req.Password); err != nil {
		now := s.nowFn()
		lockState, lockErr := s.lockouts.RecordFailure(ctx, lockKey, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
		if lockErr != nil {
			slog.Default().ErrorContext(ctx, "failed to update lockout state",
				"module", "application",
				"layer", "application",
				"operation", "login",
				"outcome", "failure",
				"error_code", "LOCKOUT_STATE_UNAVAILABLE",
				"error", lockErr,
			)
			return LoginResponse{}, domain.ErrAccountLocked
		}
		if lockState.LockedUntil != nil && lockState.LockedUntil.After(now) {
			slog.Default().WarnContext(ctx, "account lockout triggered",
				"module", "application",
				"layer", "application",
				"operation", "login",
				"outcome", "blocked",
				"email", email,
				"locked_until", lockState.LockedUntil,
			)
			return LoginResponse{}, domain.ErrAccountLocked
		}
		return LoginResponse{}, domain.ErrInvalidCredentials
	}
	if !staff.IsActive {
		return LoginResponse{}, domain.ErrInvalidCredentials
	}
	if staff.RestaurantID != nil {
		restaurant, err := s.restaurants.GetByID(ctx, *staff.RestaurantID)
		if err != nil {
			return LoginResponse{}, err
		}
		if !restaurant.IsActive || restaurant.ArchivedAt != nil {
			return LoginResponse{}, fmt.Errorf("%w: restaurant is not active", domain.ErrForbidden)
		}
	}

	_ = s.lockouts.Clear(ctx, lockKey)

	now := s.nowFn()
	token, err := s.tokenSigner.Sign(ports.AuthClaims{
		Subject:      staff.ID,
		Kind:         ports.TokenKindStaff,
		Email:        staff.Email,
		Role:         string(staff.Role),
		RestaurantID: staff.RestaurantID,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.cfg.AccessTokenTTL),
	})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}
	if err := s.staff.TouchLogin(ctx, staff.ID, now); err != nil {
		slog.Default().WarnContext(ctx, "failed to record last login",
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "degraded",
			"staff_id", staff.ID,
			"error", err,
		)
	}
	staff.LastLoginAt = &now
	s.recordAudit(ctx, Principal{SubjectID: staff.ID, Kind: ports.TokenKindStaff, Role: staff.Role}, staff.RestaurantID,
		"auth.login", "staff", staff.ID.String(), map[string]any{"ip": req.IPAddress})

	return LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds()),
		Staff:     toStaffView(staff),
	}, nil
}

// ValidateToken resolves a bearer token into a principal. Staff tokens are re-checked
// against the store so deactivation, role changes and restaurant archival take
// effect immediately.
func (s *Service) ValidateToken(ctx context.Context, raw string) (Principal, error) {
	claims, err := s.tokenSigner.ParseAndValidate(raw)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	switch claims.Kind {
	case ports.TokenKindStaff:
		staff, err := s.staff.GetByID(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return Principal{}, domain.ErrUnauthorized
			}
			return Principal{}, err
		}
		if !staff.IsActive {
			return Principal{}, fmt.Errorf("%w: account disabled", domain.ErrUnauthorized)
		}
		if staff.RestaurantID != nil {
			restaurant, err := s.restaurants.GetByID(ctx, *staff.RestaurantID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return Principal{}, domain.ErrUnauthorized
				}
				return Principal{}, err
			}
			if !restaurant.IsActive || restaurant.ArchivedAt != nil {
				return Principal{}, fmt.Errorf("%w: restaurant is not active", domain.ErrUnauthorized)
			}
		}
		return Principal{
			SubjectID:    staff.ID,
			Kind:         ports.TokenKindStaff,
			Role:         staff.Role,
			Email:        staff.Email,
			RestaurantID: staff.RestaurantID,
			IssuedAt:     claims.IssuedAt,
		}, nil
	case ports.TokenKindCustomer:
		if claims.RestaurantID == nil || claims.TableID == nil {
			return Principal{}, domain.ErrUnauthorized
		}
		return Principal{
			SubjectID:    claims.Subject,
			Kind:         ports.TokenKindCustomer,
			Role:         domain.RoleCustomer,
			RestaurantID: claims.RestaurantID,
			TableID:      claims.TableID,
			IssuedAt:     claims.IssuedAt,
		}, nil
	default:
		return Principal{}, fmt.Errorf("%w: unknown token kind", domain.ErrUnauthorized)
	}
}

func (s *Service) Me(ctx context.Context, p Principal) (StaffView, error) {
	if !p.IsStaff() {
		return StaffView{}, domain.ErrForbidden
	}
	staff, err := s.staff.GetByID(ctx, p.SubjectID)
	if err != nil {
		return StaffView{}, err
	}
	return toStaffView(staff), nil
}

func (s *Service) ChangePassword(ctx context.Context, p Principal, req ChangePasswordRequest) error {
	if !p.IsStaff() {
		return domain.ErrForbidden
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	staff, err := s.staff.GetByID(ctx, p.SubjectID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(staff.PasswordHash, req.CurrentPassword); err != nil {
		return domain.ErrInvalidCredentials
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.staff.UpdatePassword(ctx, staff.ID, hash, s.nowFn()); err != nil {
		return err
	}
	s.recordAudit(ctx, p, staff.RestaurantID, "auth.password_changed", "staff", staff.ID.String(), nil)
	return nil
}

// StartTableSession exchanges a scanned table code for a customer token bound to that table.
func (s *Service) StartTableSession(ctx context.Context, rawCode string) (TableSessionResponse, error) {
	code, err := domain.NormalizeTableCode(rawCode)
	if err != nil {
		return TableSessionResponse{}, err
	}
	table, err := s.tables.GetByCode(ctx, code)
	if err != nil {
		return TableSessionResponse{}, err
	}
	if !table.IsActive || table.ArchivedAt != nil {
		return TableSessionResponse{}, fmt.Errorf("%w: table is not accepting orders", domain.ErrOrderingDisabled)
	}
	restaurant, err := s.restaurants.GetByID(ctx, table.RestaurantID)
	if err != nil {
		return TableSessionResponse{}, err
	}
	if !restaurant.AcceptsOrders() {
		return TableSessionResponse{}, fmt.Errorf("%w: restaurant is not accepting orders", domain.ErrOrderingDisabled)
	}

	now := s.nowFn()
	restaurantID, tableID := restaurant.ID, table.ID
	token, err := s.tokenSigner.Sign(ports.AuthClaims{
		Subject:      uuid.New(),
		Kind:         ports.TokenKindCustomer,
		Role:         string(domain.RoleCustomer),
		RestaurantID: &restaurantID,
		TableID:      &tableID,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.cfg.CustomerSessionTTL),
	})
	if err != nil {
		return TableSessionResponse{}, fmt.Errorf("sign token: %w", err)
	}
	return TableSessionResponse{
		Token:      token,
		ExpiresIn:  int64(s.cfg.CustomerSessionTTL.Seconds()),
		Restaurant: toPublicRestaurantView(restaurant),
		Table:      PublicTableView{ID: table.ID, Label: table.Label},
	}, nil
}

// BootstrapSuperAdmin creates the first platform administrator. It is used by operator tooling.
func (s *Service) BootstrapSuperAdmin(ctx context.Context, email, name, password string) (StaffView, error) {
	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return StaffView{}, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return StaffView{}, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return StaffView{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.nowFn()
	staff := domain.Staff{
		ID:           uuid.New(),
		Email:        normalized,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return StaffView{}, err
	}
	s.recordAudit(ctx, SystemPrincipal(), nil, "staff.bootstrap_admin", "staff", staff.ID.String(), map[string]any{"email": normalized})
	return toStaffView(staff), nil
}
