package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
)

// withUniqueTableCode generates codes until store accepts one. store must return
// domain.ErrConflict on a code collision; any other error aborts the loop.
func (s *Service) withUniqueTableCode(ctx context.Context, store func(code string) error) (string, error) {
	for attempt := 1; attempt <= s.cfg.TableCodeMaxAttempts; attempt++ {
		code, err := s.codes.Generate(s.cfg.TableCodeLength)
		if err != nil {
			return "", fmt.Errorf("generate table code: %w", err)
		}
		err = store(code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return "", err
		}
		slog.Default().WarnContext(ctx, "table code collision",
			"module", "application",
			"layer", "application",
			"operation", "generate_table_code",
			"outcome", "retry",
			"attempt", attempt,
		)
	}
	return "", fmt.Errorf("%w: gave up after %d attempts", domain.ErrCodeSpaceExhausted, s.cfg.TableCodeMaxAttempts)
}

func (s *Service) ListTables(ctx context.Context, p Principal, restaurantID uuid.UUID, includeArchived bool) ([]TableView, error) {
	if err := authorize(p, domain.PermTableRead, restaurantID); err != nil {
		return nil, err
	}
	tables, err := s.tables.ListByRestaurant(ctx, restaurantID, includeArchived)
	if err != nil {
		return nil, err
	}
	out := make([]TableView, 0, len(tables))
	for _, t := range tables {
		out = append(out, s.toTableView(t))
	}
	return out, nil
}

func (s *Service) CreateTable(ctx context.Context, p Principal, restaurantID uuid.UUID, req CreateTableRequest) (TableView, error) {
	if err := authorize(p, domain.PermTableWrite, restaurantID); err != nil {
		return TableView{}, err
	}
	if err := validateRequest(req); err != nil {
		return TableView{}, err
	}
	if _, err := s.requireOpenRestaurant(ctx, restaurantID); err != nil {
		return TableView{}, err
	}
	now := s.nowFn()
	seats := req.Seats
	if seats == 0 {
		seats = 2
	}
	table := domain.Table{
		ID:            uuid.New(),
		RestaurantID:  restaurantID,
		Label:         strings.TrimSpace(req.Label),
		Seats:         seats,
		IsActive:      true,
		CodeRotatedAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	code, err := s.withUniqueTableCode(ctx, func(code string) error {
		table.Code = code
		return s.tables.Create(ctx, table)
	})
	if err != nil {
		return TableView{}, err
	}
	table.Code = code
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "table.created", "table", table.ID.String(), map[string]any{"label": table.Label})
	return s.toTableView(table), nil
}

func (s *Service) UpdateTable(ctx context.Context, p Principal, restaurantID, tableID uuid.UUID, req UpdateTableRequest) (TableView, error) {
	if err := authorize(p, domain.PermTableWrite, restaurantID); err != nil {
		return TableView{}, err
	}
	if err := validateRequest(req); err != nil {
		return TableView{}, err
	}
	table, err := s.tables.GetByID(ctx, restaurantID, tableID)
	if err != nil {
		return TableView{}, err
	}
	if table.ArchivedAt != nil {
		return TableView{}, fmt.Errorf("%w: table is archived", domain.ErrConflict)
	}
	changed := map[string]any{}
	if v := trimPtr(req.Label); v != nil {
		table.Label = *v
		changed["label"] = *v
	}
	if req.Seats != nil {
		table.Seats = *req.Seats
		changed["seats"] = *req.Seats
	}
	if req.IsActive != nil {
		table.IsActive = *req.IsActive
		changed["is_active"] = *req.IsActive
	}
	table.UpdatedAt = s.nowFn()
	if err := s.tables.Update(ctx, table); err != nil {
		return TableView{}, err
	}
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "table.updated", "table", table.ID.String(), changed)
	return s.toTableView(table), nil
}

// DeleteTable archives a table. It is refused while the table still has open orders.
func (s *Service) DeleteTable(ctx context.Context, p Principal, restaurantID, tableID uuid.UUID) error {
	if err := authorize(p, domain.PermTableWrite, restaurantID); err != nil {
		return err
	}
	table, err := s.tables.GetByID(ctx, restaurantID, tableID)
	if err != nil {
		return err
	}
	if table.ArchivedAt != nil {
		return nil
	}
	active, err := s.orders.CountActiveByTable(ctx, restaurantID, tableID)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("%w: table has %d open order(s)", domain.ErrConflict, active)
	}
	if err := s.tables.Archive(ctx, restaurantID, tableID, s.nowFn()); err != nil {
		return err
	}
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "table.archived", "table", tableID.String(), nil)
	return nil
}

// RegenerateTableCode issues a new code, invalidating printed QR cards for the old one.
func (s *Service) RegenerateTableCode(ctx context.Context, p Principal, restaurantID, tableID uuid.UUID) (TableView, error) {
	if err := authorize(p, domain.PermTableWrite, restaurantID); err != nil {
		return TableView{}, err
	}
	table, err := s.tables.GetByID(ctx, restaurantID, tableID)
	if err != nil {
		return TableView{}, err
	}
	if table.ArchivedAt != nil {
		return TableView{}, fmt.Errorf("%w: table is archived", domain.ErrConflict)
	}
	now := s.nowFn()
	previous := table.Code
	code, err := s.withUniqueTableCode(ctx, func(code string) error {
		return s.tables.UpdateCode(ctx, restaurantID, tableID, code, now)
	})
	if err != nil {
		return TableView{}, err
	}
	table.Code = code
	table.CodeRotatedAt = now
	table.UpdatedAt = now
	s.recordAudit(ctx, p, restaurantRef(restaurantID), "table.code_regenerated", "table", tableID.String(), map[string]any{"previous_code": previous})
	return s.toTableView(table), nil
}

// RotateTableCodes regenerates the code of every live table in a restaurant.
func (s *Service) RotateTableCodes(ctx context.Context, p Principal, restaurantID uuid.UUID) ([]TableView, error) {
	if err := authorize(p, domain.PermTableWrite, restaurantID); err != nil {
		return nil, err
	}
	tables, err := s.tables.ListByRestaurant(ctx, restaurantID, false)
	if err != nil {
		return nil, err
	}
	out := make([]TableView, 0, len(tables))
	for _, t := range tables {
		view, err := s.RegenerateTableCode(ctx, p, restaurantID, t.ID)
		if err != nil {
			return out, fmt.Errorf("rotate table %s: %w", t.Label, err)
		}
		out = append(out, view)
	}
	return out, nil
}

// TableQRCode renders the table's ordering URL as a PNG.
func (s *Service) TableQRCode(ctx context.Context, p Principal, restaurantID, tableID uuid.UUID) ([]byte, error) {
	if err := authorize(p, domain.PermTableRead, restaurantID); err != nil {
		return nil, err
	}
	table, err := s.tables.GetByID(ctx, restaurantID, tableID)
	if err != nil {
		return nil, err
	}
	if table.ArchivedAt != nil {
		return nil, domain.ErrNotFound
	}
	png, err := s.qr.EncodePNG(s.tableOrderURL(table.Code), s.cfg.QRSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
