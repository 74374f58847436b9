package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestMigrationNamesAreOrdered(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_ordering_schema.sql", names[0])
}

func TestRunMigrationsAppliesPendingFilesOnce(t *testing.T) {
	db, mock := newMockDB(t)
	names, err := MigrationNames()
	require.NoError(t, err)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).WillReturnRows(sqlmock.NewRows([]string{"version"}))
	for _, name := range names {
		mock.ExpectBegin()
		mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS pgcrypto").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs(name, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}
	require.NoError(t, RunMigrations(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())

	applied := sqlmock.NewRows([]string{"version"})
	for _, name := range names {
		applied.AddRow(name)
	}
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).WillReturnRows(applied)
	require.NoError(t, RunMigrations(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsRollsBackFailedFile(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS pgcrypto").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := RunMigrations(context.Background(), db)
	require.ErrorContains(t, err, "0001_ordering_schema.sql")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRestaurantGetByIDMapsMissingRowToNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)

	mock.ExpectQuery(`SELECT \* FROM "restaurants" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := repos.Restaurants.GetByID(context.Background(), uuid.New())
	require.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableListDecodesRows(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)
	rid := uuid.New()
	now := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "restaurant_tables" WHERE restaurant_id = \$1 AND archived_at IS NULL ORDER BY label ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "restaurant_id", "label", "seats", "code", "is_active", "code_rotated_at", "created_at", "updated_at", "archived_at"}).
			AddRow(uuid.New().String(), rid.String(), "T1", 4, "ABCD23", true, now, now, now, nil))

	tables, err := repos.Tables.ListByRestaurant(context.Background(), rid, false)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "ABCD23", tables[0].Code)
	assert.Equal(t, rid, tables[0].RestaurantID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderAllocatesNumberInsideTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)
	now := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	order := domain.Order{
		ID:            uuid.New(),
		RestaurantID:  uuid.New(),
		TableID:       uuid.New(),
		Status:        domain.OrderPending,
		SubtotalCents: 1250,
		TotalCents:    1250,
		Fingerprint:   "fp",
		PlacedAt:      now,
		UpdatedAt:     now,
		Items: []domain.OrderItem{{
			ID:             uuid.New(),
			MenuItemID:     uuid.New(),
			Name:           "Burger",
			UnitPriceCents: 1250,
			Quantity:       1,
			LineTotalCents: 1250,
		}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO restaurant_order_counters`).
		WillReturnRows(sqlmock.NewRows([]string{"last_number"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "order_items"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "ordering_outbox"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := repos.Orders.CreateWithOutboxTx(context.Background(), order, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "order.placed",
		PartitionKey: order.RestaurantID.String(),
		Payload:      []byte(`{"order_id":"x"}`),
		OccurredAt:   now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.OrderNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusReportsConflictOnStaleStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectRollback()

	err := repos.Orders.UpdateStatusWithOutboxTx(context.Background(), uuid.New(), uuid.New(),
		domain.OrderPending, domain.OrderConfirmed, time.Now().UTC(), ports.OutboxEvent{EventID: uuid.New()})
	require.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusReportsNotFoundForUnknownOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectRollback()

	err := repos.Orders.UpdateStatusWithOutboxTx(context.Background(), uuid.New(), uuid.New(),
		domain.OrderPending, domain.OrderConfirmed, time.Now().UTC(), ports.OutboxEvent{EventID: uuid.New()})
	require.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyReserveConflictsOnLivePendingKey(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)

	mock.ExpectExec(`INSERT INTO "ordering_idempotency" .* ON CONFLICT \("idempotency_key"\) DO UPDATE SET .* WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repos.Idempotency.Reserve(context.Background(), "order:key-1", "hash", time.Now().Add(time.Hour))
	require.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)

	mock.ExpectExec(`INSERT INTO "ordering_idempotency"`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repos.Idempotency.Reserve(context.Background(), "order:key-2", "hash", time.Now().Add(time.Hour)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyGetReturnsNilWhenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)

	mock.ExpectQuery(`SELECT \* FROM "ordering_idempotency" WHERE idempotency_key = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"idempotency_key"}))

	rec, err := repos.Idempotency.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxClaimUnpublishedLeasesRows(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)
	id := uuid.New()
	now := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	token := "claim-1"

	older := now.Add(-time.Minute)
	olderID := uuid.New()
	mock.ExpectQuery(`(?s)WITH due AS \(\s*SELECT outbox_id FROM ordering_outbox.*FOR UPDATE SKIP LOCKED\s*\)\s*UPDATE ordering_outbox AS o\s*SET claim_token = \$3, claim_until = \$4.*RETURNING o\.\*`).
		WithArgs(sqlmock.AnyArg(), 10, token, now.Add(time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"outbox_id", "event_type", "partition_key", "payload", "created_at", "retry_count", "claim_token"}).
			AddRow(id.String(), "order.placed", "rid", `{"a":1}`, now, 2, token).
			AddRow(olderID.String(), "order.status_changed", "rid", `{}`, older, 0, token))

	rows, err := repos.Outbox.ClaimUnpublished(context.Background(), 10, token, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, olderID, rows[0].OutboxID)
	assert.Equal(t, id, rows[1].OutboxID)
	assert.Equal(t, 2, rows[1].RetryCount)
	assert.JSONEq(t, `{"a":1}`, string(rows[1].Payload))
	require.NotNil(t, rows[1].ClaimToken)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = repos.Outbox.ClaimUnpublished(context.Background(), 10, "", now)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOutboxSettleReportsLostLease(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)
	id := uuid.New()
	at := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE "ordering_outbox" SET .*"published_at"=.* WHERE outbox_id = \$\d+ AND claim_token = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repos.Outbox.MarkPublished(context.Background(), id, "claim-1", at))

	mock.ExpectExec(`UPDATE "ordering_outbox" SET .*"dead_lettered_at"=.*"retry_count"=retry_count \+ 1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repos.Outbox.MarkDeadLettered(context.Background(), id, "stale", "boom", at)
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveTerminalBeforeSkipsNonPositiveLimit(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)

	n, err := repos.Orders.ArchiveTerminalBefore(context.Background(), time.Now(), time.Now(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	mock.ExpectExec(`UPDATE "orders" SET "archived_at"=\$1.* WHERE id IN \(SELECT "id" FROM "orders" WHERE archived_at IS NULL AND status IN .* ORDER BY updated_at ASC LIMIT \$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err = repos.Orders.ArchiveTerminalBefore(context.Background(), time.Now(), time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMappersRoundTripModifierOverrides(t *testing.T) {
	delta := int64(200)
	name := "Cup size"
	in := domain.MenuItemModifier{
		ID:           uuid.New(),
		MenuItemID:   uuid.New(),
		TemplateID:   uuid.New(),
		NameOverride: &name,
		OptionOverrides: []domain.OptionOverride{
			{OptionID: uuid.New(), PriceDeltaCents: &delta},
			{OptionID: uuid.New(), Hidden: true},
		},
	}
	out := toDomainItemModifier(toItemModifierModel(in))
	require.Len(t, out.OptionOverrides, 2)
	assert.Equal(t, delta, *out.OptionOverrides[0].PriceDeltaCents)
	assert.True(t, out.OptionOverrides[1].Hidden)
	assert.Equal(t, name, *out.NameOverride)

	item := toDomainMenuItem(toMenuItemModel(domain.MenuItem{Tags: []string{"vegan", "gf"}}))
	assert.Equal(t, []string{"vegan", "gf"}, item.Tags)
	empty := toMenuItemModel(domain.MenuItem{})
	assert.Equal(t, "[]", empty.Tags)
}
