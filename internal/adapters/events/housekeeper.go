package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// HousekeepingService is the slice of the application service the scheduler drives.
type HousekeepingService interface {
	ArchiveStaleOrders(ctx context.Context, olderThan time.Duration, batchSize int) (int64, error)
	PurgeExpiredIdempotency(ctx context.Context) (int64, error)
}

type HousekeeperConfig struct {
	ArchiveSchedule string
	PurgeSchedule   string
	ArchiveAfter    time.Duration
	BatchSize       int
	Observer        Observer
}

// Housekeeper runs periodic retention jobs on a cron schedule.
type Housekeeper struct {
	logger  *slog.Logger
	service HousekeepingService
	cfg     HousekeeperConfig
	cron    *cron.Cron
	ctx     context.Context
}

func NewHousekeeper(logger *slog.Logger, service HousekeepingService, cfg HousekeeperConfig) (*Housekeeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ArchiveSchedule == "" {
		cfg.ArchiveSchedule = "@every 15m"
	}
	if cfg.PurgeSchedule == "" {
		cfg.PurgeSchedule = "@hourly"
	}
	h := &Housekeeper{
		logger:  logger,
		service: service,
		cfg:     cfg,
		ctx:     context.Background(),
	}
	cronLog := cronLogger{logger: logger}
	h.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := h.cron.AddFunc(cfg.ArchiveSchedule, func() { h.archive(h.ctx) }); err != nil {
		return nil, fmt.Errorf("archive schedule %q: %w", cfg.ArchiveSchedule, err)
	}
	if _, err := h.cron.AddFunc(cfg.PurgeSchedule, func() { h.purge(h.ctx) }); err != nil {
		return nil, fmt.Errorf("purge schedule %q: %w", cfg.PurgeSchedule, err)
	}
	return h, nil
}

// Run starts the scheduler and blocks until ctx is cancelled and running jobs finish.
func (h *Housekeeper) Run(ctx context.Context) error {
	h.ctx = ctx
	h.cron.Start()
	<-ctx.Done()
	<-h.cron.Stop().Done()
	return ctx.Err()
}

// RunOnce executes both jobs immediately.
func (h *Housekeeper) RunOnce(ctx context.Context) (archived, purged int64) {
	return h.archive(ctx), h.purge(ctx)
}

// Entries reports how many jobs are scheduled.
func (h *Housekeeper) Entries() int {
	return len(h.cron.Entries())
}

func (h *Housekeeper) archive(ctx context.Context) int64 {
	n, err := h.service.ArchiveStaleOrders(ctx, h.cfg.ArchiveAfter, h.cfg.BatchSize)
	if err != nil {
		h.logger.ErrorContext(ctx, "archive stale orders failed",
			"module", "events.housekeeper",
			"layer", "adapter",
			"operation", "archive_stale_orders",
			"outcome", "failure",
			"error", err,
		)
		return 0
	}
	if h.cfg.Observer != nil {
		h.cfg.Observer.Housekeeping("archive_orders", n)
	}
	return n
}

func (h *Housekeeper) purge(ctx context.Context) int64 {
	n, err := h.service.PurgeExpiredIdempotency(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "purge idempotency keys failed",
			"module", "events.housekeeper",
			"layer", "adapter",
			"operation", "purge_idempotency",
			"outcome", "failure",
			"error", err,
		)
		return 0
	}
	if h.cfg.Observer != nil {
		h.cfg.Observer.Housekeeping("purge_idempotency", n)
	}
	return n
}

// cronLogger routes scheduler diagnostics into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, append([]any{"module", "events.housekeeper"}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]any{"module", "events.housekeeper", "error", err}, keysAndValues...)...)
}
