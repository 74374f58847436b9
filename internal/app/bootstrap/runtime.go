package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	cacheadapter "github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/events"
	httpadapter "github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/metrics"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

type Runtime struct {
	cfg       Config
	logger    *slog.Logger
	db        *gorm.DB
	redis     *redis.Client
	repos     postgres.Repositories
	service   *application.Service
	signer    *security.JWTSigner
	metrics   *metrics.Registry
	limiter   ports.RateLimiter
	publisher ports.EventPublisher
	closers   []func() error
}

// NewLogger builds the JSON slog logger and installs it as the process default.
func NewLogger(cfg Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", cfg.ServiceID)
	slog.SetDefault(logger)
	return logger
}

// ConnectDatabase opens the gorm pool and optionally applies embedded migrations.
func ConnectDatabase(ctx context.Context, cfg Config, migrate bool) (*gorm.DB, error) {
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if migrate {
		if err := postgres.RunMigrations(ctx, db); err != nil {
			closeDB(db)
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return NewRuntimeFromConfig(ctx, cfg)
}

// NewRuntimeFromConfig wires adapters and the application service for cfg.
func NewRuntimeFromConfig(ctx context.Context, cfg Config) (*Runtime, error) {
	logger := NewLogger(cfg)
	logger.Info("bootstrapping m60 restaurant ordering service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"cache_backend", cfg.CacheBackend,
		"rate_limit_backend", cfg.RateLimitBackend,
		"dedup_backend", cfg.DedupBackend,
	)

	rt := &Runtime{cfg: cfg, logger: logger, metrics: metrics.NewRegistry()}

	db, err := ConnectDatabase(ctx, cfg, cfg.AutoMigrate)
	if err != nil {
		return nil, err
	}
	rt.db = db
	rt.closers = append(rt.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if cfg.NeedsRedis() {
		client, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rt.redis = client
		rt.closers = append(rt.closers, client.Close)
	}

	signer, err := newSigner(cfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.signer = signer

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.publisher = publisher
	if kp, ok := publisher.(*eventadapter.KafkaPublisher); ok {
		rt.closers = append(rt.closers, kp.Close)
	}

	var (
		lockouts  ports.LockoutStore      = cacheadapter.NewMemoryLockoutStore()
		menuCache ports.MenuCache         = cacheadapter.NewMemoryMenuCache()
		dedup     ports.OrderDeduplicator = cacheadapter.NewMemoryOrderDeduplicator()
	)
	rt.limiter = cacheadapter.NewMemoryRateLimiter(10 * time.Minute)
	if cfg.CacheBackend == BackendRedis {
		lockouts = cacheadapter.NewRedisLockoutStore(rt.redis)
		menuCache = cacheadapter.NewRedisMenuCache(rt.redis)
	}
	if cfg.RateLimitBackend == BackendRedis {
		rt.limiter = cacheadapter.NewRedisRateLimiter(rt.redis)
	}
	if cfg.DedupBackend == BackendRedis {
		dedup = cacheadapter.NewRedisOrderDeduplicator(rt.redis)
	}

	rt.repos = postgres.NewRepositories(db)
	rt.service = application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceID:            cfg.ServiceID,
			AccessTokenTTL:       cfg.AccessTokenTTL,
			CustomerSessionTTL:   cfg.CustomerSessionTTL,
			FailedLoginThreshold: cfg.FailedThreshold,
			LockoutDuration:      cfg.LockoutDuration,
			DuplicateOrderWindow: cfg.DuplicateOrderWindow,
			IdempotencyTTL:       cfg.IdempotencyTTL,
			TableCodeLength:      cfg.TableCodeLength,
			TableCodeMaxAttempts: cfg.TableCodeMaxAttempts,
			PublicBaseURL:        cfg.PublicBaseURL,
			QRSize:               cfg.QRSize,
			MenuCacheTTL:         cfg.MenuCacheTTL,
		},
		Restaurants:   rt.repos.Restaurants,
		Staff:         rt.repos.Staff,
		Tables:        rt.repos.Tables,
		Categories:    rt.repos.Categories,
		MenuItems:     rt.repos.MenuItems,
		Templates:     rt.repos.Templates,
		ItemModifiers: rt.repos.ItemModifiers,
		Orders:        rt.repos.Orders,
		Audit:         rt.repos.Audit,
		Idempotency:   rt.repos.Idempotency,
		Lockouts:      lockouts,
		Dedup:         dedup,
		MenuCache:     menuCache,
		Hasher:        security.NewBcryptHasher(cfg.BcryptCost),
		TokenSigner:   signer,
		Codes:         security.NewRandomCodeGenerator(),
		QR:            security.NewQREncoder(),
		Metrics:       rt.metrics,
	})
	return rt, nil
}

func newSigner(cfg Config, logger *slog.Logger) (*security.JWTSigner, error) {
	signer, err := security.NewJWTSigner(cfg.JWTKeyID, cfg.JWTIssuer, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM)
	if err == nil {
		return signer, nil
	}
	if !cfg.AllowEphemeralJWT {
		return nil, fmt.Errorf("init jwt signer: %w", err)
	}
	logger.Warn("using ephemeral JWT keys for local/dev runtime")
	signer, err = security.NewEphemeralJWTSigner(cfg.JWTKeyID, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("init ephemeral jwt signer: %w", err)
	}
	return signer, nil
}

func newPublisher(cfg Config, logger *slog.Logger) (ports.EventPublisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return eventadapter.NewLoggingPublisher(logger), nil
	}
	pub, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopics)
	if err != nil {
		return nil, fmt.Errorf("init kafka publisher: %w", err)
	}
	return pub, nil
}

func (r *Runtime) Config() Config                      { return r.cfg }
func (r *Runtime) Logger() *slog.Logger                { return r.logger }
func (r *Runtime) DB() *gorm.DB                        { return r.db }
func (r *Runtime) Service() *application.Service       { return r.service }
func (r *Runtime) Repositories() postgres.Repositories { return r.repos }

// Ready checks every backing store the request path depends on.
func (r *Runtime) Ready(ctx context.Context) error {
	if err := postgres.Ping(ctx, r.db); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if r.redis != nil {
		if err := r.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// HTTPHandler builds the router with every middleware collaborator attached.
func (r *Runtime) HTTPHandler() http.Handler {
	// validated by LoadConfig
	trusted, _ := httpadapter.ParseTrustedProxies(r.cfg.TrustedProxies)
	handler := httpadapter.NewHandler(r.service, httpadapter.Options{
		AllowedOrigins: r.cfg.AllowedOrigins,
		RateLimiter:    r.limiter,
		PublicLimit:    httpadapter.RateLimitRule{Limit: r.cfg.PublicRateLimit, Window: r.cfg.PublicRateWindow},
		PrincipalLimit: httpadapter.RateLimitRule{Limit: r.cfg.PrincipalRateLimit, Window: r.cfg.PrincipalRateWindow},
		Metrics:        r.metrics,
		Readiness:      r.Ready,
		JWKS:           r.signer.PublicJWKs,
		TrustedProxies: trusted,
	})
	return httpadapter.NewRouter(handler)
}

func (r *Runtime) OutboxWorker() *eventadapter.OutboxWorker {
	worker := eventadapter.NewOutboxWorker(
		r.logger,
		r.repos.Outbox,
		r.publisher,
		r.cfg.OutboxPollInterval,
		r.cfg.OutboxBatchSize,
		r.cfg.OutboxClaimTTL,
		r.cfg.OutboxMaxRetries,
	)
	worker.SetObserver(r.metrics)
	return worker
}

func (r *Runtime) Housekeeper() (*eventadapter.Housekeeper, error) {
	return eventadapter.NewHousekeeper(r.logger, r.service, eventadapter.HousekeeperConfig{
		ArchiveSchedule: r.cfg.ArchiveSchedule,
		PurgeSchedule:   r.cfg.PurgeSchedule,
		ArchiveAfter:    r.cfg.ArchiveAfter,
		BatchSize:       r.cfg.ArchiveBatchSize,
		Observer:        r.metrics,
	})
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", r.cfg.HTTPPort),
		Handler:           r.HTTPHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.Close()
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	r.Close()
	return runErr
}

// RunWorker runs the outbox publisher and the housekeeping scheduler until shutdown.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.Close()

	housekeeper, err := r.Housekeeper()
	if err != nil {
		return err
	}
	outbox := r.OutboxWorker()

	r.logger.Info("worker started", "housekeeping_jobs", housekeeper.Entries())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return outbox.Run(gctx) })
	g.Go(func() error { return housekeeper.Run(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases pools and clients in reverse order of acquisition.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.logger.Warn("runtime close failed", "error", err)
		}
	}
	r.closers = nil
}
