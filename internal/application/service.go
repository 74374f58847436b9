package application

import (
	"time"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

type Service struct {
	cfg           Config
	restaurants   ports.RestaurantRepository
	staff         ports.StaffRepository
	tables        ports.TableRepository
	categories    ports.CategoryRepository
	items         ports.MenuItemRepository
	templates     ports.ModifierTemplateRepository
	itemModifiers ports.ItemModifierRepository
	orders        ports.OrderRepository
	audit         ports.AuditRepository
	idempotency   ports.IdempotencyRepository
	lockouts      ports.LockoutStore
	dedup         ports.OrderDeduplicator
	menuCache     ports.MenuCache
	hasher        ports.PasswordHasher
	tokenSigner   ports.TokenSigner
	codes         ports.TableCodeGenerator
	qr            ports.QREncoder
	metrics       ports.MetricsRecorder
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Restaurants   ports.RestaurantRepository
	Staff         ports.StaffRepository
	Tables        ports.TableRepository
	Categories    ports.CategoryRepository
	MenuItems     ports.MenuItemRepository
	Templates     ports.ModifierTemplateRepository
	ItemModifiers ports.ItemModifierRepository
	Orders        ports.OrderRepository
	Audit         ports.AuditRepository
	Idempotency   ports.IdempotencyRepository
	Lockouts      ports.LockoutStore
	Dedup         ports.OrderDeduplicator
	MenuCache     ports.MenuCache
	Hasher        ports.PasswordHasher
	TokenSigner   ports.TokenSigner
	Codes         ports.TableCodeGenerator
	QR            ports.QREncoder
	Metrics       ports.MetricsRecorder
	// Now overrides the clock; tests pin it.
	Now func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config.withDefaults()
	metrics := deps.Metrics
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:           cfg,
		restaurants:   deps.Restaurants,
		staff:         deps.Staff,
		tables:        deps.Tables,
		categories:    deps.Categories,
		items:         deps.MenuItems,
		templates:     deps.Templates,
		itemModifiers: deps.ItemModifiers,
		orders:        deps.Orders,
		audit:         deps.Audit,
		idempotency:   deps.Idempotency,
		lockouts:      deps.Lockouts,
		dedup:         deps.Dedup,
		menuCache:     deps.MenuCache,
		hasher:        deps.Hasher,
		tokenSigner:   deps.TokenSigner,
		codes:         deps.Codes,
		qr:            deps.QR,
		metrics:       metrics,
		nowFn:         nowFn,
	}
}

// Config returns the effective configuration after defaults were applied.
func (s *Service) Config() Config {
	return s.cfg
}
