package http

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

// Metrics is the subset of the metrics adapter the router needs.
type Metrics interface {
	Instrument(next http.Handler) http.Handler
	Handler() http.Handler
	RateLimited(scope string)
}

// RateLimitRule is a limit of Limit hits per Window for one key.
type RateLimitRule struct {
	Limit  int
	Window time.Duration
}

// Options carries optional collaborators. Zero values disable the matching feature.
type Options struct {
	AllowedOrigins []string
	RateLimiter    ports.RateLimiter
	PublicLimit    RateLimitRule
	PrincipalLimit RateLimitRule
	Metrics        Metrics
	Readiness      func(ctx context.Context) error
	JWKS           func() []map[string]any
	// TrustedProxies lists peers whose X-Forwarded-For header is believed.
	TrustedProxies []netip.Prefix
}

// Handler is the HTTP adapter entrypoint for ordering use-cases.
type Handler struct {
	service *application.Service
	opts    Options
	trusted []netip.Prefix
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, opts Options) *Handler {
	return &Handler{service: service, opts: opts, trusted: opts.TrustedProxies}
}

// NewRouter registers the ordering routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	if handler.opts.Metrics != nil {
		r.Use(handler.opts.Metrics.Instrument)
	}
	if len(handler.opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: handler.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			MaxAge:         600,
		}).Handler)
	}

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	if handler.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", handler.opts.Metrics.Handler())
	}
	r.Get("/.well-known/jwks.json", handler.jwks)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(handler.rateLimit("public", handler.opts.PublicLimit, handler.ipRateKey))
			r.Post("/auth/login", handler.login)
			r.Post("/public/tables/{code}/sessions", handler.startTableSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Use(handler.rateLimit("principal", handler.opts.PrincipalLimit, handler.principalRateKey))

			r.Route("/public", func(r chi.Router) {
				r.Use(requireCustomer)
				r.Get("/menu", handler.publicMenu)
				r.Post("/orders", handler.placeOrder)
				r.Get("/orders", handler.listTableOrders)
				r.Get("/orders/{order_id}", handler.getCustomerOrder)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireStaff)
				r.Get("/auth/me", handler.me)
				r.Put("/auth/password", handler.changePassword)

				r.Post("/restaurants", handler.createRestaurant)
				r.Get("/restaurants", handler.listRestaurants)
				r.Route("/restaurants/{restaurant_id}", func(r chi.Router) {
					r.Get("/", handler.getRestaurant)
					r.Patch("/", handler.updateRestaurant)
					r.Delete("/", handler.archiveRestaurant)

					r.Get("/staff", handler.listStaff)
					r.Post("/staff", handler.createStaff)
					r.Patch("/staff/{staff_id}", handler.updateStaff)
					r.Delete("/staff/{staff_id}", handler.deactivateStaff)

					r.Get("/tables", handler.listTables)
					r.Post("/tables", handler.createTable)
					r.Post("/tables/rotate-codes", handler.rotateTableCodes)
					r.Patch("/tables/{table_id}", handler.updateTable)
					r.Delete("/tables/{table_id}", handler.deleteTable)
					r.Post("/tables/{table_id}/regenerate-code", handler.regenerateTableCode)
					r.Get("/tables/{table_id}/qr", handler.tableQRCode)

					r.Get("/categories", handler.listCategories)
					r.Post("/categories", handler.createCategory)
					r.Put("/categories/order", handler.reorderCategories)
					r.Patch("/categories/{category_id}", handler.updateCategory)
					r.Delete("/categories/{category_id}", handler.deleteCategory)

					r.Get("/menu-items", handler.listMenuItems)
					r.Post("/menu-items", handler.createMenuItem)
					r.Get("/menu-items/{item_id}", handler.getMenuItem)
					r.Patch("/menu-items/{item_id}", handler.updateMenuItem)
					r.Delete("/menu-items/{item_id}", handler.deleteMenuItem)
					r.Put("/menu-items/{item_id}/availability", handler.setMenuItemAvailability)
					r.Get("/menu-items/{item_id}/modifiers", handler.listItemModifiers)
					r.Put("/menu-items/{item_id}/modifiers/{template_id}", handler.attachModifier)
					r.Delete("/menu-items/{item_id}/modifiers/{template_id}", handler.detachModifier)

					r.Get("/modifier-templates", handler.listModifierTemplates)
					r.Post("/modifier-templates", handler.createModifierTemplate)
					r.Get("/modifier-templates/{template_id}", handler.getModifierTemplate)
					r.Patch("/modifier-templates/{template_id}", handler.updateModifierTemplate)
					r.Delete("/modifier-templates/{template_id}", handler.deleteModifierTemplate)

					r.Get("/menu", handler.staffMenu)

					r.Get("/orders", handler.listOrders)
					r.Get("/orders/{order_id}", handler.getOrder)
					r.Delete("/orders/{order_id}", handler.deleteOrder)
					r.Post("/orders/{order_id}/status", handler.transitionOrder)
					r.Post("/orders/{order_id}/archive", handler.archiveOrder)

					r.Get("/audit-logs", handler.listAudit)
				})
			})
		})
	})

	return r
}
