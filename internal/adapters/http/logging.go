package http

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
)

type ctxKeyScope struct{}

// requestScope is shared by reference so the access log can report the caller
// that authMiddleware resolves further down the chain.
type requestScope struct {
	principal *application.Principal
}

func withRequestScope(ctx context.Context) (context.Context, *requestScope) {
	scope := &requestScope{}
	return context.WithValue(ctx, ctxKeyScope{}, scope), scope
}

func rememberPrincipal(ctx context.Context, p application.Principal) {
	if scope, ok := ctx.Value(ctxKeyScope{}).(*requestScope); ok {
		scope.principal = &p
	}
}

func httpLogger() *slog.Logger {
	return slog.Default().With("module", "http", "layer", "adapter")
}

// callerFields names the tenant and caller a request acted for.
func callerFields(ctx context.Context) []any {
	fields := []any{"request_id", requestIDFromContext(ctx)}
	if rctx := chi.RouteContext(ctx); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			fields = append(fields, "route", pattern)
		}
	}

	p, ok := principalFromContext(ctx)
	if !ok {
		if scope, found := ctx.Value(ctxKeyScope{}).(*requestScope); found && scope.principal != nil {
			p, ok = *scope.principal, true
		}
	}
	restaurant := ""
	if ok {
		fields = append(fields, "principal", p.Kind+":"+p.SubjectID.String(), "role", string(p.Role))
		if p.RestaurantID != nil {
			restaurant = p.RestaurantID.String()
		}
		if p.TableID != nil {
			fields = append(fields, "table_id", p.TableID.String())
		}
	}
	if restaurant == "" {
		if rctx := chi.RouteContext(ctx); rctx != nil {
			restaurant = rctx.URLParam("restaurant_id")
		}
	}
	if restaurant != "" {
		fields = append(fields, "restaurant_id", restaurant)
	}
	return fields
}

func logHTTPOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	fields := append([]any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
	}, callerFields(ctx)...)
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	if statusCode >= 500 {
		httpLogger().ErrorContext(ctx, "request failed", fields...)
		return
	}
	httpLogger().WarnContext(ctx, "request rejected", fields...)
}
