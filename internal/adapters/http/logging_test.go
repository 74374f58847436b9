package http

import (
	"context"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

func fieldMap(t *testing.T, fields []any) map[string]any {
	t.Helper()
	require.Zero(t, len(fields)%2)
	out := map[string]any{}
	for i := 0; i < len(fields); i += 2 {
		out[fields[i].(string)] = fields[i+1]
	}
	return out
}

func TestCallerFieldsFromScopedPrincipal(t *testing.T) {
	restaurantID, tableID, subject := uuid.New(), uuid.New(), uuid.New()

	ctx := context.WithValue(context.Background(), ctxKeyRequestID, "req-1")
	ctx, scope := withRequestScope(ctx)
	rememberPrincipal(ctx, application.Principal{
		SubjectID:    subject,
		Kind:         ports.TokenKindCustomer,
		Role:         domain.RoleCustomer,
		RestaurantID: &restaurantID,
		TableID:      &tableID,
	})
	require.NotNil(t, scope.principal)

	got := fieldMap(t, callerFields(ctx))
	assert.Equal(t, "req-1", got["request_id"])
	assert.Equal(t, ports.TokenKindCustomer+":"+subject.String(), got["principal"])
	assert.Equal(t, string(domain.RoleCustomer), got["role"])
	assert.Equal(t, restaurantID.String(), got["restaurant_id"])
	assert.Equal(t, tableID.String(), got["table_id"])
}

func TestCallerFieldsFallBackToRouteParams(t *testing.T) {
	restaurantID := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("restaurant_id", restaurantID.String())
	rctx.RoutePatterns = []string{"/v1/restaurants/{restaurant_id}/tables"}
	ctx := context.WithValue(context.Background(), chi.RouteCtxKey, rctx)

	got := fieldMap(t, callerFields(ctx))
	assert.Equal(t, restaurantID.String(), got["restaurant_id"])
	assert.Equal(t, "/v1/restaurants/{restaurant_id}/tables", got["route"])
	assert.NotContains(t, got, "principal")
}
