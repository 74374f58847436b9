package security_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	t.Parallel()

	h := security.NewBcryptHasher(4)
	hash, err := h.Hash("correct-horse-1")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-1", hash)
	assert.NoError(t, h.Compare(hash, "correct-horse-1"))
	assert.Error(t, h.Compare(hash, "wrong-horse-1"))
}

func TestJWTSignerCustomerSession(t *testing.T) {
	t.Parallel()

	signer, err := security.NewEphemeralJWTSigner("k1", "M60")
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	rid, tid := uuid.New(), uuid.New()
	token, err := signer.Sign(ports.AuthClaims{
		Subject:      uuid.New(),
		Kind:         ports.TokenKindCustomer,
		Role:         string(domain.RoleCustomer),
		RestaurantID: &rid,
		TableID:      &tid,
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Hour),
	})
	require.NoError(t, err)

	claims, err := signer.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, ports.TokenKindCustomer, claims.Kind)
	assert.Equal(t, "k1", claims.KeyID)
	require.NotNil(t, claims.RestaurantID)
	require.NotNil(t, claims.TableID)
	assert.Equal(t, rid, *claims.RestaurantID)
	assert.Equal(t, tid, *claims.TableID)
	assert.True(t, claims.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestJWTSignerRejectsForeignAndExpiredTokens(t *testing.T) {
	t.Parallel()

	a, err := security.NewEphemeralJWTSigner("a", "M60")
	require.NoError(t, err)
	b, err := security.NewEphemeralJWTSigner("b", "M60")
	require.NoError(t, err)

	now := time.Now().UTC()
	staff := ports.AuthClaims{
		Subject:   uuid.New(),
		Kind:      ports.TokenKindStaff,
		Email:     "owner@example.test",
		Role:      string(domain.RoleOwner),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	token, err := a.Sign(staff)
	require.NoError(t, err)
	_, err = b.ParseAndValidate(token)
	assert.Error(t, err, "token signed by another key must fail")

	staff.IssuedAt = now.Add(-2 * time.Hour)
	staff.ExpiresAt = now.Add(-time.Hour)
	expired, err := a.Sign(staff)
	require.NoError(t, err)
	_, err = a.ParseAndValidate(expired)
	assert.Error(t, err)

	_, err = a.Sign(ports.AuthClaims{Subject: uuid.New(), Kind: "robot"})
	assert.Error(t, err)

	rid := uuid.New()
	_, err = a.Sign(ports.AuthClaims{
		Subject:      uuid.New(),
		Kind:         ports.TokenKindCustomer,
		Role:         string(domain.RoleCustomer),
		RestaurantID: &rid,
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Hour),
	})
	assert.Error(t, err, "customer session must be bound to a table")

	keys := a.PublicJWKs()
	require.Len(t, keys, 1)
	assert.Equal(t, "a", keys[0]["kid"])
}

func TestRandomCodeGeneratorUsesAlphabet(t *testing.T) {
	t.Parallel()

	gen := security.NewRandomCodeGenerator()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := gen.Generate(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, strings.ContainsRune(domain.TableCodeAlphabet, r), "unexpected rune %q", r)
		}
		normalized, err := domain.NormalizeTableCode(code)
		require.NoError(t, err)
		require.Equal(t, code, normalized)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)

	_, err := gen.Generate(2)
	assert.Error(t, err)
}

func TestQREncoderProducesPNG(t *testing.T) {
	t.Parallel()

	png, err := security.NewQREncoder().EncodePNG("https://order.example.test/t/ABCDEF", 256)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))

	_, err = security.NewQREncoder().EncodePNG("", 256)
	assert.Error(t, err)
}
