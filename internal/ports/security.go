package ports

import (
	"time"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

const (
	TokenKindStaff    = "staff"
	TokenKindCustomer = "customer"
)

// AuthClaims covers both staff access tokens and customer table sessions. For customers
// Subject is the table session id and TableID is set.
type AuthClaims struct {
	Subject      uuid.UUID  `json:"sub"`
	Kind         string     `json:"kind"`
	Email        string     `json:"email,omitempty"`
	Role         string     `json:"role"`
	RestaurantID *uuid.UUID `json:"restaurant_id,omitempty"`
	TableID      *uuid.UUID `json:"table_id,omitempty"`
	IssuedAt     time.Time  `json:"issued_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	KeyID        string     `json:"kid"`
}

type TokenSigner interface {
	Sign(claims AuthClaims) (string, error)
	ParseAndValidate(token string) (AuthClaims, error)
}

type TableCodeGenerator interface {
	Generate(length int) (string, error)
}

type QREncoder interface {
	EncodePNG(content string, size int) ([]byte, error)
}
