package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persistent record of one issued refresh token.
// The plaintext token is returned to the client exactly once at issuance,
// only its SHA-256 digest is ever stored.
type RefreshToken struct {
	ID         uuid.UUID
	TokenHash  string
	UserID     uuid.UUID
	Email      string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt *time.Time // nil until the token is used for rotation
	IPAddress  string
	DeviceInfo string
	Revoked    bool
	RevokedAt  *time.Time
	ReplacedBy *string // digest of the successor token, set on rotation only
}

// Expired reports whether the record is past its TTL. An expired record is
// treated exactly like a revoked one for authorization purposes even while
// it still exists in the store.
func (t RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
