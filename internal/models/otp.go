package models

import (
	"time"
)

// OTP is a short-lived verification code sent to an email address.
// At most one code exists per email, resending replaces it.
type OTP struct {
	Email     string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}
