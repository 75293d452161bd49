package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserNotVerified    = errors.New("user email is not verified")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Rotation failure reasons. Handlers must collapse both to a single
	// client-facing message, the distinction exists for logging only.
	ErrRefreshTokenNotFound = errors.New("refresh token not recognized")
	ErrRefreshTokenRevoked  = errors.New("refresh token is revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	// Digest already present in the store. Handled internally by retrying
	// with a fresh random token, never surfaced to service callers.
	ErrTokenDigestConflict = errors.New("refresh token digest already exists")

	ErrOTPInvalid = errors.New("otp code is invalid")
	ErrOTPExpired = errors.New("otp code is expired")
	ErrOTPAbsent  = errors.New("no otp requested for email")

	ErrTopicNotFound = errors.New("vocabulary topic not found")
)
