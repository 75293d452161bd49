package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/impenglish/backend/internal/models"
)

// Params to create user. Password must be hashed already.
type CreateUserParams struct {
	Email          string
	FullName       string
	HashedPassword string
	Verified       bool
	Type           string
}

// Params to update user. Nil fields are left untouched.
type UpdateUserParams struct {
	FullName       *string
	HashedPassword *string
	Verified       *bool
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Update user fields that are set in params
	// If user not found must return apperrors.ErrUserNotFound
	UpdateUser(ctx context.Context, userID uuid.UUID, params UpdateUserParams) (models.User, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// Params to create refresh token record. The store derives the digest from
// the plaintext itself, plaintext is never persisted.
type CreateTokenParams struct {
	UserID     uuid.UUID
	Email      string
	ExpiresAt  time.Time
	IPAddress  string
	DeviceInfo string
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Create record for the plaintext token
	// Must return apperrors.ErrTokenDigestConflict if the digest exists already
	Create(ctx context.Context, plaintext string, params CreateTokenParams) (models.RefreshToken, error)

	// Find record by plaintext token
	// Must NOT filter by revoked or expired: the caller distinguishes those
	// failure reasons itself. Absent record is apperrors.ErrRefreshTokenNotFound
	Find(ctx context.Context, plaintext string) (models.RefreshToken, error)

	// Revoke record, the revoked=false -> true transition is the serialization
	// point for concurrent rotations: if the record is revoked already must
	// return apperrors.ErrRefreshTokenRevoked and change nothing.
	// Non nil replacedByHash links the record to its successor and marks the
	// token as used (rotation); nil means explicit logout.
	Revoke(ctx context.Context, tokenID uuid.UUID, replacedByHash *string) (models.RefreshToken, error)

	// Revoke every live descendant of the chain starting at startHash,
	// following replaced_by_hash links. Returns number of records revoked.
	RevokeChain(ctx context.Context, startHash string) (int64, error)

	// Revoke every non-revoked token of the user ("log out everywhere")
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// Delete single record by digest. Used to discard the just-created child
	// when a concurrent rotation lost the revoke race.
	DeleteByHash(ctx context.Context, tokenHash string) error

	// Delete records with expires_at in the past, returns number deleted
	DeleteExpired(ctx context.Context) (int64, error)

	// Administrative bulk operations
	ListAll(ctx context.Context) ([]models.RefreshToken, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// OTP repository interface
type OTPRepo interface {
	// Insert code for email or replace the existing one resetting its TTL
	Upsert(ctx context.Context, otp models.OTP) (models.OTP, error)

	// Get code for email, apperrors.ErrOTPAbsent if none
	Get(ctx context.Context, email string) (models.OTP, error)

	// Delete codes for email, absent record is not an error
	Delete(ctx context.Context, email string) error

	List(ctx context.Context) ([]models.OTP, error)
}

// Filter for vocabulary queries. Zero values mean "no filter".
type VocabFilter struct {
	Topic            string
	Level            string
	MultipleMeanings bool
}

// Pagination and ordering for vocabulary queries
type VocabPage struct {
	Page     int
	Limit    int
	SortDesc bool
}

// Vocabulary repository interface. The vocabulary set is read-only for the
// API, Create exists for seeding and tests.
type VocabularyRepo interface {
	Create(ctx context.Context, vocab models.Vocabulary) (models.Vocabulary, error)

	// List entries matching filter, ordered by word. Returns the page of
	// entries and the total number of matching rows.
	List(ctx context.Context, filter VocabFilter, page VocabPage) ([]models.Vocabulary, int64, error)

	// TopicExists reports whether at least one entry has the topic
	TopicExists(ctx context.Context, topic string) (bool, error)

	// Random returns up to count random entries matching filter
	Random(ctx context.Context, count int, filter VocabFilter) ([]models.Vocabulary, error)
}

// Storage combines all repositories over one connection or transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	OTP() OTPRepo
	Vocabulary() VocabularyRepo

	// Run fn within a db transaction
	InTx(ctx context.Context, fn func(s Storage) error) error
}
