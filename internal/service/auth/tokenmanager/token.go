package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/logger"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/repository"
	"github.com/impenglish/backend/internal/tokenhash"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 7 * 24 * time.Hour

	// Attempts to insert a fresh token when the digest collides with an
	// existing record. Collisions are astronomically unlikely with 512 bits
	// of token entropy but must not be ignored.
	createRetries = 3
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID `json:"uid"`
	Email    string    `json:"email"`
	UserType string    `json:"type"`
}

// Request-origin metadata captured with each issued refresh token
type Meta struct {
	IPAddress  string
	DeviceInfo string
}

// Token manager config with sensible defaults
type Config struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager owns the refresh token lifecycle (issue, rotate, revoke) and
// signs short-lived access tokens. Access token verification is stateless:
// revoking refresh tokens never invalidates outstanding access tokens.
type TokenManager struct {
	key string
	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration

	refreshRepo repository.RefreshTokenRepo
	logger      logger.Logger
}

func New(cfg Config, refreshRepo repository.RefreshTokenRepo, l logger.Logger) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:         cfg.SecretKey,
		alg:         jwt.GetSigningMethod(cfg.Alg),
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		refreshRepo: refreshRepo,
		logger:      l,
	}, nil
}

// IssueAccess signs a fresh access token carrying the user identity projection
func (m *TokenManager) IssueAccess(user models.User) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID:   user.ID,
			Email:    user.Email,
			UserType: user.Type,
		},
	)

	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// ParseAccess parses and validates an access token. No store lookup happens:
// the token is self-contained.
func (m *TokenManager) ParseAccess(access string) (AccessTokenClaims, error) {
	claims := AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		&claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)
	if err != nil {
		return claims, fmt.Errorf("error while parsing or validating token. Err: %w", err)
	}

	return claims, nil
}

// IssueRefresh generates a plaintext refresh token and persists its record.
// A digest conflict on insert is retried with a fresh random token and never
// surfaced to the caller.
func (m *TokenManager) IssueRefresh(ctx context.Context, user models.User, meta Meta) (models.IssuedToken, error) {
	expiresAt := time.Now().Truncate(time.Second).Add(m.refreshTTL)

	for range createRetries {
		plaintext, err := tokenhash.New()
		if err != nil {
			return models.IssuedToken{}, err
		}

		_, err = m.refreshRepo.Create(ctx, plaintext, repository.CreateTokenParams{
			UserID:     user.ID,
			Email:      user.Email,
			ExpiresAt:  expiresAt,
			IPAddress:  meta.IPAddress,
			DeviceInfo: meta.DeviceInfo,
		})

		switch {
		case err == nil:
			return models.IssuedToken{Value: plaintext, ExpiresAt: expiresAt}, nil
		case errors.Is(err, apperrors.ErrTokenDigestConflict):
			m.logger.Warn("refresh token digest collision, retrying with fresh token")
			continue
		default:
			return models.IssuedToken{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
		}
	}

	return models.IssuedToken{}, fmt.Errorf("error while saving refresh token. Err: %w", apperrors.ErrTokenDigestConflict)
}

// GeneratePair issues access and refresh tokens for the user (login)
func (m *TokenManager) GeneratePair(ctx context.Context, user models.User, meta Meta) (models.TokenPair, error) {
	access, err := m.IssueAccess(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := m.IssueRefresh(ctx, user, meta)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// RotateRefresh exchanges a presented refresh token for a fresh one.
//
// The old record stays live until the new one exists, so a crash in between
// leaves a brief double-validity window rather than a state with no valid
// token at all. The conditional revoke is the serialization point: if a
// concurrent rotation already revoked the old record this call lost the
// race, discards its just-created child and fails like any revoked token.
//
// Reuse of an already-revoked token is treated as replay: the whole chain of
// successors is revoked, since reuse indicates the chain may be stolen.
//
// Returns the superseded record so the caller can re-issue an access token
// for the same identity.
func (m *TokenManager) RotateRefresh(ctx context.Context, plaintext string, meta Meta) (models.RefreshToken, models.IssuedToken, error) {
	var fresh models.IssuedToken

	old, err := m.refreshRepo.Find(ctx, plaintext)
	if err != nil {
		if errors.Is(err, apperrors.ErrRefreshTokenNotFound) {
			m.logger.Info("refresh rejected: token not recognized")
		}
		return old, fresh, fmt.Errorf("error while rotating refresh token. Err: %w", err)
	}

	if old.Revoked {
		revoked, chainErr := m.refreshRepo.RevokeChain(ctx, old.TokenHash)
		if chainErr != nil {
			m.logger.Error("failed to revoke descendants of reused token", "error", chainErr.Error())
		}
		m.logger.Warn("refresh rejected: reuse of revoked token, chain revoked",
			"user_id", old.UserID, "descendants_revoked", revoked)
		return old, fresh, fmt.Errorf("error while rotating refresh token. Err: %w", apperrors.ErrRefreshTokenRevoked)
	}

	if old.Expired(time.Now()) {
		m.logger.Info("refresh rejected: token expired", "user_id", old.UserID)
		return old, fresh, fmt.Errorf("error while rotating refresh token. Err: %w", apperrors.ErrRefreshTokenExpired)
	}

	fresh, err = m.IssueRefresh(ctx, models.User{ID: old.UserID, Email: old.Email}, meta)
	if err != nil {
		return old, fresh, err
	}

	freshHash := tokenhash.Hash(fresh.Value)
	superseded, err := m.refreshRepo.Revoke(ctx, old.ID, &freshHash)
	if err != nil {
		// Race loss: someone else rotated the same token first. The child
		// created above must not stay live, delete it before failing.
		if errors.Is(err, apperrors.ErrRefreshTokenRevoked) {
			if delErr := m.refreshRepo.DeleteByHash(ctx, freshHash); delErr != nil {
				m.logger.Error("failed to discard child of lost rotation race", "error", delErr.Error())
			}
			m.logger.Warn("refresh rejected: lost rotation race", "user_id", old.UserID)
			return old, models.IssuedToken{}, fmt.Errorf("error while rotating refresh token. Err: %w", err)
		}
		return old, models.IssuedToken{}, fmt.Errorf("error while rotating refresh token. Err: %w", err)
	}

	return superseded, fresh, nil
}

// RevokeRefresh revokes the presented token (logout). Idempotent and
// non-oracular: an unknown or already-revoked token succeeds the same way a
// live one does, so the response leaks nothing about token existence.
func (m *TokenManager) RevokeRefresh(ctx context.Context, plaintext string) error {
	token, err := m.refreshRepo.Find(ctx, plaintext)
	if err != nil {
		if errors.Is(err, apperrors.ErrRefreshTokenNotFound) {
			m.logger.Debug("logout with unrecognized token")
			return nil
		}
		return fmt.Errorf("error while revoking refresh token. Err: %w", err)
	}

	_, err = m.refreshRepo.Revoke(ctx, token.ID, nil)
	if err != nil {
		if errors.Is(err, apperrors.ErrRefreshTokenRevoked) {
			m.logger.Debug("logout with already revoked token", "user_id", token.UserID)
			return nil
		}
		return fmt.Errorf("error while revoking refresh token. Err: %w", err)
	}

	return nil
}

// RevokeAllForUser revokes every live token of the user ("log out everywhere")
func (m *TokenManager) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := m.refreshRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error while revoking user tokens. Err: %w", err)
	}
	return count, nil
}
