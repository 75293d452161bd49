package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/logger"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/repository"
	"github.com/impenglish/backend/internal/service/auth/tokenmanager"
)

const (
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
	defaultRefreshCookieName = "refreshToken"
	defaultRefreshCookiePath = "/api/auth"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// Used to equalize login work when the email is unknown, so that "no such
// user" and "wrong password" are not distinguishable by response timing.
// bcrypt hash of an unguessable throwaway value.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type Config struct {
	// Header and scheme used to pass the access token
	AccessHeaderName string
	AccessAuthScheme string

	// Cookie carrying the refresh token between rotations
	RefreshCookieName string
	RefreshCookiePath string

	// Hasher used to compare user passwords on login
	// BcryptHasher is used if not set
	Hasher PasswordHasher
}

// AuthService exposes login, refresh and logout to the HTTP boundary.
// It composes the token manager with user credential verification.
type AuthService struct {
	accessHeaderName  string
	accessAuthScheme  string
	refreshCookieName string
	refreshCookiePath string

	hasher  PasswordHasher
	token   *tokenmanager.TokenManager
	storage repository.Storage
	logger  logger.Logger
}

func NewService(cfg Config, token *tokenmanager.TokenManager, storage repository.Storage, l logger.Logger) (*AuthService, error) {
	setDefaultString := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefaultString(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefaultString(&cfg.AccessAuthScheme, defaultAccessAuthScheme)
	setDefaultString(&cfg.RefreshCookieName, defaultRefreshCookieName)
	setDefaultString(&cfg.RefreshCookiePath, defaultRefreshCookiePath)

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &AuthService{
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
		refreshCookieName: cfg.RefreshCookieName,
		refreshCookiePath: cfg.RefreshCookiePath,
		hasher:            hasher,
		token:             token,
		storage:           storage,
		logger:            l,
	}, nil
}

// Login verifies credentials and issues a token pair. Unknown email and
// wrong password both fail with ErrInvalidCredentials so accounts can not
// be enumerated.
func (s *AuthService) Login(ctx context.Context, email string, password string, meta tokenmanager.Meta) (models.TokenPair, models.User, error) {
	var pair models.TokenPair

	user, err := s.storage.User().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Burn comparable time before failing
			_ = s.hasher.Compare(dummyPasswordHash, password)
			return pair, user, apperrors.ErrInvalidCredentials
		}
		return pair, user, fmt.Errorf("error while fetching user. Err: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return pair, user, apperrors.ErrInvalidCredentials
	}

	if !user.Verified {
		return pair, user, apperrors.ErrUserNotVerified
	}

	pair, err = s.token.GeneratePair(ctx, user, meta)
	if err != nil {
		return pair, user, fmt.Errorf("error while generating token pair. Err: %w", err)
	}

	return pair, user, nil
}

// Refresh rotates the presented refresh token and issues a fresh access
// token for the same identity
func (s *AuthService) Refresh(ctx context.Context, refresh string, meta tokenmanager.Meta) (models.TokenPair, error) {
	var pair models.TokenPair

	old, fresh, err := s.token.RotateRefresh(ctx, refresh, meta)
	if err != nil {
		return pair, err
	}

	// The refresh record carries only the identity projection, the access
	// token needs the current user type
	user, err := s.storage.User().GetUserByID(ctx, old.UserID)
	if err != nil {
		return pair, fmt.Errorf("error while fetching token owner. Err: %w", err)
	}

	access, err := s.token.IssueAccess(user)
	if err != nil {
		return pair, err
	}

	return models.TokenPair{Access: access, Refresh: fresh}, nil
}

// Logout revokes the presented refresh token. Idempotent: revoking a token
// that is unknown or already revoked succeeds silently.
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	return s.token.RevokeRefresh(ctx, refresh)
}

// RevokeAllForUser revokes every live refresh token of the user
func (s *AuthService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.token.RevokeAllForUser(ctx, userID)
}

// ListTokens returns every refresh token record. Administrative.
func (s *AuthService) ListTokens(ctx context.Context) ([]models.RefreshToken, error) {
	return s.storage.Refresh().ListAll(ctx)
}

// DeleteAllTokens drops every refresh token record. Administrative.
func (s *AuthService) DeleteAllTokens(ctx context.Context) (int64, error) {
	return s.storage.Refresh().DeleteAll(ctx)
}

// GetUserFromRequest authenticates the request by its access token and
// returns the owning user
func (s *AuthService) GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	header := r.Header.Get(s.accessHeaderName)
	if header == "" {
		return user, errors.New("authorization header is missing")
	}

	access, found := strings.CutPrefix(header, s.accessAuthScheme+" ")
	if !found {
		return user, errors.New("authorization header has unexpected scheme")
	}

	claims, err := s.token.ParseAccess(access)
	if err != nil {
		return user, err
	}

	return s.storage.User().GetUserByID(ctx, claims.UserID)
}

// SetTokenPairToResponse writes the access token to the auth header and the
// refresh token to an httpOnly cookie
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)
	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    pair.Refresh.Value,
		Path:     s.refreshCookiePath,
		Expires:  pair.Refresh.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearRefreshCookie drops the refresh cookie on logout
func (s *AuthService) ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    "",
		Path:     s.refreshCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetRefreshString extracts the refresh token from the request: the cookie
// is canonical, the JSON body {"refreshToken": ...} is the fallback for
// clients that do not keep cookies
func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.RefreshToken != "" {
		return body.RefreshToken, nil
	}

	return "", errors.New("refresh token is missing")
}
