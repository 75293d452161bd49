package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/impenglish/backend/internal/handlers/middleware"
	"github.com/impenglish/backend/internal/logger"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/service/auth/tokenmanager"
	"github.com/impenglish/backend/internal/service/user"
	"github.com/impenglish/backend/internal/service/vocabulary"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	auth authService,
	users userService,
	otp otpService,
	vocab vocabService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(auth)
	adminMiddleware := middleware.AdminMiddleware()

	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}
	withAdmin := func(h http.Handler) http.Handler {
		return chain(h, authMiddleware, adminMiddleware)
	}

	apiauth := http.NewServeMux()
	apiauth.Handle("POST /login", handleLogin(auth, logger))
	apiauth.Handle("POST /refresh-token", handleTokenRefresh(auth, logger))
	apiauth.Handle("POST /logout", handleLogout(auth, logger))
	apiauth.Handle("POST /users/{id}/revoke", withAdmin(handleRevokeUserTokens(auth, logger)))
	apiauth.Handle("GET /tokens", withAdmin(handleListTokens(auth, logger)))
	apiauth.Handle("DELETE /tokens", withAdmin(handleDeleteAllTokens(auth, logger)))

	apiusers := http.NewServeMux()
	apiusers.Handle("POST /register", handleRegister(users, logger))
	apiusers.Handle("POST /verify-otp", handleVerifyOTP(users, logger))
	apiusers.Handle("POST /resend-otp", handleResendOTP(otp, logger))
	apiusers.Handle("GET /profile", withAuth(handleUserProfile()))
	apiusers.Handle("PATCH /profile", withAuth(handleUpdateProfile(users, logger)))
	apiusers.Handle("GET /{$}", withAdmin(handleListUsers(users, logger)))
	apiusers.Handle("GET /{id}", withAdmin(handleGetUser(users, logger)))
	apiusers.Handle("DELETE /{id}", withAdmin(handleDeleteUser(users, logger)))

	apivocab := http.NewServeMux()
	apivocab.Handle("GET /all", handleVocabularyAll(vocab, logger))
	apivocab.Handle("GET /topic/{topic}", handleVocabularyByTopic(vocab, logger))
	apivocab.Handle("GET /flashcards", handleVocabularyFlashcards(vocab, logger))
	apivocab.Handle("GET /flashcards/{topic}", handleVocabularyFlashcards(vocab, logger))
	apivocab.Handle("GET /random", handleVocabularyRandom(vocab, logger))
	apivocab.Handle("GET /multi-meaning", handleVocabularyMultiMeaning(vocab, logger))

	root := http.NewServeMux()
	root.Handle("/api/auth/", http.StripPrefix("/api/auth", apiauth))
	root.Handle("/api/users/", http.StripPrefix("/api/users", apiusers))
	root.Handle("/api/vocabulary/", http.StripPrefix("/api/vocabulary", apivocab))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Login user with email and password
	// Unknown email and wrong password both fail with apperrors.ErrInvalidCredentials,
	// unverified accounts with apperrors.ErrUserNotVerified
	Login(ctx context.Context, email string, password string, meta tokenmanager.Meta) (models.TokenPair, models.User, error)

	// Rotate the refresh token and issue a fresh pair
	// Unknown token: apperrors.ErrRefreshTokenNotFound
	// Revoked token: apperrors.ErrRefreshTokenRevoked
	// Expired token: apperrors.ErrRefreshTokenExpired
	Refresh(ctx context.Context, refresh string, meta tokenmanager.Meta) (models.TokenPair, error)

	// Revoke the refresh token, idempotent
	Logout(ctx context.Context, refresh string) error

	// Revoke every live token of the user, returns number revoked
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// Administrative token listing and purge
	ListTokens(ctx context.Context) ([]models.RefreshToken, error)
	DeleteAllTokens(ctx context.Context) (int64, error)

	// Get request and return user if it authenticated or error
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)

	// Set auth tokens (access, refresh) to response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)
	ClearRefreshCookie(w http.ResponseWriter)

	// Get refresh token from request
	GetRefreshString(r *http.Request) (string, error)
}

type userService interface {
	// Register user and send the verification code
	// Has to return apperrors.ErrUserAlreadyExists if a verified user exists
	Register(ctx context.Context, fullName string, email string, password string) (models.User, error)

	// Consume the code and mark the account verified
	VerifyEmail(ctx context.Context, email string, code string) error

	GetUser(ctx context.Context, userID uuid.UUID) (models.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, params user.UpdateParams) (models.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

type otpService interface {
	// Replace the outstanding code for the email
	// Has to return apperrors.ErrOTPAbsent if no verification is in progress
	Resend(ctx context.Context, email string) error
}

type vocabService interface {
	List(ctx context.Context, opts vocabulary.ListOptions) (vocabulary.Page, error)
	ByTopic(ctx context.Context, topic string, opts vocabulary.ListOptions) (vocabulary.Page, error)
	MultipleMeanings(ctx context.Context, opts vocabulary.ListOptions) (vocabulary.Page, error)
	Flashcards(ctx context.Context, topic string, opts vocabulary.ListOptions) (vocabulary.FlashcardPage, error)
	Random(ctx context.Context, count int, topic string, level string) ([]models.Vocabulary, error)
}
