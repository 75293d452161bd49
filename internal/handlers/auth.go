package handlers

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/handlers/render"
	"github.com/impenglish/backend/internal/logger"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/service/auth/tokenmanager"
)

// One message for every refresh failure reason. A caller must not be able to
// tell "never existed" from "revoked" from "expired".
const refreshRejectedMsg = "Invalid or expired refresh token"

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func newTokenPairResponse(pair models.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	}
}

// metaFromRequest collects the client address and device info recorded with
// each refresh token
func metaFromRequest(r *http.Request) tokenmanager.Meta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		// First address is the originating client
		ip = strings.TrimSpace(strings.SplitN(ip, ",", 2)[0])
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}

	return tokenmanager.Meta{
		IPAddress:  ip,
		DeviceInfo: r.UserAgent(),
	}
}

func handleLogin(auth authService, logger logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		tokenPairResponse
		User userResponse `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, user, err := auth.Login(r.Context(), data.Email, data.Password, metaFromRequest(r))
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.ServiceError(w, "Invalid email or password", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrUserNotVerified):
				render.ServiceError(w, "Account is not verified", http.StatusUnauthorized)
			default:
				logger.Error("Login failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		auth.SetTokenPairToResponse(w, pair)
		render.JSON(w, response{
			tokenPairResponse: newTokenPairResponse(pair),
			User:              newUserResponse(user),
		})
	})
}

func handleTokenRefresh(auth authService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := auth.GetRefreshString(r)
		if err != nil {
			render.ServiceError(w, "Refresh token is missing", http.StatusBadRequest)
			return
		}

		pair, err := auth.Refresh(r.Context(), refresh, metaFromRequest(r))
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrRefreshTokenNotFound),
				errors.Is(err, apperrors.ErrRefreshTokenRevoked),
				errors.Is(err, apperrors.ErrRefreshTokenExpired):
				render.ServiceError(w, refreshRejectedMsg, http.StatusForbidden)
			default:
				logger.Error("Token refresh failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		auth.SetTokenPairToResponse(w, pair)
		render.JSON(w, newTokenPairResponse(pair))
	})
}

func handleLogout(auth authService, logger logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := auth.GetRefreshString(r)
		if err != nil {
			render.ServiceError(w, "Refresh token is missing", http.StatusBadRequest)
			return
		}

		// Revoking unknown or already revoked tokens succeeds too, the
		// response must not reveal whether the token was live
		if err := auth.Logout(r.Context(), refresh); err != nil {
			logger.Error("Logout failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		auth.ClearRefreshCookie(w)
		render.JSON(w, response{Message: "Logged out successfully"})
	})
}

func handleRevokeUserTokens(auth authService, logger logger.Logger) http.Handler {
	type response struct {
		Revoked int64 `json:"revoked"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		revoked, err := auth.RevokeAllForUser(r.Context(), userID)
		if err != nil {
			logger.Error("Failed to revoke user tokens", "error", err.Error(), "userID", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Revoked: revoked})
	})
}

func handleListTokens(auth authService, logger logger.Logger) http.Handler {
	type tokenRecord struct {
		ID         uuid.UUID  `json:"id"`
		UserID     uuid.UUID  `json:"userId"`
		Email      string     `json:"email"`
		CreatedAt  time.Time  `json:"createdAt"`
		ExpiresAt  time.Time  `json:"expiresAt"`
		LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
		IPAddress  string     `json:"ipAddress,omitempty"`
		DeviceInfo string     `json:"deviceInfo,omitempty"`
		Revoked    bool       `json:"revoked"`
		RevokedAt  *time.Time `json:"revokedAt,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens, err := auth.ListTokens(r.Context())
		if err != nil {
			logger.Error("Failed to list tokens", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		records := make([]tokenRecord, 0, len(tokens))
		for _, t := range tokens {
			records = append(records, tokenRecord{
				ID:         t.ID,
				UserID:     t.UserID,
				Email:      t.Email,
				CreatedAt:  t.CreatedAt,
				ExpiresAt:  t.ExpiresAt,
				LastUsedAt: t.LastUsedAt,
				IPAddress:  t.IPAddress,
				DeviceInfo: t.DeviceInfo,
				Revoked:    t.Revoked,
				RevokedAt:  t.RevokedAt,
			})
		}

		render.JSON(w, records)
	})
}

func handleDeleteAllTokens(auth authService, logger logger.Logger) http.Handler {
	type response struct {
		Deleted int64 `json:"deleted"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deleted, err := auth.DeleteAllTokens(r.Context())
		if err != nil {
			logger.Error("Failed to delete tokens", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Deleted: deleted})
	})
}
