package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/handlers/render"
	"github.com/impenglish/backend/internal/handlers/userctx"
	"github.com/impenglish/backend/internal/logger"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/service/user"
)

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Verified:  u.Verified,
		Type:      u.Type,
		CreatedAt: u.CreatedAt,
	}
}

func handleRegister(users userService, logger logger.Logger) http.Handler {
	type request struct {
		FullName string `json:"fullName" validate:"required,min=2,max=100"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}
	type response struct {
		Message string       `json:"message"`
		User    userResponse `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := users.Register(r.Context(), data.FullName, data.Email, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "User already exists", http.StatusConflict)
			default:
				logger.Error("Registration failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{
			Message: "Verification code sent",
			User:    newUserResponse(u),
		})
	})
}

func handleVerifyOTP(users userService, logger logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email" validate:"required,email"`
		OTP   string `json:"otp" validate:"required,len=6"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = users.VerifyEmail(r.Context(), data.Email, data.OTP)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			case errors.Is(err, apperrors.ErrOTPInvalid):
				render.ServiceError(w, "Invalid verification code", http.StatusBadRequest)
			case errors.Is(err, apperrors.ErrOTPExpired):
				render.ServiceError(w, "Verification code expired", http.StatusBadRequest)
			default:
				logger.Error("OTP verification failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{Message: "Account verified successfully"})
	})
}

func handleResendOTP(otp otpService, logger logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email" validate:"required,email"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = otp.Resend(r.Context(), data.Email)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrOTPAbsent):
				render.ServiceError(w, "No verification in progress for this email", http.StatusNotFound)
			default:
				logger.Error("OTP resend failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{Message: "Verification code sent"})
	})
}

func handleUserProfile() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newUserResponse(u))
	})
}

func handleUpdateProfile(users userService, logger logger.Logger) http.Handler {
	type request struct {
		FullName *string `json:"fullName" validate:"omitempty,min=2,max=100"`
		Password *string `json:"password" validate:"omitempty,min=8"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		updated, err := users.UpdateUser(r.Context(), u.ID, user.UpdateParams{
			FullName: data.FullName,
			Password: data.Password,
		})
		if err != nil {
			logger.Error("Profile update failed", "error", err.Error(), "userID", u.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newUserResponse(updated))
	})
}

func handleGetUser(users userService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		u, err := users.GetUser(r.Context(), userID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				logger.Error("Failed to fetch user", "error", err.Error(), "userID", userID)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newUserResponse(u))
	})
}

func handleDeleteUser(users userService, logger logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		err = users.DeleteUser(r.Context(), userID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				logger.Error("Failed to delete user", "error", err.Error(), "userID", userID)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{Message: "User deleted"})
	})
}

func handleListUsers(users userService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		all, err := users.ListUsers(r.Context())
		if err != nil {
			logger.Error("Failed to list users", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		list := make([]userResponse, 0, len(all))
		for _, u := range all {
			list = append(list, newUserResponse(u))
		}

		render.JSON(w, list)
	})
}
