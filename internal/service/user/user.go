package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/logger"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/repository"
	"github.com/impenglish/backend/internal/service/auth"
)

// OTP issue and verification, implemented by the otp service
type OTPService interface {
	Send(ctx context.Context, email string) error
	Verify(ctx context.Context, email string, code string) error
}

// UserService owns registration and account management
type UserService struct {
	hasher  auth.PasswordHasher
	otp     OTPService
	storage repository.Storage
	logger  logger.Logger
}

func NewService(hasher auth.PasswordHasher, otp OTPService, storage repository.Storage, l logger.Logger) *UserService {
	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &UserService{
		hasher:  hasher,
		otp:     otp,
		storage: storage,
		logger:  l,
	}
}

// Register creates an unverified account and sends the verification code.
// Registering an email that exists but was never verified updates the name
// and password instead of failing, a verified email fails with
// ErrUserAlreadyExists.
func (s *UserService) Register(ctx context.Context, fullName string, email string, password string) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	existing, err := s.storage.User().GetUserByEmail(ctx, email)
	switch {
	case err == nil && existing.Verified:
		return user, apperrors.ErrUserAlreadyExists

	case err == nil:
		// Unfinished registration: refresh the account data and restart
		// verification
		user, err = s.storage.User().UpdateUser(ctx, existing.ID, repository.UpdateUserParams{
			FullName:       &fullName,
			HashedPassword: &hash,
		})
		if err != nil {
			return user, fmt.Errorf("error while updating unverified user. Err: %w", err)
		}

	case errors.Is(err, apperrors.ErrUserNotFound):
		user, err = s.storage.User().CreateUser(ctx, repository.CreateUserParams{
			Email:          email,
			FullName:       fullName,
			HashedPassword: hash,
		})
		if err != nil {
			return user, fmt.Errorf("error while creating user. Err: %w", err)
		}

	default:
		return user, fmt.Errorf("error while fetching user. Err: %w", err)
	}

	if err := s.otp.Send(ctx, email); err != nil {
		return user, fmt.Errorf("error while sending verification code. Err: %w", err)
	}

	return user, nil
}

// VerifyEmail consumes the code and marks the account verified
func (s *UserService) VerifyEmail(ctx context.Context, email string, code string) error {
	user, err := s.storage.User().GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.otp.Verify(ctx, email, code); err != nil {
		return err
	}

	verified := true
	_, err = s.storage.User().UpdateUser(ctx, user.ID, repository.UpdateUserParams{Verified: &verified})
	if err != nil {
		return fmt.Errorf("error while marking user verified. Err: %w", err)
	}

	return nil
}

func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

// Params to update user profile. Password is plaintext and hashed here.
type UpdateParams struct {
	FullName *string
	Password *string
}

func (s *UserService) UpdateUser(ctx context.Context, userID uuid.UUID, params UpdateParams) (models.User, error) {
	repoParams := repository.UpdateUserParams{FullName: params.FullName}

	if params.Password != nil {
		hash, err := s.hasher.Hash(*params.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("can't use this as password, Err: %w", err)
		}
		repoParams.HashedPassword = &hash
	}

	return s.storage.User().UpdateUser(ctx, userID, repoParams)
}

func (s *UserService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.storage.User().DeleteUser(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.storage.User().ListUsers(ctx)
}
