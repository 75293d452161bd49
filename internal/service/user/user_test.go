package user

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/repository"
	"github.com/impenglish/backend/internal/repository/postgres"
	"github.com/impenglish/backend/internal/service/auth"
	"github.com/impenglish/backend/internal/testutil"
)

// OTP service stub recording sends and failing verification on demand
type fakeOTP struct {
	sent      []string
	verifyErr error
}

func (f *fakeOTP) Send(ctx context.Context, email string) error {
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeOTP) Verify(ctx context.Context, email string, code string) error {
	return f.verifyErr
}

func Test_UserService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	hasher := auth.BcryptHasher{}

	withService := func(t *testing.T, fn func(s *UserService, otp *fakeOTP, storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			otp := &fakeOTP{}
			storage := postgres.NewStorage(tx)

			s := NewService(hasher, otp, storage, nil)

			fn(s, otp, storage)
		})
	}

	t.Run("register new user", func(t *testing.T) {
		withService(t, func(s *UserService, otp *fakeOTP, _ repository.Storage) {
			user, err := s.Register(t.Context(), "New User", "new@example.com", "password-123")

			require.NoError(t, err)
			assert.Equal(t, "new@example.com", user.Email)
			assert.Equal(t, "New User", user.FullName)
			assert.False(t, user.Verified, "registration starts unverified")
			assert.NotEqual(t, "password-123", user.HashedPassword, "password must be hashed")
			require.NoError(t, hasher.Compare(user.HashedPassword, "password-123"))

			require.Equal(t, []string{"new@example.com"}, otp.sent, "verification code must be sent")
		})
	})

	t.Run("register verified email fails", func(t *testing.T) {
		withService(t, func(s *UserService, otp *fakeOTP, storage repository.Storage) {
			_, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
				Email:          "taken@example.com",
				HashedPassword: "hashed_password",
				Verified:       true,
			})
			require.NoError(t, err)

			_, err = s.Register(t.Context(), "Late Comer", "taken@example.com", "password-123")

			assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
			assert.Empty(t, otp.sent, "no code for failed registration")
		})
	})

	t.Run("register unverified email restarts verification", func(t *testing.T) {
		withService(t, func(s *UserService, otp *fakeOTP, _ repository.Storage) {
			first, err := s.Register(t.Context(), "First Try", "retry@example.com", "password-one")
			require.NoError(t, err)

			second, err := s.Register(t.Context(), "Second Try", "retry@example.com", "password-two")

			require.NoError(t, err)
			assert.Equal(t, first.ID, second.ID, "same account, updated in place")
			assert.Equal(t, "Second Try", second.FullName)
			require.NoError(t, hasher.Compare(second.HashedPassword, "password-two"), "password must be replaced")
			require.Len(t, otp.sent, 2, "each attempt sends a fresh code")
		})
	})

	t.Run("verify email", func(t *testing.T) {
		withService(t, func(s *UserService, otp *fakeOTP, storage repository.Storage) {
			user, err := s.Register(t.Context(), "Verify Me", "verify@example.com", "password-123")
			require.NoError(t, err)

			err = s.VerifyEmail(t.Context(), "verify@example.com", "123456")
			require.NoError(t, err)

			got, err := storage.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			assert.True(t, got.Verified)
		})
	})

	t.Run("verify unknown email", func(t *testing.T) {
		withService(t, func(s *UserService, _ *fakeOTP, _ repository.Storage) {
			err := s.VerifyEmail(t.Context(), "nobody@example.com", "123456")
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("verify with bad code stays unverified", func(t *testing.T) {
		withService(t, func(s *UserService, otp *fakeOTP, storage repository.Storage) {
			user, err := s.Register(t.Context(), "Still Waiting", "waiting@example.com", "password-123")
			require.NoError(t, err)

			otp.verifyErr = apperrors.ErrOTPInvalid
			err = s.VerifyEmail(t.Context(), "waiting@example.com", "000000")

			assert.ErrorIs(t, err, apperrors.ErrOTPInvalid)

			got, err := storage.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			assert.False(t, got.Verified)
		})
	})

	t.Run("update user hashes new password", func(t *testing.T) {
		withService(t, func(s *UserService, _ *fakeOTP, _ repository.Storage) {
			user, err := s.Register(t.Context(), "Updatable", "update@example.com", "password-old")
			require.NoError(t, err)

			password := "password-new"
			got, err := s.UpdateUser(t.Context(), user.ID, UpdateParams{Password: &password})

			require.NoError(t, err)
			require.NoError(t, hasher.Compare(got.HashedPassword, "password-new"))
			require.Error(t, hasher.Compare(got.HashedPassword, "password-old"))
		})
	})

	t.Run("delete and list", func(t *testing.T) {
		withService(t, func(s *UserService, _ *fakeOTP, _ repository.Storage) {
			user, err := s.Register(t.Context(), "Doomed", "doomed@example.com", "password-123")
			require.NoError(t, err)
			_, err = s.Register(t.Context(), "Survivor", "survivor@example.com", "password-123")
			require.NoError(t, err)

			require.NoError(t, s.DeleteUser(t.Context(), user.ID))

			users, err := s.ListUsers(t.Context())
			require.NoError(t, err)
			require.Len(t, users, 1)
			assert.Equal(t, "survivor@example.com", users[0].Email)
		})
	})
}
