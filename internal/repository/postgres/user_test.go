package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/repository"
	"github.com/impenglish/backend/internal/testutil"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	params := repository.CreateUserParams{
		Email:          "user@example.com",
		FullName:       "Some User",
		HashedPassword: "hashed_password",
	}

	t.Run("create user ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			got, err := repo.CreateUser(t.Context(), params)

			require.NoError(t, err)
			require.NotEqual(t, uuid.Nil, got.ID)
			require.Equal(t, params.Email, got.Email)
			require.Equal(t, params.FullName, got.FullName)
			require.Equal(t, params.HashedPassword, got.HashedPassword)
			require.False(t, got.Verified, "user must start unverified")
			require.Equal(t, models.UserTypeRegular, got.Type, "default user type expected")
		})
	})

	t.Run("create admin", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			got, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
				Email:          "admin@example.com",
				HashedPassword: "hashed_password",
				Verified:       true,
				Type:           models.UserTypeAdmin,
			})

			require.NoError(t, err)
			require.True(t, got.Verified)
			require.True(t, got.IsAdmin())
		})
	})

	t.Run("duplicate email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			_, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			_, err = repo.CreateUser(t.Context(), params)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("get by id and email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			got, err := repo.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)

			got, err = repo.GetUserByEmail(t.Context(), params.Email)
			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)
		})
	})

	t.Run("get not existed", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			_, err := repo.GetUserByID(t.Context(), uuid.New())
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

			_, err = repo.GetUserByEmail(t.Context(), "nobody@example.com")
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("update set fields only", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			verified := true
			got, err := repo.UpdateUser(t.Context(), created.ID, repository.UpdateUserParams{Verified: &verified})

			require.NoError(t, err)
			require.True(t, got.Verified)
			require.Equal(t, created.FullName, got.FullName, "unset fields must stay untouched")
			require.Equal(t, created.HashedPassword, got.HashedPassword, "unset fields must stay untouched")

			name := "Renamed User"
			got, err = repo.UpdateUser(t.Context(), created.ID, repository.UpdateUserParams{FullName: &name})

			require.NoError(t, err)
			require.Equal(t, "Renamed User", got.FullName)
			require.True(t, got.Verified, "earlier update must persist")
		})
	})

	t.Run("update not existed", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			name := "Ghost"
			_, err := repo.UpdateUser(t.Context(), uuid.New(), repository.UpdateUserParams{FullName: &name})

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("delete user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			err = repo.DeleteUser(t.Context(), created.ID)
			require.NoError(t, err)

			_, err = repo.GetUserByID(t.Context(), created.ID)
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

			err = repo.DeleteUser(t.Context(), created.ID)
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "second delete must report missing user")
		})
	})

	t.Run("delete cascades to tokens", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			tokenRepo := RefreshTokenRepo{DB: tx}

			created, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			_, err = tokenRepo.Create(t.Context(), "cascade-token", repository.CreateTokenParams{
				UserID:    created.ID,
				Email:     created.Email,
				ExpiresAt: mustParseTime("2200-01-01 03:00:02Z"),
			})
			require.NoError(t, err)

			err = repo.DeleteUser(t.Context(), created.ID)
			require.NoError(t, err)

			_, err = tokenRepo.Find(t.Context(), "cascade-token")
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "tokens must be deleted with their user")
		})
	})

	t.Run("list users", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			_, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)
			_, err = repo.CreateUser(t.Context(), repository.CreateUserParams{
				Email:          "second@example.com",
				HashedPassword: "hashed_password",
			})
			require.NoError(t, err)

			users, err := repo.ListUsers(t.Context())

			require.NoError(t, err)
			require.Len(t, users, 2)
		})
	})
}
