package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/repository"
	"github.com/impenglish/backend/internal/tokenhash"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const tokenColumns = `id, token_hash, user_id, email, created_at, expires_at, last_used_at, ip_address, device_info, revoked, revoked_at, replaced_by_hash`

const createToken = `-- name: CreateToken
INSERT INTO refresh_tokens (id, token_hash, user_id, email, expires_at, ip_address, device_info)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + tokenColumns

func (r *RefreshTokenRepo) Create(ctx context.Context, plaintext string, params repository.CreateTokenParams) (models.RefreshToken, error) {
	digest := tokenhash.Hash(plaintext)

	rows, _ := r.DB.Query(ctx, createToken,
		uuid.New(), digest, params.UserID, params.Email, params.ExpiresAt, params.IPAddress, params.DeviceInfo)
	token, err := pgx.CollectOneRow(rows, rowToToken)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return token, apperrors.ErrTokenDigestConflict
		}

		return token, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

const findToken = `-- name: FindToken
SELECT ` + tokenColumns + `
FROM refresh_tokens
WHERE token_hash = $1
`

// Find record by plaintext token
// Returns the record even if it is revoked or expired: the lifecycle layer
// distinguishes those cases so they can be logged as distinct reasons
func (r *RefreshTokenRepo) Find(ctx context.Context, plaintext string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, findToken, tokenhash.Hash(plaintext))
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrRefreshTokenNotFound
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeToken = `-- name: RevokeToken
UPDATE refresh_tokens
SET revoked          = TRUE,
    revoked_at       = now(),
    replaced_by_hash = $2,
    last_used_at     = CASE WHEN $2::text IS NOT NULL THEN now() ELSE last_used_at END
WHERE id = $1 AND revoked = FALSE
RETURNING ` + tokenColumns

// Revoke marks the record revoked. The 'revoked = FALSE' condition makes the
// false -> true transition atomic: of two concurrent rotations exactly one
// gets the row, the other gets ErrRefreshTokenRevoked and must treat it as a
// race loss.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenID uuid.UUID, replacedByHash *string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, revokeToken, tokenID, replacedByHash)
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrRefreshTokenRevoked
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeChain = `-- name: RevokeChain
WITH RECURSIVE chain AS (
    SELECT id, token_hash, replaced_by_hash
    FROM refresh_tokens
    WHERE token_hash = $1
  UNION ALL
    SELECT rt.id, rt.token_hash, rt.replaced_by_hash
    FROM refresh_tokens rt
    JOIN chain c ON rt.token_hash = c.replaced_by_hash
)
UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = now()
WHERE id IN (SELECT id FROM chain) AND revoked = FALSE
`

// RevokeChain follows replaced_by_hash links forward from startHash and
// revokes every live descendant. Used when reuse of a superseded token
// signals that the whole chain may be stolen.
func (r *RefreshTokenRepo) RevokeChain(ctx context.Context, startHash string) (int64, error) {
	tag, err := r.DB.Exec(ctx, revokeChain, startHash)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const revokeAllForUser = `-- name: RevokeAllForUser
UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = now()
WHERE user_id = $1 AND revoked = FALSE
`

func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.DB.Exec(ctx, revokeAllForUser, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteByHash = `-- name: DeleteByHash
DELETE FROM refresh_tokens
WHERE token_hash = $1
`

func (r *RefreshTokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.Exec(ctx, deleteByHash, tokenHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteExpired = `-- name: DeleteExpired
DELETE FROM refresh_tokens
WHERE expires_at < now()
`

// DeleteExpired removes records past their TTL. Expired records are inert
// for authorization already, so the sweep never races a live transition.
func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpired)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const listAllTokens = `-- name: ListAllTokens
SELECT ` + tokenColumns + `
FROM refresh_tokens
ORDER BY created_at
`

func (r *RefreshTokenRepo) ListAll(ctx context.Context) ([]models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, listAllTokens)
	tokens, err := pgx.CollectRows(rows, rowToToken)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tokens, nil
}

const deleteAllTokens = `-- name: DeleteAllTokens
DELETE FROM refresh_tokens
`

func (r *RefreshTokenRepo) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteAllTokens)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(
		&t.ID, &t.TokenHash, &t.UserID, &t.Email, &t.CreatedAt, &t.ExpiresAt,
		&t.LastUsedAt, &t.IPAddress, &t.DeviceInfo, &t.Revoked, &t.RevokedAt, &t.ReplacedBy,
	)
	return t, err
}
