package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/models"
)

type OTPRepo struct {
	DB DBTX
}

const upsertOTP = `-- name: UpsertOTP
INSERT INTO otps (email, code, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE
SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, created_at = now()
RETURNING email, code, created_at, expires_at
`

// Upsert replaces the previous code for the email, resetting its TTL.
// At most one code per email exists at any time.
func (r *OTPRepo) Upsert(ctx context.Context, otp models.OTP) (models.OTP, error) {
	rows, _ := r.DB.Query(ctx, upsertOTP, otp.Email, otp.Code, otp.ExpiresAt)
	saved, err := pgx.CollectOneRow(rows, rowToOTP)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const getOTP = `-- name: GetOTP
SELECT email, code, created_at, expires_at
FROM otps
WHERE email = $1
`

func (r *OTPRepo) Get(ctx context.Context, email string) (models.OTP, error) {
	rows, _ := r.DB.Query(ctx, getOTP, email)
	otp, err := pgx.CollectOneRow(rows, rowToOTP)

	switch {
	case err == nil:
		return otp, nil
	case errors.Is(err, pgx.ErrNoRows):
		return otp, apperrors.ErrOTPAbsent
	default:
		return otp, fmt.Errorf("db error: %w", err)
	}
}

const deleteOTP = `-- name: DeleteOTP
DELETE FROM otps
WHERE email = $1
`

func (r *OTPRepo) Delete(ctx context.Context, email string) error {
	_, err := r.DB.Exec(ctx, deleteOTP, email)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const listOTPs = `-- name: ListOTPs
SELECT email, code, created_at, expires_at
FROM otps
ORDER BY created_at
`

func (r *OTPRepo) List(ctx context.Context) ([]models.OTP, error) {
	rows, _ := r.DB.Query(ctx, listOTPs)
	otps, err := pgx.CollectRows(rows, rowToOTP)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return otps, nil
}

func rowToOTP(row pgx.CollectableRow) (models.OTP, error) {
	var o models.OTP
	err := row.Scan(&o.Email, &o.Code, &o.CreatedAt, &o.ExpiresAt)
	return o, err
}
