package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/logger"
	"github.com/impenglish/backend/internal/mailer"
	"github.com/impenglish/backend/internal/models"
	"github.com/impenglish/backend/internal/repository"
)

const defaultTTL = time.Minute

const mailSubject = "Your OTP Code"

// Kept close to the original notification layout: code in the middle, TTL
// warning below
const mailBody = `<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; padding: 20px; max-width: 480px; margin: auto;">
  <h2 style="text-align: center;">IMPENGLISH Verification</h2>
  <p>Here is your <strong>One-Time Password (OTP)</strong> to verify your account:</p>
  <div style="text-align: center; margin: 20px 0;">
    <span style="font-size: 24px; font-weight: bold; letter-spacing: 2px;">%s</span>
  </div>
  <p style="text-align: center; font-size: 14px;">This code will expire in <strong>%d seconds</strong>.</p>
  <p>If you did not request this code, please ignore this email.</p>
</div>`

type Config struct {
	// Code lifetime, one minute if not set
	TTL time.Duration
}

// Service issues and verifies one-time email verification codes
type Service struct {
	ttl     time.Duration
	otpRepo repository.OTPRepo
	mailer  mailer.Mailer
	logger  logger.Logger
}

func NewService(cfg Config, otpRepo repository.OTPRepo, m mailer.Mailer, l logger.Logger) *Service {
	if cfg.TTL == 0 {
		cfg.TTL = defaultTTL
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Service{
		ttl:     cfg.TTL,
		otpRepo: otpRepo,
		mailer:  m,
		logger:  l,
	}
}

// Send stores a fresh code for the email (replacing any previous one) and
// mails it
func (s *Service) Send(ctx context.Context, email string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	_, err = s.otpRepo.Upsert(ctx, models.OTP{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(s.ttl),
	})
	if err != nil {
		return fmt.Errorf("error while saving otp. Err: %w", err)
	}

	body := fmt.Sprintf(mailBody, code, int(s.ttl.Seconds()))
	if err := s.mailer.Send(ctx, email, mailSubject, body); err != nil {
		return fmt.Errorf("error while mailing otp. Err: %w", err)
	}

	return nil
}

// Resend replaces the code for an email that has one already. Unlike Send it
// fails with ErrOTPAbsent when no verification is in progress.
func (s *Service) Resend(ctx context.Context, email string) error {
	_, err := s.otpRepo.Get(ctx, email)
	if err != nil {
		return err
	}

	return s.Send(ctx, email)
}

// Verify checks the code and consumes it on success so it can not be reused
func (s *Service) Verify(ctx context.Context, email string, code string) error {
	record, err := s.otpRepo.Get(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrOTPAbsent) {
			return apperrors.ErrOTPInvalid
		}
		return err
	}

	if record.Code != code {
		return apperrors.ErrOTPInvalid
	}
	if record.ExpiresAt.Before(time.Now()) {
		return apperrors.ErrOTPExpired
	}

	if err := s.otpRepo.Delete(ctx, email); err != nil {
		return err
	}

	return nil
}

// List returns all outstanding codes. Administrative.
func (s *Service) List(ctx context.Context) ([]models.OTP, error) {
	return s.otpRepo.List(ctx)
}

// generateCode returns a 6 digit code from a cryptographically secure source
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("error while generating otp. Err: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
