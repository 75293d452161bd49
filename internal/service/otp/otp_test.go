package otp

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impenglish/backend/internal/apperrors"
	"github.com/impenglish/backend/internal/repository/postgres"
	"github.com/impenglish/backend/internal/testutil"
)

// Mailer that records sent mail instead of delivering it
type recordingMailer struct {
	to      []string
	subject string
	body    string
}

func (m *recordingMailer) Send(ctx context.Context, to string, subject string, htmlBody string) error {
	m.to = append(m.to, to)
	m.subject = subject
	m.body = htmlBody
	return nil
}

var codeRe = regexp.MustCompile(`\b\d{6}\b`)

func Test_OTPService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withService := func(t *testing.T, ttl time.Duration, fn func(s *Service, mailer *recordingMailer)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			mailer := &recordingMailer{}
			storage := postgres.NewStorage(tx)

			s := NewService(Config{TTL: ttl}, storage.OTP(), mailer, nil)

			fn(s, mailer)
		})
	}

	t.Run("send stores and mails the code", func(t *testing.T) {
		withService(t, time.Minute, func(s *Service, mailer *recordingMailer) {
			err := s.Send(t.Context(), "send@example.com")

			require.NoError(t, err)
			require.Equal(t, []string{"send@example.com"}, mailer.to)

			code := codeRe.FindString(mailer.body)
			require.NotEmpty(t, code, "mail body must carry the 6 digit code")

			// The mailed code is the one that verifies
			err = s.Verify(t.Context(), "send@example.com", code)
			require.NoError(t, err)
		})
	})

	t.Run("send replaces the previous code", func(t *testing.T) {
		withService(t, time.Minute, func(s *Service, mailer *recordingMailer) {
			require.NoError(t, s.Send(t.Context(), "replace@example.com"))
			first := codeRe.FindString(mailer.body)

			require.NoError(t, s.Send(t.Context(), "replace@example.com"))
			second := codeRe.FindString(mailer.body)

			if first == second {
				t.Skip("generated the same code twice, can not tell replacement apart")
			}

			err := s.Verify(t.Context(), "replace@example.com", first)
			assert.ErrorIs(t, err, apperrors.ErrOTPInvalid, "replaced code must not verify")

			err = s.Verify(t.Context(), "replace@example.com", second)
			require.NoError(t, err)
		})
	})

	t.Run("resend needs verification in progress", func(t *testing.T) {
		withService(t, time.Minute, func(s *Service, mailer *recordingMailer) {
			err := s.Resend(t.Context(), "nobody@example.com")
			assert.ErrorIs(t, err, apperrors.ErrOTPAbsent)

			require.NoError(t, s.Send(t.Context(), "resend@example.com"))
			require.NoError(t, s.Resend(t.Context(), "resend@example.com"))
			require.Len(t, mailer.to, 2)
		})
	})

	t.Run("verify wrong code", func(t *testing.T) {
		withService(t, time.Minute, func(s *Service, mailer *recordingMailer) {
			require.NoError(t, s.Send(t.Context(), "wrong@example.com"))

			code := codeRe.FindString(mailer.body)
			wrong := "000000"
			if code == wrong {
				wrong = "000001"
			}

			err := s.Verify(t.Context(), "wrong@example.com", wrong)
			assert.ErrorIs(t, err, apperrors.ErrOTPInvalid)

			// The real code still works, a failed guess does not consume it
			err = s.Verify(t.Context(), "wrong@example.com", code)
			require.NoError(t, err)
		})
	})

	t.Run("verify absent code", func(t *testing.T) {
		withService(t, time.Minute, func(s *Service, _ *recordingMailer) {
			err := s.Verify(t.Context(), "nobody@example.com", "123456")
			assert.ErrorIs(t, err, apperrors.ErrOTPInvalid, "absent and wrong code must fail the same way")
		})
	})

	t.Run("verify expired code", func(t *testing.T) {
		withService(t, -time.Minute, func(s *Service, mailer *recordingMailer) {
			require.NoError(t, s.Send(t.Context(), "expired@example.com"))
			code := codeRe.FindString(mailer.body)

			err := s.Verify(t.Context(), "expired@example.com", code)

			assert.ErrorIs(t, err, apperrors.ErrOTPExpired)
		})
	})

	t.Run("code is single use", func(t *testing.T) {
		withService(t, time.Minute, func(s *Service, mailer *recordingMailer) {
			require.NoError(t, s.Send(t.Context(), "once@example.com"))
			code := codeRe.FindString(mailer.body)

			require.NoError(t, s.Verify(t.Context(), "once@example.com", code))

			err := s.Verify(t.Context(), "once@example.com", code)
			assert.ErrorIs(t, err, apperrors.ErrOTPInvalid, "verified code must be consumed")
		})
	})

	t.Run("generated codes are 6 digits", func(t *testing.T) {
		for range 20 {
			code, err := generateCode()
			require.NoError(t, err)
			require.Len(t, code, 6)
			require.False(t, strings.ContainsFunc(code, func(r rune) bool { return r < '0' || r > '9' }))
		}
	})
}
