package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/impenglish/backend/internal/db"
	"github.com/impenglish/backend/internal/handlers"
	"github.com/impenglish/backend/internal/logger"
	"github.com/impenglish/backend/internal/mailer"
	"github.com/impenglish/backend/internal/repository/postgres"
	"github.com/impenglish/backend/internal/service/auth"
	"github.com/impenglish/backend/internal/service/auth/tokenmanager"
	"github.com/impenglish/backend/internal/service/otp"
	"github.com/impenglish/backend/internal/service/tokencleanup"
	"github.com/impenglish/backend/internal/service/user"
	"github.com/impenglish/backend/internal/service/vocabulary"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	sweeper *tokencleanup.Sweeper
	logger  logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	}, storage.Refresh(), log)
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{}, tokenManager, storage, log)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	var m mailer.Mailer = mailer.LogMailer{Logger: log}
	if c.SendGridAPIKey != "" {
		m = mailer.NewSendGrid(c.SendGridAPIKey, c.MailFromName, c.MailFromEmail)
	}

	otpService := otp.NewService(otp.Config{TTL: c.OTPTTL}, storage.OTP(), m, log)
	userService := user.NewService(nil, otpService, storage, log)
	vocabService := vocabulary.NewService(storage.Vocabulary())
	sweeper := tokencleanup.New(c.SweepInterval, storage.Refresh(), log)

	mux := handlers.NewRouter(authService, userService, otpService, vocabService, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		sweeper:    sweeper,
		logger:     log,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	sweeperStopped := s.sweeper.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-sweeperStopped

	return err
}
