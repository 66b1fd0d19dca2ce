package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/dom/vidshare-backend/internal/api"
	"github.com/dom/vidshare-backend/internal/config"
	"github.com/dom/vidshare-backend/internal/csrf"
	"github.com/dom/vidshare-backend/internal/logging"
	"github.com/dom/vidshare-backend/internal/mail"
	"github.com/dom/vidshare-backend/internal/obs"
	"github.com/dom/vidshare-backend/internal/repository"
	"github.com/dom/vidshare-backend/internal/repository/memory"
	"github.com/dom/vidshare-backend/internal/repository/postgres"
	"github.com/dom/vidshare-backend/internal/security"
	"github.com/dom/vidshare-backend/internal/service"
	"github.com/dom/vidshare-backend/internal/token"
	"github.com/rs/zerolog"
	"gorm.io/gorm/logger"
)

// memoryStoreURL selects the in-process store instead of Postgres.
const memoryStoreURL = "memory://"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Environment, cfg.LogLevel)
	if cfg.IsDevelopment() {
		figure.NewFigure(cfg.AppName, "cybermedium", true).Print()
		fmt.Println()
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	tokens, err := token.NewManager(token.Config{
		Issuer:        cfg.JWTIssuer,
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}

	guard, err := csrf.New(csrf.Config{
		Secret:         cfg.CSRFSecret,
		CookieName:     cfg.CSRFCookieName,
		CookieDomain:   cfg.CSRFCookieDomain,
		CookieSecure:   cfg.CSRFCookieSecure,
		TrustedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("csrf guard: %w", err)
	}

	var mailer mail.Mailer
	if cfg.MailHost == "" {
		log.Warn().Msg("MAIL_HOST not set, reset emails are logged instead of sent")
		mailer = mail.NewLogMailer(log)
	} else {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUser,
			Password: cfg.MailPass,
			From:     cfg.MailFrom,
			SSL:      cfg.MailSecure,
		})
	}

	metrics := obs.NewMetrics()

	services, err := service.NewServices(repos, cfg, service.Dependencies{
		Tokens:  tokens,
		Hasher:  security.NewArgon2Hasher(security.DefaultArgon2Params),
		Mailer:  mailer,
		Counter: metrics,
	})
	if err != nil {
		return fmt.Errorf("services: %w", err)
	}

	router := api.NewRouter(api.RouterDeps{
		Config:   cfg,
		Services: services,
		CSRF:     guard,
		Metrics:  metrics,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("environment", cfg.Environment).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repository.Repositories, error) {
	if cfg.DatabaseURL == memoryStoreURL {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.NewStore().Repositories(), nil
	}

	level := logger.Silent
	if cfg.IsDevelopment() {
		level = logger.Warn
	}
	db, err := postgres.NewConnection(cfg.DatabaseURL, level)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return postgres.NewRepositories(db), nil
}
