package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dom/vidshare-backend/internal/repository"
	"github.com/dom/vidshare-backend/internal/repository/postgres/migrations"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies every embedded migration that has not run yet.
func Migrate(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return runGoose(ctx, sqlDB, "up")
}

// RunMigrationCommand executes a goose command (up, down, status, reset).
func RunMigrationCommand(ctx context.Context, db *gorm.DB, command string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return runGoose(ctx, sqlDB, command)
}

func runGoose(ctx context.Context, db *sql.DB, command string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		return goose.UpContext(ctx, db, ".")
	case "down":
		return goose.DownContext(ctx, db, ".")
	case "status":
		return goose.StatusContext(ctx, db, ".")
	case "reset":
		return goose.ResetContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:          NewUserRepository(db),
		RefreshToken:  NewRefreshTokenRepository(db),
		ResetPassword: NewResetPasswordRepository(db),
		Subscription:  NewSubscriptionRepository(db),
		AuthEvent:     NewAuthEventRepository(db),
		Tx:            &transactor{db: db},
	}
}

type transactor struct {
	db *gorm.DB
}

func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}
