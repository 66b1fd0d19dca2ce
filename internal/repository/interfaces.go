package repository

import (
	"context"
	"errors"

	"github.com/dom/vidshare-backend/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// ExistsByUsername ignores the user with id exceptID when it is non-zero.
	ExistsByUsername(ctx context.Context, username string, exceptID uint) (bool, error)
	ExistsByEmail(ctx context.Context, email string, exceptID uint) (bool, error)
	UpdateProfile(ctx context.Context, id uint, name, username, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	// UpdatePasswordByEmail returns ErrNotFound when no user has that email.
	UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error
}

type RefreshTokenRepository interface {
	// Replace deletes any refresh token of the user and stores the new one
	// as a single atomic unit.
	Replace(ctx context.Context, token *domain.RefreshToken) error
	GetByUserID(ctx context.Context, userID uint) (*domain.RefreshToken, error)
}

type ResetPasswordRepository interface {
	// Replace deletes every request for the email and stores the new one
	// as a single atomic unit.
	Replace(ctx context.Context, request *domain.ResetPasswordRequest) error
	// GetLatestByEmail returns the newest request for the email.
	GetLatestByEmail(ctx context.Context, email string) (*domain.ResetPasswordRequest, error)
	// Delete removes the request with id and returns ErrNotFound when it is
	// already gone, so only one caller can consume a request.
	Delete(ctx context.Context, id uint) error
	DeleteByEmail(ctx context.Context, email string) error
}

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *domain.Subscription) error
	Delete(ctx context.Context, channelID, subscriberID uint) error
	Exists(ctx context.Context, channelID, subscriberID uint) (bool, error)
	CountByChannel(ctx context.Context, channelID uint) (int64, error)
}

type AuthEventRepository interface {
	Create(ctx context.Context, event *domain.AuthEvent) error
}

// Transactor runs fn against repositories bound to one store transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}

type Repositories struct {
	User          UserRepository
	RefreshToken  RefreshTokenRepository
	ResetPassword ResetPasswordRepository
	Subscription  SubscriptionRepository
	AuthEvent     AuthEventRepository
	Tx            Transactor
}
