package service

import (
	"errors"
	"time"

	"github.com/dom/vidshare-backend/internal/config"
	"github.com/dom/vidshare-backend/internal/mail"
	"github.com/dom/vidshare-backend/internal/repository"
	"github.com/dom/vidshare-backend/internal/security"
	"github.com/dom/vidshare-backend/internal/token"
)

type Services struct {
	Auth          *AuthService
	PasswordReset *PasswordResetService
	Channel       *ChannelService
}

// Dependencies are the collaborators shared by the services. Counter and
// Clock are optional.
type Dependencies struct {
	Tokens  *token.Manager
	Hasher  security.Hasher
	Mailer  mail.Mailer
	Counter OutcomeCounter
	Clock   func() time.Time
}

func NewServices(repos *repository.Repositories, cfg *config.Config, deps Dependencies) (*Services, error) {
	if deps.Tokens == nil || deps.Hasher == nil || deps.Mailer == nil {
		return nil, errors.New("tokens, hasher and mailer are required")
	}
	if deps.Counter == nil {
		deps.Counter = noopCounter{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, err
	}

	audit := &auditor{events: repos.AuthEvent, counter: deps.Counter, now: deps.Clock}

	return &Services{
		Auth: NewAuthService(repos, deps.Tokens, deps.Hasher, audit),
		PasswordReset: NewPasswordResetService(repos, deps.Hasher, deps.Mailer, renderer, audit, ResetConfig{
			AppName:  cfg.AppName,
			AppURL:   cfg.AppURL,
			TTL:      cfg.ResetTokenTTL,
			Cooldown: cfg.ResetCooldown,
		}),
		Channel: NewChannelService(repos.User, repos.Subscription),
	}, nil
}
