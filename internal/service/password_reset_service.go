package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/mail"
	"github.com/dom/vidshare-backend/internal/repository"
	"github.com/dom/vidshare-backend/internal/security"
	"github.com/dom/vidshare-backend/internal/validation"
)

const resetTokenBytes = 32

var errResetConsumed = errors.New("reset request already consumed")

type ResetConfig struct {
	AppName  string
	AppURL   string
	TTL      time.Duration
	Cooldown time.Duration
}

type PasswordResetService struct {
	repos    *repository.Repositories
	hasher   security.Hasher
	mailer   mail.Mailer
	renderer *mail.Renderer
	audit    *auditor
	cfg      ResetConfig
}

func NewPasswordResetService(repos *repository.Repositories, hasher security.Hasher, mailer mail.Mailer, renderer *mail.Renderer, audit *auditor, cfg ResetConfig) *PasswordResetService {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	return &PasswordResetService{
		repos:    repos,
		hasher:   hasher,
		mailer:   mailer,
		renderer: renderer,
		audit:    audit,
		cfg:      cfg,
	}
}

type ResetInput struct {
	Email    string
	Token    string
	Password string
}

// ForgotPassword issues a reset token for email and mails the reset link.
// The flow is the same whether or not a user owns the address.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)
	now := s.audit.now()

	latest, err := s.repos.ResetPassword.GetLatestByEmail(ctx, email)
	switch {
	case err == nil:
		if latest.IsRecent(s.cfg.Cooldown, now) {
			s.audit.record(ctx, domain.AuthEventResetThrottled, nil, map[string]string{"email": email})
			return ErrResetCooldown
		}
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("find reset request: %w", err)
	}

	var name string
	var userID *uint
	user, err := s.repos.User.GetByEmail(ctx, email)
	switch {
	case err == nil:
		name = user.Name
		userID = userRef(user.ID)
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("find user: %w", err)
	}

	plain, err := security.RandomToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return fmt.Errorf("hash reset token: %w", err)
	}

	request := &domain.ResetPasswordRequest{Email: email, Token: hash, CreatedAt: now}
	if err := s.repos.ResetPassword.Replace(ctx, request); err != nil {
		return fmt.Errorf("store reset request: %w", err)
	}

	msg, err := s.renderer.ResetPassword(email, mail.ResetPasswordData{
		AppName:   s.cfg.AppName,
		Name:      name,
		Email:     email,
		Link:      s.resetLink(email, plain),
		ExpiresIn: humanDuration(s.cfg.TTL),
	})
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrRecipientRejected) {
			return ErrMailRejected
		}
		return fmt.Errorf("send reset mail: %w", err)
	}

	s.audit.record(ctx, domain.AuthEventResetRequested, userID, map[string]string{"email": email})
	return nil
}

// ResetPassword consumes a reset token. Every failure to match a live
// request is reported as ErrInvalidResetToken.
func (s *PasswordResetService) ResetPassword(ctx context.Context, input ResetInput) error {
	email := validation.NormalizeEmail(input.Email)

	request, err := s.repos.ResetPassword.GetLatestByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.reject(ctx, email, "not_found")
		}
		return fmt.Errorf("find reset request: %w", err)
	}
	if request.IsExpired(s.cfg.TTL, s.audit.now()) {
		return s.reject(ctx, email, "expired")
	}

	ok, err := s.hasher.Verify(request.Token, input.Token)
	if err != nil {
		return fmt.Errorf("verify reset token: %w", err)
	}
	if !ok {
		return s.reject(ctx, email, "mismatch")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// Deleting the verified request first claims it; a concurrent reset with
	// the same token finds it gone and rolls back.
	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := repos.ResetPassword.Delete(ctx, request.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errResetConsumed
			}
			return err
		}
		if err := repos.User.UpdatePasswordByEmail(ctx, email, hash); err != nil {
			return err
		}
		return repos.ResetPassword.DeleteByEmail(ctx, email)
	})
	switch {
	case errors.Is(err, errResetConsumed):
		return s.reject(ctx, email, "consumed")
	case errors.Is(err, repository.ErrNotFound):
		return s.reject(ctx, email, "no_user")
	case err != nil:
		return fmt.Errorf("reset password: %w", err)
	}

	var userID *uint
	if user, err := s.repos.User.GetByEmail(ctx, email); err == nil {
		userID = userRef(user.ID)
	}
	s.audit.record(ctx, domain.AuthEventPasswordReset, userID, nil)
	return nil
}

func (s *PasswordResetService) reject(ctx context.Context, email, reason string) error {
	s.audit.record(ctx, domain.AuthEventResetRejected, nil, map[string]string{"email": email, "reason": reason})
	return ErrInvalidResetToken
}

func (s *PasswordResetService) resetLink(email, plainToken string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", plainToken)
	return s.cfg.AppURL + "/reset-password?" + q.Encode()
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
