package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/repository"
	"github.com/dom/vidshare-backend/internal/security"
	"github.com/dom/vidshare-backend/internal/token"
	"github.com/dom/vidshare-backend/internal/validation"
	"github.com/rs/zerolog"
)

const (
	msgUsernameTaken   = "Username has already been taken"
	msgEmailTaken      = "Email has already been taken"
	msgCurrentPassword = "Current password doesn't match"
)

type AuthService struct {
	repos  *repository.Repositories
	tokens *token.Manager
	hasher security.Hasher
	audit  *auditor

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(repos *repository.Repositories, tokens *token.Manager, hasher security.Hasher, audit *auditor) *AuthService {
	return &AuthService{
		repos:  repos,
		tokens: tokens,
		hasher: hasher,
		audit:  audit,
	}
}

type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type ProfileInput struct {
	Name     string
	Username string
	Email    string
}

type PasswordInput struct {
	CurrentPassword string
	Password        string
}

type AuthResult struct {
	User             *domain.UserProjection
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Email = validation.NormalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)

	if err := s.checkAvailability(ctx, s.repos.User, input.Username, input.Email, 0); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:     strings.TrimSpace(input.Name),
		Username: input.Username,
		Email:    input.Email,
		Password: hash,
	}

	var result *AuthResult
	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := repos.User.Create(ctx, user); err != nil {
			return err
		}
		result, err = s.issueTokens(ctx, repos.RefreshToken, user)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent registration.
			if verr := s.checkAvailability(ctx, s.repos.User, input.Username, input.Email, 0); verr != nil {
				return nil, verr
			}
			return nil, validation.NewFieldError("username", msgUsernameTaken)
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.audit.record(ctx, domain.AuthEventRegistered, userRef(user.ID), nil)
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.repos.User.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		// Keep the timing of unknown usernames close to a wrong password.
		_, _ = s.hasher.Verify(s.dummy(), input.Password)
		s.audit.record(ctx, domain.AuthEventLoginFailed, nil, map[string]string{"reason": "unknown_user"})
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(user.Password, input.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.audit.record(ctx, domain.AuthEventLoginFailed, userRef(user.ID), map[string]string{"reason": "bad_password"})
		return nil, ErrInvalidCredentials
	}

	result, err := s.issueTokens(ctx, s.repos.RefreshToken, user)
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, domain.AuthEventLoginSucceeded, userRef(user.ID), nil)
	return result, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.audit.record(ctx, domain.AuthEventRefreshRejected, nil, map[string]string{"reason": "invalid_token"})
		return "", ErrInvalidCredentials
	}
	userID, err := claims.UserID()
	if err != nil {
		s.audit.record(ctx, domain.AuthEventRefreshRejected, nil, map[string]string{"reason": "invalid_subject"})
		return "", ErrInvalidCredentials
	}

	stored, err := s.repos.RefreshToken.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.audit.record(ctx, domain.AuthEventRefreshRejected, userRef(userID), map[string]string{"reason": "not_found"})
			return "", ErrRefreshTokenNotFound
		}
		return "", fmt.Errorf("find refresh token: %w", err)
	}

	ok, err := s.hasher.Verify(stored.Token, refreshToken)
	if err != nil {
		return "", fmt.Errorf("verify refresh token: %w", err)
	}
	if !ok {
		s.audit.record(ctx, domain.AuthEventRefreshRejected, userRef(userID), map[string]string{"reason": "mismatch"})
		return "", ErrInvalidCredentials
	}

	access, err := s.tokens.SignAccess(userID)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	s.audit.record(ctx, domain.AuthEventTokenRefreshed, userRef(userID), nil)
	return access, nil
}

// ResolveUser returns the user an access token was issued to. It reports
// token.ErrInvalidToken for a bad token and ErrUserNotFound when the user no
// longer exists.
func (s *AuthService) ResolveUser(ctx context.Context, accessToken string) (*domain.UserProjection, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	return s.CurrentUser(ctx, userID)
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*domain.UserProjection, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return domain.ProjectUser(user), nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, input ProfileInput) (*domain.UserProjection, error) {
	input.Email = validation.NormalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)

	if err := s.checkAvailability(ctx, s.repos.User, input.Username, input.Email, userID); err != nil {
		return nil, err
	}

	user, err := s.repos.User.UpdateProfile(ctx, userID, strings.TrimSpace(input.Name), input.Username, input.Email)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicate):
			if verr := s.checkAvailability(ctx, s.repos.User, input.Username, input.Email, userID); verr != nil {
				return nil, verr
			}
			return nil, validation.NewFieldError("username", msgUsernameTaken)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.audit.record(ctx, domain.AuthEventProfileUpdated, userRef(userID), nil)
	return domain.ProjectUser(user), nil
}

// UpdatePassword changes the password after checking the current one.
// Existing refresh tokens stay valid.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uint, input PasswordInput) error {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Verify(user.Password, input.CurrentPassword)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return validation.NewFieldError("currentPassword", msgCurrentPassword)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repos.User.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.audit.record(ctx, domain.AuthEventPasswordUpdated, userRef(userID), nil)
	return nil
}

// issueTokens signs an access and a refresh token and stores the hash of the
// refresh token, replacing whatever the user had before.
func (s *AuthService) issueTokens(ctx context.Context, refreshTokens repository.RefreshTokenRepository, user *domain.User) (*AuthResult, error) {
	access, err := s.tokens.SignAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, expiresAt, err := s.tokens.SignRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	hash, err := s.hasher.Hash(refresh)
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}
	if err := refreshTokens.Replace(ctx, &domain.RefreshToken{UserID: user.ID, Token: hash}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &AuthResult{
		User:             domain.ProjectUser(user),
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) checkAvailability(ctx context.Context, users repository.UserRepository, username, email string, exceptID uint) error {
	var verr *validation.Errors

	taken, err := users.ExistsByUsername(ctx, username, exceptID)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		verr = verr.Add("username", msgUsernameTaken)
	}

	taken, err = users.ExistsByEmail(ctx, email, exceptID)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		verr = verr.Add("email", msgEmailTaken)
	}

	if verr != nil {
		return verr
	}
	return nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			zerolog.Ctx(context.Background()).Warn().Err(err).Msg("failed to prepare dummy hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
