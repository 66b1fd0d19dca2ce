package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/repository"
	"github.com/dom/vidshare-backend/internal/security"
	"github.com/google/uuid"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	name     string
	username string
	email    string
	password string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		name:     "Test User",
		username: "user_" + suffix,
		email:    fmt.Sprintf("user_%s@example.com", suffix),
		password: "testpassword123",
	}
}

func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// RegisterBody is the JSON body of a register request for this user.
func (b *UserBuilder) RegisterBody() map[string]string {
	return map[string]string{
		"name":                 b.name,
		"username":             b.username,
		"email":                b.email,
		"password":             b.password,
		"passwordConfirmation": b.password,
	}
}

// Build stores the user directly and returns it with the raw password.
func (b *UserBuilder) Build(t *testing.T, users repository.UserRepository, hasher security.Hasher) (*domain.User, string) {
	t.Helper()

	hash, err := hasher.Hash(b.password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		Name:     b.name,
		Username: b.username,
		Email:    b.email,
		Password: hash,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}
