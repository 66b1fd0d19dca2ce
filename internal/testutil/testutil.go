package testutil

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dom/vidshare-backend/internal/api"
	"github.com/dom/vidshare-backend/internal/config"
	"github.com/dom/vidshare-backend/internal/csrf"
	"github.com/dom/vidshare-backend/internal/mail"
	"github.com/dom/vidshare-backend/internal/obs"
	"github.com/dom/vidshare-backend/internal/repository"
	"github.com/dom/vidshare-backend/internal/repository/memory"
	"github.com/dom/vidshare-backend/internal/security"
	"github.com/dom/vidshare-backend/internal/service"
	"github.com/dom/vidshare-backend/internal/token"
	"github.com/rs/zerolog"
)

// Argon2Params are deliberately weak so tests stay fast.
var Argon2Params = security.Argon2Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		AppName:            "VidShare",
		Port:               "0",
		Environment:        "test",
		LogLevel:           "disabled",
		AppURL:             "http://localhost:3000",
		AllowedOrigins:     []string{"http://localhost:3000"},
		JWTIssuer:          "vidshare-test",
		AccessTokenSecret:  "test-access-secret",
		RefreshTokenSecret: "test-refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
		AccessCookieName:   "access_token",
		RefreshCookieName:  "refresh_token",
		JWTCookieDomain:    "127.0.0.1",
		CSRFSecret:         "test-csrf-secret",
		CSRFCookieName:     "csrf_secret",
		CSRFCookieDomain:   "127.0.0.1",
		ResetTokenTTL:      time.Hour,
		ResetCooldown:      time.Minute,
		MailFrom:           "no-reply@vidshare.test",
		AuthRatePerSecond:  1000,
		AuthRateBurst:      1000,
	}
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// RecordingMailer keeps sent messages in memory. Err, when set, is returned
// from Send instead of recording.
type RecordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *RecordingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

func (m *RecordingMailer) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Env wires services over an in-memory store.
type Env struct {
	Config   *config.Config
	Store    *memory.Store
	Repos    *repository.Repositories
	Clock    *Clock
	Hasher   *security.Argon2Hasher
	Tokens   *token.Manager
	Mailer   *RecordingMailer
	Metrics  *obs.Metrics
	Services *service.Services
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	cfg := TestConfig()
	clock := NewClock()
	store := memory.NewStore()
	repos := store.Repositories()

	tokens, err := token.NewManager(token.Config{
		Issuer:        cfg.JWTIssuer,
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	tokens = tokens.WithClock(clock.Now)

	env := &Env{
		Config:  cfg,
		Store:   store,
		Repos:   repos,
		Clock:   clock,
		Hasher:  security.NewArgon2Hasher(Argon2Params),
		Tokens:  tokens,
		Mailer:  &RecordingMailer{},
		Metrics: obs.NewMetrics(),
	}

	env.Services, err = service.NewServices(repos, cfg, service.Dependencies{
		Tokens:  env.Tokens,
		Hasher:  env.Hasher,
		Mailer:  env.Mailer,
		Counter: env.Metrics,
		Clock:   clock.Now,
	})
	if err != nil {
		t.Fatalf("failed to create services: %v", err)
	}
	return env
}

// TestServer holds all components for integration testing
type TestServer struct {
	*Env
	Server *httptest.Server
}

// NewTestServer runs the real router over an in-memory store.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	env := NewEnv(t)

	guard, err := csrf.New(csrf.Config{
		Secret:         env.Config.CSRFSecret,
		CookieName:     env.Config.CSRFCookieName,
		CookieDomain:   env.Config.CSRFCookieDomain,
		TrustedOrigins: env.Config.AllowedOrigins,
	})
	if err != nil {
		t.Fatalf("failed to create csrf guard: %v", err)
	}

	router := api.NewRouter(api.RouterDeps{
		Config:   env.Config,
		Services: env.Services,
		CSRF:     guard,
		Metrics:  env.Metrics,
		Logger:   zerolog.Nop(),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{Env: env, Server: server}
}

// URL returns the full URL for path
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}
