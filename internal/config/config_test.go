package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ISSUER", "vidshare")
	t.Setenv("JWT_ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Setenv("JWT_ACCESS_TOKEN_COOKIE_NAME", "access_token")
	t.Setenv("JWT_REFRESH_TOKEN_COOKIE_NAME", "refresh_token")
	t.Setenv("JWT_COOKIE_DOMAIN", "localhost")
	t.Setenv("CSRF_SECRET", "csrf-secret")
	t.Setenv("CSRF_COOKIE_NAME", "csrf_secret")
	t.Setenv("CSRF_COOKIE_DOMAIN", "localhost")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, time.Minute, cfg.ResetCooldown)
	assert.False(t, cfg.JWTCookieSecure)
	assert.Equal(t, "access_token", cfg.AccessCookieName)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("RESET_COOLDOWN", "30")
	t.Setenv("JWT_COOKIE_SECURE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("APP_URL", "https://vid.example/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 30*time.Second, cfg.ResetCooldown)
	assert.True(t, cfg.JWTCookieSecure)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://vid.example", cfg.AppURL)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("CSRF_SECRET", "")
	t.Setenv("JWT_ISSUER", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ISSUER")
	assert.Contains(t, err.Error(), "CSRF_SECRET")
}

func TestLoad_SameSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_REFRESH_TOKEN_SECRET", "access-secret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_TrustedProxies(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    []string
		wantErr bool
	}{
		{name: "unset"},
		{name: "cidr and address", value: "10.0.0.0/8, 192.168.1.7", want: []string{"10.0.0.0/8", "192.168.1.7/32"}},
		{name: "ipv6", value: "fd00::1", want: []string{"fd00::1/128"}},
		{name: "garbage", value: "proxy.local", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			if tt.value != "" {
				t.Setenv("TRUSTED_PROXIES", tt.value)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var got []string
			for _, p := range cfg.TrustedProxies {
				got = append(got, p.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
