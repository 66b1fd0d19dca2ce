// Package csrf guards state-changing requests with anti-forgery tokens.
//
// The real token lives in a signed HttpOnly cookie; clients fetch a masked
// copy from GET /csrf-token and echo it in the X-CSRF-Token header.
package csrf

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	gcsrf "github.com/gorilla/csrf"
)

const (
	DefaultHeaderName = "X-CSRF-Token"
	DefaultFormField  = "_csrf"
)

// ErrNoToken is returned by Token for requests that did not pass through
// the guard middleware.
var ErrNoToken = errors.New("csrf token unavailable")

type Config struct {
	Secret       string
	CookieName   string
	CookieDomain string
	CookieSecure bool
	HeaderName   string
	FormField    string
	// TrustedOrigins are full origins (scheme://host[:port]) allowed to send
	// unsafe cross-origin requests.
	TrustedOrigins []string
}

type Guard struct {
	authKey []byte
	opts    []gcsrf.Option
}

func New(cfg Config) (*Guard, error) {
	if cfg.Secret == "" {
		return nil, errors.New("csrf secret is required")
	}
	if cfg.CookieName == "" {
		return nil, errors.New("csrf cookie name is required")
	}
	if cfg.CookieDomain == "" {
		return nil, errors.New("csrf cookie domain is required")
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.FormField == "" {
		cfg.FormField = DefaultFormField
	}

	hosts := make([]string, 0, len(cfg.TrustedOrigins))
	for _, origin := range cfg.TrustedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid trusted origin %q", origin)
		}
		hosts = append(hosts, u.Host)
	}

	// securecookie wants a 32-byte key whatever the configured secret length.
	key := sha256.Sum256([]byte(cfg.Secret))

	return &Guard{
		authKey: key[:],
		opts: []gcsrf.Option{
			gcsrf.CookieName(cfg.CookieName),
			gcsrf.Domain(cfg.CookieDomain),
			gcsrf.Path("/"),
			gcsrf.HttpOnly(true),
			gcsrf.Secure(cfg.CookieSecure),
			gcsrf.SameSite(gcsrf.SameSiteLaxMode),
			gcsrf.RequestHeader(cfg.HeaderName),
			gcsrf.FieldName(cfg.FormField),
			gcsrf.TrustedOrigins(hosts),
		},
	}, nil
}

// Middleware validates every request that is not GET, HEAD, OPTIONS or
// TRACE and hands failures to onFailure. It also makes Token available to
// downstream handlers.
func (g *Guard) Middleware(onFailure http.Handler) func(http.Handler) http.Handler {
	opts := append(append([]gcsrf.Option(nil), g.opts...), gcsrf.ErrorHandler(onFailure))
	protect := gcsrf.Protect(g.authKey, opts...)

	return func(next http.Handler) http.Handler {
		guarded := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Referer checks only apply to requests that arrived over TLS;
			// Origin is checked either way.
			if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
				r = gcsrf.PlaintextHTTPRequest(r)
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

// Token returns a masked token for the client of r. The secret cookie is
// set by the middleware when the client had none.
func Token(r *http.Request) (string, error) {
	token := gcsrf.Token(r)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// FailureReason explains why the middleware rejected r.
func FailureReason(r *http.Request) error {
	return gcsrf.FailureReason(r)
}
