package handlers

import (
	"net/http"
	"time"
)

// CookieSettings describes the access and refresh token cookies.
type CookieSettings struct {
	AccessName  string
	RefreshName string
	Domain      string
	Secure      bool
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

func (c CookieSettings) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c CookieSettings) setAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(c.AccessName, token, c.AccessTTL))
}

func (c CookieSettings) setRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(c.RefreshName, token, c.RefreshTTL))
}

func (c CookieSettings) clear(w http.ResponseWriter) {
	for _, name := range []string{c.AccessName, c.RefreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.Domain,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   c.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
