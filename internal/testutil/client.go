package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/dom/vidshare-backend/internal/csrf"
)

// Client talks to a TestServer like a browser: it keeps cookies and sends
// the CSRF header once a token was fetched.
type Client struct {
	ts        *TestServer
	http      *http.Client
	csrfToken string
}

func (ts *TestServer) NewClient(t *testing.T) *Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &Client{ts: ts, http: &http.Client{Jar: jar}}
}

// FetchCSRF requests a token and uses it for every later unsafe request.
func (c *Client) FetchCSRF(t *testing.T) string {
	t.Helper()

	resp := c.Do(t, http.MethodGet, "/csrf-token", nil)
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	AssertJSONResponse(t, resp, http.StatusOK, &body)
	if body.CSRFToken == "" {
		t.Fatal("empty csrf token")
	}
	c.csrfToken = body.CSRFToken
	return body.CSRFToken
}

// SetCSRF overrides the token sent in the CSRF header.
func (c *Client) SetCSRF(token string) {
	c.csrfToken = token
}

// Do sends body as JSON when non-nil.
func (c *Client) Do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.ts.URL(path), reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrfToken != "" {
		req.Header.Set(csrf.DefaultHeaderName, c.csrfToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

// Cookie returns the value the jar would send for name.
func (c *Client) Cookie(name string) string {
	u, _ := url.Parse(c.ts.Server.URL)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// SetCookie stores a cookie in the jar as if the server had set it.
func (c *Client) SetCookie(name, value string) {
	u, _ := url.Parse(c.ts.Server.URL)
	c.http.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}
