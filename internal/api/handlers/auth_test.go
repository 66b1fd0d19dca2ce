package handlers_test

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/mail"
	"github.com/dom/vidshare-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*testutil.TestServer, *testutil.Client) {
	t.Helper()
	ts := testutil.NewTestServer(t)
	c := ts.NewClient(t)
	c.FetchCSRF(t)
	return ts, c
}

func register(t *testing.T, c *testutil.Client, b *testutil.UserBuilder) domain.UserProjection {
	t.Helper()
	var user domain.UserProjection
	testutil.AssertJSONResponse(t, c.Do(t, http.MethodPost, "/auth/register", b.RegisterBody()), http.StatusCreated, &user)
	return user
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	_, c := newClient(t)
	register(t, c, testutil.NewUserBuilder().WithUsername("taken").WithEmail("taken@x.com"))

	tests := []struct {
		name       string
		body       map[string]string
		wantFields []string
	}{
		{
			name:       "empty body fields",
			body:       map[string]string{},
			wantFields: []string{"email", "name", "password", "passwordConfirmation", "username"},
		},
		{
			name: "short password and mismatch",
			body: map[string]string{
				"name": "Ada", "username": "ada", "email": "ada@x.com",
				"password": "short", "passwordConfirmation": "other",
			},
			wantFields: []string{"password", "passwordConfirmation"},
		},
		{
			name: "bad username",
			body: map[string]string{
				"name": "Ada", "username": "a!", "email": "ada@x.com",
				"password": "longpassword1", "passwordConfirmation": "longpassword1",
			},
			wantFields: []string{"username"},
		},
		{
			name: "taken username and email",
			body: map[string]string{
				"name": "Ada", "username": "taken", "email": " TAKEN@x.com ",
				"password": "longpassword1", "passwordConfirmation": "longpassword1",
			},
			wantFields: []string{"username", "email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := c.Do(t, http.MethodPost, "/auth/register", tt.body)
			body := testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Please fix the following errors")
			assert.Equal(t, tt.wantFields, body.Fields())
		})
	}
}

func TestAuthHandler_Register_MalformedBody(t *testing.T) {
	_, c := newClient(t)

	resp := c.Do(t, http.MethodPost, "/auth/register", "not an object")
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid request body")
}

func TestAuthHandler_Login(t *testing.T) {
	_, c := newClient(t)
	user := register(t, c, testutil.NewUserBuilder().WithUsername("ada").WithPassword("longpassword1"))

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{name: "valid", body: map[string]string{"username": "ada", "password": "longpassword1"}, wantStatus: http.StatusOK},
		{name: "wrong password", body: map[string]string{"username": "ada", "password": "nope-nope"}, wantStatus: http.StatusUnauthorized},
		{name: "unknown user", body: map[string]string{"username": "bob", "password": "longpassword1"}, wantStatus: http.StatusUnauthorized},
		{name: "missing fields", body: map[string]string{}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := c.Do(t, http.MethodPost, "/auth/login", tt.body)
			if tt.wantStatus != http.StatusOK {
				resp.Body.Close()
				assert.Equal(t, tt.wantStatus, resp.StatusCode)
				assert.Nil(t, testutil.FindCookie(resp, "access_token"))
				return
			}

			assert.NotNil(t, testutil.FindCookie(resp, "access_token"))
			assert.NotNil(t, testutil.FindCookie(resp, "refresh_token"))
			var got domain.UserProjection
			testutil.AssertJSONResponse(t, resp, http.StatusOK, &got)
			assert.Equal(t, user, got)
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	ts, c := newClient(t)
	user := register(t, c, testutil.NewUserBuilder())

	t.Run("missing cookie", func(t *testing.T) {
		other := ts.NewClient(t)
		other.FetchCSRF(t)
		resp := other.Do(t, http.MethodPost, "/auth/refresh", nil)
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Unauthenticated")
	})

	t.Run("forged cookie", func(t *testing.T) {
		other := ts.NewClient(t)
		other.FetchCSRF(t)
		other.SetCookie("refresh_token", "forged")
		resp := other.Do(t, http.MethodPost, "/auth/refresh", nil)
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Unauthenticated")
	})

	t.Run("stored token gone", func(t *testing.T) {
		ts.Store.DropRefreshToken(user.ID)
		resp := c.Do(t, http.MethodPost, "/auth/refresh", nil)
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Unauthenticated")
	})
}

func TestAuthHandler_BearerHeader(t *testing.T) {
	ts, c := newClient(t)
	user := register(t, c, testutil.NewUserBuilder())

	access := c.Cookie("access_token")
	require.NotEmpty(t, access)

	req, err := http.NewRequest(http.MethodGet, ts.URL("/auth/user"), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+access)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var got domain.UserProjection
	testutil.AssertJSONResponse(t, resp, http.StatusOK, &got)
	assert.Equal(t, user, got)
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	_, c := newClient(t)
	register(t, c, testutil.NewUserBuilder().WithUsername("ada").WithEmail("ada@x.com"))

	resp := c.Do(t, http.MethodPost, "/auth/update-profile", map[string]string{
		"name": "Ada Lovelace", "username": "ada_l", "email": "Lovelace@X.com",
	})
	var got domain.UserProjection
	testutil.AssertJSONResponse(t, resp, http.StatusOK, &got)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "ada_l", got.Username)
	assert.Equal(t, "lovelace@x.com", got.Email)

	var current domain.UserProjection
	testutil.AssertJSONResponse(t, c.Do(t, http.MethodGet, "/auth/user", nil), http.StatusOK, &current)
	assert.Equal(t, got, current)
}

func TestAuthHandler_UpdatePassword(t *testing.T) {
	_, c := newClient(t)
	register(t, c, testutil.NewUserBuilder().WithUsername("ada").WithPassword("longpassword1"))

	resp := c.Do(t, http.MethodPost, "/auth/update-password", map[string]string{
		"currentPassword": "wrong-current", "password": "newpassword1", "passwordConfirmation": "newpassword1",
	})
	body := testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Please fix the following errors")
	assert.Equal(t, []string{"currentPassword"}, body.Fields())

	resp = c.Do(t, http.MethodPost, "/auth/update-password", map[string]string{
		"currentPassword": "longpassword1", "password": "newpassword1", "passwordConfirmation": "newpassword1",
	})
	testutil.AssertErrorResponse(t, resp, http.StatusOK, "Update password succeed")

	resp = c.Do(t, http.MethodPost, "/auth/login", map[string]string{"username": "ada", "password": "newpassword1"})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthHandler_ProtectedRoutesRequireAuth(t *testing.T) {
	ts := testutil.NewTestServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/user"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodPost, "/auth/update-profile"},
		{http.MethodPost, "/auth/update-password"},
		{http.MethodPost, "/channels/1/subscribe"},
		{http.MethodPost, "/channels/1/unsubscribe"},
	}

	for _, tokenCase := range []struct {
		name  string
		token string
	}{
		{name: "anonymous"},
		{name: "invalid token", token: "garbage"},
	} {
		for _, rt := range routes {
			t.Run(fmt.Sprintf("%s %s %s", tokenCase.name, rt.method, rt.path), func(t *testing.T) {
				c := ts.NewClient(t)
				c.FetchCSRF(t)
				if tokenCase.token != "" {
					c.SetCookie("access_token", tokenCase.token)
				}
				resp := c.Do(t, rt.method, rt.path, map[string]string{})
				testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Unauthenticated")
			})
		}
	}
}

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)

func TestAuthHandler_PasswordReset(t *testing.T) {
	ts, c := newClient(t)
	register(t, c, testutil.NewUserBuilder().WithUsername("ada").WithEmail("ada@x.com"))

	resp := c.Do(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "ADA@x.com"})
	testutil.AssertErrorResponse(t, resp, http.StatusOK, "Reset password link email has been sent")

	msgs := ts.Mailer.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.Contains(msgs[0].HTML, "http://localhost:3000/reset-password?email=ada%40x.com"))
	m := tokenPattern.FindStringSubmatch(msgs[0].HTML)
	require.Len(t, m, 2)

	resp = c.Do(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"email": "ada@x.com", "token": strings.Repeat("0", 64), "password": "brandnewpass", "passwordConfirmation": "brandnewpass",
	})
	body := testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Please fix the following errors")
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "token", body.Errors[0].Field)
	assert.Equal(t, "Invalid password reset token, please request another!", body.Errors[0].Message)

	resp = c.Do(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"email": "ada@x.com", "token": m[1], "password": "brandnewpass", "passwordConfirmation": "brandnewpass",
	})
	testutil.AssertErrorResponse(t, resp, http.StatusOK, "Reset password succeed")

	resp = c.Do(t, http.MethodPost, "/auth/login", map[string]string{"username": "ada", "password": "brandnewpass"})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthHandler_ForgotPassword_MailRejected(t *testing.T) {
	ts, c := newClient(t)
	ts.Mailer.SetErr(fmt.Errorf("%w: 550 mailbox unavailable", mail.ErrRecipientRejected))

	resp := c.Do(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "nobody@x.com"})
	testutil.AssertErrorResponse(t, resp, http.StatusFailedDependency, "The email address has been rejected by the mail server")
}
