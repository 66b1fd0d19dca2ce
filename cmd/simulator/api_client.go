package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/dom/vidshare-backend/internal/csrf"
	"github.com/google/uuid"
)

// APIClient acts like one browser: it keeps the session cookies and sends
// the CSRF header on unsafe requests.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	csrfToken  string
}

// NewAPIClient creates a new API client with an empty cookie jar
func NewAPIClient(baseURL string) *APIClient {
	jar, _ := cookiejar.New(nil)
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// Response types matching backend

type User struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Channel struct {
	User
	SubscriberCount int64 `json:"subscriberCount"`
	IsSubscribed    *bool `json:"isSubscribed"`
}

// Credentials of a user created by the simulator.
type Credentials struct {
	Username string
	Email    string
	Password string
}

// NewCredentials makes unique credentials prefixed with baseName.
func NewCredentials(baseName string) Credentials {
	suffix := uuid.New().String()[:8]
	username := fmt.Sprintf("%s_%s", baseName, suffix)
	return Credentials{
		Username: username,
		Email:    username + "@simulator.local",
		Password: "testpassword123",
	}
}

// FetchCSRF gets a token and the matching secret cookie.
func (c *APIClient) FetchCSRF() error {
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := c.call(http.MethodGet, "/csrf-token", nil, http.StatusOK, &body); err != nil {
		return err
	}
	c.csrfToken = body.CSRFToken
	return nil
}

// RegisterUser creates a new account and signs the client in
func (c *APIClient) RegisterUser(creds Credentials) (*User, error) {
	body := map[string]string{
		"name":                 creds.Username,
		"username":             creds.Username,
		"email":                creds.Email,
		"password":             creds.Password,
		"passwordConfirmation": creds.Password,
	}

	var user User
	if err := c.call(http.MethodPost, "/auth/register", body, http.StatusCreated, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login signs the client in
func (c *APIClient) Login(creds Credentials) (*User, error) {
	body := map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	}

	var user User
	if err := c.call(http.MethodPost, "/auth/login", body, http.StatusOK, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser fetches the signed in user
func (c *APIClient) CurrentUser() (*User, error) {
	var user User
	if err := c.call(http.MethodGet, "/auth/user", nil, http.StatusOK, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh exchanges the refresh cookie for a new access cookie
func (c *APIClient) Refresh() error {
	return c.call(http.MethodPost, "/auth/refresh", nil, http.StatusOK, nil)
}

// Logout ends the session
func (c *APIClient) Logout() error {
	return c.call(http.MethodPost, "/auth/logout", nil, http.StatusNoContent, nil)
}

// ForgotPassword asks for a reset link for email
func (c *APIClient) ForgotPassword(email string) error {
	return c.call(http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, http.StatusOK, nil)
}

// GetChannel fetches a channel page
func (c *APIClient) GetChannel(username string) (*Channel, error) {
	var channel Channel
	if err := c.call(http.MethodGet, "/channels/"+username, nil, http.StatusOK, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// Subscribe subscribes the signed in user to a channel
func (c *APIClient) Subscribe(channelID uint) error {
	return c.call(http.MethodPost, fmt.Sprintf("/channels/%d/subscribe", channelID), nil, http.StatusOK, nil)
}

// call sends the request and decodes the response into out when non-nil.
func (c *APIClient) call(method, path string, body interface{}, want int, out interface{}) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return fmt.Errorf("%s %s request failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(bodyBytes)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *APIClient) do(method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrfToken != "" {
		req.Header.Set(csrf.DefaultHeaderName, c.csrfToken)
	}

	return c.httpClient.Do(req)
}

// StatusError is returned when the backend answers with an unexpected status.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Path, e.Status, e.Body)
}
