package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse checks the status and decodes the body into v
func AssertJSONResponse(t *testing.T, resp *http.Response, expectedStatus int, v interface{}) {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	require.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code, body: %s", string(body))

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Fields lists the fields named in a validation error body.
func (e ErrorBody) Fields() []string {
	var out []string
	for _, f := range e.Errors {
		out = append(out, f.Field)
	}
	return out
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) ErrorBody {
	t.Helper()

	var body ErrorBody
	AssertJSONResponse(t, resp, expectedStatus, &body)
	assert.Equal(t, expectedMessage, body.Message, "error message mismatch")
	return body
}

// FindCookie returns the Set-Cookie named name from resp, or nil.
func FindCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
