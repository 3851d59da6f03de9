package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUser is the identity a request carries in the X-User-* headers.
type TestUser struct {
	ID    string
	Email string
	Name  string
}

// Storekeeper is the default acting user in handler tests.
var Storekeeper = TestUser{ID: "u-7", Email: "jan@ksp.example", Name: "Jan Kowalski"}

// JSONRequest builds a request with body encoded as JSON. A nil body sends
// no payload.
func JSONRequest(method, path string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// AsUser sets the actor headers the gateway forwards. Empty fields are left
// unset.
func AsUser(req *http.Request, u TestUser) *http.Request {
	for header, value := range map[string]string{
		"X-User-ID":    u.ID,
		"X-User-Email": u.Email,
		"X-User-Name":  u.Name,
	} {
		if value != "" {
			req.Header.Set(header, value)
		}
	}
	return req
}

// Serve runs req through handler and returns the recorded response.
func Serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// AssertStatus asserts the response status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code. Body: %s", rr.Body.String())
}

// DecodeBody unmarshals the response body into target.
func DecodeBody(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	err := json.Unmarshal(rr.Body.Bytes(), target)
	require.NoError(t, err, "failed to parse response body: %s", rr.Body.String())
}

// AssertErrorCode checks status and the envelope's error code.
func AssertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	AssertStatus(t, rr, status)

	var body struct {
		Success bool `json:"success"`
		Error   *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	DecodeBody(t, rr, &body)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error, "expected an error envelope: %s", rr.Body.String())
	assert.Equal(t, code, body.Error.Code)
}

// SkipIfShort skips the test if running with -short flag
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// PtrString returns a pointer to s.
func PtrString(s string) *string {
	return &s
}
