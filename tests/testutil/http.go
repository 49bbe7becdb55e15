package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// APIClient sends JSON requests straight into an http.Handler
type APIClient struct {
	t       *testing.T
	handler http.Handler
}

// NewAPIClient creates a client for handler, usually a gin engine
func NewAPIClient(t *testing.T, handler http.Handler) *APIClient {
	return &APIClient{t: t, handler: handler}
}

// APIError is the error part of the response envelope
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Details   []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

// APIMeta is the paging part of the response envelope
type APIMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// APIResponse is a recorded response with its decoded envelope
type APIResponse struct {
	Code    int         `json:"-"`
	Header  http.Header `json:"-"`
	Raw     []byte      `json:"-"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

// Do sends method path with an optional bearer token and JSON body. A
// string or []byte body is sent verbatim.
func (a *APIClient) Do(method, path, token string, body any) *APIResponse {
	a.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewBuffer(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	resp := &APIResponse{Code: w.Code, Header: w.Header(), Raw: w.Body.Bytes()}
	if len(resp.Raw) > 0 {
		require.NoError(a.t, json.Unmarshal(resp.Raw, resp), "body: %s", resp.Raw)
	}
	return resp
}

// Decode unmarshals the data field into v
func (r *APIResponse) Decode(t *testing.T, v any) {
	t.Helper()
	require.NotEmpty(t, r.Data, "no data in %s", r.Raw)
	require.NoError(t, json.Unmarshal(r.Data, v))
}

// RequireStatus fails the test unless the response has the given status
func (r *APIResponse) RequireStatus(t *testing.T, status int) *APIResponse {
	t.Helper()
	require.Equal(t, status, r.Code, "body: %s", r.Raw)
	return r
}

// ErrorCode returns the envelope error code, or "" on success
func (r *APIResponse) ErrorCode() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}
