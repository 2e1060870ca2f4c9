package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{SecretKey: "sk_test_123", BaseURL: srv.URL + "/"}, WithHTTPClient(srv.Client()))
}

func TestInitialize(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req InitializeRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, int64(500000), req.Amount)
		assert.Equal(t, "ref-1", req.Reference)

		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{
			"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ref-1"}}`))
	})

	auth, err := client.Initialize(context.Background(), InitializeRequest{Email: "a@b.c", Amount: 500000, Reference: "ref-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", auth.AuthorizationURL)
	assert.Equal(t, "abc", auth.AccessCode)
	assert.Equal(t, "ref-1", auth.Reference)
}

func TestInitialize_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	})

	_, err := client.Initialize(context.Background(), InitializeRequest{Email: "a@b.c", Amount: 100, Reference: "r"})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "Invalid key", rejected.Message)
}

func TestInitialize_Validation(t *testing.T) {
	_, err := NewClient(Config{}).Initialize(context.Background(), InitializeRequest{Amount: 100})
	assert.ErrorIs(t, err, ErrNotConfigured)

	client := NewClient(Config{SecretKey: "sk"})
	_, err = client.Initialize(context.Background(), InitializeRequest{Amount: 0})
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus string
		succeeded  bool
	}{
		{
			name:       "success",
			body:       `{"status":true,"data":{"reference":"ref-1","status":"success","amount":500000,"currency":"NGN","paid_at":"2026-01-02T03:04:05Z"}}`,
			wantStatus: "success",
			succeeded:  true,
		},
		{
			name:       "abandoned",
			body:       `{"status":true,"data":{"reference":"ref-1","status":"abandoned","amount":500000,"currency":"NGN","paid_at":null}}`,
			wantStatus: "abandoned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/transaction/verify/ref-1", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})

			v, err := client.Verify(context.Background(), "ref-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, tt.succeeded, v.Succeeded())
			assert.Equal(t, int64(500000), v.Amount)
			assert.Equal(t, tt.succeeded, v.PaidAt != nil)
			assert.True(t, json.Valid(v.Raw))
		})
	}
}

func TestVerify_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := client.Verify(context.Background(), "ref-1")
	var statusErr *httpStatusError
	require.True(t, errors.As(err, &statusErr), "err = %v", err)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestVerify_EscapesReference(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/a%2Fb", r.URL.RawPath)
		_, _ = w.Write([]byte(`{"status":true,"data":{"status":"failed"}}`))
	})

	v, err := client.Verify(context.Background(), "a/b")
	require.NoError(t, err)
	assert.False(t, v.Succeeded())
}
