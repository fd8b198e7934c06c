package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(srv.Client(), srv.URL, apiKey, logger)
}

func TestSignIn(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	c := testClient(t, "k-123", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if err := json.NewEncoder(w).Encode(map[string]string{
			"idToken": "tok-abc",
			"localId": "u1",
			"email":   "reader@example.com",
		}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	})

	account, err := c.SignIn(context.Background(), "reader@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if gotPath != "/v1/accounts:signInWithPassword" {
		t.Errorf("path = %q, want /v1/accounts:signInWithPassword", gotPath)
	}
	if gotKey != "k-123" {
		t.Errorf("key = %q, want k-123", gotKey)
	}
	if gotBody["email"] != "reader@example.com" || gotBody["password"] != "hunter2" {
		t.Errorf("request body = %v", gotBody)
	}
	if v, ok := gotBody["returnSecureToken"].(bool); !ok || !v {
		t.Errorf("returnSecureToken = %v, want true", gotBody["returnSecureToken"])
	}

	if account.Token != "tok-abc" || account.UserID != "u1" || account.Email != "reader@example.com" {
		t.Errorf("SignIn() = %+v", account)
	}
}

func TestSignUpEndpoint(t *testing.T) {
	var gotPath string
	c := testClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewEncoder(w).Encode(map[string]string{"idToken": "tok", "localId": "u2"}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	})

	if _, err := c.SignUp(context.Background(), "new@example.com", "pw"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if gotPath != "/v1/accounts:signUp" {
		t.Errorf("path = %q, want /v1/accounts:signUp", gotPath)
	}
}

func TestRejectedCredentials(t *testing.T) {
	c := testClient(t, "k", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		if err := json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "INVALID_PASSWORD"},
		}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	})

	_, err := c.SignIn(context.Background(), "reader@example.com", "wrong")
	if err == nil {
		t.Fatal("SignIn() succeeded with rejected credentials")
	}
	if !IsAuthError(err) {
		t.Errorf("IsAuthError() = false for %v", err)
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthError", err)
	}
	if authErr.StatusCode != http.StatusBadRequest || authErr.Message != "INVALID_PASSWORD" {
		t.Errorf("AuthError = %+v", authErr)
	}
}

func TestMissingTokenInResponse(t *testing.T) {
	c := testClient(t, "k", func(w http.ResponseWriter, _ *http.Request) {
		if err := json.NewEncoder(w).Encode(map[string]string{"localId": "u1"}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	})

	_, err := c.SignIn(context.Background(), "reader@example.com", "pw")
	if err == nil {
		t.Fatal("SignIn() succeeded without a token in the response")
	}
	if IsAuthError(err) {
		t.Error("IsAuthError() = true for malformed success response")
	}
}

func TestIsAuthError(t *testing.T) {
	if IsAuthError(errors.New("network down")) {
		t.Error("IsAuthError() = true for plain error")
	}
	if IsAuthError(nil) {
		t.Error("IsAuthError() = true for nil")
	}
}
