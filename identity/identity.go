// Package identity talks to the external email/password identity provider.
// The provider issues opaque bearer tokens; this client never inspects or
// validates them.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Account is the result of a successful sign-in or sign-up.
type Account struct {
	Token  string
	UserID string
	Email  string
}

// AuthError indicates the provider rejected the credentials.
type AuthError struct {
	Message    string
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("identity provider rejected request (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsAuthError checks if an error is a credential rejection.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Client calls the identity provider's REST endpoints.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
}

// New creates an identity client for the provider at baseURL.
func New(httpClient *http.Client, baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// SignIn exchanges email/password credentials for a bearer token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Account, error) {
	return c.credentialRequest(ctx, "accounts:signInWithPassword", email, password)
}

// SignUp registers a new account and returns its first token.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Account, error) {
	return c.credentialRequest(ctx, "accounts:signUp", email, password)
}

func (c *Client) credentialRequest(ctx context.Context, endpoint, email, password string) (*Account, error) {
	reqBody, err := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/%s", c.baseURL, endpoint)
	if c.apiKey != "" {
		reqURL += "?key=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("Identity request failed",
			"endpoint", endpoint,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, fmt.Errorf("identity request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	c.logger.Info("Identity request completed",
		"endpoint", endpoint,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, &AuthError{Message: errBody.Error.Message, StatusCode: resp.StatusCode}
	}

	var body struct {
		IDToken string `json:"idToken"`
		LocalID string `json:"localId"`
		Email   string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode identity response: %w", err)
	}
	if body.IDToken == "" {
		return nil, errors.New("identity response missing token")
	}

	return &Account{
		Token:  body.IDToken,
		UserID: body.LocalID,
		Email:  body.Email,
	}, nil
}
