package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SDKClient is a client for the authentication service. It provides the
// unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an account and returns its id.
func (c *SDKClient) Register(ctx context.Context, username, email, password string) (uuid.UUID, error) {
	var out RegisterResponse
	err := c.postJSON(ctx, "/v1/auth/register", "", RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, &out, http.StatusCreated)
	if err != nil {
		return uuid.Nil, err
	}
	return out.ID, nil
}

// LoginRaw performs a password login and returns the raw response.
func (c *SDKClient) LoginRaw(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.postJSON(ctx, "/v1/auth/login", "", LoginRequest{Email: email, Password: password}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login performs a password login and wraps the result in a Session.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.LoginRaw(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return newSession(c, resp.User.ID, resp.AccessToken, resp.ExpiresIn, resp.Refresh), nil
}

// Refresh rotates env. The envelope must not be used again afterwards,
// whatever the outcome.
func (c *SDKClient) Refresh(ctx context.Context, env RefreshEnvelope) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.postJSON(ctx, "/v1/auth/refresh", "", RefreshRequest{Refresh: env}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// postJSON sends body as JSON and decodes the expected response into out.
// An empty accessToken sends no Authorization header.
func (c *SDKClient) postJSON(ctx context.Context, path, accessToken string, body, out any, expectedStatus int) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if accessToken != "" {
		headers["Authorization"] = "Bearer " + accessToken
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(buf), headers)
	if err != nil {
		return err
	}
	if out == nil {
		return checkStatusNoContent(resp)
	}
	return decodeJSON(resp, out, expectedStatus)
}
