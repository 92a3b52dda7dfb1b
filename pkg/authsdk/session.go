package authsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionClosed is returned by a Session after Logout or DeleteUser.
var ErrSessionClosed = errors.New("authsdk: session closed")

// Session is an authenticated session that rotates its tokens
// automatically shortly before the access token expires.
type Session struct {
	client *SDKClient
	userID uuid.UUID

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	refresh     RefreshEnvelope
	closed      bool
}

// expiryBuffer refreshes this long before the access token actually expires.
const expiryBuffer = 30 * time.Second

func newSession(c *SDKClient, userID uuid.UUID, accessToken string, expiresIn int, refresh RefreshEnvelope) *Session {
	return &Session{
		client:      c,
		userID:      userID,
		accessToken: accessToken,
		expiresAt:   time.Now().Add(time.Duration(expiresIn)*time.Second - expiryBuffer),
		refresh:     refresh,
	}
}

// UserID is the subject the session is authenticated as.
func (s *Session) UserID() uuid.UUID { return s.userID }

// AccessToken returns the current access token without refreshing it.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshEnvelope returns the current refresh envelope.
func (s *Session) RefreshEnvelope() RefreshEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

// Refresh rotates the session's tokens now.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	resp, err := s.client.Refresh(ctx, s.refresh)
	if err != nil {
		return err
	}
	s.accessToken = resp.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(resp.ExpiresIn)*time.Second - expiryBuffer)
	s.refresh = resp.Refresh
	return nil
}

// getValidToken returns an access token, rotating first if it is about to
// expire. The lock is held across the rotation so concurrent callers never
// present the same refresh token twice.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrSessionClosed
	}
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	return s.accessToken, nil
}

// doAuthRequest performs a request with the session's access token.
func (s *Session) doAuthRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	if body != nil {
		headers["Content-Type"] = "application/json"
	}
	return s.client.doRequest(ctx, method, path, body, headers)
}

// GetUser fetches the session's own account.
func (s *Session) GetUser(ctx context.Context) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/users/"+s.userID.String(), nil)
	if err != nil {
		return nil, err
	}

	var u User
	if err := decodeJSON(resp, &u, http.StatusOK); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser deletes the session's own account and closes the session.
func (s *Session) DeleteUser(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/users/"+s.userID.String(), nil)
	if err != nil {
		return err
	}
	if err := checkStatusNoContent(resp); err != nil {
		return err
	}
	s.close()
	return nil
}

// Logout revokes the refresh token and the current access token and
// closes the session.
func (s *Session) Logout(ctx context.Context) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	env := s.RefreshEnvelope()
	if err := s.client.postJSON(ctx, "/v1/auth/logout", token, LogoutRequest{Refresh: &env}, nil, http.StatusNoContent); err != nil {
		return err
	}
	s.close()
	return nil
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.accessToken = ""
	s.refresh = RefreshEnvelope{}
}
