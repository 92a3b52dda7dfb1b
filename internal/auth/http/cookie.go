package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/v1/auth"
)

// CookieConfig controls the refresh cookie attributes.
type CookieConfig struct {
	// Secure should only be false for local development over plain HTTP.
	Secure bool
}

func (c CookieConfig) setRefresh(w http.ResponseWriter, env domain.RefreshEnvelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return domain.E(domain.KindEncodingFailure, "", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     refreshCookiePath,
		Expires:  env.ExpiresAt,
		MaxAge:   int(time.Until(env.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (c CookieConfig) clearRefresh(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// readRefreshCookie returns the signed refresh token carried by the cookie,
// or "" when there is none.
func readRefreshCookie(r *http.Request) (string, error) {
	ck, err := r.Cookie(refreshCookieName)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && ck.Value == "") {
		return "", nil
	}
	if err != nil {
		return "", domain.E(domain.KindInvalidRequest, "malformed refresh cookie", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return "", domain.E(domain.KindInvalidRequest, "malformed refresh cookie", err)
	}
	var env domain.RefreshEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", domain.E(domain.KindInvalidRequest, "malformed refresh cookie", err)
	}
	return env.RefreshToken, nil
}
