package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
)

// AuthHandler serves the credential endpoints under /v1/auth.
type AuthHandler struct {
	AuthService *service.AuthService
	Cookie      CookieConfig
}

// HandleRegister godoc
//
//	@Summary		Register an account
//	@Description	Creates a user. The email must be unique (case-insensitive).
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest		true	"username, email, password"
//	@Success		201		{object}	authsdk.RegisterResponse	"id of the new user"
//	@Failure		400		{object}	authsdk.ErrorResponse		"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse		"conflict: email already registered"
//	@Failure		429		{object}	authsdk.ErrorResponse		"rate_limit_exceeded"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, domain.E(domain.KindInvalidRequest, "malformed request body", err))
		return
	}

	id, err := h.AuthService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{ID: id})
}

// HandleLogin godoc
//
//	@Summary		Password login
//	@Description	Verifies the password and issues an access token and a refresh envelope.
//	@Description	The envelope is also set as an HttpOnly, SameSite=Strict cookie scoped to /v1/auth.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.LoginResponse	"user, access_token, refresh"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Header			200		{string}	Set-Cookie				"refresh_token"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, domain.E(domain.KindInvalidRequest, "malformed request body", err))
		return
	}

	res, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Cookie.setRefresh(w, res.Refresh); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		User:        toSDKUser(res.User),
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   h.expiresIn(),
		Refresh:     toSDKEnvelope(res.Refresh),
	})
}

// HandleRefresh godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Consumes the presented refresh envelope and returns a new access token and a new envelope.
//	@Description	The envelope is read from the JSON body or, when the body is empty, from the refresh_token cookie.
//	@Description	Each envelope can be exchanged once. Presenting a consumed envelope revokes every refresh token of the user.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	false	"refresh envelope"
//	@Success		200		{object}	authsdk.RefreshResponse	"access_token, refresh"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token, token_expired, issuer_or_audience_mismatch, user_not_found"
//	@Failure		500		{object}	authsdk.ErrorResponse	"internal_error"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := presentedRefresh(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.AuthService.Refresh(r.Context(), token)
	if err != nil {
		if domain.KindOf(err).Status() == http.StatusUnauthorized {
			h.Cookie.clearRefresh(w)
		}
		writeError(w, r, err)
		return
	}

	if err := h.Cookie.setRefresh(w, res.Refresh); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   h.expiresIn(),
		Refresh:     toSDKEnvelope(res.Refresh),
	})
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revokes the presented refresh envelope (body or cookie) and the access token used for the call.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.LogoutRequest	false	"refresh envelope"
//	@Success		204		"logged out"
//	@Failure		400		{object}	authsdk.ErrorResponse	"missing_header, invalid_header, invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, domain.E(domain.KindInvalidToken, "missing authentication", nil))
		return
	}

	var token string
	if r.ContentLength != 0 {
		var req authsdk.LogoutRequest
		err := httpx.DecodeJSON(w, r, &req)
		switch {
		case err == nil:
			if req.Refresh != nil {
				token = req.Refresh.RefreshToken
			}
		case !errors.Is(err, io.EOF):
			writeError(w, r, domain.E(domain.KindInvalidRequest, "malformed request body", err))
			return
		}
	}
	if token == "" {
		var err error
		if token, err = readRefreshCookie(r); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := h.AuthService.Logout(r.Context(), p, token); err != nil {
		writeError(w, r, err)
		return
	}

	h.Cookie.clearRefresh(w)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) expiresIn() int {
	return int(h.AuthService.Issuer.Policy.AccessTTL.Seconds())
}

// presentedRefresh finds the refresh token in the JSON body, falling back
// to the cookie when the body is empty.
func presentedRefresh(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.ContentLength != 0 {
		var req authsdk.RefreshRequest
		err := httpx.DecodeJSON(w, r, &req)
		switch {
		case err == nil:
			if req.Refresh.RefreshToken != "" {
				return req.Refresh.RefreshToken, nil
			}
		case !errors.Is(err, io.EOF):
			return "", domain.E(domain.KindInvalidRequest, "malformed request body", err)
		}
	}
	return readRefreshCookie(r)
}

func toSDKUser(u domain.UserProjection) authsdk.User {
	return authsdk.User{ID: u.ID, Username: u.Username, Email: u.Email}
}

func toSDKEnvelope(env domain.RefreshEnvelope) authsdk.RefreshEnvelope {
	return authsdk.RefreshEnvelope{
		RefreshToken: env.RefreshToken,
		IssuedAt:     env.IssuedAt,
		ExpiresAt:    env.ExpiresAt,
		Issuer:       env.Issuer,
		Audience:     env.Audience,
		Revoked:      env.Revoked,
	}
}
