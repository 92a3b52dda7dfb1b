package http

import (
	"net/http"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/google/uuid"
)

type UsersHandler struct {
	UserService *service.UserService
}

// HandleGet godoc
//
//	@Summary		Get a user
//	@Description	Returns the public view of the authenticated user. Only the user itself may read its record.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string					true	"user id (UUID)"
//	@Success		200	{object}	authsdk.User			"id, username, email"
//	@Failure		400	{object}	authsdk.ErrorResponse	"missing_header, invalid_header, invalid_request"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token, token_expired, user_not_found"
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Router			/v1/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}

	u, err := h.UserService.GetUser(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toSDKUser(u.Projection()))
}

// HandleDelete godoc
//
//	@Summary		Delete a user
//	@Description	Deletes the authenticated user together with all of its refresh tokens.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"user id (UUID)"
//	@Success		204	"deleted"
//	@Failure		400	{object}	authsdk.ErrorResponse	"missing_header, invalid_header, invalid_request"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token, token_expired, user_not_found"
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Router			/v1/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.UserService.DeleteUser(r.Context(), p, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) target(w http.ResponseWriter, r *http.Request) (service.Principal, uuid.UUID, bool) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, domain.E(domain.KindInvalidToken, "missing authentication", nil))
		return service.Principal{}, uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, domain.E(domain.KindInvalidRequest, "invalid user id", err))
		return service.Principal{}, uuid.Nil, false
	}
	return p, id, true
}
