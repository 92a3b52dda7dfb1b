package http

import (
	"net/http"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// writeError is the single place a failure becomes a response. It logs the
// full cause once and sends the client only the public message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := kind.Status()
	code := kind.String()
	desc := domain.PublicMessage(err)

	log := slogx.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "kind", code, "err", err)
	} else {
		log.Warn("request rejected", "kind", code, "err", err)
	}

	if status == http.StatusUnauthorized {
		httpx.WriteBearerError(w, status, code, desc)
		return
	}
	httpx.WriteError(w, status, code, desc)
}
