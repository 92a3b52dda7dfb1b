package service

import (
	"errors"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

// verifyError converts a codec failure into the domain taxonomy.
func verifyError(err error) error {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return domain.E(domain.KindTokenExpired, "token expired", err)
	case errors.Is(err, jwtx.ErrIssuer), errors.Is(err, jwtx.ErrAudience):
		return domain.E(domain.KindIssuerOrAudienceMismatch, "token issuer or audience mismatch", err)
	default:
		return domain.E(domain.KindInvalidToken, "invalid token", err)
	}
}

// storeError wraps a persistence failure. Already classified errors pass
// through untouched.
func storeError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.E(domain.KindStoreFailure, "", err)
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
