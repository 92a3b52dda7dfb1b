package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
	"github.com/google/uuid"
)

type UserService struct {
	Store store.Store
}

// GetUser fetches a user by id on behalf of p. Callers may only read their
// own record.
func (s *UserService) GetUser(ctx context.Context, p Principal, id uuid.UUID) (domain.User, error) {
	if p.UserID != id {
		return domain.User{}, domain.E(domain.KindForbidden, "forbidden", nil)
	}
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return domain.User{}, domain.E(domain.KindUserNotFound, "user not found", err)
		}
		return domain.User{}, storeError(err)
	}
	return u, nil
}

// DeleteUser removes the caller's own account. Its refresh tokens go with
// it, and any access token still in flight is refused by the gate because
// the subject no longer resolves.
func (s *UserService) DeleteUser(ctx context.Context, p Principal, id uuid.UUID) error {
	if p.UserID != id {
		return domain.E(domain.KindForbidden, "forbidden", nil)
	}
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		if isNotFound(err) {
			return domain.E(domain.KindUserNotFound, "user not found", err)
		}
		return storeError(err)
	}
	slogx.FromContext(ctx).Info("user deleted", slog.String("user_id", id.String()))
	return nil
}
