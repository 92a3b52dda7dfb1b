package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories so a Tx-scoped store can hand
// out the same repos bound to the transaction, which stops anyone from
// accidentally starting a transaction within a transaction.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. A cancelled ctx
	// rolls back too, so a rotation is never half applied.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// GetUserByEmail is used during password login. Emails are stored
	// normalised to lower case.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. ErrAlreadyExists on duplicate email.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash replaces the stored digest and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, now time.Time) error

	// DeleteUser removes the user; refresh tokens cascade. ErrNotFound if
	// nothing was deleted.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record by token fingerprint whatever
	// its state.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ConsumeRefreshToken atomically revokes the active (not revoked, not
	// expired at now) record with this fingerprint, recording replacedBy,
	// and returns the now revoked record. ErrNotFound when no active record
	// matched; the caller inspects GetRefreshTokenByHash to learn why.
	ConsumeRefreshToken(ctx context.Context, hash, replacedBy string, now time.Time) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked on a single record by id.
	RevokeRefreshToken(ctx context.Context, id string, now time.Time) error

	// RevokeAllUserRefreshTokens revokes every active record of a user and
	// returns how many were changed.
	RevokeAllUserRefreshTokens(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)

	// DeleteExpiredRefreshTokens is housekeeping: drops records that
	// expired before cutoff.
	DeleteExpiredRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error)
}
