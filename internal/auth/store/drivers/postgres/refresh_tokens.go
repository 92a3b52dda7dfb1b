package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/google/uuid"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshTokenColumns = `id, user_id, token_hash, issuer, audience, issued_at, expires_at,
	revoked, replaced_by, created_at, updated_at`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+refreshTokenColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.UserID.String(), t.TokenHash, t.Issuer, t.Audience,
		ts(t.IssuedAt), ts(t.ExpiresAt), t.Revoked, mapStringNull(t.ReplacedBy),
		ts(t.CreatedAt), ts(t.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, hash)
	return scanRefreshToken(row)
}

// ConsumeRefreshToken flips the row in one conditional UPDATE. A concurrent
// caller blocks on the row lock, re-evaluates the WHERE clause after the
// first commits and matches nothing.
func (r *refreshTokensRepo) ConsumeRefreshToken(
	ctx context.Context,
	hash, replacedBy string,
	now time.Time,
) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE refresh_tokens
		    SET revoked = TRUE, replaced_by = $1, updated_at = $2
		  WHERE token_hash = $3 AND NOT revoked AND expires_at > $2
		 RETURNING `+refreshTokenColumns,
		mapStringNull(replacedBy), ts(now), hash,
	)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, updated_at = $1 WHERE id = $2`,
		ts(now), id,
	)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, updated_at = $1 WHERE user_id = $2 AND NOT revoked`,
		ts(now), userID.String(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= $1`, ts(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var (
		t          domain.RefreshToken
		userID     string
		replacedBy sql.NullString
	)
	err := row.Scan(
		&t.ID, &userID, &t.TokenHash, &t.Issuer, &t.Audience,
		&t.IssuedAt, &t.ExpiresAt, &t.Revoked, &replacedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("postgres: refresh token user id %q: %w", userID, err)
	}
	t.UserID = uid
	t.ReplacedBy = mapNullString(replacedBy)
	t.IssuedAt = t.IssuedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}
