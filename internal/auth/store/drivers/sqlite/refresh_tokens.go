package sqlite

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
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID.String(), t.TokenHash, t.Issuer, t.Audience,
		unix(t.IssuedAt), unix(t.ExpiresAt), t.Revoked, mapStringNull(t.ReplacedBy),
		unix(t.CreatedAt), unix(t.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash)
	return scanRefreshToken(row)
}

// ConsumeRefreshToken is a single conditional UPDATE so two concurrent
// rotations of the same token can never both match the row.
func (r *refreshTokensRepo) ConsumeRefreshToken(
	ctx context.Context,
	hash, replacedBy string,
	now time.Time,
) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE refresh_tokens
		    SET revoked = 1, replaced_by = ?, updated_at = ?
		  WHERE token_hash = ? AND revoked = 0 AND expires_at > ?
		 RETURNING `+refreshTokenColumns,
		mapStringNull(replacedBy), unix(now), hash, unix(now),
	)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE id = ?`,
		unix(now), id,
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
		`UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE user_id = ? AND revoked = 0`,
		unix(now), userID.String(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, unix(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var (
		t                                 domain.RefreshToken
		userID                            string
		replacedBy                        sql.NullString
		issued, expires, created, updated int64
	)
	err := row.Scan(
		&t.ID, &userID, &t.TokenHash, &t.Issuer, &t.Audience,
		&issued, &expires, &t.Revoked, &replacedBy, &created, &updated,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("sqlite: refresh token user id %q: %w", userID, err)
	}
	t.UserID = uid
	t.ReplacedBy = mapNullString(replacedBy)
	t.IssuedAt = fromUnix(issued)
	t.ExpiresAt = fromUnix(expires)
	t.CreatedAt = fromUnix(created)
	t.UpdatedAt = fromUnix(updated)
	return t, nil
}
