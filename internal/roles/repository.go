package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdantrx/verdantrx/internal/access"
)

type dbtx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository answers role questions straight from the tables. It is the
// fallback probe when the edge functions are unreachable.
type Repository struct {
	db dbtx
}

// NewRepository constructs a repository backed by the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// HasRole reports whether userID holds the named role.
func (r *Repository) HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`
	var has bool
	if err := r.db.QueryRow(ctx, query, userID, role).Scan(&has); err != nil {
		return false, classify("has role", err)
	}
	return has, nil
}

// VerificationStatus returns the latest pharmacist verification record for
// userID. No record at all yields VerificationNone without an error.
func (r *Repository) VerificationStatus(ctx context.Context, userID uuid.UUID) (access.VerificationStatus, error) {
	const query = `SELECT status FROM pharmacist_verifications WHERE user_id = $1 ORDER BY submitted_at DESC LIMIT 1`
	var status string
	if err := r.db.QueryRow(ctx, query, userID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return access.VerificationNone, nil
		}
		return access.VerificationNone, classify("verification status", err)
	}
	switch s := access.VerificationStatus(status); s {
	case access.VerificationPending, access.VerificationApproved, access.VerificationRejected:
		return s, nil
	default:
		return access.VerificationNone, fmt.Errorf("roles: unknown verification status %q: %w", status, access.ErrMalformedResponse)
	}
}

// classify folds database failures into the backend error taxonomy: a server
// rejection is a backend error, everything else (connection refused, DNS,
// context expiry) counts as unavailable.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("roles: %s: %s: %w", op, pgErr.Code, access.ErrBackendError)
	}
	return fmt.Errorf("roles: %s: %w: %w", op, access.ErrBackendUnavailable, err)
}
