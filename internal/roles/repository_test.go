package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/verdantrx/verdantrx/internal/access"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	row fakeRow
	sql string
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.sql = sql
	return db.row
}

func TestRepositoryHasRole(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		*(dest[0].(*bool)) = true
		return nil
	}}}
	repo := &Repository{db: db}

	has, err := repo.HasRole(context.Background(), uuid.New(), RoleAdmin)
	require.NoError(t, err)
	require.True(t, has)
	require.Contains(t, db.sql, "user_roles")
}

func TestRepositoryVerificationNoRecord(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		return pgx.ErrNoRows
	}}}
	repo := &Repository{db: db}

	status, err := repo.VerificationStatus(context.Background(), uuid.New())
	require.NoError(t, err, "a missing record is an answer, not a failure")
	require.Equal(t, access.VerificationNone, status)
}

func TestRepositoryVerificationStatuses(t *testing.T) {
	for _, want := range []access.VerificationStatus{
		access.VerificationPending,
		access.VerificationApproved,
		access.VerificationRejected,
	} {
		db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
			*(dest[0].(*string)) = string(want)
			return nil
		}}}
		repo := &Repository{db: db}
		status, err := repo.VerificationStatus(context.Background(), uuid.New())
		require.NoError(t, err)
		require.Equal(t, want, status)
	}
}

func TestRepositoryUnknownStatusIsMalformed(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		*(dest[0].(*string)) = "in-review"
		return nil
	}}}
	repo := &Repository{db: db}
	_, err := repo.VerificationStatus(context.Background(), uuid.New())
	require.ErrorIs(t, err, access.ErrMalformedResponse)
}

func TestRepositoryErrorClassification(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01"}
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		return pgErr
	}}}
	repo := &Repository{db: db}

	_, err := repo.HasRole(context.Background(), uuid.New(), RolePharmacist)
	require.ErrorIs(t, err, access.ErrBackendError)

	connErr := errors.New("dial tcp 127.0.0.1:5432: connection refused")
	db.row = fakeRow{scan: func(dest ...any) error { return connErr }}
	_, err = repo.HasRole(context.Background(), uuid.New(), RolePharmacist)
	require.ErrorIs(t, err, access.ErrBackendUnavailable)
	require.ErrorIs(t, err, connErr)
}
