package roles

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/verdantrx/verdantrx/internal/access"
)

// boolProbe is one strategy for answering a yes/no role question.
type boolProbe struct {
	name  string
	check func(ctx context.Context, userID uuid.UUID) (bool, error)
}

// statusProbe is one strategy for fetching the verification status.
type statusProbe struct {
	name  string
	fetch func(ctx context.Context, userID uuid.UUID) (access.VerificationStatus, error)
}

// Backend implements access.RoleBackend as an ordered list of probes per
// question: the first conclusive answer wins, errors are inconclusive and
// move on to the next probe. The fallback order is fixed at construction, so
// it is visible and testable rather than buried in exception handling.
type Backend struct {
	logger       *slog.Logger
	admin        []boolProbe
	pharmacist   []boolProbe
	verification []statusProbe
}

// NewBackend composes the edge client (primary) and the direct-table
// repository (fallback). Either may be nil; at least one must be provided
// for the backend to ever answer conclusively.
func NewBackend(edge *EdgeClient, repo *Repository, logger *slog.Logger) *Backend {
	b := &Backend{logger: logger}
	if edge != nil {
		b.admin = append(b.admin, boolProbe{name: "edge", check: edge.CheckAdmin})
		b.pharmacist = append(b.pharmacist, boolProbe{name: "edge", check: edge.CheckPharmacist})
		b.verification = append(b.verification, statusProbe{name: "edge", fetch: edge.FetchVerification})
	}
	if repo != nil {
		b.admin = append(b.admin, boolProbe{name: "table", check: func(ctx context.Context, userID uuid.UUID) (bool, error) {
			return repo.HasRole(ctx, userID, RoleAdmin)
		}})
		b.pharmacist = append(b.pharmacist, boolProbe{name: "table", check: func(ctx context.Context, userID uuid.UUID) (bool, error) {
			return repo.HasRole(ctx, userID, RolePharmacist)
		}})
		b.verification = append(b.verification, statusProbe{name: "table", fetch: repo.VerificationStatus})
	}
	return b
}

// IsAdmin implements access.RoleBackend.
func (b *Backend) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return b.firstConclusive(ctx, userID, "is_admin", b.admin)
}

// IsPharmacist implements access.RoleBackend.
func (b *Backend) IsPharmacist(ctx context.Context, userID uuid.UUID) (bool, error) {
	return b.firstConclusive(ctx, userID, "is_pharmacist", b.pharmacist)
}

// VerificationStatus implements access.RoleBackend.
func (b *Backend) VerificationStatus(ctx context.Context, userID uuid.UUID) (access.VerificationStatus, error) {
	if len(b.verification) == 0 {
		return access.VerificationNone, access.ErrBackendUnavailable
	}
	var errs []error
	for _, probe := range b.verification {
		if ctx.Err() != nil {
			return access.VerificationNone, ctx.Err()
		}
		status, err := probe.fetch(ctx, userID)
		if err == nil {
			return status, nil
		}
		b.logProbe("verification_status", probe.name, err)
		errs = append(errs, err)
	}
	return access.VerificationNone, errors.Join(errs...)
}

func (b *Backend) firstConclusive(ctx context.Context, userID uuid.UUID, op string, probes []boolProbe) (bool, error) {
	if len(probes) == 0 {
		return false, access.ErrBackendUnavailable
	}
	var errs []error
	for _, probe := range probes {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		value, err := probe.check(ctx, userID)
		if err == nil {
			return value, nil
		}
		b.logProbe(op, probe.name, err)
		errs = append(errs, err)
	}
	return false, errors.Join(errs...)
}

func (b *Backend) logProbe(op, probe string, err error) {
	if b.logger == nil {
		return
	}
	b.logger.Warn("role probe inconclusive",
		slog.String("op", op),
		slog.String("probe", probe),
		slog.Any("error", err))
}

var _ access.RoleBackend = (*Backend)(nil)
