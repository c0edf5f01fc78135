package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrBackendUnavailable means the role backend could not be reached.
	ErrBackendUnavailable = errors.New("access: role backend unavailable")
	// ErrBackendError means the role backend answered with a failure.
	ErrBackendError = errors.New("access: role backend error")
	// ErrMalformedResponse means the backend answered with an unparseable
	// payload. It is folded into the same inconclusive handling as the two
	// errors above.
	ErrMalformedResponse = errors.New("access: malformed backend response")
)

// RoleBackend answers the three role questions for an identity. Each call may
// fail or hang; a failure is an inconclusive result, never "not granted".
// Implementations are expected to honour context cancellation.
type RoleBackend interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	IsPharmacist(ctx context.Context, userID uuid.UUID) (bool, error)
	VerificationStatus(ctx context.Context, userID uuid.UUID) (VerificationStatus, error)
}
