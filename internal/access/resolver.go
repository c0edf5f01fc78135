package access

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/verdantrx/verdantrx/internal/observability"
)

// DefaultResolveTimeout is the safety timeout for one resolution cycle. It is
// the core's primary defense against a hung dependency freezing navigation.
const DefaultResolveTimeout = 6 * time.Second

// ResolverConfig tunes the resolver.
type ResolverConfig struct {
	// Timeout bounds one resolution cycle. Zero means DefaultResolveTimeout.
	Timeout time.Duration
	// ImplicitVerification treats a pharmacist with no verification record as
	// verified. This mirrors the historical behaviour and is kept as a named
	// rule pending product confirmation.
	ImplicitVerification bool
}

// Resolver owns the single source of truth for role state. It orders the
// backend calls, applies the admin cache, arms the safety timeout and merges
// concurrent resolutions for the same identity.
type Resolver struct {
	backend              RoleBackend
	cache                *AdminStatusCache
	logger               *slog.Logger
	metrics              *observability.AccessMetrics
	timeout              time.Duration
	implicitVerification bool
	group                singleflight.Group
}

// NewResolver constructs a Resolver. cache may be nil to disable caching;
// logger and metrics may be nil.
func NewResolver(backend RoleBackend, cache *AdminStatusCache, logger *slog.Logger, metrics *observability.AccessMetrics, cfg ResolverConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &Resolver{
		backend:              backend,
		cache:                cache,
		logger:               logger,
		metrics:              metrics,
		timeout:              timeout,
		implicitVerification: cfg.ImplicitVerification,
	}
}

// Resolve produces a RoleDecision for rawUserID against req. It never returns
// an error and never blocks past the safety timeout: every failure mode
// collapses into a definite decision under the security-first rule, denying
// gated routes and allowing ungated ones.
func (r *Resolver) Resolve(ctx context.Context, rawUserID string, req Requirement) RoleDecision {
	userID, ok := ValidUserID(rawUserID)
	if !ok {
		// A malformed identity is a denial, not an error: no backend call.
		r.metrics.ObserveResolution(observability.ResolutionMalformedIdentity)
		return RoleDecision{HasAccess: !req.Gated(), Status: StatusComplete}
	}

	rctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	key := rawUserID + "|" + req.key()
	ch := r.group.DoChan(key, func() (interface{}, error) {
		return r.check(rctx, userID, req), nil
	})

	select {
	case <-rctx.Done():
		// Safety timeout or caller teardown. The in-flight check is cut
		// loose: its late result is discarded and must not be shared with
		// the next resolution for this key.
		r.group.Forget(key)
		r.metrics.ObserveResolution(observability.ResolutionTimeout)
		if r.logger != nil {
			r.logger.Warn("role resolution timed out",
				slog.String("user_id", rawUserID),
				slog.Bool("gated", req.Gated()))
		}
		return r.failsafe(req)
	case res := <-ch:
		decision, _ := res.Val.(RoleDecision)
		return decision
	}
}

// check runs one resolution cycle. The context carries both the safety
// timeout and any caller cancellation; it is re-checked after every backend
// call so a late response cannot overwrite a newer resolution's state.
func (r *Resolver) check(ctx context.Context, userID uuid.UUID, req Requirement) RoleDecision {
	decision := RoleDecision{Status: StatusLoading}

	if cached, hit := r.cache.Get(userID); hit {
		r.metrics.ObserveAdminCache(true)
		decision.IsAdmin = cached
		if cached {
			// Positive short-circuit: a fresh admin grant settles everything
			// without a network call.
			r.metrics.ObserveResolution(observability.ResolutionComplete)
			return grantAll()
		}
		// A cached "false" is advisory only; the authoritative check below
		// still runs.
	} else {
		r.metrics.ObserveAdminCache(false)
	}

	isAdmin, err := r.backend.IsAdmin(ctx, userID)
	if err != nil {
		return r.inconclusive(req, "is_admin", err)
	}
	if ctx.Err() != nil {
		return r.failsafe(req)
	}
	r.cache.Set(userID, isAdmin)
	decision.IsAdmin = isAdmin
	if isAdmin {
		r.metrics.ObserveResolution(observability.ResolutionComplete)
		return grantAll()
	}
	if req.AdminOnly {
		r.metrics.ObserveResolution(observability.ResolutionComplete)
		return RoleDecision{Status: StatusComplete}
	}

	isPharmacist, err := r.backend.IsPharmacist(ctx, userID)
	if err != nil {
		return r.inconclusive(req, "is_pharmacist", err)
	}
	if ctx.Err() != nil {
		return r.failsafe(req)
	}
	decision.IsPharmacist = isPharmacist
	if !isPharmacist {
		decision.HasAccess = !(req.PharmacistOnly || req.VerifiedPharmacistOnly)
		decision.Status = StatusComplete
		r.metrics.ObserveResolution(observability.ResolutionComplete)
		return decision
	}

	status, err := r.backend.VerificationStatus(ctx, userID)
	if err != nil {
		return r.inconclusive(req, "verification_status", err)
	}
	if ctx.Err() != nil {
		return r.failsafe(req)
	}
	decision.IsVerifiedPharmacist = status == VerificationApproved ||
		(status == VerificationNone && r.implicitVerification)
	if req.VerifiedPharmacistOnly {
		decision.HasAccess = decision.IsVerifiedPharmacist
	} else {
		decision.HasAccess = true
	}
	decision.Status = StatusComplete
	r.metrics.ObserveResolution(observability.ResolutionComplete)
	return decision
}

// inconclusive logs a failed backend step and applies the security-first
// rule. Nothing propagates to the caller.
func (r *Resolver) inconclusive(req Requirement, step string, err error) RoleDecision {
	if r.logger != nil {
		r.logger.Warn("role check inconclusive",
			slog.String("step", step),
			slog.Any("error", err))
	}
	r.metrics.ObserveResolution(observability.ResolutionFailsafe)
	return r.failsafe(req)
}

func (r *Resolver) failsafe(req Requirement) RoleDecision {
	return RoleDecision{HasAccess: !req.Gated(), Status: StatusComplete}
}

func grantAll() RoleDecision {
	return RoleDecision{
		IsAdmin:              true,
		IsPharmacist:         true,
		IsVerifiedPharmacist: true,
		HasAccess:            true,
		Status:               StatusComplete,
	}
}
