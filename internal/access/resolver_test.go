package access

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testUserID = "11111111-1111-1111-1111-111111111111"

type fakeBackend struct {
	mu sync.Mutex

	adminResult      bool
	adminErr         error
	pharmacistResult bool
	pharmacistErr    error
	verification     VerificationStatus
	verificationErr  error

	adminHangs bool

	adminCalls        int32
	pharmacistCalls   int32
	verificationCalls int32
}

func (b *fakeBackend) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	atomic.AddInt32(&b.adminCalls, 1)
	if b.adminHangs {
		<-ctx.Done()
		return false, ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.adminResult, b.adminErr
}

func (b *fakeBackend) IsPharmacist(ctx context.Context, userID uuid.UUID) (bool, error) {
	atomic.AddInt32(&b.pharmacistCalls, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pharmacistResult, b.pharmacistErr
}

func (b *fakeBackend) VerificationStatus(ctx context.Context, userID uuid.UUID) (VerificationStatus, error) {
	atomic.AddInt32(&b.verificationCalls, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.verification, b.verificationErr
}

func newTestResolver(backend RoleBackend, cfg ResolverConfig) *Resolver {
	return NewResolver(backend, NewAdminStatusCache(5*time.Minute), nil, nil, cfg)
}

func TestResolveAdminGrantsEverything(t *testing.T) {
	backend := &fakeBackend{adminResult: true}
	resolver := newTestResolver(backend, ResolverConfig{})

	decision := resolver.Resolve(context.Background(), testUserID, Requirement{VerifiedPharmacistOnly: true})
	require.Equal(t, StatusComplete, decision.Status)
	require.True(t, decision.IsAdmin)
	require.True(t, decision.IsPharmacist)
	require.True(t, decision.IsVerifiedPharmacist)
	require.True(t, decision.HasAccess)
	require.Equal(t, Allow, Evaluate(decision, Requirement{VerifiedPharmacistOnly: true}))

	// Admin short-circuits: no pharmacist or verification call.
	require.EqualValues(t, 1, backend.adminCalls)
	require.EqualValues(t, 0, backend.pharmacistCalls)
	require.EqualValues(t, 0, backend.verificationCalls)
}

func TestResolveMalformedIdentitySkipsBackend(t *testing.T) {
	backend := &fakeBackend{adminResult: true}
	resolver := newTestResolver(backend, ResolverConfig{})

	decision := resolver.Resolve(context.Background(), "not-a-uuid", Requirement{AdminOnly: true})
	require.Equal(t, RoleDecision{Status: StatusComplete}, decision)
	require.EqualValues(t, 0, backend.adminCalls)

	// Public routes stay reachable for malformed identities.
	decision = resolver.Resolve(context.Background(), "", Requirement{})
	require.True(t, decision.HasAccess)
	require.EqualValues(t, 0, backend.adminCalls)
}

func TestResolveCacheShortCircuit(t *testing.T) {
	backend := &fakeBackend{adminResult: true}
	resolver := newTestResolver(backend, ResolverConfig{})

	first := resolver.Resolve(context.Background(), testUserID, Requirement{AdminOnly: true})
	require.True(t, first.IsAdmin)
	require.EqualValues(t, 1, backend.adminCalls)

	// A fresh positive entry answers without any network call.
	second := resolver.Resolve(context.Background(), testUserID, Requirement{AdminOnly: true})
	require.True(t, second.IsAdmin)
	require.True(t, second.HasAccess)
	require.EqualValues(t, 1, backend.adminCalls)
}

func TestResolveCachedFalseStillQueried(t *testing.T) {
	backend := &fakeBackend{adminResult: false, pharmacistResult: true, verification: VerificationApproved}
	resolver := newTestResolver(backend, ResolverConfig{})

	resolver.Resolve(context.Background(), testUserID, Requirement{})
	require.EqualValues(t, 1, backend.adminCalls)

	// Cached "false" is advisory: the authoritative admin check runs again.
	resolver.Resolve(context.Background(), testUserID, Requirement{})
	require.EqualValues(t, 2, backend.adminCalls)
}

func TestResolveAdminOnlyEarlyExit(t *testing.T) {
	backend := &fakeBackend{adminResult: false, pharmacistResult: true}
	resolver := newTestResolver(backend, ResolverConfig{})

	decision := resolver.Resolve(context.Background(), testUserID, Requirement{AdminOnly: true})
	require.False(t, decision.HasAccess)
	require.Equal(t, StatusComplete, decision.Status)

	// Requirement is admin-only, so the pharmacist chain is skipped.
	require.EqualValues(t, 0, backend.pharmacistCalls)
	require.EqualValues(t, 0, backend.verificationCalls)
}

func TestResolveNonPharmacist(t *testing.T) {
	backend := &fakeBackend{pharmacistResult: false}
	resolver := newTestResolver(backend, ResolverConfig{})

	decision := resolver.Resolve(context.Background(), testUserID, Requirement{PharmacistOnly: true})
	require.False(t, decision.IsPharmacist)
	require.False(t, decision.HasAccess)
	// Non-pharmacist implies non-verified: the verification call is skipped.
	require.EqualValues(t, 0, backend.verificationCalls)

	// Same roles on a public route still allow access.
	decision = resolver.Resolve(context.Background(), testUserID, Requirement{})
	require.True(t, decision.HasAccess)
}

func TestResolveVerificationStatuses(t *testing.T) {
	cases := []struct {
		status   VerificationStatus
		verified bool
	}{
		{VerificationApproved, true},
		{VerificationPending, false},
		{VerificationRejected, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			backend := &fakeBackend{pharmacistResult: true, verification: tc.status}
			resolver := newTestResolver(backend, ResolverConfig{})

			decision := resolver.Resolve(context.Background(), testUserID, Requirement{VerifiedPharmacistOnly: true})
			require.Equal(t, tc.verified, decision.IsVerifiedPharmacist)
			require.Equal(t, tc.verified, decision.HasAccess)
		})
	}
}

func TestResolveImplicitVerificationRule(t *testing.T) {
	// No verification record at all. With the named rule enabled the
	// pharmacist counts as verified; disabled, the default denies.
	backend := &fakeBackend{pharmacistResult: true, verification: VerificationNone}

	strict := newTestResolver(backend, ResolverConfig{})
	decision := strict.Resolve(context.Background(), testUserID, Requirement{VerifiedPharmacistOnly: true})
	require.False(t, decision.IsVerifiedPharmacist)

	lenient := newTestResolver(backend, ResolverConfig{ImplicitVerification: true})
	decision = lenient.Resolve(context.Background(), testUserID, Requirement{VerifiedPharmacistOnly: true})
	require.True(t, decision.IsVerifiedPharmacist)
	require.True(t, decision.HasAccess)
}

func TestResolveBackendErrorFailsClosedForGates(t *testing.T) {
	backend := &fakeBackend{adminErr: ErrBackendUnavailable}
	resolver := newTestResolver(backend, ResolverConfig{})

	decision := resolver.Resolve(context.Background(), testUserID, Requirement{PharmacistOnly: true})
	require.Equal(t, StatusComplete, decision.Status)
	require.False(t, decision.HasAccess)

	// Fail open for public content under the same failure.
	decision = resolver.Resolve(context.Background(), testUserID, Requirement{})
	require.True(t, decision.HasAccess)
}

func TestResolveLaterStepErrors(t *testing.T) {
	backend := &fakeBackend{pharmacistErr: ErrBackendError}
	resolver := newTestResolver(backend, ResolverConfig{})
	decision := resolver.Resolve(context.Background(), testUserID, Requirement{PharmacistOnly: true})
	require.False(t, decision.HasAccess)

	backend = &fakeBackend{pharmacistResult: true, verificationErr: ErrMalformedResponse}
	resolver = newTestResolver(backend, ResolverConfig{})
	decision = resolver.Resolve(context.Background(), testUserID, Requirement{VerifiedPharmacistOnly: true})
	require.False(t, decision.HasAccess)
}

func TestResolveTimeoutFailsafe(t *testing.T) {
	backend := &fakeBackend{adminHangs: true}
	resolver := newTestResolver(backend, ResolverConfig{Timeout: 50 * time.Millisecond})

	start := time.Now()
	decision := resolver.Resolve(context.Background(), testUserID, Requirement{AdminOnly: true})
	elapsed := time.Since(start)

	require.Equal(t, StatusComplete, decision.Status)
	require.False(t, decision.HasAccess)
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	require.Less(t, elapsed, 2*time.Second, "timeout must bound the wait")

	// The same hang on an ungated route fails open.
	decision = resolver.Resolve(context.Background(), testUserID, Requirement{})
	require.True(t, decision.HasAccess)
}

func TestResolveDefaultTimeout(t *testing.T) {
	resolver := newTestResolver(&fakeBackend{}, ResolverConfig{})
	require.Equal(t, DefaultResolveTimeout, resolver.timeout)
	require.Equal(t, 6*time.Second, DefaultResolveTimeout)
}

func TestResolveCallerCancellation(t *testing.T) {
	backend := &fakeBackend{adminHangs: true}
	resolver := newTestResolver(backend, ResolverConfig{Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	decision := resolver.Resolve(ctx, testUserID, Requirement{AdminOnly: true})
	require.Equal(t, StatusComplete, decision.Status)
	require.False(t, decision.HasAccess)
}

func TestResolveSuppressesDuplicateInFlight(t *testing.T) {
	release := make(chan struct{})
	backend := &blockingBackend{release: release}
	resolver := newTestResolver(backend, ResolverConfig{Timeout: time.Minute})

	const concurrency = 8
	var wg sync.WaitGroup
	decisions := make([]RoleDecision, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i] = resolver.Resolve(context.Background(), testUserID, Requirement{AdminOnly: true})
		}(i)
	}

	// Give every goroutine time to join the in-flight resolution.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&backend.adminCalls), "concurrent resolutions must share one backend call")
	for _, d := range decisions {
		require.True(t, d.IsAdmin)
		require.True(t, d.HasAccess)
	}
}

type blockingBackend struct {
	release    chan struct{}
	adminCalls int32
}

func (b *blockingBackend) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	atomic.AddInt32(&b.adminCalls, 1)
	select {
	case <-b.release:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (b *blockingBackend) IsPharmacist(ctx context.Context, userID uuid.UUID) (bool, error) {
	return false, nil
}

func (b *blockingBackend) VerificationStatus(ctx context.Context, userID uuid.UUID) (VerificationStatus, error) {
	return VerificationNone, nil
}
