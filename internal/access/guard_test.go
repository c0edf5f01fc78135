package access

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuardRouteVerdicts(t *testing.T) {
	guard := NewGuard(DefaultGuardPaths())

	complete := func(d RoleDecision) RoleDecision {
		d.Status = StatusComplete
		return d
	}

	adminRoute := Route{Path: "/admin", Requirement: Requirement{AdminOnly: true}}
	pharmacyRoute := Route{Path: "/pharmacy", Requirement: Requirement{PharmacistOnly: true}}
	homeRoute := Route{Path: "/", Requirement: Requirement{}}

	t.Run("no session redirects to login", func(t *testing.T) {
		verdict := guard.GuardRoute("", RoleDecision{}, adminRoute)
		require.Equal(t, RedirectToLogin, verdict)
	})

	t.Run("loading renders neutral state", func(t *testing.T) {
		verdict := guard.GuardRoute(testUserID, RoleDecision{Status: StatusLoading}, adminRoute)
		require.Equal(t, RenderLoading, verdict)
	})

	t.Run("denied navigation redirects to default", func(t *testing.T) {
		decision := complete(RoleDecision{IsPharmacist: true})
		verdict := guard.GuardRoute(testUserID, decision, adminRoute)
		require.Equal(t, RedirectToDefault, verdict)
	})

	t.Run("allowed navigation renders", func(t *testing.T) {
		decision := complete(RoleDecision{IsPharmacist: true, HasAccess: true})
		verdict := guard.GuardRoute(testUserID, decision, pharmacyRoute)
		require.Equal(t, Render, verdict)
	})

	t.Run("admin on generic landing moves to admin home", func(t *testing.T) {
		decision := complete(RoleDecision{IsAdmin: true, IsPharmacist: true, IsVerifiedPharmacist: true, HasAccess: true})
		verdict := guard.GuardRoute(testUserID, decision, homeRoute)
		require.Equal(t, RedirectToAdminHome, verdict)
	})

	t.Run("admin elsewhere renders", func(t *testing.T) {
		decision := complete(RoleDecision{IsAdmin: true, IsPharmacist: true, IsVerifiedPharmacist: true, HasAccess: true})
		verdict := guard.GuardRoute(testUserID, decision, adminRoute)
		require.Equal(t, Render, verdict)
	})
}

func TestGuardRedirectTargets(t *testing.T) {
	guard := NewGuard(DefaultGuardPaths())

	target, ok := guard.RedirectTarget(RedirectToLogin)
	require.True(t, ok)
	require.Equal(t, "/login", target)

	target, ok = guard.RedirectTarget(RedirectToDefault)
	require.True(t, ok)
	require.Equal(t, "/", target)

	target, ok = guard.RedirectTarget(RedirectToAdminHome)
	require.True(t, ok)
	require.Equal(t, "/admin", target)

	_, ok = guard.RedirectTarget(Render)
	require.False(t, ok)
	_, ok = guard.RedirectTarget(RenderLoading)
	require.False(t, ok)
}
