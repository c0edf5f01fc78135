package access

// GuardPaths names the navigation targets the guard redirects to.
type GuardPaths struct {
	// Login receives unauthenticated visitors.
	Login string
	// Default receives denied navigations.
	Default string
	// Home is the generic authenticated landing page.
	Home string
	// AdminHome receives admins who navigate to Home.
	AdminHome string
}

// DefaultGuardPaths matches the application's route map.
func DefaultGuardPaths() GuardPaths {
	return GuardPaths{
		Login:     "/login",
		Default:   "/",
		Home:      "/",
		AdminHome: "/admin",
	}
}

// Guard decides what to do with a navigation attempt. It performs no I/O:
// callers resolve the decision first and hand it in.
type Guard struct {
	paths GuardPaths
}

// NewGuard constructs a Guard for the given paths.
func NewGuard(paths GuardPaths) *Guard {
	return &Guard{paths: paths}
}

// Paths exposes the configured navigation targets.
func (g *Guard) Paths() GuardPaths {
	return g.paths
}

// GuardRoute maps (session identity, decision, route) to a verdict.
// sessionUserID is the raw identity from the session source; empty means no
// active session. While the decision is still loading the guard renders a
// neutral indicator rather than a premature denial.
func (g *Guard) GuardRoute(sessionUserID string, decision RoleDecision, route Route) GuardVerdict {
	if sessionUserID == "" {
		return RedirectToLogin
	}
	if decision.Status == StatusLoading {
		return RenderLoading
	}
	if decision.IsAdmin && route.Path == g.paths.Home {
		return RedirectToAdminHome
	}
	if Evaluate(decision, route.Requirement) == Deny {
		return RedirectToDefault
	}
	return Render
}

// RedirectTarget translates a redirecting verdict into its path. The second
// return is false for rendering verdicts.
func (g *Guard) RedirectTarget(verdict GuardVerdict) (string, bool) {
	switch verdict {
	case RedirectToLogin:
		return g.paths.Login, true
	case RedirectToDefault:
		return g.paths.Default, true
	case RedirectToAdminHome:
		return g.paths.AdminHome, true
	default:
		return "", false
	}
}
