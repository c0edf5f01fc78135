package access

import "github.com/google/uuid"

// Status tracks the lifecycle of a role resolution cycle.
type Status string

const (
	// StatusLoading means the resolver has not produced a final answer yet.
	StatusLoading Status = "loading"
	// StatusComplete means every role flag is settled for this cycle.
	StatusComplete Status = "complete"
)

// VerificationStatus mirrors the pharmacist verification record state.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
	// VerificationNone means no verification record exists for the user.
	VerificationNone VerificationStatus = ""
)

// RoleDecision is the resolved role triple for one identity, plus the
// access outcome for the requirement the resolution was run against.
// IsAdmin implies IsPharmacist and IsVerifiedPharmacist: admins hold every
// other privilege by the collapsing rule, not as a data fact.
type RoleDecision struct {
	IsAdmin              bool
	IsPharmacist         bool
	IsVerifiedPharmacist bool
	HasAccess            bool
	Status               Status
}

// Requirement describes the gates attached to a route at configuration time.
// AdminOnly makes the other two gates irrelevant because admins always pass.
type Requirement struct {
	AdminOnly              bool
	PharmacistOnly         bool
	VerifiedPharmacistOnly bool
}

// Gated reports whether any gate is set. Ungated routes fail open on
// ambiguity; gated routes fail closed.
func (r Requirement) Gated() bool {
	return r.AdminOnly || r.PharmacistOnly || r.VerifiedPharmacistOnly
}

func (r Requirement) key() string {
	buf := [3]byte{'0', '0', '0'}
	if r.AdminOnly {
		buf[0] = '1'
	}
	if r.PharmacistOnly {
		buf[1] = '1'
	}
	if r.VerifiedPharmacistOnly {
		buf[2] = '1'
	}
	return string(buf[:])
}

// Verdict is the outcome of evaluating a decision against a requirement.
type Verdict string

const (
	Allow Verdict = "allow"
	Deny  Verdict = "deny"
)

// GuardVerdict tells the UI shell what to do with a navigation attempt.
type GuardVerdict string

const (
	// RedirectToLogin fires when there is no active session.
	RedirectToLogin GuardVerdict = "redirect_login"
	// RedirectToDefault fires when a completed decision denies the route.
	RedirectToDefault GuardVerdict = "redirect_default"
	// RedirectToAdminHome moves admins off the generic landing page.
	RedirectToAdminHome GuardVerdict = "redirect_admin_home"
	// RenderLoading renders a neutral indicator while resolution is in flight.
	RenderLoading GuardVerdict = "render_loading"
	// Render lets the requested page through.
	Render GuardVerdict = "render"
)

// Route couples a navigation target with its configured requirement.
type Route struct {
	Path        string
	Requirement Requirement
}

// ValidUserID reports whether raw is a strict canonical UUID. Anything else
// short-circuits every role check to a denial for gated routes.
func ValidUserID(raw string) (uuid.UUID, bool) {
	if len(raw) != 36 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
