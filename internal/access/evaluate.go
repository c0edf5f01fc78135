package access

// Evaluate maps a decision and a route requirement to a verdict. It is pure
// and deterministic; an admin decision passes every gate.
func Evaluate(decision RoleDecision, req Requirement) Verdict {
	if req.AdminOnly && !decision.IsAdmin {
		return Deny
	}
	if req.PharmacistOnly && !decision.IsPharmacist && !decision.IsAdmin {
		return Deny
	}
	if req.VerifiedPharmacistOnly && !decision.IsVerifiedPharmacist && !decision.IsAdmin {
		return Deny
	}
	return Allow
}
