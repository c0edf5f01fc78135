package roles

// Role names as stored in user_roles.
const (
	RoleAdmin      = "admin"
	RolePharmacist = "pharmacist"
)
