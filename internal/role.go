package internal

// Role names shared between the key-file payload, the bearer token claims,
// and the principal records. The superadmin role is the highest-privilege
// role and its credentials never expire.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// NeverExpires reports whether credentials issued for role are exempt from
// expiry checks.
func NeverExpires(role string) bool {
	return role == RoleSuperadmin
}
