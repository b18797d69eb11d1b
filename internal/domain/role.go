package domain

// Role is a closed set of user roles.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleVendor   Role = "Vendor"
	RoleCustomer Role = "Customer"
)

// ValidRoles returns the set of valid user roles.
func ValidRoles() []Role {
	return []Role{RoleAdmin, RoleVendor, RoleCustomer}
}

// ParseRole converts a role string into a Role, reporting whether it names a
// known role. Matching is exact; role names are case-sensitive.
func ParseRole(s string) (Role, bool) {
	for _, r := range ValidRoles() {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// RegistrationRoles returns the roles a user may self-assign at registration.
// Admin is excluded: it can only be granted by an existing admin.
func RegistrationRoles() []Role {
	return []Role{RoleCustomer, RoleVendor}
}

// IsRegistrationRole checks whether the given role may be chosen at
// registration time.
func IsRegistrationRole(role Role) bool {
	for _, r := range RegistrationRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// Policy names group the roles allowed to reach a protected route. Each
// policy includes every role with equal or higher privilege.
var (
	AdminPolicy    = []Role{RoleAdmin}
	VendorPolicy   = []Role{RoleAdmin, RoleVendor}
	CustomerPolicy = []Role{RoleAdmin, RoleVendor, RoleCustomer}
)
