package workflow

import "fmt"

// Role identifies the capability set of an authenticated session. Roles are
// flat tags compared by value; there is no inheritance between them.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
	RoleClerk   Role = "CLERK"
)

// Legacy role identifiers carried in the portal's session claims.
var roleByClaimID = map[string]Role{
	"0": RoleStudent,
	"1": RoleTeacher,
	"2": RoleAdmin,
	"3": RoleClerk,
}

var claimIDByRole = map[Role]string{
	RoleStudent: "0",
	RoleTeacher: "1",
	RoleAdmin:   "2",
	RoleClerk:   "3",
}

// ParseRoleClaim maps a session role claim to a Role.
func ParseRoleClaim(id string) (Role, error) {
	role, ok := roleByClaimID[id]
	if !ok {
		return "", fmt.Errorf("%w: unknown role claim %q", ErrInvalidRole, id)
	}
	return role, nil
}

// ClaimID returns the legacy claim identifier for the role.
func (r Role) ClaimID() string {
	return claimIDByRole[r]
}

// IsValid returns true for one of the four known roles.
func (r Role) IsValid() bool {
	_, ok := claimIDByRole[r]
	return ok
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}
