package models

type Role string

const (
	RoleStaff      Role = "staff"
	RoleSuperadmin Role = "superadmin"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Branch   string `json:"branch"`
	Role     Role   `json:"role"`
}

// SeesAllBranches reports whether the user is scoped to every branch.
func (u User) SeesAllBranches() bool {
	return u.Role == RoleSuperadmin || u.Branch == AllBranches
}

func ValidRole(role Role) bool {
	return role == RoleStaff || role == RoleSuperadmin
}
