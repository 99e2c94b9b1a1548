package authz

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

func IsElevated(role string) bool {
	return role == RoleAdmin
}
