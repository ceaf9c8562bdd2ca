package constants

import "fmt"

// Roles carried in the JWT "role" claim.
const (
	RoleAdmin      = "admin"
	RoleTeacher    = "teacher"
	RoleGatekeeper = "gatekeeper"
	RoleGuardian   = "guardian"
	RoleStudent    = "student"
	RoleService    = "service" // machine client authenticated by API key
)

const (
	ErrOnlyStaffCanAccess  = "only teachers, gatekeepers or admins may access %s"
	ErrOnlyAdminsCanAccess = "only admins may access %s"
)

func RoleErrorStaff(feature string) string {
	return fmt.Sprintf(ErrOnlyStaffCanAccess, feature)
}

func RoleErrorAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyAdminsCanAccess, feature)
}

// ==========================
// Grouped Role Slices
// ==========================
var (
	StaffRoles = []string{
		RoleTeacher,
		RoleGatekeeper,
		RoleAdmin,
		RoleService,
	}

	AdminOnly = []string{
		RoleAdmin,
		RoleService,
	}

	AnyAuthenticated = []string{
		RoleAdmin,
		RoleTeacher,
		RoleGatekeeper,
		RoleGuardian,
		RoleStudent,
		RoleService,
	}
)
