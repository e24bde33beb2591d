package rbac

// Role names carried in access tokens.
const (
	// RoleOwner manages billing and settings and can do everything an operator can.
	RoleOwner = "owner"
	// RoleOperator runs the dialer: start, stop, override, reset, outcome corrections.
	RoleOperator = "operator"
	// RoleViewer reads state and reports.
	RoleViewer = "viewer"
	// RoleAutomation is the service identity of the scheduler. It is opt-in only.
	RoleAutomation = "automation"
)

// Operators are the roles allowed to drive the dialer.
var Operators = []string{RoleOwner, RoleOperator}

// Readers are the roles allowed to read dialer state.
var Readers = []string{RoleOwner, RoleOperator, RoleViewer}

func IsServiceRole(role string) bool { return role == RoleAutomation }
