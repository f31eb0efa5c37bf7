package rbac

import (
	"time"

	userDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/user"
)

type Role string

const (
	RoleAdministrator   Role = "Administrator"
	RoleCISO            Role = "CISO"
	RoleCTO             Role = "CTO"
	RoleCIO             Role = "CIO"
	RoleCEO             Role = "CEO"
	RoleSecurityAnalyst Role = "Security Analyst"
	RoleEmployee        Role = "Employee"

	// RoleAuditAgent is not assignable to users. It tags approval steps
	// produced by the automated audit decision source.
	RoleAuditAgent Role = "Audit Agent"
)

type Permission string

const (
	PermDocumentsCreate  Permission = "documents:create"
	PermDocumentsRead    Permission = "documents:read"
	PermDocumentsApprove Permission = "documents:approve"

	PermUsersCreate Permission = "users:create"
	PermUsersRead   Permission = "users:read"
	PermUsersUpdate Permission = "users:update"
	PermUsersDelete Permission = "users:delete"

	PermAuditRead        Permission = "audit:read"
	PermTenantUpdate     Permission = "tenant:update"
	PermLicenseUpdate    Permission = "license:update"
	PermAssessmentUpdate Permission = "assessment:update"
)

// rolePermissions is the sole source of authorization truth. It is
// data, not logic: no per-user overrides exist and the table is never
// mutated at runtime.
var rolePermissions = map[Role][]Permission{
	RoleAdministrator: {
		PermDocumentsCreate, PermDocumentsRead,
		PermUsersCreate, PermUsersRead, PermUsersUpdate, PermUsersDelete,
		PermAuditRead, PermTenantUpdate, PermLicenseUpdate, PermAssessmentUpdate,
	},
	RoleCISO: {
		PermDocumentsCreate, PermDocumentsRead, PermDocumentsApprove,
		PermUsersRead, PermAuditRead, PermAssessmentUpdate,
	},
	RoleCTO: {
		PermDocumentsRead, PermDocumentsApprove,
		PermUsersRead, PermAuditRead,
	},
	RoleCIO: {
		PermDocumentsRead, PermDocumentsApprove,
		PermUsersRead, PermAuditRead,
	},
	RoleCEO: {
		PermDocumentsRead, PermDocumentsApprove,
		PermUsersRead, PermAuditRead,
	},
	RoleSecurityAnalyst: {
		PermDocumentsCreate, PermDocumentsRead,
		PermAssessmentUpdate, PermAuditRead,
	},
	RoleEmployee: {
		PermDocumentsRead,
	},
	RoleAuditAgent: {
		PermDocumentsRead, PermDocumentsApprove,
	},
}

// AssignableRoles are the roles an administrator may give to users.
var AssignableRoles = []Role{
	RoleAdministrator, RoleCISO, RoleCTO, RoleCIO, RoleCEO,
	RoleSecurityAnalyst, RoleEmployee,
}

func ValidRole(r string) bool {
	for _, role := range AssignableRoles {
		if string(role) == r {
			return true
		}
	}
	return false
}

// Resolve maps a user to their effective permission set at the given
// instant. Pure: a static table lookup plus one expiry comparison, no
// store or network access. An expired account keeps its nominal role
// but resolves to the minimal Employee set.
func Resolve(u *userDatamodel.User, now time.Time) []Permission {
	if u == nil {
		return nil
	}
	role := Role(u.Role)
	if u.AccessExpired(now) {
		role = RoleEmployee
	}
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// PermissionsFor returns the static set for a role, without the expiry
// downgrade. Used by tests and the automated decision source.
func PermissionsFor(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

func HasPermission(perms []Permission, required Permission) bool {
	for _, p := range perms {
		if p == required {
			return true
		}
	}
	return false
}

// Strings converts a permission set to plain strings for contexts that
// carry them across package boundaries (request context, logging).
func Strings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func HasPermissionString(perms []string, required Permission) bool {
	for _, p := range perms {
		if p == string(required) {
			return true
		}
	}
	return false
}
