package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleEditor     UserRole = "EDITOR"
	RoleViewer     UserRole = "VIEWER"
)

// EditorRoles may change content and request approval.
var EditorRoles = []UserRole{RoleSuperAdmin, RoleAdmin, RoleEditor}

// ReviewerRoles may approve, reject, publish and archive content.
var ReviewerRoles = []UserRole{RoleSuperAdmin, RoleAdmin}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
