package domain

import "time"

// PermissionType categorizes how a permission is consumed.
type PermissionType string

const (
	PermissionTypeRead    PermissionType = "read"
	PermissionTypeWrite   PermissionType = "write"
	PermissionTypeDelete  PermissionType = "delete"
	PermissionTypeExecute PermissionType = "execute"
)

// Role defines a named set of permissions. System roles are protected
// from deletion by the service layer.
type Role struct {
	ID          string
	Name        string
	DisplayName string
	Description *string
	IsSystem    bool
	IsActive    bool
}

// Permission defines a named capability, grouped for organizational
// purposes. Name is unique across all permissions.
type Permission struct {
	ID          string
	Name        string
	Group       string
	Type        PermissionType
	Description *string
	IsActive    bool
}

// SoftDelete carries the soft-delete state shared by all relationship
// entities. Rows are marked deleted, never physically removed, until a
// periodic cleanup purges expired ones.
type SoftDelete struct {
	IsDeleted bool
	DeletedAt *time.Time
}

// MarkDeleted flags the row as deleted at the given time.
func (d *SoftDelete) MarkDeleted(now time.Time) {
	deletedAt := now.UTC()
	d.IsDeleted = true
	d.DeletedAt = &deletedAt
}

// PurgeEligible reports whether the row was soft-deleted longer ago
// than the retention window.
func (d SoftDelete) PurgeEligible(retention time.Duration, now time.Time) bool {
	if !d.IsDeleted || d.DeletedAt == nil {
		return false
	}
	return now.UTC().Sub(*d.DeletedAt) > retention
}

// RolePermission links a role with a permission.
type RolePermission struct {
	ID           string
	RoleID       string
	PermissionID string
	CreatedAt    time.Time
	SoftDelete
}

// UserRole assigns a role to a user.
type UserRole struct {
	ID        string
	UserID    string
	RoleID    string
	CreatedAt time.Time
	SoftDelete
}

// UserPermission grants a permission directly to a user, bypassing
// role membership.
type UserPermission struct {
	ID           string
	UserID       string
	PermissionID string
	CreatedAt    time.Time
	SoftDelete
}
