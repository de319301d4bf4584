package model

import "time"

// Membership roles within a project.  RoleAdmin is reserved for the project
// creator, RoleProjectAdmin for delegated administrators and RoleMember for
// everyone else.
const (
	RoleAdmin        = "admin"
	RoleProjectAdmin = "project_admin"
	RoleMember       = "member"
)

// Project visibility settings.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// DefaultTaskStatus is the status assigned to new tasks unless the project
// settings say otherwise.
const DefaultTaskStatus = "to-do"

// ProjectSettings groups the per-project configuration flags stored inline
// on the projects table.
type ProjectSettings struct {
	Visibility        string `json:"visibility"`
	DefaultTaskStatus string `json:"defaultTaskStatus"`
	AllowGuestAccess  bool   `json:"allowGuestAccess"`
}

// ProjectMetadata holds the denormalized counters kept on each project row.
// TotalMembers starts at 1 because the creator is always the first member.
type ProjectMetadata struct {
	TotalTasks     uint32    `json:"totalTasks"`
	CompletedTasks uint32    `json:"completedTasks"`
	TotalMembers   uint32    `json:"totalMembers"`
	LastActivity   time.Time `json:"lastActivity"`
}

// Project mirrors the `projects` table.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – project name (trimmed, non-empty).
//  Description – optional free-form description.
//  CreatedBy   – user ID of the project owner.
//  Settings    – visibility and task defaults.
//  Metadata    – counters maintained alongside the project.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Project struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CreatedBy   uint64          `json:"createdBy"`
	Settings    ProjectSettings `json:"settings"`
	Metadata    ProjectMetadata `json:"metadata"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// MemberPermissions is the per-membership permission set.  Defaults mirror
// the RoleMember baseline; creators get every flag enabled.
type MemberPermissions struct {
	CanCreateTasks   bool `json:"canCreateTasks"`
	CanEditTasks     bool `json:"canEditTasks"`
	CanDeleteTasks   bool `json:"canDeleteTasks"`
	CanManageMembers bool `json:"canManageMembers"`
	CanViewReports   bool `json:"canViewReports"`
}

// FullPermissions returns the permission set granted to a project admin.
func FullPermissions() MemberPermissions {
	return MemberPermissions{
		CanCreateTasks:   true,
		CanEditTasks:     true,
		CanDeleteTasks:   true,
		CanManageMembers: true,
		CanViewReports:   true,
	}
}

// ProjectMember mirrors the `project_members` join table.  One row exists
// per (user, project) pair; the unique key enforces that.
type ProjectMember struct {
	ID          uint64            `json:"id"`
	UserID      uint64            `json:"userId"`
	ProjectID   uint64            `json:"projectId"`
	Role        string            `json:"role"`
	InvitedBy   uint64            `json:"invitedBy"`
	Permissions MemberPermissions `json:"permissions"`
	JoinedAt    time.Time         `json:"joinedAt"`
}
