package models

import (
	"encoding/json"
	"time"
)

// ShareRole is the permission a collaborator, invite or share link carries
type ShareRole string

const (
	RoleViewer ShareRole = "viewer"
	RoleEditor ShareRole = "editor"
)

// CoerceShareRole maps any input to a valid role; only "editor" grants editing,
// everything else falls back to viewer.
func CoerceShareRole(role string) ShareRole {
	if role == string(RoleEditor) {
		return RoleEditor
	}
	return RoleViewer
}

// Project is a production project owned by exactly one user. The schedule is
// stored as an untyped JSON value and validated against the ProjectSchedule
// shape whenever it is read.
type Project struct {
	ID          string          `json:"id" db:"id"`
	OwnerID     string          `json:"owner_id" db:"owner_id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description,omitempty" db:"description"`
	Schedule    json.RawMessage `json:"schedule" db:"schedule"`
	ShareToken  *string         `json:"share_token,omitempty" db:"share_token"`
	ShareRole   *ShareRole      `json:"share_role,omitempty" db:"share_role"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// HasShareLink reports whether an anonymous share link is currently active.
func (p *Project) HasShareLink() bool {
	return p.ShareToken != nil && *p.ShareToken != ""
}

// ProjectCollaborator grants a user direct access to a project with a role
type ProjectCollaborator struct {
	ID        string    `json:"id" db:"id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Role      ShareRole `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
