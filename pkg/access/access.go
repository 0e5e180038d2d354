package access

import (
	"mm-schedule-backend/pkg/models"
)

// Role is the effective permission of a viewer on one project. It is derived
// once per request from the project row, the collaborator list and (for
// anonymous visitors) the share token they arrived with; the editor and
// sharing components consume it as-is and never recompute it. The storage
// layer re-checks ownership on every mutation regardless of this value.
type Role string

const (
	RoleNone   Role = ""
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// CanView reports whether the project page may be shown at all.
func (r Role) CanView() bool { return r != RoleNone }

// CanEdit reports whether schedule mutations are allowed.
func (r Role) CanEdit() bool { return r == RoleOwner || r == RoleEditor }

// IsOwner reports whether sharing mutations (link, invites) are allowed.
func (r Role) IsOwner() bool { return r == RoleOwner }

// Resolve derives the effective role. Precedence: owner, then collaborator
// record, then a matching share token (anonymous link access is always
// read-only viewer here; an editor-role link only upgrades after login,
// which goes through the collaborator path).
func Resolve(project *models.Project, userID string, collaborators []models.ProjectCollaborator, shareToken string) Role {
	if project == nil {
		return RoleNone
	}
	if userID != "" && project.OwnerID == userID {
		return RoleOwner
	}
	if userID != "" {
		for _, c := range collaborators {
			if c.UserID == userID {
				if c.Role == models.RoleEditor {
					return RoleEditor
				}
				return RoleViewer
			}
		}
	}
	if shareToken != "" && project.HasShareLink() && *project.ShareToken == shareToken {
		return RoleViewer
	}
	return RoleNone
}
