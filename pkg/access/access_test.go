package access

import (
	"testing"

	"mm-schedule-backend/pkg/models"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func testProject() *models.Project {
	return &models.Project{
		ID:      "p1",
		OwnerID: "owner-1",
	}
}

func TestResolveOwner(t *testing.T) {
	project := testProject()
	role := Resolve(project, "owner-1", nil, "")
	assert.Equal(t, RoleOwner, role)
	assert.True(t, role.CanView())
	assert.True(t, role.CanEdit())
	assert.True(t, role.IsOwner())
}

func TestResolveCollaborator(t *testing.T) {
	project := testProject()
	collaborators := []models.ProjectCollaborator{
		{ProjectID: "p1", UserID: "u-editor", Role: models.RoleEditor},
		{ProjectID: "p1", UserID: "u-viewer", Role: models.RoleViewer},
	}

	editor := Resolve(project, "u-editor", collaborators, "")
	assert.Equal(t, RoleEditor, editor)
	assert.True(t, editor.CanEdit())
	assert.False(t, editor.IsOwner())

	viewer := Resolve(project, "u-viewer", collaborators, "")
	assert.Equal(t, RoleViewer, viewer)
	assert.True(t, viewer.CanView())
	assert.False(t, viewer.CanEdit())
}

func TestResolveOwnerBeatsCollaboratorRecord(t *testing.T) {
	project := testProject()
	collaborators := []models.ProjectCollaborator{
		{ProjectID: "p1", UserID: "owner-1", Role: models.RoleViewer},
	}
	assert.Equal(t, RoleOwner, Resolve(project, "owner-1", collaborators, ""))
}

func TestResolveShareTokenIsAlwaysViewer(t *testing.T) {
	project := testProject()
	project.ShareToken = strPtr("tok-123")
	editorRole := models.RoleEditor
	project.ShareRole = &editorRole

	// Anonymous visitor with a matching token gets read-only access even
	// though the link role is editor.
	role := Resolve(project, "", nil, "tok-123")
	assert.Equal(t, RoleViewer, role)
	assert.False(t, role.CanEdit())
}

func TestResolveNoAccess(t *testing.T) {
	project := testProject()
	project.ShareToken = strPtr("tok-123")

	assert.Equal(t, RoleNone, Resolve(project, "stranger", nil, ""))
	assert.Equal(t, RoleNone, Resolve(project, "", nil, "wrong-token"))
	assert.Equal(t, RoleNone, Resolve(nil, "owner-1", nil, ""))

	// Disabled link matches nothing.
	project.ShareToken = nil
	assert.Equal(t, RoleNone, Resolve(project, "", nil, "tok-123"))
}
