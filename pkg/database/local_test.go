package database

import (
	"encoding/json"
	"testing"
	"time"

	"mm-schedule-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) DatabaseInterface {
	t.Helper()
	return NewLocalDatabase(t.TempDir())
}

func TestLocalDatabaseUsers(t *testing.T) {
	db := newTestDB(t)

	user := &models.User{Email: "alice@example.com", Password: "hashed", Name: "Alice"}
	require.NoError(t, db.CreateUser(user))
	assert.NotEmpty(t, user.ID)

	byEmail, err := db.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := db.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	// Duplicate email rejected.
	dup := &models.User{Email: "alice@example.com"}
	assert.Error(t, db.CreateUser(dup))

	_, err = db.GetUserByEmail("nobody@example.com")
	assert.ErrorContains(t, err, "not found")
}

func TestLocalDatabaseProjectLifecycle(t *testing.T) {
	db := newTestDB(t)

	project := &models.Project{OwnerID: "owner-1", Title: "Feature Film"}
	require.NoError(t, db.CreateProject(project))
	assert.NotEmpty(t, project.ID)
	// A fresh project starts with the valid empty schedule shape.
	assert.True(t, models.IsProjectSchedule(project.Schedule))

	got, err := db.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Feature Film", got.Title)

	project.Title = "Feature Film (dir. cut)"
	project.Description = "Principal photography"
	require.NoError(t, db.UpdateProjectMeta(project))
	got, err = db.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Feature Film (dir. cut)", got.Title)
	assert.Equal(t, "Principal photography", got.Description)

	owned, err := db.ListProjectsByOwner("owner-1")
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	require.NoError(t, db.DeleteProject(project.ID))
	_, err = db.GetProject(project.ID)
	assert.ErrorContains(t, err, "not found")
}

func TestLocalDatabaseSaveSchedule(t *testing.T) {
	db := newTestDB(t)

	project := &models.Project{OwnerID: "owner-1", Title: "Short"}
	require.NoError(t, db.CreateProject(project))

	schedule := models.DefaultSchedule()
	schedule.Scenes = append(schedule.Scenes, models.ScheduleScene{ID: "s1", Scene: "INT. GARAGE", ShootDate: "2026-09-15"})
	require.NoError(t, db.SaveProjectSchedule(project.ID, schedule))

	got, err := db.GetProject(project.ID)
	require.NoError(t, err)

	var stored models.ProjectSchedule
	require.NoError(t, json.Unmarshal(got.Schedule, &stored))
	require.Len(t, stored.Scenes, 1)
	assert.Equal(t, "INT. GARAGE", stored.Scenes[0].Scene)

	assert.ErrorContains(t, db.SaveProjectSchedule("missing", schedule), "not found")
}

func TestLocalDatabaseShareLink(t *testing.T) {
	db := newTestDB(t)

	project := &models.Project{OwnerID: "owner-1", Title: "Pilot"}
	require.NoError(t, db.CreateProject(project))

	require.NoError(t, db.SetShareLink(project.ID, "tok-1", models.RoleViewer))
	got, err := db.GetProjectByShareToken("tok-1")
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)
	require.NotNil(t, got.ShareRole)
	assert.Equal(t, models.RoleViewer, *got.ShareRole)

	// Re-enabling replaces the token; the old one stops matching.
	require.NoError(t, db.SetShareLink(project.ID, "tok-2", models.RoleEditor))
	_, err = db.GetProjectByShareToken("tok-1")
	assert.Error(t, err)
	got, err = db.GetProjectByShareToken("tok-2")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, *got.ShareRole)

	require.NoError(t, db.ClearShareLink(project.ID))
	_, err = db.GetProjectByShareToken("tok-2")
	assert.Error(t, err)
	got, err = db.GetProject(project.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ShareToken)
	assert.Nil(t, got.ShareRole)
}

func TestLocalDatabaseCollaborators(t *testing.T) {
	db := newTestDB(t)

	c := &models.ProjectCollaborator{ProjectID: "p1", UserID: "u1", Role: models.RoleViewer}
	require.NoError(t, db.AddCollaborator(c))
	assert.NotEmpty(t, c.ID)

	// Adding again upgrades the role instead of duplicating.
	again := &models.ProjectCollaborator{ProjectID: "p1", UserID: "u1", Role: models.RoleEditor}
	require.NoError(t, db.AddCollaborator(again))
	assert.Equal(t, c.ID, again.ID)

	list, err := db.ListCollaborators("p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.RoleEditor, list[0].Role)

	got, err := db.GetCollaborator("p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, got.Role)

	_, err = db.GetCollaborator("p1", "u2")
	assert.ErrorContains(t, err, "not found")
}

func TestLocalDatabaseInvitesAllowDuplicates(t *testing.T) {
	db := newTestDB(t)

	expiry := time.Now().Add(models.InviteTTL)
	for i := 0; i < 2; i++ {
		inv := &models.ProjectInvite{
			ProjectID: "p1",
			Email:     "crew@example.com",
			Role:      models.RoleViewer,
			Token:     "tok-" + string(rune('a'+i)),
			ExpiresAt: expiry,
		}
		require.NoError(t, db.CreateInvite(inv))
		assert.NotEmpty(t, inv.ID)
	}

	invites, err := db.ListInvitesByProject("p1")
	require.NoError(t, err)
	assert.Len(t, invites, 2)

	other, err := db.ListInvitesByProject("p2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
