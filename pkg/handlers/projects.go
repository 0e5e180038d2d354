package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"mm-schedule-backend/pkg/access"
	"mm-schedule-backend/pkg/config"
	"mm-schedule-backend/pkg/database"
	"mm-schedule-backend/pkg/editor"
	"mm-schedule-backend/pkg/middleware"
	"mm-schedule-backend/pkg/models"
	"mm-schedule-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

type ProjectsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewProjectsHandler(cfg *config.Config, db database.DatabaseInterface) *ProjectsHandler {
	return &ProjectsHandler{config: cfg, db: db}
}

// ==== helpers: access resolution ====

// resolveAccess loads the project and computes the caller's role.
// userID may be empty for anonymous callers.
func (h *ProjectsHandler) resolveAccess(projectID, userID string) (*models.Project, access.Role, error) {
	project, err := h.db.GetProject(projectID)
	if err != nil {
		return nil, access.RoleNone, err
	}
	var collaborators []models.ProjectCollaborator
	if userID != "" {
		collaborators, _ = h.db.ListCollaborators(projectID)
	}
	role := access.Resolve(project, userID, collaborators, "")
	return project, role, nil
}

func (h *ProjectsHandler) requireProject(w http.ResponseWriter, r *http.Request) (*models.Project, *models.User, access.Role, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return nil, nil, access.RoleNone, false }
	projectID := chiRoute.URLParam(r, "id")
	if strings.TrimSpace(projectID) == "" { utils.WriteBadRequestResponse(w, "project id required"); return nil, nil, access.RoleNone, false }
	project, role, err := h.resolveAccess(projectID, user.ID)
	if err != nil { utils.WriteNotFoundResponse(w, "Project not found"); return nil, nil, access.RoleNone, false }
	return project, user, role, true
}

// projectPayload is the page-level response: the project plus the caller's
// resolved capabilities.
func projectPayload(project *models.Project, role access.Role) map[string]interface{} {
	return map[string]interface{}{
		"project":  project,
		"role":     string(role),
		"can_edit": role.CanEdit(),
		"is_owner": role.IsOwner(),
	}
}

// GET /api/projects
func (h *ProjectsHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	projects, err := h.db.ListProjectsByOwner(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list projects: "+err.Error()); return }
	if projects == nil { projects = []models.Project{} }
	utils.WriteSuccessResponse(w, map[string]interface{}{"projects": projects})
}

// POST /api/projects
func (h *ProjectsHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Title) == "" { utils.WriteValidationErrorResponse(w, "Title is required", ""); return }

	project := &models.Project{
		OwnerID:     user.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.db.CreateProject(project); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create project: "+err.Error())
		return
	}
	utils.WriteCreatedResponse(w, projectPayload(project, access.RoleOwner))
}

// GET /api/projects/{id}
func (h *ProjectsHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, _, role, ok := h.requireProject(w, r)
	if !ok { return }
	if !role.CanView() {
		// Hide existence from users with no access
		utils.WriteNotFoundResponse(w, "Project not found")
		return
	}

	payload := projectPayload(project, role)
	if role.IsOwner() {
		// 项目页需要的共享面板数据，仅所有者可见
		collaborators, _ := h.db.ListCollaborators(project.ID)
		if collaborators == nil { collaborators = []models.ProjectCollaborator{} }
		invites, _ := h.db.ListInvitesByProject(project.ID)
		if invites == nil { invites = []models.ProjectInvite{} }
		payload["collaborators"] = collaborators
		payload["invites"] = invites
		if project.ShareToken != nil && *project.ShareToken != "" {
			payload["share_url"] = shareLinkURL(h.config, *project.ShareToken)
		}
	}
	utils.WriteSuccessResponse(w, payload)
}

// PUT /api/projects/{id}
func (h *ProjectsHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	project, _, role, ok := h.requireProject(w, r)
	if !ok { return }
	if !role.IsOwner() { utils.WriteForbiddenResponse(w, "Only the owner can update the project"); return }

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" { utils.WriteValidationErrorResponse(w, "Title cannot be empty", ""); return }
		project.Title = title
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if err := h.db.UpdateProjectMeta(project); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update project: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, projectPayload(project, role))
}

// DELETE /api/projects/{id}
func (h *ProjectsHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	project, _, role, ok := h.requireProject(w, r)
	if !ok { return }
	if !role.IsOwner() { utils.WriteForbiddenResponse(w, "Only the owner can delete the project"); return }
	if err := h.db.DeleteProject(project.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete project: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": true})
}

// PUT /api/projects/{id}/schedule
// Accepts a full schedule snapshot; partial patches are not supported.
func (h *ProjectsHandler) SaveSchedule(w http.ResponseWriter, r *http.Request) {
	project, _, role, ok := h.requireProject(w, r)
	if !ok { return }
	if !role.CanEdit() { utils.WriteForbiddenResponse(w, "Editing not permitted"); return }

	var raw json.RawMessage
	if err := utils.ParseJSONBody(r, &raw); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if !models.IsProjectSchedule(raw) {
		utils.WriteValidationErrorResponse(w, "Body must contain scenes, milestones and departments arrays", "")
		return
	}
	var schedule models.ProjectSchedule
	if err := json.Unmarshal(raw, &schedule); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid schedule payload")
		return
	}

	saver := editor.DatabaseSaver{DB: h.db}
	if err := saver.SaveSchedule(context.Background(), project.ID, schedule); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to save schedule: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"saved": true})
}
