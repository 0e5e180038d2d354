package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"mm-schedule-backend/pkg/config"
	"mm-schedule-backend/pkg/database"
	"mm-schedule-backend/pkg/models"
	"mm-schedule-backend/pkg/utils"
)

type SharingHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewSharingHandler(cfg *config.Config, db database.DatabaseInterface) *SharingHandler {
	return &SharingHandler{config: cfg, db: db}
}

// projects handler owns the generic access plumbing; sharing endpoints are
// all owner-gated so they only need the owner check.
func (h *SharingHandler) requireOwner(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	ph := &ProjectsHandler{config: h.config, db: h.db}
	project, _, role, ok := ph.requireProject(w, r)
	if !ok { return nil, false }
	if !role.IsOwner() { utils.WriteForbiddenResponse(w, "Owner privileges required"); return nil, false }
	return project, true
}

// shareLinkURL builds the absolute link handed to the client.
func shareLinkURL(cfg *config.Config, token string) string {
	base := strings.TrimRight(cfg.AppURL, "/")
	return fmt.Sprintf("%s/share/%s", base, token)
}

// POST /api/projects/{id}/share-link
// Mints a fresh token every call; an existing link is replaced, which
// revokes the previously issued URL.
func (h *SharingHandler) EnableShareLink(w http.ResponseWriter, r *http.Request) {
	project, ok := h.requireOwner(w, r)
	if !ok { return }

	var req struct {
		Role string `json:"role"`
	}
	// Body is optional; an empty body means viewer access.
	_ = utils.ParseJSONBody(r, &req)
	role := models.CoerceShareRole(req.Role)

	token, err := utils.GenerateURLToken(24)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to generate share token"); return }

	if err := h.db.SetShareLink(project.ID, token, role); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to enable share link: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"share_token": token,
		"share_role":  string(role),
		"share_url":   shareLinkURL(h.config, token),
	})
}

// DELETE /api/projects/{id}/share-link
func (h *SharingHandler) DisableShareLink(w http.ResponseWriter, r *http.Request) {
	project, ok := h.requireOwner(w, r)
	if !ok { return }
	if err := h.db.ClearShareLink(project.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to disable share link: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"disabled": true})
}

// POST /api/projects/{id}/invites
// Duplicate invites to the same address are allowed; each gets its own
// token and expiry.
func (h *SharingHandler) SendInvite(w http.ResponseWriter, r *http.Request) {
	project, ok := h.requireOwner(w, r)
	if !ok { return }

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		utils.WriteValidationErrorResponse(w, "A valid email is required", "")
		return
	}

	token, err := utils.GenerateURLToken(24)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to generate invite token"); return }

	inv := &models.ProjectInvite{
		ProjectID: project.ID,
		Email:     email,
		Role:      models.CoerceShareRole(req.Role),
		Token:     token,
		ExpiresAt: time.Now().Add(models.InviteTTL),
	}
	if err := h.db.CreateInvite(inv); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create invite: "+err.Error())
		return
	}

	// No mail delivery here; the caller shows the invite link.
	utils.WriteCreatedResponse(w, map[string]interface{}{"invite": inv})
}

// GET /api/projects/{id}/invites
func (h *SharingHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	project, ok := h.requireOwner(w, r)
	if !ok { return }
	invites, err := h.db.ListInvitesByProject(project.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list invites: "+err.Error()); return }
	if invites == nil { invites = []models.ProjectInvite{} }
	utils.WriteSuccessResponse(w, map[string]interface{}{"invites": invites})
}

// GET /api/projects/{id}/collaborators
func (h *SharingHandler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	project, ok := h.requireOwner(w, r)
	if !ok { return }
	collaborators, err := h.db.ListCollaborators(project.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list collaborators: "+err.Error()); return }
	if collaborators == nil { collaborators = []models.ProjectCollaborator{} }
	utils.WriteSuccessResponse(w, map[string]interface{}{"collaborators": collaborators})
}
