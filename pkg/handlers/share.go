package handlers

import (
	"net/http"
	"strings"

	"mm-schedule-backend/pkg/config"
	"mm-schedule-backend/pkg/database"
	"mm-schedule-backend/pkg/models"
	"mm-schedule-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

type ShareHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewShareHandler(cfg *config.Config, db database.DatabaseInterface) *ShareHandler {
	return &ShareHandler{config: cfg, db: db}
}

// GET /api/share/{token}
// Anonymous read-only access to a shared schedule. The share role stored on
// the project only affects invited collaborators; link visitors always get
// a read-only view.
func (h *ShareHandler) GetSharedProject(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chiRoute.URLParam(r, "token"))
	if token == "" { utils.WriteBadRequestResponse(w, "share token required"); return }

	project, err := h.db.GetProjectByShareToken(token)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Shared project not found")
		return
	}

	// Malformed stored payloads fall back to an empty schedule rather than
	// breaking the shared view.
	schedule := models.ScheduleFromJSON(project.Schedule)

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"project": map[string]interface{}{
			"id":          project.ID,
			"title":       project.Title,
			"description": project.Description,
			"schedule":    schedule,
		},
		"can_edit": false,
	})
}
