package editor

import (
	"context"

	"mm-schedule-backend/pkg/database"
	"mm-schedule-backend/pkg/models"
)

// DatabaseSaver persists snapshots through the shared database layer.
type DatabaseSaver struct {
	DB database.DatabaseInterface
}

func (s DatabaseSaver) SaveSchedule(ctx context.Context, projectID string, snapshot models.ProjectSchedule) error {
	return s.DB.SaveProjectSchedule(projectID, snapshot)
}
