package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScheduleStatus tracks the progress of a milestone or department
type ScheduleStatus string

const (
	StatusPlanned    ScheduleStatus = "planned"
	StatusInProgress ScheduleStatus = "in_progress"
	StatusDone       ScheduleStatus = "done"
)

// ScheduleScene is one scene row in the shooting plan
type ScheduleScene struct {
	ID         string `json:"id"`
	Scene      string `json:"scene"`
	Location   string `json:"location"`
	ShootDate  string `json:"shootDate"` // ISO date, YYYY-MM-DD
	Department string `json:"department,omitempty"`
}

// ScheduleMilestone is a dated production milestone
type ScheduleMilestone struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	DueDate string         `json:"dueDate"`
	Owner   string         `json:"owner,omitempty"`
	Status  ScheduleStatus `json:"status,omitempty"`
}

// ScheduleDepartment is a production department and its lead
type ScheduleDepartment struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Lead   string         `json:"lead,omitempty"`
	Status ScheduleStatus `json:"status,omitempty"`
}

// ProjectSchedule is the aggregate persisted as one JSON snapshot on the
// project row. Every write replaces the whole value, never a partial patch.
type ProjectSchedule struct {
	Scenes      []ScheduleScene      `json:"scenes"`
	Milestones  []ScheduleMilestone  `json:"milestones"`
	Departments []ScheduleDepartment `json:"departments"`
}

// DefaultSchedule returns an empty schedule with all three collections present,
// so it always marshals to the valid {"scenes":[],...} shape.
func DefaultSchedule() ProjectSchedule {
	return ProjectSchedule{
		Scenes:      []ScheduleScene{},
		Milestones:  []ScheduleMilestone{},
		Departments: []ScheduleDepartment{},
	}
}

// IsProjectSchedule reports whether raw stored JSON has the schedule shape:
// an object whose scenes, milestones and departments keys are all arrays.
// Anything else (null, {}, missing keys, non-array values) is rejected.
func IsProjectSchedule(raw json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	for _, key := range []string{"scenes", "milestones", "departments"} {
		val, ok := fields[key]
		if !ok || !isJSONArray(val) {
			return false
		}
	}
	return true
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// ScheduleFromJSON decodes a stored schedule value, substituting the empty
// default when the value is absent or malformed. Reads never fail on bad data.
func ScheduleFromJSON(raw json.RawMessage) ProjectSchedule {
	if len(raw) == 0 || !IsProjectSchedule(raw) {
		return DefaultSchedule()
	}
	var schedule ProjectSchedule
	if err := json.Unmarshal(raw, &schedule); err != nil {
		return DefaultSchedule()
	}
	if schedule.Scenes == nil {
		schedule.Scenes = []ScheduleScene{}
	}
	if schedule.Milestones == nil {
		schedule.Milestones = []ScheduleMilestone{}
	}
	if schedule.Departments == nil {
		schedule.Departments = []ScheduleDepartment{}
	}
	return schedule
}

func today() string {
	return time.Now().Format("2006-01-02")
}

// NewScene builds a blank scene row with a fresh ID and today's shoot date.
func NewScene() ScheduleScene {
	return ScheduleScene{
		ID:        uuid.NewString(),
		ShootDate: today(),
	}
}

// NewMilestone builds a blank milestone due today, status planned.
func NewMilestone() ScheduleMilestone {
	return ScheduleMilestone{
		ID:      uuid.NewString(),
		DueDate: today(),
		Status:  StatusPlanned,
	}
}

// NewDepartment builds a blank department, status planned.
func NewDepartment() ScheduleDepartment {
	return ScheduleDepartment{
		ID:     uuid.NewString(),
		Status: StatusPlanned,
	}
}
