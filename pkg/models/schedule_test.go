package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsProjectSchedule(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{"empty collections", `{"scenes":[],"milestones":[],"departments":[]}`, true},
		{"populated", `{"scenes":[{"id":"1","scene":"Opening"}],"milestones":[],"departments":[]}`, true},
		{"extra keys tolerated", `{"scenes":[],"milestones":[],"departments":[],"notes":"x"}`, true},
		{"null", `null`, false},
		{"empty object", `{}`, false},
		{"missing departments", `{"scenes":[],"milestones":[]}`, false},
		{"scenes not array", `{"scenes":{},"milestones":[],"departments":[]}`, false},
		{"milestones null", `{"scenes":[],"milestones":null,"departments":[]}`, false},
		{"top-level array", `[]`, false},
		{"not json", `oops`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsProjectSchedule(json.RawMessage(tc.raw)))
		})
	}
}

func TestScheduleFromJSON_MalformedFallsBackToDefault(t *testing.T) {
	for _, raw := range []string{"", "null", "{}", `{"scenes":"nope"}`} {
		got := ScheduleFromJSON(json.RawMessage(raw))
		assert.NotNil(t, got.Scenes, "raw=%q", raw)
		assert.NotNil(t, got.Milestones, "raw=%q", raw)
		assert.NotNil(t, got.Departments, "raw=%q", raw)
		assert.Empty(t, got.Scenes)
	}
}

func TestScheduleFromJSON_RoundTrip(t *testing.T) {
	schedule := DefaultSchedule()
	schedule.Scenes = append(schedule.Scenes, ScheduleScene{ID: "s1", Scene: "INT. OFFICE", Location: "Stage 4", ShootDate: "2026-09-10"})
	schedule.Milestones = append(schedule.Milestones, ScheduleMilestone{ID: "m1", Title: "Picture lock", DueDate: "2026-10-01", Status: StatusInProgress})

	raw, err := json.Marshal(schedule)
	require.NoError(t, err)
	require.True(t, IsProjectSchedule(raw))

	got := ScheduleFromJSON(raw)
	assert.Equal(t, schedule, got)
}

func TestDefaultScheduleMarshalsWithAllKeys(t *testing.T) {
	raw, err := json.Marshal(DefaultSchedule())
	require.NoError(t, err)
	assert.JSONEq(t, `{"scenes":[],"milestones":[],"departments":[]}`, string(raw))
}

func TestNewElementDefaults(t *testing.T) {
	scene := NewScene()
	assert.NotEmpty(t, scene.ID)
	assert.NotEmpty(t, scene.ShootDate)

	milestone := NewMilestone()
	assert.NotEmpty(t, milestone.ID)
	assert.Equal(t, StatusPlanned, milestone.Status)
	assert.NotEmpty(t, milestone.DueDate)

	department := NewDepartment()
	assert.NotEmpty(t, department.ID)
	assert.Equal(t, StatusPlanned, department.Status)

	assert.NotEqual(t, scene.ID, milestone.ID)
}

func TestCoerceShareRole(t *testing.T) {
	assert.Equal(t, RoleEditor, CoerceShareRole("editor"))
	assert.Equal(t, RoleViewer, CoerceShareRole("viewer"))
	assert.Equal(t, RoleViewer, CoerceShareRole(""))
	assert.Equal(t, RoleViewer, CoerceShareRole("admin"))
	assert.Equal(t, RoleViewer, CoerceShareRole("EDITOR"))
}
