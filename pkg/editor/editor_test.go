package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mm-schedule-backend/pkg/models"
	"mm-schedule-backend/pkg/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSaver records every snapshot it receives.
type countingSaver struct {
	mu        sync.Mutex
	snapshots []models.ProjectSchedule
	err       error
}

func (s *countingSaver) SaveSchedule(ctx context.Context, projectID string, snapshot models.ProjectSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.snapshots = append(s.snapshots, snapshot)
	return nil
}

func (s *countingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func (s *countingSaver) last() models.ProjectSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[len(s.snapshots)-1]
}

func newTestEditor(t *testing.T, saver Saver, notifier notify.Notifier) *Editor {
	t.Helper()
	e := New(Options{
		ProjectID: "p1",
		CanEdit:   true,
		Initial:   models.DefaultSchedule(),
		Saver:     saver,
		Notifier:  notifier,
		Debounce:  20 * time.Millisecond,
	})
	t.Cleanup(e.Close)
	return e
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEditorAppliesEditsSynchronously(t *testing.T) {
	saver := &countingSaver{}
	e := newTestEditor(t, saver, nil)

	id := e.AddElement(Scenes)
	require.NotEmpty(t, id)
	e.UpdateField(Scenes, id, "scene", "EXT. ROOFTOP")
	e.UpdateField(Scenes, id, "location", "Downtown")

	snap := e.Snapshot()
	require.Len(t, snap.Scenes, 1)
	assert.Equal(t, "EXT. ROOFTOP", snap.Scenes[0].Scene)
	assert.Equal(t, "Downtown", snap.Scenes[0].Location)
	assert.True(t, e.Dirty())
}

func TestEditorCoalescesBurstIntoSingleSave(t *testing.T) {
	saver := &countingSaver{}
	e := newTestEditor(t, saver, nil)

	id := e.AddElement(Milestones)
	for _, title := range []string{"D", "Dr", "Dra", "Draft"} {
		e.UpdateField(Milestones, id, "title", title)
	}

	waitFor(t, func() bool { return saver.count() >= 1 })
	// Allow a second debounce window to pass; no further writes should land.
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 1, saver.count())
	got := saver.last()
	require.Len(t, got.Milestones, 1)
	assert.Equal(t, "Draft", got.Milestones[0].Title)
	assert.False(t, e.Dirty())
}

func TestEditorEditDuringWindowPostponesSave(t *testing.T) {
	saver := &countingSaver{}
	e := newTestEditor(t, saver, nil)

	id := e.AddElement(Departments)
	e.UpdateField(Departments, id, "name", "Camera")
	time.Sleep(10 * time.Millisecond)
	// Inside the window; the timer resets and only the final state is written.
	e.UpdateField(Departments, id, "name", "Camera & Grip")

	waitFor(t, func() bool { return saver.count() >= 1 })
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 1, saver.count())
	assert.Equal(t, "Camera & Grip", saver.last().Departments[0].Name)
}

func TestEditorSequentialEditsEachSave(t *testing.T) {
	saver := &countingSaver{}
	e := newTestEditor(t, saver, nil)

	id := e.AddElement(Scenes)
	waitFor(t, func() bool { return saver.count() == 1 })

	e.UpdateField(Scenes, id, "scene", "INT. LAB")
	waitFor(t, func() bool { return saver.count() == 2 })

	assert.Equal(t, "INT. LAB", saver.last().Scenes[0].Scene)
}

func TestEditorRemoveElement(t *testing.T) {
	saver := &countingSaver{}
	e := newTestEditor(t, saver, nil)

	keep := e.AddElement(Scenes)
	drop := e.AddElement(Scenes)
	e.RemoveElement(Scenes, drop)

	snap := e.Snapshot()
	require.Len(t, snap.Scenes, 1)
	assert.Equal(t, keep, snap.Scenes[0].ID)

	// Unknown id is a no-op.
	before := e.Snapshot()
	e.RemoveElement(Scenes, "missing")
	assert.Equal(t, before, e.Snapshot())
}

func TestEditorReadOnlySessionNeverWrites(t *testing.T) {
	saver := &countingSaver{}
	e := New(Options{
		ProjectID: "p1",
		CanEdit:   false,
		Initial:   models.DefaultSchedule(),
		Saver:     saver,
		Debounce:  10 * time.Millisecond,
	})
	defer e.Close()

	assert.Empty(t, e.AddElement(Scenes))
	e.UpdateField(Scenes, "any", "scene", "x")
	e.RemoveElement(Scenes, "any")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, saver.count())
	assert.Empty(t, e.Snapshot().Scenes)
	assert.False(t, e.Dirty())
}

func TestEditorFailedSaveNotifiesAndKeepsState(t *testing.T) {
	saver := &countingSaver{err: errors.New("store unavailable")}

	var mu sync.Mutex
	var notes []notify.Notification
	notifier := notify.Func(func(n notify.Notification) {
		mu.Lock()
		notes = append(notes, n)
		mu.Unlock()
	})

	e := newTestEditor(t, saver, notifier)
	id := e.AddElement(Scenes)
	e.UpdateField(Scenes, id, "scene", "INT. VAULT")

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notes) >= 1
	})

	mu.Lock()
	note := notes[0]
	mu.Unlock()
	assert.Equal(t, notify.ToneError, note.Tone)
	assert.Contains(t, note.Description, "store unavailable")

	// Local edits survive the failure and the session stays dirty.
	assert.True(t, e.Dirty())
	assert.Equal(t, "INT. VAULT", e.Snapshot().Scenes[0].Scene)
	assert.True(t, e.LastSavedAt().IsZero())
}

func TestEditorStatusProjection(t *testing.T) {
	saver := &countingSaver{}
	e := newTestEditor(t, saver, nil)

	assert.Equal(t, "auto-saved", e.Status())

	e.AddElement(Scenes)
	waitFor(t, func() bool { return saver.count() >= 1 })
	waitFor(t, func() bool { return !e.Saving() })

	assert.Contains(t, e.Status(), "last saved at ")
}

func TestEditorCloseDropsPendingSave(t *testing.T) {
	saver := &countingSaver{}
	e := newTestEditor(t, saver, nil)

	e.AddElement(Scenes)
	e.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, saver.count())
}

func TestEditorUnknownFieldIgnored(t *testing.T) {
	saver := &countingSaver{}
	e := newTestEditor(t, saver, nil)

	id := e.AddElement(Scenes)
	waitFor(t, func() bool { return saver.count() == 1 })

	e.UpdateField(Scenes, id, "budget", "1000000")
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, saver.count())
}
