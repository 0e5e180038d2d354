package editor

import (
	"context"
	"sync"
	"time"

	"mm-schedule-backend/pkg/models"
	"mm-schedule-backend/pkg/notify"
)

// Collection names one of the three schedule sequences.
type Collection string

const (
	Scenes      Collection = "scenes"
	Milestones  Collection = "milestones"
	Departments Collection = "departments"
)

// Saver persists a full schedule snapshot for a project. Implementations talk
// to the external store; the editor never sends partial patches.
type Saver interface {
	SaveSchedule(ctx context.Context, projectID string, snapshot models.ProjectSchedule) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, projectID string, snapshot models.ProjectSchedule) error

func (f SaverFunc) SaveSchedule(ctx context.Context, projectID string, snapshot models.ProjectSchedule) error {
	return f(ctx, projectID, snapshot)
}

const defaultDebounce = 800 * time.Millisecond

// Options configures a schedule editor session.
type Options struct {
	ProjectID string
	// CanEdit is resolved by the caller; the editor does not compute
	// permissions. When false every mutation is a no-op and no write is
	// ever issued.
	CanEdit  bool
	Initial  models.ProjectSchedule
	Saver    Saver
	Notifier notify.Notifier
	// Debounce overrides the autosave delay; zero means the 800ms default.
	Debounce time.Duration
}

// Editor holds one session's in-memory copy of a project schedule and the
// debounced autosave pipeline behind it. Mutations apply synchronously and
// optimistically; persistence is trailing-edge debounced so a burst of
// keystrokes collapses into a single snapshot write. A failed write only
// surfaces a notification; local state is kept and the next edit or timer
// fire is the recovery path.
type Editor struct {
	projectID string
	canEdit   bool
	saver     Saver
	notifier  notify.Notifier
	debounce  time.Duration

	mu          sync.Mutex
	schedule    models.ProjectSchedule
	dirty       bool
	saving      bool
	lastSavedAt time.Time

	timer   *time.Timer
	pending bool
	running bool
	closed  bool
}

// New builds an editor session over an initial snapshot.
func New(opts Options) *Editor {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard()
	}
	return &Editor{
		projectID: opts.ProjectID,
		canEdit:   opts.CanEdit,
		saver:     opts.Saver,
		notifier:  notifier,
		debounce:  debounce,
		schedule:  cloneSchedule(opts.Initial),
	}
}

// CanEdit reports whether this session accepts mutations.
func (e *Editor) CanEdit() bool { return e.canEdit }

// Snapshot returns a copy of the current in-memory schedule.
func (e *Editor) Snapshot() models.ProjectSchedule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneSchedule(e.schedule)
}

// Dirty reports whether there are edits not yet confirmed by the store.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Saving reports whether a write is currently in flight.
func (e *Editor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// LastSavedAt returns the time of the last successful write this session,
// or the zero time if none happened yet.
func (e *Editor) LastSavedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSavedAt
}

// Status is the display projection of the save state.
func (e *Editor) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.saving {
		return "saving"
	}
	if !e.lastSavedAt.IsZero() {
		return "last saved at " + e.lastSavedAt.Format("15:04:05")
	}
	return "auto-saved"
}

// UpdateField replaces one field of the element with the given id in the
// named collection. Unknown ids and unknown field names are silently ignored.
func (e *Editor) UpdateField(c Collection, id, field, value string) {
	if !e.canEdit {
		return
	}
	e.mu.Lock()
	changed := false
	switch c {
	case Scenes:
		for i := range e.schedule.Scenes {
			if e.schedule.Scenes[i].ID == id {
				changed = applySceneField(&e.schedule.Scenes[i], field, value)
				break
			}
		}
	case Milestones:
		for i := range e.schedule.Milestones {
			if e.schedule.Milestones[i].ID == id {
				changed = applyMilestoneField(&e.schedule.Milestones[i], field, value)
				break
			}
		}
	case Departments:
		for i := range e.schedule.Departments {
			if e.schedule.Departments[i].ID == id {
				changed = applyDepartmentField(&e.schedule.Departments[i], field, value)
				break
			}
		}
	}
	if changed {
		e.markDirtyLocked()
	}
	e.mu.Unlock()
}

// AddElement appends a fresh element with defaults to the named collection
// and returns its generated id. Returns "" when editing is disabled.
func (e *Editor) AddElement(c Collection) string {
	if !e.canEdit {
		return ""
	}
	e.mu.Lock()
	var id string
	switch c {
	case Scenes:
		scene := models.NewScene()
		e.schedule.Scenes = append(e.schedule.Scenes, scene)
		id = scene.ID
	case Milestones:
		milestone := models.NewMilestone()
		e.schedule.Milestones = append(e.schedule.Milestones, milestone)
		id = milestone.ID
	case Departments:
		department := models.NewDepartment()
		e.schedule.Departments = append(e.schedule.Departments, department)
		id = department.ID
	default:
		e.mu.Unlock()
		return ""
	}
	e.markDirtyLocked()
	e.mu.Unlock()
	return id
}

// RemoveElement filters the element with the given id out of the named
// collection. Unknown ids are silently ignored.
func (e *Editor) RemoveElement(c Collection, id string) {
	if !e.canEdit {
		return
	}
	e.mu.Lock()
	changed := false
	switch c {
	case Scenes:
		kept := e.schedule.Scenes[:0]
		for _, s := range e.schedule.Scenes {
			if s.ID == id {
				changed = true
				continue
			}
			kept = append(kept, s)
		}
		e.schedule.Scenes = kept
	case Milestones:
		kept := e.schedule.Milestones[:0]
		for _, m := range e.schedule.Milestones {
			if m.ID == id {
				changed = true
				continue
			}
			kept = append(kept, m)
		}
		e.schedule.Milestones = kept
	case Departments:
		kept := e.schedule.Departments[:0]
		for _, d := range e.schedule.Departments {
			if d.ID == id {
				changed = true
				continue
			}
			kept = append(kept, d)
		}
		e.schedule.Departments = kept
	}
	if changed {
		e.markDirtyLocked()
	}
	e.mu.Unlock()
}

// Close cancels any pending autosave without flushing it. Edits younger than
// the debounce window are lost, matching the page-unload behavior.
func (e *Editor) Close() {
	e.mu.Lock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.pending = false
	e.mu.Unlock()
}

// markDirtyLocked records the edit and (re)arms the single autosave timer.
// Caller holds e.mu. Only the latest snapshot matters, so a newer edit just
// resets the same timer instead of queueing a second write.
func (e *Editor) markDirtyLocked() {
	e.dirty = true
	if !e.canEdit || e.saver == nil || e.closed {
		return
	}
	e.pending = true
	if e.timer == nil {
		e.timer = time.AfterFunc(e.debounce, e.onTimer)
		return
	}
	e.timer.Reset(e.debounce)
}

func (e *Editor) onTimer() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.running {
		// Another write is in flight; come back for the pending snapshot.
		if e.timer != nil {
			e.timer.Reset(e.debounce)
		}
		e.mu.Unlock()
		return
	}
	if !e.pending {
		e.mu.Unlock()
		return
	}
	e.pending = false
	e.running = true
	e.saving = true
	snapshot := cloneSchedule(e.schedule)
	e.mu.Unlock()

	err := e.saver.SaveSchedule(context.Background(), e.projectID, snapshot)

	e.mu.Lock()
	e.running = false
	e.saving = false
	if err != nil {
		e.notifier.Notify(notify.Notification{
			Title:       "Failed to save schedule",
			Description: err.Error(),
			Tone:        notify.ToneError,
		})
	} else {
		e.lastSavedAt = time.Now()
		if !e.pending {
			e.dirty = false
		}
	}
	// If an edit arrived while the write was in flight, run again.
	if e.pending && e.timer != nil && !e.closed {
		e.timer.Reset(e.debounce)
	}
	e.mu.Unlock()
}

func applySceneField(s *models.ScheduleScene, field, value string) bool {
	switch field {
	case "scene":
		s.Scene = value
	case "location":
		s.Location = value
	case "shootDate":
		s.ShootDate = value
	case "department":
		s.Department = value
	default:
		return false
	}
	return true
}

func applyMilestoneField(m *models.ScheduleMilestone, field, value string) bool {
	switch field {
	case "title":
		m.Title = value
	case "dueDate":
		m.DueDate = value
	case "owner":
		m.Owner = value
	case "status":
		m.Status = models.ScheduleStatus(value)
	default:
		return false
	}
	return true
}

func applyDepartmentField(d *models.ScheduleDepartment, field, value string) bool {
	switch field {
	case "name":
		d.Name = value
	case "lead":
		d.Lead = value
	case "status":
		d.Status = models.ScheduleStatus(value)
	default:
		return false
	}
	return true
}

func cloneSchedule(s models.ProjectSchedule) models.ProjectSchedule {
	out := models.ProjectSchedule{
		Scenes:      make([]models.ScheduleScene, len(s.Scenes)),
		Milestones:  make([]models.ScheduleMilestone, len(s.Milestones)),
		Departments: make([]models.ScheduleDepartment, len(s.Departments)),
	}
	copy(out.Scenes, s.Scenes)
	copy(out.Milestones, s.Milestones)
	copy(out.Departments, s.Departments)
	return out
}
