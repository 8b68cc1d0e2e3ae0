// Package client holds the board client: an in-memory state store applying
// optimistic local mutations and reconciling server responses and room
// broadcasts, plus the realtime connection feeding it.
package client

import (
	"sync"

	"github.com/google/uuid"

	"tablero-api/domain"
)

// Phase tracks an entry through the optimistic lifecycle.
type Phase int

const (
	// PhasePending marks a local-only placeholder awaiting its server id.
	PhasePending Phase = iota
	// PhaseConfirmed marks an entry the server has acknowledged.
	PhaseConfirmed
	// PhaseFailed marks a placeholder whose persistence request failed.
	PhaseFailed
)

// Entry pairs a task with its reconciliation phase.
type Entry struct {
	Task  domain.Task
	Phase Phase
}

// Store is the client's locally-coherent view of the board. Every method
// is safe for concurrent use; reconciliation rules are commutative and
// idempotent so arrival order between REST responses and broadcasts does
// not matter.
type Store struct {
	mu      sync.Mutex
	entries []Entry
	columns []domain.Column
	notify  func(message string)
}

// NewStore creates an empty store. notify surfaces user-visible failure
// notifications; nil disables them.
func NewStore(notify func(string)) *Store {
	if notify == nil {
		notify = func(string) {}
	}
	return &Store{notify: notify}
}

// AddLocal inserts an optimistic placeholder so the UI reflects the action
// with zero latency, minting a correlation id when the caller did not. The
// returned placeholder carries the temp id to attach to the create request.
func (s *Store) AddLocal(t domain.Task) domain.Task {
	if t.ClientTempID == "" {
		t.ClientTempID = uuid.NewString()
	}
	t.Priority = domain.NormalizePriority(t.Priority)
	s.mu.Lock()
	s.entries = append(s.entries, Entry{Task: t, Phase: PhasePending})
	s.mu.Unlock()
	return t
}

// ReconcileCreate matches a create response (or a task-added broadcast that
// won the race) back into the store. Three-way rule: a placeholder with the
// same temp id is replaced in place, an existing record with the same
// durable id is merged, anything else is appended. Whichever of the REST
// response and the broadcast arrives first, no duplicate survives.
func (s *Store) ReconcileCreate(saved domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if saved.ClientTempID != "" {
		for i := range s.entries {
			if s.entries[i].Task.ClientTempID == saved.ClientTempID {
				s.entries[i] = Entry{Task: saved, Phase: PhaseConfirmed}
				return
			}
		}
	}
	for i := range s.entries {
		if s.entries[i].Task.ID != "" && s.entries[i].Task.ID == saved.ID {
			s.entries[i] = Entry{Task: saved, Phase: PhaseConfirmed}
			return
		}
	}
	s.entries = append(s.entries, Entry{Task: saved, Phase: PhaseConfirmed})
}

// MarkFailed flags the placeholder with the given temp id and surfaces a
// notification. The optimistic entry stays visible; a later reload is the
// recovery path.
func (s *Store) MarkFailed(tempID, message string) {
	s.mu.Lock()
	for i := range s.entries {
		if s.entries[i].Task.ClientTempID == tempID {
			s.entries[i].Phase = PhaseFailed
			break
		}
	}
	s.mu.Unlock()
	s.notify(message)
}

// ApplyLocalUpdate applies a field change to the local copy immediately,
// before the persistence request is issued.
func (s *Store) ApplyLocalUpdate(id string, patch domain.TaskPatch) {
	s.mu.Lock()
	for i := range s.entries {
		if s.entries[i].Task.ID == id {
			s.entries[i].Task = patch.Apply(s.entries[i].Task)
			break
		}
	}
	s.mu.Unlock()
}

// Upsert reconciles a server-canonical record: replace in place when the
// durable id is present, append when it is not. Used both for REST update
// responses and for task-added/task-updated/task-modified broadcasts, which
// makes missing an update impossible regardless of ordering races.
func (s *Store) Upsert(saved domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].Task.ID == saved.ID {
			s.entries[i] = Entry{Task: saved, Phase: PhaseConfirmed}
			return
		}
	}
	s.entries = append(s.entries, Entry{Task: saved, Phase: PhaseConfirmed})
}

// Remove drops the task by durable id. Idempotent: removing an id that is
// already gone is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Task.ID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// NotifyFailure surfaces a dismissable failure notification without
// touching state. Optimistic entries stay in place; the inconsistency
// window is bounded by the next reload.
func (s *Store) NotifyFailure(message string) {
	s.notify(message)
}

// UpsertColumn reconciles a column-created or column-updated broadcast.
func (s *Store) UpsertColumn(col domain.Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.columns {
		if s.columns[i].ID == col.ID {
			s.columns[i] = col
			domain.SortColumns(s.columns)
			return
		}
	}
	s.columns = append(s.columns, col)
	domain.SortColumns(s.columns)
}

// RemoveColumn reconciles a column-removed broadcast.
func (s *Store) RemoveColumn(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.columns[:0]
	for _, c := range s.columns {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.columns = kept
}

// ReplaceColumns swaps in the server-provided ordering wholesale. Column
// reordering broadcasts never merge partially.
func (s *Store) ReplaceColumns(cols []domain.Column) {
	s.mu.Lock()
	s.columns = append([]domain.Column(nil), cols...)
	s.mu.Unlock()
}

// ReplaceAll swaps in a full server snapshot, used on initial load and on
// resync after a reconnect.
func (s *Store) ReplaceAll(tasks []domain.Task, cols []domain.Column) {
	entries := make([]Entry, 0, len(tasks))
	for _, t := range tasks {
		entries = append(entries, Entry{Task: t, Phase: PhaseConfirmed})
	}
	s.mu.Lock()
	s.entries = entries
	s.columns = append([]domain.Column(nil), cols...)
	s.mu.Unlock()
}

// Tasks returns the current task list sorted by the order hint, ties kept
// in arrival order.
func (s *Store) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Task)
	}
	domain.SortTasks(out)
	return out
}

// TasksByColumn groups the current tasks under their resolved column ids,
// each group sorted by the tasks' order hint. Tasks whose column reference
// no longer resolves land in the fallback column, so a removed column never
// makes cards disappear from the board.
func (s *Store) TasksByColumn() map[string][]domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]domain.Task, len(s.columns))
	for _, e := range s.entries {
		col, _ := domain.NewColumnRef(e.Task.Column).Resolve(s.columns)
		if col.ID == "" {
			continue
		}
		out[col.ID] = append(out[col.ID], e.Task)
	}
	for _, tasks := range out {
		domain.SortTasks(tasks)
	}
	return out
}

// Entries returns the current entries with their phases.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Columns returns the current column ordering.
func (s *Store) Columns() []domain.Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Column(nil), s.columns...)
}
