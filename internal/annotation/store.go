package annotation

import (
	"fmt"
	"sync"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// Op names a store mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpUpdate Op = "update"
	OpClear  Op = "clear"
	OpUndo   Op = "undo"
	OpRedo   Op = "redo"
)

// Change describes a mutation delivered to listeners.
type Change struct {
	Op  Op
	IDs []string
}

// Store is an ordered collection of entities keyed by ID.
type Store struct {
	mu        sync.RWMutex
	entities  []Entity
	next      uint64
	history   *history
	listeners []func(Change)
}

// NewStore creates an empty store with the default undo depth.
func NewStore() *Store {
	return NewStoreWithHistory(DefaultMaxHistory)
}

// NewStoreWithHistory creates an empty store keeping up to depth undo steps.
func NewStoreWithHistory(depth int) *Store {
	return &Store{history: newHistory(depth)}
}

// OnChange registers fn to run after every mutation. Listeners run on the
// mutating goroutine after the store lock is released.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Add stores e under a fresh ID and returns it. Any ID already set on e is
// ignored.
func (s *Store) Add(e Entity) string {
	return s.AddAll([]Entity{e})[0]
}

// AddAll stores es as a single undo step and returns their IDs in order.
func (s *Store) AddAll(es []Entity) []string {
	if len(es) == 0 {
		return nil
	}
	s.mu.Lock()
	s.history.record(s.entities)
	ids := make([]string, len(es))
	for i, e := range es {
		e = e.clone()
		s.next++
		e.ID = fmt.Sprintf("%s-%d", e.Kind, s.next)
		if e.Source == "" {
			e.Source = SourceManual
		}
		s.entities = append(s.entities, e)
		ids[i] = e.ID
	}
	s.mu.Unlock()

	s.notify(Change{Op: OpAdd, IDs: ids})
	return ids
}

// Remove deletes the entity with id. It returns false if there is none.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.history.record(s.entities)
	s.entities = append(s.entities[:i:i], s.entities[i+1:]...)
	s.mu.Unlock()

	s.notify(Change{Op: OpRemove, IDs: []string{id}})
	return true
}

// Update applies p to the entity with id. It returns false if there is none.
func (s *Store) Update(id string, p Patch) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	if !p.Empty() {
		s.history.record(s.entities)
		p.apply(&s.entities[i])
	}
	s.mu.Unlock()

	s.notify(Change{Op: OpUpdate, IDs: []string{id}})
	return true
}

// Get returns a copy of the entity with id.
func (s *Store) Get(id string) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.entities[i].clone(), true
	}
	return Entity{}, false
}

// ListByPage returns the entities on page in insertion order.
func (s *Store) ListByPage(page int) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entity
	for _, e := range s.entities {
		if e.Page == page {
			out = append(out, e.clone())
		}
	}
	return out
}

// All returns every entity in insertion order.
func (s *Store) All() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.entities)
}

// Len returns the number of entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// ClearAll removes every entity. The ID counter keeps running.
func (s *Store) ClearAll() {
	s.mu.Lock()
	if len(s.entities) > 0 {
		s.history.record(s.entities)
	}
	s.entities = nil
	s.mu.Unlock()

	s.notify(Change{Op: OpClear})
}

// HitTest returns the topmost entity on page within tolerance of p.
func (s *Store) HitTest(page int, p geometry.Point, tolerance float64) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.entities) - 1; i >= 0; i-- {
		e := s.entities[i]
		if e.Page == page && hits(e, p, tolerance) {
			return e.clone(), true
		}
	}
	return Entity{}, false
}

// Undo restores the state before the last mutation.
func (s *Store) Undo() bool {
	return s.travel(OpUndo, s.history.back)
}

// Redo reapplies the last undone mutation.
func (s *Store) Redo() bool {
	return s.travel(OpRedo, s.history.forward)
}

// CanUndo reports whether Undo would change anything.
func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.canUndo()
}

// CanRedo reports whether Redo would change anything.
func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.canRedo()
}

func (s *Store) travel(op Op, step func([]Entity) ([]Entity, bool)) bool {
	s.mu.Lock()
	state, ok := step(s.entities)
	if ok {
		s.entities = state
	}
	s.mu.Unlock()

	if ok {
		s.notify(Change{Op: op})
	}
	return ok
}

func (s *Store) indexOf(id string) int {
	for i := range s.entities {
		if s.entities[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	ls := make([]func(Change), len(s.listeners))
	copy(ls, s.listeners)
	s.mu.RUnlock()
	for _, fn := range ls {
		fn(c)
	}
}

func hits(e Entity, p geometry.Point, tol float64) bool {
	switch {
	case e.P1 != nil && e.P2 != nil:
		return geometry.DistanceToSegment(p, *e.P1, *e.P2) <= tol
	case e.Rect != nil:
		return e.Rect.Inset(tol).Contains(p)
	case e.Point != nil:
		return geometry.Distance(p, *e.Point) <= tol
	}
	return false
}
