package annotation

// DefaultMaxHistory bounds the undo stack.
const DefaultMaxHistory = 50

// history keeps snapshots of the entity list for undo and redo.
type history struct {
	undo [][]Entity
	redo [][]Entity
	max  int
}

func newHistory(max int) *history {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &history{max: max}
}

// record saves cur as an undo point and invalidates redo.
func (h *history) record(cur []Entity) {
	h.undo = append(h.undo, snapshot(cur))
	if len(h.undo) > h.max {
		h.undo = h.undo[1:]
	}
	h.redo = h.redo[:0]
}

// back returns the previous state, pushing cur onto the redo stack.
func (h *history) back(cur []Entity) ([]Entity, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	h.redo = append(h.redo, snapshot(cur))
	last := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	return last, true
}

// forward returns the next state, pushing cur onto the undo stack.
func (h *history) forward(cur []Entity) ([]Entity, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	h.undo = append(h.undo, snapshot(cur))
	last := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return last, true
}

func (h *history) canUndo() bool { return len(h.undo) > 0 }
func (h *history) canRedo() bool { return len(h.redo) > 0 }

func snapshot(entities []Entity) []Entity {
	s := make([]Entity, len(entities))
	for i, e := range entities {
		s[i] = e.clone()
	}
	return s
}
