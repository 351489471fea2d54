package canvas

// Number of strokes toggled by a single undo or redo
const DefaultBatchSize = 5

type stacks struct {
	undo []Stroke
	redo []Stroke
}

// History keeps per-user undo and redo stacks over one room's DrawLog.
// Like DrawLog it relies on the room for serialisation.
type History struct {
	users map[string]*stacks
}

func NewHistory() *History {
	return &History{users: make(map[string]*stacks)}
}

// Records a freshly drawn stroke. Any pending redo for its owner is dropped.
func (h *History) RecordDraw(s Stroke) {
	st, ok := h.users[s.OwnerID]
	if !ok {
		st = &stacks{}
		h.users[s.OwnerID] = st
	}
	st.undo = append(st.undo, s)
	st.redo = nil
}

// Pops up to batch strokes from the owner's undo stack, removes them from the
// log and moves them to the redo stack. Returns the undone strokes in pop order.
func (h *History) Undo(owner string, batch int, log *DrawLog) []Stroke {
	st, ok := h.users[owner]
	if !ok {
		return nil
	}
	var undone []Stroke
	for i := 0; i < batch && len(st.undo) > 0; i++ {
		s := st.undo[len(st.undo)-1]
		st.undo = st.undo[:len(st.undo)-1]
		log.Remove(s.ID)
		st.redo = append(st.redo, s)
		undone = append(undone, s)
	}
	return undone
}

// Pops up to batch strokes from the owner's redo stack and appends them back
// at the tail of the log.
func (h *History) Redo(owner string, batch int, log *DrawLog) []Stroke {
	st, ok := h.users[owner]
	if !ok {
		return nil
	}
	var redone []Stroke
	for i := 0; i < batch && len(st.redo) > 0; i++ {
		s := st.redo[len(st.redo)-1]
		st.redo = st.redo[:len(st.redo)-1]
		s = log.Append(s)
		st.undo = append(st.undo, s)
		redone = append(redone, s)
	}
	return redone
}

// Empties both stacks of owner
func (h *History) Reset(owner string) {
	if st, ok := h.users[owner]; ok {
		st.undo = nil
		st.redo = nil
	}
}

// Drops everything known about owner
func (h *History) Forget(owner string) {
	delete(h.users, owner)
}

// Depth returns the sizes of the owner's undo and redo stacks
func (h *History) Depth(owner string) (undo, redo int) {
	st, ok := h.users[owner]
	if !ok {
		return 0, 0
	}
	return len(st.undo), len(st.redo)
}
