package canvas

import "container/list"

// DrawLog is the ordered record of the strokes currently visible in a room.
// It is not safe for concurrent use; the owning room serialises access.
type DrawLog struct {
	order  *list.List
	index  map[StrokeID]*list.Element
	nextID StrokeID
}

func NewDrawLog() *DrawLog {
	return &DrawLog{
		order: list.New(),
		index: make(map[StrokeID]*list.Element),
	}
}

// Adds a stroke at the tail. A stroke without an id gets the next sequence id;
// a stroke that already has one (redo) keeps it.
func (l *DrawLog) Append(s Stroke) Stroke {
	if s.ID == 0 {
		l.nextID++
		s.ID = l.nextID
	}
	if el, ok := l.index[s.ID]; ok {
		l.order.Remove(el)
	}
	l.index[s.ID] = l.order.PushBack(s)
	return s
}

// Removes the stroke with the given id. Reports whether it was present.
func (l *DrawLog) Remove(id StrokeID) bool {
	el, ok := l.index[id]
	if !ok {
		return false
	}
	l.order.Remove(el)
	delete(l.index, id)
	return true
}

// Removes every stroke drawn by owner, keeping the relative order of the rest.
func (l *DrawLog) RemoveOwner(owner string) int {
	removed := 0
	for el := l.order.Front(); el != nil; {
		next := el.Next()
		s := el.Value.(Stroke)
		if s.OwnerID == owner {
			l.order.Remove(el)
			delete(l.index, s.ID)
			removed++
		}
		el = next
	}
	return removed
}

// Returns a copy of the log in order, for replay to clients
func (l *DrawLog) Snapshot() []Stroke {
	strokes := make([]Stroke, 0, l.order.Len())
	for el := l.order.Front(); el != nil; el = el.Next() {
		strokes = append(strokes, el.Value.(Stroke))
	}
	return strokes
}

func (l *DrawLog) Len() int {
	return l.order.Len()
}
