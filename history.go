package easel

// DefaultHistoryLimit bounds the undo stack when no limit is configured.
const DefaultHistoryLimit = 100

// History holds the live scene plus undo and redo stacks of whole-scene
// snapshots. Because Scene values are never mutated in place, snapshots are
// shared rather than copied.
//
// History is not safe for concurrent use; the Editor serializes access.
type History struct {
	present Scene
	past    []Scene
	future  []Scene // future[0] is the next redo target
	limit   int
}

// NewHistory returns a history with an empty scene. A limit <= 0 means
// DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Present returns the live scene.
func (h *History) Present() Scene { return h.present }

// SetNodes replaces the live scene without touching the stacks.
func (h *History) SetNodes(s Scene) { h.present = s }

// Update replaces the live scene with fn applied to the latest value.
// Use it for any merge that must not clobber edits made since the caller
// last looked at the scene.
func (h *History) Update(fn func(Scene) Scene) Scene {
	h.present = fn(h.present)
	return h.present
}

// PushHistory records snapshot as the undo target and discards the redo
// stack. The snapshot is normally the scene as it was before the edit.
func (h *History) PushHistory(snapshot Scene) {
	h.past = append(h.past, snapshot)
	if over := len(h.past) - h.limit; over > 0 {
		h.past = append(h.past[:0:0], h.past[over:]...)
	}
	h.future = nil
}

// Commit snapshots the live scene and then applies fn to it.
func (h *History) Commit(fn func(Scene) Scene) Scene {
	h.PushHistory(h.present)
	return h.Update(fn)
}

// Rewrite applies fn to every undo and redo snapshot, leaving the live
// scene alone. It lets a tool fix up nodes it inserted before any snapshot
// that now contains them was taken.
func (h *History) Rewrite(fn func(Scene) Scene) {
	for i, s := range h.past {
		h.past[i] = fn(s)
	}
	for i, s := range h.future {
		h.future[i] = fn(s)
	}
}

// CanUndo reports whether Undo has anything to restore.
func (h *History) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether Redo has anything to restore.
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Undo restores the most recent snapshot. It returns false when there is
// nothing to undo.
func (h *History) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	last := len(h.past) - 1
	prev := h.past[last]
	h.past = h.past[:last]
	h.future = append([]Scene{h.present}, h.future...)
	h.present = prev
	return true
}

// Redo reapplies the most recently undone scene. It returns false when
// there is nothing to redo.
func (h *History) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, h.present)
	h.present = next
	return true
}

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) {
	return len(h.past), len(h.future)
}
