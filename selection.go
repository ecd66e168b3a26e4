package easel

import "slices"

// Marquee is a rubber-band rectangle in world space, from the pointer-down
// corner to the current pointer.
type Marquee struct {
	Start, End Point
}

// Rect returns the normalized rectangle.
func (m Marquee) Rect() Rect { return RectFromPoints(m.Start, m.End) }

// Selection is the transient selection state of an editing session. None of
// it is recorded in history.
type Selection struct {
	// IDs are the selected node ids. The first is the primary node that
	// single-node tools act on.
	IDs []string
	// Lasso is the freehand polygon in world space.
	Lasso []Point
	// Strokes are brush polylines in world space.
	Strokes [][]Point
	// Marquee is non-nil while a rubber-band selection is in progress.
	Marquee *Marquee
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	return slices.Contains(s.IDs, id)
}

// Primary returns the primary selected node id.
func (s Selection) Primary() (string, bool) {
	if len(s.IDs) == 0 {
		return "", false
	}
	return s.IDs[0], true
}

// Single returns the selected id when exactly one node is selected.
func (s Selection) Single() (string, bool) {
	if len(s.IDs) != 1 {
		return "", false
	}
	return s.IDs[0], true
}

// LassoEligible reports whether the lasso encloses an area.
func (s Selection) LassoEligible() bool {
	return len(s.Lasso) >= 3
}

// BrushEligible reports whether at least one brush stroke has a point.
func (s Selection) BrushEligible() bool {
	for _, st := range s.Strokes {
		if len(st) > 0 {
			return true
		}
	}
	return false
}

// HasRegion reports whether the lasso or brush marks a usable region.
func (s Selection) HasRegion() bool {
	return s.LassoEligible() || s.BrushEligible()
}

// Clone returns a copy that shares no memory with s.
func (s Selection) Clone() Selection {
	out := Selection{
		IDs:   slices.Clone(s.IDs),
		Lasso: slices.Clone(s.Lasso),
	}
	if s.Strokes != nil {
		out.Strokes = make([][]Point, len(s.Strokes))
		for i, st := range s.Strokes {
			out.Strokes[i] = slices.Clone(st)
		}
	}
	if s.Marquee != nil {
		m := *s.Marquee
		out.Marquee = &m
	}
	return out
}

// selectOnly replaces the selection with a single id, or clears it when id
// is empty.
func (s *Selection) selectOnly(id string) {
	if id == "" {
		s.IDs = nil
		return
	}
	s.IDs = []string{id}
}

// clearRegion drops the lasso and brush strokes.
func (s *Selection) clearRegion() {
	s.Lasso = nil
	s.Strokes = nil
}

// prune drops selected ids that are no longer in the scene.
func (s *Selection) prune(scene Scene) {
	s.IDs = slices.DeleteFunc(s.IDs, func(id string) bool {
		return scene.Index(id) < 0
	})
}

// Region is a lasso and brush selection expressed in one node's local
// coordinates (origin at the node's top-left, in node display units).
type Region struct {
	Lasso   []Point
	Strokes [][]Point
}

// LocalRegion maps the world-space lasso and strokes into n's local space,
// undoing the node's rotation so the region lines up with its bitmap. Only
// lassos with at least three points are kept.
func (s Selection) LocalRegion(n Node) Region {
	toLocal := invertAffine(nodeTransform(n))
	var r Region
	if s.LassoEligible() {
		r.Lasso = make([]Point, len(s.Lasso))
		for i, p := range s.Lasso {
			r.Lasso[i] = transformPoint(toLocal, p)
		}
	}
	for _, st := range s.Strokes {
		if len(st) == 0 {
			continue
		}
		local := make([]Point, len(st))
		for i, p := range st {
			local[i] = transformPoint(toLocal, p)
		}
		r.Strokes = append(r.Strokes, local)
	}
	return r
}

// Empty reports whether the region has nothing to draw.
func (r Region) Empty() bool {
	return len(r.Lasso) == 0 && len(r.Strokes) == 0
}

// Bounds returns the bounding box of every lasso and stroke point.
func (r Region) Bounds() (Rect, bool) {
	return BoundsOf(append([][]Point{r.Lasso}, r.Strokes...)...)
}
