package easel

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// Scene is the ordered list of nodes on the canvas. Order is z-order: later
// nodes draw on top. Scene values are treated as immutable; every mutator
// returns a new slice and leaves the receiver untouched, so a Scene can be
// stored in history without copying.
type Scene []Node

// Index returns the position of the node with the given id, or -1.
func (s Scene) Index(id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the node with the given id.
func (s Scene) Find(id string) (Node, bool) {
	if i := s.Index(id); i >= 0 {
		return s[i], true
	}
	return Node{}, false
}

// Clone returns a deep copy.
func (s Scene) Clone() Scene {
	if s == nil {
		return nil
	}
	out := make(Scene, len(s))
	for i, n := range s {
		out[i] = n.Clone()
	}
	return out
}

// Equal reports whether two scenes hold the same nodes in the same order.
func (s Scene) Equal(o Scene) bool {
	return slices.EqualFunc(s, o, Node.Equal)
}

// Validate checks every node and that ids are unique.
func (s Scene) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, n := range s {
		if err := n.Validate(); err != nil {
			return err
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("easel: duplicate node id %s", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

// Add appends n on top of the scene. Panics if n is invalid or its id is
// already present.
func (s Scene) Add(n Node) Scene {
	mustValid(n)
	if s.Index(n.ID) >= 0 {
		panic("easel: duplicate node id " + n.ID)
	}
	out := make(Scene, len(s), len(s)+1)
	copy(out, s)
	return append(out, n)
}

// UpdateNodes replaces nodes by id without reordering. Ids not present in
// the scene are ignored; when an id appears more than once in nodes, the
// last one wins.
func (s Scene) UpdateNodes(nodes ...Node) Scene {
	if len(nodes) == 0 {
		return s
	}
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		mustValid(n)
		byID[n.ID] = n
	}
	out := make(Scene, len(s))
	for i, n := range s {
		if u, ok := byID[n.ID]; ok {
			out[i] = u
			continue
		}
		out[i] = n
	}
	return out
}

// Patch applies fn to a copy of the node with the given id. If the id is not
// present the scene is returned unchanged. Panics if fn leaves the node
// invalid or changes its id.
func (s Scene) Patch(id string, fn func(*Node)) Scene {
	i := s.Index(id)
	if i < 0 {
		return s
	}
	n := s[i].Clone()
	fn(&n)
	if n.ID != id {
		panic("easel: patch changed node id " + id)
	}
	mustValid(n)
	out := slices.Clone(s)
	out[i] = n
	return out
}

// Delete removes the nodes with the given ids.
func (s Scene) Delete(ids ...string) Scene {
	if len(ids) == 0 {
		return s
	}
	return slices.DeleteFunc(slices.Clone(s), func(n Node) bool {
		return slices.Contains(ids, n.ID)
	})
}

// BringToFront moves the node to the top of the z-order.
func (s Scene) BringToFront(id string) Scene {
	i := s.Index(id)
	if i < 0 || i == len(s)-1 {
		return s
	}
	n := s[i]
	out := slices.Delete(slices.Clone(s), i, i+1)
	return append(out, n)
}

// SendToBack moves the node to the bottom of the z-order.
func (s Scene) SendToBack(id string) Scene {
	i := s.Index(id)
	if i <= 0 {
		return s
	}
	n := s[i]
	out := slices.Delete(slices.Clone(s), i, i+1)
	return slices.Insert(out, 0, n)
}

// Duplicate clones the nodes with the given ids onto the top of the scene and
// returns the new ids. Each copy lands gap units to the right of its source;
// when that spot is already taken by another node the copy keeps stepping
// right by its own width plus gap until it finds a free spot. Sources are
// processed left to right so placement is deterministic.
func (s Scene) Duplicate(ids []string, gap float64, newID IDFunc) (Scene, []string) {
	var sources []Node
	for _, n := range s {
		if slices.Contains(ids, n.ID) {
			sources = append(sources, n)
		}
	}
	if len(sources) == 0 {
		return s, nil
	}
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].X != sources[j].X {
			return sources[i].X < sources[j].X
		}
		return sources[i].Y < sources[j].Y
	})

	out := slices.Clone(s)
	newIDs := make([]string, 0, len(sources))
	for _, src := range sources {
		dup := src.Clone()
		dup.ID = newID(PrefixNode)
		dup.Name = src.Name + " (Copy)"
		step := src.Width + gap
		dup.X = src.X + step
		for occupied(out, dup.X, dup.Y) {
			dup.X += step
		}
		mustValid(dup)
		out = append(out, dup)
		newIDs = append(newIDs, dup.ID)
	}
	return out, newIDs
}

const positionEpsilon = 1e-6

func occupied(s Scene, x, y float64) bool {
	for _, n := range s {
		if math.Abs(n.X-x) < positionEpsilon && math.Abs(n.Y-y) < positionEpsilon {
			return true
		}
	}
	return false
}

// HitTest returns the id of the topmost node whose bounds contain p.
// Rotation is ignored.
func (s Scene) HitTest(p Point) (string, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Bounds().Contains(p) {
			return s[i].ID, true
		}
	}
	return "", false
}

// MarqueeSelect returns, in z-order, the ids of every node whose bounds touch
// the rectangle spanned by a and b.
func (s Scene) MarqueeSelect(a, b Point) []string {
	r := RectFromPoints(a, b)
	var ids []string
	for _, n := range s {
		if n.Bounds().Intersects(r) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// OverlappingBelow walks down the z-order from the node with the given id
// and returns the first node whose bounds intersect it.
func (s Scene) OverlappingBelow(id string) (Node, bool) {
	i := s.Index(id)
	if i <= 0 {
		return Node{}, false
	}
	fb := s[i].Bounds()
	for j := i - 1; j >= 0; j-- {
		if s[j].Bounds().Intersects(fb) {
			return s[j], true
		}
	}
	return Node{}, false
}

// Bounds returns the union of the bounds of the nodes with the given ids.
// With no ids it covers the whole scene.
func (s Scene) Bounds(ids ...string) (Rect, bool) {
	var r Rect
	found := false
	for _, n := range s {
		if len(ids) > 0 && !slices.Contains(ids, n.ID) {
			continue
		}
		if !found {
			r, found = n.Bounds(), true
			continue
		}
		r = r.Union(n.Bounds())
	}
	return r, found
}
