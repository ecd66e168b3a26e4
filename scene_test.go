package easel

import (
	"slices"
	"testing"
)

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestSceneAddAndFind(t *testing.T) {
	var s Scene
	s2 := s.Add(testNode("a", 0, 0, 10, 10))
	if len(s) != 0 {
		t.Error("Add mutated the receiver")
	}
	if n, ok := s2.Find("a"); !ok || n.Width != 10 {
		t.Errorf("Find(a) = %+v, %v", n, ok)
	}
	if _, ok := s2.Find("missing"); ok {
		t.Error("Find(missing) = true")
	}
}

func TestSceneAddRejectsInvalid(t *testing.T) {
	s := Scene{testNode("a", 0, 0, 10, 10)}
	mustPanic(t, "duplicate id", func() { s.Add(testNode("a", 5, 5, 1, 1)) })
	mustPanic(t, "zero size", func() { s.Add(testNode("b", 0, 0, 0, 1)) })
}

func TestSceneUpdateNodesMergesByID(t *testing.T) {
	s := Scene{testNode("a", 0, 0, 10, 10), testNode("b", 0, 0, 10, 10)}
	moved := testNode("b", 50, 0, 10, 10)
	later := testNode("b", 70, 0, 10, 10)
	got := s.UpdateNodes(moved, testNode("ghost", 0, 0, 1, 1), later)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("order changed: %v", got)
	}
	if got[1].X != 70 {
		t.Errorf("b.X = %f, want 70 (last write wins)", got[1].X)
	}
	if s[1].X != 0 {
		t.Error("UpdateNodes mutated the receiver")
	}
}

func TestScenePatch(t *testing.T) {
	s := Scene{testNode("a", 0, 0, 10, 10)}
	got := s.Patch("a", func(n *Node) { n.Name = "renamed" })
	if got[0].Name != "renamed" || s[0].Name != "a" {
		t.Errorf("Patch: got %q, original %q", got[0].Name, s[0].Name)
	}
	if same := s.Patch("missing", func(n *Node) { n.Name = "x" }); !same.Equal(s) {
		t.Error("Patch of unknown id changed the scene")
	}
	mustPanic(t, "shrink to zero", func() { s.Patch("a", func(n *Node) { n.Width = 0 }) })
	mustPanic(t, "change id", func() { s.Patch("a", func(n *Node) { n.ID = "b" }) })
}

func TestSceneDelete(t *testing.T) {
	s := Scene{testNode("a", 0, 0, 1, 1), testNode("b", 0, 0, 1, 1), testNode("c", 0, 0, 1, 1)}
	got := s.Delete("a", "c")
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("Delete = %v", got)
	}
	if len(s) != 3 || s[0].ID != "a" {
		t.Error("Delete mutated the receiver")
	}
}

func TestSceneReorder(t *testing.T) {
	s := Scene{testNode("a", 0, 0, 1, 1), testNode("b", 0, 0, 1, 1), testNode("c", 0, 0, 1, 1)}
	ids := func(s Scene) []string {
		var out []string
		for _, n := range s {
			out = append(out, n.ID)
		}
		return out
	}
	if got := ids(s.BringToFront("a")); !slices.Equal(got, []string{"b", "c", "a"}) {
		t.Errorf("BringToFront = %v", got)
	}
	if got := ids(s.SendToBack("c")); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Errorf("SendToBack = %v", got)
	}
}

func TestSceneDuplicateAvoidsOccupiedSlots(t *testing.T) {
	b := testNode("b", 0, 0, 100, 100)
	a := testNode("a", 0, 0, 100, 100)
	s := Scene{b, a}
	ids := seqIDs()

	s, first := s.Duplicate([]string{"a"}, 40, ids)
	s, second := s.Duplicate([]string{"a"}, 40, ids)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("new ids = %v, %v", first, second)
	}
	d1, _ := s.Find(first[0])
	d2, _ := s.Find(second[0])
	if d1.X != 140 || d1.Y != 0 {
		t.Errorf("first duplicate at (%f,%f), want (140,0)", d1.X, d1.Y)
	}
	if d2.X != 280 || d2.Y != 0 {
		t.Errorf("second duplicate at (%f,%f), want (280,0)", d2.X, d2.Y)
	}
	if len(s) != 4 {
		t.Errorf("len = %d, want 4", len(s))
	}
	if err := s.Validate(); err != nil {
		t.Error(err)
	}
}

func TestSceneDuplicateOrderIsLeftToRight(t *testing.T) {
	s := Scene{testNode("right", 500, 0, 100, 100), testNode("left", 0, 0, 100, 100)}
	got, ids := s.Duplicate([]string{"right", "left"}, 40, seqIDs())
	if len(ids) != 2 {
		t.Fatalf("ids = %v", ids)
	}
	first, _ := got.Find(ids[0])
	if first.Name != "left (Copy)" {
		t.Errorf("first duplicate = %q, want copy of left", first.Name)
	}
}

func TestSceneHitTestTopmost(t *testing.T) {
	s := Scene{testNode("below", 0, 0, 100, 100), testNode("above", 50, 50, 100, 100)}
	if id, ok := s.HitTest(Point{75, 75}); !ok || id != "above" {
		t.Errorf("HitTest overlap = %q, %v, want above", id, ok)
	}
	if id, ok := s.HitTest(Point{10, 10}); !ok || id != "below" {
		t.Errorf("HitTest = %q, %v, want below", id, ok)
	}
	if _, ok := s.HitTest(Point{500, 500}); ok {
		t.Error("HitTest on empty space = true")
	}
}

func TestSceneHitTestIgnoresRotation(t *testing.T) {
	n := testNode("a", 0, 0, 100, 10)
	n.Rotation = 90
	s := Scene{n}
	if _, ok := s.HitTest(Point{95, 5}); !ok {
		t.Error("rotated node not hit inside its unrotated bounds")
	}
}

func TestSceneMarqueeSelect(t *testing.T) {
	s := Scene{
		testNode("inside", 20, 20, 10, 10),
		testNode("partial", 90, 90, 50, 50),
		testNode("edge", 100, 0, 10, 10),
		testNode("outside", 200, 200, 10, 10),
	}
	got := s.MarqueeSelect(Point{100, 100}, Point{0, 0})
	want := []string{"inside", "partial", "edge"}
	if !slices.Equal(got, want) {
		t.Errorf("MarqueeSelect = %v, want %v", got, want)
	}
}

func TestSceneOverlappingBelow(t *testing.T) {
	bg := testNode("bg", 0, 0, 200, 200)
	gap := testNode("gap", 500, 500, 10, 10)
	fg := testNode("fg", 50, 50, 20, 20)

	s := Scene{bg, gap, fg}
	got, ok := s.OverlappingBelow("fg")
	if !ok || got.ID != "bg" {
		t.Errorf("OverlappingBelow = %q, %v, want bg", got.ID, ok)
	}

	lonely := Scene{gap, fg}
	if _, ok := lonely.OverlappingBelow("fg"); ok {
		t.Error("OverlappingBelow found a node that does not intersect")
	}
	if _, ok := s.OverlappingBelow("bg"); ok {
		t.Error("bottom node has something below it")
	}
}

func TestSceneBounds(t *testing.T) {
	s := Scene{testNode("a", 0, 0, 10, 10), testNode("b", 20, 30, 10, 10)}
	r, ok := s.Bounds()
	if !ok || r != (Rect{0, 0, 30, 40}) {
		t.Errorf("Bounds() = %+v, %v", r, ok)
	}
	r, ok = s.Bounds("b")
	if !ok || r != (Rect{20, 30, 10, 10}) {
		t.Errorf("Bounds(b) = %+v, %v", r, ok)
	}
	if _, ok := (Scene{}).Bounds(); ok {
		t.Error("empty scene has bounds")
	}
}
