package easel

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"golang.org/x/image/draw"
)

// fakeRemote records requests and answers them with fn.
type fakeRemote struct {
	mu   sync.Mutex
	reqs []EditRequest
	fn   func(EditRequest) (*EditResult, error)
}

func (f *fakeRemote) Edit(_ context.Context, req EditRequest) (*EditResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeRemote) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakeRemote) last() EditRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func replyImage(data []byte) func(EditRequest) (*EditResult, error) {
	return func(EditRequest) (*EditResult, error) { return &EditResult{Image: data}, nil }
}

func newToolEditor(t *testing.T, remote RemoteEditor, opts ...Option) *Editor {
	t.Helper()
	base := []Option{WithIDFunc(seqIDs()), WithRemote(remote)}
	return NewEditor(append(base, opts...)...)
}

// imageNode stores img and returns a node showing it.
func imageNode(t *testing.T, e *Editor, id string, x, y, w, h float64, img image.Image) Node {
	t.Helper()
	ref, err := e.Store().PutImage(img)
	if err != nil {
		t.Fatal(err)
	}
	n := testNode(id, x, y, w, h)
	n.Bitmap = ref
	return n
}

func mustLoad(t *testing.T, e *Editor, nodes ...Node) {
	t.Helper()
	if err := e.Load(Scene(nodes)); err != nil {
		t.Fatal(err)
	}
}

// rectMask is a black image with a white rectangle.
func rectMask(w, h int, r image.Rectangle) *image.NRGBA {
	m := solidImage(w, h, color.NRGBA{0, 0, 0, 255})
	draw.Draw(m, r, image.NewUniform(color.White), image.Point{}, draw.Src)
	return m
}

func TestDetachEndToEnd(t *testing.T) {
	plate := mustPNG(t, solidImage(100, 100, color.NRGBA{0, 0, 255, 255}))
	mask := mustPNG(t, rectMask(100, 100, image.Rect(20, 20, 60, 50)))
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) {
		return &EditResult{Image: plate, Mask: mask, Label: " cat "}, nil
	}}
	e := newToolEditor(t, remote)
	a := imageNode(t, e, "A", 0, 0, 100, 100, solidImage(100, 100, color.NRGBA{255, 0, 0, 255}))
	mustLoad(t, e, a)
	before := e.Nodes()

	e.Select("A")
	e.SetTool(ToolLasso)
	e.PointerDown(Point{10, 10})
	e.PointerMove(Point{90, 10})
	e.PointerMove(Point{90, 90})
	e.PointerMove(Point{10, 90})
	e.PointerUp(Point{10, 90})
	if got := len(e.Selection().Lasso); got != 4 {
		t.Fatalf("lasso has %d points, want 4", got)
	}

	if err := e.Detach(context.Background(), "the cat"); err != nil {
		t.Fatal(err)
	}

	req := remote.last()
	for _, role := range []string{RoleSource, RoleHint, RoleCroppedHint} {
		if _, ok := req.Image(role); !ok {
			t.Errorf("request missing %s image", role)
		}
	}
	if req.Kind != EditDetach || req.Prompt != "the cat" {
		t.Errorf("request = %s %q", req.Kind, req.Prompt)
	}

	nodes := e.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("scene has %d nodes, want 2", len(nodes))
	}
	if nodes[0].Name != "A (Plate)" || nodes[0].Bitmap != RefFor(plate) {
		t.Errorf("source = %q %s, want plate", nodes[0].Name, nodes[0].Bitmap)
	}
	obj := nodes[1]
	if obj.Name != "cat" || obj.Opacity != 1 {
		t.Errorf("object name/opacity = %q/%v", obj.Name, obj.Opacity)
	}
	want := Rect{X: 0, Y: 0, Width: 80, Height: 70}
	if obj.Bounds() != want {
		t.Errorf("object bounds = %+v, want %+v", obj.Bounds(), want)
	}
	objImg, err := e.Store().Image(context.Background(), obj.Bitmap)
	if err != nil {
		t.Fatal(err)
	}
	if b := objImg.Bounds(); b.Dx() != 80 || b.Dy() != 70 {
		t.Errorf("object bitmap = %v, want 80x70", b)
	}
	if _, _, _, a := objImg.At(5, 5).RGBA(); a != 0 {
		t.Errorf("padding pixel alpha = %d, want 0", a)
	}
	if r, _, _, a := objImg.At(30, 30).RGBA(); a>>8 != 255 || r>>8 != 255 {
		t.Errorf("object pixel = %d/%d, want opaque red", r>>8, a>>8)
	}

	sel := e.Selection()
	if id, ok := sel.Single(); !ok || id != obj.ID {
		t.Errorf("selection = %v, want %s", sel.IDs, obj.ID)
	}
	if sel.HasRegion() || e.Tool() != ToolSelect {
		t.Errorf("region %v, tool %s after detach", sel.HasRegion(), e.Tool())
	}

	if undo, _ := e.history.Depth(); undo != 1 {
		t.Errorf("undo depth = %d, want 1", undo)
	}
	e.Undo()
	if !e.Nodes().Equal(before) {
		t.Error("undo did not restore the pre-detach scene")
	}
}

func TestDetachWithoutObjectMaskKeepsOneNode(t *testing.T) {
	plate := mustPNG(t, solidImage(10, 10, color.NRGBA{0, 0, 255, 255}))
	remote := &fakeRemote{fn: replyImage(plate)}
	e := newToolEditor(t, remote)
	mustLoad(t, e, imageNode(t, e, "A", 0, 0, 100, 100, solidImage(10, 10, color.NRGBA{255, 0, 0, 255})))
	e.Select("A")
	e.SetTool(ToolBrush)
	e.PointerDown(Point{50, 50})
	e.PointerUp(Point{50, 50})

	if err := e.Detach(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	nodes := e.Nodes()
	if len(nodes) != 1 || nodes[0].Name != "A (Plate)" {
		t.Errorf("scene = %+v", nodes)
	}
}

func TestEraseReplacesBitmapInPlace(t *testing.T) {
	result := mustPNG(t, solidImage(40, 40, color.NRGBA{9, 9, 9, 255}))
	remote := &fakeRemote{fn: replyImage(result)}
	e := newToolEditor(t, remote)
	a := imageNode(t, e, "A", 10, 10, 40, 40, solidImage(40, 40, color.NRGBA{255, 255, 255, 255}))
	mustLoad(t, e, a)
	e.Select("A")
	e.SetTool(ToolBrush)
	e.PointerDown(Point{20, 20})
	e.PointerMove(Point{30, 30})
	e.PointerUp(Point{30, 30})

	if err := e.Erase(context.Background(), "remove the smudge"); err != nil {
		t.Fatal(err)
	}
	got, _ := e.Nodes().Find("A")
	if got.Bitmap != RefFor(result) || got.Bounds() != a.Bounds() || got.Name != "A" {
		t.Errorf("erased node = %+v", got)
	}
	if e.Selection().HasRegion() {
		t.Error("brush strokes not cleared")
	}
	if req := remote.last(); len(req.Images) != 2 {
		t.Errorf("erase sent %d images, want source and hint", len(req.Images))
	}
	e.Undo()
	if n, _ := e.Nodes().Find("A"); n.Bitmap != a.Bitmap {
		t.Error("undo did not restore the original bitmap")
	}
}

func TestRemoveBackgroundCropsAndRenames(t *testing.T) {
	mask := mustPNG(t, rectMask(200, 100, image.Rect(50, 25, 150, 75)))
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) { return &EditResult{Mask: mask}, nil }}
	cfg := DefaultConfig()
	cfg.ErodePasses = 0
	e := newToolEditor(t, remote, WithConfig(cfg))
	mustLoad(t, e, imageNode(t, e, "A", 10, 20, 200, 100, solidImage(200, 100, color.NRGBA{0, 200, 0, 255})))
	e.Select("A")
	e.SetTool(ToolLasso)

	if err := e.RemoveBackground(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, _ := e.Nodes().Find("A")
	want := Rect{X: 40, Y: 25, Width: 140, Height: 90}
	if got.Bounds() != want {
		t.Errorf("bounds = %+v, want %+v", got.Bounds(), want)
	}
	if got.Name != "A (Cutout)" {
		t.Errorf("name = %q", got.Name)
	}
	if e.Tool() != ToolSelect {
		t.Errorf("tool = %s, want select", e.Tool())
	}
}

func TestRemoveBackgroundEmptyMaskFails(t *testing.T) {
	mask := mustPNG(t, solidImage(10, 10, color.NRGBA{0, 0, 0, 255}))
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) { return &EditResult{Mask: mask}, nil }}
	e := newToolEditor(t, remote)
	mustLoad(t, e, imageNode(t, e, "A", 0, 0, 10, 10, solidImage(10, 10, color.NRGBA{255, 0, 0, 255})))
	e.Select("A")

	err := e.RemoveBackground(context.Background())
	if !errors.Is(err, ErrEmptyMask) {
		t.Fatalf("err = %v, want ErrEmptyMask", err)
	}
	if e.CanUndo() {
		t.Error("failed tool touched history")
	}
}

func TestPlaceMergesIntoOverlappingBackground(t *testing.T) {
	result := mustPNG(t, solidImage(100, 100, color.NRGBA{1, 2, 3, 255}))
	remote := &fakeRemote{fn: replyImage(result)}
	e := newToolEditor(t, remote)
	bg := imageNode(t, e, "bg", 0, 0, 100, 100, solidImage(100, 100, color.NRGBA{0, 0, 255, 255}))
	far := imageNode(t, e, "far", 300, 300, 50, 50, solidImage(5, 5, color.NRGBA{0, 255, 0, 255}))
	fg := imageNode(t, e, "fg", 20, 20, 30, 30, solidImage(6, 6, color.NRGBA{255, 0, 0, 255}))
	mustLoad(t, e, bg, far, fg)
	e.Select("fg")

	if err := e.Place(context.Background(), "on the table"); err != nil {
		t.Fatal(err)
	}
	req := remote.last()
	comp, ok := req.Image(RoleComposite)
	if !ok || comp.MIME != "image/jpeg" {
		t.Errorf("composite = %v %q", ok, comp.MIME)
	}
	if m, ok := req.Image(RoleMask); !ok || m.MIME != "image/png" {
		t.Errorf("mask = %v %q", ok, m.MIME)
	}

	nodes := e.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("scene has %d nodes, want 2", len(nodes))
	}
	got, _ := nodes.Find("bg")
	if got.Name != "bg + fg" || got.Bitmap != RefFor(result) {
		t.Errorf("background = %q %s", got.Name, got.Bitmap)
	}
	if _, ok := nodes.Find("fg"); ok {
		t.Error("foreground still in scene")
	}
	if id, _ := e.Selection().Single(); id != "bg" {
		t.Errorf("selection = %v, want bg", e.Selection().IDs)
	}
}

func TestPlaceWithoutOverlapIsNoop(t *testing.T) {
	remote := &fakeRemote{fn: replyImage(nil)}
	e := newToolEditor(t, remote)
	mustLoad(t, e,
		imageNode(t, e, "far", 300, 300, 50, 50, solidImage(5, 5, color.White)),
		imageNode(t, e, "fg", 0, 0, 30, 30, solidImage(5, 5, color.White)),
	)
	e.Select("fg")
	if err := e.Place(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if remote.calls() != 0 || len(e.Nodes()) != 2 {
		t.Errorf("place ran without an overlapping node (calls=%d)", remote.calls())
	}
}

func TestExtractTextIsNotAnUndoStep(t *testing.T) {
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) {
		return &EditResult{Texts: []string{"Hello", "World"}}, nil
	}}
	e := newToolEditor(t, remote)
	a := imageNode(t, e, "A", 0, 0, 50, 50, solidImage(5, 5, color.White))
	mustLoad(t, e, a)
	e.Select("A")

	if err := e.ExtractText(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, _ := e.Nodes().Find("A")
	if len(got.TextBlocks) != 2 || got.TextBlocks[1].Text != "World" || got.HasPendingText() {
		t.Errorf("text blocks = %+v", got.TextBlocks)
	}
	if got.Bitmap != a.Bitmap || got.Bounds() != a.Bounds() {
		t.Error("extract text changed bitmap or geometry")
	}
	if e.CanUndo() {
		t.Error("extract text pushed history")
	}
}

func TestUpdateTextSendsPendingEdits(t *testing.T) {
	result := mustPNG(t, solidImage(5, 5, color.NRGBA{7, 7, 7, 255}))
	remote := &fakeRemote{fn: replyImage(result)}
	e := newToolEditor(t, remote)
	a := imageNode(t, e, "A", 0, 0, 50, 50, solidImage(5, 5, color.White))
	a.TextBlocks = []TextBlock{
		{ID: "t1", Text: "Hello", OriginalText: "Hello"},
		{ID: "t2", Text: "World", OriginalText: "World"},
	}
	mustLoad(t, e, a)
	e.Select("A")

	if err := e.UpdateText(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if remote.calls() != 0 {
		t.Fatal("update text ran without pending edits")
	}

	if !e.SetText("A", "t1", "Howdy") {
		t.Fatal("SetText reported no change")
	}
	if err := e.UpdateText(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	edits := remote.last().TextEdits
	if len(edits) != 1 || edits[0] != (TextEdit{Original: "Hello", Updated: "Howdy"}) {
		t.Errorf("edits = %+v", edits)
	}
	got, _ := e.Nodes().Find("A")
	if got.HasPendingText() || got.TextBlocks[0].OriginalText != "Howdy" || got.Bitmap != RefFor(result) {
		t.Errorf("node after update = %+v", got)
	}
	if !e.CanUndo() {
		t.Error("update text did not push history")
	}
}

func TestUpdateTextKeepsEditsMadeDuringCall(t *testing.T) {
	var e *Editor
	result := mustPNG(t, solidImage(5, 5, color.White))
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) {
		e.SetText("A", "t2", "Earth")
		return &EditResult{Image: result}, nil
	}}
	e = newToolEditor(t, remote)
	a := imageNode(t, e, "A", 0, 0, 50, 50, solidImage(5, 5, color.White))
	a.TextBlocks = []TextBlock{
		{ID: "t1", Text: "Howdy", OriginalText: "Hello"},
		{ID: "t2", Text: "World", OriginalText: "World"},
	}
	mustLoad(t, e, a)
	e.Select("A")

	if err := e.UpdateText(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	got, _ := e.Nodes().Find("A")
	if got.TextBlocks[0].Pending() {
		t.Errorf("sent block still pending: %+v", got.TextBlocks[0])
	}
	if b := got.TextBlocks[1]; !b.Pending() || b.Text != "Earth" || b.OriginalText != "World" {
		t.Errorf("edit made during the call = %+v, want pending Earth", b)
	}
}

func TestUpscaleRenames(t *testing.T) {
	result := mustPNG(t, solidImage(40, 40, color.White))
	remote := &fakeRemote{fn: replyImage(result)}
	e := newToolEditor(t, remote)
	mustLoad(t, e, imageNode(t, e, "A", 0, 0, 50, 50, solidImage(10, 10, color.White)))
	e.Select("A")
	if err := e.Upscale(context.Background()); err != nil {
		t.Fatal(err)
	}
	if req := remote.last(); req.ImageSize != ImageSize4K {
		t.Errorf("image size = %q", req.ImageSize)
	}
	got, _ := e.Nodes().Find("A")
	if got.Name != "A (4K)" || got.Width != 50 {
		t.Errorf("node = %+v", got)
	}
}

func TestGeneratePlaceholderThenResult(t *testing.T) {
	var e *Editor
	var during Scene
	var processing string
	result := mustPNG(t, solidImage(800, 400, color.White))
	remote := &fakeRemote{fn: func(req EditRequest) (*EditResult, error) {
		during = e.Nodes()
		processing = e.ProcessingID()
		return &EditResult{Image: result}, nil
	}}
	e = newToolEditor(t, remote)

	if err := e.Generate(context.Background(), "a cinematic harbor at dusk"); err != nil {
		t.Fatal(err)
	}
	if len(during) != 1 {
		t.Fatalf("placeholder missing during remote call: %+v", during)
	}
	ph := during[0]
	if ph.Name != GeneratedName || ph.Bounds() != (Rect{X: 100, Y: 100, Width: 400, Height: 225}) {
		t.Errorf("placeholder = %+v", ph)
	}
	if processing != ph.ID {
		t.Errorf("processing = %q, want %q", processing, ph.ID)
	}
	if r := remote.last().AspectRatio; r != AspectWide {
		t.Errorf("aspect = %s, want 16:9", r)
	}

	got, _ := e.Nodes().Find(ph.ID)
	if got.Width != 400 || got.Height != 200 || got.Bitmap != RefFor(result) {
		t.Errorf("generated node = %+v", got)
	}
	if id, _ := e.Selection().Single(); id != ph.ID {
		t.Errorf("selection = %v", e.Selection().IDs)
	}
	e.Undo()
	if len(e.Nodes()) != 0 {
		t.Errorf("undo left %d nodes", len(e.Nodes()))
	}
}

func TestGenerateFailureRollsBack(t *testing.T) {
	quota := errors.New("quota exceeded")
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) { return nil, quota }}
	e := newToolEditor(t, remote)

	err := e.Generate(context.Background(), "a square badge")
	var te *ToolError
	if !errors.As(err, &te) || te.Tool != EditGenerate || !errors.Is(err, quota) {
		t.Fatalf("err = %v", err)
	}
	if len(e.Nodes()) != 0 || e.CanUndo() {
		t.Errorf("failure left nodes=%d undo=%v", len(e.Nodes()), e.CanUndo())
	}
	if e.Busy() || e.ProcessingID() != "" {
		t.Error("processing slot not released")
	}
}

func TestGenerateFailureKeepsPlaceholderOutOfHistory(t *testing.T) {
	var e *Editor
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) {
		// the user drags a node while the generation is outstanding
		e.PointerDown(Point{50, 50})
		e.PointerMove(Point{80, 50})
		e.PointerUp(Point{80, 50})
		return nil, errors.New("model offline")
	}}
	e = newToolEditor(t, remote)
	mustLoad(t, e, testNode("a", 0, 0, 100, 100))

	if err := e.Generate(context.Background(), "a square badge"); err == nil {
		t.Fatal("Generate succeeded")
	}
	if n := e.Nodes(); len(n) != 1 || n[0].X != 30 {
		t.Fatalf("nodes after failure = %+v", n)
	}
	if !e.Undo() {
		t.Fatal("drag was not recorded")
	}
	if n := e.Nodes(); len(n) != 1 || n[0].ID != "a" || n[0].X != 0 {
		t.Errorf("undo restored %+v, want only a at x=0", n)
	}
	e.Redo()
	if n := e.Nodes(); len(n) != 1 || n[0].X != 30 {
		t.Errorf("redo restored %+v", n)
	}
}

func TestGenerateFillsPlaceholderInMidFlightSnapshots(t *testing.T) {
	var e *Editor
	result := mustPNG(t, solidImage(100, 100, color.White))
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) {
		e.PointerDown(Point{50, 50})
		e.PointerMove(Point{80, 50})
		e.PointerUp(Point{80, 50})
		return &EditResult{Image: result}, nil
	}}
	e = newToolEditor(t, remote)
	mustLoad(t, e, testNode("a", 0, 0, 100, 100))

	if err := e.Generate(context.Background(), "a square badge"); err != nil {
		t.Fatal(err)
	}
	for e.Undo() {
		for _, n := range e.Nodes() {
			if n.Name == GeneratedName && n.Bitmap != RefFor(result) {
				t.Errorf("undo restored a bare placeholder: %+v", n)
			}
		}
	}
}

func TestGenerateUsesSelectionAsContext(t *testing.T) {
	result := mustPNG(t, solidImage(100, 100, color.White))
	remote := &fakeRemote{fn: replyImage(result)}
	cfg := DefaultConfig()
	cfg.MaxContextImages = 1
	e := newToolEditor(t, remote, WithConfig(cfg))
	mustLoad(t, e,
		imageNode(t, e, "a", 0, 0, 100, 50, solidImage(4, 2, color.White)),
		imageNode(t, e, "b", 200, 10, 100, 50, solidImage(4, 2, color.White)),
	)
	e.Select("a", "b")

	if err := e.Generate(context.Background(), "a red kite"); err != nil {
		t.Fatal(err)
	}
	req := remote.last()
	if len(req.Images) != 1 || req.Images[0].Role != RoleContext {
		t.Errorf("context images = %d", len(req.Images))
	}
	if req.AspectRatio != AspectSquare {
		t.Errorf("aspect with two references = %s, want 1:1", req.AspectRatio)
	}
	gen := e.Nodes()[2]
	if gen.X != 340 || gen.Y != 10 {
		t.Errorf("generated at (%v, %v), want (340, 10)", gen.X, gen.Y)
	}
}

func TestGenerateBlankPromptIsNoop(t *testing.T) {
	remote := &fakeRemote{fn: replyImage(nil)}
	e := newToolEditor(t, remote)
	if err := e.Generate(context.Background(), "   "); err != nil || remote.calls() != 0 || len(e.Nodes()) != 0 {
		t.Errorf("blank prompt ran: err=%v calls=%d", err, remote.calls())
	}
}

func TestToolPreconditionsAreSilent(t *testing.T) {
	remote := &fakeRemote{fn: replyImage(nil)}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newToolEditor(t, remote, WithLogger(logger))
	mustLoad(t, e,
		imageNode(t, e, "a", 0, 0, 50, 50, solidImage(5, 5, color.White)),
		imageNode(t, e, "b", 10, 10, 50, 50, solidImage(5, 5, color.White)),
	)
	ctx := context.Background()

	tools := map[string]func() error{
		"detach":     func() error { return e.Detach(ctx, "") },
		"erase":      func() error { return e.Erase(ctx, "") },
		"remove-bg":  func() error { return e.RemoveBackground(ctx) },
		"place":      func() error { return e.Place(ctx, "") },
		"extract":    func() error { return e.ExtractText(ctx) },
		"updateText": func() error { return e.UpdateText(ctx, "") },
		"upscale":    func() error { return e.Upscale(ctx) },
	}
	for name, run := range tools {
		if err := run(); err != nil {
			t.Errorf("%s with no selection: %v", name, err)
		}
	}
	e.Select("a", "b")
	for _, name := range []string{"detach", "erase", "remove-bg", "extract", "upscale"} {
		if err := tools[name](); err != nil {
			t.Errorf("%s with two selected: %v", name, err)
		}
	}
	if remote.calls() != 0 {
		t.Errorf("remote called %d times", remote.calls())
	}
	if strings.Contains(logs.String(), "level=ERROR") {
		t.Errorf("precondition logged an error: %s", logs.String())
	}
	if !strings.Contains(logs.String(), "tool skipped") {
		t.Error("precondition not logged at debug")
	}
}

func TestSingleToolInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	result := mustPNG(t, solidImage(5, 5, color.White))
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) {
		close(started)
		<-release
		return &EditResult{Image: result}, nil
	}}
	e := newToolEditor(t, remote)
	mustLoad(t, e, imageNode(t, e, "a", 0, 0, 50, 50, solidImage(5, 5, color.Black)))
	e.Select("a")

	done := make(chan error, 1)
	go func() { done <- e.Upscale(context.Background()) }()
	<-started

	if !e.Busy() || e.ProcessingID() != "a" {
		t.Errorf("busy=%v processing=%q while in flight", e.Busy(), e.ProcessingID())
	}
	e.Tick(0.3)
	if e.State().ShimmerPhase <= 0 {
		t.Error("shimmer did not advance while processing")
	}
	if err := e.Upscale(context.Background()); err != nil {
		t.Errorf("second tool: %v", err)
	}
	if err := e.Generate(context.Background(), "a boat"); err != nil {
		t.Errorf("generate while busy: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if remote.calls() != 1 {
		t.Errorf("remote called %d times, want 1", remote.calls())
	}
	if st := e.State(); st.ProcessingID != "" || st.ShimmerPhase != 0 {
		t.Errorf("processing %q phase %v after finish", st.ProcessingID, st.ShimmerPhase)
	}
}

func TestToolMergeKeepsConcurrentEdits(t *testing.T) {
	var e *Editor
	result := mustPNG(t, solidImage(5, 5, color.White))
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) {
		e.Rename("b", "renamed")
		e.SetOpacity("a", 0.5)
		return &EditResult{Image: result}, nil
	}}
	e = newToolEditor(t, remote)
	mustLoad(t, e,
		imageNode(t, e, "a", 0, 0, 50, 50, solidImage(5, 5, color.Black)),
		imageNode(t, e, "b", 100, 0, 50, 50, solidImage(5, 5, color.Black)),
	)
	before := e.Nodes()
	e.Select("a")

	if err := e.Upscale(context.Background()); err != nil {
		t.Fatal(err)
	}
	nodes := e.Nodes()
	a, _ := nodes.Find("a")
	b, _ := nodes.Find("b")
	if b.Name != "renamed" || a.Opacity != 0.5 || a.Name != "a (4K)" {
		t.Errorf("merge lost concurrent edits: a=%+v b=%+v", a, b)
	}
	e.Undo()
	if !e.Nodes().Equal(before) {
		t.Error("undo target is not the scene from when the tool started")
	}
}

func TestToolDecodeFailureLeavesHistory(t *testing.T) {
	remote := &fakeRemote{fn: replyImage(nil)}
	e := newToolEditor(t, remote)
	mustLoad(t, e, testNode("a", 0, 0, 50, 50))
	e.Select("a")

	err := e.Upscale(context.Background())
	if !errors.Is(err, ErrUnknownBitmap) {
		t.Fatalf("err = %v, want ErrUnknownBitmap", err)
	}
	if remote.calls() != 0 || e.CanUndo() {
		t.Errorf("calls=%d undo=%v after decode failure", remote.calls(), e.CanUndo())
	}
}

func TestToolMissingImage(t *testing.T) {
	remote := &fakeRemote{fn: func(EditRequest) (*EditResult, error) { return &EditResult{}, nil }}
	e := newToolEditor(t, remote)
	mustLoad(t, e, imageNode(t, e, "a", 0, 0, 50, 50, solidImage(5, 5, color.Black)))
	e.Select("a")
	if err := e.Upscale(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Errorf("err = %v, want ErrNoImage", err)
	}
}

func TestToolWithoutRemote(t *testing.T) {
	e := NewEditor(WithIDFunc(seqIDs()))
	mustLoad(t, e, imageNode(t, e, "a", 0, 0, 50, 50, solidImage(5, 5, color.Black)))
	e.Select("a")
	if err := e.Upscale(context.Background()); !errors.Is(err, ErrNoRemote) {
		t.Errorf("err = %v, want ErrNoRemote", err)
	}
}

func TestToolLogsOutcome(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	remote := &fakeRemote{fn: replyImage(mustPNG(t, solidImage(5, 5, color.White)))}
	e := newToolEditor(t, remote, WithLogger(logger))
	mustLoad(t, e, imageNode(t, e, "a", 0, 0, 50, 50, solidImage(5, 5, color.Black)))
	e.Select("a")
	if err := e.Upscale(context.Background()); err != nil {
		t.Fatal(err)
	}
	out := logs.String()
	if !strings.Contains(out, "tool finished") || !strings.Contains(out, "tool=upscale") || !strings.Contains(out, "node=a") {
		t.Errorf("log = %q", out)
	}
}
