package easel

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"slices"
	"sync"
)

// Editor is one editing session: the scene with its history, the transient
// selection, the viewport, the active tool and gesture, and the single
// processing slot used by the AI tools. All methods are safe for concurrent
// use; tool calls block on the remote editor without holding the session
// lock, so pointer input keeps flowing while a tool is in flight.
type Editor struct {
	mu sync.Mutex

	cfg     Config
	history *History
	sel     Selection
	view    Viewport
	flight  *viewportTween

	tool     ToolMode
	action   Action
	handle   Handle
	last     Point // last pointer position, screen space
	gesture  Scene // scene at pointer-down
	spacePan bool
	prevTool ToolMode

	busy         bool
	processingID string
	shimmer      *shimmer

	store  *BitmapStore
	remote RemoteEditor
	log    *slog.Logger
	newID  IDFunc
	debug  bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Editor) { e.cfg = cfg }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithIDFunc replaces the id generator, mostly for deterministic tests.
func WithIDFunc(fn IDFunc) Option {
	return func(e *Editor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithDebug validates every scene change and prints diagnostics to stderr.
func WithDebug(on bool) Option {
	return func(e *Editor) { e.debug = on }
}

// WithRemote sets the remote editor the AI tools call.
func WithRemote(r RemoteEditor) Option {
	return func(e *Editor) { e.remote = r }
}

// WithStore shares a bitmap store between editors.
func WithStore(s *BitmapStore) Option {
	return func(e *Editor) { e.store = s }
}

// NewEditor returns an empty session in SELECT mode.
func NewEditor(opts ...Option) *Editor {
	e := &Editor{
		cfg:   DefaultConfig(),
		view:  NewViewport(),
		tool:  ToolSelect,
		log:   slog.New(slog.DiscardHandler),
		newID: NewID,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = NewBitmapStore(nil)
	}
	e.debug = e.debug || e.cfg.Debug
	e.history = NewHistory(e.cfg.HistoryLimit)
	e.shimmer = newShimmer(e.cfg.ShimmerPeriod)
	return e
}

// State is a consistent copy of everything the renderer and UI read.
type State struct {
	Nodes        Scene
	Selection    Selection
	Viewport     Viewport
	Tool         ToolMode
	Action       Action
	Handle       Handle
	ProcessingID string
	ShimmerPhase float64
	CanUndo      bool
	CanRedo      bool
}

// State returns a snapshot of the session.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Nodes:        e.history.Present(),
		Selection:    e.sel.Clone(),
		Viewport:     e.view,
		Tool:         e.tool,
		Action:       e.action,
		Handle:       e.handle,
		ProcessingID: e.processingID,
		ShimmerPhase: e.shimmer.phase,
		CanUndo:      e.history.CanUndo(),
		CanRedo:      e.history.CanRedo(),
	}
}

// Nodes returns the live scene.
func (e *Editor) Nodes() Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Present()
}

// Selection returns a copy of the transient selection.
func (e *Editor) Selection() Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel.Clone()
}

// Viewport returns the current viewport.
func (e *Editor) Viewport() Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// SetViewport replaces the viewport and cancels any fly-to animation.
func (e *Editor) SetViewport(v Viewport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v.Zoom = clampZoom(v.Zoom)
	e.view = v
	e.flight = nil
}

// Tool returns the active tool mode.
func (e *Editor) Tool() ToolMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// SetTool switches the tool mode. It is ignored mid-gesture. While space is
// held the change takes effect when space is released.
func (e *Editor) SetTool(m ToolMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.action != ActionIdle {
		return
	}
	e.switchTool(m)
}

// ProcessingID returns the node a tool is working on, or "".
func (e *Editor) ProcessingID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processingID
}

// Busy reports whether a tool is in flight.
func (e *Editor) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Store returns the bitmap store nodes reference.
func (e *Editor) Store() *BitmapStore { return e.store }

// Config returns the session configuration.
func (e *Editor) Config() Config { return e.cfg }

// Tick advances per-frame animation by dt seconds: the processing shimmer
// and any viewport fly-to.
func (e *Editor) Tick(dt float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.processingID != "" {
		e.shimmer.advance(dt)
	}
	if e.flight != nil {
		e.view = e.flight.update(dt)
		if e.flight.done {
			e.flight = nil
		}
	}
}

// FlyTo animates the viewport to v over duration seconds.
func (e *Editor) FlyTo(v Viewport, duration float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if duration <= 0 {
		e.view = v
		e.flight = nil
		return
	}
	e.flight = newViewportTween(e.view, v, duration)
}

// FrameAll flies the viewport to show every node on a screen of the given
// size. It does nothing for an empty scene.
func (e *Editor) FrameAll(screenW, screenH float64) {
	e.mu.Lock()
	r, ok := e.history.Present().Bounds()
	view := e.view
	e.mu.Unlock()
	if !ok {
		return
	}
	e.FlyTo(view.Fit(r, screenW, screenH, 40), 0.35)
}

// Load replaces the scene and clears history and selection.
func (e *Editor) Load(nodes Scene) error {
	if err := nodes.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = NewHistory(e.cfg.HistoryLimit)
	e.history.SetNodes(slices.Clone(nodes))
	e.sel = Selection{}
	return nil
}

// --- History ---

// Undo restores the previous scene. It reports whether anything changed.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.undo()
}

// Redo reapplies an undone scene. It reports whether anything changed.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.redo()
}

// CanUndo reports whether Undo has anything to restore.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

// CanRedo reports whether Redo has anything to restore.
func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

func (e *Editor) undo() bool {
	if e.action != ActionIdle || !e.history.Undo() {
		return false
	}
	e.settle("undo")
	return true
}

func (e *Editor) redo() bool {
	if e.action != ActionIdle || !e.history.Redo() {
		return false
	}
	e.settle("redo")
	return true
}

// commit records the live scene for undo and applies fn.
func (e *Editor) commit(op string, fn func(Scene) Scene) {
	e.history.Commit(fn)
	e.settle(op)
}

// update applies fn to the latest scene without touching history.
func (e *Editor) update(op string, fn func(Scene) Scene) {
	e.history.Update(fn)
	e.settle(op)
}

// settle drops stale selection ids and runs debug checks after a scene
// change.
func (e *Editor) settle(op string) {
	s := e.history.Present()
	if e.debug {
		debugCheckScene(s, op)
		debugCheckSceneSize(s)
	}
	e.sel.prune(s)
}

// --- Selection ---

// Select replaces the selection with the given ids, ignoring unknown ones,
// and clears the lasso and brush.
func (e *Editor) Select(ids ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.history.Present()
	e.sel.IDs = nil
	for _, id := range ids {
		if s.Index(id) >= 0 && !e.sel.Has(id) {
			e.sel.IDs = append(e.sel.IDs, id)
		}
	}
	e.sel.clearRegion()
}

// ClearTransient drops the selection, lasso, brush strokes and marquee.
func (e *Editor) ClearTransient() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearTransient()
}

func (e *Editor) clearTransient() {
	e.sel = Selection{}
}

// --- Scene edits ---

// AddNode appends n on top of the scene as one undoable edit and selects it.
// A missing id is generated; a zero opacity becomes 1.
func (e *Editor) AddNode(n Node) (Node, error) {
	if n.ID == "" {
		n.ID = e.newID(PrefixNode)
	}
	if n.Opacity == 0 {
		n.Opacity = 1
	}
	if err := n.Validate(); err != nil {
		return Node{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.history.Present().Index(n.ID) >= 0 {
		return Node{}, fmt.Errorf("easel: node %s already exists", n.ID)
	}
	e.commit("add", func(s Scene) Scene { return s.Add(n) })
	e.sel.selectOnly(n.ID)
	e.sel.clearRegion()
	return n, nil
}

// ImportBitmap stores encoded image bytes and places them as a new node with
// its top-left corner at the world point at. The node is DefaultNodeWidth
// wide with the bitmap's aspect ratio. Decode errors leave the scene and
// history untouched.
func (e *Editor) ImportBitmap(ctx context.Context, data []byte, at Point) (Node, error) {
	ref := e.store.Put(data)
	img, err := e.store.Image(ctx, ref)
	if err != nil {
		e.store.Forget(ref)
		return Node{}, err
	}
	return e.AddNode(importedNode(img, ref, at, e.cfg.DefaultNodeWidth))
}

// ImportImage is ImportBitmap for an already decoded image.
func (e *Editor) ImportImage(img image.Image, at Point) (Node, error) {
	ref, err := e.store.PutImage(img)
	if err != nil {
		return Node{}, err
	}
	return e.AddNode(importedNode(img, ref, at, e.cfg.DefaultNodeWidth))
}

func importedNode(img image.Image, ref BitmapRef, at Point, width float64) Node {
	b := img.Bounds()
	n := Node{Bitmap: ref, X: at.X, Y: at.Y, Width: width, Height: width, Opacity: 1, Name: "Image"}
	return ResizeToAspect(n, b.Dx(), b.Dy())
}

// DeleteSelection removes every selected node. It reports whether anything
// was deleted.
func (e *Editor) DeleteSelection() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteSelection()
}

func (e *Editor) deleteSelection() bool {
	if len(e.sel.IDs) == 0 || e.action != ActionIdle {
		return false
	}
	ids := slices.Clone(e.sel.IDs)
	e.commit("delete", func(s Scene) Scene { return s.Delete(ids...) })
	e.sel.clearRegion()
	return true
}

// DuplicateSelection copies every selected node next to its source and
// selects the copies. It returns the new ids.
func (e *Editor) DuplicateSelection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duplicateSelection()
}

func (e *Editor) duplicateSelection() []string {
	if len(e.sel.IDs) == 0 || e.action != ActionIdle {
		return nil
	}
	ids := slices.Clone(e.sel.IDs)
	var newIDs []string
	e.commit("duplicate", func(s Scene) Scene {
		out, created := s.Duplicate(ids, e.cfg.DuplicateGap, e.newID)
		newIDs = created
		return out
	})
	e.sel.IDs = slices.Clone(newIDs)
	e.sel.clearRegion()
	return newIDs
}

// edit commits fn against one node when the node exists and fn changes it.
func (e *Editor) edit(op, id string, fn func(*Node)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.history.Present()
	if s.Index(id) < 0 {
		return false
	}
	next := s.Patch(id, fn)
	if next.Equal(s) {
		return false
	}
	e.commit(op, func(Scene) Scene { return next })
	return true
}

// Rename sets a node's display name.
func (e *Editor) Rename(id, name string) bool {
	return e.edit("rename", id, func(n *Node) { n.Name = name })
}

// SetOpacity sets a node's opacity, clamped to [0, 1].
func (e *Editor) SetOpacity(id string, opacity float64) bool {
	return e.edit("opacity", id, func(n *Node) { n.Opacity = clamp01(opacity) })
}

// SetRotation sets a node's rotation in degrees, normalized to [0, 360).
func (e *Editor) SetRotation(id string, deg float64) bool {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return e.edit("rotate", id, func(n *Node) { n.Rotation = deg })
}

// BringToFront moves a node to the top of the z-order.
func (e *Editor) BringToFront(id string) bool {
	return e.reorder("front", id, Scene.BringToFront)
}

// SendToBack moves a node to the bottom of the z-order.
func (e *Editor) SendToBack(id string) bool {
	return e.reorder("back", id, Scene.SendToBack)
}

func (e *Editor) reorder(op, id string, fn func(Scene, string) Scene) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.history.Present()
	next := fn(s, id)
	if next.Equal(s) {
		return false
	}
	e.commit(op, func(Scene) Scene { return next })
	return true
}
