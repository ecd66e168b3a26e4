package easel

// --- Keys ---

// Key identifies a keyboard key the editor responds to.
type Key uint8

const (
	KeyUnknown   Key = iota
	KeyV             // select tool
	KeyH             // pan tool
	KeyL             // lasso tool
	KeyB             // brush tool
	KeyD             // duplicate (with command modifier)
	KeyZ             // undo, redo with shift (with command modifier)
	KeyY             // redo (with command modifier)
	KeyDelete        // delete selection
	KeyBackspace     // delete selection
	KeyEscape        // clear transient selection
	KeySpace         // hold to pan
)

var toolKeys = map[Key]ToolMode{
	KeyV: ToolSelect,
	KeyH: ToolPan,
	KeyL: ToolLasso,
	KeyB: ToolBrush,
}

// --- Pointer gestures ---

// PointerDown starts a gesture at screen point p according to the active
// tool.
func (e *Editor) PointerDown(p Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.action != ActionIdle {
		return
	}
	world := e.view.ScreenToWorld(p)
	scene := e.history.Present()
	e.last = p
	e.gesture = scene
	e.flight = nil

	switch e.tool {
	case ToolPan:
		e.action = ActionPanning

	case ToolSelect:
		if h := e.handleUnder(p); h != HandleNone {
			e.action = ActionResizing
			e.handle = h
			return
		}
		if id, ok := scene.HitTest(world); ok {
			if !e.sel.Has(id) {
				e.sel.selectOnly(id)
			}
			e.sel.clearRegion()
			e.action = ActionDragging
			return
		}
		e.sel.IDs = nil
		e.sel.clearRegion()
		e.sel.Marquee = &Marquee{Start: world, End: world}
		e.action = ActionMarquee

	case ToolLasso:
		e.autoSelect(scene, world)
		e.sel.Lasso = []Point{world}
		e.sel.Strokes = nil
		e.action = ActionLassoing

	case ToolBrush:
		e.autoSelect(scene, world)
		e.sel.Strokes = append(e.sel.Strokes, []Point{world})
		e.sel.Lasso = nil
		e.action = ActionBrushing
	}
}

// autoSelect selects the node under world when it is not already part of the
// selection.
func (e *Editor) autoSelect(scene Scene, world Point) {
	if id, ok := scene.HitTest(world); ok && !e.sel.Has(id) {
		e.sel.selectOnly(id)
	}
}

// PointerMove continues the active gesture at screen point p. Hover moves
// only update the remembered pointer position.
func (e *Editor) PointerMove(p Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dx, dy := p.X-e.last.X, p.Y-e.last.Y
	if dx == 0 && dy == 0 {
		return
	}
	e.last = p
	world := e.view.ScreenToWorld(p)

	switch e.action {
	case ActionPanning:
		e.view = e.view.Pan(dx, dy)

	case ActionDragging:
		ids := e.sel.IDs
		zoom := e.view.Zoom
		e.update("drag", func(s Scene) Scene {
			for _, id := range ids {
				s = s.Patch(id, func(n *Node) { *n = Drag(*n, dx, dy, zoom) })
			}
			return s
		})

	case ActionResizing:
		id, ok := e.sel.Primary()
		if !ok {
			return
		}
		h, zoom, floor := e.handle, e.view.Zoom, e.cfg.MinResize
		e.update("resize", func(s Scene) Scene {
			return s.Patch(id, func(n *Node) { *n = Resize(*n, h, dx, dy, zoom, floor) })
		})

	case ActionLassoing:
		e.sel.Lasso = append(e.sel.Lasso, world)

	case ActionBrushing:
		if last := len(e.sel.Strokes) - 1; last >= 0 {
			e.sel.Strokes[last] = append(e.sel.Strokes[last], world)
		}

	case ActionMarquee:
		if e.sel.Marquee != nil {
			e.sel.Marquee.End = world
		}
	}
}

// PointerUp ends the active gesture. A drag or resize that changed the scene
// becomes one undo step; a marquee resolves to the nodes it touches.
func (e *Editor) PointerUp(p Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.action {
	case ActionDragging, ActionResizing:
		if !e.history.Present().Equal(e.gesture) {
			e.history.PushHistory(e.gesture)
		}
	case ActionMarquee:
		if m := e.sel.Marquee; m != nil {
			e.sel.IDs = e.history.Present().MarqueeSelect(m.Start, m.End)
		}
	}
	e.action = ActionIdle
	e.handle = HandleNone
	e.sel.Marquee = nil
	e.gesture = nil
	e.last = p
}

// Wheel handles a scroll at screen point p. With ctrl or meta held it zooms
// about p; otherwise it pans.
func (e *Editor) Wheel(p Point, dx, dy float64, mods KeyModifiers) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flight = nil
	if mods.command() {
		e.view = e.view.ZoomAt(p, dy, e.cfg.ZoomSpeed)
		return
	}
	e.view = e.view.Pan(-dx, -dy)
}

// handleUnder returns the resize handle of the single selected node under
// screen point p.
func (e *Editor) handleUnder(p Point) Handle {
	id, ok := e.sel.Single()
	if !ok {
		return HandleNone
	}
	n, ok := e.history.Present().Find(id)
	if !ok {
		return HandleNone
	}
	return HandleAt(e.view.WorldRectToScreen(n.Bounds()), p)
}

// --- Keyboard ---

// KeyDown applies a shortcut. Every shortcut is ignored while focus is in a
// text input. It reports whether the key was consumed.
func (e *Editor) KeyDown(k Key, mods KeyModifiers, inText bool) bool {
	if inText {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if mods.command() {
		switch k {
		case KeyD:
			return e.duplicateSelection() != nil
		case KeyZ:
			if mods&ModShift != 0 {
				return e.redo()
			}
			return e.undo()
		case KeyY:
			return e.redo()
		}
		return false
	}

	switch k {
	case KeyDelete, KeyBackspace:
		return e.deleteSelection()
	case KeyEscape:
		e.clearTransient()
		return true
	case KeySpace:
		if !e.spacePan {
			e.spacePan = true
			e.prevTool = e.tool
			e.tool = ToolPan
		}
		return true
	}
	if m, ok := toolKeys[k]; ok && e.action == ActionIdle {
		e.switchTool(m)
		return true
	}
	return false
}

// KeyUp ends a held-space pan, restoring the tool that was active before it.
func (e *Editor) KeyUp(k Key) {
	if k != KeySpace {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.spacePan {
		return
	}
	e.spacePan = false
	e.tool = e.prevTool
}

// --- Cursor ---

// Cursor names the CSS-style cursor for the pointer at screen point p.
func (e *Editor) Cursor(p Point) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.tool {
	case ToolPan:
		if e.action == ActionPanning {
			return "grabbing"
		}
		return "grab"
	case ToolLasso, ToolBrush:
		return "crosshair"
	}
	switch e.action {
	case ActionResizing:
		return e.handle.Cursor()
	case ActionDragging:
		return "move"
	}
	if h := e.handleUnder(p); h != HandleNone {
		return h.Cursor()
	}
	if _, ok := e.history.Present().HitTest(e.view.ScreenToWorld(p)); ok {
		return "move"
	}
	return "default"
}
