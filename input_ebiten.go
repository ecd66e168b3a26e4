package easel

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// wheelNotch converts ebiten's wheel offsets (about one unit per notch,
// positive up) into pixel-style deltas (positive down).
const wheelNotch = 100

var ebitenKeys = map[ebiten.Key]Key{
	ebiten.KeyV:         KeyV,
	ebiten.KeyH:         KeyH,
	ebiten.KeyL:         KeyL,
	ebiten.KeyB:         KeyB,
	ebiten.KeyD:         KeyD,
	ebiten.KeyZ:         KeyZ,
	ebiten.KeyY:         KeyY,
	ebiten.KeyDelete:    KeyDelete,
	ebiten.KeyBackspace: KeyBackspace,
	ebiten.KeyEscape:    KeyEscape,
	ebiten.KeySpace:     KeySpace,
}

// InputPoller reads ebiten's mouse and keyboard state once per Update and
// feeds it to an Editor.
type InputPoller struct {
	// InText reports whether keyboard focus is in a text field. Shortcuts
	// are suppressed while it returns true.
	InText func() bool

	editor *Editor
	keys   []ebiten.Key
	down   bool
	last   Point
}

// NewInputPoller returns a poller driving e.
func NewInputPoller(e *Editor) *InputPoller {
	return &InputPoller{editor: e}
}

// Poll forwards this tick's input. Call it from the game's Update.
func (p *InputPoller) Poll() {
	mods := readModifiers()
	mx, my := ebiten.CursorPosition()
	pos := Point{float64(mx), float64(my)}

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		p.down = true
		p.editor.PointerDown(pos)
	case p.down && inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		p.down = false
		p.editor.PointerUp(pos)
	case pos != p.last:
		p.editor.PointerMove(pos)
	}
	p.last = pos

	if wx, wy := ebiten.Wheel(); wx != 0 || wy != 0 {
		p.editor.Wheel(pos, -wx*wheelNotch, -wy*wheelNotch, mods)
	}

	inText := p.InText != nil && p.InText()
	p.keys = inpututil.AppendJustPressedKeys(p.keys[:0])
	for _, k := range p.keys {
		if key, ok := ebitenKeys[k]; ok {
			p.editor.KeyDown(key, mods, inText)
		}
	}
	p.keys = inpututil.AppendJustReleasedKeys(p.keys[:0])
	for _, k := range p.keys {
		if key, ok := ebitenKeys[k]; ok {
			p.editor.KeyUp(key)
		}
	}
}

// Cursor maps the editor's cursor name for the pointer to ebiten's shapes.
func (p *InputPoller) Cursor() ebiten.CursorShapeType {
	return cursorShape(p.editor.Cursor(p.last))
}

func cursorShape(name string) ebiten.CursorShapeType {
	switch name {
	case "move", "grab", "grabbing":
		return ebiten.CursorShapeMove
	case "crosshair":
		return ebiten.CursorShapeCrosshair
	case "nwse-resize":
		return ebiten.CursorShapeNWSEResize
	case "nesw-resize":
		return ebiten.CursorShapeNESWResize
	case "ns-resize":
		return ebiten.CursorShapeNSResize
	case "ew-resize":
		return ebiten.CursorShapeEWResize
	}
	return ebiten.CursorShapeDefault
}

// readModifiers reads the current keyboard modifier state.
func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) || ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) || ebiten.IsKeyPressed(ebiten.KeyAltLeft) || ebiten.IsKeyPressed(ebiten.KeyAltRight) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) || ebiten.IsKeyPressed(ebiten.KeyMetaLeft) || ebiten.IsKeyPressed(ebiten.KeyMetaRight) {
		mods |= ModMeta
	}
	return mods
}
