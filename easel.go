package easel

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Point is a 2D coordinate. Unless stated otherwise it is in world space.
type Point struct {
	X, Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by s on both axes.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// RectFromPoints builds the rectangle spanned by two opposite corners given
// in any order.
func RectFromPoints(a, b Point) Rect {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// BoundsOf returns the bounding rectangle of all points in all polylines.
// ok is false when there are no points.
func BoundsOf(polylines ...[]Point) (r Rect, ok bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, line := range polylines {
		for _, p := range line {
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
			ok = true
		}
	}
	if !ok {
		return Rect{}, false
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Contains reports whether p lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Union returns the smallest rectangle containing both r and other.
func (r Rect) Union(other Rect) Rect {
	minX, minY := math.Min(r.X, other.X), math.Min(r.Y, other.Y)
	maxX := math.Max(r.X+r.Width, other.X+other.Width)
	maxY := math.Max(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Inset grows the rectangle by d on every side. Negative d shrinks it.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{r.X + r.Width/2, r.Y + r.Height/2}
}

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs at render submission time.
type Color struct {
	R, G, B, A float64
}

var (
	// ColorSelection is the accent used for selection outlines, handles,
	// the lasso, the marquee and brush strokes on screen.
	ColorSelection = Color{36.0 / 255, 96.0 / 255, 183.0 / 255, 1}
	// ColorHighlight marks the user's region in hint images sent for editing.
	ColorHighlight = Color{1, 0, 0, 1}
	// ColorGrid is the base color of the background grid.
	ColorGrid = Color{0.5, 0.5, 0.5, 1}
)

// WithAlpha returns c with its alpha replaced.
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

// toRGBA converts to a premultiplied color.RGBA.
func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R*c.A) * 255),
		G: uint8(clamp01(c.G*c.A) * 255),
		B: uint8(clamp01(c.B*c.A) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// BlendMode selects a compositing operation. Each maps to a specific ebiten.Blend value.
type BlendMode uint8

const (
	BlendNormal     BlendMode = iota // source-over (standard alpha blending)
	BlendMask                        // destination-in: keep destination where source has alpha
	BlendSourceIn                    // source-in: paint source only where destination has alpha
	BlendSourceAtop                  // source-atop: paint source over destination, keep destination alpha
)

// EbitenBlend returns the ebiten.Blend value corresponding to this BlendMode.
func (b BlendMode) EbitenBlend() ebiten.Blend {
	switch b {
	case BlendMask:
		return ebiten.BlendDestinationIn
	case BlendSourceIn:
		return ebiten.BlendSourceIn
	case BlendSourceAtop:
		return ebiten.BlendSourceAtop
	default:
		return ebiten.BlendSourceOver
	}
}

// ToolMode is the pointer tool the user has active.
type ToolMode uint8

const (
	ToolSelect ToolMode = iota // pick, move, resize and marquee
	ToolLasso                  // draw a freehand polygon over a node
	ToolBrush                  // paint strokes over a node
	ToolPan                    // drag the viewport
)

func (m ToolMode) String() string {
	switch m {
	case ToolSelect:
		return "select"
	case ToolLasso:
		return "lasso"
	case ToolBrush:
		return "brush"
	case ToolPan:
		return "pan"
	}
	return "unknown"
}

// Action is what the current pointer gesture is doing.
type Action uint8

const (
	ActionIdle Action = iota
	ActionPanning
	ActionDragging
	ActionResizing
	ActionLassoing
	ActionBrushing
	ActionMarquee
)

func (a Action) String() string {
	switch a {
	case ActionIdle:
		return "idle"
	case ActionPanning:
		return "panning"
	case ActionDragging:
		return "dragging"
	case ActionResizing:
		return "resizing"
	case ActionLassoing:
		return "lassoing"
	case ActionBrushing:
		return "brushing"
	case ActionMarquee:
		return "marquee"
	}
	return "unknown"
}

// KeyModifiers is a bitmask of keyboard modifier keys.
// Values can be combined with bitwise OR (e.g. ModShift | ModCtrl).
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota // Shift key
	ModCtrl                           // Control key
	ModAlt                            // Alt / Option key
	ModMeta                           // Meta / Command / Windows key
)

// command reports whether the platform command modifier (ctrl or meta) is held.
func (m KeyModifiers) command() bool {
	return m&(ModCtrl|ModMeta) != 0
}
