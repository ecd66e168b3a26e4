package easel

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Zoom limits applied by every viewport operation.
const (
	MinZoom = 0.05
	MaxZoom = 20.0
)

// DefaultZoomSpeed is the wheel sensitivity used by ZoomAt.
const DefaultZoomSpeed = 0.001

// Viewport maps world space onto the screen: a screen-space pan offset plus a
// uniform zoom. screen = world*Zoom + (X, Y).
type Viewport struct {
	X, Y float64
	Zoom float64
}

// NewViewport returns an identity viewport.
func NewViewport() Viewport {
	return Viewport{Zoom: 1}
}

// ScreenToWorld converts a screen-space point to world space.
func (v Viewport) ScreenToWorld(p Point) Point {
	return Point{(p.X - v.X) / v.Zoom, (p.Y - v.Y) / v.Zoom}
}

// WorldToScreen converts a world-space point to screen space.
func (v Viewport) WorldToScreen(p Point) Point {
	return Point{p.X*v.Zoom + v.X, p.Y*v.Zoom + v.Y}
}

// WorldRectToScreen converts a world-space rectangle to screen space.
func (v Viewport) WorldRectToScreen(r Rect) Rect {
	tl := v.WorldToScreen(Point{r.X, r.Y})
	return Rect{X: tl.X, Y: tl.Y, Width: r.Width * v.Zoom, Height: r.Height * v.Zoom}
}

// VisibleRect returns the world-space rectangle covered by a screen of the
// given size.
func (v Viewport) VisibleRect(screenW, screenH float64) Rect {
	tl := v.ScreenToWorld(Point{0, 0})
	return Rect{X: tl.X, Y: tl.Y, Width: screenW / v.Zoom, Height: screenH / v.Zoom}
}

// ZoomAt applies a wheel delta with the given sensitivity and keeps the
// world point under anchor (a screen point) fixed.
func (v Viewport) ZoomAt(anchor Point, deltaY, speed float64) Viewport {
	newZoom := clampZoom(v.Zoom * math.Exp(-deltaY*speed))
	return v.zoomTo(anchor, newZoom)
}

// Pan translates the viewport by a screen-space offset. No clamping.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.X += dx
	v.Y += dy
	return v
}

// Fit returns a viewport that frames r inside a screen of the given size with
// margin screen pixels on every side.
func (v Viewport) Fit(r Rect, screenW, screenH, margin float64) Viewport {
	if r.Width <= 0 || r.Height <= 0 {
		return v
	}
	availW := math.Max(1, screenW-2*margin)
	availH := math.Max(1, screenH-2*margin)
	z := clampZoom(math.Min(availW/r.Width, availH/r.Height))
	c := r.Center()
	return Viewport{
		X:    screenW/2 - c.X*z,
		Y:    screenH/2 - c.Y*z,
		Zoom: z,
	}
}

func (v Viewport) zoomTo(anchor Point, newZoom float64) Viewport {
	world := v.ScreenToWorld(anchor)
	return Viewport{
		X:    anchor.X - world.X*newZoom,
		Y:    anchor.Y - world.Y*newZoom,
		Zoom: newZoom,
	}
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return clamp(z, MinZoom, MaxZoom)
}

// viewportTween animates a viewport toward a target, driven once per frame.
type viewportTween struct {
	x, y, zoom *gween.Tween
	done       bool
}

func newViewportTween(from, to Viewport, duration float32) *viewportTween {
	return &viewportTween{
		x:    gween.New(float32(from.X), float32(to.X), duration, ease.OutCubic),
		y:    gween.New(float32(from.Y), float32(to.Y), duration, ease.OutCubic),
		zoom: gween.New(float32(from.Zoom), float32(to.Zoom), duration, ease.OutCubic),
	}
}

// update advances the tween by dt seconds and returns the interpolated viewport.
func (t *viewportTween) update(dt float32) Viewport {
	x, dx := t.x.Update(dt)
	y, dy := t.y.Update(dt)
	z, dz := t.zoom.Update(dt)
	t.done = dx && dy && dz
	return Viewport{X: float64(x), Y: float64(y), Zoom: clampZoom(float64(z))}
}
