package easel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultMinSize is the smallest width or height a resize can produce.
const DefaultMinSize = 10.0

// Handle identifies a resize handle on the selection frame.
type Handle uint8

const (
	HandleNone Handle = iota
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
	HandleNW
)

var handleNames = [...]string{"", "n", "ne", "e", "se", "s", "sw", "w", "nw"}

func (h Handle) String() string {
	if int(h) < len(handleNames) {
		return handleNames[h]
	}
	return "?"
}

func (h Handle) north() bool { return h == HandleN || h == HandleNE || h == HandleNW }
func (h Handle) south() bool { return h == HandleS || h == HandleSE || h == HandleSW }
func (h Handle) east() bool  { return h == HandleE || h == HandleNE || h == HandleSE }
func (h Handle) west() bool  { return h == HandleW || h == HandleNW || h == HandleSW }

// Cursor returns the CSS-style cursor name for the handle.
func (h Handle) Cursor() string {
	switch h {
	case HandleNW, HandleSE:
		return "nwse-resize"
	case HandleNE, HandleSW:
		return "nesw-resize"
	case HandleN, HandleS:
		return "ns-resize"
	case HandleE, HandleW:
		return "ew-resize"
	}
	return "default"
}

// Screen-space handle sizes.
const (
	cornerHandleSize = 10.0
	edgeHandleSize   = 8.0
)

// HandleAt returns the handle of frame (a screen-space rectangle) under the
// screen point p. Corners take precedence over edges.
func HandleAt(frame Rect, p Point) Handle {
	corners := [...]struct {
		h Handle
		c Point
	}{
		{HandleNW, Point{frame.X, frame.Y}},
		{HandleNE, Point{frame.X + frame.Width, frame.Y}},
		{HandleSE, Point{frame.X + frame.Width, frame.Y + frame.Height}},
		{HandleSW, Point{frame.X, frame.Y + frame.Height}},
	}
	for _, c := range corners {
		if centeredSquare(c.c, cornerHandleSize).Contains(p) {
			return c.h
		}
	}
	for _, e := range edgeStrips(frame) {
		if e.r.Contains(p) {
			return e.h
		}
	}
	return HandleNone
}

type handleStrip struct {
	h Handle
	r Rect
}

// edgeStrips returns the hit areas for the four edge handles, each a thin
// strip straddling its edge.
func edgeStrips(frame Rect) [4]handleStrip {
	half := edgeHandleSize / 2
	return [4]handleStrip{
		{HandleN, Rect{frame.X, frame.Y - half, frame.Width, edgeHandleSize}},
		{HandleS, Rect{frame.X, frame.Y + frame.Height - half, frame.Width, edgeHandleSize}},
		{HandleE, Rect{frame.X + frame.Width - half, frame.Y, edgeHandleSize, frame.Height}},
		{HandleW, Rect{frame.X - half, frame.Y, edgeHandleSize, frame.Height}},
	}
}

func centeredSquare(c Point, size float64) Rect {
	return Rect{c.X - size/2, c.Y - size/2, size, size}
}

// Drag moves n by a screen-space delta.
func Drag(n Node, dx, dy, zoom float64) Node {
	n.X += dx / zoom
	n.Y += dy / zoom
	return n
}

// Resize applies a screen-space delta to the given handle. East and south
// handles grow their dimension; west and north handles move the near edge
// while the opposite edge stays put. Neither dimension goes below minSize,
// and an edge that cannot change does not move.
func Resize(n Node, h Handle, dx, dy, zoom, minSize float64) Node {
	dw := dx / zoom
	dh := dy / zoom
	next := n
	if h.east() {
		next.Width = math.Max(minSize, n.Width+dw)
	}
	if h.west() {
		if w := math.Max(minSize, n.Width-dw); w != n.Width {
			next.X = n.X + (n.Width - w)
			next.Width = w
		}
	}
	if h.south() {
		next.Height = math.Max(minSize, n.Height+dh)
	}
	if h.north() {
		if ht := math.Max(minSize, n.Height-dh); ht != n.Height {
			next.Y = n.Y + (n.Height - ht)
			next.Height = ht
		}
	}
	return next
}

// CropRemap returns n re-framed to show only the crop rectangle of its
// bitmap (in bitmap pixels, bitmap size bw x bh) without the visible content
// moving on the canvas. The offset between old and new crop centers is
// scaled to node units and rotated by the node's rotation to find the new
// center.
func CropRemap(n Node, bw, bh int, crop Rect) Node {
	sx := n.Width / float64(bw)
	sy := n.Height / float64(bh)

	oldCenter := r2.Vec{X: float64(bw) / 2, Y: float64(bh) / 2}
	newCenter := r2.Vec{X: crop.X + crop.Width/2, Y: crop.Y + crop.Height/2}
	off := r2.Sub(newCenter, oldCenter)
	local := r2.Vec{X: off.X * sx, Y: off.Y * sy}
	world := r2.Rotate(local, n.Rotation*math.Pi/180, r2.Vec{})

	c := r2.Add(r2.Vec{X: n.Center().X, Y: n.Center().Y}, world)
	w := crop.Width * sx
	h := crop.Height * sy
	n.X = c.X - w/2
	n.Y = c.Y - h/2
	n.Width = w
	n.Height = h
	return n
}

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// nodeTransform returns the affine matrix that draws unit content laid out
// in the node's local box: translate to center, rotate, translate back.
// Layout: [a, b, c, d, tx, ty].
func nodeTransform(n Node) [6]float64 {
	if n.Rotation == 0 {
		return [6]float64{1, 0, 0, 1, n.X, n.Y}
	}
	sin, cos := math.Sincos(n.Rotation * math.Pi / 180)
	hw, hh := n.Width/2, n.Height/2
	// Translate(-hw,-hh) -> Rotate -> Translate(X+hw, Y+hh)
	tx := -hw*cos + hh*sin + n.X + hw
	ty := -hw*sin - hh*cos + n.Y + hh
	return [6]float64{cos, sin, -sin, cos, tx, ty}
}

// multiplyAffine multiplies two 2D affine matrices: result = parent * child.
//
//	Matrix layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine computes the inverse of a 2D affine matrix.
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det == 0 {
		return identityTransform
	}
	inv := 1.0 / det
	return [6]float64{
		m[3] * inv,
		-m[1] * inv,
		-m[2] * inv,
		m[0] * inv,
		(m[2]*m[5] - m[3]*m[4]) * inv,
		(m[1]*m[4] - m[0]*m[5]) * inv,
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, p Point) Point {
	return Point{m[0]*p.X + m[2]*p.Y + m[4], m[1]*p.X + m[3]*p.Y + m[5]}
}

// viewTransform returns the affine matrix for a viewport.
func viewTransform(v Viewport) [6]float64 {
	return [6]float64{v.Zoom, 0, 0, v.Zoom, v.X, v.Y}
}

// Corners returns the node's four corners in world space after rotation,
// clockwise from the top-left.
func (n Node) Corners() [4]Point {
	m := nodeTransform(n)
	return [4]Point{
		transformPoint(m, Point{0, 0}),
		transformPoint(m, Point{n.Width, 0}),
		transformPoint(m, Point{n.Width, n.Height}),
		transformPoint(m, Point{0, n.Height}),
	}
}
