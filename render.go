package easel

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Overlay styling, in screen pixels unless noted.
const (
	gridMaxAlpha     = 0.12
	outlineWidth     = 1.5
	lassoLineWidth   = 1.5
	lassoDash        = 4
	lassoFillAlpha   = 0.15
	marqueeFillAlpha = 0.1
	brushLayerAlpha  = 0.5
	handleDrawSize   = 8
	shimmerPeak      = 0.2
	shimmerRampSize  = 256
)

var (
	colorPlaceholder = Color{0.82, 0.82, 0.84, 1}
	colorGridLine    = Color{140.0 / 255, 140.0 / 255, 140.0 / 255, 1}
)

// Renderer draws an editor State onto an ebiten image. It owns GPU textures
// for decoded bitmaps and a pool of offscreen surfaces; neither is safe for
// concurrent use, so call Draw from the game loop only.
type Renderer struct {
	// ShowGrid toggles the background grid.
	ShowGrid bool
	// GridSize is the world-space grid spacing.
	GridSize float64
	// BrushWidth is the world-space brush stroke width.
	BrushWidth float64
	// ScreenshotDir is where queued screenshots are written.
	ScreenshotDir string

	store    *BitmapStore
	textures map[BitmapRef]*ebiten.Image
	pool     surfacePool
	white    *ebiten.Image
	ramp     *ebiten.Image

	screenshotQueue []string
}

// NewRenderer returns a renderer that resolves node bitmaps through store.
func NewRenderer(store *BitmapStore, cfg Config) *Renderer {
	return &Renderer{
		ShowGrid:      cfg.ShowGrid,
		GridSize:      cfg.GridSize,
		BrushWidth:    cfg.BrushWidth,
		ScreenshotDir: "screenshots",
		store:         store,
		textures:      make(map[BitmapRef]*ebiten.Image),
	}
}

// Draw renders st onto dst: grid, nodes in z-order with the processing
// shimmer and selection overlays, then the lasso, brush strokes and marquee.
func (r *Renderer) Draw(dst *ebiten.Image, st State) {
	dst.Clear()
	b := dst.Bounds()
	sw, sh := float64(b.Dx()), float64(b.Dy())
	v := st.Viewport

	if r.ShowGrid && r.GridSize > 0 {
		r.drawGrid(dst, v, sw, sh)
	}

	for _, n := range st.Nodes {
		r.drawNode(dst, n, v, n.ID == st.ProcessingID, st.ShimmerPhase)
	}
	r.drawSelection(dst, st)

	if len(st.Selection.Lasso) > 1 {
		r.drawLasso(dst, st.Selection.Lasso, v)
	}
	if len(st.Selection.Strokes) > 0 {
		r.drawStrokes(dst, st.Selection.Strokes, v)
	}
	if m := st.Selection.Marquee; m != nil {
		rect := v.WorldRectToScreen(m.Rect())
		x, y, w, h := float32(rect.X), float32(rect.Y), float32(rect.Width), float32(rect.Height)
		vector.DrawFilledRect(dst, x, y, w, h, ColorSelection.WithAlpha(marqueeFillAlpha).toRGBA(), false)
		vector.StrokeRect(dst, x, y, w, h, 1, ColorSelection.toRGBA(), false)
	}

	r.sweep(st.Nodes)
	r.flushScreenshots(dst)
}

// Dispose releases every GPU resource the renderer holds.
func (r *Renderer) Dispose() {
	for ref, tex := range r.textures {
		tex.Deallocate()
		delete(r.textures, ref)
	}
	r.pool.Drain()
}

// --- Grid ---

func (r *Renderer) drawGrid(dst *ebiten.Image, v Viewport, sw, sh float64) {
	clr := colorGridLine.WithAlpha(gridAlpha(v.Zoom)).toRGBA()
	xs, ys := gridLines(v, sw, sh, r.GridSize)
	for _, x := range xs {
		vector.StrokeLine(dst, float32(x), 0, float32(x), float32(sh), 1, clr, false)
	}
	for _, y := range ys {
		vector.StrokeLine(dst, 0, float32(y), float32(sw), float32(y), 1, clr, false)
	}
}

// gridAlpha fades the grid out as the view zooms out.
func gridAlpha(zoom float64) float64 {
	return math.Min(gridMaxAlpha, zoom*0.1)
}

// gridLines returns the screen positions of the vertical and horizontal grid
// lines covering a screen of size sw x sh.
func gridLines(v Viewport, sw, sh, size float64) (xs, ys []float64) {
	visible := v.VisibleRect(sw, sh)
	startX := math.Floor(visible.X/size) * size
	startY := math.Floor(visible.Y/size) * size
	endX := visible.X + visible.Width + size
	endY := visible.Y + visible.Height + size
	for x := startX; x < endX; x += size {
		xs = append(xs, x*v.Zoom+v.X)
	}
	for y := startY; y < endY; y += size {
		ys = append(ys, y*v.Zoom+v.Y)
	}
	return xs, ys
}

// --- Nodes ---

// texture returns the GPU texture for ref, uploading it on first use. Bitmaps
// that are not decoded yet are prefetched and reported missing.
func (r *Renderer) texture(ref BitmapRef) (*ebiten.Image, bool) {
	if ref == "" {
		return nil, false
	}
	if tex, ok := r.textures[ref]; ok {
		return tex, true
	}
	img, ok := r.store.Peek(ref)
	if !ok {
		r.store.Prefetch(context.Background(), ref)
		return nil, false
	}
	tex := ebiten.NewImageFromImage(img)
	r.textures[ref] = tex
	return tex, true
}

// sweep drops textures no node references anymore.
func (r *Renderer) sweep(nodes Scene) {
	if len(r.textures) <= len(nodes) {
		return
	}
	live := make(map[BitmapRef]bool, len(nodes))
	for _, n := range nodes {
		live[n.Bitmap] = true
	}
	for ref, tex := range r.textures {
		if !live[ref] {
			tex.Deallocate()
			delete(r.textures, ref)
		}
	}
}

// coverFit returns the part of a bw x bh bitmap that is visible when it
// covers a w x h box: scaled to fill, centered, overflow cropped.
func coverFit(w, h float64, bw, bh int) image.Rectangle {
	if bw <= 0 || bh <= 0 || w <= 0 || h <= 0 {
		return image.Rect(0, 0, max(bw, 0), max(bh, 0))
	}
	imgRatio := float64(bw) / float64(bh)
	nodeRatio := w / h
	if nodeRatio > imgRatio {
		visH := float64(bw) / nodeRatio
		y0 := int(math.Round((float64(bh) - visH) / 2))
		return image.Rect(0, y0, bw, max(y0+1, int(math.Round(float64(y0)+visH))))
	}
	visW := float64(bh) * nodeRatio
	x0 := int(math.Round((float64(bw) - visW) / 2))
	return image.Rect(x0, 0, max(x0+1, int(math.Round(float64(x0)+visW))), bh)
}

// nodeGeoM maps a src-sized image onto n's rotated box on screen.
func nodeGeoM(n Node, v Viewport, srcW, srcH int) ebiten.GeoM {
	var g ebiten.GeoM
	g.Scale(n.Width/float64(srcW), n.Height/float64(srcH))
	g.Translate(-n.Width/2, -n.Height/2)
	g.Rotate(n.Rotation * math.Pi / 180)
	g.Translate(n.X+n.Width/2, n.Y+n.Height/2)
	g.Scale(v.Zoom, v.Zoom)
	g.Translate(v.X, v.Y)
	return g
}

func (r *Renderer) drawNode(dst *ebiten.Image, n Node, v Viewport, processing bool, phase float64) {
	tex, ok := r.texture(n.Bitmap)
	if !ok {
		r.drawPlaceholder(dst, n, v, processing, phase)
		return
	}
	tb := tex.Bounds()
	src := tex.SubImage(coverFit(n.Width, n.Height, tb.Dx(), tb.Dy())).(*ebiten.Image)
	if !processing {
		sb := src.Bounds()
		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
		op.GeoM = nodeGeoM(n, v, sb.Dx(), sb.Dy())
		op.ColorScale.ScaleAlpha(float32(n.Opacity))
		dst.DrawImage(src, op)
		return
	}
	r.drawShimmering(dst, n, v, phase, func(surf *ebiten.Image, w, h float64) {
		sb := src.Bounds()
		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
		op.GeoM.Scale(w/float64(sb.Dx()), h/float64(sb.Dy()))
		surf.DrawImage(src, op)
	})
}

// drawPlaceholder draws a node whose bitmap is empty or still decoding as a
// flat box.
func (r *Renderer) drawPlaceholder(dst *ebiten.Image, n Node, v Viewport, processing bool, phase float64) {
	fill := func(surf *ebiten.Image, w, h float64) {
		vector.DrawFilledRect(surf, 0, 0, float32(w), float32(h), colorPlaceholder.toRGBA(), false)
	}
	if processing {
		r.drawShimmering(dst, n, v, phase, fill)
		return
	}
	c := colorPlaceholder
	op := &ebiten.DrawImageOptions{}
	op.GeoM = nodeGeoM(n, v, 1, 1)
	op.ColorScale.Scale(float32(c.R), float32(c.G), float32(c.B), 1)
	op.ColorScale.ScaleAlpha(float32(n.Opacity))
	dst.DrawImage(r.whitePixel(), op)
}

// drawShimmering paints the node's content unrotated onto an offscreen
// surface at screen resolution, sweeps the shimmer gradient over the pixels
// it covers, then places the surface on dst.
func (r *Renderer) drawShimmering(dst *ebiten.Image, n Node, v Viewport, phase float64, paint func(surf *ebiten.Image, w, h float64)) {
	w := math.Max(1, math.Ceil(n.Width*v.Zoom))
	h := math.Max(1, math.Ceil(n.Height*v.Zoom))
	surf := r.pool.Acquire(int(w), int(h))
	defer r.pool.Release(surf)

	paint(surf, w, h)

	start, end := shimmerBand(w, h, phase)
	d := end.Sub(start)
	length := math.Hypot(d.X, d.Y)
	if length > 0 {
		span := 2 * (w + h)
		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear, Blend: BlendSourceAtop.EbitenBlend()}
		op.GeoM.Scale(length/shimmerRampSize, span)
		op.GeoM.Translate(0, -span/2)
		op.GeoM.Rotate(math.Atan2(d.Y, d.X))
		op.GeoM.Translate(start.X, start.Y)
		surf.DrawImage(r.shimmerRamp(), op)
	}

	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	op.GeoM = nodeGeoM(n, v, int(w), int(h))
	op.ColorScale.ScaleAlpha(float32(n.Opacity))
	dst.DrawImage(surf.SubImage(image.Rect(0, 0, int(w), int(h))).(*ebiten.Image), op)
}

// shimmerBand returns the gradient axis for phase in [0, 1): it runs from
// (-w + 3w*phase, 0) to (3w*phase, h), so the band sweeps the box
// diagonally from off-left to off-right once per period.
func shimmerBand(w, h, phase float64) (start, end Point) {
	off := phase * w * 3
	return Point{-w + off, 0}, Point{off, h}
}

// shimmerAlpha is the gradient's opacity at t in [0, 1]: transparent at both
// ends, peaking at the middle.
func shimmerAlpha(t float64) float64 {
	t = clamp01(t)
	return shimmerPeak * (1 - math.Abs(2*t-1))
}

// shimmerRamp returns the 1-pixel-tall white gradient strip, building it on
// first use.
func (r *Renderer) shimmerRamp() *ebiten.Image {
	if r.ramp != nil {
		return r.ramp
	}
	pix := make([]byte, 4*shimmerRampSize)
	for i := range shimmerRampSize {
		a := byte(math.Round(shimmerAlpha(float64(i)/(shimmerRampSize-1)) * 255))
		// premultiplied white
		pix[4*i], pix[4*i+1], pix[4*i+2], pix[4*i+3] = a, a, a, a
	}
	r.ramp = ebiten.NewImage(shimmerRampSize, 1)
	r.ramp.WritePixels(pix)
	return r.ramp
}

// --- Selection overlay ---

func (r *Renderer) drawSelection(dst *ebiten.Image, st State) {
	ids := st.Selection.IDs
	if len(ids) == 0 {
		return
	}
	v := st.Viewport
	clr := ColorSelection.toRGBA()
	for _, id := range ids {
		if n, ok := st.Nodes.Find(id); ok {
			strokePolygon(dst, screenCorners(n, v), outlineWidth, clr)
		}
	}
	bounds, ok := st.Nodes.Bounds(ids...)
	if !ok {
		return
	}
	frame := v.WorldRectToScreen(bounds)
	if len(ids) > 1 {
		vector.StrokeRect(dst, float32(frame.X), float32(frame.Y), float32(frame.Width), float32(frame.Height), 1, clr, false)
		return
	}
	for _, hr := range handleRects(frame) {
		x, y, w, h := float32(hr.X), float32(hr.Y), float32(hr.Width), float32(hr.Height)
		vector.DrawFilledRect(dst, x, y, w, h, color.White, false)
		vector.StrokeRect(dst, x, y, w, h, 1, clr, false)
	}
}

// handleRects lays out the eight resize handles around a screen-space frame,
// clockwise from the top-left corner.
func handleRects(frame Rect) [8]Rect {
	x0, y0 := frame.X, frame.Y
	x1, y1 := frame.X+frame.Width, frame.Y+frame.Height
	mx, my := x0+frame.Width/2, y0+frame.Height/2
	centers := [8]Point{
		{x0, y0}, {mx, y0}, {x1, y0}, {x1, my},
		{x1, y1}, {mx, y1}, {x0, y1}, {x0, my},
	}
	var out [8]Rect
	for i, c := range centers {
		out[i] = centeredSquare(c, handleDrawSize)
	}
	return out
}

func screenCorners(n Node, v Viewport) []Point {
	m := multiplyAffine(viewTransform(v), nodeTransform(n))
	return []Point{
		transformPoint(m, Point{0, 0}),
		transformPoint(m, Point{n.Width, 0}),
		transformPoint(m, Point{n.Width, n.Height}),
		transformPoint(m, Point{0, n.Height}),
	}
}

func strokePolygon(dst *ebiten.Image, pts []Point, width float32, clr color.Color) {
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		vector.StrokeLine(dst, float32(p.X), float32(p.Y), float32(q.X), float32(q.Y), width, clr, true)
	}
}

// --- Lasso, brush ---

func (r *Renderer) drawLasso(dst *ebiten.Image, lasso []Point, v Viewport) {
	pts := make([]Point, len(lasso))
	for i, p := range lasso {
		pts[i] = v.WorldToScreen(p)
	}
	if len(pts) >= 3 {
		r.fillPolygon(dst, pts, ColorSelection.WithAlpha(lassoFillAlpha))
	}
	clr := ColorSelection.toRGBA()
	closed := append(pts, pts[0])
	for _, seg := range dashSegments(closed, lassoDash, lassoDash) {
		vector.StrokeLine(dst, float32(seg[0].X), float32(seg[0].Y), float32(seg[1].X), float32(seg[1].Y), lassoLineWidth, clr, true)
	}
}

// fillPolygon fills a closed screen-space polygon with a nonzero winding
// rule.
func (r *Renderer) fillPolygon(dst *ebiten.Image, pts []Point, c Color) {
	var path vector.Path
	path.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		path.LineTo(float32(p.X), float32(p.Y))
	}
	path.Close()
	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	for i := range vs {
		vs[i].SrcX, vs[i].SrcY = 1, 1
		vs[i].ColorR = float32(c.R * c.A)
		vs[i].ColorG = float32(c.G * c.A)
		vs[i].ColorB = float32(c.B * c.A)
		vs[i].ColorA = float32(c.A)
	}
	dst.DrawTriangles(vs, is, r.whitePixel(), &ebiten.DrawTrianglesOptions{
		FillRule:  ebiten.FillRuleNonZero,
		AntiAlias: true,
	})
}

func (r *Renderer) whitePixel() *ebiten.Image {
	if r.white == nil {
		r.white = ebiten.NewImage(3, 3)
		r.white.Fill(color.White)
	}
	return r.white.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
}

// dashSegments cuts a polyline into on/off dashes measured along its length
// and returns the visible pieces. The pattern carries across vertices.
func dashSegments(pts []Point, on, off float64) [][2]Point {
	if on <= 0 || len(pts) < 2 {
		return nil
	}
	var out [][2]Point
	drawing := true
	left := on
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		segLen := math.Hypot(b.X-a.X, b.Y-a.Y)
		pos := 0.0
		for pos < segLen {
			step := math.Min(left, segLen-pos)
			if drawing {
				from := lerpPoint(a, b, pos/segLen)
				to := lerpPoint(a, b, (pos+step)/segLen)
				out = append(out, [2]Point{from, to})
			}
			pos += step
			left -= step
			if left <= 0 {
				drawing = !drawing
				if drawing {
					left = on
				} else {
					left = off
				}
			}
		}
	}
	return out
}

func lerpPoint(a, b Point, t float64) Point {
	return Point{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

// drawStrokes paints every brush stroke opaque onto one layer, then
// composites the layer once so overlapping strokes keep a uniform opacity.
func (r *Renderer) drawStrokes(dst *ebiten.Image, strokes [][]Point, v Viewport) {
	b := dst.Bounds()
	layer := r.pool.Acquire(b.Dx(), b.Dy())
	defer r.pool.Release(layer)

	clr := ColorSelection.toRGBA()
	width := float32(r.BrushWidth * v.Zoom)
	for _, stroke := range strokes {
		for i, p := range stroke {
			sp := v.WorldToScreen(p)
			vector.DrawFilledCircle(layer, float32(sp.X), float32(sp.Y), width/2, clr, true)
			if i == 0 {
				continue
			}
			prev := v.WorldToScreen(stroke[i-1])
			vector.StrokeLine(layer, float32(prev.X), float32(prev.Y), float32(sp.X), float32(sp.Y), width, clr, true)
		}
	}

	op := &ebiten.DrawImageOptions{}
	op.ColorScale.ScaleAlpha(brushLayerAlpha)
	dst.DrawImage(layer, op)
}
