package easel

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// HintStyle controls how a selection region is painted into a hint image.
type HintStyle struct {
	Color Color
	// Alpha is applied once to the whole painted region, so overlapping
	// strokes never stack.
	Alpha float64
	// Width is the brush stroke width in node display units.
	Width float64
}

// Hint styles for the region-based tools.
var (
	DetachHintStyle  = HintStyle{Color: ColorHighlight, Alpha: 0.45, Width: 30}
	EraseHintStyle   = HintStyle{Color: ColorHighlight, Alpha: 0.5, Width: 30}
	CroppedHintStyle = HintStyle{Color: ColorHighlight, Alpha: 0.6, Width: 30}
)

// regionTransform maps region coordinates to hint pixels: p*scale - offset.
type regionTransform struct {
	sx, sy float64
	ox, oy float64
}

func (t regionTransform) apply(p Point) (float64, float64) {
	return p.X*t.sx - t.ox, p.Y*t.sy - t.oy
}

// paintRegion fills the lasso and strokes the brush lines on dc in solid
// color. Single-point strokes become round dabs.
func paintRegion(dc *gg.Context, r Region, t regionTransform, c Color, width float64) {
	dc.SetRGB(c.R, c.G, c.B)
	if len(r.Lasso) >= 3 {
		dc.NewSubPath()
		for i, p := range r.Lasso {
			x, y := t.apply(p)
			if i == 0 {
				dc.MoveTo(x, y)
				continue
			}
			dc.LineTo(x, y)
		}
		dc.ClosePath()
		dc.Fill()
	}

	w := width * math.Max(t.sx, t.sy)
	dc.SetLineWidth(w)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for _, st := range r.Strokes {
		if len(st) == 0 {
			continue
		}
		if isDab(st) {
			x, y := t.apply(st[0])
			dc.DrawCircle(x, y, w/2)
			dc.Fill()
			continue
		}
		for i, p := range st {
			x, y := t.apply(p)
			if i == 0 {
				dc.MoveTo(x, y)
				continue
			}
			dc.LineTo(x, y)
		}
		dc.Stroke()
	}
}

// isDab reports whether every point of a stroke is the same.
func isDab(st []Point) bool {
	for _, p := range st[1:] {
		if p != st[0] {
			return false
		}
	}
	return true
}

// compositeAlpha draws src over dst at a uniform opacity.
func compositeAlpha(dst draw.Image, src image.Image, alpha float64) {
	m := image.NewUniform(color.Alpha{A: uint8(clamp01(alpha)*255 + 0.5)})
	draw.DrawMask(dst, dst.Bounds(), src, src.Bounds().Min, m, image.Point{}, draw.Over)
}

// HighlightHint draws base scaled to the node's display size (w x h) and
// overlays the region in the style's color. The region is painted opaque
// on a scratch layer first and composited once at style.Alpha.
func HighlightHint(base image.Image, w, h int, r Region, style HintStyle) *image.RGBA {
	src := toNRGBA(base)
	b := src.Bounds()
	dc := gg.NewContext(w, h)
	dc.Push()
	dc.Scale(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	dc.DrawImage(src, 0, 0)
	dc.Pop()

	layer := gg.NewContext(w, h)
	paintRegion(layer, r, regionTransform{sx: 1, sy: 1}, style.Color, style.Width)

	out := dc.Image().(*image.RGBA)
	compositeAlpha(out, layer.Image(), style.Alpha)
	return out
}

// CroppedHint returns a close-up of the region at the bitmap's native
// resolution: the region's bounding box, grown by padding display units on
// every side and clamped to the bitmap, with the region overlaid. nodeW and
// nodeH are the node's display size. With an empty region the whole base
// image is returned.
func CroppedHint(base image.Image, nodeW, nodeH float64, r Region, padding float64, style HintStyle) *image.RGBA {
	src := toNRGBA(base)
	b := src.Bounds()
	bbox, ok := r.Bounds()
	if !ok {
		out := image.NewRGBA(b)
		draw.Draw(out, b, src, image.Point{}, draw.Src)
		return out
	}
	sx := float64(b.Dx()) / nodeW
	sy := float64(b.Dy()) / nodeH
	cropX := math.Max(0, (bbox.X-padding)*sx)
	cropY := math.Max(0, (bbox.Y-padding)*sy)
	cropW := math.Min(float64(b.Dx())-cropX, (bbox.Width+padding*2)*sx)
	cropH := math.Min(float64(b.Dy())-cropY, (bbox.Height+padding*2)*sy)
	cw, ch := max(1, int(math.Round(cropW))), max(1, int(math.Round(cropH)))

	dc := gg.NewContext(cw, ch)
	dc.DrawImage(src, -int(math.Round(cropX)), -int(math.Round(cropY)))

	layer := gg.NewContext(cw, ch)
	paintRegion(layer, r, regionTransform{sx: sx, sy: sy, ox: cropX, oy: cropY}, style.Color, style.Width)

	out := dc.Image().(*image.RGBA)
	compositeAlpha(out, layer.Image(), style.Alpha)
	return out
}
