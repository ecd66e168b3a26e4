package easel

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Dilation widens a mask silhouette with a blurred glow drawn Passes times
// before the solid silhouette. Passes == 0 disables it.
type Dilation struct {
	Sigma  float64
	Passes int
}

// DefaultDilation matches a 50px canvas shadow blur drawn three times.
var DefaultDilation = Dilation{Sigma: 25, Passes: 3}

// relativeFrame maps fg's display box into bg's bitmap pixels.
func relativeFrame(bgNode, fgNode Node, bw, bh int) Rect {
	sx := float64(bw) / bgNode.Width
	sy := float64(bh) / bgNode.Height
	return Rect{
		X:      (fgNode.X - bgNode.X) * sx,
		Y:      (fgNode.Y - bgNode.Y) * sy,
		Width:  fgNode.Width * sx,
		Height: fgNode.Height * sy,
	}
}

// drawNodeImage draws img into frame on dc, rotated by deg about the
// frame's center.
func drawNodeImage(dc *gg.Context, img image.Image, frame Rect, deg float64) {
	b := img.Bounds()
	dc.Push()
	dc.Translate(frame.X+frame.Width/2, frame.Y+frame.Height/2)
	dc.Rotate(gg.Radians(deg))
	dc.Translate(-frame.Width/2, -frame.Height/2)
	dc.Scale(frame.Width/float64(b.Dx()), frame.Height/float64(b.Dy()))
	dc.DrawImage(img, 0, 0)
	dc.Pop()
}

// CompositeAndMask prepares the inputs for blending fg into bg. The
// composite is bg at native resolution with fg drawn at its relative
// position, size and rotation. The mask is black with fg's silhouette in
// white, optionally grown by d so the editable area extends past the object
// for contact shadows.
func CompositeAndMask(bg image.Image, bgNode Node, fg image.Image, fgNode Node, d Dilation) (composite, mask *image.RGBA) {
	bgImg := toNRGBA(bg)
	fgImg := toNRGBA(fg)
	bw, bh := bgImg.Rect.Dx(), bgImg.Rect.Dy()
	frame := relativeFrame(bgNode, fgNode, bw, bh)

	dc := gg.NewContext(bw, bh)
	dc.DrawImage(bgImg, 0, 0)
	drawNodeImage(dc, fgImg, frame, fgNode.Rotation)
	composite = dc.Image().(*image.RGBA)

	sil := gg.NewContext(bw, bh)
	drawNodeImage(sil, fgImg, frame, fgNode.Rotation)
	silhouette := sil.Image().(*image.RGBA)

	layer := image.NewNRGBA(image.Rect(0, 0, bw, bh))
	if d.Passes > 0 && d.Sigma > 0 {
		glow := imaging.Blur(silhouette, d.Sigma)
		for range d.Passes {
			draw.Draw(layer, layer.Bounds(), glow, image.Point{}, draw.Over)
		}
	}
	draw.Draw(layer, layer.Bounds(), silhouette, image.Point{}, draw.Over)
	whiten(layer)

	mask = image.NewRGBA(image.Rect(0, 0, bw, bh))
	draw.Draw(mask, mask.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(mask, mask.Bounds(), layer, image.Point{}, draw.Over)
	return composite, mask
}

// whiten turns every pixel with any alpha opaque white, like a source-in
// fill over an opaque canvas.
func whiten(img *image.NRGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+3] == 0 {
			continue
		}
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 255, 255, 255, 255
	}
}

// ResizeToAspect returns the node resized so its height follows the
// bitmap's aspect ratio while its width is kept.
func ResizeToAspect(n Node, bw, bh int) Node {
	if bw <= 0 || bh <= 0 {
		return n
	}
	n.Height = math.Max(1, n.Width*float64(bh)/float64(bw))
	return n
}
