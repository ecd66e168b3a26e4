package easel

import (
	"image"

	"golang.org/x/image/draw"
)

// ContentBounds returns the smallest rectangle holding every pixel with
// non-zero alpha. Rows are scanned from the top and the bottom first; the
// column scans are then limited to the rows found. ok is false for a fully
// transparent image.
func ContentBounds(img *image.NRGBA) (r image.Rectangle, ok bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	opaque := func(x, y int) bool {
		return img.Pix[y*img.Stride+x*4+3] > 0
	}
	rowHas := func(y int) bool {
		for x := 0; x < w; x++ {
			if opaque(x, y) {
				return true
			}
		}
		return false
	}

	minY := -1
	for y := 0; y < h; y++ {
		if rowHas(y) {
			minY = y
			break
		}
	}
	if minY < 0 {
		return image.Rectangle{}, false
	}
	maxY := minY
	for y := h - 1; y > minY; y-- {
		if rowHas(y) {
			maxY = y
			break
		}
	}

	colHas := func(x int) bool {
		for y := minY; y <= maxY; y++ {
			if opaque(x, y) {
				return true
			}
		}
		return false
	}
	minX := 0
	for x := 0; x < w; x++ {
		if colHas(x) {
			minX = x
			break
		}
	}
	maxX := minX
	for x := w - 1; x > minX; x-- {
		if colHas(x) {
			maxX = x
			break
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// AutoCrop trims transparent margins from img, leaving padding pixels of
// margin around the content where the image allows. It returns the cropped
// image and the crop rectangle in img's pixel space, which CropRemap uses to
// keep the content in place on the canvas. ok is false for a fully
// transparent image.
func AutoCrop(img image.Image, padding int) (cropped *image.NRGBA, rect image.Rectangle, ok bool) {
	src := toNRGBA(img)
	content, ok := ContentBounds(src)
	if !ok {
		return nil, image.Rectangle{}, false
	}
	rect = image.Rect(
		content.Min.X-padding, content.Min.Y-padding,
		content.Max.X+padding, content.Max.Y+padding,
	).Intersect(src.Rect)

	cropped = image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(cropped, cropped.Bounds(), src, rect.Min, draw.Src)
	return cropped, rect, true
}

// rectOf converts an image rectangle to a float Rect.
func rectOf(r image.Rectangle) Rect {
	return Rect{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())}
}
