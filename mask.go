package easel

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// MaskRamp converts mask luminance to alpha. Luminance at or below Floor is
// fully transparent, above Ceiling fully opaque, and in between it rises
// linearly by Gain per unit above Floor (capped at 255). The floor and
// ceiling suppress the gray halo imprecise masks leave around objects.
type MaskRamp struct {
	Floor   float64
	Ceiling float64
	Gain    float64
}

// DefaultMaskRamp is the ramp used when no configuration overrides it.
var DefaultMaskRamp = MaskRamp{Floor: 30, Ceiling: 220, Gain: 1.2}

// Alpha maps a luminance in [0, 255] to an alpha value.
func (r MaskRamp) Alpha(lum float64) uint8 {
	switch {
	case lum <= r.Floor:
		return 0
	case lum > r.Ceiling:
		return 255
	}
	return uint8(math.Round(math.Min(255, (lum-r.Floor)*r.Gain)))
}

// MaskAlpha resamples a black/white mask (white keeps) to w x h and converts
// it to an alpha mask through the ramp.
func MaskAlpha(mask image.Image, w, h int, ramp MaskRamp) *image.Alpha {
	scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), mask, mask.Bounds(), draw.Src, nil)

	out := image.NewAlpha(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i < len(scaled.Pix); i, j = i+4, j+1 {
		lum := (float64(scaled.Pix[i]) + float64(scaled.Pix[i+1]) + float64(scaled.Pix[i+2])) / 3
		out.Pix[j] = ramp.Alpha(lum)
	}
	return out
}

// ErodeAlpha clears every non-transparent interior pixel that has a fully
// transparent 4-neighbor, repeated passes times. Border pixels are left
// alone. It trims the fringe left by soft mask edges.
func ErodeAlpha(a *image.Alpha, passes int) {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	if w < 3 || h < 3 {
		return
	}
	snapshot := make([]uint8, len(a.Pix))
	for range passes {
		copy(snapshot, a.Pix)
		for y := 1; y < h-1; y++ {
			row := y * a.Stride
			for x := 1; x < w-1; x++ {
				i := row + x
				if snapshot[i] == 0 {
					continue
				}
				if snapshot[i-1] == 0 || snapshot[i+1] == 0 ||
					snapshot[i-a.Stride] == 0 || snapshot[i+a.Stride] == 0 {
					a.Pix[i] = 0
				}
			}
		}
	}
}

// ApplyMask cuts original down to the white area of mask. The mask is
// resampled to the original's size, converted through ramp, optionally
// eroded, and intersected with the original's own alpha (destination-in).
func ApplyMask(original, mask image.Image, ramp MaskRamp, erodePasses int) *image.NRGBA {
	b := original.Bounds()
	alpha := MaskAlpha(mask, b.Dx(), b.Dy(), ramp)
	if erodePasses > 0 {
		ErodeAlpha(alpha, erodePasses)
	}
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.DrawMask(out, out.Bounds(), original, b.Min, alpha, image.Point{}, draw.Src)
	return out
}
