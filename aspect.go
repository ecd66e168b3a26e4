package easel

import (
	"math"
	"regexp"
	"strings"
)

// AspectRatio is one of the ratios the generator supports, written "w:h".
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "3:4"
	AspectLandscape AspectRatio = "4:3"
	AspectStory     AspectRatio = "9:16"
	AspectWide      AspectRatio = "16:9"
)

// SupportedAspectRatios lists every ratio in ascending width/height order.
var SupportedAspectRatios = []AspectRatio{AspectStory, AspectPortrait, AspectSquare, AspectLandscape, AspectWide}

// Dims returns the ratio's width and height terms, or 0, 0 for an unknown
// ratio.
func (a AspectRatio) Dims() (w, h int) {
	switch a {
	case AspectSquare:
		return 1, 1
	case AspectPortrait:
		return 3, 4
	case AspectLandscape:
		return 4, 3
	case AspectStory:
		return 9, 16
	case AspectWide:
		return 16, 9
	}
	return 0, 0
}

// Value returns width divided by height, or 0 for an unknown ratio.
func (a AspectRatio) Value() float64 {
	w, h := a.Dims()
	if h == 0 {
		return 0
	}
	return float64(w) / float64(h)
}

// HeightFor returns the height matching width at this ratio. Unknown ratios
// are treated as square.
func (a AspectRatio) HeightFor(width float64) float64 {
	w, h := a.Dims()
	if w == 0 {
		return width
	}
	return width * float64(h) / float64(w)
}

// NearestAspectRatio returns the supported ratio closest to w/h, measured
// in log space so 2:1 and 1:2 are equally far from square.
func NearestAspectRatio(w, h float64) AspectRatio {
	if w <= 0 || h <= 0 {
		return AspectSquare
	}
	target := math.Log(w / h)
	best, bestDist := AspectSquare, math.Inf(1)
	for _, a := range SupportedAspectRatios {
		if d := math.Abs(math.Log(a.Value()) - target); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best
}

var literalRatio = regexp.MustCompile(`\b(1:1|3:4|4:3|9:16|16:9)\b`)

// aspectKeywords is checked in order; the first keyword found wins.
var aspectKeywords = []struct {
	word  string
	ratio AspectRatio
}{
	{"widescreen", AspectWide},
	{"cinematic", AspectWide},
	{"panorama", AspectWide},
	{"story", AspectStory},
	{"vertical", AspectStory},
	{"phone wallpaper", AspectStory},
	{"portrait", AspectPortrait},
	{"landscape", AspectLandscape},
	{"square", AspectSquare},
}

// AspectFromPrompt returns the ratio named in a prompt, either literally
// ("16:9") or by keyword ("widescreen", "portrait", ...).
func AspectFromPrompt(prompt string) (AspectRatio, bool) {
	if m := literalRatio.FindString(prompt); m != "" {
		return AspectRatio(m), true
	}
	lower := strings.ToLower(prompt)
	for _, k := range aspectKeywords {
		if strings.Contains(lower, k.word) {
			return k.ratio, true
		}
	}
	return "", false
}

// ResolveAspectRatio picks the ratio for a generation: one named in the
// prompt, else the nearest match to a single reference node, else square.
func ResolveAspectRatio(prompt string, refs []Node) AspectRatio {
	if a, ok := AspectFromPrompt(prompt); ok {
		return a
	}
	if len(refs) == 1 {
		return NearestAspectRatio(refs[0].Width, refs[0].Height)
	}
	return AspectSquare
}
