package easel

import (
	"fmt"
	"slices"

	"go.jetify.com/typeid/v2"
)

// BitmapRef is an opaque handle to encoded image bytes held by a BitmapStore.
type BitmapRef string

// TextBlock is a piece of text recognized in a node's bitmap. Text differs
// from OriginalText while a rewrite is pending.
type TextBlock struct {
	ID           string
	Text         string
	OriginalText string
}

// Pending reports whether the block was edited since the last render.
func (b TextBlock) Pending() bool {
	return b.Text != b.OriginalText
}

// Node is a raster element on the canvas. Position and size are in world
// units. Rotation is in degrees about the node's center and is applied only
// when drawing or compositing.
type Node struct {
	ID       string
	Bitmap   BitmapRef
	X, Y     float64
	Width    float64
	Height   float64
	Rotation float64
	Opacity  float64
	Name     string

	// TextBlocks is nil until text has been extracted from the bitmap.
	TextBlocks []TextBlock
}

// Bounds returns the node's axis-aligned bounds, ignoring rotation.
func (n Node) Bounds() Rect {
	return Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// Center returns the node's center in world space.
func (n Node) Center() Point {
	return Point{n.X + n.Width/2, n.Y + n.Height/2}
}

// HasPendingText reports whether any text block has been edited.
func (n Node) HasPendingText() bool {
	for _, b := range n.TextBlocks {
		if b.Pending() {
			return true
		}
	}
	return false
}

// Clone returns a copy of n that shares no memory with it.
func (n Node) Clone() Node {
	n.TextBlocks = slices.Clone(n.TextBlocks)
	return n
}

// Equal reports whether two nodes hold identical values.
func (n Node) Equal(o Node) bool {
	return n.ID == o.ID && n.Bitmap == o.Bitmap &&
		n.X == o.X && n.Y == o.Y && n.Width == o.Width && n.Height == o.Height &&
		n.Rotation == o.Rotation && n.Opacity == o.Opacity && n.Name == o.Name &&
		slices.Equal(n.TextBlocks, o.TextBlocks) && (n.TextBlocks == nil) == (o.TextBlocks == nil)
}

// Validate reports the first invariant the node breaks.
func (n Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("easel: node has empty id")
	}
	if !(n.Width > 0) || !(n.Height > 0) {
		return fmt.Errorf("easel: node %s has non-positive size %vx%v", n.ID, n.Width, n.Height)
	}
	if n.Opacity < 0 || n.Opacity > 1 {
		return fmt.Errorf("easel: node %s opacity %v outside [0,1]", n.ID, n.Opacity)
	}
	return nil
}

func mustValid(n Node) {
	if err := n.Validate(); err != nil {
		panic(err.Error())
	}
}

// Id prefixes.
const (
	PrefixNode = "node"
	PrefixText = "text"
)

// IDFunc mints a new unique identifier with the given prefix.
type IDFunc func(prefix string) string

// NewID mints a type-prefixed, time-sortable identifier such as
// "node_01h455vb4pex5vsknk084sn02q".
func NewID(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

// newTextBlocks builds text blocks from recognized strings.
func newTextBlocks(texts []string, newID IDFunc) []TextBlock {
	blocks := make([]TextBlock, 0, len(texts))
	for _, t := range texts {
		blocks = append(blocks, TextBlock{ID: newID(PrefixText), Text: t, OriginalText: t})
	}
	return blocks
}
