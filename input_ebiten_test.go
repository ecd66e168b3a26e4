package easel

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestCursorShape(t *testing.T) {
	tests := []struct {
		name string
		want ebiten.CursorShapeType
	}{
		{"default", ebiten.CursorShapeDefault},
		{"move", ebiten.CursorShapeMove},
		{"grabbing", ebiten.CursorShapeMove},
		{"crosshair", ebiten.CursorShapeCrosshair},
		{HandleNW.Cursor(), ebiten.CursorShapeNWSEResize},
		{HandleNE.Cursor(), ebiten.CursorShapeNESWResize},
		{HandleS.Cursor(), ebiten.CursorShapeNSResize},
		{HandleW.Cursor(), ebiten.CursorShapeEWResize},
	}
	for _, tt := range tests {
		if got := cursorShape(tt.name); got != tt.want {
			t.Errorf("cursorShape(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEbitenKeysCoverEditorKeys(t *testing.T) {
	seen := map[Key]bool{}
	for _, k := range ebitenKeys {
		seen[k] = true
	}
	for k := KeyV; k <= KeySpace; k++ {
		if !seen[k] {
			t.Errorf("key %d has no ebiten binding", k)
		}
	}
}
