package easel

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// HUD is a small status overlay: tool, zoom, node count, processing state
// and frame rate. It redraws its text about twice a second.
type HUD struct {
	img        *ebiten.Image
	text       string
	sinceDraw  float64
	refreshSec float64
}

// NewHUD returns an overlay sized for its status lines.
func NewHUD() *HUD {
	return &HUD{img: ebiten.NewImage(180, 64), refreshSec: 0.5}
}

// Update refreshes the overlay text from st after dt seconds.
func (h *HUD) Update(st State, dt float64) {
	h.sinceDraw += dt
	if h.text != "" && h.sinceDraw < h.refreshSec {
		return
	}
	h.sinceDraw = 0
	h.text = hudText(st, ebiten.ActualFPS())
	h.img.Clear()
	h.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(h.img, h.text)
}

// Draw places the overlay at the top-left of dst.
func (h *HUD) Draw(dst *ebiten.Image) {
	dst.DrawImage(h.img, nil)
}

func hudText(st State, fps float64) string {
	status := "idle"
	if st.ProcessingID != "" {
		status = "processing " + st.ProcessingID
	}
	return fmt.Sprintf("%s  %.0f%%  %d nodes\n%s\nFPS: %.1f",
		st.Tool, st.Viewport.Zoom*100, len(st.Nodes), status, fps)
}
