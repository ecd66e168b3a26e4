// Package easel is an interactive 2D scene editor engine for [Ebitengine]
// with AI-assisted image tools.
//
// A scene is a flat, z-ordered list of image [Node] values on an infinite
// canvas. An [Editor] holds one editing session: the scene and its undo
// [History], the transient [Selection] (selected ids, lasso, brush strokes,
// marquee), the [Viewport] and the active pointer tool. A [Renderer] draws
// the session's [State] every frame.
//
// # Quick start
//
//	store := easel.NewBitmapStore(nil)
//	ed := easel.NewEditor(
//		easel.WithStore(store),
//		easel.WithRemote(myRemote),
//		easel.WithLogger(slog.Default()),
//	)
//	renderer := easel.NewRenderer(store, ed.Config())
//	input := easel.NewInputPoller(ed)
//
//	func (g *Game) Update() error {
//		input.Poll()
//		ed.Tick(1.0 / 60)
//		return nil
//	}
//	func (g *Game) Draw(screen *ebiten.Image) { renderer.Draw(screen, ed.State()) }
//
// # Tools
//
// Pointer tools (select, pan, lasso, brush) are switched with [Editor.SetTool]
// or the V, H, L and B keys; space held pans. The AI tools call a
// [RemoteEditor]:
//
//   - [Editor.Detach] lifts the lassoed or brushed object into its own node
//   - [Editor.Erase] removes the marked region in place
//   - [Editor.RemoveBackground] cuts the node out and crops to its content
//   - [Editor.Place] blends a node into the node underneath it
//   - [Editor.ExtractText] and [Editor.UpdateText] edit text in the image
//   - [Editor.Upscale] re-renders the node at 4K
//   - [Editor.Generate] creates a new node from a prompt
//
// At most one tool runs at a time. A tool call blocks until the remote
// answers, without holding the session lock, and merges its result into the
// latest scene so edits made meanwhile survive. The whole call is one undo
// step.
//
// # Pixel pipeline
//
// The tools prepare their inputs with [HighlightHint], [CroppedHint],
// [CompositeAndMask] and post-process results with [ApplyMask] and
// [AutoCrop]. They work on plain image.Image values and need no GPU.
//
// [Ebitengine]: https://ebitengine.org
package easel
