package easel

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Place sends its composite at a higher quality than other remote inputs.
const placeJPEGQuality = 90

// ImageSize4K is the output size requested by Upscale.
const ImageSize4K = "4K"

// Default names for nodes the tools create.
const (
	DetachedName  = "Extracted Object"
	GeneratedName = "AI Generated"
)

// toolRun is one claimed run of an AI tool.
type toolRun struct {
	kind     EditKind
	nodeID   string
	snapshot Scene     // scene when the tool was invoked; the undo target
	sel      Selection // selection when the tool was invoked
	start    time.Time
}

// reserve claims the processing slot for kind if no tool is in flight and
// check accepts the scene. check runs under the session lock and returns the
// node to mark as processing. A refused reservation is routine gating and
// only logged at debug level.
func (e *Editor) reserve(kind EditKind, check func(Scene) (string, bool)) (*toolRun, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		e.log.Debug("tool skipped", "tool", string(kind), "reason", "busy")
		return nil, false
	}
	snapshot := e.history.Present()
	id, ok := check(snapshot)
	if !ok {
		e.log.Debug("tool skipped", "tool", string(kind), "reason", "precondition")
		return nil, false
	}
	e.busy = true
	e.processingID = id
	e.shimmer.start()
	return &toolRun{
		kind:     kind,
		nodeID:   id,
		snapshot: snapshot,
		sel:      e.sel.Clone(),
		start:    time.Now(),
	}, true
}

// finish releases the processing slot, stops the shimmer and logs the
// outcome. Errors are wrapped in *ToolError.
func (e *Editor) finish(run *toolRun, errp *error) {
	e.mu.Lock()
	e.busy = false
	e.processingID = ""
	e.shimmer.stop()
	undo, redo := e.history.Depth()
	debug := e.debug
	e.mu.Unlock()

	attrs := []any{"tool", string(run.kind), "node", run.nodeID, "duration", time.Since(run.start)}
	if err := *errp; err != nil {
		var te *ToolError
		if !errors.As(err, &te) {
			*errp = &ToolError{Tool: run.kind, NodeID: run.nodeID, Err: err}
		}
		e.log.Error("tool failed", append(attrs, "err", err)...)
	} else {
		e.log.Info("tool finished", attrs...)
	}
	if debug {
		debugLogTool(run.kind, run.nodeID, undo, redo, *errp)
	}
}

// merge folds a tool result into the latest scene. With push the scene as
// it was when the tool started becomes the undo target. after runs under the
// session lock to update selection and tool state.
func (e *Editor) merge(run *toolRun, push bool, fn func(Scene) Scene, after func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if push {
		e.history.PushHistory(run.snapshot)
	}
	e.update(string(run.kind), fn)
	if after != nil {
		after()
	}
}

// switchTool changes the tool, or the tool a held-space pan returns to.
func (e *Editor) switchTool(m ToolMode) {
	if e.spacePan {
		e.prevTool = m
		return
	}
	e.tool = m
}

// remoteInput is one image to encode for the remote editor.
type remoteInput struct {
	role    string
	img     image.Image
	png     bool
	quality int
}

// encodeInputs downsizes and encodes every input in parallel.
func (e *Editor) encodeInputs(ctx context.Context, inputs ...remoteInput) ([]EncodedImage, error) {
	out := make([]EncodedImage, len(inputs))
	g, _ := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			img := FitWithin(in.img, e.cfg.MaxRemoteDim)
			if in.png {
				data, err := EncodePNG(img)
				out[i] = EncodedImage{Role: in.role, MIME: "image/png", Data: data}
				return err
			}
			q := in.quality
			if q == 0 {
				q = e.cfg.JPEGQuality
			}
			data, err := EncodeJPEG(img, q)
			out[i] = EncodedImage{Role: in.role, MIME: "image/jpeg", Data: data}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// callRemote sends req to the remote editor.
func (e *Editor) callRemote(ctx context.Context, req EditRequest) (*EditResult, error) {
	if e.remote == nil {
		return nil, ErrNoRemote
	}
	res, err := e.remote.Edit(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNoImage
	}
	return res, nil
}

// storeResult stores a returned bitmap and decodes it.
func (e *Editor) storeResult(ctx context.Context, data []byte) (BitmapRef, image.Image, error) {
	if len(data) == 0 {
		return "", nil, ErrNoImage
	}
	ref := e.store.Put(data)
	img, err := e.store.Image(ctx, ref)
	if err != nil {
		e.store.Forget(ref)
		return "", nil, err
	}
	return ref, img, nil
}

// pixelSize rounds a display size to whole pixels.
func pixelSize(n Node) (int, int) {
	return max(1, int(math.Round(n.Width))), max(1, int(math.Round(n.Height)))
}

// hintStyle returns style with the configured brush width.
func (e *Editor) hintStyle(style HintStyle) HintStyle {
	style.Width = e.cfg.BrushWidth
	return style
}

// cutout applies a returned mask to src and trims the transparent margin.
func (e *Editor) cutout(src image.Image, maskData []byte, erode int) (*image.NRGBA, image.Rectangle, error) {
	mask, err := DecodeImage(maskData)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	cut := ApplyMask(src, mask, e.cfg.maskRamp(), erode)
	cropped, rect, ok := AutoCrop(cut, e.cfg.CropPadding)
	if !ok {
		return nil, image.Rectangle{}, ErrEmptyMask
	}
	return cropped, rect, nil
}

// --- Tools ---

// Detach lifts the object marked by the lasso or brush out of the primary
// selected node. The remote editor returns a background plate that replaces
// the source bitmap and, when it found an object, a mask that cuts the
// object from the original. The object becomes a new node in place, on top
// of the source, and is selected.
func (e *Editor) Detach(ctx context.Context, prompt string) (err error) {
	var node Node
	run, ok := e.reserve(EditDetach, func(s Scene) (string, bool) {
		id, ok := e.sel.Primary()
		if !ok || !e.sel.HasRegion() {
			return "", false
		}
		node, ok = s.Find(id)
		return id, ok
	})
	if !ok {
		return nil
	}
	defer e.finish(run, &err)

	src, err := e.store.Image(ctx, node.Bitmap)
	if err != nil {
		return err
	}
	region := run.sel.LocalRegion(node)
	w, h := pixelSize(node)
	images, err := e.encodeInputs(ctx,
		remoteInput{role: RoleSource, img: src},
		remoteInput{role: RoleHint, img: HighlightHint(src, w, h, region, e.hintStyle(DetachHintStyle))},
		remoteInput{role: RoleCroppedHint, img: CroppedHint(src, node.Width, node.Height, region, e.cfg.HintPadding, e.hintStyle(CroppedHintStyle))},
	)
	if err != nil {
		return err
	}

	res, err := e.callRemote(ctx, EditRequest{Kind: EditDetach, Prompt: prompt, Images: images})
	if err != nil {
		return err
	}
	plate, _, err := e.storeResult(ctx, res.Image)
	if err != nil {
		return err
	}

	var objRef BitmapRef
	var crop image.Rectangle
	if len(res.Mask) > 0 {
		obj, rect, err := e.cutout(src, res.Mask, 0)
		if err != nil {
			return err
		}
		if objRef, err = e.store.PutImage(obj); err != nil {
			return err
		}
		crop = rect
	}
	label := strings.TrimSpace(res.Label)
	if label == "" {
		label = DetachedName
	}
	sb := src.Bounds()

	var objID string
	e.merge(run, true, func(s Scene) Scene {
		cur, found := s.Find(node.ID)
		s = s.Patch(node.ID, func(n *Node) {
			n.Bitmap = plate
			n.Name += " (Plate)"
			n.TextBlocks = nil
		})
		if objRef == "" || !found {
			return s
		}
		obj := CropRemap(cur, sb.Dx(), sb.Dy(), rectOf(crop))
		obj.ID = e.newID(PrefixNode)
		obj.Bitmap = objRef
		obj.Name = label
		obj.Opacity = 1
		obj.TextBlocks = nil
		objID = obj.ID
		return s.Add(obj)
	}, func() {
		if objID != "" {
			e.sel.selectOnly(objID)
		}
		e.sel.clearRegion()
		e.switchTool(ToolSelect)
	})
	return nil
}

// Erase removes whatever the lasso or brush marks on the single selected
// node, replacing its bitmap in place.
func (e *Editor) Erase(ctx context.Context, prompt string) (err error) {
	var node Node
	run, ok := e.reserve(EditErase, func(s Scene) (string, bool) {
		id, ok := e.sel.Single()
		if !ok || !e.sel.HasRegion() {
			return "", false
		}
		node, ok = s.Find(id)
		return id, ok
	})
	if !ok {
		return nil
	}
	defer e.finish(run, &err)

	src, err := e.store.Image(ctx, node.Bitmap)
	if err != nil {
		return err
	}
	w, h := pixelSize(node)
	images, err := e.encodeInputs(ctx,
		remoteInput{role: RoleSource, img: src},
		remoteInput{role: RoleHint, img: HighlightHint(src, w, h, run.sel.LocalRegion(node), e.hintStyle(EraseHintStyle))},
	)
	if err != nil {
		return err
	}
	res, err := e.callRemote(ctx, EditRequest{Kind: EditErase, Prompt: prompt, Images: images})
	if err != nil {
		return err
	}
	ref, _, err := e.storeResult(ctx, res.Image)
	if err != nil {
		return err
	}
	e.merge(run, true, func(s Scene) Scene {
		return s.Patch(node.ID, func(n *Node) {
			n.Bitmap = ref
			n.TextBlocks = nil
		})
	}, e.sel.clearRegion)
	return nil
}

// RemoveBackground cuts the single selected node down to its subject. The
// remote editor returns a mask; the cut-out is trimmed and the node
// re-framed so the subject does not move on the canvas.
func (e *Editor) RemoveBackground(ctx context.Context) (err error) {
	var node Node
	run, ok := e.reserve(EditRemoveBackground, func(s Scene) (string, bool) {
		id, ok := e.sel.Single()
		if !ok {
			return "", false
		}
		node, ok = s.Find(id)
		return id, ok
	})
	if !ok {
		return nil
	}
	defer e.finish(run, &err)

	src, err := e.store.Image(ctx, node.Bitmap)
	if err != nil {
		return err
	}
	images, err := e.encodeInputs(ctx, remoteInput{role: RoleSource, img: src})
	if err != nil {
		return err
	}
	res, err := e.callRemote(ctx, EditRequest{Kind: EditRemoveBackground, Images: images})
	if err != nil {
		return err
	}
	if len(res.Mask) == 0 {
		return ErrNoImage
	}
	cut, crop, err := e.cutout(src, res.Mask, e.cfg.ErodePasses)
	if err != nil {
		return err
	}
	ref, err := e.store.PutImage(cut)
	if err != nil {
		return err
	}
	sb := src.Bounds()
	e.merge(run, true, func(s Scene) Scene {
		return s.Patch(node.ID, func(n *Node) {
			*n = CropRemap(*n, sb.Dx(), sb.Dy(), rectOf(crop))
			n.Bitmap = ref
			n.Name += " (Cutout)"
			n.TextBlocks = nil
		})
	}, func() {
		e.sel.clearRegion()
		e.switchTool(ToolSelect)
	})
	return nil
}

// Place blends the single selected node into the nearest node below it that
// it overlaps. The foreground is removed and the background's bitmap
// replaced with the blended result.
func (e *Editor) Place(ctx context.Context, prompt string) (err error) {
	var fg, bg Node
	run, ok := e.reserve(EditPlace, func(s Scene) (string, bool) {
		id, ok := e.sel.Single()
		if !ok {
			return "", false
		}
		fg, _ = s.Find(id)
		bg, ok = s.OverlappingBelow(id)
		return bg.ID, ok
	})
	if !ok {
		return nil
	}
	defer e.finish(run, &err)

	imgs, err := e.store.Images(ctx, bg.Bitmap, fg.Bitmap)
	if err != nil {
		return err
	}
	dilate := Dilation{Sigma: e.cfg.DilateSigma, Passes: e.cfg.DilatePasses}
	composite, mask := CompositeAndMask(imgs[0], bg, imgs[1], fg, dilate)
	images, err := e.encodeInputs(ctx,
		remoteInput{role: RoleComposite, img: composite, quality: placeJPEGQuality},
		remoteInput{role: RoleMask, img: mask, png: true},
	)
	if err != nil {
		return err
	}
	res, err := e.callRemote(ctx, EditRequest{Kind: EditPlace, Prompt: prompt, Images: images})
	if err != nil {
		return err
	}
	ref, _, err := e.storeResult(ctx, res.Image)
	if err != nil {
		return err
	}
	e.merge(run, true, func(s Scene) Scene {
		s = s.Delete(fg.ID)
		return s.Patch(bg.ID, func(n *Node) {
			n.Bitmap = ref
			n.Name = n.Name + " + " + fg.Name
			n.TextBlocks = nil
		})
	}, func() {
		e.sel.selectOnly(bg.ID)
		e.sel.clearRegion()
	})
	return nil
}

// ExtractText reads the text in the single selected node's bitmap into its
// text blocks. Geometry and bitmap are untouched, and the update is not an
// undo step.
func (e *Editor) ExtractText(ctx context.Context) (err error) {
	var node Node
	run, ok := e.reserve(EditExtractText, func(s Scene) (string, bool) {
		id, ok := e.sel.Single()
		if !ok {
			return "", false
		}
		node, ok = s.Find(id)
		return id, ok
	})
	if !ok {
		return nil
	}
	defer e.finish(run, &err)

	src, err := e.store.Image(ctx, node.Bitmap)
	if err != nil {
		return err
	}
	images, err := e.encodeInputs(ctx, remoteInput{role: RoleSource, img: src})
	if err != nil {
		return err
	}
	res, err := e.callRemote(ctx, EditRequest{Kind: EditExtractText, Images: images})
	if err != nil {
		return err
	}
	e.merge(run, false, func(s Scene) Scene {
		return s.Patch(node.ID, func(n *Node) {
			n.TextBlocks = newTextBlocks(res.Texts, e.newID)
		})
	}, nil)
	return nil
}

// SetText edits one text block of a node. The edit stays pending until
// UpdateText renders it.
func (e *Editor) SetText(nodeID, blockID, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.history.Present()
	next := s.Patch(nodeID, func(n *Node) {
		for i := range n.TextBlocks {
			if n.TextBlocks[i].ID == blockID {
				n.TextBlocks[i].Text = text
			}
		}
	})
	if next.Equal(s) {
		return false
	}
	e.update("text", func(Scene) Scene { return next })
	return true
}

// UpdateText re-renders the single selected node with its pending text
// edits applied. Blocks whose edits were sent are marked rendered.
func (e *Editor) UpdateText(ctx context.Context, prompt string) (err error) {
	var node Node
	run, ok := e.reserve(EditUpdateText, func(s Scene) (string, bool) {
		id, ok := e.sel.Single()
		if !ok {
			return "", false
		}
		node, ok = s.Find(id)
		return id, ok && node.HasPendingText()
	})
	if !ok {
		return nil
	}
	defer e.finish(run, &err)

	var edits []TextEdit
	sent := make(map[string]string)
	for _, b := range node.TextBlocks {
		if b.Pending() {
			edits = append(edits, TextEdit{Original: b.OriginalText, Updated: b.Text})
			sent[b.ID] = b.Text
		}
	}
	src, err := e.store.Image(ctx, node.Bitmap)
	if err != nil {
		return err
	}
	images, err := e.encodeInputs(ctx, remoteInput{role: RoleSource, img: src})
	if err != nil {
		return err
	}
	res, err := e.callRemote(ctx, EditRequest{Kind: EditUpdateText, Prompt: prompt, Images: images, TextEdits: edits})
	if err != nil {
		return err
	}
	ref, _, err := e.storeResult(ctx, res.Image)
	if err != nil {
		return err
	}
	e.merge(run, true, func(s Scene) Scene {
		return s.Patch(node.ID, func(n *Node) {
			n.Bitmap = ref
			for i, b := range n.TextBlocks {
				if text, ok := sent[b.ID]; ok {
					n.TextBlocks[i].OriginalText = text
				}
			}
		})
	}, nil)
	return nil
}

// Upscale replaces the single selected node's bitmap with a 4K rendition.
// Display size is unchanged.
func (e *Editor) Upscale(ctx context.Context) (err error) {
	var node Node
	run, ok := e.reserve(EditUpscale, func(s Scene) (string, bool) {
		id, ok := e.sel.Single()
		if !ok {
			return "", false
		}
		node, ok = s.Find(id)
		return id, ok
	})
	if !ok {
		return nil
	}
	defer e.finish(run, &err)

	src, err := e.store.Image(ctx, node.Bitmap)
	if err != nil {
		return err
	}
	images, err := e.encodeInputs(ctx, remoteInput{role: RoleSource, img: src})
	if err != nil {
		return err
	}
	res, err := e.callRemote(ctx, EditRequest{Kind: EditUpscale, Images: images, ImageSize: ImageSize4K})
	if err != nil {
		return err
	}
	ref, _, err := e.storeResult(ctx, res.Image)
	if err != nil {
		return err
	}
	e.merge(run, true, func(s Scene) Scene {
		return s.Patch(node.ID, func(n *Node) {
			n.Bitmap = ref
			n.Name += " (4K)"
		})
	}, func() {
		e.sel.clearRegion()
		e.switchTool(ToolSelect)
	})
	return nil
}

// Generate creates a new image from prompt, using the selected nodes as
// visual context. A placeholder node sized to the resolved aspect ratio is
// inserted at once and shows the shimmer until the result arrives; on
// failure it is removed again and history is left untouched.
func (e *Editor) Generate(ctx context.Context, prompt string) (err error) {
	prompt = strings.TrimSpace(prompt)
	var refs []Node
	var placeholder Node
	var ratio AspectRatio
	run, ok := e.reserve(EditGenerate, func(s Scene) (string, bool) {
		if prompt == "" {
			return "", false
		}
		for _, id := range e.sel.IDs {
			if n, ok := s.Find(id); ok {
				refs = append(refs, n)
			}
		}
		ratio = ResolveAspectRatio(prompt, refs)
		placeholder = e.placeholder(refs, ratio)
		e.update("generate", func(s Scene) Scene { return s.Add(placeholder) })
		return placeholder.ID, true
	})
	if !ok {
		return nil
	}
	defer e.finish(run, &err)
	defer func() {
		if err != nil {
			drop := func(s Scene) Scene { return s.Delete(placeholder.ID) }
			e.mu.Lock()
			e.update("generate rollback", drop)
			e.history.Rewrite(drop)
			e.mu.Unlock()
		}
	}()

	if len(refs) > e.cfg.MaxContextImages {
		refs = refs[:e.cfg.MaxContextImages]
	}
	bitmaps := make([]BitmapRef, len(refs))
	for i, n := range refs {
		bitmaps[i] = n.Bitmap
	}
	ctxImgs, err := e.store.Images(ctx, bitmaps...)
	if err != nil {
		return err
	}
	inputs := make([]remoteInput, len(ctxImgs))
	for i, img := range ctxImgs {
		inputs[i] = remoteInput{role: RoleContext, img: img}
	}
	images, err := e.encodeInputs(ctx, inputs...)
	if err != nil {
		return err
	}
	res, err := e.callRemote(ctx, EditRequest{Kind: EditGenerate, Prompt: prompt, Images: images, AspectRatio: ratio})
	if err != nil {
		return err
	}
	ref, img, err := e.storeResult(ctx, res.Image)
	if err != nil {
		return err
	}
	b := img.Bounds()
	fill := func(s Scene) Scene {
		return s.Patch(placeholder.ID, func(n *Node) {
			*n = ResizeToAspect(*n, b.Dx(), b.Dy())
			n.Bitmap = ref
		})
	}
	e.merge(run, true, fill, func() {
		// snapshots taken while the remote was busy still hold the bare placeholder
		e.history.Rewrite(fill)
		e.sel.selectOnly(placeholder.ID)
		e.sel.clearRegion()
	})
	return nil
}

// placeholder builds the node a generation fills in: DefaultNodeWidth wide
// with the ratio's height, right of the last reference node or at (100, 100).
func (e *Editor) placeholder(refs []Node, ratio AspectRatio) Node {
	w := e.cfg.DefaultNodeWidth
	x, y := 100.0, 100.0
	if len(refs) > 0 {
		last := refs[len(refs)-1]
		x, y = last.X+last.Width+e.cfg.DuplicateGap, last.Y
	}
	return Node{
		ID:      e.newID(PrefixNode),
		X:       x,
		Y:       y,
		Width:   w,
		Height:  ratio.HeightFor(w),
		Opacity: 1,
		Name:    GeneratedName,
	}
}

// Run dispatches to the tool named by kind. Tools that take no prompt
// ignore it.
func (e *Editor) Run(ctx context.Context, kind EditKind, prompt string) error {
	switch kind {
	case EditDetach:
		return e.Detach(ctx, prompt)
	case EditErase:
		return e.Erase(ctx, prompt)
	case EditRemoveBackground:
		return e.RemoveBackground(ctx)
	case EditPlace:
		return e.Place(ctx, prompt)
	case EditExtractText:
		return e.ExtractText(ctx)
	case EditUpdateText:
		return e.UpdateText(ctx, prompt)
	case EditUpscale:
		return e.Upscale(ctx)
	case EditGenerate:
		return e.Generate(ctx, prompt)
	}
	return fmt.Errorf("easel: unknown tool %q", kind)
}
