package easel

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoImage is returned when a remote edit that must produce a bitmap
// returns none.
var ErrNoImage = errors.New("easel: remote edit returned no image")

// ErrNoRemote is returned by tools when the Editor has no RemoteEditor.
var ErrNoRemote = errors.New("easel: no remote editor configured")

// ErrEmptyMask is returned when a returned mask leaves no visible pixels.
var ErrEmptyMask = errors.New("easel: mask removed every pixel")

// EditKind names a remote edit operation.
type EditKind string

const (
	EditDetach           EditKind = "detach"
	EditErase            EditKind = "erase"
	EditRemoveBackground EditKind = "remove-background"
	EditPlace            EditKind = "place"
	EditExtractText      EditKind = "extract-text"
	EditUpdateText       EditKind = "update-text"
	EditUpscale          EditKind = "upscale"
	EditGenerate         EditKind = "generate"
)

// Image roles carried in EditRequest.Images.
const (
	RoleSource      = "source"       // the clean node bitmap
	RoleHint        = "hint"         // source with the region highlighted
	RoleCroppedHint = "cropped-hint" // close-up of the highlighted region
	RoleComposite   = "composite"    // background with foreground pasted in
	RoleMask        = "mask"         // white where edits are allowed
	RoleContext     = "context"      // reference image for generation
)

// EncodedImage is one encoded bitmap sent to the remote editor.
type EncodedImage struct {
	Role string
	// MIME is "image/jpeg" or "image/png".
	MIME string
	Data []byte
}

// TextEdit is one requested text replacement.
type TextEdit struct {
	Original string
	Updated  string
}

// EditRequest describes one remote edit.
type EditRequest struct {
	Kind   EditKind
	Prompt string
	Images []EncodedImage
	// TextEdits is set for EditUpdateText.
	TextEdits []TextEdit
	// AspectRatio and ImageSize steer EditGenerate and EditUpscale.
	AspectRatio AspectRatio
	ImageSize   string
}

// Image returns the first image with the given role.
func (r EditRequest) Image(role string) (EncodedImage, bool) {
	for _, img := range r.Images {
		if img.Role == role {
			return img, true
		}
	}
	return EncodedImage{}, false
}

// EditResult is what a remote edit produced. Which fields are set depends on
// the kind:
//
//	Detach:           Image (background plate), Mask (object), Label
//	Erase:            Image
//	RemoveBackground: Mask
//	Place:            Image
//	ExtractText:      Texts
//	UpdateText:       Image
//	Upscale:          Image
//	Generate:         Image
type EditResult struct {
	Image []byte
	Mask  []byte
	Label string
	Texts []string
}

// RemoteEditor performs image edits on an external service. Implementations
// own transport, prompting and retries; Edit may block and must honor ctx.
type RemoteEditor interface {
	Edit(ctx context.Context, req EditRequest) (*EditResult, error)
}

// RemoteEditorFunc adapts a function to RemoteEditor.
type RemoteEditorFunc func(ctx context.Context, req EditRequest) (*EditResult, error)

// Edit calls f.
func (f RemoteEditorFunc) Edit(ctx context.Context, req EditRequest) (*EditResult, error) {
	return f(ctx, req)
}

// ToolError reports a failed tool run.
type ToolError struct {
	Tool   EditKind
	NodeID string
	Err    error
}

func (e *ToolError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("easel: %s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("easel: %s on %s: %v", e.Tool, e.NodeID, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }
