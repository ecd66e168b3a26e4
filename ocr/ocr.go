// Package ocr answers text extraction locally with Tesseract and forwards
// every other edit to a remote editor.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/phanxgames/easel"
)

// Editor is an easel.RemoteEditor that handles easel.EditExtractText with a
// local Tesseract client. A gosseract client is not safe for concurrent
// use, so recognition is serialized.
type Editor struct {
	next easel.RemoteEditor

	mu     sync.Mutex
	client *gosseract.Client
}

// New returns an Editor recognizing lang (for example "eng") that forwards
// other kinds to next. next may be nil, in which case they fail.
func New(next easel.RemoteEditor, lang string) (*Editor, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("ocr: set language %s: %w", lang, err)
	}
	return &Editor{next: next, client: client}, nil
}

// Close releases the Tesseract client.
func (e *Editor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

// Edit implements easel.RemoteEditor.
func (e *Editor) Edit(ctx context.Context, req easel.EditRequest) (*easel.EditResult, error) {
	if req.Kind != easel.EditExtractText {
		if e.next == nil {
			return nil, fmt.Errorf("ocr: %s: %w", req.Kind, easel.ErrNoRemote)
		}
		return e.next.Edit(ctx, req)
	}
	src, ok := req.Image(easel.RoleSource)
	if !ok {
		return nil, errors.New("ocr: request has no source image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("ocr: set page mode: %w", err)
	}
	if err := e.client.SetImageFromBytes(src.Data); err != nil {
		return nil, fmt.Errorf("ocr: set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return nil, fmt.Errorf("ocr: recognize: %w", err)
	}
	return &easel.EditResult{Texts: splitBlocks(text)}, nil
}

// splitBlocks breaks Tesseract output into text blocks at blank lines and
// collapses whitespace inside each block.
func splitBlocks(text string) []string {
	var blocks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			flush()
			continue
		}
		cur = append(cur, strings.Join(fields, " "))
	}
	flush()
	return blocks
}
