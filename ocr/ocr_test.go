package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/phanxgames/easel"
)

func TestSplitBlocks(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  \n\n", nil},
		{"SALE", []string{"SALE"}},
		{"BIG   SUMMER\nSALE\n\n50%  off\n", []string{"BIG SUMMER SALE", "50% off"}},
		{"\n\nOpen\n\n\n\nDaily\n", []string{"Open", "Daily"}},
	}
	for _, tt := range tests {
		got := splitBlocks(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitBlocks(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitBlocks(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestEditForwardsOtherKinds(t *testing.T) {
	var seen easel.EditKind
	next := easel.RemoteEditorFunc(func(_ context.Context, req easel.EditRequest) (*easel.EditResult, error) {
		seen = req.Kind
		return &easel.EditResult{Image: []byte{1}}, nil
	})
	e := &Editor{next: next}
	if _, err := e.Edit(context.Background(), easel.EditRequest{Kind: easel.EditUpscale}); err != nil {
		t.Fatal(err)
	}
	if seen != easel.EditUpscale {
		t.Errorf("forwarded kind = %q", seen)
	}

	bare := &Editor{}
	_, err := bare.Edit(context.Background(), easel.EditRequest{Kind: easel.EditErase})
	if !errors.Is(err, easel.ErrNoRemote) {
		t.Errorf("err = %v, want ErrNoRemote", err)
	}
}

func TestEditNeedsSourceImage(t *testing.T) {
	e := &Editor{}
	if _, err := e.Edit(context.Background(), easel.EditRequest{Kind: easel.EditExtractText}); err == nil {
		t.Error("extract-text without a source image succeeded")
	}
}
