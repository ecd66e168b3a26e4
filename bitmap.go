package easel

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownBitmap is returned for a BitmapRef the store does not hold.
var ErrUnknownBitmap = errors.New("easel: unknown bitmap")

// DecodeFunc turns encoded bytes into an image.
type DecodeFunc func(data []byte) (image.Image, error)

// DecodeImage decodes any registered raster format (PNG, JPEG, WebP).
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// BitmapStore holds encoded bitmaps keyed by content and memoizes their
// decoded form. Concurrent requests for the same bitmap share one decode.
// It is safe for concurrent use.
type BitmapStore struct {
	decode DecodeFunc

	mu      sync.RWMutex
	encoded map[BitmapRef][]byte
	decoded map[BitmapRef]image.Image

	group singleflight.Group
}

// NewBitmapStore returns an empty store. A nil decode uses DecodeImage.
func NewBitmapStore(decode DecodeFunc) *BitmapStore {
	if decode == nil {
		decode = DecodeImage
	}
	return &BitmapStore{
		decode:  decode,
		encoded: make(map[BitmapRef][]byte),
		decoded: make(map[BitmapRef]image.Image),
	}
}

// RefFor returns the reference identical bytes are stored under.
func RefFor(data []byte) BitmapRef {
	sum := sha256.Sum256(data)
	return BitmapRef("sha256-" + hex.EncodeToString(sum[:16]))
}

// Put stores encoded image bytes and returns their reference. Storing the
// same bytes twice returns the same reference.
func (s *BitmapStore) Put(data []byte) BitmapRef {
	ref := RefFor(data)
	s.mu.Lock()
	if _, ok := s.encoded[ref]; !ok {
		s.encoded[ref] = bytes.Clone(data)
	}
	s.mu.Unlock()
	return ref
}

// PutImage encodes img as PNG, stores it, and primes the decode cache with
// img so it is never decoded again.
func (s *BitmapStore) PutImage(img image.Image) (BitmapRef, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	ref := s.Put(data)
	s.mu.Lock()
	if _, ok := s.decoded[ref]; !ok {
		s.decoded[ref] = img
	}
	s.mu.Unlock()
	return ref, nil
}

// Bytes returns the encoded bytes for ref.
func (s *BitmapStore) Bytes(ref BitmapRef) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.encoded[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownBitmap, ref)
	}
	return data, nil
}

// Peek returns the decoded image if it is already cached.
func (s *BitmapStore) Peek(ref BitmapRef) (image.Image, bool) {
	s.mu.RLock()
	img, ok := s.decoded[ref]
	s.mu.RUnlock()
	return img, ok
}

// Image returns the decoded image for ref, decoding at most once per ref.
func (s *BitmapStore) Image(ctx context.Context, ref BitmapRef) (image.Image, error) {
	if img, ok := s.Peek(ref); ok {
		return img, nil
	}
	ch := s.group.DoChan(string(ref), func() (any, error) {
		if img, ok := s.Peek(ref); ok {
			return img, nil
		}
		data, err := s.Bytes(ref)
		if err != nil {
			return nil, err
		}
		img, err := s.decode(data)
		if err != nil {
			return nil, fmt.Errorf("easel: decode %s: %w", ref, err)
		}
		s.mu.Lock()
		s.decoded[ref] = img
		s.mu.Unlock()
		return img, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(image.Image), nil
	}
}

// Images decodes several refs in parallel, returning them in order.
func (s *BitmapStore) Images(ctx context.Context, refs ...BitmapRef) ([]image.Image, error) {
	out := make([]image.Image, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			img, err := s.Image(ctx, ref)
			out[i] = img
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Prefetch warms the decode cache in the background. Errors are dropped;
// they resurface on the next Image call.
func (s *BitmapStore) Prefetch(ctx context.Context, refs ...BitmapRef) {
	for _, ref := range refs {
		if _, ok := s.Peek(ref); ok {
			continue
		}
		go func() { _, _ = s.Image(ctx, ref) }()
	}
}

// Forget drops a bitmap and its decoded form.
func (s *BitmapStore) Forget(ref BitmapRef) {
	s.mu.Lock()
	delete(s.encoded, ref)
	delete(s.decoded, ref)
	s.mu.Unlock()
}

// Len returns how many bitmaps the store holds.
func (s *BitmapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.encoded)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("easel: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes img as JPEG at the given quality (1-100). Transparent
// areas are flattened onto white first.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), colorWhite)
	flat = imaging.Overlay(flat, img, image.Point{}, 1)
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("easel: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// FitWithin downsizes img so its longer side is at most maxDim. Smaller
// images are returned unchanged.
func FitWithin(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}

// EncodeForRemote downsizes img to fit within maxDim on its longer side
// (never enlarging) and encodes it as JPEG.
func EncodeForRemote(img image.Image, maxDim, quality int) ([]byte, error) {
	return EncodeJPEG(FitWithin(img, maxDim), quality)
}

var colorWhite = color.NRGBA{255, 255, 255, 255}

// toNRGBA returns img as an *image.NRGBA with its origin at (0, 0).
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
