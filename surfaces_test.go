package easel

import "testing"

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		input, want int
	}{
		{0, 1},
		{1, 1},
		{3, 4},
		{4, 4},
		{129, 256},
		{1000, 1024},
		{1920, 2048},
	}
	for _, tt := range tests {
		if got := nextPowerOfTwo(tt.input); got != tt.want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestSurfacePoolReuse(t *testing.T) {
	var pool surfacePool
	img := pool.Acquire(100, 50)
	b := img.Bounds()
	if b.Dx() != 128 || b.Dy() != 64 {
		t.Errorf("surface = %dx%d, want 128x64", b.Dx(), b.Dy())
	}
	pool.Release(img)
	if again := pool.Acquire(120, 60); again != img {
		t.Error("pool did not reuse a released surface of the same bucket")
	}
	if other := pool.Acquire(300, 60); other == img {
		t.Error("different bucket returned the same surface")
	}
	pool.Release(nil)
}
