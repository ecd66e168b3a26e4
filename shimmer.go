package easel

import (
	"math"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// shimmer drives the processing highlight. Its phase runs 0..1 once per
// period and wraps while active; stop resets it to zero.
type shimmer struct {
	period  float32
	tween   *gween.Tween
	elapsed float32
	phase   float64
	active  bool
}

func newShimmer(period time.Duration) *shimmer {
	p := float32(period.Seconds())
	if p <= 0 {
		p = 1
	}
	return &shimmer{period: p, tween: gween.New(0, 1, p, ease.Linear)}
}

func (s *shimmer) start() {
	if s.active {
		return
	}
	s.active = true
	s.elapsed, s.phase = 0, 0
}

func (s *shimmer) stop() {
	s.active = false
	s.elapsed, s.phase = 0, 0
}

// advance moves the phase forward by dt seconds and returns it.
func (s *shimmer) advance(dt float32) float64 {
	if !s.active {
		return 0
	}
	s.elapsed = float32(math.Mod(float64(s.elapsed+dt), float64(s.period)))
	s.tween.Reset()
	v, _ := s.tween.Update(s.elapsed)
	s.phase = float64(v)
	return s.phase
}
