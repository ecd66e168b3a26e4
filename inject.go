package easel

type pointerPhase uint8

const (
	phaseDown pointerPhase = iota
	phaseMove
	phaseUp
)

// syntheticPointerEvent is one injected pointer event in screen
// coordinates, the same space real mouse input arrives in.
type syntheticPointerEvent struct {
	p     Point
	phase pointerPhase
}

// injector queues synthetic pointer events and replays one per frame.
type injector struct {
	queue []syntheticPointerEvent
}

// InjectPress queues a pointer press at the given screen coordinates.
func (in *injector) InjectPress(x, y float64) {
	in.queue = append(in.queue, syntheticPointerEvent{Point{x, y}, phaseDown})
}

// InjectMove queues a pointer move with the button held.
func (in *injector) InjectMove(x, y float64) {
	in.queue = append(in.queue, syntheticPointerEvent{Point{x, y}, phaseMove})
}

// InjectRelease queues a pointer release.
func (in *injector) InjectRelease(x, y float64) {
	in.queue = append(in.queue, syntheticPointerEvent{Point{x, y}, phaseUp})
}

// InjectClick queues a press and a release at the same point. Consumes two
// frames.
func (in *injector) InjectClick(x, y float64) {
	in.InjectPress(x, y)
	in.InjectRelease(x, y)
}

// InjectDrag queues a press at from, frames-2 evenly spaced moves and a
// release at to. Minimum frames is 2.
func (in *injector) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	in.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		in.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	in.InjectRelease(toX, toY)
}

// pending reports whether injected events are still queued.
func (in *injector) pending() bool {
	return len(in.queue) > 0
}

// replay pops one event and feeds it to e. It reports whether an event was
// consumed, in which case real pointer input should be skipped this frame.
func (in *injector) replay(e *Editor) bool {
	if len(in.queue) == 0 {
		return false
	}
	evt := in.queue[0]
	copy(in.queue, in.queue[1:])
	in.queue = in.queue[:len(in.queue)-1]

	switch evt.phase {
	case phaseDown:
		e.PointerDown(evt.p)
	case phaseMove:
		e.PointerMove(evt.p)
	case phaseUp:
		e.PointerMove(evt.p)
		e.PointerUp(evt.p)
	}
	return true
}
