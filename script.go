package easel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// scriptStep is a single action in an input script.
type scriptStep struct {
	Action string   `json:"action"`
	Label  string   `json:"label,omitempty"`
	X      float64  `json:"x,omitempty"`
	Y      float64  `json:"y,omitempty"`
	FromX  float64  `json:"fromX,omitempty"`
	FromY  float64  `json:"fromY,omitempty"`
	ToX    float64  `json:"toX,omitempty"`
	ToY    float64  `json:"toY,omitempty"`
	DX     float64  `json:"dx,omitempty"`
	DY     float64  `json:"dy,omitempty"`
	Frames int      `json:"frames,omitempty"`
	Key    string   `json:"key,omitempty"`
	Mods   []string `json:"mods,omitempty"`
	Mode   string   `json:"mode,omitempty"`
	Tool   string   `json:"tool,omitempty"`
	Prompt string   `json:"prompt,omitempty"`
}

type script struct {
	Steps []scriptStep `json:"steps"`
}

var scriptKeys = map[string]Key{
	"v": KeyV, "h": KeyH, "l": KeyL, "b": KeyB,
	"d": KeyD, "z": KeyZ, "y": KeyY,
	"delete": KeyDelete, "backspace": KeyBackspace,
	"escape": KeyEscape, "space": KeySpace,
}

var scriptMods = map[string]KeyModifiers{
	"shift": ModShift, "ctrl": ModCtrl, "alt": ModAlt, "meta": ModMeta,
}

var scriptModes = map[string]ToolMode{
	"select": ToolSelect, "lasso": ToolLasso, "brush": ToolBrush, "pan": ToolPan,
}

var scriptTools = map[EditKind]bool{
	EditDetach: true, EditErase: true, EditRemoveBackground: true, EditPlace: true,
	EditExtractText: true, EditUpdateText: true, EditUpscale: true, EditGenerate: true,
}

// ScriptRunner replays a JSON input script against an Editor, one step per
// frame. Pointer steps go through the same gesture handling as real input;
// "run" steps start an AI tool in the background.
//
// Actions: click, drag, wheel, key, mode, run, waitIdle, wait, screenshot.
type ScriptRunner struct {
	injector

	// Screenshot receives the label of each screenshot step.
	Screenshot func(label string)

	steps     []scriptStep
	cursor    int
	waitCount int
	waitIdle  bool
	done      bool

	running atomic.Int32
	mu      sync.Mutex
	errs    []error
}

// LoadScript parses and validates a JSON input script.
func LoadScript(data []byte) (*ScriptRunner, error) {
	var s script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("easel: parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("easel: parse script: no steps")
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("easel: parse script: step %d: %w", i, err)
		}
	}
	return &ScriptRunner{steps: s.Steps}, nil
}

func (st scriptStep) validate() error {
	switch st.Action {
	case "click", "drag", "wheel", "wait", "waitIdle", "screenshot":
	case "key":
		if _, ok := scriptKeys[strings.ToLower(st.Key)]; !ok {
			return fmt.Errorf("unknown key %q", st.Key)
		}
	case "mode":
		if _, ok := scriptModes[st.Mode]; !ok {
			return fmt.Errorf("unknown mode %q", st.Mode)
		}
	case "run":
		if !scriptTools[EditKind(st.Tool)] {
			return fmt.Errorf("unknown tool %q", st.Tool)
		}
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	for _, m := range st.Mods {
		if _, ok := scriptMods[strings.ToLower(m)]; !ok {
			return fmt.Errorf("unknown modifier %q", m)
		}
	}
	return nil
}

func (st scriptStep) modifiers() KeyModifiers {
	var mods KeyModifiers
	for _, m := range st.Mods {
		mods |= scriptMods[strings.ToLower(m)]
	}
	return mods
}

// Done reports whether every step has run and no tool is still in flight.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// Errs returns the errors returned by tools the script started.
func (r *ScriptRunner) Errs() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// Step advances the script by one frame. It reports whether it drove the
// pointer this frame, in which case real pointer input should be skipped.
func (r *ScriptRunner) Step(ctx context.Context, e *Editor) bool {
	if r.done {
		return false
	}
	if r.replay(e) {
		r.checkDone()
		return true
	}
	if r.waitIdle {
		if r.running.Load() > 0 {
			return false
		}
		r.waitIdle = false
	}
	if r.waitCount > 0 {
		r.waitCount--
		return false
	}
	if r.cursor >= len(r.steps) {
		r.checkDone()
		return false
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "click":
		r.InjectClick(st.X, st.Y)
	case "drag":
		r.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wheel":
		e.Wheel(Point{st.X, st.Y}, st.DX, st.DY, st.modifiers())
	case "key":
		k := scriptKeys[strings.ToLower(st.Key)]
		e.KeyDown(k, st.modifiers(), false)
		e.KeyUp(k)
	case "mode":
		e.SetTool(scriptModes[st.Mode])
	case "run":
		r.running.Add(1)
		go func() {
			defer r.running.Add(-1)
			if err := e.Run(ctx, EditKind(st.Tool), st.Prompt); err != nil {
				r.mu.Lock()
				r.errs = append(r.errs, err)
				r.mu.Unlock()
			}
		}()
	case "waitIdle":
		r.waitIdle = true
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "screenshot":
		if r.Screenshot != nil {
			r.Screenshot(st.Label)
		}
	}
	r.checkDone()
	return false
}

func (r *ScriptRunner) checkDone() {
	if r.cursor >= len(r.steps) && r.waitCount == 0 && !r.waitIdle && !r.pending() && r.running.Load() == 0 {
		r.done = true
	}
}
