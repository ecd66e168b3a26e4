package easel

import (
	"fmt"
	"io"
	"os"
)

// debugOut receives debug diagnostics. Tests swap it for a buffer.
var debugOut io.Writer = os.Stderr

// debugCheckScene panics with a descriptive message when a scene breaks an
// invariant. Only called when the Editor runs in debug mode; in release mode
// callers skip this entirely.
func debugCheckScene(s Scene, op string) {
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("easel debug: %s left an invalid scene: %v", op, err))
	}
}

// debugCheckSelection warns when the selection names nodes that no longer
// exist.
func debugCheckSelection(sel Selection, s Scene, op string) {
	for _, id := range sel.IDs {
		if s.Index(id) < 0 {
			_, _ = fmt.Fprintf(debugOut, "[easel] warning: %s left stale selection %q\n", op, id)
		}
	}
}

// debugMaxNodes is the scene size above which debug mode warns.
const debugMaxNodes = 500

func debugCheckSceneSize(s Scene) {
	if len(s) > debugMaxNodes {
		_, _ = fmt.Fprintf(debugOut, "[easel] warning: scene has %d nodes (threshold %d)\n",
			len(s), debugMaxNodes)
	}
}

// debugLogTool prints one tool run to stderr.
func debugLogTool(kind EditKind, nodeID string, undo, redo int, err error) {
	status := "ok"
	if err != nil {
		status = err.Error()
	}
	_, _ = fmt.Fprintf(debugOut, "[easel] tool %s node %q | history %d/%d | %s\n",
		kind, nodeID, undo, redo, status)
}
