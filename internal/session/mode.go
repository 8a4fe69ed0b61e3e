// Package session holds the per-run state owned by the mode controller.
package session

import "fmt"

// Mode is the controller's input mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeCommand
	ModeEditor
	ModeViewer
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeCommand:
		return "COMMAND"
	case ModeEditor:
		return "EDITOR"
	case ModeViewer:
		return "VIEWER"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Every mode may fall back to Normal (interrupt). The remaining edges are
// listed here.
var transitions = map[Mode][]Mode{
	ModeNormal:  {ModeCommand, ModeEditor, ModeViewer},
	ModeCommand: {ModeViewer},
	ModeEditor:  {ModeViewer},
	ModeViewer:  {ModeEditor, ModeCommand},
}

// CanTransition reports whether the controller may move from one mode to
// another.
func CanTransition(from, to Mode) bool {
	if from == to || to == ModeNormal {
		return true
	}
	for _, m := range transitions[from] {
		if m == to {
			return true
		}
	}
	return false
}

// TransitionError is returned for an edge missing from the table.
type TransitionError struct {
	From, To Mode
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal mode transition %s -> %s", e.From, e.To)
}
