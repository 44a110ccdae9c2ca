package orchestrator

import (
	"fmt"

	"github.com/xkilldash9x/linkfeed/internal/linkfile"
)

// State is a position in the per-item dialog sequence.
type State int

const (
	NeedDialog State = iota
	NeedSourceType
	NeedURLInput
	NeedSubmit
	Confirmed
)

func (s State) String() string {
	switch s {
	case NeedDialog:
		return "need_dialog"
	case NeedSourceType:
		return "need_source_type"
	case NeedURLInput:
		return "need_url_input"
	case NeedSubmit:
		return "need_submit"
	case Confirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// BatchError is the fatal failure that stopped a batch.
type BatchError struct {
	Item  linkfile.Item
	State State
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("item %d (%s) failed at %s: %v", e.Item.Position, e.Item.URL, e.State, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
