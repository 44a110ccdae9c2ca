package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/linkfeed/internal/selector"
)

// ErrCompletionTimeout means the poll budget ran out without evidence that
// the item was accepted. It is logged, never fatal.
var ErrCompletionTimeout = errors.New("no completion evidence within poll budget")

// ResolutionError means no candidate for an action could be located.
type ResolutionError struct {
	Action selector.Action
	Scope  *selector.Candidate
	Tried  []selector.Candidate
}

func (e *ResolutionError) Error() string {
	where := "page"
	if e.Scope != nil {
		where = fmt.Sprintf("scope '%s'", e.Scope)
	}
	return fmt.Sprintf("could not locate %s within %s after %d candidates [%s]",
		e.Action, where, len(e.Tried), joinCandidates(e.Tried))
}

// InteractionError means an element was located but acting on it failed.
type InteractionError struct {
	Action    selector.Action
	Candidate selector.Candidate
	Err       error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("%s failed on '%s': %v", e.Action, e.Candidate, e.Err)
}

func (e *InteractionError) Unwrap() error { return e.Err }

// StartupError means the workspace never showed a ready indicator.
type StartupError struct {
	Indicators []selector.Candidate
	Waited     time.Duration
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("workspace not ready after %s; none of [%s] appeared",
		e.Waited, joinCandidates(e.Indicators))
}

func joinCandidates(cands []selector.Candidate) string {
	parts := make([]string, len(cands))
	for i, c := range cands {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
