package pipeline

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

var (
	// ErrBusy means another stage is already in flight for the workflow.
	// Callers retry later instead of queuing.
	ErrBusy = errors.New("workflow busy: a stage is already in flight")

	// ErrTerminal means the workflow has reached VALID or FAILED and
	// accepts no further transitions.
	ErrTerminal = errors.New("workflow is in a terminal state")
)

// InputError marks a malformed request. The client fixes and resubmits; no
// workflow state changes.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// GenerationError is a failure in the extract/resolve/synthesize stages. The
// workflow moves to FAILED and is not retried automatically. Step is the
// offending step index for NO_TOOL_MATCH, -1 otherwise.
type GenerationError struct {
	Reason models.FailureReason
	Step   int
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Step >= 0 {
		return fmt.Sprintf("generation failed (%s) at step %d", e.Reason, e.Step)
	}
	return fmt.Sprintf("generation failed (%s)", e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }
