// Package intent turns a raw automation prompt into a structured intent:
// an ordered list of steps, a trigger, and a confidence score.
package intent

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

// ErrUnavailable signals that the language-understanding service timed out
// or returned a malformed response.
var ErrUnavailable = errors.New("language-understanding service unavailable")

// Step is a single unit of work extracted from the prompt. ToolCandidate is
// set when the prompt names a concrete tool, and left empty otherwise.
type Step struct {
	Action        string `json:"action"`
	ToolCandidate string `json:"tool_candidate,omitempty"`
}

// Intent is the structured result of prompt analysis. A confidence below the
// configured threshold is not an error; the tool resolver falls back to more
// conservative defaults.
type Intent struct {
	Steps      []Step  `json:"steps"`
	Trigger    string  `json:"trigger"`
	Confidence float64 `json:"confidence"`
}

// Extractor is the contract for prompt understanding. Implementations must
// not block indefinitely: blocking calls honor the context deadline.
type Extractor interface {
	Extract(ctx context.Context, prompt string, inputType models.InputType) (Intent, error)
}
