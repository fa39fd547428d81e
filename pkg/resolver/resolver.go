// Package resolver binds abstract workflow steps to concrete catalog tools
// using a deterministic scoring rule: identical input always yields identical
// bindings.
package resolver

import (
	"fmt"
	"sort"

	"github.com/Abzali8806/Cue-MVP-api/pkg/catalog"
	"github.com/Abzali8806/Cue-MVP-api/pkg/intent"
	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

// NoMatchError is returned when a step has zero eligible catalog candidates.
// The whole resolution fails rather than silently dropping the step.
type NoMatchError struct {
	Step   int
	Action string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no tool matches step %d (action %q)", e.Step, e.Action)
}

// requirements maps each step action to the capability tags an eligible tool
// must provide.
var requirements = map[string][]string{
	intent.SendNotificationAction: {"notify"},
	intent.StoreDataAction:        {"store"},
	intent.TransformDataAction:    {"transform"},
	intent.PublishContentAction:   {"publish"},
	intent.ProcessDataAction:      {"process"},
}

type Resolver struct {
	catalog             *catalog.Catalog
	confidenceThreshold float64
}

func New(cat *catalog.Catalog, confidenceThreshold float64) *Resolver {
	return &Resolver{catalog: cat, confidenceThreshold: confidenceThreshold}
}

// Resolve produces one ToolBinding per intent step. Steps naming a known tool
// bind to it directly (EXPLICIT); the rest are scored against the catalog.
// When the intent confidence is below the threshold only exact capability
// matches are eligible, which steers low-confidence prompts toward
// conservative defaults.
func (r *Resolver) Resolve(workflowID string, in intent.Intent) ([]models.ToolBinding, error) {
	bindings := make([]models.ToolBinding, 0, len(in.Steps))
	for i, step := range in.Steps {
		if step.ToolCandidate != "" {
			if tool, ok := r.catalog.Lookup(step.ToolCandidate); ok {
				bindings = append(bindings, models.ToolBinding{
					WorkflowID:     workflowID,
					StepIndex:      i,
					Action:         step.Action,
					ToolName:       tool.Name,
					CredentialKeys: tool.CredentialKeys,
					Confidence:     in.Confidence,
					Method:         models.ExplicitResolution,
				})
				continue
			}
			// Unknown candidate name: fall through to inference on the action.
		}

		tool, ok := r.infer(step.Action, in.Confidence)
		if !ok {
			return nil, &NoMatchError{Step: i, Action: step.Action}
		}
		bindings = append(bindings, models.ToolBinding{
			WorkflowID:     workflowID,
			StepIndex:      i,
			Action:         step.Action,
			ToolName:       tool.Name,
			CredentialKeys: tool.CredentialKeys,
			Confidence:     in.Confidence,
			Method:         models.InferredDefaultResolution,
		})
	}
	return bindings, nil
}

func (r *Resolver) infer(action string, confidence float64) (catalog.Tool, bool) {
	required := requirements[action]
	if len(required) == 0 {
		return catalog.Tool{}, false
	}

	type scored struct {
		tool  catalog.Tool
		score int
	}
	var candidates []scored
	for _, tool := range r.catalog.Tools() {
		score := 0
		for _, cap := range required {
			if tool.HasCapability(cap) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		if confidence < r.confidenceThreshold && score < len(required) {
			// Low-confidence intent: partial capability overlap is not
			// enough to commit to a tool.
			continue
		}
		candidates = append(candidates, scored{tool: tool, score: score})
	}
	if len(candidates) == 0 {
		return catalog.Tool{}, false
	}

	// Highest score wins; ties broken by fewer required credential keys,
	// then lexicographic tool name.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if len(a.tool.CredentialKeys) != len(b.tool.CredentialKeys) {
			return len(a.tool.CredentialKeys) < len(b.tool.CredentialKeys)
		}
		return a.tool.Name < b.tool.Name
	})
	return candidates[0].tool, true
}
