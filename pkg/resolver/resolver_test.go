package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Abzali8806/Cue-MVP-api/pkg/catalog"
	"github.com/Abzali8806/Cue-MVP-api/pkg/intent"
	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

func TestResolve(t *testing.T) {
	r := New(catalog.Default(), 0.5)

	t.Run("ExplicitCandidate", func(t *testing.T) {
		bindings, err := r.Resolve("wf-1", intent.Intent{
			Steps:      []intent.Step{{Action: intent.SendNotificationAction, ToolCandidate: "Slack"}},
			Confidence: 0.9,
		})
		assert.NoError(t, err)
		assert.Len(t, bindings, 1)
		assert.Equal(t, "Slack", bindings[0].ToolName)
		assert.Equal(t, models.ExplicitResolution, bindings[0].Method)
		assert.Equal(t, []string{"API_KEY"}, bindings[0].CredentialKeys)
	})

	t.Run("InferredDefaultIsDeterministic", func(t *testing.T) {
		in := intent.Intent{
			Steps:      []intent.Step{{Action: intent.SendNotificationAction}},
			Confidence: 0.9,
		}
		first, err := r.Resolve("wf-1", in)
		assert.NoError(t, err)
		second, err := r.Resolve("wf-1", in)
		assert.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, models.InferredDefaultResolution, first[0].Method)
		// Slack, Email and Gmail all score 1 with one credential key each;
		// the lexicographic tie-break picks Email.
		assert.Equal(t, "Email", first[0].ToolName)
	})

	t.Run("TieBrokenByFewerCredentialKeys", func(t *testing.T) {
		bindings, err := r.Resolve("wf-1", intent.Intent{
			Steps:      []intent.Step{{Action: intent.TransformDataAction}},
			Confidence: 0.9,
		})
		assert.NoError(t, err)
		// AWS and HTTP API both provide "transform"; HTTP API needs one
		// credential key, AWS needs two.
		assert.Equal(t, "HTTP API", bindings[0].ToolName)
	})

	t.Run("UnknownCandidateFallsBackToInference", func(t *testing.T) {
		bindings, err := r.Resolve("wf-1", intent.Intent{
			Steps:      []intent.Step{{Action: intent.StoreDataAction, ToolCandidate: "Fancy Unknown Tool"}},
			Confidence: 0.9,
		})
		assert.NoError(t, err)
		assert.Equal(t, models.InferredDefaultResolution, bindings[0].Method)
	})

	t.Run("NoMatch", func(t *testing.T) {
		_, err := r.Resolve("wf-1", intent.Intent{
			Steps:      []intent.Step{{Action: "summon_dragons"}},
			Confidence: 0.9,
		})
		var noMatch *NoMatchError
		assert.ErrorAs(t, err, &noMatch)
		assert.Equal(t, 0, noMatch.Step)
		assert.Equal(t, "summon_dragons", noMatch.Action)
	})

	t.Run("StepIndexesPreserved", func(t *testing.T) {
		bindings, err := r.Resolve("wf-1", intent.Intent{
			Steps: []intent.Step{
				{Action: intent.SendNotificationAction, ToolCandidate: "Slack"},
				{Action: intent.StoreDataAction, ToolCandidate: "Spreadsheet"},
			},
			Confidence: 0.9,
		})
		assert.NoError(t, err)
		assert.Equal(t, 0, bindings[0].StepIndex)
		assert.Equal(t, 1, bindings[1].StepIndex)
		assert.Equal(t, "wf-1", bindings[1].WorkflowID)
	})
}
