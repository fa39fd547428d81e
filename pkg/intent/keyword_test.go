package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

func TestKeywordExtractor(t *testing.T) {
	e := NewKeywordExtractor()
	ctx := context.Background()

	t.Run("SlackAndSpreadsheet", func(t *testing.T) {
		in, err := e.Extract(ctx, "Send a Slack message when a new row is added to a spreadsheet", models.TextInputType)
		assert.NoError(t, err)
		assert.Equal(t, []Step{
			{Action: SendNotificationAction, ToolCandidate: "Slack"},
			{Action: StoreDataAction, ToolCandidate: "Spreadsheet"},
		}, in.Steps)
		assert.Equal(t, "record_watch", in.Trigger)
		assert.InDelta(t, 0.90, in.Confidence, 0.001)
	})

	t.Run("ActionWithoutTool", func(t *testing.T) {
		in, err := e.Extract(ctx, "alert me when something happens", models.TextInputType)
		assert.NoError(t, err)
		assert.Equal(t, []Step{{Action: SendNotificationAction}}, in.Steps)
		assert.Equal(t, "manual", in.Trigger)
	})

	t.Run("NoSignalFallsBackToProcessing", func(t *testing.T) {
		in, err := e.Extract(ctx, "do the thing", models.TextInputType)
		assert.NoError(t, err)
		assert.Equal(t, []Step{{Action: ProcessDataAction}}, in.Steps)
		assert.Equal(t, "manual", in.Trigger)
		assert.InDelta(t, 0.35, in.Confidence, 0.001)
	})

	t.Run("ScheduleTrigger", func(t *testing.T) {
		in, err := e.Extract(ctx, "post a tweet on twitter daily", models.TextInputType)
		assert.NoError(t, err)
		assert.Equal(t, "schedule", in.Trigger)
		assert.Equal(t, []Step{{Action: PublishContentAction, ToolCandidate: "Twitter"}}, in.Steps)
	})

	t.Run("DuplicateMentionsCollapse", func(t *testing.T) {
		in, err := e.Extract(ctx, "send to slack and slack again", models.TextInputType)
		assert.NoError(t, err)
		assert.Len(t, in.Steps, 1)
	})

	t.Run("Deterministic", func(t *testing.T) {
		prompt := "save a record to notion and notify slack every hour"
		a, err := e.Extract(ctx, prompt, models.TextInputType)
		assert.NoError(t, err)
		b, err := e.Extract(ctx, prompt, models.TextInputType)
		assert.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
