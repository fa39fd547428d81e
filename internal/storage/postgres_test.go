package storage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	internal_storage "github.com/Abzali8806/Cue-MVP-api/internal/storage"
	"github.com/Abzali8806/Cue-MVP-api/internal/testutil"
	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
	"github.com/Abzali8806/Cue-MVP-api/pkg/storage"
)

func TestPostgresStore(t *testing.T) {
	testDB := testutil.SetupTestDB(t)
	defer testDB.Teardown(t)

	// Helper to create a transactional store; each subtest rolls back.
	newTxStore := func(t *testing.T) *internal_storage.PostgresStore {
		store, err := internal_storage.NewPostgresStore(testDB.ConnStr)
		assert.NoError(t, err)
		txStore, err := store.Begin()
		assert.NoError(t, err)
		t.Cleanup(func() { txStore.Rollback() })
		return txStore.(*internal_storage.PostgresStore)
	}

	newWorkflow := func(id string) models.Workflow {
		now := time.Now()
		return models.Workflow{
			ID:        id,
			Name:      "Test Workflow",
			Prompt:    "send a slack message",
			InputType: models.TextInputType,
			Trigger:   "manual",
			State:     models.CreatedWorkflowState,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	t.Run("SaveAndGetWorkflow", func(t *testing.T) {
		store := newTxStore(t)
		wf := newWorkflow("wf-save")
		assert.NoError(t, store.SaveWorkflow(wf))

		saved, err := store.GetWorkflow("wf-save")
		assert.NoError(t, err)
		assert.Equal(t, wf.Name, saved.Name)
		assert.Equal(t, models.CreatedWorkflowState, saved.State)
		assert.Empty(t, saved.Bindings)
	})

	t.Run("GetNonExistingWorkflow", func(t *testing.T) {
		store := newTxStore(t)
		_, err := store.GetWorkflow("missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("UpdateWorkflowState", func(t *testing.T) {
		store := newTxStore(t)
		assert.NoError(t, store.SaveWorkflow(newWorkflow("wf-state")))

		assert.NoError(t, store.UpdateWorkflowState("wf-state", models.FailedWorkflowState, models.NoToolMatchFailure))
		saved, err := store.GetWorkflow("wf-state")
		assert.NoError(t, err)
		assert.Equal(t, models.FailedWorkflowState, saved.State)
		assert.Equal(t, models.NoToolMatchFailure, saved.FailureReason)

		assert.ErrorIs(t, store.UpdateWorkflowState("missing", models.ValidWorkflowState, ""), storage.ErrNotFound)
	})

	t.Run("UpdateWorkflowProgressAndTrigger", func(t *testing.T) {
		store := newTxStore(t)
		assert.NoError(t, store.SaveWorkflow(newWorkflow("wf-progress")))

		assert.NoError(t, store.UpdateWorkflowProgress("wf-progress", 2, 4))
		assert.NoError(t, store.UpdateWorkflowTrigger("wf-progress", "record_watch"))

		saved, err := store.GetWorkflow("wf-progress")
		assert.NoError(t, err)
		assert.Equal(t, 2, saved.RetryCount)
		assert.Equal(t, 4, saved.LatestVersion)
		assert.Equal(t, "record_watch", saved.Trigger)
	})

	t.Run("ArtifactVersions", func(t *testing.T) {
		store := newTxStore(t)
		assert.NoError(t, store.SaveWorkflow(newWorkflow("wf-art")))

		skeleton := models.Artifact{
			WorkflowID:   "wf-art",
			Version:      0,
			Kind:         models.SkeletonArtifactKind,
			Source:       "import os\n",
			Placeholders: []string{"SLACK_API_KEY"},
			CreatedAt:    time.Now(),
		}
		assert.NoError(t, store.SaveArtifact(skeleton))

		bound := models.Artifact{
			WorkflowID:  "wf-art",
			Version:     1,
			Kind:        models.CredentialedArtifactKind,
			Source:      "import os # bound\n",
			Fingerprint: "abc123",
			CreatedAt:   time.Now(),
		}
		assert.NoError(t, store.SaveArtifact(bound))

		got, err := store.GetArtifact("wf-art", 0)
		assert.NoError(t, err)
		assert.Equal(t, []string{"SLACK_API_KEY"}, got.Placeholders)
		assert.Equal(t, models.SkeletonArtifactKind, got.Kind)

		latest, err := store.LatestArtifact("wf-art")
		assert.NoError(t, err)
		assert.Equal(t, 1, latest.Version)

		byFp, err := store.FindArtifactByFingerprint("wf-art", "abc123")
		assert.NoError(t, err)
		assert.Equal(t, 1, byFp.Version)

		_, err = store.FindArtifactByFingerprint("wf-art", "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// Versions are insert-only.
		assert.Error(t, store.SaveArtifact(skeleton))
	})

	t.Run("ReplaceBindings", func(t *testing.T) {
		store := newTxStore(t)
		assert.NoError(t, store.SaveWorkflow(newWorkflow("wf-bind")))

		first := []models.ToolBinding{
			{WorkflowID: "wf-bind", StepIndex: 0, Action: "send_notification", ToolName: "Slack",
				CredentialKeys: []string{"API_KEY"}, Confidence: 0.9, Method: models.ExplicitResolution},
			{WorkflowID: "wf-bind", StepIndex: 1, Action: "store_data", ToolName: "Spreadsheet",
				CredentialKeys: []string{"API_KEY"}, Confidence: 0.9, Method: models.ExplicitResolution},
		}
		assert.NoError(t, store.ReplaceBindings("wf-bind", first))

		second := []models.ToolBinding{
			{WorkflowID: "wf-bind", StepIndex: 0, Action: "store_data", ToolName: "Database",
				CredentialKeys: []string{"DATABASE_URL"}, Confidence: 0.4, Method: models.InferredDefaultResolution},
		}
		assert.NoError(t, store.ReplaceBindings("wf-bind", second))

		got, err := store.GetBindings("wf-bind")
		assert.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, "Database", got[0].ToolName)
		assert.Equal(t, []string{"DATABASE_URL"}, got[0].CredentialKeys)

		wf, err := store.GetWorkflow("wf-bind")
		assert.NoError(t, err)
		assert.Len(t, wf.Bindings, 1)
	})

	t.Run("ValidationReports", func(t *testing.T) {
		store := newTxStore(t)
		assert.NoError(t, store.SaveWorkflow(newWorkflow("wf-rep")))

		report := models.ValidationReport{
			WorkflowID:      "wf-rep",
			ArtifactVersion: 1,
			Valid:           false,
			Diagnostics: []models.Diagnostic{
				{Stage: models.ReadinessCheckStage, Severity: models.ErrorSeverity, Line: 7, Message: "unresolved placeholder"},
			},
			Suggestions: []models.Suggestion{
				{Type: "critical", Message: "Fix all error-level issues before deploying to production."},
			},
			CreatedAt: time.Now(),
		}
		id, err := store.SaveReport(report)
		assert.NoError(t, err)
		assert.Greater(t, id, int64(0))

		reports, err := store.GetReports("wf-rep", 1)
		assert.NoError(t, err)
		assert.Len(t, reports, 1)
		assert.False(t, reports[0].Valid)
		assert.Len(t, reports[0].Diagnostics, 1)
		assert.Equal(t, 7, reports[0].Diagnostics[0].Line)
		assert.Len(t, reports[0].Suggestions, 1)

		empty, err := store.GetReports("wf-rep", 2)
		assert.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("ListWorkflowsOrdering", func(t *testing.T) {
		store := newTxStore(t)
		older := newWorkflow("wf-older")
		older.CreatedAt = time.Now().Add(-time.Hour)
		newer := newWorkflow("wf-newer")
		assert.NoError(t, store.SaveWorkflow(older))
		assert.NoError(t, store.SaveWorkflow(newer))

		workflows, err := store.ListWorkflows()
		assert.NoError(t, err)
		assert.Len(t, workflows, 2)
		assert.Equal(t, "wf-newer", workflows[0].ID)
	})
}
