package storage

import (
	"github.com/pkg/errors"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the storage operations for the pipeline.
type Store interface {
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Workflow operations
	SaveWorkflow(w models.Workflow) error
	GetWorkflow(id string) (models.Workflow, error)
	ListWorkflows() ([]models.Workflow, error)
	UpdateWorkflowState(id string, state models.WorkflowState, reason models.FailureReason) error
	UpdateWorkflowProgress(id string, retryCount, latestVersion int) error
	UpdateWorkflowTrigger(id string, trigger string) error

	// Artifact operations. Artifacts are insert-only: a new pipeline stage
	// always produces a new version.
	SaveArtifact(a models.Artifact) error
	GetArtifact(workflowID string, version int) (models.Artifact, error)
	LatestArtifact(workflowID string) (models.Artifact, error)
	FindArtifactByFingerprint(workflowID, fingerprint string) (models.Artifact, error)

	// Tool binding operations
	ReplaceBindings(workflowID string, bindings []models.ToolBinding) error
	GetBindings(workflowID string) ([]models.ToolBinding, error)

	// Validation report operations. Prior reports are kept for audit.
	SaveReport(r models.ValidationReport) (int64, error)
	GetReports(workflowID string, artifactVersion int) ([]models.ValidationReport, error)
}
