package models

import "time"

type WorkflowState string

const (
	CreatedWorkflowState          WorkflowState = "CREATED"
	SkeletonReadyWorkflowState    WorkflowState = "SKELETON_READY"
	CredentialsBoundWorkflowState WorkflowState = "CREDENTIALS_BOUND"
	ValidatingWorkflowState       WorkflowState = "VALIDATING"
	ValidWorkflowState            WorkflowState = "VALID"
	FailedWorkflowState           WorkflowState = "FAILED"
)

// Terminal reports whether no further transitions are possible from the state.
func (s WorkflowState) Terminal() bool {
	return s == ValidWorkflowState || s == FailedWorkflowState
}

// FailureReason records why a workflow reached the FAILED state.
type FailureReason string

const (
	UpstreamUnavailableFailure FailureReason = "UPSTREAM_UNAVAILABLE"
	NoToolMatchFailure         FailureReason = "NO_TOOL_MATCH"
	SynthesisFailedFailure     FailureReason = "SYNTHESIS_FAILED"
	RetryExhaustedFailure      FailureReason = "RETRY_EXHAUSTED"
)

type InputType string

const (
	TextInputType       InputType = "text"
	TranscriptInputType InputType = "speech_transcript"
)

// Workflow is one end-to-end request to turn a prompt into validated,
// deployable code. It is owned by the pipeline orchestrator and mutated only
// through state transitions; it is never deleted, only terminated.
type Workflow struct {
	ID            string        `json:"workflow_id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Description   string        `json:"description,omitempty" db:"description"`
	Prompt        string        `json:"original_prompt" db:"prompt"`
	InputType     InputType     `json:"input_type" db:"input_type"`
	Trigger       string        `json:"trigger" db:"trigger"`
	State         WorkflowState `json:"state" db:"state"`
	FailureReason FailureReason `json:"failure_reason,omitempty" db:"failure_reason"`
	RetryCount    int           `json:"retry_count" db:"retry_count"`
	LatestVersion int           `json:"latest_version" db:"latest_version"` // active artifact head
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
	Bindings      []ToolBinding `json:"bindings,omitempty"` // populated at runtime
}
