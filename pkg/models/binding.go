package models

type ResolutionMethod string

const (
	ExplicitResolution        ResolutionMethod = "EXPLICIT"
	InferredDefaultResolution ResolutionMethod = "INFERRED_DEFAULT"
)

// ToolBinding maps one workflow step to a concrete external tool.
type ToolBinding struct {
	WorkflowID     string           `json:"workflow_id" db:"workflow_id"`
	StepIndex      int              `json:"step_index" db:"step_index"`
	Action         string           `json:"action" db:"action"`
	ToolName       string           `json:"tool_name" db:"tool_name"`
	CredentialKeys []string         `json:"credentials_needed" db:"-"`
	Confidence     float64          `json:"confidence" db:"confidence"`
	Method         ResolutionMethod `json:"method" db:"method"`
}

// CredentialSet maps placeholder names to secret values for one binding
// attempt. It is consumed by the credential binder and never persisted.
type CredentialSet map[string]string
