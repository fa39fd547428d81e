package models

import "time"

type Severity string

const (
	ErrorSeverity   Severity = "ERROR"
	WarningSeverity Severity = "WARNING"
)

type CheckStage string

const (
	SyntaxCheckStage    CheckStage = "syntax"
	CurrencyCheckStage  CheckStage = "currency"
	ReadinessCheckStage CheckStage = "readiness"
)

// Diagnostic is a single finding from a validation check. Line 0 means the
// finding applies to the whole file.
type Diagnostic struct {
	Stage    CheckStage `json:"stage" db:"stage"`
	Severity Severity   `json:"severity" db:"severity"`
	Line     int        `json:"line" db:"line"`
	Message  string     `json:"message" db:"message"`
}

// Suggestion is a non-blocking improvement hint surfaced alongside a report.
type Suggestion struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Example string `json:"example,omitempty"`
}

// ValidationReport is the immutable outcome of validating one artifact
// version. The verdict is PASS iff no ERROR-severity diagnostic exists.
type ValidationReport struct {
	ID              int64        `json:"id" db:"id"`
	WorkflowID      string       `json:"workflow_id" db:"workflow_id"`
	ArtifactVersion int          `json:"artifact_version" db:"artifact_version"`
	Valid           bool         `json:"is_valid" db:"is_valid"`
	Diagnostics     []Diagnostic `json:"validation_errors" db:"-"`
	Suggestions     []Suggestion `json:"suggestions" db:"-"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
}

// ErrorCount returns the number of ERROR-severity diagnostics.
func (r ValidationReport) ErrorCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == ErrorSeverity {
			n++
		}
	}
	return n
}
