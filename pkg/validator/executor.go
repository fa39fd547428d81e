package validator

import "context"

// ExecResult is the outcome of one sandboxed run.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor runs candidate code in an isolated sandbox. Implementations must
// honor context cancellation; the validator bounds every call with a timeout.
type Executor interface {
	Run(ctx context.Context, code string) (ExecResult, error)
}
