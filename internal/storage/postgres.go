package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
	"github.com/Abzali8806/Cue-MVP-api/pkg/storage"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

// SaveWorkflow inserts a new workflow row.
func (s *PostgresStore) SaveWorkflow(w models.Workflow) error {
	_, err := s.db.Exec(`
		INSERT INTO workflows (id, name, description, prompt, input_type, trigger, state, failure_reason, retry_count, latest_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		w.ID, w.Name, w.Description, w.Prompt, w.InputType, w.Trigger, w.State, w.FailureReason,
		w.RetryCount, w.LatestVersion, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID, including its tool bindings.
func (s *PostgresStore) GetWorkflow(id string) (models.Workflow, error) {
	var wf models.Workflow
	err := s.db.Get(&wf, "SELECT * FROM workflows WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Workflow{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Workflow{}, err
	}

	bindings, err := s.GetBindings(id)
	if err != nil {
		return models.Workflow{}, fmt.Errorf("get workflow %s: %w", id, err)
	}
	wf.Bindings = bindings
	return wf, nil
}

func (s *PostgresStore) ListWorkflows() ([]models.Workflow, error) {
	workflows := []models.Workflow{}
	query := "SELECT * FROM workflows ORDER BY created_at DESC"
	if err := s.db.Select(&workflows, query); err != nil {
		return nil, err
	}
	return workflows, nil
}

// UpdateWorkflowState updates the lifecycle state and failure reason of a workflow.
func (s *PostgresStore) UpdateWorkflowState(id string, state models.WorkflowState, reason models.FailureReason) error {
	res, err := s.db.Exec("UPDATE workflows SET state = $1, failure_reason = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3",
		state, reason, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// UpdateWorkflowProgress updates the retry counter and active artifact head.
func (s *PostgresStore) UpdateWorkflowProgress(id string, retryCount, latestVersion int) error {
	res, err := s.db.Exec("UPDATE workflows SET retry_count = $1, latest_version = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3",
		retryCount, latestVersion, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// UpdateWorkflowTrigger records the trigger identified during extraction.
func (s *PostgresStore) UpdateWorkflowTrigger(id string, trigger string) error {
	res, err := s.db.Exec("UPDATE workflows SET trigger = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2", trigger, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// SaveArtifact inserts a new artifact version. Rows are never updated.
func (s *PostgresStore) SaveArtifact(a models.Artifact) error {
	_, err := s.db.Exec(`
		INSERT INTO artifacts (workflow_id, version, kind, source, placeholders, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.WorkflowID, a.Version, a.Kind, a.Source, pq.StringArray(a.Placeholders), a.Fingerprint, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("save artifact v%d: %w", a.Version, err)
	}
	return nil
}

func (s *PostgresStore) GetArtifact(workflowID string, version int) (models.Artifact, error) {
	return s.artifactBy("SELECT * FROM artifacts WHERE workflow_id = $1 AND version = $2", workflowID, version)
}

func (s *PostgresStore) LatestArtifact(workflowID string) (models.Artifact, error) {
	return s.artifactBy("SELECT * FROM artifacts WHERE workflow_id = $1 ORDER BY version DESC LIMIT 1", workflowID)
}

func (s *PostgresStore) FindArtifactByFingerprint(workflowID, fingerprint string) (models.Artifact, error) {
	return s.artifactBy("SELECT * FROM artifacts WHERE workflow_id = $1 AND fingerprint = $2 AND fingerprint <> '' ORDER BY version LIMIT 1", workflowID, fingerprint)
}

func (s *PostgresStore) artifactBy(query string, args ...interface{}) (models.Artifact, error) {
	var row struct {
		models.Artifact
		DBPlaceholders pq.StringArray `db:"placeholders"`
	}
	err := s.db.Get(&row, query, args...)
	if err == sql.ErrNoRows {
		return models.Artifact{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Artifact{}, err
	}
	art := row.Artifact
	art.Placeholders = []string(row.DBPlaceholders)
	return art, nil
}

// ReplaceBindings swaps the full binding set for a workflow. Bindings are
// replaced wholesale on each (re)generation.
func (s *PostgresStore) ReplaceBindings(workflowID string, bindings []models.ToolBinding) error {
	if _, err := s.db.Exec("DELETE FROM tool_bindings WHERE workflow_id = $1", workflowID); err != nil {
		return err
	}
	for _, b := range bindings {
		_, err := s.db.Exec(`
			INSERT INTO tool_bindings (workflow_id, step_index, action, tool_name, credential_keys, confidence, method)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			workflowID, b.StepIndex, b.Action, b.ToolName, pq.StringArray(b.CredentialKeys), b.Confidence, b.Method)
		if err != nil {
			return fmt.Errorf("save binding step %d: %w", b.StepIndex, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetBindings(workflowID string) ([]models.ToolBinding, error) {
	var rows []struct {
		models.ToolBinding
		DBKeys pq.StringArray `db:"credential_keys"`
	}
	err := s.db.Select(&rows, "SELECT * FROM tool_bindings WHERE workflow_id = $1 ORDER BY step_index", workflowID)
	if err != nil {
		return nil, err
	}
	bindings := make([]models.ToolBinding, len(rows))
	for i, r := range rows {
		bindings[i] = r.ToolBinding
		bindings[i].CredentialKeys = []string(r.DBKeys)
	}
	return bindings, nil
}

// SaveReport appends a validation report for an artifact version. Diagnostics
// and suggestions are stored as JSON documents.
func (s *PostgresStore) SaveReport(r models.ValidationReport) (int64, error) {
	diags, err := json.Marshal(r.Diagnostics)
	if err != nil {
		return 0, err
	}
	suggs, err := json.Marshal(r.Suggestions)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRowx(`
		INSERT INTO validation_reports (workflow_id, artifact_version, is_valid, diagnostics, suggestions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		r.WorkflowID, r.ArtifactVersion, r.Valid, diags, suggs, r.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save report: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetReports(workflowID string, artifactVersion int) ([]models.ValidationReport, error) {
	var rows []struct {
		models.ValidationReport
		DBDiagnostics []byte `db:"diagnostics"`
		DBSuggestions []byte `db:"suggestions"`
	}
	err := s.db.Select(&rows, `
		SELECT * FROM validation_reports
		WHERE workflow_id = $1 AND artifact_version = $2 ORDER BY id`,
		workflowID, artifactVersion)
	if err != nil {
		return nil, err
	}
	reports := make([]models.ValidationReport, len(rows))
	for i, row := range rows {
		reports[i] = row.ValidationReport
		if err := json.Unmarshal(row.DBDiagnostics, &reports[i].Diagnostics); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(row.DBSuggestions, &reports[i].Suggestions); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
