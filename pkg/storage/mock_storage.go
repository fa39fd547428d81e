package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

// mockStore implements storage.Store with in-memory storage
type mockStore struct {
	mu        sync.Mutex
	workflows map[string]models.Workflow
	artifacts map[string][]models.Artifact
	bindings  map[string][]models.ToolBinding
	reports   []models.ValidationReport
	nextRepID int64
}

func NewMockStore() Store {
	return &mockStore{
		workflows: make(map[string]models.Workflow),
		artifacts: make(map[string][]models.Artifact),
		bindings:  make(map[string][]models.ToolBinding),
	}
}

// Begin returns the store itself: the mock applies writes directly and
// Commit/Rollback are no-ops.
func (m *mockStore) Begin() (Store, error) { return m, nil }
func (m *mockStore) Commit() error         { return nil }
func (m *mockStore) Rollback() error       { return nil }
func (m *mockStore) Close() error          { return nil }

func (m *mockStore) SaveWorkflow(wf models.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[wf.ID]; ok {
		return errors.New("workflow already exists")
	}
	m.workflows[wf.ID] = wf
	return nil
}

func (m *mockStore) GetWorkflow(id string) (models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return models.Workflow{}, ErrNotFound
	}
	wf.Bindings = append([]models.ToolBinding(nil), m.bindings[id]...)
	return wf, nil
}

func (m *mockStore) ListWorkflows() ([]models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Workflow, 0, len(m.workflows))
	for _, wf := range m.workflows {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) UpdateWorkflowState(id string, state models.WorkflowState, reason models.FailureReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return ErrNotFound
	}
	wf.State = state
	wf.FailureReason = reason
	wf.UpdatedAt = time.Now()
	m.workflows[id] = wf
	return nil
}

func (m *mockStore) UpdateWorkflowProgress(id string, retryCount, latestVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return ErrNotFound
	}
	wf.RetryCount = retryCount
	wf.LatestVersion = latestVersion
	wf.UpdatedAt = time.Now()
	m.workflows[id] = wf
	return nil
}

func (m *mockStore) UpdateWorkflowTrigger(id string, trigger string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return ErrNotFound
	}
	wf.Trigger = trigger
	wf.UpdatedAt = time.Now()
	m.workflows[id] = wf
	return nil
}

func (m *mockStore) SaveArtifact(a models.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.artifacts[a.WorkflowID] {
		if existing.Version == a.Version {
			return errors.Errorf("artifact version %d already exists", a.Version)
		}
	}
	m.artifacts[a.WorkflowID] = append(m.artifacts[a.WorkflowID], a)
	return nil
}

func (m *mockStore) GetArtifact(workflowID string, version int) (models.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.artifacts[workflowID] {
		if a.Version == version {
			return a, nil
		}
	}
	return models.Artifact{}, ErrNotFound
}

func (m *mockStore) LatestArtifact(workflowID string) (models.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	arts := m.artifacts[workflowID]
	if len(arts) == 0 {
		return models.Artifact{}, ErrNotFound
	}
	latest := arts[0]
	for _, a := range arts[1:] {
		if a.Version > latest.Version {
			latest = a
		}
	}
	return latest, nil
}

func (m *mockStore) FindArtifactByFingerprint(workflowID, fingerprint string) (models.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.artifacts[workflowID] {
		if a.Fingerprint != "" && a.Fingerprint == fingerprint {
			return a, nil
		}
	}
	return models.Artifact{}, ErrNotFound
}

func (m *mockStore) ReplaceBindings(workflowID string, bindings []models.ToolBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[workflowID] = append([]models.ToolBinding(nil), bindings...)
	return nil
}

func (m *mockStore) GetBindings(workflowID string) ([]models.ToolBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ToolBinding(nil), m.bindings[workflowID]...), nil
}

func (m *mockStore) SaveReport(r models.ValidationReport) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRepID++
	r.ID = m.nextRepID
	m.reports = append(m.reports, r)
	return r.ID, nil
}

func (m *mockStore) GetReports(workflowID string, artifactVersion int) ([]models.ValidationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ValidationReport
	for _, r := range m.reports {
		if r.WorkflowID == workflowID && r.ArtifactVersion == artifactVersion {
			out = append(out, r)
		}
	}
	return out, nil
}
