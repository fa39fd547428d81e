// Package pipeline owns the workflow lifecycle: generation, credential
// binding, validation and the bounded regeneration loop. It is the sole
// entry point the boundary layer calls into; the extractor, resolver,
// synthesizer, binder and validator are pure over their inputs, and all
// shared-state mutation goes through this package's per-workflow lock.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Abzali8806/Cue-MVP-api/pkg/binder"
	"github.com/Abzali8806/Cue-MVP-api/pkg/catalog"
	"github.com/Abzali8806/Cue-MVP-api/pkg/intent"
	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
	"github.com/Abzali8806/Cue-MVP-api/pkg/resolver"
	"github.com/Abzali8806/Cue-MVP-api/pkg/storage"
	"github.com/Abzali8806/Cue-MVP-api/pkg/synth"
	"github.com/Abzali8806/Cue-MVP-api/pkg/validator"
)

// Logger defines the logging interface for the pipeline service.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Config carries the orchestrator tunables.
type Config struct {
	RetryBudget         int           // bounded regeneration attempts
	ConfidenceThreshold float64       // below this the resolver turns conservative
	StageTimeout        time.Duration // bound on any single stage, external calls included
	RegenBackoff        time.Duration // initial spacing between regeneration attempts
}

// Service drives the generation -> binding -> validation -> regeneration
// state machine. Multiple workflows are processed concurrently; each
// workflow's own stage sequence is strictly serialized.
type Service struct {
	store     storage.Store
	extractor intent.Extractor
	resolver  *resolver.Resolver
	synth     *synth.Synthesizer
	binder    *binder.Binder
	validator *validator.Validator
	cfg       Config
	logger    Logger
	locks     *lockTable
	sleep     func(ctx context.Context, d time.Duration) error // test hook
}

func NewService(store storage.Store, extractor intent.Extractor, cat *catalog.Catalog, v *validator.Validator, cfg Config, logger Logger) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		resolver:  resolver.New(cat, cfg.ConfidenceThreshold),
		synth:     synth.New(),
		binder:    binder.New(),
		validator: v,
		cfg:       cfg,
		logger:    logger,
		locks:     newLockTable(),
		sleep:     sleepCtx,
	}
}

// GenerateResult is the outcome of a successful generation stage.
type GenerateResult struct {
	Workflow models.Workflow
	Skeleton models.Artifact
	Bindings []models.ToolBinding
	Nodes    []models.Node
}

// BindResult is the outcome of a credential binding attempt and the
// validation that follows it. Regenerated is set when validation failed and
// a fresh skeleton was produced; the caller must re-supply credentials for
// it.
type BindResult struct {
	Workflow    models.Workflow
	Artifact    models.Artifact
	Report      *models.ValidationReport
	Regenerated *models.Artifact
}

// Generate runs prompt -> intent -> bindings -> skeleton v0 and moves the
// workflow to SKELETON_READY. Any stage failure terminates the workflow in
// FAILED with the originating reason; a malformed prompt is not retried.
func (s *Service) Generate(ctx context.Context, prompt string, inputType models.InputType) (GenerateResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return GenerateResult{}, &InputError{Msg: "prompt cannot be empty"}
	}
	if len(prompt) > 5000 {
		return GenerateResult{}, &InputError{Msg: "prompt too long (max 5000 characters)"}
	}
	switch inputType {
	case "":
		inputType = models.TextInputType
	case models.TextInputType, models.TranscriptInputType:
	default:
		return GenerateResult{}, &InputError{Msg: fmt.Sprintf("unknown input type %q", inputType)}
	}

	now := time.Now()
	wf := models.Workflow{
		ID:          uuid.New().String(),
		Name:        nameFromPrompt(prompt),
		Description: describe(prompt),
		Prompt:      prompt,
		InputType:   inputType,
		Trigger:     "manual",
		State:       models.CreatedWorkflowState,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.withTx(func(tx storage.Store) error { return tx.SaveWorkflow(wf) }); err != nil {
		return GenerateResult{}, err
	}

	if !s.locks.tryAcquire(wf.ID) {
		return GenerateResult{}, ErrBusy
	}
	defer s.locks.release(wf.ID)

	stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()

	in, err := s.extractor.Extract(stageCtx, prompt, inputType)
	if err != nil {
		s.markFailed(wf.ID, models.UpstreamUnavailableFailure)
		return GenerateResult{}, &GenerationError{Reason: models.UpstreamUnavailableFailure, Step: -1, Err: err}
	}
	if in.Confidence < s.cfg.ConfidenceThreshold {
		s.logger.Infof("Workflow %s: low extraction confidence %.2f, resolver will use conservative defaults", wf.ID, in.Confidence)
	}

	bindings, err := s.resolver.Resolve(wf.ID, in)
	if err != nil {
		step := -1
		var noMatch *resolver.NoMatchError
		if errors.As(err, &noMatch) {
			step = noMatch.Step
		}
		s.markFailed(wf.ID, models.NoToolMatchFailure)
		return GenerateResult{}, &GenerationError{Reason: models.NoToolMatchFailure, Step: step, Err: err}
	}

	skeleton := s.synth.Render(bindings, in.Trigger, nil)
	art := models.Artifact{
		WorkflowID:   wf.ID,
		Version:      0,
		Kind:         models.SkeletonArtifactKind,
		Source:       skeleton.Source,
		Placeholders: skeleton.Placeholders,
		CreatedAt:    time.Now(),
	}

	err = s.withTx(func(tx storage.Store) error {
		if err := tx.UpdateWorkflowTrigger(wf.ID, in.Trigger); err != nil {
			return err
		}
		if err := tx.ReplaceBindings(wf.ID, bindings); err != nil {
			return err
		}
		if err := tx.SaveArtifact(art); err != nil {
			return err
		}
		return tx.UpdateWorkflowState(wf.ID, models.SkeletonReadyWorkflowState, "")
	})
	if err != nil {
		s.markFailed(wf.ID, models.SynthesisFailedFailure)
		return GenerateResult{}, &GenerationError{Reason: models.SynthesisFailedFailure, Step: -1, Err: err}
	}

	wf.Trigger = in.Trigger
	wf.State = models.SkeletonReadyWorkflowState
	wf.Bindings = bindings
	s.logger.Infof("Workflow %s: skeleton v0 ready with %d bindings", wf.ID, len(bindings))
	return GenerateResult{Workflow: wf, Skeleton: art, Bindings: bindings, Nodes: Nodes(in.Trigger, bindings)}, nil
}

// BindCredentials merges the credential set into the latest skeleton and
// runs validation. A missing-placeholder failure leaves the workflow in
// SKELETON_READY so the caller can resubmit corrected credentials. On a
// failed validation with retry budget left, a fresh skeleton is synthesized
// with the diagnostics as hints and the prior credentials are discarded.
func (s *Service) BindCredentials(ctx context.Context, workflowID string, creds models.CredentialSet) (BindResult, error) {
	if workflowID == "" {
		return BindResult{}, &InputError{Msg: "workflow id is required"}
	}
	if len(creds) == 0 {
		return BindResult{}, &InputError{Msg: "credentials cannot be empty"}
	}

	if !s.locks.tryAcquire(workflowID) {
		return BindResult{}, ErrBusy
	}
	defer s.locks.release(workflowID)

	wf, err := s.store.GetWorkflow(workflowID)
	if err != nil {
		return BindResult{}, err
	}

	if wf.State != models.SkeletonReadyWorkflowState {
		return s.rebindOrReject(ctx, wf, creds)
	}

	skeleton, err := s.store.GetArtifact(workflowID, wf.LatestVersion)
	if err != nil {
		return BindResult{}, err
	}

	res, err := s.binder.Bind(skeleton, creds)
	if err != nil {
		// All-or-nothing: no artifact version was created and the
		// workflow still awaits credentials.
		return BindResult{}, err
	}

	bound := models.Artifact{
		WorkflowID:  workflowID,
		Version:     skeleton.Version + 1,
		Kind:        models.CredentialedArtifactKind,
		Source:      res.Source,
		Fingerprint: res.Fingerprint,
		CreatedAt:   time.Now(),
	}
	err = s.withTx(func(tx storage.Store) error {
		if err := tx.SaveArtifact(bound); err != nil {
			return err
		}
		if err := tx.UpdateWorkflowProgress(workflowID, wf.RetryCount, bound.Version); err != nil {
			return err
		}
		return tx.UpdateWorkflowState(workflowID, models.CredentialsBoundWorkflowState, "")
	})
	if err != nil {
		return BindResult{}, err
	}
	wf.State = models.CredentialsBoundWorkflowState
	wf.LatestVersion = bound.Version
	s.logger.Infof("Workflow %s: credentials bound into artifact v%d", workflowID, bound.Version)

	return s.validate(ctx, wf, bound)
}

// rebindOrReject handles a bind request against a workflow that is not
// awaiting credentials. Resubmitting the exact same credential set against
// an already-bound skeleton is idempotent and returns the existing artifact;
// anything else is rejected.
func (s *Service) rebindOrReject(ctx context.Context, wf models.Workflow, creds models.CredentialSet) (BindResult, error) {
	if wf.LatestVersion > 0 {
		if skeleton, err := s.store.GetArtifact(wf.ID, wf.LatestVersion-1); err == nil && skeleton.Kind == models.SkeletonArtifactKind {
			fp := binder.Fingerprint(skeleton.Version, skeleton.Placeholders, creds)
			if existing, err := s.store.FindArtifactByFingerprint(wf.ID, fp); err == nil {
				if wf.State == models.CredentialsBoundWorkflowState || wf.State == models.ValidatingWorkflowState {
					// A prior validation attempt never produced a verdict
					// for this artifact; resume it.
					return s.validate(ctx, wf, existing)
				}
				s.logger.Infof("Workflow %s: idempotent credential resubmission for artifact v%d", wf.ID, existing.Version)
				return BindResult{Workflow: wf, Artifact: existing}, nil
			}
		}
	}
	if wf.State.Terminal() {
		return BindResult{}, ErrTerminal
	}
	return BindResult{}, &InputError{Msg: fmt.Sprintf("workflow is not awaiting credentials (state %s)", wf.State)}
}

// validate runs the validation stage for a freshly bound artifact and
// drives the verdict: VALID, a regenerated skeleton, or terminal FAILED
// once the retry budget is exhausted.
func (s *Service) validate(ctx context.Context, wf models.Workflow, artifact models.Artifact) (BindResult, error) {
	if err := s.transition(wf.ID, models.ValidatingWorkflowState); err != nil {
		return BindResult{}, err
	}

	stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()

	report, err := s.validator.Validate(stageCtx, artifact.Source, artifact.Kind)
	if err != nil {
		// The stage failed without producing a verdict. Nothing was
		// committed; the bound artifact stays the head and validation can
		// be retried by resubmitting.
		if terr := s.transition(wf.ID, models.CredentialsBoundWorkflowState); terr != nil {
			s.logger.Errorf("Workflow %s: failed to restore state after validation error: %v", wf.ID, terr)
		}
		return BindResult{}, errors.Wrap(err, "validation stage failed")
	}
	report.WorkflowID = wf.ID
	report.ArtifactVersion = artifact.Version

	if err := s.withTx(func(tx storage.Store) error {
		id, err := tx.SaveReport(report)
		report.ID = id
		return err
	}); err != nil {
		return BindResult{}, err
	}

	if report.Valid {
		if err := s.transition(wf.ID, models.ValidWorkflowState); err != nil {
			return BindResult{}, err
		}
		wf.State = models.ValidWorkflowState
		s.logger.Infof("Workflow %s: artifact v%d validated, workflow complete", wf.ID, artifact.Version)
		return BindResult{Workflow: wf, Artifact: artifact, Report: &report}, nil
	}

	if wf.RetryCount >= s.cfg.RetryBudget {
		s.markFailed(wf.ID, models.RetryExhaustedFailure)
		wf.State = models.FailedWorkflowState
		wf.FailureReason = models.RetryExhaustedFailure
		s.logger.Infof("Workflow %s: retry budget of %d exhausted, terminal failure", wf.ID, s.cfg.RetryBudget)
		return BindResult{Workflow: wf, Artifact: artifact, Report: &report}, nil
	}

	return s.regenerate(ctx, wf, artifact, report)
}

// regenerate synthesizes a fresh skeleton carrying the failed report's
// diagnostics as hints. The prior credential set is discarded: placeholders
// may differ on the new skeleton.
func (s *Service) regenerate(ctx context.Context, wf models.Workflow, artifact models.Artifact, report models.ValidationReport) (BindResult, error) {
	wf.RetryCount++
	if err := s.sleep(ctx, s.regenDelay(wf.RetryCount)); err != nil {
		return BindResult{}, err
	}

	bindings, err := s.store.GetBindings(wf.ID)
	if err != nil {
		return BindResult{}, err
	}

	skeleton := s.synth.Render(bindings, wf.Trigger, report.Diagnostics)
	regen := models.Artifact{
		WorkflowID:   wf.ID,
		Version:      artifact.Version + 1,
		Kind:         models.SkeletonArtifactKind,
		Source:       skeleton.Source,
		Placeholders: skeleton.Placeholders,
		CreatedAt:    time.Now(),
	}
	err = s.withTx(func(tx storage.Store) error {
		if err := tx.SaveArtifact(regen); err != nil {
			return err
		}
		if err := tx.UpdateWorkflowProgress(wf.ID, wf.RetryCount, regen.Version); err != nil {
			return err
		}
		return tx.UpdateWorkflowState(wf.ID, models.SkeletonReadyWorkflowState, "")
	})
	if err != nil {
		return BindResult{}, err
	}
	wf.State = models.SkeletonReadyWorkflowState
	wf.LatestVersion = regen.Version
	s.logger.Infof("Workflow %s: regenerated skeleton v%d (attempt %d/%d)", wf.ID, regen.Version, wf.RetryCount, s.cfg.RetryBudget)
	return BindResult{Workflow: wf, Artifact: artifact, Report: &report, Regenerated: &regen}, nil
}

// ValidateCode validates standalone code outside any workflow. The stage
// selects which artifact kind semantics apply.
func (s *Service) ValidateCode(ctx context.Context, code, stage string) (models.ValidationReport, error) {
	if strings.TrimSpace(code) == "" {
		return models.ValidationReport{}, &InputError{Msg: "code_to_validate cannot be empty"}
	}
	kind := models.SkeletonArtifactKind
	switch stage {
	case "", "initial_skeleton":
	case "final_with_credentials":
		kind = models.CredentialedArtifactKind
	default:
		return models.ValidationReport{}, &InputError{Msg: fmt.Sprintf("unknown validation stage %q", stage)}
	}
	stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()
	return s.validator.Validate(stageCtx, code, kind)
}

// SyntaxCheck runs the syntax stage alone against standalone code.
func (s *Service) SyntaxCheck(code string) []models.Diagnostic {
	return validator.CheckSyntax(code)
}

// ValidationRules exposes the active validation rule set.
func (s *Service) ValidationRules() map[string][]string {
	return validator.Rules()
}

// GetWorkflow fetches a workflow with its bindings.
func (s *Service) GetWorkflow(workflowID string) (models.Workflow, error) {
	return s.store.GetWorkflow(workflowID)
}

func (s *Service) ListWorkflows() ([]models.Workflow, error) {
	return s.store.ListWorkflows()
}

// LatestArtifact returns the active artifact head for a workflow.
func (s *Service) LatestArtifact(workflowID string) (models.Artifact, error) {
	return s.store.LatestArtifact(workflowID)
}

// Reports returns the validation history for one artifact version.
func (s *Service) Reports(workflowID string, artifactVersion int) ([]models.ValidationReport, error) {
	return s.store.GetReports(workflowID, artifactVersion)
}

// Nodes builds the visualization graph for a resolved binding set.
func Nodes(trigger string, bindings []models.ToolBinding) []models.Node {
	nodes := []models.Node{{
		ID:       "start",
		Type:     "trigger",
		Label:    trigger,
		Position: models.NodePosition{X: 100, Y: 100},
	}}
	for i, b := range bindings {
		nodes = append(nodes, models.Node{
			ID:       fmt.Sprintf("tool_%d", i),
			Type:     "action",
			Label:    b.ToolName,
			Position: models.NodePosition{X: 100 + i*200, Y: 200},
		})
	}
	nodes = append(nodes, models.Node{
		ID:       "end",
		Type:     "end",
		Label:    "End",
		Position: models.NodePosition{X: 100, Y: 300},
	})
	return nodes
}

func (s *Service) transition(id string, state models.WorkflowState) error {
	return s.withTx(func(tx storage.Store) error {
		return tx.UpdateWorkflowState(id, state, "")
	})
}

func (s *Service) markFailed(id string, reason models.FailureReason) {
	err := s.withTx(func(tx storage.Store) error {
		return tx.UpdateWorkflowState(id, models.FailedWorkflowState, reason)
	})
	if err != nil {
		s.logger.Errorf("Workflow %s: failed to record terminal failure %s: %v", id, reason, err)
	}
}

func (s *Service) withTx(fn func(storage.Store) error) (err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()
	err = fn(txStore)
	return err
}

// regenDelay computes the spacing before regeneration attempt n.
func (s *Service) regenDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RegenBackoff
	b.RandomizationFactor = 0
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nameFromPrompt(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) > 5 {
		words = words[:5]
	}
	name := strings.Join(words, " ")
	if len(name) > 50 {
		name = name[:47] + "..."
	}
	if name == "" {
		name = "Untitled Workflow"
	}
	return name
}

func describe(prompt string) string {
	if len(prompt) > 200 {
		return prompt[:200] + "..."
	}
	return prompt
}
