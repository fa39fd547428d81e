// Package http exposes the pipeline over a JSON REST API.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Abzali8806/Cue-MVP-api/pkg/binder"
	"github.com/Abzali8806/Cue-MVP-api/pkg/intent"
	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
	"github.com/Abzali8806/Cue-MVP-api/pkg/pipeline"
	"github.com/Abzali8806/Cue-MVP-api/pkg/storage"
	"github.com/Abzali8806/Cue-MVP-api/pkg/validator"
)

// Server wires the pipeline service into an Echo instance.
type Server struct {
	svc    *pipeline.Service
	logger pipeline.Logger
	echo   *echo.Echo
}

func NewServer(svc *pipeline.Service, logger pipeline.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{svc: svc, logger: logger, echo: e}

	e.GET("/health", s.health)

	v1 := e.Group("/api/v1")
	v1.POST("/workflows/generate", s.generate)
	v1.POST("/workflows/:id/credentials", s.bindCredentials)
	v1.POST("/validate", s.validate)
	v1.POST("/validate/syntax-check", s.syntaxCheck)
	v1.GET("/validation-rules", s.validationRules)
	v1.GET("/workflows", s.listWorkflows)
	v1.GET("/workflows/:id", s.getWorkflow)

	return s
}

// Echo returns the underlying Echo instance for serving and testing.
func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

type generateRequest struct {
	Prompt    string           `json:"prompt"`
	InputType models.InputType `json:"input_type"`
}

type generateResponse struct {
	WorkflowID    string               `json:"workflow_id"`
	Name          string               `json:"name"`
	State         models.WorkflowState `json:"state"`
	GeneratedCode string               `json:"generated_code"`
	Version       int                  `json:"version"`
	Placeholders  []string             `json:"placeholders,omitempty"`
	Tools         []models.ToolBinding `json:"identified_tools"`
	Nodes         []models.Node        `json:"nodes"`
}

func (s *Server) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.svc.Generate(c.Request().Context(), req.Prompt, req.InputType)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, generateResponse{
		WorkflowID:    res.Workflow.ID,
		Name:          res.Workflow.Name,
		State:         res.Workflow.State,
		GeneratedCode: res.Skeleton.Source,
		Version:       res.Skeleton.Version,
		Placeholders:  res.Skeleton.Placeholders,
		Tools:         res.Bindings,
		Nodes:         res.Nodes,
	})
}

type bindRequest struct {
	Credentials models.CredentialSet `json:"credentials"`
}

type bindResponse struct {
	WorkflowID  string                   `json:"workflow_id"`
	State       models.WorkflowState     `json:"state"`
	Version     int                      `json:"version"`
	Code        string                   `json:"updated_code"`
	Report      *models.ValidationReport `json:"validation_report,omitempty"`
	Regenerated *regeneratedSkeleton     `json:"regenerated_skeleton,omitempty"`
}

type regeneratedSkeleton struct {
	Version      int      `json:"version"`
	Code         string   `json:"code"`
	Placeholders []string `json:"placeholders"`
}

func (s *Server) bindCredentials(c echo.Context) error {
	var req bindRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.svc.BindCredentials(c.Request().Context(), c.Param("id"), req.Credentials)
	if err != nil {
		return s.mapError(err)
	}
	resp := bindResponse{
		WorkflowID: res.Workflow.ID,
		State:      res.Workflow.State,
		Version:    res.Artifact.Version,
		Code:       res.Artifact.Source,
		Report:     res.Report,
	}
	if res.Regenerated != nil {
		resp.Regenerated = &regeneratedSkeleton{
			Version:      res.Regenerated.Version,
			Code:         res.Regenerated.Source,
			Placeholders: res.Regenerated.Placeholders,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type validateRequest struct {
	Code  string `json:"code_to_validate"`
	Stage string `json:"validation_stage"`
}

func (s *Server) validate(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	report, err := s.svc.ValidateCode(c.Request().Context(), req.Code, req.Stage)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, report)
}

type syntaxCheckRequest struct {
	Code string `json:"code"`
}

// syntaxCheck gives quick syntax-only feedback without touching storage.
func (s *Server) syntaxCheck(c echo.Context) error {
	var req syntaxCheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	diags := s.svc.SyntaxCheck(req.Code)
	if diags == nil {
		diags = []models.Diagnostic{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"is_valid":      len(diags) == 0,
		"syntax_errors": diags,
	})
}

func (s *Server) validationRules(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.ValidationRules())
}

func (s *Server) listWorkflows(c echo.Context) error {
	workflows, err := s.svc.ListWorkflows()
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"workflows": workflows})
}

type workflowDetail struct {
	models.Workflow
	LatestCode string                    `json:"latest_code,omitempty"`
	Reports    []models.ValidationReport `json:"validation_reports,omitempty"`
}

func (s *Server) getWorkflow(c echo.Context) error {
	id := c.Param("id")
	wf, err := s.svc.GetWorkflow(id)
	if err != nil {
		return s.mapError(err)
	}
	detail := workflowDetail{Workflow: wf}
	if art, err := s.svc.LatestArtifact(id); err == nil {
		detail.LatestCode = art.Source
		if reports, err := s.svc.Reports(id, art.Version); err == nil {
			detail.Reports = reports
		}
	}
	return c.JSON(http.StatusOK, detail)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// mapError translates pipeline errors to HTTP status codes. Unrecognized
// errors surface as 500 without leaking internals.
func (s *Server) mapError(err error) error {
	var inputErr *pipeline.InputError
	var missingErr *binder.MissingError
	var genErr *pipeline.GenerationError
	switch {
	case errors.As(err, &inputErr):
		return echo.NewHTTPError(http.StatusBadRequest, inputErr.Msg)
	case errors.As(err, &missingErr):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"message": "missing credentials for required placeholders",
			"missing": missingErr.Missing,
		})
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	case errors.Is(err, pipeline.ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, "another stage is in progress for this workflow")
	case errors.Is(err, pipeline.ErrTerminal):
		return echo.NewHTTPError(http.StatusConflict, "workflow is in a terminal state")
	case errors.As(err, &genErr):
		if genErr.Reason == models.UpstreamUnavailableFailure {
			return echo.NewHTTPError(http.StatusBadGateway, genErr.Error())
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, genErr.Error())
	case errors.Is(err, intent.ErrUnavailable), errors.Is(err, validator.ErrSandboxUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "upstream service unavailable")
	default:
		s.logger.Errorf("Unhandled error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
