package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/mission"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// SubmitResponse is the response body for POST /api/v1/missions.
type SubmitResponse struct {
	RunID  types.ID `json:"run_id"`
	Status string   `json:"status"`
}

// MissionSummary is one row of GET /api/v1/missions.
type MissionSummary struct {
	RunID     types.ID         `json:"run_id"`
	Title     string           `json:"title"`
	RiskLevel string           `json:"risk_level"`
	Progress  mission.Progress `json:"progress"`
}

// MissionResponse is the response body for GET /api/v1/missions/:id.
type MissionResponse struct {
	RunID     types.ID          `json:"run_id"`
	Title     string            `json:"title"`
	Goal      string            `json:"goal"`
	RiskLevel string            `json:"risk_level"`
	Inputs    map[string]string `json:"inputs,omitempty"`
	Nodes     []NodeResponse    `json:"nodes"`
	Progress  mission.Progress  `json:"progress"`
	Complete  bool              `json:"complete"`
}

// NodeResponse is one node of a mission response.
type NodeResponse struct {
	StepID     string   `json:"step_id"`
	Capability string   `json:"capability"`
	TeamScope  string   `json:"team_scope,omitempty"`
	Deps       []string `json:"deps,omitempty"`
	Status     string   `json:"status"`
	Result     string   `json:"result,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ResolveRequest is the request body for POST /api/v1/approvals/:id.
type ResolveRequest struct {
	Approved bool   `json:"approved"`
	Reviewer string `json:"reviewer" validate:"required"`
	Comment  string `json:"comment"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth runs every registered health check.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(s.health))}
	code := http.StatusOK
	for name, checker := range s.health {
		if err := checker.Health(c.Request().Context()); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	return c.JSON(code, resp)
}

// handleSubmitMission accepts a mission definition, persists it, and starts
// the run in the background. The response carries the run ID; progress and
// events are polled separately.
func (s *Server) handleSubmitMission(c echo.Context) error {
	var def mission.Definition
	if err := c.Bind(&def); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	m, err := def.Build()
	if err != nil {
		return httpError(err)
	}
	if err := s.markActive(m.ID); err != nil {
		return httpError(err)
	}

	go func() {
		defer s.markDone(m.ID)
		// The run outlives the HTTP request on purpose.
		if _, err := s.orch.RunMission(context.Background(), m); err != nil {
			s.logger.Error("mission run failed", "run_id", m.ID, "error", err)
		}
	}()

	return c.JSON(http.StatusAccepted, SubmitResponse{RunID: m.ID, Status: "running"})
}

// handleResumeMission restarts a persisted run in the background.
func (s *Server) handleResumeMission(c echo.Context) error {
	runID, err := types.ParseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid run id")
	}

	// Fail fast on unknown runs before accepting the resume.
	if _, err := s.orch.Store().Load(c.Request().Context(), runID); err != nil {
		return httpError(err)
	}
	if err := s.markActive(runID); err != nil {
		return httpError(err)
	}

	go func() {
		defer s.markDone(runID)
		if _, err := s.orch.ResumeMission(context.Background(), runID); err != nil {
			s.logger.Error("mission resume failed", "run_id", runID, "error", err)
		}
	}()

	return c.JSON(http.StatusAccepted, SubmitResponse{RunID: runID, Status: "running"})
}

// handleListMissions returns a progress summary per persisted mission.
func (s *Server) handleListMissions(c echo.Context) error {
	missions, err := s.orch.Store().List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	summaries := make([]MissionSummary, 0, len(missions))
	for _, m := range missions {
		summaries = append(summaries, MissionSummary{
			RunID:     m.ID,
			Title:     m.Title,
			RiskLevel: string(m.RiskLevel),
			Progress:  m.Progress(),
		})
	}
	return c.JSON(http.StatusOK, summaries)
}

// handleGetMission returns the full mission with per-node status.
func (s *Server) handleGetMission(c echo.Context) error {
	runID, err := types.ParseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid run id")
	}

	m, err := s.orch.Store().Load(c.Request().Context(), runID)
	if err != nil {
		return httpError(err)
	}

	nodes := make([]NodeResponse, 0, len(m.Graph.Nodes))
	for _, node := range m.Graph.Nodes {
		nodes = append(nodes, NodeResponse{
			StepID:     node.StepID,
			Capability: node.Capability,
			TeamScope:  node.TeamScope,
			Deps:       node.Deps,
			Status:     string(node.Status),
			Result:     node.Result,
			Error:      node.Error,
		})
	}

	return c.JSON(http.StatusOK, MissionResponse{
		RunID:     m.ID,
		Title:     m.Title,
		Goal:      m.Goal,
		RiskLevel: string(m.RiskLevel),
		Inputs:    m.Inputs,
		Nodes:     nodes,
		Progress:  m.Progress(),
		Complete:  m.IsComplete(),
	})
}

// handleMissionEvents replays the run's event log in append order. Optional
// query parameters type and step filter the stream.
func (s *Server) handleMissionEvents(c echo.Context) error {
	runID, err := types.ParseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid run id")
	}

	events, err := s.orch.Replay(c.Request().Context(), runID)
	if err != nil {
		return httpError(err)
	}

	typeFilter := c.QueryParam("type")
	stepFilter := c.QueryParam("step")
	filtered := make([]*mission.Event, 0, len(events))
	for _, event := range events {
		if typeFilter != "" && string(event.Type) != typeFilter {
			continue
		}
		if stepFilter != "" && event.StepID != stepFilter {
			continue
		}
		filtered = append(filtered, event)
	}
	return c.JSON(http.StatusOK, filtered)
}

// handleListApprovals returns pending human-review escalations, oldest first.
func (s *Server) handleListApprovals(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orch.Approvals().Pending())
}

// handleResolveApproval records a human decision on an escalated artifact.
func (s *Server) handleResolveApproval(c echo.Context) error {
	approvalID, err := types.ParseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid approval id")
	}

	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Reviewer == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reviewer field is required")
	}

	approval, err := s.orch.Approvals().Resolve(c.Request().Context(), approvalID, req.Approved, req.Reviewer, req.Comment)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, approval)
}

// httpError maps domain error codes onto HTTP statuses.
func httpError(err error) error {
	var coreErr *types.CoreError
	if !errors.As(err, &coreErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	switch coreErr.Code {
	case types.MISSION_NOT_FOUND, types.APPROVAL_NOT_FOUND:
		return echo.NewHTTPError(http.StatusNotFound, coreErr.Message)
	case types.MISSION_INVALID, types.GRAPH_CYCLE, types.CONFIG_INVALID:
		return echo.NewHTTPError(http.StatusBadRequest, coreErr.Message)
	case types.RUN_ALREADY_ACTIVE:
		return echo.NewHTTPError(http.StatusConflict, coreErr.Message)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, coreErr.Message)
	}
}
