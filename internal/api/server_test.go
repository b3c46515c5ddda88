package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/config"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/critic"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/mission"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/orchestrator"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/specialist"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

func testServer(t *testing.T) (*Server, *orchestrator.Orchestrator) {
	t.Helper()

	store, err := mission.NewFileStore(t.TempDir())
	require.NoError(t, err)

	registry := specialist.NewRegistry()
	require.NoError(t, registry.Register(&specialist.Func{
		SpecialistName: "stub",
		Serves:         []string{specialist.CapabilityAny},
		Fn: func(ctx context.Context, task specialist.TaskContext) (*specialist.Contribution, error) {
			return &specialist.Contribution{
				Response:   "a complete and consistent artifact",
				Confidence: 0.8,
			}, nil
		},
	}))

	orch := orchestrator.New(store, store,
		specialist.NewCoordinator(registry),
		critic.NewWhiteGate(critic.NewAdversarialCritic(), critic.NewRiskCritic()),
	)

	server, err := NewServer(orch, config.DefaultConfig().Server, nil, nil)
	require.NoError(t, err)
	return server, orch
}

func doJSON(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

const submitBody = `{
  "title": "release review",
  "goal": "assess the candidate",
  "risk_level": "low",
  "steps": [
    {"id": "research", "capability": "analysis"},
    {"id": "report", "capability": "writing", "deps": ["research"]}
  ]
}`

func TestSubmitMissionRunsToCompletion(t *testing.T) {
	server, orch := testServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/missions", submitBody)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var submitted SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.False(t, submitted.RunID.IsZero())

	// The run executes in the background; wait for terminal state.
	require.Eventually(t, func() bool {
		m, err := orch.Store().Load(context.Background(), submitted.RunID)
		return err == nil && m.IsComplete()
	}, 5*time.Second, 20*time.Millisecond)

	rec = doJSON(t, server, http.MethodGet, "/api/v1/missions/"+submitted.RunID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got MissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Complete)
	assert.Equal(t, 2, got.Progress.Succeeded)
}

func TestSubmitMissionRejectsInvalidDefinition(t *testing.T) {
	server, _ := testServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/missions",
		`{"title": "m", "steps": [{"id": "a", "capability": "x", "deps": ["ghost"]}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMissionNotFound(t *testing.T) {
	server, _ := testServer(t)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/missions/"+types.NewID().String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissionEventsFilter(t *testing.T) {
	server, orch := testServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/missions", submitBody)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	require.Eventually(t, func() bool {
		m, err := orch.Store().Load(context.Background(), submitted.RunID)
		return err == nil && m.IsComplete()
	}, 5*time.Second, 20*time.Millisecond)

	base := fmt.Sprintf("/api/v1/missions/%s/events", submitted.RunID)

	rec = doJSON(t, server, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []*mission.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 4, "start and complete per step")

	rec = doJSON(t, server, http.MethodGet, base+"?type=start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var starts []*mission.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &starts))
	assert.Len(t, starts, 2)

	rec = doJSON(t, server, http.MethodGet, base+"?step=report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reportOnly []*mission.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reportOnly))
	assert.Len(t, reportOnly, 2)
	for _, event := range reportOnly {
		assert.Equal(t, "report", event.StepID)
	}
}

func TestApprovalsEndpoints(t *testing.T) {
	server, _ := testServer(t)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/approvals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = doJSON(t, server, http.MethodPost, "/api/v1/approvals/"+types.NewID().String(),
		`{"approved": true, "reviewer": "alex"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/api/v1/approvals/"+types.NewID().String(),
		`{"approved": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "reviewer is required")
}

type failingChecker struct{}

func (failingChecker) Health(ctx context.Context) error { return errors.New("connection refused") }

type okChecker struct{}

func (okChecker) Health(ctx context.Context) error { return nil }

func TestHealthEndpoint(t *testing.T) {
	server, orch := testServer(t)
	server.health = map[string]HealthChecker{"store": okChecker{}}
	_ = orch

	rec := doJSON(t, server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	server.health["broken"] = failingChecker{}
	rec = doJSON(t, server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "ok", resp.Checks["store"])
}
