package mission

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

const sampleDefinition = `
title: release readiness review
goal: assess the v2 release candidate
risk_level: medium
inputs:
  branch: release/v2
steps:
  - id: research
    capability: analysis
    team: core
  - id: report
    capability: writing
    deps: [research]
`

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mission.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition(writeDefinition(t, sampleDefinition))
	require.NoError(t, err)

	assert.Equal(t, "release readiness review", def.Title)
	assert.Equal(t, "medium", def.RiskLevel)
	require.Len(t, def.Steps, 2)
	assert.Equal(t, []string{"research"}, def.Steps[1].Deps)
}

func TestParseDefinitionErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ParseDefinition(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Equal(t, types.MISSION_INVALID, types.CodeOf(err))
	})

	t.Run("missing title", func(t *testing.T) {
		_, err := ParseDefinition(writeDefinition(t, `
steps:
  - id: a
    capability: x
`))
		require.Error(t, err)
	})

	t.Run("bad risk level", func(t *testing.T) {
		_, err := ParseDefinition(writeDefinition(t, `
title: m
risk_level: extreme
steps:
  - id: a
    capability: x
`))
		require.Error(t, err)
	})

	t.Run("duplicate step ids", func(t *testing.T) {
		_, err := ParseDefinition(writeDefinition(t, `
title: m
steps:
  - id: a
    capability: x
  - id: a
    capability: y
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})
}

func TestDefinitionBuild(t *testing.T) {
	def, err := ParseDefinition(writeDefinition(t, sampleDefinition))
	require.NoError(t, err)

	m, err := def.Build()
	require.NoError(t, err)
	assert.False(t, m.ID.IsZero())
	assert.Equal(t, RiskLevelMedium, m.RiskLevel)
	assert.Equal(t, "release/v2", m.Inputs["branch"])
	require.NotNil(t, m.Node("report"))
	assert.Equal(t, "research", m.Node("report").ParentID())
}

func TestDefinitionBuildDefaultsRiskLow(t *testing.T) {
	def := &Definition{
		Title: "m",
		Steps: []StepDefinition{{ID: "a", Capability: "x"}},
	}
	m, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, RiskLevelLow, m.RiskLevel)
}
