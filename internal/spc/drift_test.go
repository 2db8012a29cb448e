package spc

import (
	"testing"

	"github.com/demml/scouter-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBound() models.FeatureBound {
	return models.FeatureBound{
		Center:     0,
		OneLower:   -1,
		OneUpper:   1,
		TwoLower:   -2,
		TwoUpper:   2,
		ThreeLower: -3,
		ThreeUpper: 3,
	}
}

func TestComputeDriftClassifiesZones(t *testing.T) {
	profile := models.SpcProfile{
		FeatureBounds: map[string]models.FeatureBound{"f1": testBound()},
	}
	matrix := [][]float64{{0.5}, {1.5}, {2.5}, {3.5}, {-3.5}}

	drift, err := ComputeDrift([]string{"f1"}, matrix, profile)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, -3}, drift.Zones["f1"])
}

func TestComputeDriftMissingBoundsErrors(t *testing.T) {
	profile := models.SpcProfile{FeatureBounds: map[string]models.FeatureBound{}}
	_, err := ComputeDrift([]string{"missing"}, [][]float64{{1.0}}, profile)
	assert.Error(t, err)
}

func TestGenerateAlertsFindsConsecutiveRun(t *testing.T) {
	matrix := DriftMatrix{
		Features: []string{"f1"},
		Zones:    map[string][]int{"f1": {0, 1, 1, 1, 1, 0}},
	}
	alerts, err := GenerateAlerts(matrix, []string{"f1"}, models.AlertRule{Rule: "1:4"})
	require.NoError(t, err)
	assert.True(t, alerts.HasAlerts)
	fa := alerts.Features["f1"]
	require.Len(t, fa.Alerts, 1)
	assert.Equal(t, "1", fa.Alerts[0].Zone)
	assert.Equal(t, "upper", fa.Alerts[0].Kind)
}

func TestGenerateAlertsNoRunNoAlert(t *testing.T) {
	matrix := DriftMatrix{
		Features: []string{"f1"},
		Zones:    map[string][]int{"f1": {0, 1, 0, 1, 0}},
	}
	alerts, err := GenerateAlerts(matrix, []string{"f1"}, models.AlertRule{Rule: "1:4"})
	require.NoError(t, err)
	assert.False(t, alerts.HasAlerts)
}

func TestGenerateAlertsMixedSignDoesNotCombine(t *testing.T) {
	matrix := DriftMatrix{
		Features: []string{"f1"},
		Zones:    map[string][]int{"f1": {1, 1, -1, -1}},
	}
	alerts, err := GenerateAlerts(matrix, []string{"f1"}, models.AlertRule{Rule: "1:3"})
	require.NoError(t, err)
	assert.False(t, alerts.HasAlerts)
}

func TestParseRuleFallsBackToDefault(t *testing.T) {
	assert.Equal(t, defaultRule, parseRule(""))
	assert.Equal(t, defaultRule, parseRule("garbage"))
	assert.Equal(t, defaultRule, parseRule("9:1"))
}

func TestDriftMatrixEmpty(t *testing.T) {
	assert.True(t, DriftMatrix{}.Empty())
	assert.True(t, DriftMatrix{Features: []string{"f1"}, Zones: map[string][]int{"f1": {}}}.Empty())
	assert.False(t, DriftMatrix{Features: []string{"f1"}, Zones: map[string][]int{"f1": {0}}}.Empty())
}
