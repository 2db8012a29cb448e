// Package spc implements the statistical-process-control drift math the
// executor depends on (spec.md §3.4). It stands in for the external SPC
// library the core is specified to call but never define: ComputeDrift
// classifies each observation into a zone around its feature's baseline
// center, and GenerateAlerts scans each feature's zone sequence for
// violations of its alert rule.
package spc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/demml/scouter-server/internal/models"
)

// Zone identifies how many standard deviations an observation fell from its
// feature's baseline center, and on which side.
type Zone int

const (
	ZoneNone  Zone = 0
	ZoneOne   Zone = 1
	ZoneTwo   Zone = 2
	ZoneThree Zone = 3
)

func (z Zone) String() string {
	return strconv.Itoa(int(z))
}

// DriftMatrix is a column-major (per feature) series of zone classifications,
// one row per observation, aligned with Features.
type DriftMatrix struct {
	Features []string
	// Zones[feature][observation] is the signed zone: positive above center,
	// negative below, 0 within one sigma.
	Zones map[string][]int
}

// Empty reports whether the matrix carries no observations for any feature.
func (m DriftMatrix) Empty() bool {
	if len(m.Features) == 0 {
		return true
	}
	for _, f := range m.Features {
		if len(m.Zones[f]) > 0 {
			return false
		}
	}
	return true
}

// ComputeDrift classifies every value in matrix (rows=observations,
// cols=features, ordered per `features`) into a signed SPC zone relative to
// the profile's per-feature baseline bounds.
func ComputeDrift(features []string, matrix [][]float64, profile models.SpcProfile) (DriftMatrix, error) {
	out := DriftMatrix{Features: features, Zones: make(map[string][]int, len(features))}
	for col, feature := range features {
		bound, ok := profile.FeatureBounds[feature]
		if !ok {
			return DriftMatrix{}, fmt.Errorf("spc: no baseline bounds for feature %q", feature)
		}
		zones := make([]int, len(matrix))
		for row, observation := range matrix {
			if col >= len(observation) {
				return DriftMatrix{}, fmt.Errorf("spc: row %d missing column for feature %q", row, feature)
			}
			zones[row] = classify(observation[col], bound)
		}
		out.Zones[feature] = zones
	}
	return out, nil
}

// classify returns the signed zone of value relative to bound: positive
// zones are above center, negative below, magnitude is the sigma band
// (1, 2 or 3); 0 means within one sigma of center.
func classify(value float64, bound models.FeatureBound) int {
	switch {
	case value >= bound.ThreeUpper:
		return 3
	case value >= bound.TwoUpper:
		return 2
	case value >= bound.OneUpper:
		return 1
	case value <= bound.ThreeLower:
		return -3
	case value <= bound.TwoLower:
		return -2
	case value <= bound.OneLower:
		return -1
	default:
		return 0
	}
}

// Alert is a single zone violation found for a feature.
type Alert struct {
	Zone string
	Kind string
}

// FeatureAlert bundles the alerts found for one feature.
type FeatureAlert struct {
	Feature string
	Alerts  []Alert
}

// FeatureAlerts is the result of GenerateAlerts: HasAlerts is true iff any
// feature produced at least one Alert.
type FeatureAlerts struct {
	HasAlerts bool
	Features  map[string]FeatureAlert
}

// ruleThreshold is one "N consecutive points at or beyond zone Z" clause.
type ruleThreshold struct {
	zone  int
	count int
}

// defaultRule mirrors the classic Western-Electric zone rules: 1 point
// beyond 3 sigma, 2 of 3 beyond 2 sigma, 4 of 5 beyond 1 sigma. We
// approximate "2 of 3" / "4 of 5" as "consecutive" for simplicity, matching
// the spec's single `alert_rule` string contract rather than a windowed
// rule language.
var defaultRule = []ruleThreshold{
	{zone: 3, count: 1},
	{zone: 2, count: 2},
	{zone: 1, count: 4},
}

// parseRule parses a rule string of the form "zone:count,zone:count", e.g.
// "3:1,2:2,1:4". An empty or unparsable rule falls back to defaultRule.
func parseRule(rule string) []ruleThreshold {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return defaultRule
	}
	clauses := strings.Split(rule, ",")
	out := make([]ruleThreshold, 0, len(clauses))
	for _, clause := range clauses {
		parts := strings.SplitN(strings.TrimSpace(clause), ":", 2)
		if len(parts) != 2 {
			return defaultRule
		}
		zone, err1 := strconv.Atoi(parts[0])
		count, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || zone < 1 || zone > 3 || count < 1 {
			return defaultRule
		}
		out = append(out, ruleThreshold{zone: zone, count: count})
	}
	if len(out) == 0 {
		return defaultRule
	}
	return out
}

// GenerateAlerts scans each feature's zone sequence for runs of consecutive
// observations at or beyond a rule threshold's zone, on the same side of
// center.
func GenerateAlerts(matrix DriftMatrix, features []string, rule models.AlertRule) (FeatureAlerts, error) {
	thresholds := parseRule(rule.Rule)
	result := FeatureAlerts{Features: make(map[string]FeatureAlert, len(features))}

	for _, feature := range features {
		zones, ok := matrix.Zones[feature]
		if !ok {
			return FeatureAlerts{}, fmt.Errorf("spc: drift matrix missing feature %q", feature)
		}
		fa := FeatureAlert{Feature: feature}
		for _, th := range thresholds {
			if alert, found := findRun(zones, th); found {
				fa.Alerts = append(fa.Alerts, alert)
			}
		}
		if len(fa.Alerts) > 0 {
			result.HasAlerts = true
		}
		result.Features[feature] = fa
	}
	return result, nil
}

// findRun looks for `count` consecutive observations whose zone magnitude
// is >= th.zone and whose sign agrees, reporting the first such run.
func findRun(zones []int, th ruleThreshold) (Alert, bool) {
	run := 0
	sign := 0
	for _, z := range zones {
		mag := z
		s := 1
		if mag < 0 {
			mag = -mag
			s = -1
		}
		if mag >= th.zone && (run == 0 || s == sign) {
			run++
			sign = s
		} else if mag >= th.zone {
			// Crossed to the other side of center: this observation starts
			// a new run.
			run = 1
			sign = s
		} else {
			run = 0
			sign = 0
		}
		if run >= th.count {
			kind := "upper"
			if sign < 0 {
				kind = "lower"
			}
			return Alert{Zone: strconv.Itoa(th.zone), Kind: kind}, true
		}
	}
	return Alert{}, false
}
