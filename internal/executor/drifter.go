// Package executor implements the Drift Executor (spec.md §4.4): the loop
// that claims due profiles, runs the profile's drift algorithm, dispatches
// and persists alerts, and advances the schedule.
package executor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/demml/scouter-server/internal/models"
	"github.com/demml/scouter-server/internal/spc"
)

// ErrUnsupportedDrifter is returned for a profile kind that parses but has
// no drift algorithm implemented yet (spec.md §3.3: PSI is a recognized,
// reserved ProfileKind with no executor support).
var ErrUnsupportedDrifter = errors.New("executor: unsupported profile kind")

// Drifter computes drift for one claimed task against the feature series
// the task identifies, returning the alerts to dispatch and persist.
type Drifter interface {
	// CheckForAlerts returns the per-feature alerts found for series,
	// organized as attribute maps ready for repository.InsertDriftAlert
	// (spec.md §4.4 step 4 / original_source's organize_alerts shape:
	// "zone", "kind", "feature" keys).
	CheckForAlerts(series map[string]models.FeatureSeries) ([]FeatureAlertAttrs, error)

	// FeaturesToMonitor names the features the caller should pass to
	// get_drift_records (spec.md §4.4 step 5).
	FeaturesToMonitor() []string
}

// FeatureAlertAttrs is one alert ready to dispatch and persist.
type FeatureAlertAttrs struct {
	Feature string
	Attrs   map[string]string
}

// NewDrifter constructs the Drifter for task.ProfileType, decoding the raw
// profile JSON as needed.
func NewDrifter(task models.ProfileTask) (Drifter, error) {
	switch task.ProfileType {
	case models.ProfileKindSPC:
		var profile models.SpcProfile
		if err := json.Unmarshal(task.Profile, &profile); err != nil {
			return nil, fmt.Errorf("executor: decode spc profile: %w", err)
		}
		return &SpcDrifter{profile: profile}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDrifter, task.ProfileType)
	}
}

// SpcDrifter runs the statistical-process-control drift algorithm
// (original_source/src/alerts/spc/drift.rs SpcDrifter, reimplemented
// against package spc rather than translated).
type SpcDrifter struct {
	profile models.SpcProfile
}

// CheckForAlerts asserts every monitored feature's series has equal length
// (spec.md §3.5 / §8 invariant 4: the repository layer already enforces
// this at read time, so a mismatch here means a caller bypassed it), builds
// the drift matrix, and evaluates the profile's alert rule. An empty drift
// matrix (no observations for any monitored feature) yields no alerts
// without error (spec.md §8 invariant 8).
func (d *SpcDrifter) CheckForAlerts(series map[string]models.FeatureSeries) ([]FeatureAlertAttrs, error) {
	features := d.FeaturesToMonitor()

	rowCount := -1
	for _, f := range features {
		s := series[f] // a feature with no records counts as length 0
		if rowCount == -1 {
			rowCount = len(s.Values)
		} else if len(s.Values) != rowCount {
			return nil, fmt.Errorf("executor: feature %q has %d values, want %d: series have different lengths", f, len(s.Values), rowCount)
		}
	}
	if rowCount <= 0 {
		return nil, nil
	}

	matrix := make([][]float64, rowCount)
	for row := 0; row < rowCount; row++ {
		matrix[row] = make([]float64, len(features))
		for col, f := range features {
			matrix[row][col] = series[f].Values[row]
		}
	}

	drift, err := spc.ComputeDrift(features, matrix, d.profile)
	if err != nil {
		return nil, fmt.Errorf("executor: compute drift: %w", err)
	}
	if drift.Empty() {
		return nil, nil
	}

	alerts, err := spc.GenerateAlerts(drift, features, d.profile.AlertRule)
	if err != nil {
		return nil, fmt.Errorf("executor: generate alerts: %w", err)
	}
	if !alerts.HasAlerts {
		return nil, nil
	}

	var out []FeatureAlertAttrs
	for _, feature := range features {
		fa := alerts.Features[feature]
		for _, a := range fa.Alerts {
			out = append(out, FeatureAlertAttrs{
				Feature: feature,
				Attrs: map[string]string{
					"zone":    a.Zone,
					"kind":    a.Kind,
					"feature": feature,
				},
			})
		}
	}
	return out, nil
}

// FeaturesToMonitor returns the profile's configured feature list, falling
// back to every feature with a baseline bound when the profile doesn't
// restrict monitoring to a subset.
func (d *SpcDrifter) FeaturesToMonitor() []string {
	if len(d.profile.FeaturesToMonitor) > 0 {
		return d.profile.FeaturesToMonitor
	}
	features := make([]string, 0, len(d.profile.FeatureBounds))
	for f := range d.profile.FeatureBounds {
		features = append(features, f)
	}
	return features
}
