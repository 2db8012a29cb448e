// Package models holds the data types shared by the storage engine, the
// ingest codec, and the drift executor.
package models

import (
	"encoding/json"
	"time"
)

// DriftRecord is a single per-feature observation emitted by a monitored
// inference service.
type DriftRecord struct {
	CreatedAt  time.Time `json:"created_at"`
	Repository string    `json:"repository"`
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	Feature    string    `json:"feature"`
	Value      float64   `json:"value"`
}

// ObservabilityRecord carries request/error counts for a service+version,
// routed through the same ingest pipeline as DriftRecord but stored in a
// separate table.
type ObservabilityRecord struct {
	CreatedAt    time.Time `json:"created_at"`
	Repository   string    `json:"repository"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	RequestCount int64     `json:"request_count"`
	ErrorCount   int64     `json:"error_count"`
	RouteMetrics json.RawMessage `json:"route_metrics"` // opaque JSON blob
}

// ProfileKind is the closed sum type for a drift profile's algorithm family.
// Unimplemented kinds are valid values (they parse) but executing them
// returns a typed unsupported error rather than a panic.
type ProfileKind string

const (
	ProfileKindSPC                 ProfileKind = "SPC"
	ProfileKindPSI                 ProfileKind = "PSI"
	ProfileKindObservabilityMetric ProfileKind = "OBSERVABILITY"
)

// ParseProfileKind maps the stored profile_type tag to a ProfileKind.
// An unrecognized tag is an error, never a silent default.
func ParseProfileKind(tag string) (ProfileKind, error) {
	switch ProfileKind(tag) {
	case ProfileKindSPC:
		return ProfileKindSPC, nil
	case ProfileKindPSI:
		return ProfileKindPSI, nil
	case ProfileKindObservabilityMetric:
		return ProfileKindObservabilityMetric, nil
	default:
		return "", &UnknownProfileKindError{Tag: tag}
	}
}

// UnknownProfileKindError is returned when profile_type doesn't parse to a
// known kind, violating the §3.3 invariant.
type UnknownProfileKindError struct {
	Tag string
}

func (e *UnknownProfileKindError) Error() string {
	return "unknown profile_type: " + e.Tag
}

// Identity is the (repository, name, version) tuple that uniquely
// identifies a monitored service+version across profiles, records, and
// alerts.
type Identity struct {
	Repository string
	Name       string
	Version    string
}

// FeatureBound holds the SPC zone boundaries for one feature around its
// baseline center.
type FeatureBound struct {
	Center   float64 `json:"center"`
	OneLower float64 `json:"one_lower"`
	OneUpper float64 `json:"one_upper"`
	TwoLower float64 `json:"two_lower"`
	TwoUpper float64 `json:"two_upper"`
	ThreeLower float64 `json:"three_lower"`
	ThreeUpper float64 `json:"three_upper"`
}

// SpcProfile is the decoded `profile` blob for profile_type "SPC": the
// per-feature baseline, sampling config, and alerting configuration.
type SpcProfile struct {
	FeatureBounds     map[string]FeatureBound `json:"features"`
	SampleSize        int                     `json:"sample_size"`
	SampleRate        float64                 `json:"sample_rate"`
	FeaturesToMonitor []string                `json:"features_to_monitor"`
	AlertRule         AlertRule               `json:"alert_rule"`
	AlertDispatchType string                  `json:"alert_dispatch_type"`
}

// AlertRule configures how many consecutive same-side observations at or
// beyond each SPC zone constitute an alert for a feature. Rule evaluation
// lives in package spc.
type AlertRule struct {
	Rule string `json:"rule"`
}

// DriftProfile is the persisted configuration + schedule for one monitored
// service+version (spec.md §3.3).
type DriftProfile struct {
	Identity
	ProfileType ProfileKind `json:"profile_type"`
	Profile     []byte      `json:"profile"` // raw JSON, decoded per ProfileType
	Schedule    string      `json:"schedule"`
	PreviousRun time.Time   `json:"previous_run"`
	NextRun     time.Time   `json:"next_run"`
	Active      bool        `json:"active"`
}

// ProfileTask is the row returned by a successful claim: the identity, the
// decoded timing state, and the raw profile payload the executor still
// needs to decode per ProfileType.
type ProfileTask struct {
	Identity
	ProfileType ProfileKind
	Profile     []byte
	Schedule    string
	PreviousRun time.Time
	NextRun     time.Time
}

// Alert is one durable row written to drift_alerts after a tick that found
// drift for a feature.
type Alert struct {
	ID         int64             `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	Identity   Identity          `json:"identity"`
	Feature    string            `json:"feature"`
	Attrs      map[string]string `json:"attrs"`
	Active     bool              `json:"active"`
}

// AlertFilter selects which alerts get_drift_alerts returns.
type AlertFilter struct {
	Identity
	SinceTimestamp time.Time
	HasSince       bool
	Active         *bool
	Limit          int
}

// FeatureSeries is one feature's values and their timestamps, returned by
// get_drift_records. All feature series in a single response share length
// (§3.5 shape invariant / §8 invariant 4).
type FeatureSeries struct {
	Values     []float64   `json:"values"`
	Timestamps []time.Time `json:"timestamps"`
}

// DriftRecordsResult is the shape returned by get_drift_records.
type DriftRecordsResult struct {
	Features map[string]FeatureSeries `json:"features"`
}

// BinnedPoint is one time-bucketed average for a feature.
type BinnedPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// BinnedDriftRecordsResult is the shape returned by get_binned_drift_records.
type BinnedDriftRecordsResult struct {
	Features map[string][]BinnedPoint `json:"features"`
}
