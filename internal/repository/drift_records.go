package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/demml/scouter-server/internal/models"
)

// InsertDriftRecord persists one observation (spec.md §4.1 insert_drift_record).
func (r *Repository) InsertDriftRecord(ctx context.Context, rec models.DriftRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO scouter.drift (created_at, name, repository, version, feature, value)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.CreatedAt, rec.Name, rec.Repository, rec.Version, rec.Feature, rec.Value)
	if err != nil {
		return fmt.Errorf("repository: insert drift record: %w", err)
	}
	return nil
}

// InsertObservabilityRecord persists one observability record (spec.md §4.1
// insert_observability_record).
func (r *Repository) InsertObservabilityRecord(ctx context.Context, rec models.ObservabilityRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO scouter.observability
			(created_at, name, repository, version, request_count, error_count, route_metrics_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.CreatedAt, rec.Name, rec.Repository, rec.Version, rec.RequestCount, rec.ErrorCount, rec.RouteMetrics)
	if err != nil {
		return fmt.Errorf("repository: insert observability record: %w", err)
	}
	return nil
}

// ErrShapeViolation is returned by GetDriftRecords when the underlying raw
// data is ragged and the engine's padding strategy still can't produce
// equal-length series (spec.md §3.5, §4.1, §9 Open Question).
type ErrShapeViolation struct {
	Feature string
	Want    int
	Got     int
}

func (e *ErrShapeViolation) Error() string {
	return fmt.Sprintf("repository: feature %q has %d values, want %d (ragged series)", e.Feature, e.Got, e.Want)
}

// GetDriftRecords returns every monitored feature's raw values and
// timestamps since the given lower bound, optionally restricted to
// `features`. All returned series share length: the longest series sets
// the target length and shorter ones are padded by repeating their last
// observation, per the Design Notes §9 Open Question resolution (pad
// rather than silently truncate; refuse if a series has zero observations
// to pad from while others are non-empty).
func (r *Repository) GetDriftRecords(ctx context.Context, id models.Identity, since time.Time, features []string) (models.DriftRecordsResult, error) {
	query := `
		SELECT feature, value, created_at
		FROM scouter.drift
		WHERE name = $1 AND repository = $2 AND version = $3 AND created_at > $4`
	args := []interface{}{id.Name, id.Repository, id.Version, since}
	if len(features) > 0 {
		query += " AND feature = ANY($5)"
		args = append(args, features)
	}
	query += " ORDER BY feature, created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return models.DriftRecordsResult{}, fmt.Errorf("repository: get drift records: %w", err)
	}
	defer rows.Close()

	series := make(map[string]*models.FeatureSeries)
	order := make([]string, 0)
	for rows.Next() {
		var feature string
		var value float64
		var createdAt time.Time
		if err := rows.Scan(&feature, &value, &createdAt); err != nil {
			return models.DriftRecordsResult{}, fmt.Errorf("repository: scan drift record: %w", err)
		}
		s, ok := series[feature]
		if !ok {
			s = &models.FeatureSeries{}
			series[feature] = s
			order = append(order, feature)
		}
		s.Values = append(s.Values, value)
		s.Timestamps = append(s.Timestamps, createdAt)
	}
	if err := rows.Err(); err != nil {
		return models.DriftRecordsResult{}, fmt.Errorf("repository: iterate drift records: %w", err)
	}

	maxLen := 0
	for _, s := range series {
		if len(s.Values) > maxLen {
			maxLen = len(s.Values)
		}
	}
	if maxLen > 0 {
		for _, feature := range features {
			if _, ok := series[feature]; !ok {
				return models.DriftRecordsResult{}, &ErrShapeViolation{Feature: feature, Want: maxLen, Got: 0}
			}
		}
	}
	out := make(map[string]models.FeatureSeries, len(series))
	for _, feature := range order {
		s := series[feature]
		if len(s.Values) < maxLen {
			if len(s.Values) == 0 {
				return models.DriftRecordsResult{}, &ErrShapeViolation{Feature: feature, Want: maxLen, Got: 0}
			}
			padValue := s.Values[len(s.Values)-1]
			padTime := s.Timestamps[len(s.Timestamps)-1]
			for len(s.Values) < maxLen {
				s.Values = append(s.Values, padValue)
				s.Timestamps = append(s.Timestamps, padTime)
			}
		}
		out[feature] = *s
	}
	return models.DriftRecordsResult{Features: out}, nil
}

// timeWindowMinutes maps the /drift time_window query values to minutes,
// per spec.md §6.
var timeWindowMinutes = map[string]int{
	"5minute":  5,
	"15minute": 15,
	"30minute": 30,
	"1hour":    60,
	"3hour":    180,
	"6hour":    360,
	"12hour":   720,
	"24hour":   1440,
	"2day":     2880,
	"5day":     7200,
}

// TimeWindowMinutes exposes the mapping for handlers/tests.
func TimeWindowMinutes(window string) (int, bool) {
	m, ok := timeWindowMinutes[window]
	return m, ok
}

// GetBinnedDriftRecords returns per-feature time-bucketed averages over the
// given window, capped at maxPoints buckets (spec.md §4.1
// get_binned_drift_records), using Postgres's date_bin the way
// original_source/src/sql/postgres.rs computes its aggregation subquery.
func (r *Repository) GetBinnedDriftRecords(ctx context.Context, id models.Identity, windowMinutes, maxPoints int) (models.BinnedDriftRecordsResult, error) {
	if maxPoints <= 0 {
		maxPoints = 1
	}
	binMinutes := float64(windowMinutes) / float64(maxPoints)
	if binMinutes <= 0 {
		binMinutes = 1
	}

	rows, err := r.db.Query(ctx, `
		SELECT
			feature,
			date_bin(($1 || ' minutes')::interval, created_at, TIMESTAMP '1970-01-01') AS bucket,
			avg(value) AS value
		FROM scouter.drift
		WHERE name = $2 AND repository = $3 AND version = $4
			AND created_at > now() - ($5 || ' minutes')::interval
		GROUP BY feature, bucket
		ORDER BY feature, bucket ASC`,
		fmt.Sprintf("%f", binMinutes), id.Name, id.Repository, id.Version, windowMinutes)
	if err != nil {
		return models.BinnedDriftRecordsResult{}, fmt.Errorf("repository: get binned drift records: %w", err)
	}
	defer rows.Close()

	out := models.BinnedDriftRecordsResult{Features: make(map[string][]models.BinnedPoint)}
	for rows.Next() {
		var feature string
		var bucket time.Time
		var value float64
		if err := rows.Scan(&feature, &bucket, &value); err != nil {
			return models.BinnedDriftRecordsResult{}, fmt.Errorf("repository: scan binned record: %w", err)
		}
		out.Features[feature] = append(out.Features[feature], models.BinnedPoint{Timestamp: bucket, Value: value})
	}
	if err := rows.Err(); err != nil {
		return models.BinnedDriftRecordsResult{}, fmt.Errorf("repository: iterate binned records: %w", err)
	}
	return out, nil
}
