package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/demml/scouter-server/internal/models"
)

// InsertDriftAlert appends one alert row within tx (spec.md §4.1
// insert_drift_alert). Called once per feature alert the drifter produced;
// a failure here is logged by the caller and does not roll back the tick
// (spec.md §4.4 step 5, §8 invariant 3).
func InsertDriftAlert(ctx context.Context, tx pgx.Tx, id models.Identity, feature string, attrs map[string]string) error {
	attrsJSON, err := marshalAttrs(attrs)
	if err != nil {
		return fmt.Errorf("repository: insert drift alert: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO scouter.drift_alerts (name, repository, version, feature, attrs_json, active)
		VALUES ($1, $2, $3, $4, $5, true)`,
		id.Name, id.Repository, id.Version, feature, attrsJSON)
	if err != nil {
		return fmt.Errorf("repository: insert drift alert: %w", err)
	}
	return nil
}

// GetDriftAlerts returns alerts matching filter, newest first, capped at
// filter.Limit rows (spec.md §4.1 get_drift_alerts).
func (r *Repository) GetDriftAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, created_at, name, repository, version, feature, attrs_json, active
		FROM scouter.drift_alerts
		WHERE name = $1 AND repository = $2 AND version = $3`
	args := []interface{}{filter.Name, filter.Repository, filter.Version}

	if filter.HasSince {
		args = append(args, filter.SinceTimestamp)
		query += fmt.Sprintf(" AND created_at > $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(" AND active = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: get drift alerts: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		var attrsJSON []byte
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.Identity.Name, &a.Identity.Repository, &a.Identity.Version,
			&a.Feature, &attrsJSON, &a.Active); err != nil {
			return nil, fmt.Errorf("repository: scan drift alert: %w", err)
		}
		attrs, err := unmarshalAttrs(attrsJSON)
		if err != nil {
			return nil, fmt.Errorf("repository: decode alert attrs: %w", err)
		}
		a.Attrs = attrs
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: iterate drift alerts: %w", err)
	}
	return out, nil
}
