package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"

	"github.com/demml/scouter-server/internal/models"
)

// ErrNoTaskDue is returned by ClaimDueProfile when no active profile's
// next_run has elapsed; the executor treats this as "sleep and retry"
// (spec.md §4.4, step 2).
var ErrNoTaskDue = errors.New("repository: no drift profile task is due")

// cronParser accepts the five-field schedules (spec.md §3.3 "schedule"),
// matching robfig/cron's ParseStandard grammar.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// UpsertProfile idempotently creates or replaces a monitored service+version's
// drift profile (spec.md §4.1 upsert_profile). A profile upsert always resets
// next_run to "now" so the new configuration is picked up on the next tick.
func (r *Repository) UpsertProfile(ctx context.Context, p models.DriftProfile) error {
	if _, err := cronParser.Parse(p.Schedule); err != nil {
		return fmt.Errorf("repository: invalid schedule %q: %w", p.Schedule, err)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO scouter.drift_profile
			(name, repository, version, profile_type, profile_json, schedule, previous_run, next_run, active)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now(), true)
		ON CONFLICT (name, repository, version) DO UPDATE SET
			profile_type = EXCLUDED.profile_type,
			profile_json = EXCLUDED.profile_json,
			schedule     = EXCLUDED.schedule,
			previous_run = now(),
			next_run     = now(),
			active       = true`,
		p.Name, p.Repository, p.Version, string(p.ProfileType), p.Profile, p.Schedule)
	if err != nil {
		return fmt.Errorf("repository: upsert profile: %w", err)
	}
	return nil
}

// ClaimDueProfile claims exactly one due, active profile within tx, locking
// the row so a concurrently-running executor instance cannot also claim it
// (spec.md §3.5, §4.1, §9 Design Note 1 and invariant 6: row-level
// FOR UPDATE SKIP LOCKED, no advisory locks, no in-process queue).
func ClaimDueProfile(ctx context.Context, tx pgx.Tx) (models.ProfileTask, error) {
	row := tx.QueryRow(ctx, `
		SELECT name, repository, version, profile_type, profile_json, schedule, previous_run, next_run
		FROM scouter.drift_profile
		WHERE active AND next_run <= now()
		ORDER BY next_run ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1`)

	var task models.ProfileTask
	var profileType string
	err := row.Scan(&task.Name, &task.Repository, &task.Version, &profileType,
		&task.Profile, &task.Schedule, &task.PreviousRun, &task.NextRun)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ProfileTask{}, ErrNoTaskDue
		}
		return models.ProfileTask{}, fmt.Errorf("repository: claim due profile: %w", err)
	}

	kind, err := models.ParseProfileKind(profileType)
	if err != nil {
		return models.ProfileTask{}, err
	}
	task.ProfileType = kind
	return task, nil
}

// AdvanceProfile sets previous_run = claimedNextRun (the due next_run that
// was just serviced) and recomputes next_run from the schedule, strictly
// after now (spec.md §4.1 advance_profile, §8 invariant 2: previous_run
// equals the prior next_run immediately after a successful tick). It is
// called unconditionally once a task has been claimed, regardless of
// whether drift computation or dispatch succeeded (spec.md §4.4 step 6 /
// §8 invariant 3: a failing tick still advances the schedule so a broken
// profile cannot wedge the queue).
func AdvanceProfile(ctx context.Context, tx pgx.Tx, id models.Identity, schedule string, claimedNextRun time.Time) error {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("repository: advance profile: invalid schedule %q: %w", schedule, err)
	}
	next := sched.Next(time.Now().UTC())

	_, err = tx.Exec(ctx, `
		UPDATE scouter.drift_profile
		SET previous_run = $1, next_run = $2
		WHERE name = $3 AND repository = $4 AND version = $5`,
		claimedNextRun, next, id.Name, id.Repository, id.Version)
	if err != nil {
		return fmt.Errorf("repository: advance profile: %w", err)
	}
	return nil
}

// BeginTx starts the transaction the executor claims and advances a task
// within (spec.md §4.4: one tick is one transaction).
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: begin tx: %w", err)
	}
	return tx, nil
}
