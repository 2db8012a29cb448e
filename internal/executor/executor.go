package executor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/demml/scouter-server/internal/alerts"
	"github.com/demml/scouter-server/internal/models"
	"github.com/demml/scouter-server/internal/repository"
)

// idlePollInterval is how long the executor sleeps after finding no due
// profile (original_source/src/alerts/base.rs poll_for_tasks: 10 seconds).
const idlePollInterval = 10 * time.Second

// Executor runs the claim/compute/dispatch/advance loop for one worker slot.
// Multiple Executors may run concurrently against the same database; the
// row-level lock in repository.ClaimDueProfile is what makes that safe
// (spec.md §3.5, §8 invariant 6).
type Executor struct {
	repo *repository.Repository
	log  *slog.Logger
}

// New builds an Executor. Per-profile dispatcher resolution happens inside
// Tick via alerts.Resolve, keyed off each profile's alert_dispatch_type.
func New(repo *repository.Repository, log *slog.Logger) *Executor {
	return &Executor{repo: repo, log: log}
}

// Run repeatedly calls Tick until ctx is cancelled, sleeping between idle
// polls.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := e.Tick(ctx)
		if errors.Is(err, repository.ErrNoTaskDue) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idlePollInterval):
			}
			continue
		}
		if err != nil {
			e.log.Error("drift tick failed", "error", err)
		}
	}
}

// Tick runs exactly one claim/compute/dispatch/advance cycle inside a single
// transaction (spec.md §4.4). Steps 3-5 (decode, compute, dispatch+persist)
// are best-effort: their errors are logged but never abort the tick, because
// the schedule must advance regardless (spec.md §8 invariant 3) — otherwise
// a single malformed profile would wedge the queue forever.
func (e *Executor) Tick(ctx context.Context) error {
	tx, err := e.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	task, err := repository.ClaimDueProfile(ctx, tx)
	if err != nil {
		if errors.Is(err, repository.ErrNoTaskDue) {
			return repository.ErrNoTaskDue
		}
		return err
	}

	id := task.Identity
	e.processTask(ctx, tx, task)

	if err := repository.AdvanceProfile(ctx, tx, id, task.Schedule, task.NextRun); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// processTask runs the drift algorithm and dispatches/persists any alerts
// found. Every failure path here is logged, not returned, by design: the
// caller always advances the schedule afterward.
func (e *Executor) processTask(ctx context.Context, tx pgx.Tx, task models.ProfileTask) {
	drifter, err := NewDrifter(task)
	if err != nil {
		e.log.Error("could not construct drifter", "name", task.Name, "repository", task.Repository, "version", task.Version, "error", err)
		return
	}

	series, err := e.repo.GetDriftRecords(ctx, task.Identity, task.PreviousRun, drifter.FeaturesToMonitor())
	if err != nil {
		e.log.Error("could not read drift records", "name", task.Name, "error", err)
		return
	}

	found, err := drifter.CheckForAlerts(series.Features)
	if err != nil {
		e.log.Error("drift computation failed", "name", task.Name, "error", err)
		return
	}
	if len(found) == 0 {
		return
	}

	dispatcher, err := e.resolveDispatcher(task)
	if err != nil {
		e.log.Warn("falling back to console dispatcher", "name", task.Name, "error", err)
		dispatcher = alerts.NewConsoleDispatcher(e.log)
	}

	for _, a := range found {
		if err := dispatcher.Dispatch(ctx, task.Identity, a.Feature, a.Attrs); err != nil {
			e.log.Error("alert dispatch failed", "name", task.Name, "feature", a.Feature, "error", err)
		}
		if err := repository.InsertDriftAlert(ctx, tx, task.Identity, a.Feature, a.Attrs); err != nil {
			e.log.Error("alert persistence failed", "name", task.Name, "feature", a.Feature, "error", err)
		}
	}
}

func (e *Executor) resolveDispatcher(task models.ProfileTask) (alerts.Dispatcher, error) {
	var profile models.SpcProfile
	if err := json.Unmarshal(task.Profile, &profile); err != nil {
		return nil, err
	}
	return alerts.Resolve(profile.AlertDispatchType)
}
