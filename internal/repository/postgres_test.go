package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/demml/scouter-server/internal/models"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithDB(mock), mock
}

func TestInsertDriftRecord(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := models.DriftRecord{
		CreatedAt: time.Now(), Name: "fraud-model", Repository: "ds-team", Version: "1.0.0",
		Feature: "amount", Value: 12.5,
	}
	mock.ExpectExec("INSERT INTO scouter.drift").
		WithArgs(rec.CreatedAt, rec.Name, rec.Repository, rec.Version, rec.Feature, rec.Value).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.InsertDriftRecord(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDriftRecordsPadsShortSeries(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	rows := pgxmock.NewRows([]string{"feature", "value", "created_at"}).
		AddRow("amount", 1.0, now).
		AddRow("amount", 2.0, now.Add(time.Minute)).
		AddRow("age", 30.0, now)

	mock.ExpectQuery("SELECT feature, value, created_at").
		WillReturnRows(rows)

	result, err := repo.GetDriftRecords(context.Background(), models.Identity{Name: "m", Repository: "r", Version: "v"}, now.Add(-time.Hour), nil)
	require.NoError(t, err)
	require.Len(t, result.Features["amount"].Values, 2)
	require.Len(t, result.Features["age"].Values, 2)
	require.Equal(t, 30.0, result.Features["age"].Values[1])
}

func TestUpsertProfileRejectsBadSchedule(t *testing.T) {
	repo, _ := newMockRepo(t)
	err := repo.UpsertProfile(context.Background(), models.DriftProfile{
		Identity: models.Identity{Name: "m", Repository: "r", Version: "v"},
		Schedule: "not a schedule",
	})
	require.Error(t, err)
}

func TestUpsertProfile(t *testing.T) {
	repo, mock := newMockRepo(t)
	p := models.DriftProfile{
		Identity:    models.Identity{Name: "m", Repository: "r", Version: "v"},
		ProfileType: models.ProfileKindSPC,
		Profile:     []byte(`{}`),
		Schedule:    "0 * * * *",
	}
	mock.ExpectExec("INSERT INTO scouter.drift_profile").
		WithArgs(p.Name, p.Repository, p.Version, string(p.ProfileType), p.Profile, p.Schedule).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.UpsertProfile(context.Background(), p)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDueProfileNoneDue(t *testing.T) {
	_, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, repository, version, profile_type, profile_json, schedule, previous_run, next_run").
		WillReturnRows(pgxmock.NewRows([]string{
			"name", "repository", "version", "profile_type", "profile_json", "schedule", "previous_run", "next_run",
		}))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = ClaimDueProfile(context.Background(), tx)
	require.ErrorIs(t, err, ErrNoTaskDue)
}

func TestClaimDueProfileReturnsTask(t *testing.T) {
	_, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, repository, version, profile_type, profile_json, schedule, previous_run, next_run").
		WillReturnRows(pgxmock.NewRows([]string{
			"name", "repository", "version", "profile_type", "profile_json", "schedule", "previous_run", "next_run",
		}).AddRow("m", "r", "v", "SPC", []byte(`{}`), "0 * * * *", now, now))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	task, err := ClaimDueProfile(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, models.ProfileKindSPC, task.ProfileType)
	require.Equal(t, "m", task.Name)
}

func TestClaimDueProfileUnknownKind(t *testing.T) {
	_, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT name, repository, version, profile_type, profile_json, schedule, previous_run, next_run").
		WillReturnRows(pgxmock.NewRows([]string{
			"name", "repository", "version", "profile_type", "profile_json", "schedule", "previous_run", "next_run",
		}).AddRow("m", "r", "v", "BOGUS", []byte(`{}`), "0 * * * *", now, now))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = ClaimDueProfile(context.Background(), tx)
	require.Error(t, err)
	var unknown *models.UnknownProfileKindError
	require.ErrorAs(t, err, &unknown)
}

func TestAdvanceProfileComputesNextRunAfterNow(t *testing.T) {
	_, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE scouter.drift_profile").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = AdvanceProfile(context.Background(), tx, models.Identity{Name: "m", Repository: "r", Version: "v"}, "0 * * * *", time.Now())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDriftAlert(t *testing.T) {
	_, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scouter.drift_alerts").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = InsertDriftAlert(context.Background(), tx, models.Identity{Name: "m", Repository: "r", Version: "v"},
		"amount", map[string]string{"zone": "three", "kind": "consecutive"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDriftAlertsAppliesDefaultLimit(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery("SELECT id, created_at, name, repository, version, feature, attrs_json, active").
		WithArgs("m", "r", "v", 100).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "created_at", "name", "repository", "version", "feature", "attrs_json", "active",
		}).AddRow(int64(1), now, "m", "r", "v", "amount", []byte(`{"zone":"three"}`), true))

	alerts, err := repo.GetDriftAlerts(context.Background(), models.AlertFilter{
		Identity: models.Identity{Name: "m", Repository: "r", Version: "v"},
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, "three", alerts[0].Attrs["zone"])
}
