package history

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mcp-compliance-runner/internal/database"
	"github.com/mcp-compliance-runner/internal/database/dbtest"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		store.Close()
	})
	return store, mock
}

func TestNewPostgresStore_RequiresConnection(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2025, 3, 26, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO compliance_runs")).
		WithArgs("run-1", ts, "2025-03-26", "http://localhost:8000", "FAIL",
			2, 1, 1, 0, 1, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), sampleReport("run-1", ts, true)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO compliance_runs")).
		WillReturnError(sql.ErrConnDone)

	err := store.Save(context.Background(), sampleReport("run-1", time.Now(), false))
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2025, 3, 26, 10, 0, 0, 0, time.UTC)
	body := `{"run_id":"run-1","timestamp":"2025-03-26T10:00:00Z","spec_version":"2025-03-26",` +
		`"server_url":"http://localhost:8000","summary":{"total":1,"passed":1,"failed":0,"skipped":0,` +
		`"must_failures":0,"should_failures":0},"results":[{"check":"prompts_list","req_id":"PROMPTS-LIST-1",` +
		`"feature":"prompts/list","level":"MUST","outcome":"PASS","description":"lists prompts","duration_ms":1.5}]}`

	mock.ExpectQuery(regexp.QuoteMeta("SELECT report FROM compliance_runs WHERE run_id = $1")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"report"}).AddRow(body))

	got, err := store.Get(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, ts.Equal(got.Timestamp))
	require.Len(t, got.Results, 1)
	assert.Equal(t, "PROMPTS-LIST-1", got.Results[0].RequirementID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT report FROM compliance_runs")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	missing, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2025, 3, 26, 10, 0, 0, 0, time.UTC)

	columns := []string{"run_id", "created_at", "spec_version", "server_url", "status",
		"total", "passed", "failed", "skipped", "must_failures", "should_failures"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM compliance_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("run-2", ts.Add(time.Hour), "2025-03-26", "http://localhost:8000", "FAIL", 54, 40, 2, 12, 1, 1).
			AddRow("run-1", ts, "2024-11-05", "http://localhost:8000", "PASS", 53, 50, 0, 3, 0, 0))

	runs, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, 54, runs[0].Summary.Total)
	assert.Equal(t, 1, runs[0].Summary.MustFailures)
	assert.Equal(t, "PASS", runs[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM compliance_runs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestPostgresStore_Integration(t *testing.T) {
	url := dbtest.StartPostgres(t)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	require.NoError(t, database.Migrate(ctx, url, logger))

	store, err := NewPostgresStoreFromURL(url)
	require.NoError(t, err)
	defer store.Close()

	ts := time.Date(2025, 3, 26, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, sampleReport("run-1", ts, false)))
	require.NoError(t, store.Save(ctx, sampleReport("run-2", ts.Add(time.Hour), true)))
	require.NoError(t, store.Save(ctx, sampleReport("run-2", ts.Add(time.Hour), true)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	runs, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Results, 2)
}
