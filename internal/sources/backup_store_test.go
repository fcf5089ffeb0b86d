package sources_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/benmeehan/telemetry-bridge/internal/sources"
	"github.com/benmeehan/telemetry-bridge/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tableQuery  = regexp.QuoteMeta(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`)
	latestQuery = regexp.QuoteMeta(`SELECT pressure, current, temp, runcycles, faults, mode, seq, gmid FROM "controller" ORDER BY rowid DESC LIMIT 1`)
	rowColumns  = []string{"pressure", "current", "temp", "runcycles", "faults", "mode", "seq", "gmid"}
)

func newBackupStore(t *testing.T) (*sources.BackupStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rms.db")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	store := sources.NewBackupStore(db, path, "controller", "", file.NewFileService())
	t.Cleanup(func() { _ = store.Close() })
	return store, mock
}

func TestBackupStore_LatestRow(t *testing.T) {
	store, mock := newBackupStore(t)

	mock.ExpectQuery(tableQuery).WithArgs("controller").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("controller"))
	mock.ExpectQuery(latestQuery).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(0.45, 5.23, 19.75, 150, 2, 1, 12, "CSX-1234"))

	record, _, err := store.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Record{
		ID:          "CSX-1234",
		Sequence:    12,
		Pressure:    0.45,
		Current:     5.23,
		Temperature: 19.75,
		RunCycles:   150,
		FaultCode:   2,
		Mode:        1,
	}, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackupStore_NullColumnsKeepDefaults(t *testing.T) {
	store, mock := newBackupStore(t)

	mock.ExpectQuery(tableQuery).WithArgs("controller").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("controller"))
	mock.ExpectQuery(latestQuery).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(1.25, nil, nil, nil, nil, nil, nil, nil))

	record, _, err := store.Fetch(context.Background())
	require.NoError(t, err)

	expected := models.DefaultRecord("")
	expected.Pressure = 1.25
	assert.Equal(t, expected, record)
}

func TestBackupStore_MissingTable(t *testing.T) {
	store, mock := newBackupStore(t)

	mock.ExpectQuery(tableQuery).WithArgs("controller").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	record, _, err := store.Fetch(context.Background())
	assert.ErrorIs(t, err, sources.ErrNoData)
	assert.Equal(t, models.DefaultRecord(""), record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackupStore_EmptyTable(t *testing.T) {
	store, mock := newBackupStore(t)

	mock.ExpectQuery(tableQuery).WithArgs("controller").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("controller"))
	mock.ExpectQuery(latestQuery).WillReturnRows(sqlmock.NewRows(rowColumns))

	record, _, err := store.Fetch(context.Background())
	assert.ErrorIs(t, err, sources.ErrNoData)
	assert.Equal(t, models.DefaultRecord(""), record)
}

func TestBackupStore_EngineError(t *testing.T) {
	store, mock := newBackupStore(t)

	mock.ExpectQuery(tableQuery).WithArgs("controller").
		WillReturnError(errors.New("database is locked"))

	record, _, err := store.Fetch(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, sources.ErrNoData)
	assert.Equal(t, models.DefaultRecord(""), record)
}

func TestBackupStore_MissingFileSkipsQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := sources.NewBackupStore(db, filepath.Join(t.TempDir(), "rms.db"), "controller", "", file.NewFileService())

	record, _, err := store.Fetch(context.Background())
	assert.ErrorIs(t, err, sources.ErrNoData)
	assert.Equal(t, models.DefaultRecord(""), record)
	assert.NoError(t, mock.ExpectationsWereMet())
}
