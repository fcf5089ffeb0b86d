package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/benmeehan/telemetry-bridge/pkg/file"
	_ "github.com/mattn/go-sqlite3"
)

// BackupStore reads the most recently inserted row of the controller history
// table in the SQLite backup database.
type BackupStore struct {
	db        *sql.DB
	path      string
	table     string
	defaultID string
	fileOps   file.FileOperations
}

// OpenBackupStore opens the SQLite database at path read-only. The file is
// not required to exist yet; sql.Open does not connect.
func OpenBackupStore(path, table, defaultID string, fileOps file.FileOperations) (*BackupStore, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open backup store: %w", err)
	}
	return NewBackupStore(db, path, table, defaultID, fileOps), nil
}

// NewBackupStore wraps an already opened database handle.
func NewBackupStore(db *sql.DB, path, table, defaultID string, fileOps file.FileOperations) *BackupStore {
	return &BackupStore{
		db:        db,
		path:      path,
		table:     table,
		defaultID: defaultID,
		fileOps:   fileOps,
	}
}

func (b *BackupStore) Kind() Kind { return KindBackup }

// Probe succeeds if the database file exists.
func (b *BackupStore) Probe(_ context.Context) error {
	exists, err := b.fileOps.IsFileExists(b.path)
	if err != nil {
		return fmt.Errorf("stat backup store %s: %w", b.path, err)
	}
	if !exists {
		return fmt.Errorf("backup store %s: %w", b.path, ErrNoData)
	}
	return nil
}

// Fetch returns the last inserted row by rowid. NULL columns keep defaults.
func (b *BackupStore) Fetch(ctx context.Context) (models.Record, models.Alarms, error) {
	base := models.DefaultRecord(b.defaultID)

	if err := b.Probe(ctx); err != nil {
		return base, models.Alarms{}, err
	}

	var name string
	err := b.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, b.table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return base, models.Alarms{}, fmt.Errorf("table %s: %w", b.table, ErrNoData)
	}
	if err != nil {
		return base, models.Alarms{}, fmt.Errorf("failed to query tables: %w", err)
	}

	var (
		pressure, current, temp      sql.NullFloat64
		runCycles, faults, mode, seq sql.NullInt64
		gmid                         sql.NullString
	)
	err = b.db.QueryRowContext(ctx, b.latestRowQuery()).
		Scan(&pressure, &current, &temp, &runCycles, &faults, &mode, &seq, &gmid)
	if errors.Is(err, sql.ErrNoRows) {
		return base, models.Alarms{}, fmt.Errorf("table %s is empty: %w", b.table, ErrNoData)
	}
	if err != nil {
		return base, models.Alarms{}, fmt.Errorf("failed to read latest row from %s: %w", b.table, err)
	}

	record := base
	if pressure.Valid {
		record.Pressure = pressure.Float64
	}
	if current.Valid {
		record.Current = current.Float64
	}
	if temp.Valid {
		record.Temperature = temp.Float64
	}
	if runCycles.Valid {
		record.RunCycles = runCycles.Int64
	}
	if faults.Valid {
		record.FaultCode = faults.Int64
	}
	if mode.Valid {
		record.Mode = mode.Int64
	}
	if seq.Valid {
		record.Sequence = seq.Int64
	}
	if gmid.Valid && gmid.String != "" {
		record.ID = gmid.String
	}

	return record, models.Alarms{}, nil
}

func (b *BackupStore) Close() error {
	return b.db.Close()
}

func (b *BackupStore) latestRowQuery() string {
	return `SELECT pressure, current, temp, runcycles, faults, mode, seq, gmid FROM ` +
		quoteIdent(b.table) + ` ORDER BY rowid DESC LIMIT 1`
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
