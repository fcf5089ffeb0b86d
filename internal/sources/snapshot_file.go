package sources

import (
	"context"
	"fmt"
	"os"

	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/benmeehan/telemetry-bridge/pkg/file"
)

// SnapshotFile reads the JSON document the controller periodically dumps to
// disk. No age check is made; records from it may be stale.
type SnapshotFile struct {
	path      string
	defaultID string
	fileOps   file.FileOperations
}

// NewSnapshotFile creates a snapshot backend for path.
func NewSnapshotFile(path, defaultID string, fileOps file.FileOperations) *SnapshotFile {
	return &SnapshotFile{path: path, defaultID: defaultID, fileOps: fileOps}
}

func (s *SnapshotFile) Kind() Kind { return KindSnapshot }

// Probe succeeds if the snapshot file exists.
func (s *SnapshotFile) Probe(_ context.Context) error {
	exists, err := s.fileOps.IsFileExists(s.path)
	if err != nil {
		return fmt.Errorf("stat snapshot %s: %w", s.path, err)
	}
	if !exists {
		return fmt.Errorf("snapshot %s: %w", s.path, ErrNoData)
	}
	return nil
}

// Fetch decodes the snapshot and merges it over the defaults.
func (s *SnapshotFile) Fetch(_ context.Context) (models.Record, models.Alarms, error) {
	base := models.DefaultRecord(s.defaultID)

	data, err := s.fileOps.ReadFileRaw(s.path)
	if os.IsNotExist(err) {
		return base, models.Alarms{}, fmt.Errorf("snapshot %s: %w", s.path, ErrNoData)
	}
	if err != nil {
		return base, models.Alarms{}, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	record, err := decodeRecord(data, base)
	if err != nil {
		return base, models.Alarms{}, fmt.Errorf("snapshot %s: %w", s.path, err)
	}
	return record, models.Alarms{}, nil
}

func (s *SnapshotFile) Close() error { return nil }
