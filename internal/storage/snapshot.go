package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// maxAutoSnapshots is how many automatic snapshots are kept.
const maxAutoSnapshots = 5

// Snapshot errors.
var (
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrSnapshotCorrupted = errors.New("snapshot integrity check failed")
	ErrSnapshotExists    = errors.New("snapshot already exists")
	ErrInvalidSnapshotID = errors.New("invalid snapshot id")
)

// SnapshotInfo describes a saved copy of the database.
type SnapshotInfo struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	FileSize      int64     `json:"file_size"`
	RoomRates     int       `json:"room_rates"`
	Aliases       int       `json:"aliases"`
	ReportRuns    int       `json:"report_runs"`
	SchemaVersion int       `json:"schema_version"`
	IsAuto        bool      `json:"is_auto"`
}

// Snapshots saves and restores whole-database copies kept in a snapshots
// directory next to the database file.
type Snapshots struct {
	store *SQLiteStorage
	dir   string
	now   func() time.Time
}

// NewSnapshots creates the snapshot directory for store.
func NewSnapshots(store *SQLiteStorage) (*Snapshots, error) {
	dir := filepath.Join(filepath.Dir(store.dbPath), "snapshots")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}
	return &Snapshots{store: store, dir: dir, now: time.Now}, nil
}

// Create copies the database into a snapshot named id. An empty id is
// generated from the current time.
func (s *Snapshots) Create(ctx context.Context, id, description string) (*SnapshotInfo, error) {
	if id == "" {
		id = "snapshot-" + s.now().Format("2006-01-02-150405")
	}
	if err := validateSnapshotID(id); err != nil {
		return nil, err
	}

	path := s.dataPath(id)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, id)
	}

	info := &SnapshotInfo{ID: id, CreatedAt: s.now().UTC(), Description: description}
	db := s.store.db

	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&info.SchemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	counts := map[string]*int{
		"SELECT COUNT(*) FROM room_rates":     &info.RoomRates,
		"SELECT COUNT(*) FROM school_aliases": &info.Aliases,
		"SELECT COUNT(*) FROM report_runs":    &info.ReportRuns,
	}
	for query, dst := range counts {
		if err := db.QueryRowContext(ctx, query).Scan(dst); err != nil {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	// VACUUM INTO takes a consistent copy while the connection stays open.
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return nil, fmt.Errorf("failed to copy database: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	info.FileSize = stat.Size()

	if err := s.saveInfo(info); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Error("failed to remove snapshot after metadata save failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save snapshot metadata: %w", err)
	}

	return info, nil
}

// AutoSnapshot takes a snapshot before an operation that rewrites stored
// data and prunes the oldest automatic snapshots.
func (s *Snapshots) AutoSnapshot(ctx context.Context, operation string) (*SnapshotInfo, error) {
	id := fmt.Sprintf("auto-%s-%s", operation, s.now().Format("2006-01-02-150405"))
	info, err := s.Create(ctx, id, "Automatic snapshot before "+operation)
	if err != nil {
		return nil, fmt.Errorf("failed to create automatic snapshot: %w", err)
	}

	info.IsAuto = true
	if err := s.saveInfo(info); err != nil {
		slog.Warn("failed to mark snapshot as automatic", "id", id, "error", err)
	}

	if err := s.prune(ctx); err != nil {
		slog.Warn("failed to prune automatic snapshots", "error", err)
	}
	return info, nil
}

// List returns every snapshot, newest first.
func (s *Snapshots) List(_ context.Context) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots directory: %w", err)
	}

	snapshots := make([]SnapshotInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		info, err := s.loadInfo(strings.TrimSuffix(entry.Name(), ".meta.json"))
		if err != nil {
			slog.Debug("skipping unreadable snapshot metadata", "file", entry.Name(), "error", err)
			continue
		}
		snapshots = append(snapshots, *info)
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// Restore replaces the database with snapshot id. The store's connection
// is closed and must not be used afterwards.
func (s *Snapshots) Restore(_ context.Context, id string) error {
	if err := validateSnapshotID(id); err != nil {
		return err
	}

	path := s.dataPath(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		return fmt.Errorf("failed to access snapshot: %w", err)
	}
	if err := verifyIntegrity(path); err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotCorrupted, err)
	}

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	// Stale WAL files would be replayed over the restored copy.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(s.store.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s file: %w", suffix, err)
		}
	}

	if err := copyFile(path, s.store.dbPath); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return nil
}

// Delete removes snapshot id.
func (s *Snapshots) Delete(_ context.Context, id string) error {
	if err := validateSnapshotID(id); err != nil {
		return err
	}
	if err := os.Remove(s.dataPath(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	if err := os.Remove(s.metaPath(id)); err != nil && !os.IsNotExist(err) {
		slog.Debug("failed to remove snapshot metadata", "id", id, "error", err)
	}
	return nil
}

func (s *Snapshots) prune(ctx context.Context) error {
	snapshots, err := s.List(ctx)
	if err != nil {
		return err
	}

	kept := 0
	for _, snap := range snapshots {
		if !snap.IsAuto {
			continue
		}
		kept++
		if kept > maxAutoSnapshots {
			if err := s.Delete(ctx, snap.ID); err != nil {
				slog.Debug("failed to delete old snapshot", "id", snap.ID, "error", err)
			}
		}
	}
	return nil
}

func (s *Snapshots) dataPath(id string) string {
	return filepath.Join(s.dir, id+".db")
}

func (s *Snapshots) metaPath(id string) string {
	return filepath.Join(s.dir, id+".meta.json")
}

func (s *Snapshots) saveInfo(info *SnapshotInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.metaPath(info.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.metaPath(info.ID))
}

func (s *Snapshots) loadInfo(id string) (*SnapshotInfo, error) {
	data, err := os.ReadFile(s.metaPath(id)) // #nosec G304
	if err != nil {
		return nil, err
	}
	var info SnapshotInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func validateSnapshotID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidSnapshotID, id)
	}
	return nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

// copyFile writes src to dst through a temporary file and a rename.
func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
