package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"
)

// FingerprintRepository is the durable "seen" store backed by SQLite.
type FingerprintRepository struct {
	db *DB
	mu sync.Mutex
}

// NewFingerprintRepository creates a repository over an already migrated database.
func NewFingerprintRepository(db *DB) *FingerprintRepository {
	return &FingerprintRepository{db: db}
}

// OpenFingerprintStore opens the database at path, applies the schema and,
// when the store is still empty, imports the first readable legacy state file.
// Legacy import failures are logged and never abort startup.
func OpenFingerprintStore(ctx context.Context, path string, legacyFiles []string) (*FingerprintRepository, error) {
	db, err := NewConnection(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	slog.Debug("Fingerprint store schema ready", "path", path, "version", version, "dirty", dirty)

	repo := NewFingerprintRepository(db)

	imported, file, err := repo.ImportLegacyState(ctx, legacyFiles)
	if err != nil {
		slog.Warn("Legacy state migration failed, leaving file in place", "file", file, "error", err)
	} else if file != "" {
		slog.Info("Legacy state migrated", "file", file, "imported", imported)
	}

	return repo, nil
}

// Close releases the underlying database handle.
func (r *FingerprintRepository) Close() error {
	return r.db.Close()
}

// IsRecentlySeen reports whether key was marked strictly after now - windowDays.
func (r *FingerprintRepository) IsRecentlySeen(ctx context.Context, key string, windowDays int, now time.Time) (bool, error) {
	minSeenAtMs := now.UnixMilli() - int64(windowDays)*dayMs

	var seen int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM seen_links WHERE url = ? AND seen_at_ms > ? LIMIT 1`,
		key, minSeenAtMs,
	).Scan(&seen)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: failed to query fingerprint: %v", ErrStorageUnavailable, err)
	}

	return seen == 1, nil
}

// MarkSeen records key at now. The latest write wins.
func (r *FingerprintRepository) MarkSeen(ctx context.Context, key string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, upsertSeenLink, key, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: failed to mark fingerprint: %v", ErrStorageUnavailable, err)
	}

	return nil
}

// Get returns the record for key, or nil when absent.
func (r *FingerprintRepository) Get(ctx context.Context, key string) (*FingerprintRecord, error) {
	var record FingerprintRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT url, seen_at_ms FROM seen_links WHERE url = ?`, key,
	).Scan(&record.Key, &record.SeenAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get fingerprint: %v", ErrStorageUnavailable, err)
	}

	return &record, nil
}

// Count returns the number of stored fingerprints.
func (r *FingerprintRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_links`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count fingerprints: %v", ErrStorageUnavailable, err)
	}
	return count, nil
}

// Sweep deletes every record last seen at or before cutoff.
func (r *FingerprintRepository) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `DELETE FROM seen_links WHERE seen_at_ms <= ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: failed to sweep fingerprints: %v", ErrStorageUnavailable, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read sweep result: %w", err)
	}
	return deleted, nil
}

// ImportLegacyState imports the first parseable legacy file when the store is
// empty, then renames it to <file>.migrated. It returns the number of imported
// keys and the file it acted on. A non-empty store is left untouched.
func (r *FingerprintRepository) ImportLegacyState(ctx context.Context, files []string) (int, string, error) {
	count, err := r.Count(ctx)
	if err != nil {
		return 0, "", err
	}
	if count > 0 {
		return 0, "", nil
	}

	for _, file := range files {
		state, ok := loadLegacyState(file)
		if !ok {
			continue
		}

		imported, err := r.importRecords(ctx, state.Seen)
		if err != nil {
			return 0, file, err
		}

		if err := os.Rename(file, file+".migrated"); err != nil {
			// The rows are in; a second attempt is prevented by the non-empty check.
			slog.Warn("Failed to rename legacy state file", "file", file, "error", err)
		}
		return imported, file, nil
	}

	return 0, "", nil
}

func (r *FingerprintRepository) importRecords(ctx context.Context, seen map[string]float64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin legacy import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSeenLink)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare legacy import: %w", err)
	}
	defer stmt.Close()

	imported := 0
	for key, seenAtMs := range seen {
		if key == "" || math.IsNaN(seenAtMs) || math.IsInf(seenAtMs, 0) {
			continue
		}
		if _, err := stmt.ExecContext(ctx, key, int64(math.Floor(seenAtMs))); err != nil {
			return 0, fmt.Errorf("failed to import legacy key: %w", err)
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit legacy import: %w", err)
	}
	return imported, nil
}

func loadLegacyState(path string) (legacyState, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return legacyState{}, false
	}

	var state legacyState
	if err := json.Unmarshal(data, &state); err != nil || state.Seen == nil {
		return legacyState{}, false
	}
	return state, true
}

const upsertSeenLink = `
	INSERT INTO seen_links (url, seen_at_ms)
	VALUES (?, ?)
	ON CONFLICT(url) DO UPDATE SET seen_at_ms = excluded.seen_at_ms
`
