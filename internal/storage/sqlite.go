package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding catalog snapshots and analysis history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "jobpilot.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Catalog snapshots ---

// UpsertSnapshot stores a snapshot, replacing any prior row for the same
// (version, source) key. Concurrent writers race with last-write-wins
// semantics; snapshots are reconstructible caches, not a source of truth.
func (s *Store) UpsertSnapshot(row SnapshotRow) error {
	_, err := s.db.Exec(`
		INSERT INTO catalog_snapshots (version, source, artifacts_json, stats_json, last_fetch_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(version, source) DO UPDATE SET
			artifacts_json = excluded.artifacts_json,
			stats_json = excluded.stats_json,
			last_fetch_time = excluded.last_fetch_time`,
		row.Version, row.Source, row.ArtifactsJSON, row.StatsJSON,
		row.LastFetchTime.UTC().Format(time.RFC3339),
	)
	return err
}

// GetSnapshot returns the snapshot for (version, source), or ErrNotFound.
func (s *Store) GetSnapshot(version, source string) (SnapshotRow, error) {
	var row SnapshotRow
	var fetchTime string
	err := s.db.QueryRow(`
		SELECT version, source, artifacts_json, stats_json, last_fetch_time
		FROM catalog_snapshots WHERE version = ? AND source = ?`, version, source,
	).Scan(&row.Version, &row.Source, &row.ArtifactsJSON, &row.StatsJSON, &fetchTime)
	if err == sql.ErrNoRows {
		return SnapshotRow{}, ErrNotFound
	}
	if err != nil {
		return SnapshotRow{}, err
	}
	t, err := time.Parse(time.RFC3339, fetchTime)
	if err != nil {
		return SnapshotRow{}, fmt.Errorf("parsing last_fetch_time: %w", err)
	}
	row.LastFetchTime = t
	return row, nil
}

// ListSnapshots gathers all per-source rows whose version starts with the
// given prefix, ordered by source for deterministic iteration.
func (s *Store) ListSnapshots(versionPrefix string) ([]SnapshotRow, error) {
	rows, err := s.db.Query(`
		SELECT version, source, artifacts_json, stats_json, last_fetch_time
		FROM catalog_snapshots WHERE version LIKE ? || '%' ORDER BY source ASC`, versionPrefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SnapshotRow
	for rows.Next() {
		var row SnapshotRow
		var fetchTime string
		if err := rows.Scan(&row.Version, &row.Source, &row.ArtifactsJSON, &row.StatsJSON, &fetchTime); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, fetchTime)
		if err != nil {
			return nil, fmt.Errorf("parsing last_fetch_time for %s/%s: %w", row.Version, row.Source, err)
		}
		row.LastFetchTime = t
		results = append(results, row)
	}
	return results, rows.Err()
}

// --- Analyses ---

func (s *Store) SaveAnalysis(a AnalysisRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO analyses (id, created_at, job_title, task_count, avg_score, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.CreatedAt.UTC().Format(time.RFC3339), a.JobTitle, a.TaskCount, a.AvgScore, a.PayloadJSON,
	)
	return err
}

func (s *Store) GetAnalysis(id string) (AnalysisRecord, error) {
	var a AnalysisRecord
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, created_at, job_title, task_count, avg_score, payload_json
		FROM analyses WHERE id = ?`, id,
	).Scan(&a.ID, &createdAt, &a.JobTitle, &a.TaskCount, &a.AvgScore, &a.PayloadJSON)
	if err == sql.ErrNoRows {
		return AnalysisRecord{}, ErrNotFound
	}
	if err != nil {
		return AnalysisRecord{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return AnalysisRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	a.CreatedAt = t
	return a, nil
}

func (s *Store) ListAnalyses(limit, offset int) ([]AnalysisRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, job_title, task_count, avg_score, payload_json
		FROM analyses ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []AnalysisRecord
	for rows.Next() {
		var a AnalysisRecord
		var createdAt string
		if err := rows.Scan(&a.ID, &createdAt, &a.JobTitle, &a.TaskCount, &a.AvgScore, &a.PayloadJSON); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.CreatedAt = t
		results = append(results, a)
	}
	return results, rows.Err()
}
