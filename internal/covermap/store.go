package covermap

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"tia/internal/logging"
)

// DBFile is the coverage map database filename inside the artifact dir.
const DBFile = "coverage.db"

const schema = `
CREATE TABLE IF NOT EXISTS files (
	id   INTEGER PRIMARY KEY,
	path TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tests (
	id          INTEGER PRIMARY KEY,
	test_id     TEXT NOT NULL UNIQUE,
	duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS file_tests (
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	test_id INTEGER NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
	PRIMARY KEY (file_id, test_id)
);

CREATE INDEX IF NOT EXISTS idx_file_tests_test ON file_tests(test_id);
`

// Store persists the coverage map in a SQLite database under the
// artifact directory. Single writer (analyze), single reader per run
// (impact/run); no concurrent mutation by design.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Exists reports whether a coverage map database is present.
func Exists(artifactDir string) bool {
	_, err := os.Stat(filepath.Join(artifactDir, DBFile))
	return err == nil
}

// Open opens or creates the coverage map database.
func Open(artifactDir string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}

	dbPath := filepath.Join(artifactDir, DBFile)
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening coverage database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{
		conn:   conn,
		logger: logger,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Save replaces the persisted map wholesale in one transaction. The map
// is never incrementally patched: deleted or renamed tests would leave
// stale entries behind.
func (s *Store) Save(m *CoverageMap, durations map[string]int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM file_tests",
			"DELETE FROM tests",
			"DELETE FROM files",
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}

		fileIDs := make(map[string]int64)
		for _, file := range m.Files() {
			res, err := tx.Exec("INSERT INTO files (path) VALUES (?)", file)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			fileIDs[file] = id
		}

		testIDs := make(map[string]int64)
		for _, testID := range m.AllTests() {
			res, err := tx.Exec(
				"INSERT INTO tests (test_id, duration_ms) VALUES (?, ?)",
				testID, durations[testID],
			)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			testIDs[testID] = id
		}

		for _, file := range m.Files() {
			tests, _ := m.Tests(file)
			for _, testID := range tests {
				if _, err := tx.Exec(
					"INSERT INTO file_tests (file_id, test_id) VALUES (?, ?)",
					fileIDs[file], testIDs[testID],
				); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// Load reads the persisted map back.
func (s *Store) Load() (*CoverageMap, error) {
	rows, err := s.conn.Query(`
		SELECT f.path, t.test_id
		FROM file_tests ft
		JOIN files f ON f.id = ft.file_id
		JOIN tests t ON t.id = ft.test_id`)
	if err != nil {
		return nil, fmt.Errorf("loading coverage map: %w", err)
	}
	defer func() { _ = rows.Close() }()

	m := New()
	for rows.Next() {
		var file, testID string
		if err := rows.Scan(&file, &testID); err != nil {
			return nil, err
		}
		m.Add(file, testID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return m, nil
}

// TestDurations returns the recorded per-test durations, used for the
// report's time-saved estimate.
func (s *Store) TestDurations() (map[string]int64, error) {
	rows, err := s.conn.Query("SELECT test_id, duration_ms FROM tests")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int64)
	for rows.Next() {
		var testID string
		var ms int64
		if err := rows.Scan(&testID, &ms); err != nil {
			return nil, err
		}
		out[testID] = ms
	}
	return out, rows.Err()
}

func (s *Store) withTx(fn func(*sql.Tx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback transaction", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
