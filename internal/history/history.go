// Package history persists dog sightings to SQLite. One row is written
// per saved evidence frame, so the ledger survives frame eviction and
// restarts and can answer "when was the dog last up here" long after the
// JPEGs are gone.
package history

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// defaultRecentLimit caps Recent queries that pass no explicit limit.
const defaultRecentLimit = 50

// Sighting is one recorded dog detection with saved evidence.
type Sighting struct {
	ID         int64     `json:"id"`
	Time       time.Time `json:"time"`
	DogCount   int       `json:"dog_count"`
	Confidence float64   `json:"confidence"`
	Frame      string    `json:"frame"`
}

// Ledger is the sightings database.
type Ledger struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the sightings database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite serializes writers anyway; a single connection avoids
	// SQLITE_BUSY instead of retrying around it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return l, nil
}

// migrate creates the schema if it does not exist.
func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sightings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seen_at DATETIME NOT NULL,
		dog_count INTEGER NOT NULL,
		confidence REAL NOT NULL,
		frame TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sightings_seen_at ON sightings(seen_at);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Record inserts one sighting and returns its id.
func (l *Ledger) Record(s Sighting) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result, err := l.db.Exec(`
		INSERT INTO sightings (seen_at, dog_count, confidence, frame)
		VALUES (?, ?, ?, ?)
	`, s.Time.UTC(), s.DogCount, s.Confidence, s.Frame)
	if err != nil {
		return 0, fmt.Errorf("insert sighting: %w", err)
	}

	return result.LastInsertId()
}

// Recent returns up to limit sightings, newest first. A limit of zero or
// less applies the default.
func (l *Ledger) Recent(limit int) ([]Sighting, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	// id breaks same-second ties in insert order.
	rows, err := l.db.Query(`
		SELECT id, seen_at, dog_count, confidence, frame
		FROM sightings
		ORDER BY seen_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sightings: %w", err)
	}
	defer rows.Close()

	var sightings []Sighting
	for rows.Next() {
		var s Sighting
		if err := rows.Scan(&s.ID, &s.Time, &s.DogCount, &s.Confidence, &s.Frame); err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		sightings = append(sightings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sightings: %w", err)
	}

	return sightings, nil
}

// Count returns the total number of recorded sightings.
func (l *Ledger) Count() (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var count int
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM sightings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sightings: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}
