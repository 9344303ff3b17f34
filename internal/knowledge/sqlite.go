package knowledge

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite-backed knowledge-base source. It exists so a curated
// dataset can be shipped or edited as a single .db file; the server reads it
// once at startup and never writes to it.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) a SQLite knowledge base at path and applies
// pending migrations. Pass ":memory:" for an in-memory store (tests).
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging knowledge store: %w", err)
	}

	// Single connection avoids "database is locked" errors.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
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

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
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

// LoadEntries returns all entries ordered by their dataset position.
func (s *Store) LoadEntries() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT id, topic, question_en, question_fr, answer_en, answer_fr, tags
		FROM entries ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                  Entry
			qEN, qFR, aEN, aFR string
			tagsJSON           string
		)
		if err := rows.Scan(&e.ID, &e.Topic, &qEN, &qFR, &aEN, &aFR, &tagsJSON); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Question = map[string]string{"en": qEN, "fr": qFR}
		e.Answer = map[string]string{"en": aEN, "fr": aFR}
		if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
			return nil, fmt.Errorf("parsing tags for entry %q: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ImportEntries replaces the store contents with the given entries,
// preserving their order. Used by `askme kb import`.
func (s *Store) ImportEntries(entries []Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning import transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing entries: %w", err)
	}

	for i, e := range entries {
		tagsJSON, err := json.Marshal(e.Tags)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshalling tags for entry %q: %w", e.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO entries
			(id, position, topic, question_en, question_fr, answer_en, answer_fr, tags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, i, e.Topic,
			e.Question["en"], e.Question["fr"],
			e.Answer["en"], e.Answer["fr"],
			string(tagsJSON),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting entry %q: %w", e.ID, err)
		}
	}

	return tx.Commit()
}
