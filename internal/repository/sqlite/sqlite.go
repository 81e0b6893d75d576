// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere
// Go works.
//
// All calendar dates (check-in days, snapshot days, streak completion dates)
// are stored as "YYYY-MM-DD" strings rather than full timestamps. The natural
// key of a check-in is (user, habit, calendar day), so storing exactly the
// day makes the UNIQUE index and range queries trivially correct regardless
// of the time-of-day the record was written.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
// One DB value implements every repository interface; the server hands the
// same value to each service under the interface it needs.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/habitflow.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (great for tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// A single connection sidesteps two SQLite pool hazards: connection-level
	// PRAGMAs silently not applying to the rest of the pool, and ":memory:"
	// giving every pooled connection its own empty database. SQLite serializes
	// writers anyway, so this costs nothing.
	conn.SetMaxOpenConns(1)

	// Force an immediate connection so a bad path or permissions problem
	// surfaces here rather than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — a web server
	// needs this.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every startup.
func (db *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER NOT NULL DEFAULT 0,
			avatar_url    TEXT NOT NULL DEFAULT '',
			total_points  INTEGER NOT NULL DEFAULT 0,
			level         INTEGER NOT NULL DEFAULT 1,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		// github_id 0 means "password account", so uniqueness only applies to
		// real GitHub IDs — hence the partial index.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id != 0`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,

		`CREATE TABLE IF NOT EXISTS habits (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL REFERENCES users(id),
			name              TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			category          TEXT NOT NULL DEFAULT 'other',
			frequency         TEXT NOT NULL DEFAULT 'daily',
			frequency_days    INTEGER NOT NULL DEFAULT 1,
			target_count      INTEGER NOT NULL DEFAULT 1,
			unit              TEXT NOT NULL DEFAULT 'times',
			priority          INTEGER NOT NULL DEFAULT 3,
			color             TEXT NOT NULL DEFAULT '#3B82F6',
			icon              TEXT NOT NULL DEFAULT '✓',
			current_streak    INTEGER NOT NULL DEFAULT 0,
			longest_streak    INTEGER NOT NULL DEFAULT 0,
			total_completions INTEGER NOT NULL DEFAULT 0,
			is_active         INTEGER NOT NULL DEFAULT 1,
			reminder_time     TEXT NOT NULL DEFAULT '09:00',
			reminder_enabled  INTEGER NOT NULL DEFAULT 1,
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id)`,

		`CREATE TABLE IF NOT EXISTS streaks (
			id               TEXT PRIMARY KEY,
			habit_id         TEXT NOT NULL UNIQUE REFERENCES habits(id),
			user_id          TEXT NOT NULL REFERENCES users(id),
			current_streak   INTEGER NOT NULL DEFAULT 0,
			longest_streak   INTEGER NOT NULL DEFAULT 0,
			last_check_in    TEXT,
			completion_dates TEXT NOT NULL DEFAULT '[]',
			missed_dates     TEXT NOT NULL DEFAULT '[]',
			updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_streaks_user_id ON streaks(user_id)`,

		`CREATE TABLE IF NOT EXISTS checkins (
			id            TEXT PRIMARY KEY,
			habit_id      TEXT NOT NULL REFERENCES habits(id),
			user_id       TEXT NOT NULL REFERENCES users(id),
			date          TEXT NOT NULL,
			completed     INTEGER NOT NULL DEFAULT 0,
			count         INTEGER NOT NULL DEFAULT 0,
			note          TEXT NOT NULL DEFAULT '',
			streak        INTEGER NOT NULL DEFAULT 0,
			points_earned INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, habit_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_user_date ON checkins(user_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_habit_date ON checkins(habit_id, date)`,

		`CREATE TABLE IF NOT EXISTS challenges (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			creator_id  TEXT NOT NULL REFERENCES users(id),
			habit_id    TEXT NOT NULL DEFAULT '',
			frequency   TEXT NOT NULL DEFAULT 'daily',
			duration    INTEGER NOT NULL DEFAULT 7,
			start_date  DATETIME NOT NULL,
			end_date    DATETIME NOT NULL,
			rewards     TEXT NOT NULL DEFAULT 'Bragging rights!',
			is_active   INTEGER NOT NULL DEFAULT 1,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS challenge_participants (
			challenge_id TEXT NOT NULL REFERENCES challenges(id),
			user_id      TEXT NOT NULL REFERENCES users(id),
			joined_at    DATETIME NOT NULL,
			completions  INTEGER NOT NULL DEFAULT 0,
			score        INTEGER NOT NULL DEFAULT 0,
			UNIQUE(challenge_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_user
			ON challenge_participants(user_id)`,

		`CREATE TABLE IF NOT EXISTS analytics (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT NOT NULL REFERENCES users(id),
			habit_id            TEXT NOT NULL REFERENCES habits(id),
			date                TEXT NOT NULL,
			completion_rate     REAL NOT NULL DEFAULT 0,
			weekly_completions  INTEGER NOT NULL DEFAULT 0,
			monthly_completions INTEGER NOT NULL DEFAULT 0,
			average_streak      REAL NOT NULL DEFAULT 0,
			best_day            TEXT NOT NULL DEFAULT '',
			updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, habit_id, date)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// dayLayout is the storage format for calendar days.
const dayLayout = "2006-01-02"

func dayString(t time.Time) string {
	return t.Format(dayLayout)
}

func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, s, time.Local)
}

// marshalDays encodes a list of calendar days as a JSON array of day strings
// for the streaks.completion_dates / missed_dates columns.
func marshalDays(days []time.Time) (string, error) {
	strs := make([]string, 0, len(days))
	for _, d := range days {
		strs = append(strs, dayString(d))
	}
	b, err := json.Marshal(strs)
	if err != nil {
		return "", fmt.Errorf("encoding day list: %w", err)
	}
	return string(b), nil
}

func unmarshalDays(raw string) ([]time.Time, error) {
	var strs []string
	if err := json.Unmarshal([]byte(raw), &strs); err != nil {
		return nil, fmt.Errorf("decoding day list: %w", err)
	}
	days := make([]time.Time, 0, len(strs))
	for _, s := range strs {
		d, err := parseDay(s)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}
