package database

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite" // The pure Go SQLite driver
)

// Service is the central struct for managing all database interactions.
// It owns the single application database and serializes write transactions
// so that every mutation is an all-or-nothing unit.
type Service struct {
	dbPath string

	db      *sql.DB
	writeMu sync.Mutex // serializes write transactions
}

// NewService creates and initializes a new database service.
// It opens the database connection and verifies it is alive.
func NewService(dbPath string) (*Service, error) {
	// `_pragma=foreign_keys(1)` is crucial: the schema relies on declarative
	// ON DELETE CASCADE / ON DELETE SET NULL actions for its ownership
	// hierarchy, and SQLite ships with foreign keys off by default.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", dbPath, err)
	}

	return &Service{
		dbPath: dbPath,
		db:     db,
	}, nil
}

// WriteTx executes a write operation (INSERT, UPDATE, DELETE) within a
// transaction, protected by a mutex to ensure serial access. If writeFunc
// returns an error the transaction is rolled back and nothing is committed.
func (s *Service) WriteTx(writeFunc func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := writeFunc(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// DB provides a direct connection for read-only queries.
func (s *Service) DB() *sql.DB {
	return s.db
}

// Close safely closes the database connection when the application shuts down.
func (s *Service) Close() {
	s.db.Close()
	log.Println("Database connection closed.")
}

// DBorTx is an interface that allows functions to accept either a `*sql.DB` for single queries
// or a `*sql.Tx` for operations within a transaction. This promotes code reuse.
type DBorTx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// InitSchema creates the tables, indexes, and summary views if they do not
// already exist. Idempotent and safe to run on every application start.
func (s *Service) InitSchema() error {
	return s.WriteTx(func(tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}
		return nil
	})
}

// schemaStatements holds the DDL for the whole platform. Ownership is strictly
// hierarchical: users -> group_info -> event_info -> event_members ->
// race_results, and help_requests -> help_replies. Deleting an owner cascades
// to its dependents; audit-style references (banned_by, recorded_by,
// assigned_to) are nulled out instead.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		location TEXT,
		profile_image TEXT,
		biography TEXT,
		platform_role TEXT NOT NULL DEFAULT 'participant'
			CHECK (platform_role IN ('participant', 'support_technician', 'super_admin')),
		status TEXT NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'banned')),
		notifications_enabled INTEGER NOT NULL DEFAULT 1,
		banned_reason TEXT,
		banned_by INTEGER REFERENCES users (user_id) ON DELETE SET NULL,
		banned_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	`CREATE TABLE IF NOT EXISTS group_info (
		group_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		group_location TEXT,
		group_type TEXT NOT NULL DEFAULT 'mixed'
			CHECK (group_type IN ('activity', 'social', 'mixed')),
		is_public INTEGER NOT NULL DEFAULT 1,
		max_members INTEGER CHECK (max_members IS NULL OR max_members > 0),
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('draft', 'pending', 'approved', 'rejected', 'inactive')),
		rejection_reason TEXT,
		first_members TEXT, -- denormalized username list, written by the application tier
		created_by INTEGER NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS idx_group_info_status ON group_info (status);`,
	`CREATE INDEX IF NOT EXISTS idx_group_info_created_by ON group_info (created_by);`,

	`CREATE TABLE IF NOT EXISTS group_members (
		membership_id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		group_id INTEGER NOT NULL REFERENCES group_info (group_id) ON DELETE CASCADE,
		group_role TEXT NOT NULL DEFAULT 'member'
			CHECK (group_role IN ('member', 'volunteer', 'manager')),
		status TEXT NOT NULL DEFAULT 'active'
			CHECK (status IN ('pending', 'active', 'left')),
		join_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		left_date DATETIME,
		UNIQUE (user_id, group_id),
		CHECK (left_date IS NULL OR left_date >= join_date)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_group_members_group ON group_members (group_id, status);`,

	`CREATE TABLE IF NOT EXISTS group_requests (
		request_id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		group_id INTEGER NOT NULL REFERENCES group_info (group_id) ON DELETE CASCADE,
		message TEXT,
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'approved', 'rejected')),
		rejection_reason TEXT,
		requested_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, group_id)
	);`,

	`CREATE TABLE IF NOT EXISTS event_info (
		event_id INTEGER PRIMARY KEY,
		group_id INTEGER NOT NULL REFERENCES group_info (group_id) ON DELETE CASCADE,
		event_title TEXT NOT NULL,
		description TEXT,
		event_type TEXT,
		event_date TEXT NOT NULL, -- ISO date, YYYY-MM-DD
		event_time TEXT,          -- HH:MM
		location TEXT,
		max_participants INTEGER CHECK (max_participants IS NULL OR max_participants > 0),
		status TEXT NOT NULL DEFAULT 'scheduled'
			CHECK (status IN ('draft', 'scheduled', 'completed', 'cancelled')),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS idx_event_info_group ON event_info (group_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_event_info_date ON event_info (event_date);`,

	`CREATE TABLE IF NOT EXISTS event_members (
		membership_id INTEGER PRIMARY KEY,
		event_id INTEGER NOT NULL REFERENCES event_info (event_id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		event_role TEXT NOT NULL DEFAULT 'participant'
			CHECK (event_role IN ('participant', 'volunteer')),
		participation_status TEXT NOT NULL DEFAULT 'registered'
			CHECK (participation_status IN ('registered', 'attended', 'no_show', 'cancelled')),
		registration_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		responsibility TEXT,
		volunteer_status TEXT
			CHECK (volunteer_status IS NULL OR volunteer_status IN ('assigned', 'confirmed', 'completed', 'cancelled')),
		volunteer_hours REAL CHECK (volunteer_hours IS NULL OR volunteer_hours >= 0),
		UNIQUE (event_id, user_id),
		CHECK (event_role = 'volunteer'
			OR (responsibility IS NULL AND volunteer_status IS NULL AND volunteer_hours IS NULL))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_event_members_user ON event_members (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_event_members_event ON event_members (event_id, participation_status);`,

	`CREATE TABLE IF NOT EXISTS race_results (
		membership_id INTEGER PRIMARY KEY
			REFERENCES event_members (membership_id) ON DELETE CASCADE,
		start_time DATETIME,
		finish_time DATETIME,
		race_rank INTEGER CHECK (race_rank IS NULL OR race_rank > 0),
		method TEXT NOT NULL DEFAULT 'manual' CHECK (method IN ('manual', 'csv')),
		recorded_by INTEGER REFERENCES users (user_id) ON DELETE SET NULL,
		recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (start_time IS NULL OR finish_time IS NULL OR finish_time > start_time)
	);`,

	`CREATE TABLE IF NOT EXISTS help_requests (
		request_id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		category TEXT NOT NULL
			CHECK (category IN ('technical_issue', 'account_problem', 'event_inquiry',
				'group_management', 'rejection_inquiry', 'general_help')),
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'medium'
			CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
		status TEXT NOT NULL DEFAULT 'new'
			CHECK (status IN ('new', 'assigned', 'blocked', 'solved')),
		assigned_to INTEGER REFERENCES users (user_id) ON DELETE SET NULL,
		resolved_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS idx_help_requests_status ON help_requests (status, priority);`,

	`CREATE TABLE IF NOT EXISTS help_replies (
		reply_id INTEGER PRIMARY KEY,
		request_id INTEGER NOT NULL REFERENCES help_requests (request_id) ON DELETE CASCADE,
		sender_id INTEGER NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		reply_content TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS idx_help_replies_request ON help_replies (request_id);`,

	`CREATE TABLE IF NOT EXISTS notifications (
		noti_id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'system'
			CHECK (category IN ('event', 'group', 'volunteer', 'system')),
		related_id INTEGER,
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, is_read);`,

	// user_activity_summary and group_activity_summary are plain
	// (non-materialized) views: every read recomputes them from current base
	// table state. Per-user aggregates use correlated subqueries rather than
	// joins so that summed volunteer hours are not inflated by row fan-out.
	`CREATE VIEW IF NOT EXISTS user_activity_summary AS
	SELECT
		u.user_id,
		u.username,
		(SELECT COUNT(*) FROM group_members gm
			WHERE gm.user_id = u.user_id AND gm.status = 'active') AS groups_joined,
		(SELECT COUNT(*) FROM group_info g
			WHERE g.created_by = u.user_id AND g.status = 'approved') AS groups_created,
		(SELECT COUNT(DISTINCT em.event_id) FROM event_members em
			WHERE em.user_id = u.user_id) AS events_participated,
		(SELECT COUNT(DISTINCT em.event_id) FROM event_members em
			WHERE em.user_id = u.user_id AND em.event_role = 'volunteer') AS volunteer_events,
		(SELECT COALESCE(SUM(em.volunteer_hours), 0) FROM event_members em
			WHERE em.user_id = u.user_id AND em.event_role = 'volunteer') AS total_volunteer_hours,
		(SELECT COUNT(DISTINCT em.event_id) FROM event_members em
			WHERE em.user_id = u.user_id AND em.participation_status = 'attended') AS events_attended
	FROM users u
	WHERE u.status = 'active';`,

	// avg_attendance is total registered+attended memberships across eligible
	// events divided by the number of eligible events, which equals the mean
	// per-event attendance including zero-attendance events.
	`CREATE VIEW IF NOT EXISTS group_activity_summary AS
	SELECT
		g.group_id,
		g.name,
		g.status,
		(SELECT COUNT(*) FROM group_members gm
			WHERE gm.group_id = g.group_id AND gm.status = 'active') AS active_members,
		(SELECT COUNT(*) FROM event_info e
			WHERE e.group_id = g.group_id) AS total_events,
		(SELECT COUNT(*) FROM event_info e
			WHERE e.group_id = g.group_id AND e.status = 'completed') AS completed_events,
		(SELECT COUNT(*) FROM event_info e
			WHERE e.group_id = g.group_id AND e.status = 'scheduled'
			AND e.event_date >= DATE('now')) AS upcoming_events,
		(SELECT COUNT(DISTINCT em.user_id)
			FROM event_members em
			JOIN event_info e ON e.event_id = em.event_id
			WHERE e.group_id = g.group_id
			AND em.participation_status = 'attended') AS unique_participants,
		COALESCE(
			CAST((SELECT COUNT(*)
				FROM event_members em
				JOIN event_info e ON e.event_id = em.event_id
				WHERE e.group_id = g.group_id
				AND e.status NOT IN ('cancelled', 'draft')
				AND em.participation_status IN ('registered', 'attended')) AS REAL)
			/ NULLIF((SELECT COUNT(*) FROM event_info e
				WHERE e.group_id = g.group_id
				AND e.status NOT IN ('cancelled', 'draft')), 0),
			0) AS avg_attendance
	FROM group_info g;`,
}
