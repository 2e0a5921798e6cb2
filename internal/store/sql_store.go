package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore is a database/sql-backed Store that can target sqlite,
// postgres, mysql, or sqlserver depending on the dbType passed to
// Open, dispatching to the matching driver name exactly as a
// multi-backend connection manager would for any other resource kind
// — here repurposed to persist Session snapshots instead.
type SQLStore struct {
	db     *sql.DB
	dbType string
}

// Open connects to dsn using the driver for dbType ("sqlite",
// "postgres"/"postgresql", "mysql", or "mssql"/"sqlserver") and
// ensures the sessions table exists.
func Open(dbType, dsn string) (*SQLStore, error) {
	driverName, err := driverFor(dbType)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLStore{db: db, dbType: dbType}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func driverFor(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "mssql", "sqlserver":
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("store: unsupported database type %q", dbType)
	}
}

// ph rewrites '?' placeholders to postgres's positional '$1, $2, ...'
// style for that backend only; every other driver here accepts '?'
// natively.
func (s *SQLStore) ph(query string) string {
	if s.dbType != "postgres" && s.dbType != "postgresql" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func (s *SQLStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS dialogue_sessions (
	session_id   VARCHAR(64) PRIMARY KEY,
	bot_name     VARCHAR(255) NOT NULL,
	state        VARCHAR(255) NOT NULL,
	globals_json TEXT NOT NULL,
	updated_at   TIMESTAMP NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

func (s *SQLStore) Save(ctx context.Context, snap Snapshot) error {
	_, err := s.db.ExecContext(ctx, s.ph(`
DELETE FROM dialogue_sessions WHERE session_id = ?`), snap.SessionID)
	if err != nil {
		return fmt.Errorf("store: save (clear): %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.ph(`
INSERT INTO dialogue_sessions (session_id, bot_name, state, globals_json, updated_at)
VALUES (?, ?, ?, ?, ?)`), snap.SessionID, snap.BotName, snap.State, snap.GlobalsJSON, time.Now())
	if err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	row := s.db.QueryRowContext(ctx, s.ph(`
SELECT session_id, bot_name, state, globals_json FROM dialogue_sessions WHERE session_id = ?`), sessionID)
	var snap Snapshot
	err := row.Scan(&snap.SessionID, &snap.BotName, &snap.State, &snap.GlobalsJSON)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("store: load: %w", err)
	}
	return snap, true, nil
}

func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, s.ph(`DELETE FROM dialogue_sessions WHERE session_id = ?`), sessionID)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
