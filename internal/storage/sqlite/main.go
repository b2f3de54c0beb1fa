package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/openchami/rack-manager/pkg/racks"
	"github.com/rs/zerolog/log"
)

// SQLiteStorage keeps the inventory in relational tables. Child rows are
// removed by ON DELETE CASCADE, so foreign keys must be enabled on every
// connection.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database at path, or a private in-memory
// database when path is empty or ":memory:", and creates the schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	inMemory := path == "" || path == ":memory:"
	dsn := "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
	if inMemory {
		dsn = "file::memory:?_foreign_keys=on"
	} else {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// Every new connection to :memory: is a new, empty database.
	if inMemory {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening sqlite database %q: %w", path, err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite database: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite storage ready")
	return &SQLiteStorage{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS racks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			total_units INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS equipment (
			id TEXT PRIMARY KEY,
			rack_id TEXT NOT NULL REFERENCES racks(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			size INTEGER NOT NULL,
			port_count INTEGER NOT NULL DEFAULT 0,
			ip_address TEXT NOT NULL DEFAULT '',
			vlans TEXT,
			idrac_ip TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_equipment_rack ON equipment(rack_id, position);`,
		`CREATE TABLE IF NOT EXISTS switch_ports (
			id TEXT PRIMARY KEY,
			equipment_id TEXT NOT NULL REFERENCES equipment(id) ON DELETE CASCADE,
			port_number INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			connected INTEGER NOT NULL DEFAULT 0,
			is_fibre INTEGER NOT NULL DEFAULT 0,
			tagged_vlans TEXT,
			UNIQUE(equipment_id, port_number)
		);`,
		`CREATE TABLE IF NOT EXISTS virtual_machines (
			id TEXT PRIMARY KEY,
			equipment_id TEXT NOT NULL REFERENCES equipment(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			anydesk_code TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_vms_equipment ON virtual_machines(equipment_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%w (stmt: %s)", err, firstLine(stmt))
		}
	}
	return nil
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(stmt), "\n")
	return line
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Shutdown checkpoints the write-ahead log and closes the database.
func (s *SQLiteStorage) Shutdown(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		log.Warn().Err(err).Msg("SQLite checkpoint failed")
	}
	if err := s.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	}
}

func (s *SQLiteStorage) exists(table string, id uuid.UUID) (bool, error) {
	var one int
	err := s.db.QueryRow(fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, table), id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// deleteByID removes one row and reports NotFound when nothing matched.
func (s *SQLiteStorage) deleteByID(table, entity string, id uuid.UUID) error {
	res, err := s.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return racks.NotFound(entity, id)
	}
	return nil
}

func notFound(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return racks.NotFound(entity, id)
	}
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}
