package duckdb

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/openchami/rack-manager/pkg/racks"
	"github.com/rs/zerolog/log"
)

// DuckDBStorage keeps each entity as a JSON document keyed by its id, with
// the columns needed for joins and ordering kept alongside.
type DuckDBStorage struct {
	db           *sql.DB
	snapshotPath string
}

func NewDuckDBStorage(path string, options ...DuckDBStorageOption) (*DuckDBStorage, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	d := &DuckDBStorage{db: db}

	d.loadExtensions()

	for _, option := range options {
		err := option.apply(d)
		if err != nil {
			log.Warn().Err(err).Msg("Error applying DuckDBStorage option")
		}
	}

	if err := d.initTables(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// initTables creates the schema. Only primary keys are indexed: DuckDB cannot
// update indexed columns through ON CONFLICT.
func (d *DuckDBStorage) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS racks (id UUID PRIMARY KEY, name TEXT, added TIMESTAMP DEFAULT CURRENT_TIMESTAMP, data JSON)`,
		`CREATE TABLE IF NOT EXISTS equipment (id UUID PRIMARY KEY, rack_id UUID, position INTEGER, data JSON)`,
		`CREATE TABLE IF NOT EXISTS switch_ports (id UUID PRIMARY KEY, equipment_id UUID, port_number INTEGER, data JSON)`,
		`CREATE TABLE IF NOT EXISTS virtual_machines (id UUID PRIMARY KEY, equipment_id UUID, name TEXT, data JSON)`,
	}
	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (d *DuckDBStorage) Close() error {
	return d.db.Close()
}

func (d *DuckDBStorage) loadExtensions() error {
	_, err := d.db.Exec("SET autoinstall_known_extensions=1;INSTALL json;LOAD json;INSTALL parquet;LOAD parquet")
	if err != nil {
		log.Error().Err(err).Msg("Failed to load DuckDB extensions")
	}
	return err
}

// Shutdown takes a final snapshot, when a snapshot path is configured, and
// closes the database.
func (d *DuckDBStorage) Shutdown(ctx context.Context) {
	if d.snapshotPath != "" {
		log.Info().Msg("Taking final snapshot before shutdown")
		if _, err := d.SnapshotParquet(ctx, d.snapshotPath); err != nil {
			log.Error().Err(err).Msg("Error taking final snapshot")
		}
	}

	log.Info().Msg("Closing database connection")
	if err := d.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	}

	log.Info().Msg("DuckDB Shutdown complete")
}

// notFound translates sql.ErrNoRows into the inventory's NotFound error.
func notFound(err error, entity string, id interface{ String() string }) error {
	if errors.Is(err, sql.ErrNoRows) {
		return racks.NotFound(entity, id)
	}
	return err
}
