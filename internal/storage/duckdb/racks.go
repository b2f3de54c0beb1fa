package duckdb

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/pkg/racks"
)

func (d *DuckDBStorage) SaveRack(rackID uuid.UUID, rack racks.Rack) error {
	rack.ID = rackID
	rack.Equipment = nil
	data, err := json.Marshal(rack)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`INSERT INTO racks (id, name, data) VALUES (?, ?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data`, rackID, rack.Name, string(data))
	return err
}

func (d *DuckDBStorage) GetRack(rackID uuid.UUID) (racks.Rack, error) {
	var data string
	err := d.db.QueryRow(`SELECT data FROM racks WHERE id = ?`, rackID).Scan(&data)
	if err != nil {
		return racks.Rack{}, notFound(err, "rack", rackID)
	}
	var rack racks.Rack
	if err := json.Unmarshal([]byte(data), &rack); err != nil {
		return racks.Rack{}, err
	}
	rack.Equipment, err = d.rackEquipment(rackID)
	return rack, err
}

func (d *DuckDBStorage) UpdateRack(rackID uuid.UUID, rack racks.Rack) error {
	ok, err := d.exists("racks", rackID)
	if err != nil {
		return err
	}
	if !ok {
		return racks.NotFound("rack", rackID)
	}
	return d.SaveRack(rackID, rack)
}

func (d *DuckDBStorage) DeleteRack(rackID uuid.UUID) error {
	ok, err := d.exists("racks", rackID)
	if err != nil {
		return err
	}
	if !ok {
		return racks.NotFound("rack", rackID)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	queries := []string{
		`DELETE FROM switch_ports WHERE equipment_id IN (SELECT id FROM equipment WHERE rack_id = ?)`,
		`DELETE FROM virtual_machines WHERE equipment_id IN (SELECT id FROM equipment WHERE rack_id = ?)`,
		`DELETE FROM equipment WHERE rack_id = ?`,
		`DELETE FROM racks WHERE id = ?`,
	}
	for _, query := range queries {
		if _, err := tx.Exec(query, rackID); err != nil {
			return fmt.Errorf("deleting rack %s: %w", rackID, err)
		}
	}
	return tx.Commit()
}

func (d *DuckDBStorage) ListRacks() ([]racks.Rack, error) {
	list, err := queryDocs[racks.Rack](d.db, `SELECT data FROM racks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Equipment, err = d.rackEquipment(list[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (d *DuckDBStorage) exists(table string, id uuid.UUID) (bool, error) {
	var count int
	err := d.db.QueryRow(fmt.Sprintf(`SELECT count(*) FROM %s WHERE id = ?`, table), id).Scan(&count)
	return count > 0, err
}

// queryDocs decodes the single JSON column of every returned row.
func queryDocs[T any](db *sql.DB, query string, args ...interface{}) ([]T, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var doc T
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
