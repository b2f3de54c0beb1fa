package sqlite

import (
	"github.com/google/uuid"
	"github.com/openchami/rack-manager/pkg/racks"
)

const rackColumns = `id, name, location, total_units`

func scanRack(row scanner) (racks.Rack, error) {
	var rack racks.Rack
	err := row.Scan(&rack.ID, &rack.Name, &rack.Location, &rack.TotalUnits)
	return rack, err
}

func (s *SQLiteStorage) SaveRack(rackID uuid.UUID, rack racks.Rack) error {
	_, err := s.db.Exec(
		`INSERT INTO racks (`+rackColumns+`) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, location = excluded.location, total_units = excluded.total_units`,
		rackID.String(), rack.Name, rack.Location, rack.TotalUnits,
	)
	return err
}

func (s *SQLiteStorage) GetRack(rackID uuid.UUID) (racks.Rack, error) {
	rack, err := scanRack(s.db.QueryRow(`SELECT `+rackColumns+` FROM racks WHERE id = ?`, rackID.String()))
	if err != nil {
		return racks.Rack{}, notFound(err, "rack", rackID)
	}
	rack.Equipment, err = s.rackEquipment(rackID)
	return rack, err
}

func (s *SQLiteStorage) UpdateRack(rackID uuid.UUID, rack racks.Rack) error {
	res, err := s.db.Exec(
		`UPDATE racks SET name = ?, location = ?, total_units = ? WHERE id = ?`,
		rack.Name, rack.Location, rack.TotalUnits, rackID.String(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return racks.NotFound("rack", rackID)
	}
	return nil
}

// DeleteRack relies on ON DELETE CASCADE for equipment, ports and VMs.
func (s *SQLiteStorage) DeleteRack(rackID uuid.UUID) error {
	return s.deleteByID("racks", "rack", rackID)
}

func (s *SQLiteStorage) ListRacks() ([]racks.Rack, error) {
	rows, err := s.db.Query(`SELECT ` + rackColumns + ` FROM racks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	list := []racks.Rack{}
	for rows.Next() {
		rack, err := scanRack(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, rack)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range list {
		if list[i].Equipment, err = s.rackEquipment(list[i].ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}
