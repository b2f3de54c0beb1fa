package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/internal/storage"
	"github.com/openchami/rack-manager/pkg/racks"
)

const equipmentColumns = `id, rack_id, name, type, brand, position, size, port_count, ip_address, vlans, idrac_ip, description`

func scanEquipment(row scanner) (racks.Equipment, error) {
	var eq racks.Equipment
	var vlans sql.NullString
	err := row.Scan(&eq.ID, &eq.RackID, &eq.Name, &eq.Type, &eq.Brand, &eq.Position, &eq.Size,
		&eq.PortCount, &eq.IPAddress, &vlans, &eq.IdracIP, &eq.Description)
	eq.Vlans = storage.DecodeLabels(vlans)
	return eq, err
}

const portColumns = `id, equipment_id, port_number, description, connected, is_fibre, tagged_vlans`

func scanPort(row scanner) (racks.SwitchPort, error) {
	var port racks.SwitchPort
	var tagged sql.NullString
	err := row.Scan(&port.ID, &port.EquipmentID, &port.PortNumber, &port.Description, &port.Connected, &port.IsFibre, &tagged)
	port.TaggedVlans = storage.DecodeLabels(tagged)
	return port, err
}

const vmColumns = `id, equipment_id, name, description, anydesk_code, ip_address`

func scanVirtualMachine(row scanner) (racks.VirtualMachine, error) {
	var vm racks.VirtualMachine
	err := row.Scan(&vm.ID, &vm.EquipmentID, &vm.Name, &vm.Description, &vm.AnydeskCode, &vm.IPAddress)
	return vm, err
}

func (s *SQLiteStorage) SaveEquipment(equipmentID uuid.UUID, equipment racks.Equipment) error {
	ok, err := s.exists("racks", equipment.RackID)
	if err != nil {
		return err
	}
	if !ok {
		return racks.NotFound("rack", equipment.RackID)
	}

	vlans, err := storage.EncodeLabels(equipment.Vlans)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO equipment (`+equipmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		equipmentID.String(), equipment.RackID.String(), equipment.Name, equipment.Type.String(), equipment.Brand,
		equipment.Position, equipment.Size, equipment.PortCount, equipment.IPAddress, vlans,
		equipment.IdracIP, equipment.Description,
	)
	if err != nil {
		return fmt.Errorf("saving equipment %s: %w", equipmentID, err)
	}
	if err := insertPorts(tx, equipmentID, equipment.Ports); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) GetEquipment(equipmentID uuid.UUID) (racks.Equipment, error) {
	eq, err := scanEquipment(s.db.QueryRow(`SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`, equipmentID.String()))
	if err != nil {
		return racks.Equipment{}, notFound(err, "equipment", equipmentID)
	}
	return s.hydrateEquipment(eq)
}

func (s *SQLiteStorage) UpdateEquipment(equipmentID uuid.UUID, equipment racks.Equipment) error {
	vlans, err := storage.EncodeLabels(equipment.Vlans)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE equipment SET name = ?, type = ?, brand = ?, position = ?, size = ?, port_count = ?,
		 ip_address = ?, vlans = ?, idrac_ip = ?, description = ? WHERE id = ?`,
		equipment.Name, equipment.Type.String(), equipment.Brand, equipment.Position, equipment.Size,
		equipment.PortCount, equipment.IPAddress, vlans, equipment.IdracIP, equipment.Description,
		equipmentID.String(),
	)
	if err != nil {
		return fmt.Errorf("updating equipment %s: %w", equipmentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return racks.NotFound("equipment", equipmentID)
	}

	if _, err := tx.Exec(`DELETE FROM switch_ports WHERE equipment_id = ?`, equipmentID.String()); err != nil {
		return err
	}
	if err := insertPorts(tx, equipmentID, equipment.Ports); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteEquipment relies on ON DELETE CASCADE for ports and VMs.
func (s *SQLiteStorage) DeleteEquipment(equipmentID uuid.UUID) error {
	return s.deleteByID("equipment", "equipment", equipmentID)
}

func (s *SQLiteStorage) ListEquipment(rackID uuid.UUID) ([]racks.Equipment, error) {
	ok, err := s.exists("racks", rackID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, racks.NotFound("rack", rackID)
	}
	return s.rackEquipment(rackID)
}

func (s *SQLiteStorage) GetSwitchPort(portID uuid.UUID) (racks.SwitchPort, error) {
	port, err := scanPort(s.db.QueryRow(`SELECT `+portColumns+` FROM switch_ports WHERE id = ?`, portID.String()))
	if err != nil {
		return racks.SwitchPort{}, notFound(err, "switch port", portID)
	}
	return port, nil
}

func (s *SQLiteStorage) UpdateSwitchPort(portID uuid.UUID, port racks.SwitchPort) error {
	tagged, err := storage.EncodeLabels(port.TaggedVlans)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE switch_ports SET port_number = ?, description = ?, connected = ?, is_fibre = ?, tagged_vlans = ? WHERE id = ?`,
		port.PortNumber, port.Description, port.Connected, port.IsFibre, tagged, portID.String(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return racks.NotFound("switch port", portID)
	}
	return nil
}

func (s *SQLiteStorage) SaveVirtualMachine(vmID uuid.UUID, vm racks.VirtualMachine) error {
	ok, err := s.exists("equipment", vm.EquipmentID)
	if err != nil {
		return err
	}
	if !ok {
		return racks.NotFound("equipment", vm.EquipmentID)
	}
	_, err = s.db.Exec(
		`INSERT INTO virtual_machines (`+vmColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		vmID.String(), vm.EquipmentID.String(), vm.Name, vm.Description, vm.AnydeskCode, vm.IPAddress,
	)
	return err
}

func (s *SQLiteStorage) GetVirtualMachine(vmID uuid.UUID) (racks.VirtualMachine, error) {
	vm, err := scanVirtualMachine(s.db.QueryRow(`SELECT `+vmColumns+` FROM virtual_machines WHERE id = ?`, vmID.String()))
	if err != nil {
		return racks.VirtualMachine{}, notFound(err, "virtual machine", vmID)
	}
	return vm, nil
}

func (s *SQLiteStorage) UpdateVirtualMachine(vmID uuid.UUID, vm racks.VirtualMachine) error {
	res, err := s.db.Exec(
		`UPDATE virtual_machines SET name = ?, description = ?, anydesk_code = ?, ip_address = ? WHERE id = ?`,
		vm.Name, vm.Description, vm.AnydeskCode, vm.IPAddress, vmID.String(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return racks.NotFound("virtual machine", vmID)
	}
	return nil
}

func (s *SQLiteStorage) DeleteVirtualMachine(vmID uuid.UUID) error {
	return s.deleteByID("virtual_machines", "virtual machine", vmID)
}

func insertPorts(tx *sql.Tx, equipmentID uuid.UUID, ports []racks.SwitchPort) error {
	if len(ports) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO switch_ports (` + portColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, port := range ports {
		tagged, err := storage.EncodeLabels(port.TaggedVlans)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(port.ID.String(), equipmentID.String(), port.PortNumber, port.Description, port.Connected, port.IsFibre, tagged); err != nil {
			return fmt.Errorf("saving port %d of %s: %w", port.PortNumber, equipmentID, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) rackEquipment(rackID uuid.UUID) ([]racks.Equipment, error) {
	rows, err := s.db.Query(`SELECT `+equipmentColumns+` FROM equipment WHERE rack_id = ? ORDER BY position`, rackID.String())
	if err != nil {
		return nil, err
	}
	list := []racks.Equipment{}
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, eq)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Hydrate after the cursor is closed; in-memory databases have a single
	// connection.
	for i := range list {
		if list[i], err = s.hydrateEquipment(list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (s *SQLiteStorage) hydrateEquipment(eq racks.Equipment) (racks.Equipment, error) {
	rows, err := s.db.Query(`SELECT `+portColumns+` FROM switch_ports WHERE equipment_id = ? ORDER BY port_number`, eq.ID.String())
	if err != nil {
		return eq, err
	}
	for rows.Next() {
		port, err := scanPort(rows)
		if err != nil {
			rows.Close()
			return eq, err
		}
		eq.Ports = append(eq.Ports, port)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return eq, err
	}

	rows, err = s.db.Query(`SELECT `+vmColumns+` FROM virtual_machines WHERE equipment_id = ? ORDER BY name`, eq.ID.String())
	if err != nil {
		return eq, err
	}
	defer rows.Close()
	for rows.Next() {
		vm, err := scanVirtualMachine(rows)
		if err != nil {
			return eq, err
		}
		eq.VirtualMachines = append(eq.VirtualMachines, vm)
	}
	return eq, rows.Err()
}
