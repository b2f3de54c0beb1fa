package duckdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/pkg/racks"
)

func (d *DuckDBStorage) SaveEquipment(equipmentID uuid.UUID, equipment racks.Equipment) error {
	ok, err := d.exists("racks", equipment.RackID)
	if err != nil {
		return err
	}
	if !ok {
		return racks.NotFound("rack", equipment.RackID)
	}
	return d.writeEquipment(equipmentID, equipment)
}

func (d *DuckDBStorage) GetEquipment(equipmentID uuid.UUID) (racks.Equipment, error) {
	var data string
	err := d.db.QueryRow(`SELECT data FROM equipment WHERE id = ?`, equipmentID).Scan(&data)
	if err != nil {
		return racks.Equipment{}, notFound(err, "equipment", equipmentID)
	}
	var eq racks.Equipment
	if err := json.Unmarshal([]byte(data), &eq); err != nil {
		return racks.Equipment{}, err
	}
	return d.hydrateEquipment(eq)
}

func (d *DuckDBStorage) UpdateEquipment(equipmentID uuid.UUID, equipment racks.Equipment) error {
	ok, err := d.exists("equipment", equipmentID)
	if err != nil {
		return err
	}
	if !ok {
		return racks.NotFound("equipment", equipmentID)
	}
	return d.writeEquipment(equipmentID, equipment)
}

func (d *DuckDBStorage) DeleteEquipment(equipmentID uuid.UUID) error {
	ok, err := d.exists("equipment", equipmentID)
	if err != nil {
		return err
	}
	if !ok {
		return racks.NotFound("equipment", equipmentID)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	queries := []string{
		`DELETE FROM switch_ports WHERE equipment_id = ?`,
		`DELETE FROM virtual_machines WHERE equipment_id = ?`,
		`DELETE FROM equipment WHERE id = ?`,
	}
	for _, query := range queries {
		if _, err := tx.Exec(query, equipmentID); err != nil {
			return fmt.Errorf("deleting equipment %s: %w", equipmentID, err)
		}
	}
	return tx.Commit()
}

func (d *DuckDBStorage) ListEquipment(rackID uuid.UUID) ([]racks.Equipment, error) {
	ok, err := d.exists("racks", rackID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, racks.NotFound("rack", rackID)
	}
	return d.rackEquipment(rackID)
}

func (d *DuckDBStorage) GetSwitchPort(portID uuid.UUID) (racks.SwitchPort, error) {
	var data string
	err := d.db.QueryRow(`SELECT data FROM switch_ports WHERE id = ?`, portID).Scan(&data)
	if err != nil {
		return racks.SwitchPort{}, notFound(err, "switch port", portID)
	}
	var port racks.SwitchPort
	if err := json.Unmarshal([]byte(data), &port); err != nil {
		return racks.SwitchPort{}, err
	}
	return normalizePort(port), nil
}

func (d *DuckDBStorage) UpdateSwitchPort(portID uuid.UUID, port racks.SwitchPort) error {
	existing, err := d.GetSwitchPort(portID)
	if err != nil {
		return err
	}
	port.ID = portID
	port.EquipmentID = existing.EquipmentID
	data, err := json.Marshal(normalizePort(port))
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`UPDATE switch_ports SET port_number = ?, data = ? WHERE id = ?`, port.PortNumber, string(data), portID)
	return err
}

func (d *DuckDBStorage) SaveVirtualMachine(vmID uuid.UUID, vm racks.VirtualMachine) error {
	ok, err := d.exists("equipment", vm.EquipmentID)
	if err != nil {
		return err
	}
	if !ok {
		return racks.NotFound("equipment", vm.EquipmentID)
	}
	vm.ID = vmID
	data, err := json.Marshal(vm)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`INSERT INTO virtual_machines (id, equipment_id, name, data) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data`, vmID, vm.EquipmentID, vm.Name, string(data))
	return err
}

func (d *DuckDBStorage) GetVirtualMachine(vmID uuid.UUID) (racks.VirtualMachine, error) {
	var data string
	err := d.db.QueryRow(`SELECT data FROM virtual_machines WHERE id = ?`, vmID).Scan(&data)
	if err != nil {
		return racks.VirtualMachine{}, notFound(err, "virtual machine", vmID)
	}
	var vm racks.VirtualMachine
	err = json.Unmarshal([]byte(data), &vm)
	return vm, err
}

func (d *DuckDBStorage) UpdateVirtualMachine(vmID uuid.UUID, vm racks.VirtualMachine) error {
	existing, err := d.GetVirtualMachine(vmID)
	if err != nil {
		return err
	}
	vm.ID = vmID
	vm.EquipmentID = existing.EquipmentID
	data, err := json.Marshal(vm)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`UPDATE virtual_machines SET name = ?, data = ? WHERE id = ?`, vm.Name, string(data), vmID)
	return err
}

func (d *DuckDBStorage) DeleteVirtualMachine(vmID uuid.UUID) error {
	ok, err := d.exists("virtual_machines", vmID)
	if err != nil {
		return err
	}
	if !ok {
		return racks.NotFound("virtual machine", vmID)
	}
	_, err = d.db.Exec(`DELETE FROM virtual_machines WHERE id = ?`, vmID)
	return err
}

// writeEquipment upserts the equipment row and makes equipment.Ports its
// complete port set. Ports are upserted rather than deleted and re-inserted
// because DuckDB rejects re-inserting a deleted key inside one transaction.
func (d *DuckDBStorage) writeEquipment(equipmentID uuid.UUID, equipment racks.Equipment) error {
	ports := equipment.Ports
	equipment.ID = equipmentID
	equipment.Ports = nil
	equipment.VirtualMachines = nil
	data, err := json.Marshal(equipment)
	if err != nil {
		return err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO equipment (id, rack_id, position, data) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET rack_id = excluded.rack_id, position = excluded.position, data = excluded.data`,
		equipmentID, equipment.RackID, equipment.Position, string(data))
	if err != nil {
		return fmt.Errorf("saving equipment %s: %w", equipmentID, err)
	}

	if err := replacePorts(tx, equipmentID, ports); err != nil {
		return fmt.Errorf("saving ports of %s: %w", equipmentID, err)
	}
	return tx.Commit()
}

func replacePorts(tx *sql.Tx, equipmentID uuid.UUID, ports []racks.SwitchPort) error {
	keep := make([]interface{}, 0, len(ports)+1)
	keep = append(keep, equipmentID)
	for _, port := range ports {
		port.EquipmentID = equipmentID
		data, err := json.Marshal(normalizePort(port))
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO switch_ports (id, equipment_id, port_number, data) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET equipment_id = excluded.equipment_id, port_number = excluded.port_number, data = excluded.data`,
			port.ID, equipmentID, port.PortNumber, string(data))
		if err != nil {
			return err
		}
		keep = append(keep, port.ID)
	}

	query := `DELETE FROM switch_ports WHERE equipment_id = ?`
	if len(ports) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ports)), ", ")
		query += ` AND id NOT IN (` + placeholders + `)`
	}
	_, err := tx.Exec(query, keep...)
	return err
}

func (d *DuckDBStorage) rackEquipment(rackID uuid.UUID) ([]racks.Equipment, error) {
	list, err := queryDocs[racks.Equipment](d.db, `SELECT data FROM equipment WHERE rack_id = ? ORDER BY position`, rackID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i], err = d.hydrateEquipment(list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (d *DuckDBStorage) hydrateEquipment(eq racks.Equipment) (racks.Equipment, error) {
	if eq.Vlans == nil {
		eq.Vlans = []string{}
	}

	ports, err := queryDocs[racks.SwitchPort](d.db, `SELECT data FROM switch_ports WHERE equipment_id = ? ORDER BY port_number`, eq.ID)
	if err != nil {
		return eq, err
	}
	for i := range ports {
		ports[i] = normalizePort(ports[i])
	}
	if len(ports) > 0 {
		eq.Ports = ports
	}

	vms, err := queryDocs[racks.VirtualMachine](d.db, `SELECT data FROM virtual_machines WHERE equipment_id = ? ORDER BY name`, eq.ID)
	if err != nil {
		return eq, err
	}
	if len(vms) > 0 {
		eq.VirtualMachines = vms
	}
	return eq, nil
}

func normalizePort(port racks.SwitchPort) racks.SwitchPort {
	if port.TaggedVlans == nil {
		port.TaggedVlans = []string{}
	}
	return port
}
