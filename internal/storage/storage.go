package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/pkg/racks"
)

// Storage persists the rack inventory. Reads return hydrated values: a rack
// carries its equipment, equipment carries its ports and virtual machines.
// Absent ids are reported with a racks.KindNotFound error.
type Storage interface {
	SaveRack(rackID uuid.UUID, rack racks.Rack) error
	GetRack(rackID uuid.UUID) (racks.Rack, error)
	UpdateRack(rackID uuid.UUID, rack racks.Rack) error
	DeleteRack(rackID uuid.UUID) error
	ListRacks() ([]racks.Rack, error)

	// SaveEquipment and UpdateEquipment store equipment.Ports as the complete
	// port set of the equipment. Virtual machines are stored separately.
	SaveEquipment(equipmentID uuid.UUID, equipment racks.Equipment) error
	GetEquipment(equipmentID uuid.UUID) (racks.Equipment, error)
	UpdateEquipment(equipmentID uuid.UUID, equipment racks.Equipment) error
	DeleteEquipment(equipmentID uuid.UUID) error
	ListEquipment(rackID uuid.UUID) ([]racks.Equipment, error)

	GetSwitchPort(portID uuid.UUID) (racks.SwitchPort, error)
	UpdateSwitchPort(portID uuid.UUID, port racks.SwitchPort) error

	SaveVirtualMachine(vmID uuid.UUID, vm racks.VirtualMachine) error
	GetVirtualMachine(vmID uuid.UUID) (racks.VirtualMachine, error)
	UpdateVirtualMachine(vmID uuid.UUID, vm racks.VirtualMachine) error
	DeleteVirtualMachine(vmID uuid.UUID) error
}

// Shutdowner is implemented by backends holding resources that must be
// released, or state that must be persisted, when the server stops.
type Shutdowner interface {
	Shutdown(ctx context.Context)
}
