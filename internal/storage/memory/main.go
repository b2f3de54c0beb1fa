package memory

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/pkg/racks"
)

// InMemoryStorage keeps the inventory in maps. Each entity is stored flat and
// joined back together on read.
type InMemoryStorage struct {
	mu        sync.RWMutex
	racks     map[uuid.UUID]racks.Rack
	equipment map[uuid.UUID]racks.Equipment
	ports     map[uuid.UUID]racks.SwitchPort
	vms       map[uuid.UUID]racks.VirtualMachine
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		racks:     make(map[uuid.UUID]racks.Rack),
		equipment: make(map[uuid.UUID]racks.Equipment),
		ports:     make(map[uuid.UUID]racks.SwitchPort),
		vms:       make(map[uuid.UUID]racks.VirtualMachine),
	}
}

func (s *InMemoryStorage) SaveRack(rackID uuid.UUID, rack racks.Rack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rack.ID = rackID
	rack.Equipment = nil
	s.racks[rackID] = rack
	return nil
}

func (s *InMemoryStorage) GetRack(rackID uuid.UUID) (racks.Rack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rack, ok := s.racks[rackID]
	if !ok {
		return racks.Rack{}, racks.NotFound("rack", rackID)
	}
	return s.hydrateRack(rack), nil
}

func (s *InMemoryStorage) UpdateRack(rackID uuid.UUID, rack racks.Rack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.racks[rackID]; !ok {
		return racks.NotFound("rack", rackID)
	}
	rack.ID = rackID
	rack.Equipment = nil
	s.racks[rackID] = rack
	return nil
}

func (s *InMemoryStorage) DeleteRack(rackID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.racks[rackID]; !ok {
		return racks.NotFound("rack", rackID)
	}
	for id, eq := range s.equipment {
		if eq.RackID == rackID {
			s.deleteEquipmentLocked(id)
		}
	}
	delete(s.racks, rackID)
	return nil
}

func (s *InMemoryStorage) ListRacks() ([]racks.Rack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]racks.Rack, 0, len(s.racks))
	for _, rack := range s.racks {
		list = append(list, s.hydrateRack(rack))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (s *InMemoryStorage) SaveEquipment(equipmentID uuid.UUID, equipment racks.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.racks[equipment.RackID]; !ok {
		return racks.NotFound("rack", equipment.RackID)
	}
	s.putEquipmentLocked(equipmentID, equipment)
	return nil
}

func (s *InMemoryStorage) GetEquipment(equipmentID uuid.UUID) (racks.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eq, ok := s.equipment[equipmentID]
	if !ok {
		return racks.Equipment{}, racks.NotFound("equipment", equipmentID)
	}
	return s.hydrateEquipment(eq), nil
}

func (s *InMemoryStorage) UpdateEquipment(equipmentID uuid.UUID, equipment racks.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.equipment[equipmentID]; !ok {
		return racks.NotFound("equipment", equipmentID)
	}
	for id, port := range s.ports {
		if port.EquipmentID == equipmentID {
			delete(s.ports, id)
		}
	}
	s.putEquipmentLocked(equipmentID, equipment)
	return nil
}

func (s *InMemoryStorage) DeleteEquipment(equipmentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.equipment[equipmentID]; !ok {
		return racks.NotFound("equipment", equipmentID)
	}
	s.deleteEquipmentLocked(equipmentID)
	return nil
}

func (s *InMemoryStorage) ListEquipment(rackID uuid.UUID) ([]racks.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.racks[rackID]; !ok {
		return nil, racks.NotFound("rack", rackID)
	}
	return s.rackEquipment(rackID), nil
}

func (s *InMemoryStorage) GetSwitchPort(portID uuid.UUID) (racks.SwitchPort, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	port, ok := s.ports[portID]
	if !ok {
		return racks.SwitchPort{}, racks.NotFound("switch port", portID)
	}
	return clonePort(port), nil
}

func (s *InMemoryStorage) UpdateSwitchPort(portID uuid.UUID, port racks.SwitchPort) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.ports[portID]
	if !ok {
		return racks.NotFound("switch port", portID)
	}
	port.ID = portID
	port.EquipmentID = existing.EquipmentID
	s.ports[portID] = clonePort(port)
	return nil
}

func (s *InMemoryStorage) SaveVirtualMachine(vmID uuid.UUID, vm racks.VirtualMachine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.equipment[vm.EquipmentID]; !ok {
		return racks.NotFound("equipment", vm.EquipmentID)
	}
	vm.ID = vmID
	s.vms[vmID] = vm
	return nil
}

func (s *InMemoryStorage) GetVirtualMachine(vmID uuid.UUID) (racks.VirtualMachine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vm, ok := s.vms[vmID]
	if !ok {
		return racks.VirtualMachine{}, racks.NotFound("virtual machine", vmID)
	}
	return vm, nil
}

func (s *InMemoryStorage) UpdateVirtualMachine(vmID uuid.UUID, vm racks.VirtualMachine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.vms[vmID]
	if !ok {
		return racks.NotFound("virtual machine", vmID)
	}
	vm.ID = vmID
	vm.EquipmentID = existing.EquipmentID
	s.vms[vmID] = vm
	return nil
}

func (s *InMemoryStorage) DeleteVirtualMachine(vmID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vms[vmID]; !ok {
		return racks.NotFound("virtual machine", vmID)
	}
	delete(s.vms, vmID)
	return nil
}

// putEquipmentLocked stores the equipment row and its ports. Callers hold mu.
func (s *InMemoryStorage) putEquipmentLocked(equipmentID uuid.UUID, equipment racks.Equipment) {
	for _, port := range equipment.Ports {
		port.EquipmentID = equipmentID
		s.ports[port.ID] = clonePort(port)
	}
	equipment.ID = equipmentID
	equipment.Vlans = cloneLabels(equipment.Vlans)
	equipment.Ports = nil
	equipment.VirtualMachines = nil
	s.equipment[equipmentID] = equipment
}

func (s *InMemoryStorage) deleteEquipmentLocked(equipmentID uuid.UUID) {
	for id, port := range s.ports {
		if port.EquipmentID == equipmentID {
			delete(s.ports, id)
		}
	}
	for id, vm := range s.vms {
		if vm.EquipmentID == equipmentID {
			delete(s.vms, id)
		}
	}
	delete(s.equipment, equipmentID)
}

func (s *InMemoryStorage) hydrateRack(rack racks.Rack) racks.Rack {
	rack.Equipment = s.rackEquipment(rack.ID)
	return rack
}

func (s *InMemoryStorage) rackEquipment(rackID uuid.UUID) []racks.Equipment {
	list := []racks.Equipment{}
	for _, eq := range s.equipment {
		if eq.RackID == rackID {
			list = append(list, s.hydrateEquipment(eq))
		}
	}
	racks.SortByPosition(list)
	return list
}

func (s *InMemoryStorage) hydrateEquipment(eq racks.Equipment) racks.Equipment {
	eq.Vlans = cloneLabels(eq.Vlans)
	eq.Ports = nil
	eq.VirtualMachines = nil
	for _, port := range s.ports {
		if port.EquipmentID == eq.ID {
			eq.Ports = append(eq.Ports, clonePort(port))
		}
	}
	racks.SortPorts(eq.Ports)
	for _, vm := range s.vms {
		if vm.EquipmentID == eq.ID {
			eq.VirtualMachines = append(eq.VirtualMachines, vm)
		}
	}
	sort.Slice(eq.VirtualMachines, func(i, j int) bool {
		return eq.VirtualMachines[i].Name < eq.VirtualMachines[j].Name
	})
	return eq
}

func clonePort(port racks.SwitchPort) racks.SwitchPort {
	port.TaggedVlans = cloneLabels(port.TaggedVlans)
	return port
}

func cloneLabels(labels []string) []string {
	return append([]string{}, labels...)
}
