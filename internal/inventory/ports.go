package inventory

import (
	"strings"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/pkg/racks"
)

// UpdateSwitchPort applies a partial update to one port. Tagged VLANs must
// all be configured on the parent switch.
func (s *Service) UpdateSwitchPort(portID uuid.UUID, req PortUpdate) (racks.SwitchPort, error) {
	port, err := s.storage.GetSwitchPort(portID)
	if err != nil {
		return racks.SwitchPort{}, err
	}
	sw, unlock, err := s.lockEquipment(port.EquipmentID)
	if err != nil {
		return racks.SwitchPort{}, err
	}
	defer unlock()

	// Re-read under the lock; a concurrent reset may have replaced the port.
	port, err = s.storage.GetSwitchPort(portID)
	if err != nil {
		return racks.SwitchPort{}, err
	}

	if req.Description != nil {
		port.Description = *req.Description
	}
	if req.Connected != nil {
		port.Connected = *req.Connected
	}
	if req.IsFibre != nil {
		port.IsFibre = *req.IsFibre
	}
	if req.TaggedVlans != nil {
		tags := racks.CleanVlanList(*req.TaggedVlans)
		if err := racks.ValidateTaggedVlans(tags, sw.Vlans); err != nil {
			return racks.SwitchPort{}, err
		}
		port.TaggedVlans = tags
	}

	if err := s.storage.UpdateSwitchPort(portID, port); err != nil {
		return racks.SwitchPort{}, err
	}

	s.record(EventPortUpdated, map[string]interface{}{
		"equipment_id": sw.ID.String(),
		"port_id":      portID.String(),
		"portNumber":   port.PortNumber,
		"connected":    port.Connected,
		"taggedVlans":  port.TaggedVlans,
	})
	return port, nil
}

// AddVirtualMachine creates a VM on a server. Any other owner, including a
// switch, is reported as not found.
func (s *Service) AddVirtualMachine(equipmentID uuid.UUID, req VirtualMachineRequest) (racks.VirtualMachine, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return racks.VirtualMachine{}, racks.MissingFields("name")
	}

	owner, unlock, err := s.lockEquipment(equipmentID)
	if err != nil {
		return racks.VirtualMachine{}, err
	}
	defer unlock()
	if !owner.IsServer() {
		return racks.VirtualMachine{}, racks.NotFound("server", equipmentID)
	}

	vm := racks.VirtualMachine{
		ID:          uuid.New(),
		EquipmentID: equipmentID,
		Name:        name,
		Description: req.Description,
		AnydeskCode: strings.TrimSpace(req.AnydeskCode),
		IPAddress:   strings.TrimSpace(req.IPAddress),
	}
	if err := s.storage.SaveVirtualMachine(vm.ID, vm); err != nil {
		return racks.VirtualMachine{}, err
	}

	s.record(EventVMAdded, map[string]interface{}{
		"equipment_id": equipmentID.String(),
		"vm_id":        vm.ID.String(),
		"name":         vm.Name,
	})
	return vm, nil
}

func (s *Service) UpdateVirtualMachine(vmID uuid.UUID, req VirtualMachineUpdate) (racks.VirtualMachine, error) {
	vm, err := s.storage.GetVirtualMachine(vmID)
	if err != nil {
		return racks.VirtualMachine{}, err
	}
	_, unlock, err := s.lockEquipment(vm.EquipmentID)
	if err != nil {
		return racks.VirtualMachine{}, err
	}
	defer unlock()

	vm, err = s.storage.GetVirtualMachine(vmID)
	if err != nil {
		return racks.VirtualMachine{}, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return racks.VirtualMachine{}, racks.InvalidInput("name must not be empty")
		}
		vm.Name = name
	}
	if req.Description != nil {
		vm.Description = *req.Description
	}
	if req.AnydeskCode != nil {
		vm.AnydeskCode = strings.TrimSpace(*req.AnydeskCode)
	}
	if req.IPAddress != nil {
		vm.IPAddress = strings.TrimSpace(*req.IPAddress)
	}

	if err := s.storage.UpdateVirtualMachine(vmID, vm); err != nil {
		return racks.VirtualMachine{}, err
	}

	s.record(EventVMUpdated, map[string]interface{}{
		"equipment_id": vm.EquipmentID.String(),
		"vm_id":        vmID.String(),
		"name":         vm.Name,
	})
	return vm, nil
}

// DeleteVirtualMachine removes a VM from the given server. A VM hosted on a
// different server is reported as not found.
func (s *Service) DeleteVirtualMachine(equipmentID, vmID uuid.UUID) error {
	_, unlock, err := s.lockEquipment(equipmentID)
	if err != nil {
		return err
	}
	defer unlock()

	vm, err := s.storage.GetVirtualMachine(vmID)
	if err != nil {
		return err
	}
	if vm.EquipmentID != equipmentID {
		return racks.NotFound("virtual machine", vmID)
	}
	if err := s.storage.DeleteVirtualMachine(vmID); err != nil {
		return err
	}

	s.record(EventVMDeleted, map[string]interface{}{
		"equipment_id": equipmentID.String(),
		"vm_id":        vmID.String(),
		"name":         vm.Name,
	})
	return nil
}
