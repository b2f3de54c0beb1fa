package inventory

import (
	"strings"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/pkg/racks"
	"github.com/rs/zerolog/log"
)

// AddEquipment mounts equipment in a rack after checking its placement. A
// switch with a port count gets that many fresh ports.
func (s *Service) AddEquipment(rackID uuid.UUID, req EquipmentRequest) (racks.Equipment, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Brand = strings.TrimSpace(req.Brand)

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Brand == "" {
		missing = append(missing, "brand")
	}
	if req.Position == nil {
		missing = append(missing, "position")
	}
	if req.Size == nil {
		missing = append(missing, "size")
	}
	if len(missing) > 0 {
		return racks.Equipment{}, racks.MissingFields(missing...)
	}
	if !req.Type.Valid() {
		return racks.Equipment{}, racks.InvalidInput("type must be %q or %q, got %q", racks.ServerType, racks.SwitchType, req.Type)
	}

	unlock := s.lockRack(rackID)
	defer unlock()

	rack, err := s.storage.GetRack(rackID)
	if err != nil {
		return racks.Equipment{}, err
	}

	candidate := racks.Placement{Position: *req.Position, Size: *req.Size}
	if err := s.allocator.ValidatePlacement(rack, candidate, uuid.Nil); err != nil {
		log.Debug().Err(err).Str("rack_id", rackID.String()).Int("position", candidate.Position).Int("size", candidate.Size).Msg("placement rejected")
		return racks.Equipment{}, err
	}

	eq := racks.Equipment{
		ID:       uuid.New(),
		RackID:   rackID,
		Name:     req.Name,
		Type:     req.Type,
		Brand:    req.Brand,
		Position: candidate.Position,
		Size:     candidate.Size,
	}

	switch eq.Type {
	case racks.SwitchType:
		eq.PortCount = req.PortCount
		eq.IPAddress = strings.TrimSpace(req.IPAddress)
		eq.Vlans = racks.CleanVlanList(req.Vlans)
		eq.Ports, err = racks.InitializePorts(eq.ID, req.PortCount)
		if err != nil {
			return racks.Equipment{}, err
		}
	case racks.ServerType:
		eq.IdracIP = strings.TrimSpace(req.IdracIP)
		eq.Description = req.Description
	}

	if err := s.storage.SaveEquipment(eq.ID, eq); err != nil {
		return racks.Equipment{}, err
	}

	s.record(EventEquipmentAdded, map[string]interface{}{
		"rack_id":      rackID.String(),
		"equipment_id": eq.ID.String(),
		"name":         eq.Name,
		"type":         eq.Type.String(),
		"units":        eq.UnitLabel(),
	})
	return s.storage.GetEquipment(eq.ID)
}

// GetEquipment returns equipment with its ports and VMs.
func (s *Service) GetEquipment(equipmentID uuid.UUID) (racks.Equipment, error) {
	return s.storage.GetEquipment(equipmentID)
}

// lockEquipment locks the rack holding equipmentID and returns the
// equipment as read under that lock.
func (s *Service) lockEquipment(equipmentID uuid.UUID) (racks.Equipment, func(), error) {
	eq, err := s.storage.GetEquipment(equipmentID)
	if err != nil {
		return racks.Equipment{}, nil, err
	}
	unlock := s.lockRack(eq.RackID)
	eq, err = s.storage.GetEquipment(equipmentID)
	if err != nil {
		unlock()
		return racks.Equipment{}, nil, err
	}
	return eq, unlock, nil
}

// UpdateEquipment applies a partial update. Placement is re-checked, with
// the equipment excluded from its own overlap test, only when position or
// size is present. On a switch a changed port count re-initializes the ports
// and a new VLAN list prunes tags that no longer exist.
func (s *Service) UpdateEquipment(equipmentID uuid.UUID, req EquipmentUpdate) (racks.Equipment, error) {
	eq, unlock, err := s.lockEquipment(equipmentID)
	if err != nil {
		return racks.Equipment{}, err
	}
	defer unlock()

	if req.Type != nil && *req.Type != eq.Type {
		return racks.Equipment{}, racks.InvalidInput("equipment type cannot be changed from %q to %q", eq.Type, *req.Type)
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return racks.Equipment{}, racks.InvalidInput("name must not be empty")
		}
		eq.Name = name
	}
	if req.Brand != nil {
		brand := strings.TrimSpace(*req.Brand)
		if brand == "" {
			return racks.Equipment{}, racks.InvalidInput("brand must not be empty")
		}
		eq.Brand = brand
	}

	if req.Position != nil || req.Size != nil {
		candidate := eq.Placement()
		if req.Position != nil {
			candidate.Position = *req.Position
		}
		if req.Size != nil {
			candidate.Size = *req.Size
		}
		rack, err := s.storage.GetRack(eq.RackID)
		if err != nil {
			return racks.Equipment{}, err
		}
		if err := s.allocator.ValidatePlacement(rack, candidate, eq.ID); err != nil {
			return racks.Equipment{}, err
		}
		eq.Position = candidate.Position
		eq.Size = candidate.Size
	}

	portsReset := false
	var pruned []int
	switch eq.Type {
	case racks.SwitchType:
		if req.IPAddress != nil {
			eq.IPAddress = strings.TrimSpace(*req.IPAddress)
		}
		if req.PortCount != nil && *req.PortCount != eq.PortCount {
			ports, err := racks.InitializePorts(eq.ID, *req.PortCount)
			if err != nil {
				return racks.Equipment{}, err
			}
			eq.PortCount = *req.PortCount
			eq.Ports = ports
			portsReset = true
		}
		if req.Vlans != nil {
			eq.Vlans = racks.CleanVlanList(*req.Vlans)
			before := eq.Ports
			eq.Ports = racks.ReconcilePortVlans(eq.Ports, eq.Vlans)
			for i := range before {
				if len(before[i].TaggedVlans) != len(eq.Ports[i].TaggedVlans) {
					pruned = append(pruned, eq.Ports[i].PortNumber)
				}
			}
		}
	case racks.ServerType:
		if req.IdracIP != nil {
			eq.IdracIP = strings.TrimSpace(*req.IdracIP)
		}
		if req.Description != nil {
			eq.Description = *req.Description
		}
	}

	if err := s.storage.UpdateEquipment(equipmentID, eq); err != nil {
		return racks.Equipment{}, err
	}

	data := map[string]interface{}{
		"rack_id":      eq.RackID.String(),
		"equipment_id": eq.ID.String(),
		"name":         eq.Name,
		"units":        eq.UnitLabel(),
	}
	if portsReset {
		data["portCount"] = eq.PortCount
	}
	if len(pruned) > 0 {
		data["prunedPorts"] = pruned
	}
	s.record(EventEquipmentUpdated, data)
	return s.storage.GetEquipment(equipmentID)
}

// ResetPorts replaces a switch's ports with PortCount fresh ones.
func (s *Service) ResetPorts(equipmentID uuid.UUID, req ResetPortsRequest) (racks.Equipment, error) {
	if !req.Confirm {
		return racks.Equipment{}, racks.InvalidInput("resetting ports discards their configuration; set confirm to true")
	}

	eq, unlock, err := s.lockEquipment(equipmentID)
	if err != nil {
		return racks.Equipment{}, err
	}
	defer unlock()

	if !eq.IsSwitch() {
		return racks.Equipment{}, racks.InvalidInput("equipment %s is a %s; only switches have ports", eq.ID, eq.Type)
	}
	eq.Ports, err = racks.InitializePorts(eq.ID, eq.PortCount)
	if err != nil {
		return racks.Equipment{}, err
	}
	if err := s.storage.UpdateEquipment(equipmentID, eq); err != nil {
		return racks.Equipment{}, err
	}

	s.record(EventPortsReset, map[string]interface{}{
		"equipment_id": eq.ID.String(),
		"portCount":    eq.PortCount,
	})
	return s.storage.GetEquipment(equipmentID)
}

// DeleteEquipment removes equipment, with its ports and VMs, from the given
// rack. Equipment mounted in another rack is reported as not found.
func (s *Service) DeleteEquipment(rackID, equipmentID uuid.UUID) error {
	unlock := s.lockRack(rackID)
	defer unlock()

	eq, err := s.storage.GetEquipment(equipmentID)
	if err != nil {
		return err
	}
	if eq.RackID != rackID {
		return racks.NotFound("equipment", equipmentID)
	}
	if err := s.storage.DeleteEquipment(equipmentID); err != nil {
		return err
	}

	s.record(EventEquipmentDeleted, map[string]interface{}{
		"rack_id":      rackID.String(),
		"equipment_id": equipmentID.String(),
		"name":         eq.Name,
	})
	return nil
}
