package inventory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/pkg/racks"
)

// ListRacks returns a summary of every rack, ordered by name.
func (s *Service) ListRacks() ([]racks.RackSummary, error) {
	list, err := s.storage.ListRacks()
	if err != nil {
		return nil, err
	}
	summaries := make([]racks.RackSummary, 0, len(list))
	for _, rack := range list {
		summaries = append(summaries, rack.Summary())
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

// GetRack returns the rack with its equipment ordered bottom-up.
func (s *Service) GetRack(rackID uuid.UUID) (racks.Rack, error) {
	rack, err := s.storage.GetRack(rackID)
	if err != nil {
		return racks.Rack{}, err
	}
	racks.SortByPosition(rack.Equipment)
	return rack, nil
}

func validateTotalUnits(totalUnits int) error {
	if totalUnits < 1 || totalUnits > racks.MaxRackUnits {
		return racks.InvalidInput("totalUnits must be between 1 and %d, got %d", racks.MaxRackUnits, totalUnits)
	}
	return nil
}

func (s *Service) CreateRack(req RackRequest) (racks.Rack, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Location == "" {
		missing = append(missing, "location")
	}
	if req.TotalUnits == 0 {
		missing = append(missing, "totalUnits")
	}
	if len(missing) > 0 {
		return racks.Rack{}, racks.MissingFields(missing...)
	}
	if err := validateTotalUnits(req.TotalUnits); err != nil {
		return racks.Rack{}, err
	}

	rack := racks.Rack{
		ID:         uuid.New(),
		Name:       req.Name,
		Location:   req.Location,
		TotalUnits: req.TotalUnits,
		Equipment:  []racks.Equipment{},
	}
	if err := s.storage.SaveRack(rack.ID, rack); err != nil {
		return racks.Rack{}, err
	}

	s.record(EventRackCreated, map[string]interface{}{
		"rack_id":    rack.ID.String(),
		"name":       rack.Name,
		"totalUnits": rack.TotalUnits,
	})
	return rack, nil
}

// UpdateRack applies a partial update. The rack cannot shrink below the
// highest unit its equipment occupies.
func (s *Service) UpdateRack(rackID uuid.UUID, req RackUpdate) (racks.Rack, error) {
	unlock := s.lockRack(rackID)
	defer unlock()

	rack, err := s.storage.GetRack(rackID)
	if err != nil {
		return racks.Rack{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return racks.Rack{}, racks.InvalidInput("name must not be empty")
		}
		rack.Name = name
	}
	if req.Location != nil {
		location := strings.TrimSpace(*req.Location)
		if location == "" {
			return racks.Rack{}, racks.InvalidInput("location must not be empty")
		}
		rack.Location = location
	}
	if req.TotalUnits != nil {
		if err := validateTotalUnits(*req.TotalUnits); err != nil {
			return racks.Rack{}, err
		}
		if top := rack.HighestUsedUnit(); *req.TotalUnits < top {
			return racks.Rack{}, &racks.Error{
				Kind:    racks.KindOutOfBounds,
				Message: fmt.Sprintf("totalUnits cannot be lower than the highest occupied unit (U%d)", top),
			}
		}
		rack.TotalUnits = *req.TotalUnits
	}

	if err := s.storage.UpdateRack(rackID, rack); err != nil {
		return racks.Rack{}, err
	}

	s.record(EventRackUpdated, map[string]interface{}{
		"rack_id":    rackID.String(),
		"name":       rack.Name,
		"location":   rack.Location,
		"totalUnits": rack.TotalUnits,
	})
	racks.SortByPosition(rack.Equipment)
	return rack, nil
}

// DeleteRack removes the rack with all its equipment, ports and VMs.
func (s *Service) DeleteRack(rackID uuid.UUID) error {
	unlock := s.lockRack(rackID)
	defer unlock()

	rack, err := s.storage.GetRack(rackID)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteRack(rackID); err != nil {
		return err
	}

	s.record(EventRackDeleted, map[string]interface{}{
		"rack_id":        rackID.String(),
		"name":           rack.Name,
		"equipmentCount": len(rack.Equipment),
	})
	return nil
}

// FreeRanges reports the unoccupied unit runs of a rack.
func (s *Service) FreeRanges(rackID uuid.UUID) ([]racks.UnitRange, error) {
	rack, err := s.storage.GetRack(rackID)
	if err != nil {
		return nil, err
	}
	return racks.FreeRanges(rack), nil
}

// FirstFit returns the lowest position where size units are free.
func (s *Service) FirstFit(rackID uuid.UUID, size int) (int, error) {
	rack, err := s.storage.GetRack(rackID)
	if err != nil {
		return 0, err
	}
	return racks.FirstFit(rack, size)
}
