package racks

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
)

// MaxRackUnits is the tallest rack the inventory accepts.
const MaxRackUnits = 60

// EquipmentType represents the kind of device mounted in a rack.
type EquipmentType string

const (
	ServerType EquipmentType = "server"
	SwitchType EquipmentType = "switch"
)

// String returns the string representation of EquipmentType.
func (t EquipmentType) String() string {
	return string(t)
}

// Valid reports whether t is one of the known equipment types.
func (t EquipmentType) Valid() bool {
	return t == ServerType || t == SwitchType
}

// JSONSchema for EquipmentType to enforce enum and description.
func (EquipmentType) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Enum:        []interface{}{string(ServerType), string(SwitchType)},
		Title:       "EquipmentType",
		Description: "The type of the equipment. Switches carry ports and VLANs, servers carry virtual machines.",
	}
}

// Rack is a physical rack with a fixed number of units.
type Rack struct {
	ID         uuid.UUID   `json:"id,omitempty" format:"uuid"`
	Name       string      `json:"name"`
	Location   string      `json:"location"`
	TotalUnits int         `json:"totalUnits" jsonschema:"minimum=1,maximum=60"`
	Equipment  []Equipment `json:"equipment"`
}

// RackSummary is the list view of a rack.
type RackSummary struct {
	ID             uuid.UUID `json:"id" format:"uuid"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	TotalUnits     int       `json:"totalUnits"`
	UsedUnits      int       `json:"usedUnits"`
	EquipmentCount int       `json:"equipmentCount"`
}

// Summary builds the list view of r from its current equipment.
func (r Rack) Summary() RackSummary {
	return RackSummary{
		ID:             r.ID,
		Name:           r.Name,
		Location:       r.Location,
		TotalUnits:     r.TotalUnits,
		UsedUnits:      UsedUnits(r.Equipment),
		EquipmentCount: len(r.Equipment),
	}
}

// HighestUsedUnit returns the top occupied unit, or 0 for an empty rack.
func (r Rack) HighestUsedUnit() int {
	top := 0
	for _, eq := range r.Equipment {
		if eq.End() > top {
			top = eq.End()
		}
	}
	return top
}

// Equipment is a device occupying a contiguous run of rack units.
type Equipment struct {
	ID       uuid.UUID     `json:"id,omitempty" format:"uuid"`
	RackID   uuid.UUID     `json:"rack_id,omitempty" format:"uuid"`
	Name     string        `json:"name"`
	Type     EquipmentType `json:"type"`
	Brand    string        `json:"brand"`
	Position int           `json:"position" jsonschema:"minimum=1"`
	Size     int           `json:"size" jsonschema:"minimum=1"`

	// Switch only.
	PortCount int          `json:"portCount,omitempty"`
	IPAddress string       `json:"ipAddress,omitempty"`
	Vlans     []string     `json:"vlans,omitempty"`
	Ports     []SwitchPort `json:"ports,omitempty"`

	// Server only.
	IdracIP         string           `json:"idracIp,omitempty"`
	Description     string           `json:"description,omitempty"`
	VirtualMachines []VirtualMachine `json:"virtualMachines,omitempty"`
}

// End returns the last unit occupied by the equipment.
func (e Equipment) End() int {
	return e.Position + e.Size - 1
}

// Placement returns the unit range the equipment currently occupies.
func (e Equipment) Placement() Placement {
	return Placement{Position: e.Position, Size: e.Size}
}

// IsSwitch reports whether the equipment is a switch.
func (e Equipment) IsSwitch() bool {
	return e.Type == SwitchType
}

// IsServer reports whether the equipment is a server.
func (e Equipment) IsServer() bool {
	return e.Type == ServerType
}

// UnitLabel renders the occupied range as "U4" or "U4-U5".
func (e Equipment) UnitLabel() string {
	if e.Size <= 1 {
		return fmt.Sprintf("U%d", e.Position)
	}
	return fmt.Sprintf("U%d-U%d", e.Position, e.End())
}

// SwitchPort is one numbered port on a switch.
type SwitchPort struct {
	ID          uuid.UUID `json:"id,omitempty" format:"uuid"`
	EquipmentID uuid.UUID `json:"equipment_id,omitempty" format:"uuid"`
	PortNumber  int       `json:"portNumber"`
	Description string    `json:"description"`
	Connected   bool      `json:"connected"`
	IsFibre     bool      `json:"isFibre"`
	TaggedVlans []string  `json:"taggedVlans"`
}

// VirtualMachine is a guest hosted on a server.
type VirtualMachine struct {
	ID          uuid.UUID `json:"id,omitempty" format:"uuid"`
	EquipmentID uuid.UUID `json:"equipment_id,omitempty" format:"uuid"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AnydeskCode string    `json:"anydeskCode,omitempty"`
	IPAddress   string    `json:"ipAddress,omitempty" format:"ipv4"`
}

// SortByPosition orders equipment bottom-up.
func SortByPosition(equipment []Equipment) {
	sort.SliceStable(equipment, func(i, j int) bool {
		return equipment[i].Position < equipment[j].Position
	})
}

// SortPorts orders ports by port number.
func SortPorts(ports []SwitchPort) {
	sort.SliceStable(ports, func(i, j int) bool {
		return ports[i].PortNumber < ports[j].PortNumber
	})
}
