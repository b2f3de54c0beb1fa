package inventory

import (
	"github.com/openchami/rack-manager/pkg/racks"
)

// RackRequest creates a rack.
type RackRequest struct {
	Name       string `json:"name" jsonschema:"minLength=1"`
	Location   string `json:"location" jsonschema:"minLength=1"`
	TotalUnits int    `json:"totalUnits" jsonschema:"minimum=1,maximum=60"`
}

// RackUpdate changes the fields that are present.
type RackUpdate struct {
	Name       *string `json:"name,omitempty"`
	Location   *string `json:"location,omitempty"`
	TotalUnits *int    `json:"totalUnits,omitempty"`
}

// EquipmentRequest mounts new equipment. Switch-only fields are ignored for
// servers and server-only fields for switches.
type EquipmentRequest struct {
	Name     string              `json:"name" jsonschema:"minLength=1"`
	Type     racks.EquipmentType `json:"type"`
	Brand    string              `json:"brand" jsonschema:"minLength=1"`
	Position *int                `json:"position" jsonschema:"maximum=60"`
	Size     *int                `json:"size" jsonschema:"minimum=1,maximum=60"`

	PortCount int            `json:"portCount,omitempty" jsonschema:"minimum=0"`
	IPAddress string         `json:"ipAddress,omitempty"`
	Vlans     racks.VlanList `json:"vlans,omitempty"`

	IdracIP     string `json:"idracIp,omitempty"`
	Description string `json:"description,omitempty"`
}

// EquipmentUpdate changes the fields that are present. Position and Size
// trigger a placement check; PortCount and Vlans only apply to switches.
type EquipmentUpdate struct {
	Name     *string              `json:"name,omitempty"`
	Type     *racks.EquipmentType `json:"type,omitempty"`
	Brand    *string              `json:"brand,omitempty"`
	Position *int                 `json:"position,omitempty"`
	Size     *int                 `json:"size,omitempty"`

	PortCount *int            `json:"portCount,omitempty"`
	IPAddress *string         `json:"ipAddress,omitempty"`
	Vlans     *racks.VlanList `json:"vlans,omitempty"`

	IdracIP     *string `json:"idracIp,omitempty"`
	Description *string `json:"description,omitempty"`
}

// PortUpdate changes the fields that are present on one switch port.
type PortUpdate struct {
	Description *string         `json:"description,omitempty"`
	Connected   *bool           `json:"connected,omitempty"`
	IsFibre     *bool           `json:"isFibre,omitempty"`
	TaggedVlans *racks.VlanList `json:"taggedVlans,omitempty"`
}

// VirtualMachineRequest creates a VM on a server.
type VirtualMachineRequest struct {
	Name        string `json:"name" jsonschema:"minLength=1"`
	Description string `json:"description,omitempty"`
	AnydeskCode string `json:"anydeskCode,omitempty"`
	IPAddress   string `json:"ipAddress,omitempty"`
}

// VirtualMachineUpdate changes the fields that are present.
type VirtualMachineUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	AnydeskCode *string `json:"anydeskCode,omitempty"`
	IPAddress   *string `json:"ipAddress,omitempty"`
}

// ResetPortsRequest must carry Confirm=true; re-initializing drops every
// port description, connection flag and tag.
type ResetPortsRequest struct {
	Confirm bool `json:"confirm"`
}
