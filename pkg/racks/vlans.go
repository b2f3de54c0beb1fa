package racks

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
)

// ParseVlanList splits a comma-separated list of VLAN labels, trimming each
// element and dropping empty ones. Order of first occurrence is kept and
// duplicates are not removed.
func ParseVlanList(raw string) []string {
	labels := []string{}
	for _, part := range strings.Split(raw, ",") {
		label := strings.TrimSpace(part)
		if label == "" {
			continue
		}
		labels = append(labels, label)
	}
	return labels
}

// CleanVlanList applies the ParseVlanList element rules to an already split
// list.
func CleanVlanList(labels []string) []string {
	cleaned := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		cleaned = append(cleaned, l)
	}
	return cleaned
}

// ReconcilePortVlans drops, from every port, tagged labels that are no longer
// in vlans. Ports are copied; the input slice is left untouched and only
// TaggedVlans changes.
func ReconcilePortVlans(ports []SwitchPort, vlans []string) []SwitchPort {
	allowed := make(map[string]struct{}, len(vlans))
	for _, v := range vlans {
		allowed[v] = struct{}{}
	}

	updated := make([]SwitchPort, len(ports))
	for i, port := range ports {
		kept := make([]string, 0, len(port.TaggedVlans))
		for _, tag := range port.TaggedVlans {
			if _, ok := allowed[tag]; ok {
				kept = append(kept, tag)
			}
		}
		port.TaggedVlans = kept
		updated[i] = port
	}
	return updated
}

// InitializePorts returns portCount fresh ports numbered 1..portCount for the
// given switch: unconnected, copper, no description and no tags.
func InitializePorts(equipmentID uuid.UUID, portCount int) ([]SwitchPort, error) {
	if portCount < 0 {
		return nil, InvalidInput("port count must not be negative, got %d", portCount)
	}
	ports := make([]SwitchPort, portCount)
	for i := range ports {
		ports[i] = SwitchPort{
			ID:          uuid.New(),
			EquipmentID: equipmentID,
			PortNumber:  i + 1,
			Description: "",
			Connected:   false,
			IsFibre:     false,
			TaggedVlans: []string{},
		}
	}
	return ports, nil
}

// ValidateTaggedVlans rejects tags that are not configured on the switch.
func ValidateTaggedVlans(tags []string, vlans []string) error {
	allowed := make(map[string]struct{}, len(vlans))
	for _, v := range vlans {
		allowed[v] = struct{}{}
	}
	var unknown []string
	for _, tag := range tags {
		if _, ok := allowed[tag]; !ok {
			unknown = append(unknown, tag)
		}
	}
	if len(unknown) > 0 {
		return InvalidInput("tagged VLANs not configured on switch: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// VlanList is the request-side VLAN field. It decodes from a JSON array of
// labels or from a comma-separated string, and always holds the cleaned list.
type VlanList []string

func (v *VlanList) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err == nil {
		*v = CleanVlanList(labels)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return InvalidInput("vlans must be an array of strings or a comma-separated string")
	}
	*v = ParseVlanList(raw)
	return nil
}

// JSONSchema accepts either representation.
func (VlanList) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			{Type: "string"},
		},
		Title:       "VlanList",
		Description: "VLAN labels, as an array or a comma-separated string.",
	}
}
