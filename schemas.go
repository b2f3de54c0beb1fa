package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/openchami/rack-manager/internal/inventory"
	"github.com/openchami/rack-manager/pkg/racks"
	"github.com/rs/zerolog/log"
)

// schemaModels lists every document the API accepts or returns.
var schemaModels = map[string]interface{}{
	"Rack.json":                  &racks.Rack{},
	"RackSummary.json":           &racks.RackSummary{},
	"Equipment.json":             &racks.Equipment{},
	"SwitchPort.json":            &racks.SwitchPort{},
	"VirtualMachine.json":        &racks.VirtualMachine{},
	"UnitRange.json":             &racks.UnitRange{},
	"RackRequest.json":           &inventory.RackRequest{},
	"RackUpdate.json":            &inventory.RackUpdate{},
	"EquipmentRequest.json":      &inventory.EquipmentRequest{},
	"EquipmentUpdate.json":       &inventory.EquipmentUpdate{},
	"PortUpdate.json":            &inventory.PortUpdate{},
	"VirtualMachineRequest.json": &inventory.VirtualMachineRequest{},
	"VirtualMachineUpdate.json":  &inventory.VirtualMachineUpdate{},
	"ResetPortsRequest.json":     &inventory.ResetPortsRequest{},
}

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
}

func generateAndWriteSchemas(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("creating schema directory: %w", err)
	}

	reflector := newReflector()
	for filename, model := range schemaModels {
		schema := reflector.Reflect(model)
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("generating JSON schema for %s: %w", filename, err)
		}
		fullpath := filepath.Join(path, filename)
		if err := os.WriteFile(fullpath, data, 0644); err != nil {
			return fmt.Errorf("writing JSON schema to %s: %w", fullpath, err)
		}
		log.Info().Str("path", fullpath).Msg("Schema written")
	}
	return nil
}
