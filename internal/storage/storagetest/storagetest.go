// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/internal/storage"
	"github.com/openchami/rack-manager/pkg/racks"
)

// Run exercises a backend. newStorage must return an empty store for each
// call.
func Run(t *testing.T, newStorage func(t *testing.T) storage.Storage) {
	t.Run("RackLifecycle", func(t *testing.T) { testRackLifecycle(t, newStorage(t)) })
	t.Run("EquipmentWithPorts", func(t *testing.T) { testEquipmentWithPorts(t, newStorage(t)) })
	t.Run("UpdateEquipmentReplacesPorts", func(t *testing.T) { testUpdateEquipmentReplacesPorts(t, newStorage(t)) })
	t.Run("SwitchPortUpdate", func(t *testing.T) { testSwitchPortUpdate(t, newStorage(t)) })
	t.Run("VirtualMachines", func(t *testing.T) { testVirtualMachines(t, newStorage(t)) })
	t.Run("CascadingDeletes", func(t *testing.T) { testCascadingDeletes(t, newStorage(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStorage(t)) })
}

func saveRack(t *testing.T, s storage.Storage, name string, units int) racks.Rack {
	t.Helper()
	rack := racks.Rack{ID: uuid.New(), Name: name, Location: "Room A", TotalUnits: units}
	if err := s.SaveRack(rack.ID, rack); err != nil {
		t.Fatalf("SaveRack(%s): %v", name, err)
	}
	return rack
}

func saveSwitch(t *testing.T, s storage.Storage, rackID uuid.UUID, position, portCount int, vlans []string) racks.Equipment {
	t.Helper()
	sw := racks.Equipment{
		ID:        uuid.New(),
		RackID:    rackID,
		Name:      "Core Switch",
		Type:      racks.SwitchType,
		Brand:     "Cisco",
		Position:  position,
		Size:      1,
		PortCount: portCount,
		IPAddress: "10.0.0.2",
		Vlans:     vlans,
	}
	ports, err := racks.InitializePorts(sw.ID, portCount)
	if err != nil {
		t.Fatal(err)
	}
	sw.Ports = ports
	if err := s.SaveEquipment(sw.ID, sw); err != nil {
		t.Fatalf("SaveEquipment(switch): %v", err)
	}
	return sw
}

func saveServer(t *testing.T, s storage.Storage, rackID uuid.UUID, position, size int) racks.Equipment {
	t.Helper()
	srv := racks.Equipment{
		ID:          uuid.New(),
		RackID:      rackID,
		Name:        "Database Server",
		Type:        racks.ServerType,
		Brand:       "Dell",
		Position:    position,
		Size:        size,
		IdracIP:     "10.0.1.4",
		Description: "primary database",
	}
	if err := s.SaveEquipment(srv.ID, srv); err != nil {
		t.Fatalf("SaveEquipment(server): %v", err)
	}
	return srv
}

func testRackLifecycle(t *testing.T, s storage.Storage) {
	b := saveRack(t, s, "B-rack", 24)
	a := saveRack(t, s, "A-rack", 42)

	got, err := s.GetRack(a.ID)
	if err != nil {
		t.Fatalf("GetRack: %v", err)
	}
	if got.Name != "A-rack" || got.Location != "Room A" || got.TotalUnits != 42 {
		t.Errorf("unexpected rack %+v", got)
	}
	if len(got.Equipment) != 0 {
		t.Errorf("new rack has equipment %+v", got.Equipment)
	}

	list, err := s.ListRacks()
	if err != nil {
		t.Fatalf("ListRacks: %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Errorf("ListRacks not sorted by name: %+v", list)
	}

	a.Location = "Room B"
	a.TotalUnits = 48
	if err := s.UpdateRack(a.ID, a); err != nil {
		t.Fatalf("UpdateRack: %v", err)
	}
	got, _ = s.GetRack(a.ID)
	if got.Location != "Room B" || got.TotalUnits != 48 {
		t.Errorf("update not persisted: %+v", got)
	}

	if err := s.DeleteRack(b.ID); err != nil {
		t.Fatalf("DeleteRack: %v", err)
	}
	if _, err := s.GetRack(b.ID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("deleted rack still readable: %v", err)
	}
}

func testEquipmentWithPorts(t *testing.T, s storage.Storage) {
	rack := saveRack(t, s, "R1", 42)
	srv := saveServer(t, s, rack.ID, 4, 2)
	sw := saveSwitch(t, s, rack.ID, 2, 24, []string{"V10", "V20"})

	got, err := s.GetEquipment(sw.ID)
	if err != nil {
		t.Fatalf("GetEquipment: %v", err)
	}
	if got.RackID != rack.ID || got.Type != racks.SwitchType || got.PortCount != 24 || got.IPAddress != "10.0.0.2" {
		t.Errorf("unexpected switch %+v", got)
	}
	if !reflect.DeepEqual(got.Vlans, []string{"V10", "V20"}) {
		t.Errorf("vlans = %#v", got.Vlans)
	}
	if len(got.Ports) != 24 {
		t.Fatalf("got %d ports, want 24", len(got.Ports))
	}
	for i, p := range got.Ports {
		if p.PortNumber != i+1 || p.EquipmentID != sw.ID || p.Connected || len(p.TaggedVlans) != 0 {
			t.Errorf("unexpected port %+v", p)
		}
	}

	list, err := s.ListEquipment(rack.ID)
	if err != nil {
		t.Fatalf("ListEquipment: %v", err)
	}
	if len(list) != 2 || list[0].ID != sw.ID || list[1].ID != srv.ID {
		t.Errorf("ListEquipment not sorted by position: %+v", list)
	}

	hydrated, err := s.GetRack(rack.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hydrated.Equipment) != 2 || len(hydrated.Equipment[0].Ports) != 24 {
		t.Errorf("rack not hydrated: %+v", hydrated.Equipment)
	}
	if hydrated.Equipment[1].IdracIP != "10.0.1.4" || hydrated.Equipment[1].Description != "primary database" {
		t.Errorf("server fields lost: %+v", hydrated.Equipment[1])
	}

	if err := s.SaveEquipment(uuid.New(), racks.Equipment{RackID: uuid.New(), Name: "orphan", Type: racks.ServerType, Position: 1, Size: 1}); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("equipment saved into a missing rack: %v", err)
	}
}

func testUpdateEquipmentReplacesPorts(t *testing.T, s storage.Storage) {
	rack := saveRack(t, s, "R1", 42)
	sw := saveSwitch(t, s, rack.ID, 1, 8, []string{"V10"})
	oldPortID := sw.Ports[0].ID

	ports, err := racks.InitializePorts(sw.ID, 4)
	if err != nil {
		t.Fatal(err)
	}
	sw.PortCount = 4
	sw.Ports = ports
	sw.Position = 10
	if err := s.UpdateEquipment(sw.ID, sw); err != nil {
		t.Fatalf("UpdateEquipment: %v", err)
	}

	got, _ := s.GetEquipment(sw.ID)
	if got.Position != 10 || got.PortCount != 4 || len(got.Ports) != 4 {
		t.Errorf("unexpected switch after update: position %d, portCount %d, %d ports", got.Position, got.PortCount, len(got.Ports))
	}
	if _, err := s.GetSwitchPort(oldPortID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("old port survived re-initialization: %v", err)
	}
}

func testSwitchPortUpdate(t *testing.T, s storage.Storage) {
	rack := saveRack(t, s, "R1", 42)
	sw := saveSwitch(t, s, rack.ID, 1, 4, []string{"V10", "V20"})
	port := sw.Ports[2]

	port.Description = "uplink to core"
	port.Connected = true
	port.IsFibre = true
	port.TaggedVlans = []string{"V20", "V10"}
	if err := s.UpdateSwitchPort(port.ID, port); err != nil {
		t.Fatalf("UpdateSwitchPort: %v", err)
	}

	got, err := s.GetSwitchPort(port.ID)
	if err != nil {
		t.Fatalf("GetSwitchPort: %v", err)
	}
	if got.PortNumber != 3 || got.EquipmentID != sw.ID || !got.Connected || !got.IsFibre || got.Description != "uplink to core" {
		t.Errorf("unexpected port %+v", got)
	}
	if !reflect.DeepEqual(got.TaggedVlans, []string{"V20", "V10"}) {
		t.Errorf("tag order not kept: %#v", got.TaggedVlans)
	}
}

func testVirtualMachines(t *testing.T, s storage.Storage) {
	rack := saveRack(t, s, "R1", 42)
	srv := saveServer(t, s, rack.ID, 1, 2)

	vm := racks.VirtualMachine{
		ID:          uuid.New(),
		EquipmentID: srv.ID,
		Name:        "web-01",
		Description: "frontend",
		AnydeskCode: "123 456 789",
		IPAddress:   "192.168.1.10",
	}
	if err := s.SaveVirtualMachine(vm.ID, vm); err != nil {
		t.Fatalf("SaveVirtualMachine: %v", err)
	}

	got, err := s.GetVirtualMachine(vm.ID)
	if err != nil {
		t.Fatalf("GetVirtualMachine: %v", err)
	}
	if got != vm {
		t.Errorf("got %+v, want %+v", got, vm)
	}

	vm.IPAddress = "192.168.1.11"
	if err := s.UpdateVirtualMachine(vm.ID, vm); err != nil {
		t.Fatalf("UpdateVirtualMachine: %v", err)
	}
	eq, _ := s.GetEquipment(srv.ID)
	if len(eq.VirtualMachines) != 1 || eq.VirtualMachines[0].IPAddress != "192.168.1.11" {
		t.Errorf("server VMs = %+v", eq.VirtualMachines)
	}

	if err := s.DeleteVirtualMachine(vm.ID); err != nil {
		t.Fatalf("DeleteVirtualMachine: %v", err)
	}
	if _, err := s.GetVirtualMachine(vm.ID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("deleted VM still readable: %v", err)
	}
}

func testCascadingDeletes(t *testing.T, s storage.Storage) {
	rack := saveRack(t, s, "R1", 42)
	sw := saveSwitch(t, s, rack.ID, 1, 2, nil)
	srv := saveServer(t, s, rack.ID, 2, 1)
	vm := racks.VirtualMachine{ID: uuid.New(), EquipmentID: srv.ID, Name: "vm-1"}
	if err := s.SaveVirtualMachine(vm.ID, vm); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteEquipment(srv.ID); err != nil {
		t.Fatalf("DeleteEquipment: %v", err)
	}
	if _, err := s.GetVirtualMachine(vm.ID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("VM survived its server: %v", err)
	}

	if err := s.DeleteRack(rack.ID); err != nil {
		t.Fatalf("DeleteRack: %v", err)
	}
	if _, err := s.GetEquipment(sw.ID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("switch survived its rack: %v", err)
	}
	if _, err := s.GetSwitchPort(sw.Ports[0].ID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("port survived its rack: %v", err)
	}
}

func testNotFound(t *testing.T, s storage.Storage) {
	id := uuid.New()
	checks := map[string]error{
		"GetRack":              func() error { _, err := s.GetRack(id); return err }(),
		"UpdateRack":           s.UpdateRack(id, racks.Rack{Name: "x", TotalUnits: 1}),
		"DeleteRack":           s.DeleteRack(id),
		"GetEquipment":         func() error { _, err := s.GetEquipment(id); return err }(),
		"UpdateEquipment":      s.UpdateEquipment(id, racks.Equipment{}),
		"DeleteEquipment":      s.DeleteEquipment(id),
		"ListEquipment":        func() error { _, err := s.ListEquipment(id); return err }(),
		"GetSwitchPort":        func() error { _, err := s.GetSwitchPort(id); return err }(),
		"UpdateSwitchPort":     s.UpdateSwitchPort(id, racks.SwitchPort{}),
		"SaveVirtualMachine":   s.SaveVirtualMachine(id, racks.VirtualMachine{EquipmentID: id, Name: "x"}),
		"GetVirtualMachine":    func() error { _, err := s.GetVirtualMachine(id); return err }(),
		"UpdateVirtualMachine": s.UpdateVirtualMachine(id, racks.VirtualMachine{}),
		"DeleteVirtualMachine": s.DeleteVirtualMachine(id),
	}
	for name, err := range checks {
		if racks.KindOf(err) != racks.KindNotFound {
			t.Errorf("%s on a missing id: got %v, want NotFound", name, err)
		}
	}
}
