package inventory

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/internal/storage/memory"
	"github.com/openchami/rack-manager/pkg/racks"
)

type recordedEvent struct {
	eventType string
	data      map[string]interface{}
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) LogEvent(eventType string, data map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{eventType, data})
}

func (f *fakeRecorder) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, e := range f.events {
		types = append(types, e.eventType)
	}
	return types
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func vlans(v ...string) *racks.VlanList {
	list := racks.VlanList(v)
	return &list
}

func newTestService(t *testing.T) (*Service, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	return NewService(memory.NewInMemoryStorage(), WithEventRecorder(rec)), rec
}

func mustRack(t *testing.T, s *Service, units int) racks.Rack {
	t.Helper()
	rack, err := s.CreateRack(RackRequest{Name: "Main", Location: "Room A", TotalUnits: units})
	if err != nil {
		t.Fatalf("CreateRack: %v", err)
	}
	return rack
}

func mustSwitch(t *testing.T, s *Service, rackID uuid.UUID, position, portCount int, v ...string) racks.Equipment {
	t.Helper()
	sw, err := s.AddEquipment(rackID, EquipmentRequest{
		Name: "Core Switch", Type: racks.SwitchType, Brand: "Cisco",
		Position: intPtr(position), Size: intPtr(1),
		PortCount: portCount, Vlans: racks.VlanList(v),
	})
	if err != nil {
		t.Fatalf("AddEquipment(switch): %v", err)
	}
	return sw
}

func mustServer(t *testing.T, s *Service, rackID uuid.UUID, position, size int) racks.Equipment {
	t.Helper()
	srv, err := s.AddEquipment(rackID, EquipmentRequest{
		Name: "Database Server", Type: racks.ServerType, Brand: "Dell",
		Position: intPtr(position), Size: intPtr(size),
	})
	if err != nil {
		t.Fatalf("AddEquipment(server): %v", err)
	}
	return srv
}

func TestCreateRackValidation(t *testing.T) {
	tests := []struct {
		name string
		req  RackRequest
		kind racks.ErrorKind
	}{
		{"valid", RackRequest{Name: "R1", Location: "Room A", TotalUnits: 42}, racks.KindUnknown},
		{"max units", RackRequest{Name: "R1", Location: "Room A", TotalUnits: 60}, racks.KindUnknown},
		{"missing name", RackRequest{Location: "Room A", TotalUnits: 42}, racks.KindInvalidInput},
		{"blank location", RackRequest{Name: "R1", Location: "  ", TotalUnits: 42}, racks.KindInvalidInput},
		{"missing units", RackRequest{Name: "R1", Location: "Room A"}, racks.KindInvalidInput},
		{"too tall", RackRequest{Name: "R1", Location: "Room A", TotalUnits: 61}, racks.KindInvalidInput},
		{"negative units", RackRequest{Name: "R1", Location: "Room A", TotalUnits: -4}, racks.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(t)
			_, err := s.CreateRack(tt.req)
			if got := racks.KindOf(err); got != tt.kind {
				t.Errorf("kind = %v, want %v (err %v)", got, tt.kind, err)
			}
		})
	}
}

func TestPlacementScenario(t *testing.T) {
	s, rec := newTestService(t)
	rack := mustRack(t, s, 42)
	sw := mustSwitch(t, s, rack.ID, 2, 24)
	mustServer(t, s, rack.ID, 4, 2)

	if len(sw.Ports) != 24 || sw.Ports[0].PortNumber != 1 || sw.Ports[23].PortNumber != 24 {
		t.Errorf("switch ports not initialized: %d ports", len(sw.Ports))
	}

	_, err := s.AddEquipment(rack.ID, EquipmentRequest{
		Name: "Extra", Type: racks.ServerType, Brand: "HP", Position: intPtr(3), Size: intPtr(2),
	})
	if !errors.Is(err, racks.ErrOverlap) {
		t.Fatalf("expected overlap at U3-U4, got %v", err)
	}

	_, err = s.AddEquipment(rack.ID, EquipmentRequest{
		Name: "Top", Type: racks.ServerType, Brand: "HP", Position: intPtr(42), Size: intPtr(2),
	})
	if !errors.Is(err, racks.ErrOutOfBounds) {
		t.Fatalf("expected out of bounds, got %v", err)
	}

	got, err := s.GetRack(rack.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Equipment) != 2 {
		t.Errorf("rejected placements were written: %d items", len(got.Equipment))
	}

	summaries, _ := s.ListRacks()
	if len(summaries) != 1 || summaries[0].UsedUnits != 3 || summaries[0].EquipmentCount != 2 {
		t.Errorf("unexpected summaries %+v", summaries)
	}

	want := []string{EventRackCreated, EventEquipmentAdded, EventEquipmentAdded}
	if !reflect.DeepEqual(rec.types(), want) {
		t.Errorf("events = %v, want %v", rec.types(), want)
	}
}

func TestAddEquipmentValidation(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)

	_, err := s.AddEquipment(rack.ID, EquipmentRequest{Type: racks.ServerType})
	if racks.KindOf(err) != racks.KindInvalidInput {
		t.Fatalf("expected missing fields, got %v", err)
	}
	if err.Error() != "missing required fields: name, brand, position, size" {
		t.Errorf("unexpected message %q", err.Error())
	}

	_, err = s.AddEquipment(rack.ID, EquipmentRequest{Name: "x", Brand: "y", Type: "router", Position: intPtr(1), Size: intPtr(1)})
	if racks.KindOf(err) != racks.KindInvalidInput {
		t.Errorf("expected invalid type, got %v", err)
	}

	_, err = s.AddEquipment(uuid.New(), EquipmentRequest{Name: "x", Brand: "y", Type: racks.ServerType, Position: intPtr(1), Size: intPtr(1)})
	if racks.KindOf(err) != racks.KindNotFound {
		t.Errorf("expected missing rack, got %v", err)
	}

	_, err = s.AddEquipment(rack.ID, EquipmentRequest{Name: "x", Brand: "y", Type: racks.SwitchType, Position: intPtr(1), Size: intPtr(1), PortCount: -1})
	if racks.KindOf(err) != racks.KindInvalidInput {
		t.Errorf("expected negative port count rejection, got %v", err)
	}
}

func TestAddEquipmentClearsForeignFields(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)

	srv, err := s.AddEquipment(rack.ID, EquipmentRequest{
		Name: "srv", Type: racks.ServerType, Brand: "Dell", Position: intPtr(1), Size: intPtr(1),
		PortCount: 8, Vlans: racks.VlanList{"V10"}, IdracIP: "10.0.0.9",
	})
	if err != nil {
		t.Fatal(err)
	}
	if srv.PortCount != 0 || len(srv.Ports) != 0 || len(srv.Vlans) != 0 || srv.IdracIP != "10.0.0.9" {
		t.Errorf("server carries switch fields: %+v", srv)
	}
}

func TestUpdateEquipmentPlacement(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)
	mustSwitch(t, s, rack.ID, 2, 0)
	srv := mustServer(t, s, rack.ID, 4, 2)

	// Same placement revalidates against itself without conflict.
	if _, err := s.UpdateEquipment(srv.ID, EquipmentUpdate{Position: intPtr(4), Size: intPtr(2)}); err != nil {
		t.Fatalf("in-place update rejected: %v", err)
	}

	// Growing by one unit stays clear of the switch.
	got, err := s.UpdateEquipment(srv.ID, EquipmentUpdate{Size: intPtr(3)})
	if err != nil || got.Size != 3 {
		t.Fatalf("grow rejected: %v", err)
	}

	// Moving down onto the switch conflicts.
	if _, err := s.UpdateEquipment(srv.ID, EquipmentUpdate{Position: intPtr(2)}); !errors.Is(err, racks.ErrOverlap) {
		t.Errorf("expected overlap, got %v", err)
	}

	// Name-only edits skip placement entirely.
	got, err = s.UpdateEquipment(srv.ID, EquipmentUpdate{Name: strPtr("renamed")})
	if err != nil || got.Name != "renamed" || got.Position != 4 {
		t.Errorf("rename = %+v, %v", got, err)
	}

	switchType := racks.SwitchType
	if _, err := s.UpdateEquipment(srv.ID, EquipmentUpdate{Type: &switchType}); racks.KindOf(err) != racks.KindInvalidInput {
		t.Errorf("type change should be rejected, got %v", err)
	}
}

func TestHugePlacementsRejected(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)
	srv := mustServer(t, s, rack.ID, 10, 1)

	tests := []struct {
		name     string
		position int
		size     int
	}{
		{"size wraps the end", 2, math.MaxInt},
		{"position wraps the end", math.MaxInt, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddEquipment(rack.ID, EquipmentRequest{
				Name: "huge", Type: racks.ServerType, Brand: "Dell", Position: intPtr(tt.position), Size: intPtr(tt.size),
			})
			if racks.KindOf(err) != racks.KindOutOfBounds {
				t.Errorf("add: expected OutOfBounds, got %v", err)
			}
			_, err = s.UpdateEquipment(srv.ID, EquipmentUpdate{Position: intPtr(tt.position), Size: intPtr(tt.size)})
			if racks.KindOf(err) != racks.KindOutOfBounds {
				t.Errorf("update: expected OutOfBounds, got %v", err)
			}
		})
	}

	// Nothing was stored, so the units stay free for regular equipment.
	mustServer(t, s, rack.ID, 3, 2)
	got, err := s.GetRack(rack.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary := got.Summary(); summary.UsedUnits != 3 || summary.EquipmentCount != 2 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRackLocksReleased(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)
	mustServer(t, s, rack.ID, 1, 1)

	for i := 0; i < 10; i++ {
		missing := uuid.New()
		if _, err := s.AddEquipment(missing, EquipmentRequest{
			Name: "srv", Type: racks.ServerType, Brand: "Dell", Position: intPtr(1), Size: intPtr(1),
		}); racks.KindOf(err) != racks.KindNotFound {
			t.Fatalf("expected NotFound, got %v", err)
		}
		if _, err := s.UpdateRack(missing, RackUpdate{Name: strPtr("x")}); racks.KindOf(err) != racks.KindNotFound {
			t.Fatalf("expected NotFound, got %v", err)
		}
		if err := s.DeleteRack(missing); racks.KindOf(err) != racks.KindNotFound {
			t.Fatalf("expected NotFound, got %v", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.locks) != 0 {
		t.Errorf("%d rack locks left after all callers returned", len(s.locks))
	}
}

func TestUpdateEquipmentPortCountReinitializes(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)
	sw := mustSwitch(t, s, rack.ID, 1, 24, "V10")

	_, err := s.UpdateSwitchPort(sw.Ports[0].ID, PortUpdate{Description: strPtr("uplink"), Connected: boolPtr(true), TaggedVlans: vlans("V10")})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.UpdateEquipment(sw.ID, EquipmentUpdate{PortCount: intPtr(48)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Ports) != 48 {
		t.Fatalf("got %d ports, want 48", len(got.Ports))
	}
	for i, p := range got.Ports {
		if p.PortNumber != i+1 || p.Connected || p.Description != "" || len(p.TaggedVlans) != 0 {
			t.Errorf("port %d not fresh: %+v", i+1, p)
		}
	}

	// Unchanged port count keeps the existing ports.
	same, err := s.UpdateEquipment(sw.ID, EquipmentUpdate{PortCount: intPtr(48)})
	if err != nil {
		t.Fatal(err)
	}
	if same.Ports[0].ID != got.Ports[0].ID {
		t.Error("ports were replaced although the count did not change")
	}
}

func TestUpdateEquipmentVlansPrunesTags(t *testing.T) {
	s, rec := newTestService(t)
	rack := mustRack(t, s, 42)
	sw := mustSwitch(t, s, rack.ID, 1, 2, "V10", "V20", "V30")

	if _, err := s.UpdateSwitchPort(sw.Ports[0].ID, PortUpdate{TaggedVlans: vlans("V10", "V20")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateSwitchPort(sw.Ports[1].ID, PortUpdate{TaggedVlans: vlans("V30")}); err != nil {
		t.Fatal(err)
	}

	got, err := s.UpdateEquipment(sw.ID, EquipmentUpdate{Vlans: vlans("V10")})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Vlans, []string{"V10"}) {
		t.Errorf("vlans = %v", got.Vlans)
	}
	if !reflect.DeepEqual(got.Ports[0].TaggedVlans, []string{"V10"}) || len(got.Ports[1].TaggedVlans) != 0 {
		t.Errorf("tags not pruned: %v / %v", got.Ports[0].TaggedVlans, got.Ports[1].TaggedVlans)
	}

	stored, _ := s.GetEquipment(sw.ID)
	for _, p := range stored.Ports {
		if err := racks.ValidateTaggedVlans(p.TaggedVlans, stored.Vlans); err != nil {
			t.Errorf("stored port %d: %v", p.PortNumber, err)
		}
	}

	last := rec.events[len(rec.events)-1]
	if last.eventType != EventEquipmentUpdated || !reflect.DeepEqual(last.data["prunedPorts"], []int{1, 2}) {
		t.Errorf("unexpected last event %+v", last)
	}
}

func TestUpdateRackShrink(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)
	mustServer(t, s, rack.ID, 10, 3)

	if _, err := s.UpdateRack(rack.ID, RackUpdate{TotalUnits: intPtr(11)}); !errors.Is(err, racks.ErrOutOfBounds) {
		t.Errorf("shrinking below U12 should fail, got %v", err)
	}
	got, err := s.UpdateRack(rack.ID, RackUpdate{TotalUnits: intPtr(12), Location: strPtr("Room B")})
	if err != nil {
		t.Fatalf("shrinking to U12: %v", err)
	}
	if got.TotalUnits != 12 || got.Location != "Room B" || got.Name != "Main" {
		t.Errorf("unexpected rack %+v", got)
	}
	if _, err := s.UpdateRack(rack.ID, RackUpdate{TotalUnits: intPtr(61)}); racks.KindOf(err) != racks.KindInvalidInput {
		t.Errorf("expected invalid input above 60, got %v", err)
	}
}

func TestDeleteRackCascades(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)
	srv := mustServer(t, s, rack.ID, 1, 1)
	vm, err := s.AddVirtualMachine(srv.ID, VirtualMachineRequest{Name: "vm"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteRack(rack.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetEquipment(srv.ID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("equipment survived: %v", err)
	}
	if err := s.DeleteVirtualMachine(srv.ID, vm.ID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("vm survived: %v", err)
	}
	if err := s.DeleteRack(rack.ID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("second delete = %v", err)
	}
}

func TestDeleteEquipmentChecksRack(t *testing.T) {
	s, _ := newTestService(t)
	a := mustRack(t, s, 42)
	b := mustRack(t, s, 42)
	srv := mustServer(t, s, a.ID, 1, 1)

	if err := s.DeleteEquipment(b.ID, srv.ID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("delete through the wrong rack = %v", err)
	}
	if err := s.DeleteEquipment(a.ID, srv.ID); err != nil {
		t.Errorf("delete = %v", err)
	}
}

func TestVirtualMachines(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)
	sw := mustSwitch(t, s, rack.ID, 1, 4)
	srv := mustServer(t, s, rack.ID, 2, 2)
	other := mustServer(t, s, rack.ID, 4, 1)

	if _, err := s.AddVirtualMachine(sw.ID, VirtualMachineRequest{Name: "vm"}); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("VM on a switch = %v, want NotFound", err)
	}
	if _, err := s.AddVirtualMachine(uuid.New(), VirtualMachineRequest{Name: "vm"}); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("VM on a missing server = %v, want NotFound", err)
	}
	if _, err := s.AddVirtualMachine(srv.ID, VirtualMachineRequest{}); racks.KindOf(err) != racks.KindInvalidInput {
		t.Errorf("VM without name = %v", err)
	}

	vm, err := s.AddVirtualMachine(srv.ID, VirtualMachineRequest{Name: "web-01", AnydeskCode: "123 456", IPAddress: "192.168.1.10"})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := s.UpdateVirtualMachine(vm.ID, VirtualMachineUpdate{IPAddress: strPtr("192.168.1.11")})
	if err != nil || updated.IPAddress != "192.168.1.11" || updated.Name != "web-01" {
		t.Errorf("UpdateVirtualMachine = %+v, %v", updated, err)
	}

	if err := s.DeleteVirtualMachine(other.ID, vm.ID); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("delete through the wrong server = %v", err)
	}
	if err := s.DeleteVirtualMachine(srv.ID, vm.ID); err != nil {
		t.Errorf("DeleteVirtualMachine = %v", err)
	}
}

func TestUpdateSwitchPort(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)
	sw := mustSwitch(t, s, rack.ID, 1, 4, "V10", "V20")
	portID := sw.Ports[1].ID

	got, err := s.UpdateSwitchPort(portID, PortUpdate{Connected: boolPtr(true), IsFibre: boolPtr(true)})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Connected || !got.IsFibre || got.PortNumber != 2 || got.Description != "" {
		t.Errorf("unexpected port %+v", got)
	}

	if _, err := s.UpdateSwitchPort(portID, PortUpdate{TaggedVlans: vlans("V10", "V99")}); racks.KindOf(err) != racks.KindInvalidInput {
		t.Errorf("unknown tag accepted: %v", err)
	}
	got, err = s.UpdateSwitchPort(portID, PortUpdate{TaggedVlans: vlans(" V20 ", "")})
	if err != nil || !reflect.DeepEqual(got.TaggedVlans, []string{"V20"}) {
		t.Errorf("tags = %v, %v", got.TaggedVlans, err)
	}
	if _, err := s.UpdateSwitchPort(uuid.New(), PortUpdate{}); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("missing port = %v", err)
	}
}

func TestResetPorts(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)
	sw := mustSwitch(t, s, rack.ID, 1, 4, "V10")
	srv := mustServer(t, s, rack.ID, 2, 1)

	if _, err := s.UpdateSwitchPort(sw.Ports[0].ID, PortUpdate{Connected: boolPtr(true)}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ResetPorts(sw.ID, ResetPortsRequest{}); racks.KindOf(err) != racks.KindInvalidInput {
		t.Errorf("reset without confirm = %v", err)
	}
	if _, err := s.ResetPorts(srv.ID, ResetPortsRequest{Confirm: true}); racks.KindOf(err) != racks.KindInvalidInput {
		t.Errorf("reset on a server = %v", err)
	}

	got, err := s.ResetPorts(sw.ID, ResetPortsRequest{Confirm: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Ports) != 4 || got.Ports[0].Connected || got.Ports[0].ID == sw.Ports[0].ID {
		t.Errorf("ports not reset: %+v", got.Ports)
	}
}

func TestConcurrentPlacementsOnOneRack(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.AddEquipment(rack.ID, EquipmentRequest{
				Name: "srv", Type: racks.ServerType, Brand: "Dell", Position: intPtr(10), Size: intPtr(2),
			})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case !errors.Is(err, racks.ErrOverlap):
			t.Errorf("unexpected error %v", err)
		}
	}
	if accepted != 1 {
		t.Errorf("%d placements accepted for the same units, want 1", accepted)
	}
}

func TestFreeRangesAndFirstFit(t *testing.T) {
	s, _ := newTestService(t)
	rack := mustRack(t, s, 42)
	mustSwitch(t, s, rack.ID, 2, 0)
	mustServer(t, s, rack.ID, 4, 2)

	ranges, err := s.FreeRanges(rack.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []racks.UnitRange{{Start: 1, End: 1}, {Start: 3, End: 3}, {Start: 6, End: 42}}
	if !reflect.DeepEqual(ranges, want) {
		t.Errorf("FreeRanges = %v, want %v", ranges, want)
	}
	if pos, err := s.FirstFit(rack.ID, 2); err != nil || pos != 6 {
		t.Errorf("FirstFit(2) = %d, %v", pos, err)
	}
	if _, err := s.FirstFit(uuid.New(), 1); !errors.Is(err, racks.ErrNotFound) {
		t.Errorf("FirstFit on a missing rack = %v", err)
	}
}
