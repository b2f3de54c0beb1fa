package racks

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
)

func rackWith(totalUnits int, placed ...Placement) Rack {
	rack := Rack{ID: uuid.New(), Name: "R1", TotalUnits: totalUnits}
	for i, p := range placed {
		rack.Equipment = append(rack.Equipment, Equipment{
			ID:       uuid.New(),
			Name:     fmt.Sprintf("eq-%d", i+1),
			Type:     ServerType,
			Position: p.Position,
			Size:     p.Size,
		})
	}
	return rack
}

func TestValidatePlacementBounds(t *testing.T) {
	const n = 42
	tests := []struct {
		name      string
		candidate Placement
		wantKind  ErrorKind
	}{
		{"first unit", Placement{Position: 1, Size: 1}, KindUnknown},
		{"last unit", Placement{Position: n, Size: 1}, KindUnknown},
		{"whole rack", Placement{Position: 1, Size: n}, KindUnknown},
		{"position zero", Placement{Position: 0, Size: 1}, KindOutOfBounds},
		{"negative position", Placement{Position: -3, Size: 2}, KindOutOfBounds},
		{"one past the top", Placement{Position: n + 1, Size: 1}, KindOutOfBounds},
		{"past the top with size", Placement{Position: n + 1, Size: 5}, KindOutOfBounds},
		{"end spills over", Placement{Position: n - 1, Size: 3}, KindOutOfBounds},
		{"zero size", Placement{Position: 3, Size: 0}, KindInvalidInput},
		{"size wraps the end", Placement{Position: 2, Size: math.MaxInt}, KindOutOfBounds},
		{"position wraps the end", Placement{Position: math.MaxInt, Size: 2}, KindOutOfBounds},
		{"size taller than rack", Placement{Position: 1, Size: n + 1}, KindOutOfBounds},
	}

	rack := rackWith(n)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlacement(rack, tt.candidate, uuid.Nil)
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("ValidatePlacement(%+v) kind = %v, want %v (err %v)", tt.candidate, got, tt.wantKind, err)
			}
		})
	}
}

func TestValidatePlacementAcceptsIffInsideRack(t *testing.T) {
	const n = 12
	rack := rackWith(n)
	for p := -1; p <= n+2; p++ {
		for s := 1; s <= n+1; s++ {
			err := ValidatePlacement(rack, Placement{Position: p, Size: s}, uuid.Nil)
			want := p >= 1 && p+s-1 <= n
			if (err == nil) != want {
				t.Fatalf("position %d size %d: accepted=%v, want %v", p, s, err == nil, want)
			}
		}
	}
}

func TestValidatePlacementOverlap(t *testing.T) {
	tests := []struct {
		name      string
		existing  []Placement
		candidate Placement
		wantErr   bool
	}{
		{"adjacent above", []Placement{{1, 2}}, Placement{3, 2}, false},
		{"adjacent below", []Placement{{3, 2}}, Placement{1, 2}, false},
		{"shared top unit", []Placement{{1, 3}}, Placement{3, 2}, true},
		{"shared bottom unit", []Placement{{3, 2}}, Placement{1, 3}, true},
		{"contained", []Placement{{10, 5}}, Placement{11, 1}, true},
		{"containing", []Placement{{11, 1}}, Placement{10, 5}, true},
		{"identical", []Placement{{7, 2}}, Placement{7, 2}, true},
		{"gap between two", []Placement{{1, 2}, {5, 2}}, Placement{3, 2}, false},
		{"bridges two", []Placement{{1, 2}, {5, 2}}, Placement{2, 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rack := rackWith(42, tt.existing...)
			err := ValidatePlacement(rack, tt.candidate, uuid.Nil)
			if tt.wantErr {
				if !errors.Is(err, ErrOverlap) {
					t.Errorf("expected overlap, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected placement to be accepted, got %v", err)
			}
		})
	}
}

func TestValidatePlacementNoSharedUnitProperty(t *testing.T) {
	rack := rackWith(20, Placement{5, 3})
	a := rack.Equipment[0]
	for p := 1; p <= 20; p++ {
		for s := 1; p+s-1 <= 20; s++ {
			c := Placement{Position: p, Size: s}
			err := ValidatePlacement(rack, c, uuid.Nil)
			disjoint := c.End() < a.Position || c.Position > a.End()
			if (err == nil) != disjoint {
				t.Fatalf("placement %d+%d: accepted=%v, disjoint=%v", p, s, err == nil, disjoint)
			}
		}
	}
}

func TestValidatePlacementExcludesSelf(t *testing.T) {
	rack := rackWith(42, Placement{1, 4}, Placement{5, 2}, Placement{7, 1})
	for _, eq := range rack.Equipment {
		if err := ValidatePlacement(rack, eq.Placement(), eq.ID); err != nil {
			t.Errorf("revalidating %s in place: %v", eq.Name, err)
		}
	}

	// Growing the middle item into its neighbour still conflicts.
	mid := rack.Equipment[1]
	err := ValidatePlacement(rack, Placement{Position: mid.Position, Size: 3}, mid.ID)
	if !errors.Is(err, ErrOverlap) {
		t.Errorf("expected overlap with the unit above, got %v", err)
	}
}

func TestScenarioSwitchAndServers(t *testing.T) {
	rack := Rack{ID: uuid.New(), Name: "Main", TotalUnits: 42}
	sw := Equipment{ID: uuid.New(), Name: "Core Switch", Type: SwitchType, Position: 2, Size: 1}
	srv := Equipment{ID: uuid.New(), Name: "Database Server", Type: ServerType, Position: 4, Size: 2}

	if err := ValidatePlacement(rack, sw.Placement(), uuid.Nil); err != nil {
		t.Fatalf("switch rejected: %v", err)
	}
	rack.Equipment = append(rack.Equipment, sw)

	if err := ValidatePlacement(rack, srv.Placement(), uuid.Nil); err != nil {
		t.Fatalf("server rejected: %v", err)
	}
	rack.Equipment = append(rack.Equipment, srv)

	err := ValidatePlacement(rack, Placement{Position: 3, Size: 2}, uuid.Nil)
	if KindOf(err) != KindOverlap {
		t.Fatalf("expected overlap for units 3-4, got %v", err)
	}
	want := `equipment overlaps with existing equipment "Database Server" at U4-U5`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

type reservedUnits struct{ units map[int]bool }

func (r reservedUnits) Validate(_ Rack, c Placement, _ []Equipment) error {
	for u := c.Position; u <= c.End(); u++ {
		if r.units[u] {
			return InvalidInput("unit %d is reserved", u)
		}
	}
	return nil
}

func TestAllocatorCustomConstraint(t *testing.T) {
	a := NewAllocator()
	a.AddConstraint(reservedUnits{units: map[int]bool{42: true}})
	rack := rackWith(42)

	if err := a.ValidatePlacement(rack, Placement{Position: 41, Size: 2}, uuid.Nil); KindOf(err) != KindInvalidInput {
		t.Errorf("expected reserved unit rejection, got %v", err)
	}
	// Bounds run first.
	if err := a.ValidatePlacement(rack, Placement{Position: 43, Size: 1}, uuid.Nil); KindOf(err) != KindOutOfBounds {
		t.Errorf("expected out of bounds, got %v", err)
	}
}

func TestFreeRangesAndFirstFit(t *testing.T) {
	empty := rackWith(42)
	if got := FreeRanges(empty); len(got) != 1 || got[0] != (UnitRange{1, 42}) {
		t.Errorf("FreeRanges(empty) = %v", got)
	}

	rack := rackWith(42, Placement{2, 1}, Placement{4, 2})
	got := FreeRanges(rack)
	want := []UnitRange{{1, 1}, {3, 3}, {6, 42}}
	if len(got) != len(want) {
		t.Fatalf("FreeRanges = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FreeRanges[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if pos, err := FirstFit(rack, 1); err != nil || pos != 1 {
		t.Errorf("FirstFit(1) = %d, %v; want 1", pos, err)
	}
	if pos, err := FirstFit(rack, 2); err != nil || pos != 6 {
		t.Errorf("FirstFit(2) = %d, %v; want 6", pos, err)
	}
	if _, err := FirstFit(rack, 43); KindOf(err) != KindOutOfBounds {
		t.Errorf("FirstFit(43) err = %v, want OutOfBounds", err)
	}
	if _, err := FirstFit(rack, 0); KindOf(err) != KindInvalidInput {
		t.Errorf("FirstFit(0) err = %v, want InvalidInput", err)
	}

	full := rackWith(3, Placement{1, 3})
	if got := FreeRanges(full); len(got) != 0 {
		t.Errorf("FreeRanges(full) = %v, want none", got)
	}
}

func TestRackSummary(t *testing.T) {
	rack := rackWith(42, Placement{2, 1}, Placement{4, 2})
	s := rack.Summary()
	if s.UsedUnits != 3 || s.EquipmentCount != 2 || s.TotalUnits != 42 {
		t.Errorf("unexpected summary %+v", s)
	}
	if rack.HighestUsedUnit() != 5 {
		t.Errorf("HighestUsedUnit = %d, want 5", rack.HighestUsedUnit())
	}
}
