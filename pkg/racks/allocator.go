package racks

import (
	"fmt"

	"github.com/google/uuid"
)

// Placement is a candidate unit range: Size consecutive units starting at
// Position. Both ends are real units, so the range is inclusive.
type Placement struct {
	Position int `json:"position"`
	Size     int `json:"size"`
}

// End returns the last unit of the placement.
func (p Placement) End() int {
	return p.Position + p.Size - 1
}

// Intersects reports whether p shares at least one unit with e.
func (p Placement) Intersects(e Equipment) bool {
	return p.Position <= e.End() && p.End() >= e.Position
}

// PlacementConstraint is one rule a candidate placement must satisfy.
// occupants already excludes the equipment being moved.
type PlacementConstraint interface {
	Validate(rack Rack, candidate Placement, occupants []Equipment) error
}

// BoundsConstraint keeps a placement inside the rack.
type BoundsConstraint struct{}

func (BoundsConstraint) Validate(rack Rack, candidate Placement, _ []Equipment) error {
	if candidate.Size < 1 {
		return InvalidInput("size must be at least 1, got %d", candidate.Size)
	}
	// Compared without computing End, which overflows for huge inputs.
	if candidate.Position < 1 || candidate.Size > rack.TotalUnits || candidate.Position > rack.TotalUnits-candidate.Size+1 {
		return OutOfBounds(rack.TotalUnits)
	}
	return nil
}

// NoOverlapConstraint ensures no unit is shared with other equipment.
type NoOverlapConstraint struct{}

func (NoOverlapConstraint) Validate(_ Rack, candidate Placement, occupants []Equipment) error {
	for _, eq := range occupants {
		if candidate.Intersects(eq) {
			return Overlap(eq)
		}
	}
	return nil
}

// Allocator validates placements against an ordered list of constraints.
// The first failing constraint decides the rejection.
type Allocator struct {
	constraints []PlacementConstraint
}

// NewAllocator returns an allocator enforcing rack bounds and then overlap.
func NewAllocator() *Allocator {
	return &Allocator{
		constraints: []PlacementConstraint{BoundsConstraint{}, NoOverlapConstraint{}},
	}
}

// AddConstraint appends a rule evaluated after the built-in ones.
func (a *Allocator) AddConstraint(constraint PlacementConstraint) {
	a.constraints = append(a.constraints, constraint)
}

// ValidatePlacement checks candidate against rack and the equipment already
// mounted in it. exclude (uuid.Nil for none) is skipped so an item being
// moved is not compared against itself. It has no side effects.
func (a *Allocator) ValidatePlacement(rack Rack, candidate Placement, exclude uuid.UUID) error {
	occupants := make([]Equipment, 0, len(rack.Equipment))
	for _, eq := range rack.Equipment {
		if exclude != uuid.Nil && eq.ID == exclude {
			continue
		}
		occupants = append(occupants, eq)
	}

	for _, constraint := range a.constraints {
		if err := constraint.Validate(rack, candidate, occupants); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePlacement runs the default bounds and overlap checks.
func ValidatePlacement(rack Rack, candidate Placement, exclude uuid.UUID) error {
	return NewAllocator().ValidatePlacement(rack, candidate, exclude)
}

// UnitRange is an inclusive run of units.
type UnitRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of units in the range.
func (r UnitRange) Len() int {
	return r.End - r.Start + 1
}

// occupancy maps each unit of the rack to whether something sits on it.
// Index 0 is unused.
func occupancy(rack Rack) []bool {
	used := make([]bool, rack.TotalUnits+1)
	for _, eq := range rack.Equipment {
		for u := eq.Position; u <= eq.End(); u++ {
			if u >= 1 && u <= rack.TotalUnits {
				used[u] = true
			}
		}
	}
	return used
}

// FreeRanges returns the maximal runs of unoccupied units, bottom-up.
func FreeRanges(rack Rack) []UnitRange {
	used := occupancy(rack)
	var ranges []UnitRange
	start := 0
	for u := 1; u <= rack.TotalUnits; u++ {
		switch {
		case !used[u] && start == 0:
			start = u
		case used[u] && start != 0:
			ranges = append(ranges, UnitRange{Start: start, End: u - 1})
			start = 0
		}
	}
	if start != 0 {
		ranges = append(ranges, UnitRange{Start: start, End: rack.TotalUnits})
	}
	return ranges
}

// FirstFit returns the lowest position where size consecutive units are free.
func FirstFit(rack Rack, size int) (int, error) {
	if size < 1 {
		return 0, InvalidInput("size must be at least 1, got %d", size)
	}
	for _, r := range FreeRanges(rack) {
		if r.Len() >= size {
			return r.Start, nil
		}
	}
	return 0, &Error{
		Kind:    KindOutOfBounds,
		Message: fmt.Sprintf("no free run of %d units in a %dU rack", size, rack.TotalUnits),
	}
}

// UsedUnits sums the sizes of the given equipment.
func UsedUnits(equipment []Equipment) int {
	total := 0
	for _, eq := range equipment {
		total += eq.Size
	}
	return total
}
