// Package racks holds the rack inventory model and the slot allocator.
//
// A rack has TotalUnits numbered from 1 at the bottom. Equipment occupies
// Size consecutive units starting at Position; both ends are real units, so
// a 2U server at position 4 holds units 4 and 5:
//
//	err := racks.ValidatePlacement(rack, racks.Placement{Position: 4, Size: 2}, uuid.Nil)
//
// Placements are rejected with KindOutOfBounds when they leave the rack and
// KindOverlap when they share any unit with other equipment in the same
// rack. When moving an item, pass its own ID as the exclusion so it is not
// compared against itself.
//
// Switch VLANs are free-text labels. Whenever a switch's VLAN list changes,
// ReconcilePortVlans must run over its ports so that no port keeps a tag for
// a VLAN that no longer exists.
package racks
