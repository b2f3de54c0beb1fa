package racks

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestParseVlanList(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{}},
		{"   ", []string{}},
		{"V10", []string{"V10"}},
		{"V10,V20", []string{"V10", "V20"}},
		{" V10 , V20 ,, V30 ", []string{"V10", "V20", "V30"}},
		{",,,", []string{}},
		{"Prod LAN, DMZ", []string{"Prod LAN", "DMZ"}},
		{"V10,V10", []string{"V10", "V10"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseVlanList(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseVlanList(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestReconcilePortVlans(t *testing.T) {
	ports := []SwitchPort{
		{PortNumber: 1, TaggedVlans: []string{"V10", "V20"}},
		{PortNumber: 2, TaggedVlans: []string{"V30"}},
		{PortNumber: 3, TaggedVlans: []string{}},
		{PortNumber: 4, Description: "uplink", Connected: true, TaggedVlans: []string{"V20", "V10"}},
	}

	got := ReconcilePortVlans(ports, []string{"V10"})

	want := [][]string{{"V10"}, {}, {}, {"V10"}}
	for i, p := range got {
		if !reflect.DeepEqual(p.TaggedVlans, want[i]) {
			t.Errorf("port %d tags = %v, want %v", p.PortNumber, p.TaggedVlans, want[i])
		}
	}
	if got[3].Description != "uplink" || !got[3].Connected {
		t.Errorf("non-tag fields changed: %+v", got[3])
	}
	if !reflect.DeepEqual(ports[0].TaggedVlans, []string{"V10", "V20"}) {
		t.Errorf("input slice was modified: %v", ports[0].TaggedVlans)
	}
}

func TestReconcilePortVlansSubsetProperty(t *testing.T) {
	vlans := []string{"A", "C"}
	ports := []SwitchPort{
		{PortNumber: 1, TaggedVlans: []string{"A", "B", "C", "D"}},
		{PortNumber: 2, TaggedVlans: []string{"D", "C", "B"}},
	}
	for _, p := range ReconcilePortVlans(ports, vlans) {
		if err := ValidateTaggedVlans(p.TaggedVlans, vlans); err != nil {
			t.Errorf("port %d still carries unknown tags: %v", p.PortNumber, err)
		}
	}

	// Reconciling twice changes nothing.
	once := ReconcilePortVlans(ports, vlans)
	twice := ReconcilePortVlans(once, vlans)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("reconcile is not idempotent: %v vs %v", once, twice)
	}
}

func TestInitializePorts(t *testing.T) {
	switchID := uuid.New()
	ports, err := InitializePorts(switchID, 24)
	if err != nil {
		t.Fatalf("InitializePorts: %v", err)
	}
	if len(ports) != 24 {
		t.Fatalf("got %d ports, want 24", len(ports))
	}
	seen := map[uuid.UUID]bool{}
	for i, p := range ports {
		if p.PortNumber != i+1 {
			t.Errorf("port %d has number %d", i, p.PortNumber)
		}
		if p.EquipmentID != switchID {
			t.Errorf("port %d belongs to %s", p.PortNumber, p.EquipmentID)
		}
		if p.Connected || p.IsFibre || p.Description != "" || len(p.TaggedVlans) != 0 || p.TaggedVlans == nil {
			t.Errorf("port %d is not blank: %+v", p.PortNumber, p)
		}
		if seen[p.ID] {
			t.Errorf("duplicate port id %s", p.ID)
		}
		seen[p.ID] = true
	}

	none, err := InitializePorts(switchID, 0)
	if err != nil || len(none) != 0 {
		t.Errorf("InitializePorts(0) = %v, %v", none, err)
	}
	if _, err := InitializePorts(switchID, -1); KindOf(err) != KindInvalidInput {
		t.Errorf("InitializePorts(-1) err = %v, want InvalidInput", err)
	}
}

func TestValidateTaggedVlans(t *testing.T) {
	if err := ValidateTaggedVlans([]string{"V10"}, []string{"V10", "V20"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateTaggedVlans(nil, nil); err != nil {
		t.Errorf("empty tags should pass: %v", err)
	}
	err := ValidateTaggedVlans([]string{"V10", "V99"}, []string{"V10"})
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	if err.Error() != "tagged VLANs not configured on switch: V99" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestVlanListUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		wantErr bool
	}{
		{"array", `{"vlans":["V10"," V20 ",""]}`, []string{"V10", "V20"}, false},
		{"string", `{"vlans":"V10, V20,,"}`, []string{"V10", "V20"}, false},
		{"empty string", `{"vlans":""}`, []string{}, false},
		{"number", `{"vlans":10}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req struct {
				Vlans VlanList `json:"vlans"`
			}
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", req.Vlans)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual([]string(req.Vlans), tt.want) {
				t.Errorf("got %#v, want %#v", req.Vlans, tt.want)
			}
		})
	}
}
