package storage

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/openchami/rack-manager/pkg/racks"
)

// EncodeLabels serializes a VLAN list for a text column. A nil list is
// stored as "[]".
func EncodeLabels(labels []string) (string, error) {
	if labels == nil {
		labels = []string{}
	}
	data, err := json.Marshal(labels)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeLabels reads a VLAN list column. Besides the JSON array written by
// EncodeLabels it accepts NULL, the empty string and comma-separated text
// left by older rows. It always returns a non-nil list.
func DecodeLabels(column sql.NullString) []string {
	if !column.Valid {
		return []string{}
	}
	raw := strings.TrimSpace(column.String)
	if strings.HasPrefix(raw, "[") {
		var labels []string
		if err := json.Unmarshal([]byte(raw), &labels); err == nil {
			return racks.CleanVlanList(labels)
		}
	}
	return racks.ParseVlanList(raw)
}
