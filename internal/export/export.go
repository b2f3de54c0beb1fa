// Package export renders a rack's inventory as CSV or as an XLSX workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openchami/rack-manager/pkg/racks"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a query value to a Format. An empty value selects CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", racks.InvalidInput("unsupported export format %q", raw)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename returns the attachment name for an export of rack.
func (f Format) Filename(rack racks.Rack) string {
	name := strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' || r == '\\' || r == '"' {
			return '_'
		}
		return r
	}, rack.Name)
	if name == "" {
		name = rack.ID.String()
	}
	return fmt.Sprintf("rack-%s.%s", name, f)
}

// Write renders rack to w in the given format.
func Write(w io.Writer, f Format, rack racks.Rack) error {
	if f == FormatXLSX {
		return WriteXLSX(w, rack)
	}
	return WriteCSV(w, rack)
}

var equipmentHeader = []string{"Units", "Position", "Size", "Name", "Type", "Brand", "IP Address", "iDRAC IP", "VLANs", "Ports", "Virtual Machines", "Description"}

func equipmentRow(eq racks.Equipment) []string {
	return []string{
		eq.UnitLabel(),
		strconv.Itoa(eq.Position),
		strconv.Itoa(eq.Size),
		eq.Name,
		eq.Type.String(),
		eq.Brand,
		eq.IPAddress,
		eq.IdracIP,
		strings.Join(eq.Vlans, ","),
		strconv.Itoa(len(eq.Ports)),
		strconv.Itoa(len(eq.VirtualMachines)),
		eq.Description,
	}
}

// WriteCSV writes one row per piece of equipment, top of the rack first.
func WriteCSV(w io.Writer, rack racks.Rack) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(equipmentHeader); err != nil {
		return err
	}
	for _, eq := range topDown(rack) {
		if err := writer.Write(equipmentRow(eq)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

const (
	equipmentSheet = "Equipment"
	portsSheet     = "Ports"
	vmSheet        = "VirtualMachines"
)

// WriteXLSX writes a workbook with an Equipment sheet laid out like the CSV
// export plus Ports and VirtualMachines sheets.
func WriteXLSX(w io.Writer, rack racks.Rack) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", equipmentSheet); err != nil {
		return err
	}
	for _, sheet := range []string{portsSheet, vmSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}

	equipment := topDown(rack)

	rows := [][]string{equipmentHeader}
	for _, eq := range equipment {
		rows = append(rows, equipmentRow(eq))
	}
	if err := setRows(f, equipmentSheet, rows); err != nil {
		return err
	}

	rows = [][]string{{"Switch", "Units", "Port", "Description", "Connected", "Fibre", "Tagged VLANs"}}
	for _, eq := range equipment {
		for _, port := range eq.Ports {
			rows = append(rows, []string{
				eq.Name,
				eq.UnitLabel(),
				strconv.Itoa(port.PortNumber),
				port.Description,
				strconv.FormatBool(port.Connected),
				strconv.FormatBool(port.IsFibre),
				strings.Join(port.TaggedVlans, ","),
			})
		}
	}
	if err := setRows(f, portsSheet, rows); err != nil {
		return err
	}

	rows = [][]string{{"Server", "Units", "Name", "IP Address", "AnyDesk", "Description"}}
	for _, eq := range equipment {
		for _, vm := range eq.VirtualMachines {
			rows = append(rows, []string{eq.Name, eq.UnitLabel(), vm.Name, vm.IPAddress, vm.AnydeskCode, vm.Description})
		}
	}
	if err := setRows(f, vmSheet, rows); err != nil {
		return err
	}

	return f.Write(w)
}

func setRows(f *excelize.File, sheet string, rows [][]string) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// topDown returns the equipment ordered from the highest unit down, the
// way a rack elevation is read.
func topDown(rack racks.Rack) []racks.Equipment {
	equipment := make([]racks.Equipment, len(rack.Equipment))
	copy(equipment, rack.Equipment)
	racks.SortByPosition(equipment)
	for i, j := 0, len(equipment)-1; i < j; i, j = i+1, j-1 {
		equipment[i], equipment[j] = equipment[j], equipment[i]
	}
	return equipment
}
