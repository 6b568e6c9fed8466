package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// BuildSectorXLSX writes a summary sheet plus one sheet of slots per sensor.
// Missing minutes are left as empty cells.
func BuildSectorXLSX(r SectorReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summary := "summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	_ = f.SetCellValue(summary, "A1", "Environmental Report")
	_ = f.SetCellValue(summary, "A2", "Sector")
	_ = f.SetCellValue(summary, "B2", r.Sector.Name)
	_ = f.SetCellValue(summary, "A3", "Generated")
	_ = f.SetCellValue(summary, "B3", r.GeneratedAt.Format(time.RFC3339))

	header := []string{"Sensor", "Kind", "Unit", "Current", "Average", "Min", "Max", "Trend", "Populated", "Missing", "Error"}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 5)
		_ = f.SetCellValue(summary, cell, h)
	}
	for i, s := range r.Sensors {
		row := i + 6
		values := []any{
			s.Sensor.Name,
			string(s.Sensor.Kind),
			s.Sensor.Unit,
			nullable(s.Stats.Current.Valid, s.Stats.Current.Float64),
			nullable(s.Stats.Average.Valid, s.Stats.Average.Float64),
			nullable(s.Stats.Min.Valid, s.Stats.Min.Float64),
			nullable(s.Stats.Max.Valid, s.Stats.Max.Float64),
			string(s.Stats.Trend),
			s.Stats.Populated,
			s.Stats.Missing,
			s.Error,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(summary, cell, v)
		}
	}

	used := map[string]int{summary: 1}
	for _, s := range r.Sensors {
		name := sheetName(s.Sensor.ID, used)
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		_ = f.SetCellValue(name, "A1", "Timestamp")
		_ = f.SetCellValue(name, "B1", "Value ("+s.Sensor.Unit+")")
		_ = f.SetCellValue(name, "C1", "Min")
		_ = f.SetCellValue(name, "D1", "Max")
		for i, slot := range s.Slots {
			row := i + 2
			_ = f.SetCellValue(name, fmt.Sprintf("A%d", row), slot.Timestamp.Format(time.RFC3339))
			if slot.Value.Valid {
				_ = f.SetCellValue(name, fmt.Sprintf("B%d", row), slot.Value.Float64)
			}
			if slot.Min.Valid {
				_ = f.SetCellValue(name, fmt.Sprintf("C%d", row), slot.Min.Float64)
			}
			if slot.Max.Valid {
				_ = f.SetCellValue(name, fmt.Sprintf("D%d", row), slot.Max.Float64)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nullable(valid bool, v float64) any {
	if !valid {
		return ""
	}
	return v
}

// sheetName makes a sensor id usable as a unique worksheet name.
func sheetName(id string, used map[string]int) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, id)
	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	if name == "" {
		name = "sensor"
	}
	base := []rune(name)
	for n := 2; used[strings.ToLower(name)] > 0; n++ {
		suffix := fmt.Sprintf("~%d", n)
		trimmed := base
		if len(trimmed)+len(suffix) > maxSheetName {
			trimmed = trimmed[:maxSheetName-len(suffix)]
		}
		name = string(trimmed) + suffix
	}
	used[strings.ToLower(name)]++
	return name
}
