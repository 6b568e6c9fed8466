// Package report renders normalized sensor series as charts, PDF and XLSX
// documents.
package report

import (
	"strconv"
	"time"

	"github.com/guregu/null"

	"github.com/02loveslollipop/ward-monitor/internal/catalog"
	"github.com/02loveslollipop/ward-monitor/internal/series"
)

// SensorSeries is the data rendered for one sensor.
type SensorSeries struct {
	Sensor catalog.Sensor
	Slots  []series.Slot
	Stats  series.Stats
	Error  string
}

// SectorReport collects the series of every sensor in a sector.
type SectorReport struct {
	Sector      catalog.Sector
	GeneratedAt time.Time
	Sensors     []SensorSeries
}

// formatValue prints a nullable reading with its unit, "n/a" when null.
func formatValue(v null.Float, unit string) string {
	if !v.Valid {
		return "n/a"
	}
	s := strconv.FormatFloat(v.Float64, 'f', 2, 64)
	if unit == "" {
		return s
	}
	return s + " " + unit
}
