package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// BuildSectorPDF renders a sector summary followed by one chart per sensor.
func BuildSectorPDF(r SectorReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, tr("Environmental Report: "+r.Sector.Name))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if r.Sector.Floor != "" {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Floor: %s", r.Sector.Floor)))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", r.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Sensors: %d", len(r.Sensors)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	headers := []string{"Sensor", "Current", "Average", "Min", "Max", "Trend", "Gaps"}
	widths := []float64{44, 26, 26, 24, 24, 18, 18}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, s := range r.Sensors {
		unit := s.Sensor.Unit
		cells := []string{
			s.Sensor.Name,
			formatValue(s.Stats.Current, unit),
			formatValue(s.Stats.Average, unit),
			formatValue(s.Stats.Min, unit),
			formatValue(s.Stats.Max, unit),
			string(s.Stats.Trend),
			fmt.Sprintf("%d/%d", s.Stats.Missing, len(s.Slots)),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 || i == 5 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, tr(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	for _, s := range r.Sensors {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s (%s)", s.Sensor.Name, s.Sensor.Unit)))
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		if s.Error != "" {
			pdf.Cell(0, 5, tr("Last poll failed: "+s.Error))
			pdf.Ln(5)
		}
		png, err := ChartPNG(s)
		if err != nil {
			pdf.Cell(0, 5, "Chart unavailable")
			pdf.Ln(5)
			continue
		}
		name := "chart-" + s.Sensor.ID
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
		pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), 180, 0, true, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
