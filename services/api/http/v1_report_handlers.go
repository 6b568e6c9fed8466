package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/ward-monitor/internal/metrics"
	"github.com/02loveslollipop/ward-monitor/internal/report"
)

// handleV1SectorReport exports the live series of a sector as PDF or XLSX
// GET /api/v1/sectors/:id/report?format=pdf|xlsx
func (s *Server) handleV1SectorReport(c *gin.Context) {
	sector, ok := s.catalog.Sector(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "sector not found"})
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "pdf"))
	if format != "pdf" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be pdf or xlsx"})
		return
	}

	r := report.SectorReport{Sector: sector, GeneratedAt: time.Now().UTC()}
	for _, sensor := range sector.Sensors {
		state, err := s.series.Snapshot(sensor.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		state = s.fillUnloaded(sensor, state)
		r.Sensors = append(r.Sensors, report.SensorSeries{
			Sensor: sensor,
			Slots:  state.Slots,
			Stats:  state.Stats,
			Error:  state.Error,
		})
	}

	start := time.Now()
	var (
		body        []byte
		err         error
		contentType string
	)
	switch format {
	case "xlsx":
		body, err = report.BuildSectorXLSX(r)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		body, err = report.BuildSectorPDF(r)
		contentType = "application/pdf"
	}
	metrics.ObserveReport(format, err, time.Since(start))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", sector.ID, r.GeneratedAt.Format("20060102T1504Z"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, body)
}
