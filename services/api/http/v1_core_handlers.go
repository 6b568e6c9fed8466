package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/ward-monitor/internal/catalog"
	"github.com/02loveslollipop/ward-monitor/internal/poller"
	"github.com/02loveslollipop/ward-monitor/internal/report"
	"github.com/02loveslollipop/ward-monitor/internal/series"
)

// handleV1ListSectors returns every sector with its sensors
// GET /api/v1/sectors
func (s *Server) handleV1ListSectors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": s.catalog.Sectors,
		"meta": gin.H{
			"count": len(s.catalog.Sectors),
		},
	})
}

// handleV1ListSensors returns all sensors
// GET /api/v1/sensors
func (s *Server) handleV1ListSensors(c *gin.Context) {
	sensors := s.catalog.Sensors()
	c.JSON(http.StatusOK, gin.H{
		"data": sensors,
		"meta": gin.H{
			"count": len(sensors),
		},
	})
}

// handleV1GetSensor returns details for a specific sensor
// GET /api/v1/sensors/:id
func (s *Server) handleV1GetSensor(c *gin.Context) {
	sensor, ok := s.lookupSensor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": sensor,
	})
}

// handleV1SensorSeries returns the normalized minute slots of a sensor
// GET /api/v1/sensors/:id/series
func (s *Server) handleV1SensorSeries(c *gin.Context) {
	sensor, state, ok := s.lookupState(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"sensor": sensor,
			"slots":  state.Slots,
			"stats":  state.Stats,
		},
		"meta": seriesMeta(state),
	})
}

// handleV1SensorStats returns the summary statistics of a sensor
// GET /api/v1/sensors/:id/stats
func (s *Server) handleV1SensorStats(c *gin.Context) {
	sensor, state, ok := s.lookupState(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"sensor_id": sensor.ID,
			"unit":      sensor.Unit,
			"stats":     state.Stats,
		},
		"meta": seriesMeta(state),
	})
}

// handleV1RefreshSensor polls a sensor immediately
// POST /api/v1/sensors/:id/refresh
func (s *Server) handleV1RefreshSensor(c *gin.Context) {
	sensor, ok := s.lookupSensor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.PollTimeout+5*time.Second)
	defer cancel()

	state, err := s.series.Refresh(ctx, sensor.ID)
	switch {
	case errors.Is(err, poller.ErrUnknownSensor):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if ctx.Err() != nil {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
			return
		}
	}
	state = s.fillUnloaded(sensor, state)

	// an upstream failure still returns the retained series
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"data": gin.H{
			"sensor": sensor,
			"slots":  state.Slots,
			"stats":  state.Stats,
		},
		"meta": seriesMeta(state),
	})
}

// handleV1SensorChart renders the current series as a PNG
// GET /api/v1/sensors/:id/chart.png
func (s *Server) handleV1SensorChart(c *gin.Context) {
	sensor, state, ok := s.lookupState(c)
	if !ok {
		return
	}
	png, err := report.ChartPNG(report.SensorSeries{
		Sensor: sensor,
		Slots:  state.Slots,
		Stats:  state.Stats,
		Error:  state.Error,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) lookupSensor(c *gin.Context) (catalog.Sensor, bool) {
	sensorID := c.Param("id")
	if sensorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sensor id is required"})
		return catalog.Sensor{}, false
	}
	sensor, ok := s.catalog.Sensor(sensorID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "sensor not found"})
		return catalog.Sensor{}, false
	}
	return sensor, true
}

func (s *Server) lookupState(c *gin.Context) (catalog.Sensor, poller.State, bool) {
	sensor, ok := s.lookupSensor(c)
	if !ok {
		return catalog.Sensor{}, poller.State{}, false
	}
	state, err := s.series.Snapshot(sensor.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return catalog.Sensor{}, poller.State{}, false
	}
	return sensor, s.fillUnloaded(sensor, state), true
}

// fillUnloaded gives a sensor that has not completed a poll yet a
// null-filled timeline so clients always see a full window.
func (s *Server) fillUnloaded(sensor catalog.Sensor, state poller.State) poller.State {
	if len(state.Slots) > 0 {
		return state
	}
	skew := s.cfg.SeriesSkew
	if sensor.Skew != nil {
		skew = *sensor.Skew
	}
	state.Slots = series.Normalize(nil, time.Now().UTC(), series.WithWindow(s.cfg.SeriesWindow), series.WithSkew(skew))
	state.Stats = series.Summarize(state.Slots, s.cfg.TrendThreshold)
	return state
}

func seriesMeta(state poller.State) gin.H {
	meta := gin.H{
		"policy":     state.Policy,
		"loaded":     state.Loaded,
		"count":      len(state.Slots),
		"missing":    state.Stats.Missing,
		"updated_at": state.UpdatedAt,
	}
	if state.LastSuccess != nil {
		meta["last_success"] = state.LastSuccess.Format(time.RFC3339)
	}
	if state.Error != "" {
		meta["error"] = state.Error
		if state.ErrorAt != nil {
			meta["error_at"] = state.ErrorAt.Format(time.RFC3339)
		}
	}
	return meta
}
