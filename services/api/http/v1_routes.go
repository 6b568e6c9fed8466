package http

// registerV1Routes sets up the /api/v1 groups for sectors, sensors and
// administration.
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())
	if s.cfg.JWTSecret != "" {
		if s.archive != nil {
			v1.Use(accessLogMiddleware(s.archive))
		}
		v1.Use(jwtAuthMiddleware([]byte(s.cfg.JWTSecret)))
	}

	sectors := v1.Group("/sectors")
	{
		sectors.GET("", s.handleV1ListSectors)
		sectors.GET("/:id/report", s.handleV1SectorReport)
	}

	sensors := v1.Group("/sensors")
	{
		sensors.GET("", s.handleV1ListSensors)
		sensors.GET("/:id", s.handleV1GetSensor)
		sensors.GET("/:id/series", s.handleV1SensorSeries)
		sensors.GET("/:id/stats", s.handleV1SensorStats)
		sensors.POST("/:id/refresh", s.handleV1RefreshSensor)
		sensors.GET("/:id/chart.png", s.handleV1SensorChart)
		sensors.GET("/:id/history", s.handleV1SensorHistory)
	}

	v1.GET("/access-logs", s.handleV1AccessLogs)
}
