package models

import (
	"time"

	"github.com/guregu/null"
)

// SensorRow captures the catalog sensor metadata for DB operations.
type SensorRow struct {
	ID     string
	Name   string
	Sector string
	Kind   string
	Unit   string
}

// ReadingCandidate is a parsed minute reading ready for insertion.
type ReadingCandidate struct {
	SensorID string
	Minute   time.Time
	Avg      float64
	Min      null.Float
	Max      null.Float
}
