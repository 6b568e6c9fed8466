// Package catalog loads the sector and sensor layout from YAML.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy selects how a sensor's series is maintained between polls.
type Policy string

const (
	// PolicyRefresh rebuilds the whole series from the anchor on every poll.
	PolicyRefresh Policy = "refresh"
	// PolicySliding keeps the previous series and appends newer readings.
	PolicySliding Policy = "sliding"
)

// Kind is the physical quantity a sensor measures.
type Kind string

const (
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
	KindPressure    Kind = "pressure"
	KindNoise       Kind = "noise"
	KindCO2         Kind = "co2"
	KindTVOC        Kind = "tvoc"
)

var defaultUnits = map[Kind]string{
	KindTemperature: "°C",
	KindHumidity:    "%",
	KindPressure:    "hPa",
	KindNoise:       "dB",
	KindCO2:         "ppm",
	KindTVOC:        "ppb",
}

// Sensor describes one upstream sensor feed.
type Sensor struct {
	ID     string         `yaml:"id" json:"id"`
	Name   string         `yaml:"name" json:"name"`
	Kind   Kind           `yaml:"kind" json:"kind"`
	Unit   string         `yaml:"unit" json:"unit"`
	Path   string         `yaml:"path" json:"-"`
	Policy Policy         `yaml:"policy" json:"policy"`
	Skew   *time.Duration `yaml:"skew" json:"-"`
	Sector string         `yaml:"-" json:"sector"`
}

// Sector groups the sensors of one hospital area.
type Sector struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Floor   string   `yaml:"floor" json:"floor,omitempty"`
	Sensors []Sensor `yaml:"sensors" json:"sensors"`
}

// Catalog is the full sector/sensor layout.
type Catalog struct {
	Sectors []Sector `yaml:"sectors" json:"sectors"`

	byID map[string]Sensor
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog, fills defaults and validates ids.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Sectors) == 0 {
		return nil, errors.New("catalog: no sectors defined")
	}

	c.byID = make(map[string]Sensor)
	sectorIDs := make(map[string]struct{}, len(c.Sectors))
	for i := range c.Sectors {
		sector := &c.Sectors[i]
		sector.ID = strings.TrimSpace(sector.ID)
		if sector.ID == "" {
			return nil, fmt.Errorf("catalog: sector %d has no id", i)
		}
		if _, dup := sectorIDs[sector.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate sector %q", sector.ID)
		}
		sectorIDs[sector.ID] = struct{}{}
		if sector.Name == "" {
			sector.Name = sector.ID
		}

		for j := range sector.Sensors {
			sensor := &sector.Sensors[j]
			if err := sensor.normalize(sector.ID); err != nil {
				return nil, err
			}
			if _, dup := c.byID[sensor.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate sensor %q", sensor.ID)
			}
			c.byID[sensor.ID] = *sensor
		}
	}
	return &c, nil
}

func (s *Sensor) normalize(sectorID string) error {
	s.ID = strings.TrimSpace(s.ID)
	if s.ID == "" {
		return fmt.Errorf("catalog: sensor in sector %q has no id", sectorID)
	}
	s.Sector = sectorID
	s.Kind = Kind(strings.ToLower(strings.TrimSpace(string(s.Kind))))
	if s.Unit == "" {
		s.Unit = defaultUnits[s.Kind]
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	if s.Path == "" {
		s.Path = "/sensors/" + s.ID + "/minutes"
	}
	switch Policy(strings.ToLower(string(s.Policy))) {
	case "", PolicyRefresh:
		s.Policy = PolicyRefresh
	case PolicySliding:
		s.Policy = PolicySliding
	default:
		return fmt.Errorf("catalog: sensor %q: unknown policy %q", s.ID, s.Policy)
	}
	if s.Skew != nil && *s.Skew < 0 {
		return fmt.Errorf("catalog: sensor %q: negative skew", s.ID)
	}
	return nil
}

// Sensor looks up a sensor by id.
func (c *Catalog) Sensor(id string) (Sensor, bool) {
	if c == nil {
		return Sensor{}, false
	}
	s, ok := c.byID[id]
	return s, ok
}

// Sector looks up a sector by id.
func (c *Catalog) Sector(id string) (Sector, bool) {
	if c == nil {
		return Sector{}, false
	}
	for _, s := range c.Sectors {
		if s.ID == id {
			return s, true
		}
	}
	return Sector{}, false
}

// Sensors returns every sensor in catalog order.
func (c *Catalog) Sensors() []Sensor {
	if c == nil {
		return nil
	}
	out := make([]Sensor, 0, len(c.byID))
	for _, sector := range c.Sectors {
		out = append(out, sector.Sensors...)
	}
	return out
}
