package domain

import "time"

// Reading is one synthetic sample taken from the vehicle's sensors.
type Reading struct {
	Timestamp int64 // unix seconds

	Temperature float64 // °C
	Longitude   float64
	Latitude    float64
	Humidity    float64 // %
}

func (r Reading) Time() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

type AlertType string

const (
	AlertTemperatureThreshold AlertType = "TEMPERATURE_THRESHOLD"
	AlertTemperatureVariation AlertType = "TEMPERATURE_VARIATION"
	AlertHumidityVariation    AlertType = "HUMIDITY_VARIATION"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// Alert is raised by an analysis stage. Value is the observed figure
// (a temperature or an absolute variation), Limit the bound it crossed.
type Alert struct {
	Type      AlertType
	Severity  AlertSeverity
	Series    string
	Value     float64
	Limit     float64
	Timestamp int64
}

// Series labels shared by the strategies and the variation check.
const (
	SeriesTemperature = "Temperature"
	SeriesHumidity    = "Humidity"
)
