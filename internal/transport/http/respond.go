package http

import (
	"encoding/json"
	"net/http"
	"time"

	"fleet-monitor/telemetry/internal/domain"
)

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	resp := errorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// readingView is the wire shape of a reading on every API surface.
type readingView struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature_celsius"`
	Humidity    float64   `json:"humidity_pct"`
	Longitude   float64   `json:"longitude"`
	Latitude    float64   `json:"latitude"`
}

func toReadingView(r domain.Reading) readingView {
	return readingView{
		Timestamp:   r.Time(),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Longitude:   r.Longitude,
		Latitude:    r.Latitude,
	}
}

func toReadingViews(readings []domain.Reading) []readingView {
	out := make([]readingView, len(readings))
	for i, r := range readings {
		out[i] = toReadingView(r)
	}
	return out
}

type alertView struct {
	AlertType domain.AlertType     `json:"alert_type"`
	Severity  domain.AlertSeverity `json:"severity"`
	Series    string               `json:"series"`
	Value     float64              `json:"value"`
	Limit     float64              `json:"limit"`
	ReadingAt time.Time            `json:"reading_at"`
}

func toAlertView(a domain.Alert) alertView {
	return alertView{
		AlertType: a.Type,
		Severity:  a.Severity,
		Series:    a.Series,
		Value:     a.Value,
		Limit:     a.Limit,
		ReadingAt: time.Unix(a.Timestamp, 0).UTC(),
	}
}
