package source

import (
	olc "github.com/google/open-location-code/go"
)

const olcCodeLength = 10

// FormatCoordinates renders a position as "OLC-" followed by its 10-digit
// Open Location Code (plus code).
func FormatCoordinates(longitude, latitude float64) string {
	return "OLC-" + olc.Encode(latitude, longitude, olcCodeLength)
}
