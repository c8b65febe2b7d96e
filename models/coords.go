package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NotAvailable is shown wherever a panel field cannot be resolved.
const NotAvailable = "Not available"

// Location is a one-shot position fix captured by the client.
type Location struct {
	Latitude  float64  `bson:"latitude"           json:"latitude"`
	Longitude float64  `bson:"longitude"          json:"longitude"`
	Accuracy  *float64 `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
}

// Number coerces loosely typed payload values (JSON numbers, BSON ints,
// numeric strings) to float64. NaN and infinities are rejected.
func Number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatCoordinates renders "lat, lon" with six decimals, or NotAvailable when
// either side is missing or not numeric.
func FormatCoordinates(lat, lon any) string {
	la, ok := Number(lat)
	if !ok {
		return NotAvailable
	}
	lo, ok := Number(lon)
	if !ok {
		return NotAvailable
	}
	return fmt.Sprintf("%.6f, %.6f", la, lo)
}
