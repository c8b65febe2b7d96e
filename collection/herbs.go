package collection

import (
	"strings"

	"herbtrace/models"
)

// Suggest returns the herbs whose name or scientific name contains query,
// ignoring case. An empty query suggests nothing.
func Suggest(query string, herbs []models.Herb) []models.Herb {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []models.Herb
	for _, h := range herbs {
		if strings.Contains(strings.ToLower(h.Name), q) ||
			strings.Contains(strings.ToLower(h.ScientificName), q) {
			out = append(out, h)
		}
	}
	return out
}

// ZoneApproved reports whether name is one of the approved harvesting zones.
func ZoneApproved(name string) bool {
	name = strings.TrimSpace(name)
	for _, z := range models.ApprovedZones {
		if strings.EqualFold(z.Name, name) {
			return true
		}
	}
	return false
}
