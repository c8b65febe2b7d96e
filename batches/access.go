// Package batches lists the batches currently moving through the pipeline.
package batches

import (
	"strings"

	"herbtrace/models"
)

const (
	FilterAll        = "all"
	FilterAccessible = "accessible"
)

// stageRoles names the single role allowed to act on each stage.
var stageRoles = map[models.BatchStatus]models.Role{
	models.StatusCollected:     models.RoleQualityTest,
	models.StatusQualityTested: models.RoleProcessor,
	models.StatusProcessed:     models.RoleManufacturer,
}

// CanAccess reports whether u may act on b. Anonymous users see nothing,
// admins and consumers see everything, stage roles see their own stage, and
// stages without an owner are open to all.
func CanAccess(u *models.User, b models.Batch) bool {
	if u == nil {
		return false
	}
	if u.Role.FullAccess() {
		return true
	}
	role, owned := stageRoles[b.CurrentStatus]
	if !owned {
		return true
	}
	return u.Role == role
}

// Apply filters by "all", "accessible" or a case-insensitive status.
func Apply(list []models.Batch, filter string, u *models.User) []models.Batch {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == FilterAll {
		return list
	}
	out := make([]models.Batch, 0, len(list))
	for _, b := range list {
		var keep bool
		if filter == FilterAccessible {
			keep = CanAccess(u, b)
		} else {
			keep = strings.EqualFold(string(b.CurrentStatus), filter)
		}
		if keep {
			out = append(out, b)
		}
	}
	return out
}
