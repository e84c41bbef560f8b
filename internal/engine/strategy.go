package engine

import (
	"github.com/brewlab/brewsync/internal/models"
)

// resolveStrategy derives the effective plan for a session from the user's
// configured strategy and the two devices. A low performance tier on
// either side forces compression with a lower threshold so constrained
// devices move fewer bytes.
func resolveStrategy(base models.SyncStrategy, source, target *models.DeviceRecord) models.SyncStrategy {
	s := base
	if source.Capabilities.PerformanceTier == models.PerfLow ||
		target.Capabilities.PerformanceTier == models.PerfLow {
		s.CompressionEnabled = true
		if s.CompressionThreshold == 0 || s.CompressionThreshold > lowPerfCompressionThreshold {
			s.CompressionThreshold = lowPerfCompressionThreshold
		}
	}
	return s
}

// resolveScope picks the categories a session moves. Explicitly requested
// categories always win. Otherwise the preference scope applies, narrowed
// by device characteristics: wearables only carry profile and preferences,
// and targets short on storage skip analytics.
func resolveScope(requested, preferred []models.Category, target *models.DeviceRecord) []models.Category {
	if len(requested) > 0 {
		return requested
	}
	scope := preferred
	if len(scope) == 0 {
		scope = models.AllCategories()
	}

	if target.Type == models.DeviceWearable {
		return intersect(scope, []models.Category{models.CategoryProfile, models.CategoryPreferences})
	}
	if target.Capabilities.StorageAvailableMB() < 100 {
		return without(scope, models.CategoryAnalytics)
	}
	return scope
}

func intersect(scope, allowed []models.Category) []models.Category {
	keep := make(map[models.Category]bool, len(allowed))
	for _, c := range allowed {
		keep[c] = true
	}
	var out []models.Category
	for _, c := range scope {
		if keep[c] {
			out = append(out, c)
		}
	}
	return out
}

func without(scope []models.Category, drop models.Category) []models.Category {
	var out []models.Category
	for _, c := range scope {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}
