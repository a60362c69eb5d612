package metrics

import (
	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
)

// WarningDemographicsUnavailable is recorded when neighborhood statistics are missing.
const WarningDemographicsUnavailable = "Neighborhood statistics were unavailable; demographic metrics could not be calculated."

// Population density target band, residents per km².
const (
	DensityOptimalMin    = 1500.0
	DensityOptimalMax    = 6000.0
	DensityAcceptableMin = 500.0
	DensityAcceptableMax = 10000.0
)

// BuildDemographics builds population and age-structure metrics.
func BuildDemographics(stats *sources.NeighborhoodStats) ([]transport.ContextMetric, []string) {
	if stats == nil {
		return []transport.ContextMetric{}, []string{WarningDemographicsUnavailable}
	}

	out := make([]transport.ContextMetric, 0, 10)
	out = appendRaw(out, "residents", "Residents", stats.Residents, unitPeople, SourceCBS)
	out = appendRaw(out, "households", "Households", stats.Households, unitCount, SourceCBS)
	out = appendRaw(out, "avg_household_size", "Average household size", stats.AvgHouseholdSize, unitPeople, SourceCBS)
	out = appendRaw(out, "households_with_children", "Households with children", stats.WithChildrenPct, unitPercent, SourceCBS)
	out = appendScored(out, "population_density", "Population density", stats.PopulationDensity, unitPerKm2, SourceCBS, DensityScore)
	out = appendRaw(out, "age_0_15", "Residents aged 0-15", stats.Age0To15Pct, unitPercent, SourceCBS)
	out = appendRaw(out, "age_15_25", "Residents aged 15-25", stats.Age15To25Pct, unitPercent, SourceCBS)
	out = appendRaw(out, "age_25_45", "Residents aged 25-45", stats.Age25To45Pct, unitPercent, SourceCBS)
	out = appendRaw(out, "age_45_65", "Residents aged 45-65", stats.Age45To65Pct, unitPercent, SourceCBS)
	out = appendRaw(out, "age_65_plus", "Residents aged 65+", stats.Age65PlusPct, unitPercent, SourceCBS)
	return out, nil
}

// DensityScore favors urban but not crowded densities.
func DensityScore(perKm2 float64) float64 {
	switch {
	case perKm2 >= DensityOptimalMin && perKm2 <= DensityOptimalMax:
		return ScoreExcellent
	case perKm2 >= DensityAcceptableMin && perKm2 <= DensityAcceptableMax:
		return ScoreFair
	default:
		return ScorePoor
	}
}
