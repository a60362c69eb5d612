package metrics

import (
	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
)

// WarningHousingUnavailable is recorded when neighborhood statistics are missing.
const WarningHousingUnavailable = "Neighborhood statistics were unavailable; housing metrics could not be calculated."

// Owner-occupied share, percent. NL average is about 57%.
const (
	OwnershipVeryHigh = 70.0
	OwnershipHigh     = 55.0
	OwnershipAverage  = 40.0
	OwnershipLow      = 25.0
)

// Share of dwellings built in or after 2000, percent.
const (
	NewBuildVeryHigh = 40.0
	NewBuildHigh     = 25.0
	NewBuildAverage  = 15.0
	NewBuildLow      = 5.0
)

// BuildHousing builds housing-stock metrics.
func BuildHousing(stats *sources.NeighborhoodStats) ([]transport.ContextMetric, []string) {
	if stats == nil {
		return []transport.ContextMetric{}, []string{WarningHousingUnavailable}
	}

	out := make([]transport.ContextMetric, 0, 5)
	out = appendScored(out, "owner_occupied", "Owner-occupied homes", stats.OwnerOccupiedPct, unitPercent, SourceCBS, OwnershipScore)
	out = appendScored(out, "built_since_2000", "Homes built since 2000", stats.BuiltSince2000Pct, unitPercent, SourceCBS, NewBuildScore)
	out = appendRaw(out, "avg_woz_value", "Average WOZ value", stats.AvgWOZValue, unitThousandEUR, SourceCBS)
	out = appendRaw(out, "housing_stock", "Dwellings", stats.HousingStock, unitCount, SourceCBS)
	out = appendRaw(out, "rental", "Rental homes", stats.RentalPct, unitPercent, SourceCBS)
	return out, nil
}

// OwnershipScore scores the owner-occupied share.
func OwnershipScore(pct float64) float64 {
	switch {
	case pct >= OwnershipVeryHigh:
		return ScoreExcellent
	case pct >= OwnershipHigh:
		return ScoreGood
	case pct >= OwnershipAverage:
		return ScoreFair
	case pct >= OwnershipLow:
		return ScoreModerate
	default:
		return ScorePoor
	}
}

// NewBuildScore scores the share of recent housing stock.
func NewBuildScore(pct float64) float64 {
	switch {
	case pct >= NewBuildVeryHigh:
		return ScoreExcellent
	case pct >= NewBuildHigh:
		return ScoreGood
	case pct >= NewBuildAverage:
		return ScoreFair
	case pct >= NewBuildLow:
		return ScoreModerate
	default:
		return ScorePoor
	}
}
