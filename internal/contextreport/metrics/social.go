package metrics

import (
	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
)

// WarningSocialUnavailable is recorded when neighborhood statistics are missing.
const WarningSocialUnavailable = "Neighborhood statistics were unavailable; social metrics could not be calculated."

// Median disposable income per resident, x 1000 EUR. NL median is about 27.
const (
	IncomeHigh        = 35.0
	IncomeAboveMedian = 30.0
	IncomeMedian      = 25.0
	IncomeBelowMedian = 20.0
)

// Share of low-income households, percent. NL average is about 8%.
const (
	LowIncomeVeryFew = 5.0
	LowIncomeFew     = 8.0
	LowIncomeAverage = 12.0
	LowIncomeMany    = 16.0
)

// BuildSocial builds income and household-composition metrics.
func BuildSocial(stats *sources.NeighborhoodStats) ([]transport.ContextMetric, []string) {
	if stats == nil {
		return []transport.ContextMetric{}, []string{WarningSocialUnavailable}
	}

	out := make([]transport.ContextMetric, 0, 5)
	out = appendScored(out, "median_income", "Median disposable income", stats.MedianIncome, unitThousandEUR, SourceCBS, IncomeScore)
	out = appendScored(out, "low_income_households", "Low-income households", stats.LowIncomePct, unitPercent, SourceCBS, LowIncomeScore)
	out = appendRaw(out, "median_wealth", "Median household wealth", stats.MedianWealth, unitThousandEUR, SourceCBS)
	out = appendRaw(out, "single_person_households", "Single-person households", stats.SinglePersonPct, unitPercent, SourceCBS)
	if stats.Urbanity != nil {
		out = append(out, withNote(
			rawMetric("urbanity", "Urbanity class", stats.Urbanity, unitIndex, SourceCBS),
			"1 = very strongly urban, 5 = not urban",
		))
	}
	return out, nil
}

// IncomeScore scores median disposable income.
func IncomeScore(income float64) float64 {
	switch {
	case income >= IncomeHigh:
		return ScoreExcellent
	case income >= IncomeAboveMedian:
		return ScoreGood
	case income >= IncomeMedian:
		return ScoreFair
	case income >= IncomeBelowMedian:
		return ScoreModerate
	default:
		return ScorePoor
	}
}

// LowIncomeScore scores the share of low-income households, lower is better.
func LowIncomeScore(pct float64) float64 {
	switch {
	case pct <= LowIncomeVeryFew:
		return ScoreExcellent
	case pct <= LowIncomeFew:
		return ScoreGood
	case pct <= LowIncomeAverage:
		return ScoreFair
	case pct <= LowIncomeMany:
		return ScoreModerate
	default:
		return ScorePoor
	}
}
