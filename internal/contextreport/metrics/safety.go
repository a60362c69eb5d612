package metrics

import (
	"strings"

	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
)

// WarningSafetyUnavailable is recorded when crime statistics are missing.
const WarningSafetyUnavailable = "Crime statistics were unavailable; the safety score could not be calculated."

// Registered crimes per 1000 residents. NL average is about 45.
const (
	CrimeRateVeryLow  = 25.0
	CrimeRateLow      = 40.0
	CrimeRateAverage  = 60.0
	CrimeRateHigh     = 80.0
	CrimeRateVeryHigh = 100.0
)

// Residential burglaries per 1000 residents.
const (
	BurglaryVeryLow = 1.0
	BurglaryLow     = 2.0
	BurglaryAverage = 3.0
	BurglaryHigh    = 5.0
)

// Violent crimes per 1000 residents.
const (
	ViolenceVeryLow = 2.0
	ViolenceLow     = 4.0
	ViolenceAverage = 6.0
	ViolenceHigh    = 9.0
)

// BuildSafety builds crime-rate metrics.
func BuildSafety(stats *sources.CrimeStats) ([]transport.ContextMetric, []string) {
	if stats == nil {
		return []transport.ContextMetric{}, []string{WarningSafetyUnavailable}
	}

	note := periodNote(stats.Period)
	out := make([]transport.ContextMetric, 0, 5)
	out = appendScored(out, "crime_rate", "Registered crimes", stats.TotalPer1000, unitPer1000, SourceCBSPolitie, CrimeRateScore)
	out = appendScored(out, "burglary_rate", "Residential burglaries", stats.BurglaryPer1000, unitPer1000, SourceCBSPolitie, BurglaryScore)
	out = appendScored(out, "violent_crime_rate", "Violent crimes", stats.ViolentCrimePer1000, unitPer1000, SourceCBSPolitie, ViolenceScore)
	out = appendRaw(out, "theft_rate", "Thefts", stats.TheftPer1000, unitPer1000, SourceCBSPolitie)
	out = appendRaw(out, "total_crimes", "Total registered crimes", stats.TotalCrimes, unitCount, SourceCBSPolitie)

	for i := range out {
		out[i] = withNote(out[i], note)
	}
	return out, nil
}

// CrimeRateScore scores total registered crimes per 1000 residents.
func CrimeRateScore(per1000 float64) float64 {
	switch {
	case per1000 <= CrimeRateVeryLow:
		return ScoreExcellent
	case per1000 <= CrimeRateLow:
		return ScoreGood
	case per1000 <= CrimeRateAverage:
		return ScoreFair
	case per1000 <= CrimeRateHigh:
		return ScoreModerate
	case per1000 <= CrimeRateVeryHigh:
		return ScorePoor
	default:
		return ScoreIsolated
	}
}

// BurglaryScore scores residential burglaries per 1000 residents.
func BurglaryScore(per1000 float64) float64 {
	switch {
	case per1000 <= BurglaryVeryLow:
		return ScoreExcellent
	case per1000 <= BurglaryLow:
		return ScoreGood
	case per1000 <= BurglaryAverage:
		return ScoreFair
	case per1000 <= BurglaryHigh:
		return ScoreModerate
	default:
		return ScorePoor
	}
}

// ViolenceScore scores violent crimes per 1000 residents.
func ViolenceScore(per1000 float64) float64 {
	switch {
	case per1000 <= ViolenceVeryLow:
		return ScoreExcellent
	case per1000 <= ViolenceLow:
		return ScoreGood
	case per1000 <= ViolenceAverage:
		return ScoreFair
	case per1000 <= ViolenceHigh:
		return ScoreModerate
	default:
		return ScorePoor
	}
}

// periodNote turns a CBS period code such as "2024JJ00" into "Reference year 2024".
func periodNote(period string) string {
	period = strings.TrimSpace(period)
	if period == "" {
		return ""
	}
	if i := strings.Index(period, "JJ"); i > 0 {
		return "Reference year " + period[:i]
	}
	return "Reference period " + period
}
