package metrics

import (
	"fmt"

	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
)

// WarningEnvironmentUnavailable is recorded when no air quality snapshot is available.
const WarningEnvironmentUnavailable = "Air quality measurements were unavailable; the environment score could not be calculated."

// NO2 in µg/m³: WHO 2021 guideline and interim targets.
const (
	NO2Guideline = 10.0
	NO2Interim3  = 20.0
	NO2Interim2  = 30.0
	NO2Interim1  = 40.0
)

// PM10 in µg/m³.
const (
	PM10Guideline = 15.0
	PM10Interim4  = 20.0
	PM10Interim3  = 30.0
	PM10Interim2  = 45.0
)

// PM2.5 in µg/m³.
const (
	PM25Guideline = 5.0
	PM25Interim4  = 10.0
	PM25Interim3  = 15.0
	PM25Interim2  = 25.0
)

// Luchtkwaliteitsindex bands (1-11).
const (
	LKIGood         = 3.0
	LKIModerate     = 6.0
	LKIInsufficient = 8.0
	LKIBad          = 10.0
	ScoreLKIVeryBad = 10.0
)

// BuildEnvironment builds air quality metrics from the nearest station.
func BuildEnvironment(snapshot *sources.AirQualitySnapshot) ([]transport.ContextMetric, []string) {
	if snapshot == nil {
		return []transport.ContextMetric{}, []string{WarningEnvironmentUnavailable}
	}

	out := make([]transport.ContextMetric, 0, 6)
	out = appendScored(out, "no2", "Nitrogen dioxide (NO₂)", snapshot.NO2, unitMicrogramsM3, SourceLuchtmeetnet, NO2Score)
	out = appendScored(out, "pm10", "Particulate matter (PM10)", snapshot.PM10, unitMicrogramsM3, SourceLuchtmeetnet, PM10Score)
	out = appendScored(out, "pm25", "Fine particulate matter (PM2.5)", snapshot.PM25, unitMicrogramsM3, SourceLuchtmeetnet, PM25Score)
	out = appendScored(out, "lki", "Air quality index (LKI)", snapshot.LKI, unitIndex, SourceLuchtmeetnet, LKIScore)
	out = appendRaw(out, "o3", "Ozone (O₃)", snapshot.O3, unitMicrogramsM3, SourceLuchtmeetnet)

	distance := round(snapshot.StationDistanceMeters, 0)
	out = append(out, withNote(
		rawMetric("air_quality_station", "Measuring station distance", &distance, unitMeters, SourceLuchtmeetnet),
		fmt.Sprintf("Measured at %s (%s)", snapshot.StationName, snapshot.StationID),
	))
	return out, nil
}

// NO2Score scores a nitrogen dioxide concentration.
func NO2Score(v float64) float64 {
	return pollutantScore(v, NO2Guideline, NO2Interim3, NO2Interim2, NO2Interim1)
}

// PM10Score scores a PM10 concentration.
func PM10Score(v float64) float64 {
	return pollutantScore(v, PM10Guideline, PM10Interim4, PM10Interim3, PM10Interim2)
}

// PM25Score scores a PM2.5 concentration.
func PM25Score(v float64) float64 {
	return pollutantScore(v, PM25Guideline, PM25Interim4, PM25Interim3, PM25Interim2)
}

func pollutantScore(v, guideline, good, fair, moderate float64) float64 {
	switch {
	case v <= guideline:
		return ScoreExcellent
	case v <= good:
		return ScoreGood
	case v <= fair:
		return ScoreFair
	case v <= moderate:
		return ScoreModerate
	default:
		return ScorePoor
	}
}

// LKIScore scores the Dutch air quality index, lower is better.
func LKIScore(index float64) float64 {
	switch {
	case index <= LKIGood:
		return ScoreExcellent
	case index <= LKIModerate:
		return ScoreFair
	case index <= LKIInsufficient:
		return ScorePoor
	case index <= LKIBad:
		return ScoreIsolated
	default:
		return ScoreLKIVeryBad
	}
}
