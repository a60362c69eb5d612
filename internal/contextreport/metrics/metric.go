// Package metrics turns raw provider payloads into report metrics, one pure
// builder per category. Builders never invent values: a missing payload
// yields an empty list and a warning, a missing field yields no metric.
//
// Scored metrics share one 0-100 scale. Each builder keeps its thresholds as
// named constants next to the ladder that uses them.
package metrics

import (
	"math"

	"livability_backend/internal/contextreport/transport"
)

// Score levels shared by every ladder.
const (
	ScoreExcellent = 100.0
	ScoreGood      = 85.0
	ScoreFair      = 70.0
	ScoreModerate  = 55.0
	ScorePoor      = 40.0
	ScoreIsolated  = 25.0
	ScoreMin       = 0.0
	ScoreMax       = 100.0
)

// Attribution strings carried in ContextMetric.Source.
const (
	SourceCBS          = "CBS"
	SourceCBSPolitie   = "CBS/Politie"
	SourceOSM          = "OpenStreetMap"
	SourceLuchtmeetnet = "Luchtmeetnet"
)

// Units.
const (
	unitCount        = "count"
	unitPercent      = "%"
	unitPeople       = "persons"
	unitPerKm2       = "per km²"
	unitThousandEUR  = "k€"
	unitPer1000      = "per 1000 residents"
	unitMeters       = "m"
	unitMicrogramsM3 = "µg/m³"
	unitIndex        = "index"
	unitCars         = "cars per household"
)

// Amenity proximity ladder (distance in meters).
const (
	ProximityVeryWalkableMeters = 250.0
	ProximityWalkableMeters     = 500.0
	ProximityBikeableMeters     = 1000.0
	ProximityShortDriveMeters   = 1500.0
	ProximityDriveMeters        = 2000.0
)

// Amenity volume saturation: each counted amenity adds this many points.
const VolumePointsPerAmenity = 5.0

// Car dependency ladder (cars per household).
const (
	CarsVeryLow = 0.7
	CarsLow     = 1.0
	CarsAverage = 1.3
	CarsHigh    = 1.6
)

// ProximityScore scores the distance to the nearest amenity.
func ProximityScore(distanceMeters float64) float64 {
	switch {
	case distanceMeters <= ProximityVeryWalkableMeters:
		return ScoreExcellent // very walkable
	case distanceMeters <= ProximityWalkableMeters:
		return ScoreGood // walkable
	case distanceMeters <= ProximityBikeableMeters:
		return ScoreFair // bikeable
	case distanceMeters <= ProximityShortDriveMeters:
		return ScoreModerate // short drive
	case distanceMeters <= ProximityDriveMeters:
		return ScorePoor // drive
	default:
		return ScoreIsolated
	}
}

// TargetRangeScore compares a distance against an optimal and an acceptable limit.
func TargetRangeScore(distanceKm, optimalKm, acceptableKm float64) float64 {
	switch {
	case distanceKm <= optimalKm:
		return ScoreExcellent
	case distanceKm <= acceptableKm:
		return ScoreFair
	default:
		return ScorePoor
	}
}

// VolumeScore saturates linearly with the number of counted amenities.
func VolumeScore(totalAmenities int) float64 {
	return ClampScore(float64(totalAmenities) * VolumePointsPerAmenity)
}

// CarDependencyScore treats fewer cars per household as better access.
func CarDependencyScore(carsPerHousehold float64) float64 {
	switch {
	case carsPerHousehold <= CarsVeryLow:
		return ScoreExcellent
	case carsPerHousehold <= CarsLow:
		return ScoreGood
	case carsPerHousehold <= CarsAverage:
		return ScoreFair
	case carsPerHousehold <= CarsHigh:
		return ScoreModerate
	default:
		return ScorePoor
	}
}

// ClampScore bounds a score to [0,100]. NaN clamps to 0.
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return ScoreMin
	}
	return math.Max(ScoreMin, math.Min(ScoreMax, score))
}

func rawMetric(key, label string, value *float64, unit, source string) transport.ContextMetric {
	m := transport.ContextMetric{
		Key:    key,
		Label:  label,
		Source: source,
	}
	if value != nil {
		v := *value
		m.Value = &v
	}
	if unit != "" {
		u := unit
		m.Unit = &u
	}
	return m
}

func scoredMetric(key, label string, value float64, unit, source string, score float64) transport.ContextMetric {
	m := rawMetric(key, label, &value, unit, source)
	s := ClampScore(score)
	m.Score = &s
	return m
}

func withNote(m transport.ContextMetric, note string) transport.ContextMetric {
	if note != "" {
		m.Note = &note
	}
	return m
}

// appendRaw appends an unscored metric when the value is known.
func appendRaw(list []transport.ContextMetric, key, label string, value *float64, unit, source string) []transport.ContextMetric {
	if value == nil {
		return list
	}
	return append(list, rawMetric(key, label, value, unit, source))
}

// appendScored appends a scored metric when the value is known.
func appendScored(list []transport.ContextMetric, key, label string, value *float64, unit, source string, score func(float64) float64) []transport.ContextMetric {
	if value == nil {
		return list
	}
	return append(list, scoredMetric(key, label, *value, unit, source, score(*value)))
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
