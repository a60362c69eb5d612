package metrics

import (
	"fmt"

	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
)

// WarningAmenitiesUnavailable is recorded when the points-of-interest snapshot is missing.
const WarningAmenitiesUnavailable = "Points-of-interest data was unavailable; amenity metrics could not be calculated."

// Target ranges for everyday amenities, in kilometers.
const (
	SupermarketOptimalKm    = 1.0
	SupermarketAcceptableKm = 2.5
	GPOptimalKm             = 1.5
	GPAcceptableKm          = 3.0
	SchoolOptimalKm         = 1.0
	SchoolAcceptableKm      = 2.0
)

const metersPerKm = 1000.0

// distanceRule scores the distance to the nearest amenity of one type.
// Past floorMeters the score no longer changes, so an empty search within a
// radius at least that large scores floorScore.
type distanceRule struct {
	kind        sources.AmenityType
	key         string
	label       string
	score       func(meters float64) float64
	floorMeters float64
	floorScore  float64
}

func targetRangeRule(kind sources.AmenityType, key, label string, optimalKm, acceptableKm float64) distanceRule {
	return distanceRule{
		kind:  kind,
		key:   key,
		label: label,
		score: func(meters float64) float64 {
			return TargetRangeScore(meters/metersPerKm, optimalKm, acceptableKm)
		},
		floorMeters: acceptableKm * metersPerKm,
		floorScore:  ScorePoor,
	}
}

func proximityRule(kind sources.AmenityType, key, label string) distanceRule {
	return distanceRule{
		kind:        kind,
		key:         key,
		label:       label,
		score:       ProximityScore,
		floorMeters: ProximityDriveMeters,
		floorScore:  ScoreIsolated,
	}
}

var amenityRules = []distanceRule{
	targetRangeRule(sources.AmenitySupermarket, "supermarket_distance", "Nearest supermarket", SupermarketOptimalKm, SupermarketAcceptableKm),
	targetRangeRule(sources.AmenityGP, "gp_distance", "Nearest general practitioner", GPOptimalKm, GPAcceptableKm),
	targetRangeRule(sources.AmenitySchool, "school_distance", "Nearest school", SchoolOptimalKm, SchoolAcceptableKm),
	proximityRule(sources.AmenityPharmacy, "pharmacy_distance", "Nearest pharmacy"),
	proximityRule(sources.AmenityChildcare, "childcare_distance", "Nearest childcare"),
	proximityRule(sources.AmenityHospitality, "hospitality_distance", "Nearest restaurant or café"),
	proximityRule(sources.AmenityPark, "park_distance", "Nearest park"),
	proximityRule(sources.AmenitySports, "sports_distance", "Nearest sports facility"),
}

// BuildAmenities builds distance metrics per amenity type plus an overall volume score.
func BuildAmenities(stats *sources.AmenityStats) ([]transport.ContextMetric, []string) {
	if stats == nil {
		return []transport.ContextMetric{}, []string{WarningAmenitiesUnavailable}
	}

	out := make([]transport.ContextMetric, 0, len(amenityRules)+1)
	for _, rule := range amenityRules {
		out = append(out, rule.build(stats))
	}

	total := stats.Total()
	out = append(out, withNote(
		scoredMetric("amenity_volume", "Amenities nearby", float64(total), unitCount, SourceOSM, VolumeScore(total)),
		fmt.Sprintf("Counted within %d m", stats.RadiusMeters),
	))
	return out, nil
}

func (r distanceRule) build(stats *sources.AmenityStats) transport.ContextMetric {
	count := stats.Count(r.kind)
	if count.NearestMeters != nil {
		// Score the exact distance; only the displayed value is rounded.
		distance := *count.NearestMeters
		return withNote(
			scoredMetric(r.key, r.label, round(distance, 0), unitMeters, SourceOSM, r.score(distance)),
			fmt.Sprintf("%d within %d m", count.Count, stats.RadiusMeters),
		)
	}

	m := withNote(
		rawMetric(r.key, r.label, nil, unitMeters, SourceOSM),
		fmt.Sprintf("None within %d m", stats.RadiusMeters),
	)
	if float64(stats.RadiusMeters) >= r.floorMeters {
		s := r.floorScore
		m.Score = &s
	}
	return m
}
