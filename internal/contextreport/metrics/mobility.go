package metrics

import (
	"fmt"

	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
)

// Mobility warnings, one per missing provider.
const (
	WarningMobilityCarsUnavailable    = "Neighborhood statistics were unavailable; car ownership is not included in the mobility score."
	WarningMobilityTransitUnavailable = "Points-of-interest data was unavailable; public transport access is not included in the mobility score."
)

var (
	transitStopRule  = proximityRule(sources.AmenityTransitStop, "transit_stop_distance", "Nearest public transport stop")
	trainStationRule = proximityRule(sources.AmenityTrainStation, "train_station_distance", "Nearest train station")
)

// BuildMobility combines car ownership from neighborhood statistics with
// public transport access from the points-of-interest snapshot.
func BuildMobility(neighborhood *sources.NeighborhoodStats, amenities *sources.AmenityStats) ([]transport.ContextMetric, []string) {
	out := make([]transport.ContextMetric, 0, 4)
	var warnings []string

	if neighborhood == nil {
		warnings = append(warnings, WarningMobilityCarsUnavailable)
	} else {
		out = appendScored(out, "cars_per_household", "Cars per household", neighborhood.CarsPerHousehold, unitCars, SourceCBS, CarDependencyScore)
	}

	if amenities == nil {
		warnings = append(warnings, WarningMobilityTransitUnavailable)
	} else {
		out = append(out, transitStopRule.build(amenities), trainStationRule.build(amenities))
		stops := amenities.Count(sources.AmenityTransitStop).Count
		out = append(out, withNote(
			rawMetric("transit_stops", "Public transport stops", ptr(float64(stops)), unitCount, SourceOSM),
			fmt.Sprintf("Counted within %d m", amenities.RadiusMeters),
		))
	}

	return out, warnings
}

func ptr(v float64) *float64 { return &v }
