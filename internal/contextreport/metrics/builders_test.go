package metrics

import (
	"math"
	"strings"
	"testing"

	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
)

func f(v float64) *float64 { return &v }

func fullNeighborhood() *sources.NeighborhoodStats {
	return &sources.NeighborhoodStats{
		RegionCode:        "BU03630001",
		Residents:         f(1050),
		Households:        f(735),
		AvgHouseholdSize:  f(1.4),
		PopulationDensity: f(21000),
		Urbanity:          f(1),
		Age0To15Pct:       f(6),
		Age15To25Pct:      f(18),
		Age25To45Pct:      f(44),
		Age45To65Pct:      f(22),
		Age65PlusPct:      f(10),
		WithChildrenPct:   f(9),
		SinglePersonPct:   f(68),
		HousingStock:      f(810),
		OwnerOccupiedPct:  f(22),
		RentalPct:         f(78),
		BuiltSince2000Pct: f(12),
		AvgWOZValue:       f(512),
		MedianIncome:      f(31.2),
		LowIncomePct:      f(13),
		MedianWealth:      f(18),
		CarsPerHousehold:  f(0.3),
	}
}

func fullAmenities() *sources.AmenityStats {
	return &sources.AmenityStats{
		RadiusMeters: 1000,
		Counts: map[sources.AmenityType]sources.AmenityCount{
			sources.AmenitySupermarket:  {Count: 3, NearestMeters: f(180)},
			sources.AmenityGP:           {Count: 1, NearestMeters: f(1700)},
			sources.AmenitySchool:       {Count: 2, NearestMeters: f(640)},
			sources.AmenityHospitality:  {Count: 14, NearestMeters: f(40)},
			sources.AmenityTransitStop:  {Count: 6, NearestMeters: f(120)},
			sources.AmenityTrainStation: {},
		},
	}
}

func findMetric(t *testing.T, list []transport.ContextMetric, key string) transport.ContextMetric {
	t.Helper()
	for _, m := range list {
		if m.Key == key {
			return m
		}
	}
	t.Fatalf("expected metric %q in %d metrics", key, len(list))
	return transport.ContextMetric{}
}

func assertScore(t *testing.T, m transport.ContextMetric, want float64) {
	t.Helper()
	if m.Score == nil {
		t.Fatalf("expected %s to be scored %v, got nil", m.Key, want)
	}
	if *m.Score != want {
		t.Fatalf("expected %s score %v, got %v", m.Key, want, *m.Score)
	}
}

func assertUnscored(t *testing.T, m transport.ContextMetric) {
	t.Helper()
	if m.Score != nil {
		t.Fatalf("expected %s to be unscored, got %v", m.Key, *m.Score)
	}
}

func TestBuilders_MissingSourceYieldsWarningAndEmptyList(t *testing.T) {
	builders := map[string]func() ([]transport.ContextMetric, []string){
		"social":       func() ([]transport.ContextMetric, []string) { return BuildSocial(nil) },
		"safety":       func() ([]transport.ContextMetric, []string) { return BuildSafety(nil) },
		"demographics": func() ([]transport.ContextMetric, []string) { return BuildDemographics(nil) },
		"housing":      func() ([]transport.ContextMetric, []string) { return BuildHousing(nil) },
		"amenities":    func() ([]transport.ContextMetric, []string) { return BuildAmenities(nil) },
		"environment":  func() ([]transport.ContextMetric, []string) { return BuildEnvironment(nil) },
	}
	for name, build := range builders {
		list, warnings := build()
		if list == nil || len(list) != 0 {
			t.Fatalf("%s: expected an empty, non-nil list, got %v", name, list)
		}
		if len(warnings) != 1 {
			t.Fatalf("%s: expected one warning, got %v", name, warnings)
		}
	}

	_, warnings := BuildSafety(nil)
	if !strings.Contains(strings.ToLower(warnings[0]), "crime") || !strings.Contains(strings.ToLower(warnings[0]), "safety") {
		t.Fatalf("expected safety warning to mention crime and safety, got %q", warnings[0])
	}
}

func TestBuildMobility_WarnsPerMissingProvider(t *testing.T) {
	list, warnings := BuildMobility(nil, nil)
	if len(list) != 0 || len(warnings) != 2 {
		t.Fatalf("expected no metrics and two warnings, got %d metrics and %v", len(list), warnings)
	}

	list, warnings = BuildMobility(fullNeighborhood(), nil)
	if len(warnings) != 1 || warnings[0] != WarningMobilityTransitUnavailable {
		t.Fatalf("expected transit warning, got %v", warnings)
	}
	assertScore(t, findMetric(t, list, "cars_per_household"), 100)
}

func TestBuildMobility_TransitMetrics(t *testing.T) {
	list, warnings := BuildMobility(fullNeighborhood(), fullAmenities())
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	assertScore(t, findMetric(t, list, "transit_stop_distance"), 100)

	// No station within 1000 m: distance is unknown and the radius is below the
	// ladder floor, so no score can be defended.
	station := findMetric(t, list, "train_station_distance")
	assertUnscored(t, station)
	if station.Value != nil {
		t.Fatalf("expected nil value, got %v", *station.Value)
	}

	stops := findMetric(t, list, "transit_stops")
	assertUnscored(t, stops)
	if *stops.Value != 6 {
		t.Fatalf("expected 6 stops, got %v", *stops.Value)
	}
}

func TestBuildAmenities(t *testing.T) {
	list, warnings := BuildAmenities(fullAmenities())
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(list) != len(amenityRules)+1 {
		t.Fatalf("expected %d metrics, got %d", len(amenityRules)+1, len(list))
	}

	assertScore(t, findMetric(t, list, "supermarket_distance"), 100)
	assertScore(t, findMetric(t, list, "gp_distance"), 70)
	assertScore(t, findMetric(t, list, "school_distance"), 100)
	assertScore(t, findMetric(t, list, "hospitality_distance"), 100)
	assertUnscored(t, findMetric(t, list, "park_distance"))
	// 3 + 1 + 2 + 14 + 6 = 26 amenities saturate the volume score.
	assertScore(t, findMetric(t, list, "amenity_volume"), 100)
}

func TestBuildAmenities_BoundariesUseUnroundedDistance(t *testing.T) {
	stats := &sources.AmenityStats{
		RadiusMeters: 2500,
		Counts: map[sources.AmenityType]sources.AmenityCount{
			sources.AmenityPharmacy:    {Count: 1, NearestMeters: f(250.4)},
			sources.AmenityChildcare:   {Count: 1, NearestMeters: f(500.3)},
			sources.AmenityPark:        {Count: 1, NearestMeters: f(1000.2)},
			sources.AmenitySupermarket: {Count: 1, NearestMeters: f(1000.2)},
			sources.AmenityGP:          {Count: 1, NearestMeters: f(1500.3)},
			sources.AmenitySchool:      {Count: 1, NearestMeters: f(2000.4)},
		},
	}
	list, _ := BuildAmenities(stats)

	pharmacy := findMetric(t, list, "pharmacy_distance")
	assertScore(t, pharmacy, ScoreGood)
	if pharmacy.Value == nil || *pharmacy.Value != 250 {
		t.Fatalf("expected displayed distance 250, got %v", pharmacy.Value)
	}
	assertScore(t, findMetric(t, list, "childcare_distance"), ScoreFair)
	assertScore(t, findMetric(t, list, "park_distance"), ScoreModerate)
	assertScore(t, findMetric(t, list, "supermarket_distance"), ScoreFair)
	assertScore(t, findMetric(t, list, "gp_distance"), ScoreFair)
	assertScore(t, findMetric(t, list, "school_distance"), ScorePoor)
}

func TestBuildAmenities_EmptyLargeRadiusScoresFloor(t *testing.T) {
	stats := &sources.AmenityStats{RadiusMeters: 3000, Counts: map[sources.AmenityType]sources.AmenityCount{}}
	list, _ := BuildAmenities(stats)

	assertScore(t, findMetric(t, list, "supermarket_distance"), ScorePoor)
	assertScore(t, findMetric(t, list, "gp_distance"), ScorePoor)
	assertScore(t, findMetric(t, list, "park_distance"), ScoreIsolated)
	assertScore(t, findMetric(t, list, "amenity_volume"), 0)
}

func TestBuildSocial(t *testing.T) {
	list, warnings := BuildSocial(fullNeighborhood())
	if warnings != nil {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	assertScore(t, findMetric(t, list, "median_income"), 85)
	assertScore(t, findMetric(t, list, "low_income_households"), 55)
	assertUnscored(t, findMetric(t, list, "median_wealth"))
	assertUnscored(t, findMetric(t, list, "urbanity"))
}

func TestBuildSocial_SkipsSuppressedFields(t *testing.T) {
	list, _ := BuildSocial(&sources.NeighborhoodStats{MedianIncome: f(22)})
	if len(list) != 1 {
		t.Fatalf("expected only the known metric, got %d", len(list))
	}
	assertScore(t, list[0], 55)
}

func TestBuildSafety(t *testing.T) {
	stats := &sources.CrimeStats{
		Period:              "2024JJ00",
		TotalCrimes:         f(85000),
		TotalPer1000:        f(91.4),
		BurglaryPer1000:     f(3.2),
		ViolentCrimePer1000: f(2.5),
		TheftPer1000:        f(7.5),
	}
	list, _ := BuildSafety(stats)

	assertScore(t, findMetric(t, list, "crime_rate"), 40)
	assertScore(t, findMetric(t, list, "burglary_rate"), 55)
	assertScore(t, findMetric(t, list, "violent_crime_rate"), 85)
	assertUnscored(t, findMetric(t, list, "total_crimes"))

	note := findMetric(t, list, "crime_rate").Note
	if note == nil || *note != "Reference year 2024" {
		t.Fatalf("expected reference year note, got %v", note)
	}
}

func TestBuildHousingAndDemographics(t *testing.T) {
	housing, _ := BuildHousing(fullNeighborhood())
	assertScore(t, findMetric(t, housing, "owner_occupied"), 40)
	assertScore(t, findMetric(t, housing, "built_since_2000"), 55)
	assertUnscored(t, findMetric(t, housing, "avg_woz_value"))

	demographics, _ := BuildDemographics(fullNeighborhood())
	assertScore(t, findMetric(t, demographics, "population_density"), 40)
	assertUnscored(t, findMetric(t, demographics, "residents"))
	if len(demographics) != 10 {
		t.Fatalf("expected 10 demographic metrics, got %d", len(demographics))
	}
}

func TestBuildEnvironment(t *testing.T) {
	snapshot := &sources.AirQualitySnapshot{
		StationID:             "NL49014",
		StationName:           "Amsterdam-Vondelpark",
		StationDistanceMeters: 2321.7,
		NO2:                   f(18.2),
		PM10:                  f(14),
		PM25:                  f(7.1),
		O3:                    f(39.5),
		LKI:                   f(3),
	}
	list, _ := BuildEnvironment(snapshot)

	assertScore(t, findMetric(t, list, "no2"), 85)
	assertScore(t, findMetric(t, list, "pm10"), 100)
	assertScore(t, findMetric(t, list, "pm25"), 85)
	assertScore(t, findMetric(t, list, "lki"), 100)
	assertUnscored(t, findMetric(t, list, "o3"))

	station := findMetric(t, list, "air_quality_station")
	if *station.Value != 2322 {
		t.Fatalf("expected rounded distance 2322, got %v", *station.Value)
	}
	if station.Note == nil || !strings.Contains(*station.Note, "NL49014") {
		t.Fatalf("expected station note, got %v", station.Note)
	}
}

func TestBuilders_ScoresStayInBounds(t *testing.T) {
	extreme := []float64{-1e9, -1, 0, 0.5, 1, 50, 99.9, 1e9}
	for _, v := range extreme {
		n := &sources.NeighborhoodStats{
			MedianIncome: f(v), LowIncomePct: f(v), PopulationDensity: f(v),
			OwnerOccupiedPct: f(v), BuiltSince2000Pct: f(v), CarsPerHousehold: f(v),
		}
		c := &sources.CrimeStats{TotalPer1000: f(v), BurglaryPer1000: f(v), ViolentCrimePer1000: f(v)}
		a := &sources.AirQualitySnapshot{NO2: f(v), PM10: f(v), PM25: f(v), LKI: f(v)}
		am := &sources.AmenityStats{RadiusMeters: 1000, Counts: map[sources.AmenityType]sources.AmenityCount{
			sources.AmenitySupermarket: {Count: int(math.Min(v, 1e6)), NearestMeters: f(math.Abs(v))},
		}}

		var all []transport.ContextMetric
		for _, list := range [][]transport.ContextMetric{
			first(BuildSocial(n)), first(BuildSafety(c)), first(BuildDemographics(n)),
			first(BuildHousing(n)), first(BuildMobility(n, am)), first(BuildAmenities(am)),
			first(BuildEnvironment(a)),
		} {
			all = append(all, list...)
		}
		for _, m := range all {
			if m.Score != nil && (*m.Score < 0 || *m.Score > 100) {
				t.Fatalf("value %v: metric %s scored %v outside [0,100]", v, m.Key, *m.Score)
			}
		}
	}
}

func first(list []transport.ContextMetric, _ []string) []transport.ContextMetric { return list }
