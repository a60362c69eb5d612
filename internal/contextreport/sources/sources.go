// Package sources defines the normalized payloads returned by the provider
// clients and the fan-out result that the metric builders consume.
package sources

import (
	"time"

	"livability_backend/internal/contextreport/transport"
)

// Provider names, used for attribution, logging and metric labels.
const (
	ProviderNeighborhood = "neighborhood"
	ProviderCrime        = "crime"
	ProviderAmenities    = "amenities"
	ProviderAirQuality   = "air_quality"
)

// NeighborhoodStats holds CBS "Kerncijfers wijken en buurten" for one region.
// Values suppressed by CBS for privacy reasons are nil.
type NeighborhoodStats struct {
	RegionCode       string `json:"regionCode"`
	RegionName       string `json:"regionName"`
	MunicipalityName string `json:"municipalityName"`

	Residents         *float64 `json:"residents"`
	Households        *float64 `json:"households"`
	AvgHouseholdSize  *float64 `json:"avgHouseholdSize"`
	PopulationDensity *float64 `json:"populationDensity"`
	Urbanity          *float64 `json:"urbanity"`

	Age0To15Pct     *float64 `json:"age0To15Pct"`
	Age15To25Pct    *float64 `json:"age15To25Pct"`
	Age25To45Pct    *float64 `json:"age25To45Pct"`
	Age45To65Pct    *float64 `json:"age45To65Pct"`
	Age65PlusPct    *float64 `json:"age65PlusPct"`
	WithChildrenPct *float64 `json:"withChildrenPct"`
	SinglePersonPct *float64 `json:"singlePersonPct"`

	HousingStock      *float64 `json:"housingStock"`
	OwnerOccupiedPct  *float64 `json:"ownerOccupiedPct"`
	RentalPct         *float64 `json:"rentalPct"`
	BuiltSince2000Pct *float64 `json:"builtSince2000Pct"`
	AvgWOZValue       *float64 `json:"avgWozValue"` // x 1000 EUR

	MedianIncome     *float64 `json:"medianIncome"` // x 1000 EUR per resident
	LowIncomePct     *float64 `json:"lowIncomePct"`
	MedianWealth     *float64 `json:"medianWealth"` // x 1000 EUR per household
	CarsPerHousehold *float64 `json:"carsPerHousehold"`

	RetrievedAt time.Time `json:"retrievedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// CrimeStats holds registered crime figures for the latest reported period.
type CrimeStats struct {
	RegionCode string `json:"regionCode"`
	Period     string `json:"period"`

	TotalCrimes         *float64 `json:"totalCrimes"`
	TotalPer1000        *float64 `json:"totalPer1000"`
	BurglaryPer1000     *float64 `json:"burglaryPer1000"`
	ViolentCrimePer1000 *float64 `json:"violentCrimePer1000"`
	TheftPer1000        *float64 `json:"theftPer1000"`

	RetrievedAt time.Time `json:"retrievedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AmenityType is one counted class of points of interest.
type AmenityType string

const (
	AmenitySupermarket  AmenityType = "supermarket"
	AmenityGP           AmenityType = "gp"
	AmenitySchool       AmenityType = "school"
	AmenityPharmacy     AmenityType = "pharmacy"
	AmenityChildcare    AmenityType = "childcare"
	AmenityHospitality  AmenityType = "hospitality"
	AmenityPark         AmenityType = "park"
	AmenitySports       AmenityType = "sports"
	AmenityTransitStop  AmenityType = "transit_stop"
	AmenityTrainStation AmenityType = "train_station"
)

// AmenityTypes lists every counted amenity type in display order.
var AmenityTypes = []AmenityType{
	AmenitySupermarket,
	AmenityGP,
	AmenitySchool,
	AmenityPharmacy,
	AmenityChildcare,
	AmenityHospitality,
	AmenityPark,
	AmenitySports,
	AmenityTransitStop,
	AmenityTrainStation,
}

// AmenityCount is the number of features of one type inside the radius and
// the distance to the nearest one.
type AmenityCount struct {
	Count         int      `json:"count"`
	NearestMeters *float64 `json:"nearestMeters"`
}

// AmenityStats is a points-of-interest snapshot around a coordinate.
type AmenityStats struct {
	Latitude     float64                      `json:"latitude"`
	Longitude    float64                      `json:"longitude"`
	RadiusMeters int                          `json:"radiusMeters"`
	Counts       map[AmenityType]AmenityCount `json:"counts"`

	RetrievedAt time.Time `json:"retrievedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Count returns the counted entry for one type; the zero value when absent.
func (a *AmenityStats) Count(t AmenityType) AmenityCount {
	if a == nil || a.Counts == nil {
		return AmenityCount{}
	}
	return a.Counts[t]
}

// Total sums the counts over every amenity type.
func (a *AmenityStats) Total() int {
	if a == nil {
		return 0
	}
	total := 0
	for _, c := range a.Counts {
		total += c.Count
	}
	return total
}

// AirQualitySnapshot holds the latest measurements of the nearest station.
// Concentrations are in µg/m³.
type AirQualitySnapshot struct {
	StationID             string    `json:"stationId"`
	StationName           string    `json:"stationName"`
	StationDistanceMeters float64   `json:"stationDistanceMeters"`
	MeasuredAt            time.Time `json:"measuredAt"`

	NO2  *float64 `json:"no2"`
	PM10 *float64 `json:"pm10"`
	PM25 *float64 `json:"pm25"`
	O3   *float64 `json:"o3"`
	LKI  *float64 `json:"lki"`

	RetrievedAt time.Time `json:"retrievedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ContextSourceData is the result of fanning out to every provider.
type ContextSourceData struct {
	Neighborhood *NeighborhoodStats
	Crime        *CrimeStats
	Amenities    *AmenityStats
	AirQuality   *AirQualitySnapshot
	Sources      []transport.SourceAttribution
	Warnings     []string
}
