// Package transport holds the wire contract of the context report.
package transport

import "time"

// Category identifies one of the seven metric groupings of a report.
type Category string

const (
	CategorySocial       Category = "Social"
	CategorySafety       Category = "Safety"
	CategoryDemographics Category = "Demographics"
	CategoryHousing      Category = "Housing"
	CategoryMobility     Category = "Mobility"
	CategoryAmenities    Category = "Amenities"
	CategoryEnvironment  Category = "Environment"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategorySocial,
	CategorySafety,
	CategoryDemographics,
	CategoryHousing,
	CategoryMobility,
	CategoryAmenities,
	CategoryEnvironment,
}

// ResolvedLocation is the subject of a report as produced by the geocoder.
type ResolvedLocation struct {
	Query            string   `json:"query"`
	DisplayAddress   string   `json:"displayAddress"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	RdX              *float64 `json:"rdX,omitempty"`
	RdY              *float64 `json:"rdY,omitempty"`
	MunicipalityCode *string  `json:"municipalityCode,omitempty"`
	MunicipalityName *string  `json:"municipalityName,omitempty"`
	DistrictCode     *string  `json:"districtCode,omitempty"`
	DistrictName     *string  `json:"districtName,omitempty"`
	NeighborhoodCode *string  `json:"neighborhoodCode,omitempty"`
	NeighborhoodName *string  `json:"neighborhoodName,omitempty"`
	PostalCode       *string  `json:"postalCode,omitempty"`
}

// ContextMetric is one named data point, optionally carrying a 0-100 score.
type ContextMetric struct {
	Key    string   `json:"key"`
	Label  string   `json:"label"`
	Value  *float64 `json:"value"`
	Unit   *string  `json:"unit"`
	Score  *float64 `json:"score"`
	Source string   `json:"source"`
	Note   *string  `json:"note"`
}

// SourceAttribution credits one provider that contributed to a report.
type SourceAttribution struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	License     string    `json:"license"`
	RetrievedAt time.Time `json:"retrievedAt"`
}

// ContextReportDto is the response body of a report request.
type ContextReportDto struct {
	Location            ResolvedLocation     `json:"location"`
	SocialMetrics       []ContextMetric      `json:"socialMetrics"`
	CrimeMetrics        []ContextMetric      `json:"crimeMetrics"`
	DemographicsMetrics []ContextMetric      `json:"demographicsMetrics"`
	HousingMetrics      []ContextMetric      `json:"housingMetrics"`
	MobilityMetrics     []ContextMetric      `json:"mobilityMetrics"`
	AmenitiesMetrics    []ContextMetric      `json:"amenitiesMetrics"`
	EnvironmentMetrics  []ContextMetric      `json:"environmentMetrics"`
	CompositeScore      *float64             `json:"compositeScore"`
	CategoryScores      map[Category]float64 `json:"categoryScores"`
	SearchRadiusMeters  int                  `json:"searchRadiusMeters"`
	Sources             []SourceAttribution  `json:"sources"`
	Warnings            []string             `json:"warnings"`
}

// MetricsFor returns the metric list for one category.
func (r *ContextReportDto) MetricsFor(category Category) []ContextMetric {
	switch category {
	case CategorySocial:
		return r.SocialMetrics
	case CategorySafety:
		return r.CrimeMetrics
	case CategoryDemographics:
		return r.DemographicsMetrics
	case CategoryHousing:
		return r.HousingMetrics
	case CategoryMobility:
		return r.MobilityMetrics
	case CategoryAmenities:
		return r.AmenitiesMetrics
	case CategoryEnvironment:
		return r.EnvironmentMetrics
	default:
		return nil
	}
}

// ReportRequest holds the query parameters of a report request. Either Query
// or both coordinates are required; coordinates win when both are given.
type ReportRequest struct {
	Query        string   `form:"q" validate:"omitempty,max=200"`
	Latitude     *float64 `form:"lat" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude    *float64 `form:"lon" validate:"required_with=Latitude,omitempty,longitude"`
	RadiusMeters int      `form:"radius" validate:"min=0,max=50000"`
}

// WarmRequest asks the scheduler to pre-fetch provider data for a location.
type WarmRequest struct {
	Query        string   `json:"query" validate:"omitempty,max=200"`
	Latitude     *float64 `json:"latitude" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude    *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,longitude"`
	RadiusMeters int      `json:"radiusMeters" validate:"min=0,max=50000"`
}

// WarmResponse acknowledges an enqueued warm-up.
type WarmResponse struct {
	TaskID string `json:"taskId"`
	Queue  string `json:"queue"`
}
