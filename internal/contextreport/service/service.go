// Package service builds context reports: it fans out to the provider
// clients, runs the category builders and scores the result.
package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"livability_backend/internal/contextreport/client"
	"livability_backend/internal/contextreport/metrics"
	"livability_backend/internal/contextreport/scoring"
	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
	"livability_backend/platform/apperr"
	"livability_backend/platform/logger"
	"livability_backend/platform/observability"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Search radius bounds in meters.
const (
	MinRadiusMeters     = 100
	MaxRadiusMeters     = 5000
	DefaultRadiusMeters = 1000
)

// WarningInsufficientData is recorded when no category could be scored.
const WarningInsufficientData = "Insufficient data to calculate a composite score."

// NeighborhoodSource provides neighborhood statistics for a location.
type NeighborhoodSource interface {
	Fetch(ctx context.Context, loc transport.ResolvedLocation) *sources.NeighborhoodStats
}

// CrimeSource provides crime statistics for a location.
type CrimeSource interface {
	Fetch(ctx context.Context, loc transport.ResolvedLocation) *sources.CrimeStats
}

// AmenitySource provides a points-of-interest snapshot around a coordinate.
type AmenitySource interface {
	Fetch(ctx context.Context, lat, lon float64, radiusMeters int) *sources.AmenityStats
}

// AirQualitySource provides the latest air quality near a coordinate.
type AirQualitySource interface {
	Fetch(ctx context.Context, lat, lon float64) *sources.AirQualitySnapshot
}

// Clients groups the four provider clients.
type Clients struct {
	Neighborhood NeighborhoodSource
	Crime        CrimeSource
	Amenities    AmenitySource
	AirQuality   AirQualitySource
}

// Builder assembles context reports.
type Builder struct {
	clients Clients
	policy  scoring.Policy
	timeout time.Duration
	clock   clockwork.Clock
	log     *logger.Logger
	metrics *observability.Metrics
}

// New creates a report builder. A zero timeout leaves the caller's deadline
// as the only bound on the fan-out.
func New(clients Clients, policy scoring.Policy, timeout time.Duration, clock clockwork.Clock, log *logger.Logger, m *observability.Metrics) *Builder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{
		clients: clients,
		policy:  policy,
		timeout: timeout,
		clock:   clock,
		log:     log,
		metrics: m,
	}
}

// Build produces the report for loc. Provider failures degrade the report;
// only invalid coordinates are returned as an error.
func (b *Builder) Build(ctx context.Context, loc transport.ResolvedLocation, radiusMeters int) (*transport.ContextReportDto, error) {
	start := b.clock.Now()

	if err := ValidateCoordinates(loc.Latitude, loc.Longitude); err != nil {
		return nil, err
	}

	radius, radiusWarning := NormalizeRadius(radiusMeters)
	data := b.FetchSources(ctx, loc, radius)
	if radiusWarning != "" {
		data.Warnings = append([]string{radiusWarning}, data.Warnings...)
	}

	report := Assemble(loc, radius, data, b.policy)

	b.observe(report, b.clock.Since(start))
	b.log.WithContext(ctx).Info("context report built",
		"radius_m", radius,
		"categories", len(report.CategoryScores),
		"warnings", len(report.Warnings),
	)
	return report, nil
}

// FetchSources fans out to every provider concurrently and waits for all of
// them. A provider that fails or is cancelled contributes nothing.
func (b *Builder) FetchSources(ctx context.Context, loc transport.ResolvedLocation, radiusMeters int) *sources.ContextSourceData {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	data := &sources.ContextSourceData{}

	// Every goroutine returns nil: one provider must never cancel the others.
	var g errgroup.Group
	if b.clients.Neighborhood != nil {
		g.Go(func() error {
			data.Neighborhood = b.clients.Neighborhood.Fetch(ctx, loc)
			return nil
		})
	}
	if b.clients.Crime != nil {
		g.Go(func() error {
			data.Crime = b.clients.Crime.Fetch(ctx, loc)
			return nil
		})
	}
	if b.clients.Amenities != nil {
		g.Go(func() error {
			data.Amenities = b.clients.Amenities.Fetch(ctx, loc.Latitude, loc.Longitude, radiusMeters)
			return nil
		})
	}
	if b.clients.AirQuality != nil {
		g.Go(func() error {
			data.AirQuality = b.clients.AirQuality.Fetch(ctx, loc.Latitude, loc.Longitude)
			return nil
		})
	}
	_ = g.Wait()

	if data.Neighborhood != nil {
		data.Sources = append(data.Sources, client.NeighborhoodAttribution.At(data.Neighborhood.RetrievedAt))
	}
	if data.Crime != nil {
		data.Sources = append(data.Sources, client.CrimeAttribution.At(data.Crime.RetrievedAt))
	}
	if data.Amenities != nil {
		data.Sources = append(data.Sources, client.AmenityAttribution.At(data.Amenities.RetrievedAt))
	}
	if data.AirQuality != nil {
		data.Sources = append(data.Sources, client.AirQualityAttribution.At(data.AirQuality.RetrievedAt))
	}
	return data
}

// Assemble runs the category builders over data and scores the result.
func Assemble(loc transport.ResolvedLocation, radiusMeters int, data *sources.ContextSourceData, policy scoring.Policy) *transport.ContextReportDto {
	warnings := append([]string{}, data.Warnings...)
	collect := func(list []transport.ContextMetric, w []string) []transport.ContextMetric {
		warnings = append(warnings, w...)
		if list == nil {
			return []transport.ContextMetric{}
		}
		return list
	}

	report := &transport.ContextReportDto{
		Location:            loc,
		SocialMetrics:       collect(metrics.BuildSocial(data.Neighborhood)),
		CrimeMetrics:        collect(metrics.BuildSafety(data.Crime)),
		DemographicsMetrics: collect(metrics.BuildDemographics(data.Neighborhood)),
		HousingMetrics:      collect(metrics.BuildHousing(data.Neighborhood)),
		MobilityMetrics:     collect(metrics.BuildMobility(data.Neighborhood, data.Amenities)),
		AmenitiesMetrics:    collect(metrics.BuildAmenities(data.Amenities)),
		EnvironmentMetrics:  collect(metrics.BuildEnvironment(data.AirQuality)),
		SearchRadiusMeters:  radiusMeters,
		Sources:             append([]transport.SourceAttribution{}, data.Sources...),
	}

	report.CategoryScores = scoring.CategoryScores(report)
	report.CompositeScore = policy.CompositeScore(report.CategoryScores)
	if report.CompositeScore == nil {
		warnings = append(warnings, WarningInsufficientData)
	}
	report.Warnings = warnings
	return report
}

// NormalizeRadius applies the default to non-positive radii and clamps the
// rest to [MinRadiusMeters, MaxRadiusMeters]. Clamping yields a warning.
func NormalizeRadius(radiusMeters int) (int, string) {
	switch {
	case radiusMeters <= 0:
		return DefaultRadiusMeters, ""
	case radiusMeters < MinRadiusMeters:
		return MinRadiusMeters, fmt.Sprintf("Search radius %d m was raised to the minimum of %d m.", radiusMeters, MinRadiusMeters)
	case radiusMeters > MaxRadiusMeters:
		return MaxRadiusMeters, fmt.Sprintf("Search radius %d m was lowered to the maximum of %d m.", radiusMeters, MaxRadiusMeters)
	default:
		return radiusMeters, ""
	}
}

// ValidateCoordinates rejects non-finite or out-of-range coordinates.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return apperr.Validation("coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 {
		return apperr.Validation("latitude must be between -90 and 90").WithDetails(map[string]float64{"latitude": lat})
	}
	if lon < -180 || lon > 180 {
		return apperr.Validation("longitude must be between -180 and 180").WithDetails(map[string]float64{"longitude": lon})
	}
	return nil
}

func (b *Builder) observe(report *transport.ContextReportDto, elapsed time.Duration) {
	if b.metrics == nil {
		return
	}
	completeness := "partial"
	switch len(report.CategoryScores) {
	case 0:
		completeness = "empty"
	case len(transport.Categories):
		completeness = "full"
	}
	b.metrics.ReportsBuilt.WithLabelValues(completeness).Inc()
	b.metrics.ReportDuration.Observe(elapsed.Seconds())
}
