// Package contextreport provides the context report bounded context module.
package contextreport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"livability_backend/internal/cachedfetch"
	"livability_backend/internal/cachestore"
	"livability_backend/internal/contextreport/client"
	"livability_backend/internal/contextreport/handler"
	"livability_backend/internal/contextreport/scoring"
	"livability_backend/internal/contextreport/service"
	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
	apphttp "livability_backend/internal/http"
	"livability_backend/internal/scheduler"
	"livability_backend/platform/apperr"
	"livability_backend/platform/config"
	"livability_backend/platform/logger"
	"livability_backend/platform/observability"
	"livability_backend/platform/validator"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Config combines the config interfaces the module reads.
type Config interface {
	config.CacheConfig
	config.ProviderConfig
	config.ScoringConfig
}

// Dependencies holds the infrastructure the module is composed from. DB is
// required for the postgres cache backend, Redis for the redis backend.
type Dependencies struct {
	DB        cachestore.Querier
	Redis     redis.Cmdable
	Locator   handler.Locator
	Warmer    scheduler.WarmEnqueuer
	Queue     string
	Validator *validator.Validator
	Logger    *logger.Logger
	Metrics   *observability.Metrics
	Clock     clockwork.Clock
}

// Module is the context report bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	builder *service.Builder
	locator handler.Locator
	log     *logger.Logger
}

// NewModule wires the cache tiers, provider clients, report builder and handler.
func NewModule(cfg Config, deps Dependencies) (*Module, error) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}

	policy, err := scoring.LoadPolicy(cfg.GetScoringPolicyFile())
	if err != nil {
		return nil, err
	}

	clients, err := newClients(cfg, deps)
	if err != nil {
		return nil, err
	}

	builder := service.New(clients, policy, cfg.GetReportTimeout(), deps.Clock, deps.Logger, deps.Metrics)
	h := handler.New(builder, deps.Locator, deps.Warmer, deps.Queue, deps.Validator)

	return &Module{
		handler: h,
		builder: builder,
		locator: deps.Locator,
		log:     deps.Logger,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "contextreport"
}

// Builder returns the report builder for direct use (CLI, worker).
func (m *Module) Builder() *service.Builder {
	return m.builder
}

// RegisterRoutes mounts the context routes on the rate-limited group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Limited.Group("/context"))
}

// WarmContext resolves the payload location and fetches every provider so the
// next report is served from cache.
func (m *Module) WarmContext(ctx context.Context, payload scheduler.WarmContextPayload) error {
	loc, err := m.resolve(ctx, payload.Query, payload.Latitude, payload.Longitude)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindValidation) {
			m.log.WithContext(ctx).Warn("skipping warm-up for unresolvable location", "query", payload.Query, "error", err)
			return nil
		}
		return err
	}

	if err := service.ValidateCoordinates(loc.Latitude, loc.Longitude); err != nil {
		m.log.WithContext(ctx).Warn("skipping warm-up for invalid coordinates", "error", err)
		return nil
	}
	radius, _ := service.NormalizeRadius(payload.RadiusMeters)
	data := m.builder.FetchSources(ctx, *loc, radius)

	m.log.WithContext(ctx).Info("context cache warmed",
		"location", loc.DisplayAddress,
		"radius_m", radius,
		"sources", len(data.Sources),
	)
	return nil
}

func (m *Module) resolve(ctx context.Context, query string, lat, lon *float64) (*transport.ResolvedLocation, error) {
	if lat != nil && lon != nil {
		return m.locator.ResolveCoordinates(ctx, *lat, *lon), nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validation("query or coordinates required")
	}
	return m.locator.Resolve(ctx, query)
}

func newClients(cfg Config, deps Dependencies) (service.Clients, error) {
	timeout := cfg.GetProviderTimeout()

	neighborhood, err := newFetcher[sources.NeighborhoodStats](cfg, deps, sources.ProviderNeighborhood, cachestore.TableNeighborhood, cfg.GetNeighborhoodCacheTTL())
	if err != nil {
		return service.Clients{}, err
	}
	crime, err := newFetcher[sources.CrimeStats](cfg, deps, sources.ProviderCrime, cachestore.TableCrime, cfg.GetCrimeCacheTTL())
	if err != nil {
		return service.Clients{}, err
	}
	amenities, err := newFetcher[sources.AmenityStats](cfg, deps, sources.ProviderAmenities, cachestore.TableAmenity, cfg.GetAmenityCacheTTL())
	if err != nil {
		return service.Clients{}, err
	}
	airQuality, err := newFetcher[sources.AirQualitySnapshot](cfg, deps, sources.ProviderAirQuality, cachestore.TableAirQuality, cfg.GetAirQualityCacheTTL())
	if err != nil {
		return service.Clients{}, err
	}

	return service.Clients{
		Neighborhood: client.NewNeighborhoodClient(cfg.GetPDOKBaseURL(), timeout, neighborhood, deps.Logger),
		Crime:        client.NewCrimeClient(cfg.GetCBSODataBaseURL(), timeout, crime, deps.Logger),
		Amenities:    client.NewAmenityClient(cfg.GetOverpassURL(), timeout, amenities, deps.Logger),
		AirQuality:   client.NewAirQualityClient(cfg.GetLuchtmeetnetBaseURL(), timeout, airQuality, deps.Clock, deps.Logger),
	}, nil
}

func newFetcher[T any](cfg Config, deps Dependencies, source, table string, ttl time.Duration) (*cachedfetch.Fetcher[T], error) {
	memory, persistent, err := newTiers[T](cfg, deps, table)
	if err != nil {
		return nil, err
	}
	opts := cachedfetch.Options{Source: source, TTL: ttl, LoadTimeout: cfg.GetProviderTimeout()}
	return cachedfetch.New(opts, memory, persistent, deps.Clock, deps.Logger, deps.Metrics), nil
}

func newTiers[T any](cfg Config, deps Dependencies, table string) (cachestore.Store[T], cachestore.Store[T], error) {
	switch cfg.GetCacheBackend() {
	case config.CacheBackendPostgres:
		if deps.DB == nil {
			return nil, nil, fmt.Errorf("cache backend %q needs a database", config.CacheBackendPostgres)
		}
		persistent, err := cachestore.NewPostgres[T](deps.DB, table, deps.Clock)
		if err != nil {
			return nil, nil, err
		}
		return cachestore.NewMemory[T](deps.Clock, cfg.GetMemoryCacheTTL()), persistent, nil
	case config.CacheBackendRedis:
		if deps.Redis == nil {
			return nil, nil, fmt.Errorf("cache backend %q needs a redis client", config.CacheBackendRedis)
		}
		persistent, err := cachestore.NewRedis[T](deps.Redis, table, deps.Clock)
		if err != nil {
			return nil, nil, err
		}
		return cachestore.NewMemory[T](deps.Clock, cfg.GetMemoryCacheTTL()), persistent, nil
	case config.CacheBackendMemory:
		// the in-process tier is the only one, so it keeps entries until they expire
		return cachestore.NewMemory[T](deps.Clock, 0), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q", cfg.GetCacheBackend())
	}
}

var (
	_ apphttp.Module          = (*Module)(nil)
	_ scheduler.ContextWarmer = (*Module)(nil)
)
