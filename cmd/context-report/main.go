// Command context-report builds one context report and prints it as JSON.
//
//	context-report -q "Dam 1, Amsterdam"
//	context-report -lat 52.0907 -lon 5.1214 -radius 1500
//
// It reads the same environment as the API; CACHE_BACKEND=memory skips the
// shared cache entirely.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"livability_backend/internal/contextreport"
	"livability_backend/internal/contextreport/transport"
	"livability_backend/internal/geocoding"
	"livability_backend/platform/config"
	"livability_backend/platform/db"
	"livability_backend/platform/logger"
)

func main() {
	query := flag.String("q", "", "free-text address")
	lat := flag.Float64("lat", 0, "latitude (WGS84)")
	lon := flag.Float64("lon", 0, "longitude (WGS84)")
	radius := flag.Int("radius", 0, "amenity search radius in meters (default 1000)")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	if err := run(*query, *lat, *lon, *radius, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "context-report:", err)
		os.Exit(1)
	}
}

func run(query string, lat, lon float64, radius int, verbose bool) error {
	coordsSet := isFlagSet("lat") && isFlagSet("lon")
	if query == "" && !coordsSet {
		return fmt.Errorf("either -q or both -lat and -lon are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.Discard()
	if verbose {
		log = logger.New(cfg.Env)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	geocoder := geocoding.NewService(cfg.GetPDOKBaseURL(), cfg.GetNominatimURL(), cfg.GetProviderTimeout(), log)
	deps := contextreport.Dependencies{Locator: geocoder, Logger: log}

	switch cfg.CacheBackend {
	case config.CacheBackendPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		deps.DB = pool
	case config.CacheBackendRedis:
		client, err := db.NewRedisClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = client.Close() }()
		deps.Redis = client
	}

	module, err := contextreport.NewModule(cfg, deps)
	if err != nil {
		return err
	}

	var loc *transport.ResolvedLocation
	if coordsSet {
		loc = geocoder.ResolveCoordinates(ctx, lat, lon)
		if query != "" {
			loc.Query = query
		}
	} else {
		loc, err = geocoder.Resolve(ctx, query)
		if err != nil {
			return err
		}
	}

	report, err := module.Builder().Build(ctx, *loc, radius)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
