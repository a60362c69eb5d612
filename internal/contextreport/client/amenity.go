package client

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"livability_backend/internal/cachedfetch"
	"livability_backend/internal/contextreport/sources"
	"livability_backend/platform/logger"

	"github.com/serjvanilla/go-overpass"
)

const overpassMaxParallel = 2

// AmenityAttribution credits OpenStreetMap contributors.
var AmenityAttribution = Attribution{
	Name:    "OpenStreetMap (Overpass API)",
	URL:     "https://www.openstreetmap.org/copyright",
	License: "ODbL 1.0",
}

type tagFilter struct {
	key    string
	values []string
	// without excludes features carrying this tag=value pair.
	without [2]string
}

// amenityFilters maps each counted type to the OSM tags that identify it.
// Earlier entries win when a feature matches more than one type.
var amenityFilters = []struct {
	kind    sources.AmenityType
	filters []tagFilter
}{
	{sources.AmenitySupermarket, []tagFilter{{key: "shop", values: []string{"supermarket"}}}},
	{sources.AmenityGP, []tagFilter{{key: "amenity", values: []string{"doctors"}}, {key: "healthcare", values: []string{"general_practitioner"}}}},
	{sources.AmenitySchool, []tagFilter{{key: "amenity", values: []string{"school"}}}},
	{sources.AmenityPharmacy, []tagFilter{{key: "amenity", values: []string{"pharmacy"}}}},
	{sources.AmenityChildcare, []tagFilter{{key: "amenity", values: []string{"childcare", "kindergarten"}}}},
	{sources.AmenityHospitality, []tagFilter{{key: "amenity", values: []string{"restaurant", "cafe", "bar", "pub", "fast_food"}}}},
	{sources.AmenityPark, []tagFilter{{key: "leisure", values: []string{"park"}}}},
	{sources.AmenitySports, []tagFilter{{key: "leisure", values: []string{"sports_centre", "fitness_centre", "swimming_pool", "pitch"}}}},
	{sources.AmenityTrainStation, []tagFilter{{key: "railway", values: []string{"station"}, without: [2]string{"station", "subway"}}}},
	{sources.AmenityTransitStop, []tagFilter{
		{key: "highway", values: []string{"bus_stop"}},
		{key: "railway", values: []string{"tram_stop", "station"}},
	}},
}

// AmenityClient counts points of interest around a coordinate via Overpass.
type AmenityClient struct {
	overpass *overpass.Client
	fetcher  *cachedfetch.Fetcher[sources.AmenityStats]
	log      *logger.Logger
}

// NewAmenityClient creates a client against an Overpass interpreter endpoint.
func NewAmenityClient(endpoint string, timeout time.Duration, fetcher *cachedfetch.Fetcher[sources.AmenityStats], log *logger.Logger) *AmenityClient {
	httpClient := &http.Client{Timeout: timeout}
	if timeout <= 0 {
		httpClient.Timeout = defaultHTTPTimeout
	}
	client := overpass.NewWithSettings(endpoint, overpassMaxParallel, httpClient)
	return &AmenityClient{
		overpass: &client,
		fetcher:  fetcher,
		log:      log,
	}
}

// Fetch returns amenity counts within radiusMeters of the coordinate.
func (c *AmenityClient) Fetch(ctx context.Context, lat, lon float64, radiusMeters int) *sources.AmenityStats {
	key := LocationKey(lat, lon, radiusMeters)
	entry := c.fetcher.Fetch(ctx, key, func(ctx context.Context) (*sources.AmenityStats, error) {
		return c.GetAmenities(ctx, lat, lon, radiusMeters)
	})
	if entry == nil {
		return nil
	}

	stats := entry.Payload
	stats.RetrievedAt = entry.RetrievedAt
	stats.ExpiresAt = entry.ExpiresAt
	return &stats
}

// GetAmenities runs one Overpass query for every amenity type.
func (c *AmenityClient) GetAmenities(ctx context.Context, lat, lon float64, radiusMeters int) (*sources.AmenityStats, error) {
	result, err := c.query(ctx, buildAmenityQuery(lat, lon, radiusMeters))
	if err != nil {
		return nil, err
	}

	stats := &sources.AmenityStats{
		Latitude:     lat,
		Longitude:    lon,
		RadiusMeters: radiusMeters,
		Counts:       make(map[sources.AmenityType]sources.AmenityCount, len(sources.AmenityTypes)),
	}
	for _, t := range sources.AmenityTypes {
		stats.Counts[t] = sources.AmenityCount{}
	}

	record := func(tags map[string]string, elLat, elLon float64) {
		kind, ok := classifyAmenity(tags)
		if !ok {
			return
		}
		distance := haversineMeters(lat, lon, elLat, elLon)
		if distance > float64(radiusMeters) {
			return
		}
		count := stats.Counts[kind]
		count.Count++
		if count.NearestMeters == nil || distance < *count.NearestMeters {
			d := distance
			count.NearestMeters = &d
		}
		stats.Counts[kind] = count
	}

	for _, node := range sortedNodes(result.Nodes) {
		record(node.Tags, node.Lat, node.Lon)
	}
	for _, way := range result.Ways {
		if len(way.Nodes) == 0 {
			continue
		}
		var wLat, wLon float64
		var n int
		for _, node := range way.Nodes {
			if node == nil {
				continue
			}
			wLat += node.Lat
			wLon += node.Lon
			n++
		}
		if n == 0 {
			continue
		}
		record(way.Tags, wLat/float64(n), wLon/float64(n))
	}

	return stats, nil
}

// query runs an Overpass query. The library has no context support, so the
// call runs in a goroutine and is abandoned when ctx is done.
func (c *AmenityClient) query(ctx context.Context, q string) (*overpass.Result, error) {
	type outcome struct {
		result overpass.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := c.overpass.Query(q)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("overpass query: %w", ctx.Err())
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("overpass query: %w", out.err)
		}
		return &out.result, nil
	}
}

func buildAmenityQuery(lat, lon float64, radiusMeters int) string {
	around := fmt.Sprintf("(around:%d,%.6f,%.6f)", radiusMeters, lat, lon)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	seen := map[string]bool{}
	for _, group := range amenityFilters {
		for _, f := range group.filters {
			selector := fmt.Sprintf(`["%s"~"^(%s)$"]`, f.key, strings.Join(f.values, "|"))
			if seen[selector] {
				continue
			}
			seen[selector] = true
			fmt.Fprintf(&b, "  node%s%s;\n  way%s%s;\n", selector, around, selector, around)
		}
	}
	b.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return b.String()
}

func classifyAmenity(tags map[string]string) (sources.AmenityType, bool) {
	if len(tags) == 0 {
		return "", false
	}
	for _, group := range amenityFilters {
		for _, f := range group.filters {
			if f.matches(tags) {
				return group.kind, true
			}
		}
	}
	return "", false
}

func (f tagFilter) matches(tags map[string]string) bool {
	value, ok := tags[f.key]
	if !ok {
		return false
	}
	if f.without[0] != "" && tags[f.without[0]] == f.without[1] {
		return false
	}
	for _, v := range f.values {
		if v == value {
			return true
		}
	}
	return false
}

// sortedNodes returns nodes ordered by id so results do not depend on map order.
func sortedNodes(nodes map[int64]*overpass.Node) []*overpass.Node {
	out := make([]*overpass.Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
