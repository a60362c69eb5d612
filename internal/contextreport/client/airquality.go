package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"livability_backend/internal/cachedfetch"
	"livability_backend/internal/contextreport/sources"
	"livability_backend/platform/logger"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	stationListTTL           = 24 * time.Hour
	stationRefreshTimeout    = time.Minute
	maxStationDistanceMeters = 30000
	stationDetailParallelism = 8
	maxStationPages          = 20

	formulaNO2  = "NO2"
	formulaPM10 = "PM10"
	formulaPM25 = "PM25"
	formulaO3   = "O3"
)

// AirQualityAttribution credits the RIVM Luchtmeetnet network.
var AirQualityAttribution = Attribution{
	Name:    "Luchtmeetnet (RIVM)",
	URL:     "https://www.luchtmeetnet.nl",
	License: "CC-BY 4.0",
}

// Station is one Luchtmeetnet measuring station.
type Station struct {
	Number    string
	Location  string
	Latitude  float64
	Longitude float64
}

type stationPage struct {
	Pagination struct {
		LastPage    int `json:"last_page"`
		CurrentPage int `json:"current_page"`
	} `json:"pagination"`
	Data []struct {
		Number   string `json:"number"`
		Location string `json:"location"`
	} `json:"data"`
}

type stationDetail struct {
	Data struct {
		Location string `json:"location"`
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // lon, lat
		} `json:"geometry"`
	} `json:"data"`
}

type measurementPage struct {
	Data []struct {
		Formula           string      `json:"formula"`
		Value             *FlexNumber `json:"value"`
		TimestampMeasured time.Time   `json:"timestamp_measured"`
	} `json:"data"`
}

// AirQualityClient fetches the latest measurements of the nearest station.
type AirQualityClient struct {
	baseURL    string
	httpClient *http.Client
	fetcher    *cachedfetch.Fetcher[sources.AirQualitySnapshot]
	clock      clockwork.Clock
	log        *logger.Logger

	stationsGroup     singleflight.Group
	stationsMu        sync.RWMutex
	stations          []Station
	stationsExpiresAt time.Time
}

// NewAirQualityClient creates a client against the Luchtmeetnet open API.
func NewAirQualityClient(baseURL string, timeout time.Duration, fetcher *cachedfetch.Fetcher[sources.AirQualitySnapshot], clock clockwork.Clock, log *logger.Logger) *AirQualityClient {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AirQualityClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		fetcher:    fetcher,
		clock:      clock,
		log:        log,
	}
}

// Fetch returns the latest snapshot of the station nearest to the coordinate.
func (c *AirQualityClient) Fetch(ctx context.Context, lat, lon float64) *sources.AirQualitySnapshot {
	stations, err := c.Stations(ctx)
	if err != nil {
		c.log.ProviderFailure(sources.ProviderAirQuality, "stations", err)
		return nil
	}

	station, distance, ok := nearestStation(stations, lat, lon)
	if !ok || distance > maxStationDistanceMeters {
		c.log.Debug("no air quality station in range", "lat", lat, "lon", lon)
		return nil
	}

	entry := c.fetcher.Fetch(ctx, station.Number, func(ctx context.Context) (*sources.AirQualitySnapshot, error) {
		return c.GetSnapshot(ctx, station)
	})
	if entry == nil {
		return nil
	}

	snapshot := entry.Payload
	snapshot.StationDistanceMeters = distance
	snapshot.RetrievedAt = entry.RetrievedAt
	snapshot.ExpiresAt = entry.ExpiresAt
	return &snapshot
}

// Stations returns every station with coordinates. The list is fetched once
// per stationListTTL and kept in-process; concurrent callers share one
// refresh. When a refresh fails the previous list is served.
func (c *AirQualityClient) Stations(ctx context.Context) ([]Station, error) {
	if stations := c.getStationsFromCache(false); stations != nil {
		return stations, nil
	}

	ch := c.stationsGroup.DoChan("stations", func() (any, error) {
		// The refresh outlives any single caller.
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stationRefreshTimeout)
		defer cancel()

		stations, err := c.fetchStations(refreshCtx)
		if err != nil {
			return nil, err
		}

		c.stationsMu.Lock()
		c.stations = stations
		c.stationsExpiresAt = c.clock.Now().Add(stationListTTL)
		c.stationsMu.Unlock()
		return stations, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if stale := c.getStationsFromCache(true); stale != nil {
				c.log.Warn("station list refresh failed, serving previous list", "error", res.Err)
				return stale, nil
			}
			return nil, res.Err
		}
		stations, _ := res.Val.([]Station)
		return stations, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *AirQualityClient) getStationsFromCache(allowStale bool) []Station {
	c.stationsMu.RLock()
	defer c.stationsMu.RUnlock()

	if c.stations == nil {
		return nil
	}
	if !allowStale && !c.clock.Now().Before(c.stationsExpiresAt) {
		return nil
	}
	return c.stations
}

func (c *AirQualityClient) fetchStations(ctx context.Context) ([]Station, error) {
	var listed []Station
	for page := 1; page <= maxStationPages; page++ {
		var payload stationPage
		reqURL := fmt.Sprintf("%s/stations?page=%d", c.baseURL, page)
		if err := getJSON(ctx, c.httpClient, reqURL, &payload); err != nil {
			return nil, fmt.Errorf("luchtmeetnet stations page %d: %w", page, err)
		}
		for _, s := range payload.Data {
			listed = append(listed, Station{Number: s.Number, Location: s.Location})
		}
		if payload.Pagination.LastPage <= page {
			break
		}
	}

	// The list endpoint carries no coordinates; resolve them per station.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stationDetailParallelism)
	for i := range listed {
		g.Go(func() error {
			var detail stationDetail
			reqURL := fmt.Sprintf("%s/stations/%s", c.baseURL, url.PathEscape(listed[i].Number))
			if err := getJSON(gctx, c.httpClient, reqURL, &detail); err != nil {
				return fmt.Errorf("luchtmeetnet station %s: %w", listed[i].Number, err)
			}
			if coords := detail.Data.Geometry.Coordinates; len(coords) >= 2 {
				listed[i].Longitude = coords[0]
				listed[i].Latitude = coords[1]
			}
			if detail.Data.Location != "" {
				listed[i].Location = detail.Data.Location
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stations := listed[:0]
	for _, s := range listed {
		if s.Latitude != 0 || s.Longitude != 0 {
			stations = append(stations, s)
		}
	}
	return stations, nil
}

func nearestStation(stations []Station, lat, lon float64) (Station, float64, bool) {
	var (
		best     Station
		bestDist float64
		found    bool
	)
	for _, s := range stations {
		d := haversineMeters(lat, lon, s.Latitude, s.Longitude)
		if !found || d < bestDist {
			best, bestDist, found = s, d, true
		}
	}
	return best, bestDist, found
}

// GetSnapshot fetches the most recent value per pollutant and the LKI index.
func (c *AirQualityClient) GetSnapshot(ctx context.Context, station Station) (*sources.AirQualitySnapshot, error) {
	params := url.Values{}
	params.Set("station_number", station.Number)
	params.Set("order_by", "timestamp_measured")
	params.Set("order_direction", "desc")

	var measurements measurementPage
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/measurements?"+params.Encode(), &measurements); err != nil {
		return nil, fmt.Errorf("luchtmeetnet measurements %s: %w", station.Number, err)
	}

	snapshot := &sources.AirQualitySnapshot{
		StationID:   station.Number,
		StationName: station.Location,
	}

	for _, m := range measurements.Data {
		value := m.Value.ToFloat64Ptr()
		if value == nil {
			continue
		}
		var target **float64
		switch strings.ToUpper(m.Formula) {
		case formulaNO2:
			target = &snapshot.NO2
		case formulaPM10:
			target = &snapshot.PM10
		case formulaPM25:
			target = &snapshot.PM25
		case formulaO3:
			target = &snapshot.O3
		default:
			continue
		}
		// Rows are newest first; keep the first value seen per formula.
		if *target == nil {
			*target = value
			if m.TimestampMeasured.After(snapshot.MeasuredAt) {
				snapshot.MeasuredAt = m.TimestampMeasured
			}
		}
	}

	var lki measurementPage
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/lki?"+params.Encode(), &lki); err != nil {
		c.log.Debug("luchtmeetnet lki unavailable", "station", station.Number, "error", err)
	} else if len(lki.Data) > 0 {
		snapshot.LKI = lki.Data[0].Value.ToFloat64Ptr()
	}

	if snapshot.NO2 == nil && snapshot.PM10 == nil && snapshot.PM25 == nil && snapshot.O3 == nil && snapshot.LKI == nil {
		return nil, nil
	}
	return snapshot, nil
}
