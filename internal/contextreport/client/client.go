// Package client provides one HTTP client per external data provider.
// Every client reads through its cachedfetch.Fetcher and returns nil when the
// provider has no data or cannot be reached.
package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"livability_backend/internal/contextreport/transport"
)

const (
	defaultHTTPTimeout    = 10 * time.Second
	blockedValueThreshold = -99990 // CBS uses -99995, -99997, etc. for privacy-suppressed data
	maxErrorBodyBytes     = 512
	earthRadiusMeters     = 6371000
)

// Attribution describes a provider for the report's source list.
type Attribution struct {
	Name    string
	URL     string
	License string
}

// At returns the attribution stamped with a retrieval time.
func (a Attribution) At(retrievedAt time.Time) transport.SourceAttribution {
	return transport.SourceAttribution{
		Name:        a.Name,
		URL:         a.URL,
		License:     a.License,
		RetrievedAt: retrievedAt,
	}
}

// FlexNumber handles JSON values that can be either string or number.
type FlexNumber float64

func (f *FlexNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexNumber(num)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str == "" {
			*f = blockedValueThreshold - 1
			return nil
		}
		parsed, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		// ParseFloat accepts "NaN" and "Inf"; those are no measurement.
		if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			*f = blockedValueThreshold - 1
			return nil
		}
		*f = FlexNumber(parsed)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into FlexNumber", string(data))
}

// ToFloat64Ptr converts FlexNumber pointer to float64 pointer, filtering blocked values.
func (f *FlexNumber) ToFloat64Ptr() *float64 {
	if f == nil {
		return nil
	}
	if isBlocked(f) {
		return nil
	}
	val := float64(*f)
	return &val
}

func isBlocked(f *FlexNumber) bool {
	if f == nil {
		return true
	}
	val := float64(*f)
	return val <= blockedValueThreshold || math.IsNaN(val) || math.IsInf(val, 0)
}

// getJSON issues a GET request and decodes a 200 response into dest.
func getJSON(ctx context.Context, httpClient *http.Client, reqURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// haversineMeters returns the great-circle distance between two coordinates.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// LocationKey hashes coordinates rounded to three decimals (about 100 m)
// together with the radius, so nearby requests share one cache row.
func LocationKey(lat, lon float64, radiusMeters int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%.3f:%.3f:%d", lat, lon, radiusMeters)))
	return hex.EncodeToString(sum[:])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
