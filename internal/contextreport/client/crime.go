package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"livability_backend/internal/cachedfetch"
	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
	"livability_backend/platform/logger"
)

const (
	// Geregistreerde misdrijven; soort misdrijf, wijk, buurt
	cbsCrimeDataset = "47018NED"

	crimeCodeTotal      = "0.0.0"
	crimeCodeBurglary   = "1.1.1"
	crimePrefixTheft    = "1.2."
	crimePrefixViolence = "1.4."
)

// CrimeAttribution credits the CBS registered-crime open data set.
var CrimeAttribution = Attribution{
	Name:    "CBS Geregistreerde misdrijven (politie)",
	URL:     "https://opendata.cbs.nl/statline/#/CBS/nl/dataset/" + cbsCrimeDataset,
	License: "CC-BY 4.0",
}

type crimeRow struct {
	SoortMisdrijf    string      `json:"SoortMisdrijf"`
	WijkenEnBuurten  string      `json:"WijkenEnBuurten"`
	Perioden         string      `json:"Perioden"`
	Geregistreerd    *FlexNumber `json:"GeregistreerdeMisdrijven_1"`
	GeregistreerdPer *FlexNumber `json:"GeregistreerdeMisdrijvenPer1000Inw_3"`
}

type crimeResponse struct {
	Value []crimeRow `json:"value"`
}

// CrimeClient fetches registered crime figures from the CBS OData API.
type CrimeClient struct {
	baseURL    string
	httpClient *http.Client
	fetcher    *cachedfetch.Fetcher[sources.CrimeStats]
	log        *logger.Logger
}

// NewCrimeClient creates a client against the CBS OData base URL.
func NewCrimeClient(baseURL string, timeout time.Duration, fetcher *cachedfetch.Fetcher[sources.CrimeStats], log *logger.Logger) *CrimeClient {
	return &CrimeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		fetcher:    fetcher,
		log:        log,
	}
}

// Fetch returns crime figures for the most specific region code the location
// carries: buurt, then wijk, then gemeente.
func (c *CrimeClient) Fetch(ctx context.Context, loc transport.ResolvedLocation) *sources.CrimeStats {
	code := crimeRegionCode(loc)
	if code == "" {
		return nil
	}

	entry := c.fetcher.Fetch(ctx, code, func(ctx context.Context) (*sources.CrimeStats, error) {
		return c.GetRegion(ctx, code)
	})
	if entry == nil {
		return nil
	}

	stats := entry.Payload
	stats.RetrievedAt = entry.RetrievedAt
	stats.ExpiresAt = entry.ExpiresAt
	return &stats
}

func crimeRegionCode(loc transport.ResolvedLocation) string {
	for _, code := range []*string{loc.NeighborhoodCode, loc.DistrictCode, loc.MunicipalityCode} {
		if v := strings.TrimSpace(deref(code)); v != "" {
			return v
		}
	}
	return ""
}

// GetRegion fetches the latest reported period for one region code.
func (c *CrimeClient) GetRegion(ctx context.Context, code string) (*sources.CrimeStats, error) {
	// CBS OData uses padded region codes (e.g., "GM0363    " with trailing spaces to 10 chars)
	padded := fmt.Sprintf("%-10s", code)

	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("WijkenEnBuurten eq '%s'", padded))
	params.Set("$select", "SoortMisdrijf,WijkenEnBuurten,Perioden,GeregistreerdeMisdrijven_1,GeregistreerdeMisdrijvenPer1000Inw_3")

	reqURL := fmt.Sprintf("%s/%s/TypedDataSet?%s", c.baseURL, cbsCrimeDataset, params.Encode())

	var payload crimeResponse
	if err := getJSON(ctx, c.httpClient, reqURL, &payload); err != nil {
		return nil, fmt.Errorf("cbs crime %s: %w", code, err)
	}

	return aggregateCrime(code, payload.Value), nil
}

// aggregateCrime keeps the rows of the latest period and folds the crime
// categories into the figures the safety builder scores.
func aggregateCrime(code string, rows []crimeRow) *sources.CrimeStats {
	latest := ""
	for _, row := range rows {
		if p := strings.TrimSpace(row.Perioden); p > latest {
			latest = p
		}
	}
	if latest == "" {
		return nil
	}

	stats := &sources.CrimeStats{RegionCode: code, Period: latest}
	var theft, violence float64
	var hasTheft, hasViolence bool

	for _, row := range rows {
		if strings.TrimSpace(row.Perioden) != latest {
			continue
		}
		kind := strings.TrimSpace(row.SoortMisdrijf)
		rate := row.GeregistreerdPer.ToFloat64Ptr()

		switch {
		case kind == crimeCodeTotal:
			stats.TotalCrimes = row.Geregistreerd.ToFloat64Ptr()
			stats.TotalPer1000 = rate
		case kind == crimeCodeBurglary:
			stats.BurglaryPer1000 = rate
		case strings.HasPrefix(kind, crimePrefixTheft) && rate != nil:
			theft += *rate
			hasTheft = true
		case strings.HasPrefix(kind, crimePrefixViolence) && rate != nil:
			violence += *rate
			hasViolence = true
		}
	}

	if hasTheft {
		stats.TheftPer1000 = &theft
	}
	if hasViolence {
		stats.ViolentCrimePer1000 = &violence
	}

	if stats.TotalCrimes == nil && stats.TotalPer1000 == nil && stats.BurglaryPer1000 == nil &&
		stats.TheftPer1000 == nil && stats.ViolentCrimePer1000 == nil {
		return nil
	}
	return stats
}
