package geocoding

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"livability_backend/internal/contextreport/transport"
)

// searchNominatim is the fallback search against OpenStreetMap.
func (s *Service) searchNominatim(ctx context.Context, query string, limit int) ([]transport.ResolvedLocation, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("limit", strconv.Itoa(limit))
	params.Add("countrycodes", "nl")

	var rawResults []nominatimResponse
	if err := s.getJSON(ctx, s.nominatimURL+"?"+params.Encode(), &rawResults); err != nil {
		return nil, fmt.Errorf("nominatim search: %w", err)
	}

	results := make([]transport.ResolvedLocation, 0, len(rawResults))
	for _, raw := range rawResults {
		loc, ok := buildNominatimLocation(query, raw)
		if !ok {
			continue
		}
		results = append(results, loc)
	}
	return results, nil
}

func buildNominatimLocation(query string, raw nominatimResponse) (transport.ResolvedLocation, bool) {
	lat, err := strconv.ParseFloat(raw.Lat, 64)
	if err != nil {
		return transport.ResolvedLocation{}, false
	}
	lon, err := strconv.ParseFloat(raw.Lon, 64)
	if err != nil {
		return transport.ResolvedLocation{}, false
	}

	label := buildLabel(raw.Address)
	if label == "" {
		label = raw.DisplayName
	}

	return transport.ResolvedLocation{
		Query:            query,
		DisplayAddress:   label,
		Latitude:         lat,
		Longitude:        lon,
		MunicipalityName: optional(pickCity(raw.Address)),
		PostalCode:       optional(raw.Address.Postcode),
	}, true
}

func pickCity(address nominatimAddress) string {
	if address.City != "" {
		return address.City
	}
	if address.Town != "" {
		return address.Town
	}
	if address.Village != "" {
		return address.Village
	}
	if address.Municipality != "" {
		return address.Municipality
	}
	return address.Hamlet
}

// buildLabel formats "Street 1, 1012 JS City". It returns "" without a road.
func buildLabel(address nominatimAddress) string {
	if address.Road == "" {
		return ""
	}
	parts := []string{address.Road}
	if address.HouseNumber != "" {
		parts = append(parts, address.HouseNumber)
	}
	parts = append(parts, ",")
	if address.Postcode != "" {
		parts = append(parts, address.Postcode)
	}
	parts = append(parts, pickCity(address))

	label := strings.Join(parts, " ")
	label = strings.ReplaceAll(label, " ,", ",")
	return strings.TrimSpace(label)
}
