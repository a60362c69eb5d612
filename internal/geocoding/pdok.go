package geocoding

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"livability_backend/internal/contextreport/transport"
)

const (
	pdokFreePath    = "/bzk/locatieserver/search/v3_1/free"
	pdokReversePath = "/bzk/locatieserver/search/v3_1/reverse"
	pdokFields      = "type,weergavenaam,centroide_ll,centroide_rd,gemeentecode,gemeentenaam,wijkcode,wijknaam,buurtcode,buurtnaam,postcode"
)

// searchPDOK runs a free-text search restricted to addresses.
func (s *Service) searchPDOK(ctx context.Context, query string, rows int) ([]transport.ResolvedLocation, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("fq", "type:adres")
	params.Set("rows", strconv.Itoa(rows))
	params.Set("fl", pdokFields)

	var payload pdokResponse
	if err := s.getJSON(ctx, s.pdokBaseURL+pdokFreePath+"?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("pdok search: %w", err)
	}

	results := make([]transport.ResolvedLocation, 0, len(payload.Response.Docs))
	for _, doc := range payload.Response.Docs {
		loc, ok := mapPDOKDoc(query, doc)
		if !ok {
			continue
		}
		results = append(results, loc)
	}
	return results, nil
}

// reversePDOK finds the nearest address to a coordinate.
func (s *Service) reversePDOK(ctx context.Context, lat, lon float64) (*transport.ResolvedLocation, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("type", "adres")
	params.Set("rows", "1")
	params.Set("fl", pdokFields)

	var payload pdokResponse
	if err := s.getJSON(ctx, s.pdokBaseURL+pdokReversePath+"?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("pdok reverse: %w", err)
	}
	if len(payload.Response.Docs) == 0 {
		return nil, nil
	}

	loc, ok := mapPDOKDoc("", payload.Response.Docs[0])
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func mapPDOKDoc(query string, doc pdokDoc) (transport.ResolvedLocation, bool) {
	lon, lat, ok := parsePoint(doc.CentroideLL)
	if !ok {
		return transport.ResolvedLocation{}, false
	}

	loc := transport.ResolvedLocation{
		Query:            query,
		DisplayAddress:   doc.Weergavenaam,
		Latitude:         lat,
		Longitude:        lon,
		MunicipalityName: optional(doc.Gemeentenaam),
		DistrictCode:     optional(doc.Wijkcode),
		DistrictName:     optional(doc.Wijknaam),
		NeighborhoodCode: optional(doc.Buurtcode),
		NeighborhoodName: optional(doc.Buurtnaam),
		PostalCode:       optional(doc.Postcode),
	}
	if doc.Gemeentecode != "" {
		loc.MunicipalityCode = optional(municipalityCode(doc.Gemeentecode))
	}
	if x, y, ok := parsePoint(doc.CentroideRD); ok {
		loc.RdX, loc.RdY = &x, &y
	}
	return loc, true
}

// municipalityCode turns the locatieserver "0363" form into the CBS "GM0363" form.
func municipalityCode(code string) string {
	if strings.HasPrefix(code, "GM") {
		return code
	}
	return "GM" + code
}

// parsePoint parses a WKT "POINT(x y)".
func parsePoint(wkt string) (float64, float64, bool) {
	inner, ok := strings.CutPrefix(strings.TrimSpace(wkt), "POINT(")
	if !ok {
		return 0, 0, false
	}
	inner = strings.TrimSuffix(inner, ")")
	parts := strings.Fields(inner)
	if len(parts) != 2 {
		return 0, 0, false
	}
	x, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	y, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return x, y, true
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
