// Package geocoding resolves free text and coordinates into locations that
// carry the CBS region codes the context report is keyed on.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"livability_backend/internal/contextreport/transport"
	"livability_backend/platform/apperr"
	"livability_backend/platform/logger"
	"livability_backend/platform/sanitize"
)

const (
	defaultTimeout   = 5 * time.Second
	userAgent        = "LivabilityBackend/1.0"
	suggestionLimit  = 5
	maxQueryLength   = 200
	errorBodyPreview = 256
)

// Service resolves addresses through the PDOK locatieserver and falls back to
// Nominatim when PDOK has no match or is unreachable.
type Service struct {
	pdokBaseURL  string
	nominatimURL string
	client       *http.Client
	log          *logger.Logger
}

// NewService creates a geocoding service. A zero timeout uses 5s.
func NewService(pdokBaseURL, nominatimURL string, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		pdokBaseURL:  strings.TrimRight(pdokBaseURL, "/"),
		nominatimURL: nominatimURL,
		client:       &http.Client{Timeout: timeout},
		log:          log,
	}
}

// Resolve returns the best match for a free-text query.
func (s *Service) Resolve(ctx context.Context, query string) (*transport.ResolvedLocation, error) {
	query, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}

	results, err := s.search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, apperr.NotFound("location not found").WithDetails(map[string]string{"query": query})
	}
	return &results[0], nil
}

// Suggest returns up to five candidate locations for an address lookup.
func (s *Service) Suggest(ctx context.Context, query string) ([]transport.ResolvedLocation, error) {
	query, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, query, suggestionLimit)
}

// ResolveCoordinates enriches a coordinate with the nearest address and its
// region codes. A failed lookup still returns the bare coordinate.
func (s *Service) ResolveCoordinates(ctx context.Context, lat, lon float64) *transport.ResolvedLocation {
	bare := &transport.ResolvedLocation{
		Query:          fmt.Sprintf("%.6f,%.6f", lat, lon),
		DisplayAddress: fmt.Sprintf("%.5f, %.5f", lat, lon),
		Latitude:       lat,
		Longitude:      lon,
	}

	loc, err := s.reversePDOK(ctx, lat, lon)
	if err != nil {
		s.log.WithContext(ctx).Warn("reverse geocoding failed", "error", err)
		return bare
	}
	if loc == nil {
		return bare
	}

	// keep the requested point; the address centroid only supplies the codes
	loc.Query = bare.Query
	loc.Latitude, loc.Longitude = lat, lon
	return loc
}

func (s *Service) search(ctx context.Context, query string, limit int) ([]transport.ResolvedLocation, error) {
	log := s.log.WithContext(ctx)

	results, pdokErr := s.searchPDOK(ctx, query, limit)
	if pdokErr == nil && len(results) > 0 {
		return results, nil
	}
	if pdokErr != nil {
		log.Warn("pdok search failed, falling back to nominatim", "error", pdokErr)
	}

	fallback, err := s.searchNominatim(ctx, query, limit)
	if err != nil {
		log.Error("nominatim search failed", "error", err)
		if pdokErr != nil {
			return nil, apperr.Unavailable("geocoding service unavailable", errors.Join(pdokErr, err))
		}
		return nil, nil
	}

	// Nominatim has no CBS codes; borrow them from the nearest PDOK address.
	for i := range fallback {
		s.enrichCodes(ctx, &fallback[i])
	}
	return fallback, nil
}

func (s *Service) enrichCodes(ctx context.Context, loc *transport.ResolvedLocation) {
	nearest, err := s.reversePDOK(ctx, loc.Latitude, loc.Longitude)
	if err != nil || nearest == nil {
		return
	}
	loc.MunicipalityCode = nearest.MunicipalityCode
	loc.DistrictCode = nearest.DistrictCode
	loc.DistrictName = nearest.DistrictName
	loc.NeighborhoodCode = nearest.NeighborhoodCode
	loc.NeighborhoodName = nearest.NeighborhoodName
	loc.RdX, loc.RdY = nearest.RdX, nearest.RdY
	if loc.PostalCode == nil {
		loc.PostalCode = nearest.PostalCode
	}
}

func normalizeQuery(query string) (string, error) {
	query = sanitize.Query(query)
	if query == "" {
		return "", apperr.Validation("query must not be empty")
	}
	if len(query) > maxQueryLength {
		return "", apperr.Validation("query is too long")
	}
	return query, nil
}

func (s *Service) getJSON(ctx context.Context, reqURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyPreview))
		return fmt.Errorf("upstream api error: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
