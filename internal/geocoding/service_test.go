package geocoding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"livability_backend/platform/apperr"
	"livability_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func damDoc() map[string]any {
	return map[string]any{
		"type":         "adres",
		"weergavenaam": "Dam 1, 1012JS Amsterdam",
		"centroide_ll": "POINT(4.89260 52.37310)",
		"centroide_rd": "POINT(121357 487420)",
		"gemeentecode": "0363",
		"gemeentenaam": "Amsterdam",
		"wijkcode":     "WK036300",
		"wijknaam":     "Burgwallen-Oude Zijde",
		"buurtcode":    "BU03630000",
		"buurtnaam":    "Kop Zeedijk",
		"postcode":     "1012JS",
	}
}

func solr(docs ...map[string]any) map[string]any {
	if docs == nil {
		docs = []map[string]any{}
	}
	return map[string]any{"response": map[string]any{"numFound": len(docs), "docs": docs}}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

type fakeUpstream struct {
	freeDocs      []map[string]any
	freeStatus    int
	reverseDocs   []map[string]any
	nominatim     []map[string]any
	nominatimHits int
}

func (f *fakeUpstream) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pdokFreePath, func(w http.ResponseWriter, r *http.Request) {
		if f.freeStatus != 0 {
			w.WriteHeader(f.freeStatus)
			return
		}
		assert.Equal(t, "type:adres", r.URL.Query().Get("fq"))
		writeJSON(t, w, solr(f.freeDocs...))
	})
	mux.HandleFunc(pdokReversePath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, solr(f.reverseDocs...))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		f.nominatimHits++
		assert.Equal(t, "nl", r.URL.Query().Get("countrycodes"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		writeJSON(t, w, f.nominatim)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(srv *httptest.Server) *Service {
	return NewService(srv.URL, srv.URL+"/search", time.Second, logger.Discard())
}

func TestResolve_PDOKMatch(t *testing.T) {
	up := &fakeUpstream{freeDocs: []map[string]any{damDoc()}}
	svc := newTestService(up.server(t))

	loc, err := svc.Resolve(context.Background(), "  Dam 1 Amsterdam ")
	require.NoError(t, err)

	assert.Equal(t, "Dam 1 Amsterdam", loc.Query)
	assert.Equal(t, "Dam 1, 1012JS Amsterdam", loc.DisplayAddress)
	assert.InDelta(t, 52.3731, loc.Latitude, 1e-6)
	assert.InDelta(t, 4.8926, loc.Longitude, 1e-6)
	require.NotNil(t, loc.MunicipalityCode)
	assert.Equal(t, "GM0363", *loc.MunicipalityCode)
	require.NotNil(t, loc.NeighborhoodCode)
	assert.Equal(t, "BU03630000", *loc.NeighborhoodCode)
	require.NotNil(t, loc.RdX)
	assert.InDelta(t, 121357, *loc.RdX, 1e-6)
	assert.Zero(t, up.nominatimHits)
}

func TestResolve_FallsBackToNominatimWithCodes(t *testing.T) {
	up := &fakeUpstream{
		reverseDocs: []map[string]any{damDoc()},
		nominatim: []map[string]any{{
			"display_name": "Dam, Amsterdam, Noord-Holland, Nederland",
			"lat":          "52.3729",
			"lon":          "4.8930",
			"address": map[string]any{
				"road":     "Dam",
				"postcode": "1012 JS",
				"city":     "Amsterdam",
			},
		}},
	}
	svc := newTestService(up.server(t))

	loc, err := svc.Resolve(context.Background(), "De Dam")
	require.NoError(t, err)

	assert.Equal(t, 1, up.nominatimHits)
	assert.Equal(t, "Dam, 1012 JS Amsterdam", loc.DisplayAddress)
	assert.InDelta(t, 52.3729, loc.Latitude, 1e-6)
	require.NotNil(t, loc.NeighborhoodCode)
	assert.Equal(t, "BU03630000", *loc.NeighborhoodCode)
	require.NotNil(t, loc.PostalCode)
	assert.Equal(t, "1012 JS", *loc.PostalCode)
}

func TestResolve_NoMatchIsNotFound(t *testing.T) {
	up := &fakeUpstream{nominatim: []map[string]any{}}
	svc := newTestService(up.server(t))

	_, err := svc.Resolve(context.Background(), "Xyzzy 999")
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func TestResolve_BothUpstreamsDownIsUnavailable(t *testing.T) {
	up := &fakeUpstream{freeStatus: http.StatusServiceUnavailable}
	srv := up.server(t)
	svc := NewService(srv.URL, "http://127.0.0.1:1/search", time.Second, logger.Discard())

	_, err := svc.Resolve(context.Background(), "Dam 1")
	assert.True(t, apperr.Is(err, apperr.KindUnavailable), "got %v", err)
}

func TestResolve_EmptyQueryIsValidation(t *testing.T) {
	svc := NewService("http://127.0.0.1:1", "http://127.0.0.1:1/search", time.Second, logger.Discard())

	_, err := svc.Resolve(context.Background(), "   ")
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestResolveCoordinates_KeepsRequestedPoint(t *testing.T) {
	up := &fakeUpstream{reverseDocs: []map[string]any{damDoc()}}
	svc := newTestService(up.server(t))

	loc := svc.ResolveCoordinates(context.Background(), 52.3735, 4.8931)
	assert.InDelta(t, 52.3735, loc.Latitude, 1e-9)
	assert.InDelta(t, 4.8931, loc.Longitude, 1e-9)
	require.NotNil(t, loc.DistrictCode)
	assert.Equal(t, "WK036300", *loc.DistrictCode)
}

func TestResolveCoordinates_UpstreamFailureReturnsBarePoint(t *testing.T) {
	svc := NewService("http://127.0.0.1:1", "http://127.0.0.1:1/search", time.Second, logger.Discard())

	loc := svc.ResolveCoordinates(context.Background(), 52.1, 5.1)
	require.NotNil(t, loc)
	assert.InDelta(t, 52.1, loc.Latitude, 1e-9)
	assert.Nil(t, loc.NeighborhoodCode)
}

func TestParsePoint(t *testing.T) {
	x, y, ok := parsePoint("POINT(4.1 52.2)")
	require.True(t, ok)
	assert.InDelta(t, 4.1, x, 1e-9)
	assert.InDelta(t, 52.2, y, 1e-9)

	_, _, ok = parsePoint("LINESTRING(1 2, 3 4)")
	assert.False(t, ok)
	_, _, ok = parsePoint("POINT(abc 1)")
	assert.False(t, ok)
}
