package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
	"livability_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buurtBody = `{"features":[{"properties":{
	"buurtcode":"BU03630001","buurtnaam":"Kop Zeedijk","gemeentenaam":"Amsterdam",
	"aantal_inwoners":1050,"aantal_particuliere_huishoudens":"735",
	"gemiddelde_huishoudensgrootte":1.4,"mate_van_stedelijkheid":1,
	"percentage_koopwoningen":22,"percentage_huurwoningen":78,
	"gemiddelde_woningwaarde":512,"mediaan_besteedbaar_inkomen_per_inwoner":"-99997",
	"personenautos_per_huishouden":0.3
}}]}`

func TestFlexNumber_UnmarshalJSON(t *testing.T) {
	var v struct {
		A *FlexNumber `json:"a"`
		B *FlexNumber `json:"b"`
		C *FlexNumber `json:"c"`
		D *FlexNumber `json:"d"`
		E *FlexNumber `json:"e"`
		F *FlexNumber `json:"f"`
		G *FlexNumber `json:"g"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12.5,"b":"7","c":"","d":null,"e":"NaN","f":"Inf","g":"-Infinity"}`), &v))

	require.NotNil(t, v.A.ToFloat64Ptr())
	assert.Equal(t, 12.5, *v.A.ToFloat64Ptr())
	assert.Equal(t, 7.0, *v.B.ToFloat64Ptr())
	assert.Nil(t, v.C.ToFloat64Ptr(), "empty string is treated as suppressed")
	assert.Nil(t, v.D.ToFloat64Ptr())
	assert.Nil(t, v.E.ToFloat64Ptr(), "NaN is not a value")
	assert.Nil(t, v.F.ToFloat64Ptr())
	assert.Nil(t, v.G.ToFloat64Ptr())
	assert.True(t, isBlocked(v.E))
}

func TestNeighborhoodClient_FetchByBuurtcode(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, pdokBuurtenPath, r.URL.Path)
		assert.Equal(t, "BU03630001", r.URL.Query().Get("buurtcode"))
		writeJSON(w, buurtBody)
	}))
	defer srv.Close()

	c := NewNeighborhoodClient(srv.URL, time.Second, testFetcher[sources.NeighborhoodStats](sources.ProviderNeighborhood), logger.Discard())
	loc := transport.ResolvedLocation{NeighborhoodCode: strPtr("BU03630001")}

	stats := c.Fetch(context.Background(), loc)
	require.NotNil(t, stats)
	assert.Equal(t, "Kop Zeedijk", stats.RegionName)
	assert.Equal(t, 1050.0, *stats.Residents)
	assert.Equal(t, 735.0, *stats.Households)
	assert.Equal(t, 0.3, *stats.CarsPerHousehold)
	assert.Nil(t, stats.MedianIncome, "CBS sentinel values become nil")
	assert.False(t, stats.RetrievedAt.IsZero())
	assert.True(t, stats.ExpiresAt.After(stats.RetrievedAt))

	require.NotNil(t, c.Fetch(context.Background(), loc))
	assert.Equal(t, int32(1), calls.Load(), "second fetch is served from cache")
}

func TestNeighborhoodClient_FallsBackToWijkcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pdokWijkenPath, r.URL.Path)
		assert.Equal(t, "WK036300", r.URL.Query().Get("wijkcode"))
		writeJSON(w, `{"features":[{"properties":{"wijkcode":"WK036300","wijknaam":"Burgwallen-Oude Zijde","aantal_inwoners":4200}}]}`)
	}))
	defer srv.Close()

	c := NewNeighborhoodClient(srv.URL, time.Second, testFetcher[sources.NeighborhoodStats](sources.ProviderNeighborhood), logger.Discard())
	stats := c.Fetch(context.Background(), transport.ResolvedLocation{DistrictCode: strPtr("WK036300")})

	require.NotNil(t, stats)
	assert.Equal(t, "Burgwallen-Oude Zijde", stats.RegionName)
	assert.Equal(t, "WK036300", stats.RegionCode)
}

func TestNeighborhoodClient_ResolvesBuurtcodeFromPostcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pdokLocatiePath:
			assert.Equal(t, "1012AB", r.URL.Query().Get("q"))
			writeJSON(w, `{"response":{"docs":[{"buurtcode":"BU03630001","buurtnaam":"Kop Zeedijk"}]}}`)
		case pdokBuurtenPath:
			writeJSON(w, buurtBody)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewNeighborhoodClient(srv.URL, time.Second, testFetcher[sources.NeighborhoodStats](sources.ProviderNeighborhood), logger.Discard())
	stats := c.Fetch(context.Background(), transport.ResolvedLocation{PostalCode: strPtr("1012 AB")})

	require.NotNil(t, stats)
	assert.Equal(t, "BU03630001", stats.RegionCode)
}

func TestNeighborhoodClient_CachesBuurtcodeLookup(t *testing.T) {
	var lookups atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pdokLocatiePath:
			lookups.Add(1)
			if r.URL.Query().Get("q") == "9999ZZ" {
				writeJSON(w, `{"response":{"docs":[]}}`)
				return
			}
			writeJSON(w, `{"response":{"docs":[{"buurtcode":"BU03630001","buurtnaam":"Kop Zeedijk"}]}}`)
		case pdokBuurtenPath:
			writeJSON(w, buurtBody)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewNeighborhoodClient(srv.URL, time.Second, testFetcher[sources.NeighborhoodStats](sources.ProviderNeighborhood), logger.Discard())
	ctx := context.Background()

	require.NotNil(t, c.Fetch(ctx, transport.ResolvedLocation{PostalCode: strPtr("1012 AB")}))
	require.NotNil(t, c.Fetch(ctx, transport.ResolvedLocation{PostalCode: strPtr("1012ab")}))
	assert.Equal(t, int32(1), lookups.Load(), "same postcode is looked up once")

	unknown := transport.ResolvedLocation{PostalCode: strPtr("9999 ZZ")}
	assert.Nil(t, c.Fetch(ctx, unknown))
	assert.Nil(t, c.Fetch(ctx, unknown))
	assert.Equal(t, int32(2), lookups.Load(), "a postcode without buurt is not looked up again")
}

func TestNeighborhoodClient_SuppressedRegionIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, `{"features":[{"properties":{"buurtcode":"BU1","aantal_inwoners":-99997,"aantal_particuliere_huishoudens":-99997}}]}`)
	}))
	defer srv.Close()

	c := NewNeighborhoodClient(srv.URL, time.Second, testFetcher[sources.NeighborhoodStats](sources.ProviderNeighborhood), logger.Discard())
	assert.Nil(t, c.Fetch(context.Background(), transport.ResolvedLocation{NeighborhoodCode: strPtr("BU1")}))
}

func TestNeighborhoodClient_NonFiniteStringsAreDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, `{"features":[{"properties":{"buurtcode":"BU1","aantal_inwoners":800,
			"aantal_particuliere_huishoudens":400,"mediaan_besteedbaar_inkomen_per_inwoner":"NaN",
			"personenautos_per_huishouden":"Infinity"}}]}`)
	}))
	defer srv.Close()

	c := NewNeighborhoodClient(srv.URL, time.Second, testFetcher[sources.NeighborhoodStats](sources.ProviderNeighborhood), logger.Discard())
	stats := c.Fetch(context.Background(), transport.ResolvedLocation{NeighborhoodCode: strPtr("BU1")})

	require.NotNil(t, stats)
	assert.Nil(t, stats.MedianIncome)
	assert.Nil(t, stats.CarsPerHousehold)
	_, err := json.Marshal(stats)
	assert.NoError(t, err)
}

func TestNeighborhoodClient_ServerErrorIsFailSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewNeighborhoodClient(srv.URL, time.Second, testFetcher[sources.NeighborhoodStats](sources.ProviderNeighborhood), logger.Discard())
	assert.Nil(t, c.Fetch(context.Background(), transport.ResolvedLocation{NeighborhoodCode: strPtr("BU1")}))

	_, err := c.GetRegion(context.Background(), "BU1")
	assert.ErrorContains(t, err, "status 503")
}

func TestNeighborhoodClient_NoRegionCode(t *testing.T) {
	c := NewNeighborhoodClient("http://127.0.0.1:0", time.Second, testFetcher[sources.NeighborhoodStats](sources.ProviderNeighborhood), logger.Discard())
	assert.Nil(t, c.Fetch(context.Background(), transport.ResolvedLocation{}))
}
