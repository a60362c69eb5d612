package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
	"livability_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const crimeBody = `{"value":[
	{"SoortMisdrijf":"0.0.0 ","WijkenEnBuurten":"GM0363    ","Perioden":"2023JJ00","GeregistreerdeMisdrijven_1":90000,"GeregistreerdeMisdrijvenPer1000Inw_3":102.1},
	{"SoortMisdrijf":"0.0.0 ","WijkenEnBuurten":"GM0363    ","Perioden":"2024JJ00","GeregistreerdeMisdrijven_1":85000,"GeregistreerdeMisdrijvenPer1000Inw_3":91.4},
	{"SoortMisdrijf":"1.1.1 ","WijkenEnBuurten":"GM0363    ","Perioden":"2024JJ00","GeregistreerdeMisdrijven_1":3000,"GeregistreerdeMisdrijvenPer1000Inw_3":3.2},
	{"SoortMisdrijf":"1.2.1 ","WijkenEnBuurten":"GM0363    ","Perioden":"2024JJ00","GeregistreerdeMisdrijven_1":1000,"GeregistreerdeMisdrijvenPer1000Inw_3":1.5},
	{"SoortMisdrijf":"1.2.3 ","WijkenEnBuurten":"GM0363    ","Perioden":"2024JJ00","GeregistreerdeMisdrijven_1":5000,"GeregistreerdeMisdrijvenPer1000Inw_3":6.0},
	{"SoortMisdrijf":"1.4.5 ","WijkenEnBuurten":"GM0363    ","Perioden":"2024JJ00","GeregistreerdeMisdrijven_1":2000,"GeregistreerdeMisdrijvenPer1000Inw_3":2.5}
]}`

func TestCrimeClient_FetchUsesMostSpecificCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+cbsCrimeDataset+"/TypedDataSet", r.URL.Path)
		assert.Equal(t, "WijkenEnBuurten eq 'WK036300  '", r.URL.Query().Get("$filter"))
		writeJSON(w, crimeBody)
	}))
	defer srv.Close()

	c := NewCrimeClient(srv.URL, time.Second, testFetcher[sources.CrimeStats](sources.ProviderCrime), logger.Discard())
	stats := c.Fetch(context.Background(), transport.ResolvedLocation{
		DistrictCode:     strPtr("WK036300"),
		MunicipalityCode: strPtr("GM0363"),
	})

	require.NotNil(t, stats)
	assert.Equal(t, "WK036300", stats.RegionCode)
	assert.Equal(t, "2024JJ00", stats.Period)
	assert.Equal(t, 85000.0, *stats.TotalCrimes)
	assert.Equal(t, 91.4, *stats.TotalPer1000)
	assert.Equal(t, 3.2, *stats.BurglaryPer1000)
	assert.InDelta(t, 7.5, *stats.TheftPer1000, 1e-9)
	assert.Equal(t, 2.5, *stats.ViolentCrimePer1000)
}

func TestCrimeClient_NoRowsIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, `{"value":[]}`)
	}))
	defer srv.Close()

	c := NewCrimeClient(srv.URL, time.Second, testFetcher[sources.CrimeStats](sources.ProviderCrime), logger.Discard())
	assert.Nil(t, c.Fetch(context.Background(), transport.ResolvedLocation{MunicipalityCode: strPtr("GM9999")}))
}

func TestCrimeClient_MalformedPayloadIsFailSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, `{"value":[{"Perioden":`)
	}))
	defer srv.Close()

	c := NewCrimeClient(srv.URL, time.Second, testFetcher[sources.CrimeStats](sources.ProviderCrime), logger.Discard())
	assert.Nil(t, c.Fetch(context.Background(), transport.ResolvedLocation{MunicipalityCode: strPtr("GM0363")}))
}

func TestCrimeRegionCode(t *testing.T) {
	assert.Equal(t, "", crimeRegionCode(transport.ResolvedLocation{}))
	assert.Equal(t, "GM0363", crimeRegionCode(transport.ResolvedLocation{MunicipalityCode: strPtr("GM0363")}))
	assert.Equal(t, "BU03630001", crimeRegionCode(transport.ResolvedLocation{
		NeighborhoodCode: strPtr("BU03630001"),
		MunicipalityCode: strPtr("GM0363"),
	}))
}
