package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"livability_backend/internal/cachedfetch"
	"livability_backend/internal/cachestore"
	"livability_backend/internal/contextreport/sources"
	"livability_backend/internal/contextreport/transport"
	"livability_backend/platform/logger"
)

const (
	pdokBuurtenPath = "/cbs/wijken-en-buurten-2024/ogc/v1/collections/buurten/items"
	pdokWijkenPath  = "/cbs/wijken-en-buurten-2024/ogc/v1/collections/wijken/items"
	pdokLocatiePath = "/bzk/locatieserver/search/v3_1/free"
	buurtCodePrefix = "BU"
	wijkCodePrefix  = "WK"

	buurtcodeLookupSource = "neighborhood_lookup"
	buurtcodeCacheTTL     = 24 * time.Hour
)

// NeighborhoodAttribution credits CBS kerncijfers served through PDOK.
var NeighborhoodAttribution = Attribution{
	Name:    "CBS Kerncijfers wijken en buurten (PDOK)",
	URL:     "https://www.pdok.nl/ogc-apis/-/article/cbs-wijken-en-buurten",
	License: "CC-BY 4.0",
}

// RegionProperties holds properties from the PDOK CBS Wijken en Buurten API.
// The same shape is returned for buurten and wijken; only the code and name
// fields differ. Some fields use FlexNumber because the API inconsistently
// returns them as strings or numbers.
type RegionProperties struct {
	Buurtcode    string `json:"buurtcode"`
	Buurtnaam    string `json:"buurtnaam"`
	Wijkcode     string `json:"wijkcode"`
	Wijknaam     string `json:"wijknaam"`
	Gemeentenaam string `json:"gemeentenaam"`

	// Housing & ownership
	AantalWoningen     *FlexNumber `json:"aantal_woningen"`
	KoopwoningenPct    *FlexNumber `json:"percentage_koopwoningen"`
	HuurwoningenPct    *FlexNumber `json:"percentage_huurwoningen"`
	GemiddeldWOZWaarde *FlexNumber `json:"gemiddelde_woningwaarde"`

	// Building age
	BouwjaarVanaf2000Pct *FlexNumber `json:"percentage_bouwjaarklasse_vanaf_2000"`

	// Demographics
	AantalInwoners        *FlexNumber `json:"aantal_inwoners"`
	AantalHuishoudens     *FlexNumber `json:"aantal_particuliere_huishoudens"`
	GemHuishoudensgrootte *FlexNumber `json:"gemiddelde_huishoudensgrootte"`
	Bevolkingsdichtheid   *FlexNumber `json:"bevolkingsdichtheid_inwoners_per_km2"`
	Stedelijkheid         *FlexNumber `json:"mate_van_stedelijkheid"`

	// Household types
	HuishoudensMetKinderenPct *FlexNumber `json:"percentage_huishoudens_met_kinderen"`
	EenpersoonsHuishoudensPct *FlexNumber `json:"percentage_eenpersoonshuishoudens"`

	// Income & wealth
	MediaanInkomen     *FlexNumber `json:"mediaan_besteedbaar_inkomen_per_inwoner"`
	LaagInkomenPct     *FlexNumber `json:"percentage_huishoudens_met_laag_inkomen"`
	MediaanVermogen    *FlexNumber `json:"mediaan_vermogen_van_particuliere_huish"`
	AutosPerHuishouden *FlexNumber `json:"personenautos_per_huishouden"`

	// Age breakdown
	Inwoners0Tot15Pct  *FlexNumber `json:"percentage_personen_0_tot_15_jaar"`
	Inwoners15Tot25Pct *FlexNumber `json:"percentage_personen_15_tot_25_jaar"`
	Inwoners25Tot45Pct *FlexNumber `json:"percentage_personen_25_tot_45_jaar"`
	Inwoners45Tot65Pct *FlexNumber `json:"percentage_personen_45_tot_65_jaar"`
	Inwoners65PlusPct  *FlexNumber `json:"percentage_personen_65_jaar_en_ouder"`
}

type regionResponse struct {
	Features []struct {
		Properties RegionProperties `json:"properties"`
	} `json:"features"`
}

type locatieResponse struct {
	Response struct {
		Docs []struct {
			Buurtcode string `json:"buurtcode"`
			Buurtnaam string `json:"buurtnaam"`
		} `json:"docs"`
	} `json:"response"`
}

// NeighborhoodClient fetches neighborhood statistics from PDOK.
type NeighborhoodClient struct {
	baseURL    string
	httpClient *http.Client
	fetcher    *cachedfetch.Fetcher[sources.NeighborhoodStats]
	buurtcodes *cachedfetch.Fetcher[string]
	log        *logger.Logger
}

// NewNeighborhoodClient creates a client against the PDOK API base URL.
// Postcode to buurtcode lookups are kept in-process for buurtcodeCacheTTL.
func NewNeighborhoodClient(baseURL string, timeout time.Duration, fetcher *cachedfetch.Fetcher[sources.NeighborhoodStats], log *logger.Logger) *NeighborhoodClient {
	buurtcodes := cachedfetch.New[string](
		cachedfetch.Options{Source: buurtcodeLookupSource, TTL: buurtcodeCacheTTL},
		cachestore.NewMemory[string](nil, 0),
		nil,
		nil,
		log,
		nil,
	)
	return &NeighborhoodClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		fetcher:    fetcher,
		buurtcodes: buurtcodes,
		log:        log,
	}
}

// Fetch returns the statistics for the location's buurt, falling back to its
// wijk when no buurt code is known.
func (c *NeighborhoodClient) Fetch(ctx context.Context, loc transport.ResolvedLocation) *sources.NeighborhoodStats {
	code := c.regionCode(ctx, loc)
	if code == "" {
		return nil
	}

	entry := c.fetcher.Fetch(ctx, code, func(ctx context.Context) (*sources.NeighborhoodStats, error) {
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

func (c *NeighborhoodClient) regionCode(ctx context.Context, loc transport.ResolvedLocation) string {
	if code := deref(loc.NeighborhoodCode); code != "" {
		return code
	}
	if postcode := normalizePostcode(deref(loc.PostalCode)); postcode != "" {
		// A postcode without a buurt is cached as "" so it is not looked up again.
		entry := c.buurtcodes.Fetch(ctx, postcode, func(ctx context.Context) (*string, error) {
			code, err := c.GetBuurtcode(ctx, postcode)
			if err != nil {
				return nil, err
			}
			return &code, nil
		})
		if entry != nil && entry.Payload != "" {
			return entry.Payload
		}
	}
	return deref(loc.DistrictCode)
}

func normalizePostcode(postcode string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postcode), " ", ""))
}

// GetBuurtcode fetches the buurtcode for a postcode from PDOK locatieserver.
func (c *NeighborhoodClient) GetBuurtcode(ctx context.Context, postcode string) (string, error) {
	params := url.Values{}
	params.Set("q", normalizePostcode(postcode))
	params.Set("fq", "type:adres") // postcode docs do not carry a buurtcode
	params.Set("rows", "1")
	params.Set("fl", "buurtcode,buurtnaam")

	var payload locatieResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+pdokLocatiePath+"?"+params.Encode(), &payload); err != nil {
		return "", fmt.Errorf("pdok locatie: %w", err)
	}
	if len(payload.Response.Docs) == 0 {
		return "", nil
	}
	return payload.Response.Docs[0].Buurtcode, nil
}

// GetRegion fetches statistics for a buurt (BU…) or wijk (WK…) code directly
// from PDOK. It returns nil when the region is unknown or fully suppressed.
func (c *NeighborhoodClient) GetRegion(ctx context.Context, code string) (*sources.NeighborhoodStats, error) {
	path, param := pdokBuurtenPath, "buurtcode"
	if strings.HasPrefix(code, wijkCodePrefix) {
		path, param = pdokWijkenPath, "wijkcode"
	} else if !strings.HasPrefix(code, buurtCodePrefix) {
		return nil, fmt.Errorf("unsupported region code %q", code)
	}

	params := url.Values{}
	params.Set("f", "json")
	params.Set(param, code)
	params.Set("limit", "1")

	var payload regionResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+path+"?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("pdok %s %s: %w", param, code, err)
	}
	if len(payload.Features) == 0 {
		return nil, nil
	}

	props := payload.Features[0].Properties
	if isRegionBlocked(props) {
		c.log.Debug("pdok region suppressed", "code", code)
		return nil, nil
	}
	return mapRegion(code, props), nil
}

// isRegionBlocked reports whether neither population indicator is usable,
// in which case the region carries no useful data.
func isRegionBlocked(props RegionProperties) bool {
	return isBlocked(props.AantalInwoners) && isBlocked(props.AantalHuishoudens)
}

func mapRegion(code string, props RegionProperties) *sources.NeighborhoodStats {
	name := props.Buurtnaam
	if name == "" {
		name = props.Wijknaam
	}
	return &sources.NeighborhoodStats{
		RegionCode:        code,
		RegionName:        name,
		MunicipalityName:  props.Gemeentenaam,
		Residents:         props.AantalInwoners.ToFloat64Ptr(),
		Households:        props.AantalHuishoudens.ToFloat64Ptr(),
		AvgHouseholdSize:  props.GemHuishoudensgrootte.ToFloat64Ptr(),
		PopulationDensity: props.Bevolkingsdichtheid.ToFloat64Ptr(),
		Urbanity:          props.Stedelijkheid.ToFloat64Ptr(),
		Age0To15Pct:       props.Inwoners0Tot15Pct.ToFloat64Ptr(),
		Age15To25Pct:      props.Inwoners15Tot25Pct.ToFloat64Ptr(),
		Age25To45Pct:      props.Inwoners25Tot45Pct.ToFloat64Ptr(),
		Age45To65Pct:      props.Inwoners45Tot65Pct.ToFloat64Ptr(),
		Age65PlusPct:      props.Inwoners65PlusPct.ToFloat64Ptr(),
		WithChildrenPct:   props.HuishoudensMetKinderenPct.ToFloat64Ptr(),
		SinglePersonPct:   props.EenpersoonsHuishoudensPct.ToFloat64Ptr(),
		HousingStock:      props.AantalWoningen.ToFloat64Ptr(),
		OwnerOccupiedPct:  props.KoopwoningenPct.ToFloat64Ptr(),
		RentalPct:         props.HuurwoningenPct.ToFloat64Ptr(),
		BuiltSince2000Pct: props.BouwjaarVanaf2000Pct.ToFloat64Ptr(),
		AvgWOZValue:       props.GemiddeldWOZWaarde.ToFloat64Ptr(),
		MedianIncome:      props.MediaanInkomen.ToFloat64Ptr(),
		LowIncomePct:      props.LaagInkomenPct.ToFloat64Ptr(),
		MedianWealth:      props.MediaanVermogen.ToFloat64Ptr(),
		CarsPerHousehold:  props.AutosPerHuishouden.ToFloat64Ptr(),
	}
}
