package geocoding

// LookupRequest represents the query parameters of the address lookup.
type LookupRequest struct {
	Query string `form:"q" binding:"required,min=3,max=200"`
}

// pdokResponse mirrors the Solr envelope returned by the PDOK locatieserver.
type pdokResponse struct {
	Response struct {
		NumFound int       `json:"numFound"`
		Docs     []pdokDoc `json:"docs"`
	} `json:"response"`
}

type pdokDoc struct {
	Type         string `json:"type"`
	Weergavenaam string `json:"weergavenaam"`
	CentroideLL  string `json:"centroide_ll"`
	CentroideRD  string `json:"centroide_rd"`
	Gemeentecode string `json:"gemeentecode"`
	Gemeentenaam string `json:"gemeentenaam"`
	Wijkcode     string `json:"wijkcode"`
	Wijknaam     string `json:"wijknaam"`
	Buurtcode    string `json:"buurtcode"`
	Buurtnaam    string `json:"buurtnaam"`
	Postcode     string `json:"postcode"`
}

type nominatimAddress struct {
	Road         string `json:"road"`
	HouseNumber  string `json:"house_number"`
	Postcode     string `json:"postcode"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	Hamlet       string `json:"hamlet"`
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
}
