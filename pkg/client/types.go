package client

// AppStats mirrors one entry of the stats endpoint.
type AppStats struct {
	PlaytimeSeconds int64   `json:"playtime"`
	Launches        int64   `json:"launches"`
	CPUPercent      float64 `json:"cpu"`
	MemPercent      float64 `json:"memory"`
}

// CatalogEntry is one installed application from the catalog scan.
type CatalogEntry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// AppsResponse is returned by the running endpoints.
type AppsResponse struct {
	Apps []string `json:"apps"`
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error string `json:"error"`
}
