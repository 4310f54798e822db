package openapi_server

type SearchResult struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Category string `json:"category,omitempty"`
	Address  string `json:"address,omitempty"`
	Location LatLon `json:"location"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}
