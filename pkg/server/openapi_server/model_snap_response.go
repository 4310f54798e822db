package openapi_server

type SnapResponse struct {
	EdgeID         int64   `json:"edge_id"`
	From           int64   `json:"from"`
	To             int64   `json:"to"`
	Fraction       float64 `json:"fraction"`
	Location       LatLon  `json:"location"`
	DistanceMeters float64 `json:"distance_meters"`
}
