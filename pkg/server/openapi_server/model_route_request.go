package openapi_server

type RouteRequest struct {
	StartPoint Point `json:"start_point"`
	EndPoint   Point `json:"end_point"`
}

// AssertRouteRequestRequired checks if the required fields are not zero-ed
func AssertRouteRequestRequired(obj RouteRequest) error {
	return validateStruct(obj)
}
