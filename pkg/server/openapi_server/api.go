package openapi_server

import (
	"context"
	"net/http"
)

// DefaultApiRouter defines the required methods for binding the api requests to a responses for the DefaultApi
// The DefaultApiRouter implementation should parse necessary information from the http request,
// pass the data to a DefaultApiServicer to perform the required actions, then write the service results to the http response.
type DefaultApiRouter interface {
	GetRoot(http.ResponseWriter, *http.Request)
	GetHealth(http.ResponseWriter, *http.Request)
	ComputeRoute(http.ResponseWriter, *http.Request)
	SnapPoint(http.ResponseWriter, *http.Request)
	SearchPlaces(http.ResponseWriter, *http.Request)
}

// DefaultApiServicer defines the api actions for the DefaultApi service
// This interface intended to stay up to date with the openapi yaml used to generate it,
// while the service implementation can ignored with the .openapi-generator-ignore file
// and updated with the logic required for the API.
type DefaultApiServicer interface {
	GetRoot(context.Context) (ImplResponse, error)
	GetHealth(context.Context) (ImplResponse, error)
	ComputeRoute(context.Context, RouteRequest) (ImplResponse, error)
	SnapPoint(context.Context, Point) (ImplResponse, error)
	SearchPlaces(ctx context.Context, q string, limit int) (ImplResponse, error)
}
