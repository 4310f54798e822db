package openapi_server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// minimum length of a search query
const minQueryLength = 2

// DefaultApiController binds http requests to an api service and writes the service results to the http response
type DefaultApiController struct {
	service      DefaultApiServicer
	errorHandler ErrorHandler
}

// DefaultApiOption for how the controller is set up.
type DefaultApiOption func(*DefaultApiController)

// WithDefaultApiErrorHandler inject ErrorHandler into controller
func WithDefaultApiErrorHandler(h ErrorHandler) DefaultApiOption {
	return func(c *DefaultApiController) {
		c.errorHandler = h
	}
}

// NewDefaultApiController creates a default api controller
func NewDefaultApiController(s DefaultApiServicer, opts ...DefaultApiOption) Router {
	controller := &DefaultApiController{
		service:      s,
		errorHandler: DefaultErrorHandler,
	}

	for _, opt := range opts {
		opt(controller)
	}

	return controller
}

// Routes returns all of the api route for the DefaultApiController
func (c *DefaultApiController) Routes() Routes {
	return Routes{
		{
			"GetRoot",
			strings.ToUpper("Get"),
			"/",
			c.GetRoot,
		},
		{
			"GetHealth",
			strings.ToUpper("Get"),
			"/health",
			c.GetHealth,
		},
		{
			"ComputeRoute",
			strings.ToUpper("Post"),
			"/route",
			c.ComputeRoute,
		},
		{
			"SnapPoint",
			strings.ToUpper("Post"),
			"/snap",
			c.SnapPoint,
		},
		{
			"SearchPlaces",
			strings.ToUpper("Get"),
			"/search",
			c.SearchPlaces,
		},
	}
}

func (c *DefaultApiController) GetRoot(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.GetRoot(r.Context())
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	EncodeJSONResponse(result.Body, &result.Code, result.Headers, w)
}

func (c *DefaultApiController) GetHealth(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.GetHealth(r.Context())
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	EncodeJSONResponse(result.Body, &result.Code, result.Headers, w)
}

// ComputeRoute - Compute the shortest route between two points
func (c *DefaultApiController) ComputeRoute(w http.ResponseWriter, r *http.Request) {
	routeRequestParam := RouteRequest{}
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	if err := d.Decode(&routeRequestParam); err != nil {
		c.errorHandler(w, r, &ParsingError{Err: err}, nil)
		return
	}
	if err := AssertRouteRequestRequired(routeRequestParam); err != nil {
		c.errorHandler(w, r, err, nil)
		return
	}
	result, err := c.service.ComputeRoute(r.Context(), routeRequestParam)
	// If an error occurred, encode the error with the status code
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	// If no error, encode the body and the result code
	EncodeJSONResponse(result.Body, &result.Code, result.Headers, w)
}

// SnapPoint - Match a point onto the road network
func (c *DefaultApiController) SnapPoint(w http.ResponseWriter, r *http.Request) {
	pointParam := Point{}
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	if err := d.Decode(&pointParam); err != nil {
		c.errorHandler(w, r, &ParsingError{Err: err}, nil)
		return
	}
	if err := AssertPointRequired(pointParam); err != nil {
		c.errorHandler(w, r, err, nil)
		return
	}
	result, err := c.service.SnapPoint(r.Context(), pointParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	EncodeJSONResponse(result.Body, &result.Code, result.Headers, w)
}

// SearchPlaces - Find named places and junctions
func (c *DefaultApiController) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := strings.TrimSpace(query.Get("q"))
	if len([]rune(q)) < minQueryLength {
		c.errorHandler(w, r, &ValidationError{Field: "q", Reason: fmt.Sprintf("must be at least %d characters", minQueryLength)}, nil)
		return
	}
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.errorHandler(w, r, &ParsingError{Err: err}, nil)
			return
		}
		if parsed < 1 {
			c.errorHandler(w, r, &ValidationError{Field: "limit", Reason: "must be at least 1"}, nil)
			return
		}
		limit = parsed
	}
	result, err := c.service.SearchPlaces(r.Context(), q, limit)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	EncodeJSONResponse(result.Body, &result.Code, result.Headers, w)
}
