package openapi_server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// A Route defines the parameters for an api endpoint
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// Routes are a collection of defined api endpoints
type Routes []Route

// Router defines the required methods for retrieving api routes
type Router interface {
	Routes() Routes
}

// NewRouter creates a new router for any number of api routers. The metrics
// endpoint is served next to the api routes.
func NewRouter(logger *logrus.Logger, routers ...Router) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	for _, api := range routers {
		for _, route := range api.Routes() {
			router.
				Methods(route.Method).
				Path(route.Pattern).
				Name(route.Name).
				Handler(route.HandlerFunc)
		}
	}
	router.Methods(http.MethodGet).Path("/metrics").Name("Metrics").Handler(promhttp.Handler())

	router.Use(Recovery(logger), Logger(logger), Metrics)
	return router
}

// NewHandler wraps the router with CORS handling for the allowed origins.
// CORS sits outside the router so preflight requests reach it for every path.
func NewHandler(logger *logrus.Logger, allowedOrigins []string, routers ...Router) http.Handler {
	return CORS(allowedOrigins)(NewRouter(logger, routers...))
}
