package openapi_server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/natevvv/snaproute/pkg/routing"
)

// retry hint for clients while the network is loading
const retryAfterSeconds = "5"

var (
	// ErrTypeAssertionError is thrown when type an interface does not match the asserted type
	ErrTypeAssertionError = errors.New("unable to assert type")
)

// ParsingError indicates that an error has occurred when parsing request parameters
type ParsingError struct {
	Err error
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

func (e *ParsingError) Error() string {
	return e.Err.Error()
}

// RequiredError indicates that an error has occurred when parsing request parameters
type RequiredError struct {
	Field string
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("required field '%s' is zero value.", e.Field)
}

// ValidationError reports a field whose value is outside its allowed range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field '%s' %s", e.Field, e.Reason)
}

// ErrorBody is the json body of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// ErrorHandler defines the required method for handling error. You may implement it and inject this into a controller if
// you would like errors to be handled differently from the DefaultErrorHandler
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error, result *ImplResponse)

// StatusOf maps an error to its http status and the message shown to clients.
func StatusOf(err error) (int, string) {
	var parsingErr *ParsingError
	var requiredErr *RequiredError
	var validationErr *ValidationError

	switch {
	case errors.As(err, &parsingErr), errors.As(err, &requiredErr), errors.As(err, &validationErr):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, routing.ErrInvalidCoordinate):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, routing.ErrNoSegmentFound):
		return http.StatusNotFound, routing.ErrNoSegmentFound.Error()
	case errors.Is(err, routing.ErrNoPathFound):
		return http.StatusNotFound, routing.ErrNoPathFound.Error()
	case errors.Is(err, routing.ErrGraphNotReady):
		return http.StatusServiceUnavailable, routing.ErrGraphNotReady.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "route computation timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "request canceled"
	case errors.Is(err, routing.ErrComposition):
		return http.StatusInternalServerError, routing.ErrComposition.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// DefaultErrorHandler defines the default logic on how to handle errors from the controller. Any errors from parsing
// request params will return a StatusBadRequest. Otherwise, the error code originating from the servicer will be used.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error, result *ImplResponse) {
	code, detail := StatusOf(err)
	headers := map[string]string{}
	if result != nil {
		for k, v := range result.Headers {
			headers[k] = v
		}
	}
	if code == http.StatusServiceUnavailable {
		headers["Retry-After"] = retryAfterSeconds
	}
	if code >= http.StatusInternalServerError {
		requestLogger(r).WithError(err).Error("request failed")
	}
	EncodeJSONResponse(ErrorBody{Detail: detail}, &code, headers, w)
}
