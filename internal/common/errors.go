package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// HttpError represents an HTTP error with status code and message
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    messageOrDefault(msg, "Bad request"),
	}
}

func HTTPErrorNotFound(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    messageOrDefault(msg, "Not found"),
	}
}

func HTTPErrorInternalError(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    messageOrDefault(msg, "Internal server error"),
	}
}

func HTTPErrorGatewayTimeout(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusGatewayTimeout,
		Code:       "ROUTING_TIMEOUT",
		Message:    messageOrDefault(msg, "Routing timed out, retrying"),
	}
}

func HTTPErrorBadGateway(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadGateway,
		Code:       "UPSTREAM_ERROR",
		Message:    messageOrDefault(msg, "Upstream unavailable"),
	}
}

func HTTPErrorUnprocessable(code, msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       code,
		Message:    msg,
	}
}

// ToHTTPError classifies quoting errors for API consumers.
func ToHTTPError(err error) *HttpError {
	var (
		he  *HttpError
		te  *domain.TimeoutError
		bte *domain.BridgeTradeError
		ne  *domain.NetworkError
		me  *domain.MisconfigurationError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &he):
		return he
	case errors.As(err, &te):
		return HTTPErrorGatewayTimeout("")
	case errors.Is(err, domain.ErrNoValidRoute):
		return HTTPErrorUnprocessable("NO_VALID_ROUTE", "No valid route found, adjust routing settings and retry")
	case errors.As(err, &bte):
		return HTTPErrorUnprocessable("BRIDGE_TRADE_ERROR", bte.Reason)
	case errors.As(err, &ne):
		return HTTPErrorBadGateway("")
	case errors.As(err, &me):
		return HTTPErrorInternalError("")
	default:
		return HTTPErrorInternalError(err.Error())
	}
}
