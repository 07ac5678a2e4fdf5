package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/microscanai/microscan/internal/conversation"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Message string `json:"message"`
}

// httpError maps a pipeline error onto an HTTP error carrying only the
// caller-facing message.
func httpError(err error) *echo.HTTPError {
	msg := conversation.PublicMessage(err)
	switch conversation.KindOf(err) {
	case conversation.KindUnauthenticated:
		return echo.NewHTTPError(http.StatusUnauthorized, msg)
	case conversation.KindInvalidArgument:
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	case conversation.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, msg)
	case conversation.KindConflict:
		return echo.NewHTTPError(http.StatusConflict, msg)
	default:
		if msg == "" {
			msg = http.StatusText(http.StatusInternalServerError)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, msg)
	}
}
