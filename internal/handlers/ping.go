package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/microscanai/microscan/internal/healthcheck"
)

type PingHandler struct {
	checker healthcheck.Checker
	logger  *slog.Logger
}

func NewPingHandler(log *slog.Logger, checker healthcheck.Checker) *PingHandler {
	return &PingHandler{checker: checker, logger: log.With(slog.String("handler", "ping"))}
}

func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
	e.GET("/health/checks", h.Checks)
}

func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Checks reports dependency health. Any failing check turns the response into a 503.
func (h *PingHandler) Checks(c echo.Context) error {
	if h.checker == nil {
		return c.JSON(http.StatusOK, map[string]any{"status": healthcheck.StatusOK, "checks": []healthcheck.CheckResult{}})
	}
	items := h.checker.ListChecks(c.Request().Context())
	status := healthcheck.Overall(items)
	code := http.StatusOK
	if status == healthcheck.StatusError {
		code = http.StatusServiceUnavailable
		h.logger.Warn("health check failed", slog.Any("checks", items))
	}
	return c.JSON(code, map[string]any{"status": status, "checks": items})
}
