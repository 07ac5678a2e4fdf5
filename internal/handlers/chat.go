package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/microscanai/microscan/internal/auth"
	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/conversation/flow"
)

// ChatHandler exposes the turn pipeline over HTTP.
type ChatHandler struct {
	runner flow.Runner
	logger *slog.Logger
}

func NewChatHandler(log *slog.Logger, runner flow.Runner) *ChatHandler {
	return &ChatHandler{
		runner: runner,
		logger: log.With(slog.String("handler", "chat")),
	}
}

func (h *ChatHandler) Register(e *echo.Echo) {
	e.POST("/chat/messages", h.SendMessage)
	e.POST("/interpretations", h.Interpret)
}

// SendMessage godoc
// @Summary Run one chat turn
// @Description Validates the turn, applies the daily scan quota for media turns, asks the model and stores the transcript.
// @Tags chat
// @Accept json
// @Produce json
// @Param request body conversation.Turn true "Chat turn"
// @Success 200 {object} conversation.ChatResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /chat/messages [post]
func (h *ChatHandler) SendMessage(c echo.Context) error {
	callerID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var turn conversation.Turn
	if err := c.Bind(&turn); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	turn.CallerID = callerID
	return h.run(c, turn)
}

// Interpret godoc
// @Summary Analyze uploaded media (legacy)
// @Description Legacy multi-file entry point. Always continues the stored conversation.
// @Tags chat
// @Accept json
// @Produce json
// @Param request body conversation.LegacyAnalysisRequest true "Analysis request"
// @Success 200 {object} conversation.ChatResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /interpretations [post]
func (h *ChatHandler) Interpret(c echo.Context) error {
	callerID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req conversation.LegacyAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	turn := req.Turn()
	turn.CallerID = callerID
	return h.run(c, turn)
}

func (h *ChatHandler) run(c echo.Context, turn conversation.Turn) error {
	resp, err := h.runner.Chat(c.Request().Context(), turn)
	if err != nil {
		h.logger.Debug("turn rejected",
			slog.String("user_id", turn.CallerID),
			slog.String("kind", string(conversation.KindOf(err))),
		)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}
