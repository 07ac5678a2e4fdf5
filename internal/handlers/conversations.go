package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/microscanai/microscan/internal/auth"
	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/i18n"
	"github.com/microscanai/microscan/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ConversationsHandler serves read access to the caller's stored transcripts.
type ConversationsHandler struct {
	conversations store.Conversations
	logger        *slog.Logger
}

func NewConversationsHandler(log *slog.Logger, st store.Store) *ConversationsHandler {
	return &ConversationsHandler{
		conversations: st.Conversations(),
		logger:        log.With(slog.String("handler", "conversations")),
	}
}

func (h *ConversationsHandler) Register(e *echo.Echo) {
	group := e.Group("/conversations")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
}

// Get godoc
// @Summary Get a conversation
// @Tags conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} conversation.Conversation
// @Failure 404 {object} ErrorResponse
// @Router /conversations/{id} [get]
func (h *ConversationsHandler) Get(c echo.Context) error {
	callerID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	conv, err := h.conversations.Get(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && conv.UserID != callerID) {
		return echo.NewHTTPError(http.StatusNotFound, i18n.T(i18n.DefaultLanguage, i18n.NotFound))
	}
	if err != nil {
		h.logger.Error("load conversation failed", slog.String("conversation_id", id), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, i18n.T(i18n.DefaultLanguage, i18n.InternalFailure))
	}
	return c.JSON(http.StatusOK, conv)
}

// List godoc
// @Summary List the caller's conversations
// @Description Most recently updated first.
// @Tags conversations
// @Produce json
// @Param limit query int false "Maximum number of conversations (default 20, max 100)"
// @Success 200 {object} ListConversationsResponse
// @Failure 400 {object} ErrorResponse
// @Router /conversations [get]
func (h *ConversationsHandler) List(c echo.Context) error {
	callerID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.conversations.ListByUser(c.Request().Context(), callerID, limit)
	if err != nil {
		h.logger.Error("list conversations failed", slog.String("user_id", callerID), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, i18n.T(i18n.DefaultLanguage, i18n.InternalFailure))
	}
	return c.JSON(http.StatusOK, ListConversationsResponse{Items: items})
}

// ListConversationsResponse wraps a page of conversations.
type ListConversationsResponse struct {
	Items []conversation.Conversation `json:"items"`
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}
