package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microscanai/microscan/internal/auth"
	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/healthcheck"
	"github.com/microscanai/microscan/internal/store/memory"
)

const testSecret = "test-secret"

type fakeRunner struct {
	turns []conversation.Turn
	resp  conversation.ChatResponse
	err   error
}

func (f *fakeRunner) Chat(ctx context.Context, turn conversation.Turn) (conversation.ChatResponse, error) {
	f.turns = append(f.turns, turn)
	return f.resp, f.err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEcho(handlers ...interface{ Register(*echo.Echo) }) *echo.Echo {
	e := echo.New()
	e.Use(auth.JWTMiddleware(testSecret, func(c echo.Context) bool {
		return strings.HasPrefix(c.Request().URL.Path, "/ping") || strings.HasPrefix(c.Request().URL.Path, "/health")
	}))
	for _, h := range handlers {
		h.Register(e)
	}
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != "" {
		token, _, err := auth.GenerateToken(userID, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSendMessageSetsCallerFromToken(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{resp: conversation.ChatResponse{Success: true, Message: "Analysis completed", InterpretationResult: "ok", ConversationID: "c1"}}
	e := newTestEcho(NewChatHandler(newTestLogger(), runner))

	rec := do(t, e, http.MethodPost, "/chat/messages", "user-1",
		`{"userId":"spoofed","userMessage":"hi","fileUrls":["https://cdn.example.com/a.jpg"],"includePreviousHistory":true,"conversationId":"c1","language":"es"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, runner.turns, 1)

	turn := runner.turns[0]
	assert.Equal(t, "user-1", turn.CallerID)
	assert.Equal(t, "spoofed", turn.UserID)
	assert.Equal(t, "es", turn.Language)
	assert.True(t, turn.IncludePreviousHistory)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, turn.FileURLs)

	var resp conversation.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.InterpretationResult)
	assert.Equal(t, "c1", resp.ConversationID)
}

func TestSendMessageRequiresToken(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	e := newTestEcho(NewChatHandler(newTestLogger(), runner))

	rec := do(t, e, http.MethodPost, "/chat/messages", "", `{"userMessage":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, runner.turns)
}

func TestSendMessageMapsErrorKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{name: "unauthenticated", err: conversation.NewError(conversation.KindUnauthenticated, "User ID is missing"), code: http.StatusUnauthorized, msg: "User ID is missing"},
		{name: "invalid", err: conversation.NewError(conversation.KindInvalidArgument, "You have reached your daily scan limit"), code: http.StatusBadRequest, msg: "You have reached your daily scan limit"},
		{name: "not found", err: conversation.NewError(conversation.KindNotFound, "No user found"), code: http.StatusNotFound, msg: "No user found"},
		{name: "conflict", err: conversation.NewError(conversation.KindConflict, "Conversation was updated concurrently"), code: http.StatusConflict, msg: "Conversation was updated concurrently"},
		{name: "internal hides detail", err: conversation.WrapError(conversation.KindInternal, "Failed to process the message. Please try again.", io.ErrUnexpectedEOF), code: http.StatusInternalServerError, msg: "Failed to process the message. Please try again."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newTestEcho(NewChatHandler(newTestLogger(), &fakeRunner{err: tc.err}))
			rec := do(t, e, http.MethodPost, "/chat/messages", "user-1", `{"userMessage":"hi"}`)
			assert.Equal(t, tc.code, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.msg, body.Message)
			assert.NotContains(t, rec.Body.String(), "unexpected EOF")
		})
	}
}

func TestInterpretAdaptsLegacyRequest(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{resp: conversation.ChatResponse{Success: true}}
	e := newTestEcho(NewChatHandler(newTestLogger(), runner))

	rec := do(t, e, http.MethodPost, "/interpretations", "user-1",
		`{"userId":"user-1","userMessage":"compare","conversationId":"c9","mediaFiles":[{"id":"1","url":" https://cdn.example.com/a.jpg ","type":"image"},{"id":"2","url":"https://cdn.example.com/b.jpg","type":"image"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, runner.turns, 1)

	turn := runner.turns[0]
	assert.Equal(t, "user-1", turn.CallerID)
	assert.True(t, turn.IncludePreviousHistory)
	assert.Equal(t, "c9", turn.ConversationID)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}, turn.FileURLs)
	assert.Empty(t, turn.History)
}

func TestConversationsGetAndList(t *testing.T) {
	t.Parallel()

	st := memory.New()
	ctx := context.Background()
	for _, conv := range []conversation.Conversation{
		{ID: "c1", UserID: "user-1", Messages: []conversation.Message{{Role: conversation.RoleUser, Content: conversation.TextContent("hello")}}},
		{ID: "c2", UserID: "user-1", Messages: []conversation.Message{}},
		{ID: "c3", UserID: "user-2", Messages: []conversation.Message{}},
	} {
		_, err := st.Conversations().Save(ctx, conv, 0)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	e := newTestEcho(NewConversationsHandler(newTestLogger(), st))

	rec := do(t, e, http.MethodGet, "/conversations/c1", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var conv conversation.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, "c1", conv.ID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "hello", conv.Messages[0].Content.Text())

	rec = do(t, e, http.MethodGet, "/conversations/c3", "user-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodGet, "/conversations/missing", "user-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodGet, "/conversations?limit=1", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListConversationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "c2", list.Items[0].ID)

	rec = do(t, e, http.MethodGet, "/conversations?limit=abc", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseLimit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "", want: defaultListLimit},
		{raw: "5", want: 5},
		{raw: "500", want: maxListLimit},
		{raw: "0", wantErr: true},
		{raw: "-1", wantErr: true},
		{raw: "x", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseLimit(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

type staticChecker struct {
	items []healthcheck.CheckResult
}

func (s staticChecker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	return s.items
}

func TestPingAndChecks(t *testing.T) {
	t.Parallel()

	e := newTestEcho(NewPingHandler(newTestLogger(), staticChecker{items: []healthcheck.CheckResult{{ID: "store.ping", Status: healthcheck.StatusOK}}}))
	rec := do(t, e, http.MethodGet, "/ping", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodHead, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/health/checks", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	failing := newTestEcho(NewPingHandler(newTestLogger(), staticChecker{items: []healthcheck.CheckResult{{ID: "store.ping", Status: healthcheck.StatusError}}}))
	rec = do(t, failing, http.MethodGet, "/health/checks", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
