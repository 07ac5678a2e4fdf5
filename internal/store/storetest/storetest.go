// Package storetest holds behaviour checks shared by every store driver.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/store"
)

// Run exercises s against the store contract. Each subtest uses fresh ids so
// a shared database is fine.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, s.Ping(ctx))
	})

	t.Run("UserCreateAndGet", func(t *testing.T) {
		id := "user-" + uuid.NewString()
		_, err := s.Users().Get(ctx, id)
		require.ErrorIs(t, err, store.ErrNotFound)

		created, err := s.Users().Create(ctx, conversation.UsageRecord{UserID: id, DisplayName: "Ana", ScansRemaining: 5})
		require.NoError(t, err)
		assert.Equal(t, id, created.UserID)

		_, err = s.Users().Create(ctx, conversation.UsageRecord{UserID: id})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		got, err := s.Users().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Ana", got.DisplayName)
		assert.Equal(t, 5, got.ScansRemaining)
		assert.Equal(t, 0, got.ScansToday)
	})

	t.Run("ReserveScanResetsOnNewDay", func(t *testing.T) {
		id := newUser(t, s, conversation.UsageRecord{LastScanDate: "2024-05-01", ScansToday: 7})

		rec, err := s.Users().ReserveScan(ctx, id, "2024-05-02", 3)
		require.NoError(t, err)
		assert.Equal(t, 1, rec.ScansToday)
		assert.Equal(t, "2024-05-02", rec.LastScanDate)
	})

	t.Run("ReserveScanEnforcesLimit", func(t *testing.T) {
		id := newUser(t, s, conversation.UsageRecord{})
		for i := 0; i < 2; i++ {
			_, err := s.Users().ReserveScan(ctx, id, "2024-05-02", 2)
			require.NoError(t, err)
		}
		_, err := s.Users().ReserveScan(ctx, id, "2024-05-02", 2)
		require.ErrorIs(t, err, store.ErrQuotaExceeded)

		require.NoError(t, s.Users().ReleaseScan(ctx, id, "2024-05-02"))
		rec, err := s.Users().ReserveScan(ctx, id, "2024-05-02", 2)
		require.NoError(t, err)
		assert.Equal(t, 2, rec.ScansToday)
	})

	t.Run("ReserveScanUnknownUser", func(t *testing.T) {
		_, err := s.Users().ReserveScan(ctx, "missing-"+uuid.NewString(), "2024-05-02", 2)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ReserveScanConcurrent", func(t *testing.T) {
		id := newUser(t, s, conversation.UsageRecord{})
		const limit, attempts = 3, 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			granted  int
			rejected int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Users().ReserveScan(ctx, id, "2024-05-03", limit)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					granted++
				case errors.Is(err, store.ErrQuotaExceeded):
					rejected++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, limit, granted)
		assert.Equal(t, attempts-limit, rejected)
	})

	t.Run("ReleaseScanIgnoresOtherDay", func(t *testing.T) {
		id := newUser(t, s, conversation.UsageRecord{LastScanDate: "2024-05-04", ScansToday: 1})
		require.NoError(t, s.Users().ReleaseScan(ctx, id, "2024-05-03"))
		got, err := s.Users().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ScansToday)
	})

	t.Run("CompleteScan", func(t *testing.T) {
		id := newUser(t, s, conversation.UsageRecord{CompletedScans: 2, ScansRemaining: 4})
		require.NoError(t, s.Users().CompleteScan(ctx, id))
		got, err := s.Users().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, got.CompletedScans)
		assert.Equal(t, 3, got.ScansRemaining)
	})

	t.Run("ConversationRevisions", func(t *testing.T) {
		id := uuid.NewString()
		conv := conversation.Conversation{
			ID:     id,
			UserID: "owner",
			Messages: []conversation.Message{
				{Role: conversation.RoleUser, Content: conversation.TextContent("hello"), FileURLs: []string{"https://cdn.example.com/a.jpg"}},
				{Role: conversation.RoleAssistant, Content: conversation.StructuredContent([]byte(`{"a":1}`))},
			},
			ContinuationToken: "resp_1",
		}
		saved, err := s.Conversations().Save(ctx, conv, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 1, saved.Revision)

		_, err = s.Conversations().Save(ctx, conv, 0)
		require.ErrorIs(t, err, store.ErrRevisionConflict)

		got, err := s.Conversations().Get(ctx, id)
		require.NoError(t, err)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, "hello", got.Messages[0].Content.Text())
		assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, got.Messages[0].FileURLs)
		assert.True(t, got.Messages[1].Content.IsStructured())
		assert.JSONEq(t, `{"a":1}`, got.Messages[1].Content.Text())
		assert.Equal(t, "resp_1", got.ContinuationToken)

		got.Messages = append(got.Messages, conversation.Message{Role: conversation.RoleUser, Content: conversation.TextContent("again")})
		got.ContinuationToken = "resp_2"
		updated, err := s.Conversations().Save(ctx, got, 1)
		require.NoError(t, err)
		assert.EqualValues(t, 2, updated.Revision)

		_, err = s.Conversations().Save(ctx, got, 1)
		require.ErrorIs(t, err, store.ErrRevisionConflict)

		final, err := s.Conversations().Get(ctx, id)
		require.NoError(t, err)
		assert.Len(t, final.Messages, 3)
		assert.Equal(t, "resp_2", final.ContinuationToken)

		_, err = s.Conversations().Get(ctx, uuid.NewString())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ConversationListByUser", func(t *testing.T) {
		owner := "owner-" + uuid.NewString()
		var ids []string
		for i := 0; i < 3; i++ {
			id := uuid.NewString()
			ids = append(ids, id)
			_, err := s.Conversations().Save(ctx, conversation.Conversation{ID: id, UserID: owner, Messages: []conversation.Message{}}, 0)
			require.NoError(t, err)
			time.Sleep(5 * time.Millisecond)
		}
		list, err := s.Conversations().ListByUser(ctx, owner, 2)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, ids[2], list[0].ID)
		assert.Equal(t, ids[1], list[1].ID)
	})

	t.Run("Interpretations", func(t *testing.T) {
		convID := uuid.NewString()
		created, err := s.Interpretations().Create(ctx, conversation.AnalysisArtifact{
			UserID:               "owner",
			URLs:                 []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
			InterpretationResult: "two scans",
			PromptMessage:        "compare",
			ConversationID:       convID,
			FilesCount:           2,
			AnalysisType:         conversation.AnalysisMultipleFiles,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		list, err := s.Interpretations().ListByConversation(ctx, convID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "two scans", list[0].InterpretationResult)
		assert.Equal(t, 2, list[0].FilesCount)
		assert.Len(t, list[0].URLs, 2)
	})
}

func newUser(t *testing.T, s store.Store, rec conversation.UsageRecord) string {
	t.Helper()
	rec.UserID = "user-" + uuid.NewString()
	_, err := s.Users().Create(context.Background(), rec)
	require.NoError(t, err)
	return rec.UserID
}
