// Package memory is an in-process store used by tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/store"
)

// Store keeps every collection in maps guarded by a single mutex.
type Store struct {
	mu              sync.Mutex
	now             func() time.Time
	users           map[string]conversation.UsageRecord
	conversations   map[string]conversation.Conversation
	interpretations []conversation.AnalysisArtifact
}

// New creates an empty store.
func New() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		users:         map[string]conversation.UsageRecord{},
		conversations: map[string]conversation.Conversation{},
	}
}

func (s *Store) Users() store.Users                     { return (*users)(s) }
func (s *Store) Conversations() store.Conversations     { return (*conversations)(s) }
func (s *Store) Interpretations() store.Interpretations { return (*interpretations)(s) }

func (s *Store) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *Store) Close(ctx context.Context) error { return nil }

type users Store

func (u *users) Get(ctx context.Context, userID string) (conversation.UsageRecord, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.users[userID]
	if !ok {
		return conversation.UsageRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (u *users) Create(ctx context.Context, rec conversation.UsageRecord) (conversation.UsageRecord, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[rec.UserID]; ok {
		return conversation.UsageRecord{}, store.ErrAlreadyExists
	}
	now := u.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	u.users[rec.UserID] = rec
	return rec, nil
}

func (u *users) ReserveScan(ctx context.Context, userID, day string, limit int) (conversation.UsageRecord, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.users[userID]
	if !ok {
		return conversation.UsageRecord{}, store.ErrNotFound
	}
	if rec.LastScanDate != day {
		rec.ScansToday = 0
	}
	if rec.ScansToday >= limit {
		return conversation.UsageRecord{}, store.ErrQuotaExceeded
	}
	rec.ScansToday++
	rec.LastScanDate = day
	rec.UpdatedAt = u.now()
	u.users[userID] = rec
	return rec, nil
}

func (u *users) ReleaseScan(ctx context.Context, userID, day string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if rec.LastScanDate != day || rec.ScansToday == 0 {
		return nil
	}
	rec.ScansToday--
	rec.UpdatedAt = u.now()
	u.users[userID] = rec
	return nil
}

func (u *users) CompleteScan(ctx context.Context, userID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	rec.CompletedScans++
	rec.ScansRemaining--
	rec.UpdatedAt = u.now()
	u.users[userID] = rec
	return nil
}

type conversations Store

func (c *conversations) Get(ctx context.Context, conversationID string) (conversation.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.conversations[conversationID]
	if !ok {
		return conversation.Conversation{}, store.ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (c *conversations) Save(ctx context.Context, conv conversation.Conversation, expectedRevision int64) (conversation.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, exists := c.conversations[conv.ID]
	now := c.now()
	switch {
	case expectedRevision == 0 && exists && current.Revision != 0:
		return conversation.Conversation{}, store.ErrRevisionConflict
	case expectedRevision == 0 && !exists:
		conv.CreatedAt = now
	case !exists || current.Revision != expectedRevision:
		return conversation.Conversation{}, store.ErrRevisionConflict
	default:
		conv.CreatedAt = current.CreatedAt
	}
	conv.Revision = expectedRevision + 1
	conv.UpdatedAt = now
	c.conversations[conv.ID] = cloneConversation(conv)
	return conv, nil
}

func (c *conversations) ListByUser(ctx context.Context, userID string, limit int) ([]conversation.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]conversation.Conversation, 0)
	for _, conv := range c.conversations {
		if conv.UserID == userID {
			out = append(out, cloneConversation(conv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type interpretations Store

func (i *interpretations) Create(ctx context.Context, a conversation.AnalysisArtifact) (conversation.AnalysisArtifact, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = i.now()
	}
	a.URLs = append([]string(nil), a.URLs...)
	i.interpretations = append(i.interpretations, a)
	return a, nil
}

func (i *interpretations) ListByConversation(ctx context.Context, conversationID string) ([]conversation.AnalysisArtifact, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]conversation.AnalysisArtifact, 0)
	for _, a := range i.interpretations {
		if a.ConversationID == conversationID {
			out = append(out, a)
		}
	}
	return out, nil
}

func cloneConversation(conv conversation.Conversation) conversation.Conversation {
	msgs := make([]conversation.Message, len(conv.Messages))
	for i, m := range conv.Messages {
		m.FileURLs = append([]string(nil), m.FileURLs...)
		msgs[i] = m
	}
	conv.Messages = msgs
	return conv
}
