// Package store defines the document persistence used by the chat pipeline.
// Implementations live under internal/store/<driver>/.
package store

import (
	"context"
	"errors"

	"github.com/microscanai/microscan/internal/conversation"
)

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrRevisionConflict indicates a conversation changed since it was read.
	ErrRevisionConflict = errors.New("conversation revision conflict")
	// ErrQuotaExceeded indicates the daily scan limit leaves no capacity.
	ErrQuotaExceeded = errors.New("daily scan limit reached")
	// ErrAlreadyExists indicates a document with the same key exists.
	ErrAlreadyExists = errors.New("document already exists")
)

// Store exposes the collections required by the chat pipeline.
type Store interface {
	Users() Users
	Conversations() Conversations
	Interpretations() Interpretations
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Users reads and updates per-user usage records.
type Users interface {
	Get(ctx context.Context, userID string) (conversation.UsageRecord, error)
	Create(ctx context.Context, u conversation.UsageRecord) (conversation.UsageRecord, error)
	// ReserveScan atomically increments scansToday for day, resetting the
	// counter when lastScanDate is another day, and fails with
	// ErrQuotaExceeded when limit is already reached.
	ReserveScan(ctx context.Context, userID, day string, limit int) (conversation.UsageRecord, error)
	// ReleaseScan gives back a reservation made for day.
	ReleaseScan(ctx context.Context, userID, day string) error
	// CompleteScan commits a reservation: completedScans+1, scansRemaining-1.
	CompleteScan(ctx context.Context, userID string) error
}

// Conversations stores chat transcripts.
type Conversations interface {
	Get(ctx context.Context, conversationID string) (conversation.Conversation, error)
	// Save creates the conversation when expectedRevision is 0, otherwise it
	// replaces it only if the stored revision still equals expectedRevision.
	// A stored conversation without a revision counts as revision 0, so
	// expectedRevision 0 also adopts it. Both paths fail with
	// ErrRevisionConflict when that does not hold.
	Save(ctx context.Context, conv conversation.Conversation, expectedRevision int64) (conversation.Conversation, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]conversation.Conversation, error)
}

// Interpretations stores analysis artifacts of media-bearing turns.
type Interpretations interface {
	Create(ctx context.Context, a conversation.AnalysisArtifact) (conversation.AnalysisArtifact, error)
	ListByConversation(ctx context.Context, conversationID string) ([]conversation.AnalysisArtifact, error)
}
