package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/store"
	"github.com/microscanai/microscan/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, New())
}

func TestSaveAdoptsUnversionedConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	s.conversations["c1"] = conversation.Conversation{ID: "c1", UserID: "u1", ContinuationToken: "resp_prev"}

	convs := s.Conversations()
	if _, err := convs.Save(ctx, conversation.Conversation{ID: "c1", UserID: "u1"}, 1); !errors.Is(err, store.ErrRevisionConflict) {
		t.Fatalf("update of unversioned conversation: got %v, want conflict", err)
	}
	saved, err := convs.Save(ctx, conversation.Conversation{ID: "c1", UserID: "u1", ContinuationToken: "resp_new"}, 0)
	if err != nil {
		t.Fatalf("adopt: %v", err)
	}
	if saved.Revision != 1 || saved.ContinuationToken != "resp_new" {
		t.Fatalf("unexpected saved conversation: %+v", saved)
	}
	if _, err := convs.Save(ctx, saved, 0); !errors.Is(err, store.ErrRevisionConflict) {
		t.Fatalf("create over versioned conversation: got %v, want conflict", err)
	}
}
