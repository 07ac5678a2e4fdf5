package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/i18n"
	"github.com/microscanai/microscan/internal/store"
)

// workingHistory is the transcript a turn builds its prompt from.
type workingHistory struct {
	messages []conversation.Message
	// token is set only in stored mode; when set, messages are not replayed.
	token string
	// revision of the stored conversation. It is 0 both for a new conversation
	// and for an unversioned one written before revisions existed.
	revision int64
	found    bool
	stored   bool
}

// resolveHistory selects stored or inline mode. The conversation is looked up
// in both modes so ownership and revision are known before completion.
func (r *Resolver) resolveHistory(ctx context.Context, userID, conversationID string, turn conversation.Turn) (workingHistory, error) {
	lang := turn.Language
	var hist workingHistory

	existing, err := r.store.Conversations().Get(ctx, conversationID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		r.logger.Error("load conversation failed", slog.String("conversation_id", conversationID), slog.Any("error", err))
		return hist, conversation.WrapError(conversation.KindInternal, i18n.T(lang, i18n.InternalFailure), err)
	case existing.UserID != userID:
		return hist, conversation.NewError(conversation.KindNotFound, i18n.T(lang, i18n.NotFound))
	default:
		hist.found = true
		hist.revision = existing.Revision
	}

	switch {
	case turn.IncludePreviousHistory && strings.TrimSpace(turn.ConversationID) != "":
		hist.stored = true
		if hist.found {
			hist.messages = existing.Messages
			hist.token = existing.ContinuationToken
		}
	case len(turn.History) > 0:
		hist.messages = turn.History
	}

	if len(hist.messages) > r.opts.MaxHistory {
		return hist, conversation.NewError(conversation.KindInvalidArgument,
			fmt.Sprintf("%s (%d messages max)", i18n.T(lang, i18n.HistoryTooLong), r.opts.MaxHistory))
	}
	return hist, nil
}
