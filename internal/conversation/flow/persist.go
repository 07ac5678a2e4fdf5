package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/microscanai/microscan/internal/chat"
	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/i18n"
	"github.com/microscanai/microscan/internal/store"
)

type persistInput struct {
	turn           conversation.Turn
	userID         string
	conversationID string
	history        workingHistory
	result         chat.Result
	scan           *reservation
}

// persist appends the user/assistant pair to the transcript, then records the
// analysis artifact and commits usage for media-bearing turns. The writes are
// independent; a failure leaves earlier writes in place.
func (r *Resolver) persist(ctx context.Context, in persistInput) (conversation.Conversation, error) {
	lang := in.turn.Language
	internal := func(step string, err error) error {
		r.logger.Error("persist failed",
			slog.String("step", step),
			slog.String("conversation_id", in.conversationID),
			slog.Any("error", err),
		)
		return conversation.WrapError(conversation.KindInternal, i18n.T(lang, i18n.InternalFailure), err)
	}

	saved, err := r.saveTranscript(ctx, in)
	if err != nil {
		if conversation.KindOf(err) != conversation.KindInternal {
			return conversation.Conversation{}, err
		}
		return conversation.Conversation{}, internal("conversation", err)
	}

	if !in.turn.HasMedia() {
		return saved, nil
	}
	artifact := conversation.AnalysisArtifact{
		ID:                   r.opts.NewID(),
		UserID:               in.userID,
		URLs:                 append([]string(nil), in.turn.FileURLs...),
		InterpretationResult: in.result.Text,
		PromptMessage:        in.turn.UserMessage,
		ConversationID:       saved.ID,
		FilesCount:           len(in.turn.FileURLs),
		AnalysisType:         conversation.AnalysisTypeFor(len(in.turn.FileURLs)),
		CreatedAt:            r.opts.Now().UTC(),
	}
	if _, err := r.store.Interpretations().Create(ctx, artifact); err != nil {
		return conversation.Conversation{}, internal("interpretation", err)
	}
	if err := r.store.Users().CompleteScan(ctx, in.userID); err != nil {
		return conversation.Conversation{}, internal("usage", err)
	}
	if in.scan != nil {
		in.scan.committed = true
	}
	return saved, nil
}

// saveTranscript writes history + the new pair under the revision observed at
// resolution. On a revision conflict it re-reads once and rebases; a second
// conflict fails the turn.
func (r *Resolver) saveTranscript(ctx context.Context, in persistInput) (conversation.Conversation, error) {
	userMsg := conversation.Message{
		Role:    conversation.RoleUser,
		Content: conversation.TextContent(in.turn.UserMessage),
	}
	if in.turn.HasMedia() {
		userMsg.FileURLs = append([]string(nil), in.turn.FileURLs...)
	}
	pair := []conversation.Message{
		userMsg,
		{Role: conversation.RoleAssistant, Content: conversation.TextContent(in.result.Text)},
	}

	base := in.history.messages
	revision := in.history.revision
	for attempt := 0; ; attempt++ {
		conv := conversation.Conversation{
			ID:                in.conversationID,
			UserID:            in.userID,
			Messages:          appendMessages(base, pair),
			ContinuationToken: in.result.ID,
		}
		saved, err := r.store.Conversations().Save(ctx, conv, revision)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, store.ErrRevisionConflict) {
			return conversation.Conversation{}, fmt.Errorf("save conversation: %w", err)
		}
		if attempt > 0 {
			r.logger.Warn("conversation revision conflict", slog.String("conversation_id", in.conversationID))
			return conversation.Conversation{}, conversation.WrapError(conversation.KindConflict, i18n.T(in.turn.Language, i18n.Conflict), err)
		}

		fresh, err := r.store.Conversations().Get(ctx, in.conversationID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			revision = 0
			if in.history.stored {
				base = nil
			}
		case err != nil:
			return conversation.Conversation{}, fmt.Errorf("reload conversation: %w", err)
		case fresh.UserID != in.userID:
			return conversation.Conversation{}, conversation.NewError(conversation.KindNotFound, i18n.T(in.turn.Language, i18n.NotFound))
		default:
			revision = fresh.Revision
			if in.history.stored {
				base = fresh.Messages
			}
		}
	}
}

func appendMessages(base, pair []conversation.Message) []conversation.Message {
	out := make([]conversation.Message, 0, len(base)+len(pair))
	out = append(out, base...)
	return append(out, pair...)
}
