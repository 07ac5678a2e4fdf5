package flow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/microscanai/microscan/internal/chat"
	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/i18n"
	"github.com/microscanai/microscan/internal/media"
	"github.com/microscanai/microscan/internal/prune"
	"github.com/microscanai/microscan/internal/quota"
	"github.com/microscanai/microscan/internal/store"
)

const (
	// MaxHistoryMessages is the largest working history a turn may carry.
	MaxHistoryMessages = 60
	// MaxFilesPerTurn is the largest number of media locators per turn.
	MaxFilesPerTurn = 10

	defaultEffort          = "low"
	defaultMaxOutputTokens = 4096
	completedStatus        = "Analysis completed"
)

// MediaInliner fetches media locators into inline prompt content.
type MediaInliner interface {
	Inline(ctx context.Context, locators []string) ([]media.InlinedMedium, error)
}

// Runner runs one chat turn end to end.
type Runner interface {
	Chat(ctx context.Context, turn conversation.Turn) (conversation.ChatResponse, error)
}

// Options tunes the resolver. Zero values fall back to production defaults.
type Options struct {
	Instructions    string
	Effort          string
	MaxOutputTokens int64
	DailyScanLimit  int
	MaxHistory      int
	Now             func() time.Time
	NewID           func() string
}

// Resolver runs one chat turn: validate, guard quota, resolve history,
// inline media, complete, persist and respond.
type Resolver struct {
	store    store.Store
	media    MediaInliner
	provider chat.Provider
	opts     Options
	logger   *slog.Logger
}

// NewResolver creates a Resolver over explicitly constructed collaborators.
func NewResolver(log *slog.Logger, st store.Store, inliner MediaInliner, provider chat.Provider, opts Options) *Resolver {
	if opts.Instructions == "" {
		opts.Instructions = chat.DefaultSystemPrompt()
	}
	if opts.Effort == "" {
		opts.Effort = defaultEffort
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = defaultMaxOutputTokens
	}
	if opts.DailyScanLimit <= 0 {
		opts.DailyScanLimit = quota.DailyScanLimit
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = MaxHistoryMessages
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Resolver{
		store:    st,
		media:    inliner,
		provider: provider,
		opts:     opts,
		logger:   log.With(slog.String("service", "conversation_resolver")),
	}
}

// Chat runs one turn and returns the caller-facing result. Failures are
// *conversation.Error values carrying the caller-visible kind.
func (r *Resolver) Chat(ctx context.Context, turn conversation.Turn) (conversation.ChatResponse, error) {
	user, err := r.validate(ctx, turn)
	if err != nil {
		return conversation.ChatResponse{}, err
	}
	lang := turn.Language

	var scan *reservation
	if turn.HasMedia() {
		scan, err = r.reserveScan(ctx, user, lang)
		if err != nil {
			return conversation.ChatResponse{}, err
		}
		defer r.releaseScan(ctx, scan)
	}

	conversationID := strings.TrimSpace(turn.ConversationID)
	if conversationID == "" {
		conversationID = r.opts.NewID()
	}
	hist, err := r.resolveHistory(ctx, user.UserID, conversationID, turn)
	if err != nil {
		return conversation.ChatResponse{}, err
	}

	inlined, err := r.media.Inline(ctx, turn.FileURLs)
	if err != nil {
		r.logger.Error("media ingestion failed",
			slog.String("user_id", user.UserID),
			slog.String("conversation_id", conversationID),
			slog.Any("error", err),
		)
		return conversation.ChatResponse{}, conversation.WrapError(conversation.KindInternal, i18n.T(lang, i18n.MediaFailure), err)
	}

	result, err := r.provider.Complete(ctx, chat.Request{
		Instructions:      chat.Instructions(r.opts.Instructions, lang),
		Input:             chat.BuildInput(hist.messages, hist.token == "", turn.UserMessage, inlined),
		ContinuationToken: hist.token,
		Effort:            r.opts.Effort,
		MaxOutputTokens:   r.opts.MaxOutputTokens,
	})
	if err != nil {
		r.logger.Error("completion failed",
			slog.String("user_id", user.UserID),
			slog.String("conversation_id", conversationID),
			slog.Bool("continued", hist.token != ""),
			slog.Any("error", err),
		)
		return conversation.ChatResponse{}, conversation.WrapError(conversation.KindInternal, i18n.T(lang, i18n.InternalFailure), err)
	}
	r.logger.Info("completion received",
		slog.String("conversation_id", conversationID),
		slog.Int("files", len(turn.FileURLs)),
		slog.String("preview", prune.Preview(result.Text, prune.DefaultMaxBytes)),
	)

	saved, err := r.persist(ctx, persistInput{
		turn:           turn,
		userID:         user.UserID,
		conversationID: conversationID,
		history:        hist,
		result:         result,
		scan:           scan,
	})
	if err != nil {
		return conversation.ChatResponse{}, err
	}

	return conversation.ChatResponse{
		Success:              true,
		Message:              completedStatus,
		InterpretationResult: result.Text,
		PromptMessage:        turn.UserMessage,
		FilesCount:           len(turn.FileURLs),
		CreatedAt:            r.opts.Now().UTC(),
		ConversationID:       saved.ID,
	}, nil
}
