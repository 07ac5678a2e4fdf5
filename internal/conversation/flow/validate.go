package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/i18n"
	"github.com/microscanai/microscan/internal/store"
)

var turnValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// validate checks identity and request shape before any I/O, then loads the
// user record. It returns the record the rest of the turn acts on.
func (r *Resolver) validate(ctx context.Context, turn conversation.Turn) (conversation.UsageRecord, error) {
	lang := turn.Language
	caller := strings.TrimSpace(turn.CallerID)
	if caller == "" {
		return conversation.UsageRecord{}, conversation.NewError(conversation.KindUnauthenticated, i18n.T(lang, i18n.UserIDMissing))
	}
	userID := strings.TrimSpace(turn.UserID)
	if userID == "" {
		userID = caller
	}
	if userID != caller {
		return conversation.UsageRecord{}, conversation.NewError(conversation.KindUnauthenticated, i18n.T(lang, i18n.UserIDMissing))
	}

	if err := turnValidator.Struct(turn); err != nil {
		return conversation.UsageRecord{}, conversation.WrapError(conversation.KindInvalidArgument, validationMessage(lang, err), err)
	}

	user, err := r.store.Users().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return conversation.UsageRecord{}, conversation.NewError(conversation.KindNotFound, i18n.T(lang, i18n.NoUserFound))
	}
	if err != nil {
		r.logger.Error("load user failed", slog.String("user_id", userID), slog.Any("error", err))
		return conversation.UsageRecord{}, conversation.WrapError(conversation.KindInternal, i18n.T(lang, i18n.InternalFailure), err)
	}
	return user, nil
}

func validationMessage(lang string, err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid request"
	}
	fe := fieldErrs[0]
	switch {
	case fe.Field() == "UserMessage":
		return i18n.T(lang, i18n.MessageRequired)
	case fe.Field() == "FileURLs" && fe.Tag() == "max":
		return i18n.T(lang, i18n.TooManyFiles)
	case strings.HasPrefix(fe.Field(), "FileURLs"):
		return "File URLs must not be empty"
	default:
		return "Invalid " + fe.Field()
	}
}
