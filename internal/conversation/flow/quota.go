package flow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/i18n"
	"github.com/microscanai/microscan/internal/quota"
	"github.com/microscanai/microscan/internal/store"
)

// reservation is daily capacity held for one media-bearing turn until the
// usage is committed or the turn fails.
type reservation struct {
	userID    string
	day       string
	committed bool
}

func (r *Resolver) reserveScan(ctx context.Context, user conversation.UsageRecord, lang string) (*reservation, error) {
	limitReached := conversation.NewError(conversation.KindInvalidArgument, i18n.T(lang, i18n.ScanLimitReached))
	day := quota.Today(r.opts.Now())
	if !quota.CanScan(user.LastScanDate, user.ScansToday, r.opts.DailyScanLimit, day) {
		return nil, limitReached
	}
	if _, err := r.store.Users().ReserveScan(ctx, user.UserID, day, r.opts.DailyScanLimit); err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			return nil, limitReached
		}
		r.logger.Error("reserve scan failed", slog.String("user_id", user.UserID), slog.Any("error", err))
		return nil, conversation.WrapError(conversation.KindInternal, i18n.T(lang, i18n.InternalFailure), err)
	}
	return &reservation{userID: user.UserID, day: day}, nil
}

func (r *Resolver) releaseScan(ctx context.Context, res *reservation) {
	if res == nil || res.committed {
		return
	}
	if err := r.store.Users().ReleaseScan(context.WithoutCancel(ctx), res.userID, res.day); err != nil {
		r.logger.Error("release scan failed", slog.String("user_id", res.userID), slog.Any("error", err))
	}
}
