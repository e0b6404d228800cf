package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/innov8academy/newsletter-auto/internal/news"
	"github.com/innov8academy/newsletter-auto/internal/storage"
	"github.com/innov8academy/newsletter-auto/internal/telegram"
)

var ErrTelegramDisabled = errors.New("telegram is not configured")

func (a *App) saveReport(ctx context.Context, res *news.Result) (*storage.Report, error) {
	if a.store == nil {
		return nil, nil
	}

	r := storage.Report{
		ID:        uuid.NewString(),
		CreatedAt: a.now().UTC(),
		Stories:   res.Stories,
		Stats:     res.Stats,
	}
	if err := a.store.SaveReport(ctx, r); err != nil {
		return nil, err
	}
	a.metrics.IncrementReportsSaved()
	a.logger.Info("report saved", "id", r.ID, "stories", len(r.Stories))
	return &r, nil
}

// Notify posts the best stories not delivered before as a digest. It returns
// how many stories were sent.
func (a *App) Notify(ctx context.Context, res *news.Result) (int, error) {
	if a.notifier == nil {
		return 0, ErrTelegramDisabled
	}

	fresh := make([]news.CuratedStory, 0, len(res.Stories))
	for _, s := range res.Stories {
		sent, err := a.alreadySent(ctx, s)
		if err != nil {
			a.logger.Warn("sent check failed", "headline", s.Headline, "error", err)
		}
		if !sent {
			fresh = append(fresh, s)
		}
		if len(fresh) == a.cfg.DigestSize {
			break
		}
	}

	if len(fresh) == 0 {
		a.logger.Info("no new stories to send")
		return 0, nil
	}

	if err := a.notifier.SendMessage(ctx, telegram.FormatDigest(fresh, a.cfg.DigestSize)); err != nil {
		return 0, fmt.Errorf("send digest: %w", err)
	}
	a.metrics.IncrementTelegramMessagesSent()

	if a.store != nil {
		for _, s := range fresh {
			if err := a.store.MarkAsSent(ctx, storage.StoryKey(s.Headline, s.OriginalURL), s.Headline, s.OriginalURL); err != nil {
				a.logger.Warn("failed to mark story as sent", "headline", s.Headline, "error", err)
			}
		}
		if err := a.store.Cleanup(ctx); err != nil {
			a.logger.Warn("sent stories cleanup failed", "error", err)
		}
	}

	a.logger.Info("digest sent", "stories", len(fresh))
	return len(fresh), nil
}

func (a *App) alreadySent(ctx context.Context, s news.CuratedStory) (bool, error) {
	if a.store == nil {
		return false, nil
	}
	return a.store.IsAlreadySent(ctx, storage.StoryKey(s.Headline, s.OriginalURL))
}

// Reports returns up to limit persisted reports, newest first.
func (a *App) Reports(ctx context.Context, limit int) ([]storage.Report, error) {
	if a.store == nil {
		return []storage.Report{}, nil
	}
	return a.store.ListReports(ctx, limit)
}
