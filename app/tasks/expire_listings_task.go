package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/market-comb/app/database"
	"github.com/lysyi3m/market-comb/app/market"
	"github.com/lysyi3m/market-comb/app/templates"
)

// ExpireListingsTask deletes listings older than the retention window, then
// removes their posts and tells the authors. Rows are deleted before the
// remote cleanup, so a failed removal is never attempted again.
type ExpireListingsTask struct {
	Task
	remote    RemoteClient
	store     Store
	community string
	retention time.Duration
	now       func() time.Time
}

func NewExpireListingsTask(remote RemoteClient, store Store, community string, retention time.Duration) *ExpireListingsTask {
	return &ExpireListingsTask{
		Task:      NewTask(TaskTypeExpireListings, LaneMaintenance),
		remote:    remote,
		store:     store,
		community: community,
		retention: retention,
		now:       time.Now,
	}
}

func (t *ExpireListingsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cutoff := t.now().Add(-t.retention)

	var expired []market.Record
	err := t.store.WithConn(ctx, func(s database.Session) error {
		var err error
		expired, err = s.Sales.ListExpired(ctx, cutoff)
		if err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}

		ids := make([]string, len(expired))
		for i, rec := range expired {
			ids[i] = rec.ID
		}
		_, err = s.Sales.DeleteByIDs(ctx, ids)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to expire listings: %w", err)
	}

	removed, notified := 0, 0
	for _, rec := range expired {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := t.remote.RemovePost(ctx, rec.ID); err != nil {
			slog.Warn("Failed to remove expired listing", "id", rec.ID, "error", err)
		} else {
			removed++
		}

		if err := t.notify(ctx, rec); err != nil {
			slog.Warn("Failed to notify author of expiry", "id", rec.ID, "author", rec.Author, "error", err)
		} else {
			notified++
		}
	}
	listingsExpired.Add(float64(len(expired)))

	slog.Info("Task completed",
		"type", "ExpireListings",
		"duration", t.GetDuration(),
		"expired", len(expired),
		"removed", removed,
		"notified", notified)

	return nil
}

func (t *ExpireListingsTask) notify(ctx context.Context, rec market.Record) error {
	text, err := templates.ExpiredNotice(rec.ID, t.community)
	if err != nil {
		return fmt.Errorf("%w: %w", market.ErrNotificationFailed, err)
	}
	if err := t.remote.SendDirectMessage(ctx, rec.Author, templates.Subject(t.community), text); err != nil {
		return fmt.Errorf("%w: %w", market.ErrNotificationFailed, err)
	}
	return nil
}
