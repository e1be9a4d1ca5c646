package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/lysyi3m/market-comb/app/database"
	"github.com/lysyi3m/market-comb/app/market"
)

// UpdateDigestTask regenerates the pinned digest of live listings. The post
// is edited in place until it is older than maxAge, then replaced.
type UpdateDigestTask struct {
	Task
	remote    RemoteClient
	store     Store
	community string
	title     string
	slot      int
	maxAge    time.Duration
	rng       *rand.Rand
	now       func() time.Time
}

func NewUpdateDigestTask(remote RemoteClient, store Store, community, title string, slot int, maxAge time.Duration) *UpdateDigestTask {
	return &UpdateDigestTask{
		Task:      NewTask(TaskTypeUpdateDigest, LaneMaintenance),
		remote:    remote,
		store:     store,
		community: community,
		title:     title,
		slot:      slot,
		maxAge:    maxAge,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:       time.Now,
	}
}

func (t *UpdateDigestTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var records []market.Record
	err := t.store.WithConn(ctx, func(s database.Session) error {
		var err error
		records, err = s.Sales.ListApproved(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load listings: %w", err)
	}

	sections := market.ComposeDigest(records, t.rng)
	text := market.RenderDigest(sections, t.community)

	pinned, err := t.remote.GetPinned(ctx, t.community, t.slot)
	if err != nil {
		return fmt.Errorf("failed to fetch pinned digest: %w", err)
	}

	var action string
	switch {
	case pinned == nil:
		action = "created"
		err = t.publish(ctx, text)
	case t.now().Sub(pinned.CreatedAt) > t.maxAge:
		action = "replaced"
		if err = t.remote.RemovePost(ctx, pinned.ID); err != nil {
			return fmt.Errorf("failed to remove digest %s: %w", pinned.ID, err)
		}
		err = t.publish(ctx, text)
	default:
		action = "edited"
		err = t.remote.EditPost(ctx, pinned.ID, text)
	}
	if err != nil {
		return fmt.Errorf("failed to update digest: %w", err)
	}
	digestUpdates.WithLabelValues(action).Inc()

	slog.Info("Task completed",
		"type", "UpdateDigest",
		"duration", t.GetDuration(),
		"action", action,
		"listings", len(records),
		"categories", len(sections))

	return nil
}

func (t *UpdateDigestTask) publish(ctx context.Context, text string) error {
	post, err := t.remote.SubmitPost(ctx, market.SubmitParams{
		Community:   t.community,
		Title:       t.title,
		Body:        text,
		SendReplies: false,
	})
	if err != nil {
		return err
	}
	if err := t.remote.Approve(ctx, post.ID); err != nil {
		return err
	}
	return t.remote.Pin(ctx, post.ID, t.slot)
}
