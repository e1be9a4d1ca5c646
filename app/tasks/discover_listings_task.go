package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/market-comb/app/cache"
	"github.com/lysyi3m/market-comb/app/database"
	"github.com/lysyi3m/market-comb/app/market"
	"github.com/lysyi3m/market-comb/app/source"
	"github.com/lysyi3m/market-comb/app/templates"
)

const (
	unstructuredFlairText = "Unstructured"
	unstructuredFlairCSS  = "unstructured"
)

type candidateOutcome string

const (
	outcomeReposted  candidateOutcome = "reposted"
	outcomeLowKarma  candidateOutcome = "low_karma"
	outcomeDuplicate candidateOutcome = "duplicate"
	outcomeFailed    candidateOutcome = "failed"
)

// DiscoverListingsTask polls every source, filters the new posts and reposts
// the eligible ones into the target community.
type DiscoverListingsTask struct {
	Task
	registry    *source.Registry
	remote      RemoteClient
	store       Store
	filterer    *market.Filterer
	moderators  cache.ModeratorCache
	community   string
	dedupWindow time.Duration
	now         func() time.Time
}

func NewDiscoverListingsTask(registry *source.Registry, remote RemoteClient, store Store, filterer *market.Filterer,
	moderators cache.ModeratorCache, community string, dedupWindow time.Duration) *DiscoverListingsTask {
	return &DiscoverListingsTask{
		Task:        NewTask(TaskTypeDiscoverListings, LaneDiscovery),
		registry:    registry,
		remote:      remote,
		store:       store,
		filterer:    filterer,
		moderators:  moderators,
		community:   community,
		dedupWindow: dedupWindow,
		now:         time.Now,
	}
}

func (t *DiscoverListingsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := t.now()
	result := t.collect(ctx, now)

	for verdict, n := range result.Rejected {
		candidatesEvaluated.WithLabelValues(string(verdict)).Add(float64(n))
	}
	candidatesEvaluated.WithLabelValues(string(market.Accepted)).Add(float64(len(result.Accepted)))

	if len(result.Accepted) == 0 {
		slog.Info("Task completed",
			"type", "DiscoverListings",
			"duration", t.GetDuration(),
			"accepted", 0,
			"rejected", result.RejectedCount())
		return nil
	}

	outcomes := make(map[candidateOutcome]int)
	for _, candidate := range result.Accepted {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := t.process(ctx, candidate, now)
		if err != nil {
			if errors.Is(err, market.ErrStoreUnavailable) {
				return fmt.Errorf("failed to process candidates: %w", err)
			}
			slog.Warn("Candidate aborted", "id", candidate.ID, "source", candidate.Source, "author", candidate.Author, "error", err)
			outcome = outcomeFailed
		}
		outcomes[outcome]++
		candidateOutcomes.WithLabelValues(string(outcome)).Inc()
	}

	slog.Info("Task completed",
		"type", "DiscoverListings",
		"duration", t.GetDuration(),
		"accepted", len(result.Accepted),
		"rejected", result.RejectedCount(),
		"reposted", outcomes[outcomeReposted],
		"duplicates", outcomes[outcomeDuplicate],
		"low_karma", outcomes[outcomeLowKarma],
		"failed", outcomes[outcomeFailed])

	return nil
}

// collect fetches and filters every source in registry order, then drops
// candidates authored by a moderator of any polled source.
func (t *DiscoverListingsTask) collect(ctx context.Context, now time.Time) market.FilterResult {
	result := market.FilterResult{Rejected: make(map[market.Verdict]int)}
	mods := market.NewModeratorSet()

	for _, src := range t.registry.Sources() {
		if ctx.Err() != nil {
			break
		}

		candidates, err := t.remote.ListRecent(ctx, src.Name)
		if err != nil {
			slog.Warn("Failed to list source, skipping", "source", src.Name, "error", err)
			sourceFailures.WithLabelValues(src.Name, "listing").Inc()
			continue
		}

		names, err := t.listModerators(ctx, src.Name)
		if err != nil {
			slog.Warn("Failed to list source moderators, skipping", "source", src.Name, "error", err)
			sourceFailures.WithLabelValues(src.Name, "moderators").Inc()
			continue
		}
		mods.Add(names...)

		category := t.registry.Category(src.Name)
		for i := range candidates {
			candidates[i].Source = src.Name
			candidates[i].Category = category
		}

		sourceResult := t.filterer.Run(candidates, src.Policy(), now)
		slog.Debug("Source filtered",
			"source", src.Name,
			"fetched", len(candidates),
			"accepted", len(sourceResult.Accepted),
			"rejected", sourceResult.Rejected)
		result = result.Merge(sourceResult)
	}

	return market.ExcludeModerators(result, mods)
}

func (t *DiscoverListingsTask) listModerators(ctx context.Context, name string) ([]string, error) {
	if t.moderators != nil {
		names, ok, err := t.moderators.Get(ctx, name)
		if err != nil {
			slog.Warn("Moderator cache read failed", "source", name, "error", err)
		} else if ok {
			return names, nil
		}
	}

	names, err := t.remote.ListModerators(ctx, name)
	if err != nil {
		return nil, err
	}

	if t.moderators != nil {
		if err := t.moderators.Set(ctx, name, names); err != nil {
			slog.Warn("Moderator cache write failed", "source", name, "error", err)
		}
	}
	return names, nil
}

// process runs the repost sequence for one accepted candidate. Remote errors
// abort the candidate; store errors wrap ErrStoreUnavailable and abort the cycle.
// A store connection is held only around the dedup lookup and the final
// writes, never across remote calls.
func (t *DiscoverListingsTask) process(ctx context.Context, c market.Candidate, now time.Time) (candidateOutcome, error) {
	stats, err := t.remote.FetchAuthorStats(ctx, c.Author)
	if err != nil {
		return "", fmt.Errorf("failed to fetch author: %w", err)
	}
	if !stats.Reputable() {
		slog.Debug("Author karma below zero, skipping", "author", c.Author, "comment_karma", stats.CommentKarma, "link_karma", stats.LinkKarma)
		return outcomeLowKarma, nil
	}

	author := stats.Name
	if author == "" {
		author = c.Author
	}

	var existing string
	err = t.store.WithConn(ctx, func(s database.Session) error {
		var err error
		existing, err = s.Sales.FindRecentUnstructured(ctx, author, now.Add(-t.dedupWindow))
		return err
	})
	if err != nil {
		return "", err
	}
	if existing != "" {
		slog.Debug("Author already reposted recently, skipping", "author", author, "existing", existing)
		return outcomeDuplicate, nil
	}

	body, err := templates.RepostBody(c.Permalink, c.Body)
	if err != nil {
		return "", err
	}

	repost, err := t.remote.SubmitPost(ctx, market.SubmitParams{
		Community:   t.community,
		Title:       c.Title,
		Body:        body,
		SendReplies: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to submit repost: %w", err)
	}

	if err := t.remote.Approve(ctx, repost.ID); err != nil {
		return "", fmt.Errorf("failed to approve repost %s: %w", repost.ID, err)
	}
	if err := t.remote.SetFlair(ctx, t.community, repost.ID, unstructuredFlairText, unstructuredFlairCSS); err != nil {
		return "", fmt.Errorf("failed to flair repost %s: %w", repost.ID, err)
	}

	title := repost.Title
	if title == "" {
		title = c.Title
	}
	err = t.store.WithConn(ctx, func(s database.Session) error {
		if _, err := s.Users.EnsureUser(ctx, author); err != nil {
			return err
		}
		return s.Sales.Insert(ctx, market.Record{
			ID:           repost.ID,
			Author:       author,
			CreatedAt:    repost.CreatedAt,
			Unstructured: true,
			Approved:     true,
			Promoted:     false,
			Payload:      market.Payload{Title: title, Category: c.Category},
		})
	})
	if err != nil {
		return "", err
	}

	if err := t.notify(ctx, author, c.Permalink, repost); err != nil {
		slog.Warn("Failed to notify author", "author", author, "repost", repost.ID, "error", err)
	}

	slog.Debug("Candidate reposted", "id", c.ID, "source", c.Source, "repost", repost.ID, "author", author)
	return outcomeReposted, nil
}

func (t *DiscoverListingsTask) notify(ctx context.Context, author, original string, repost market.Post) error {
	link := repost.Permalink
	if link == "" {
		link = market.ThreadPath(t.community, repost.ID)
	}

	text, err := templates.RepostNotice(original, link, t.community)
	if err != nil {
		return fmt.Errorf("%w: %w", market.ErrNotificationFailed, err)
	}
	if err := t.remote.SendDirectMessage(ctx, author, templates.Subject(t.community), text); err != nil {
		return fmt.Errorf("%w: %w", market.ErrNotificationFailed, err)
	}
	return nil
}
