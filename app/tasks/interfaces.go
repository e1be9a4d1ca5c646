package tasks

import (
	"context"

	"github.com/lysyi3m/market-comb/app/database"
	"github.com/lysyi3m/market-comb/app/market"
)

// RemoteClient is the subset of the reddit API the cycles rely on.
// Implemented by reddit.Client and reddit.FeedClient.
type RemoteClient interface {
	ListRecent(ctx context.Context, source string) ([]market.Candidate, error)
	ListModerators(ctx context.Context, source string) ([]string, error)
	FetchAuthorStats(ctx context.Context, author string) (market.AuthorStats, error)
	SubmitPost(ctx context.Context, params market.SubmitParams) (market.Post, error)
	EditPost(ctx context.Context, id, body string) error
	RemovePost(ctx context.Context, id string) error
	SendDirectMessage(ctx context.Context, to, subject, body string) error
	Approve(ctx context.Context, id string) error
	SetFlair(ctx context.Context, community, id, text, cssClass string) error
	Pin(ctx context.Context, id string, slot int) error
	GetPinned(ctx context.Context, community string, slot int) (*market.Post, error)
}

// Store hands out repositories bound to one connection for the duration of fn.
// Implemented by *database.DB.
type Store interface {
	WithConn(ctx context.Context, fn func(s database.Session) error) error
}

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to manage background cycles.
// Example usage:
//
//	scheduler := NewScheduler(factory, locker)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.Trigger(LaneDiscovery)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Trigger(lane Lane) error
}
