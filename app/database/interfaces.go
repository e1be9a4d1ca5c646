package database

import (
	"context"
	"time"

	"github.com/lysyi3m/market-comb/app/market"
)

type SalesStore interface {
	FindRecentUnstructured(ctx context.Context, author string, since time.Time) (string, error)
	Insert(ctx context.Context, rec market.Record) error
	ListExpired(ctx context.Context, cutoff time.Time) ([]market.Record, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	ListApproved(ctx context.Context) ([]market.Record, error)
	ListRecent(ctx context.Context, limit int) ([]market.Record, error)
	SetPromoted(ctx context.Context, id string, promoted bool) (bool, error)
	GetStats(ctx context.Context) (total, approved, promoted int, err error)
}

type UserStore interface {
	EnsureUser(ctx context.Context, name string) (market.User, error)
	GetUser(ctx context.Context, name string) (market.User, error)
	Count(ctx context.Context) (int, error)
}

var (
	_ SalesStore = (*SalesRepository)(nil)
	_ UserStore  = (*UserRepository)(nil)
)
