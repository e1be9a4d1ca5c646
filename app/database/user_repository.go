package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lysyi3m/market-comb/app/market"
)

// UserRepository handles database operations for marketplace users
type UserRepository struct {
	q       querier
	dialect Dialect
}

func NewUserRepository(q querier, dialect Dialect) *UserRepository {
	return &UserRepository{q: q, dialect: dialect}
}

// EnsureUser creates the user row when missing and returns the stored user.
func (r *UserRepository) EnsureUser(ctx context.Context, name string) (market.User, error) {
	_, err := r.q.ExecContext(ctx,
		r.dialect.InsertIgnore+" INTO users (name, pos_feedback, neg_feedback, joined) VALUES (?, 0, 0, ?)",
		name, time.Now().Unix())
	if err != nil {
		return market.User{}, storeError("ensure user", err)
	}
	return r.GetUser(ctx, name)
}

// GetUser returns the stored user, or a zero-feedback default when absent.
func (r *UserRepository) GetUser(ctx context.Context, name string) (market.User, error) {
	user := market.User{Name: name}
	err := r.q.QueryRowContext(ctx,
		"SELECT name, pos_feedback, neg_feedback FROM users WHERE name = ?", name,
	).Scan(&user.Name, &user.PosFeedback, &user.NegFeedback)
	if errors.Is(err, sql.ErrNoRows) {
		return market.DefaultUser(name), nil
	}
	if err != nil {
		return market.User{}, storeError("get user", err)
	}
	return user, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, storeError("count users", err)
	}
	return n, nil
}
