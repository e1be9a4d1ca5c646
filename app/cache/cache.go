// Package cache keeps moderator lists of source communities between cycles.
package cache

import (
	"context"
)

// ModeratorCache stores the moderator names of a community. A miss is
// reported as ok=false with a nil error.
type ModeratorCache interface {
	Get(ctx context.Context, source string) (names []string, ok bool, err error)
	Set(ctx context.Context, source string, names []string) error
}
