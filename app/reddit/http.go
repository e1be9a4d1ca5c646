package reddit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

type idempotentKey struct{}

// withIdempotent marks a request context as safe to repeat.
func withIdempotent(ctx context.Context) context.Context {
	return context.WithValue(ctx, idempotentKey{}, true)
}

// checkRetry retries transport failures, 429 and 5xx responses for reads
// only. Writes are attempted exactly once so a flaky response never
// produces a duplicate submission or message.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ok, _ := ctx.Value(idempotentKey{}).(bool); !ok {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

type leveledSlog struct {
	inner *slog.Logger
}

// Error is logged at warn level since a retry usually follows.
func (l leveledSlog) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}

// NewHTTPClient returns a stdlib client backed by retryablehttp. Reads are
// retried up to three times; writes are never retried.
func NewHTTPClient(timeout time.Duration) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.CheckRetry = checkRetry
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{slog.Default().With("component", "reddit-http")})
	client := retryClient.StandardClient()
	client.Timeout = timeout
	return client
}
