package reddit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/market-comb/app/market"
)

const DefaultFeedURL = "https://www.reddit.com/r/%s/new/.rss"

// FeedLister reads new posts from the public Atom feed of a community.
// Feeds carry no flair, so candidates never have a status.
type FeedLister struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	limiter    *rate.Limiter
	urlFormat  string
	userAgent  string
}

func NewFeedLister(httpClient *http.Client, urlFormat, userAgent string, requestsPerMinute int) *FeedLister {
	if urlFormat == "" {
		urlFormat = DefaultFeedURL
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &FeedLister{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		limiter:    rate.NewLimiter(limit, 1),
		urlFormat:  urlFormat,
		userAgent:  userAgent,
	}
}

func (l *FeedLister) ListRecent(ctx context.Context, source string) ([]market.Candidate, error) {
	data, err := l.fetch(ctx, fmt.Sprintf(l.urlFormat, url.PathEscape(source)))
	if err != nil {
		return nil, err
	}

	feed, err := l.parser.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed for r/%s: %w: %w", source, market.ErrRemoteUnavailable, err)
	}

	candidates := make([]market.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		cand := market.Candidate{
			ID:        strings.TrimPrefix(item.GUID, "t3_"),
			Title:     item.Title,
			Body:      selftext(item.Content),
			Permalink: permalinkPath(item.Link),
			Source:    source,
		}
		if item.Author != nil {
			cand.Author = strings.TrimPrefix(item.Author.Name, "/u/")
		}
		if item.PublishedParsed != nil {
			cand.CreatedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			cand.CreatedAt = *item.UpdatedParsed
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (l *FeedLister) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(withIdempotent(ctx), http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w: %w", market.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Method: http.MethodGet, Path: feedURL, StatusCode: resp.StatusCode, Message: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w: %w", market.ErrRemoteUnavailable, err)
	}
	return data, nil
}

// selftext extracts the markdown-rendered body from feed entry HTML. Link
// posts have no body block and yield "".
func selftext(content string) string {
	if content == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var paragraphs []string
	doc.Find("div.md").First().Children().Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}

func permalinkPath(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return link
	}
	return u.Path
}

// FeedClient serves listings from public feeds and every other operation
// from the API client.
type FeedClient struct {
	*Client
	feed *FeedLister
}

func NewFeedClient(client *Client, feed *FeedLister) *FeedClient {
	return &FeedClient{Client: client, feed: feed}
}

func (c *FeedClient) ListRecent(ctx context.Context, source string) ([]market.Candidate, error) {
	return c.feed.ListRecent(ctx, source)
}
