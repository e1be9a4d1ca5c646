package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/market-comb/app/market"
)

const listingLimit = 100

type link struct {
	ID            string  `json:"id"`
	Author        string  `json:"author"`
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	Permalink     string  `json:"permalink"`
	CreatedUTC    float64 `json:"created_utc"`
	LinkFlairText *string `json:"link_flair_text"`
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data link   `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (l link) createdAt() time.Time {
	return time.Unix(int64(l.CreatedUTC), 0)
}

func (l link) post() market.Post {
	return market.Post{
		ID:        l.ID,
		Title:     l.Title,
		Author:    l.Author,
		Permalink: l.Permalink,
		CreatedAt: l.createdAt(),
	}
}

func fullname(id string) string {
	if strings.HasPrefix(id, "t3_") {
		return id
	}
	return "t3_" + id
}

// ListRecent returns the newest posts of a community.
func (c *Client) ListRecent(ctx context.Context, source string) ([]market.Candidate, error) {
	var l listing
	err := c.get(ctx, "/r/"+url.PathEscape(source)+"/new", url.Values{"limit": {strconv.Itoa(listingLimit)}}, &l)
	if err != nil {
		return nil, err
	}

	candidates := make([]market.Candidate, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		p := child.Data
		cand := market.Candidate{
			ID:        p.ID,
			Author:    p.Author,
			Title:     p.Title,
			Body:      p.Selftext,
			Permalink: p.Permalink,
			CreatedAt: p.createdAt(),
			Source:    source,
		}
		if p.LinkFlairText != nil {
			cand.Status = *p.LinkFlairText
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (c *Client) ListModerators(ctx context.Context, source string) ([]string, error) {
	var resp struct {
		Data struct {
			Children []struct {
				Name string `json:"name"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/r/"+url.PathEscape(source)+"/about/moderators", nil, &resp); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		names = append(names, child.Name)
	}
	return names, nil
}

func (c *Client) FetchAuthorStats(ctx context.Context, author string) (market.AuthorStats, error) {
	var resp struct {
		Data struct {
			Name         string `json:"name"`
			CommentKarma int    `json:"comment_karma"`
			LinkKarma    int    `json:"link_karma"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/user/"+url.PathEscape(author)+"/about", nil, &resp); err != nil {
		return market.AuthorStats{}, err
	}
	return market.AuthorStats{
		Name:         resp.Data.Name,
		CommentKarma: resp.Data.CommentKarma,
		LinkKarma:    resp.Data.LinkKarma,
	}, nil
}

func (c *Client) SubmitPost(ctx context.Context, params market.SubmitParams) (market.Post, error) {
	form := url.Values{
		"sr":          {params.Community},
		"kind":        {"self"},
		"title":       {params.Title},
		"text":        {params.Body},
		"sendreplies": {strconv.FormatBool(params.SendReplies)},
	}

	var data struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := c.post(ctx, "/api/submit", form, &data); err != nil {
		return market.Post{}, err
	}
	if data.ID == "" {
		return market.Post{}, &APIError{Method: "POST", Path: "/api/submit", Message: "submission returned no id"}
	}

	id := strings.TrimPrefix(data.ID, "t3_")

	// The submit response carries no timestamp; read the new post back for
	// its creation time and permalink.
	post, err := c.fetchPost(ctx, id)
	if err != nil {
		slog.Warn("Failed to read back submitted post, using local time", "id", id, "error", err)
		return market.Post{
			ID:        id,
			Title:     params.Title,
			Author:    c.cfg.Username,
			Permalink: data.URL,
			CreatedAt: time.Now(),
		}, nil
	}
	return post, nil
}

func (c *Client) fetchPost(ctx context.Context, id string) (market.Post, error) {
	var l listing
	path := "/by_id/" + fullname(id)
	if err := c.get(ctx, path, nil, &l); err != nil {
		return market.Post{}, err
	}
	for _, child := range l.Data.Children {
		if child.Kind == "t3" && child.Data.ID != "" {
			return child.Data.post(), nil
		}
	}
	return market.Post{}, &APIError{Method: "GET", Path: path, Message: "post not found"}
}

func (c *Client) EditPost(ctx context.Context, id, body string) error {
	return c.post(ctx, "/api/editusertext", url.Values{
		"thing_id": {fullname(id)},
		"text":     {body},
	}, nil)
}

// RemovePost removes a post from its community without marking it as spam.
func (c *Client) RemovePost(ctx context.Context, id string) error {
	return c.post(ctx, "/api/remove", url.Values{
		"id":   {fullname(id)},
		"spam": {"false"},
	}, nil)
}

func (c *Client) SendDirectMessage(ctx context.Context, to, subject, body string) error {
	return c.post(ctx, "/api/compose", url.Values{
		"to":      {to},
		"subject": {subject},
		"text":    {body},
	}, nil)
}

func (c *Client) Approve(ctx context.Context, id string) error {
	return c.post(ctx, "/api/approve", url.Values{"id": {fullname(id)}}, nil)
}

func (c *Client) SetFlair(ctx context.Context, community, id, text, cssClass string) error {
	return c.post(ctx, "/r/"+url.PathEscape(community)+"/api/flair", url.Values{
		"link":      {fullname(id)},
		"text":      {text},
		"css_class": {cssClass},
	}, nil)
}

// Pin stickies a post in the given slot (1 or 2).
func (c *Client) Pin(ctx context.Context, id string, slot int) error {
	return c.post(ctx, "/api/set_subreddit_sticky", url.Values{
		"id":    {fullname(id)},
		"state": {"true"},
		"num":   {strconv.Itoa(slot)},
	}, nil)
}

// GetPinned returns the post stickied in slot, or nil when the slot is empty.
func (c *Client) GetPinned(ctx context.Context, community string, slot int) (*market.Post, error) {
	// The sticky endpoint redirects to the thread, which is served as a
	// pair of listings: the post and its comments.
	var resp []listing
	err := c.get(ctx, "/r/"+url.PathEscape(community)+"/about/sticky", url.Values{"num": {strconv.Itoa(slot)}}, &resp)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(resp) == 0 || len(resp[0].Data.Children) == 0 {
		return nil, nil
	}
	post := resp[0].Data.Children[0].Data.post()
	if post.ID == "" {
		return nil, fmt.Errorf("pinned post in r/%s has no id: %w", community, market.ErrRemoteUnavailable)
	}
	return &post, nil
}
