package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/market-comb/app/market"
)

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>newest submissions : barter</title>
  <entry>
    <author><name>/u/alice</name><uri>https://www.reddit.com/user/alice</uri></author>
    <category term="barter" label="r/barter"/>
    <content type="html">&lt;!-- SC_OFF --&gt;&lt;div class=&quot;md&quot;&gt;&lt;p&gt;Mint camera, barely used.&lt;/p&gt;
&lt;p&gt;Looking for &lt;strong&gt;lenses&lt;/strong&gt;.&lt;/p&gt;
&lt;/div&gt;&lt;!-- SC_ON --&gt; &amp;#32; submitted by &lt;a href=&quot;https://www.reddit.com/user/alice&quot;&gt; /u/alice &lt;/a&gt;</content>
    <id>t3_abc123</id>
    <link href="https://www.reddit.com/r/barter/comments/abc123/trading_camera/"/>
    <updated>2024-05-01T12:00:00+00:00</updated>
    <published>2024-05-01T12:00:00+00:00</published>
    <title>Trading camera</title>
  </entry>
  <entry>
    <author><name>/u/bob</name></author>
    <content type="html">submitted by &lt;a href=&quot;https://www.reddit.com/user/bob&quot;&gt; /u/bob &lt;/a&gt;</content>
    <id>t3_def456</id>
    <link href="https://www.reddit.com/r/barter/comments/def456/link_post/"/>
    <updated>2024-05-01T11:00:00+00:00</updated>
    <title>Link post</title>
  </entry>
</feed>`

func TestFeedLister_ListRecent(t *testing.T) {
	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/barter/new/.rss", r.URL.Path)
		agent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFixture))
	}))
	defer server.Close()

	lister := NewFeedLister(server.Client(), server.URL+"/r/%s/new/.rss", "market-comb-test", 0)
	cands, err := lister.ListRecent(context.Background(), "barter")
	require.NoError(t, err)
	require.Len(t, cands, 2)

	first := cands[0]
	assert.Equal(t, "abc123", first.ID)
	assert.Equal(t, "alice", first.Author)
	assert.Equal(t, "Trading camera", first.Title)
	assert.Equal(t, "Mint camera, barely used.\n\nLooking for lenses.", first.Body)
	assert.Equal(t, "/r/barter/comments/abc123/trading_camera/", first.Permalink)
	assert.True(t, first.CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "barter", first.Source)
	assert.Empty(t, first.Status)

	second := cands[1]
	assert.Equal(t, "bob", second.Author)
	assert.Empty(t, second.Body)
	assert.True(t, second.CreatedAt.Equal(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)))

	assert.Equal(t, "market-comb-test", agent)
}

func TestFeedLister_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	lister := NewFeedLister(server.Client(), server.URL+"/r/%s/new/.rss", "ua", 0)
	_, err := lister.ListRecent(context.Background(), "barter")
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrRemoteUnavailable)
}

func TestFeedClientUsesFeedForListings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(atomFixture))
	}))
	defer server.Close()

	api := NewClient(Config{BaseURL: "http://127.0.0.1:0", AuthURL: "http://127.0.0.1:0"})
	client := NewFeedClient(api, NewFeedLister(server.Client(), server.URL+"/%s", "ua", 0))

	cands, err := client.ListRecent(context.Background(), "barter")
	require.NoError(t, err)
	assert.Len(t, cands, 2)
}

func TestSelftext(t *testing.T) {
	assert.Empty(t, selftext(""))
	assert.Equal(t, "one\n\ntwo", selftext(`<div class="md"><p>one</p><p> </p><p>two</p></div>`))
	assert.Empty(t, selftext(`<span>no body</span>`))
}
