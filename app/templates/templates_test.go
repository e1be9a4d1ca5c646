package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepostBody(t *testing.T) {
	body, err := RepostBody("/r/barter/comments/abc/old_camera/", "Trading a <camera> & lens\n\n**mint**")
	require.NoError(t, err)

	assert.Contains(t, body, "[here](https://www.reddit.com/r/barter/comments/abc/old_camera/)")
	assert.Contains(t, body, "Trading a <camera> & lens\n\n**mint**")
}

func TestRepostNotice(t *testing.T) {
	text, err := RepostNotice("/r/barter/comments/abc/x/", "https://www.reddit.com/r/xyMarket/comments/def/x/", "xyMarket")
	require.NoError(t, err)

	assert.Contains(t, text, "[here](https://www.reddit.com/r/barter/comments/abc/x/)")
	assert.Contains(t, text, "shared to r/xyMarket")
	assert.Contains(t, text, "(https://www.reddit.com/r/xyMarket/comments/def/x/)")
}

func TestExpiredNotice(t *testing.T) {
	text, err := ExpiredNotice("def", "xyMarket")
	require.NoError(t, err)

	assert.Contains(t, text, "[def](/r/xyMarket/comments/def)")
	assert.Contains(t, text, "removed from r/xyMarket")
	assert.Contains(t, text, "submit it again")
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "r/xyMarket", Subject("xyMarket"))
}
