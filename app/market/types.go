package market

import (
	"time"

	"golang.org/x/text/cases"
)

// Candidate is a post fetched from a source community that has not been
// evaluated yet.
type Candidate struct {
	ID        string
	Author    string
	Title     string
	Body      string
	Permalink string
	CreatedAt time.Time
	Status    string // link flair text, empty when unset
	Source    string
	Category  string
}

// Payload is the JSON document stored alongside a sales record.
type Payload struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

// Record is a persisted sales thread in the target community.
type Record struct {
	ID           string
	Author       string
	CreatedAt    time.Time
	Unstructured bool
	Approved     bool
	Promoted     bool
	Payload      Payload
}

// Post is a remote post as returned by the platform.
type Post struct {
	ID        string
	Title     string
	Author    string
	Permalink string
	CreatedAt time.Time
}

// SubmitParams describes a self post to create in a community.
type SubmitParams struct {
	Community   string
	Title       string
	Body        string
	SendReplies bool
}

// AuthorStats is the aggregate karma of an account.
type AuthorStats struct {
	Name         string
	CommentKarma int
	LinkKarma    int
}

// Reputable reports whether neither karma total is negative.
func (a AuthorStats) Reputable() bool {
	return a.CommentKarma >= 0 && a.LinkKarma >= 0
}

// User is the local profile kept for every author the bot has handled.
type User struct {
	Name        string
	PosFeedback int
	NegFeedback int
}

// DefaultUser is returned for authors without a stored profile.
func DefaultUser(name string) User {
	return User{Name: name}
}

// FoldIdentity normalizes an account name for case-insensitive comparison.
// A Caser is stateful, so one is created per call.
func FoldIdentity(name string) string {
	return cases.Fold().String(name)
}

// ModeratorSet holds the moderators of every source polled in one cycle.
type ModeratorSet map[string]struct{}

func NewModeratorSet(names ...string) ModeratorSet {
	set := make(ModeratorSet, len(names))
	set.Add(names...)
	return set
}

func (s ModeratorSet) Add(names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		s[FoldIdentity(name)] = struct{}{}
	}
}

func (s ModeratorSet) Contains(name string) bool {
	_, ok := s[FoldIdentity(name)]
	return ok
}
