package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/market-comb/app/database"
	"github.com/lysyi3m/market-comb/app/market"
)

type sentMessage struct {
	To, Subject, Body string
}

type flairCall struct {
	Community, ID, Text, CSS string
}

// fakeRemote is an in-memory RemoteClient recording every mutating call.
type fakeRemote struct {
	mu sync.Mutex

	listings   map[string][]market.Candidate
	moderators map[string][]string
	authors    map[string]market.AuthorStats
	pinned     map[int]*market.Post

	listErr      map[string]error
	modErr       map[string]error
	authorErr    map[string]error
	submitErr    error
	removeErr    map[string]error
	messageErr   error
	getPinnedErr error

	// submitGate, when set, is called before SubmitPost records anything.
	submitGate func()

	listCalls      []string
	moderatorCalls []string
	calls          []string
	submitted      []market.SubmitParams
	approved       []string
	flairs         []flairCall
	removed        []string
	edited         map[string]string
	pins           map[string]int
	messages       []sentMessage

	nextID int
	now    time.Time
}

func newFakeRemote(now time.Time) *fakeRemote {
	return &fakeRemote{
		listings:   map[string][]market.Candidate{},
		moderators: map[string][]string{},
		authors:    map[string]market.AuthorStats{},
		pinned:     map[int]*market.Post{},
		listErr:    map[string]error{},
		modErr:     map[string]error{},
		authorErr:  map[string]error{},
		removeErr:  map[string]error{},
		edited:     map[string]string{},
		pins:       map[string]int{},
		now:        now,
	}
}

func (f *fakeRemote) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) ListRecent(_ context.Context, src string) ([]market.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, src)
	if err := f.listErr[src]; err != nil {
		return nil, err
	}
	out := make([]market.Candidate, len(f.listings[src]))
	copy(out, f.listings[src])
	return out, nil
}

func (f *fakeRemote) ListModerators(_ context.Context, src string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moderatorCalls = append(f.moderatorCalls, src)
	if err := f.modErr[src]; err != nil {
		return nil, err
	}
	return f.moderators[src], nil
}

func (f *fakeRemote) FetchAuthorStats(_ context.Context, author string) (market.AuthorStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("author:" + author)
	if err := f.authorErr[author]; err != nil {
		return market.AuthorStats{}, err
	}
	if stats, ok := f.authors[author]; ok {
		return stats, nil
	}
	return market.AuthorStats{Name: author, CommentKarma: 10, LinkKarma: 10}, nil
}

func (f *fakeRemote) SubmitPost(_ context.Context, p market.SubmitParams) (market.Post, error) {
	if f.submitGate != nil {
		f.submitGate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("submit:" + p.Title)
	if f.submitErr != nil {
		return market.Post{}, f.submitErr
	}
	f.submitted = append(f.submitted, p)
	f.nextID++
	id := fmt.Sprintf("new%d", f.nextID)
	return market.Post{
		ID:        id,
		Title:     p.Title,
		Author:    "market-bot",
		Permalink: "/r/" + p.Community + "/comments/" + id + "/",
		CreatedAt: f.now,
	}, nil
}

func (f *fakeRemote) EditPost(_ context.Context, id, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("edit:" + id)
	f.edited[id] = body
	return nil
}

func (f *fakeRemote) RemovePost(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove:" + id)
	if err := f.removeErr[id]; err != nil {
		return err
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeRemote) SendDirectMessage(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("message:" + to)
	if f.messageErr != nil {
		return f.messageErr
	}
	f.messages = append(f.messages, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeRemote) Approve(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("approve:" + id)
	f.approved = append(f.approved, id)
	return nil
}

func (f *fakeRemote) SetFlair(_ context.Context, community, id, text, css string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("flair:" + id)
	f.flairs = append(f.flairs, flairCall{Community: community, ID: id, Text: text, CSS: css})
	return nil
}

func (f *fakeRemote) Pin(_ context.Context, id string, slot int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("pin:" + id)
	f.pins[id] = slot
	return nil
}

func (f *fakeRemote) GetPinned(_ context.Context, _ string, slot int) (*market.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getPinnedErr != nil {
		return nil, f.getPinnedErr
	}
	return f.pinned[slot], nil
}

// callsWithPrefix returns recorded calls starting with prefix, in order.
func (f *fakeRemote) callsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

var _ RemoteClient = (*fakeRemote)(nil)

func newTestStore(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)
	return db
}

func insertRecords(t *testing.T, db *database.DB, records ...market.Record) {
	t.Helper()
	err := db.WithConn(context.Background(), func(s database.Session) error {
		for _, rec := range records {
			if err := s.Sales.Insert(context.Background(), rec); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func listAll(t *testing.T, db *database.DB) []market.Record {
	t.Helper()
	var records []market.Record
	err := db.WithConn(context.Background(), func(s database.Session) error {
		var err error
		records, err = s.Sales.ListRecent(context.Background(), 1000)
		return err
	})
	require.NoError(t, err)
	return records
}

// failingStore reports the store as unavailable for every session.
type failingStore struct{}

func (failingStore) WithConn(context.Context, func(database.Session) error) error {
	return fmt.Errorf("failed to acquire connection: %w", market.ErrStoreUnavailable)
}
