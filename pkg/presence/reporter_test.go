package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesRaphaelJRC/guildme/pkg/session"
	"github.com/JamesRaphaelJRC/guildme/pkg/types"
)

type statusReport struct {
	friend string
	open   bool
}

type fakeBackend struct {
	mu      sync.Mutex
	friends []types.Friend
	err     error
	reports []statusReport
	fetches int
}

func (f *fakeBackend) GetFriends(ctx context.Context) ([]types.Friend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return append([]types.Friend(nil), f.friends...), nil
}

func (f *fakeBackend) UpdateIsInChat(ctx context.Context, friend string, status bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, statusReport{friend: friend, open: status})
	return nil
}

func (f *fakeBackend) allReports() []statusReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statusReport(nil), f.reports...)
}

type fakeListView struct {
	mu       sync.Mutex
	rendered [][]types.Friend
}

func (f *fakeListView) RenderFriends(friends []types.Friend) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered = append(f.rendered, friends)
}

func (f *fakeListView) last() ([]types.Friend, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rendered) == 0 {
		return nil, false
	}
	return f.rendered[len(f.rendered)-1], true
}

// TestReportInChatDeduplicates tests that a repeat open report for the
// same friend issues no second call.
func TestReportInChatDeduplicates(t *testing.T) {
	backend := &fakeBackend{}
	r := NewReporter(backend, session.NewState(), nil, time.Minute)

	r.ReportInChat(context.Background(), "ada")
	r.ReportInChat(context.Background(), "ada")

	assert.Equal(t, []statusReport{{friend: "ada", open: true}}, backend.allReports())
}

// TestReportClosedExactlyOnce tests the close guard: only the friend most
// recently reported open is closed out, and only once.
func TestReportClosedExactlyOnce(t *testing.T) {
	backend := &fakeBackend{}
	r := NewReporter(backend, session.NewState(), nil, time.Minute)

	r.ReportInChat(context.Background(), "ada")
	r.ReportClosed(context.Background(), "ada")
	r.ReportClosed(context.Background(), "ada")

	assert.Equal(t, []statusReport{
		{friend: "ada", open: true},
		{friend: "ada", open: false},
	}, backend.allReports())
}

// TestReportClosedIgnoresMismatch tests that closing a friend who was
// never reported open is a no-op.
func TestReportClosedIgnoresMismatch(t *testing.T) {
	backend := &fakeBackend{}
	r := NewReporter(backend, session.NewState(), nil, time.Minute)

	r.ReportInChat(context.Background(), "ada")
	r.ReportClosed(context.Background(), "bob")

	assert.Equal(t, []statusReport{{friend: "ada", open: true}}, backend.allReports())
}

// TestOpenCloseSwitchSequence tests a rapid A -> close -> B sequence
// produces the minimal correctly ordered report stream.
func TestOpenCloseSwitchSequence(t *testing.T) {
	backend := &fakeBackend{}
	r := NewReporter(backend, session.NewState(), nil, time.Minute)

	r.ReportInChat(context.Background(), "ada")
	r.ReportClosed(context.Background(), "ada")
	r.ReportInChat(context.Background(), "bob")

	assert.Equal(t, []statusReport{
		{friend: "ada", open: true},
		{friend: "ada", open: false},
		{friend: "bob", open: true},
	}, backend.allReports())
}

// TestRefreshReplacesDirectoryAndRenders tests the full-replacement model.
func TestRefreshReplacesDirectoryAndRenders(t *testing.T) {
	backend := &fakeBackend{friends: []types.Friend{{Username: "ada"}, {Username: "bob"}}}
	view := &fakeListView{}
	state := session.NewState()
	r := NewReporter(backend, state, view, time.Minute)

	r.Refresh(context.Background())

	rendered, ok := view.last()
	require.True(t, ok)
	assert.Len(t, rendered, 2)
	assert.Len(t, state.Friends(), 2)

	backend.mu.Lock()
	backend.friends = []types.Friend{{Username: "carol"}}
	backend.mu.Unlock()

	r.Refresh(context.Background())

	rendered, _ = view.last()
	require.Len(t, rendered, 1)
	assert.Equal(t, "carol", rendered[0].Username)
	assert.Len(t, state.Friends(), 1, "directory fully replaced, not merged")
}

// TestRefreshSuppressesBadgeForOpenConversation tests that the visible
// conversation never carries an unread badge.
func TestRefreshSuppressesBadgeForOpenConversation(t *testing.T) {
	backend := &fakeBackend{friends: []types.Friend{
		{Username: "ada", UnreadMessages: true},
		{Username: "bob", UnreadMessages: true},
	}}
	view := &fakeListView{}
	state := session.NewState()
	state.SetActiveChatFriend("ada")
	require.NoError(t, state.SetPanelOpen(true))
	r := NewReporter(backend, state, view, time.Minute)

	r.Refresh(context.Background())

	rendered, ok := view.last()
	require.True(t, ok)
	require.Len(t, rendered, 2)
	for _, f := range rendered {
		switch f.Username {
		case "ada":
			assert.False(t, f.UnreadMessages, "open conversation carries no badge")
		case "bob":
			assert.True(t, f.UnreadMessages)
		}
	}
}

// TestRefreshKeepsStateOnFailure tests that a transient fetch failure
// leaves the previous rendering in place.
func TestRefreshKeepsStateOnFailure(t *testing.T) {
	backend := &fakeBackend{friends: []types.Friend{{Username: "ada"}}}
	view := &fakeListView{}
	state := session.NewState()
	r := NewReporter(backend, state, view, time.Minute)

	r.Refresh(context.Background())
	require.Len(t, state.Friends(), 1)

	backend.mu.Lock()
	backend.err = context.DeadlineExceeded
	backend.mu.Unlock()

	r.Refresh(context.Background())

	assert.Len(t, state.Friends(), 1, "stale directory beats an empty one")
	view.mu.Lock()
	assert.Len(t, view.rendered, 1, "no re-render on failure")
	view.mu.Unlock()
}

// TestRunLoopHonorsKick tests that RequestRefresh triggers an immediate
// out-of-band refresh.
func TestRunLoopHonorsKick(t *testing.T) {
	backend := &fakeBackend{friends: []types.Friend{{Username: "ada"}}}
	state := session.NewState()
	r := NewReporter(backend, state, nil, time.Hour)

	r.Start(context.Background())
	defer r.Stop()

	// Initial refresh.
	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.fetches == 1
	}, time.Second, 5*time.Millisecond)

	r.RequestRefresh()

	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.fetches == 2
	}, time.Second, 5*time.Millisecond)
}
