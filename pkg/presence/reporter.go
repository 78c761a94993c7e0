package presence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JamesRaphaelJRC/guildme/pkg/log"
	"github.com/JamesRaphaelJRC/guildme/pkg/metrics"
	"github.com/JamesRaphaelJRC/guildme/pkg/push"
	"github.com/JamesRaphaelJRC/guildme/pkg/session"
	"github.com/JamesRaphaelJRC/guildme/pkg/types"
)

// Backend is the subset of remote calls the reporter needs.
type Backend interface {
	GetFriends(ctx context.Context) ([]types.Friend, error)
	UpdateIsInChat(ctx context.Context, friend string, status bool) error
}

// FriendListView renders the friend directory. The refresh loop owns the
// rendered collection and fully replaces it on every refresh.
type FriendListView interface {
	RenderFriends(friends []types.Friend)
}

// Reporter keeps the backend informed of the user's own chat activity and
// runs the periodic friend-directory refresh.
type Reporter struct {
	backend  Backend
	state    *session.State
	view     FriendListView
	interval time.Duration
	logger   zerolog.Logger

	mu sync.Mutex
	// lastOpen is the friend we most recently reported "in chat" for.
	// Close reporting is guarded on it so a close fires exactly once.
	lastOpen string

	kick     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewReporter creates a presence reporter refreshing every interval.
func NewReporter(backend Backend, state *session.State, view FriendListView, interval time.Duration) *Reporter {
	return &Reporter{
		backend:  backend,
		state:    state,
		view:     view,
		interval: interval,
		logger:   log.WithComponent("presence"),
		kick:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// ReportInChat tells the backend the user opened a chat with friend. A
// repeat report for the already-open friend is a no-op.
func (r *Reporter) ReportInChat(ctx context.Context, friend string) {
	r.mu.Lock()
	if r.lastOpen == friend {
		r.mu.Unlock()
		return
	}
	r.lastOpen = friend
	r.mu.Unlock()

	if err := r.backend.UpdateIsInChat(ctx, friend, true); err != nil {
		r.logger.Warn().Err(err).Str("friend", friend).Msg("report in-chat")
	}
}

// ReportClosed tells the backend the user left the chat with friend. Only
// the friend most recently reported open is closed out, and only once; a
// repeated close is a no-op.
func (r *Reporter) ReportClosed(ctx context.Context, friend string) {
	r.mu.Lock()
	if r.lastOpen != friend {
		r.mu.Unlock()
		return
	}
	r.lastOpen = ""
	r.mu.Unlock()

	if err := r.backend.UpdateIsInChat(ctx, friend, false); err != nil {
		r.logger.Warn().Err(err).Str("friend", friend).Msg("report chat closed")
	}
}

// Start runs the refresh loop until Stop or context cancellation.
func (r *Reporter) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop halts the refresh loop.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RequestRefresh schedules an immediate refresh outside the regular tick.
func (r *Reporter) RequestRefresh() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Attach refreshes the directory whenever the backend signals that the
// friend section changed.
func (r *Reporter) Attach(ch *push.Channel) {
	reload := func(json.RawMessage) { r.RequestRefresh() }
	ch.Handle(push.EventReloadFriendSection, reload)
	ch.Handle(push.EventReloadUserFriendSection, reload)
}

func (r *Reporter) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Initial population before the first tick.
	r.Refresh(ctx)

	for {
		select {
		case <-ticker.C:
			r.Refresh(ctx)
		case <-r.kick:
			r.Refresh(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Refresh fetches the friend directory, recomputes unread badges and fully
// replaces the shared collection. A conversation currently showing in the
// open panel never carries a badge, even while the server-side unread flag
// is still pending.
func (r *Reporter) Refresh(ctx context.Context) {
	friends, err := r.backend.GetFriends(ctx)
	if err != nil {
		// Transient failure: the view keeps its stale state.
		r.logger.Warn().Err(err).Msg("refresh friend directory")
		return
	}
	metrics.PresenceRefreshesTotal.Inc()

	active, hasActive := r.state.ActiveChatFriend()
	panelOpen := r.state.IsPanelOpen()
	for i := range friends {
		if friends[i].UnreadMessages && panelOpen && hasActive && friends[i].Username == active {
			friends[i].UnreadMessages = false
		}
	}

	r.state.ReplaceFriends(friends)
	if r.view != nil {
		r.view.RenderFriends(friends)
	}
}
