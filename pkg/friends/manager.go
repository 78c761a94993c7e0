package friends

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/JamesRaphaelJRC/guildme/pkg/flash"
	"github.com/JamesRaphaelJRC/guildme/pkg/log"
	"github.com/JamesRaphaelJRC/guildme/pkg/push"
	"github.com/JamesRaphaelJRC/guildme/pkg/types"
)

// Backend is the subset of remote calls the friend manager needs.
type Backend interface {
	GetFriends(ctx context.Context) ([]types.Friend, error)
	SearchFriends(ctx context.Context, query string) ([]types.Friend, error)
	RemoveFriend(ctx context.Context, friend string) (string, error)
	AllowTrack(ctx context.Context, friend string) error
	DisallowTrack(ctx context.Context, friend string) error
	TrackingMe(ctx context.Context) ([]types.Friend, error)
	AllowedTracks(ctx context.Context) ([]types.Friend, error)
}

// ProfileView renders the profile page's permission lists.
type ProfileView interface {
	RenderTrackingMe(friends []types.Friend)
	RenderAllowedTracks(friends []types.Friend)
}

// SearchView renders friend search results.
type SearchView interface {
	RenderResults(friends []types.Friend)
}

// Manager handles friend-list mutations, track permissions and the
// profile page. The profile lists are fetched once per session and
// invalidated by the server's profile reload event.
type Manager struct {
	backend Backend
	emitter push.Emitter
	flash   flash.Notifier
	profile ProfileView
	search  SearchView
	logger  zerolog.Logger

	mu            sync.Mutex
	profileLoaded bool
}

// NewManager creates a friend manager.
func NewManager(backend Backend, emitter push.Emitter, notifier flash.Notifier, profile ProfileView, search SearchView) *Manager {
	return &Manager{
		backend: backend,
		emitter: emitter,
		flash:   notifier,
		profile: profile,
		search:  search,
		logger:  log.WithComponent("friends"),
	}
}

// AllowTrack grants a friend permission to see this user's location and
// announces the grant so the friend's view updates live.
func (m *Manager) AllowTrack(ctx context.Context, friend string) {
	if err := m.backend.AllowTrack(ctx, friend); err != nil {
		m.logger.Warn().Err(err).Str("friend", friend).Msg("allow track")
		m.flash.Error("something went wrong")
		return
	}
	_ = m.emitter.Emit(push.EmitAllowedTrack, map[string]string{"friend": friend})
	_ = m.emitter.Emit(push.EmitReloadProfile, nil)
}

// DisallowTrack revokes a friend's track permission. The peer's engine
// reacts to the push event by tearing down any live tracking session.
func (m *Manager) DisallowTrack(ctx context.Context, friend string) {
	if err := m.backend.DisallowTrack(ctx, friend); err != nil {
		m.logger.Warn().Err(err).Str("friend", friend).Msg("disallow track")
		m.flash.Error("something went wrong")
		return
	}
	_ = m.emitter.Emit(push.EmitDisallowedTrack, map[string]string{"friend": friend})
	_ = m.emitter.Emit(push.EmitReloadProfile, nil)
}

// Remove deletes a friendship after confirmation. The returned friendship
// id travels in the verification event so both sides drop the same record.
func (m *Manager) Remove(ctx context.Context, friend string, confirm func() bool) {
	if confirm != nil && !confirm() {
		return
	}
	friendshipID, err := m.backend.RemoveFriend(ctx, friend)
	if err != nil {
		m.logger.Warn().Err(err).Str("friend", friend).Msg("remove friend")
		m.flash.Error("something went wrong")
		return
	}
	_ = m.emitter.Emit(push.EmitVerifyToDelete, map[string]string{"friend_id": friendshipID})
}

// Search looks friends up by a partial name. An empty query falls back to
// the full friend list.
func (m *Manager) Search(ctx context.Context, query string) {
	query = strings.TrimSpace(query)

	var (
		results []types.Friend
		err     error
	)
	if query == "" {
		results, err = m.backend.GetFriends(ctx)
	} else {
		results, err = m.backend.SearchFriends(ctx, query)
	}
	if err != nil {
		m.logger.Warn().Err(err).Str("query", query).Msg("search friends")
		m.flash.Error("something went wrong")
		return
	}
	m.search.RenderResults(results)
}

// LoadProfile fetches both permission lists. Cached after the first load;
// a profile reload event invalidates the cache.
func (m *Manager) LoadProfile(ctx context.Context) {
	m.mu.Lock()
	if m.profileLoaded {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	trackingMe, err := m.backend.TrackingMe(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("load tracking-me list")
		m.flash.Error("something went wrong")
		return
	}
	allowed, err := m.backend.AllowedTracks(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("load allowed-tracks list")
		m.flash.Error("something went wrong")
		return
	}

	m.mu.Lock()
	m.profileLoaded = true
	m.mu.Unlock()

	m.profile.RenderTrackingMe(trackingMe)
	m.profile.RenderAllowedTracks(allowed)
}

// ProfileLoaded reports whether the profile lists are cached.
func (m *Manager) ProfileLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profileLoaded
}

// Attach registers the manager's push event handlers.
func (m *Manager) Attach(ch *push.Channel) {
	ch.Handle(push.EventProfileReload, func(json.RawMessage) {
		m.mu.Lock()
		m.profileLoaded = false
		m.mu.Unlock()
	})
}
