package notify

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/JamesRaphaelJRC/guildme/pkg/config"
	"github.com/JamesRaphaelJRC/guildme/pkg/flash"
	"github.com/JamesRaphaelJRC/guildme/pkg/log"
	"github.com/JamesRaphaelJRC/guildme/pkg/metrics"
	"github.com/JamesRaphaelJRC/guildme/pkg/push"
	"github.com/JamesRaphaelJRC/guildme/pkg/types"
)

// Backend is the subset of remote calls the notification engine needs.
type Backend interface {
	AddFriend(ctx context.Context, friend string) error
	DeleteAccount(ctx context.Context) error
}

// BellView renders the notification center.
type BellView interface {
	Ring()
	Quiet()
	RenderGeneral(items []types.NotificationItem)
	RenderRequests(reqs []types.FriendRequest)
	DimGeneral(id string)
}

// feed is one independently cached notification list.
type feed struct {
	policy config.RefreshPolicy
	loaded bool
}

// Engine lazily loads the two notification feeds and keeps them fresh on
// push-driven invalidation. The feeds deliberately do not share a refresh
// policy: the general feed refetches on every view while friend requests
// are fetched once and cached until invalidated.
type Engine struct {
	backend Backend
	emitter push.Emitter
	flash   flash.Notifier
	view    BellView
	logger  zerolog.Logger

	mu         sync.Mutex
	feeds      map[types.FeedKind]*feed
	general    []types.NotificationItem
	requests   []types.FriendRequest
	visible    types.FeedKind
	lastMarked string
}

// NewEngine creates a notification engine with the given per-feed refresh
// policies.
func NewEngine(backend Backend, emitter push.Emitter, notifier flash.Notifier, view BellView, generalPolicy, requestPolicy config.RefreshPolicy) *Engine {
	return &Engine{
		backend: backend,
		emitter: emitter,
		flash:   notifier,
		view:    view,
		logger:  log.WithComponent("notify"),
		feeds: map[types.FeedKind]*feed{
			types.FeedGeneral:       {policy: generalPolicy},
			types.FeedFriendRequest: {policy: requestPolicy},
		},
	}
}

// Load requests the given feed. A loaded cache-once feed is a no-op; an
// always-refresh feed fetches every time. The fetch goes over the push
// channel, the matching response event fills the cache.
func (e *Engine) Load(kind types.FeedKind) {
	e.mu.Lock()
	f, ok := e.feeds[kind]
	if !ok || (f.loaded && f.policy == config.RefreshOnce) {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	metrics.NotificationFetchesTotal.WithLabelValues(string(kind)).Inc()
	switch kind {
	case types.FeedGeneral:
		_ = e.emitter.Emit(push.EmitGetGeneralNotifs, nil)
	case types.FeedFriendRequest:
		_ = e.emitter.Emit(push.EmitGetFriendRequests, nil)
	}
}

// OpenBell handles a bell click: quiet the alert and show the general
// feed, which always refetches on view.
func (e *Engine) OpenBell() {
	e.view.Quiet()
	e.mu.Lock()
	e.visible = types.FeedGeneral
	e.mu.Unlock()
	e.Load(types.FeedGeneral)
}

// ShowFeed switches the visible tab and loads it under its own policy.
func (e *Engine) ShowFeed(kind types.FeedKind) {
	e.mu.Lock()
	e.visible = kind
	e.mu.Unlock()
	e.Load(kind)
}

// CloseBell hides the notification center. Caches are kept; switching away
// and back does not by itself force a refetch.
func (e *Engine) CloseBell() {
	e.mu.Lock()
	e.visible = ""
	e.mu.Unlock()
}

// Loaded reports the cache-valid bit of one feed.
func (e *Engine) Loaded(kind types.FeedKind) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.feeds[kind]
	return ok && f.loaded
}

// General returns the cached general feed, newest last.
func (e *Engine) General() []types.NotificationItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.NotificationItem, len(e.general))
	copy(out, e.general)
	return out
}

// Requests returns the cached friend-request feed.
func (e *Engine) Requests() []types.FriendRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.FriendRequest, len(e.requests))
	copy(out, e.requests)
	return out
}

// Accept persists an accepted friend request, then announces it. The push
// event is emitted only after the backend call succeeds so a peer never
// sees a friendship before it is durable.
func (e *Engine) Accept(ctx context.Context, friend, requestID string) {
	if err := e.backend.AddFriend(ctx, friend); err != nil {
		e.logger.Warn().Err(err).Str("friend", friend).Msg("accept friend request")
		e.flash.Error("something went wrong")
		return
	}
	_ = e.emitter.Emit(push.EmitAcceptedRequest, map[string]string{"friend": friend, "id": requestID})
}

// Decline rejects a friend request. Fire-and-forget: no durable state
// hinges on the peer seeing the deletion promptly.
func (e *Engine) Decline(requestID string) {
	_ = e.emitter.Emit(push.EmitDeleteFriendRequest, map[string]string{"id": requestID})
}

// MarkRead marks one general notification as read. The server's
// confirmation dims the entry.
func (e *Engine) MarkRead(id string) {
	e.mu.Lock()
	e.lastMarked = id
	e.mu.Unlock()
	_ = e.emitter.Emit(push.EmitMarkAsRead, map[string]string{"id": id})
}

// SendFriendRequest submits a new friend request by username or email.
func (e *Engine) SendFriendRequest(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		e.flash.Error("Enter a username or email")
		return
	}
	_ = e.emitter.Emit(push.EmitNewFriendRequest, map[string]string{"data": input})
}

// DeleteAccount removes the account after confirmation. A declined confirm
// aborts without issuing any call.
func (e *Engine) DeleteAccount(ctx context.Context, confirm func() bool) {
	if confirm != nil && !confirm() {
		return
	}
	_ = e.emitter.Emit(push.EmitDeleteAllNotifs, nil)
	if err := e.backend.DeleteAccount(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("delete account")
		e.flash.Error("something went wrong")
	}
}

// Attach registers the engine's push event handlers.
func (e *Engine) Attach(ch *push.Channel) {
	ch.Handle(push.EventShowGeneralNotifs, e.handleGeneral)
	ch.Handle(push.EventUserFriendRequests, e.handleRequests)
	ch.Handle(push.EventReloadGeneralNotif, func(json.RawMessage) {
		e.Invalidate(types.FeedGeneral)
	})
	ch.Handle(push.EventReloadFriendRequest, func(json.RawMessage) {
		e.Invalidate(types.FeedFriendRequest)
	})
	ch.Handle(push.EventAlertUser, func(json.RawMessage) {
		e.view.Ring()
	})
	ch.Handle(push.EventBlurrRead, e.handleBlurrRead)
}

// Invalidate resets one feed's cache bit. When the feed's tab is visible
// it reloads immediately.
func (e *Engine) Invalidate(kind types.FeedKind) {
	e.mu.Lock()
	f, ok := e.feeds[kind]
	if !ok {
		e.mu.Unlock()
		return
	}
	f.loaded = false
	reload := e.visible == kind
	e.mu.Unlock()

	if reload {
		e.Load(kind)
	}
}

func (e *Engine) handleGeneral(data json.RawMessage) {
	var payload struct {
		Data map[string]types.NotificationItem `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		e.logger.Warn().Err(err).Msg("malformed general notifications payload")
		return
	}

	items := make([]types.NotificationItem, 0, len(payload.Data))
	for id, item := range payload.Data {
		item.ID = id
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return items[i].ID < items[j].ID
	})

	e.mu.Lock()
	e.general = items
	e.feeds[types.FeedGeneral].loaded = true
	e.mu.Unlock()

	e.view.RenderGeneral(items)
}

func (e *Engine) handleRequests(data json.RawMessage) {
	var payload struct {
		Data map[string]types.FriendRequest `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		e.logger.Warn().Err(err).Msg("malformed friend requests payload")
		return
	}

	reqs := make([]types.FriendRequest, 0, len(payload.Data))
	for id, req := range payload.Data {
		req.ID = id
		reqs = append(reqs, req)
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].Date != reqs[j].Date {
			return reqs[i].Date < reqs[j].Date
		}
		return reqs[i].ID < reqs[j].ID
	})

	e.mu.Lock()
	e.requests = reqs
	e.feeds[types.FeedFriendRequest].loaded = true
	e.mu.Unlock()

	e.view.RenderRequests(reqs)
}

func (e *Engine) handleBlurrRead(json.RawMessage) {
	e.mu.Lock()
	id := e.lastMarked
	e.lastMarked = ""
	for i := range e.general {
		if e.general[i].ID == id {
			e.general[i].Read = true
		}
	}
	e.mu.Unlock()

	if id != "" {
		e.view.DimGeneral(id)
	}
}
