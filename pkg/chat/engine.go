package chat

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/JamesRaphaelJRC/guildme/pkg/flash"
	"github.com/JamesRaphaelJRC/guildme/pkg/log"
	"github.com/JamesRaphaelJRC/guildme/pkg/metrics"
	"github.com/JamesRaphaelJRC/guildme/pkg/push"
	"github.com/JamesRaphaelJRC/guildme/pkg/session"
	"github.com/JamesRaphaelJRC/guildme/pkg/types"
)

// Phase is the chat session lifecycle state.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseJoining
	PhaseJoined
)

func (p Phase) String() string {
	switch p {
	case PhaseJoining:
		return "joining"
	case PhaseJoined:
		return "joined"
	default:
		return "closed"
	}
}

// Backend is the subset of remote calls the chat engine needs.
type Backend interface {
	GetConversation(ctx context.Context, friend string) (*types.Conversation, error)
	MarkRead(ctx context.Context, conversationID string, messageIDs []string) error
	FriendIsInChat(ctx context.Context, friend string) (bool, error)
}

// PresenceReporter reports the user's own chat activity.
type PresenceReporter interface {
	ReportInChat(ctx context.Context, friend string)
	ReportClosed(ctx context.Context, friend string)
}

// TranscriptView renders the message transcript of the open session.
type TranscriptView interface {
	Clear()
	Append(content string, fromFriend bool)
}

// Engine manages the single active chat session: joining a room, sending
// and receiving messages, read marking, and tearing the session down so
// two rooms are never open at once.
type Engine struct {
	backend  Backend
	emitter  push.Emitter
	state    *session.State
	presence PresenceReporter
	flash    flash.Notifier
	view     TranscriptView
	logger   zerolog.Logger

	mu    sync.Mutex
	phase Phase
}

// NewEngine creates a chat engine in the Closed phase.
func NewEngine(backend Backend, emitter push.Emitter, state *session.State, presence PresenceReporter, notifier flash.Notifier, view TranscriptView) *Engine {
	return &Engine{
		backend:  backend,
		emitter:  emitter,
		state:    state,
		presence: presence,
		flash:    notifier,
		view:     view,
		logger:   log.WithComponent("chat"),
	}
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Open selects friend as the active chat peer. Reselecting the already
// open friend is a no-op. Selecting a different friend closes the previous
// session first, as one observable transition, then re-enters Joining for
// the new target. In-flight work for a superseded selection is discarded
// by ticket check, never applied.
func (e *Engine) Open(ctx context.Context, friend string) {
	e.mu.Lock()
	if active, ok := e.state.ActiveChatFriend(); ok && active == friend && e.phase != PhaseClosed {
		e.mu.Unlock()
		return
	}
	if e.phase != PhaseClosed {
		e.closeLocked(ctx)
	}
	ticket, _ := e.state.SetActiveChatFriend(friend)
	e.phase = PhaseJoining
	e.mu.Unlock()

	e.view.Clear()
	if err := e.state.SetPanelOpen(true); err != nil {
		e.logger.Error().Err(err).Msg("open chat panel")
	}
	e.presence.ReportInChat(ctx, friend)
	metrics.ChatSessionsOpenedTotal.Inc()

	conv, err := e.backend.GetConversation(ctx, friend)

	if !e.state.ChatStillCurrent(ticket) {
		metrics.StaleResponsesDiscardedTotal.WithLabelValues("chat").Inc()
		e.logger.Debug().Str("friend", friend).Msg("discarding history for superseded session")
		e.abortJoining()
		return
	}

	if err != nil {
		// The friend is gone or the fetch failed: abort Joining and
		// surface the failure outside the transcript.
		e.mu.Lock()
		e.phase = PhaseClosed
		e.mu.Unlock()
		e.presence.ReportClosed(ctx, friend)
		e.state.ClearActiveChatFriend()
		e.flash.Error("Friend does not exist anymore")
		e.logger.Warn().Err(err).Str("friend", friend).Msg("conversation fetch failed")
		return
	}

	if err := e.state.SetRoom(conv.ID); err != nil {
		e.logger.Error().Err(err).Msg("record room")
		return
	}

	e.markUnreadAsRead(ctx, friend, conv)

	_ = e.emitter.Emit(push.EmitJoin, map[string]string{"friend": friend, "room": conv.ID})
	_ = e.emitter.Emit(push.EmitToReloadUserFriends, nil)

	for _, msg := range conv.Messages {
		e.view.Append(msg.Content, msg.Sender == friend)
	}
	e.state.SetUnread(friend, false)

	e.mu.Lock()
	if e.state.ChatStillCurrent(ticket) {
		e.phase = PhaseJoined
	} else if e.phase == PhaseJoining {
		e.phase = PhaseClosed
	}
	e.mu.Unlock()
}

// abortJoining resets the phase after a superseded join. Guarded so a
// newer session that already progressed past Joining is left alone.
func (e *Engine) abortJoining() {
	e.mu.Lock()
	if e.phase == PhaseJoining {
		e.phase = PhaseClosed
	}
	e.mu.Unlock()
}

// Close tears down the active session. Triggered by an explicit panel
// close, a click outside the panel, or internally when switching friends.
// A close on an already-closed session is a no-op; presence is reported
// false exactly once per close.
func (e *Engine) Close(ctx context.Context) {
	e.mu.Lock()
	if e.phase == PhaseClosed {
		e.mu.Unlock()
		return
	}
	e.closeLocked(ctx)
	e.mu.Unlock()
}

// closeLocked closes out the current session. Caller holds e.mu.
func (e *Engine) closeLocked(ctx context.Context) {
	friend, ok := e.state.ActiveChatFriend()
	e.phase = PhaseClosed
	if ok {
		e.presence.ReportClosed(ctx, friend)
	}
	e.state.ClearActiveChatFriend()
}

// Send emits a message to the open room. When the friend does not have the
// conversation open on their side, their friend list is told to refresh so
// the unread badge appears.
func (e *Engine) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	friend, ok := e.state.ActiveChatFriend()
	if !ok {
		return
	}
	room, _ := e.state.Room()

	_ = e.emitter.Emit(push.EmitNewMessage, map[string]string{
		"message": text,
		"friend":  friend,
		"room":    room,
	})

	inChat, err := e.backend.FriendIsInChat(ctx, friend)
	if err != nil {
		e.logger.Warn().Err(err).Str("friend", friend).Msg("check friend in chat")
		return
	}
	if !inChat {
		_ = e.emitter.Emit(push.EmitToReloadFriendSection, map[string]string{"friend": friend})
	}
}

// Attach registers the engine's push event handlers.
func (e *Engine) Attach(ch *push.Channel) {
	ch.Handle(push.EventChat, e.HandleIncoming)
	ch.Handle(push.EventPrevMessages, e.HandlePrevMessages)
}

// HandleIncoming appends a live message to the transcript. Placement is
// decided by comparing the sender against the active friend. With no
// session open the message stays out of the transcript but the sender's
// unread indicator is set.
func (e *Engine) HandleIncoming(data json.RawMessage) {
	var payload struct {
		Message string `json:"message"`
		Sender  string `json:"sender"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		e.logger.Warn().Err(err).Msg("malformed chat payload")
		return
	}

	active, ok := e.state.ActiveChatFriend()
	if !ok {
		e.state.SetUnread(payload.Sender, true)
		return
	}
	e.view.Append(payload.Message, payload.Sender == active)
}

// HandlePrevMessages re-renders the transcript from the room history the
// server sends after a join. Ignored when no session is active.
func (e *Engine) HandlePrevMessages(data json.RawMessage) {
	var payload struct {
		Messages map[string]types.Message `json:"messages"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		e.logger.Warn().Err(err).Msg("malformed prevMessages payload")
		return
	}

	friend, ok := e.state.ActiveChatFriend()
	if !ok {
		return
	}

	msgs := make([]types.Message, 0, len(payload.Messages))
	for id, msg := range payload.Messages {
		msg.ID = id
		msgs = append(msgs, msg)
	}
	sortMessages(msgs)

	e.view.Clear()
	for _, msg := range msgs {
		e.view.Append(msg.Content, msg.Sender == friend)
	}
}

// markUnreadAsRead batches every unread message addressed to the user into
// one mark-read call. No call is issued when nothing is unread.
func (e *Engine) markUnreadAsRead(ctx context.Context, friend string, conv *types.Conversation) {
	var ids []string
	for _, msg := range conv.Messages {
		if msg.Receiver != "" && msg.Receiver != friend && !msg.Read {
			ids = append(ids, msg.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := e.backend.MarkRead(ctx, conv.ID, ids); err != nil {
		e.logger.Warn().Err(err).Str("conversation", conv.ID).Msg("mark messages read")
	}
}

func sortMessages(msgs []types.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Date != msgs[j].Date {
			return msgs[i].Date < msgs[j].Date
		}
		return msgs[i].ID < msgs[j].ID
	})
}
