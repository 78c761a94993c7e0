package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JamesRaphaelJRC/guildme/pkg/types"
)

// Ticket marks one generation of a session. In-flight work captures a
// ticket when it starts and re-validates it before applying effects; a
// mismatch means the session was switched or torn down underneath it.
type Ticket struct {
	Friend string
	Epoch  uint64
}

// State is the authoritative record of what is currently active: the chat
// peer, the tracked target and the friend directory. Engines read it
// freely; each session kind has exactly one writing engine.
type State struct {
	mu sync.Mutex

	chatFriend string
	chatRoom   string
	panelOpen  bool
	chatEpoch  uint64

	trackTarget   string
	accessGranted bool
	trackEpoch    uint64

	selfCoords   *types.Coordinates
	targetCoords *types.Coordinates

	directory map[string]types.Friend
}

// NewState creates an empty session state.
func NewState() *State {
	return &State{directory: make(map[string]types.Friend)}
}

// SetActiveChatFriend makes friend the active chat peer. It is an
// idempotent no-op when friend is already active. Any previous room
// association is dropped; the two sessions never overlap.
func (s *State) SetActiveChatFriend(friend string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chatFriend == friend {
		return Ticket{Friend: friend, Epoch: s.chatEpoch}, false
	}
	s.chatFriend = friend
	s.chatRoom = ""
	s.chatEpoch++
	return Ticket{Friend: friend, Epoch: s.chatEpoch}, true
}

// ClearActiveChatFriend closes out the chat session. No-op when no chat
// session is active.
func (s *State) ClearActiveChatFriend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chatFriend == "" {
		return false
	}
	s.chatFriend = ""
	s.chatRoom = ""
	s.panelOpen = false
	s.chatEpoch++
	return true
}

// ActiveChatFriend returns the active chat peer, if any.
func (s *State) ActiveChatFriend() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatFriend, s.chatFriend != ""
}

// SetRoom records the joined room. A room may only exist under an active
// chat friend.
func (s *State) SetRoom(room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chatFriend == "" {
		return fmt.Errorf("cannot set room %q without an active chat friend", room)
	}
	s.chatRoom = room
	return nil
}

// Room returns the joined room id, if any.
func (s *State) Room() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatRoom, s.chatRoom != ""
}

// SetPanelOpen records panel visibility. An open panel requires an active
// chat friend.
func (s *State) SetPanelOpen(open bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if open && s.chatFriend == "" {
		return fmt.Errorf("cannot open chat panel without an active chat friend")
	}
	s.panelOpen = open
	return nil
}

// IsPanelOpen reports whether the chat panel is visible.
func (s *State) IsPanelOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelOpen
}

// ChatTicket snapshots the current chat session generation.
func (s *State) ChatTicket() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ticket{Friend: s.chatFriend, Epoch: s.chatEpoch}
}

// ChatStillCurrent reports whether the given ticket still names the live
// chat session.
func (s *State) ChatStillCurrent(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatFriend == t.Friend && s.chatEpoch == t.Epoch
}

// SetTrackingTarget makes friend the tracked target. Idempotent no-op when
// the target already holds. Starting a session grants access until the
// backend says otherwise.
func (s *State) SetTrackingTarget(friend string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trackTarget == friend {
		return Ticket{Friend: friend, Epoch: s.trackEpoch}, false
	}
	s.trackTarget = friend
	s.accessGranted = true
	s.targetCoords = nil
	s.trackEpoch++
	return Ticket{Friend: friend, Epoch: s.trackEpoch}, true
}

// ClearTrackingTarget tears the tracking session down. No-op when no
// target is set.
func (s *State) ClearTrackingTarget() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trackTarget == "" {
		return false
	}
	s.trackTarget = ""
	s.accessGranted = false
	s.targetCoords = nil
	s.trackEpoch++
	return true
}

// TrackingTarget returns the tracked friend, if any.
func (s *State) TrackingTarget() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackTarget, s.trackTarget != ""
}

// SetAccessGranted records the backend's authorization verdict for the
// current target.
func (s *State) SetAccessGranted(granted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessGranted = granted
}

// AccessGranted reports whether the current target may still be polled.
func (s *State) AccessGranted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessGranted
}

// TrackingTicket snapshots the current tracking session generation.
func (s *State) TrackingTicket() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ticket{Friend: s.trackTarget, Epoch: s.trackEpoch}
}

// TrackingStillCurrent reports whether the given ticket still names the
// live tracking session.
func (s *State) TrackingStillCurrent(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackTarget == t.Friend && s.trackEpoch == t.Epoch
}

// SetSelfCoords records the user's own last known coordinates.
func (s *State) SetSelfCoords(c types.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coords := c
	s.selfCoords = &coords
}

// SelfCoords returns the user's last known coordinates, if any.
func (s *State) SelfCoords() (types.Coordinates, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selfCoords == nil {
		return types.Coordinates{}, false
	}
	return *s.selfCoords, true
}

// SetTargetCoords records the tracked friend's last known coordinates.
func (s *State) SetTargetCoords(c types.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coords := c
	s.targetCoords = &coords
}

// TargetCoords returns the tracked friend's last known coordinates, if any.
func (s *State) TargetCoords() (types.Coordinates, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.targetCoords == nil {
		return types.Coordinates{}, false
	}
	return *s.targetCoords, true
}

// ReplaceFriends swaps in a freshly fetched friend directory. The refresh
// loop fully replaces the collection rather than patching it. A session
// referencing a friend that disappeared from the directory is invalidated.
func (s *State) ReplaceFriends(friends []types.Friend) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.directory = make(map[string]types.Friend, len(friends))
	for _, f := range friends {
		s.directory[f.Username] = f
	}

	if s.chatFriend != "" {
		if _, ok := s.directory[s.chatFriend]; !ok {
			s.chatFriend = ""
			s.chatRoom = ""
			s.panelOpen = false
			s.chatEpoch++
		}
	}
	if s.trackTarget != "" {
		if _, ok := s.directory[s.trackTarget]; !ok {
			s.trackTarget = ""
			s.accessGranted = false
			s.targetCoords = nil
			s.trackEpoch++
		}
	}
}

// Friends returns a copy of the directory sorted by username.
func (s *State) Friends() []types.Friend {
	s.mu.Lock()
	defer s.mu.Unlock()

	friends := make([]types.Friend, 0, len(s.directory))
	for _, f := range s.directory {
		friends = append(friends, f)
	}
	sort.Slice(friends, func(i, j int) bool { return friends[i].Username < friends[j].Username })
	return friends
}

// Friend looks up one directory entry by username.
func (s *State) Friend(username string) (types.Friend, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.directory[username]
	return f, ok
}

// SetUnread flips the unread marker of one friend. Returns false when the
// friend is not in the directory.
func (s *State) SetUnread(username string, unread bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.directory[username]
	if !ok {
		return false
	}
	f.UnreadMessages = unread
	s.directory[username] = f
	return true
}
