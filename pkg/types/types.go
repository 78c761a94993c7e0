package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Friend is a single entry in the user's friend directory. The directory is
// keyed by username, which is the handle the backend expects in request
// bodies and push payloads.
type Friend struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`

	// UnreadMessages is set by the friend-list fetch when the user has
	// unread messages from this friend.
	UnreadMessages bool `json:"unread_messages,omitempty"`

	// TracksMe reports that the user granted this friend track access.
	TracksMe bool `json:"tracks_me,omitempty"`

	// TrackedByMe reports that this friend granted the user track access.
	TrackedByMe bool `json:"tracked_by_me,omitempty"`
}

// Message is one chat message inside a conversation. Local copies are
// display projections; only the Read flag is ever updated client side.
type Message struct {
	ID             string `json:"id,omitempty"`
	Sender         string `json:"sender"`
	Receiver       string `json:"receiver,omitempty"`
	Content        string `json:"content"`
	Read           bool   `json:"read"`
	Date           string `json:"date,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Conversation is the fetched history between the user and one friend.
type Conversation struct {
	ID       string
	Messages []Message
}

// UnmarshalJSON decodes the backend's conversation payload, which is a flat
// object mapping message ids to messages with a conversation_id key mixed
// into the same object.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Messages = c.Messages[:0]
	for key, val := range raw {
		if key == "conversation_id" {
			if err := json.Unmarshal(val, &c.ID); err != nil {
				return fmt.Errorf("decode conversation_id: %w", err)
			}
			continue
		}
		var msg Message
		if err := json.Unmarshal(val, &msg); err != nil {
			return fmt.Errorf("decode message %s: %w", key, err)
		}
		msg.ID = key
		c.Messages = append(c.Messages, msg)
	}

	// The source object is unordered; oldest first for rendering.
	sort.Slice(c.Messages, func(i, j int) bool {
		if c.Messages[i].Date != c.Messages[j].Date {
			return c.Messages[i].Date < c.Messages[j].Date
		}
		return c.Messages[i].ID < c.Messages[j].ID
	})
	return nil
}

// Coordinates is a latitude/longitude pair. The backend encodes locations
// as a two-element [lat, long] array.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// MarshalJSON encodes the coordinates as [lat, long].
func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Latitude, c.Longitude})
}

// UnmarshalJSON decodes a [lat, long] array.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	c.Latitude = pair[0]
	c.Longitude = pair[1]
	return nil
}

// Equal reports exact coordinate equality. Arrival detection deliberately
// uses exact comparison; see the tracking engine.
func (c Coordinates) Equal(other Coordinates) bool {
	return c.Latitude == other.Latitude && c.Longitude == other.Longitude
}

// FeedKind identifies one of the two notification feeds.
type FeedKind string

const (
	FeedGeneral       FeedKind = "general"
	FeedFriendRequest FeedKind = "friend_request"
)

// NotificationItem is one entry in the general notification feed.
type NotificationItem struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Read    bool   `json:"read"`
}

// FriendRequest is one entry in the friend-request feed.
type FriendRequest struct {
	ID     string `json:"id,omitempty"`
	From   string `json:"from"`
	Avatar string `json:"avatar,omitempty"`
	Date   string `json:"date"`
}
