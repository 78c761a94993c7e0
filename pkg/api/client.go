package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"time"

	"github.com/JamesRaphaelJRC/guildme/pkg/metrics"
	"github.com/JamesRaphaelJRC/guildme/pkg/types"
)

const defaultTimeout = 10 * time.Second

// Client performs request/response calls against the GuildMe backend. All
// bodies and responses are JSON. Authentication rides on the session
// cookie shared with the push channel.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// Error is a backend failure carrying the HTTP status code, used to
// classify authorization failures versus missing data.
type Error struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsStatus reports whether err is a backend Error with the given status.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// IsClientError reports whether err is a 4xx backend Error.
func IsClientError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Jar: jar},
		timeout: defaultTimeout,
	}, nil
}

// HTTPClient exposes the underlying client so the push channel can share
// the session cookie jar.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RemoteCallErrorsTotal.WithLabelValues(path, "transport").Inc()
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		metrics.RemoteCallErrorsTotal.WithLabelValues(path, fmt.Sprint(resp.StatusCode)).Inc()
		var payload struct {
			Error  string `json:"error"`
			Status string `json:"status"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		msg := payload.Error
		if msg == "" {
			msg = payload.Status
		}
		return &Error{StatusCode: resp.StatusCode, Endpoint: path, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// GetFriends fetches the full friend directory including unread markers.
// The backend returns an object keyed by friend id.
func (c *Client) GetFriends(ctx context.Context) ([]types.Friend, error) {
	var raw map[string]types.Friend
	if err := c.do(ctx, http.MethodGet, "/api/user/friends", nil, &raw); err != nil {
		return nil, err
	}
	return friendSet(raw), nil
}

// SearchFriends filters the friend directory by the given query.
func (c *Client) SearchFriends(ctx context.Context, query string) ([]types.Friend, error) {
	var raw map[string]types.Friend
	body := map[string]string{"query": query}
	if err := c.do(ctx, http.MethodPost, "/api/user/friends/search", body, &raw); err != nil {
		return nil, err
	}
	return friendSet(raw), nil
}

// AddFriend persists a new friendship. Called when accepting a friend
// request, before the acceptance is announced to the peer.
func (c *Client) AddFriend(ctx context.Context, friend string) error {
	body := map[string]string{"friend": friend}
	return c.do(ctx, http.MethodPost, "/api/user/friends/new", body, nil)
}

// RemoveFriend removes a friend and returns the removed friend's id, which
// the caller forwards on the push channel for conversation cleanup.
func (c *Client) RemoveFriend(ctx context.Context, friend string) (string, error) {
	var resp struct {
		FriendID string `json:"friend_id"`
	}
	body := map[string]string{"friend": friend}
	if err := c.do(ctx, http.MethodDelete, "/api/user/friends/remove", body, &resp); err != nil {
		return "", err
	}
	return resp.FriendID, nil
}

// AllowTrack grants the friend permission to see the user's location.
func (c *Client) AllowTrack(ctx context.Context, friend string) error {
	body := map[string]string{"friend": friend}
	return c.do(ctx, http.MethodPost, "/api/user/friends/allow_track", body, nil)
}

// DisallowTrack revokes the friend's permission to see the user's location.
func (c *Client) DisallowTrack(ctx context.Context, friend string) error {
	body := map[string]string{"friend": friend}
	return c.do(ctx, http.MethodPost, "/api/user/friends/disallow_track", body, nil)
}

// TrackingMe lists friends the user granted track permission to.
func (c *Client) TrackingMe(ctx context.Context) ([]types.Friend, error) {
	var resp struct {
		Friends map[string]types.Friend `json:"friends"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/user/friends/tracking_me", nil, &resp); err != nil {
		return nil, err
	}
	return friendSet(resp.Friends), nil
}

// AllowedTracks lists friends that granted the user track permission.
func (c *Client) AllowedTracks(ctx context.Context) ([]types.Friend, error) {
	var resp struct {
		Friends map[string]types.Friend `json:"friends"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/user/friends/allow_track", nil, &resp); err != nil {
		return nil, err
	}
	return friendSet(resp.Friends), nil
}

// GetConversation fetches (creating if absent) the conversation with the
// given friend and all of its messages.
func (c *Client) GetConversation(ctx context.Context, friend string) (*types.Conversation, error) {
	var conv types.Conversation
	body := map[string]string{"friend": friend}
	if err := c.do(ctx, http.MethodPost, "/api/user/friend/conversation", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// MarkRead marks the given messages of one conversation as read. Callers
// batch all unread ids into a single call.
func (c *Client) MarkRead(ctx context.Context, conversationID string, messageIDs []string) error {
	body := map[string]any{
		"messages":        messageIDs,
		"conversation_id": conversationID,
	}
	return c.do(ctx, http.MethodPost, "/api/user/friend/conversation/read", body, nil)
}

// FriendIsInChat reports whether the friend currently has a chat session
// open with the user.
func (c *Client) FriendIsInChat(ctx context.Context, friend string) (bool, error) {
	var resp struct {
		Status bool `json:"status"`
	}
	body := map[string]string{"friend": friend}
	if err := c.do(ctx, http.MethodPost, "/api/user/isInChat", body, &resp); err != nil {
		return false, err
	}
	return resp.Status, nil
}

// UpdateIsInChat records whether the user currently has a chat session
// open with the friend.
func (c *Client) UpdateIsInChat(ctx context.Context, friend string, status bool) error {
	body := map[string]any{"friend": friend, "status": status}
	return c.do(ctx, http.MethodPost, "/api/user/isInChat/update", body, nil)
}

// UpdateLocation reports the user's own coordinates.
func (c *Client) UpdateLocation(ctx context.Context, coords types.Coordinates) error {
	body := map[string]float64{
		"latitude":  coords.Latitude,
		"longitude": coords.Longitude,
	}
	return c.do(ctx, http.MethodPost, "/api/user/update_location", body, nil)
}

// FriendLocation fetches the friend's current coordinates. A 404 means the
// friend has no location yet; a 400 means the user has no track access.
func (c *Client) FriendLocation(ctx context.Context, friend string) (types.Coordinates, error) {
	var resp struct {
		Location types.Coordinates `json:"location"`
	}
	body := map[string]string{"friend": friend}
	if err := c.do(ctx, http.MethodPost, "/api/user/friend/current_location", body, &resp); err != nil {
		return types.Coordinates{}, err
	}
	return resp.Location, nil
}

// DeleteAccount removes the user account.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/user/remove", nil, nil)
}

// Logout terminates the backend session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/user/logout", nil, nil)
}

// friendSet flattens a keyed friend object into a slice, filling ids from
// the keys when missing.
func friendSet(raw map[string]types.Friend) []types.Friend {
	friends := make([]types.Friend, 0, len(raw))
	for id, f := range raw {
		if f.ID == "" {
			f.ID = id
		}
		friends = append(friends, f)
	}
	sort.Slice(friends, func(i, j int) bool { return friends[i].Username < friends[j].Username })
	return friends
}
