package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	require.NoError(t, err)
	return client
}

// TestGetFriends tests flattening the backend's id-keyed friend object
// into a sorted slice.
func TestGetFriends(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/user/friends", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id-2": {"username": "zoe", "unread_messages": true},
			"id-1": {"username": "ada"}
		}`))
	}))

	friends, err := client.GetFriends(context.Background())
	require.NoError(t, err)
	require.Len(t, friends, 2)

	assert.Equal(t, "ada", friends[0].Username)
	assert.Equal(t, "id-1", friends[0].ID, "id filled from the object key")
	assert.Equal(t, "zoe", friends[1].Username)
	assert.True(t, friends[1].UnreadMessages)
}

// TestGetConversation tests decoding the flat conversation payload.
func TestGetConversation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada", body["friend"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"conversation_id": "conv-1",
			"m1": {"sender": "ada", "content": "hi", "date": "2024-01-01"}
		}`))
	}))

	conv, err := client.GetConversation(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conv.ID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "hi", conv.Messages[0].Content)
}

// TestMarkReadBody tests that all ids travel in one batched request.
func TestMarkReadBody(t *testing.T) {
	var got struct {
		Messages       []string `json:"messages"`
		ConversationID string   `json:"conversation_id"`
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.MarkRead(context.Background(), "conv-1", []string{"m1", "m2", "m3"})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", got.ConversationID)
	assert.Equal(t, []string{"m1", "m2", "m3"}, got.Messages)
}

// TestErrorClassification tests the status-carrying error and its helpers.
func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantStatus  int
		clientClass bool
	}{
		{
			name:        "404 with error body",
			status:      http.StatusNotFound,
			body:        `{"error": "no location"}`,
			wantMessage: "no location",
			wantStatus:  404,
			clientClass: true,
		},
		{
			name:        "400 with status body",
			status:      http.StatusBadRequest,
			body:        `{"status": "not allowed"}`,
			wantMessage: "not allowed",
			wantStatus:  400,
			clientClass: true,
		},
		{
			name:        "500 is not a client error",
			status:      http.StatusInternalServerError,
			body:        `{}`,
			wantStatus:  500,
			clientClass: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := client.FriendLocation(context.Background(), "ada")
			require.Error(t, err)

			assert.True(t, IsStatus(err, tt.wantStatus))
			assert.False(t, IsStatus(err, tt.wantStatus+1))
			assert.Equal(t, tt.clientClass, IsClientError(err))

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

// TestTransportErrorIsNotStatusError tests that a refused connection does
// not satisfy the status helpers.
func TestTransportErrorIsNotStatusError(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = client.GetFriends(context.Background())
	require.Error(t, err)
	assert.False(t, IsClientError(err))
	assert.False(t, IsStatus(err, 404))
}

// TestFriendLocation tests decoding the [lat, long] location payload.
func TestFriendLocation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"location": [6.5244, 3.3792]}`))
	}))

	coords, err := client.FriendLocation(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, 6.5244, coords.Latitude)
	assert.Equal(t, 3.3792, coords.Longitude)
}

// TestFriendIsInChat tests the boolean status response.
func TestFriendIsInChat(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": true}`))
	}))

	inChat, err := client.FriendIsInChat(context.Background(), "ada")
	require.NoError(t, err)
	assert.True(t, inChat)
}

// TestRemoveFriendReturnsFriendID tests the id handed back for the
// verify-to-delete push event.
func TestRemoveFriendReturnsFriendID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"friend_id": "fid-7"}`))
	}))

	id, err := client.RemoveFriend(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, "fid-7", id)
}
