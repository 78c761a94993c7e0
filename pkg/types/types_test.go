package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConversationUnmarshal tests decoding the backend's flat conversation
// object with conversation_id mixed in among the messages.
func TestConversationUnmarshal(t *testing.T) {
	payload := `{
		"conversation_id": "conv-9",
		"msg-2": {"sender": "ada", "content": "second", "read": false, "date": "2024-01-02"},
		"msg-1": {"sender": "me", "receiver": "ada", "content": "first", "read": true, "date": "2024-01-01"}
	}`

	var conv Conversation
	require.NoError(t, json.Unmarshal([]byte(payload), &conv))

	assert.Equal(t, "conv-9", conv.ID)
	require.Len(t, conv.Messages, 2)

	// Oldest first, ids filled from the object keys.
	assert.Equal(t, "msg-1", conv.Messages[0].ID)
	assert.Equal(t, "first", conv.Messages[0].Content)
	assert.Equal(t, "msg-2", conv.Messages[1].ID)
	assert.Equal(t, "ada", conv.Messages[1].Sender)
}

// TestConversationUnmarshalEmpty tests a conversation with no messages yet.
func TestConversationUnmarshalEmpty(t *testing.T) {
	var conv Conversation
	require.NoError(t, json.Unmarshal([]byte(`{"conversation_id": "conv-1"}`), &conv))

	assert.Equal(t, "conv-1", conv.ID)
	assert.Empty(t, conv.Messages)
}

// TestConversationUnmarshalOrdering tests that messages sharing a date fall
// back to id ordering.
func TestConversationUnmarshalOrdering(t *testing.T) {
	payload := `{
		"conversation_id": "conv-2",
		"b": {"sender": "ada", "content": "two", "date": "2024-01-01"},
		"a": {"sender": "ada", "content": "one", "date": "2024-01-01"}
	}`

	var conv Conversation
	require.NoError(t, json.Unmarshal([]byte(payload), &conv))
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "a", conv.Messages[0].ID)
	assert.Equal(t, "b", conv.Messages[1].ID)
}

// TestCoordinatesJSON tests the [lat, long] array wire shape.
func TestCoordinatesJSON(t *testing.T) {
	coords := Coordinates{Latitude: 6.5244, Longitude: 3.3792}

	data, err := json.Marshal(coords)
	require.NoError(t, err)
	assert.JSONEq(t, `[6.5244, 3.3792]`, string(data))

	var decoded Coordinates
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, coords, decoded)
}

// TestCoordinatesUnmarshalRejectsObject tests that an object form is an
// error rather than a silent zero value.
func TestCoordinatesUnmarshalRejectsObject(t *testing.T) {
	var coords Coordinates
	err := json.Unmarshal([]byte(`{"lat": 1, "long": 2}`), &coords)
	assert.Error(t, err)
}

// TestCoordinatesEqual tests exact equality semantics.
func TestCoordinatesEqual(t *testing.T) {
	a := Coordinates{Latitude: 1.0, Longitude: 2.0}
	b := Coordinates{Latitude: 1.0, Longitude: 2.0}
	c := Coordinates{Latitude: 1.0, Longitude: 2.0000001}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
