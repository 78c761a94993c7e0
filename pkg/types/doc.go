/*
Package types defines the core data structures shared across the GuildMe
client.

This package contains the domain model: friends, messages,
conversations, coordinates and notification entries. All other packages
build on these types for session state, rendering and wire
serialization.

# Wire Formats

Two backend quirks are absorbed here so the rest of the client sees
clean types:

  - A conversation arrives as a flat JSON object of message-id to
    message with a "conversation_id" key mixed into the same object.
    Conversation.UnmarshalJSON separates the id, lifts the messages into
    a slice and sorts them chronologically.
  - Coordinates travel as a bare [latitude, longitude] array, not an
    object. Coordinates marshals to and from that shape.

Coordinate equality is exact float comparison. Arrival detection in
pkg/tracking depends on it; do not soften it to a distance threshold.
*/
package types
