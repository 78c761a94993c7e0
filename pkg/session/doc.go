/*
Package session holds the authoritative record of what is currently
active in the client: the open chat session, the tracked friend and the
friend directory.

Everything else in the client is a projection of this state. Engines
mutate it under well-defined ownership (the chat engine owns the chat
fields, the tracking engine owns the tracking fields, the presence
reporter owns the directory) and read the rest freely.

# Tickets and Staleness

The client overlaps slow work with user input: a conversation fetch or a
location poll may still be in flight when the user switches to another
friend. A response that arrives for a superseded session must never be
applied.

The defense is the epoch ticket. Every session switch bumps an epoch
counter; work in flight captures a Ticket{Friend, Epoch} when it starts
and re-validates it before applying effects:

	ticket, _ := state.SetActiveChatFriend("ada")
	conv, err := backend.GetConversation(ctx, "ada")
	if !state.ChatStillCurrent(ticket) {
		return // superseded, discard
	}

A bare friend-name comparison is not enough: switching A -> B -> A yields
the same friend with a different epoch, and the response from the first A
session must still be discarded.

# Invariants

  - At most one chat session and one tracking session exist at a time.
  - A room id only exists under an active chat friend; clearing the
    friend clears the room.
  - The chat panel cannot be open without an active chat friend.
  - Starting a tracking session grants access optimistically; only the
    backend revokes it.
  - Replacing the friend directory invalidates any session whose friend
    disappeared, advancing that session's epoch.

# Concurrency

All fields sit behind one mutex. Accessors copy values out; nothing
escapes holding the lock. The directory returned by Friends is a sorted
copy, safe to render without further synchronization.

# Integration Points

This package integrates with:

  - pkg/chat: chat friend, room, panel and chat tickets
  - pkg/tracking: tracking target, coordinates and tracking tickets
  - pkg/presence: directory replacement and unread markers
*/
package session
