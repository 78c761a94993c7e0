/*
Package chat runs the active chat session: joining a conversation,
rendering its history, sending and receiving messages, and marking
messages read.

# Lifecycle

A session moves through three phases:

	Closed ──open──▶ Joining ──history applied──▶ Joined
	   ▲                │                            │
	   └────── close / friend gone / switch ─────────┘

Selecting a friend fetches the conversation, reports presence, joins the
room and renders history. Selecting a different friend while one is open
closes the previous session first, as one observable transition; the
in-flight history fetch of the superseded session is discarded by ticket
check, never applied to the new transcript.

Reselecting the already open friend is a no-op: no duplicate join, no
duplicate presence report, no transcript flicker.

# Read Marking

On join, every unread message addressed to the user is batched into a
single mark-read call. Nothing unread means no call at all. The sender's
unread badge is cleared locally at the same time.

# Incoming Messages

Live messages for the open session land in the transcript, placed by
comparing the sender against the active friend. Messages for anyone else
only set that sender's unread marker; the friend list shows the badge on
its next refresh.

# Send Path

Send emits the message over the push channel, then asks the backend
whether the peer currently has the conversation open. If not, the peer's
friend section is told to refresh so their unread badge appears promptly.

# Integration Points

This package integrates with:

  - pkg/session: active friend, room, panel and staleness tickets
  - pkg/push: newMessage/join emissions, chat and prevMessages events
  - pkg/presence: in-chat reporting on open and close
  - pkg/flash: "Friend does not exist anymore" on a failed join
*/
package chat
