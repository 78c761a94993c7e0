/*
Package push maintains the persistent realtime channel between the GuildMe
client and the backend.

The push package wraps a websocket connection into a named-event channel:
outbound emissions are queued and written by a dedicated writer, inbound
frames are decoded and dispatched to registered handlers. It is the
client's only realtime transport; every live update (chat messages,
friend-list invalidations, notification feeds) arrives through it.

# Architecture

The channel runs three goroutines around one connection:

	┌──────────────────── PUSH CHANNEL ────────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐          │
	│  │              connLoop                       │          │
	│  │  - Reads frames from the websocket          │          │
	│  │  - Decodes Envelope{event, data}            │          │
	│  │  - Refreshes read deadline on pong          │          │
	│  │  - Redials with backoff on disconnect       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │ recv channel                        │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            dispatchLoop                     │          │
	│  │  - One event at a time, in arrival order    │          │
	│  │  - Handlers run in registration order       │          │
	│  │  - Unknown events are logged and dropped    │          │
	│  └────────────────────────────────────────────┘          │
	│                                                           │
	│  ┌────────────────────────────────────────────┐          │
	│  │              writeLoop                      │          │
	│  │  - Drains the send queue (buffer: 64)       │          │
	│  │  - Pings every 30s, write deadline 10s      │          │
	│  └────────────────────────────────────────────┘          │
	└──────────────────────────────────────────────────────────┘

# Ordering Model

dispatchLoop is the single goroutine that invokes handlers, so two push
events are never processed concurrently. Engines rely on this: state
mutations triggered by push delivery are serialized with each other
without any handler-side locking. What the dispatch loop cannot order is
a push event against an in-flight HTTP response; that race is resolved by
session tickets (see pkg/session), not by the transport.

# Backpressure

Emit never blocks an engine. When the send buffer is full the oldest
pending frame is dropped and a warning logged; realtime events are
superseded by fresher ones anyway.

# Reconnection

A dropped connection does not kill the channel. The supervisor redials
with exponential backoff (1s doubling to a 30s cap), keeps registered
handlers, and flips Connected back on success. Frames in flight on the
dead connection are lost; the engines recover through their reload
events rather than transport-level replay.

# Usage

Dialing and wiring:

	ch, err := push.Dial(ctx, "ws://localhost:8000/ws", client.HTTPClient())
	if err != nil {
		return err
	}

	ch.Handle(push.EventChat, func(data json.RawMessage) {
		// decode and render
	})

	ch.Start()
	defer ch.Close()

Emitting:

	_ = ch.Emit(push.EmitJoin, map[string]string{
		"friend": "ada",
		"room":   conversationID,
	})

The HTTP client's cookie jar is handed to the dialer so the websocket
upgrade carries the same backend session cookie as the REST calls.

# Event Catalog

events.go lists every event name on the wire, split by direction. The
names are the backend's contract and are deliberately kept verbatim,
including their inconsistent spelling.

# Integration Points

This package integrates with:

  - pkg/chat: live messages and room history
  - pkg/presence: friend-section reload signals
  - pkg/notify: notification feeds and invalidations
  - pkg/flash: backend-originated error and success lines
  - pkg/status: readiness reflects Connected()

# See Also

  - Gorilla WebSocket: https://github.com/gorilla/websocket
*/
package push
