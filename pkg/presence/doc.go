/*
Package presence reports the user's own chat activity to the backend and
keeps the friend directory fresh.

# In-Chat Reporting

The backend uses in-chat status to decide whether to badge the peer's
friend list when a message arrives. The reporter guards both directions:
a repeat open report for the already-open friend is a no-op, and a close
is reported exactly once, only for the friend most recently reported
open. Rapid open/close/switch sequences therefore produce a minimal,
correctly ordered stream of status updates.

# Directory Refresh

A fixed-interval loop (default 5s) refetches the friend list, recomputes
unread badges and fully replaces the shared directory; the view renders
the replacement wholesale. Push events that signal a changed friend
section request an immediate out-of-band refresh through the same loop.

One adjustment is applied before rendering: a conversation currently
showing in the open chat panel never carries an unread badge, even while
the server-side unread flag is still set. The user is already looking at
those messages.

A failed refresh keeps the previous rendering; the directory never
degrades to empty on a transient error.

# Integration Points

This package integrates with:

  - pkg/api: GetFriends, UpdateIsInChat
  - pkg/session: directory replacement, active-chat queries
  - pkg/chat: open/close reporting via the PresenceReporter interface
  - pkg/push: reload friend section events
*/
package presence
