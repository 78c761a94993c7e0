/*
Package notify manages the notification center: the general feed, the
friend-request feed and the bell.

# Feeds and Refresh Policies

Both feeds share one engine, parameterized by refresh policy rather than
duplicated:

  - General feed: RefreshAlways. Every view refetches; the feed mixes
    many event kinds and goes stale quickly.
  - Friend requests: RefreshOnce. Fetched on first view, then served
    from cache until the backend invalidates it.

Fetches travel over the push channel: the engine emits a get event and
the matching response event fills the cache and renders. An invalidation
event resets the feed's cache bit, and reloads immediately when that
feed's tab is visible.

# Friend Requests

Accepting a request persists the friendship over HTTP first and emits
accepted_request only after success, so the peer never sees a friendship
that is not durable. Declining emits immediately; nothing durable hinges
on it.

# Read Marking

Marking a notification read emits mark as read; the backend's blurr read
confirmation dims the entry. The dim is applied to the last marked item,
matching the one-at-a-time interaction of the notification panel.

# Account Deletion

Deleting the account asks for confirmation, then clears all server-side
notifications and issues the deletion call. A declined confirmation
issues no call at all.

# Integration Points

This package integrates with:

  - pkg/push: feed fetches, invalidations, alert_user, blurr read
  - pkg/api: AddFriend on accept, DeleteAccount
  - pkg/config: per-feed refresh policies
  - pkg/flash: failure lines
*/
package notify
