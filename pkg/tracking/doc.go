/*
Package tracking follows a friend's live location on the map.

The engine runs two independent loops: a continuous self-location watch
that reports the user's own position to the backend, and an on-demand
poll loop that fetches the tracked friend's position on a fixed interval
and drives the route overlay.

# Lifecycle

	Idle ──track──▶ Polling ──arrival / revoked / 404 / stop──▶ Idle

Starting a session requires a known self position; without one the
request is refused with a flash message. Switching targets cancels the
previous poll and clears its overlay before the new one starts. A poll
response belonging to a superseded target is discarded by ticket check.

# Poll Outcomes

Each tick classifies its result:

  - Fresh coordinates: the route overlay is updated in place. The map
    never stacks a second overlay.
  - Coordinates equal to the self position: arrival. Polling and the
    self watch stop, the final frame stays on screen.
  - 404: the target has no stored location. The session ends with
    "<friend>'s location is currently unavailable."
  - Other 4xx: track access was revoked or the friendship is gone. The
    session ends with "<friend> did not grant you track access or no
    more exist".
  - Transport failure: transient. The session stays alive for the next
    tick.

Arrival is exact coordinate equality. The backend reports positions at a
granularity where equality is the arrival signal; a distance threshold
would end sessions early.

# Locator Failures

The self watch is a platform service. When it fails the tracking
affordance is switched off for the remainder of the process: any active
session is torn down and subsequent Track calls are refused. Location
updates that arrived before the failure remain cached (pkg/store) so the
next start can warm up faster.

# Integration Points

This package integrates with:

  - pkg/session: tracking target, coordinates and staleness tickets
  - pkg/api: FriendLocation polls, UpdateLocation reports
  - pkg/store: last-known self position cache
  - pkg/flash: session-ending error lines
*/
package tracking
