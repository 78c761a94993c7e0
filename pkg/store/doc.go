/*
Package store persists the client's local state across restarts using
BoltDB.

Three buckets:

  - identity: a stable per-installation client id, minted on first use
  - auth: the backend session token, cleared on logout
  - location: the last reported self coordinates, used to warm tracking
    up before the first live location fix arrives

The store is a cache, not a source of truth; everything in it can be
rebuilt from the backend or the platform location service.
*/
package store
