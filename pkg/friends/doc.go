/*
Package friends handles friend-list mutations, track permissions, search
and the profile page.

Mutations follow a persist-then-announce pattern: the HTTP call runs
first and the corresponding push event is emitted only on success, so a
peer never observes a state change that did not stick. Removing a friend
additionally requires confirmation before any call is issued.

The profile page's two permission lists (friends who can track you,
friends you can track) are fetched once and cached; the backend's
profile reload event invalidates the cache.
*/
package friends
