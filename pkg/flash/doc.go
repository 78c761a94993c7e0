/*
Package flash is the single transient-message surface of the client.

Every engine funnels its one-line failures and confirmations through the
Notifier interface instead of owning per-feature UI. Messages carry a
severity (error or success) and auto-dismiss after three seconds.

Backend-originated error and success push events are routed onto the
same surface by Attach, so server-side and client-side messages look
identical to the user.
*/
package flash
