/*
Package api implements the request/response client for the GuildMe
backend.

Every endpoint method takes a context, applies a per-call timeout and
returns a typed error carrying the HTTP status, so callers can branch on
outcome classes without string matching:

	coords, err := client.FriendLocation(ctx, "ada")
	switch {
	case api.IsStatus(err, 404):
		// no stored location
	case api.IsClientError(err):
		// access revoked or friendship gone
	case err != nil:
		// transport failure, transient
	}

The client owns a cookie jar for the backend session cookie. The same
jar is shared with the push channel's websocket dialer via HTTPClient(),
so both transports authenticate as one session.

# Payload Shapes

The backend keys collections by id instead of using arrays: a friend
list arrives as {"id": {...}, ...} and a conversation as a flat object
of message-id to message with a conversation_id key mixed in. The
decoding of these shapes lives in pkg/types; this package only moves
bytes and maps status codes to errors.

# Error Taxonomy

  - *api.Error wraps any response with status >= 400 and carries the
    endpoint, status code and the backend's error message when present.
  - Transport failures (DNS, refused connections, timeouts) come back
    as wrapped plain errors without a status.
  - Helpers: IsStatus(err, code) and IsClientError(err) for the 4xx
    class.

Failed calls increment the remote-call error metric, labeled by
endpoint and status.
*/
package api
