/*
Package log provides structured logging for the GuildMe client using
zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific loggers, configurable log levels, and
helper functions for common logging patterns.

# Usage

Initializing:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stderr,
	})

Console format (JSONOutput false) is the human-readable default for
interactive runs; JSON is for log aggregation.

Component loggers:

	logger := log.WithComponent("tracking")
	logger.Warn().Err(err).Str("friend", friend).Msg("location poll failed")

Context helpers exist for the fields that recur across the client:
WithComponent, WithFriend and WithEvent.

# Conventions

  - Engines log through a component child logger created once in their
    constructor.
  - User-visible failures go to pkg/flash; the log carries the
    diagnostic detail (wrapped error, friend, endpoint) at warn level.
  - Debug level is reserved for per-frame and per-tick noise: push
    dispatch, discarded stale responses.
*/
package log
