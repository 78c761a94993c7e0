/*
Package config loads the client configuration.

Configuration is layered, in increasing precedence:

  - Built-in defaults (Default)
  - An optional YAML file
  - GUILDME_* environment variables (a .env file in the working
    directory is honored via godotenv)

# Notable Settings

  - presence.refresh_interval: friend-list refresh period, default 5s.
  - tracking.poll_interval: location poll period, default 5s.
  - notifications.general_policy / friend_request_policy: per-feed
    refresh policies. The defaults reproduce the product behavior:
    the general feed refetches on every view, friend requests are
    fetched once and cached until invalidated.

Validate rejects non-positive intervals and unknown policies; Load runs
it on every successful load.
*/
package config
