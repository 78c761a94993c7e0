/*
Package metrics defines the client's Prometheus metrics.

All metrics are registered at package init and written by the engines as
a side effect of normal operation:

  - guildme_push_events_received_total / emitted_total (by event)
  - guildme_push_reconnects_total
  - guildme_remote_call_errors_total (by endpoint and status)
  - guildme_chat_sessions_opened_total
  - guildme_tracking_poll_ticks_total
  - guildme_stale_responses_discarded_total (by session kind)
  - guildme_presence_refreshes_total
  - guildme_notification_fetches_total (by feed)
  - guildme_flash_messages_total (by severity)

Handler returns the scrape endpoint handler, mounted by pkg/status.

The stale-responses counter deserves a dashboard panel: it counts how
often a response for a superseded session was discarded, which is the
client's defense against out-of-order delivery actually doing work.
*/
package metrics
