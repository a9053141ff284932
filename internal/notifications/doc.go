// Package notifications delivers video job and session events via ntfy.
//
// The ntfy implementation publishes to the topic configured in config.toml
// and degrades to a no-op when no topic is set. Per-event toggles in the
// [notifications] section suppress individual event types, and poll error
// alerts are rate limited so a flapping API does not flood the topic.
package notifications
