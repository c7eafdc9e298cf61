// Package notifications delivers run outcomes to ntfy.
//
// NewService returns an ntfy-backed Service when a topic is configured and a
// no-op implementation otherwise, so pipeline code never checks whether
// notifications are enabled. Per-event toggles in config.toml suppress mint
// or failure messages individually.
package notifications
