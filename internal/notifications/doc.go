// Package notifications pushes run milestones to ntfy.
//
// NewService returns an ntfy-backed Service when notifications.ntfy_topic is
// set and a no-op otherwise. Forwarder adapts the Service to the event stream
// so the daemon only has to add it as a hub sink; the toggles in the
// [notifications] config section pick which milestones are sent.
package notifications
