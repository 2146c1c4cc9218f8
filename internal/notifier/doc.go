// Package notifier announces entries that a run inserted for the first time.
//
// Announcements go to Telegram when credentials are configured, or are
// printed by the dry-run notifier so the message text can be inspected
// without posting anything. Notification failures are reported to the
// caller, which logs them and carries on.
package notifier
