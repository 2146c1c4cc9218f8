// Package telegram provides a minimal Telegram Bot API client used to
// announce new news and patch-notes entries.
//
// Authentication requires a bot token (from @BotFather) and chat ID.
package telegram
