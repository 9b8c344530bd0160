package server

import "regexp"

var botTokenPattern = regexp.MustCompile(`\d{5,}:[A-Za-z0-9_-]{30,}`)

// redactBotToken masks Telegram bot tokens that appear in request URIs, e.g. when the
// webhook path embeds the token as a secret.
func redactBotToken(uri string) string {
	return botTokenPattern.ReplaceAllString(uri, "<redacted>")
}
