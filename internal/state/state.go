// Package state holds the runtime configuration and delivery markers shared
// by the poll loop and the command controller. Both documents are persisted
// as whole-file JSON snapshots so a restart never observes a partial write.
package state

import "strings"

// Default runtime settings applied when no settings document exists yet.
const (
	DefaultIntervalMinutes = 3
	MinIntervalMinutes     = 1
)

// Settings is the runtime configuration document. It is mutated only by the
// command controller and re-read fresh by the watcher every cycle.
type Settings struct {
	Accounts        []string `json:"accounts"`
	IntervalMinutes int      `json:"interval_minutes"`
	Channel         string   `json:"channel,omitempty"`
	Paused          bool     `json:"paused"`
}

// DefaultSettings returns the settings used on first run.
func DefaultSettings(defaultChannel string) Settings {
	return Settings{
		Accounts:        []string{},
		IntervalMinutes: DefaultIntervalMinutes,
		Channel:         defaultChannel,
	}
}

// Markers maps a canonical account handle to the last-delivered post id.
type Markers map[string]string

// CanonicalAccount normalizes a handle to its canonical @-prefixed form so
// "foo" and "@foo" name the same watched entity.
func CanonicalAccount(account string) string {
	account = strings.TrimSpace(account)
	if account == "" {
		return ""
	}
	if !strings.HasPrefix(account, "@") {
		account = "@" + account
	}
	return account
}

// ScreenName strips the canonical marker for use against the source platform.
func ScreenName(account string) string {
	return strings.TrimPrefix(account, "@")
}
