/*
commits.go - Commit-history prefill for record descriptions

PURPOSE:
  Pulls a user's commits for a date range and renders them as text
  suitable for pre-filling a time record's description. Purely a
  convenience around an external source-control API; not part of the
  accounting core.

SETTINGS:
  Each user configures repository, branch, and author handle once
  (the userSettings collection); the prefill reads them back.
*/
package reports

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Commit is one entry from the source-control history.
type Commit struct {
	ShortHash string
	Message   string
	Timestamp time.Time
	URL       string
}

// CommitSource is the external source-control API.
type CommitSource interface {
	Commits(ctx context.Context, repo, author, branch string, from, to time.Time) ([]Commit, error)
}

// Settings is a user's commit-prefill configuration.
type Settings struct {
	UserID     string
	Repository string
	Branch     string
	Author     string
}

// SettingsStore persists per-user settings (the userSettings collection).
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (*Settings, error)
	PutSettings(ctx context.Context, s Settings) error
}

// CommitPrefill resolves a user's settings and renders their commits for
// [from, to] as description text. Users without settings get an empty
// prefill, not an error.
type CommitPrefill struct {
	Source   CommitSource
	Settings SettingsStore
}

func (p *CommitPrefill) Description(ctx context.Context, userID string, from, to time.Time) (string, error) {
	settings, err := p.Settings.GetSettings(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	if settings == nil || settings.Repository == "" {
		return "", nil
	}

	commits, err := p.Source.Commits(ctx, settings.Repository, settings.Author, settings.Branch, from, to)
	if err != nil {
		return "", fmt.Errorf("fetch commits: %w", err)
	}

	var b strings.Builder
	for _, c := range commits {
		// One line per commit, first message line only.
		message := c.Message
		if i := strings.IndexByte(message, '\n'); i >= 0 {
			message = message[:i]
		}
		fmt.Fprintf(&b, "%s %s\n", c.ShortHash, message)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
