// Package channel holds the destination adapters announcements fan out to.
//
// Every adapter is self-contained: it owns its credentials, request shaping,
// HTTP client, and timeout. Failures are caught inside Post and returned as a
// failed Outcome; an adapter must never panic into the coordinator or affect
// a sibling channel.
package channel

import (
	"context"

	"jobcaster/internal/webhook"
)

// Platform identifiers, also used as generation style keys.
const (
	PlatformLinkedIn   = "linkedin"
	PlatformFacebook   = "facebook"
	PlatformGoogleChat = "googlechat"
	PlatformTelegram   = "telegram"
)

// RenderedPost is one channel's announcement, produced fresh per event.
type RenderedPost struct {
	Platform  string
	Body      string
	TargetURL string
}

// Outcome is the per-channel dispatch result.
type Outcome struct {
	Platform  string `json:"platform"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
	// Detail is an opaque success payload, e.g. the remote post id.
	Detail string `json:"detail,omitempty"`
}

// Adapter posts one rendered announcement to one destination.
type Adapter interface {
	Platform() string
	Post(ctx context.Context, post RenderedPost, job webhook.Job) Outcome
}

// Checker is optionally implemented by adapters that can probe their
// destination's reachability (used by the health surface).
type Checker interface {
	Check(ctx context.Context) error
}

func failure(platform string, err error) Outcome {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Outcome{Platform: platform, Error: msg}
}

func success(platform, detail string) Outcome {
	return Outcome{Platform: platform, Succeeded: true, Detail: detail}
}
