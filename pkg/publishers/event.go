package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

// DigestEvent is the payload published downstream once a digest is assembled.
type DigestEvent struct {
	DigestID    string        `json:"digest_id"`
	Topic       string        `json:"topic"`
	GeneratedAt time.Time     `json:"generated_at"`
	Tally       domain.Tally  `json:"tally"`
	Digest      domain.Digest `json:"digest"`
}

// NewDigestEvent wraps d for publishing.
func NewDigestEvent(d domain.Digest) DigestEvent {
	return DigestEvent{
		DigestID:    d.ID,
		Topic:       d.Topic,
		GeneratedAt: d.GeneratedAt,
		Tally:       d.Tally,
		Digest:      d,
	}
}

// attributes are the string attributes attached to queue and topic messages.
func (e DigestEvent) attributes() map[string]string {
	return map[string]string{
		"digest_id": e.DigestID,
		"topic":     e.Topic,
	}
}
