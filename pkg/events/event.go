// Package events turns raw Slack [Events API] payloads into flat,
// typed [Event] records, which are the input of rule matching.
//
// [Events API]: https://docs.slack.dev/apis/events-api
package events

import (
	"encoding/json"
	"time"
)

// DateLayout is how [Event.EventTime] is rendered when it's compared or exported.
const DateLayout = time.DateOnly

// Event is an immutable snapshot derived from a single raw Slack payload.
// Empty strings stand for absent values in the original payload.
type Event struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TeamID       string    `json:"team_id,omitempty"`
	APIType      string    `json:"api_type,omitempty"`
	EventType    string    `json:"event_type,omitempty"`
	EventSubtype string    `json:"event_subtype,omitempty"`
	EventID      string    `json:"event_id,omitempty"`
	EventTime    time.Time `json:"event_time,omitzero"` // Date only, in the local timezone.

	MessageText string            `json:"message_text,omitempty"`
	UserID      string            `json:"user_id,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	ChannelType string            `json:"channel_type,omitempty"`
	Attachments []json.RawMessage `json:"attachments,omitempty"`
	Timestamp   time.Time         `json:"ts,omitzero"`

	MentionedUsers []string `json:"mentioned_users,omitempty"`
	HasMentions    bool     `json:"has_mentions"`
	HasFiles       bool     `json:"has_files"`
	FileIDs        []string `json:"file_ids,omitempty"`
	Permalink      string   `json:"permalink,omitempty"`

	Payload json.RawMessage `json:"payload,omitempty"`
}

// WithPermalink returns a copy of the event with the given permalink.
// The receiver is not modified.
func (e *Event) WithPermalink(permalink string) *Event {
	c := *e
	c.Permalink = permalink
	return &c
}

// String returns a short human-readable summary, for logs.
func (e *Event) String() string {
	s := "@" + e.UserID + " " + e.EventType
	if e.EventSubtype != "" {
		s += " " + e.EventSubtype
	}
	if !e.EventTime.IsZero() {
		s += " at " + e.EventTime.Format(DateLayout)
	}
	return s
}
