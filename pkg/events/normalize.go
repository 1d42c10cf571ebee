package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
)

// DefaultTimezone is the timezone in which event times are expressed
// when the configuration doesn't specify one.
const DefaultTimezone = "Europe/Dublin"

var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)>`)

// Refs are payload details which are not part of an [Event],
// but are needed to resolve its permalink.
type Refs struct {
	ItemChannel   string
	ItemTS        string
	ItemPermalink string // Embedded in starred/pinned messages.
	MessageTS     string
}

// Normalizer converts raw payloads into [Event]s.
type Normalizer struct {
	loc        *time.Location
	permalinks *PermalinkResolver
	newID      func() string
	now        func() time.Time
}

type NormalizerOpt func(*Normalizer)

// WithPermalinks enables permalink enrichment. If this option
// isn't specified, events are normalized without permalinks.
func WithPermalinks(r *PermalinkResolver) NormalizerOpt {
	return func(n *Normalizer) {
		n.permalinks = r
	}
}

func NewNormalizer(loc *time.Location, opts ...NormalizerOpt) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}

	n := &Normalizer{
		loc:   loc,
		newID: shortuuid.New,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize derives exactly one [Event] from a raw payload. Malformed
// fields degrade to empty values, and enrichment failures are logged
// but never returned. The only error is a payload which isn't a JSON object.
func (n *Normalizer) Normalize(ctx context.Context, raw []byte) (*Event, error) {
	e, refs, err := Parse(raw, n.loc)
	if err != nil {
		return nil, err
	}

	e.ID = n.newID()
	e.CreatedAt = n.now().In(n.loc)

	if n.permalinks != nil && e.Permalink == "" {
		e = e.WithPermalink(n.permalinks.Resolve(ctx, e, refs))
	}

	zerolog.Ctx(ctx).Debug().Str("event_id", e.EventID).Str("event_type", e.EventType).
		Str("event_subtype", e.EventSubtype).Str("user_id", e.UserID).
		Bool("has_files", e.HasFiles).Bool("has_permalink", e.Permalink != "").
		Msg("normalized Slack event")

	return e, nil
}

// Parse is the pure part of [Normalizer.Normalize]: it doesn't assign an
// ID and a creation time, and it doesn't call external services.
func Parse(raw []byte, loc *time.Location) (*Event, Refs, error) {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()

	var data map[string]any
	if err := d.Decode(&data); err != nil {
		return nil, Refs{}, fmt.Errorf("failed to parse JSON payload: %w", err)
	}
	if data == nil {
		return nil, Refs{}, errors.New("JSON payload is not an object")
	}

	body := object(data, "event")
	item := object(body, "item")
	msg := object(body, "message")

	e := &Event{
		TeamID:  str(data, "team_id"),
		APIType: str(data, "type"),
		EventID: str(data, "event_id"),
		Payload: json.RawMessage(bytes.Clone(raw)),
	}
	if t, ok := parseEpoch(str(data, "event_time"), loc); ok {
		e.EventTime = dateOnly(t)
	}

	e.EventType = str(body, "type")
	e.EventSubtype = str(body, "subtype")
	e.UserID = userID(data, body)

	e.MessageText = str(body, "text")
	e.Channel = str(body, "channel")
	e.ChannelType = str(body, "channel_type")
	e.Attachments = rawList(list(body, "attachments"))

	ts := firstNonEmpty(str(body, "ts"), str(body, "event_ts"), str(item, "event_ts"), str(msg, "event_ts"))
	if t, ok := parseEpoch(ts, loc); ok {
		e.Timestamp = t
	}

	// Edited and deleted messages wrap the original message.
	if msg != nil {
		e.UserID = str(msg, "user")
		e.MessageText = str(msg, "text")
		e.Attachments = rawList(list(msg, "attachments"))
	}

	// Reactions, pins and stars refer to an item.
	if item != nil {
		e.MessageText = str(body, "reaction")
		e.EventSubtype = str(item, "type")
		e.Channel = str(item, "channel")
	}

	e.HasFiles = present(body, "files") || present(body, "file") ||
		present(object(body, "attachment"), "files") ||
		present(object(item, "message"), "items") || present(body, "file_id")
	e.FileIDs = fileIDs(body)

	e.MentionedUsers = Mentions(e.MessageText)
	e.HasMentions = len(e.MentionedUsers) > 0

	refs := Refs{
		ItemChannel:   str(item, "channel"),
		ItemTS:        str(item, "ts"),
		ItemPermalink: str(object(item, "message"), "permalink"),
		MessageTS:     firstNonEmpty(str(item, "event_ts"), str(msg, "event_ts"), str(body, "ts"), str(body, "event_ts")),
	}

	return e, refs, nil
}

// userID resolves the ID of the user who triggered the event.
func userID(data, body map[string]any) string {
	if str(body, "type") == "user_change" {
		return str(object(body, "user"), "id")
	}

	if id := firstNonEmpty(str(body, "user"), str(body, "user_id")); id != "" {
		return id
	}

	if users := list(data, "authed_users"); len(users) > 0 {
		if id, ok := users[0].(string); ok && id != "" {
			return id
		}
	}

	if auths := list(data, "authorizations"); len(auths) > 0 {
		if a, ok := auths[0].(map[string]any); ok {
			return str(a, "user_id")
		}
	}

	return ""
}

// fileIDs returns the IDs of all the files that are referenced by the event.
// Unlike a list with an empty placeholder, no file is an empty list.
func fileIDs(body map[string]any) []string {
	if files := list(body, "files"); len(files) > 0 {
		ids := make([]string, 0, len(files))
		for _, f := range files {
			if m, ok := f.(map[string]any); ok {
				if id := str(m, "id"); id != "" {
					ids = append(ids, id)
				}
			}
		}
		return ids
	}

	if id := firstNonEmpty(str(body, "file_id"), str(object(body, "file"), "id")); id != "" {
		return []string{id}
	}

	return []string{}
}

// Mentions extracts the IDs of users who are mentioned in a message
// (e.g. "<@U123ABC>"). It returns nil if the message is empty.
func Mentions(text string) []string {
	if text == "" {
		return nil
	}

	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return []string{}
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}
