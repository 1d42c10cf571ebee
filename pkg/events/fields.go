package events

import (
	"fmt"
	"slices"
	"time"
)

// Field is the name of a scalar [Event] attribute which rules can match.
// Container attributes (attachments, mentioned users, file IDs, the raw
// payload) are not fields.
type Field string

const (
	FieldTeamID       Field = "team_id"
	FieldAPIType      Field = "api_type"
	FieldEventType    Field = "event_type"
	FieldEventSubtype Field = "event_subtype"
	FieldEventID      Field = "event_id"
	FieldEventTime    Field = "event_time"
	FieldMessageText  Field = "message_text"
	FieldUserID       Field = "user_id"
	FieldChannel      Field = "channel"
	FieldChannelType  Field = "channel_type"
	FieldTimestamp    Field = "ts"
	FieldHasMentions  Field = "has_mentions"
	FieldHasFiles     Field = "has_files"
	FieldPermalink    Field = "permalink"
)

// Kind of a [Value].
type Kind int

const (
	Null Kind = iota
	String
	Bool
)

// Value is a comparable scalar: either null, a string, or a boolean.
type Value struct {
	Kind Kind
	Str  string
	Bool bool
}

func StringValue(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{Kind: String, Str: s}
}

func BoolValue(b bool) Value {
	return Value{Kind: Bool, Bool: b}
}

func (v Value) String() string {
	switch v.Kind {
	case String:
		return v.Str
	case Bool:
		if v.Bool {
			return "True"
		}
		return "False"
	default:
		return "None"
	}
}

var fields = map[Field]func(e *Event) Value{
	FieldTeamID:       func(e *Event) Value { return StringValue(e.TeamID) },
	FieldAPIType:      func(e *Event) Value { return StringValue(e.APIType) },
	FieldEventType:    func(e *Event) Value { return StringValue(e.EventType) },
	FieldEventSubtype: func(e *Event) Value { return StringValue(e.EventSubtype) },
	FieldEventID:      func(e *Event) Value { return StringValue(e.EventID) },
	FieldEventTime:    func(e *Event) Value { return StringValue(formatTime(e.EventTime, DateLayout)) },
	FieldMessageText:  func(e *Event) Value { return StringValue(e.MessageText) },
	FieldUserID:       func(e *Event) Value { return StringValue(e.UserID) },
	FieldChannel:      func(e *Event) Value { return StringValue(e.Channel) },
	FieldChannelType:  func(e *Event) Value { return StringValue(e.ChannelType) },
	FieldTimestamp:    func(e *Event) Value { return StringValue(formatTime(e.Timestamp, time.RFC3339Nano)) },
	FieldHasMentions:  func(e *Event) Value { return BoolValue(e.HasMentions) },
	FieldHasFiles:     func(e *Event) Value { return BoolValue(e.HasFiles) },
	FieldPermalink:    func(e *Event) Value { return StringValue(e.Permalink) },
}

// IsBool reports whether the field's values are always booleans.
func (f Field) IsBool() bool {
	return f == FieldHasMentions || f == FieldHasFiles
}

// Fields returns all the matchable field names, sorted.
func Fields() []Field {
	fs := make([]Field, 0, len(fields))
	for f := range fields {
		fs = append(fs, f)
	}
	slices.Sort(fs)
	return fs
}

// ParseField validates a field name. "timestamp" is accepted as an alias of "ts".
func ParseField(name string) (Field, error) {
	if name == "timestamp" {
		return FieldTimestamp, nil
	}
	f := Field(name)
	if _, ok := fields[f]; !ok {
		return "", fmt.Errorf("unknown or unmatchable event field %q", name)
	}
	return f, nil
}

// Value returns the value of a matchable field. Unknown fields are null.
func (e *Event) Value(f Field) Value {
	get, ok := fields[f]
	if !ok {
		return Value{}
	}
	return get(e)
}

// Attribute returns the value of any attribute, including containers,
// in a form that's suitable for JSON encoding. It returns false if
// the name doesn't correspond to a known attribute.
func (e *Event) Attribute(name string) (any, bool) {
	switch name {
	case "attachments":
		return e.Attachments, true
	case "mentioned_users":
		return e.MentionedUsers, true
	case "file_ids":
		return e.FileIDs, true
	}

	f, err := ParseField(name)
	if err != nil {
		return nil, false
	}

	v := e.Value(f)
	switch v.Kind {
	case String:
		return v.Str, true
	case Bool:
		return v.Bool, true
	default:
		return nil, true
	}
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}
