package xapi

import (
	"errors"
	"strings"

	"github.com/tzrikka/slackxapi/pkg/events"
)

// HomePage of [AccountIRI] actors.
const HomePage = "http://slack.com"

// PermalinkExtension is added to objects when permalinks are enabled and available.
const PermalinkExtension = "http://example.com/extensions/permalink"

// Extensions maps event attribute names to extension IRIs.
var Extensions = map[string]string{
	"team_id":         "http://example.com/extensions/team_id",
	"api_type":        "http://example.com/extensions/api_type",
	"event_type":      "http://example.com/extensions/event_type",
	"event_subtype":   "http://example.com/extensions/event_subtype",
	"event_id":        "http://example.com/extensions/event_id",
	"event_time":      "http://example.com/extensions/event_time",
	"message_text":    "http://example.com/extensions/message_text",
	"user_id":         "http://example.com/extensions/user_id",
	"channel":         "http://example.com/extensions/channel",
	"channel_type":    "http://example.com/extensions/channel_type",
	"attachments":     "http://example.com/extensions/attachments",
	"ts":              "http://example.com/extensions/ts",
	"mentioned_users": "http://example.com/extensions/mentioned_users",
	"has_mentions":    "http://example.com/extensions/has_mentions",
}

var ErrIncomplete = errors.New("incomplete statement: missing actor, verb or object")

type LanguageMap map[string]string

type Statement struct {
	Actor  Actor  `json:"actor"`
	Verb   Verb   `json:"verb"`
	Object Object `json:"object"`
}

type Actor struct {
	Name        string   `json:"name,omitempty"`
	ObjectType  string   `json:"objectType"`
	Mbox        string   `json:"mbox,omitempty"`
	MboxSHA1Sum string   `json:"mbox_sha1sum,omitempty"`
	OpenID      string   `json:"openid,omitempty"`
	Account     *Account `json:"account,omitempty"`
}

type Account struct {
	HomePage string `json:"homePage"`
	Name     string `json:"name"`
}

type Verb struct {
	ID      string      `json:"id"`
	Display LanguageMap `json:"display"`
}

type Object struct {
	ID         string             `json:"id"`
	Definition ActivityDefinition `json:"definition"`
	ObjectType string             `json:"objectType"`
}

type ActivityDefinition struct {
	Name        LanguageMap    `json:"name"`
	Description LanguageMap    `json:"description,omitempty"`
	Type        string         `json:"type,omitempty"`
	MoreInfo    string         `json:"moreInfo,omitempty"`
	Extensions  map[string]any `json:"extensions,omitempty"`
}

// Options which affect how statements are built.
type Options struct {
	Permalinks bool
}

// Build assembles a complete statement. It fails if any of the
// definitions is missing, i.e. if any of them wasn't resolved.
func Build(e *events.Event, a *ActorDefinition, v *VerbDefinition, o *ObjectDefinition, opts Options) (*Statement, error) {
	if e == nil || a == nil || v == nil || o == nil {
		return nil, ErrIncomplete
	}

	return &Statement{
		Actor:  NewActor(a),
		Verb:   NewVerb(v),
		Object: NewObject(o, e, opts),
	}, nil
}

// NewActor converts an actor definition into a statement's "actor" fragment.
func NewActor(a *ActorDefinition) Actor {
	actor := Actor{Name: a.DisplayName, ObjectType: a.ObjectType}
	if actor.ObjectType == "" {
		actor.ObjectType = Agent
	}

	switch a.IRIType {
	case AccountIRI:
		actor.Account = &Account{HomePage: HomePage, Name: a.IRI}
	case Mbox:
		actor.Mbox = "mailto:" + a.IRI
	case MboxSHA1Sum:
		actor.MboxSHA1Sum = a.IRI
	case OpenID:
		actor.OpenID = a.IRI
	}

	return actor
}

// NewVerb converts a verb definition into a statement's "verb" fragment.
func NewVerb(v *VerbDefinition) Verb {
	return Verb{
		ID:      v.IRI,
		Display: LanguageMap{language(v.Language): v.DisplayName},
	}
}

// NewObject converts an object definition into a statement's "object" fragment,
// with an ID and extensions that are based on the event.
func NewObject(o *ObjectDefinition, e *events.Event, opts Options) Object {
	lang := language(o.Language)
	obj := Object{
		ID: objectID(o, e, opts),
		Definition: ActivityDefinition{
			Name:     LanguageMap{lang: o.DisplayName},
			Type:     o.ActivityType,
			MoreInfo: o.MoreInfo,
		},
		ObjectType: o.ObjectType,
	}

	if obj.ObjectType == "" {
		obj.ObjectType = "Activity"
	}
	if o.Description != "" {
		obj.Definition.Description = LanguageMap{lang: o.Description}
	}

	for _, name := range o.Extensions {
		iri, ok := Extensions[name]
		if !ok {
			continue
		}
		val, _ := e.Attribute(name)
		if obj.Definition.Extensions == nil {
			obj.Definition.Extensions = map[string]any{}
		}
		obj.Definition.Extensions[iri] = val
	}

	if opts.Permalinks && e.Permalink != "" {
		if obj.Definition.Extensions == nil {
			obj.Definition.Extensions = map[string]any{}
		}
		obj.Definition.Extensions[PermalinkExtension] = e.Permalink
	}

	return obj
}

// objectID concatenates the object's base IRI and the value of its
// identifying event field, or uses the event's permalink if so configured.
func objectID(o *ObjectDefinition, e *events.Event, opts Options) string {
	if opts.Permalinks && o.IDField == "permalink" && e.Permalink != "" {
		return e.Permalink
	}

	base := o.IRI
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	var id string
	switch o.IDField {
	case "", "event_id":
	case "file_ids":
		if len(e.FileIDs) > 0 {
			id = e.FileIDs[0]
		}
	default:
		if f, err := events.ParseField(o.IDField); err == nil {
			if v := e.Value(f); v.Kind != events.Null {
				id = v.String()
			}
		}
	}

	if id == "" {
		id = e.EventID
	}
	return base + id
}

func language(lang string) string {
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}
