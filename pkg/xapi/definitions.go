// Package xapi defines the actor, verb and object definitions that rules
// map Slack events to, and builds [xAPI statements] from them.
//
// [xAPI statements]: https://github.com/adlnet/xAPI-Spec/blob/master/xAPI-Data.md#statements
package xapi

import (
	"fmt"
	"slices"
	"time"

	"github.com/tzrikka/slackxapi/pkg/events"
)

// IRIType is how an actor is identified in a statement ("inverse functional identifier").
type IRIType string

const (
	AccountIRI  IRIType = "account"
	Mbox        IRIType = "mbox"
	MboxSHA1Sum IRIType = "mbox_sha1sum"
	OpenID      IRIType = "openid"
)

var IRITypes = []IRIType{AccountIRI, Mbox, MboxSHA1Sum, OpenID}

func (t IRIType) Valid() bool {
	return slices.Contains(IRITypes, t)
}

const (
	Agent = "Agent"
	Group = "Group"
)

// ActivityObjectTypes are the allowed values of [ObjectDefinition.ObjectType].
var ActivityObjectTypes = []string{"Activity", Agent, Group, "StatementRef", "SubStatement"}

// Languages are the allowed language codes of names and descriptions.
var Languages = []string{"en-US", "en-UK", "it", "es", "de"}

// DefaultLanguage of verb and object definitions that don't specify one.
const DefaultLanguage = "en-US"

// ActorDefinition maps a Slack user ID to an xAPI actor identity.
type ActorDefinition struct {
	SlackUserID string    `json:"slack_user_id" yaml:"slack_user_id"`
	IRI         string    `json:"iri" yaml:"iri"`
	IRIType     IRIType   `json:"iri_type" yaml:"iri_type"`
	DisplayName string    `json:"display_name" yaml:"display_name"`
	ObjectType  string    `json:"object_type,omitempty" yaml:"object_type,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero" yaml:"-"`
}

func (a *ActorDefinition) Validate() error {
	if a.SlackUserID == "" {
		return fmt.Errorf("actor %q: missing Slack user ID", a.IRI)
	}
	if a.IRI == "" {
		return fmt.Errorf("actor %q: missing IRI", a.SlackUserID)
	}
	if !a.IRIType.Valid() {
		return fmt.Errorf("actor %q: invalid IRI type %q", a.SlackUserID, a.IRIType)
	}
	if a.ObjectType != "" && a.ObjectType != Agent && a.ObjectType != Group {
		return fmt.Errorf("actor %q: invalid object type %q", a.SlackUserID, a.ObjectType)
	}
	return nil
}

type VerbDefinition struct {
	IRI         string `json:"iri" yaml:"iri"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Language    string `json:"language,omitempty" yaml:"language,omitempty"`
}

func (v *VerbDefinition) Validate() error {
	if v.IRI == "" {
		return fmt.Errorf("verb %q: missing IRI", v.DisplayName)
	}
	if v.Language != "" && !slices.Contains(Languages, v.Language) {
		return fmt.Errorf("verb %q: unsupported language %q", v.IRI, v.Language)
	}
	return nil
}

type ObjectDefinition struct {
	IRI          string   `json:"iri" yaml:"iri"`
	DisplayName  string   `json:"display_name" yaml:"display_name"`
	Language     string   `json:"language,omitempty" yaml:"language,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	ActivityType string   `json:"activity_type,omitempty" yaml:"activity_type,omitempty"`
	MoreInfo     string   `json:"more_info,omitempty" yaml:"more_info,omitempty"`
	ObjectType   string   `json:"object_type,omitempty" yaml:"object_type,omitempty"`
	Extensions   []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	IDField      string   `json:"id_field,omitempty" yaml:"id_field,omitempty"`
}

func (o *ObjectDefinition) Validate() error {
	if o.IRI == "" {
		return fmt.Errorf("object %q: missing IRI", o.DisplayName)
	}
	if o.Language != "" && !slices.Contains(Languages, o.Language) {
		return fmt.Errorf("object %q: unsupported language %q", o.IRI, o.Language)
	}
	if o.ObjectType != "" && !slices.Contains(ActivityObjectTypes, o.ObjectType) {
		return fmt.Errorf("object %q: invalid object type %q", o.IRI, o.ObjectType)
	}
	for _, ext := range o.Extensions {
		if _, ok := Extensions[ext]; !ok {
			return fmt.Errorf("object %q: unknown extension %q", o.IRI, ext)
		}
	}
	if err := validateIDField(o.IDField); err != nil {
		return fmt.Errorf("object %q: %w", o.IRI, err)
	}
	return nil
}

// validateIDField accepts matchable event fields, and the two container
// attributes that can identify an object: the first file ID, and the permalink.
func validateIDField(name string) error {
	switch name {
	case "", "file_ids", "permalink":
		return nil
	}
	if _, err := events.ParseField(name); err != nil {
		return fmt.Errorf("invalid ID field: %w", err)
	}
	return nil
}
