// Package store defines the record store of rules, actors, LRS targets,
// operators, and the audit trail of events and statements.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tzrikka/slackxapi/pkg/events"
	"github.com/tzrikka/slackxapi/pkg/lrs"
	"github.com/tzrikka/slackxapi/pkg/rules"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

var ErrNotFound = errors.New("not found")

// Operator is an administrative identity, which is recorded
// as the creator of automatically-provisioned actors.
type Operator struct {
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email,omitempty" yaml:"email,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero" yaml:"-"`
}

// Statement is a persisted xAPI statement. Delivered is true
// if at least one LRS target accepted it.
type Statement struct {
	ID        string          `json:"id"`
	EventID   string          `json:"event_id"`
	Statement json.RawMessage `json:"statement"`
	Delivered bool            `json:"delivered"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store is safe for concurrent use. Lookups of single
// records return [ErrNotFound] if they don't exist.
type Store interface {
	rules.Source

	PutVerbRule(ctx context.Context, r rules.VerbRule) error
	PutObjectRule(ctx context.Context, r rules.ObjectRule) error

	Actor(ctx context.Context, slackUserID string) (*xapi.ActorDefinition, error)
	PutActor(ctx context.Context, a *xapi.ActorDefinition) error

	Operator(ctx context.Context, name string) (*Operator, error)
	PutOperator(ctx context.Context, o *Operator) error

	Targets(ctx context.Context) ([]lrs.Target, error)
	PutTarget(ctx context.Context, t lrs.Target) error

	SaveEvent(ctx context.Context, e *events.Event) error
	SaveStatement(ctx context.Context, s *Statement) error
	MarkDelivered(ctx context.Context, statementID string) error
	UndeliveredStatements(ctx context.Context) ([]*Statement, error)
}
