// Package pipeline converts raw Slack payloads into xAPI statements,
// and delivers them to LRS targets, asynchronously.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"

	"github.com/tzrikka/slackxapi/pkg/events"
	"github.com/tzrikka/slackxapi/pkg/lrs"
	"github.com/tzrikka/slackxapi/pkg/metrics"
	"github.com/tzrikka/slackxapi/pkg/rules"
	"github.com/tzrikka/slackxapi/pkg/store"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

// ActorResolver is implemented by [github.com/tzrikka/slackxapi/pkg/actors.Resolver].
type ActorResolver interface {
	Resolve(ctx context.Context, userID string) (*xapi.ActorDefinition, error)
}

// Processor handles a single payload at a time, but it's safe for concurrent use.
type Processor struct {
	normalizer *events.Normalizer
	actors     ActorResolver
	matcher    *rules.Matcher
	store      store.Store
	deliverer  *lrs.Deliverer
	opts       xapi.Options

	newID func() string
	now   func() time.Time
}

func NewProcessor(n *events.Normalizer, a ActorResolver, s store.Store, d *lrs.Deliverer, opts xapi.Options) *Processor {
	return &Processor{
		normalizer: n,
		actors:     a,
		matcher:    rules.NewMatcher(s),
		store:      s,
		deliverer:  d,
		opts:       opts,
		newID:      shortuuid.New,
		now:        time.Now,
	}
}

// Process normalizes a raw payload, persists the resulting event, and builds
// an xAPI statement if an actor, verb, and object all apply to it. The statement
// is persisted and delivered to all the active LRS targets.
//
// If no statement applies to the event, Process returns nil without an error.
// Errors are reserved for payloads that aren't JSON objects and storage failures.
// Delivery failures are never returned, they are reflected in the statement's
// delivered flag.
func (p *Processor) Process(ctx context.Context, raw []byte) (*store.Statement, error) {
	e, err := p.normalizer.Normalize(ctx, raw)
	if err != nil {
		metrics.Statements.WithLabelValues("error").Inc()
		return nil, err
	}

	l := zerolog.Ctx(ctx).With().Str("event_id", e.EventID).Str("event_type", e.EventType).Logger()
	ctx = l.WithContext(ctx)

	if err := p.store.SaveEvent(ctx, e); err != nil {
		metrics.Statements.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save event: %w", err)
	}

	s, outcome, err := p.build(ctx, e)
	if err != nil {
		metrics.Statements.WithLabelValues("error").Inc()
		return nil, err
	}
	if s == nil {
		metrics.Statements.WithLabelValues(outcome).Inc()
		return nil, nil
	}

	b, err := json.Marshal(s)
	if err != nil {
		metrics.Statements.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to encode xAPI statement: %w", err)
	}

	st := &store.Statement{ID: p.newID(), EventID: e.ID, Statement: b, CreatedAt: p.now().UTC()}
	if err := p.store.SaveStatement(ctx, st); err != nil {
		metrics.Statements.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save xAPI statement: %w", err)
	}

	metrics.Statements.WithLabelValues("built").Inc()
	l.Debug().Str("statement_id", st.ID).Msg("built xAPI statement")

	return st, p.deliver(ctx, st)
}

// build returns a nil statement and an outcome label if
// no actor, verb, or object applies to the event.
func (p *Processor) build(ctx context.Context, e *events.Event) (*xapi.Statement, string, error) {
	l := zerolog.Ctx(ctx)

	a, err := p.actors.Resolve(ctx, e.UserID)
	if err != nil {
		l.Info().Err(err).Str("user_id", e.UserID).Msg("no xAPI actor for event")
		return nil, "no_actor", nil
	}

	v, err := p.matcher.MatchVerb(ctx, e)
	if err != nil {
		if errors.Is(err, rules.ErrNoMatch) {
			l.Info().Msg("no xAPI verb rule matches event")
			return nil, "no_verb", nil
		}
		return nil, "", err
	}

	o, err := p.matcher.MatchObject(ctx, e)
	if err != nil {
		if errors.Is(err, rules.ErrNoMatch) {
			l.Info().Msg("no xAPI object rule matches event")
			return nil, "no_object", nil
		}
		return nil, "", err
	}

	s, err := xapi.Build(e, a, v, o, p.opts)
	if err != nil {
		return nil, "", err
	}
	return s, "built", nil
}

// deliver sends a persisted statement to all the active LRS targets,
// and marks it as delivered if at least one of them accepted it.
func (p *Processor) deliver(ctx context.Context, st *store.Statement) error {
	l := zerolog.Ctx(ctx).With().Str("statement_id", st.ID).Logger()
	ctx = l.WithContext(ctx)

	targets, err := p.store.Targets(ctx)
	if err != nil {
		return fmt.Errorf("failed to read LRS targets: %w", err)
	}

	r := p.deliverer.Deliver(ctx, st.Statement, targets)
	if !r.Delivered() {
		return nil
	}

	if err := p.store.MarkDelivered(ctx, st.ID); err != nil {
		return fmt.Errorf("failed to mark xAPI statement as delivered: %w", err)
	}
	st.Delivered = true
	return nil
}

// Redeliver retries the delivery of all the persisted statements
// which haven't been delivered yet. It returns the number of
// statements that were delivered successfully this time.
func (p *Processor) Redeliver(ctx context.Context) (int, error) {
	ss, err := p.store.UndeliveredStatements(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read undelivered xAPI statements: %w", err)
	}

	l := zerolog.Ctx(ctx)
	l.Info().Int("count", len(ss)).Msg("redelivering xAPI statements")

	n := 0
	for _, st := range ss {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := p.deliver(ctx, st); err != nil {
			return n, err
		}
		if st.Delivered {
			n++
		}
	}

	l.Info().Int("delivered", n).Int("remaining", len(ss)-n).Msg("finished redelivering xAPI statements")
	return n, nil
}
