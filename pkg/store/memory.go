package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/tzrikka/slackxapi/pkg/events"
	"github.com/tzrikka/slackxapi/pkg/lrs"
	"github.com/tzrikka/slackxapi/pkg/rules"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

// Memory is a non-persistent [Store], for development and tests.
type Memory struct {
	mu         sync.RWMutex
	verbs      map[int64]rules.VerbRule
	objects    map[int64]rules.ObjectRule
	actors     map[string]xapi.ActorDefinition
	operators  map[string]Operator
	targets    map[string]lrs.Target
	events     map[string]events.Event
	statements map[string]Statement
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		verbs:      map[int64]rules.VerbRule{},
		objects:    map[int64]rules.ObjectRule{},
		actors:     map[string]xapi.ActorDefinition{},
		operators:  map[string]Operator{},
		targets:    map[string]lrs.Target{},
		events:     map[string]events.Event{},
		statements: map[string]Statement{},
	}
}

func (m *Memory) VerbRules(_ context.Context) ([]rules.VerbRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.SortedFunc(maps.Values(m.verbs), func(a, b rules.VerbRule) int {
		return cmp.Compare(a.ID, b.ID)
	}), nil
}

func (m *Memory) ObjectRules(_ context.Context) ([]rules.ObjectRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.SortedFunc(maps.Values(m.objects), func(a, b rules.ObjectRule) int {
		return cmp.Compare(a.ID, b.ID)
	}), nil
}

func (m *Memory) PutVerbRule(_ context.Context, r rules.VerbRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.verbs[r.ID] = r
	return nil
}

func (m *Memory) PutObjectRule(_ context.Context, r rules.ObjectRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[r.ID] = r
	return nil
}

func (m *Memory) Actor(_ context.Context, slackUserID string) (*xapi.ActorDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.actors[slackUserID]
	if !ok {
		return nil, fmt.Errorf("actor %q: %w", slackUserID, ErrNotFound)
	}
	return &a, nil
}

func (m *Memory) PutActor(_ context.Context, a *xapi.ActorDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actors[a.SlackUserID] = *a
	return nil
}

func (m *Memory) Operator(_ context.Context, name string) (*Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.operators[name]
	if !ok {
		return nil, fmt.Errorf("operator %q: %w", name, ErrNotFound)
	}
	return &o, nil
}

func (m *Memory) PutOperator(_ context.Context, o *Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.operators[o.Name] = *o
	return nil
}

func (m *Memory) Targets(_ context.Context) ([]lrs.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.SortedFunc(maps.Values(m.targets), func(a, b lrs.Target) int {
		return cmp.Compare(a.ID, b.ID)
	}), nil
}

func (m *Memory) PutTarget(_ context.Context, t lrs.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.targets[t.ID] = t
	return nil
}

func (m *Memory) SaveEvent(_ context.Context, e *events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[e.ID] = *e
	return nil
}

// Event is not a part of the [Store] interface, it's only used for inspection in tests.
func (m *Memory) Event(id string) (*events.Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	return &e, ok
}

func (m *Memory) SaveStatement(_ context.Context, s *Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statements[s.ID] = *s
	return nil
}

func (m *Memory) MarkDelivered(_ context.Context, statementID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.statements[statementID]
	if !ok {
		return fmt.Errorf("statement %q: %w", statementID, ErrNotFound)
	}

	s.Delivered = true
	m.statements[statementID] = s
	return nil
}

func (m *Memory) UndeliveredStatements(_ context.Context) ([]*Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ss []*Statement
	for _, s := range m.statements {
		if !s.Delivered {
			ss = append(ss, &s)
		}
	}

	slices.SortFunc(ss, func(a, b *Statement) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return ss, nil
}

// Statements is not a part of the [Store] interface, it's only used for inspection in tests.
func (m *Memory) Statements() []Statement {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Collect(maps.Values(m.statements))
}
