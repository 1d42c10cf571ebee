package rules

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/tzrikka/slackxapi/pkg/events"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

var ErrNoMatch = errors.New("no matching rule")

// VerbRule is an xAPI verb definition with its field groups.
// Rules are evaluated in ascending ID order.
type VerbRule struct {
	ID          int64               `json:"id" yaml:"id"`
	Verb        xapi.VerbDefinition `json:"verb" yaml:"verb"`
	FieldGroups GroupSpec           `json:"field_groups" yaml:"field_groups"`
}

// ObjectRule is an xAPI object definition with its field groups.
// Rules are evaluated in ascending ID order.
type ObjectRule struct {
	ID          int64                 `json:"id" yaml:"id"`
	Object      xapi.ObjectDefinition `json:"object" yaml:"object"`
	FieldGroups GroupSpec             `json:"field_groups" yaml:"field_groups"`
}

func (r VerbRule) Validate() error {
	if err := r.Verb.Validate(); err != nil {
		return fmt.Errorf("verb rule %d: %w", r.ID, err)
	}
	if _, err := r.FieldGroups.Compile(); err != nil {
		return fmt.Errorf("verb rule %d: %w", r.ID, err)
	}
	return nil
}

func (r ObjectRule) Validate() error {
	if err := r.Object.Validate(); err != nil {
		return fmt.Errorf("object rule %d: %w", r.ID, err)
	}
	if _, err := r.FieldGroups.Compile(); err != nil {
		return fmt.Errorf("object rule %d: %w", r.ID, err)
	}
	return nil
}

// MatchVerb returns the first verb rule (by ID) with a satisfied field group.
func MatchVerb(rs []VerbRule, e *events.Event) (*VerbRule, bool) {
	return firstMatch(rs, e, func(r VerbRule) (int64, GroupSpec) { return r.ID, r.FieldGroups })
}

// MatchObject returns the first object rule (by ID) with a satisfied field group.
func MatchObject(rs []ObjectRule, e *events.Event) (*ObjectRule, bool) {
	return firstMatch(rs, e, func(r ObjectRule) (int64, GroupSpec) { return r.ID, r.FieldGroups })
}

// firstMatch implements a first-match-wins policy, not a best-match one:
// ties between rules are resolved by configuration order. Rules with invalid
// field groups never match.
func firstMatch[R any](rs []R, e *events.Event, spec func(R) (int64, GroupSpec)) (*R, bool) {
	sorted := slices.Clone(rs)
	slices.SortStableFunc(sorted, func(a, b R) int {
		idA, _ := spec(a)
		idB, _ := spec(b)
		return cmp.Compare(idA, idB)
	})

	for i := range sorted {
		_, s := spec(sorted[i])
		gs, err := s.Compile()
		if err != nil {
			continue
		}
		if gs.Matches(e) {
			return &sorted[i], true
		}
	}

	return nil, false
}

// Source provides the configured rules. Implementations must be safe for concurrent use.
type Source interface {
	VerbRules(ctx context.Context) ([]VerbRule, error)
	ObjectRules(ctx context.Context) ([]ObjectRule, error)
}

// Matcher resolves verb and object definitions for events, using the rules from a [Source].
type Matcher struct {
	src Source
}

func NewMatcher(src Source) *Matcher {
	return &Matcher{src: src}
}

// MatchVerb returns [ErrNoMatch] if no verb rule applies to the event.
func (m *Matcher) MatchVerb(ctx context.Context, e *events.Event) (*xapi.VerbDefinition, error) {
	rs, err := m.src.VerbRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read verb rules: %w", err)
	}

	r, ok := MatchVerb(rs, e)
	if !ok {
		return nil, fmt.Errorf("verb: %w", ErrNoMatch)
	}

	zerolog.Ctx(ctx).Debug().Int64("rule_id", r.ID).Str("verb", r.Verb.IRI).Msg("matched verb rule")
	return &r.Verb, nil
}

// MatchObject returns [ErrNoMatch] if no object rule applies to the event.
func (m *Matcher) MatchObject(ctx context.Context, e *events.Event) (*xapi.ObjectDefinition, error) {
	rs, err := m.src.ObjectRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read object rules: %w", err)
	}

	r, ok := MatchObject(rs, e)
	if !ok {
		return nil, fmt.Errorf("object: %w", ErrNoMatch)
	}

	zerolog.Ctx(ctx).Debug().Int64("rule_id", r.ID).Str("object", r.Object.IRI).Msg("matched object rule")
	return &r.Object, nil
}
