// Package rules decides which xAPI verb and object definitions apply to a
// Slack event. Each definition has one or more field groups: a group is
// satisfied when all of its conditions hold (AND), and a definition matches
// when any of its groups is satisfied (OR). The first matching definition,
// in configuration order, wins.
package rules

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/tzrikka/slackxapi/pkg/events"
)

// Expected values with special meanings, in rule configurations.
const (
	ExpectNone  = "None"
	ExpectTrue  = "True"
	ExpectFalse = "False"
)

// GroupSpec is the configured form of a definition's field groups:
// group name -> event field name -> expected value.
// Conditions without a group name belong to the "" group.
type GroupSpec map[string]map[string]string

// Condition requires a single event field to be equal to an expected value.
type Condition struct {
	Field events.Field
	Want  events.Value
}

func (c Condition) Holds(e *events.Event) bool {
	return e.Value(c.Field) == c.Want
}

// FieldGroup is a conjunction of conditions.
type FieldGroup struct {
	Name       string
	Conditions []Condition
}

// Matches reports whether all the conditions hold. An empty group never matches.
func (g FieldGroup) Matches(e *events.Event) bool {
	if len(g.Conditions) == 0 {
		return false
	}
	for _, c := range g.Conditions {
		if !c.Holds(e) {
			return false
		}
	}
	return true
}

// Groups is a disjunction of field groups.
type Groups []FieldGroup

func (gs Groups) Matches(e *events.Event) bool {
	for _, g := range gs {
		if g.Matches(e) {
			return true
		}
	}
	return false
}

// ParseExpected converts a configured expected value into a comparable one.
func ParseExpected(s string) events.Value {
	switch s {
	case ExpectNone:
		return events.Value{}
	case ExpectTrue:
		return events.BoolValue(true)
	case ExpectFalse:
		return events.BoolValue(false)
	default:
		return events.StringValue(s)
	}
}

// parseExpected is [ParseExpected], except that boolean fields accept
// only boolean values, regardless of case.
func parseExpected(f events.Field, s string) (events.Value, error) {
	if !f.IsBool() {
		return ParseExpected(s), nil
	}
	switch strings.ToLower(s) {
	case "true":
		return events.BoolValue(true), nil
	case "false":
		return events.BoolValue(false), nil
	default:
		return events.Value{}, fmt.Errorf("field %q: expected a boolean value, got %q", f, s)
	}
}

// Compile validates the spec and converts it into [Groups], sorted
// by group name and then by field name, for deterministic evaluation.
func (s GroupSpec) Compile() (Groups, error) {
	gs := make(Groups, 0, len(s))
	for _, name := range slices.Sorted(maps.Keys(s)) {
		fields := s[name]
		g := FieldGroup{Name: name, Conditions: make([]Condition, 0, len(fields))}
		for _, field := range slices.Sorted(maps.Keys(fields)) {
			f, err := events.ParseField(field)
			if err != nil {
				return nil, fmt.Errorf("field group %q: %w", name, err)
			}
			want, err := parseExpected(f, fields[field])
			if err != nil {
				return nil, fmt.Errorf("field group %q: %w", name, err)
			}
			g.Conditions = append(g.Conditions, Condition{Field: f, Want: want})
		}
		gs = append(gs, g)
	}
	return gs, nil
}
