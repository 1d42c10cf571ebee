package store

import (
	"errors"
	"testing"
	"time"

	"github.com/tzrikka/slackxapi/pkg/events"
	"github.com/tzrikka/slackxapi/pkg/lrs"
	"github.com/tzrikka/slackxapi/pkg/rules"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

func TestMemoryRules(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()

	for _, id := range []int64{3, 1, 2} {
		if err := m.PutVerbRule(ctx, rules.VerbRule{ID: id}); err != nil {
			t.Fatal(err)
		}
		if err := m.PutObjectRule(ctx, rules.ObjectRule{ID: id * 10}); err != nil {
			t.Fatal(err)
		}
	}

	vs, err := m.VerbRules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 3 || vs[0].ID != 1 || vs[1].ID != 2 || vs[2].ID != 3 {
		t.Errorf("VerbRules() = %v", vs)
	}

	objs, err := m.ObjectRules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 3 || objs[0].ID != 10 || objs[2].ID != 30 {
		t.Errorf("ObjectRules() = %v", objs)
	}
}

func TestMemoryActorsAndOperators(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()

	if _, err := m.Actor(ctx, "U1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Actor() error = %v, want %v", err, ErrNotFound)
	}
	if _, err := m.Operator(ctx, "admin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Operator() error = %v, want %v", err, ErrNotFound)
	}

	a := &xapi.ActorDefinition{SlackUserID: "U1", IRI: "a@example.com", IRIType: xapi.Mbox}
	if err := m.PutActor(ctx, a); err != nil {
		t.Fatal(err)
	}
	got, err := m.Actor(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if *got != *a {
		t.Errorf("Actor() = %+v, want %+v", got, a)
	}

	if err := m.PutOperator(ctx, &Operator{Name: "admin"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Operator(ctx, "admin"); err != nil {
		t.Errorf("Operator() error = %v", err)
	}
}

func TestMemoryStatements(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()
	now := time.Now()

	if err := m.SaveEvent(ctx, &events.Event{ID: "e1", EventID: "Ev1"}); err != nil {
		t.Fatal(err)
	}
	if e, ok := m.Event("e1"); !ok || e.EventID != "Ev1" {
		t.Errorf("Event() = %v, %v", e, ok)
	}

	for i, id := range []string{"s2", "s1", "s3"} {
		s := &Statement{ID: id, EventID: "e1", CreatedAt: now.Add(time.Duration(i) * time.Second)}
		if err := m.SaveStatement(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.MarkDelivered(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if err := m.MarkDelivered(ctx, "s4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkDelivered() error = %v, want %v", err, ErrNotFound)
	}

	ss, err := m.UndeliveredStatements(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ss) != 2 || ss[0].ID != "s2" || ss[1].ID != "s3" {
		t.Errorf("UndeliveredStatements() = %v", ss)
	}
}

func TestMemoryTargets(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()

	_ = m.PutTarget(ctx, lrs.Target{ID: "b", Endpoint: "http://b"})
	_ = m.PutTarget(ctx, lrs.Target{ID: "a", Endpoint: "http://a", Active: true})
	_ = m.PutTarget(ctx, lrs.Target{ID: "b", Endpoint: "http://b2"})

	ts, err := m.Targets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 2 || ts[0].ID != "a" || ts[1].Endpoint != "http://b2" {
		t.Errorf("Targets() = %v", ts)
	}
}
