package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tzrikka/slackxapi/pkg/actors"
	"github.com/tzrikka/slackxapi/pkg/events"
	"github.com/tzrikka/slackxapi/pkg/lrs"
	"github.com/tzrikka/slackxapi/pkg/rules"
	"github.com/tzrikka/slackxapi/pkg/store"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

const messagePayload = `{"team_id": "T1", "type": "event_callback", "event_id": "Ev1", "event_time": 1600000000,
	"event": {"type": "message", "user": "U123456", "text": "hi", "channel": "C1",
	"channel_type": "channel", "ts": "1600000000.000100", "event_ts": "1600000000.000100"}}`

const reactionPayload = `{"team_id": "T1", "type": "event_callback", "event_id": "Ev2", "event_time": 1600000000,
	"event": {"type": "reaction_added", "user": "U123456", "reaction": "thumbsup",
	"item": {"type": "message", "channel": "C2", "ts": "1599999999.000100"}, "event_ts": "1600000002.000300"}}`

func lrsServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	calls := new(atomic.Int32)
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)

	return s, calls
}

func seededStore(t *testing.T, lrsURL string) *store.Memory {
	t.Helper()

	m := store.NewMemory()
	ctx := t.Context()

	seed := &store.Seed{
		File: rules.File{
			Verbs: []rules.VerbRule{{
				ID:          1,
				Verb:        xapi.VerbDefinition{IRI: "http://example.com/verbs/sent", DisplayName: "sent"},
				FieldGroups: rules.GroupSpec{"": {"event_type": "message", "event_subtype": "None"}},
			}},
			Objects: []rules.ObjectRule{{
				ID:          1,
				Object:      xapi.ObjectDefinition{IRI: "http://example.com/activities/message", DisplayName: "Message"},
				FieldGroups: rules.GroupSpec{"": {"event_type": "message"}},
			}},
		},
		Operators: []store.Operator{{Name: "admin"}},
		Actors: []xapi.ActorDefinition{{
			SlackUserID: "U123456", IRI: "actor1@example.com", IRIType: xapi.Mbox, DisplayName: "Actor 2",
		}},
		Targets: []lrs.Target{{ID: "lrs1", Endpoint: lrsURL, Active: true}},
	}
	if err := store.Import(ctx, m, seed); err != nil {
		t.Fatal(err)
	}

	return m
}

func newTestProcessor(m store.Store) *Processor {
	n := events.NewNormalizer(time.UTC)
	a := actors.NewResolver(m, nil, actors.Config{})
	d := lrs.NewDeliverer(lrs.WithRetryInterval(time.Millisecond))
	return NewProcessor(n, a, m, d, xapi.Options{})
}

func TestProcessDelivers(t *testing.T) {
	s, calls := lrsServer(t, http.StatusOK)
	m := seededStore(t, s.URL)

	st, err := newTestProcessor(m).Process(t.Context(), []byte(messagePayload))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if st == nil {
		t.Fatal("Process() = nil statement")
	}
	if !st.Delivered {
		t.Error("Process() statement delivered = false")
	}
	if calls.Load() != 1 {
		t.Errorf("LRS received %d requests, want 1", calls.Load())
	}

	got := map[string]any{}
	if err := json.Unmarshal(st.Statement, &got); err != nil {
		t.Fatal(err)
	}
	actor, _ := got["actor"].(map[string]any)
	if actor["mbox"] != "mailto:actor1@example.com" {
		t.Errorf("statement actor = %v", actor)
	}
	object, _ := got["object"].(map[string]any)
	if object["id"] != "http://example.com/activities/message/Ev1" {
		t.Errorf("statement object = %v", object)
	}

	if e, ok := m.Event(st.EventID); !ok || e.EventID != "Ev1" {
		t.Errorf("saved event = %v, %v", e, ok)
	}
	if ss, _ := m.UndeliveredStatements(t.Context()); len(ss) != 0 {
		t.Errorf("UndeliveredStatements() = %v", ss)
	}
}

func TestProcessDeliveryFailure(t *testing.T) {
	s, calls := lrsServer(t, http.StatusInternalServerError)
	m := seededStore(t, s.URL)

	st, err := newTestProcessor(m).Process(t.Context(), []byte(messagePayload))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if st == nil || st.Delivered {
		t.Fatalf("Process() = %+v, want undelivered statement", st)
	}
	if calls.Load() != lrs.DefaultMaxAttempts {
		t.Errorf("LRS received %d requests, want %d", calls.Load(), lrs.DefaultMaxAttempts)
	}

	ss, _ := m.UndeliveredStatements(t.Context())
	if len(ss) != 1 || ss[0].ID != st.ID {
		t.Errorf("UndeliveredStatements() = %v", ss)
	}
}

func TestProcessNoStatement(t *testing.T) {
	s, calls := lrsServer(t, http.StatusOK)

	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "no_verb",
			payload: reactionPayload,
		},
		{
			name:    "no_actor",
			payload: `{"event_id": "Ev3", "event": {"type": "message", "user": "U999", "channel": "C1"}}`,
		},
		{
			name:    "no_user",
			payload: `{"event_id": "Ev4", "event": {"type": "message", "channel": "C1"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := seededStore(t, s.URL)
			st, err := newTestProcessor(m).Process(t.Context(), []byte(tt.payload))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if st != nil {
				t.Errorf("Process() = %+v, want nil", st)
			}
			if n := len(m.Statements()); n != 0 {
				t.Errorf("saved %d statements, want 0", n)
			}
		})
	}

	if calls.Load() != 0 {
		t.Errorf("LRS received %d requests, want 0", calls.Load())
	}
}

func TestProcessNoObject(t *testing.T) {
	s, _ := lrsServer(t, http.StatusOK)
	m := seededStore(t, s.URL)
	_ = m.PutVerbRule(t.Context(), rules.VerbRule{
		ID:          2,
		Verb:        xapi.VerbDefinition{IRI: "http://example.com/verbs/reacted"},
		FieldGroups: rules.GroupSpec{"": {"event_type": "reaction_added"}},
	})

	st, err := newTestProcessor(m).Process(t.Context(), []byte(reactionPayload))
	if err != nil || st != nil {
		t.Errorf("Process() = %v, %v, want nil, nil", st, err)
	}
}

func TestProcessMalformedPayload(t *testing.T) {
	m := store.NewMemory()
	for _, payload := range []string{"", "[1, 2]", "not json"} {
		if _, err := newTestProcessor(m).Process(t.Context(), []byte(payload)); err == nil {
			t.Errorf("Process(%q) error = nil", payload)
		}
	}
}

type failingStore struct {
	*store.Memory
}

func (failingStore) SaveEvent(_ context.Context, _ *events.Event) error {
	return errors.New("store is down")
}

func TestProcessStoreFailure(t *testing.T) {
	m := failingStore{Memory: store.NewMemory()}
	if _, err := newTestProcessor(m).Process(t.Context(), []byte(messagePayload)); err == nil {
		t.Error("Process() error = nil")
	}
}

func TestRedeliver(t *testing.T) {
	status := new(atomic.Int32)
	status.Store(http.StatusServiceUnavailable)
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer s.Close()

	m := seededStore(t, s.URL)
	p := newTestProcessor(m)

	st, err := p.Process(t.Context(), []byte(messagePayload))
	if err != nil || st == nil || st.Delivered {
		t.Fatalf("Process() = %+v, %v", st, err)
	}

	status.Store(http.StatusOK)
	n, err := p.Redeliver(t.Context())
	if err != nil {
		t.Fatalf("Redeliver() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Redeliver() = %d, want 1", n)
	}

	if ss, _ := m.UndeliveredStatements(t.Context()); len(ss) != 0 {
		t.Errorf("UndeliveredStatements() = %v", ss)
	}
}
