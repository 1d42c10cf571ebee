package etcd

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/tzrikka/slackxapi/pkg/events"
	"github.com/tzrikka/slackxapi/pkg/lrs"
	"github.com/tzrikka/slackxapi/pkg/rules"
	"github.com/tzrikka/slackxapi/pkg/store"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

// fakeKV implements only the parts of [clientv3.KV] that [Store] uses.
type fakeKV struct {
	clientv3.KV

	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Put(_ context.Context, key, val string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.data[key] = val
	return &clientv3.PutResponse{}, nil
}

func (f *fakeKV) Get(_ context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	op := clientv3.OpGet(key, opts...)
	var keys []string
	for k := range f.data {
		if k == key || (op.IsOptsWithPrefix() && strings.HasPrefix(k, key)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	resp := &clientv3.GetResponse{}
	for _, k := range keys {
		resp.Kvs = append(resp.Kvs, &mvccpb.KeyValue{Key: []byte(k), Value: []byte(f.data[k])})
	}
	resp.Count = int64(len(resp.Kvs))
	return resp, nil
}

func TestStoreRules(t *testing.T) {
	kv := newFakeKV()
	s := NewWithKV(kv, "/test/")
	ctx := t.Context()

	for _, id := range []int64{10, 2, 1} {
		r := rules.VerbRule{ID: id, Verb: xapi.VerbDefinition{IRI: "v"}, FieldGroups: rules.GroupSpec{"": {"event_type": "message"}}}
		if err := s.PutVerbRule(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.PutObjectRule(ctx, rules.ObjectRule{ID: 1, Object: xapi.ObjectDefinition{IRI: "o"}}); err != nil {
		t.Fatal(err)
	}

	vs, err := s.VerbRules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 3 || vs[0].ID != 1 || vs[1].ID != 2 || vs[2].ID != 10 {
		t.Errorf("VerbRules() = %+v", vs)
	}
	if got := vs[0].FieldGroups[""]["event_type"]; got != "message" {
		t.Errorf("VerbRules() field group = %q", got)
	}

	objs, err := s.ObjectRules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 || objs[0].Object.IRI != "o" {
		t.Errorf("ObjectRules() = %+v", objs)
	}

	if _, ok := kv.data["/test/verbs/00000000000000000010"]; !ok {
		t.Errorf("unexpected keys: %v", kv.data)
	}
}

func TestStoreActors(t *testing.T) {
	s := NewWithKV(newFakeKV(), "")
	ctx := t.Context()

	if _, err := s.Actor(ctx, "U1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Actor() error = %v, want %v", err, store.ErrNotFound)
	}

	a := &xapi.ActorDefinition{SlackUserID: "U1", IRI: "a@example.com", IRIType: xapi.Mbox, CreatedBy: "admin"}
	if err := s.PutActor(ctx, a); err != nil {
		t.Fatal(err)
	}

	got, err := s.Actor(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if *got != *a {
		t.Errorf("Actor() = %+v, want %+v", got, a)
	}

	if err := s.PutOperator(ctx, &store.Operator{Name: "admin"}); err != nil {
		t.Fatal(err)
	}
	if o, err := s.Operator(ctx, "admin"); err != nil || o.Name != "admin" {
		t.Errorf("Operator() = %v, %v", o, err)
	}
	if _, err := s.Operator(ctx, "root"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Operator() error = %v, want %v", err, store.ErrNotFound)
	}
}

func TestStoreTargets(t *testing.T) {
	s := NewWithKV(newFakeKV(), "/p/")
	ctx := t.Context()

	_ = s.PutTarget(ctx, lrs.Target{ID: "b", Endpoint: "http://b", Active: true})
	_ = s.PutTarget(ctx, lrs.Target{ID: "a", Endpoint: "http://a", Username: "u", Password: "p"})

	ts, err := s.Targets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []lrs.Target{
		{ID: "a", Endpoint: "http://a", Username: "u", Password: "p"},
		{ID: "b", Endpoint: "http://b", Active: true},
	}
	if !slices.Equal(ts, want) {
		t.Errorf("Targets() = %+v, want %+v", ts, want)
	}
}

func TestStoreStatements(t *testing.T) {
	s := NewWithKV(newFakeKV(), "/p/")
	ctx := t.Context()
	now := time.Now().UTC()

	if err := s.SaveEvent(ctx, &events.Event{ID: "e1", EventType: "message"}); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"s1", "s2", "s3"} {
		st := &store.Statement{ID: id, EventID: "e1", Statement: []byte(`{"verb":{}}`), CreatedAt: now}
		if err := s.SaveStatement(ctx, st); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.MarkDelivered(ctx, "s2"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkDelivered(ctx, "s9"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("MarkDelivered() error = %v, want %v", err, store.ErrNotFound)
	}

	ss, err := s.UndeliveredStatements(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ss) != 2 || ss[0].ID != "s1" || ss[1].ID != "s3" {
		t.Fatalf("UndeliveredStatements() = %+v", ss)
	}
	if string(ss[0].Statement) != `{"verb":{}}` {
		t.Errorf("UndeliveredStatements() statement = %s", ss[0].Statement)
	}
}

func TestUndeliveredStatementsOrder(t *testing.T) {
	s := NewWithKV(newFakeKV(), "/p/")
	ctx := t.Context()
	now := time.Now().UTC()

	for i, id := range []string{"zz", "mm", "aa"} {
		st := &store.Statement{ID: id, Statement: []byte(`{}`), CreatedAt: now.Add(time.Duration(i) * time.Second)}
		if err := s.SaveStatement(ctx, st); err != nil {
			t.Fatal(err)
		}
	}

	ss, err := s.UndeliveredStatements(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, st := range ss {
		got = append(got, st.ID)
	}
	if want := []string{"zz", "mm", "aa"}; !slices.Equal(got, want) {
		t.Errorf("UndeliveredStatements() = %v, want %v", got, want)
	}
}

func TestStoreErrors(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("etcd is down")
	s := NewWithKV(kv, "")
	ctx := t.Context()

	if _, err := s.VerbRules(ctx); err == nil {
		t.Error("VerbRules() error = nil")
	}
	if _, err := s.Actor(ctx, "U1"); err == nil || errors.Is(err, store.ErrNotFound) {
		t.Errorf("Actor() error = %v, want etcd error", err)
	}
	if err := s.PutTarget(ctx, lrs.Target{ID: "a"}); err == nil {
		t.Error("PutTarget() error = nil")
	}
}
