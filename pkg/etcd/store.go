// Package etcd implements a persistent [store.Store] on top of etcd.
// Records are JSON values, under keys with a configurable prefix.
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/tzrikka/slackxapi/pkg/events"
	"github.com/tzrikka/slackxapi/pkg/lrs"
	"github.com/tzrikka/slackxapi/pkg/rules"
	"github.com/tzrikka/slackxapi/pkg/store"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

const (
	timeout = 3 * time.Second
)

const (
	verbsDir      = "verbs/"
	objectsDir    = "objects/"
	actorsDir     = "actors/"
	operatorsDir  = "operators/"
	targetsDir    = "targets/"
	eventsDir     = "events/"
	statementsDir = "statements/"
)

type Store struct {
	kv     clientv3.KV
	prefix string
}

var _ store.Store = (*Store)(nil)

// New connects to an etcd cluster. The returned close function
// should be called when the store is no longer needed.
func New(ctx context.Context, endpoints []string, prefix string, dialTimeout time.Duration) (*Store, func() error, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Context:     ctx,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize etcd client")
	}

	zerolog.Ctx(ctx).Info().Strs("endpoints", endpoints).Str("prefix", prefix).Msg("connected to etcd")
	return NewWithKV(c, prefix), c.Close, nil
}

// NewWithKV wraps an existing etcd key-value client.
func NewWithKV(kv clientv3.KV, prefix string) *Store {
	return &Store{kv: kv, prefix: prefix}
}

// ruleKey zero-pads rule IDs, so that etcd's lexical key order is also the rules' order.
func ruleKey(dir string, id int64) string {
	return fmt.Sprintf("%s%020d", dir, id)
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %q", key)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := s.kv.Put(ctx, s.prefix+key, string(b)); err != nil {
		return errors.Wrapf(err, "failed to write %q to etcd", key)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.kv.Get(ctx, s.prefix+key)
	if err != nil {
		return errors.Wrapf(err, "failed to read %q from etcd", key)
	}
	if len(resp.Kvs) == 0 {
		return fmt.Errorf("%s: %w", key, store.ErrNotFound)
	}

	if err := json.Unmarshal(resp.Kvs[0].Value, v); err != nil {
		return errors.Wrapf(err, "failed to decode %q", key)
	}
	return nil
}

// list returns all the values under the given directory, sorted by key.
func list[T any](ctx context.Context, s *Store, dir string) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := []clientv3.OpOption{clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend)}
	resp, err := s.kv.Get(ctx, s.prefix+dir, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %q in etcd", dir)
	}

	vs := make([]T, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var v T
		if err := json.Unmarshal(kv.Value, &v); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %q", string(kv.Key))
		}
		vs = append(vs, v)
	}
	return vs, nil
}

func (s *Store) VerbRules(ctx context.Context) ([]rules.VerbRule, error) {
	return list[rules.VerbRule](ctx, s, verbsDir)
}

func (s *Store) ObjectRules(ctx context.Context) ([]rules.ObjectRule, error) {
	return list[rules.ObjectRule](ctx, s, objectsDir)
}

func (s *Store) PutVerbRule(ctx context.Context, r rules.VerbRule) error {
	return s.put(ctx, ruleKey(verbsDir, r.ID), r)
}

func (s *Store) PutObjectRule(ctx context.Context, r rules.ObjectRule) error {
	return s.put(ctx, ruleKey(objectsDir, r.ID), r)
}

func (s *Store) Actor(ctx context.Context, slackUserID string) (*xapi.ActorDefinition, error) {
	a := &xapi.ActorDefinition{}
	if err := s.get(ctx, actorsDir+slackUserID, a); err != nil {
		return nil, err
	}
	return a, nil
}

// PutActor is keyed by the Slack user ID, so concurrent
// provisioning of the same user overwrites instead of duplicating.
func (s *Store) PutActor(ctx context.Context, a *xapi.ActorDefinition) error {
	return s.put(ctx, actorsDir+a.SlackUserID, a)
}

func (s *Store) Operator(ctx context.Context, name string) (*store.Operator, error) {
	o := &store.Operator{}
	if err := s.get(ctx, operatorsDir+name, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) PutOperator(ctx context.Context, o *store.Operator) error {
	return s.put(ctx, operatorsDir+o.Name, o)
}

func (s *Store) Targets(ctx context.Context) ([]lrs.Target, error) {
	return list[lrs.Target](ctx, s, targetsDir)
}

func (s *Store) PutTarget(ctx context.Context, t lrs.Target) error {
	return s.put(ctx, targetsDir+t.ID, t)
}

func (s *Store) SaveEvent(ctx context.Context, e *events.Event) error {
	return s.put(ctx, eventsDir+e.ID, e)
}

func (s *Store) SaveStatement(ctx context.Context, st *store.Statement) error {
	return s.put(ctx, statementsDir+st.ID, st)
}

// MarkDelivered is a read-modify-write of a single statement. Concurrent updates
// of the same statement are harmless, because they all set the same flag.
func (s *Store) MarkDelivered(ctx context.Context, statementID string) error {
	st := &store.Statement{}
	if err := s.get(ctx, statementsDir+statementID, st); err != nil {
		return err
	}

	st.Delivered = true
	return s.put(ctx, statementsDir+statementID, st)
}

func (s *Store) UndeliveredStatements(ctx context.Context) ([]*store.Statement, error) {
	all, err := list[*store.Statement](ctx, s, statementsDir)
	if err != nil {
		return nil, err
	}

	var ss []*store.Statement
	for _, st := range all {
		if !st.Delivered {
			ss = append(ss, st)
		}
	}

	slices.SortStableFunc(ss, func(a, b *store.Statement) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return ss, nil
}
