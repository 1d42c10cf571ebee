// Package actors maps Slack users to xAPI actor definitions, and provisions
// missing definitions just-in-time based on Slack user profiles.
package actors

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tzrikka/slackxapi/pkg/metrics"
	"github.com/tzrikka/slackxapi/pkg/slack"
	"github.com/tzrikka/slackxapi/pkg/store"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

var ErrNoActor = errors.New("no actor")

// ProvisionError describes why an actor could not be provisioned.
// It's never retried: the statement of the current event is dropped.
type ProvisionError struct {
	UserID string
	Reason string
	Err    error
}

func (e *ProvisionError) Error() string {
	msg := fmt.Sprintf("failed to provision actor for %q: %s", e.UserID, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

type Config struct {
	Enabled   bool
	IRIType   xapi.IRIType
	AdminUser string
}

// Resolver is safe for concurrent use.
type Resolver struct {
	store store.Store
	api   slack.API
	cfg   Config
	now   func() time.Time
}

func NewResolver(s store.Store, api slack.API, cfg Config) *Resolver {
	return &Resolver{store: s, api: api, cfg: cfg, now: time.Now}
}

// Resolve returns the actor definition of a Slack user, and provisions one if it
// doesn't exist yet. Any failure results in an error wrapping [ErrNoActor].
func (r *Resolver) Resolve(ctx context.Context, userID string) (*xapi.ActorDefinition, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: event without user ID", ErrNoActor)
	}

	a, err := r.store.Actor(ctx, userID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNoActor, err)
	}

	a, err = r.Provision(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoActor, err)
	}
	return a, nil
}

// Provision creates and persists a new actor definition for a Slack user,
// based on the email address in the user's Slack profile.
func (r *Resolver) Provision(ctx context.Context, userID string) (*xapi.ActorDefinition, error) {
	l := zerolog.Ctx(ctx).With().Str("slack_user_id", userID).Logger()

	if !r.cfg.Enabled {
		return nil, &ProvisionError{UserID: userID, Reason: "automatic actor creation is disabled"}
	}

	admin, err := r.store.Operator(ctx, r.cfg.AdminUser)
	if err != nil {
		l.Error().Err(err).Str("admin", r.cfg.AdminUser).Msg("administrative identity not found")
		return nil, &ProvisionError{UserID: userID, Reason: "administrative identity not found", Err: err}
	}

	if r.api == nil {
		return nil, &ProvisionError{UserID: userID, Reason: "Slack API client not configured"}
	}
	u, err := r.api.LookupUser(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Msg("failed to look up Slack user")
		return nil, &ProvisionError{UserID: userID, Reason: "Slack user lookup failed", Err: err}
	}
	if u.Email == "" {
		l.Warn().Msg("Slack user profile without email address")
		return nil, &ProvisionError{UserID: userID, Reason: "no email address in Slack profile"}
	}

	if !r.cfg.IRIType.Valid() {
		return nil, &ProvisionError{UserID: userID, Reason: fmt.Sprintf("invalid IRI type %q", r.cfg.IRIType)}
	}

	a := &xapi.ActorDefinition{
		SlackUserID: userID,
		IRI:         IRI(r.cfg.IRIType, u.Email),
		IRIType:     r.cfg.IRIType,
		DisplayName: u.DisplayName,
		ObjectType:  xapi.Agent,
		CreatedBy:   admin.Name,
		CreatedAt:   r.now().UTC(),
	}
	if a.DisplayName == "" {
		a.DisplayName = u.RealName
	}

	if err := r.store.PutActor(ctx, a); err != nil {
		return nil, &ProvisionError{UserID: userID, Reason: "failed to save actor", Err: err}
	}

	metrics.ProvisionedActors.Inc()
	l.Info().Str("iri_type", string(a.IRIType)).Msg("provisioned new xAPI actor")
	return a, nil
}

// IRI converts an email address into an actor IRI of the given type.
// Only "mbox_sha1sum" requires a transformation: a lowercase hex SHA-1 digest.
func IRI(t xapi.IRIType, email string) string {
	if t != xapi.MboxSHA1Sum {
		return email
	}
	sum := sha1.Sum([]byte(email))
	return hex.EncodeToString(sum[:])
}
