package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/tzrikka/slackxapi/pkg/lrs"
	"github.com/tzrikka/slackxapi/pkg/rules"
	"github.com/tzrikka/slackxapi/pkg/xapi"
)

// Seed is the YAML representation of the entire configuration of the
// service: rules, pre-defined actors, LRS targets, and operators.
type Seed struct {
	rules.File `yaml:",inline"`

	Operators []Operator             `yaml:"operators"`
	Actors    []xapi.ActorDefinition `yaml:"actors"`
	Targets   []lrs.Target           `yaml:"targets"`
}

// LoadSeed reads and validates a YAML configuration file.
func LoadSeed(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	s := &Seed{}
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %q: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed file %q: %w", path, err)
	}
	return s, nil
}

func (s *Seed) Validate() error {
	if err := s.File.Normalize(); err != nil {
		return err
	}

	for _, o := range s.Operators {
		if o.Name == "" {
			return errors.New("operator without a name")
		}
	}

	for i := range s.Actors {
		if err := s.Actors[i].Validate(); err != nil {
			return err
		}
	}

	for _, t := range s.Targets {
		if t.ID == "" || t.Endpoint == "" {
			return fmt.Errorf("LRS target %q: missing ID or endpoint", t)
		}
	}

	return nil
}

// Import writes all the records of a validated seed into the store.
// Existing records with the same keys are overwritten.
func Import(ctx context.Context, st Store, s *Seed) error {
	now := time.Now().UTC()

	for _, r := range s.Verbs {
		if err := st.PutVerbRule(ctx, r); err != nil {
			return err
		}
	}
	for _, r := range s.Objects {
		if err := st.PutObjectRule(ctx, r); err != nil {
			return err
		}
	}

	for _, o := range s.Operators {
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		if err := st.PutOperator(ctx, &o); err != nil {
			return err
		}
	}

	for _, a := range s.Actors {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if err := st.PutActor(ctx, &a); err != nil {
			return err
		}
	}

	for _, t := range s.Targets {
		if err := st.PutTarget(ctx, t); err != nil {
			return err
		}
	}

	zerolog.Ctx(ctx).Info().Int("verbs", len(s.Verbs)).Int("objects", len(s.Objects)).
		Int("operators", len(s.Operators)).Int("actors", len(s.Actors)).Int("targets", len(s.Targets)).
		Msg("imported configuration")
	return nil
}
