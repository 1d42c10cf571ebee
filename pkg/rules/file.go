package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML representation of verb and object rules.
// Rules are numbered by their position, unless all of them have explicit IDs.
type File struct {
	Verbs   []VerbRule   `yaml:"verbs"`
	Objects []ObjectRule `yaml:"objects"`
}

// LoadFile reads and validates a YAML rules file.
func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	f := &File{}
	if err := yaml.Unmarshal(b, f); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}

	if err := f.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid rules file %q: %w", path, err)
	}
	return f, nil
}

// Normalize assigns missing IDs, and validates all the rules.
func (f *File) Normalize() error {
	if err := assignIDs("verb", f.Verbs, func(r *VerbRule) *int64 { return &r.ID }); err != nil {
		return err
	}
	for _, r := range f.Verbs {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	if err := assignIDs("object", f.Objects, func(r *ObjectRule) *int64 { return &r.ID }); err != nil {
		return err
	}
	for _, r := range f.Objects {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// assignIDs numbers rules by their position when none of them has an explicit ID.
// Mixing explicit and implicit IDs in the same list is an error.
func assignIDs[R any](kind string, rs []R, id func(*R) *int64) error {
	explicit := 0
	for i := range rs {
		if *id(&rs[i]) != 0 {
			explicit++
		}
	}

	switch explicit {
	case 0:
		for i := range rs {
			*id(&rs[i]) = int64(i + 1)
		}
		return nil
	case len(rs):
	default:
		return fmt.Errorf("%s rules: either all or none of them must have an ID", kind)
	}

	seen := map[int64]bool{}
	for i := range rs {
		n := *id(&rs[i])
		if seen[n] {
			return fmt.Errorf("duplicate %s rule ID %d", kind, n)
		}
		seen[n] = true
	}
	return nil
}
