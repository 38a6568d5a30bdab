package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Profile describes one bench run.
type Profile struct {
	Name string `yaml:"name"`

	// levels of components under the root, and children per component
	Depth  int `yaml:"depth"`
	Fanout int `yaml:"fanout"`

	Ticks     int   `yaml:"ticks"`
	Mutations int   `yaml:"mutations"`
	Seed      int64 `yaml:"seed"`

	// microtask, observer, immediate or timeout
	Backend string `yaml:"backend"`

	MaxUpdateCount int `yaml:"max_update_count,omitempty"`
}

var backends = []string{"microtask", "observer", "immediate", "timeout"}

var profiles = map[string]Profile{
	"fast": {
		Name:      "fast",
		Depth:     3,
		Fanout:    4,
		Ticks:     100,
		Mutations: 10,
		Seed:      1,
		Backend:   "microtask",
	},
	"standard": {
		Name:      "standard",
		Depth:     4,
		Fanout:    6,
		Ticks:     1000,
		Mutations: 50,
		Seed:      1,
		Backend:   "microtask",
	},
	"stress": {
		Name:      "stress",
		Depth:     5,
		Fanout:    8,
		Ticks:     2000,
		Mutations: 500,
		Seed:      1,
		Backend:   "microtask",
	},
}

// LoadProfile reads a profile from a YAML file. Missing fields are taken
// from the profile the file names (the fast one by default).
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	return ParseProfile(data)
}

func ParseProfile(data []byte) (Profile, error) {
	var named struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &named); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}

	base := "fast"
	if named.Name != "" {
		base = named.Name
	}

	p, ok := profiles[base]
	if !ok {
		// custom name, defaults still come from fast
		p = profiles["fast"]
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Profile{}, err
	}

	return p, nil
}

func (p Profile) Validate() error {
	var errs []error

	if p.Depth < 1 {
		errs = append(errs, fmt.Errorf("depth must be at least 1, got %d", p.Depth))
	}
	if p.Fanout < 1 {
		errs = append(errs, fmt.Errorf("fanout must be at least 1, got %d", p.Fanout))
	}
	if p.Ticks < 0 {
		errs = append(errs, fmt.Errorf("ticks must not be negative, got %d", p.Ticks))
	}
	if p.Mutations < 0 {
		errs = append(errs, fmt.Errorf("mutations must not be negative, got %d", p.Mutations))
	}
	if p.MaxUpdateCount < 0 {
		errs = append(errs, fmt.Errorf("max_update_count must not be negative, got %d", p.MaxUpdateCount))
	}
	if !slices.Contains(backends, p.Backend) {
		errs = append(errs, fmt.Errorf("unknown backend %q, expected one of %v", p.Backend, backends))
	}

	return errors.Join(errs...)
}

// Components is the size of the tree the profile builds.
func (p Profile) Components() int {
	total, level := 0, 1
	for range p.Depth {
		total += level
		level *= p.Fanout
	}
	return total
}
