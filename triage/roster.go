package triage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/EricRahm/bz-triage/errors"
)

// Roster maps a tracker identifier (the part of the login before '@') to
// the name the team knows that person by
type Roster map[string]string

// DefaultRoster returns the MemShrink team
func DefaultRoster() Roster {
	return Roster{
		"erahm":        "erahm",
		"n.nethercote": "njn",
		"nfroyd":       "froydnj",
		"continuation": "mccr8",
		"jld":          "jld",
		"khuey":        "khuey",
	}
}

// Keys returns the roster identifiers in ascending order
func (r Roster) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Match returns the display names of every roster member in participants,
// ordered by identifier. Matching is exact string equality. Returns nil when
// nobody matches.
func (r Roster) Match(participants ParticipantSet) []string {
	var names []string
	for _, id := range r.Keys() {
		if participants.Contains(id) {
			names = append(names, r[id])
		}
	}
	return names
}

// Validate rejects empty identifiers and display names
func (r Roster) Validate() error {
	for _, id := range r.Keys() {
		if strings.TrimSpace(id) == "" {
			return errors.New("roster contains an empty identifier")
		}
		if strings.TrimSpace(r[id]) == "" {
			return errors.Newf("roster entry %q has an empty display name", id)
		}
	}
	return nil
}

// LoadRosterFile reads a roster from a TOML (.toml) or YAML (.yaml, .yml)
// file holding a flat table of identifier = display name. Identifiers with
// dots must be quoted in TOML: "n.nethercote" = "njn".
func LoadRosterFile(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read roster file %s", path)
	}

	roster := Roster{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &roster); err != nil {
			return nil, errors.Wrapf(err, "parse TOML roster %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &roster); err != nil {
			return nil, errors.Wrapf(err, "parse YAML roster %s", path)
		}
	default:
		return nil, errors.WithHint(
			errors.Newf("unsupported roster file extension %q", ext),
			"use .toml, .yaml or .yml",
		)
	}

	if len(roster) == 0 {
		return nil, errors.Newf("roster file %s has no members", path)
	}
	if err := roster.Validate(); err != nil {
		return nil, errors.Wrapf(err, "roster file %s", path)
	}
	return roster, nil
}
