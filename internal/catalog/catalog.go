// Package catalog holds the fixed set of repositories the engine is allowed
// to scan. Targets come from a YAML file or from the built-in default list;
// the catalog is loaded once at startup and never mutated afterwards.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/radarhq/radar/internal/scoring"
	"github.com/radarhq/radar/internal/types"
)

// Target is one repository the engine may scan.
type Target struct {
	// Identifier is the "owner/name" repository slug, unique within a catalog.
	Identifier string         `yaml:"repo"`
	Category   types.Category `yaml:"category"`
}

// Validate checks the target's fields.
func (t Target) Validate() error {
	parts := strings.Split(t.Identifier, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("repository identifier must be \"owner/name\" (got %q)", t.Identifier)
	}
	if !t.Category.IsValid() {
		return fmt.Errorf("repository %s: invalid category %q", t.Identifier, t.Category)
	}
	return nil
}

// Catalog is an ordered, immutable list of scan targets plus optional
// scoring-weight overrides.
type Catalog struct {
	Targets []Target
	Weights scoring.Weights
}

// file mirrors the YAML layout of a catalog file.
type file struct {
	Targets []Target         `yaml:"targets"`
	Weights *scoring.Weights `yaml:"weights"`
}

// Load reads a catalog from path. A missing or malformed file is a
// configuration error: the engine refuses to start rather than scanning an
// unintended target set.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var cf file
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}

	cat := &Catalog{Targets: cf.Targets, Weights: scoring.DefaultWeights()}
	if cf.Weights != nil {
		cat.Weights = mergeWeights(cat.Weights, *cf.Weights)
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Validate checks every target and rejects duplicate identifiers.
func (c *Catalog) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("catalog has no targets")
	}

	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.Identifier] {
			return fmt.Errorf("duplicate repository in catalog: %s", t.Identifier)
		}
		seen[t.Identifier] = true
	}
	return nil
}

// Filter returns the targets matching the given categories, preserving
// catalog order. An empty category list returns every target.
func (c *Catalog) Filter(categories []types.Category) []Target {
	if len(categories) == 0 {
		out := make([]Target, len(c.Targets))
		copy(out, c.Targets)
		return out
	}

	wanted := make(map[types.Category]bool, len(categories))
	for _, cat := range categories {
		wanted[cat] = true
	}

	var out []Target
	for _, t := range c.Targets {
		if wanted[t.Category] {
			out = append(out, t)
		}
	}
	return out
}

// mergeWeights overlays non-zero override fields onto the defaults so a
// catalog file can tweak a single table without restating the rest.
func mergeWeights(base, override scoring.Weights) scoring.Weights {
	if len(override.Labels) > 0 {
		base.Labels = override.Labels
	}
	if len(override.Multipliers) > 0 {
		base.Multipliers = override.Multipliers
	}
	if override.UncommentedBonus != 0 {
		base.UncommentedBonus = override.UncommentedBonus
	}
	if override.ContestedPenalty != 0 {
		base.ContestedPenalty = override.ContestedPenalty
	}
	if override.ContestedThreshold != 0 {
		base.ContestedThreshold = override.ContestedThreshold
	}
	if override.DetailBonus != 0 {
		base.DetailBonus = override.DetailBonus
	}
	if override.DetailThreshold != 0 {
		base.DetailThreshold = override.DetailThreshold
	}
	return base
}
