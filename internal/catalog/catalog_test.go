package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radarhq/radar/internal/types"
)

func writeCatalog(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeCatalog(t, `
targets:
  - repo: OWASP/wstg
    category: security
  - repo: pytorch/pytorch
    category: ai_ml
`)

	cat, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cat.Targets, 2)
	assert.Equal(t, "OWASP/wstg", cat.Targets[0].Identifier)
	assert.Equal(t, types.CategorySecurity, cat.Targets[0].Category)

	// No weights section: defaults apply.
	assert.Equal(t, 15, cat.Weights.Labels["help wanted"])
	assert.Equal(t, 1.2, cat.Weights.Multipliers[types.CategorySecurity])
}

func TestLoadWeightOverrides(t *testing.T) {
	path := writeCatalog(t, `
targets:
  - repo: OWASP/wstg
    category: security
weights:
  labels:
    jackpot: 99
  uncommented_bonus: 7
`)

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 99, cat.Weights.Labels["jackpot"])
	assert.Equal(t, 7, cat.Weights.UncommentedBonus)
	// Untouched fields keep their defaults.
	assert.Equal(t, 20, cat.Weights.ContestedThreshold)
	assert.Equal(t, 1.2, cat.Weights.Multipliers[types.CategorySecurity])
}

func TestLoadRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"missing slash", "targets:\n  - repo: justaname\n    category: other\n"},
		{"empty owner", "targets:\n  - repo: /name\n    category: other\n"},
		{"bad category", "targets:\n  - repo: a/b\n    category: webdev\n"},
		{"duplicate repo", "targets:\n  - repo: a/b\n    category: other\n  - repo: a/b\n    category: security\n"},
		{"no targets", "targets: []\n"},
		{"not yaml", "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeCatalog(t, tt.contents))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	cat := &Catalog{Targets: []Target{
		{Identifier: "a/a", Category: types.CategoryAIML},
		{Identifier: "s/s", Category: types.CategorySecurity},
		{Identifier: "c/c", Category: types.CategoryCompliance},
	}}

	all := cat.Filter(nil)
	assert.Len(t, all, 3)

	sec := cat.Filter([]types.Category{types.CategorySecurity})
	require.Len(t, sec, 1)
	assert.Equal(t, "s/s", sec[0].Identifier)

	two := cat.Filter([]types.Category{types.CategoryAIML, types.CategoryCompliance})
	require.Len(t, two, 2)
	// Catalog order preserved.
	assert.Equal(t, "a/a", two[0].Identifier)
	assert.Equal(t, "c/c", two[1].Identifier)
}

func TestDefaultCatalogIsValid(t *testing.T) {
	cat := Default()
	require.NoError(t, cat.Validate())
	assert.NotEmpty(t, cat.Filter([]types.Category{types.CategoryAIML}))
	assert.NotEmpty(t, cat.Filter([]types.Category{types.CategorySecurity}))
	assert.NotEmpty(t, cat.Filter([]types.Category{types.CategoryCompliance}))
}
