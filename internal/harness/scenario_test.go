package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/value"
)

func TestParseScenario_Fields(t *testing.T) {
	s := mustParse(t, `
name: parsed
description: "fields decode"
steps:
  - submit:
      editor: 7
      note: "import"
      entities:
        w:
          type: work
          nameSection: { name: Notes, sortName: Notes, language: 3 }
          aliases:
            - { name: Carnets, sortName: Carnets, languageId: 4 }
          languages: [3]
          relationships: []
          attributes: { typeId: 1 }
  - delete: { bbid: $w, editor: 2 }
assertions:
  - type: history
    bbid: $w
    expect: { count: 2, deleted: true }
`)
	require.Len(t, s.Steps, 2)
	sub := s.Steps[0].Submit
	require.NotNil(t, sub)
	assert.Equal(t, int64(7), sub.Editor)
	assert.Equal(t, "import", sub.Note)

	w := sub.Entities["w"]
	assert.Equal(t, model.Work, w.Type)
	require.NotNil(t, w.NameSection)
	require.NotNil(t, w.NameSection.LanguageID)
	assert.Equal(t, int64(3), *w.NameSection.LanguageID)
	require.Len(t, w.Aliases, 1)
	assert.Equal(t, "Carnets", w.Aliases[0].Name)
	assert.NotNil(t, w.Relationships, "an empty list is distinct from an absent one")
	assert.Empty(t, w.Relationships)
	assert.Equal(t, value.Object{"typeId": value.Int(1)}, w.Attributes)

	assert.Equal(t, OpDelete, s.Steps[1].Op())
	assert.Equal(t, int64(2), s.Steps[1].Delete.Editor)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps: [{delete: {bbid: x}}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nsteps: [{delete: {bbid: x}}]\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\n",
			want: "steps list is required",
		},
		{
			name: "two operations",
			yaml: "name: n\ndescription: d\nsteps: [{delete: {bbid: x}, merge: {target: a, sources: [b]}}]\n",
			want: "exactly one of submit, merge or delete",
		},
		{
			name: "empty submit",
			yaml: "name: n\ndescription: d\nsteps: [{submit: {entities: {}}}]\n",
			want: "submit needs at least one entity",
		},
		{
			name: "merge without sources",
			yaml: "name: n\ndescription: d\nsteps: [{merge: {target: a}}]\n",
			want: "merge needs a target and sources",
		},
		{
			name: "error with revision",
			yaml: "name: n\ndescription: d\nsteps: [{delete: {bbid: x}, expect: {error: NO_CHANGE, revision: 2}}]\n",
			want: "error excludes revision",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nsteps: [{delete: {bbid: x}}]\nassertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "entity without expect",
			yaml: "name: n\ndescription: d\nsteps: [{delete: {bbid: x}}]\nassertions: [{type: entity, bbid: x}]\n",
			want: "expect is required for entity",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nstep: []\n",
			want: "failed to parse YAML",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
