package setdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/catalog/internal/model"
)

func lang(id int64) *int64 { return &id }

func alias(id int64, name string) model.Alias {
	return model.Alias{ID: id, Name: name, SortName: name, LanguageID: lang(1), Primary: true}
}

func TestHasChanged(t *testing.T) {
	tests := []struct {
		name     string
		old      []model.Alias
		proposed []model.Alias
		want     bool
	}{
		{"both empty", nil, nil, false},
		{"same ids same values", []model.Alias{alias(1, "X")}, []model.Alias{alias(1, "X")}, false},
		{"reordered", []model.Alias{alias(1, "X"), alias(2, "Y")}, []model.Alias{alias(2, "Y"), alias(1, "X")}, false},
		{"value changed for same id", []model.Alias{alias(1, "X")}, []model.Alias{alias(1, "Z")}, true},
		{"id reassigned", []model.Alias{alias(1, "X")}, []model.Alias{alias(2, "X")}, true},
		{"added", []model.Alias{alias(1, "X")}, []model.Alias{alias(1, "X"), alias(0, "Y")}, true},
		{"removed all", []model.Alias{alias(1, "X")}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasChanged(Aliases, tt.old, tt.proposed))
		})
	}
}

func TestHasChangedMembershipOnly(t *testing.T) {
	assert.False(t, HasChanged(Languages, []int64{1, 2}, []int64{2, 1}))
	assert.True(t, HasChanged(Languages, []int64{1, 2}, []int64{1}))
	assert.True(t, HasChanged(Publishers, nil, []string{"p"}))
}

func TestUnchangedMatchesByValue(t *testing.T) {
	old := []model.Alias{alias(1, "X")}
	proposed := []model.Alias{alias(2, "X")}

	unchanged := Unchanged(Aliases, old, proposed)
	assert.Equal(t, []model.Alias{alias(1, "X")}, unchanged, "old row is reused")
	assert.Empty(t, UpdatedOrNew(Aliases, old, proposed))
	assert.Empty(t, Removed(Aliases, old, proposed))
	assert.True(t, ValueIdentical(Aliases, old, proposed))
}

func TestUpdatedOrNewAndRemoved(t *testing.T) {
	old := []model.Alias{alias(1, "X"), alias(2, "Y")}
	renamed := alias(2, "Y2")
	proposed := []model.Alias{alias(1, "X"), renamed, alias(0, "Z")}

	assert.Equal(t, []model.Alias{alias(1, "X")}, Unchanged(Aliases, old, proposed))
	assert.Equal(t, []model.Alias{renamed, alias(0, "Z")}, UpdatedOrNew(Aliases, old, proposed))
	assert.Equal(t, []model.Alias{alias(2, "Y")}, Removed(Aliases, old, proposed))
	assert.False(t, ValueIdentical(Aliases, old, proposed))
}

func TestRenameBackCollapsesToUnchanged(t *testing.T) {
	// Only the final submitted value matters, compared against the original.
	old := []model.Alias{alias(1, "X")}
	proposed := []model.Alias{alias(1, "X")}
	assert.Empty(t, UpdatedOrNew(Aliases, old, proposed))
}

func TestDuplicatesCollapse(t *testing.T) {
	proposed := []model.Alias{alias(0, "X"), alias(0, "X"), alias(0, "Y")}
	assert.Len(t, Dedupe(Aliases, proposed), 2)
	assert.Len(t, UpdatedOrNew(Aliases, nil, proposed), 2)
}

func TestIdentifierCompareFields(t *testing.T) {
	old := []model.Identifier{{ID: 4, TypeID: 1, Value: "9780000000002"}}
	sameValueOtherType := []model.Identifier{{ID: 4, TypeID: 2, Value: "9780000000002"}}
	assert.True(t, HasChanged(Identifiers, old, sameValueOtherType))
	assert.Len(t, UpdatedOrNew(Identifiers, old, sameValueOtherType), 1)
}

func TestRelationshipsCompareEndpoints(t *testing.T) {
	old := []model.Relationship{{ID: 3, TypeID: 8, SourceBBID: "a", TargetBBID: "b"}}
	reversed := []model.Relationship{{ID: 3, TypeID: 8, SourceBBID: "b", TargetBBID: "a"}}
	assert.True(t, HasChanged(Relationships, old, reversed))
	assert.Equal(t, old, Removed(Relationships, old, reversed))
}
