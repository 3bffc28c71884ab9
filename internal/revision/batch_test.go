package revision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/testutil"
	"github.com/roach88/catalog/internal/value"
)

func TestProcessingOrder(t *testing.T) {
	entities := map[string]EntityInput{
		"e1": {Type: model.Edition},
		"e0": {Type: model.Edition},
		"g0": {Type: model.EditionGroup},
		"w0": {Type: model.Work},
		"p0": {Type: model.Publisher},
		"a0": {Type: model.Author},
	}
	assert.Equal(t, []string{"a0", "p0", "w0", "g0", "e0", "e1"}, processingOrder(entities))
}

func TestSubmit_TemporaryKeysResolveToRealBBIDs(t *testing.T) {
	f := newFixture(t)

	res := f.submit(t, map[string]EntityInput{
		"e0": {
			Type:        model.Edition,
			NameSection: name("The Dispossessed", "Dispossessed, The"),
			Publishers:  []string{"p0"},
			Languages:   []int64{120},
			Attributes:  value.Object{"editionGroupBbid": value.String("g0"), "pages": value.Int(387)},
		},
		"g0": {Type: model.EditionGroup, NameSection: name("The Dispossessed", "Dispossessed, The")},
		"p0": {Type: model.Publisher, NameSection: name("Harper & Row", "Harper & Row")},
	})

	// p0 (priority 0) is saved first, then g0, then e0.
	pub, group, edition := testutil.BBID(1), testutil.BBID(2), testutil.BBID(3)
	assert.Equal(t, map[string]string{"p0": pub, "g0": group, "e0": edition}, res.Keys)
	assert.Equal(t, []string{pub, group, edition}, res.Touched)

	v := f.view(t, edition)
	assert.Equal(t, []string{pub}, v.Publishers, "publisher must be the committed bbid, never the key")
	assert.Equal(t, value.String(group), v.Attributes["editionGroupBbid"])
	assert.Equal(t, []int64{120}, v.Languages)

	assert.Equal(t, 1, f.count(t, "revision"), "one submission, one revision")
	assert.Equal(t, 3, f.count(t, "entity_revision"))
}

func TestSubmit_ExistingEntityByBBID(t *testing.T) {
	f := newFixture(t)
	pub := f.save(t, EntityInput{Type: model.Publisher, NameSection: name("Tor", "Tor")}).Keys[SingleEntityKey]

	res := f.submit(t, map[string]EntityInput{
		"e0": {Type: model.Edition, NameSection: name("Spin", "Spin"), Publishers: []string{pub}},
	})

	v := f.view(t, res.Keys["e0"])
	assert.Equal(t, []string{pub}, v.Publishers)

	history, err := f.eng.History(context.Background(), pub)
	require.NoError(t, err)
	assert.Len(t, history, 1, "referencing an entity does not revise it")
}

func TestSubmit_ReferenceErrors(t *testing.T) {
	f := newFixture(t)
	author := f.save(t, EntityInput{Type: model.Author, NameSection: janeDoe()}).Keys[SingleEntityKey]
	ctx := context.Background()

	tests := []struct {
		name     string
		entities map[string]EntityInput
		check    func(error) bool
	}{
		{
			name: "unknown key",
			entities: map[string]EntityInput{
				"e0": {Type: model.Edition, NameSection: name("E", "E"), Publishers: []string{"p9"}},
			},
			check: IsUnresolvedReference,
		},
		{
			name: "key saved later",
			entities: map[string]EntityInput{
				"e0": {Type: model.Edition, NameSection: name("E", "E"), Attributes: value.Object{"editionGroupBbid": value.String("e1")}},
				"e1": {Type: model.Edition, NameSection: name("F", "F")},
			},
			check: IsUnresolvedReference,
		},
		{
			name: "unknown bbid",
			entities: map[string]EntityInput{
				"e0": {Type: model.Edition, NameSection: name("E", "E"), Publishers: []string{testutil.BBID(77)}},
			},
			check: IsNotFound,
		},
		{
			name: "wrong referenced type",
			entities: map[string]EntityInput{
				"e0": {Type: model.Edition, NameSection: name("E", "E"), Publishers: []string{author}},
			},
			check: IsInvalidInput,
		},
		{
			name: "same entity twice",
			entities: map[string]EntityInput{
				"a": {Type: model.Author, BBID: author, NameSection: janeDoe()},
				"b": {Type: model.Author, BBID: author, NameSection: janeDoe()},
			},
			check: IsInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.counts(t)
			_, err := f.eng.Submit(ctx, Submission{EditorID: 1, Entities: tt.entities})
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
			assert.Equal(t, before, f.counts(t))
		})
	}
}

func TestSubmit_FailureRollsBackWholeBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Submit(context.Background(), Submission{
		EditorID: 1,
		Entities: map[string]EntityInput{
			"a0": {Type: model.Author, NameSection: janeDoe()},
			// Saved after a0; works have no pages attribute.
			"w0": {Type: model.Work, NameSection: name("W", "W"), Attributes: value.Object{"pages": value.Int(1)}},
		},
	})
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err), "got %v", err)

	for table, n := range f.counts(t) {
		assert.Zero(t, n, "table %s", table)
	}
	assert.Zero(t, f.rec.len())
}

func TestSubmit_SkipsUnchangedEntities(t *testing.T) {
	f := newFixture(t)
	first := f.submit(t, map[string]EntityInput{
		"a0": {Type: model.Author, NameSection: janeDoe()},
		"a1": {Type: model.Author, NameSection: name("John Roe", "Roe, John")},
	})
	a0, a1 := first.Keys["a0"], first.Keys["a1"]

	res := f.submit(t, map[string]EntityInput{
		"a0": {Type: model.Author, BBID: a0, NameSection: janeDoe()},
		"a1": {Type: model.Author, BBID: a1, NameSection: name("John Roe", "Roe, J.")},
	})
	assert.Equal(t, []string{a1}, res.Touched)

	history, err := f.eng.History(context.Background(), a0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.eng.Submit(context.Background(), Submission{EditorID: 1, Entities: map[string]EntityInput{
		"a0": {Type: model.Author, BBID: a0, NameSection: janeDoe()},
		"a1": {Type: model.Author, BBID: a1, NameSection: name("John Roe", "Roe, J.")},
	}})
	assert.True(t, IsNoChange(err), "got %v", err)
}

func TestSubmit_RelationshipsSharedByBothEndpoints(t *testing.T) {
	f := newFixture(t)

	res := f.submit(t, map[string]EntityInput{
		"a0": {
			Type:          model.Author,
			NameSection:   janeDoe(),
			Relationships: []RelationshipInput{{TypeID: 8, Source: "a0", Target: "w0"}},
		},
		"w0": {Type: model.Work, NameSection: name("Notes", "Notes")},
	})
	a0, w0 := res.Keys["a0"], res.Keys["w0"]

	av, wv := f.view(t, a0), f.view(t, w0)
	require.Len(t, av.Relationships, 1)
	require.Len(t, wv.Relationships, 1)
	assert.Equal(t, av.Relationships[0], wv.Relationships[0], "one row, attached to both sets")
	assert.Equal(t, model.Relationship{ID: 1, TypeID: 8, SourceBBID: a0, TargetBBID: w0}, av.Relationships[0])
	assert.NotEqual(t, av.RelationshipSetID, wv.RelationshipSetID)

	assert.Equal(t, 1, f.count(t, "revision"))
	assert.Equal(t, 2, f.count(t, "entity_revision"))
	assert.Equal(t, 2, f.count(t, "entity_data"), "rows written in this revision are rewritten in place")
	assert.Equal(t, 1, f.count(t, "relationship"))
}

func TestSubmit_RelationshipToExistingEntity(t *testing.T) {
	f := newFixture(t)
	w0 := f.save(t, EntityInput{Type: model.Work, NameSection: name("Notes", "Notes")}).Keys[SingleEntityKey]

	res := f.submit(t, map[string]EntityInput{
		"a0": {
			Type:          model.Author,
			NameSection:   janeDoe(),
			Relationships: []RelationshipInput{{TypeID: 8, Source: "a0", Target: w0}},
		},
	})
	assert.Equal(t, []string{res.Keys["a0"], w0}, res.Touched, "the other endpoint is revised too")

	history, err := f.eng.History(context.Background(), w0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []int64{1}, history[0].ParentIDs)
	assert.Len(t, f.view(t, w0).Relationships, 1)
}

func TestSubmit_RemoveRelationshipMirrors(t *testing.T) {
	f := newFixture(t)
	first := f.submit(t, map[string]EntityInput{
		"a0": {
			Type:          model.Author,
			NameSection:   janeDoe(),
			Relationships: []RelationshipInput{{TypeID: 8, Source: "a0", Target: "w0"}},
		},
		"w0": {Type: model.Work, NameSection: name("Notes", "Notes")},
	})
	a0, w0 := first.Keys["a0"], first.Keys["w0"]

	res := f.submit(t, map[string]EntityInput{
		"w0": {Type: model.Work, BBID: w0, NameSection: name("Notes", "Notes"), Relationships: []RelationshipInput{}},
	})
	assert.ElementsMatch(t, []string{a0, w0}, res.Touched)

	assert.Empty(t, f.view(t, a0).Relationships)
	assert.Nil(t, f.view(t, w0).RelationshipSetID)
}

func TestSubmit_ResubmittedRelationshipsAreNoChange(t *testing.T) {
	f := newFixture(t)
	first := f.submit(t, map[string]EntityInput{
		"a0": {
			Type:          model.Author,
			NameSection:   janeDoe(),
			Relationships: []RelationshipInput{{TypeID: 8, Source: "a0", Target: "w0"}},
		},
		"w0": {Type: model.Work, NameSection: name("Notes", "Notes")},
	})
	a0, w0 := first.Keys["a0"], first.Keys["w0"]

	_, err := f.eng.Submit(context.Background(), Submission{EditorID: 1, Entities: map[string]EntityInput{
		"x": {
			Type:          model.Author,
			BBID:          a0,
			NameSection:   janeDoe(),
			Relationships: []RelationshipInput{{ID: 42, TypeID: 8, Source: a0, Target: w0}},
		},
	}})
	assert.True(t, IsNoChange(err), "got %v", err)
}

func TestSubmit_RelationshipValidation(t *testing.T) {
	f := newFixture(t)
	w0 := f.save(t, EntityInput{Type: model.Work, NameSection: name("Notes", "Notes")}).Keys[SingleEntityKey]
	w1 := f.save(t, EntityInput{Type: model.Work, NameSection: name("More", "More")}).Keys[SingleEntityKey]
	ctx := context.Background()

	for name, rels := range map[string][]RelationshipInput{
		"not involving":  {{TypeID: 1, Source: w0, Target: w1}},
		"self reference": {{TypeID: 1, Source: "a0", Target: "a0"}},
	} {
		t.Run(name, func(t *testing.T) {
			before := f.counts(t)
			_, err := f.eng.Submit(ctx, Submission{EditorID: 1, Entities: map[string]EntityInput{
				"a0": {Type: model.Author, NameSection: janeDoe(), Relationships: rels},
			}})
			assert.True(t, IsInvalidInput(err), "got %v", err)
			assert.Equal(t, before, f.counts(t))
		})
	}
}
