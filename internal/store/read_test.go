package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/model"
)

func TestGetEntity_NotFound(t *testing.T) {
	s := createTestStore(t)
	tx := beginTest(t, s)

	_, err := tx.GetEntity(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestListEntityRevisions(t *testing.T) {
	s := createTestStore(t)
	tx := beginTest(t, s)
	ctx := context.Background()

	require.NoError(t, tx.EnsureEditor(ctx, 1))
	require.NoError(t, tx.InsertEntity(ctx, "b1", model.Author))
	dataID, err := tx.InsertEntityData(ctx, model.EntityData{Type: model.Author})
	require.NoError(t, err)

	first, err := tx.InsertRevision(ctx, 1, testTime, false)
	require.NoError(t, err)
	require.NoError(t, tx.InsertEntityRevision(ctx, model.EntityRevision{RevisionID: first, BBID: "b1", DataID: &dataID}))
	require.NoError(t, tx.AddNote(ctx, model.Note{RevisionID: first, AuthorID: 1, Content: "created", PostedAt: testTime}))

	second, err := tx.InsertRevision(ctx, 1, testTime.Add(time.Hour), true)
	require.NoError(t, err)
	require.NoError(t, tx.AddRevisionParent(ctx, first, second))
	require.NoError(t, tx.AddRevisionParent(ctx, first, second))
	require.NoError(t, tx.InsertEntityRevision(ctx, model.EntityRevision{RevisionID: second, BBID: "b1", IsMerge: true}))

	history, err := tx.ListEntityRevisions(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, second, history[0].ID)
	assert.True(t, history[0].IsMerge)
	assert.True(t, history[0].Deleted)
	assert.Equal(t, []int64{first}, history[0].ParentIDs)
	assert.Empty(t, history[0].Notes)
	assert.True(t, history[0].CreatedAt.Equal(testTime.Add(time.Hour)))

	assert.Equal(t, first, history[1].ID)
	assert.False(t, history[1].Deleted)
	assert.Equal(t, []int64{}, history[1].ParentIDs)
	assert.Equal(t, []string{"created"}, history[1].Notes)
}

func TestListEntityRevisions_Unknown(t *testing.T) {
	s := createTestStore(t)
	tx := beginTest(t, s)

	history, err := tx.ListEntityRevisions(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, history)
}
