package revision

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/store"
	"github.com/roach88/catalog/internal/testutil"
)

type fixture struct {
	st  *store.Store
	eng *Engine
	rec *recorder
}

// newFixture builds an engine over a private in-memory store with
// deterministic bbids and timestamps.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rec := &recorder{}
	base := []Option{
		WithAllocator(testutil.NewSequentialAllocator()),
		WithClock(testutil.NewDeterministicClock()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithHooks(rec),
	}
	return &fixture{
		st:  st,
		eng: New(st, append(base, opts...)...),
		rec: rec,
	}
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	n, err := f.st.CountRows(context.Background(), table)
	require.NoError(t, err)
	return n
}

// counts snapshots the row count of every versioned table.
func (f *fixture) counts(t *testing.T) map[string]int {
	t.Helper()
	out := make(map[string]int)
	for _, table := range []string{
		"revision", "revision_parent", "entity", "entity_revision", "entity_data",
		"alias", "alias_set", "identifier", "identifier_set", "relationship",
		"relationship_set", "language_set", "publisher_set", "annotation",
		"disambiguation", "entity_redirect", "note",
	} {
		out[table] = f.count(t, table)
	}
	return out
}

func (f *fixture) view(t *testing.T, bbid string) *model.EntityView {
	t.Helper()
	v, err := f.eng.Fetch(context.Background(), bbid)
	require.NoError(t, err)
	return v
}

func (f *fixture) save(t *testing.T, in EntityInput) *Result {
	t.Helper()
	res, err := f.eng.SaveEntity(context.Background(), 1, in, "")
	require.NoError(t, err)
	return res
}

func (f *fixture) submit(t *testing.T, entities map[string]EntityInput) *Result {
	t.Helper()
	res, err := f.eng.Submit(context.Background(), Submission{EditorID: 1, Entities: entities})
	require.NoError(t, err)
	return res
}

// recorder is a Notifier that keeps every batch it receives.
type recorder struct {
	mu      sync.Mutex
	batches [][]*model.EntityView
}

func (r *recorder) Notify(_ context.Context, views []*model.EntityView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, views)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func lang(id int64) *int64 { return &id }

func name(n, sort string) *NameSection {
	return &NameSection{Name: n, SortName: sort}
}

func author(bbid string, ns *NameSection) EntityInput {
	return EntityInput{Type: model.Author, BBID: bbid, NameSection: ns}
}

func janeDoe() *NameSection {
	return &NameSection{Name: "Jane Doe", SortName: "Doe, Jane", LanguageID: lang(1)}
}
