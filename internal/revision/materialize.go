package revision

import (
	"context"
	"fmt"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/setdiff"
	"github.com/roach88/catalog/internal/value"
)

// setResult is the outcome of materializing one collection: the set the new
// data row should point at (nil for no set) and that set's members.
type setResult[T any] struct {
	id      *int64
	members []T
}

// setStore binds a diff spec to the storage calls that realize it.
type setStore[T any] struct {
	spec setdiff.Spec[T]

	// insert creates fresh member rows and returns them with ids. Nil for
	// membership-only sets, whose members are plain values.
	insert func(ctx context.Context, items []T) ([]T, error)

	// create creates an immutable set over already-stored members.
	create func(ctx context.Context, members []T) (int64, error)
}

// materialize decides whether proposed needs a new set.
//
// The old set is reused when nothing changed by id, and also when the
// proposed members are value-identical to the old ones under different ids
// or order. An empty proposal yields no set. Otherwise a new set is built
// from the old rows whose value is resubmitted plus fresh rows for the rest.
// forceNew skips both reuse checks.
func materialize[T any](ctx context.Context, s setStore[T], oldID *int64, old, proposed []T, forceNew bool) (setResult[T], error) {
	proposed = setdiff.Dedupe(s.spec, proposed)

	if !forceNew {
		if !setdiff.HasChanged(s.spec, old, proposed) {
			return setResult[T]{id: oldID, members: old}, nil
		}
		if oldID != nil && setdiff.ValueIdentical(s.spec, old, proposed) {
			return setResult[T]{id: oldID, members: old}, nil
		}
	}
	if len(proposed) == 0 {
		return setResult[T]{}, nil
	}

	members := setdiff.Unchanged(s.spec, old, proposed)
	fresh := setdiff.UpdatedOrNew(s.spec, old, proposed)
	if len(fresh) > 0 && s.insert != nil {
		inserted, err := s.insert(ctx, fresh)
		if err != nil {
			return setResult[T]{}, err
		}
		fresh = inserted
	}
	members = append(members, fresh...)

	id, err := s.create(ctx, members)
	if err != nil {
		return setResult[T]{}, err
	}
	return setResult[T]{id: &id, members: members}, nil
}

// aliasStore creates alias sets whose default pointer is the member
// matching def.
func aliasStore(tx Tx, def *model.Alias) setStore[model.Alias] {
	return setStore[model.Alias]{
		spec: setdiff.Aliases,
		insert: func(ctx context.Context, items []model.Alias) ([]model.Alias, error) {
			out, err := tx.InsertAliases(ctx, items)
			return out, storageErr("insert aliases", err)
		},
		create: func(ctx context.Context, members []model.Alias) (int64, error) {
			if def == nil {
				return 0, fmt.Errorf("alias set has no default alias")
			}
			defaultID, ok := findDefault(members, *def)
			if !ok {
				return 0, fmt.Errorf("default alias %q is not a member of the new alias set", def.Name)
			}
			ids := make([]int64, len(members))
			for i, m := range members {
				ids[i] = m.ID
			}
			id, err := tx.CreateAliasSet(ctx, ids, defaultID)
			return id, storageErr("create alias set", err)
		},
	}
}

// findDefault locates def among members. An exact match on every compared
// field wins over a match on name, sort name and language alone.
func findDefault(members []model.Alias, def model.Alias) (int64, bool) {
	for _, m := range members {
		if value.Equal(m.Compare(), def.Compare()) {
			return m.ID, true
		}
	}
	for _, m := range members {
		if value.Equal(m.NameKey(), def.NameKey()) {
			return m.ID, true
		}
	}
	return 0, false
}

func identifierStore(tx Tx) setStore[model.Identifier] {
	return setStore[model.Identifier]{
		spec: setdiff.Identifiers,
		insert: func(ctx context.Context, items []model.Identifier) ([]model.Identifier, error) {
			out, err := tx.InsertIdentifiers(ctx, items)
			return out, storageErr("insert identifiers", err)
		},
		create: func(ctx context.Context, members []model.Identifier) (int64, error) {
			ids := make([]int64, len(members))
			for i, m := range members {
				ids[i] = m.ID
			}
			id, err := tx.CreateIdentifierSet(ctx, ids)
			return id, storageErr("create identifier set", err)
		},
	}
}

func relationshipStore(tx Tx) setStore[model.Relationship] {
	return setStore[model.Relationship]{
		spec: setdiff.Relationships,
		insert: func(ctx context.Context, items []model.Relationship) ([]model.Relationship, error) {
			out, err := tx.InsertRelationships(ctx, items)
			return out, storageErr("insert relationships", err)
		},
		create: func(ctx context.Context, members []model.Relationship) (int64, error) {
			return createRelationshipSet(ctx, tx, members)
		},
	}
}

func createRelationshipSet(ctx context.Context, tx Tx, members []model.Relationship) (int64, error) {
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	id, err := tx.CreateRelationshipSet(ctx, ids)
	return id, storageErr("create relationship set", err)
}

func languageStore(tx Tx) setStore[int64] {
	return setStore[int64]{
		spec: setdiff.Languages,
		create: func(ctx context.Context, members []int64) (int64, error) {
			id, err := tx.CreateLanguageSet(ctx, members)
			return id, storageErr("create language set", err)
		},
	}
}

func publisherStore(tx Tx) setStore[string] {
	return setStore[string]{
		spec: setdiff.Publishers,
		create: func(ctx context.Context, members []string) (int64, error) {
			id, err := tx.CreatePublisherSet(ctx, members)
			return id, storageErr("create publisher set", err)
		},
	}
}
