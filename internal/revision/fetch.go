package revision

import (
	"context"
	"errors"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/store"
)

// Fetch returns the current state of the entity bbid stands for, following
// redirects. A tombstoned entity comes back with Deleted set.
func (e *Engine) Fetch(ctx context.Context, bbid string) (*model.EntityView, error) {
	var view *model.EntityView
	err := e.read(ctx, func(tx Tx) error {
		resolved, err := resolveRedirects(ctx, tx, bbid, e.maxRedirectDepth)
		if err != nil {
			return err
		}
		ent, err := tx.GetEntity(ctx, resolved)
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFoundError(bbid)
		}
		if err != nil {
			return storageErr("get entity", err)
		}
		view, err = loadView(ctx, tx, ent)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// History returns the revisions that touched bbid, newest first. Redirects
// are not followed: a merged-away entity keeps its own history.
func (e *Engine) History(ctx context.Context, bbid string) ([]model.RevisionSummary, error) {
	var history []model.RevisionSummary
	err := e.read(ctx, func(tx Tx) error {
		if _, err := tx.GetEntity(ctx, bbid); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewNotFoundError(bbid)
			}
			return storageErr("get entity", err)
		}
		var err error
		history, err = tx.ListEntityRevisions(ctx, bbid)
		return storageErr("list revisions", err)
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}
