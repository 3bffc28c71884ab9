package revision

import (
	"context"
	"errors"

	"github.com/roach88/catalog/internal/store"
)

// Delete tombstones an entity in a new revision and detaches its
// relationships from every live endpoint. The entity row and its history
// stay; only its data pointer becomes null.
func (e *Engine) Delete(ctx context.Context, editorID int64, bbid, note string) (*Result, error) {
	return e.run(ctx, "delete", editorID, false, note, func(p *pending) error {
		ent, err := p.tx.GetEntity(ctx, bbid)
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFoundError(bbid)
		}
		if err != nil {
			return storageErr("get entity", err)
		}
		if !ent.Live() {
			return NewAlreadyDeletedError(bbid)
		}

		st, err := loadState(ctx, p.tx, ent)
		if err != nil {
			return err
		}
		if err := p.tombstone(ctx, st); err != nil {
			return err
		}
		return p.syncEndpoints(ctx, bbid, nil, st.relationships)
	})
}
