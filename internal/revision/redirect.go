package revision

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/store"
)

// Resolve returns the bbid that bbid currently stands for, following
// redirects left by merges. The returned entity may be tombstoned.
func (e *Engine) Resolve(ctx context.Context, bbid string) (string, error) {
	var resolved string
	err := e.read(ctx, func(tx Tx) error {
		var err error
		resolved, err = resolveRedirects(ctx, tx, bbid, e.maxRedirectDepth)
		if err != nil {
			return err
		}
		if _, err := tx.GetEntity(ctx, resolved); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewNotFoundError(bbid)
			}
			return storageErr("get entity", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// resolveRedirects follows redirect edges from bbid until none remains.
// The loop is capped at maxDepth edges and stops on a revisited bbid.
func resolveRedirects(ctx context.Context, tx Tx, bbid string, maxDepth int) (string, error) {
	current := bbid
	seen := map[string]bool{current: true}
	for depth := 0; ; depth++ {
		next, err := tx.GetRedirect(ctx, current)
		if errors.Is(err, store.ErrNotFound) {
			return current, nil
		}
		if err != nil {
			return "", storageErr("get redirect", err)
		}
		if depth >= maxDepth {
			return "", &Error{
				Code:    ErrCodeEntityNotFound,
				Message: fmt.Sprintf("redirect chain longer than %d", maxDepth),
				BBID:    bbid,
				Err:     ErrRedirectLoop,
			}
		}
		if seen[next] {
			return "", &Error{
				Code:    ErrCodeEntityNotFound,
				Message: fmt.Sprintf("redirect cycle through %s", next),
				BBID:    bbid,
				Err:     ErrRedirectLoop,
			}
		}
		seen[next] = true
		current = next
	}
}

// resolveLive resolves bbid through redirects and requires a live entity.
func (p *pending) resolveLive(ctx context.Context, bbid string) (model.Entity, error) {
	resolved, err := resolveRedirects(ctx, p.tx, bbid, p.e.maxRedirectDepth)
	if err != nil {
		return model.Entity{}, err
	}
	return getLive(ctx, p.tx, resolved)
}

// getLive loads bbid without following redirects and requires it be live.
func getLive(ctx context.Context, tx Tx, bbid string) (model.Entity, error) {
	ent, err := tx.GetEntity(ctx, bbid)
	if errors.Is(err, store.ErrNotFound) {
		return model.Entity{}, NewNotFoundError(bbid)
	}
	if err != nil {
		return model.Entity{}, storageErr("get entity", err)
	}
	if !ent.Live() {
		return model.Entity{}, NewAlreadyDeletedError(bbid)
	}
	return ent, nil
}
