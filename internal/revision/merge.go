package revision

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/setdiff"
	"github.com/roach88/catalog/internal/store"
	"github.com/roach88/catalog/internal/value"
)

const (
	annotationSeparator     = "\n\n"
	disambiguationSeparator = "; "
)

// Merge folds every source entity into the target in one merge revision.
//
// The target gets the union of all aliases, identifiers, languages and
// publishers; relationships pointing at a source are retargeted at the
// target, both in the target's own set and in every third party's set.
// Each source then gets a redirect to the target and is tombstoned. The
// request is validated before anything is written; a failure at any later
// step rolls everything back, leaving no redirects and every source live.
func (e *Engine) Merge(ctx context.Context, req MergeRequest) (*Result, error) {
	return e.run(ctx, "merge", req.EditorID, true, req.Note, func(p *pending) error {
		return p.merge(ctx, req)
	})
}

func (p *pending) merge(ctx context.Context, req MergeRequest) error {
	entities, err := p.validateMerge(ctx, req)
	if err != nil {
		return err
	}

	states := make([]*state, len(entities))
	for i, ent := range entities {
		if states[i], err = loadState(ctx, p.tx, ent); err != nil {
			return err
		}
	}
	target, sources := states[0], states[1:]
	targetBBID := target.entity.BBID

	merged := make(map[string]bool, len(sources))
	for _, src := range sources {
		merged[src.entity.BBID] = true
	}
	retarget := func(r model.Relationship) model.Relationship {
		out := r
		if merged[out.SourceBBID] {
			out.SourceBBID = targetBBID
		}
		if merged[out.TargetBBID] {
			out.TargetBBID = targetBBID
		}
		if out.SourceBBID != r.SourceBBID || out.TargetBBID != r.TargetBBID {
			out.ID = 0
		}
		return out
	}

	prop := mergeProposal(states, retarget)
	next, changes, err := p.apply(ctx, target, prop)
	if err != nil {
		return err
	}
	p.e.logger.Debug("merge target diffed", "bbid", targetBBID, "changes", len(changes))

	// The target always gets a row in the merge revision, even when the
	// sources contributed nothing new.
	if err := p.commit(ctx, target, next, false); err != nil {
		return err
	}
	if target, err = loadState(ctx, p.tx, target.entity); err != nil {
		return err
	}

	if err := p.retargetThirdParties(ctx, target, sources, merged, retarget); err != nil {
		return err
	}

	for _, src := range sources {
		if err := p.tx.InsertRedirect(ctx, model.Redirect{
			SourceBBID: src.entity.BBID,
			TargetBBID: targetBBID,
		}); err != nil {
			return storageErr("insert redirect", err)
		}
		if err := p.tombstone(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

// validateMerge checks the request and returns the target followed by the
// sources, all live and of one type. Nothing is written.
func (p *pending) validateMerge(ctx context.Context, req MergeRequest) ([]model.Entity, error) {
	if req.Target == "" {
		return nil, invalidMerge("", "merge has no target")
	}
	if len(req.Sources) == 0 {
		return nil, invalidMerge(req.Target, "merge needs at least two entities")
	}

	seen := map[string]bool{req.Target: true}
	for _, src := range req.Sources {
		if src == req.Target {
			return nil, invalidMerge(src, "entity cannot be merged into itself")
		}
		if seen[src] {
			return nil, invalidMerge(src, "entity is listed twice")
		}
		seen[src] = true
	}

	bbids := append([]string{req.Target}, req.Sources...)
	entities := make([]model.Entity, 0, len(bbids))
	for _, bbid := range bbids {
		ent, err := p.tx.GetEntity(ctx, bbid)
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError(bbid)
		}
		if err != nil {
			return nil, storageErr("get entity", err)
		}

		into, err := p.tx.GetRedirect(ctx, bbid)
		if err == nil {
			return nil, invalidMerge(bbid, "entity was already merged into %s", into)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, storageErr("get redirect", err)
		}

		if !ent.Live() {
			return nil, NewAlreadyDeletedError(bbid)
		}
		if len(entities) > 0 && ent.Type != entities[0].Type {
			return nil, invalidMerge(bbid, "cannot merge a %s into a %s", ent.Type, entities[0].Type)
		}
		entities = append(entities, ent)
	}
	return entities, nil
}

// mergeProposal unions the states, target first.
func mergeProposal(states []*state, retarget func(model.Relationship) model.Relationship) proposal {
	target := states[0]
	prop := proposal{
		defaultAlias: target.defaultAlias(),
		attributes:   target.data.Attributes.Clone(),
	}

	var annotations, disambiguations []string
	for _, st := range states {
		prop.aliases = append(prop.aliases, st.aliases...)
		prop.identifiers = append(prop.identifiers, st.identifiers...)
		prop.languages = append(prop.languages, st.languages...)
		prop.publishers = append(prop.publishers, st.publishers...)

		for _, r := range st.relationships {
			r = retarget(r)
			if r.SourceBBID == r.TargetBBID {
				continue
			}
			prop.relationships = append(prop.relationships, r)
		}

		if text := st.annotationText(); text != "" {
			annotations = append(annotations, text)
		}
		if text := st.disambiguationText(); text != "" && !slices.Contains(disambiguations, text) {
			disambiguations = append(disambiguations, text)
		}

		for _, k := range st.data.Attributes.SortedKeys() {
			if value.IsNull(attr(prop.attributes, k)) {
				prop.attributes[k] = st.data.Attributes[k]
			}
		}

		if prop.defaultAlias == nil {
			prop.defaultAlias = st.defaultAlias()
		}
	}
	if prop.defaultAlias == nil && len(prop.aliases) > 0 {
		def := prop.aliases[0]
		prop.defaultAlias = &def
	}

	prop.languages = setdiff.Dedupe(setdiff.Languages, prop.languages)
	prop.publishers = setdiff.Dedupe(setdiff.Publishers, prop.publishers)
	prop.annotation = strings.Join(annotations, annotationSeparator)

	prop.disambiguation = target.disambiguationText()
	if prop.disambiguation == "" {
		prop.disambiguation = strings.Join(disambiguations, disambiguationSeparator)
	}
	return prop
}

// retargetThirdParties rewrites, in every other live entity's set, the
// relationships that pointed at a source so they share the target's
// retargeted row.
func (p *pending) retargetThirdParties(ctx context.Context, target *state, sources []*state, merged map[string]bool, retarget func(model.Relationship) model.Relationship) error {
	spec := setdiff.Relationships
	byKey := make(map[string]model.Relationship, len(target.relationships))
	for _, r := range target.relationships {
		byKey[spec.Key(r)] = r
	}

	changes := make(map[string]*endpointChange)
	for _, src := range sources {
		for _, r := range src.relationships {
			other := r.TargetBBID
			if other == src.entity.BBID {
				other = r.SourceBBID
			}
			if other == target.entity.BBID || merged[other] {
				continue
			}
			c, ok := changes[other]
			if !ok {
				c = &endpointChange{}
				changes[other] = c
			}
			c.remove = append(c.remove, r)
			if row, ok := byKey[spec.Key(retarget(r))]; ok {
				c.add = append(c.add, row)
			}
		}
	}

	bbids := make([]string, 0, len(changes))
	for bbid := range changes {
		bbids = append(bbids, bbid)
	}
	slices.Sort(bbids)
	for _, bbid := range bbids {
		c := changes[bbid]
		if err := p.relink(ctx, bbid, c.add, c.remove); err != nil {
			return err
		}
	}
	return nil
}
