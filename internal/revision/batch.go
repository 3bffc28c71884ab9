package revision

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/setdiff"
	"github.com/roach88/catalog/internal/store"
	"github.com/roach88/catalog/internal/value"
)

// SingleEntityKey is the submission key SaveEntity uses.
const SingleEntityKey = "entity"

// Submit applies a multi-entity submission as one revision.
//
// Entities are saved one at a time in priority order (edition groups after
// other kinds, editions last; ties broken by key) so that a temporary key is
// committed before any entity that references it. Entities that diff to no
// change are skipped. Relationships are applied afterwards in a second pass,
// mirrored into the other endpoint's relationship set. If nothing changed
// at all the result is NO_CHANGE. Any other error rolls the whole
// submission back.
func (e *Engine) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if len(sub.Entities) == 0 {
		return nil, invalidInput("", "submission has no entities")
	}
	return e.run(ctx, "submit", sub.EditorID, false, sub.Note, func(p *pending) error {
		return p.submit(ctx, sub.Entities)
	})
}

// SaveEntity creates or edits a single entity.
func (e *Engine) SaveEntity(ctx context.Context, editorID int64, in EntityInput, note string) (*Result, error) {
	return e.Submit(ctx, Submission{
		EditorID: editorID,
		Note:     note,
		Entities: map[string]EntityInput{SingleEntityKey: in},
	})
}

// processingOrder sorts submission keys by entity priority, then key.
func processingOrder(entities map[string]EntityInput) []string {
	keys := make([]string, 0, len(entities))
	for k := range entities {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		pa, pb := entities[a].Type.Priority(), entities[b].Type.Priority()
		if pa != pb {
			return pa - pb
		}
		return strings.Compare(a, b)
	})
	return keys
}

func (p *pending) submit(ctx context.Context, entities map[string]EntityInput) error {
	keys := processingOrder(entities)

	// Existing entities are known up front; new ones get a bbid on save.
	owner := make(map[string]string)
	for _, key := range keys {
		in := entities[key]
		p.declared[key] = true
		if !in.Type.Valid() {
			return &Error{Code: ErrCodeInvalidInput, Message: "entity " + key, Err: model.ErrUnknownEntityType}
		}
		if in.BBID == "" {
			continue
		}
		ent, err := p.resolveLive(ctx, in.BBID)
		if err != nil {
			return err
		}
		if ent.Type != in.Type {
			return invalidInput(ent.BBID, "entity %s is a %s, not a %s", key, ent.Type, in.Type)
		}
		if prev, dup := owner[ent.BBID]; dup {
			return invalidInput(ent.BBID, "entities %s and %s are the same entity", prev, key)
		}
		owner[ent.BBID] = key
		p.keys[key] = ent.BBID
	}

	for _, key := range keys {
		if err := p.saveEntity(ctx, key, entities[key]); err != nil {
			return err
		}
	}

	for _, key := range keys {
		in := entities[key]
		if in.Relationships == nil {
			continue
		}
		if err := p.setRelationships(ctx, key, in.Relationships); err != nil {
			return err
		}
	}
	return nil
}

// saveEntity runs the mutation pipeline for one entity with its current
// relationships kept.
func (p *pending) saveEntity(ctx context.Context, key string, in EntityInput) error {
	create := in.BBID == ""

	var st *state
	if create {
		st = newState(p.e.alloc.NewBBID(), in.Type)
	} else {
		ent, err := p.tx.GetEntity(ctx, p.keys[key])
		if err != nil {
			return storageErr("get entity", err)
		}
		if st, err = loadState(ctx, p.tx, ent); err != nil {
			return err
		}
	}

	prop, err := p.buildProposal(ctx, st.entity.BBID, in)
	if err != nil {
		return err
	}

	next, changes, err := p.apply(ctx, st, prop)
	if err != nil {
		return err
	}

	// CHECK_NOOP
	if !create && len(changes) == 0 {
		p.e.logger.Debug("entity unchanged", "key", key, "bbid", st.entity.BBID)
		return nil
	}

	if err := p.commit(ctx, st, next, create); err != nil {
		return err
	}
	if create {
		p.keys[key] = st.entity.BBID
	}
	return nil
}

// buildProposal resolves an input's references and shapes it into a
// proposal. Relationships are left to the second pass.
func (p *pending) buildProposal(ctx context.Context, bbid string, in EntityInput) (proposal, error) {
	prop := proposal{
		keepRelationships: true,
		identifiers:       in.Identifiers,
		languages:         in.Languages,
		annotation:        in.Annotation,
		disambiguation:    in.Disambiguation,
	}

	if in.NameSection != nil {
		def := in.NameSection.Alias()
		prop.defaultAlias = &def
		prop.aliases = append([]model.Alias{def}, in.Aliases...)
	} else if len(in.Aliases) > 0 {
		return proposal{}, invalidInput(bbid, "aliases given without a default name")
	}

	if len(in.Languages) > 0 && !in.Type.HasLanguages() {
		return proposal{}, invalidInput(bbid, "%s has no languages", in.Type)
	}
	if len(in.Publishers) > 0 && !in.Type.HasPublishers() {
		return proposal{}, invalidInput(bbid, "%s has no publishers", in.Type)
	}
	for _, ref := range in.Publishers {
		pub, err := p.resolveTyped(ctx, bbid, ref, model.Publisher)
		if err != nil {
			return proposal{}, err
		}
		prop.publishers = append(prop.publishers, pub)
	}

	if err := model.ValidateAttributes(in.Type, in.Attributes); err != nil {
		return proposal{}, &Error{Code: ErrCodeInvalidInput, Message: "invalid attributes", BBID: bbid, Err: err}
	}
	prop.attributes = in.Attributes.Clone()
	for _, name := range in.Attributes.SortedKeys() {
		want, isRef := in.Type.RefTarget(name)
		ref, ok := in.Attributes[name].(value.String)
		if !isRef || !ok {
			continue
		}
		target, err := p.resolveTyped(ctx, bbid, string(ref), want)
		if err != nil {
			return proposal{}, err
		}
		prop.attributes[name] = value.String(target)
	}
	return prop, nil
}

// resolveRef turns a submission reference into a live entity. Keys of this
// submission win over bbids; a key whose entity has not been saved yet is
// an unresolved reference.
func (p *pending) resolveRef(ctx context.Context, ref string) (model.Entity, error) {
	if bbid, ok := p.keys[ref]; ok {
		return getLive(ctx, p.tx, bbid)
	}
	if p.declared[ref] {
		return model.Entity{}, unresolved(ref, "key %q is referenced before it is saved", ref)
	}
	u, err := uuid.Parse(ref)
	if err != nil {
		return model.Entity{}, unresolved(ref, "%q is neither a submission key nor a bbid", ref)
	}
	return p.resolveLive(ctx, u.String())
}

func (p *pending) resolveTyped(ctx context.Context, owner, ref string, want model.EntityType) (string, error) {
	ent, err := p.resolveRef(ctx, ref)
	if err != nil {
		return "", err
	}
	if ent.Type != want {
		return "", invalidInput(owner, "reference %q is a %s, want %s", ref, ent.Type, want)
	}
	return ent.BBID, nil
}

// setRelationships replaces the relationship set of a saved submission key.
func (p *pending) setRelationships(ctx context.Context, key string, inputs []RelationshipInput) error {
	bbid := p.keys[key]
	ent, err := getLive(ctx, p.tx, bbid)
	if err != nil {
		return err
	}
	st, err := loadState(ctx, p.tx, ent)
	if err != nil {
		return err
	}

	proposed := make([]model.Relationship, 0, len(inputs))
	for _, in := range inputs {
		src, err := p.resolveRef(ctx, in.Source)
		if err != nil {
			return err
		}
		dst, err := p.resolveRef(ctx, in.Target)
		if err != nil {
			return err
		}
		rel := model.Relationship{
			ID:         in.ID,
			TypeID:     in.TypeID,
			SourceBBID: src.BBID,
			TargetBBID: dst.BBID,
		}
		if !rel.Involves(bbid) {
			return invalidInput(bbid, "relationship %s -> %s does not involve entity %s", in.Source, in.Target, key)
		}
		if rel.SourceBBID == rel.TargetBBID {
			return invalidInput(bbid, "relationship of entity %s points at itself", key)
		}
		proposed = append(proposed, rel)
	}
	return p.replaceRelationships(ctx, st, proposed)
}

// replaceRelationships materializes a new relationship set for st and
// mirrors every added and removed relationship into the other endpoint.
func (p *pending) replaceRelationships(ctx context.Context, st *state, proposed []model.Relationship) error {
	old := st.relationships
	res, err := materialize(ctx, relationshipStore(p.tx), st.data.RelationshipSetID, old, proposed, false)
	if err != nil {
		return err
	}
	if sameID(res.id, st.data.RelationshipSetID) {
		return nil
	}

	data := st.data
	data.RelationshipSetID = res.id
	if err := p.commit(ctx, st, data, false); err != nil {
		return err
	}
	st.relationships = res.members

	added := setdiff.UpdatedOrNew(setdiff.Relationships, old, res.members)
	removed := setdiff.Removed(setdiff.Relationships, old, res.members)
	return p.syncEndpoints(ctx, st.entity.BBID, added, removed)
}

type endpointChange struct {
	add, remove []model.Relationship
}

// syncEndpoints applies relationship changes made on self to the other
// endpoint of each relationship, in bbid order.
func (p *pending) syncEndpoints(ctx context.Context, self string, added, removed []model.Relationship) error {
	changes := make(map[string]*endpointChange)
	other := func(r model.Relationship) *endpointChange {
		bbid := r.TargetBBID
		if bbid == self {
			bbid = r.SourceBBID
		}
		c, ok := changes[bbid]
		if !ok {
			c = &endpointChange{}
			changes[bbid] = c
		}
		return c
	}
	for _, r := range added {
		c := other(r)
		c.add = append(c.add, r)
	}
	for _, r := range removed {
		c := other(r)
		c.remove = append(c.remove, r)
	}

	bbids := make([]string, 0, len(changes))
	for bbid := range changes {
		if bbid != self {
			bbids = append(bbids, bbid)
		}
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

// relink rebuilds bbid's relationship set by reference: rows matching
// remove by value are dropped and add rows are attached as they are. No
// relationship rows are created. Tombstoned endpoints are left alone.
func (p *pending) relink(ctx context.Context, bbid string, add, remove []model.Relationship) error {
	ent, err := p.tx.GetEntity(ctx, bbid)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storageErr("get entity", err)
	}
	if !ent.Live() {
		p.e.logger.Debug("skipping tombstoned endpoint", "bbid", bbid)
		return nil
	}

	st, err := loadState(ctx, p.tx, ent)
	if err != nil {
		return err
	}

	spec := setdiff.Relationships
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		drop[spec.Key(r)] = true
	}
	members := make([]model.Relationship, 0, len(st.relationships)+len(add))
	for _, r := range st.relationships {
		if !drop[spec.Key(r)] {
			members = append(members, r)
		}
	}
	members = setdiff.Dedupe(spec, append(members, add...))
	if setdiff.ValueIdentical(spec, st.relationships, members) {
		return nil
	}

	data := st.data
	data.RelationshipSetID = nil
	if len(members) > 0 {
		id, err := createRelationshipSet(ctx, p.tx, members)
		if err != nil {
			return err
		}
		data.RelationshipSetID = &id
	}
	if err := p.commit(ctx, st, data, false); err != nil {
		return err
	}
	st.relationships = members
	return nil
}
