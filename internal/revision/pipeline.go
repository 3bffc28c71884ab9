package revision

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/value"
)

// pending is the write side of one transaction. The Revision row is created
// lazily by the first entity that actually changes, so a transaction in
// which every entity diffs to nothing writes no rows at all.
type pending struct {
	e        *Engine
	tx       Tx
	editorID int64
	isMerge  bool

	revisionID int64
	createdAt  time.Time

	// keys maps submission keys to bbids; declared lists every key of the
	// submission, saved or not.
	keys     map[string]string
	declared map[string]bool

	// written maps each bbid with an entity revision row in this revision
	// to the data row it points at; nil for a tombstone.
	written map[string]*int64
	order   []string
}

func newPending(e *Engine, tx Tx, editorID int64, isMerge bool) *pending {
	return &pending{
		e:        e,
		tx:       tx,
		editorID: editorID,
		isMerge:  isMerge,
		keys:     make(map[string]string),
		declared: make(map[string]bool),
		written:  make(map[string]*int64),
	}
}

// ensureRevision creates the shared Revision on first use and bumps the
// editor's counter.
func (p *pending) ensureRevision(ctx context.Context) (int64, error) {
	if p.revisionID != 0 {
		return p.revisionID, nil
	}
	if err := p.tx.IncrementEditCount(ctx, p.editorID); err != nil {
		return 0, storageErr("increment edit count", err)
	}
	p.createdAt = p.e.clock.Now()
	id, err := p.tx.InsertRevision(ctx, p.editorID, p.createdAt, p.isMerge)
	if err != nil {
		return 0, storageErr("insert revision", err)
	}
	p.revisionID = id
	return id, nil
}

// proposal is the full desired state of one entity, already resolved to
// real bbids.
type proposal struct {
	aliases      []model.Alias
	defaultAlias *model.Alias

	identifiers []model.Identifier

	// keepRelationships leaves the current relationship set in place.
	keepRelationships bool
	relationships     []model.Relationship

	languages  []int64
	publishers []string

	annotation     string
	disambiguation string
	attributes     value.Object
}

// apply runs the diff stages for one entity and returns the data row the
// entity should point at next and the changed-property map. Sets are only
// written when they changed, so an empty map means nothing was written.
func (p *pending) apply(ctx context.Context, st *state, prop proposal) (model.EntityData, map[string]value.Value, error) {
	next := model.EntityData{
		Type:              st.entity.Type,
		RelationshipSetID: st.data.RelationshipSetID,
	}

	// DIFF_SETS
	forceAliases := false
	if st.data.AliasSetID != nil && prop.defaultAlias != nil {
		old := st.defaultAlias()
		forceAliases = old == nil || !value.Equal(old.NameKey(), prop.defaultAlias.NameKey())
	}
	aliases, err := materialize(ctx, aliasStore(p.tx, prop.defaultAlias), st.data.AliasSetID, st.aliases, prop.aliases, forceAliases)
	if err != nil {
		return model.EntityData{}, nil, err
	}
	next.AliasSetID = aliases.id

	identifiers, err := materialize(ctx, identifierStore(p.tx), st.data.IdentifierSetID, st.identifiers, prop.identifiers, false)
	if err != nil {
		return model.EntityData{}, nil, err
	}
	next.IdentifierSetID = identifiers.id

	if !prop.keepRelationships {
		rels, err := materialize(ctx, relationshipStore(p.tx), st.data.RelationshipSetID, st.relationships, prop.relationships, false)
		if err != nil {
			return model.EntityData{}, nil, err
		}
		next.RelationshipSetID = rels.id
	}

	if st.entity.Type.HasLanguages() {
		langs, err := materialize(ctx, languageStore(p.tx), st.data.LanguageSetID, st.languages, prop.languages, false)
		if err != nil {
			return model.EntityData{}, nil, err
		}
		next.LanguageSetID = langs.id
	}

	if st.entity.Type.HasPublishers() {
		pubs, err := materialize(ctx, publisherStore(p.tx), st.data.PublisherSetID, st.publishers, prop.publishers, false)
		if err != nil {
			return model.EntityData{}, nil, err
		}
		next.PublisherSetID = pubs.id
	}

	next.AnnotationID = st.data.AnnotationID
	if prop.annotation != st.annotationText() {
		next.AnnotationID = nil
		if prop.annotation != "" {
			revID, err := p.ensureRevision(ctx)
			if err != nil {
				return model.EntityData{}, nil, err
			}
			ann, err := p.tx.InsertAnnotation(ctx, prop.annotation, revID)
			if err != nil {
				return model.EntityData{}, nil, storageErr("insert annotation", err)
			}
			next.AnnotationID = &ann.ID
		}
	}

	next.DisambiguationID = st.data.DisambiguationID
	if prop.disambiguation != st.disambiguationText() {
		next.DisambiguationID = nil
		if prop.disambiguation != "" {
			dis, err := p.tx.InsertDisambiguation(ctx, prop.disambiguation)
			if err != nil {
				return model.EntityData{}, nil, storageErr("insert disambiguation", err)
			}
			next.DisambiguationID = &dis.ID
		}
	}

	// DIFF_SCALARS
	next.Attributes = compactAttributes(prop.attributes)
	changes := diffData(st.data, next)

	p.e.logger.Debug("entity diffed",
		"bbid", st.entity.BBID,
		"type", st.entity.Type,
		"changes", len(changes),
	)
	return next, changes, nil
}

// diffData returns "changed property -> new value" between two data rows.
// Attributes are compared over the union of keys with missing as null.
func diffData(old, next model.EntityData) map[string]value.Value {
	changes := make(map[string]value.Value)
	pointers := []struct {
		name      string
		old, next *int64
	}{
		{"aliasSetId", old.AliasSetID, next.AliasSetID},
		{"identifierSetId", old.IdentifierSetID, next.IdentifierSetID},
		{"relationshipSetId", old.RelationshipSetID, next.RelationshipSetID},
		{"languageSetId", old.LanguageSetID, next.LanguageSetID},
		{"publisherSetId", old.PublisherSetID, next.PublisherSetID},
		{"annotationId", old.AnnotationID, next.AnnotationID},
		{"disambiguationId", old.DisambiguationID, next.DisambiguationID},
	}
	for _, ptr := range pointers {
		if !sameID(ptr.old, ptr.next) {
			changes[ptr.name] = value.OptionalInt(ptr.next)
		}
	}

	keys := make(map[string]bool)
	for k := range old.Attributes {
		keys[k] = true
	}
	for k := range next.Attributes {
		keys[k] = true
	}
	for k := range keys {
		before, after := attr(old.Attributes, k), attr(next.Attributes, k)
		if !value.Equal(before, after) {
			changes["attributes."+k] = after
		}
	}
	return changes
}

func attr(obj value.Object, key string) value.Value {
	if v, ok := obj[key]; ok && v != nil {
		return v
	}
	return value.Null{}
}

// compactAttributes drops null attributes so that absent and null store
// identically.
func compactAttributes(attrs value.Object) value.Object {
	out := make(value.Object, len(attrs))
	for k, v := range attrs {
		if !value.IsNull(v) {
			out[k] = v
		}
	}
	return out
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// commit points the entity at data in the current revision.
//
// The first commit of a bbid in this transaction writes a fresh data row,
// links the revision to the entity's previous master revision and moves the
// head. Later commits of the same bbid rewrite that uncommitted row in place.
func (p *pending) commit(ctx context.Context, st *state, data model.EntityData, create bool) error {
	bbid := st.entity.BBID
	if dataID, ok := p.written[bbid]; ok {
		if dataID == nil {
			return fmt.Errorf("entity %s was tombstoned earlier in this revision", bbid)
		}
		data.ID = *dataID
		if err := p.tx.UpdateEntityData(ctx, data); err != nil {
			return storageErr("update entity data", err)
		}
		st.data = data
		return nil
	}

	revID, err := p.ensureRevision(ctx)
	if err != nil {
		return err
	}
	if create {
		if err := p.tx.InsertEntity(ctx, bbid, st.entity.Type); err != nil {
			return storageErr("insert entity", err)
		}
	} else if err := p.linkParent(ctx, st.entity, revID); err != nil {
		return err
	}

	dataID, err := p.tx.InsertEntityData(ctx, data)
	if err != nil {
		return storageErr("insert entity data", err)
	}
	if err := p.tx.InsertEntityRevision(ctx, model.EntityRevision{
		RevisionID: revID,
		BBID:       bbid,
		DataID:     &dataID,
		IsMerge:    p.isMerge,
	}); err != nil {
		return storageErr("insert entity revision", err)
	}
	if err := p.tx.SetEntityHead(ctx, bbid, revID, &dataID); err != nil {
		return storageErr("set entity head", err)
	}

	data.ID = dataID
	st.data = data
	st.entity.MasterRevisionID = &revID
	st.entity.DataID = &dataID
	p.written[bbid] = &dataID
	p.order = append(p.order, bbid)
	return nil
}

// tombstone records a delete of the entity in the current revision.
func (p *pending) tombstone(ctx context.Context, st *state) error {
	bbid := st.entity.BBID
	if _, ok := p.written[bbid]; ok {
		return fmt.Errorf("entity %s already has a revision row in this revision", bbid)
	}

	revID, err := p.ensureRevision(ctx)
	if err != nil {
		return err
	}
	if err := p.linkParent(ctx, st.entity, revID); err != nil {
		return err
	}
	if err := p.tx.InsertEntityRevision(ctx, model.EntityRevision{
		RevisionID: revID,
		BBID:       bbid,
		IsMerge:    p.isMerge,
	}); err != nil {
		return storageErr("insert entity revision", err)
	}
	if err := p.tx.SetEntityHead(ctx, bbid, revID, nil); err != nil {
		return storageErr("set entity head", err)
	}

	st.entity.MasterRevisionID = &revID
	st.entity.DataID = nil
	p.written[bbid] = nil
	p.order = append(p.order, bbid)
	return nil
}

func (p *pending) linkParent(ctx context.Context, ent model.Entity, revID int64) error {
	if ent.MasterRevisionID == nil || *ent.MasterRevisionID == revID {
		return nil
	}
	if err := p.tx.AddRevisionParent(ctx, *ent.MasterRevisionID, revID); err != nil {
		return storageErr("add revision parent", err)
	}
	return nil
}
