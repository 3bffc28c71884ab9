package revision

import (
	"context"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/value"
)

// state is an entity's current persisted state with every set loaded.
// For an entity being created it is the zero state over an unsaved header.
type state struct {
	entity model.Entity
	data   model.EntityData

	aliases        []model.Alias
	defaultAliasID *int64
	identifiers    []model.Identifier
	relationships  []model.Relationship
	languages      []int64
	publishers     []string
	annotation     *model.Annotation
	disambiguation *model.Disambiguation
}

func newState(bbid string, t model.EntityType) *state {
	return &state{
		entity: model.Entity{BBID: bbid, Type: t},
		data:   model.EntityData{Type: t},
	}
}

// loadState reads the entity's current data and all of its sets.
// A tombstoned entity loads as an empty state.
func loadState(ctx context.Context, tx Tx, ent model.Entity) (*state, error) {
	st := newState(ent.BBID, ent.Type)
	st.entity = ent
	if !ent.Live() {
		return st, nil
	}

	d, err := tx.GetEntityData(ctx, *ent.DataID)
	if err != nil {
		return nil, storageErr("load entity data", err)
	}
	st.data = d

	if d.AliasSetID != nil {
		st.aliases, st.defaultAliasID, err = tx.GetAliasSet(ctx, *d.AliasSetID)
		if err != nil {
			return nil, storageErr("load aliases", err)
		}
	}
	if d.IdentifierSetID != nil {
		if st.identifiers, err = tx.GetIdentifierSet(ctx, *d.IdentifierSetID); err != nil {
			return nil, storageErr("load identifiers", err)
		}
	}
	if d.RelationshipSetID != nil {
		if st.relationships, err = tx.GetRelationshipSet(ctx, *d.RelationshipSetID); err != nil {
			return nil, storageErr("load relationships", err)
		}
	}
	if d.LanguageSetID != nil {
		if st.languages, err = tx.GetLanguageSet(ctx, *d.LanguageSetID); err != nil {
			return nil, storageErr("load languages", err)
		}
	}
	if d.PublisherSetID != nil {
		if st.publishers, err = tx.GetPublisherSet(ctx, *d.PublisherSetID); err != nil {
			return nil, storageErr("load publishers", err)
		}
	}
	if d.AnnotationID != nil {
		a, err := tx.GetAnnotation(ctx, *d.AnnotationID)
		if err != nil {
			return nil, storageErr("load annotation", err)
		}
		st.annotation = &a
	}
	if d.DisambiguationID != nil {
		dis, err := tx.GetDisambiguation(ctx, *d.DisambiguationID)
		if err != nil {
			return nil, storageErr("load disambiguation", err)
		}
		st.disambiguation = &dis
	}
	return st, nil
}

// defaultAlias returns the alias the set's default pointer refers to.
func (st *state) defaultAlias() *model.Alias {
	if st.defaultAliasID == nil {
		return nil
	}
	for i := range st.aliases {
		if st.aliases[i].ID == *st.defaultAliasID {
			a := st.aliases[i]
			return &a
		}
	}
	return nil
}

func (st *state) annotationText() string {
	if st.annotation == nil {
		return ""
	}
	return st.annotation.Content
}

func (st *state) disambiguationText() string {
	if st.disambiguation == nil {
		return ""
	}
	return st.disambiguation.Comment
}

func (st *state) view() *model.EntityView {
	v := &model.EntityView{
		BBID:              st.entity.BBID,
		Type:              st.entity.Type,
		Deleted:           !st.entity.Live(),
		AliasSetID:        st.data.AliasSetID,
		DefaultAlias:      st.defaultAlias(),
		Aliases:           nonNil(st.aliases),
		IdentifierSetID:   st.data.IdentifierSetID,
		Identifiers:       nonNil(st.identifiers),
		RelationshipSetID: st.data.RelationshipSetID,
		Relationships:     nonNil(st.relationships),
		LanguageSetID:     st.data.LanguageSetID,
		Languages:         st.languages,
		PublisherSetID:    st.data.PublisherSetID,
		Publishers:        st.publishers,
		Annotation:        st.annotation,
		Disambiguation:    st.disambiguation,
		Attributes:        st.data.Attributes,
	}
	if st.entity.MasterRevisionID != nil {
		v.RevisionID = *st.entity.MasterRevisionID
	}
	if st.entity.DataID != nil {
		v.DataID = *st.entity.DataID
	}
	if v.Attributes == nil {
		v.Attributes = value.Object{}
	}
	return v
}

func loadView(ctx context.Context, tx Tx, ent model.Entity) (*model.EntityView, error) {
	st, err := loadState(ctx, tx, ent)
	if err != nil {
		return nil, err
	}
	return st.view(), nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
