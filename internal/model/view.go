package model

import (
	"fmt"
	"time"

	"github.com/roach88/catalog/internal/value"
)

// EntityView is the fully loaded state of an entity at its current revision.
// It is what post-commit hooks receive and what the CLI prints.
type EntityView struct {
	BBID              string          `json:"bbid"`
	Type              EntityType      `json:"type"`
	RevisionID        int64           `json:"revisionId"`
	Deleted           bool            `json:"deleted"`
	DataID            int64           `json:"dataId,omitempty"`
	AliasSetID        *int64          `json:"aliasSetId,omitempty"`
	DefaultAlias      *Alias          `json:"defaultAlias,omitempty"`
	Aliases           []Alias         `json:"aliases"`
	IdentifierSetID   *int64          `json:"identifierSetId,omitempty"`
	Identifiers       []Identifier    `json:"identifiers"`
	RelationshipSetID *int64          `json:"relationshipSetId,omitempty"`
	Relationships     []Relationship  `json:"relationships"`
	LanguageSetID     *int64          `json:"languageSetId,omitempty"`
	Languages         []int64         `json:"languages,omitempty"`
	PublisherSetID    *int64          `json:"publisherSetId,omitempty"`
	Publishers        []string        `json:"publishers,omitempty"`
	Annotation        *Annotation     `json:"annotation,omitempty"`
	Disambiguation    *Disambiguation `json:"disambiguation,omitempty"`
	Attributes        value.Object    `json:"attributes"`
}

// Name returns the default alias name, or the bbid when there is none.
func (v *EntityView) Name() string {
	if v.DefaultAlias != nil {
		return v.DefaultAlias.Name
	}
	return v.BBID
}

// RevisionSummary is one node of an entity's revision history.
type RevisionSummary struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	IsMerge   bool      `json:"isMerge"`
	Deleted   bool      `json:"deleted"`
	ParentIDs []int64   `json:"parentIds"`
	Notes     []string  `json:"notes,omitempty"`
}

// ValidateAttributes checks every attribute name and value kind against the
// schema for t. Null is accepted for any attribute.
func ValidateAttributes(t EntityType, attrs value.Object) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEntityType, string(t))
	}
	for _, name := range attrs.SortedKeys() {
		kind, ok := t.Attribute(name)
		if !ok {
			return fmt.Errorf("%s has no attribute %q", t, name)
		}
		v := attrs[name]
		if value.IsNull(v) {
			continue
		}
		var match bool
		switch kind {
		case KindInt:
			_, match = v.(value.Int)
		case KindString, KindRef:
			_, match = v.(value.String)
		case KindBool:
			_, match = v.(value.Bool)
		}
		if !match {
			return fmt.Errorf("%s attribute %q must be %s", t, name, kind)
		}
	}
	return nil
}
