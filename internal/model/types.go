// Package model holds the plain value types the revision engine reads and
// writes. None of them know how to persist themselves; see package store.
package model

import (
	"time"

	"github.com/roach88/catalog/internal/value"
)

// Entity is the permanent header row for a bbid. DataID is nil once the
// entity has been tombstoned (deleted or merged away).
type Entity struct {
	BBID             string
	Type             EntityType
	MasterRevisionID *int64
	DataID           *int64
}

// Live reports whether the entity currently resolves to data.
func (e Entity) Live() bool {
	return e.DataID != nil
}

// EntityData is the immutable per-revision state of an entity: pointers to
// versioned sets and singletons, plus type-specific scalar attributes.
type EntityData struct {
	ID                int64
	Type              EntityType
	AliasSetID        *int64
	IdentifierSetID   *int64
	RelationshipSetID *int64
	LanguageSetID     *int64
	PublisherSetID    *int64
	AnnotationID      *int64
	DisambiguationID  *int64
	Attributes        value.Object
}

// Revision is an immutable record of who changed what, and on which prior
// revisions the change was based.
type Revision struct {
	ID        int64
	AuthorID  int64
	CreatedAt time.Time
	IsMerge   bool
	ParentIDs []int64
}

// EntityRevision links one entity to one revision. A nil DataID records a delete.
type EntityRevision struct {
	RevisionID int64
	BBID       string
	DataID     *int64
	IsMerge    bool
}

// Alias is a name an entity is known by.
type Alias struct {
	ID         int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string `json:"name" yaml:"name"`
	SortName   string `json:"sortName" yaml:"sortName"`
	LanguageID *int64 `json:"languageId,omitempty" yaml:"languageId,omitempty"`
	Primary    bool   `json:"primary" yaml:"primary"`
}

// Compare projects the fields that decide alias equality.
func (a Alias) Compare() value.Object {
	return value.Object{
		"name":       value.String(a.Name),
		"sortName":   value.String(a.SortName),
		"languageId": value.OptionalInt(a.LanguageID),
		"primary":    value.Bool(a.Primary),
	}
}

// NameKey projects the fields used to locate the default alias in a set.
func (a Alias) NameKey() value.Object {
	return value.Object{
		"name":       value.String(a.Name),
		"sortName":   value.String(a.SortName),
		"languageId": value.OptionalInt(a.LanguageID),
	}
}

// Identifier is an external identifier such as an ISBN or a Wikidata id.
type Identifier struct {
	ID     int64  `json:"id,omitempty" yaml:"id,omitempty"`
	TypeID int64  `json:"typeId" yaml:"typeId"`
	Value  string `json:"value" yaml:"value"`
}

// Compare projects the fields that decide identifier equality.
func (i Identifier) Compare() value.Object {
	return value.Object{
		"typeId": value.Int(i.TypeID),
		"value":  value.String(i.Value),
	}
}

// Relationship is a typed directed edge between two entities. The same row
// is a member of both endpoints' relationship sets.
type Relationship struct {
	ID         int64  `json:"id,omitempty"`
	TypeID     int64  `json:"typeId"`
	SourceBBID string `json:"sourceBbid"`
	TargetBBID string `json:"targetBbid"`
}

// Compare projects the fields that decide relationship equality.
func (r Relationship) Compare() value.Object {
	return value.Object{
		"typeId":     value.Int(r.TypeID),
		"sourceBbid": value.String(r.SourceBBID),
		"targetBbid": value.String(r.TargetBBID),
	}
}

// Involves reports whether bbid is either endpoint.
func (r Relationship) Involves(bbid string) bool {
	return r.SourceBBID == bbid || r.TargetBBID == bbid
}

// Annotation is free text attached to an entity, stamped with the revision
// that last replaced it.
type Annotation struct {
	ID             int64  `json:"id"`
	Content        string `json:"content"`
	LastRevisionID int64  `json:"lastRevisionId"`
}

// Disambiguation is a short comment distinguishing same-named entities.
type Disambiguation struct {
	ID      int64  `json:"id"`
	Comment string `json:"comment"`
}

// Redirect records that Source was merged into Target.
type Redirect struct {
	SourceBBID string
	TargetBBID string
}

// Note is a free-text submission note attached to a revision.
type Note struct {
	ID         int64     `json:"id"`
	RevisionID int64     `json:"revisionId"`
	AuthorID   int64     `json:"authorId"`
	Content    string    `json:"content"`
	PostedAt   time.Time `json:"postedAt"`
}

// Editor is a user who submits revisions.
type Editor struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	TotalRevisions int64  `json:"totalRevisions"`
}
