package revision

import (
	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/value"
)

// Submission is one multi-entity form submission.
type Submission struct {
	EditorID int64                  `json:"editorId" yaml:"editorId"`
	Note     string                 `json:"note,omitempty" yaml:"note,omitempty"`
	Entities map[string]EntityInput `json:"entities" yaml:"entities"`
}

// EntityInput is the full proposed state of one entity.
//
// References (Publishers, ref-kind attributes and relationship endpoints)
// are either a key of the same submission or a real bbid. Real bbids are
// followed through redirects and must resolve to a live entity.
type EntityInput struct {
	Type model.EntityType `json:"type" yaml:"type"`

	// BBID is empty when the entity is being created.
	BBID string `json:"bbid,omitempty" yaml:"bbid,omitempty"`

	// NameSection is the default alias. Required whenever Aliases is set.
	NameSection *NameSection `json:"nameSection,omitempty" yaml:"nameSection,omitempty"`

	// Aliases are the aliases besides the default one.
	Aliases     []model.Alias      `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Identifiers []model.Identifier `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`

	// Relationships is the desired relationship set. Nil keeps the current
	// set; an empty slice removes every relationship.
	Relationships []RelationshipInput `json:"relationships" yaml:"relationships"`

	Languages      []int64      `json:"languages,omitempty" yaml:"languages,omitempty"`
	Publishers     []string     `json:"publishers,omitempty" yaml:"publishers,omitempty"`
	Annotation     string       `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Disambiguation string       `json:"disambiguation,omitempty" yaml:"disambiguation,omitempty"`
	Attributes     value.Object `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// NameSection is the entity's default name.
type NameSection struct {
	Name       string `json:"name" yaml:"name"`
	SortName   string `json:"sortName" yaml:"sortName"`
	LanguageID *int64 `json:"language,omitempty" yaml:"language,omitempty"`
}

// Alias returns the default alias the section describes. The default alias
// is always primary.
func (n NameSection) Alias() model.Alias {
	return model.Alias{
		Name:       n.Name,
		SortName:   n.SortName,
		LanguageID: n.LanguageID,
		Primary:    true,
	}
}

// RelationshipInput is a relationship whose endpoints are references.
type RelationshipInput struct {
	ID     int64  `json:"id,omitempty" yaml:"id,omitempty"`
	TypeID int64  `json:"typeId" yaml:"typeId"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// MergeRequest folds Sources into Target.
type MergeRequest struct {
	EditorID int64    `json:"editorId" yaml:"editorId"`
	Target   string   `json:"target" yaml:"target"`
	Sources  []string `json:"sources" yaml:"sources"`
	Note     string   `json:"note,omitempty" yaml:"note,omitempty"`
}
