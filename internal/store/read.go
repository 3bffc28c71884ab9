package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/catalog/internal/model"
)

// GetEntity returns the header row for bbid, or ErrNotFound.
func (t *Tx) GetEntity(ctx context.Context, bbid string) (model.Entity, error) {
	var (
		e      model.Entity
		typ    string
		master sql.NullInt64
		dataID sql.NullInt64
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT bbid, type, master_revision_id, data_id FROM entity WHERE bbid = ?
	`, bbid).Scan(&e.BBID, &typ, &master, &dataID)
	if err != nil {
		return model.Entity{}, fmt.Errorf("get entity %s: %w", bbid, classify(err))
	}
	e.Type = model.EntityType(typ)
	e.MasterRevisionID = ptrInt(master)
	e.DataID = ptrInt(dataID)
	return e, nil
}

// GetEntityData returns a data row by id.
func (t *Tx) GetEntityData(ctx context.Context, id int64) (model.EntityData, error) {
	var (
		d                                      model.EntityData
		typ                                    string
		attrs                                  string
		alias, ident, rel, lang, pub, ann, dis sql.NullInt64
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, type, alias_set_id, identifier_set_id, relationship_set_id,
		       language_set_id, publisher_set_id, annotation_id, disambiguation_id, attributes
		FROM entity_data WHERE id = ?
	`, id).Scan(&d.ID, &typ, &alias, &ident, &rel, &lang, &pub, &ann, &dis, &attrs)
	if err != nil {
		return model.EntityData{}, fmt.Errorf("get entity data %d: %w", id, classify(err))
	}
	d.Type = model.EntityType(typ)
	d.AliasSetID = ptrInt(alias)
	d.IdentifierSetID = ptrInt(ident)
	d.RelationshipSetID = ptrInt(rel)
	d.LanguageSetID = ptrInt(lang)
	d.PublisherSetID = ptrInt(pub)
	d.AnnotationID = ptrInt(ann)
	d.DisambiguationID = ptrInt(dis)
	d.Attributes, err = unmarshalAttributes(attrs)
	if err != nil {
		return model.EntityData{}, fmt.Errorf("get entity data %d: %w", id, err)
	}
	return d, nil
}

// GetRedirect returns the bbid source was merged into, or ErrNotFound.
func (t *Tx) GetRedirect(ctx context.Context, source string) (string, error) {
	var target string
	err := t.tx.QueryRowContext(ctx, `
		SELECT target_bbid FROM entity_redirect WHERE source_bbid = ?
	`, source).Scan(&target)
	if err != nil {
		return "", fmt.Errorf("get redirect %s: %w", source, classify(err))
	}
	return target, nil
}

// GetAliasSet returns the members of an alias set ordered by id, and its
// default alias id.
func (t *Tx) GetAliasSet(ctx context.Context, setID int64) ([]model.Alias, *int64, error) {
	var def sql.NullInt64
	err := t.tx.QueryRowContext(ctx, `SELECT default_alias_id FROM alias_set WHERE id = ?`, setID).Scan(&def)
	if err != nil {
		return nil, nil, fmt.Errorf("get alias set %d: %w", setID, classify(err))
	}

	rows, err := t.tx.QueryContext(ctx, `
		SELECT a.id, a.name, a.sort_name, a.language_id, a.is_primary
		FROM alias a
		JOIN alias_set__alias j ON j.alias_id = a.id
		WHERE j.set_id = ?
		ORDER BY a.id ASC
	`, setID)
	if err != nil {
		return nil, nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	var aliases []model.Alias
	for rows.Next() {
		var (
			a       model.Alias
			lang    sql.NullInt64
			primary int
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.SortName, &lang, &primary); err != nil {
			return nil, nil, fmt.Errorf("scan alias: %w", err)
		}
		a.LanguageID = ptrInt(lang)
		a.Primary = primary != 0
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return aliases, ptrInt(def), nil
}

// GetIdentifierSet returns the members of an identifier set ordered by id.
func (t *Tx) GetIdentifierSet(ctx context.Context, setID int64) ([]model.Identifier, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT i.id, i.type_id, i.value
		FROM identifier i
		JOIN identifier_set__identifier j ON j.identifier_id = i.id
		WHERE j.set_id = ?
		ORDER BY i.id ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query identifiers: %w", err)
	}
	defer rows.Close()

	var out []model.Identifier
	for rows.Next() {
		var i model.Identifier
		if err := rows.Scan(&i.ID, &i.TypeID, &i.Value); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identifiers: %w", err)
	}
	return out, nil
}

// GetRelationshipSet returns the members of a relationship set ordered by id.
func (t *Tx) GetRelationshipSet(ctx context.Context, setID int64) ([]model.Relationship, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT r.id, r.type_id, r.source_bbid, r.target_bbid
		FROM relationship r
		JOIN relationship_set__relationship j ON j.relationship_id = r.id
		WHERE j.set_id = ?
		ORDER BY r.id ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		var r model.Relationship
		if err := rows.Scan(&r.ID, &r.TypeID, &r.SourceBBID, &r.TargetBBID); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relationships: %w", err)
	}
	return out, nil
}

// GetLanguageSet returns the language ids of a set in ascending order.
func (t *Tx) GetLanguageSet(ctx context.Context, setID int64) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT language_id FROM language_set__language WHERE set_id = ? ORDER BY language_id ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query languages: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan language: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate languages: %w", err)
	}
	return out, nil
}

// GetPublisherSet returns the publisher bbids of a set in ascending order.
func (t *Tx) GetPublisherSet(ctx context.Context, setID int64) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT publisher_bbid FROM publisher_set__publisher WHERE set_id = ?
		ORDER BY publisher_bbid COLLATE BINARY ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query publishers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var bbid string
		if err := rows.Scan(&bbid); err != nil {
			return nil, fmt.Errorf("scan publisher: %w", err)
		}
		out = append(out, bbid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publishers: %w", err)
	}
	return out, nil
}

// GetAnnotation returns an annotation by id.
func (t *Tx) GetAnnotation(ctx context.Context, id int64) (model.Annotation, error) {
	var a model.Annotation
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, content, last_revision_id FROM annotation WHERE id = ?
	`, id).Scan(&a.ID, &a.Content, &a.LastRevisionID)
	if err != nil {
		return model.Annotation{}, fmt.Errorf("get annotation %d: %w", id, classify(err))
	}
	return a, nil
}

// GetDisambiguation returns a disambiguation by id.
func (t *Tx) GetDisambiguation(ctx context.Context, id int64) (model.Disambiguation, error) {
	var d model.Disambiguation
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, comment FROM disambiguation WHERE id = ?
	`, id).Scan(&d.ID, &d.Comment)
	if err != nil {
		return model.Disambiguation{}, fmt.Errorf("get disambiguation %d: %w", id, classify(err))
	}
	return d, nil
}

// GetEditor returns an editor by id.
func (t *Tx) GetEditor(ctx context.Context, id int64) (model.Editor, error) {
	var e model.Editor
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, total_revisions FROM editor WHERE id = ?
	`, id).Scan(&e.ID, &e.Name, &e.TotalRevisions)
	if err != nil {
		return model.Editor{}, fmt.Errorf("get editor %d: %w", id, classify(err))
	}
	return e, nil
}

// ListEntityRevisions returns the revisions that touched bbid, newest first,
// with their parents and notes.
func (t *Tx) ListEntityRevisions(ctx context.Context, bbid string) ([]model.RevisionSummary, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT r.id, r.author_id, r.created_at, er.is_merge, er.data_id IS NULL
		FROM entity_revision er
		JOIN revision r ON r.id = er.revision_id
		WHERE er.bbid = ?
		ORDER BY r.id DESC
	`, bbid)
	if err != nil {
		return nil, fmt.Errorf("query entity revisions: %w", err)
	}

	var out []model.RevisionSummary
	for rows.Next() {
		var (
			s       model.RevisionSummary
			created string
			isMerge int
			deleted int
		)
		if err := rows.Scan(&s.ID, &s.AuthorID, &created, &isMerge, &deleted); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		s.CreatedAt, err = parseTime(created)
		if err != nil {
			rows.Close()
			return nil, err
		}
		s.IsMerge = isMerge != 0
		s.Deleted = deleted != 0
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	rows.Close()

	// Parents and notes are loaded after the cursor closes; the Tx holds the
	// pool's only connection.
	for i := range out {
		out[i].ParentIDs, err = t.revisionParents(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Notes, err = t.revisionNotes(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *Tx) revisionParents(ctx context.Context, revisionID int64) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT parent_id FROM revision_parent WHERE child_id = ? ORDER BY parent_id ASC
	`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("query parents: %w", err)
	}
	defer rows.Close()

	parents := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan parent: %w", err)
		}
		parents = append(parents, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parents: %w", err)
	}
	return parents, nil
}

func (t *Tx) revisionNotes(ctx context.Context, revisionID int64) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT content FROM note WHERE revision_id = ? ORDER BY id ASC
	`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}
