package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/catalog/internal/model"
)

// Tx is one storage transaction. Every engine operation runs inside exactly
// one Tx; nothing it writes is visible until Commit.
type Tx struct {
	tx *sql.Tx
}

// Commit makes the transaction's writes visible.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	return nil
}

// Rollback discards the transaction. Rolling back a finished Tx is a no-op,
// so it is safe to defer.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return fmt.Errorf("rollback: %w", err)
}

func (t *Tx) insert(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: last insert id: %w", op, err)
	}
	return id, nil
}

func (t *Tx) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

// InsertEntity creates the permanent header row for a new bbid.
func (t *Tx) InsertEntity(ctx context.Context, bbid string, entityType model.EntityType) error {
	return t.exec(ctx, "insert entity", `
		INSERT INTO entity (bbid, type) VALUES (?, ?)
	`, bbid, string(entityType))
}

// SetEntityHead moves an entity's master revision and current data pointer.
// A nil dataID tombstones the entity.
func (t *Tx) SetEntityHead(ctx context.Context, bbid string, masterRevisionID int64, dataID *int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE entity SET master_revision_id = ?, data_id = ? WHERE bbid = ?
	`, masterRevisionID, nullInt(dataID), bbid)
	if err != nil {
		return fmt.Errorf("set entity head: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set entity head: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set entity head %s: %w", bbid, ErrNotFound)
	}
	return nil
}

// EnsureEditor creates the editor row if it does not exist yet.
func (t *Tx) EnsureEditor(ctx context.Context, editorID int64) error {
	return t.exec(ctx, "ensure editor", `
		INSERT INTO editor (id) VALUES (?) ON CONFLICT(id) DO NOTHING
	`, editorID)
}

// IncrementEditCount bumps the editor's revision counter.
func (t *Tx) IncrementEditCount(ctx context.Context, editorID int64) error {
	return t.exec(ctx, "increment edit count", `
		INSERT INTO editor (id, total_revisions) VALUES (?, 1)
		ON CONFLICT(id) DO UPDATE SET total_revisions = total_revisions + 1
	`, editorID)
}

// InsertRevision creates a revision row and returns its id.
func (t *Tx) InsertRevision(ctx context.Context, authorID int64, createdAt time.Time, isMerge bool) (int64, error) {
	return t.insert(ctx, "insert revision", `
		INSERT INTO revision (author_id, created_at, is_merge) VALUES (?, ?, ?)
	`, authorID, formatTime(createdAt), boolInt(isMerge))
}

// AddRevisionParent records that child was based on parent. Idempotent.
func (t *Tx) AddRevisionParent(ctx context.Context, parentID, childID int64) error {
	return t.exec(ctx, "add revision parent", `
		INSERT INTO revision_parent (parent_id, child_id) VALUES (?, ?)
		ON CONFLICT(parent_id, child_id) DO NOTHING
	`, parentID, childID)
}

// InsertEntityRevision links an entity to a revision.
func (t *Tx) InsertEntityRevision(ctx context.Context, er model.EntityRevision) error {
	return t.exec(ctx, "insert entity revision", `
		INSERT INTO entity_revision (revision_id, bbid, data_id, is_merge) VALUES (?, ?, ?, ?)
	`, er.RevisionID, er.BBID, nullInt(er.DataID), boolInt(er.IsMerge))
}

// InsertEntityData writes a fresh data row and returns its id.
func (t *Tx) InsertEntityData(ctx context.Context, d model.EntityData) (int64, error) {
	return t.insert(ctx, "insert entity data", `
		INSERT INTO entity_data
		(type, alias_set_id, identifier_set_id, relationship_set_id, language_set_id,
		 publisher_set_id, annotation_id, disambiguation_id, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(d.Type),
		nullInt(d.AliasSetID),
		nullInt(d.IdentifierSetID),
		nullInt(d.RelationshipSetID),
		nullInt(d.LanguageSetID),
		nullInt(d.PublisherSetID),
		nullInt(d.AnnotationID),
		nullInt(d.DisambiguationID),
		marshalAttributes(d.Attributes),
	)
}

// UpdateEntityData rewrites a data row created earlier in this same
// transaction. Committed data rows are never passed here.
func (t *Tx) UpdateEntityData(ctx context.Context, d model.EntityData) error {
	return t.exec(ctx, "update entity data", `
		UPDATE entity_data SET
			alias_set_id = ?, identifier_set_id = ?, relationship_set_id = ?,
			language_set_id = ?, publisher_set_id = ?, annotation_id = ?,
			disambiguation_id = ?, attributes = ?
		WHERE id = ?
	`,
		nullInt(d.AliasSetID),
		nullInt(d.IdentifierSetID),
		nullInt(d.RelationshipSetID),
		nullInt(d.LanguageSetID),
		nullInt(d.PublisherSetID),
		nullInt(d.AnnotationID),
		nullInt(d.DisambiguationID),
		marshalAttributes(d.Attributes),
		d.ID,
	)
}

// InsertAliases creates fresh alias rows and returns them with ids.
func (t *Tx) InsertAliases(ctx context.Context, aliases []model.Alias) ([]model.Alias, error) {
	out := make([]model.Alias, len(aliases))
	for i, a := range aliases {
		id, err := t.insert(ctx, "insert alias", `
			INSERT INTO alias (name, sort_name, language_id, is_primary) VALUES (?, ?, ?, ?)
		`, a.Name, a.SortName, nullInt(a.LanguageID), boolInt(a.Primary))
		if err != nil {
			return nil, err
		}
		a.ID = id
		out[i] = a
	}
	return out, nil
}

// CreateAliasSet creates a set, attaches the given alias rows and records
// the default alias.
func (t *Tx) CreateAliasSet(ctx context.Context, aliasIDs []int64, defaultAliasID int64) (int64, error) {
	setID, err := t.insert(ctx, "create alias set", `
		INSERT INTO alias_set (default_alias_id) VALUES (?)
	`, defaultAliasID)
	if err != nil {
		return 0, err
	}
	for _, id := range aliasIDs {
		if err := t.exec(ctx, "attach alias", `
			INSERT INTO alias_set__alias (set_id, alias_id) VALUES (?, ?)
		`, setID, id); err != nil {
			return 0, err
		}
	}
	return setID, nil
}

// InsertIdentifiers creates fresh identifier rows and returns them with ids.
func (t *Tx) InsertIdentifiers(ctx context.Context, identifiers []model.Identifier) ([]model.Identifier, error) {
	out := make([]model.Identifier, len(identifiers))
	for i, ident := range identifiers {
		id, err := t.insert(ctx, "insert identifier", `
			INSERT INTO identifier (type_id, value) VALUES (?, ?)
		`, ident.TypeID, ident.Value)
		if err != nil {
			return nil, err
		}
		ident.ID = id
		out[i] = ident
	}
	return out, nil
}

// CreateIdentifierSet creates a set and attaches the given identifier rows.
func (t *Tx) CreateIdentifierSet(ctx context.Context, identifierIDs []int64) (int64, error) {
	return t.createSet(ctx, "identifier_set", "identifier_set__identifier", "identifier_id", identifierIDs)
}

// InsertRelationships creates fresh relationship rows and returns them with ids.
func (t *Tx) InsertRelationships(ctx context.Context, rels []model.Relationship) ([]model.Relationship, error) {
	out := make([]model.Relationship, len(rels))
	for i, r := range rels {
		id, err := t.insert(ctx, "insert relationship", `
			INSERT INTO relationship (type_id, source_bbid, target_bbid) VALUES (?, ?, ?)
		`, r.TypeID, r.SourceBBID, r.TargetBBID)
		if err != nil {
			return nil, err
		}
		r.ID = id
		out[i] = r
	}
	return out, nil
}

// CreateRelationshipSet creates a set and attaches the given relationship rows.
func (t *Tx) CreateRelationshipSet(ctx context.Context, relationshipIDs []int64) (int64, error) {
	return t.createSet(ctx, "relationship_set", "relationship_set__relationship", "relationship_id", relationshipIDs)
}

// CreateLanguageSet creates a set over language ids.
func (t *Tx) CreateLanguageSet(ctx context.Context, languageIDs []int64) (int64, error) {
	return t.createSet(ctx, "language_set", "language_set__language", "language_id", languageIDs)
}

// CreatePublisherSet creates a set over publisher bbids.
func (t *Tx) CreatePublisherSet(ctx context.Context, bbids []string) (int64, error) {
	setID, err := t.insert(ctx, "create publisher_set", `INSERT INTO publisher_set DEFAULT VALUES`)
	if err != nil {
		return 0, err
	}
	for _, bbid := range bbids {
		if err := t.exec(ctx, "attach publisher", `
			INSERT INTO publisher_set__publisher (set_id, publisher_bbid) VALUES (?, ?)
		`, setID, bbid); err != nil {
			return 0, err
		}
	}
	return setID, nil
}

// createSet inserts an empty set row into table and attaches members via join.
// Table and column names are package constants, never caller input.
func (t *Tx) createSet(ctx context.Context, table, join, column string, memberIDs []int64) (int64, error) {
	setID, err := t.insert(ctx, "create "+table, "INSERT INTO "+table+" DEFAULT VALUES")
	if err != nil {
		return 0, err
	}
	for _, id := range memberIDs {
		if err := t.exec(ctx, "attach "+column,
			"INSERT INTO "+join+" (set_id, "+column+") VALUES (?, ?)", setID, id); err != nil {
			return 0, err
		}
	}
	return setID, nil
}

// InsertAnnotation creates an annotation stamped with the revision that wrote it.
func (t *Tx) InsertAnnotation(ctx context.Context, content string, revisionID int64) (model.Annotation, error) {
	id, err := t.insert(ctx, "insert annotation", `
		INSERT INTO annotation (content, last_revision_id) VALUES (?, ?)
	`, content, revisionID)
	if err != nil {
		return model.Annotation{}, err
	}
	return model.Annotation{ID: id, Content: content, LastRevisionID: revisionID}, nil
}

// InsertDisambiguation creates a disambiguation comment.
func (t *Tx) InsertDisambiguation(ctx context.Context, comment string) (model.Disambiguation, error) {
	id, err := t.insert(ctx, "insert disambiguation", `
		INSERT INTO disambiguation (comment) VALUES (?)
	`, comment)
	if err != nil {
		return model.Disambiguation{}, err
	}
	return model.Disambiguation{ID: id, Comment: comment}, nil
}

// InsertRedirect records that source was merged into target.
// A second redirect for the same source violates the primary key.
func (t *Tx) InsertRedirect(ctx context.Context, r model.Redirect) error {
	return t.exec(ctx, "insert redirect", `
		INSERT INTO entity_redirect (source_bbid, target_bbid) VALUES (?, ?)
	`, r.SourceBBID, r.TargetBBID)
}

// AddNote attaches a submission note to a revision.
func (t *Tx) AddNote(ctx context.Context, n model.Note) error {
	return t.exec(ctx, "add note", `
		INSERT INTO note (revision_id, author_id, content, posted_at) VALUES (?, ?, ?, ?)
	`, n.RevisionID, n.AuthorID, n.Content, formatTime(n.PostedAt))
}
