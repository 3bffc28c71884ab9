package revision

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/store"
)

// DefaultMaxRedirectDepth caps how many redirect edges Resolve follows.
const DefaultMaxRedirectDepth = 32

// Tx is the storage surface the engine drives. *store.Tx implements it.
type Tx interface {
	Commit() error
	Rollback() error

	GetEntity(ctx context.Context, bbid string) (model.Entity, error)
	GetEntityData(ctx context.Context, id int64) (model.EntityData, error)
	GetRedirect(ctx context.Context, source string) (string, error)
	GetAliasSet(ctx context.Context, setID int64) ([]model.Alias, *int64, error)
	GetIdentifierSet(ctx context.Context, setID int64) ([]model.Identifier, error)
	GetRelationshipSet(ctx context.Context, setID int64) ([]model.Relationship, error)
	GetLanguageSet(ctx context.Context, setID int64) ([]int64, error)
	GetPublisherSet(ctx context.Context, setID int64) ([]string, error)
	GetAnnotation(ctx context.Context, id int64) (model.Annotation, error)
	GetDisambiguation(ctx context.Context, id int64) (model.Disambiguation, error)
	ListEntityRevisions(ctx context.Context, bbid string) ([]model.RevisionSummary, error)

	InsertEntity(ctx context.Context, bbid string, entityType model.EntityType) error
	SetEntityHead(ctx context.Context, bbid string, masterRevisionID int64, dataID *int64) error
	IncrementEditCount(ctx context.Context, editorID int64) error
	InsertRevision(ctx context.Context, authorID int64, createdAt time.Time, isMerge bool) (int64, error)
	AddRevisionParent(ctx context.Context, parentID, childID int64) error
	InsertEntityRevision(ctx context.Context, er model.EntityRevision) error
	InsertEntityData(ctx context.Context, d model.EntityData) (int64, error)
	UpdateEntityData(ctx context.Context, d model.EntityData) error
	InsertAliases(ctx context.Context, aliases []model.Alias) ([]model.Alias, error)
	CreateAliasSet(ctx context.Context, aliasIDs []int64, defaultAliasID int64) (int64, error)
	InsertIdentifiers(ctx context.Context, identifiers []model.Identifier) ([]model.Identifier, error)
	CreateIdentifierSet(ctx context.Context, identifierIDs []int64) (int64, error)
	InsertRelationships(ctx context.Context, rels []model.Relationship) ([]model.Relationship, error)
	CreateRelationshipSet(ctx context.Context, relationshipIDs []int64) (int64, error)
	CreateLanguageSet(ctx context.Context, languageIDs []int64) (int64, error)
	CreatePublisherSet(ctx context.Context, bbids []string) (int64, error)
	InsertAnnotation(ctx context.Context, content string, revisionID int64) (model.Annotation, error)
	InsertDisambiguation(ctx context.Context, comment string) (model.Disambiguation, error)
	InsertRedirect(ctx context.Context, r model.Redirect) error
	AddNote(ctx context.Context, n model.Note) error
}

// Notifier receives entities after their revision has committed.
// notify.Dispatcher is the production implementation.
type Notifier interface {
	Notify(ctx context.Context, views []*model.EntityView)
}

// Engine is the versioning engine. It holds no per-operation state; every
// exported method opens its own transaction, so an Engine is safe for
// concurrent use to the extent the store serializes writers.
type Engine struct {
	begin            func(ctx context.Context) (Tx, error)
	logger           *slog.Logger
	alloc            Allocator
	clock            Clock
	notifier         Notifier
	maxRedirectDepth int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithAllocator sets the bbid allocator. Default: UUIDAllocator.
func WithAllocator(a Allocator) Option {
	return func(e *Engine) {
		e.alloc = a
	}
}

// WithClock sets the revision timestamp source. Default: wall clock, UTC.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithHooks installs the post-commit notifier.
func WithHooks(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithMaxRedirectDepth sets the redirect chain cap.
//
// Default: 32 (DefaultMaxRedirectDepth). Values below 1 are ignored.
func WithMaxRedirectDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxRedirectDepth = depth
		}
	}
}

// New creates an Engine over st.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		begin: func(ctx context.Context) (Tx, error) {
			tx, err := st.Begin(ctx)
			if err != nil {
				return nil, err
			}
			return tx, nil
		},
		logger:           slog.Default(),
		alloc:            UUIDAllocator{},
		clock:            systemClock{},
		maxRedirectDepth: DefaultMaxRedirectDepth,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Result describes a committed revision.
type Result struct {
	// RevisionID is the revision every touched entity now points at.
	RevisionID int64 `json:"revisionId"`

	// Keys maps submission keys to bbids. Empty for Delete and Merge.
	Keys map[string]string `json:"keys,omitempty"`

	// Touched lists every bbid that got an entity revision row, in write order.
	Touched []string `json:"touched"`
}

// run executes fn inside one transaction and commits the revision it built.
// fn returning nil without having written anything is the NO_CHANGE outcome.
func (e *Engine) run(ctx context.Context, op string, editorID int64, isMerge bool, note string, fn func(p *pending) error) (*Result, error) {
	if editorID <= 0 {
		return nil, invalidInput("", "editor id must be positive, got %d", editorID)
	}

	tx, err := e.begin(ctx)
	if err != nil {
		return nil, storageErr("begin", err)
	}
	defer tx.Rollback()

	p := newPending(e, tx, editorID, isMerge)
	if err := fn(p); err != nil {
		e.logAbort(op, err)
		return nil, err
	}
	if p.revisionID == 0 {
		err := NewNoChangeError()
		e.logAbort(op, err)
		return nil, err
	}

	if note != "" {
		if err := tx.AddNote(ctx, model.Note{
			RevisionID: p.revisionID,
			AuthorID:   editorID,
			Content:    note,
			PostedAt:   p.createdAt,
		}); err != nil {
			e.logAbort(op, err)
			return nil, storageErr("add note", err)
		}
	}

	if err := tx.Commit(); err != nil {
		err = storageErr("commit", err)
		e.logAbort(op, err)
		return nil, err
	}

	e.logger.Info("revision committed",
		"op", op,
		"revision", p.revisionID,
		"editor", editorID,
		"entities", len(p.order),
		"merge", isMerge,
	)

	res := &Result{
		RevisionID: p.revisionID,
		Touched:    append([]string(nil), p.order...),
	}
	if len(p.keys) > 0 {
		res.Keys = make(map[string]string, len(p.keys))
		for k, v := range p.keys {
			res.Keys[k] = v
		}
	}

	e.afterCommit(ctx, res.Touched)
	return res, nil
}

func (e *Engine) logAbort(op string, err error) {
	if IsNoChange(err) {
		e.logger.Info("nothing to save", "op", op)
		return
	}
	e.logger.Error("transaction aborted", "op", op, "error", err)
}

// afterCommit loads the committed state of each touched entity in a fresh
// transaction and hands it to the notifier.
func (e *Engine) afterCommit(ctx context.Context, bbids []string) {
	if e.notifier == nil || len(bbids) == 0 {
		return
	}

	views := make([]*model.EntityView, 0, len(bbids))
	err := e.read(ctx, func(tx Tx) error {
		for _, bbid := range bbids {
			ent, err := tx.GetEntity(ctx, bbid)
			if err != nil {
				return err
			}
			v, err := loadView(ctx, tx, ent)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return nil
	})
	if err != nil {
		e.logger.Warn("post-commit load failed", "error", err)
		return
	}
	e.notifier.Notify(ctx, views)
}

// read runs fn in a transaction that is always rolled back.
func (e *Engine) read(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := e.begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback()
	return fn(tx)
}
