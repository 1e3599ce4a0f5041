// Package bunstorage is the reference storage adapter: it executes pipeline
// requests against a relational database through bun.
package bunstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/goliatone/go-persistence/entity"
	"github.com/goliatone/go-persistence/storage"
)

// Adapter creates bun-backed sessions.
type Adapter struct {
	db       *bun.DB
	registry *entity.Registry
}

// NewAdapter wraps a bun database. The registry resolves the version column
// per entity type for optimistic updates; nil uses the defaults.
func NewAdapter(db *bun.DB, registry *entity.Registry) *Adapter {
	if registry == nil {
		registry = entity.NewRegistry()
	}
	return &Adapter{db: db, registry: registry}
}

// Session returns a non-transactional session backed by the database.
func (a *Adapter) Session(ctx context.Context) (storage.Session, error) {
	return &session{adapter: a, idb: a.db}, nil
}

// Begin opens a transaction.
func (a *Adapter) Begin(ctx context.Context) (storage.Session, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &session{adapter: a, idb: tx, tx: &tx}, nil
}

// SupportsNativeVersioning is false: version columns are plain integers
// here; the optimistic-lock interceptor owns the increment.
func (a *Adapter) SupportsNativeVersioning() bool {
	return false
}

type session struct {
	adapter *Adapter
	idb     bun.IDB
	tx      *bun.Tx
}

func (s *session) Execute(ctx context.Context, req storage.Request) (storage.Result, error) {
	switch req.Operation {
	case "create":
		return s.insert(ctx, req.Entity)
	case "batch_create":
		return s.insertMany(ctx, req.Entities)
	case "update":
		return s.update(ctx, req)
	case "batch_update":
		return s.updateMany(ctx, req)
	case "delete":
		return s.delete(ctx, req.Entity)
	case "batch_delete":
		return s.deleteMany(ctx, req.Entities)
	case "get":
		return s.get(ctx, req)
	case "read", "find", "query", "sort_limit":
		return s.list(ctx, req, false)
	case "paginate":
		return s.list(ctx, req, true)
	case "random_sample":
		return s.randomSample(ctx, req)
	case "aggregate", "group_by":
		return s.aggregate(ctx, req)
	case "commit":
		return storage.Result{}, s.Commit(ctx)
	case "rollback":
		return storage.Result{}, s.Rollback(ctx)
	}
	return storage.Result{}, fmt.Errorf("bunstorage: unsupported operation %q", req.Operation)
}

func (s *session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Commit()
}

func (s *session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Rollback()
}

func (s *session) insert(ctx context.Context, e any) (storage.Result, error) {
	res, err := s.idb.NewInsert().Model(e).Exec(ctx)
	if err != nil {
		return storage.Result{}, err
	}
	affected, _ := res.RowsAffected()
	return storage.Result{Entity: e, RowsAffected: affected}, nil
}

func (s *session) insertMany(ctx context.Context, entities []any) (storage.Result, error) {
	var affected int64
	for _, e := range entities {
		res, err := s.insert(ctx, e)
		if err != nil {
			return storage.Result{}, err
		}
		affected += res.RowsAffected
	}
	return storage.Result{Entities: entities, RowsAffected: affected}, nil
}

func (s *session) update(ctx context.Context, req storage.Request) (storage.Result, error) {
	q := s.idb.NewUpdate().Model(req.Entity).WherePK()
	if req.OldVersion != nil {
		column := s.adapter.registry.Mapping(req.EntityType).Version
		q = q.Where("? = ?", bun.Ident(column), *req.OldVersion)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return storage.Result{}, err
	}
	affected, _ := res.RowsAffected()
	if req.OldVersion != nil && affected == 0 {
		return storage.Result{}, storage.ErrVersionConflict
	}
	return storage.Result{Entity: req.Entity, RowsAffected: affected}, nil
}

func (s *session) updateMany(ctx context.Context, req storage.Request) (storage.Result, error) {
	var affected int64
	for _, e := range req.Entities {
		res, err := s.idb.NewUpdate().Model(e).WherePK().Exec(ctx)
		if err != nil {
			return storage.Result{}, err
		}
		n, _ := res.RowsAffected()
		affected += n
	}
	return storage.Result{Entities: req.Entities, RowsAffected: affected}, nil
}

func (s *session) delete(ctx context.Context, e any) (storage.Result, error) {
	res, err := s.idb.NewDelete().Model(e).WherePK().Exec(ctx)
	if err != nil {
		return storage.Result{}, err
	}
	affected, _ := res.RowsAffected()
	return storage.Result{RowsAffected: affected}, nil
}

func (s *session) deleteMany(ctx context.Context, entities []any) (storage.Result, error) {
	var affected int64
	for _, e := range entities {
		res, err := s.delete(ctx, e)
		if err != nil {
			return storage.Result{}, err
		}
		affected += res.RowsAffected
	}
	return storage.Result{RowsAffected: affected}, nil
}

func (s *session) get(ctx context.Context, req storage.Request) (storage.Result, error) {
	q := s.idb.NewSelect().Model(req.Entity)
	if req.EntityID != "" {
		q = q.Where("? = ?", bun.Ident("id"), req.EntityID)
	}
	q, err := applyParams(q, req.Params, s.dialect(), false)
	if err != nil {
		return storage.Result{}, err
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Result{}, storage.ErrNotFound
		}
		return storage.Result{}, err
	}
	return storage.Result{Entity: req.Entity}, nil
}

func (s *session) list(ctx context.Context, req storage.Request, counted bool) (storage.Result, error) {
	q := s.idb.NewSelect().Model(req.Dest)
	q, err := applyParams(q, req.Params, s.dialect(), true)
	if err != nil {
		return storage.Result{}, err
	}

	if counted {
		total, err := q.ScanAndCount(ctx)
		if err != nil {
			return storage.Result{}, err
		}
		return storage.Result{Entity: req.Dest, Total: total}, nil
	}
	if err := q.Scan(ctx); err != nil {
		return storage.Result{}, err
	}
	return storage.Result{Entity: req.Dest}, nil
}

func (s *session) randomSample(ctx context.Context, req storage.Request) (storage.Result, error) {
	q := s.idb.NewSelect().Model(req.Dest)
	q, err := applyParams(q, req.Params, s.dialect(), false)
	if err != nil {
		return storage.Result{}, err
	}

	limit := 1
	if req.Params != nil && req.Params.Page != nil {
		limit = req.Params.Page.Limit()
	}
	if err := q.OrderExpr("RANDOM()").Limit(limit).Scan(ctx); err != nil {
		return storage.Result{}, err
	}
	return storage.Result{Entity: req.Dest}, nil
}

func (s *session) aggregate(ctx context.Context, req storage.Request) (storage.Result, error) {
	q := s.idb.NewSelect().Model(req.Entity)
	q, err := applyParams(q, req.Params, s.dialect(), true)
	if err != nil {
		return storage.Result{}, err
	}

	var rows []map[string]any
	if err := q.Scan(ctx, &rows); err != nil {
		return storage.Result{}, err
	}
	return storage.Result{Rows: rows, Total: len(rows)}, nil
}

func (s *session) dialect() dialect.Name {
	return s.idb.Dialect().Name()
}
